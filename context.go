package tokenauth

import "context"

type clientKey struct{}

// client is what the transport knows about the caller. Login throttling keys
// on IP; audit events carry both fields.
type client struct {
	ip        string
	userAgent string
}

// WithClientIP attaches the caller's IP address to ctx. The Engine uses it
// for per-IP login throttling and audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	c := clientFromContext(ctx)
	c.ip = ip
	return context.WithValue(ctx, clientKey{}, c)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx for audit events.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	c := clientFromContext(ctx)
	c.userAgent = userAgent
	return context.WithValue(ctx, clientKey{}, c)
}

func clientFromContext(ctx context.Context) client {
	if ctx == nil {
		return client{}
	}
	c, _ := ctx.Value(clientKey{}).(client)
	return c
}

func clientIPFromContext(ctx context.Context) string { return clientFromContext(ctx).ip }

func userAgentFromContext(ctx context.Context) string { return clientFromContext(ctx).userAgent }

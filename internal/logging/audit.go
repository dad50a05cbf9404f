package logging

import (
	"context"

	"github.com/MrEthical07/tokenauth"
	"go.uber.org/zap"
)

// AuditSink writes engine audit events as structured log entries. Failed
// events are logged at warn level.
type AuditSink struct {
	log *zap.Logger
}

func NewAuditSink(log *zap.Logger) *AuditSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditSink{log: log.Named("audit")}
}

func (s *AuditSink) Emit(_ context.Context, event tokenauth.AuditEvent) {
	fields := make([]zap.Field, 0, 7+len(event.Metadata))
	fields = append(fields,
		zap.String("event_type", event.EventType),
		zap.Time("event_time", event.Timestamp),
		zap.Bool("success", event.Success),
	)
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.UserAgent != "" {
		fields = append(fields, zap.String("user_agent", event.UserAgent))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error_code", event.Error))
	}
	for k, v := range event.Metadata {
		fields = append(fields, zap.String("meta."+k, v))
	}

	if event.Success {
		s.log.Info("audit event", fields...)
		return
	}
	s.log.Warn("audit event", fields...)
}

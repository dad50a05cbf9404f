package rate

const (
	loginUserPrefix = "al"
	loginIPPrefix   = "ali"
	refreshPrefix   = "ar"
)

func (l *Limiter) key(kind, subject string) string {
	if l.config.KeyPrefix == "" {
		return kind + ":" + subject
	}
	return l.config.KeyPrefix + ":" + kind + ":" + subject
}

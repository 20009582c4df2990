// Package notify delivers the user-facing notices raised by booking
// operations. Delivery is fire-and-forget: a failed send is logged and never
// reaches the caller.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Gustavouu/unclic-manager-sub000/internal/booking"
)

type businessKey struct{}

// WithBusiness tags ctx with the business a notice belongs to.
func WithBusiness(ctx context.Context, businessID string) context.Context {
	return context.WithValue(ctx, businessKey{}, businessID)
}

func BusinessFrom(ctx context.Context) string {
	id, _ := ctx.Value(businessKey{}).(string)
	return id
}

// Log writes notices to the service log.
type Log struct {
	logger zerolog.Logger
}

func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, kind booking.NoticeKind, message string) {
	var ev *zerolog.Event
	switch kind {
	case booking.NoticeError:
		ev = l.logger.Error()
	case booking.NoticeWarning:
		ev = l.logger.Warn()
	default:
		ev = l.logger.Info()
	}
	ev.Str("kind", string(kind)).Str("business_id", BusinessFrom(ctx)).Msg(message)
}

// Multi fans a notice out to every notifier.
type Multi []booking.Notifier

func (m Multi) Notify(ctx context.Context, kind booking.NoticeKind, message string) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, kind, message)
		}
	}
}

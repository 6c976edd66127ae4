package dispatcher

import (
	"context"

	"github.com/kweku/ai-procurement/internal/domain/event"
)

// Handler consumes one domain event. Returning an error aborts a
// synchronous dispatch; async dispatch only logs it.
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo describes a registered handler. ListHandlers returns it
// with Handler left nil so callers cannot invoke subscriptions out of
// band.
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}

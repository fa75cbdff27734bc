package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/sharetube/syncplay/pkg/ctxlogger"
)

var (
	ErrUnknownMessage = errors.New("unknown message")
	ErrNotAnObject    = errors.New("message is not a json object")
)

const (
	KeyState = "State"
	KeySet   = "Set"
	KeyError = "Error"
	KeyHello = "Hello"
	KeyList  = "List"
	KeyChat  = "Chat"
	KeyTLS   = "TLS"
)

type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// Router dispatches coordinator messages by their top-level keys. A single message may carry
// several keys, they are handled in sorted order.
type Router struct {
	routes map[string]HandlerFunc
}

func NewRouter() *Router {
	return &Router{routes: make(map[string]HandlerFunc)}
}

func (r *Router) Handle(key string, handler HandlerFunc) {
	r.routes[key] = handler
}

func (r *Router) Dispatch(ctx context.Context, msg json.RawMessage) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(msg, &envelope); err != nil || envelope == nil {
		return fmt.Errorf("%w: %s", ErrNotAnObject, msg)
	}

	keys := make([]string, 0, len(envelope))
	for key := range envelope {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var errs []error
	for _, key := range keys {
		handler, ok := r.routes[key]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownMessage, key))
			continue
		}

		keyCtx := ctxlogger.AppendCtx(ctx, slog.String("message_type", key))
		if err := handler(keyCtx, envelope[key]); err != nil {
			errs = append(errs, fmt.Errorf("failed to handle %s: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

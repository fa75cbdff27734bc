package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

var ErrUnknownMessageType = errors.New("unknown message type")

type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type HandlerFunc func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error

type Middleware func(next HandlerFunc) HandlerFunc

// ErrorHandlerFunc is called with every error returned by a handler. Returning a non-nil
// error stops ServeConn.
type ErrorHandlerFunc func(ctx context.Context, conn *websocket.Conn, err error) error

type WSRouter struct {
	routes      map[string]HandlerFunc
	middlewares []Middleware
	onError     ErrorHandlerFunc
}

func New() *WSRouter {
	return &WSRouter{
		routes: make(map[string]HandlerFunc),
		onError: func(ctx context.Context, conn *websocket.Conn, err error) error {
			return nil
		},
	}
}

func (r *WSRouter) Use(mw ...Middleware) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *WSRouter) OnError(fn ErrorHandlerFunc) {
	r.onError = fn
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

// Typed adapts a handler taking a decoded payload of type T.
func Typed[T any](handler func(ctx context.Context, conn *websocket.Conn, input T) error) HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		var input T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &input); err != nil {
				return fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		return handler(ctx, conn, input)
	}
}

// Dispatch routes a single message through the middleware chain.
func (r *WSRouter) Dispatch(ctx context.Context, conn *websocket.Conn, msg Message) error {
	handler, exists := r.routes[msg.Type]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownMessageType, msg.Type)
	}

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}

	ctx = context.WithValue(ctx, messageTypeKey, msg.Type)
	return handler(ctx, conn, msg.Payload)
}

func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		if err := r.Dispatch(ctx, conn, msg); err != nil {
			if err := r.onError(ctx, conn, err); err != nil {
				return err
			}
		}
	}
}

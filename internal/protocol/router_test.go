package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterDispatch(t *testing.T) {
	r := NewRouter()

	var seen []string
	r.Handle(KeyState, func(ctx context.Context, payload json.RawMessage) error {
		seen = append(seen, KeyState+":"+string(payload))
		return nil
	})
	r.Handle(KeySet, func(ctx context.Context, payload json.RawMessage) error {
		seen = append(seen, KeySet)
		return nil
	})

	err := r.Dispatch(context.Background(), json.RawMessage(`{"State":{"a":1},"Set":{}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Set", `State:{"a":1}`}, seen)
}

func TestRouterDispatchErrors(t *testing.T) {
	errBoom := errors.New("boom")
	r := NewRouter()
	r.Handle(KeyState, func(ctx context.Context, payload json.RawMessage) error {
		return errBoom
	})

	err := r.Dispatch(context.Background(), json.RawMessage(`{"State":{},"Weird":1}`))
	assert.ErrorIs(t, err, errBoom)
	assert.ErrorIs(t, err, ErrUnknownMessage)

	assert.ErrorIs(t, r.Dispatch(context.Background(), json.RawMessage(`[1,2]`)), ErrNotAnObject)
	assert.ErrorIs(t, r.Dispatch(context.Background(), json.RawMessage(`null`)), ErrNotAnObject)
}

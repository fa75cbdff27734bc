package tcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	ln    net.Listener
	conns chan net.Conn
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &testServer{ln: ln, conns: make(chan net.Conn, 4)}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.conns <- conn
		}
	}()

	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *testServer) accept(t *testing.T) net.Conn {
	t.Helper()
	select {
	case conn := <-s.conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("no connection accepted")
		return nil
	}
}

func newTestConn(t *testing.T, addr string) *Conn {
	t.Helper()
	c := New(&Config{
		Addr:           addr,
		ReadTimeout:    200 * time.Millisecond,
		ReconnectDelay: 10 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { c.Close() })
	return c
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return line
}

func TestSendWritesCompactLine(t *testing.T) {
	srv := newTestServer(t)
	c := newTestConn(t, srv.ln.Addr().String())
	ctx := context.Background()

	require.NoError(t, c.Connect(ctx))
	peer := srv.accept(t)

	require.NoError(t, c.Send(ctx, map[string]any{"Set": map[string]any{"ready": map[string]any{"isReady": true}}}))

	assert.Equal(t, "{\"Set\":{\"ready\":{\"isReady\":true}}}\r\n", readLine(t, bufio.NewReader(peer)))
}

func TestSendReconnectsOnce(t *testing.T) {
	srv := newTestServer(t)
	c := newTestConn(t, srv.ln.Addr().String())
	ctx := context.Background()

	require.NoError(t, c.Connect(ctx))
	srv.accept(t)
	require.NoError(t, c.Close())

	require.NoError(t, c.Send(ctx, map[string]int{"n": 1}))

	peer := srv.accept(t)
	assert.Equal(t, "{\"n\":1}\r\n", readLine(t, bufio.NewReader(peer)))
	assert.True(t, c.Connected())
}

func TestSendFailsWhenCoordinatorIsGone(t *testing.T) {
	srv := newTestServer(t)
	addr := srv.ln.Addr().String()
	srv.ln.Close()

	c := newTestConn(t, addr)
	err := c.Send(context.Background(), map[string]int{"n": 1})
	assert.Error(t, err)
}

func TestReceiveReturnsBufferedLines(t *testing.T) {
	srv := newTestServer(t)
	c := newTestConn(t, srv.ln.Addr().String())
	ctx := context.Background()

	require.NoError(t, c.Connect(ctx))
	peer := srv.accept(t)

	_, err := peer.Write([]byte("{\"State\":{}}\r\nnot json\r\n\r\n{\"Error\":{\"message\":\"x\"}}\r\n"))
	require.NoError(t, err)

	var got []json.RawMessage
	for deadline := time.Now().Add(2 * time.Second); len(got) < 2 && time.Now().Before(deadline); {
		msgs, err := c.Receive(ctx)
		require.NoError(t, err)
		got = append(got, msgs...)
	}

	require.Len(t, got, 2)
	assert.JSONEq(t, `{"State":{}}`, string(got[0]))
	assert.JSONEq(t, `{"Error":{"message":"x"}}`, string(got[1]))
}

func TestReceiveJoinsPartialLines(t *testing.T) {
	srv := newTestServer(t)
	c := newTestConn(t, srv.ln.Addr().String())
	ctx := context.Background()

	require.NoError(t, c.Connect(ctx))
	peer := srv.accept(t)

	_, err := peer.Write([]byte("{\"Sta"))
	require.NoError(t, err)

	msgs, err := c.Receive(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = peer.Write([]byte("te\":{}}\r\n"))
	require.NoError(t, err)

	msgs, err = c.Receive(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.JSONEq(t, `{"State":{}}`, string(msgs[0]))
}

func TestReceiveTimeoutIsEmpty(t *testing.T) {
	srv := newTestServer(t)
	c := newTestConn(t, srv.ln.Addr().String())
	ctx := context.Background()

	require.NoError(t, c.Connect(ctx))
	srv.accept(t)

	msgs, err := c.Receive(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.True(t, c.Connected())
}

func TestReceiveConnectsWhenDisconnected(t *testing.T) {
	srv := newTestServer(t)
	c := newTestConn(t, srv.ln.Addr().String())

	msgs, err := c.Receive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.True(t, c.Connected())
	srv.accept(t)
}

func TestReceiveClosedByPeer(t *testing.T) {
	srv := newTestServer(t)
	c := newTestConn(t, srv.ln.Addr().String())
	ctx := context.Background()

	require.NoError(t, c.Connect(ctx))
	peer := srv.accept(t)
	require.NoError(t, peer.Close())

	_, err := c.Receive(ctx)
	assert.Error(t, err)
	assert.False(t, c.Connected())
}

func TestReceiveHonoursContext(t *testing.T) {
	srv := newTestServer(t)
	c := New(&Config{Addr: srv.ln.Addr().String(), ReadTimeout: time.Minute},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { c.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Connect(ctx))
	srv.accept(t)

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := c.Receive(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReconnect(t *testing.T) {
	srv := newTestServer(t)
	c := newTestConn(t, srv.ln.Addr().String())
	ctx := context.Background()

	require.NoError(t, c.Connect(ctx))
	first := srv.accept(t)

	require.NoError(t, c.Reconnect(ctx))
	srv.accept(t)

	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err := first.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func TestReceiveDropsPartialLineOfReplacedConnection(t *testing.T) {
	srv := newTestServer(t)
	c := newTestConn(t, srv.ln.Addr().String())
	ctx := context.Background()

	require.NoError(t, c.Connect(ctx))
	first := srv.accept(t)

	_, err := first.Write([]byte("{\"Sta"))
	require.NoError(t, err)

	msgs, err := c.Receive(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, c.Reconnect(ctx))
	second := srv.accept(t)

	_, err = second.Write([]byte("{\"State\":{}}\r\n"))
	require.NoError(t, err)

	msgs, err = c.Receive(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.JSONEq(t, `{"State":{}}`, string(msgs[0]))
}

func TestSendReconnectsWhileReceiving(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	// every connection delivers one full line and half of the next, then drops
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				conn.Write([]byte("{\"State\":{}}\r\n{\"Sta"))
				time.Sleep(5 * time.Millisecond)
			}()
		}
	}()

	c := New(&Config{
		Addr:           ln.Addr().String(),
		ReadTimeout:    20 * time.Millisecond,
		ReconnectDelay: time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { c.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		wg       sync.WaitGroup
		received []json.RawMessage
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			msgs, _ := c.Receive(ctx)
			received = append(received, msgs...)
		}
	}()

	for range 50 {
		c.Send(ctx, map[string]int{"n": 1})
		time.Sleep(2 * time.Millisecond)
	}
	cancel()
	wg.Wait()

	require.NotEmpty(t, received)
	for _, msg := range received {
		assert.JSONEq(t, `{"State":{}}`, string(msg))
	}
}

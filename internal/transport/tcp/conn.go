package tcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

var ErrNotConnected = errors.New("not connected")

var lineDelimiter = []byte("\r\n")

type Config struct {
	Addr           string
	DialTimeout    time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	ReconnectDelay time.Duration
}

func (c *Config) withDefaults() *Config {
	cfg := *c
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = time.Second
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}
	return &cfg
}

// Conn is a line-delimited JSON connection to the coordinator. Send is safe for concurrent use;
// Receive is meant to be called from a single reader loop.
type Conn struct {
	cfg    *Config
	logger *slog.Logger
	dialer net.Dialer

	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader

	writeMu sync.Mutex

	// owned by the Receive loop; partial is the unterminated tail read from partialConn
	partial     []byte
	partialConn net.Conn
}

func New(cfg *Config, logger *slog.Logger) *Conn {
	cfg = cfg.withDefaults()
	return &Conn{
		cfg:    cfg,
		logger: logger,
		dialer: net.Dialer{Timeout: cfg.DialTimeout},
	}
}

func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	conn, err := c.dialer.DialContext(ctx, "tcp", c.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", c.cfg.Addr, err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)

	c.logger.InfoContext(ctx, "connected", "addr", c.cfg.Addr)
	return nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closeLocked()
}

func (c *Conn) closeLocked() error {
	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	if err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	return nil
}

func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn != nil
}

// Reconnect drops the current connection and dials again.
func (c *Conn) Reconnect(ctx context.Context) error {
	if err := c.Close(); err != nil {
		c.logger.WarnContext(ctx, "close before reconnect", "error", err)
	}

	return c.Connect(ctx)
}

func (c *Conn) current() net.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn
}

// Send writes v as one compact JSON line. A failed write is retried once on a fresh connection.
func (c *Conn) Send(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	data = append(data, lineDelimiter...)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	err = c.write(ctx, data)
	if err == nil {
		return nil
	}

	c.logger.WarnContext(ctx, "write failed, reconnecting", "error", err)
	if err := c.Reconnect(ctx); err != nil {
		return fmt.Errorf("failed to reconnect: %w", err)
	}

	if err := c.write(ctx, data); err != nil {
		return fmt.Errorf("failed to resend message: %w", err)
	}

	return nil
}

func (c *Conn) write(ctx context.Context, data []byte) error {
	conn := c.current()
	if conn == nil {
		return ErrNotConnected
	}

	deadline := time.Now().Add(c.cfg.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}

	return nil
}

// Receive waits up to the read timeout for complete lines and returns every complete line
// already buffered. A timeout yields an empty result. Lines that are not valid JSON are skipped.
func (c *Conn) Receive(ctx context.Context) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	conn, reader := c.conn, c.reader
	c.mu.Unlock()

	if conn == nil {
		if err := c.Connect(ctx); err != nil {
			select {
			case <-ctx.Done():
			case <-time.After(c.cfg.ReconnectDelay):
			}
			return nil, err
		}

		c.mu.Lock()
		conn, reader = c.conn, c.reader
		c.mu.Unlock()
		if conn == nil {
			return nil, ErrNotConnected
		}
	}

	if c.partialConn != conn {
		c.partial = nil
		c.partialConn = conn
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}

	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	var messages []json.RawMessage
	for {
		chunk, err := reader.ReadBytes('\n')
		c.partial = append(c.partial, chunk...)

		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				if ctxErr := ctx.Err(); ctxErr != nil && len(messages) == 0 {
					return nil, ctxErr
				}
				return messages, nil
			}

			if c.current() != conn {
				// replaced by Reconnect while reading
				return messages, nil
			}

			c.mu.Lock()
			if c.conn == conn {
				c.closeLocked()
			}
			c.mu.Unlock()

			if len(messages) > 0 {
				return messages, nil
			}
			return nil, fmt.Errorf("failed to read: %w", err)
		}

		line := bytes.TrimSpace(c.partial)
		c.partial = nil

		if len(line) > 0 {
			if json.Valid(line) {
				messages = append(messages, json.RawMessage(bytes.Clone(line)))
			} else {
				c.logger.WarnContext(ctx, "skipping malformed line", "line", string(line))
			}
		}

		if len(messages) > 0 && !hasLine(reader) {
			return messages, nil
		}
	}
}

func hasLine(r *bufio.Reader) bool {
	n := r.Buffered()
	if n == 0 {
		return false
	}

	buf, err := r.Peek(n)
	if err != nil {
		return false
	}

	return bytes.IndexByte(buf, '\n') >= 0
}

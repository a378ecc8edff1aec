package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/FreePeak/golang-widget-sdk/internal/infrastructure/logging"
)

// StdioTransport exposes a protocol handler over standard input/output
// with newline-framed JSON-RPC messages. A stdio process hosts exactly one
// implicit session, so a single handler instance serves its lifetime.
type StdioTransport struct {
	reader    *bufio.Reader
	writer    *bufio.Writer
	handler   MessageHandler
	logger    *logging.Logger
	closeCh   chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex
}

// StdioOption configures a StdioTransport.
type StdioOption func(*StdioTransport)

// WithStdioLogger sets the transport logger. Logs go to stderr; stdout is
// reserved for protocol frames.
func WithStdioLogger(logger *logging.Logger) StdioOption {
	return func(t *StdioTransport) {
		t.logger = logger
	}
}

// WithStreams overrides the transport streams. Used in tests.
func WithStreams(in io.Reader, out io.Writer) StdioOption {
	return func(t *StdioTransport) {
		t.reader = bufio.NewReader(in)
		t.writer = bufio.NewWriter(out)
	}
}

// NewStdioTransport creates a stdio transport bound to the given handler.
func NewStdioTransport(handler MessageHandler, opts ...StdioOption) *StdioTransport {
	t := &StdioTransport{
		reader:  bufio.NewReader(os.Stdin),
		writer:  bufio.NewWriter(os.Stdout),
		handler: handler,
		logger:  logging.NewNop(),
		closeCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start reads messages until EOF, close, or context cancellation. It
// blocks; callers wanting a background server run it in a goroutine.
func (t *StdioTransport) Start(ctx context.Context) error {
	for {
		select {
		case <-t.closeCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := t.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.Wrap(err, "reading from stdin")
		}

		var rawMessage json.RawMessage
		if err := json.Unmarshal(line, &rawMessage); err != nil {
			t.logger.Warn("dropping invalid JSON frame", logging.Fields{"error": err.Error()})
			continue
		}

		response := t.handler.HandleMessage(ctx, rawMessage)
		if response == nil {
			continue
		}
		if err := t.send(response); err != nil {
			t.logger.Error("writing response", logging.Fields{"error": err.Error()})
		}
	}
}

// Close stops the transport. Safe to call more than once.
func (t *StdioTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closeCh)
	})
	return nil
}

func (t *StdioTransport) send(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "marshalling message")
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := t.writer.Write(data); err != nil {
		return errors.Wrap(err, "writing message")
	}
	if err := t.writer.WriteByte('\n'); err != nil {
		return errors.Wrap(err, "writing newline")
	}
	return errors.Wrap(t.writer.Flush(), "flushing writer")
}

package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FreePeak/golang-widget-sdk/internal/domain/shared"
)

func startStdio(t *testing.T, handler MessageHandler) (in io.WriteCloser, out *bufio.Reader, transport *StdioTransport) {
	t.Helper()
	inReader, inWriter := io.Pipe()
	outReader, outWriter := io.Pipe()

	transport = NewStdioTransport(handler, WithStreams(inReader, outWriter))
	go func() {
		_ = transport.Start(context.Background())
	}()
	return inWriter, bufio.NewReader(outReader), transport
}

func echoHandler() MessageHandler {
	return MessageHandlerFunc(func(ctx context.Context, message json.RawMessage) interface{} {
		var req shared.JSONRPCRequest
		if err := json.Unmarshal(message, &req); err != nil {
			return shared.NewErrorResponse(nil, shared.ParseError, "bad json")
		}
		if req.IsNotification() {
			return nil
		}
		return shared.NewResponse(req.ID, map[string]interface{}{"echo": req.Method})
	})
}

func readResponse(t *testing.T, out *bufio.Reader) shared.JSONRPCResponse {
	t.Helper()
	lineCh := make(chan string, 1)
	go func() {
		line, err := out.ReadString('\n')
		if err == nil {
			lineCh <- line
		}
	}()

	select {
	case line := <-lineCh:
		var resp shared.JSONRPCResponse
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		return resp
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a response line")
		return shared.JSONRPCResponse{}
	}
}

func TestStdioRoundTrip(t *testing.T) {
	in, out, transport := startStdio(t, echoHandler())
	defer transport.Close()

	_, err := in.Write([]byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n"))
	require.NoError(t, err)

	resp := readResponse(t, out)
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ping", result["echo"])
}

func TestStdioSkipsInvalidJSON(t *testing.T) {
	in, out, transport := startStdio(t, echoHandler())
	defer transport.Close()

	_, err := in.Write([]byte("this is not json\n"))
	require.NoError(t, err)
	_, err = in.Write([]byte(`{"jsonrpc":"2.0","id":2,"method":"ping"}` + "\n"))
	require.NoError(t, err)

	// The bad line is logged and skipped; the transport keeps serving.
	resp := readResponse(t, out)
	require.Nil(t, resp.Error)
}

func TestStdioSuppressesNotificationResponses(t *testing.T) {
	in, out, transport := startStdio(t, echoHandler())
	defer transport.Close()

	_, err := in.Write([]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n"))
	require.NoError(t, err)
	_, err = in.Write([]byte(`{"jsonrpc":"2.0","id":3,"method":"ping"}` + "\n"))
	require.NoError(t, err)

	resp := readResponse(t, out)
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ping", result["echo"], "the first line written must be the ping response, not the notification")
}

func TestStdioStopsOnEOF(t *testing.T) {
	in, _, transport := startStdio(t, echoHandler())

	require.NoError(t, in.Close())
	time.Sleep(100 * time.Millisecond)
	assert.NoError(t, transport.Close())
}

func TestStdioCloseIsIdempotent(t *testing.T) {
	_, _, transport := startStdio(t, echoHandler())

	assert.NoError(t, transport.Close())
	assert.NoError(t, transport.Close())
}

package httpserver_test

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/platform/httpserver"
)

func TestRunShutsDownCleanlyOnCancel(t *testing.T) {
	srv := httpserver.New("127.0.0.1:0", http.NotFoundHandler(),
		httpserver.WithShutdownTimeout(time.Second),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err, "a drained shutdown is not an error")
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRunSurfacesListenFailure(t *testing.T) {
	// Hold the port open so the server cannot bind it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := httpserver.New(ln.Addr().String(), http.NotFoundHandler())

	done := make(chan error, 1)
	go func() { done <- srv.Run(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorContains(t, err, "http server")
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not report the bind failure")
	}
}

//go:build !integration

package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/regioncheck/internal/region"
)

func TestResolvePort_FlagSet(t *testing.T) {
	assert.Equal(t, 9090, resolvePort(9090, 8080))
}

func TestResolvePort_FlagZero(t *testing.T) {
	assert.Equal(t, 8080, resolvePort(0, 8080))
}

func TestResolvePort_BothZero(t *testing.T) {
	assert.Equal(t, 0, resolvePort(0, 0))
}

func TestStartServer_GracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	reg := region.NewRegistry()
	reg.Register(townsDataset(t))
	handler := newTestServer(t, reg, 0).routes()

	// Find a free port.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	errCh := make(chan error, 1)
	go func() {
		errCh <- startServer(ctx, handler, port)
	}()

	// Wait for the server to come up.
	var ready bool
	for range 50 {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
		if err == nil {
			resp.Body.Close()
			ready = true
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.True(t, ready, "server did not become ready in time")

	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}

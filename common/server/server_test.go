package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lyzr/catalog-ingest/common/logger"
)

func TestServer_StopsOnContextCancel(t *testing.T) {
	srv := New("ingest", 0, http.NotFoundHandler(), logger.Discard())
	srv.httpServer.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_ListenError(t *testing.T) {
	srv := New("ingest", 0, http.NotFoundHandler(), logger.Discard())
	srv.httpServer.Addr = "256.0.0.1:1"

	err := srv.Start(context.Background())
	assert.Error(t, err)
}

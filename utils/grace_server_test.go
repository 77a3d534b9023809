package utils

import (
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerDrainsAndRunsHooksOnSignal(t *testing.T) {
	var order []string
	srv := NewServer("127.0.0.1:0", http.NotFoundHandler(), time.Second, time.Second)
	srv.onShutdown = []func(){
		func() { order = append(order, "scheduler") },
		func() { order = append(order, "redis") },
	}

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe() }()
	srv.signalChan <- syscall.SIGTERM

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after SIGTERM")
	}
	assert.Equal(t, []string{"scheduler", "redis"}, order)
}

func TestServerReportsListenError(t *testing.T) {
	srv := NewServer("256.0.0.1:bad", http.NotFoundHandler(), time.Second, time.Second)
	assert.Error(t, srv.ListenAndServe())
}

package main

import (
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestServeReturnsListenerError(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()

	srv := &http.Server{Addr: busy.Addr().String(), Handler: http.NotFoundHandler()}
	done := make(chan error, 1)
	go func() { done <- serve(srv, make(chan os.Signal), zap.NewNop()) }()

	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "server failed") {
			t.Fatalf("expected server failure, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not return after the listener failed")
	}
}

func TestServeShutsDownOnSignal(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	quit := make(chan os.Signal, 1)
	quit <- syscall.SIGTERM

	if err := serve(srv, quit, zap.NewNop()); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}

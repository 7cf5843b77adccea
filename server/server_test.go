package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/keyward/keyward/config"
)

func newTestServer(t *testing.T, handler http.Handler, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Server.Addr = "127.0.0.1:0" // random free port
	cfg.Server.ShutdownGracefulTimeout.Duration = 200 * time.Millisecond
	if mutate != nil {
		mutate(cfg)
	}
	if handler == nil {
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "ok") })
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(config.NewProvider(cfg), handler, logger)
}

func waitReady(t *testing.T, s *Server) string {
	t.Helper()
	select {
	case <-s.Ready():
		return "http://" + s.Addr().String()
	case <-time.After(2 * time.Second):
		t.Fatal("server did not become ready")
		return ""
	}
}

func TestServer_Run_FullLifecycle(t *testing.T) {
	s := newTestServer(t, nil, nil)

	var closed []string
	s.AddCloser(Closer{Name: "events", Close: func() error { closed = append(closed, "events"); return nil }})
	s.AddCloser(Closer{Name: "db", Close: func() error { closed = append(closed, "db"); return nil }})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	base := waitReady(t, s)
	resp, err := http.Get(base + "/")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("expected body ok, got %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}

	if strings.Join(closed, ",") != "events,db" {
		t.Errorf("expected closers in order, got %v", closed)
	}
}

func TestServer_Run_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	s := newTestServer(t, nil, func(cfg *config.Config) { cfg.Server.Addr = ln.Addr().String() })
	var closerRan bool
	s.AddCloser(Closer{Name: "db", Close: func() error { closerRan = true; return nil }})

	if err := s.Run(context.Background()); err == nil {
		t.Fatal("expected listen error for a taken address")
	}
	if !closerRan {
		t.Error("expected closers to run when listen fails")
	}
}

func TestServer_Run_CloserError(t *testing.T) {
	s := newTestServer(t, nil, nil)
	boom := errors.New("boom")
	s.AddCloser(Closer{Name: "events", Close: func() error { return boom }})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	waitReady(t, s)
	cancel()

	if err := <-done; !errors.Is(err, boom) {
		t.Fatalf("expected closer error, got %v", err)
	}
}

func TestServer_MaxConns(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 2)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-release
	})
	s := newTestServer(t, handler, func(cfg *config.Config) { cfg.Server.MaxConns = 1 })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	base := waitReady(t, s)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	for i := 0; i < 2; i++ {
		go func() {
			if resp, err := client.Get(base + "/"); err == nil {
				resp.Body.Close()
			}
		}()
	}

	<-entered
	select {
	case <-entered:
		t.Error("expected the second connection to wait for the first")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Error("expected the second request to be served after the first")
	}

	cancel()
	<-done
}

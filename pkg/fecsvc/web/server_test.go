package web

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/dbehnke/convcode/pkg/fecsvc/config"
	"github.com/dbehnke/convcode/pkg/fecsvc/events"
	"github.com/dbehnke/convcode/pkg/fecsvc/jobrunner"
	"github.com/dbehnke/convcode/pkg/fecsvc/metrics"
	"github.com/dbehnke/convcode/pkg/fecsvc/store"
	"github.com/dbehnke/convcode/pkg/logger"
)

func newTestServer(t *testing.T, port int) (*Server, func()) {
	t.Helper()
	log := logger.New(logger.Config{Level: "error"})
	dbPath := "/tmp/test_web_server.db"
	db, err := store.NewDB(store.Config{Path: dbPath}, log)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	repo := store.NewJobRepository(db.GetDB())
	collector := metrics.NewCollector()
	publisher := events.New(events.Config{Enabled: false}, log)
	runner := jobrunner.NewRunner(repo, collector, publisher, nil, log, 4)

	jobCfg := config.JobConfig{K: 3, Polynomials: []string{"5", "7"}, Tail: true}
	webCfg := config.WebConfig{Enabled: true, Host: "localhost", Port: port}
	hub := NewWebSocketHub(log)
	srv := NewServer(webCfg, log, hub, runner, repo, jobCfg)

	cleanup := func() {
		_ = db.Close()
		_ = os.Remove(dbPath)
	}
	return srv, cleanup
}

func TestServer_New(t *testing.T) {
	srv, cleanup := newTestServer(t, 8080)
	defer cleanup()

	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.config.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", srv.config.Port)
	}
}

func TestServer_StartStop(t *testing.T) {
	srv, cleanup := newTestServer(t, 0)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	err := <-errChan
	if err != nil && err != context.Canceled && err != http.ErrServerClosed {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestServer_HealthEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t, 0)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		if err := srv.Start(ctx); err != nil && err != context.Canceled && err != http.ErrServerClosed {
			t.Logf("srv.Start error: %v", err)
		}
	}()
	time.Sleep(100 * time.Millisecond)

	addr := srv.GetAddr()
	if addr == "" {
		t.Fatal("Server address is empty")
	}

	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatalf("Failed to request health endpoint: %v", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Logf("resp.Body.Close error: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

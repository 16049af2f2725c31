package gallery

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestServerServesGalleryFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>gallery here</html>"), 0o644); err != nil {
		t.Fatalf("failed to seed gallery file: %v", err)
	}

	srv := NewServer(ServeConfig{Addr: "127.0.0.1:0", Dir: dir})
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	resp, err := http.Get("http://" + srv.Addr() + "/index.html")
	if err != nil {
		t.Fatalf("failed to fetch index: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	if !strings.Contains(string(body), "gallery here") {
		t.Errorf("expected gallery content, got %q", body)
	}
}

func TestStartRequiresDirectory(t *testing.T) {
	srv := NewServer(ServeConfig{Addr: "127.0.0.1:0"})
	if err := srv.Start(); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestWatchTriggersRebuild(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")
	if err := os.WriteFile(dbPath, []byte("seed"), 0o644); err != nil {
		t.Fatalf("failed to seed database file: %v", err)
	}

	var rebuilds atomic.Int32
	srv := NewServer(ServeConfig{
		Addr:      "127.0.0.1:0",
		Dir:       dir,
		WatchPath: dbPath,
		Rebuild: func() error {
			rebuilds.Add(1)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- srv.Watch(ctx) }()

	// Let the watcher install before generating events.
	time.Sleep(100 * time.Millisecond)

	// WAL mode writes land in a sibling file, not the database itself.
	if err := os.WriteFile(dbPath+"-wal", []byte("page flush"), 0o644); err != nil {
		t.Fatalf("failed to write wal file: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for rebuilds.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("rebuild was never triggered by a database write")
		case <-time.After(50 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWatchIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")
	if err := os.WriteFile(dbPath, []byte("seed"), 0o644); err != nil {
		t.Fatalf("failed to seed database file: %v", err)
	}

	var rebuilds atomic.Int32
	srv := NewServer(ServeConfig{
		Addr:      "127.0.0.1:0",
		Dir:       dir,
		WatchPath: dbPath,
		Rebuild: func() error {
			rebuilds.Add(1)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- srv.Watch(ctx) }()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("unrelated"), 0o644); err != nil {
		t.Fatalf("failed to write unrelated file: %v", err)
	}

	time.Sleep(rebuildQuiet * 3)
	if got := rebuilds.Load(); got != 0 {
		t.Errorf("expected no rebuilds for unrelated writes, got %d", got)
	}

	cancel()
	<-done
}

func TestWatchWithoutPathBlocksUntilCancel(t *testing.T) {
	srv := NewServer(ServeConfig{Dir: t.TempDir()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Watch(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestDisplayAddr(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"127.0.0.1:8080", "127.0.0.1:8080"},
		{"[::]:8080", "localhost:8080"},
		{"0.0.0.0:9000", "localhost:9000"},
		{"bogus", "bogus"},
	}
	for _, tt := range tests {
		if got := displayAddr(tt.addr); got != tt.want {
			t.Errorf("displayAddr(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

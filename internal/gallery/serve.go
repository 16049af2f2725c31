package gallery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// rebuildQuiet is how long database writes must stay quiet before the
// gallery is re-rendered. SQLite flushes arrive in bursts, one event
// per page, so rebuilding on each would thrash.
const rebuildQuiet = 300 * time.Millisecond

// ServeConfig configures the gallery HTTP server.
type ServeConfig struct {
	Addr        string       // listen address, e.g. ":8080"
	Dir         string       // rendered output directory to serve
	WatchPath   string       // optional database file whose writes trigger Rebuild
	Rebuild     func() error // called after WatchPath changes settle
	OpenBrowser bool         // auto-open the browser once serving
}

// DefaultServeConfig returns the default server configuration.
func DefaultServeConfig() ServeConfig {
	return ServeConfig{
		Addr: ":8080",
	}
}

// Server serves a rendered gallery directory over HTTP and re-renders
// it when the backing run database changes.
type Server struct {
	cfg        ServeConfig
	listener   net.Listener
	httpServer *http.Server
}

// NewServer creates a server for the given configuration.
func NewServer(cfg ServeConfig) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultServeConfig().Addr
	}
	return &Server{cfg: cfg}
}

// Start binds the listen address and begins serving in the background.
func (s *Server) Start() error {
	if s.cfg.Dir == "" {
		return errors.New("no gallery directory to serve")
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:           http.FileServer(http.Dir(s.cfg.Dir)),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("Serving gallery from %s on http://%s", s.cfg.Dir, displayAddr(ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Gallery server error: %v", err)
		}
	}()

	// Open browser after short delay to ensure server is ready
	if s.cfg.OpenBrowser {
		url := "http://" + displayAddr(ln.Addr().String()) + "/"
		go func() {
			time.Sleep(500 * time.Millisecond)
			if err := openBrowserURL(url); err != nil {
				log.Printf("Failed to open browser: %v", err)
			}
		}()
	}

	return nil
}

// Addr reports the bound listen address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Watch blocks until ctx is canceled, re-rendering the gallery when
// the watched database changes. SQLite in WAL mode writes through
// sibling -wal and -shm files, so the parent directory is watched and
// events are matched against the database path prefix.
func (s *Server) Watch(ctx context.Context) error {
	if s.cfg.WatchPath == "" || s.cfg.Rebuild == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watchDir := filepath.Dir(s.cfg.WatchPath)
	if err := watcher.Add(watchDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", watchDir, err)
	}

	debounce := time.NewTimer(time.Hour)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	prefix := filepath.Clean(s.cfg.WatchPath)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-watcher.Events:
			if event.Op&fsnotify.Write != fsnotify.Write && event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			if !strings.HasPrefix(filepath.Clean(event.Name), prefix) {
				continue
			}
			debounce.Reset(rebuildQuiet)
		case err := <-watcher.Errors:
			log.Printf("File watcher error: %v", err)
		case <-debounce.C:
			if err := s.cfg.Rebuild(); err != nil {
				log.Printf("Gallery rebuild failed: %v", err)
			} else {
				log.Printf("Gallery rebuilt after database change")
			}
		}
	}
}

// Shutdown stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// displayAddr rewrites a wildcard listen address into one a browser
// can reach.
func displayAddr(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" || host == "::" || host == "0.0.0.0" {
		return "localhost:" + port
	}
	return net.JoinHostPort(host, port)
}

// openBrowserURL launches the platform browser with the given URL.
func openBrowserURL(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

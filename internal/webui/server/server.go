package server

import (
	"context"
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"termhost/internal/host"
	"termhost/internal/system"
	webembed "termhost/internal/webui/embed"
)

// Server is the web host: a REST API over the bridge, a WebSocket endpoint
// that turns browser tabs into windows, and the embedded page.
type Server struct {
	Addr   string
	Bridge *host.Bridge
}

// Handler builds the gin engine.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	mountAPIGin(r, s.Bridge)
	mountEmbeddedUIGin(r)
	return r
}

// Start serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.Addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	system.Logger.Info("webui server listening", "addr", s.Addr)
	return srv.ListenAndServe()
}

// OpenBrowser tries to open a URL in the system browser.
func OpenBrowser(url string) error {
	var cmd string
	var args []string
	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "windows":
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", url}
	default:
		cmd = "xdg-open"
		args = []string{url}
	}
	return exec.Command(cmd, args...).Start()
}

// mountEmbeddedUIGin serves the embedded page at all non-/api GET routes with index fallback.
func mountEmbeddedUIGin(r *gin.Engine) {
	dist, err := fs.Sub(webembed.DistFS, "dist")
	if err != nil {
		r.NoRoute(func(c *gin.Context) {
			if isAPI(c.Request.URL.Path) {
				c.Status(http.StatusNotFound)
				return
			}
			c.String(http.StatusNotFound, "webui assets not found.")
		})
		return
	}
	httpFS := http.FS(dist)
	r.NoRoute(func(c *gin.Context) {
		// Do not hijack API routes
		if isAPI(c.Request.URL.Path) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Status(http.StatusNotFound)
			return
		}
		p := strings.TrimPrefix(c.Request.URL.Path, "/")
		if p != "" && p != "index.html" {
			if f, err := httpFS.Open(p); err == nil {
				_ = f.Close()
				if ct := mime.TypeByExtension(filepath.Ext(p)); ct != "" {
					c.Header("Content-Type", ct)
				}
				c.FileFromFS(p, httpFS)
				return
			}
		}
		// index.html is written directly; http.FileServer would redirect it to "./"
		b, err := fs.ReadFile(dist, "index.html")
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				c.String(http.StatusNotFound, "index.html not found in embedded dist.")
				return
			}
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", b)
	})
}

func isAPI(path string) bool {
	return strings.HasPrefix(path, "/api/") || path == "/api"
}

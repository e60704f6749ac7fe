package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"termhost/internal/engine"
	"termhost/internal/gfx"
	"termhost/internal/host"
	"termhost/internal/surface"
	appver "termhost/internal/version"
)

func mountAPIGin(r *gin.Engine, b *host.Bridge) {
	h := &api{b: b}
	g := r.Group("/api")
	g.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	g.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": appver.AppVersion})
	})

	// Sessions
	g.POST("/sessions", h.createSession)
	g.DELETE("/sessions/:id", h.destroySession)
	g.POST("/sessions/:id/run", h.runSession)
	g.POST("/sessions/:id/input", h.send)
	g.POST("/sessions/:id/scroll", h.scroll)
	g.POST("/sessions/:id/foreground", h.foreground)
	g.POST("/sessions/:id/background", h.background)

	// Surfaces
	g.POST("/surfaces", h.createSurface)
	g.DELETE("/surfaces/:id", h.destroySurface)
	g.POST("/surfaces/:id/resize", h.resizeSurface)

	// Clipboard mailbox
	// both consume mailbox entries
	g.POST("/clipboard/copy", h.checkCopy)
	g.POST("/clipboard/paste/check", h.checkPaste)
	g.POST("/clipboard/paste", h.pushPaste)

	// Windows (WebSocket)
	g.GET("/windows/ws", h.windowWS)
}

type api struct {
	b *host.Bridge
}

func errJSON(err error) gin.H { return gin.H{"error": err.Error()} }

// statusFor maps core errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownSession):
		return http.StatusNotFound
	case errors.Is(err, surface.ErrDuplicate), errors.Is(err, engine.ErrAlreadyStarted):
		return http.StatusConflict
	case errors.Is(err, host.ErrInvalidArgument), errors.Is(err, surface.ErrInvalidSize),
		errors.Is(err, surface.ErrWindow), errors.Is(err, engine.ErrNotStarted):
		return http.StatusBadRequest
	case errors.Is(err, gfx.ErrNoDisplay), errors.Is(err, gfx.ErrNoConfig):
		return http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrExited):
		return http.StatusGone
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), errJSON(err))
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errJSON(host.ErrInvalidArgument))
		return 0, false
	}
	return id, true
}

func (h *api) createSession(c *gin.Context) {
	c.JSON(http.StatusCreated, gin.H{"id": h.b.CreateSession()})
}

func (h *api) destroySession(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.b.DestroySession(id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *api) runSession(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.b.RunSession(id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type inputReq struct {
	Data string `json:"data"`
}

func (h *api) send(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req inputReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errJSON(err))
		return
	}
	if err := h.b.Send(id, []byte(req.Data)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type scrollReq struct {
	Offset float64 `json:"offset"`
}

func (h *api) scroll(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req scrollReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errJSON(err))
		return
	}
	if err := h.b.Scroll(id, req.Offset); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *api) foreground(c *gin.Context) { h.visibility(c, h.b.OnForeground) }
func (h *api) background(c *gin.Context) { h.visibility(c, h.b.OnBackground) }

func (h *api) visibility(c *gin.Context, fn func(int64) error) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := fn(id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type surfaceReq struct {
	Session *int64  `json:"session" binding:"required"`
	Surface *int64  `json:"surface" binding:"required"`
	Window  *uint64 `json:"window" binding:"required"`
}

func (h *api) createSurface(c *gin.Context) {
	var req surfaceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errJSON(err))
		return
	}
	if err := h.b.CreateSurface(*req.Session, *req.Surface, *req.Window); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"surface": *req.Surface})
}

func (h *api) destroySurface(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	h.b.DestroySurface(id)
	c.Status(http.StatusNoContent)
}

type resizeReq struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// resizeSurface resizes the session rendered by surface :id.
func (h *api) resizeSurface(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req resizeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errJSON(err))
		return
	}
	st, live := h.b.Surfaces.Get(id)
	if !live {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown surface"})
		return
	}
	if err := h.b.ResizeSurface(st.SessionID(), req.Width, req.Height); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *api) checkCopy(c *gin.Context) {
	text, ok := h.b.CheckCopy()
	c.JSON(http.StatusOK, gin.H{"ok": ok, "text": text})
}

func (h *api) checkPaste(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pending": h.b.CheckPaste()})
}

type pasteReq struct {
	Text string `json:"text"`
}

func (h *api) pushPaste(c *gin.Context) {
	var req pasteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errJSON(err))
		return
	}
	if err := h.b.PushPaste(req.Text); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

package status

import (
	"log/slog"
	"net/http"
	"time"

	"bridgelink/internal/bridge"
	"bridgelink/internal/remote"
	"bridgelink/pkg/document"

	"github.com/gin-gonic/gin"
)

// Monitor is the read side of the connection manager.
type Monitor interface {
	Status() []remote.ChannelStatus
	Stats() remote.Stats
}

type Handler struct {
	monitor Monitor
	pusher  bridge.Pusher
	bridge  StateSource
	store   *SnapshotStore
	logger  *slog.Logger
}

// NewHandler wires the API. bridge and store may be nil.
func NewHandler(monitor Monitor, pusher bridge.Pusher, source StateSource, store *SnapshotStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		monitor: monitor,
		pusher:  pusher,
		bridge:  source,
		store:   store,
		logger:  logger,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Status reports both channels, the counters, the live bridge state and the
// cached last push.
func (h *Handler) Status(c *gin.Context) {
	resp := gin.H{
		"channels": h.monitor.Status(),
		"stats":    h.monitor.Stats(),
	}
	if h.bridge != nil {
		resp["bridge"] = h.bridge.State()
	}

	last, err := h.store.LastPush(c.Request.Context())
	if err != nil {
		h.logger.Warn("failed_to_read_push_snapshot", "error", err.Error())
	}
	if last != nil {
		resp["last_push"] = last
	}

	c.JSON(http.StatusOK, resp)
}

// Push forwards a JSON object to the push client.
func (h *Handler) Push(c *gin.Context) {
	doc := document.New()
	if err := c.ShouldBindJSON(doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if doc.Len() == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document must not be empty"})
		return
	}

	if !h.pusher.Push(doc) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"delivered": false,
			"error":     "no push client or push buffer full",
		})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"delivered": true})
}

// NewRouter builds the gin engine for h.
func NewRouter(h *Handler, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))

	r.GET("/healthz", h.Health)
	r.GET("/status", h.Status)
	r.POST("/push", h.Push)
	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http_request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

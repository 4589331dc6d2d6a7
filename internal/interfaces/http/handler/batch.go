package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	app "github.com/erp/labelstation/internal/application/labeling"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultSSEHeartbeat = 15 * time.Second

// SSEMessage is one server-sent event
type SSEMessage struct {
	Event string
	Data  string
	ID    string
}

// BatchHandler starts print batches and streams their progress
type BatchHandler struct {
	BaseHandler
	batches   *app.BatchService
	heartbeat time.Duration
	logger    *zap.Logger
}

// BatchHandlerOption is a functional option for configuring the handler
type BatchHandlerOption func(*BatchHandler)

// WithSSEHeartbeat sets the interval of keep-alive comments on event streams
func WithSSEHeartbeat(interval time.Duration) BatchHandlerOption {
	return func(h *BatchHandler) {
		if interval > 0 {
			h.heartbeat = interval
		}
	}
}

// WithBatchLogger sets the logger for the handler
func WithBatchLogger(logger *zap.Logger) BatchHandlerOption {
	return func(h *BatchHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewBatchHandler creates a new BatchHandler
func NewBatchHandler(batches *app.BatchService, opts ...BatchHandlerOption) *BatchHandler {
	h := &BatchHandler{
		batches:   batches,
		heartbeat: defaultSSEHeartbeat,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Submit godoc
// @Summary      Start printing a batch of tags
// @Description  The batch runs in the background; follow it on /batches/{id}/events
// @Tags         batches
// @Accept       json
// @Produce      json
// @Param        request body app.PrintRequest true "Batch"
// @Success      202 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Router       /batches [post]
func (h *BatchHandler) Submit(c *gin.Context) {
	var req app.PrintRequest
	if !h.bindJSON(c, &req) {
		return
	}

	snapshot, err := h.batches.Submit(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Location", "/api/v1/batches/"+snapshot.ID.String())
	h.Accepted(c, snapshot)
}

// Get godoc
// @Summary      Get a batch
// @Tags         batches
// @Produce      json
// @Param        id path string true "Batch ID"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /batches/{id} [get]
func (h *BatchHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	snapshot, err := h.batches.Get(id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, snapshot)
}

// Events godoc
// @Summary      Stream a batch's progress
// @Description  Server-sent events named started, tag_done and finished. The
// @Description  event id is the message index; send Last-Event-ID to resume.
// @Tags         batches
// @Produce      text/event-stream
// @Param        id path string true "Batch ID"
// @Success      200
// @Failure      404 {object} dto.Response
// @Router       /batches/{id}/events [get]
func (h *BatchHandler) Events(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	if _, err := h.batches.Get(id); err != nil {
		h.HandleError(c, err)
		return
	}

	cursor := resumeCursor(c)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	reqCtx := c.Request.Context()
	for {
		waitCtx, cancel := context.WithTimeout(reqCtx, h.heartbeat)
		events, done, err := h.batches.Watch(waitCtx, id, cursor)
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && reqCtx.Err() == nil {
				fmt.Fprint(c.Writer, ": heartbeat\n\n")
				c.Writer.Flush()
				continue
			}
			if reqCtx.Err() == nil {
				h.logger.Warn("batch event stream ended", zap.String("batch_id", id.String()), zap.Error(err))
			}
			return
		}

		for _, p := range events {
			data, err := json.Marshal(p)
			if err != nil {
				h.logger.Error("failed to encode batch progress", zap.Error(err))
				return
			}
			h.sendEvent(c.Writer, SSEMessage{
				Event: string(p.Kind),
				ID:    strconv.Itoa(cursor),
				Data:  string(data),
			})
			cursor++
		}
		c.Writer.Flush()

		if done {
			return
		}
	}
}

// resumeCursor returns the index of the first message the client has not
// seen, from Last-Event-ID or the cursor query parameter
func resumeCursor(c *gin.Context) int {
	if last := c.GetHeader("Last-Event-ID"); last != "" {
		if n, err := strconv.Atoi(last); err == nil && n >= 0 {
			return n + 1
		}
	}
	if n, err := strconv.Atoi(c.Query("cursor")); err == nil && n >= 0 {
		return n
	}
	return 0
}

func (h *BatchHandler) sendEvent(w io.Writer, msg SSEMessage) {
	if msg.Event != "" {
		fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	if msg.ID != "" {
		fmt.Fprintf(w, "id: %s\n", msg.ID)
	}
	fmt.Fprintf(w, "data: %s\n\n", msg.Data)
}

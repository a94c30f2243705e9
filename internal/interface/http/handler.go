package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/0xTanzim/contentchat/internal/domain/chat"
	"github.com/0xTanzim/contentchat/internal/domain/engine"
	"github.com/0xTanzim/contentchat/internal/domain/history"
	"github.com/0xTanzim/contentchat/internal/domain/summarize"
)

// Handler wires the HTTP transport to domain services.
type Handler struct {
	summarySvc summarize.Service
	chatCtrl   *chat.Controller
	historySvc *history.Service
	engine     engine.Engine
	logger     *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(summarySvc summarize.Service, chatCtrl *chat.Controller, historySvc *history.Service, eng engine.Engine, logger *slog.Logger) *Handler {
	return &Handler{
		summarySvc: summarySvc,
		chatCtrl:   chatCtrl,
		historySvc: historySvc,
		engine:     eng,
		logger:     logger.With("component", "http.handler"),
	}
}

type summarizeRequest struct {
	Text       string `json:"text"`
	Prompt     string `json:"prompt,omitempty"`
	BudgetHint int    `json:"budgetHint,omitempty"`
	Save       bool   `json:"save,omitempty"`
	Title      string `json:"title,omitempty"`
}

type chatRequest struct {
	Input   string      `json:"input"`
	History []chat.Turn `json:"history,omitempty"`
	Save    bool        `json:"save,omitempty"`
}

// Summarize handles the sync summarization endpoint.
func (h *Handler) Summarize(c *gin.Context) {
	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.summarySvc.Summarize(c.Request.Context(), summarize.Request{
		Text:       req.Text,
		Prompt:     req.Prompt,
		BudgetHint: req.BudgetHint,
	})
	if err != nil {
		abortWithError(c, toHTTPError(err))
		return
	}

	if req.Save {
		record, saveErr := h.historySvc.SaveSummary(c.Request.Context(), req.Title, req.Text, resp.Summary)
		if saveErr != nil {
			h.logger.Warn("summary save failed", "error", saveErr)
		} else {
			c.JSON(http.StatusOK, gin.H{"result": resp, "recordId": record.ID})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"result": resp})
}

// SummarizeStream runs the pipeline while pushing progress over Server-Sent
// Events, then a final summary event. Errors after the stream opens are
// reported as an in-band error event since the status line is already gone.
func (h *Handler) SummarizeStream(c *gin.Context) {
	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "stream_unsupported", "streaming not supported", nil))
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	progress := func(current, total int, stage string) {
		h.writeEvent(c, flusher, gin.H{
			"type":    "progress",
			"stage":   stage,
			"current": current,
			"total":   total,
		})
	}

	resp, err := h.summarySvc.SummarizeWithProgress(c.Request.Context(), summarize.Request{
		Text:       req.Text,
		Prompt:     req.Prompt,
		BudgetHint: req.BudgetHint,
	}, progress)
	if err != nil {
		httpErr := toHTTPError(err)
		h.writeEvent(c, flusher, gin.H{
			"type":    "error",
			"code":    httpErr.Code,
			"message": httpErr.Message,
		})
		return
	}

	payload := gin.H{"type": "summary", "result": resp}
	if req.Save {
		record, saveErr := h.historySvc.SaveSummary(c.Request.Context(), req.Title, req.Text, resp.Summary)
		if saveErr != nil {
			h.logger.Warn("summary save failed", "error", saveErr)
		} else {
			payload["recordId"] = record.ID
		}
	}
	h.writeEvent(c, flusher, payload)
}

// Chat streams one assistant reply over Server-Sent Events. Each delta event
// carries only the newly generated suffix; the final done event carries the
// whole reply and whether the user stopped it early.
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "stream_unsupported", "streaming not supported", nil))
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	sent := 0
	onDelta := func(accumulated string) {
		if len(accumulated) <= sent {
			return
		}
		delta := accumulated[sent:]
		sent = len(accumulated)
		h.writeEvent(c, flusher, gin.H{"type": "delta", "content": delta})
	}

	result, err := h.chatCtrl.Send(c.Request.Context(), req.Input, req.History, onDelta)
	if err != nil {
		httpErr := toHTTPError(err)
		h.writeEvent(c, flusher, gin.H{
			"type":    "error",
			"code":    httpErr.Code,
			"message": httpErr.Message,
		})
		return
	}

	payload := gin.H{"type": "done", "output": result.Output, "stopped": result.Stopped}
	if req.Save {
		record, saveErr := h.historySvc.SaveChat(c.Request.Context(), req.Input, result.Output, result.Stopped)
		if saveErr != nil {
			h.logger.Warn("chat save failed", "error", saveErr)
		} else {
			payload["recordId"] = record.ID
		}
	}
	h.writeEvent(c, flusher, payload)
}

// ChatStop requests cooperative termination of the active generation. It is a
// no-op when nothing is generating.
func (h *Handler) ChatStop(c *gin.Context) {
	h.chatCtrl.Stop()
	c.JSON(http.StatusOK, gin.H{"state": h.chatCtrl.State()})
}

// EngineCapability probes engine availability for a requested kind.
func (h *Handler) EngineCapability(c *gin.Context) {
	kind := engine.Kind(c.DefaultQuery("kind", string(engine.KindSummarizer)))
	if kind != engine.KindSummarizer && kind != engine.KindChat {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "unknown engine kind", nil))
		return
	}
	capability, err := h.engine.CheckCapability(c.Request.Context(), kind)
	if err != nil {
		abortWithError(c, toHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, capability)
}

// ListHistory returns recent saved records, newest first.
func (h *Handler) ListHistory(c *gin.Context) {
	kind := history.Kind(c.Query("kind"))
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "limit must be an integer", err))
			return
		}
		limit = parsed
	}
	records, err := h.historySvc.List(c.Request.Context(), kind, limit)
	if err != nil {
		abortWithError(c, toHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// GetHistory returns one saved record.
func (h *Handler) GetHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "invalid record id", err))
		return
	}
	record, ok, err := h.historySvc.Get(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, toHTTPError(err))
		return
	}
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusNotFound, "not_found", "record does not exist", nil))
		return
	}
	c.JSON(http.StatusOK, record)
}

// GetHistorySource returns the archived full source text for a summary record.
func (h *Handler) GetHistorySource(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "invalid record id", err))
		return
	}
	source, err := h.historySvc.SourceText(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, toHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"source": source})
}

// DeleteHistory removes a saved record and its archived source.
func (h *Handler) DeleteHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "invalid record id", err))
		return
	}
	if err := h.historySvc.Delete(c.Request.Context(), id); err != nil {
		abortWithError(c, toHTTPError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) writeEvent(c *gin.Context, flusher http.Flusher, payload gin.H) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshal event failed", "error", err)
		return
	}
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(data)
	c.Writer.Write([]byte("\n\n"))
	flusher.Flush()
}

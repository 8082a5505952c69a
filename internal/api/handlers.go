package api

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"newsbot/internal/logger"
	"newsbot/internal/models"
	"newsbot/internal/service/assistant"
	"newsbot/internal/speech"
	"newsbot/internal/worker"
)

const (
	noInputMessage = "⚠️ No input received. Please enter a question."
	busyMessage    = "⚠️ Server is busy, please retry."
)

//go:embed web
var webFS embed.FS

// Assistant answers questions and exposes the optional exchange history.
type Assistant interface {
	GetFinalAnswer(ctx context.Context, query string) (string, error)
	HistoryEnabled() bool
	ListExchanges(ctx context.Context, limit int) ([]models.Exchange, error)
}

// Transcriber records one utterance and returns its text.
type Transcriber interface {
	Capture(ctx context.Context) (string, error)
}

// Runner executes a job on a worker pool.
type Runner interface {
	Do(ctx context.Context, fn func(context.Context) (string, error)) (string, error)
}

// Handler wires HTTP routes to the assistant and the speech service.
type Handler struct {
	assistant Assistant
	voice     Transcriber
	askPool   Runner
	voicePool Runner
	log       *zap.Logger
}

// NewHandler constructs a Handler instance.
func NewHandler(asst Assistant, voice Transcriber, askPool, voicePool Runner) *Handler {
	return &Handler{
		assistant: asst,
		voice:     voice,
		askPool:   askPool,
		voicePool: voicePool,
		log:       logger.Named("api"),
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	static, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}
	router.GET("/", h.home)
	router.StaticFS("/static", http.FS(static))
	router.GET("/healthz", h.health)
	router.POST("/ask", h.ask)
	router.POST("/voice", h.captureVoice)
	if h.assistant.HistoryEnabled() {
		router.GET("/history", h.history)
	}
}

func (h *Handler) home(c *gin.Context) {
	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		c.String(http.StatusInternalServerError, "home page missing")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type askRequest struct {
	Message string `json:"message"`
}

func (h *Handler) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"response": noInputMessage})
		return
	}
	query := strings.TrimSpace(req.Message)
	if query == "" {
		c.JSON(http.StatusOK, gin.H{"response": noInputMessage})
		return
	}

	answer, err := h.askPool.Do(c.Request.Context(), func(ctx context.Context) (string, error) {
		return h.assistant.GetFinalAnswer(ctx, query)
	})
	if err != nil {
		h.log.Warn("ask failed", zap.String("query", query), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"response": askReply(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": answer})
}

func askReply(err error) string {
	if isBusy(err) {
		return busyMessage
	}
	return assistant.ReplyFor(err)
}

func (h *Handler) captureVoice(c *gin.Context) {
	text, err := h.voicePool.Do(c.Request.Context(), h.voice.Capture)
	if err != nil {
		h.log.Warn("voice capture failed", zap.Error(err))
		msg := speech.MessageFor(err)
		if isBusy(err) {
			msg = busyMessage
		}
		c.JSON(http.StatusOK, gin.H{"message": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": text})
}

func (h *Handler) history(c *gin.Context) {
	limit := assistant.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	exchanges, err := h.assistant.ListExchanges(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("list history failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": exchanges})
}

func isBusy(err error) bool {
	return errors.Is(err, worker.ErrDispatcherBusy) || errors.Is(err, worker.ErrPoolStopped)
}

package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cp25sy5-modjot/pii-redact-service/internal/domain"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Service interface {
	Chat(ctx context.Context, message string) (string, error)
	Detect(ctx context.Context, data []byte) (*domain.DetectResult, error)
	RedactAndAnnotate(ctx context.Context, req usecase.RedactRequest) (*domain.RedactResult, error)
}

type Handler struct {
	svc    Service
	logger zerolog.Logger
}

func NewHandler(svc Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Chat(c *gin.Context) {
	message := c.PostForm("message")
	if message == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	reply, err := h.svc.Chat(c.Request.Context(), message)
	if err != nil {
		if domain.CodeOf(err) == domain.ErrorMissingInput {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		h.fail(c, "chat", fmt.Sprintf("Chat failed: %v", err), err)
		return
	}

	c.JSON(http.StatusOK, chatResponse{Reply: reply})
}

func (h *Handler) Detect(c *gin.Context) {
	data, ok := h.readUpload(c)
	if !ok {
		return
	}

	res, err := h.svc.Detect(c.Request.Context(), data)
	if err != nil {
		h.fail(c, "detect", fmt.Sprintf("PII detection failed: %v", err), err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *Handler) RedactAndChat(c *gin.Context) {
	data, ok := h.readUpload(c)
	if !ok {
		return
	}

	req := usecase.RedactRequest{
		Image:  data,
		Prompt: c.PostForm("message"),
	}
	sel, err := domain.ParseSelection(c.PostForm("selected_ids"))
	if err != nil {
		h.logger.Warn().
			Str("request_id", c.GetString("request_id")).
			Err(err).
			Msg("ignoring malformed selected_ids")
		req.SelectionWarning = err.Error()
	}
	req.Selection = sel

	res, err := h.svc.RedactAndAnnotate(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "redact_and_chat", fmt.Sprintf("Redaction or AI call failed: %v", err), err)
		return
	}

	c.JSON(http.StatusOK, redactResponse{
		Reply:               res.Reply,
		RedactedImageBase64: res.ImageBase64,
		SelectionWarning:    res.SelectionWarning,
	})
}

// readUpload writes the error response itself and reports false when there is no usable file.
func (h *Handler) readUpload(c *gin.Context) ([]byte, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, errorResponse{
				Error: fmt.Sprintf("file exceeds %d bytes", tooLarge.Limit),
			})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, errorResponse{Error: "file is required"})
		return nil, false
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "file is required"})
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil || len(data) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "file is required"})
		return nil, false
	}
	return data, true
}

func (h *Handler) fail(c *gin.Context, op, msg string, err error) {
	h.logger.Error().
		Str("request_id", c.GetString("request_id")).
		Str("op", op).
		Str("code", string(domain.CodeOf(err))).
		Err(err).
		Msg("request failed")
	c.JSON(http.StatusInternalServerError, errorResponse{Error: msg})
}

package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "faq-assistant/errors"
	"faq-assistant/resolver"
	"faq-assistant/web/format"
	"faq-assistant/web/middleware"
	"faq-assistant/web/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxQueryLength bounds the query text accepted over HTTP, in bytes.
const maxQueryLength = 4096

// Resolver is the part of *resolver.Resolver the handlers use.
type Resolver interface {
	ResolveDetailed(ctx context.Context, query string, useSemantic bool) resolver.Resolution
}

type AskHandler struct {
	resolver    Resolver
	useSemantic bool
	logger      *zap.Logger
}

func NewAskHandler(r Resolver, useSemantic bool, logger *zap.Logger) *AskHandler {
	return &AskHandler{resolver: r, useSemantic: useSemantic, logger: logger}
}

// Ask answers POST /ask. Every resolved query gets 200 with the same response
// shape, including the no-information and LLM failure answers.
func (h *AskHandler) Ask(c *gin.Context) {
	logger := middleware.Logger(c, h.logger)

	var req types.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, io.EOF) {
			respondWithClientError(c, http.StatusBadRequest, "request body is required")
			return
		}
		respondWithClientError(c, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if msg := validateAsk(&req); msg != "" {
		logger.Debug("Rejected ask request", zap.Error(apperrors.WrapError(apperrors.ErrInvalidInput, msg)))
		respondWithClientError(c, http.StatusBadRequest, msg)
		return
	}

	useSemantic := h.useSemantic
	if req.UseSemantic != nil {
		useSemantic = *req.UseSemantic
	}

	res := h.resolver.ResolveDetailed(c.Request.Context(), req.Query, useSemantic)
	logger.Info("Query resolved",
		zap.String("stage", string(res.Stage)),
		zap.Bool("semantic", res.Semantic),
		zap.Int("reliable", len(res.Reliable)),
		zap.Int("additional", len(res.Additional)),
		zap.Int("hints", len(res.Hints)))

	resp := types.AskResponse{Answer: res.Answer, Stage: string(res.Stage)}
	if req.Format == "html" {
		resp.HTML = format.ToHTML(res.Answer)
	}
	c.JSON(http.StatusOK, resp)
}

// validateAsk returns a message for the client, or "" when req is valid.
func validateAsk(req *types.AskRequest) string {
	if strings.TrimSpace(req.Query) == "" {
		return "query must not be empty"
	}
	if len(req.Query) > maxQueryLength {
		return "query is too long"
	}
	switch req.Format {
	case "", "text", "html":
		return ""
	}
	return fmt.Sprintf("unknown format %q", req.Format)
}

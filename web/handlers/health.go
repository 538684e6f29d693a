package handlers

import (
	"net/http"

	apperrors "faq-assistant/errors"
	"faq-assistant/faq"
	"faq-assistant/web/middleware"
	"faq-assistant/web/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type HealthHandler struct {
	store             *faq.Store
	corpusSize        int
	semanticAvailable bool
	logger            *zap.Logger
}

func NewHealthHandler(store *faq.Store, corpusSize int, semanticAvailable bool, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{store: store, corpusSize: corpusSize, semanticAvailable: semanticAvailable, logger: logger}
}

// Health reports what was loaded at startup. The service is "degraded" when
// the knowledge base is empty or semantic search is unavailable.
func (h *HealthHandler) Health(c *gin.Context) {
	if h.store == nil {
		respondWithError(c, http.StatusServiceUnavailable, apperrors.ErrServiceUnavailable,
			"knowledge base is not loaded", middleware.Logger(c, h.logger))
		return
	}

	resp := types.HealthResponse{
		Status:            "ok",
		Entries:           h.store.Len(),
		CorpusSize:        h.corpusSize,
		SemanticAvailable: h.semanticAvailable,
	}
	for _, src := range h.store.Sources() {
		resp.Sources = append(resp.Sources, types.SourceStatus{
			Path:    src.Path,
			Status:  string(src.Status),
			Entries: src.Entries,
			Skipped: src.Skipped,
			Error:   src.Error,
		})
	}
	if resp.Entries == 0 || !resp.SemanticAvailable {
		resp.Status = "degraded"
	}
	c.JSON(http.StatusOK, resp)
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwaygroup/voc-backend/internal/http/response"
	"github.com/jwaygroup/voc-backend/internal/pkg/logger"
	"github.com/jwaygroup/voc-backend/internal/services"
)

type IdeaHandler struct {
	log         *logger.Logger
	ideaService services.IdeaService
}

func NewIdeaHandler(log *logger.Logger, ideaService services.IdeaService) *IdeaHandler {
	return &IdeaHandler{
		log:         log.With("handler", "IdeaHandler"),
		ideaService: ideaService,
	}
}

// Latest serves GET /ideas/latest: up to five group representatives,
// newest-first.
func (h *IdeaHandler) Latest(c *gin.Context) {
	ideas, err := h.ideaService.Latest(c.Request.Context())
	if err != nil {
		h.log.Error("Latest ideas query failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "Failed to fetch ideas", err)
		return
	}
	response.RespondOK(c, ideas)
}

type relatedRequest struct {
	HasParent *int64 `json:"hasParent"`
}

// Related serves POST /ideas/related: the full history of one group. A
// missing key is rejected before the store is touched.
func (h *IdeaHandler) Related(c *gin.Context) {
	var req relatedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ideas, err := h.ideaService.Related(c.Request.Context(), req.HasParent)
	if err != nil {
		if errors.Is(err, services.ErrMissingGroupKey) {
			response.RespondError(c, http.StatusBadRequest, "has_parent value is required", nil)
			return
		}
		h.log.Error("Related ideas query failed", "error", err, "has_parent", req.HasParent)
		response.RespondError(c, http.StatusInternalServerError, "Failed to fetch related ideas", err)
		return
	}
	response.RespondOK(c, ideas)
}

// List serves GET /ideas?page&pageSize&search: the paginated grouped listing.
func (h *IdeaHandler) List(c *gin.Context) {
	page := parseIntDefault(c.Query("page"), 1)
	pageSize := parseIntDefault(c.Query("pageSize"), 10)
	search := c.Query("search")

	result, err := h.ideaService.Search(c.Request.Context(), page, pageSize, search)
	if err != nil {
		h.log.Error("Ideas search failed", "error", err, "search", search, "page", page)
		response.RespondError(c, http.StatusInternalServerError, "Failed to fetch ideas", err)
		return
	}
	response.RespondOK(c, result)
}

func parseIntDefault(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwaygroup/voc-backend/internal/db"
	"github.com/jwaygroup/voc-backend/internal/pkg/logger"
)

// DiagnosticsHandler exposes the database connectivity probe. The probe
// result never carries credentials; the DSN is masked inside the db package.
type DiagnosticsHandler struct {
	log      *logger.Logger
	postgres *db.PostgresService
}

func NewDiagnosticsHandler(log *logger.Logger, postgres *db.PostgresService) *DiagnosticsHandler {
	return &DiagnosticsHandler{
		log:      log.With("handler", "DiagnosticsHandler"),
		postgres: postgres,
	}
}

func (h *DiagnosticsHandler) TestDB(c *gin.Context) {
	res := h.postgres.Probe(c.Request.Context())
	status := http.StatusOK
	if !res.Success {
		status = http.StatusInternalServerError
	}
	c.JSON(status, res)
}

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/contentforge/taskengine/internal/admin"
)

// CircuitHandler serves the §4.5 circuit breaker inspection/reset surface.
type CircuitHandler struct {
	admin *admin.Service
}

func NewCircuitHandler(adminSvc *admin.Service) *CircuitHandler {
	return &CircuitHandler{admin: adminSvc}
}

// GET /health/circuits
func (h *CircuitHandler) ListCircuits(c *gin.Context) {
	RespondOK(c, gin.H{"circuits": h.admin.ListBreakers()})
}

// GET /health/circuits/:name
func (h *CircuitHandler) GetCircuit(c *gin.Context) {
	status, err := h.admin.GetBreaker(c.Param("name"))
	if err != nil {
		RespondError(c, http.StatusNotFound, "unknown_breaker", err)
		return
	}
	RespondOK(c, status)
}

// POST /health/circuits/:name/reset
func (h *CircuitHandler) ResetCircuit(c *gin.Context) {
	if err := h.admin.ResetBreaker(c.Param("name")); err != nil {
		RespondError(c, http.StatusNotFound, "unknown_breaker", err)
		return
	}
	c.Status(http.StatusNoContent)
}

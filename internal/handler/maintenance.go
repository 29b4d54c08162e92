package handler

import (
	"context"
	"net/http"

	"rentalcash/internal/dto"
	"rentalcash/internal/middleware"
	"rentalcash/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RepairQueue hands orphan repair runs to the background workers and reports
// the runs that ended in the dead letter queue. uuid.Nil as store means every
// store.
type RepairQueue interface {
	EnqueueOrphanRepair(ctx context.Context, storeID, userID uuid.UUID) error
	DeadLetters(ctx context.Context, limit int64) (*dto.DeadLetterResponse, error)
}

type MaintenanceHandler struct {
	svc   service.RepairService
	queue RepairQueue
}

// NewMaintenanceHandler accepts a nil queue; ?async=true then runs inline.
func NewMaintenanceHandler(svc service.RepairService, queue RepairQueue) *MaintenanceHandler {
	return &MaintenanceHandler{svc: svc, queue: queue}
}

// Orphans godoc
// @Summary      Detectar inconsistencias alquiler / caja
// @Tags         maintenance
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.OrphanListResponse
// @Router       /v1/maintenance/orphans [get]
func (h *MaintenanceHandler) Orphans(c *gin.Context) {
	orphans, err := h.svc.FindOrphans(c.Request.Context(), middleware.GetScope(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if orphans == nil {
		orphans = []dto.Orphan{}
	}
	c.JSON(http.StatusOK, dto.OrphanListResponse{Data: orphans, Total: len(orphans)})
}

// Repair godoc
// @Summary      Reparar movimientos faltantes
// @Description  Registra los movimientos faltantes en la sesión activa. Con ?async=true la ejecución se encola.
// @Tags         maintenance
// @Produce      json
// @Security     BearerAuth
// @Param        async  query     bool  false  "Encolar la ejecución"
// @Success      200    {object}  dto.RepairResult
// @Success      202    {object}  dto.RepairJobResponse
// @Router       /v1/maintenance/orphans/repair [post]
func (h *MaintenanceHandler) Repair(c *gin.Context) {
	scope := middleware.GetScope(c)
	if c.Query("async") == "true" && h.queue != nil {
		storeID, _ := scope.StoreID()
		if err := h.queue.EnqueueOrphanRepair(c.Request.Context(), storeID, middleware.UserID(c)); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, dto.RepairJobResponse{Queued: true, StoreID: scope.String()})
		return
	}

	resp, err := h.svc.Repair(c.Request.Context(), scope, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeadLetters godoc
// @Summary      Trabajos de reparación fallidos
// @Description  Trabajos de reparación que agotaron sus reintentos (cola de mensajes muertos). Vacío cuando no hay Redis.
// @Tags         maintenance
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Máximo de entradas"
// @Success      200    {object}  dto.DeadLetterResponse
// @Router       /v1/maintenance/dlq [get]
func (h *MaintenanceHandler) DeadLetters(c *gin.Context) {
	var q dto.DeadLetterQuery
	if !bindQuery(c, &q) {
		return
	}
	if h.queue == nil {
		c.JSON(http.StatusOK, dto.DeadLetterResponse{Data: []dto.DeadLetter{}})
		return
	}
	resp, err := h.queue.DeadLetters(c.Request.Context(), q.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

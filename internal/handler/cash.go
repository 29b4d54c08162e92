package handler

import (
	"net/http"

	"rentalcash/internal/dto"
	"rentalcash/internal/middleware"
	"rentalcash/internal/service"

	"github.com/gin-gonic/gin"
)

// IdempotencyHeader lets a client retry a manual movement safely.
const IdempotencyHeader = "Idempotency-Key"

type CashHandler struct {
	sessions service.CashSessionService
	ledger   service.LedgerService
	reports  service.ReportService
	rentals  service.RentalService
}

func NewCashHandler(svc *service.Set) *CashHandler {
	return &CashHandler{
		sessions: svc.Sessions,
		ledger:   svc.Ledger,
		reports:  svc.Reports,
		rentals:  svc.Rentals,
	}
}

// ── Sessions ────────────────────────────────────────────────────────────────

// OpenSession godoc
// @Summary      Abrir sesión de caja
// @Description  Abre la sesión de caja de la sucursal del usuario con el fondo inicial declarado.
// @Tags         cash
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.OpenSessionRequest  true  "Fondo inicial"
// @Success      201   {object}  dto.SessionResponse
// @Failure      409   {object}  apierror.APIError
// @Router       /v1/cash/sessions [post]
func (h *CashHandler) OpenSession(c *gin.Context) {
	var req dto.OpenSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.sessions.Open(c.Request.Context(), middleware.GetScope(c), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ActiveSession godoc
// @Summary      Sesión activa
// @Description  Devuelve la sesión abierta de la sucursal, o null si la caja está cerrada.
// @Tags         cash
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.SessionResponse
// @Router       /v1/cash/sessions/active [get]
func (h *CashHandler) ActiveSession(c *gin.Context) {
	resp, err := h.sessions.GetActive(c.Request.Context(), middleware.GetScope(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": resp})
}

// CloseSession godoc
// @Summary      Cerrar sesión de caja
// @Description  Cierra la sesión activa con el arqueo ciego y registra el cierre.
// @Tags         cash
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.CloseSessionRequest  true  "Arqueo"
// @Success      200   {object}  dto.ClosureResponse
// @Failure      404   {object}  apierror.APIError
// @Router       /v1/cash/sessions/close [post]
func (h *CashHandler) CloseSession(c *gin.Context) {
	var req dto.CloseSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.sessions.Close(c.Request.Context(), middleware.GetScope(c), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListSessions godoc
// @Summary      Listar sesiones
// @Tags         cash
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "open | closed"
// @Param        page    query     int     false  "Página"
// @Param        limit   query     int     false  "Tamaño de página"
// @Success      200     {object}  dto.SessionListResponse
// @Router       /v1/cash/sessions [get]
func (h *CashHandler) ListSessions(c *gin.Context) {
	var f dto.SessionFilter
	if !bindQuery(c, &f) {
		return
	}
	resp, err := h.sessions.List(c.Request.Context(), middleware.GetScope(c), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetSession godoc
// @Summary      Detalle de sesión
// @Tags         cash
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "UUID de la sesión"
// @Success      200  {object}  dto.SessionResponse
// @Failure      404  {object}  apierror.APIError
// @Router       /v1/cash/sessions/{id} [get]
func (h *CashHandler) GetSession(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.sessions.Get(c.Request.Context(), middleware.GetScope(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SessionSummary godoc
// @Summary      Resumen de una sesión
// @Tags         cash
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "UUID de la sesión"
// @Success      200  {object}  dto.SummaryResponse
// @Router       /v1/cash/sessions/{id}/summary [get]
func (h *CashHandler) SessionSummary(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.reports.SessionSummary(c.Request.Context(), middleware.GetScope(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Movements ───────────────────────────────────────────────────────────────

// RecordMovement godoc
// @Summary      Registrar movimiento manual
// @Description  Registra un ingreso o egreso manual en la sesión activa. Enviar Idempotency-Key para reintentos seguros.
// @Tags         cash
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string                     false  "Clave de reintento del cliente"
// @Param        body             body      dto.RecordMovementRequest  true   "Movimiento"
// @Success      201              {object}  dto.MovementResponse
// @Failure      409              {object}  apierror.APIError
// @Router       /v1/cash/movements [post]
func (h *CashHandler) RecordMovement(c *gin.Context) {
	var req dto.RecordMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	req.IdempotencyKey = c.GetHeader(IdempotencyHeader)

	resp, err := h.ledger.Record(c.Request.Context(), middleware.GetScope(c), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListMovements godoc
// @Summary      Listar movimientos
// @Tags         cash
// @Produce      json
// @Security     BearerAuth
// @Param        date            query     string  false  "YYYY-MM-DD"
// @Param        session_id      query     string  false  "UUID de la sesión"
// @Param        category        query     string  false  "Categoría"
// @Param        payment_method  query     string  false  "cash | card"
// @Param        reference_id    query     string  false  "UUID del alquiler"
// @Success      200             {object}  dto.MovementListResponse
// @Router       /v1/cash/movements [get]
func (h *CashHandler) ListMovements(c *gin.Context) {
	var f dto.MovementFilter
	if !bindQuery(c, &f) {
		return
	}
	resp, err := h.ledger.List(c.Request.Context(), middleware.GetScope(c), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteMovement godoc
// @Summary      Eliminar movimiento
// @Description  Elimina un movimiento de una sesión abierta y revierte su efecto sobre el alquiler. Solo admin, requiere PIN de encargado.
// @Tags         cash
// @Produce      json
// @Security     BearerAuth
// @Param        X-Manager-PIN  header    string  true  "PIN de encargado"
// @Param        id             path      string  true  "UUID del movimiento"
// @Success      200            {object}  dto.MovementResponse
// @Failure      409            {object}  apierror.APIError
// @Router       /v1/cash/movements/{id} [delete]
func (h *CashHandler) DeleteMovement(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.rentals.ReverseMovement(c.Request.Context(), middleware.GetScope(c), middleware.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Summary ─────────────────────────────────────────────────────────────────

// Summary godoc
// @Summary      Resumen de caja
// @Description  Resumen de conciliación de una sesión o una fecha; sin filtros, de la sesión en curso.
// @Tags         cash
// @Produce      json
// @Security     BearerAuth
// @Param        session_id  query     string  false  "UUID de la sesión"
// @Param        date        query     string  false  "YYYY-MM-DD"
// @Success      200         {object}  dto.SummaryResponse
// @Router       /v1/cash/summary [get]
func (h *CashHandler) Summary(c *gin.Context) {
	var q dto.SummaryQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.reports.Summary(c.Request.Context(), middleware.GetScope(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

package handler

import (
	"net/http"

	"rentalcash/internal/dto"
	"rentalcash/internal/middleware"
	"rentalcash/internal/service"

	"github.com/gin-gonic/gin"
)

type RentalHandler struct {
	svc service.RentalService
}

func NewRentalHandler(svc service.RentalService) *RentalHandler {
	return &RentalHandler{svc: svc}
}

// Create godoc
// @Summary      Crear alquiler
// @Description  Crea el alquiler, reserva sus ítems y registra el pago inicial y el depósito en la sesión activa.
// @Tags         rentals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.CreateRentalRequest  true  "Alquiler"
// @Success      201   {object}  dto.RentalPaymentResult
// @Failure      409   {object}  apierror.APIError
// @Router       /v1/rentals [post]
func (h *RentalHandler) Create(c *gin.Context) {
	var req dto.CreateRentalRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), middleware.GetScope(c), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary      Listar alquileres
// @Tags         rentals
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "active | partial | returned | cancelled"
// @Success      200     {object}  dto.RentalListResponse
// @Router       /v1/rentals [get]
func (h *RentalHandler) List(c *gin.Context) {
	var f dto.RentalFilter
	if !bindQuery(c, &f) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), middleware.GetScope(c), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary      Detalle de alquiler
// @Tags         rentals
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "UUID del alquiler"
// @Success      200  {object}  dto.RentalResponse
// @Failure      404  {object}  apierror.APIError
// @Router       /v1/rentals/{id} [get]
func (h *RentalHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), middleware.GetScope(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AddPayment godoc
// @Summary      Registrar pago adicional
// @Tags         rentals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                        true  "UUID del alquiler"
// @Param        body  body      dto.AdditionalPaymentRequest  true  "Pago"
// @Success      200   {object}  dto.RentalPaymentResult
// @Failure      422   {object}  apierror.APIError
// @Router       /v1/rentals/{id}/payments [post]
func (h *RentalHandler) AddPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.AdditionalPaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddPayment(c.Request.Context(), middleware.GetScope(c), middleware.UserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Return godoc
// @Summary      Devolver ítems / liquidar depósito
// @Tags         rentals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "UUID del alquiler"
// @Param        body  body      dto.ReturnRequest  true  "Líneas devueltas y acción sobre el depósito"
// @Success      200   {object}  dto.RentalPaymentResult
// @Failure      409   {object}  apierror.APIError
// @Router       /v1/rentals/{id}/return [post]
func (h *RentalHandler) Return(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.ReturnRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Return(c.Request.Context(), middleware.GetScope(c), middleware.UserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ChangePaymentMethod godoc
// @Summary      Cambiar método de pago
// @Tags         rentals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                          true  "UUID del alquiler"
// @Param        body  body      dto.PaymentMethodChangeRequest  true  "Nuevo método"
// @Success      200   {object}  dto.RentalPaymentResult
// @Router       /v1/rentals/{id}/payment-method [put]
func (h *RentalHandler) ChangePaymentMethod(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.PaymentMethodChangeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ChangePaymentMethod(c.Request.Context(), middleware.GetScope(c), middleware.UserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SwapItem godoc
// @Summary      Cambiar ítem
// @Tags         rentals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "UUID del alquiler"
// @Param        body  body      dto.SwapItemRequest  true  "Cambio"
// @Success      200   {object}  dto.RentalPaymentResult
// @Failure      409   {object}  apierror.APIError
// @Router       /v1/rentals/{id}/swap [post]
func (h *RentalHandler) SwapItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.SwapItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.SwapItem(c.Request.Context(), middleware.GetScope(c), middleware.UserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel godoc
// @Summary      Cancelar alquiler
// @Description  Devuelve lo pagado y el depósito pendiente, y libera los ítems.
// @Tags         rentals
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "UUID del alquiler"
// @Success      200  {object}  dto.RentalPaymentResult
// @Failure      422  {object}  apierror.APIError
// @Router       /v1/rentals/{id}/cancel [post]
func (h *RentalHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Cancel(c.Request.Context(), middleware.GetScope(c), middleware.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

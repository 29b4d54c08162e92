package handler

import (
	"net/http"

	"rentalcash/internal/dto"
	"rentalcash/internal/middleware"
	"rentalcash/internal/service"

	"github.com/gin-gonic/gin"
)

type ClosureHandler struct {
	svc service.ClosureService
}

func NewClosureHandler(svc service.ClosureService) *ClosureHandler {
	return &ClosureHandler{svc: svc}
}

// List godoc
// @Summary      Listar cierres de caja
// @Tags         closures
// @Produce      json
// @Security     BearerAuth
// @Param        from   query     string  false  "YYYY-MM-DD"
// @Param        to     query     string  false  "YYYY-MM-DD"
// @Success      200    {object}  dto.ClosureListResponse
// @Router       /v1/cash/closures [get]
func (h *ClosureHandler) List(c *gin.Context) {
	var f dto.ClosureFilter
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
// @Summary      Detalle de cierre
// @Tags         closures
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "UUID del cierre"
// @Success      200  {object}  dto.ClosureResponse
// @Failure      404  {object}  apierror.APIError
// @Router       /v1/cash/closures/{id} [get]
func (h *ClosureHandler) Get(c *gin.Context) {
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

// Delete godoc
// @Summary      Eliminar cierre
// @Description  Solo admin, requiere PIN de encargado. La sesión queda cerrada.
// @Tags         closures
// @Security     BearerAuth
// @Param        X-Manager-PIN  header  string  true  "PIN de encargado"
// @Param        id             path    string  true  "UUID del cierre"
// @Success      204
// @Failure      404  {object}  apierror.APIError
// @Router       /v1/cash/closures/{id} [delete]
func (h *ClosureHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.GetScope(c), middleware.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

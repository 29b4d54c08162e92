package handler

import (
	"net/http"

	"rentalcash/internal/dto"
	"rentalcash/internal/middleware"
	"rentalcash/internal/service"

	"github.com/gin-gonic/gin"
)

type ItemHandler struct {
	svc service.ItemService
}

func NewItemHandler(svc service.ItemService) *ItemHandler {
	return &ItemHandler{svc: svc}
}

// Create godoc
// @Summary      Alta de ítem
// @Tags         items
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.CreateItemRequest  true  "Ítem"
// @Success      201   {object}  dto.ItemResponse
// @Failure      409   {object}  apierror.APIError
// @Router       /v1/items [post]
func (h *ItemHandler) Create(c *gin.Context) {
	var req dto.CreateItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), middleware.GetScope(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary      Listar ítems
// @Tags         items
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.ItemListResponse
// @Router       /v1/items [get]
func (h *ItemHandler) List(c *gin.Context) {
	var q dto.PageQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), middleware.GetScope(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

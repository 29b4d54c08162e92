package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"rentalcash/internal/dto"
	"rentalcash/internal/middleware"
	"rentalcash/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// itemCacheTTL bounds how stale the availability shown at the counter can be.
// Rental creation always re-reads the item.
const itemCacheTTL = 30 * time.Second

// ItemLookupHandler serves barcode scans at the counter, cached in Redis
// when a client is configured.
type ItemLookupHandler struct {
	svc service.ItemService
	rdb *redis.Client
}

func NewItemLookupHandler(svc service.ItemService, rdb *redis.Client) *ItemLookupHandler {
	return &ItemLookupHandler{svc: svc, rdb: rdb}
}

// ByBarcode godoc
// @Summary      Consulta de ítem por código de barras
// @Tags         items
// @Produce      json
// @Security     BearerAuth
// @Param        barcode  path      string  true  "Código de barras"
// @Success      200      {object}  dto.ItemResponse
// @Failure      404      {object}  apierror.APIError
// @Router       /v1/items/{barcode} [get]
func (h *ItemLookupHandler) ByBarcode(c *gin.Context) {
	barcode := c.Param("barcode")
	ctx := c.Request.Context()
	scope := middleware.GetScope(c)
	cacheKey := "item:" + scope.String() + ":" + barcode

	// 1. Try Redis cache
	if h.rdb != nil {
		if cached, err := h.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			var resp dto.ItemResponse
			if jsonErr := json.Unmarshal(cached, &resp); jsonErr == nil {
				c.JSON(http.StatusOK, resp)
				return
			}
		}
	}

	// 2. Cache miss, query the store catalog
	resp, err := h.svc.FindByBarcode(ctx, scope, barcode)
	if err != nil {
		respondError(c, err)
		return
	}

	// 3. Populate cache, best effort
	if h.rdb != nil {
		if b, jsonErr := json.Marshal(resp); jsonErr == nil {
			_ = h.rdb.Set(context.Background(), cacheKey, b, itemCacheTTL).Err()
		}
	}

	c.JSON(http.StatusOK, resp)
}

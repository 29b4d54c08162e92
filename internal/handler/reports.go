package handler

import (
	"net/http"

	"rentalcash/internal/dto"
	"rentalcash/internal/middleware"
	"rentalcash/internal/service"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	svc service.ReportService
}

func NewReportHandler(svc service.ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// Daily godoc
// @Summary      Reporte diario
// @Description  Resumen de los movimientos de la fecha indicada (hora local de la sucursal).
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        date  path      string  true  "YYYY-MM-DD"
// @Success      200   {object}  dto.SummaryResponse
// @Failure      422   {object}  apierror.APIError
// @Router       /v1/reports/daily/{date} [get]
func (h *ReportHandler) Daily(c *gin.Context) {
	resp, err := h.svc.DailyReport(c.Request.Context(), middleware.GetScope(c), c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Financial godoc
// @Summary      Resumen financiero por rango
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        from  query     string  true  "YYYY-MM-DD"
// @Param        to    query     string  true  "YYYY-MM-DD"
// @Success      200   {object}  dto.SummaryResponse
// @Router       /v1/reports/financial-summary [get]
func (h *ReportHandler) Financial(c *gin.Context) {
	var q dto.RangeQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.svc.FinancialSummary(c.Request.Context(), middleware.GetScope(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

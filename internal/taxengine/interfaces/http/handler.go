// Package http 车辆税计算服务接口
package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/vehicletax/internal/taxengine/application"
	"github.com/wyfcoding/vehicletax/internal/taxengine/domain"
	"github.com/wyfcoding/vehicletax/pkg/metrics"
)

type Handler struct {
	service *application.TaxService
	metrics *metrics.Metrics
}

func NewHandler(service *application.TaxService, m *metrics.Metrics) *Handler {
	return &Handler{service: service, metrics: m}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/vehicle-tax")
	{
		g.POST("/quote", h.Quote)
		g.GET("/quotes/:id", h.GetQuote)
		g.GET("/jurisdictions", h.ListJurisdictions)
		g.GET("/jurisdictions/:code", h.GetJurisdiction)
		g.GET("/jurisdictions/:code/quotes", h.ListQuotes)
	}
}

func (h *Handler) Quote(c *gin.Context) {
	var req application.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	result, err := h.service.Quote(c.Request.Context(), &req)
	if h.metrics != nil {
		h.metrics.QuoteDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		h.recordError(err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	if h.metrics != nil {
		h.metrics.QuotesTotal.WithLabelValues(string(result.Breakdown.Jurisdiction), string(result.Breakdown.Scheme)).Inc()
		if result.Cached {
			h.metrics.QuoteCacheHitsTotal.Inc()
		}
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetQuote(c *gin.Context) {
	record, err := h.service.GetQuote(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) ListQuotes(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	records, err := h.service.ListQuotesByJurisdiction(c.Request.Context(), c.Param("code"), limit)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotes": records})
}

func (h *Handler) ListJurisdictions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jurisdictions": h.service.ListJurisdictions()})
}

func (h *Handler) GetJurisdiction(c *gin.Context) {
	rule, err := h.service.GetJurisdiction(c.Param("code"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"jurisdiction":    rule.Jurisdiction,
		"name":            rule.Name,
		"scheme":          rule.Scheme,
		"base_rate":       rule.BaseRate.String(),
		"trade_in_policy": rule.TradeInPolicy,
	})
}

// statusFor 把领域错误映射到 HTTP 状态码。
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownJurisdiction),
		errors.Is(err, domain.ErrQuoteNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransaction),
		errors.Is(err, domain.ErrInvalidMoneyValue),
		errors.Is(err, domain.ErrInvalidRate),
		errors.Is(err, domain.ErrUnknownVehicleClass):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) recordError(err error) {
	if h.metrics == nil {
		return
	}
	kind := "internal"
	switch {
	case errors.Is(err, domain.ErrUnknownJurisdiction):
		kind = "unknown_jurisdiction"
	case errors.Is(err, domain.ErrInvalidTransaction):
		kind = "invalid_transaction"
	case errors.Is(err, domain.ErrUnknownVehicleClass):
		kind = "unknown_vehicle_class"
	}
	h.metrics.QuoteErrorsTotal.WithLabelValues(kind).Inc()
}

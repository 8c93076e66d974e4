package delivery

import (
	"errors"
	"io"
	"net/http"
	"time"

	"trackattr/internal/domain"
	"trackattr/internal/usecase"
	"trackattr/pkg/logger"
	"trackattr/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// signatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const signatureHeader = "X-Webhook-Signature"

// handles HTTP requests
type HTTPHandlers struct {
	attributionService *usecase.AttributionService
	reportService      *usecase.ReportService
	logger             *logger.Logger
	metrics            *metrics.Metrics
}

// creates new HTTP handlers
func NewHTTPHandlers(
	attributionService *usecase.AttributionService,
	reportService *usecase.ReportService,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *HTTPHandlers {
	return &HTTPHandlers{
		attributionService: attributionService,
		reportService:      reportService,
		logger:             logger,
		metrics:            metrics,
	}
}

// TrackInteraction records an ad interaction touchpoint.
func (h *HTTPHandlers) TrackInteraction(c *gin.Context) {
	var req usecase.InteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid interaction payload", err)
		return
	}

	result, err := h.attributionService.TrackInteraction(c.Request.Context(), req)
	if err != nil {
		h.serviceError(c, "Failed to track interaction", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data":       result,
		"request_id": c.GetString("request_id"),
	})
}

// TrackBooking reconciles a conversion against recorded touchpoints.
func (h *HTTPHandlers) TrackBooking(c *gin.Context) {
	var req usecase.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid booking payload", err)
		return
	}

	match, err := h.attributionService.TrackBooking(c.Request.Context(), req)
	if err != nil {
		h.serviceError(c, "Failed to track booking", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data":       match,
		"request_id": c.GetString("request_id"),
	})
}

// Webhook accepts signed payment-platform conversion notifications. The
// signature covers the raw body, so the body is read before any decoding.
func (h *HTTPHandlers) Webhook(c *gin.Context) {
	platform := domain.Platform(c.Param("platform"))
	if !platform.IsPaymentPlatform() {
		h.badRequest(c, "Unknown webhook platform", domain.ErrInvalidInput)
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.badRequest(c, "Unreadable webhook body", err)
		return
	}

	signature := c.GetHeader(signatureHeader)
	if !h.attributionService.VerifyWebhookSignature(payload, signature) {
		h.metrics.RecordWebhookRejection(string(platform), "bad_signature")
		h.logger.WithContext(c.Request.Context()).WithError(domain.ErrSignatureInvalid).WithField("platform", platform).Warn("Rejected webhook")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":      "Invalid webhook signature",
			"request_id": c.GetString("request_id"),
		})
		return
	}

	req, err := usecase.ParseWebhookBooking(platform, payload)
	if err != nil {
		h.badRequest(c, "Invalid webhook payload", err)
		return
	}

	match, err := h.attributionService.TrackBooking(c.Request.Context(), req)
	if err != nil {
		h.serviceError(c, "Failed to process webhook conversion", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       match,
		"request_id": c.GetString("request_id"),
	})
}

// Dashboard returns the aggregated attribution dashboard for a business.
func (h *HTTPHandlers) Dashboard(c *gin.Context) {
	businessID := c.Query("business_id")
	if businessID == "" {
		h.badRequest(c, "business_id parameter is required", domain.ErrInvalidInput)
		return
	}

	report, err := h.reportService.Dashboard(c.Request.Context(), businessID)
	if err != nil {
		h.serviceError(c, "Failed to generate dashboard", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       report,
		"request_id": c.GetString("request_id"),
	})
}

// CampaignPerformance lists per-campaign stats across all platforms.
func (h *HTTPHandlers) CampaignPerformance(c *gin.Context) {
	businessID := c.Query("business_id")
	if businessID == "" {
		h.badRequest(c, "business_id parameter is required", domain.ErrInvalidInput)
		return
	}

	report, err := h.reportService.CampaignPerformance(c.Request.Context(), businessID)
	if err != nil {
		h.serviceError(c, "Failed to load campaign performance", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       report,
		"request_id": c.GetString("request_id"),
	})
}

type optimizeRequest struct {
	BusinessID  string   `json:"business_id" binding:"required"`
	Goal        string   `json:"optimization_goal" binding:"required"`
	CampaignIDs []string `json:"campaign_ids" binding:"required"`
}

// OptimizeCampaigns produces budget recommendations for the named campaigns.
func (h *HTTPHandlers) OptimizeCampaigns(c *gin.Context) {
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid optimization payload", err)
		return
	}

	report, err := h.reportService.OptimizeCampaigns(c.Request.Context(), req.BusinessID, req.Goal, req.CampaignIDs)
	if err != nil {
		h.serviceError(c, "Failed to optimize campaigns", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       report,
		"request_id": c.GetString("request_id"),
	})
}

// AttributionModels returns the supported model catalog.
func (h *HTTPHandlers) AttributionModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"data":       h.reportService.AttributionModels(),
		"request_id": c.GetString("request_id"),
	})
}

// IntegrationStatus reports per-platform credential status.
func (h *HTTPHandlers) IntegrationStatus(c *gin.Context) {
	businessID := c.Query("business_id")
	if businessID == "" {
		h.badRequest(c, "business_id parameter is required", domain.ErrInvalidInput)
		return
	}

	states := h.reportService.IntegrationStates(c.Request.Context(), businessID)
	c.JSON(http.StatusOK, gin.H{
		"data":       states,
		"request_id": c.GetString("request_id"),
	})
}

// GetAPIInfo returns API v1 information and available endpoints
func (h *HTTPHandlers) GetAPIInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"api_version": "v1",
		"service":     "Attribution Service",
		"version":     "1.0.0",
		"description": "Marketing attribution service matching ad interactions to bookings",
		"endpoints": gin.H{
			"track": gin.H{
				"interaction": "POST /api/v1/track/interaction",
				"booking":     "POST /api/v1/track/booking",
			},
			"webhooks": gin.H{
				"payment": "POST /api/v1/webhooks/:platform (square_payments, stripe_payments)",
			},
			"analytics": gin.H{
				"dashboard":            "GET /api/v1/analytics/dashboard?business_id=...",
				"campaign_performance": "GET /api/v1/analytics/campaign-performance?business_id=...",
				"attribution_models":   "GET /api/v1/analytics/attribution-models",
			},
			"campaigns": gin.H{
				"optimize": "POST /api/v1/campaigns/optimize",
			},
			"integrations": gin.H{
				"status": "GET /api/v1/integrations/status?business_id=...",
			},
		},
		"request_id": c.GetString("request_id"),
	})
}

// HealthCheck returns the health status of the service
func (h *HTTPHandlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"service":    "trackattr",
		"version":    "1.0.0",
		"request_id": c.GetString("request_id"),
	})
}

func (h *HTTPHandlers) badRequest(c *gin.Context, message string, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":      message,
		"message":    err.Error(),
		"request_id": c.GetString("request_id"),
	})
}

// serviceError maps validation failures to 400 and everything else to 500.
func (h *HTTPHandlers) serviceError(c *gin.Context, message string, err error) {
	if errors.Is(err, domain.ErrInvalidInput) {
		h.badRequest(c, message, err)
		return
	}

	// Internal detail stays in the log; clients only see the generic message.
	h.logger.WithContext(c.Request.Context()).WithError(err).Error(message)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":      message,
		"request_id": c.GetString("request_id"),
	})
}

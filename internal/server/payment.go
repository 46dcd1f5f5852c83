package server

import (
	"net/http"
	"strings"

	paymentdomain "github.com/billora/billora/internal/payment/domain"
	"github.com/gin-gonic/gin"
)

// HandlePaymentWebhook ingests a provider's payment result callback. The
// route is provider-authenticated out of band, not org-scoped.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	if provider == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req paymentdomain.ResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.paymentSvc.HandleResult(c.Request.Context(), req); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

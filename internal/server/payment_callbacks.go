package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/stayloop/stayloop/internal/payment/domain"
)

// HandleGatewayCallback receives the gateway's server-to-server callback
// after a checkout finishes. The signature covers the raw request body, so
// the body is read untouched and verified before anything parses it.
func (s *Server) HandleGatewayCallback(c *gin.Context) {
	s.handleGatewayEvent(c, "callback")
}

// HandleGatewayWebhook receives asynchronous status updates for orders that
// already settled or are still in flight.
func (s *Server) HandleGatewayWebhook(c *gin.Context) {
	s.handleGatewayEvent(c, "webhook")
}

func (s *Server) handleGatewayEvent(c *gin.Context, source string) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	declared := c.GetHeader(s.cfg.Gateway.WebhookHeader)
	if !s.verifier.Verify(payload, declared, s.cfg.Gateway.VerifyContextPath) {
		AbortWithError(c, paymentdomain.ErrInvalidSignature)
		return
	}

	if err := s.paymentSvc.HandleGatewayEvent(c.Request.Context(), source, payload); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

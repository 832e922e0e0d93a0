package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentpay/walletd/service"
)

// SetupRouter sets up the Gin router over the wallet session.
func SetupRouter(h *Handlers, tickets *TicketIssuer, session *service.SigningSession) *gin.Engine {
	router := gin.Default()

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/chain", h.Chain)
	router.GET("/tx/:hash", h.Transaction)

	// Session routes
	sess := router.Group("/session")
	{
		sess.POST("/connect", h.Connect)
		sess.POST("/disconnect", h.Disconnect)
		sess.GET("", h.Session)
		sess.GET("/balance", h.Balance)
	}

	router.POST("/network/ensure", h.EnsureNetwork)
	router.GET("/faucet/requests", h.FaucetHistory)

	// Routes requiring a valid session ticket
	protected := router.Group("")
	protected.Use(SessionRequired(tickets, session))
	{
		protected.POST("/session/sign", h.Sign)
		protected.POST("/transfer", h.Transfer)
		protected.POST("/faucet/request", h.FaucetRequest)
	}

	return router
}

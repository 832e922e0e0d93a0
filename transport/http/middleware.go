package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agentpay/walletd/core"
	"github.com/agentpay/walletd/service"
)

// SessionRequired checks that the request carries a valid session ticket
// and that its subject is still the connected account.
func SessionRequired(tickets *TicketIssuer, session *service.SigningSession) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		subject, err := tickets.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session ticket"})
			return
		}

		// A ticket outliving its session, or surviving an account switch,
		// does not grant access to the new identity.
		address, ok := session.Address()
		if !ok || address != subject {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": core.ErrSignerNotConnected.Error()})
			return
		}

		c.Set("session_address", subject)
		c.Next()
	}
}

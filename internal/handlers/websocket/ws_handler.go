// internal/handlers/websocket/ws_handler.go
package websocket

import (
	"net/http"

	authservice "subpass-service/internal/service/auth"
	ws "subpass-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the CORS layer in front of the upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSHandler struct {
	hub         *ws.Hub
	authService *authservice.AuthService
	logger      *zap.Logger
}

func NewWSHandler(hub *ws.Hub, authService *authservice.AuthService, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		hub:         hub,
		authService: authService,
		logger:      logger,
	}
}

// Serve authenticates via the token query param and upgrades the connection.
func (h *WSHandler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := h.authService.ValidateToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, claims.Address, h.logger)
	client.Start()
}

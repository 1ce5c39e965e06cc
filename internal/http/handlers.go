package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sujalbistaa/confide/internal/telegram"
)

// UpdateHandler processes one decoded transport update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update *telegram.Update) error
}

// Env bundles the webhook handler's dependencies.
type Env struct {
	Bot    UpdateHandler
	Logger *slog.Logger
}

// Webhook serves the bot endpoint: GET is a health probe, POST delivers an
// update, OPTIONS is the CORS preflight, anything else is 405.
func (e *Env) Webhook(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodGet:
		c.JSON(http.StatusOK, gin.H{
			"status":    "online",
			"message":   "Confide bot is running!",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})

	case http.MethodPost:
		var update telegram.Update
		if err := c.ShouldBindJSON(&update); err != nil {
			// Malformed payloads are acknowledged too; the transport would
			// only redeliver them otherwise.
			e.Logger.Error("malformed update", "error", err)
			c.JSON(http.StatusOK, gin.H{"error": "malformed update", "acknowledged": true})
			return
		}

		e.Logger.Info("update received", "updateId", update.UpdateID)
		if err := e.Bot.HandleUpdate(c.Request.Context(), &update); err != nil {
			// Still 200: the operations behind an update are not idempotent,
			// so a transport retry would be worse than a logged failure.
			e.Logger.Error("update processing failed", "updateId", update.UpdateID, "error", err)
			c.JSON(http.StatusOK, gin.H{"error": "internal server error", "acknowledged": true})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})

	case http.MethodOptions:
		c.Status(http.StatusOK)

	default:
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	}
}

package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/balldrop/internal/game"
	"github.com/playmatatu/balldrop/internal/layouts"
	"github.com/playmatatu/balldrop/internal/players"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrSessionNotFound),
		errors.Is(err, layouts.ErrLayoutNotFound),
		errors.Is(err, players.ErrPlayerNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrUnknownCommand),
		errors.Is(err, game.ErrUnknownShapeKind),
		errors.Is(err, game.ErrInvalidMode),
		errors.Is(err, game.ErrInvalidTheme),
		errors.Is(err, game.ErrInvalidSave),
		errors.Is(err, players.ErrInvalidName),
		errors.Is(err, players.ErrPINFormat),
		errors.Is(err, layouts.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, players.ErrInvalidPIN):
		return http.StatusUnauthorized
	case errors.Is(err, players.ErrNameTaken):
		return http.StatusConflict
	case errors.Is(err, players.ErrPlayerLocked),
		errors.Is(err, game.ErrTooManySessions),
		errors.Is(err, layouts.ErrTooManyLayouts):
		return http.StatusTooManyRequests
	case errors.Is(err, game.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error": ...}. Unexpected errors are logged
// and hidden from the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[API] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}

	body := gin.H{"error": err.Error()}
	var locked *players.LockedError
	if errors.As(err, &locked) {
		body["locked_until"] = locked.Until.Format(time.RFC3339)
		body["minutes_remaining"] = int(time.Until(locked.Until).Minutes()) + 1
	}
	c.JSON(status, body)
}

// playerIDFrom returns the player set by AuthMiddleware.
func playerIDFrom(c *gin.Context) (int, bool) {
	v, ok := c.Get("player_id")
	if !ok {
		return 0, false
	}
	pid, ok := v.(int)
	return pid, ok && pid > 0
}

// requirePlayer aborts with 401 when the request carries no player.
func requirePlayer(c *gin.Context) (int, bool) {
	pid, ok := playerIDFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return pid, ok
}

func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

func commandContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), 2*time.Second)
}

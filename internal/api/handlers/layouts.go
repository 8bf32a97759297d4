package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/balldrop/internal/game"
	"github.com/playmatatu/balldrop/internal/models"
)

// LayoutStore keeps named save files.
type LayoutStore interface {
	LayoutSource
	List(ctx context.Context, playerID int) ([]models.SavedLayout, error)
	Save(ctx context.Context, playerID int, name string, f *game.SaveFile) (*models.SavedLayout, error)
	Delete(ctx context.Context, playerID, id int) error
}

// ListLayouts returns the caller's saved layouts without their shapes.
// GET /api/v1/layouts
func ListLayouts(store LayoutStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		pid, ok := requirePlayer(c)
		if !ok {
			return
		}
		rows, err := store.List(c.Request.Context(), pid)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"layouts": rows})
	}
}

// StoreLayout saves the current state of a live session under a name.
// POST /api/v1/layouts
func StoreLayout(store LayoutStore, m *game.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		pid, ok := requirePlayer(c)
		if !ok {
			return
		}
		var req struct {
			SessionID string `json:"session_id"`
			Name      string `json:"name"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id and name required"})
			return
		}
		s, err := m.GetForPlayer(req.SessionID, pid)
		if err != nil {
			respondError(c, err)
			return
		}

		ctx, cancel := commandContext(c)
		defer cancel()
		res, err := s.Execute(ctx, game.Save{})
		if err != nil {
			respondError(c, err)
			return
		}
		l, err := store.Save(c.Request.Context(), pid, req.Name, res.Save)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"layout": l})
	}
}

// GetLayout returns a saved layout with its save file.
// GET /api/v1/layouts/:id
func GetLayout(store LayoutStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		pid, ok := requirePlayer(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		l, f, err := store.Get(c.Request.Context(), pid, id)
		if err != nil {
			respondError(c, err)
			return
		}
		l.Data = nil
		c.JSON(http.StatusOK, gin.H{"layout": l, "save": f})
	}
}

// DeleteLayout removes a saved layout.
// DELETE /api/v1/layouts/:id
func DeleteLayout(store LayoutStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		pid, ok := requirePlayer(c)
		if !ok {
			return
		}
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		if err := store.Delete(c.Request.Context(), pid, id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

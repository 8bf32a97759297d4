package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/balldrop/internal/game"
	"github.com/playmatatu/balldrop/internal/models"
	"github.com/playmatatu/balldrop/internal/stats"
	"github.com/playmatatu/balldrop/internal/ws"
)

// maxSaveFileSize bounds uploaded save files.
const maxSaveFileSize = 1 << 20

// ProfileSource provides the preferences new sessions start from.
type ProfileSource interface {
	Get(ctx context.Context, id int) (*models.Player, error)
}

// LayoutSource loads a saved layout for a new session.
type LayoutSource interface {
	Get(ctx context.Context, playerID, id int) (*models.SavedLayout, *game.SaveFile, error)
}

type createSessionRequest struct {
	Mode           game.Mode  `json:"mode"`
	Theme          game.Theme `json:"theme"`
	SpawnRate      float64    `json:"spawn_rate"`
	LayoutID       int        `json:"layout_id"`
	ResumeAutosave bool       `json:"resume_autosave"`
	Running        bool       `json:"running"`
}

func sessionInfo(s *game.Session, f *game.Frame) gin.H {
	return gin.H{
		"id":          s.ID,
		"player_id":   s.PlayerID,
		"created_at":  s.CreatedAt,
		"last_active": s.LastActive(),
		"frame":       f,
	}
}

// ownedSession resolves :id to a session of the authenticated player.
func ownedSession(c *gin.Context, m *game.SessionManager) (*game.Session, bool) {
	pid, ok := requirePlayer(c)
	if !ok {
		return nil, false
	}
	s, err := m.GetForPlayer(c.Param("id"), pid)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return s, true
}

// CreateSession starts a sandbox seeded from the player's preferences and,
// optionally, a saved layout or the latest autosave.
// POST /api/v1/sessions
func CreateSession(m *game.SessionManager, profiles ProfileSource, saved LayoutSource, rec *stats.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		pid, ok := requirePlayer(c)
		if !ok {
			return
		}
		var req createSessionRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session options"})
				return
			}
		}
		ctx := c.Request.Context()

		opts := game.Options{Mode: req.Mode, Theme: req.Theme, SpawnRate: req.SpawnRate, StartRunning: req.Running}
		if profiles != nil {
			if p, err := profiles.Get(ctx, pid); err == nil {
				if opts.Theme == "" {
					opts.Theme = game.Theme(p.Theme)
				}
				if opts.SpawnRate == 0 {
					opts.SpawnRate = p.SpawnRate
				}
			} else if !errors.Is(err, context.Canceled) {
				log.Printf("[SESSION] No preferences for player %d: %v", pid, err)
			}
		}
		if opts.Mode != "" && !opts.Mode.Valid() {
			respondError(c, fmt.Errorf("%w: %q", game.ErrInvalidMode, opts.Mode))
			return
		}
		if opts.Theme != "" && !opts.Theme.Valid() {
			respondError(c, fmt.Errorf("%w: %q", game.ErrInvalidTheme, opts.Theme))
			return
		}

		var initial *game.SaveFile
		switch {
		case req.LayoutID > 0:
			if saved == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "layout not found"})
				return
			}
			_, f, err := saved.Get(ctx, pid, req.LayoutID)
			if err != nil {
				respondError(c, err)
				return
			}
			initial = f
		case req.ResumeAutosave:
			if f, err := m.LoadAutosave(ctx, pid); err == nil {
				initial = f
			}
		}

		s, err := m.Create(pid, opts)
		if err != nil {
			respondError(c, err)
			return
		}
		if rec != nil {
			rec.Add(pid, stats.Delta{SessionsStarted: 1})
		}

		cmdCtx, cancel := commandContext(c)
		defer cancel()
		if initial != nil {
			if _, err := s.Execute(cmdCtx, game.Load{Save: initial}); err != nil {
				m.End(s.ID)
				respondError(c, err)
				return
			}
		}
		res, err := s.Execute(cmdCtx, game.Snapshot{})
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("X-Session-ID", s.ID)
		c.JSON(http.StatusCreated, sessionInfo(s, res.Frame))
	}
}

// ListSessions returns the caller's live sessions.
// GET /api/v1/sessions
func ListSessions(m *game.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		pid, ok := requirePlayer(c)
		if !ok {
			return
		}
		out := []gin.H{}
		for _, s := range m.ListForPlayer(pid) {
			out = append(out, gin.H{"id": s.ID, "created_at": s.CreatedAt, "last_active": s.LastActive()})
		}
		c.JSON(http.StatusOK, gin.H{"sessions": out})
	}
}

// GetSession returns the current frame of a session.
// GET /api/v1/sessions/:id
func GetSession(m *game.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := ownedSession(c, m)
		if !ok {
			return
		}
		ctx, cancel := commandContext(c)
		defer cancel()
		res, err := s.Execute(ctx, game.Snapshot{})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, sessionInfo(s, res.Frame))
	}
}

// ExecuteCommand applies one named command, e.g.
// {"type": "place", "data": {"kind": "longLine"}}.
// POST /api/v1/sessions/:id/commands
func ExecuteCommand(m *game.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := ownedSession(c, m)
		if !ok {
			return
		}
		var msg ws.WSMessage
		if err := c.ShouldBindJSON(&msg); err != nil || msg.Type == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "command type required"})
			return
		}
		cmd, err := ws.CodecJSON.DecodeCommand(msg.Type, msg.Data)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := commandContext(c)
		defer cancel()
		res, err := s.Execute(ctx, cmd)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// DownloadSave returns the session as a save file attachment.
// GET /api/v1/sessions/:id/save
func DownloadSave(m *game.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := ownedSession(c, m)
		if !ok {
			return
		}
		ctx, cancel := commandContext(c)
		defer cancel()
		res, err := s.Execute(ctx, game.Save{})
		if err != nil {
			respondError(c, err)
			return
		}
		data, err := res.Save.MarshalIndent()
		if err != nil {
			respondError(c, err)
			return
		}
		name := fmt.Sprintf("balldrop-%s.json", res.Save.SavedAt.Format("2006-01-02-150405"))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		c.Data(http.StatusOK, "application/json", data)
	}
}

// LoadSave replaces the session state with an uploaded save file. The file
// is validated before the session sees it.
// POST /api/v1/sessions/:id/load
func LoadSave(m *game.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := ownedSession(c, m)
		if !ok {
			return
		}
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSaveFileSize+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read save file"})
			return
		}
		if len(body) > maxSaveFileSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "save file too large"})
			return
		}
		f, err := game.ParseSaveFile(body)
		if err != nil {
			respondError(c, err)
			return
		}

		ctx, cancel := commandContext(c)
		defer cancel()
		if _, err := s.Execute(ctx, game.Load{Save: f}); err != nil {
			respondError(c, err)
			return
		}
		res, err := s.Execute(ctx, game.Snapshot{})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, sessionInfo(s, res.Frame))
	}
}

// DeleteSession autosaves and stops a session.
// DELETE /api/v1/sessions/:id
func DeleteSession(m *game.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := ownedSession(c, m)
		if !ok {
			return
		}
		if err := m.End(s.ID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

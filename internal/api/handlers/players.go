package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/balldrop/internal/config"
	"github.com/playmatatu/balldrop/internal/game"
	"github.com/playmatatu/balldrop/internal/models"
	"github.com/playmatatu/balldrop/internal/players"
	"github.com/playmatatu/balldrop/internal/stats"
)

// PlayerService is the profile store behind the player routes.
type PlayerService interface {
	Create(ctx context.Context, name, pin string) (*models.Player, error)
	Login(ctx context.Context, name, pin string) (*models.Player, error)
	Get(ctx context.Context, id int) (*models.Player, error)
	UpdatePreferences(ctx context.Context, id int, prefs players.Preferences) (*models.Player, error)
	CompleteOnboarding(ctx context.Context, id int) error
	ResetAllData(ctx context.Context, id int, pin string, extra ...func(tx *sqlx.Tx) error) error
}

// StatsStore reads and resets lifetime statistics.
type StatsStore interface {
	Get(ctx context.Context, playerID int) (*models.LifetimeStats, error)
	ResetTx(ctx context.Context, tx *sqlx.Tx, playerID int) error
}

type credentials struct {
	Name string `json:"name"`
	PIN  string `json:"pin"`
}

func tokenResponse(c *gin.Context, cfg *config.Config, status int, p *models.Player) {
	token, exp, err := IssueToken(cfg, p.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, gin.H{"token": token, "expires_at": exp, "player": p})
}

// CreatePlayer registers a profile and returns a token.
// POST /api/v1/players
func CreatePlayer(svc PlayerService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentials
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and pin required"})
			return
		}
		p, err := svc.Create(c.Request.Context(), req.Name, strings.TrimSpace(req.PIN))
		if err != nil {
			respondError(c, err)
			return
		}
		tokenResponse(c, cfg, http.StatusCreated, p)
	}
}

// Login exchanges name and PIN for a token.
// POST /api/v1/players/login
func Login(svc PlayerService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentials
		if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" || req.PIN == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and pin required"})
			return
		}
		p, err := svc.Login(c.Request.Context(), req.Name, strings.TrimSpace(req.PIN))
		if err != nil {
			respondError(c, err)
			return
		}
		tokenResponse(c, cfg, http.StatusOK, p)
	}
}

// GetMe returns the profile and lifetime statistics, including totals not
// yet flushed to the database.
// GET /api/v1/me
func GetMe(svc PlayerService, st StatsStore, rec *stats.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		pid, ok := requirePlayer(c)
		if !ok {
			return
		}
		p, err := svc.Get(c.Request.Context(), pid)
		if err != nil {
			respondError(c, err)
			return
		}

		lifetime := &models.LifetimeStats{PlayerID: pid}
		if st != nil {
			if lifetime, err = st.Get(c.Request.Context(), pid); err != nil {
				respondError(c, err)
				return
			}
		}
		if rec != nil {
			d := rec.Pending(pid)
			lifetime.PlayTimeMs += d.PlayTimeMs
			lifetime.BallsDropped += d.BallsDropped
			lifetime.BallsDelivered += d.BallsDelivered
			lifetime.ShapesPlaced += d.ShapesPlaced
			lifetime.SessionsStarted += d.SessionsStarted
		}

		c.JSON(http.StatusOK, gin.H{"player": p, "lifetime_stats": lifetime})
	}
}

// UpdatePreferences stores theme and spawn rate and applies the theme to the
// player's live sessions.
// PUT /api/v1/me/preferences
func UpdatePreferences(svc PlayerService, m *game.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		pid, ok := requirePlayer(c)
		if !ok {
			return
		}
		var prefs players.Preferences
		if err := c.ShouldBindJSON(&prefs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid preferences"})
			return
		}
		p, err := svc.UpdatePreferences(c.Request.Context(), pid, prefs)
		if err != nil {
			respondError(c, err)
			return
		}

		if m != nil {
			ctx, cancel := commandContext(c)
			defer cancel()
			for _, s := range m.ListForPlayer(pid) {
				if _, err := s.Execute(ctx, game.SetTheme{Theme: game.Theme(p.Theme)}); err != nil {
					log.Printf("[SESSION] Theme update for %s failed: %v", s.ID, err)
				}
			}
		}
		c.JSON(http.StatusOK, gin.H{"player": p})
	}
}

// CompleteOnboarding marks the tutorial as seen.
// POST /api/v1/me/onboarding
func CompleteOnboarding(svc PlayerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		pid, ok := requirePlayer(c)
		if !ok {
			return
		}
		if err := svc.CompleteOnboarding(c.Request.Context(), pid); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// ResetAllData wipes lifetime stats, saved layouts, the autosave and the
// contents of every live session after the PIN is confirmed.
// POST /api/v1/me/reset
func ResetAllData(svc PlayerService, st StatsStore, rec *stats.Recorder, m *game.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		pid, ok := requirePlayer(c)
		if !ok {
			return
		}
		var req struct {
			PIN string `json:"pin"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.PIN == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pin required"})
			return
		}

		ctx := c.Request.Context()
		var extra []func(tx *sqlx.Tx) error
		if st != nil {
			extra = append(extra, func(tx *sqlx.Tx) error { return st.ResetTx(ctx, tx, pid) })
		}
		if err := svc.ResetAllData(ctx, pid, strings.TrimSpace(req.PIN), extra...); err != nil {
			respondError(c, err)
			return
		}
		if rec != nil {
			rec.Discard(pid)
		}

		cleared := 0
		if m != nil {
			if err := m.DeleteAutosave(ctx, pid); err != nil {
				log.Printf("[REDIS] Failed to drop autosave of player %d: %v", pid, err)
			}
			cmdCtx, cancel := commandContext(c)
			defer cancel()
			for _, s := range m.ListForPlayer(pid) {
				if _, err := s.Execute(cmdCtx, game.Reset{}); err == nil {
					cleared++
				}
			}
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "sessions_reset": cleared})
	}
}

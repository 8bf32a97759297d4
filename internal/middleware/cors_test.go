package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/balldrop/internal/config"
)

func TestAllowedOrigin(t *testing.T) {
	dev := &config.Config{Environment: "development"}
	prod := &config.Config{Environment: "production", FrontendURL: "https://balldrop.example"}

	cases := []struct {
		cfg    *config.Config
		origin string
		want   bool
	}{
		{dev, "http://localhost:5173", true},
		{dev, "http://127.0.0.1:3000", true},
		{dev, "https://evil.example", false},
		{prod, "https://balldrop.example", true},
		{prod, "http://localhost:5173", false},
	}
	for _, c := range cases {
		if got := AllowedOrigin(c.cfg, c.origin); got != c.want {
			t.Errorf("AllowedOrigin(%s, %q) = %v, want %v", c.cfg.Environment, c.origin, got, c.want)
		}
	}
}

func TestWebSocketCORSCheckRejectsForeignOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WebSocketCORSCheck(&config.Config{Environment: "development"}))
	r.GET("/ws", func(c *gin.Context) { c.Status(http.StatusOK) })

	for origin, want := range map[string]int{
		"https://evil.example":  http.StatusForbidden,
		"http://localhost:5173": http.StatusOK,
		"":                      http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Errorf("origin %q: status %d, want %d", origin, w.Code, want)
		}
	}
}

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/playmatatu/balldrop/internal/config"
)

var testConfig = &config.Config{Environment: "development", JWTSecret: "test-secret", TokenTTLHours: 1}

func authedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", AuthMiddleware(testConfig), func(c *gin.Context) {
		pid, _ := playerIDFrom(c)
		c.JSON(http.StatusOK, gin.H{"player_id": pid})
	})
	return r
}

func TestIssuedTokenAuthenticates(t *testing.T) {
	token, exp, err := IssueToken(testConfig, 42)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if until := time.Until(exp); until < 59*time.Minute || until > time.Hour {
		t.Errorf("token expires in %s, want about 1h", until)
	}

	r := authedRouter()
	for _, viaQuery := range []bool{false, true} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if viaQuery {
			req = httptest.NewRequest(http.MethodGet, "/whoami?token="+token, nil)
		} else {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK || w.Body.String() != `{"player_id":42}` {
			t.Errorf("query=%v: status=%d body=%s", viaQuery, w.Code, w.Body)
		}
	}
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	other := &config.Config{JWTSecret: "other-secret", TokenTTLHours: 1}
	forged, _, _ := IssueToken(other, 42)

	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"player_id": 42,
		"exp":       time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte(testConfig.JWTSecret))

	noPlayer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testConfig.JWTSecret))

	r := authedRouter()
	for name, header := range map[string]string{
		"missing":   "",
		"garbage":   "Bearer not-a-jwt",
		"forged":    "Bearer " + forged,
		"expired":   "Bearer " + expired,
		"no player": "Bearer " + noPlayer,
	} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status %d, want 401", name, w.Code)
		}
	}
}

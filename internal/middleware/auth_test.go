package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"pitchfeed/internal/db/memory"
	"pitchfeed/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	identity := services.NewIdentityService(memory.New(), nil)
	user, err := identity.CreateUser(context.Background(), services.NewUser{Handle: "alice"})
	require.NoError(t, err)

	r := gin.New()
	r.Use(LoadUser(identity))
	r.GET("/open", func(c *gin.Context) {
		if u := CurrentUser(c); u != nil {
			c.String(http.StatusOK, u.Handle)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	r.GET("/closed", AuthRequired(), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUser(c).ID)
	})
	return r, user.ID
}

func get(r *gin.Engine, path, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if userID != "" {
		req.Header.Set(UserHeader, userID)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestLoadUser(t *testing.T) {
	r, id := newEngine(t)

	assert.Equal(t, "alice", get(r, "/open", id).Body.String())
	assert.Equal(t, "anonymous", get(r, "/open", "").Body.String())
	assert.Equal(t, "anonymous", get(r, "/open", "no-such-user").Body.String())
}

func TestAuthRequired(t *testing.T) {
	r, id := newEngine(t)

	rec := get(r, "/closed", id)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, rec.Body.String())

	rec = get(r, "/closed", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")

	assert.Equal(t, http.StatusUnauthorized, get(r, "/closed", "no-such-user").Code)
}

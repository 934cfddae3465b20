package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pitchfeed/internal/config"
	"pitchfeed/internal/db/memory"
	"pitchfeed/internal/metrics"
	"pitchfeed/internal/oracle"
	"pitchfeed/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	oracle *oracle.Static
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m := metrics.New()
	o := oracle.NewStatic(services.DemoAssets...)
	svc, err := services.New(memory.New(), o, services.Options{Metrics: m})
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	r := gin.New()
	RegisterRoutes(r, svc, config.Default().Feed, m, func() gin.H { return gin.H{"storage": "memory"} })
	return &testServer{t: t, engine: r, oracle: o}
}

func (s *testServer) do(method, path, userID string, body interface{}) (int, map[string]interface{}) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "" && bytes.HasPrefix(bytes.TrimSpace(rec.Body.Bytes()), []byte("{")) {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func (s *testServer) register(handle string) string {
	s.t.Helper()
	code, body := s.do(http.MethodPost, "/users", "", map[string]string{"handle": handle})
	require.Equal(s.t, http.StatusCreated, code, body)
	return body["id"].(string)
}

func TestScenarioOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	bob := s.register("bob")
	carol := s.register("carol")

	code, body := s.do(http.MethodPost, "/users", "", map[string]string{"handle": "alice"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "duplicate_event", body["error"])

	code, _ = s.do(http.MethodPost, "/pitches", "", map[string]string{"asset_id": "AAPL", "thesis": "x"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = s.do(http.MethodPost, "/pitches", alice, map[string]string{"asset_id": "AAPL", "thesis": "**Services** flywheel", "class": "stock"})
	require.Equal(t, http.StatusCreated, code, body)
	pitchID := body["id"].(string)
	threadID := body["thread_id"].(string)
	assert.Equal(t, 180.95, body["pitch_price"])

	code, body = s.do(http.MethodPost, "/pitches/"+pitchID+"/like", alice, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_state", body["error"])

	code, body = s.do(http.MethodPost, "/pitches/"+pitchID+"/like", bob, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, 1.0, body["like_count"])

	code, body = s.do(http.MethodPost, "/pitches/"+pitchID+"/like", bob, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "duplicate_event", body["error"])

	code, body = s.do(http.MethodGet, "/users/"+alice, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 12.0, body["stock_karma"])
	assert.Equal(t, 12.0, body["karma"])
	assert.Equal(t, "#CD7F32", body["tier"].(map[string]interface{})["color"])
	assert.Equal(t, map[string]interface{}{"name": "silver", "points_needed": 88.0}, body["next_tier"])

	code, body = s.do(http.MethodPost, "/pitches/"+pitchID+"/comments", bob, map[string]string{"content": "Nice thesis"})
	require.Equal(t, http.StatusCreated, code, body)
	topID := body["id"].(string)

	code, body = s.do(http.MethodPost, "/pitches/"+pitchID+"/comments", carol, map[string]string{"content": "Disagree", "parent_id": topID})
	require.Equal(t, http.StatusCreated, code, body)

	code, body = s.do(http.MethodPost, "/pitches/"+pitchID+"/comments", carol, map[string]string{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_input", body["error"])

	code, body = s.do(http.MethodGet, "/comments/"+topID+"/descendants", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, body["descendants"])
	code, body = s.do(http.MethodGet, "/comments/"+threadID+"/descendants", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2.0, body["descendants"])

	code, body = s.do(http.MethodGet, "/pitches/"+pitchID+"/comments?order=popularity", "", nil)
	require.Equal(t, http.StatusOK, code)
	comments := body["comments"].([]interface{})
	require.Len(t, comments, 2)
	assert.Equal(t, 0.0, comments[0].(map[string]interface{})["depth"])
	assert.Equal(t, 1.0, comments[1].(map[string]interface{})["depth"])

	code, _ = s.do(http.MethodGet, "/pitches/"+pitchID+"/comments?order=random", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(http.MethodGet, "/pitches/"+pitchID, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2.0, body["comment_count"])
	assert.Contains(t, body["thesis_html"], "<strong>Services</strong>")

	s.oracle.SetPrice("AAPL", 190)
	code, body = s.do(http.MethodGet, "/pitches/"+pitchID+"/return", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.InDelta(t, 5.0, body["percentage"], 0.01)
	assert.Equal(t, false, body["stale"])

	code, body = s.do(http.MethodGet, "/users/"+alice+"/performance", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, body["successful_pitches"])
	assert.Equal(t, 100.0, body["success_rate"])
	assert.InDelta(t, 5.0, body["average_return"], 0.01)

	s.oracle.SetUnavailable("AAPL", true)
	code, body = s.do(http.MethodGet, "/pitches/"+pitchID+"/return", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["stale"])
	assert.Equal(t, 180.95, body["price"])
	assert.Equal(t, 0.0, body["percentage"])

	code, body = s.do(http.MethodGet, "/users/"+alice+"/performance", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, body["stale_quotes"])
	assert.Equal(t, 0.0, body["priced_pitches"])

	code, _ = s.do(http.MethodGet, "/users/nobody/performance", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestFollowAndFeedOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	bob := s.register("bob")

	code, body := s.do(http.MethodGet, "/feed", bob, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["items"])

	code, _ = s.do(http.MethodPost, "/users/"+alice+"/follow", bob, nil)
	require.Equal(t, http.StatusOK, code)
	code, body = s.do(http.MethodPost, "/users/"+bob+"/follow", bob, nil)
	assert.Equal(t, http.StatusBadRequest, code, body)

	code, body = s.do(http.MethodPost, "/pitches", alice, map[string]string{"asset_id": "ethereum", "thesis": "staking yield"})
	require.Equal(t, http.StatusCreated, code, body)
	pitchID := body["id"].(string)

	code, body = s.do(http.MethodGet, "/feed?limit=5", bob, nil)
	require.Equal(t, http.StatusOK, code)
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, pitchID, item["pitch"].(map[string]interface{})["id"])

	code, body = s.do(http.MethodGet, "/users/"+alice+"/followers", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["users"], 1)

	code, body = s.do(http.MethodGet, "/users/"+alice+"/pitches", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["pitches"], 1)

	code, _ = s.do(http.MethodDelete, "/users/"+alice+"/follow", bob, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodDelete, "/users/"+alice+"/follow", bob, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodGet, "/users/nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["storage"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestNotificationRoutes(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")

	code, body := s.do(http.MethodGet, "/notifications", alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0.0, body["unread"])

	code, _ = s.do(http.MethodPost, "/notifications/abc/read", alice, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(http.MethodPost, "/notifications/7/read", alice, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

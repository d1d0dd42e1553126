package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/vectorlab/backend/internal/api/handlers"
	"github.com/vectorlab/backend/internal/config"
	"github.com/vectorlab/backend/internal/lab"
)

var testConfig = &config.Config{
	Environment:         "test",
	JWTSecret:           "test-secret",
	KeyExpiryHours:      1,
	ChallengeTickMillis: 1000,
	CanvasWidth:         700,
	CanvasHeight:        400,
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	lab.Manager = lab.NewManager(testConfig, nil)
	code := m.Run()
	lab.Manager.CloseAll()
	os.Exit(code)
}

func newRouter() *gin.Engine {
	router := gin.New()
	SetupRoutes(router, testConfig)
	return router
}

func do(router *gin.Engine, method, path, key string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type created struct {
	Token string        `json:"token"`
	Key   string        `json:"key"`
	State lab.StateView `json:"state"`
}

func createLab(t *testing.T, router *gin.Engine) created {
	t.Helper()
	w := do(router, http.MethodPost, "/api/v1/lab", "", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var out created
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	require.NotEmpty(t, out.Key)
	return out
}

func TestHealthAndConfig(t *testing.T) {
	router := newRouter()

	w := do(router, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"ok"`)

	w = do(router, http.MethodGet, "/api/v1/config", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cfg map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	require.Equal(t, float64(700), cfg["canvas_width"])
	require.Len(t, cfg["challenges"], 4)
}

func TestCreateAndReadLab(t *testing.T) {
	router := newRouter()
	lb := createLab(t, router)
	require.Len(t, lb.State.Vectors, 4)
	require.InDelta(t, -34, lb.State.Resultant.X, 1e-9)

	w := do(router, http.MethodGet, "/api/v1/lab/"+lb.Token, lb.Key, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// The key also works as a query parameter.
	w = do(router, http.MethodGet, "/api/v1/lab/"+lb.Token+"?key="+lb.Key, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSessionKeyIsRequired(t *testing.T) {
	router := newRouter()
	a := createLab(t, router)
	b := createLab(t, router)

	w := do(router, http.MethodGet, "/api/v1/lab/"+a.Token, "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, http.MethodGet, "/api/v1/lab/"+a.Token, "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, http.MethodGet, "/api/v1/lab/"+a.Token, b.Key, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	forged, err := handlers.IssueSessionKey(&config.Config{JWTSecret: "other"}, a.Token)
	require.NoError(t, err)
	w = do(router, http.MethodGet, "/api/v1/lab/"+a.Token, forged, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPredictionEndpoint(t *testing.T) {
	router := newRouter()
	lb := createLab(t, router)
	path := "/api/v1/lab/" + lb.Token + "/prediction"

	w := do(router, http.MethodPost, path, lb.Key, map[string]string{"direction": "SE", "magnitude": "50-100N"})
	require.Equal(t, http.StatusOK, w.Code)
	var res map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, "high", res["accuracy"])

	w = do(router, http.MethodPost, path, lb.Key, map[string]string{"direction": "SE"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, path, lb.Key, map[string]string{"direction": "UP", "magnitude": "<50N"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChallengeEndpoints(t *testing.T) {
	router := newRouter()
	lb := createLab(t, router)
	base := "/api/v1/lab/" + lb.Token

	w := do(router, http.MethodPost, base+"/challenge/2/start", lb.Key, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st lab.StateView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	require.NotNil(t, st.Active)
	require.Equal(t, 2, st.Active.ID)
	require.True(t, st.View.Intro)

	w = do(router, http.MethodPost, base+"/challenge/9/start", lb.Key, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodPost, base+"/challenge/abc/start", lb.Key, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, base+"/challenge/reset", lb.Key, nil)
	require.Equal(t, http.StatusOK, w.Code)
	st = lab.StateView{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	require.Nil(t, st.Active)

	w = do(router, http.MethodPost, base+"/vectors/reset", lb.Key, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestEndLab(t *testing.T) {
	router := newRouter()
	lb := createLab(t, router)
	base := "/api/v1/lab/" + lb.Token

	w := do(router, http.MethodDelete, base, lb.Key, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(router, http.MethodGet, base, lb.Key, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodDelete, base, lb.Key, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

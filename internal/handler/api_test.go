package handler_test

import (
	"encoding/gob"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/cinechat/internal/config"
	"github.com/user/cinechat/internal/handler"
	"github.com/user/cinechat/internal/middleware"
	"github.com/user/cinechat/internal/model"
	"github.com/user/cinechat/internal/router"
	"github.com/user/cinechat/internal/utils"
)

func testConfig() *config.Config {
	return &config.Config{
		AppSecret:      "test-secret",
		RapidAPIHost:   "upstream.invalid",
		GeminiAPIKey:   "test-key",
		GeminiModel:    "gemini-2.5-flash",
		DetailCacheTTL: 24 * time.Hour,
		ListCacheTTL:   time.Hour,
		TokenExpiry:    time.Hour,
	}
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.InitCache()

	r := gin.New()
	h := handler.NewHandler(nil, testConfig())
	router.RegisterRoutes(r, h)
	return r
}

// newSessionRouter 带 Cookie Session 的完整路由，生成式模型指向本地桩
func newSessionRouter(t *testing.T, planJSON string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.InitCache()
	gob.Register(model.SessionContext{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		envelope := map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{"parts": []map[string]string{{"text": planJSON}}}},
			},
		}
		_ = json.NewEncoder(w).Encode(envelope)
	}))
	old := utils.GeminiBaseURL
	utils.GeminiBaseURL = server.URL
	t.Cleanup(func() {
		utils.GeminiBaseURL = old
		server.Close()
	})

	r := gin.New()
	r.Use(sessions.Sessions("cinechat_session", cookie.NewStore([]byte("test-session-key"))))
	h := handler.NewHandler(nil, testConfig())
	router.RegisterRoutes(r, h)
	return r
}

func postChat(r *gin.Engine, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type chatEnvelope struct {
	Data struct {
		Reply    string `json:"reply"`
		Context  string `json:"context"`
		FollowUp bool   `json:"follow_up"`
	} `json:"data"`
}

func TestHealthWithoutDatabase(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "disabled")
}

func TestDeviceAuthIssuesToken(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/device", strings.NewReader("{}")))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Token    string `json:"token"`
			DeviceID string `json:"device_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.Token)
	assert.NotEmpty(t, resp.Data.DeviceID)
}

func TestDeviceAuthKeepsProvidedID(t *testing.T) {
	r := newTestRouter(t)

	body := strings.NewReader(`{"device_id":"my-device"}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/device", body))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "my-device")
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"history":[]}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTopMoviesRejectsUnknownService(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/movies/top/hulu", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchRequiresQuery(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/movies/search", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeedbackRequiresToken(t *testing.T) {
	r := newTestRouter(t)

	body := strings.NewReader(`{"type":"bug","content":"algo quebrou"}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/feedback", body))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	// 401 也走统一响应信封
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestFeedbackListRequiresToken(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/feedback", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFeedbackListWithTokenNoDatabase(t *testing.T) {
	r := newTestRouter(t)
	token, err := middleware.GenerateToken("device-1", "test-secret", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/feedback", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
}

func TestChatSessionFallbackWhenHistoryAbsent(t *testing.T) {
	r := newSessionRouter(t, `{"needsMovies":false,"response":"Posso sim! Gosta de sustos?","queries":[],"requestedCount":0}`)

	// 第一轮确立主题，上下文写入 Session
	w1 := postChat(r, `{"message":"quero um filme de terror"}`, nil)
	require.Equal(t, http.StatusOK, w1.Code)

	var r1 chatEnvelope
	require.NoError(t, json.Unmarshal(w1.Body.Bytes(), &r1))
	assert.Equal(t, "terror", r1.Data.Context)
	assert.False(t, r1.Data.FollowUp)

	cookies := w1.Result().Cookies()
	require.NotEmpty(t, cookies, "首轮响应应写入会话 Cookie")

	// 第二轮不带历史，追问应从 Session 恢复主题
	w2 := postChat(r, `{"message":"quero mais 3"}`, cookies)
	require.Equal(t, http.StatusOK, w2.Code)

	var r2 chatEnvelope
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &r2))
	assert.True(t, r2.Data.FollowUp)
	assert.Equal(t, "terror", r2.Data.Context)
}

func TestChatHistoryOverridesSession(t *testing.T) {
	r := newSessionRouter(t, `{"needsMovies":false,"response":"Claro!","queries":[],"requestedCount":0}`)

	w1 := postChat(r, `{"message":"quero um filme de terror"}`, nil)
	require.Equal(t, http.StatusOK, w1.Code)
	cookies := w1.Result().Cookies()
	require.NotEmpty(t, cookies)

	// 客户端带了历史时 Session 不参与，主题取历史里的
	body := `{"message":"quero mais 3","history":[{"role":"assistant","content":"Aqui estão!","context":"comédia"}]}`
	w2 := postChat(r, body, cookies)
	require.Equal(t, http.StatusOK, w2.Code)

	var r2 chatEnvelope
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &r2))
	assert.True(t, r2.Data.FollowUp)
	assert.Equal(t, "comédia", r2.Data.Context)
}

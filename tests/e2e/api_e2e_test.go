package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coupleup/internal/db"
	"github.com/coupleup/internal/handler"
	"github.com/coupleup/internal/ratelimit"
	"github.com/coupleup/internal/router"
	"github.com/coupleup/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type e2eSuite struct {
	engine  *gin.Engine
	gdb     *gorm.DB
	catalog service.SeedCatalog

	alice  authPayload
	bob    authPayload
	solo   authPayload
	google authPayload
}

type authPayload struct {
	AccessToken    string `json:"access_token"`
	RefreshToken   string `json:"refresh_token"`
	UserID         uint   `json:"user_id"`
	CoupleID       uint   `json:"couple_id"`
	CoupleName     string `json:"couple_name"`
	InvitationCode string `json:"invitation_code"`
}

type stubVerifier struct {
	email string
}

func (v *stubVerifier) Verify(_ context.Context, _ string) (string, error) {
	return v.email, nil
}

func TestE2E_API(t *testing.T) {
	s := newE2ESuite(t)

	t.Run("health", s.testHealth)
	t.Run("registration and pairing", s.testRegistrationAndPairing)
	t.Run("request guard", s.testRequestGuard)
	t.Run("mission lifecycle", s.testMissionLifecycle)
	t.Run("scenario acceptance", s.testScenarioAcceptance)
	t.Run("story", s.testStory)
	t.Run("couple view and rate limit", s.testCoupleViewAndRateLimit)
	t.Run("account deletion cascade", s.testAccountDeletionCascade)
}

func newE2ESuite(t *testing.T) *e2eSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	catalog := service.DefaultSeedCatalog()
	if err := service.NewSeedService(gdb).Run(catalog, false); err != nil {
		t.Fatalf("failed to seed catalog: %v", err)
	}

	tokens := service.NewTokenService("e2e-secret", 15*time.Minute, time.Hour)
	api := handler.NewAPI(gdb, tokens, &stubVerifier{email: "google@e2e.test"}, ratelimit.New(nil), handler.Options{
		MaxBodyBytes: 4096,
	})

	return &e2eSuite{
		engine:  router.SetupRouter(api),
		gdb:     gdb,
		catalog: catalog,
	}
}

func (s *e2eSuite) do(t *testing.T, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode json: %v\nbody=%s", err, w.Body.String())
	}
}

func (s *e2eSuite) testHealth(t *testing.T) {
	w := s.do(t, http.MethodGet, "/api/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health body %s", w.Body.String())
	}
}

func (s *e2eSuite) testRegistrationAndPairing(t *testing.T) {
	w := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"username":    "alice@e2e.test",
		"password":    "e2e-password",
		"name":        "Alice",
		"couple_name": "The Pioneers",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register expected 201, got %d, body=%s", w.Code, w.Body.String())
	}
	decodeJSON(t, w, &s.alice)
	if s.alice.AccessToken == "" || s.alice.InvitationCode == "" {
		t.Fatalf("incomplete registration response: %+v", s.alice)
	}

	w = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"username":        "bob@e2e.test",
		"password":        "e2e-password",
		"name":            "Bob",
		"invitation_code": s.alice.InvitationCode,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("join expected 201, got %d, body=%s", w.Code, w.Body.String())
	}
	decodeJSON(t, w, &s.bob)
	if s.bob.CoupleID != s.alice.CoupleID {
		t.Fatalf("expected shared couple, got %d and %d", s.alice.CoupleID, s.bob.CoupleID)
	}

	// 第三人用同一邀请码被拒
	w = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"username":        "carol@e2e.test",
		"password":        "e2e-password",
		"name":            "Carol",
		"invitation_code": s.alice.InvitationCode,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("third joiner expected 409, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"username":    "alice@e2e.test",
		"password":    "e2e-password",
		"name":        "Alice",
		"couple_name": "Duplicates",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate username expected 409, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]interface{}{
		"username": "alice@e2e.test",
		"password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login expected 401, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/refresh", "", map[string]interface{}{
		"refresh_token": s.alice.RefreshToken,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh expected 200, got %d, body=%s", w.Code, w.Body.String())
	}
	var refreshed struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, w, &refreshed)
	if refreshed.AccessToken == "" {
		t.Fatal("refresh returned empty access token")
	}

	w = s.do(t, http.MethodPost, "/api/auth/google/register", "", map[string]interface{}{
		"token":       "stub-id-token",
		"name":        "Googler",
		"couple_name": "Federated",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("google register expected 201, got %d, body=%s", w.Code, w.Body.String())
	}
	decodeJSON(t, w, &s.google)

	w = s.do(t, http.MethodPost, "/api/auth/google/login", "", map[string]interface{}{
		"token": "stub-id-token",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("google login expected 200, got %d", w.Code)
	}
}

func (s *e2eSuite) testRequestGuard(t *testing.T) {
	w := s.do(t, http.MethodGet, "/api/missions", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token expected 401, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/missions", "not-a-token", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token expected 401, got %d", w.Code)
	}

	// 带请求体的方法必须声明 JSON
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("username=alice"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("form body expected 400, got %d", w.Code)
	}

	oversized := map[string]interface{}{
		"username": strings.Repeat("a", 5000),
		"password": "x",
	}
	w2 := s.do(t, http.MethodPost, "/api/auth/login", "", oversized)
	if w2.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized body expected 413, got %d", w2.Code)
	}

	// 分块编码没有 Content-Length，超限同样要回 413
	data, err := json.Marshal(oversized)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	chunked := httptest.NewRequest(http.MethodPost, "/api/auth/login", struct{ io.Reader }{bytes.NewReader(data)})
	chunked.Header.Set("Content-Type", "application/json")
	w3 := httptest.NewRecorder()
	s.engine.ServeHTTP(w3, chunked)
	if w3.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("chunked oversized body expected 413, got %d", w3.Code)
	}
}

func (s *e2eSuite) testMissionLifecycle(t *testing.T) {
	w := s.do(t, http.MethodGet, "/api/missions", s.alice.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list missions expected 200, got %d, body=%s", w.Code, w.Body.String())
	}
	var listed []service.MissionItem
	decodeJSON(t, w, &listed)
	if len(listed) != len(s.catalog.Missions) {
		t.Fatalf("expected %d seeded missions, got %d", len(s.catalog.Missions), len(listed))
	}

	w = s.do(t, http.MethodPost, "/api/missions", s.alice.AccessToken, map[string]interface{}{
		"content":  "<script>alert(1)</script>",
		"category": "Fun",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unsafe mission expected 400, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/missions", s.alice.AccessToken, map[string]interface{}{
		"content":  "Recreate your very first date together",
		"category": "Romance",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create mission expected 201, got %d, body=%s", w.Code, w.Body.String())
	}
	var created service.MissionItem
	decodeJSON(t, w, &created)
	if created.ID == 0 {
		t.Fatal("create mission returned empty id")
	}

	acceptPath := fmt.Sprintf("/api/couples/%d/missions", s.alice.CoupleID)
	w = s.do(t, http.MethodPost, acceptPath, s.alice.AccessToken, map[string]interface{}{"mission_id": created.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("accept expected 201, got %d, body=%s", w.Code, w.Body.String())
	}
	w = s.do(t, http.MethodPost, acceptPath, s.alice.AccessToken, map[string]interface{}{"mission_id": created.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("repeat accept expected 201, got %d", w.Code)
	}

	// 冒用别的 Couple 的路径一律 403
	foreignPath := fmt.Sprintf("/api/couples/%d/missions", s.google.CoupleID)
	w = s.do(t, http.MethodPost, foreignPath, s.alice.AccessToken, map[string]interface{}{"mission_id": created.ID})
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign couple path expected 403, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/missions", s.bob.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list missions expected 200, got %d", w.Code)
	}
	decodeJSON(t, w, &listed)
	found := false
	for _, item := range listed {
		if item.ID == created.ID {
			found = true
			if !item.Accepted {
				t.Fatal("expected partner to see the mission as accepted")
			}
		}
	}
	if !found {
		t.Fatal("partner cannot see the couple's own mission")
	}

	unacceptPath := fmt.Sprintf("/api/couples/%d/missions/%d", s.alice.CoupleID, created.ID)
	w = s.do(t, http.MethodDelete, unacceptPath, s.alice.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unaccept expected 200, got %d", w.Code)
	}
	w = s.do(t, http.MethodDelete, unacceptPath, s.alice.AccessToken, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("repeat unaccept expected 404, got %d", w.Code)
	}

	deletePath := fmt.Sprintf("/api/missions/%d", created.ID)
	w = s.do(t, http.MethodDelete, deletePath, s.google.AccessToken, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign delete expected 403, got %d", w.Code)
	}
	w = s.do(t, http.MethodDelete, deletePath, s.bob.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("partner delete expected 200, got %d", w.Code)
	}
}

func (s *e2eSuite) testScenarioAcceptance(t *testing.T) {
	w := s.do(t, http.MethodPost, "/api/scenarios", s.alice.AccessToken, map[string]interface{}{
		"setting": "A tiny kitchen at midnight",
		"roles":   []string{"The chef", "The critic"},
		"prompt":  "One of you has to defend a very strange sandwich.",
		"time":    "11:45 PM",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create scenario expected 201, got %d, body=%s", w.Code, w.Body.String())
	}
	var created service.ScenarioItem
	decodeJSON(t, w, &created)

	acceptPath := fmt.Sprintf("/api/couples/%d/scenarios", s.alice.CoupleID)
	w = s.do(t, http.MethodPost, acceptPath, s.bob.AccessToken, map[string]interface{}{"scenario_id": created.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("accept scenario expected 201, got %d, body=%s", w.Code, w.Body.String())
	}

	// 别的 Couple 看不见这条自建场景
	w = s.do(t, http.MethodGet, "/api/scenarios", s.google.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list scenarios expected 200, got %d", w.Code)
	}
	var listed []service.ScenarioItem
	decodeJSON(t, w, &listed)
	for _, item := range listed {
		if item.ID == created.ID {
			t.Fatal("private scenario leaked to another couple")
		}
	}
}

func (s *e2eSuite) testStory(t *testing.T) {
	w := s.do(t, http.MethodPost, "/api/story/start", s.alice.AccessToken, map[string]interface{}{})
	if w.Code != http.StatusOK {
		t.Fatalf("story start expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPost, "/api/story/start", s.bob.AccessToken, map[string]interface{}{})
	if w.Code != http.StatusConflict {
		t.Fatalf("second story start expected 409, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/story/progress", s.alice.AccessToken, map[string]interface{}{
		"page_number": 0,
		"fun_level":   8,
		"comments":    "A lovely first page",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("story progress expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/story/status", s.bob.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("story status expected 200, got %d", w.Code)
	}
	var status struct {
		CurrentPage    int                     `json:"current_page"`
		StartedAt      string                  `json:"started_at"`
		CompletedPages []service.CompletedPage `json:"completed_pages"`
	}
	decodeJSON(t, w, &status)
	if status.CurrentPage != 1 {
		t.Fatalf("expected cursor at 1, got %d", status.CurrentPage)
	}
	if len(status.CompletedPages) != 1 || status.CompletedPages[0].FunLevel != 8 {
		t.Fatalf("unexpected completed pages: %+v", status.CompletedPages)
	}
}

func (s *e2eSuite) testCoupleViewAndRateLimit(t *testing.T) {
	w := s.do(t, http.MethodGet, "/api/couple", s.alice.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("couple view expected 200, got %d, body=%s", w.Code, w.Body.String())
	}
	var view struct {
		CoupleName     string   `json:"couple_name"`
		InvitationCode string   `json:"invitation_code"`
		Users          []string `json:"users"`
	}
	decodeJSON(t, w, &view)
	if view.CoupleName != "The Pioneers" {
		t.Fatalf("unexpected couple name %q", view.CoupleName)
	}
	if len(view.Users) != 2 {
		t.Fatalf("expected 2 members, got %v", view.Users)
	}

	// 配额耗尽后拿 429 和 Retry-After
	w = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"username":    "burst@e2e.test",
		"password":    "e2e-password",
		"name":        "Burst",
		"couple_name": "Speedrunners",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("burst register expected 201, got %d", w.Code)
	}
	decodeJSON(t, w, &s.solo)

	var last *httptest.ResponseRecorder
	for i := 0; i < 16; i++ {
		last = s.do(t, http.MethodGet, "/api/couple", s.solo.AccessToken, nil)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("16th couple view expected 429, got %d", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on 429")
	}
	if !strings.Contains(last.Body.String(), "retry_after_seconds") {
		t.Fatalf("unexpected 429 body: %s", last.Body.String())
	}
}

func (s *e2eSuite) testAccountDeletionCascade(t *testing.T) {
	w := s.do(t, http.MethodPost, "/api/missions", s.google.AccessToken, map[string]interface{}{
		"content":  "A mission that should not outlive its couple",
		"category": "Fun",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create mission expected 201, got %d", w.Code)
	}

	w = s.do(t, http.MethodDelete, "/api/users/delete", s.google.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete user expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	var users, couples, missions int64
	s.gdb.Model(&db.User{}).Where("couple_id = ?", s.google.CoupleID).Count(&users)
	s.gdb.Model(&db.Couple{}).Where("id = ?", s.google.CoupleID).Count(&couples)
	s.gdb.Model(&db.Mission{}).Where("created_by = ?", s.google.CoupleID).Count(&missions)
	if users != 0 || couples != 0 || missions != 0 {
		t.Fatalf("cascade incomplete: users=%d couples=%d missions=%d", users, couples, missions)
	}

	// 令牌仍有效但主体已不存在
	w = s.do(t, http.MethodGet, "/api/couple", s.google.AccessToken, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("view after deletion expected 404, got %d", w.Code)
	}
}

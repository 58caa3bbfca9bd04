package businesses

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"venture-backend/internal/shared/server/middleware"
)

func setupBusinessRouter(t *testing.T) (*gin.Engine, *MemoryRepo, *stubRunner) {
	t.Helper()
	repo := NewMemoryRepo()
	runner := &stubRunner{}
	svc := &Service{Repo: repo, Runner: runner, KickoffDelay: time.Second}
	handler := NewHandler(svc)

	router := gin.New()
	router.Use(middleware.Auth("dev"))
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return router, repo, runner
}

func guestRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("X-Guest-Id", "test-guest")
	return req
}

func TestCreateBusinessEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router, repo, runner := setupBusinessRouter(t)

	payload, _ := json.Marshal(map[string]string{
		"name":        "Acme Coffee",
		"industry":    "food",
		"stage":       "idea",
		"description": "specialty coffee roastery",
	})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, guestRequest(http.MethodPost, "/api/v1/businesses", payload))

	if resp.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", resp.Code, resp.Body.String())
	}
	var created BusinessResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.BusinessID == "" {
		t.Fatal("missing businessId")
	}
	if len(created.StatusMap) != 4 {
		t.Fatalf("statusMap = %v, want all four kinds", created.StatusMap)
	}
	for kind, state := range created.StatusMap {
		if state != string(StatePending) {
			t.Fatalf("kind %s state %s, want pending", kind, state)
		}
	}
	if created.Results != nil {
		t.Fatal("creation response must not include results")
	}

	runner.mu.Lock()
	scheduled := len(runner.ids)
	runner.mu.Unlock()
	if scheduled != 1 {
		t.Fatalf("scheduled runs = %d, want 1", scheduled)
	}

	if _, err := repo.GetByID(context.Background(), "guest:test-guest", created.BusinessID); err != nil {
		t.Fatalf("business not persisted for guest owner: %v", err)
	}
}

func TestCreateBusinessValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router, _, runner := setupBusinessRouter(t)

	payload, _ := json.Marshal(map[string]string{"industry": "food"})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, guestRequest(http.MethodPost, "/api/v1/businesses", payload))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.ids) != 0 {
		t.Fatal("invalid create must not schedule a run")
	}
}

func TestGetBusinessDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router, repo, _ := setupBusinessRouter(t)
	business := Business{
		ID:        "biz-1",
		OwnerID:   "guest:test-guest",
		Name:      "Acme Coffee",
		Statuses:  NewStatusMap(),
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), business); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.UpdateStatus(context.Background(), "biz-1", KindMarketAnalysis, StateCompleted); err != nil {
		t.Fatalf("seed status: %v", err)
	}
	if err := repo.SetResult(context.Background(), "biz-1", KindMarketAnalysis, json.RawMessage(`{"tam":"large"}`)); err != nil {
		t.Fatalf("seed result: %v", err)
	}
	// A stale payload under a failed kind must not leak into the response.
	if err := repo.SetResult(context.Background(), "biz-1", KindWebsiteBrief, json.RawMessage(`{"old":true}`)); err != nil {
		t.Fatalf("seed stale result: %v", err)
	}
	if err := repo.UpdateStatus(context.Background(), "biz-1", KindWebsiteBrief, StateFailed); err != nil {
		t.Fatalf("seed failed status: %v", err)
	}
	if err := repo.AppendInteraction(context.Background(), "biz-1", "Business profile created"); err != nil {
		t.Fatalf("seed interaction: %v", err)
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, guestRequest(http.MethodGet, "/api/v1/businesses/biz-1", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	var detail BusinessResponse
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(detail.Results[string(KindMarketAnalysis)]) != `{"tam":"large"}` {
		t.Fatalf("completed result missing: %v", detail.Results)
	}
	if _, ok := detail.Results[string(KindWebsiteBrief)]; ok {
		t.Fatal("failed kind exposed a stale result")
	}
	if len(detail.Interactions) != 1 {
		t.Fatalf("interactionLog = %+v, want 1 entry", detail.Interactions)
	}
}

func TestGetBusinessWrongOwner(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router, repo, _ := setupBusinessRouter(t)
	business := Business{
		ID:       "biz-1",
		OwnerID:  "guest:someone-else",
		Name:     "Private",
		Statuses: NewStatusMap(),
	}
	if err := repo.Create(context.Background(), business); err != nil {
		t.Fatalf("create: %v", err)
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, guestRequest(http.MethodGet, "/api/v1/businesses/biz-1", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.Code)
	}
}

func TestListBusinesses(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router, repo, _ := setupBusinessRouter(t)
	base := time.Now().UTC()
	for i, id := range []string{"biz-a", "biz-b"} {
		business := Business{
			ID:        id,
			OwnerID:   "guest:test-guest",
			Name:      id,
			Statuses:  NewStatusMap(),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(context.Background(), business); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, guestRequest(http.MethodGet, "/api/v1/businesses", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	var list []BusinessResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].BusinessID != "biz-b" {
		t.Fatalf("order = %s first, want newest (biz-b)", list[0].BusinessID)
	}
}

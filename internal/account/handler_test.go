package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"venture-backend/internal/businesses"
	"venture-backend/internal/shared/auth"
	"venture-backend/internal/shared/server/middleware"
)

func setupAccountRouter(t *testing.T) (*gin.Engine, *businesses.MemoryRepo) {
	t.Helper()
	repo := businesses.NewMemoryRepo()
	handler := NewHandler(NewService(repo))

	router := gin.New()
	router.Use(middleware.Auth("dev"))
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return router, repo
}

func seedGuestBusiness(t *testing.T, repo *businesses.MemoryRepo, id, ownerID string) {
	t.Helper()
	business := businesses.Business{
		ID:        id,
		OwnerID:   ownerID,
		Name:      "Acme Coffee",
		Statuses:  businesses.NewStatusMap(),
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), business); err != nil {
		t.Fatalf("create business: %v", err)
	}
}

func signedToken(t *testing.T) string {
	t.Helper()
	token, err := auth.SignJWT(auth.Claims{Sub: "google:123", Email: "owner@example.com"})
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}
	return token
}

func TestClaimGuestMigratesBusinesses(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router, repo := setupAccountRouter(t)
	guestID := "3f6f3cb2-76a4-4a9e-9c5a-2f9d1d9e2a10"
	seedGuestBusiness(t, repo, "biz-1", "guest:"+guestID)
	seedGuestBusiness(t, repo, "biz-2", "guest:"+guestID)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t))
	req.Header.Set("X-Guest-Id", guestID)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	var result ClaimResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.MigratedBusinesses != 2 {
		t.Fatalf("migrated = %d, want 2", result.MigratedBusinesses)
	}
	if _, err := repo.GetByID(context.Background(), "google:123", "biz-1"); err != nil {
		t.Fatalf("claimed business not reachable by new owner: %v", err)
	}
}

func TestClaimGuestRequiresLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router, _ := setupAccountRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
	req.Header.Set("X-Guest-Id", "3f6f3cb2-76a4-4a9e-9c5a-2f9d1d9e2a10")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.Code)
	}
}

func TestClaimGuestValidatesHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router, _ := setupAccountRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t))
	req.Header.Set("X-Guest-Id", "not-a-uuid")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

package businesses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func seedMemoryBusiness(t *testing.T, repo *MemoryRepo, id, ownerID string) Business {
	t.Helper()
	business := Business{
		ID:        id,
		OwnerID:   ownerID,
		Name:      "Acme Coffee",
		Statuses:  NewStatusMap(),
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), business); err != nil {
		t.Fatalf("create business: %v", err)
	}
	return business
}

func TestMemoryRepoOwnerScoping(t *testing.T) {
	repo := NewMemoryRepo()
	seedMemoryBusiness(t, repo, "biz-1", "owner-1")

	if _, err := repo.GetByID(context.Background(), "owner-1", "biz-1"); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), "owner-2", "biz-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign owner lookup: err = %v, want ErrNotFound", err)
	}
	if _, err := repo.Get(context.Background(), "biz-1"); err != nil {
		t.Fatalf("unscoped lookup: %v", err)
	}
}

func TestMemoryRepoUpdateStatusLeavesOtherKindsAlone(t *testing.T) {
	repo := NewMemoryRepo()
	seedMemoryBusiness(t, repo, "biz-1", "owner-1")

	if err := repo.UpdateStatus(context.Background(), "biz-1", KindMarketAnalysis, StateCompleted); err != nil {
		t.Fatalf("update status: %v", err)
	}

	got, _ := repo.Get(context.Background(), "biz-1")
	if got.Statuses.Get(KindMarketAnalysis) != StateCompleted {
		t.Fatalf("updated kind not applied")
	}
	for _, kind := range AllKinds()[1:] {
		if got.Statuses.Get(kind) != StatePending {
			t.Fatalf("kind %s changed unexpectedly to %s", kind, got.Statuses.Get(kind))
		}
	}
}

func TestMemoryRepoConcurrentKindWritesDoNotClobber(t *testing.T) {
	repo := NewMemoryRepo()
	seedMemoryBusiness(t, repo, "biz-1", "owner-1")

	var wg sync.WaitGroup
	for i, kind := range AllKinds() {
		wg.Add(1)
		go func(i int, kind AnalysisKind) {
			defer wg.Done()
			payload := json.RawMessage(fmt.Sprintf(`{"n":%d}`, i))
			if err := repo.SetResult(context.Background(), "biz-1", kind, payload); err != nil {
				t.Errorf("set result %s: %v", kind, err)
			}
			if err := repo.UpdateStatus(context.Background(), "biz-1", kind, StateCompleted); err != nil {
				t.Errorf("update status %s: %v", kind, err)
			}
		}(i, kind)
	}
	wg.Wait()

	got, _ := repo.Get(context.Background(), "biz-1")
	for i, kind := range AllKinds() {
		if got.Statuses.Get(kind) != StateCompleted {
			t.Fatalf("kind %s lost its status update", kind)
		}
		want := fmt.Sprintf(`{"n":%d}`, i)
		if string(got.Results.Get(kind)) != want {
			t.Fatalf("kind %s result = %s, want %s", kind, got.Results.Get(kind), want)
		}
	}
}

func TestMemoryRepoClearResult(t *testing.T) {
	repo := NewMemoryRepo()
	seedMemoryBusiness(t, repo, "biz-1", "owner-1")

	for _, kind := range AllKinds() {
		if err := repo.SetResult(context.Background(), "biz-1", kind, json.RawMessage(`{}`)); err != nil {
			t.Fatalf("set result: %v", err)
		}
	}
	if err := repo.ClearResult(context.Background(), "biz-1", KindWebsiteBrief); err != nil {
		t.Fatalf("clear result: %v", err)
	}

	got, _ := repo.Get(context.Background(), "biz-1")
	if got.Results.Get(KindWebsiteBrief) != nil {
		t.Fatalf("cleared kind still has a result")
	}
	for _, kind := range AllKinds()[:3] {
		if got.Results.Get(kind) == nil {
			t.Fatalf("kind %s result cleared unexpectedly", kind)
		}
	}

	if err := repo.ClearResults(context.Background(), "biz-1"); err != nil {
		t.Fatalf("clear results: %v", err)
	}
	got, _ = repo.Get(context.Background(), "biz-1")
	for _, kind := range AllKinds() {
		if got.Results.Get(kind) != nil {
			t.Fatalf("kind %s result survived ClearResults", kind)
		}
	}
}

func TestMemoryRepoListByOwnerNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		business := Business{
			ID:        fmt.Sprintf("biz-%d", i),
			OwnerID:   "owner-1",
			Name:      fmt.Sprintf("Business %d", i),
			Statuses:  NewStatusMap(),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(context.Background(), business); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	seedMemoryBusiness(t, repo, "other", "owner-2")

	list, err := repo.ListByOwner(context.Background(), "owner-1", 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].ID != "biz-2" || list[1].ID != "biz-1" {
		t.Fatalf("order = %s, %s; want biz-2, biz-1", list[0].ID, list[1].ID)
	}

	rest, err := repo.ListByOwner(context.Background(), "owner-1", 2, 2)
	if err != nil {
		t.Fatalf("list offset: %v", err)
	}
	if len(rest) != 1 || rest[0].ID != "biz-0" {
		t.Fatalf("offset page = %+v, want [biz-0]", rest)
	}
}

func TestMemoryRepoMutateUnknownBusiness(t *testing.T) {
	repo := NewMemoryRepo()
	if err := repo.UpdateStatus(context.Background(), "missing", KindMarketAnalysis, StateFailed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := repo.AppendInteraction(context.Background(), "missing", "hello"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepoClaimGuest(t *testing.T) {
	repo := NewMemoryRepo()
	seedMemoryBusiness(t, repo, "biz-1", "guest:abc")
	seedMemoryBusiness(t, repo, "biz-2", "guest:abc")
	seedMemoryBusiness(t, repo, "biz-3", "owner-2")

	count, err := repo.ClaimGuest(context.Background(), "guest:abc", "owner-1")
	if err != nil {
		t.Fatalf("claim guest: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	if _, err := repo.GetByID(context.Background(), "owner-1", "biz-1"); err != nil {
		t.Fatalf("claimed business not owned: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), "owner-2", "biz-3"); err != nil {
		t.Fatalf("unrelated business touched: %v", err)
	}
}

package businesses

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubRunner struct {
	mu     sync.Mutex
	ids    []string
	delays []time.Duration
}

func (r *stubRunner) RunAllDeferred(businessID string, delay time.Duration) {
	r.mu.Lock()
	r.ids = append(r.ids, businessID)
	r.delays = append(r.delays, delay)
	r.mu.Unlock()
}

func TestCreateSchedulesKickoff(t *testing.T) {
	repo := NewMemoryRepo()
	runner := &stubRunner{}
	svc := &Service{Repo: repo, Runner: runner, KickoffDelay: 2 * time.Second}

	business, err := svc.Create(context.Background(), "owner-1", CreateInput{
		Name:        "  Acme Coffee  ",
		Industry:    "food",
		Stage:       "idea",
		Description: "specialty coffee roastery",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if business.Name != "Acme Coffee" {
		t.Fatalf("name = %q, want trimmed", business.Name)
	}
	for _, kind := range AllKinds() {
		if business.Statuses.Get(kind) != StatePending {
			t.Fatalf("kind %s state %s, want pending", kind, business.Statuses.Get(kind))
		}
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.ids) != 1 || runner.ids[0] != business.ID {
		t.Fatalf("runner ids = %v, want [%s]", runner.ids, business.ID)
	}
	if runner.delays[0] != 2*time.Second {
		t.Fatalf("kickoff delay = %v, want 2s", runner.delays[0])
	}

	got, err := repo.GetByID(context.Background(), "owner-1", business.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Interactions) != 1 || got.Interactions[0].Message != "Business profile created" {
		t.Fatalf("interactions = %+v, want creation entry", got.Interactions)
	}
}

func TestCreateRequiresName(t *testing.T) {
	repo := NewMemoryRepo()
	svc := &Service{Repo: repo, Runner: &stubRunner{}}

	_, err := svc.Create(context.Background(), "owner-1", CreateInput{Name: "   "})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestCreateWithoutRunner(t *testing.T) {
	repo := NewMemoryRepo()
	svc := &Service{Repo: repo}

	if _, err := svc.Create(context.Background(), "owner-1", CreateInput{Name: "Acme"}); err != nil {
		t.Fatalf("create without runner: %v", err)
	}
}

func TestGetRequiresID(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo()}
	if _, err := svc.Get(context.Background(), "owner-1", ""); err == nil {
		t.Fatal("expected error for empty business id")
	}
}

package businesses

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMockRepo(t)

	business := Business{
		ID:          "b7a1c9f2-0b64-4c11-9e34-5f6a7b8c9d00",
		OwnerID:     "owner-1",
		Name:        "Acme Coffee",
		Industry:    "food",
		Stage:       "idea",
		Description: "specialty coffee roastery",
		Statuses:    NewStatusMap(),
		CreatedAt:   time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO businesses").
		WithArgs(
			business.ID,
			business.OwnerID,
			business.Name,
			business.Industry,
			business.Stage,
			business.Description,
			sqlmock.AnyArg(), // status_map
			sqlmock.AnyArg(), // results
			sqlmock.AnyArg(), // created_at
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), business); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateStatusScopedToOneKind(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE businesses").
		WithArgs("biz-1", string(KindMarketAnalysis), string(StateCompleted)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateStatus(context.Background(), "biz-1", KindMarketAnalysis, StateCompleted); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateStatusesMergesBatch(t *testing.T) {
	repo, mock := newMockRepo(t)

	states := map[AnalysisKind]AnalysisState{
		KindMarketAnalysis:     StateInProgress,
		KindCompetitorAnalysis: StateInProgress,
	}
	patch, _ := json.Marshal(map[string]string{
		string(KindMarketAnalysis):     string(StateInProgress),
		string(KindCompetitorAnalysis): string(StateInProgress),
	})

	mock.ExpectExec("UPDATE businesses").
		WithArgs("biz-1", patch).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateStatuses(context.Background(), "biz-1", states); err != nil {
		t.Fatalf("UpdateStatuses: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateStatusesEmptyBatchIsNoop(t *testing.T) {
	repo, mock := newMockRepo(t)

	if err := repo.UpdateStatuses(context.Background(), "biz-1", nil); err != nil {
		t.Fatalf("UpdateStatuses: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoSetResult(t *testing.T) {
	repo, mock := newMockRepo(t)

	payload := json.RawMessage(`{"tam":"large"}`)
	mock.ExpectExec("UPDATE businesses").
		WithArgs("biz-1", string(KindMarketAnalysis), []byte(payload)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetResult(context.Background(), "biz-1", KindMarketAnalysis, payload); err != nil {
		t.Fatalf("SetResult: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateStatusUnknownBusiness(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE businesses").
		WithArgs("missing", string(KindMarketAnalysis), string(StateFailed)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", KindMarketAnalysis, StateFailed)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDScansJSONColumns(t *testing.T) {
	repo, mock := newMockRepo(t)

	statuses := NewStatusMap()
	statuses.Set(KindMarketAnalysis, StateCompleted)
	statusPayload, _ := json.Marshal(statuses)
	resultsPayload := []byte(`{"market_analysis":{"tam":"large"}}`)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "owner_id", "name", "industry", "stage", "description",
		"status_map", "results", "created_at", "updated_at",
	}).AddRow(
		"biz-1", "owner-1", "Acme Coffee", "food", "idea", "roastery",
		statusPayload, resultsPayload, now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM businesses").
		WithArgs("biz-1", "owner-1").
		WillReturnRows(rows)

	interactionRows := sqlmock.NewRows([]string{"message", "created_at"}).
		AddRow("Business profile created", now)
	mock.ExpectQuery("SELECT message, created_at").
		WithArgs("biz-1").
		WillReturnRows(interactionRows)

	business, err := repo.GetByID(context.Background(), "owner-1", "biz-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if business.Statuses.Get(KindMarketAnalysis) != StateCompleted {
		t.Fatalf("status not scanned from jsonb")
	}
	if string(business.Results.Get(KindMarketAnalysis)) != `{"tam":"large"}` {
		t.Fatalf("result not scanned from jsonb: %s", business.Results.Get(KindMarketAnalysis))
	}
	if len(business.Interactions) != 1 {
		t.Fatalf("interactions = %d, want 1", len(business.Interactions))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM businesses").
		WithArgs("missing", "owner-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "owner_id", "name", "industry", "stage", "description",
			"status_map", "results", "created_at", "updated_at",
		}))

	_, err := repo.GetByID(context.Background(), "owner-1", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGRepoClaimGuest(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE businesses").
		WithArgs("owner-1", "guest:abc").
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := repo.ClaimGuest(context.Background(), "guest:abc", "owner-1")
	if err != nil {
		t.Fatalf("ClaimGuest: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

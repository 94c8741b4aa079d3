package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/finqlabs/finretriever/internal/core/domain"
	"github.com/finqlabs/finretriever/internal/core/index"
)

type failingEntityRepo struct{}

func (failingEntityRepo) ReplaceForDocument(context.Context, string, []domain.TableEntity) error {
	return nil
}

func (failingEntityRepo) ListAll(context.Context) ([]domain.TableEntity, error) {
	return nil, errors.New("pg down")
}

func TestRefreshSwapsNewGeneration(t *testing.T) {
	entities := &fakeEntityRepo{}
	if err := entities.ReplaceForDocument(context.Background(), "doc-1", q2Entities()); err != nil {
		t.Fatalf("seed entities: %v", err)
	}

	provider := index.NewProvider()
	r := NewIndexRefresher(entities, provider, quietLogger(), 0)

	before := provider.Current()
	if before.Len() != 0 {
		t.Fatalf("expected empty initial snapshot, got %d entities", before.Len())
	}

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	after := provider.Current()
	if after.Len() != len(q2Entities()) {
		t.Fatalf("snapshot size = %d, want %d", after.Len(), len(q2Entities()))
	}
	// The generation the earlier reader holds is untouched.
	if before.Len() != 0 {
		t.Fatalf("previous generation mutated: %d entities", before.Len())
	}
}

func TestRefreshFailureKeepsCurrentGeneration(t *testing.T) {
	provider := index.NewProvider()
	provider.Swap(index.New(q2Entities()))
	r := NewIndexRefresher(failingEntityRepo{}, provider, quietLogger(), 0)

	if err := r.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error when listing entities fails")
	}
	if provider.Current().Len() != len(q2Entities()) {
		t.Fatalf("live snapshot changed after failed refresh: %d entities", provider.Current().Len())
	}
}

func TestRefreshNotifiesSnapshotObserver(t *testing.T) {
	entities := &fakeEntityRepo{}
	if err := entities.ReplaceForDocument(context.Background(), "doc-1", q2Entities()); err != nil {
		t.Fatalf("seed entities: %v", err)
	}

	r := NewIndexRefresher(entities, index.NewProvider(), quietLogger(), 0)
	var observed []int
	r.SetSnapshotObserver(func(entityCount int) {
		observed = append(observed, entityCount)
	})

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if len(observed) != 1 || observed[0] != len(q2Entities()) {
		t.Fatalf("observer calls = %v, want one call with %d", observed, len(q2Entities()))
	}
}

func TestRefreshFailureSkipsSnapshotObserver(t *testing.T) {
	r := NewIndexRefresher(failingEntityRepo{}, index.NewProvider(), quietLogger(), 0)
	called := false
	r.SetSnapshotObserver(func(int) { called = true })

	if err := r.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error when listing entities fails")
	}
	if called {
		t.Fatal("observer fired for a failed refresh")
	}
}

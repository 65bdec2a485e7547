package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"trendspotter/internal/database"
	"trendspotter/internal/ensemble"
	"trendspotter/internal/report/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	b, err := bolt.Open(filepath.Join(t.TempDir(), "test.db"), 0600, nil)
	if err != nil {
		t.Fatalf("open bolt: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return New(&database.DB{DB: b})
}

func TestStoreFind(t *testing.T) {
	db := newTestDB(t)
	report := model.New("orders.csv", nil, &ensemble.Report{
		Rows:     2,
		Verdicts: []ensemble.Verdict{{Score: 0.1}, {Score: 0.9, Outlier: true, Methods: []string{"z_score", "iqr"}}},
	})

	if err := db.Store(context.Background(), report); err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}

	found, err := db.Find(context.Background(), report.ID)
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if found.ID != report.ID {
		t.Errorf("find report, got: %v, expected: %v", found.ID, report.ID)
	}
	if found.Anomalies() != 1 {
		t.Errorf("anomalies, got: %d, expected: 1", found.Anomalies())
	}
}

func TestFindNotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.Find(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestKeys(t *testing.T) {
	db := newTestDB(t)
	first := model.New("a.csv", nil, &ensemble.Report{})
	second := model.New("b.csv", nil, &ensemble.Report{})
	for _, report := range []model.Report{first, second} {
		if err := db.Store(context.Background(), report); err != nil {
			t.Fatalf("the error should not be returned: %v", err)
		}
	}
	keys, err := db.Keys()
	if err != nil {
		t.Fatalf("the error should not be returned: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("stored keys, got: %d, expected: 2", len(keys))
	}
}

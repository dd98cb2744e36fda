package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alinaaved/snippet-review/internal/config"
	"github.com/alinaaved/snippet-review/internal/logger"
	"github.com/alinaaved/snippet-review/internal/store"
)

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "service.sqlite"),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := store.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store.New(db)
}

func setupService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st := setupStore(t)
	return New(st, logger.Nop()), st
}

func intPtr(v int) *int { return &v }

func mustAdd(t *testing.T, svc *Service, maxReviews int) string {
	t.Helper()
	sn, err := svc.AddSnippet(context.Background(), SnippetInput{
		Title:      "sum",
		Code:       "func sum(a, b int) int {\n\treturn a + b\n}",
		Language:   "go",
		MaxReviews: intPtr(maxReviews),
	})
	if err != nil {
		t.Fatalf("add snippet: %v", err)
	}
	return sn.ID
}

func validReview(snippetID, email string) ReviewInput {
	return ReviewInput{
		SnippetID:         snippetID,
		ReviewerEmail:     email,
		ReviewerName:      "Reviewer",
		YearsOfExperience: intPtr(3),
		Position:          "backend engineer",
		GeneralComment:    "ok overall",
		LineReviews: []LineReviewInput{
			{LineNumber: intPtr(2), Comment: "return could be inlined", Category: "style"},
		},
	}
}

func requireCode(t *testing.T, err error, kind Kind, code string) *Error {
	t.Helper()
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("want *service.Error %s, got %v", code, err)
	}
	if se.Kind != kind || se.Code != code {
		t.Fatalf("want %s/%s, got %s/%s (%s)", kind, code, se.Kind, se.Code, se.Message)
	}
	return se
}

// Package service содержит бизнес-логику исследования: выбор сниппета,
// приём отзывов с квотой, статистику, экспорт и загрузку сниппетов
package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/alinaaved/snippet-review/internal/logger"
	"github.com/alinaaved/snippet-review/internal/model"
)

// Repository описывает операции хранилища, которые нужны сервису
type Repository interface {
	CreateSnippets(ctx context.Context, items []model.SnippetDB) error
	GetSnippet(ctx context.Context, id string) (model.SnippetDB, error)
	HasReviewed(ctx context.Context, snippetID, email string) (bool, error)
	RandomEligibleSnippet(ctx context.Context, email string) (model.SnippetDB, error)
	RecordReview(ctx context.Context, r *model.ReviewDB) (model.SnippetDB, error)
	CountSnippets(ctx context.Context, completed *bool) (int64, error)
	CountReviews(ctx context.Context) (int64, error)
	CountDistinctReviewers(ctx context.Context) (int64, error)
	ListSnippets(ctx context.Context) ([]model.SnippetDB, error)
	ListReviews(ctx context.Context, newestFirst bool) ([]model.ReviewDB, error)
}

// Service не хранит состояния между запросами, единственный источник истины это Repository
type Service struct {
	repo  Repository
	log   *logger.Logger
	newID func() string
}

// New создаёт Service
func New(repo Repository, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, log: log.With("component", "service"), newID: uuid.NewString}
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

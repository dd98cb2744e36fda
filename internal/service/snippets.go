package service

import (
	"context"
	"errors"
	"strings"

	"github.com/alinaaved/snippet-review/internal/model"
	"github.com/alinaaved/snippet-review/internal/store"
)

// SnippetInput — входные данные для создания сниппета.
// MaxReviews nil или <= 0 заменяется на model.DefaultMaxReviews.
type SnippetInput struct {
	Title      string `json:"title"`
	Code       string `json:"code"`
	Language   string `json:"language"`
	MaxReviews *int   `json:"maxReviews"`
}

// BulkResult — итог пакетной загрузки
type BulkResult struct {
	AddedCount    int
	TotalProvided int
}

func (in SnippetInput) valid() bool {
	return strings.TrimSpace(in.Title) != "" &&
		strings.TrimSpace(in.Code) != "" &&
		strings.TrimSpace(in.Language) != ""
}

func (s *Service) toSnippet(in SnippetInput) model.SnippetDB {
	maxReviews := model.DefaultMaxReviews
	if in.MaxReviews != nil && *in.MaxReviews > 0 {
		maxReviews = *in.MaxReviews
	}
	return model.SnippetDB{
		ID:         s.newID(),
		Title:      strings.TrimSpace(in.Title),
		Code:       in.Code,
		Language:   strings.TrimSpace(in.Language),
		MaxReviews: maxReviews,
	}
}

// AddSnippet создаёт один сниппет
func (s *Service) AddSnippet(ctx context.Context, in SnippetInput) (model.SnippetDB, error) {
	if !in.valid() {
		return model.SnippetDB{}, validation(CodeMissingField, "title, code and language are required")
	}
	sn := s.toSnippet(in)
	if err := s.repo.CreateSnippets(ctx, []model.SnippetDB{sn}); err != nil {
		return model.SnippetDB{}, s.storeErr("create snippet", err)
	}
	s.log.Info("snippet added", "snippet_id", sn.ID, "language", sn.Language, "max_reviews", sn.MaxReviews)
	saved, err := s.repo.GetSnippet(ctx, sn.ID)
	if err != nil {
		return model.SnippetDB{}, s.storeErr("reload snippet", err)
	}
	return saved, nil
}

// AddSnippetsBulk молча отбрасывает элементы без title/code/language;
// если не осталось ни одного — NO_VALID_ITEMS и ничего не пишется
func (s *Service) AddSnippetsBulk(ctx context.Context, items []SnippetInput) (BulkResult, error) {
	res := BulkResult{TotalProvided: len(items)}
	batch := make([]model.SnippetDB, 0, len(items))
	for _, in := range items {
		if in.valid() {
			batch = append(batch, s.toSnippet(in))
		}
	}
	if len(batch) == 0 {
		return res, validation(CodeNoValidItems, "no valid code snippets provided")
	}
	if err := s.repo.CreateSnippets(ctx, batch); err != nil {
		return res, s.storeErr("create snippets", err)
	}
	res.AddedCount = len(batch)
	s.log.Info("snippets bulk added", "added", res.AddedCount, "provided", res.TotalProvided)
	return res, nil
}

// SelectForReview возвращает случайный сниппет, доступный участнику.
// "Сниппетов нет вообще" и "все уже просмотрены" — одна и та же ошибка
// NOT_AVAILABLE, различается только текст.
func (s *Service) SelectForReview(ctx context.Context, email string) (model.SnippetDB, error) {
	email = normalizeEmail(email)
	if email == "" {
		return model.SnippetDB{}, validation(CodeMissingEmail, "email is required")
	}
	sn, err := s.repo.RandomEligibleSnippet(ctx, email)
	if err == nil {
		return sn, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.SnippetDB{}, s.storeErr("pick snippet", err)
	}

	total, cerr := s.repo.CountSnippets(ctx, nil)
	if cerr != nil {
		return model.SnippetDB{}, s.storeErr("count snippets", cerr)
	}
	if total == 0 {
		return model.SnippetDB{}, notFound(CodeNotAvailable, "no code snippets available for review yet")
	}
	return model.SnippetDB{}, notFound(CodeNotAvailable,
		"no code snippets available for review: you have reviewed all available snippets or they have reached their review limit")
}

// ListSnippets отдаёт все сниппеты, новые первыми
func (s *Service) ListSnippets(ctx context.Context) ([]model.SnippetDB, error) {
	out, err := s.repo.ListSnippets(ctx)
	if err != nil {
		return nil, s.storeErr("list snippets", err)
	}
	return out, nil
}

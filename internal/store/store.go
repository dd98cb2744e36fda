package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alinaaved/snippet-review/internal/model"
)

// Store инкапсулирует *gorm.DB; все операции принимают context
type Store struct{ db *gorm.DB }

// New создаёт Store
func New(db *gorm.DB) *Store { return &Store{db: db} }

// CreateSnippets вставляет сниппеты одной пачкой
func (s *Store) CreateSnippets(ctx context.Context, items []model.SnippetDB) error {
	if len(items) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).CreateInBatches(&items, 100).Error; err != nil {
		return fmt.Errorf("create snippets: %w", err)
	}
	return nil
}

// GetSnippet возвращает сниппет вместе с reviewedBy
func (s *Store) GetSnippet(ctx context.Context, id string) (model.SnippetDB, error) {
	var sn model.SnippetDB
	err := s.db.WithContext(ctx).
		Preload("ReviewedBy", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&sn, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.SnippetDB{}, ErrNotFound
		}
		return model.SnippetDB{}, fmt.Errorf("get snippet %s: %w", id, err)
	}
	return sn, nil
}

// HasReviewed проверяет, есть ли email в reviewedBy сниппета
func (s *Store) HasReviewed(ctx context.Context, snippetID, email string) (bool, error) {
	var cnt int64
	if err := s.db.WithContext(ctx).Model(&model.SnippetReviewerDB{}).
		Where("snippet_id = ? AND reviewer_email = ?", snippetID, email).
		Count(&cnt).Error; err != nil {
		return false, fmt.Errorf("check reviewer: %w", err)
	}
	return cnt > 0, nil
}

// RandomEligibleSnippet выбирает случайный незавершённый сниппет,
// который участник ещё не рецензировал
func (s *Store) RandomEligibleSnippet(ctx context.Context, email string) (model.SnippetDB, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&model.SnippetDB{}).
		Where("is_completed = ?", false).
		Where("NOT EXISTS (SELECT 1 FROM snippet_reviewers sr WHERE sr.snippet_id = snippets.id AND sr.reviewer_email = ?)", email).
		Order("random()").
		Limit(1).
		Pluck("id", &ids).Error; err != nil {
		return model.SnippetDB{}, fmt.Errorf("pick snippet: %w", err)
	}
	if len(ids) == 0 {
		return model.SnippetDB{}, ErrNotFound
	}
	return s.GetSnippet(ctx, ids[0])
}

// CountSnippets считает сниппеты; completed == nil — все
func (s *Store) CountSnippets(ctx context.Context, completed *bool) (int64, error) {
	q := s.db.WithContext(ctx).Model(&model.SnippetDB{})
	if completed != nil {
		q = q.Where("is_completed = ?", *completed)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count snippets: %w", err)
	}
	return n, nil
}

// CountReviews считает все отзывы
func (s *Store) CountReviews(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.ReviewDB{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return n, nil
}

// CountDistinctReviewers считает мощность множества reviewer_email по всем отзывам
func (s *Store) CountDistinctReviewers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.ReviewDB{}).
		Distinct("reviewer_email").
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count reviewers: %w", err)
	}
	return n, nil
}

// ListSnippets отдаёт все сниппеты, новые первыми
func (s *Store) ListSnippets(ctx context.Context) ([]model.SnippetDB, error) {
	var out []model.SnippetDB
	if err := s.db.WithContext(ctx).
		Preload("ReviewedBy", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list snippets: %w", err)
	}
	return out, nil
}

// ListReviews отдаёт все отзывы с подгруженным сниппетом;
// newestFirst=false даёт хронологический порядок (для экспорта)
func (s *Store) ListReviews(ctx context.Context, newestFirst bool) ([]model.ReviewDB, error) {
	order := "created_at ASC"
	if newestFirst {
		order = "created_at DESC"
	}
	var out []model.ReviewDB
	if err := s.db.WithContext(ctx).
		Preload("Snippet").
		Order(order).
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return out, nil
}

// RecordReview атомарно сохраняет отзыв и обновляет счётчики сниппета.
// В одной транзакции:
//  1. review_count+1 и is_completed одним UPDATE, только если сниппет не завершён
//  2. email в reviewedBy (PK snippet_reviewers)
//  3. сам отзыв (уникальный индекс snippet_id+reviewer_email)
//
// Возвращает сниппет после обновления. Ошибки: ErrNotFound, ErrCompleted, ErrDuplicate.
func (s *Store) RecordReview(ctx context.Context, r *model.ReviewDB) (model.SnippetDB, error) {
	var out model.SnippetDB
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.SnippetDB{}).
			Where("id = ? AND is_completed = ?", r.SnippetID, false).
			Updates(map[string]any{
				"review_count": gorm.Expr("review_count + 1"),
				"is_completed": gorm.Expr("review_count + 1 >= max_reviews"),
			})
		if res.Error != nil {
			return fmt.Errorf("increment review_count: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var cnt int64
			if err := tx.Model(&model.SnippetDB{}).Where("id = ?", r.SnippetID).Count(&cnt).Error; err != nil {
				return fmt.Errorf("check snippet: %w", err)
			}
			if cnt == 0 {
				return ErrNotFound
			}
			return ErrCompleted
		}

		if err := tx.Create(&model.SnippetReviewerDB{
			SnippetID:     r.SnippetID,
			ReviewerEmail: r.ReviewerEmail,
		}).Error; err != nil {
			if IsUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("add reviewer: %w", err)
		}

		if err := tx.Omit(clause.Associations).Create(r).Error; err != nil {
			if IsUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("create review: %w", err)
		}

		return tx.First(&out, "id = ?", r.SnippetID).Error
	})
	if err != nil {
		return model.SnippetDB{}, err
	}
	return out, nil
}

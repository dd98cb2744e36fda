// Package httpapi содержит HTTP DTO и контракты ответов/запросов
package httpapi

import (
	"time"

	"github.com/alinaaved/snippet-review/internal/model"
	"github.com/alinaaved/snippet-review/internal/service"
)

// ErrorResponse — формат ошибки: {"error":{"code","message"}}
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Snippet — сниппет кода (DTO)
type Snippet struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Code        string    `json:"code"`
	Language    string    `json:"language"`
	MaxReviews  int       `json:"maxReviews"`
	ReviewCount int       `json:"reviewCount"`
	IsCompleted bool      `json:"isCompleted"`
	ReviewedBy  []string  `json:"reviewedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SnippetRef — краткая ссылка на сниппет в списке отзывов
type SnippetRef struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Language string `json:"language"`
}

// Review — отзыв (DTO)
type Review struct {
	ID                string             `json:"id"`
	SnippetID         string             `json:"snippetId"`
	Snippet           *SnippetRef        `json:"snippet,omitempty"`
	ReviewerEmail     string             `json:"reviewerEmail"`
	ReviewerName      string             `json:"reviewerName"`
	YearsOfExperience int                `json:"yearsOfExperience"`
	Position          string             `json:"position"`
	GeneralComment    string             `json:"generalComment"`
	LineReviews       []model.LineReview `json:"lineReviews"`
	CreatedAt         time.Time          `json:"createdAt"`
}

// ReviewProgress — счётчики после принятого отзыва
type ReviewProgress struct {
	ID          string `json:"id"`
	ReviewCount int    `json:"reviewCount"`
	MaxReviews  int    `json:"maxReviews"`
	IsCompleted bool   `json:"isCompleted"`
}

// CanReview — ответ /api/codes/{id}/can-review
type CanReview struct {
	CanReview       bool `json:"canReview"`
	IsCompleted     bool `json:"isCompleted"`
	AlreadyReviewed bool `json:"alreadyReviewed"`
	ReviewCount     int  `json:"reviewCount"`
	MaxReviews      int  `json:"maxReviews"`
}

// Stats — агрегаты (DTO)
type Stats struct {
	TotalSnippets     int64 `json:"totalSnippets"`
	CompletedSnippets int64 `json:"completedSnippets"`
	PendingSnippets   int64 `json:"pendingSnippets"`
	TotalReviews      int64 `json:"totalReviews"`
	UniqueReviewers   int64 `json:"uniqueReviewers"`
}

func toSnippet(s model.SnippetDB) Snippet {
	return Snippet{
		ID:          s.ID,
		Title:       s.Title,
		Code:        s.Code,
		Language:    s.Language,
		MaxReviews:  s.MaxReviews,
		ReviewCount: s.ReviewCount,
		IsCompleted: s.IsCompleted,
		ReviewedBy:  s.Emails(),
		CreatedAt:   s.CreatedAt,
	}
}

func toReview(r model.ReviewDB) Review {
	out := Review{
		ID:                r.ID,
		SnippetID:         r.SnippetID,
		ReviewerEmail:     r.ReviewerEmail,
		ReviewerName:      r.ReviewerName,
		YearsOfExperience: r.YearsOfExperience,
		Position:          r.Position,
		GeneralComment:    r.GeneralComment,
		LineReviews:       []model.LineReview(r.LineReviews),
		CreatedAt:         r.CreatedAt,
	}
	if out.LineReviews == nil {
		out.LineReviews = []model.LineReview{}
	}
	if r.Snippet != nil {
		out.Snippet = &SnippetRef{ID: r.Snippet.ID, Title: r.Snippet.Title, Language: r.Snippet.Language}
	}
	return out
}

func toStats(s service.Stats) Stats {
	return Stats{
		TotalSnippets:     s.TotalSnippets,
		CompletedSnippets: s.CompletedSnippets,
		PendingSnippets:   s.PendingSnippets,
		TotalReviews:      s.TotalReviews,
		UniqueReviewers:   s.UniqueReviewers,
	}
}

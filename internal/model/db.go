package model

import (
	"time"

	"gorm.io/datatypes"
)

// DefaultMaxReviews — квота отзывов на сниппет по умолчанию
const DefaultMaxReviews = 3

type SnippetDB struct {
	ID          string    `gorm:"primaryKey;column:id"`
	Title       string    `gorm:"column:title;not null"`
	Code        string    `gorm:"column:code;not null"`
	Language    string    `gorm:"column:language;not null"`
	MaxReviews  int       `gorm:"column:max_reviews;not null;default:3"`
	ReviewCount int       `gorm:"column:review_count;not null;default:0"`
	IsCompleted bool      `gorm:"column:is_completed;not null;default:false;index"`
	CreatedAt   time.Time `gorm:"column:created_at;index"`

	ReviewedBy []SnippetReviewerDB `gorm:"foreignKey:SnippetID;references:ID"`
}

func (SnippetDB) TableName() string { return "snippets" }

// Emails возвращает множество reviewedBy в порядке добавления
func (s SnippetDB) Emails() []string {
	out := make([]string, 0, len(s.ReviewedBy))
	for _, r := range s.ReviewedBy {
		out = append(out, r.ReviewerEmail)
	}
	return out
}

// SnippetReviewerDB — элемент множества reviewedBy; составной PK даёт уникальность пары
type SnippetReviewerDB struct {
	SnippetID     string    `gorm:"primaryKey;column:snippet_id"`
	ReviewerEmail string    `gorm:"primaryKey;column:reviewer_email"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (SnippetReviewerDB) TableName() string { return "snippet_reviewers" }

// LineReview — комментарий к конкретной строке, хранится внутри отзыва (JSON)
type LineReview struct {
	LineNumber int    `json:"lineNumber"`
	Comment    string `json:"comment"`
	Category   string `json:"category"`
}

type ReviewDB struct {
	ID                string                          `gorm:"primaryKey;column:id"`
	SnippetID         string                          `gorm:"column:snippet_id;not null;uniqueIndex:idx_reviews_snippet_reviewer"`
	ReviewerEmail     string                          `gorm:"column:reviewer_email;not null;uniqueIndex:idx_reviews_snippet_reviewer"`
	ReviewerName      string                          `gorm:"column:reviewer_name;not null"`
	YearsOfExperience int                             `gorm:"column:years_of_experience;not null"`
	Position          string                          `gorm:"column:position;not null"`
	GeneralComment    string                          `gorm:"column:general_comment"`
	LineReviews       datatypes.JSONSlice[LineReview] `gorm:"column:line_reviews"`
	CreatedAt         time.Time                       `gorm:"column:created_at;index"`

	Snippet *SnippetDB `gorm:"foreignKey:SnippetID;references:ID"`
}

func (ReviewDB) TableName() string { return "reviews" }

// All возвращает модели для AutoMigrate
func All() []any {
	return []any{&SnippetDB{}, &SnippetReviewerDB{}, &ReviewDB{}}
}

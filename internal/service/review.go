package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/alinaaved/snippet-review/internal/model"
	"github.com/alinaaved/snippet-review/internal/store"
)

// MinLineCommentLength — минимальная длина комментария к строке (в символах)
const MinLineCommentLength = 10

// Categories — допустимые категории комментария к строке
var Categories = []string{
	"bug",
	"security",
	"performance",
	"readability",
	"maintainability",
	"style",
	"best_practice",
	"documentation",
	"other",
}

// LineReviewInput — комментарий к строке во входящем отзыве
type LineReviewInput struct {
	LineNumber *int   `json:"lineNumber"`
	Comment    string `json:"comment"`
	Category   string `json:"category"`
}

// ReviewInput — тело POST /api/reviews.
// YearsOfExperience задан указателем, чтобы отличать 0 от отсутствующего поля.
type ReviewInput struct {
	SnippetID         string            `json:"snippetId"`
	ReviewerEmail     string            `json:"reviewerEmail"`
	ReviewerName      string            `json:"reviewerName"`
	YearsOfExperience *int              `json:"yearsOfExperience"`
	Position          string            `json:"position"`
	GeneralComment    string            `json:"generalComment"`
	LineReviews       []LineReviewInput `json:"lineReviews"`
}

// SubmitResult — id отзыва и счётчики сниппета после обновления
type SubmitResult struct {
	ReviewID    string
	ReviewCount int
	MaxReviews  int
	IsCompleted bool
}

func (in *ReviewInput) normalize() {
	in.SnippetID = strings.TrimSpace(in.SnippetID)
	in.ReviewerEmail = normalizeEmail(in.ReviewerEmail)
	in.ReviewerName = strings.TrimSpace(in.ReviewerName)
	in.Position = strings.TrimSpace(in.Position)
	in.GeneralComment = strings.TrimSpace(in.GeneralComment)
}

func (in *ReviewInput) checkRequired() *Error {
	var missing []string
	if in.SnippetID == "" {
		missing = append(missing, "snippetId")
	}
	if in.ReviewerEmail == "" {
		missing = append(missing, "reviewerEmail")
	}
	if in.ReviewerName == "" {
		missing = append(missing, "reviewerName")
	}
	if in.YearsOfExperience == nil {
		missing = append(missing, "yearsOfExperience")
	}
	if in.Position == "" {
		missing = append(missing, "position")
	}
	if len(in.LineReviews) == 0 {
		missing = append(missing, "lineReviews")
	}
	if len(missing) > 0 {
		return validation(CodeMissingField, "missing required fields: %s", strings.Join(missing, ", "))
	}
	if *in.YearsOfExperience < 0 {
		return validation(CodeInvalidField, "yearsOfExperience must be a non-negative integer")
	}
	return nil
}

// lineReviews проверяет комментарии по порядку и возвращает их в виде модели
func (in *ReviewInput) lineReviews() ([]model.LineReview, *Error) {
	out := make([]model.LineReview, 0, len(in.LineReviews))
	for i, lr := range in.LineReviews {
		if lr.LineNumber == nil || *lr.LineNumber < 1 {
			return nil, validation(CodeInvalidLineReview,
				"line review #%d: lineNumber must be a positive integer", i+1)
		}
		line := *lr.LineNumber
		comment := strings.TrimSpace(lr.Comment)
		if utf8.RuneCountInString(comment) < MinLineCommentLength {
			return nil, validation(CodeInvalidLineReview,
				"line %d: comment must be at least %d characters", line, MinLineCommentLength)
		}
		category := strings.ToLower(strings.TrimSpace(lr.Category))
		if !slices.Contains(Categories, category) {
			return nil, validation(CodeInvalidLineReview,
				"line %d: category must be one of %s", line, strings.Join(Categories, ", "))
		}
		out = append(out, model.LineReview{LineNumber: line, Comment: comment, Category: category})
	}
	return out, nil
}

// Submit проверяет и сохраняет отзыв, увеличивая счётчик сниппета.
// Порядок проверок: обязательные поля, email, существование сниппета,
// повторный отзыв, квота, комментарии к строкам. Первая неудачная побеждает.
func (s *Service) Submit(ctx context.Context, in ReviewInput) (SubmitResult, error) {
	in.normalize()
	if err := in.checkRequired(); err != nil {
		return SubmitResult{}, err
	}
	if !emailPattern.MatchString(in.ReviewerEmail) {
		return SubmitResult{}, validation(CodeInvalidEmail, "reviewerEmail is not a valid email address")
	}

	sn, err := s.repo.GetSnippet(ctx, in.SnippetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return SubmitResult{}, errSnippetNotFound
		}
		return SubmitResult{}, s.storeErr("get snippet", err)
	}
	reviewed, err := s.repo.HasReviewed(ctx, sn.ID, in.ReviewerEmail)
	if err != nil {
		return SubmitResult{}, s.storeErr("check reviewer", err)
	}
	// автор уже принятого отзыва получает DUPLICATE_REVIEW, даже если квота исчерпана
	if reviewed {
		return SubmitResult{}, errDuplicateReview
	}
	if sn.IsCompleted {
		return SubmitResult{}, errQuotaExceeded
	}

	lines, verr := in.lineReviews()
	if verr != nil {
		return SubmitResult{}, verr
	}

	rec := &model.ReviewDB{
		ID:                s.newID(),
		SnippetID:         sn.ID,
		ReviewerEmail:     in.ReviewerEmail,
		ReviewerName:      in.ReviewerName,
		YearsOfExperience: *in.YearsOfExperience,
		Position:          in.Position,
		GeneralComment:    in.GeneralComment,
		LineReviews:       lines,
	}
	updated, err := s.repo.RecordReview(ctx, rec)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrDuplicate):
		// проверка выше прошла, но параллельный запрос успел раньше
		s.log.Warn("duplicate review rejected by unique constraint",
			"snippet_id", sn.ID, "reviewer_email", in.ReviewerEmail)
		return SubmitResult{}, errDuplicateReview
	case errors.Is(err, store.ErrCompleted):
		s.log.Warn("quota reached concurrently", "snippet_id", sn.ID)
		return SubmitResult{}, errQuotaExceeded
	case errors.Is(err, store.ErrNotFound):
		return SubmitResult{}, errSnippetNotFound
	default:
		return SubmitResult{}, s.storeErr("record review (rolled back)", err)
	}

	s.log.Info("review accepted",
		"review_id", rec.ID,
		"snippet_id", sn.ID,
		"reviewer_email", in.ReviewerEmail,
		"review_count", updated.ReviewCount,
		"is_completed", updated.IsCompleted)

	return SubmitResult{
		ReviewID:    rec.ID,
		ReviewCount: updated.ReviewCount,
		MaxReviews:  updated.MaxReviews,
		IsCompleted: updated.IsCompleted,
	}, nil
}

// CanReviewResult — ответ пробы /can-review
type CanReviewResult struct {
	CanReview       bool
	IsCompleted     bool
	AlreadyReviewed bool
	ReviewCount     int
	MaxReviews      int
}

// CanReview сообщает, может ли участник сейчас рецензировать сниппет
func (s *Service) CanReview(ctx context.Context, snippetID, email string) (CanReviewResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return CanReviewResult{}, validation(CodeMissingEmail, "email is required")
	}
	sn, err := s.repo.GetSnippet(ctx, strings.TrimSpace(snippetID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return CanReviewResult{}, errSnippetNotFound
		}
		return CanReviewResult{}, s.storeErr("get snippet", err)
	}
	reviewed, err := s.repo.HasReviewed(ctx, sn.ID, email)
	if err != nil {
		return CanReviewResult{}, s.storeErr("check reviewer", err)
	}
	return CanReviewResult{
		CanReview:       !sn.IsCompleted && !reviewed,
		IsCompleted:     sn.IsCompleted,
		AlreadyReviewed: reviewed,
		ReviewCount:     sn.ReviewCount,
		MaxReviews:      sn.MaxReviews,
	}, nil
}

// ListReviews отдаёт все отзывы, новые первыми, с названием и языком сниппета
func (s *Service) ListReviews(ctx context.Context) ([]model.ReviewDB, error) {
	out, err := s.repo.ListReviews(ctx, true)
	if err != nil {
		return nil, s.storeErr("list reviews", err)
	}
	return out, nil
}

func (s *Service) storeErr(op string, err error) *Error {
	e := storeFailure(op, err)
	s.log.Error("store operation failed", "op", op, "error", err)
	return e
}

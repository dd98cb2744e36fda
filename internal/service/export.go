package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/alinaaved/snippet-review/internal/model"
)

// ExportHeader — фиксированный порядок колонок CSV
var ExportHeader = []string{
	"Code Title",
	"Code Language",
	"Code Content",
	"Reviewer Name",
	"Reviewer Email",
	"Years of Experience",
	"Position",
	"General Comment",
	"Line Number",
	"Line Comment",
	"Line Category",
	"Review Date",
}

const exportDateLayout = "2006-01-02T15:04:05.000Z"

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// ExportReviewsCSV пишет все отзывы в CSV: строка на каждую пару
// (отзыв, комментарий к строке); отзыв без комментариев даёт одну строку
// с пустыми полями строки. Ошибка чтения из БД возвращается до первой записи в w.
func (s *Service) ExportReviewsCSV(ctx context.Context, w io.Writer) error {
	reviews, err := s.repo.ListReviews(ctx, false)
	if err != nil {
		return s.storeErr("list reviews for export", err)
	}

	bw := bufio.NewWriter(w)
	if err := writeCSVRecord(bw, ExportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range exportRecords(reviews) {
		if err := writeCSVRecord(bw, rec); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func exportRecords(reviews []model.ReviewDB) [][]string {
	out := make([][]string, 0, len(reviews))
	for _, r := range reviews {
		var title, lang, code string
		if r.Snippet != nil {
			title, lang, code = r.Snippet.Title, r.Snippet.Language, r.Snippet.Code
		}
		base := []string{
			title,
			lang,
			code,
			r.ReviewerName,
			r.ReviewerEmail,
			strconv.Itoa(r.YearsOfExperience),
			r.Position,
			r.GeneralComment,
		}
		date := r.CreatedAt.UTC().Format(exportDateLayout)

		if len(r.LineReviews) == 0 {
			out = append(out, append(slices.Clone(base), "", "", "", date))
			continue
		}
		for _, lr := range r.LineReviews {
			out = append(out, append(slices.Clone(base), strconv.Itoa(lr.LineNumber), lr.Comment, lr.Category, date))
		}
	}
	return out
}

// quoteCSVField всегда берёт поле в кавычки, удваивает внутренние кавычки
// и заменяет переводы строк пробелом: одна запись — одна физическая строка
func quoteCSVField(s string) string {
	s = newlines.Replace(s)
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func writeCSVRecord(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(quoteCSVField(f)); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

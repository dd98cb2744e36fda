package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/alinaaved/snippet-review/internal/logger"
	"github.com/alinaaved/snippet-review/internal/service"
)

const maxBodyBytes = 10 << 20

// Handler инкапсулирует зависимости HTTP-слоя (сервис, логгер)
type Handler struct {
	svc *service.Service
	log *logger.Logger
}

// NewHandler создаёт новый Handler
func NewHandler(svc *service.Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{svc: svc, log: log.With("component", "http")}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code, msg string, status int) {
	var resp ErrorResponse
	resp.Error.Code, resp.Error.Message = code, msg
	writeJSON(w, status, resp)
}

// writeServiceErr переводит ошибку сервиса в HTTP-ответ.
// Квота и повтор — 400, как и валидация; детали ошибок БД наружу не уходят.
func (h *Handler) writeServiceErr(w http.ResponseWriter, r *http.Request, err error) {
	var se *service.Error
	if !errors.As(err, &se) {
		h.log.Error("unexpected error", "path", r.URL.Path, "error", err)
		writeErr(w, service.CodeInternal, "internal error", http.StatusInternalServerError)
		return
	}
	switch se.Kind {
	case service.KindValidation, service.KindConflict:
		writeErr(w, se.Code, se.Message, http.StatusBadRequest)
	case service.KindNotFound:
		writeErr(w, se.Code, se.Message, http.StatusNotFound)
	default:
		writeErr(w, service.CodeInternal, "db error", http.StatusInternalServerError)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErr(w, "BAD_REQUEST", "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

// Health возвращает 200 OK для проверки живости сервиса
// GET /api/health -> 200 {status:"OK", timestamp}
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// RandomCode обрабатывает GET /api/codes/random?email=...
// 200 Snippet | 400 MISSING_EMAIL | 404 NOT_AVAILABLE
func (h *Handler) RandomCode(w http.ResponseWriter, r *http.Request) {
	sn, err := h.svc.SelectForReview(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSnippet(sn))
}

// CanReview обрабатывает GET /api/codes/{id}/can-review?email=...
func (h *Handler) CanReview(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.CanReview(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("email"))
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CanReview{
		CanReview:       res.CanReview,
		IsCompleted:     res.IsCompleted,
		AlreadyReviewed: res.AlreadyReviewed,
		ReviewCount:     res.ReviewCount,
		MaxReviews:      res.MaxReviews,
	})
}

// ListCodes обрабатывает GET /api/codes (новые первыми)
func (h *Handler) ListCodes(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListSnippets(r.Context())
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	out := make([]Snippet, 0, len(list))
	for _, s := range list {
		out = append(out, toSnippet(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// AddCode обрабатывает POST /api/codes
// 201 {message, code} | 400 MISSING_FIELD
func (h *Handler) AddCode(w http.ResponseWriter, r *http.Request) {
	var in service.SnippetInput
	if !decodeJSON(w, r, &in) {
		return
	}
	sn, err := h.svc.AddSnippet(r.Context(), in)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Code snippet added successfully",
		"code":    toSnippet(sn),
	})
}

// AddCodesBulk обрабатывает POST /api/codes/bulk.
// Тело — массив сниппетов или {"codes":[...]}.
// 201 {message, addedCount, totalProvided} | 400
func (h *Handler) AddCodesBulk(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if !decodeJSON(w, r, &raw) {
		return
	}
	var items []service.SnippetInput
	var err error
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Codes []service.SnippetInput `json:"codes"`
		}
		err = json.Unmarshal(trimmed, &wrapped)
		items = wrapped.Codes
	} else {
		err = json.Unmarshal(raw, &items)
	}
	if err != nil || len(items) == 0 {
		writeErr(w, "BAD_REQUEST", "request body must be a non-empty array of code snippets", http.StatusBadRequest)
		return
	}

	res, err := h.svc.AddSnippetsBulk(r.Context(), items)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":       "Code snippets added successfully",
		"addedCount":    res.AddedCount,
		"totalProvided": res.TotalProvided,
	})
}

// SubmitReview обрабатывает POST /api/reviews
// 201 {message, review:{id, reviewCount, maxReviews, isCompleted}}
// 400 валидация/квота/повтор | 404 SNIPPET_NOT_FOUND
func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var in service.ReviewInput
	if !decodeJSON(w, r, &in) {
		return
	}
	res, err := h.svc.Submit(r.Context(), in)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Review submitted successfully",
		"review": ReviewProgress{
			ID:          res.ReviewID,
			ReviewCount: res.ReviewCount,
			MaxReviews:  res.MaxReviews,
			IsCompleted: res.IsCompleted,
		},
	})
}

// ListReviews обрабатывает GET /api/reviews (новые первыми, с title/language сниппета)
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListReviews(r.Context())
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	out := make([]Review, 0, len(list))
	for _, rv := range list {
		out = append(out, toReview(rv))
	}
	writeJSON(w, http.StatusOK, out)
}

// ExportReviews обрабатывает GET /api/reviews/export -> CSV-вложение code_reviews.csv
func (h *Handler) ExportReviews(w http.ResponseWriter, r *http.Request) {
	cw := &lazyHeaderWriter{w: w, header: func() {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="code_reviews.csv"`)
		w.WriteHeader(http.StatusOK)
	}}
	if err := h.svc.ExportReviewsCSV(r.Context(), cw); err != nil {
		if cw.started {
			// ответ уже начат, остаётся только лог
			h.log.Error("csv export aborted", "error", err)
			return
		}
		h.writeServiceErr(w, r, err)
	}
}

// Stats обрабатывает GET /api/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStats(st))
}

// lazyHeaderWriter отправляет заголовки CSV только при первой записи,
// чтобы ошибка БД до начала выгрузки могла вернуться как JSON 500
type lazyHeaderWriter struct {
	w       http.ResponseWriter
	header  func()
	started bool
}

func (l *lazyHeaderWriter) Write(p []byte) (int, error) {
	if !l.started {
		l.started = true
		l.header()
	}
	return l.w.Write(p)
}

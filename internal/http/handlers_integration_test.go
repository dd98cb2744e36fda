package httpapi_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alinaaved/snippet-review/internal/config"
	api "github.com/alinaaved/snippet-review/internal/http"
	"github.com/alinaaved/snippet-review/internal/logger"
	"github.com/alinaaved/snippet-review/internal/service"
	"github.com/alinaaved/snippet-review/internal/store"
)

func closeResp(t *testing.T, resp *http.Response) {
	t.Helper()
	if err := resp.Body.Close(); err != nil {
		t.Fatalf("close body: %v", err)
	}
}

func mustNewServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := store.Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "api.sqlite"),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := store.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	log := logger.Nop()
	h := api.NewHandler(service.New(store.New(db), log), log)
	cors := config.CORSConfig{
		AllowedOrigins: []string{"http://study.local"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         60,
	}
	srv := httptest.NewServer(api.NewRouter(h, cors, log))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(http.MethodPost, url, rdr)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp
}

// expectStatus проверяет статус и декодирует JSON-тело в out (если out != nil)
func expectStatus(t *testing.T, resp *http.Response, want int, out any) {
	t.Helper()
	defer closeResp(t, resp)
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s status=%d want %d body=%s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, string(b))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func review(codeID, email string, comment string) map[string]any {
	return map[string]any{
		"snippetId":         codeID,
		"reviewerEmail":     email,
		"reviewerName":      "Participant",
		"yearsOfExperience": 5,
		"position":          "Senior Developer",
		"generalComment":    "readable",
		"lineReviews": []map[string]any{
			{"lineNumber": 1, "comment": comment, "category": "readability"},
		},
	}
}

func addCode(t *testing.T, srv *httptest.Server, maxReviews int) string {
	t.Helper()
	var created struct {
		Message string `json:"message"`
		Code    struct {
			ID          string   `json:"id"`
			MaxReviews  int      `json:"maxReviews"`
			ReviewCount int      `json:"reviewCount"`
			IsCompleted bool     `json:"isCompleted"`
			ReviewedBy  []string `json:"reviewedBy"`
		} `json:"code"`
	}
	resp := postJSON(t, srv.URL+"/api/codes", map[string]any{
		"title":      "Binary search",
		"code":       "def search(xs, x):\n    return xs.index(x)",
		"language":   "python",
		"maxReviews": maxReviews,
	})
	expectStatus(t, resp, http.StatusCreated, &created)
	if created.Code.ID == "" || created.Code.MaxReviews != maxReviews || created.Code.ReviewedBy == nil {
		t.Fatalf("unexpected created code: %+v", created)
	}
	return created.Code.ID
}

func TestHealth(t *testing.T) {
	srv := mustNewServer(t)
	var body struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	expectStatus(t, get(t, srv.URL+"/api/health"), http.StatusOK, &body)
	if body.Status != "OK" || body.Timestamp == "" {
		t.Fatalf("health: %+v", body)
	}
}

// Сценарий A целиком через HTTP
func TestReviewFlow_QuotaAndDuplicate(t *testing.T) {
	srv := mustNewServer(t)
	id := addCode(t, srv, 1)

	var rnd struct {
		ID string `json:"id"`
	}
	expectStatus(t, get(t, srv.URL+"/api/codes/random?email=x@study.org"), http.StatusOK, &rnd)
	if rnd.ID != id {
		t.Fatalf("random returned %s, want %s", rnd.ID, id)
	}

	var ok struct {
		Message string `json:"message"`
		Review  struct {
			ID          string `json:"id"`
			ReviewCount int    `json:"reviewCount"`
			MaxReviews  int    `json:"maxReviews"`
			IsCompleted bool   `json:"isCompleted"`
		} `json:"review"`
	}
	expectStatus(t, postJSON(t, srv.URL+"/api/reviews", review(id, "x@study.org", "variable names are unclear")), http.StatusCreated, &ok)
	if ok.Review.ID == "" || ok.Review.ReviewCount != 1 || ok.Review.MaxReviews != 1 || !ok.Review.IsCompleted {
		t.Fatalf("unexpected review response: %+v", ok)
	}

	var dup apiError
	expectStatus(t, postJSON(t, srv.URL+"/api/reviews", review(id, "x@study.org", "variable names are unclear")), http.StatusBadRequest, &dup)
	if dup.Error.Code != service.CodeDuplicateReview {
		t.Fatalf("want duplicate, got %+v", dup)
	}

	var quota apiError
	expectStatus(t, postJSON(t, srv.URL+"/api/reviews", review(id, "y@study.org", "variable names are unclear")), http.StatusBadRequest, &quota)
	if quota.Error.Code != service.CodeQuotaExceeded {
		t.Fatalf("want quota exceeded, got %+v", quota)
	}

	var probe struct {
		CanReview       bool `json:"canReview"`
		IsCompleted     bool `json:"isCompleted"`
		AlreadyReviewed bool `json:"alreadyReviewed"`
		ReviewCount     int  `json:"reviewCount"`
		MaxReviews      int  `json:"maxReviews"`
	}
	expectStatus(t, get(t, srv.URL+"/api/codes/"+id+"/can-review?email=y@study.org"), http.StatusOK, &probe)
	if probe.CanReview || !probe.IsCompleted || probe.AlreadyReviewed || probe.ReviewCount != 1 {
		t.Fatalf("probe: %+v", probe)
	}
}

// Сценарий B
func TestSubmitReview_ShortComment(t *testing.T) {
	srv := mustNewServer(t)
	id := addCode(t, srv, 3)

	body := review(id, "b@study.org", "too short")
	body["lineReviews"] = []map[string]any{
		{"lineNumber": 1, "comment": "long enough comment", "category": "bug"},
		{"lineNumber": 7, "comment": "short", "category": "bug"},
	}
	var e apiError
	expectStatus(t, postJSON(t, srv.URL+"/api/reviews", body), http.StatusBadRequest, &e)
	if e.Error.Code != service.CodeInvalidLineReview || !strings.Contains(e.Error.Message, "line 7") {
		t.Fatalf("unexpected error: %+v", e)
	}
}

func TestSubmitReview_Errors(t *testing.T) {
	srv := mustNewServer(t)

	var e apiError
	expectStatus(t, postJSON(t, srv.URL+"/api/reviews", review("nope", "a@study.org", "a fine comment here")), http.StatusNotFound, &e)
	if e.Error.Code != service.CodeSnippetNotFound {
		t.Fatalf("unexpected error: %+v", e)
	}

	resp, err := http.Post(srv.URL+"/api/reviews", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	expectStatus(t, resp, http.StatusBadRequest, nil)

	e = apiError{}
	expectStatus(t, postJSON(t, srv.URL+"/api/reviews", map[string]any{"snippetId": "x"}), http.StatusBadRequest, &e)
	if e.Error.Code != service.CodeMissingField {
		t.Fatalf("unexpected error: %+v", e)
	}
}

// Сценарий C
func TestRandomCode_NoneAvailable(t *testing.T) {
	srv := mustNewServer(t)

	var e apiError
	expectStatus(t, get(t, srv.URL+"/api/codes/random?email=a@b.com"), http.StatusNotFound, &e)
	if e.Error.Code != service.CodeNotAvailable || e.Error.Message == "" {
		t.Fatalf("unexpected error: %+v", e)
	}

	e = apiError{}
	expectStatus(t, get(t, srv.URL+"/api/codes/random"), http.StatusBadRequest, &e)
	if e.Error.Code != service.CodeMissingEmail {
		t.Fatalf("unexpected error: %+v", e)
	}
}

// Сценарий D
func TestAddCodesBulk(t *testing.T) {
	srv := mustNewServer(t)

	items := []map[string]any{
		{"title": "a", "code": "1", "language": "go"},
		{"title": "b", "code": "2", "language": "go"},
		{"title": "c", "code": "3", "language": "go", "maxReviews": 5},
		{"title": "d", "code": "4"},
		{"title": "e", "code": "5"},
	}
	var res struct {
		AddedCount    int `json:"addedCount"`
		TotalProvided int `json:"totalProvided"`
	}
	expectStatus(t, postJSON(t, srv.URL+"/api/codes/bulk", items), http.StatusCreated, &res)
	if res.AddedCount != 3 || res.TotalProvided != 5 {
		t.Fatalf("bulk: %+v", res)
	}

	wrapped := map[string]any{"codes": []map[string]any{{"title": "w", "code": "x", "language": "c"}}}
	expectStatus(t, postJSON(t, srv.URL+"/api/codes/bulk", wrapped), http.StatusCreated, &res)
	if res.AddedCount != 1 {
		t.Fatalf("wrapped bulk: %+v", res)
	}

	expectStatus(t, postJSON(t, srv.URL+"/api/codes/bulk", []any{}), http.StatusBadRequest, nil)
	expectStatus(t, postJSON(t, srv.URL+"/api/codes/bulk", "nope"), http.StatusBadRequest, nil)

	var e apiError
	expectStatus(t, postJSON(t, srv.URL+"/api/codes/bulk", []map[string]any{{"title": "only"}}), http.StatusBadRequest, &e)
	if e.Error.Code != service.CodeNoValidItems {
		t.Fatalf("unexpected error: %+v", e)
	}

	var list []struct {
		ID string `json:"id"`
	}
	expectStatus(t, get(t, srv.URL+"/api/codes"), http.StatusOK, &list)
	if len(list) != 4 {
		t.Fatalf("codes=%d", len(list))
	}
}

func TestStatsListAndExport(t *testing.T) {
	srv := mustNewServer(t)
	first := addCode(t, srv, 2)
	second := addCode(t, srv, 2)

	expectStatus(t, postJSON(t, srv.URL+"/api/reviews", review(first, "a@study.org", "magic number on this line")), http.StatusCreated, nil)
	expectStatus(t, postJSON(t, srv.URL+"/api/reviews", review(first, "b@study.org", "consider an early return")), http.StatusCreated, nil)
	expectStatus(t, postJSON(t, srv.URL+"/api/reviews", review(second, "a@study.org", "index raises on a miss")), http.StatusCreated, nil)

	var st struct {
		TotalSnippets     int `json:"totalSnippets"`
		CompletedSnippets int `json:"completedSnippets"`
		PendingSnippets   int `json:"pendingSnippets"`
		TotalReviews      int `json:"totalReviews"`
		UniqueReviewers   int `json:"uniqueReviewers"`
	}
	expectStatus(t, get(t, srv.URL+"/api/stats"), http.StatusOK, &st)
	if st.TotalSnippets != 2 || st.CompletedSnippets != 1 || st.PendingSnippets != 1 || st.TotalReviews != 3 || st.UniqueReviewers != 2 {
		t.Fatalf("stats: %+v", st)
	}

	var reviews []struct {
		SnippetID string `json:"snippetId"`
		Snippet   struct {
			Title    string `json:"title"`
			Language string `json:"language"`
		} `json:"snippet"`
		LineReviews []struct {
			LineNumber int `json:"lineNumber"`
		} `json:"lineReviews"`
	}
	expectStatus(t, get(t, srv.URL+"/api/reviews"), http.StatusOK, &reviews)
	if len(reviews) != 3 || reviews[0].Snippet.Title != "Binary search" || reviews[0].Snippet.Language != "python" {
		t.Fatalf("reviews: %+v", reviews)
	}

	resp := get(t, srv.URL+"/api/reviews/export")
	defer closeResp(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status=%d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "code_reviews.csv") {
		t.Fatalf("content-disposition=%q", cd)
	}
	records, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("csv rows=%d", len(records))
	}
	if records[0][0] != "Code Title" || records[0][11] != "Review Date" {
		t.Fatalf("header: %v", records[0])
	}
	if records[1][2] != "def search(xs, x):     return xs.index(x)" {
		t.Fatalf("code column: %q", records[1][2])
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := mustNewServer(t)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/reviews", nil)
	req.Header.Set("Origin", "http://study.local")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer closeResp(t, resp)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight status=%d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://study.local" {
		t.Fatalf("allow-origin=%q", got)
	}
}

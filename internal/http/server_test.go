package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"spendwise/internal/cache"
	"spendwise/internal/core"
	"spendwise/internal/services"
	"spendwise/internal/storage/memory"
)

var testSecret = []byte("test-secret-0123456789")

type testEnv struct {
	srv       *Server
	store     *memory.Store
	summaries *cache.SummaryCache
	food      core.Category
	travel    core.Category
	token     string
}

// newTestEnv wires the real services over a memory store seeded with owner
// U1: two Food and one Travel expense in March 2024.
func newTestEnv(t *testing.T, rateLimit int) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	food, err := store.CreateCategory(ctx, "U1", "Food")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	travel, _ := store.CreateCategory(ctx, "U1", "Travel")
	for _, e := range []struct {
		cat   int64
		cents int64
		date  string
	}{
		{food.ID, 10000, "2024-03-05"},
		{food.ID, 5000, "2024-03-20"},
		{travel.ID, 20000, "2024-03-10"},
	} {
		d, _ := time.Parse("2006-01-02", e.date)
		if _, err := store.CreateExpense(ctx, core.Expense{OwnerID: "U1", CategoryID: e.cat, Amount: core.Money{Cents: e.cents}, Date: d}); err != nil {
			t.Fatalf("create expense: %v", err)
		}
	}

	resolver := services.NewCategoryResolver(store)
	expenses := services.NewExpenseService(store, store, nil)
	categories := services.NewCategoryService(store, nil)
	summaries := cache.NewSummaryCache(16, time.Minute)
	expenses.OnChange(summaries)
	categories.OnChange(summaries)

	srv := NewServer(Options{
		Addr:               ":0",
		JWTSecret:          testSecret,
		CORSOrigin:         "*",
		RateLimitPerMinute: rateLimit,
	}, Dependencies{
		Lister:     services.NewExpenseLister(store, resolver),
		Summarizer: services.NewMonthSummarizer(store, resolver),
		Expenses:   expenses,
		Categories: categories,
		Store:      store,
		Summaries:  summaries,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	token, err := IssueToken(testSecret, "U1", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return &testEnv{srv: srv, store: store, summaries: summaries, food: food, travel: travel, token: token}
}

func (e *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return e.doAs(t, e.token, method, target, body)
}

func (e *testEnv) doAs(t *testing.T, token, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func requireError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) ErrorBody {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, status, rr.Body.String())
	}
	body := decode[ErrorBody](t, rr)
	if body.Error.Code != code {
		t.Fatalf("code = %q, want %q", body.Error.Code, code)
	}
	if body.Error.Message == "" {
		t.Fatalf("error message is empty")
	}
	return body
}

type listResponse struct {
	Expenses []struct {
		ID         int64           `json:"id"`
		CategoryID json.RawMessage `json:"categoryId"`
		Amount     float64         `json:"amount"`
		Date       time.Time       `json:"date"`
	} `json:"expenses"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

type summaryResponse struct {
	Month      string  `json:"month"`
	TotalSpend float64 `json:"totalSpend"`
	Count      int64   `json:"count"`
	ByCategory []struct {
		CategoryID   int64   `json:"categoryId"`
		CategoryName string  `json:"categoryName"`
		Total        float64 `json:"total"`
	} `json:"byCategory"`
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, 60)

	for path, want := range map[string]string{"/healthz": "ok", "/readyz": "ready"} {
		rr := env.doAs(t, "", http.MethodGet, path, nil)
		if rr.Code != http.StatusOK || rr.Body.String() != want {
			t.Fatalf("%s = %d %q", path, rr.Code, rr.Body.String())
		}
	}

	rr := env.doAs(t, "", http.MethodGet, "/api/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("/api/health status = %d", rr.Code)
	}
	if h := decode[healthResponse](t, rr); h.Status != "ok" || h.DB != "connected" {
		t.Fatalf("/api/health = %+v", h)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID header")
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t, 60)

	otherSecret, _ := IssueToken([]byte("another-secret-0123456789"), "U1", time.Hour)
	expired, _ := IssueToken(testSecret, "U1", -time.Minute)

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not-a-jwt"},
		{"wrong secret", otherSecret},
		{"expired", expired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.doAs(t, tt.token, http.MethodGet, "/api/summary?month=2024-03", nil)
			requireError(t, rr, http.StatusUnauthorized, CodeUnauthorized)
		})
	}
}

func TestListExpenses(t *testing.T) {
	env := newTestEnv(t, 60)

	rr := env.do(t, http.MethodGet, "/api/expenses?month=2024-03", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rr.Code, rr.Body.String())
	}
	got := decode[listResponse](t, rr)
	if got.Total != 3 || got.Page != 1 || got.Limit != 20 || got.TotalPages != 1 || len(got.Expenses) != 3 {
		t.Fatalf("unexpected page: %+v", got)
	}
	if !got.Expenses[0].Date.Equal(time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)) || got.Expenses[0].Amount != 50 {
		t.Fatalf("first expense = %+v, want the 2024-03-20 Food expense", got.Expenses[0])
	}
	want := `{"id":` + strconv.FormatInt(env.food.ID, 10) + `,"name":"Food"}`
	if string(got.Expenses[0].CategoryID) != want {
		t.Fatalf("categoryId = %s, want %s", got.Expenses[0].CategoryID, want)
	}

	t.Run("second page", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/expenses?month=2024-03&limit=2&page=2", nil)
		got := decode[listResponse](t, rr)
		if got.Total != 3 || got.TotalPages != 2 || len(got.Expenses) != 1 {
			t.Fatalf("unexpected page: %+v", got)
		}
		if !got.Expenses[0].Date.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("last expense date = %v", got.Expenses[0].Date)
		}
	})

	t.Run("category filter", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/expenses?categoryId="+strconv.FormatInt(env.travel.ID, 10), nil)
		got := decode[listResponse](t, rr)
		if got.Total != 1 || len(got.Expenses) != 1 || got.Expenses[0].Amount != 200 {
			t.Fatalf("unexpected page: %+v", got)
		}
	})

	t.Run("empty month", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/expenses?month=2023-01", nil)
		if !strings.Contains(rr.Body.String(), `"expenses":[]`) {
			t.Fatalf("expected empty array, got %s", rr.Body.String())
		}
		if got := decode[listResponse](t, rr); got.Total != 0 || got.TotalPages != 0 {
			t.Fatalf("unexpected page: %+v", got)
		}
	})

	t.Run("other owner sees nothing", func(t *testing.T) {
		token, _ := IssueToken(testSecret, "U2", time.Hour)
		rr := env.doAs(t, token, http.MethodGet, "/api/expenses", nil)
		if got := decode[listResponse](t, rr); got.Total != 0 {
			t.Fatalf("U2 total = %d", got.Total)
		}
	})
}

func TestListExpensesValidation(t *testing.T) {
	env := newTestEnv(t, 60)

	for _, query := range []string{
		"month=2024-13",
		"month=2024-3",
		"page=0",
		"limit=0",
		"limit=101",
		"limit=abc",
		"categoryId=-1",
		"categoryId=food",
	} {
		t.Run(query, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, "/api/expenses?"+query, nil)
			requireError(t, rr, http.StatusBadRequest, CodeValidation)
		})
	}
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t, 60)

	rr := env.do(t, http.MethodGet, "/api/summary?month=2024-03", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first request X-Cache = %q", rr.Header().Get("X-Cache"))
	}
	got := decode[summaryResponse](t, rr)
	if got.Month != "2024-03" || got.TotalSpend != 350 || got.Count != 3 || len(got.ByCategory) != 2 {
		t.Fatalf("unexpected summary: %+v", got)
	}
	totals := map[string]float64{}
	for _, c := range got.ByCategory {
		totals[c.CategoryName] = c.Total
	}
	if totals["Food"] != 150 || totals["Travel"] != 200 {
		t.Fatalf("byCategory = %+v", got.ByCategory)
	}

	rr = env.do(t, http.MethodGet, "/api/summary?month=2024-03", nil)
	if rr.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("second request X-Cache = %q", rr.Header().Get("X-Cache"))
	}

	// A write in March drops the cached summary.
	rr = env.do(t, http.MethodPost, "/api/expenses", map[string]any{
		"amount": 12.5, "date": "2024-03-31", "categoryId": env.travel.ID,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d (%s)", rr.Code, rr.Body.String())
	}
	rr = env.do(t, http.MethodGet, "/api/summary?month=2024-03", nil)
	if rr.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("after write X-Cache = %q", rr.Header().Get("X-Cache"))
	}
	if got := decode[summaryResponse](t, rr); got.TotalSpend != 362.5 || got.Count != 4 {
		t.Fatalf("after write summary = %+v", got)
	}
}

// gatedSummarizer computes the summary, then blocks until released.
type gatedSummarizer struct {
	next     MonthSummarizer
	computed chan struct{}
	release  chan struct{}
}

func (g *gatedSummarizer) Summarize(ctx context.Context, ownerID, month string) (core.SummaryResult, error) {
	s, err := g.next.Summarize(ctx, ownerID, month)
	close(g.computed)
	<-g.release
	return s, err
}

func TestSummaryComputedAcrossWriteIsNotCached(t *testing.T) {
	env := newTestEnv(t, 60)
	gate := &gatedSummarizer{
		next:     env.srv.summarizer,
		computed: make(chan struct{}),
		release:  make(chan struct{}),
	}
	env.srv.summarizer = gate

	inflight := make(chan *httptest.ResponseRecorder)
	go func() {
		req := httptest.NewRequest(http.MethodGet, "/api/summary?month=2024-03", nil)
		req.Header.Set("Authorization", "Bearer "+env.token)
		rr := httptest.NewRecorder()
		env.srv.Handler.ServeHTTP(rr, req)
		inflight <- rr
	}()

	<-gate.computed
	rr := env.do(t, http.MethodPost, "/api/expenses", map[string]any{
		"amount": 50, "date": "2024-03-15", "categoryId": env.food.ID,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d (%s)", rr.Code, rr.Body.String())
	}
	close(gate.release)
	if rr := <-inflight; rr.Code != http.StatusOK {
		t.Fatalf("in-flight status = %d", rr.Code)
	}

	env.srv.summarizer = gate.next
	rr = env.do(t, http.MethodGet, "/api/summary?month=2024-03", nil)
	if rr.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("X-Cache = %q, summary from before the write was cached", rr.Header().Get("X-Cache"))
	}
	if got := decode[summaryResponse](t, rr); got.TotalSpend != 400 || got.Count != 4 {
		t.Fatalf("summary = %+v", got)
	}
}

func TestSummaryEmptyAndInvalid(t *testing.T) {
	env := newTestEnv(t, 60)

	rr := env.do(t, http.MethodGet, "/api/summary?month=2024-04", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"byCategory":[]`) || !strings.Contains(rr.Body.String(), `"totalSpend":0`) {
		t.Fatalf("empty summary body = %s", rr.Body.String())
	}

	for _, target := range []string{"/api/summary", "/api/summary?month=2024-13", "/api/summary?month=March"} {
		rr := env.do(t, http.MethodGet, target, nil)
		body := requireError(t, rr, http.StatusBadRequest, CodeValidation)
		details, _ := body.Error.Details.(map[string]any)
		if details["field"] != "month" {
			t.Fatalf("%s details = %v", target, body.Error.Details)
		}
	}
}

type failingSummarizer struct{}

func (failingSummarizer) Summarize(context.Context, string, string) (core.SummaryResult, error) {
	return core.SummaryResult{}, core.Unavailable("sum expenses", errors.New("connection refused"))
}

func TestSummaryStoreUnavailable(t *testing.T) {
	env := newTestEnv(t, 60)
	env.srv.summarizer = failingSummarizer{}

	rr := env.do(t, http.MethodGet, "/api/summary?month=2024-03", nil)
	body := requireError(t, rr, http.StatusServiceUnavailable, CodeStoreUnavailable)
	if strings.Contains(body.Error.Message, "connection refused") {
		t.Fatalf("store error leaked to client: %q", body.Error.Message)
	}
}

func TestExpenseWrites(t *testing.T) {
	env := newTestEnv(t, 60)

	rr := env.do(t, http.MethodPost, "/api/expenses", map[string]any{
		"amount": "19.99", "date": "2024-05-02T15:04:05Z", "categoryId": env.food.ID, "note": "lunch",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d (%s)", rr.Code, rr.Body.String())
	}
	created := decode[core.Expense](t, rr)
	if created.Amount.Cents != 1999 || created.Note != "lunch" || !created.Date.Equal(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("created = %+v", created)
	}
	id := strconv.FormatInt(created.ID, 10)

	rr = env.do(t, http.MethodPut, "/api/expenses/"+id, map[string]any{"amount": 25})
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d (%s)", rr.Code, rr.Body.String())
	}
	if updated := decode[core.Expense](t, rr); updated.Amount.Cents != 2500 || updated.Note != "lunch" {
		t.Fatalf("updated = %+v", updated)
	}

	rr = env.do(t, http.MethodDelete, "/api/expenses/"+id, nil)
	if rr.Code != http.StatusNoContent || rr.Body.Len() != 0 {
		t.Fatalf("delete = %d %q", rr.Code, rr.Body.String())
	}
	rr = env.do(t, http.MethodDelete, "/api/expenses/"+id, nil)
	requireError(t, rr, http.StatusNotFound, CodeNotFound)
}

func TestExpenseWriteValidation(t *testing.T) {
	env := newTestEnv(t, 60)
	cat := env.food.ID

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"negative amount", map[string]any{"amount": -5, "date": "2024-03-01", "categoryId": cat}, http.StatusBadRequest, CodeValidation},
		{"zero amount", map[string]any{"amount": 0, "date": "2024-03-01", "categoryId": cat}, http.StatusBadRequest, CodeValidation},
		{"missing date", map[string]any{"amount": 5, "categoryId": cat}, http.StatusBadRequest, CodeValidation},
		{"bad date", map[string]any{"amount": 5, "date": "01/03/2024", "categoryId": cat}, http.StatusBadRequest, CodeValidation},
		{"missing category", map[string]any{"amount": 5, "date": "2024-03-01"}, http.StatusBadRequest, CodeValidation},
		{"long note", map[string]any{"amount": 5, "date": "2024-03-01", "categoryId": cat, "note": strings.Repeat("x", 501)}, http.StatusBadRequest, CodeValidation},
		{"malformed json", "{", http.StatusBadRequest, CodeValidation},
		{"unknown category", map[string]any{"amount": 5, "date": "2024-03-01", "categoryId": 9999}, http.StatusNotFound, CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/expenses", tt.body)
			requireError(t, rr, tt.status, tt.code)
		})
	}

	t.Run("bad path id", func(t *testing.T) {
		rr := env.do(t, http.MethodPut, "/api/expenses/abc", map[string]any{"amount": 1})
		requireError(t, rr, http.StatusBadRequest, CodeValidation)
	})
}

func TestCategoryEndpoints(t *testing.T) {
	env := newTestEnv(t, 60)

	rr := env.do(t, http.MethodGet, "/api/categories", nil)
	if cats := decode[[]core.Category](t, rr); len(cats) != 2 {
		t.Fatalf("categories = %+v", cats)
	}

	rr = env.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "  food "})
	body := requireError(t, rr, http.StatusConflict, CodeConflict)
	if body.Error.Message != `Category "food" already exists` {
		t.Fatalf("conflict message = %q", body.Error.Message)
	}

	rr = env.do(t, http.MethodPost, "/api/categories", map[string]string{"name": ""})
	requireError(t, rr, http.StatusBadRequest, CodeValidation)

	rr = env.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "Health"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d (%s)", rr.Code, rr.Body.String())
	}
	health := decode[core.Category](t, rr)

	rr = env.do(t, http.MethodPut, "/api/categories/"+strconv.FormatInt(health.ID, 10), map[string]string{"name": "Wellness"})
	if renamed := decode[core.Category](t, rr); rr.Code != http.StatusOK || renamed.Name != "Wellness" {
		t.Fatalf("rename = %d %+v", rr.Code, renamed)
	}

	rr = env.do(t, http.MethodDelete, "/api/categories/"+strconv.FormatInt(env.food.ID, 10), nil)
	body = requireError(t, rr, http.StatusConflict, CodeConflict)
	if !strings.Contains(body.Error.Message, "used by 2 expense(s)") {
		t.Fatalf("delete conflict message = %q", body.Error.Message)
	}

	rr = env.do(t, http.MethodDelete, "/api/categories/"+strconv.FormatInt(health.ID, 10), nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/api/categories/defaults", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("seed status = %d (%s)", rr.Code, rr.Body.String())
	}
	if seeded := decode[[]core.Category](t, rr); len(seeded) != 2 {
		t.Fatalf("seeded = %+v, want Shopping and Bills only", seeded)
	}
	rr = env.do(t, http.MethodPost, "/api/categories/defaults", nil)
	if !strings.HasPrefix(strings.TrimSpace(rr.Body.String()), "[]") {
		t.Fatalf("second seed = %s, want []", rr.Body.String())
	}
}

func TestCategoryRenameInvalidatesSummaries(t *testing.T) {
	env := newTestEnv(t, 60)

	env.do(t, http.MethodGet, "/api/summary?month=2024-03", nil)
	if env.summaries.Stats().Size != 1 {
		t.Fatalf("summary not cached")
	}
	rr := env.do(t, http.MethodPut, "/api/categories/"+strconv.FormatInt(env.food.ID, 10), map[string]string{"name": "Groceries"})
	if rr.Code != http.StatusOK {
		t.Fatalf("rename status = %d", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/api/summary?month=2024-03", nil)
	if rr.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("X-Cache = %q after rename", rr.Header().Get("X-Cache"))
	}
	got := decode[summaryResponse](t, rr)
	names := map[string]bool{}
	for _, c := range got.ByCategory {
		names[c.CategoryName] = true
	}
	if !names["Groceries"] || names["Food"] {
		t.Fatalf("byCategory = %+v", got.ByCategory)
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	env := newTestEnv(t, 1)

	body := map[string]string{"name": "One"}
	if rr := env.do(t, http.MethodPost, "/api/categories", body); rr.Code != http.StatusCreated {
		t.Fatalf("first write status = %d", rr.Code)
	}
	rr := env.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "Two"})
	requireError(t, rr, http.StatusTooManyRequests, CodeRateLimited)
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q", rr.Header().Get("Retry-After"))
	}

	for i := 0; i < 3; i++ {
		if rr := env.do(t, http.MethodGet, "/api/categories", nil); rr.Code != http.StatusOK {
			t.Fatalf("read %d status = %d", i, rr.Code)
		}
	}

	// Limits are per owner.
	token, _ := IssueToken(testSecret, "U2", time.Hour)
	if rr := env.doAs(t, token, http.MethodPost, "/api/categories", body); rr.Code != http.StatusCreated {
		t.Fatalf("U2 write status = %d", rr.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, 60)
	rr := env.do(t, http.MethodGet, "/api/nope", nil)
	requireError(t, rr, http.StatusNotFound, CodeNotFound)
}

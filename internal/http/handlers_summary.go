package http

import (
	"net/http"
	"strings"

	applog "spendwise/internal/log"
)

// handleSummary serves GET /api/summary?month=YYYY-MM. Results are cached per
// owner and month until a write touches that month. A result computed across
// a write is served but not cached.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := mustOwner(r)
	month := strings.TrimSpace(r.URL.Query().Get("month"))

	var gen uint64
	if s.summaries != nil {
		if cached, ok := s.summaries.Get(owner, month); ok {
			_ = NewJSONResponse().Header("X-Cache", "HIT").Body(cached).Send(w)
			return
		}
		gen = s.summaries.Generation(owner)
	}

	summary, err := s.summarizer.Summarize(ctx, owner, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if s.summaries != nil {
		s.summaries.SetIfCurrent(owner, summary.Month, gen, summary)
	}

	applog.FromContext(ctx).DebugContext(ctx, "Summary computed",
		applog.FieldOwnerID, owner,
		applog.FieldMonth, summary.Month,
		"count", summary.Count)
	if err := NewJSONResponse().Header("X-Cache", "MISS").Body(summary).Send(w); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to write summary", applog.FieldError, err.Error())
	}
}

package dashboard

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/adestefa/ccmem/internal/analysis"
	"github.com/adestefa/ccmem/internal/store"
)

const notificationLimit = 50

// Refresh types of /api/dashboard.
const (
	refreshFull    = "full"
	refreshMetrics = "metrics"
	refreshBacklog = "backlog"
	refreshKanban  = "kanban"
)

func (s *Server) handleBacklog(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.BacklogItems(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	ok(w, map[string]any{"data": nonNil(items)})
}

func (s *Server) handleAddBacklog(w http.ResponseWriter, r *http.Request) {
	var p store.BacklogParams
	if err := decode(r, &p, false); err != nil {
		writeError(w, err)
		return
	}
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		writeError(w, badRequestf("title is required"))
		return
	}
	id, order, err := s.store.AddBacklogItem(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	ok(w, map[string]any{
		"backlog_id":    id,
		"message":       fmt.Sprintf("Story %q added to backlog", p.Title),
		"display_order": order,
	})
}

func (s *Server) handlePriority(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Priority *int `json:"priority"`
	}
	if err := decode(r, &body, false); err != nil {
		writeError(w, err)
		return
	}
	if body.Priority == nil {
		writeError(w, badRequestf("priority is required"))
		return
	}
	if err := s.store.UpdateBacklogPriority(r.Context(), id, *body.Priority); err != nil {
		writeError(w, err)
		return
	}
	ok(w, map[string]any{
		"message":    fmt.Sprintf("Priority updated to %d", *body.Priority),
		"backlog_id": id,
	})
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OrderedIDs []int64 `json:"orderedIds"`
	}
	if err := decode(r, &body, false); err != nil {
		writeError(w, err)
		return
	}
	if body.OrderedIDs == nil {
		writeError(w, badRequestf("orderedIds must be an array"))
		return
	}
	if err := s.store.ReorderBacklog(r.Context(), body.OrderedIDs); err != nil {
		writeError(w, err)
		return
	}
	ok(w, map[string]any{
		"message":   fmt.Sprintf("Reordered %d backlog items", len(body.OrderedIDs)),
		"new_order": body.OrderedIDs,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := decode(r, &body, false); err != nil {
		writeError(w, err)
		return
	}
	if !store.ValidBacklogStatus(body.Status) {
		writeError(w, badRequestf("status must be one of queue, in_development, qa, done"))
		return
	}
	if err := s.store.UpdateBacklogStatus(r.Context(), id, body.Status); err != nil {
		writeError(w, err)
		return
	}
	ok(w, map[string]any{"message": "Status updated to " + body.Status})
}

// boardMetrics are the counters shown above the kanban board.
type boardMetrics struct {
	TotalStories int `json:"total_stories"`
	BacklogItems int `json:"backlog_items"`
	QueueTasks   int `json:"queue_tasks"`
	DevTasks     int `json:"dev_tasks"`
	QATasks      int `json:"qa_tasks"`
	DoneTasks    int `json:"done_tasks"`
	OpenDefects  int `json:"open_defects"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	refresh := r.URL.Query().Get("refresh_type")
	if refresh == "" {
		refresh = refreshFull
	}
	switch refresh {
	case refreshFull, refreshMetrics, refreshBacklog, refreshKanban:
	default:
		writeError(w, badRequestf("refresh_type must be one of full, metrics, backlog, kanban"))
		return
	}
	want := func(part string) bool { return refresh == refreshFull || refresh == part }

	data := make(map[string]any)
	if want(refreshMetrics) {
		n, err := s.store.Counts(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		qa, err := s.store.BacklogByStatus(ctx, store.BacklogQA)
		if err != nil {
			writeError(w, err)
			return
		}
		data["metrics"] = boardMetrics{
			TotalStories: n.Stories,
			BacklogItems: n.BacklogItems,
			QueueTasks:   n.PendingTasks,
			DevTasks:     n.InProgressTasks,
			QATasks:      len(qa),
			DoneTasks:    n.CompletedTasks,
			OpenDefects:  n.OpenDefects,
		}
	}
	if want(refreshBacklog) {
		items, err := s.store.BacklogItems(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		data["backlog"] = nonNil(items)
	}
	if want(refreshKanban) {
		kanban := make(map[string][]store.BacklogItem, 4)
		for key, status := range map[string]string{
			"queue":       store.BacklogQueue,
			"development": store.BacklogInDevelopment,
			"qa":          store.BacklogQA,
			"done":        store.BacklogDone,
		} {
			items, err := s.store.BacklogByStatus(ctx, status)
			if err != nil {
				writeError(w, err)
				return
			}
			kanban[key] = nonNil(items)
		}
		data["kanban"] = kanban
	}

	ok(w, map[string]any{"data": data, "timestamp": time.Now().UTC().Format(time.RFC3339)})
}

// ─── Notifications ──────────────────────────────────────────────────────────

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	onlyNew := r.URL.Query().Get("unacknowledged_only") != "false"
	notes, err := s.store.Notifications(r.Context(), onlyNew, notificationLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	unacked := 0
	for _, n := range notes {
		if !n.Acknowledged {
			unacked++
		}
	}
	ok(w, map[string]any{"notifications": nonNil(notes), "unacknowledged_count": unacked})
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	var body struct {
		NotificationIDs []int64 `json:"notification_ids"`
	}
	if err := decode(r, &body, true); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.AcknowledgeNotifications(r.Context(), body.NotificationIDs); err != nil {
		writeError(w, err)
		return
	}
	ok(w, map[string]any{"message": "Notifications acknowledged"})
}

// ─── Analysis ───────────────────────────────────────────────────────────────

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	item, err := s.store.BacklogItem(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	res := analysis.Analyze(analysis.Input{
		Title:           item.Title,
		Description:     item.Description,
		SuccessCriteria: item.SuccessCriteria,
		Complexity:      item.EstimatedComplexity,
		BusinessValue:   item.BusinessValue,
	})
	err = s.store.SaveAnalysis(ctx, store.Analysis{
		BacklogID:          id,
		FullReport:         res.Report,
		RiskAssessment:     res.RiskAssessment,
		Recommendations:    res.Recommendations,
		RiskScore:          res.Score,
		RecommendationType: res.Recommendation,
	}, res.Summary)
	if err != nil {
		writeError(w, err)
		return
	}
	ok(w, map[string]any{"analysis": map[string]any{
		"report":           res.Report,
		"risk_assessment":  res.RiskAssessment,
		"recommendations":  res.Recommendations,
		"risk_score":       res.Score,
		"risk_level":       res.Level,
		"recommendation":   res.Recommendation,
		"matched_keywords": nonNil(res.MatchedKeywords),
	}})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	a, err := s.store.LatestAnalysis(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	ok(w, map[string]any{"analysis": a})
}

func (s *Server) handleCreateFromBacklog(w http.ResponseWriter, r *http.Request) {
	var body struct {
		BacklogID       int64 `json:"backlog_id"`
		ApprovedByPrime bool  `json:"approved_by_prime"`
	}
	if err := decode(r, &body, false); err != nil {
		writeError(w, err)
		return
	}
	if body.BacklogID <= 0 {
		writeError(w, badRequestf("backlog_id is required"))
		return
	}
	item, storyID, err := s.store.PromoteBacklogItem(r.Context(), body.BacklogID, body.ApprovedByPrime)
	if err != nil {
		writeError(w, err)
		return
	}
	ok(w, map[string]any{
		"message":           fmt.Sprintf("Story %q moved to development", item.Title),
		"story_id":          storyID,
		"backlog_id":        item.ID,
		"approved_by_prime": body.ApprovedByPrime,
	})
}

// nonNil turns a nil slice into an empty one so it encodes as [].
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

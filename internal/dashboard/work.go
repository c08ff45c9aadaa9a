package dashboard

import (
	"fmt"
	"net/http"

	"github.com/adestefa/ccmem/internal/metrics"
)

const defaultStoryLimit = 50

func (s *Server) handleStories(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultStoryLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	if limit <= 0 {
		limit = defaultStoryLimit
	}
	stories, err := s.store.StorySummaries(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	ok(w, map[string]any{"stories": nonNil(stories)})
}

func (s *Server) handleStoryTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	story, err := s.store.Story(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	tasks, err := s.store.TasksForStory(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	ok(w, map[string]any{"story": story, "tasks": nonNil(tasks)})
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	task, err := s.store.Task(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	logs, err := s.store.TaskLogs(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	sessions, err := s.store.SessionsForTask(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	ok(w, map[string]any{"task": task, "logs": nonNil(logs), "sessions": nonNil(sessions)})
}

// handleDeleteTask removes a task with its logs, sessions and landmines.
// Risk entries keep their ids; ccmem-doc and the risks resource report
// them as dangling.
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.DeleteTask(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	ok(w, map[string]any{"message": fmt.Sprintf("Task %d deleted", id)})
}

func (s *Server) handleLandmine(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	l, err := s.risks.Landmine(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	ok(w, map[string]any{"landmine": l})
}

func (s *Server) handleRisks(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	f, err := s.risks.FindRelevantRisks(r.Context(), term)
	if err != nil {
		s.metrics.RiskSearch(metrics.SearchError)
		writeError(w, err)
		return
	}
	if f.Empty() {
		s.metrics.RiskSearch(metrics.SearchNone)
	} else {
		s.metrics.RiskSearch(metrics.SearchFound)
	}
	ok(w, map[string]any{"term": f.Term, "landmines": nonNil(f.Landmines)})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Export(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

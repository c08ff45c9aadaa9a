package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StoryProgress is a story with its task breakdown, as exported.
type StoryProgress struct {
	Story
	Status     string  `json:"status"`
	Progress   float64 `json:"progress"`
	TaskCounts struct {
		Total      int `json:"total"`
		Completed  int `json:"completed"`
		InProgress int `json:"in_progress"`
		Pending    int `json:"pending"`
	} `json:"task_counts"`
}

// Snapshot is a point-in-time copy of the work records.
type Snapshot struct {
	ID          string          `json:"id"`
	LastUpdated string          `json:"last_updated"`
	Stories     []StoryProgress `json:"stories"`
	Tasks       []TaskView      `json:"tasks"`
	Defects     []DefectView    `json:"defects"`
	Landmines   []LandmineView  `json:"landmines"`
	Risks       []Risk          `json:"risks"`
	Metrics     Counts          `json:"metrics"`
}

const exportLimit = 1 << 30

// Export reads a consistent snapshot inside one transaction.
func (s *Store) Export(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		ID:          uuid.NewString(),
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
	}
	err := s.WithTx(ctx, func(tx *Tx) error {
		stories, err := tx.RecentStories(ctx, exportLimit)
		if err != nil {
			return err
		}
		if snap.Tasks, err = tx.RecentTasks(ctx, exportLimit); err != nil {
			return err
		}
		if snap.Defects, err = tx.RecentDefects(ctx, false, exportLimit); err != nil {
			return err
		}
		if snap.Landmines, err = tx.RecentLandmines(ctx, exportLimit); err != nil {
			return err
		}
		if snap.Risks, err = tx.Risks(ctx); err != nil {
			return err
		}
		if snap.Metrics, err = tx.Counts(ctx); err != nil {
			return err
		}
		snap.Stories = storyProgress(stories, snap.Tasks)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func storyProgress(stories []Story, tasks []TaskView) []StoryProgress {
	out := make([]StoryProgress, 0, len(stories))
	for _, st := range stories {
		p := StoryProgress{Story: st, Status: TaskPending}
		for _, t := range tasks {
			if t.StoryID != st.ID {
				continue
			}
			p.TaskCounts.Total++
			switch t.Status {
			case TaskCompleted:
				p.TaskCounts.Completed++
			case TaskInProgress:
				p.TaskCounts.InProgress++
			default:
				p.TaskCounts.Pending++
			}
		}
		if n := p.TaskCounts.Total; n > 0 {
			p.Progress = float64(p.TaskCounts.Completed*1000/n) / 10
			switch {
			case p.TaskCounts.Completed == n:
				p.Status = TaskCompleted
			case p.TaskCounts.InProgress > 0:
				p.Status = TaskInProgress
			}
		}
		out = append(out, p)
	}
	return out
}

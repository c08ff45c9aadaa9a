package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// Backlog statuses.
const (
	BacklogQueue         = "queue"
	BacklogInDevelopment = "in_development"
	BacklogQA            = "qa"
	BacklogDone          = "done"
)

// ValidBacklogStatus reports whether s is a backlog column.
func ValidBacklogStatus(s string) bool {
	switch s {
	case BacklogQueue, BacklogInDevelopment, BacklogQA, BacklogDone:
		return true
	}
	return false
}

// Notification types.
const (
	NotifyNewStory       = "new_story"
	NotifyPriorityUpdate = "priority_update"
	NotifyReorder        = "reorder"
	NotifyStatusChange   = "status_change"
	NotifyAnalysis       = "prime_analysis"
	NotifyStoryCreated   = "story_created"
)

// BacklogItem is a proposed story waiting on the dashboard board.
type BacklogItem struct {
	ID                  int64   `db:"id" json:"id"`
	Title               string  `db:"title" json:"title"`
	Description         string  `db:"description" json:"description"`
	SuccessCriteria     string  `db:"success_criteria" json:"success_criteria"`
	Priority            int     `db:"priority" json:"priority"`
	BusinessValue       int     `db:"business_value" json:"business_value"`
	EstimatedComplexity string  `db:"estimated_complexity" json:"estimated_complexity"`
	Status              string  `db:"status" json:"status"`
	DisplayOrder        int     `db:"display_order" json:"display_order"`
	PrimeNotes          *string `db:"prime_notes" json:"prime_notes,omitempty"`
	LastAnalyzed        *string `db:"last_analyzed" json:"last_analyzed,omitempty"`
	StoryID             *int64  `db:"story_id" json:"story_id,omitempty"`
	Timestamp           string  `db:"timestamp" json:"timestamp"`
}

// BacklogParams holds the input for AddBacklogItem.
type BacklogParams struct {
	Title               string `json:"title"`
	Description         string `json:"description"`
	SuccessCriteria     string `json:"success_criteria"`
	Priority            int    `json:"priority"`
	BusinessValue       int    `json:"business_value"`
	EstimatedComplexity string `json:"estimated_complexity"`
}

// Notification records a dashboard change for the agent to pick up.
type Notification struct {
	ID                int64   `db:"id" json:"id"`
	NotificationType  string  `db:"notification_type" json:"notification_type"`
	BacklogID         *int64  `db:"backlog_id" json:"backlog_id,omitempty"`
	ChangeDescription string  `db:"change_description" json:"change_description"`
	OldValue          *string `db:"old_value" json:"old_value,omitempty"`
	NewValue          *string `db:"new_value" json:"new_value,omitempty"`
	UserAction        string  `db:"user_action" json:"user_action"`
	Timestamp         string  `db:"timestamp" json:"timestamp"`
	Acknowledged      bool    `db:"acknowledged" json:"acknowledged"`
	StoryTitle        *string `db:"story_title" json:"story_title,omitempty"`
}

// Analysis is a stored risk review of a backlog item.
type Analysis struct {
	ID                 int64  `db:"id" json:"id"`
	BacklogID          int64  `db:"backlog_id" json:"backlog_id"`
	FullReport         string `db:"full_report" json:"full_report"`
	RiskAssessment     string `db:"risk_assessment" json:"risk_assessment"`
	Recommendations    string `db:"recommendations" json:"recommendations"`
	RiskScore          int    `db:"risk_score" json:"risk_score"`
	RecommendationType string `db:"recommendation_type" json:"recommendation_type"`
	AnalysisTimestamp  string `db:"analysis_timestamp" json:"analysis_timestamp"`
}

const backlogColumns = `id, title, description, success_criteria, priority, business_value,
	estimated_complexity, status, display_order, prime_notes, last_analyzed, story_id, timestamp`

type notification struct {
	kind        string
	backlogID   *int64
	description string
	oldValue    any
	newValue    any
	action      string
}

func (c conn) addNotification(ctx context.Context, n notification) error {
	_, err := c.insert(ctx, `
		INSERT INTO prime_notifications
			(notification_type, backlog_id, change_description, old_value, new_value, user_action)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.kind, n.backlogID, n.description, n.oldValue, n.newValue, n.action,
	)
	if err != nil {
		return fmt.Errorf("store: add notification: %w", err)
	}
	return nil
}

// ─── Backlog ─────────────────────────────────────────────────────────────────

// AddBacklogItem appends an item to the end of the board and records a
// new_story notification. It returns the id and display position.
func (s *Store) AddBacklogItem(ctx context.Context, p BacklogParams) (id int64, order int, err error) {
	if p.Priority == 0 {
		p.Priority = 3
	}
	if p.BusinessValue == 0 {
		p.BusinessValue = 5
	}
	if p.EstimatedComplexity == "" {
		p.EstimatedComplexity = "moderate"
	}
	err = s.WithTx(ctx, func(tx *Tx) error {
		var maxOrder sql.NullInt64
		if err := tx.get(ctx, &maxOrder, `SELECT MAX(display_order) FROM backlog`); err != nil {
			return fmt.Errorf("store: next display order: %w", err)
		}
		order = int(maxOrder.Int64) + 1

		id, err = tx.insert(ctx, `
			INSERT INTO backlog (title, description, success_criteria, priority,
			                     business_value, estimated_complexity, display_order)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.Title, p.Description, p.SuccessCriteria, p.Priority,
			p.BusinessValue, p.EstimatedComplexity, order,
		)
		if err != nil {
			return fmt.Errorf("store: add backlog item: %w", err)
		}
		return tx.addNotification(ctx, notification{
			kind:      NotifyNewStory,
			backlogID: &id,
			description: fmt.Sprintf("New story created: %q with priority %d and business value %d",
				p.Title, p.Priority, p.BusinessValue),
			action: "story_creation",
		})
	})
	return id, order, err
}

// BacklogItems returns the whole board in display order.
func (c conn) BacklogItems(ctx context.Context) ([]BacklogItem, error) {
	var out []BacklogItem
	err := c.sel(ctx, &out, `SELECT `+backlogColumns+` FROM backlog
		ORDER BY display_order ASC, priority ASC, business_value DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: backlog: %w", err)
	}
	return out, nil
}

// BacklogByStatus returns one board column in display order.
func (c conn) BacklogByStatus(ctx context.Context, status string) ([]BacklogItem, error) {
	var out []BacklogItem
	err := c.sel(ctx, &out, `SELECT `+backlogColumns+` FROM backlog
		WHERE status = ? ORDER BY display_order ASC`, status)
	if err != nil {
		return nil, fmt.Errorf("store: backlog %s: %w", status, err)
	}
	return out, nil
}

// BacklogItem returns one backlog item.
func (c conn) BacklogItem(ctx context.Context, id int64) (*BacklogItem, error) {
	var b BacklogItem
	err := c.get(ctx, &b, `SELECT `+backlogColumns+` FROM backlog WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFoundf("Backlog item not found")
	}
	if err != nil {
		return nil, fmt.Errorf("store: get backlog item %d: %w", id, err)
	}
	return &b, nil
}

// UpdateBacklogPriority changes an item's priority and records the change.
func (s *Store) UpdateBacklogPriority(ctx context.Context, id int64, priority int) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		item, err := tx.BacklogItem(ctx, id)
		if err != nil {
			return err
		}
		if _, err := tx.update(ctx, `UPDATE backlog SET priority = ? WHERE id = ?`, priority, id); err != nil {
			return fmt.Errorf("store: update priority: %w", err)
		}
		return tx.addNotification(ctx, notification{
			kind:        NotifyPriorityUpdate,
			backlogID:   &id,
			description: fmt.Sprintf("Priority changed for %q", item.Title),
			oldValue:    strconv.Itoa(item.Priority),
			newValue:    strconv.Itoa(priority),
			action:      "priority_change",
		})
	})
}

// UpdateBacklogStatus moves an item to another board column.
func (s *Store) UpdateBacklogStatus(ctx context.Context, id int64, status string) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		item, err := tx.BacklogItem(ctx, id)
		if err != nil {
			return err
		}
		if _, err := tx.update(ctx, `UPDATE backlog SET status = ? WHERE id = ?`, status, id); err != nil {
			return fmt.Errorf("store: update status: %w", err)
		}
		return tx.addNotification(ctx, notification{
			kind:        NotifyStatusChange,
			backlogID:   &id,
			description: fmt.Sprintf("Status changed from %q to %q", item.Status, status),
			oldValue:    item.Status,
			newValue:    status,
			action:      "manual_update",
		})
	})
}

// ReorderBacklog assigns display positions 1..n following orderedIDs.
// Unknown ids are ignored.
func (s *Store) ReorderBacklog(ctx context.Context, orderedIDs []int64) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		for i, id := range orderedIDs {
			if _, err := tx.update(ctx, `UPDATE backlog SET display_order = ? WHERE id = ?`, i+1, id); err != nil {
				return fmt.Errorf("store: reorder backlog: %w", err)
			}
		}
		return tx.addNotification(ctx, notification{
			kind:        NotifyReorder,
			description: fmt.Sprintf("Backlog reordered - %d items repositioned", len(orderedIDs)),
			action:      "drag_drop_reorder",
		})
	})
}

// PromoteBacklogItem turns a backlog item into a real story, moves it to
// in_development and records the change. It returns the new story id.
func (s *Store) PromoteBacklogItem(ctx context.Context, id int64, approved bool) (*BacklogItem, int64, error) {
	var (
		item    *BacklogItem
		storyID int64
	)
	err := s.WithTx(ctx, func(tx *Tx) error {
		var err error
		item, err = tx.BacklogItem(ctx, id)
		if err != nil {
			return err
		}
		message := item.Title
		if item.Description != "" {
			message += ": " + item.Description
		}
		storyID, err = tx.CreateStory(ctx, message)
		if err != nil {
			return err
		}
		if _, err := tx.update(ctx, `UPDATE backlog SET status = ?, story_id = ? WHERE id = ?`,
			BacklogInDevelopment, storyID, id); err != nil {
			return fmt.Errorf("store: promote backlog item: %w", err)
		}
		desc := fmt.Sprintf("Story %q moved to development", item.Title)
		if approved {
			desc += " (Prime approved)"
		}
		return tx.addNotification(ctx, notification{
			kind:        NotifyStoryCreated,
			backlogID:   &id,
			description: desc,
			action:      "story_creation_from_backlog",
		})
	})
	if err != nil {
		return nil, 0, err
	}
	item.Status = BacklogInDevelopment
	item.StoryID = &storyID
	return item, storyID, nil
}

// ─── Analysis ────────────────────────────────────────────────────────────────

// SaveAnalysis stores an analysis, copies its summary onto the item and
// records a prime_analysis notification.
func (s *Store) SaveAnalysis(ctx context.Context, a Analysis, summary string) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		item, err := tx.BacklogItem(ctx, a.BacklogID)
		if err != nil {
			return err
		}
		if _, err := tx.insert(ctx, `
			INSERT INTO prime_analysis (backlog_id, full_report, risk_assessment, recommendations,
			                            risk_score, recommendation_type)
			VALUES (?, ?, ?, ?, ?, ?)`,
			a.BacklogID, a.FullReport, a.RiskAssessment, a.Recommendations, a.RiskScore, a.RecommendationType,
		); err != nil {
			return fmt.Errorf("store: save analysis: %w", err)
		}
		if _, err := tx.update(ctx,
			`UPDATE backlog SET prime_notes = ?, last_analyzed = datetime('now') WHERE id = ?`,
			summary, a.BacklogID); err != nil {
			return fmt.Errorf("store: annotate backlog item: %w", err)
		}
		return tx.addNotification(ctx, notification{
			kind:      NotifyAnalysis,
			backlogID: &a.BacklogID,
			description: fmt.Sprintf("Prime analyzed %q - Risk: %d, Recommendation: %s",
				item.Title, a.RiskScore, a.RecommendationType),
			action: "prime_analysis",
		})
	})
}

// LatestAnalysis returns the newest analysis of a backlog item.
func (c conn) LatestAnalysis(ctx context.Context, backlogID int64) (*Analysis, error) {
	var a Analysis
	err := c.get(ctx, &a, `
		SELECT id, backlog_id, full_report, risk_assessment, recommendations,
		       risk_score, recommendation_type, analysis_timestamp
		FROM prime_analysis WHERE backlog_id = ?
		ORDER BY analysis_timestamp DESC, id DESC LIMIT 1`, backlogID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFoundf("No Prime analysis found for this story")
	}
	if err != nil {
		return nil, fmt.Errorf("store: latest analysis %d: %w", backlogID, err)
	}
	return &a, nil
}

// ─── Notifications ───────────────────────────────────────────────────────────

// Notifications returns up to limit notifications, newest first.
func (c conn) Notifications(ctx context.Context, unacknowledgedOnly bool, limit int) ([]Notification, error) {
	query := `
		SELECT pn.id, pn.notification_type, pn.backlog_id, pn.change_description, pn.old_value,
		       pn.new_value, pn.user_action, pn.timestamp, pn.acknowledged, b.title AS story_title
		FROM prime_notifications pn
		LEFT JOIN backlog b ON b.id = pn.backlog_id`
	if unacknowledgedOnly {
		query += ` WHERE pn.acknowledged = 0`
	}
	query += ` ORDER BY pn.timestamp DESC, pn.id DESC LIMIT ?`

	var out []Notification
	if err := c.sel(ctx, &out, query, limit); err != nil {
		return nil, fmt.Errorf("store: notifications: %w", err)
	}
	return out, nil
}

// AcknowledgeNotifications marks the given notifications as seen, or all
// of them when ids is nil.
func (s *Store) AcknowledgeNotifications(ctx context.Context, ids []int64) error {
	if ids == nil {
		if _, err := s.update(ctx, `UPDATE prime_notifications SET acknowledged = 1`); err != nil {
			return fmt.Errorf("store: acknowledge notifications: %w", err)
		}
		return nil
	}
	return s.WithTx(ctx, func(tx *Tx) error {
		for _, id := range ids {
			if _, err := tx.update(ctx, `UPDATE prime_notifications SET acknowledged = 1 WHERE id = ?`, id); err != nil {
				return fmt.Errorf("store: acknowledge notification %d: %w", id, err)
			}
		}
		return nil
	})
}

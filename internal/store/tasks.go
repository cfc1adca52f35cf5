package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"todosync-cli/internal/model"
	"todosync-cli/internal/weight"
)

// CreateTask adds a task to the list. Without a placement the task goes last.
func (s *Store) CreateTask(ctx context.Context, slug string, in model.ItemCreate) (model.Item, error) {
	if err := in.Validate(); err != nil {
		return model.Item{}, ValidationError{Msg: err.Error()}
	}
	if err := validateTaskText(in.Text); err != nil {
		return model.Item{}, err
	}

	var out model.Item
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row, err := activeListBySlug(ctx, tx, slug)
		if err != nil {
			return err
		}
		items, err := loadItems(ctx, tx, row.id)
		if err != nil {
			return err
		}
		key, err := s.place(ctx, tx, row.id, items, "", in.Placement, in.TargetID)
		if err != nil {
			return err
		}

		out = model.Item{ID: newID(), Text: in.Text, Key: key}
		if in.Done != nil {
			out.Done = *in.Done
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO tasks(id, list_id, task, is_done, weight) VALUES(?, ?, ?, ?, ?)`,
			out.ID, row.id, out.Text, boolToInt(out.Done), out.Key)
		return err
	})
	return out, err
}

// UpdateTask applies a partial update. A placement moves the task and the
// returned item carries its new key.
func (s *Store) UpdateTask(ctx context.Context, slug, taskID string, patch model.ItemPatch) (model.Item, error) {
	if err := patch.Validate(); err != nil {
		return model.Item{}, ValidationError{Msg: err.Error()}
	}
	if patch.Text != nil {
		if err := validateTaskText(*patch.Text); err != nil {
			return model.Item{}, err
		}
	}

	var out model.Item
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row, err := activeListBySlug(ctx, tx, slug)
		if err != nil {
			return err
		}
		items, err := loadItems(ctx, tx, row.id)
		if err != nil {
			return err
		}
		cur, ok := findItem(items, taskID)
		if !ok {
			return NotFoundError{Kind: "task", ID: taskID}
		}

		if patch.Placement != "" {
			key, err := s.place(ctx, tx, row.id, items, cur.ID, patch.Placement, patch.TargetID)
			if err != nil {
				return err
			}
			cur.Key = key
		}
		if patch.Text != nil {
			cur.Text = *patch.Text
		}
		if patch.Done != nil {
			cur.Done = *patch.Done
		}

		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET task = ?, is_done = ?, weight = ? WHERE id = ?`,
			cur.Text, boolToInt(cur.Done), cur.Key, cur.ID); err != nil {
			return err
		}
		out = cur
		return nil
	})
	return out, err
}

func (s *Store) DeleteTask(ctx context.Context, slug, taskID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		row, err := activeListBySlug(ctx, tx, slug)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND list_id = ?`, strings.TrimSpace(taskID), row.id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return NotFoundError{Kind: "task", ID: taskID}
		}
		return nil
	})
}

// place computes the key for movingID (empty for a new task) and persists any
// keys a rebalance reassigned.
func (s *Store) place(ctx context.Context, tx *sql.Tx, listID string, items []model.Item, movingID string, placement model.Placement, targetID string) (float64, error) {
	plan, err := weight.PlanPlacement(items, movingID, placement, targetID)
	if errors.Is(err, weight.ErrTargetNotFound) {
		return 0, NotFoundError{Kind: "task", ID: targetID}
	}
	if err != nil {
		return 0, err
	}
	if plan.UsedFallback {
		s.log.Info("rebalanced task keys",
			slog.String("list", listID),
			slog.Int("count", len(plan.Keys)),
		)
	}
	for id, k := range plan.Keys {
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET weight = ? WHERE id = ? AND list_id = ?`, k, id, listID); err != nil {
			return 0, fmt.Errorf("rebalance %s: %w", id, err)
		}
	}
	return plan.Key, nil
}

func findItem(items []model.Item, id string) (model.Item, bool) {
	id = strings.TrimSpace(id)
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return model.Item{}, false
}

func validateTaskText(text string) error {
	if utf8.RuneCountInString(text) > maxTaskTextLen {
		return ValidationError{Msg: fmt.Sprintf("task text is longer than %d characters", maxTaskTextLen)}
	}
	return nil
}

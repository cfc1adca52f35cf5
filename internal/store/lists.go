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
)

type listRow struct {
	id     string
	name   string
	slug   string
	isFree bool
}

// CreateList creates a list. A previously deleted (free) list row is reused when
// one exists, keeping its slug; otherwise a fresh slug is generated.
func (s *Store) CreateList(ctx context.Context, name string) (model.List, error) {
	if err := validateListName(name); err != nil {
		return model.List{}, err
	}

	var out model.List
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var row listRow
		err := tx.QueryRowContext(ctx, `SELECT id, slug FROM lists WHERE is_free = 1 LIMIT 1`).Scan(&row.id, &row.slug)
		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx, `UPDATE lists SET name = ?, is_free = 0 WHERE id = ?`, name, row.id); err != nil {
				return err
			}
			out = model.List{ID: row.id, Name: name, Slug: row.slug, Items: []model.Item{}}
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}

		for i := 0; i < slugAttempts; i++ {
			slug, err := s.newSlug()
			if err != nil {
				return err
			}
			var n int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM lists WHERE slug = ?`, slug).Scan(&n); err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			id := newID()
			if _, err := tx.ExecContext(ctx, `INSERT INTO lists(id, name, slug, is_free) VALUES(?, ?, ?, 0)`, id, name, slug); err != nil {
				return err
			}
			out = model.List{ID: id, Name: name, Slug: slug, Items: []model.Item{}}
			return nil
		}
		return fmt.Errorf("failed to create a unique slug after %d attempts", slugAttempts)
	})
	if err != nil {
		return model.List{}, err
	}
	s.log.Debug("list created", slog.String("slug", out.Slug))
	return out, nil
}

// GetList returns the list with its items ordered by key.
func (s *Store) GetList(ctx context.Context, slug string) (model.List, error) {
	var out model.List
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row, err := activeListBySlug(ctx, tx, slug)
		if err != nil {
			return err
		}
		items, err := loadItems(ctx, tx, row.id)
		if err != nil {
			return err
		}
		out = model.List{ID: row.id, Name: row.name, Slug: row.slug, Items: items}
		return nil
	})
	return out, err
}

func (s *Store) UpdateList(ctx context.Context, slug, name string) (model.List, error) {
	if err := validateListName(name); err != nil {
		return model.List{}, err
	}
	var out model.List
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row, err := activeListBySlug(ctx, tx, slug)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE lists SET name = ? WHERE id = ?`, name, row.id); err != nil {
			return err
		}
		items, err := loadItems(ctx, tx, row.id)
		if err != nil {
			return err
		}
		out = model.List{ID: row.id, Name: name, Slug: row.slug, Items: items}
		return nil
	})
	return out, err
}

// DeleteList frees the list (its slug becomes reusable) and deletes its tasks.
func (s *Store) DeleteList(ctx context.Context, slug string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		row, err := activeListBySlug(ctx, tx, slug)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE lists SET is_free = 1 WHERE id = ?`, row.id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM tasks WHERE list_id = ?`, row.id)
		return err
	})
}

func activeListBySlug(ctx context.Context, tx *sql.Tx, slug string) (listRow, error) {
	slug = strings.TrimSpace(slug)
	var row listRow
	var free int
	err := tx.QueryRowContext(ctx, `SELECT id, name, slug, is_free FROM lists WHERE slug = ?`, slug).
		Scan(&row.id, &row.name, &row.slug, &free)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && free != 0) {
		return listRow{}, NotFoundError{Kind: "list", ID: slug}
	}
	if err != nil {
		return listRow{}, err
	}
	return row, nil
}

func loadItems(ctx context.Context, tx *sql.Tx, listID string) ([]model.Item, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, task, is_done, weight FROM tasks WHERE list_id = ? ORDER BY weight, id`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Item{}
	for rows.Next() {
		var it model.Item
		var done int
		if err := rows.Scan(&it.ID, &it.Text, &done, &it.Key); err != nil {
			return nil, err
		}
		it.Done = done != 0
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func validateListName(name string) error {
	if utf8.RuneCountInString(name) > maxListNameLen {
		return ValidationError{Msg: fmt.Sprintf("list name is longer than %d characters", maxListNameLen)}
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateTag inserts a tag. Names are unique; duplicates fail the insert.
func (s *Store) CreateTag(ctx context.Context, tag *Tag) error {
	if tag.ID == "" {
		tag.ID = uuid.NewString()
	}
	if tag.Color == "" {
		tag.Color = "#6b7280"
	}
	tag.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, name, color, created_at) VALUES (?, ?, ?, ?)
	`, tag.ID, tag.Name, tag.Color, tag.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert tag: %w", err)
	}
	return nil
}

// ListTags returns all tags ordered by name.
func (s *Store) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, color, created_at FROM tags ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()
	return collectTags(rows)
}

// GetTagByName looks a tag up by its exact name.
func (s *Store) GetTagByName(ctx context.Context, name string) (*Tag, error) {
	var tag Tag
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, color, created_at FROM tags WHERE name = ?
	`, name).Scan(&tag.ID, &tag.Name, &tag.Color, &tag.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return &tag, nil
}

// UpdateTag renames or recolors a tag.
func (s *Store) UpdateTag(ctx context.Context, tag *Tag) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tags SET name = ?, color = ? WHERE id = ?
	`, tag.Name, tag.Color, tag.ID)
	if err != nil {
		return fmt.Errorf("update tag: %w", err)
	}
	return requireRow(res)
}

// DeleteTag removes a tag; taggings cascade.
func (s *Store) DeleteTag(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return requireRow(res)
}

// ResolveTagNames maps tag names to ids, creating tags that do not exist yet.
// Used when a YAML import carries a tags list.
func (s *Store) ResolveTagNames(ctx context.Context, names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		tag, err := s.GetTagByName(ctx, name)
		if errors.Is(err, ErrNotFound) {
			tag = &Tag{Name: name}
			if err := s.CreateTag(ctx, tag); err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, err
		}
		ids = append(ids, tag.ID)
	}
	return ids, nil
}

// setTags replaces the tag set on one junction table row group.
func (s *Store) setTags(ctx context.Context, table, column, id string, tagIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, table, column), id); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT OR IGNORE INTO %s (%s, tag_id) VALUES (?, ?)`, table, column), id, tagID); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// tagsFor loads the tags attached to one record.
func (s *Store) tagsFor(ctx context.Context, table, column, id string) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT t.id, t.name, t.color, t.created_at
		FROM tags t JOIN %s j ON j.tag_id = t.id
		WHERE j.%s = ?
		ORDER BY t.name
	`, table, column), id)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()
	return collectTags(rows)
}

func collectTags(rows *sql.Rows) ([]Tag, error) {
	tags := []Tag{}
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Color, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return tags, nil
}

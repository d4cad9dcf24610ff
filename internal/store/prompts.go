package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreatePrompt inserts a prompt-library entry.
func (s *Store) CreatePrompt(ctx context.Context, rec *Prompt) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prompts (id, title, description, content, created_by, created_at, updated_at, is_archived)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Title, rec.Description, rec.Content, nullable(rec.CreatedBy), rec.CreatedAt, rec.UpdatedAt, rec.IsArchived)
	if err != nil {
		return fmt.Errorf("insert prompt: %w", err)
	}
	return nil
}

// GetPrompt returns one prompt with its tags.
func (s *Store) GetPrompt(ctx context.Context, id string) (*Prompt, error) {
	var rec Prompt
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, content, COALESCE(created_by, ''), created_at, updated_at, is_archived
		FROM prompts WHERE id = ?
	`, id).Scan(&rec.ID, &rec.Title, &rec.Description, &rec.Content, &rec.CreatedBy,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.IsArchived)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get prompt: %w", err)
	}
	rec.Tags, err = s.tagsFor(ctx, "prompt_tags", "prompt_id", id)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListPrompts returns prompts newest-updated first.
func (s *Store) ListPrompts(ctx context.Context, includeArchived bool, tagID string) ([]Prompt, error) {
	query := `
		SELECT p.id, p.title, p.description, p.content, COALESCE(p.created_by, ''), p.created_at, p.updated_at, p.is_archived
		FROM prompts p`
	var args []any
	if tagID != "" {
		query += ` JOIN prompt_tags pt ON pt.prompt_id = p.id AND pt.tag_id = ?`
		args = append(args, tagID)
	}
	if !includeArchived {
		query += ` WHERE p.is_archived = 0`
	}
	query += ` ORDER BY p.updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query prompts: %w", err)
	}
	defer rows.Close()

	recs := []Prompt{}
	for rows.Next() {
		var rec Prompt
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Description, &rec.Content, &rec.CreatedBy,
			&rec.CreatedAt, &rec.UpdatedAt, &rec.IsArchived); err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompts: %w", err)
	}

	for i := range recs {
		recs[i].Tags, err = s.tagsFor(ctx, "prompt_tags", "prompt_id", recs[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return recs, nil
}

// UpdatePrompt rewrites a prompt's editable fields.
func (s *Store) UpdatePrompt(ctx context.Context, rec *Prompt) error {
	rec.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE prompts SET title = ?, description = ?, content = ?, is_archived = ?, updated_at = ?
		WHERE id = ?
	`, rec.Title, rec.Description, rec.Content, rec.IsArchived, rec.UpdatedAt, rec.ID)
	if err != nil {
		return fmt.Errorf("update prompt: %w", err)
	}
	return requireRow(res)
}

// DeletePrompt removes a prompt and its taggings.
func (s *Store) DeletePrompt(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM prompts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete prompt: %w", err)
	}
	return requireRow(res)
}

// SetPromptTags replaces the prompt's tag set.
func (s *Store) SetPromptTags(ctx context.Context, promptID string, tagIDs []string) error {
	return s.setTags(ctx, "prompt_tags", "prompt_id", promptID, tagIDs)
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alaiso/hubd/internal/sop"
)

// CreateSOP inserts a new SOP. A missing id is generated; step order is
// normalized before the steps are marshaled into the content column.
func (s *Store) CreateSOP(ctx context.Context, rec *SOP) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	sop.NormalizeOrder(rec.Steps)
	content, err := marshalSteps(rec.Steps)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sops (id, title, objectives, logins_prerequisites, content, created_by, created_at, updated_at, is_archived)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Title, rec.Objectives, rec.LoginsPrerequisites, content,
		nullable(rec.CreatedBy), rec.CreatedAt, rec.UpdatedAt, rec.IsArchived)
	if err != nil {
		return fmt.Errorf("insert sop: %w", err)
	}
	return nil
}

// GetSOP returns one SOP with its steps and tags.
func (s *Store) GetSOP(ctx context.Context, id string) (*SOP, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, objectives, logins_prerequisites, content, COALESCE(created_by, ''), created_at, updated_at, is_archived
		FROM sops WHERE id = ?
	`, id)

	rec, err := scanSOP(row)
	if err != nil {
		return nil, err
	}
	rec.Tags, err = s.tagsFor(ctx, "sop_tags", "sop_id", id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListSOPs returns SOPs ordered by last update, newest first. Archived rows
// are excluded unless requested; a non-empty tagID filters by tag.
func (s *Store) ListSOPs(ctx context.Context, includeArchived bool, tagID string) ([]SOP, error) {
	query := `
		SELECT s.id, s.title, s.objectives, s.logins_prerequisites, s.content, COALESCE(s.created_by, ''), s.created_at, s.updated_at, s.is_archived
		FROM sops s`
	var args []any
	if tagID != "" {
		query += ` JOIN sop_tags st ON st.sop_id = s.id AND st.tag_id = ?`
		args = append(args, tagID)
	}
	if !includeArchived {
		query += ` WHERE s.is_archived = 0`
	}
	query += ` ORDER BY s.updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sops: %w", err)
	}
	defer rows.Close()

	recs := []SOP{}
	for rows.Next() {
		rec, err := scanSOP(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sops: %w", err)
	}

	for i := range recs {
		recs[i].Tags, err = s.tagsFor(ctx, "sop_tags", "sop_id", recs[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return recs, nil
}

// UpdateSOP rewrites an SOP's editable fields and bumps updated_at.
func (s *Store) UpdateSOP(ctx context.Context, rec *SOP) error {
	sop.NormalizeOrder(rec.Steps)
	content, err := marshalSteps(rec.Steps)
	if err != nil {
		return err
	}
	rec.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE sops
		SET title = ?, objectives = ?, logins_prerequisites = ?, content = ?, is_archived = ?, updated_at = ?
		WHERE id = ?
	`, rec.Title, rec.Objectives, rec.LoginsPrerequisites, content, rec.IsArchived, rec.UpdatedAt, rec.ID)
	if err != nil {
		return fmt.Errorf("update sop: %w", err)
	}
	return requireRow(res)
}

// ArchiveSOP toggles the archived flag without touching content.
func (s *Store) ArchiveSOP(ctx context.Context, id string, archived bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sops SET is_archived = ?, updated_at = ? WHERE id = ?
	`, archived, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("archive sop: %w", err)
	}
	return requireRow(res)
}

// DeleteSOP removes an SOP and its taggings.
func (s *Store) DeleteSOP(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sops WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete sop: %w", err)
	}
	return requireRow(res)
}

// SetSOPTags replaces the SOP's tag set.
func (s *Store) SetSOPTags(ctx context.Context, sopID string, tagIDs []string) error {
	return s.setTags(ctx, "sop_tags", "sop_id", sopID, tagIDs)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSOP(row rowScanner) (*SOP, error) {
	var rec SOP
	var content string
	err := row.Scan(&rec.ID, &rec.Title, &rec.Objectives, &rec.LoginsPrerequisites,
		&content, &rec.CreatedBy, &rec.CreatedAt, &rec.UpdatedAt, &rec.IsArchived)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan sop: %w", err)
	}
	if err := json.Unmarshal([]byte(content), &rec.Steps); err != nil {
		return nil, fmt.Errorf("decode sop steps: %w", err)
	}
	if rec.Steps == nil {
		rec.Steps = []sop.Step{}
	}
	return &rec, nil
}

func marshalSteps(steps []sop.Step) (string, error) {
	if steps == nil {
		steps = []sop.Step{}
	}
	b, err := json.Marshal(steps)
	if err != nil {
		return "", fmt.Errorf("encode sop steps: %w", err)
	}
	return string(b), nil
}

// nullable maps "" to NULL for optional foreign keys.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// requireRow converts a zero-row update into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

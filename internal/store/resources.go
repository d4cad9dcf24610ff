package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateResource inserts a file or URL resource.
func (s *Store) CreateResource(ctx context.Context, rec *Resource) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.ResourceType == "" {
		rec.ResourceType = ResourceFile
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resources (id, title, description, resource_type, file_name, file_type, file_data, file_size,
			extracted_text, url, created_by, created_at, updated_at, is_archived)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Title, rec.Description, rec.ResourceType, rec.FileName, rec.FileType, rec.FileData,
		rec.FileSize, rec.ExtractedText, rec.URL, nullable(rec.CreatedBy), rec.CreatedAt, rec.UpdatedAt, rec.IsArchived)
	if err != nil {
		return fmt.Errorf("insert resource: %w", err)
	}
	return nil
}

// GetResource returns one resource, including its file payload, with tags.
func (s *Store) GetResource(ctx context.Context, id string) (*Resource, error) {
	var rec Resource
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, resource_type, file_name, file_type, file_data, file_size,
			extracted_text, url, COALESCE(created_by, ''), created_at, updated_at, is_archived
		FROM resources WHERE id = ?
	`, id).Scan(&rec.ID, &rec.Title, &rec.Description, &rec.ResourceType, &rec.FileName, &rec.FileType,
		&rec.FileData, &rec.FileSize, &rec.ExtractedText, &rec.URL, &rec.CreatedBy,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.IsArchived)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get resource: %w", err)
	}
	rec.Tags, err = s.tagsFor(ctx, "resource_tags", "resource_id", id)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListResources returns resource metadata newest-updated first. File payloads
// are omitted from list views; a non-empty search term matches title,
// description, and extracted text.
func (s *Store) ListResources(ctx context.Context, includeArchived bool, tagID, search string) ([]Resource, error) {
	query := `
		SELECT r.id, r.title, r.description, r.resource_type, r.file_name, r.file_type, r.file_size,
			r.url, COALESCE(r.created_by, ''), r.created_at, r.updated_at, r.is_archived
		FROM resources r`
	var args []any
	var where []string
	if tagID != "" {
		query += ` JOIN resource_tags rt ON rt.resource_id = r.id AND rt.tag_id = ?`
		args = append(args, tagID)
	}
	if !includeArchived {
		where = append(where, `r.is_archived = 0`)
	}
	if search != "" {
		where = append(where, `(r.title LIKE ? OR r.description LIKE ? OR r.extracted_text LIKE ?)`)
		like := "%" + search + "%"
		args = append(args, like, like, like)
	}
	for i, cond := range where {
		if i == 0 {
			query += ` WHERE ` + cond
		} else {
			query += ` AND ` + cond
		}
	}
	query += ` ORDER BY r.updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query resources: %w", err)
	}
	defer rows.Close()

	recs := []Resource{}
	for rows.Next() {
		var rec Resource
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Description, &rec.ResourceType, &rec.FileName,
			&rec.FileType, &rec.FileSize, &rec.URL, &rec.CreatedBy,
			&rec.CreatedAt, &rec.UpdatedAt, &rec.IsArchived); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resources: %w", err)
	}

	for i := range recs {
		recs[i].Tags, err = s.tagsFor(ctx, "resource_tags", "resource_id", recs[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return recs, nil
}

// UpdateResource rewrites a resource's editable metadata. File payload and
// extracted text are only set at upload time.
func (s *Store) UpdateResource(ctx context.Context, rec *Resource) error {
	rec.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE resources SET title = ?, description = ?, url = ?, is_archived = ?, updated_at = ?
		WHERE id = ?
	`, rec.Title, rec.Description, rec.URL, rec.IsArchived, rec.UpdatedAt, rec.ID)
	if err != nil {
		return fmt.Errorf("update resource: %w", err)
	}
	return requireRow(res)
}

// DeleteResource removes a resource and its taggings.
func (s *Store) DeleteResource(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	return requireRow(res)
}

// SetResourceTags replaces the resource's tag set.
func (s *Store) SetResourceTags(ctx context.Context, resourceID string, tagIDs []string) error {
	return s.setTags(ctx, "resource_tags", "resource_id", resourceID, tagIDs)
}

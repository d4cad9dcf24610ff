package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// CreateVariantGroup stores a comparison group and links the given campaigns
// to it, labelling them "Variant A", "Variant B", ... in order.
func (s *Store) CreateVariantGroup(ctx context.Context, g *VariantGroup, campaignIDs []string) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.CreatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO variant_groups (id, name, description, created_by, created_at) VALUES (?, ?, ?, ?, ?)
	`, g.ID, g.Name, g.Description, nullable(g.CreatedBy), g.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert variant group: %w", err)
	}

	for i, campaignID := range campaignIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO campaign_variants (id, variant_group_id, campaign_id, variant_label) VALUES (?, ?, ?, ?)
		`, uuid.NewString(), g.ID, campaignID, groupVariantLabel(i)); err != nil {
			return fmt.Errorf("insert campaign variant: %w", err)
		}
	}
	return tx.Commit()
}

func groupVariantLabel(i int) string {
	if i < 26 {
		return "Variant " + string(rune('A'+i))
	}
	return "Variant " + strconv.Itoa(i+1)
}

// ListVariantGroups returns all comparison groups, newest first, each with a
// shallow view of its campaigns (id, name, status).
func (s *Store) ListVariantGroups(ctx context.Context) ([]VariantGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, COALESCE(created_by, ''), created_at
		FROM variant_groups ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query variant groups: %w", err)
	}
	defer rows.Close()

	groups := []VariantGroup{}
	for rows.Next() {
		var g VariantGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan variant group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant groups: %w", err)
	}

	for i := range groups {
		variants, err := s.listGroupVariants(ctx, groups[i].ID)
		if err != nil {
			return nil, err
		}
		groups[i].Variants = variants
		groups[i].CampaignCount = len(variants)
	}
	return groups, nil
}

func (s *Store) listGroupVariants(ctx context.Context, groupID string) ([]CampaignVariant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.campaign_id, v.variant_label, c.name, c.status
		FROM campaign_variants v JOIN campaigns c ON c.id = v.campaign_id
		WHERE v.variant_group_id = ?
		ORDER BY v.variant_label
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query campaign variants: %w", err)
	}
	defer rows.Close()

	variants := []CampaignVariant{}
	for rows.Next() {
		var v CampaignVariant
		var c Campaign
		if err := rows.Scan(&v.ID, &v.CampaignID, &v.VariantLabel, &c.Name, &c.Status); err != nil {
			return nil, fmt.Errorf("scan campaign variant: %w", err)
		}
		c.ID = v.CampaignID
		v.Campaign = &c
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaign variants: %w", err)
	}
	return variants, nil
}

// GetVariantGroup returns one comparison group with full campaign records,
// step metrics included, for side-by-side comparison.
func (s *Store) GetVariantGroup(ctx context.Context, id string) (*VariantGroup, error) {
	var g VariantGroup
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, COALESCE(created_by, ''), created_at
		FROM variant_groups WHERE id = ?
	`, id).Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get variant group: %w", err)
	}

	variants, err := s.listGroupVariants(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	for i := range variants {
		c, err := s.GetCampaign(ctx, variants[i].CampaignID)
		if err != nil {
			return nil, err
		}
		variants[i].Campaign = c
	}
	g.Variants = variants
	g.CampaignCount = len(variants)
	return &g, nil
}

// DeleteVariantGroup removes a comparison group; its campaign links go with
// it, the campaigns themselves stay.
func (s *Store) DeleteVariantGroup(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM variant_groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete variant group: %w", err)
	}
	return requireRow(res)
}

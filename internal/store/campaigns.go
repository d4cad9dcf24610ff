package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateCredential stores an Instantly API key.
func (s *Store) CreateCredential(ctx context.Context, c *Credential) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO instantly_credentials (id, key_name, api_key, created_at) VALUES (?, ?, ?, ?)
	`, c.ID, c.KeyName, c.APIKey, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

// ListCredentials returns all stored credentials, keys included; callers
// decide what to expose.
func (s *Store) ListCredentials(ctx context.Context) ([]Credential, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, key_name, api_key, created_at FROM instantly_credentials ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer rows.Close()

	creds := []Credential{}
	for rows.Next() {
		var c Credential
		if err := rows.Scan(&c.ID, &c.KeyName, &c.APIKey, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return creds, nil
}

// GetCredential returns one credential by id.
func (s *Store) GetCredential(ctx context.Context, id string) (*Credential, error) {
	var c Credential
	err := s.db.QueryRowContext(ctx, `
		SELECT id, key_name, api_key, created_at FROM instantly_credentials WHERE id = ?
	`, id).Scan(&c.ID, &c.KeyName, &c.APIKey, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return &c, nil
}

// DeleteCredential removes a stored API key.
func (s *Store) DeleteCredential(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM instantly_credentials WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return requireRow(res)
}

// UpsertCampaign inserts or refreshes a campaign keyed by its Instantly id.
// The local row id survives refreshes so step foreign keys stay valid.
func (s *Store) UpsertCampaign(ctx context.Context, c *Campaign) error {
	now := time.Now().UTC()
	c.LastSyncedAt = now
	c.UpdatedAt = now

	var existingID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM campaigns WHERE instantly_campaign_id = ?`, c.InstantlyCampaignID).Scan(&existingID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.CreatedAt = now
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO campaigns (id, instantly_campaign_id, name, credential_id, status,
				emails_sent, replies, opens, clicks, positive_replies, leads_total, leads_not_started,
				reply_rate, positive_rate, raw_data, last_synced_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ID, c.InstantlyCampaignID, c.Name, nullable(c.CredentialID), c.Status,
			c.EmailsSent, c.Replies, c.Opens, c.Clicks, c.PositiveReplies, c.LeadsTotal, c.LeadsNotStarted,
			c.ReplyRate, c.PositiveRate, c.RawData, c.LastSyncedAt, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert campaign: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("lookup campaign: %w", err)
	}

	c.ID = existingID
	_, err = s.db.ExecContext(ctx, `
		UPDATE campaigns SET name = ?, credential_id = ?, status = ?,
			emails_sent = ?, replies = ?, opens = ?, clicks = ?, positive_replies = ?,
			leads_total = ?, leads_not_started = ?, reply_rate = ?, positive_rate = ?,
			raw_data = ?, last_synced_at = ?, updated_at = ?
		WHERE id = ?
	`, c.Name, nullable(c.CredentialID), c.Status,
		c.EmailsSent, c.Replies, c.Opens, c.Clicks, c.PositiveReplies,
		c.LeadsTotal, c.LeadsNotStarted, c.ReplyRate, c.PositiveRate,
		c.RawData, c.LastSyncedAt, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	return nil
}

// ReplaceCampaignSteps swaps in the full step/variant set for one campaign.
func (s *Store) ReplaceCampaignSteps(ctx context.Context, campaignID string, steps []CampaignStep) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM campaign_steps WHERE campaign_id = ?`, campaignID); err != nil {
		return fmt.Errorf("clear campaign steps: %w", err)
	}
	for i := range steps {
		st := &steps[i]
		if st.ID == "" {
			st.ID = uuid.NewString()
		}
		st.CampaignID = campaignID
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO campaign_steps (id, campaign_id, step_number, variant, subject, body_html,
				sent, opened, unique_opened, replies)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, st.ID, st.CampaignID, st.StepNumber, st.Variant, st.Subject, st.BodyHTML,
			st.Sent, st.Opened, st.UniqueOpened, st.Replies); err != nil {
			return fmt.Errorf("insert campaign step: %w", err)
		}
	}
	return tx.Commit()
}

// ListCampaigns returns all synced campaigns, most recently synced first.
func (s *Store) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, instantly_campaign_id, name, COALESCE(credential_id, ''), status,
			emails_sent, replies, opens, clicks, positive_replies, leads_total, leads_not_started,
			reply_rate, positive_rate, raw_data, last_synced_at, created_at, updated_at
		FROM campaigns ORDER BY last_synced_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaigns: %w", err)
	}
	return campaigns, nil
}

// GetCampaign returns one campaign with its step/variant metrics.
func (s *Store) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, instantly_campaign_id, name, COALESCE(credential_id, ''), status,
			emails_sent, replies, opens, clicks, positive_replies, leads_total, leads_not_started,
			reply_rate, positive_rate, raw_data, last_synced_at, created_at, updated_at
		FROM campaigns WHERE id = ?
	`, id)
	c, err := scanCampaign(row)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, campaign_id, step_number, variant, subject, body_html, sent, opened, unique_opened, replies
		FROM campaign_steps WHERE campaign_id = ?
		ORDER BY step_number, variant
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query campaign steps: %w", err)
	}
	defer rows.Close()

	c.Steps = []CampaignStep{}
	for rows.Next() {
		var st CampaignStep
		if err := rows.Scan(&st.ID, &st.CampaignID, &st.StepNumber, &st.Variant, &st.Subject, &st.BodyHTML,
			&st.Sent, &st.Opened, &st.UniqueOpened, &st.Replies); err != nil {
			return nil, fmt.Errorf("scan campaign step: %w", err)
		}
		c.Steps = append(c.Steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaign steps: %w", err)
	}
	return c, nil
}

func scanCampaign(row rowScanner) (*Campaign, error) {
	var c Campaign
	err := row.Scan(&c.ID, &c.InstantlyCampaignID, &c.Name, &c.CredentialID, &c.Status,
		&c.EmailsSent, &c.Replies, &c.Opens, &c.Clicks, &c.PositiveReplies, &c.LeadsTotal, &c.LeadsNotStarted,
		&c.ReplyRate, &c.PositiveRate, &c.RawData, &c.LastSyncedAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan campaign: %w", err)
	}
	return &c, nil
}

// AddSyncRecord inserts a sync-history row, usually in the running state.
func (s *Store) AddSyncRecord(ctx context.Context, rec *SyncRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_history (id, credential_id, status, campaigns_synced, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL)
	`, rec.ID, rec.CredentialID, rec.Status, rec.CampaignsSynced, rec.Error, rec.StartedAt)
	if err != nil {
		return fmt.Errorf("insert sync record: %w", err)
	}
	return nil
}

// FinishSyncRecord records the terminal state of a sync run.
func (s *Store) FinishSyncRecord(ctx context.Context, id, status string, synced int, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sync_history SET status = ?, campaigns_synced = ?, error = ?, finished_at = ? WHERE id = ?
	`, status, synced, errMsg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("finish sync record: %w", err)
	}
	return requireRow(res)
}

// ListSyncHistory returns the most recent sync runs, newest first.
func (s *Store) ListSyncHistory(ctx context.Context, limit int) ([]SyncRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, credential_id, status, campaigns_synced, error, started_at, finished_at
		FROM sync_history ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync history: %w", err)
	}
	defer rows.Close()

	recs := []SyncRecord{}
	for rows.Next() {
		var rec SyncRecord
		var finished sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.CredentialID, &rec.Status, &rec.CampaignsSynced,
			&rec.Error, &rec.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scan sync record: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			rec.FinishedAt = &t
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync history: %w", err)
	}
	return recs, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateProfile inserts a hub user.
func (s *Store) CreateProfile(ctx context.Context, p *Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Role == "" {
		p.Role = RoleViewer
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, email, full_name, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, p.Email, p.FullName, p.Role, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// GetProfile returns one user by id.
func (s *Store) GetProfile(ctx context.Context, id string) (*Profile, error) {
	return s.getProfile(ctx, `id = ?`, id)
}

// GetProfileByEmail returns one user by email.
func (s *Store) GetProfileByEmail(ctx context.Context, email string) (*Profile, error) {
	return s.getProfile(ctx, `email = ?`, email)
}

func (s *Store) getProfile(ctx context.Context, cond string, arg any) (*Profile, error) {
	var p Profile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, role, created_at, updated_at FROM profiles WHERE `+cond,
		arg).Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// ListProfiles returns all users ordered by email.
func (s *Store) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, full_name, role, created_at, updated_at FROM profiles ORDER BY email
	`)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	profiles := []Profile{}
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}

// SetProfileRole changes a user's role.
func (s *Store) SetProfileRole(ctx context.Context, id, role string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET role = ?, updated_at = ? WHERE id = ?
	`, role, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return requireRow(res)
}

// CreateInvitation inserts a pending invite.
func (s *Store) CreateInvitation(ctx context.Context, inv *Invitation) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.Role == "" {
		inv.Role = RoleViewer
	}
	inv.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invitations (id, email, role, token, invited_by, expires_at, accepted_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL, ?)
	`, inv.ID, inv.Email, inv.Role, inv.Token, nullable(inv.InvitedBy), inv.ExpiresAt, inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert invitation: %w", err)
	}
	return nil
}

// ListInvitations returns invitations newest first, with the inviter's email
// joined in for display.
func (s *Store) ListInvitations(ctx context.Context) ([]Invitation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.email, i.role, i.token, COALESCE(i.invited_by, ''), COALESCE(p.email, ''),
			i.expires_at, i.accepted_at, i.created_at
		FROM invitations i
		LEFT JOIN profiles p ON p.id = i.invited_by
		ORDER BY i.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query invitations: %w", err)
	}
	defer rows.Close()

	invs := []Invitation{}
	for rows.Next() {
		var inv Invitation
		var accepted sql.NullTime
		if err := rows.Scan(&inv.ID, &inv.Email, &inv.Role, &inv.Token, &inv.InvitedBy, &inv.Inviter,
			&inv.ExpiresAt, &accepted, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		if accepted.Valid {
			t := accepted.Time
			inv.AcceptedAt = &t
		}
		invs = append(invs, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invitations: %w", err)
	}
	return invs, nil
}

// GetInvitationByToken looks an invite up by its opaque token.
func (s *Store) GetInvitationByToken(ctx context.Context, token string) (*Invitation, error) {
	var inv Invitation
	var accepted sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, role, token, COALESCE(invited_by, ''), expires_at, accepted_at, created_at
		FROM invitations WHERE token = ?
	`, token).Scan(&inv.ID, &inv.Email, &inv.Role, &inv.Token, &inv.InvitedBy,
		&inv.ExpiresAt, &accepted, &inv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	if accepted.Valid {
		t := accepted.Time
		inv.AcceptedAt = &t
	}
	return &inv, nil
}

// AcceptInvitation marks an invite accepted.
func (s *Store) AcceptInvitation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE invitations SET accepted_at = ? WHERE id = ? AND accepted_at IS NULL
	`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("accept invitation: %w", err)
	}
	return requireRow(res)
}

// DeleteInvitation revokes an invite.
func (s *Store) DeleteInvitation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM invitations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	return requireRow(res)
}

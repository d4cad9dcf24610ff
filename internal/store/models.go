package store

import (
	"time"

	"github.com/alaiso/hubd/internal/sop"
)

// Role values for profiles and invitations.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// Profile is a hub user.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the profile may use admin-only surfaces.
func (p *Profile) IsAdmin() bool { return p.Role == RoleAdmin }

// Invitation is a pending (or accepted) invite to join the hub.
type Invitation struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	Token      string     `json:"token"`
	InvitedBy  string     `json:"invited_by,omitempty"`
	Inviter    string     `json:"inviter,omitempty"` // inviter email, list views only
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Expired reports whether the invitation can no longer be accepted.
func (i *Invitation) Expired(now time.Time) bool { return now.After(i.ExpiresAt) }

// Tag labels SOPs, prompts, and resources.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// SOP is a persisted standard operating procedure. Steps live in a JSON
// column; the sop package owns their shape.
type SOP struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Objectives          string     `json:"objectives"`
	LoginsPrerequisites string     `json:"logins_prerequisites"`
	Steps               []sop.Step `json:"content"`
	CreatedBy           string     `json:"created_by,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	IsArchived          bool       `json:"is_archived"`
	Tags                []Tag      `json:"tags"`
}

// Document returns the transient parse/export form of the SOP.
func (s *SOP) Document() *sop.Document {
	names := make([]string, 0, len(s.Tags))
	for _, t := range s.Tags {
		names = append(names, t.Name)
	}
	return &sop.Document{
		Title:               s.Title,
		Objectives:          s.Objectives,
		LoginsPrerequisites: s.LoginsPrerequisites,
		Tags:                names,
		Steps:               s.Steps,
	}
}

// Prompt is a reusable prompt-library entry.
type Prompt struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	IsArchived  bool      `json:"is_archived"`
	Tags        []Tag     `json:"tags"`
}

// Resource kinds.
const (
	ResourceFile = "file"
	ResourceURL  = "url"
)

// Resource is a file or URL knowledge-base entry. File payloads are stored as
// base64 data URLs, matching what browser uploads produce; ExtractedText is
// the searchable plain text pulled out of the file at upload time.
type Resource struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	ResourceType  string    `json:"resource_type"`
	FileName      string    `json:"file_name,omitempty"`
	FileType      string    `json:"file_type,omitempty"`
	FileData      string    `json:"file_data,omitempty"`
	FileSize      int64     `json:"file_size,omitempty"`
	ExtractedText string    `json:"extracted_text,omitempty"`
	URL           string    `json:"url,omitempty"`
	CreatedBy     string    `json:"created_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	IsArchived    bool      `json:"is_archived"`
	Tags          []Tag     `json:"tags"`
}

// Credential is a stored Instantly API key.
type Credential struct {
	ID        string    `json:"id"`
	KeyName   string    `json:"key_name"`
	APIKey    string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Campaign is a synced email campaign with aggregate analytics.
type Campaign struct {
	ID                  string         `json:"id"`
	InstantlyCampaignID string         `json:"instantly_campaign_id"`
	Name                string         `json:"name"`
	CredentialID        string         `json:"credential_id,omitempty"`
	Status              int            `json:"status"`
	EmailsSent          int            `json:"emails_sent"`
	Replies             int            `json:"replies"`
	Opens               int            `json:"opens"`
	Clicks              int            `json:"clicks"`
	PositiveReplies     int            `json:"positive_replies"`
	LeadsTotal          int            `json:"leads_total"`
	LeadsNotStarted     int            `json:"leads_not_started"`
	ReplyRate           float64        `json:"reply_rate"`
	PositiveRate        float64        `json:"positive_rate"`
	RawData             string         `json:"-"`
	LastSyncedAt        time.Time      `json:"last_synced_at"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	Steps               []CampaignStep `json:"steps,omitempty"`
}

// CampaignStep is one step/variant of a campaign sequence with its metrics.
type CampaignStep struct {
	ID           string `json:"id"`
	CampaignID   string `json:"campaign_id"`
	StepNumber   int    `json:"step_number"`
	Variant      string `json:"variant"`
	Subject      string `json:"subject"`
	BodyHTML     string `json:"body_html"`
	Sent         int    `json:"sent"`
	Opened       int    `json:"opened"`
	UniqueOpened int    `json:"unique_opened"`
	Replies      int    `json:"replies"`
}

// VariantGroup is a named set of campaigns compared side by side as A/B
// variants.
type VariantGroup struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	CreatedBy     string            `json:"created_by,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	CampaignCount int               `json:"campaign_count"`
	Variants      []CampaignVariant `json:"variants"`
}

// CampaignVariant links one campaign into a comparison group under a label
// like "Variant A". Campaign carries id/name/status in list views and the
// full record, steps included, in detail views.
type CampaignVariant struct {
	ID           string    `json:"id"`
	CampaignID   string    `json:"campaign_id"`
	VariantLabel string    `json:"variant_label"`
	Campaign     *Campaign `json:"campaign,omitempty"`
}

// Sync outcome values for SyncRecord.Status.
const (
	SyncRunning   = "running"
	SyncCompleted = "completed"
	SyncPartial   = "partial"
	SyncFailed    = "failed"
)

// SyncRecord is one row of campaign sync history.
type SyncRecord struct {
	ID              string     `json:"id"`
	CredentialID    string     `json:"credential_id,omitempty"`
	Status          string     `json:"status"`
	CampaignsSynced int        `json:"campaigns_synced"`
	Error           string     `json:"error,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alaiso/hubd/internal/sop"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "hub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSOPLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := &SOP{
		Title:               "Deploy Checklist",
		Objectives:          "Ship safely",
		LoginsPrerequisites: "Prod access",
		Steps: []sop.Step{
			{ID: sop.NewStepID(), Title: "Freeze", Content: "announce the freeze", Type: sop.StepStandard},
			{ID: sop.NewStepID(), Title: "Go / No-Go", Content: "call it", Type: sop.StepDecision},
		},
	}
	require.NoError(t, s.CreateSOP(ctx, rec))
	require.NotEmpty(t, rec.ID)

	got, err := s.GetSOP(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Deploy Checklist", got.Title)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, sop.StepDecision, got.Steps[1].Type)
	// Order is normalized on write.
	assert.Equal(t, 0, got.Steps[0].Order)
	assert.Equal(t, 1, got.Steps[1].Order)

	got.Title = "Deploy Checklist v2"
	got.Steps = got.Steps[:1]
	require.NoError(t, s.UpdateSOP(ctx, got))

	again, err := s.GetSOP(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Deploy Checklist v2", again.Title)
	assert.Len(t, again.Steps, 1)

	require.NoError(t, s.ArchiveSOP(ctx, rec.ID, true))
	active, err := s.ListSOPs(ctx, false, "")
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := s.ListSOPs(ctx, true, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.DeleteSOP(ctx, rec.ID))
	_, err = s.GetSOP(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSOPTagFiltering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tag := &Tag{Name: "Technical"}
	require.NoError(t, s.CreateTag(ctx, tag))

	tagged := &SOP{Title: "Tagged"}
	plain := &SOP{Title: "Plain"}
	require.NoError(t, s.CreateSOP(ctx, tagged))
	require.NoError(t, s.CreateSOP(ctx, plain))
	require.NoError(t, s.SetSOPTags(ctx, tagged.ID, []string{tag.ID}))

	got, err := s.ListSOPs(ctx, false, tag.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Tagged", got[0].Title)
	require.Len(t, got[0].Tags, 1)
	assert.Equal(t, "Technical", got[0].Tags[0].Name)
}

func TestResolveTagNamesCreatesMissing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	existing := &Tag{Name: "Ops"}
	require.NoError(t, s.CreateTag(ctx, existing))

	ids, err := s.ResolveTagNames(ctx, []string{"Ops", "Brand New"})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, existing.ID, ids[0])

	created, err := s.GetTagByName(ctx, "Brand New")
	require.NoError(t, err)
	assert.Equal(t, created.ID, ids[1])
}

func TestInvitationLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	admin := &Profile{Email: "admin@example.com", Role: RoleAdmin}
	require.NoError(t, s.CreateProfile(ctx, admin))

	inv := &Invitation{
		Email:     "new@example.com",
		Role:      RoleViewer,
		Token:     "tok-123",
		InvitedBy: admin.ID,
		ExpiresAt: time.Now().UTC().Add(7 * 24 * time.Hour),
	}
	require.NoError(t, s.CreateInvitation(ctx, inv))

	byToken, err := s.GetInvitationByToken(ctx, "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", byToken.Email)
	assert.Nil(t, byToken.AcceptedAt)
	assert.False(t, byToken.Expired(time.Now().UTC()))

	list, err := s.ListInvitations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "admin@example.com", list[0].Inviter)

	require.NoError(t, s.AcceptInvitation(ctx, inv.ID))
	// Accepting twice is a no-op failure.
	assert.ErrorIs(t, s.AcceptInvitation(ctx, inv.ID), ErrNotFound)

	accepted, err := s.GetInvitationByToken(ctx, "tok-123")
	require.NoError(t, err)
	require.NotNil(t, accepted.AcceptedAt)
}

func TestCampaignUpsertKeepsLocalID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := &Campaign{InstantlyCampaignID: "ext-1", Name: "Outbound Q3", Status: 1, EmailsSent: 100, RawData: "{}"}
	require.NoError(t, s.UpsertCampaign(ctx, c))
	firstID := c.ID
	require.NotEmpty(t, firstID)

	require.NoError(t, s.ReplaceCampaignSteps(ctx, firstID, []CampaignStep{
		{StepNumber: 1, Variant: "A", Subject: "{Hi|Hello}", Sent: 50},
		{StepNumber: 1, Variant: "B", Subject: "Quick question", Sent: 50},
	}))

	refreshed := &Campaign{InstantlyCampaignID: "ext-1", Name: "Outbound Q3", Status: 1, EmailsSent: 250, RawData: "{}"}
	require.NoError(t, s.UpsertCampaign(ctx, refreshed))
	assert.Equal(t, firstID, refreshed.ID)

	got, err := s.GetCampaign(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, 250, got.EmailsSent)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, "A", got.Steps[0].Variant)
}

func TestSyncHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := &SyncRecord{Status: SyncRunning, CredentialID: "cred-1"}
	require.NoError(t, s.AddSyncRecord(ctx, rec))
	require.NoError(t, s.FinishSyncRecord(ctx, rec.ID, SyncCompleted, 7, ""))

	hist, err := s.ListSyncHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, SyncCompleted, hist[0].Status)
	assert.Equal(t, 7, hist[0].CampaignsSynced)
	require.NotNil(t, hist[0].FinishedAt)
}

func TestVariantGroupLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := &Campaign{InstantlyCampaignID: "ext-a", Name: "Cold Intro", Status: 1, RawData: "{}"}
	b := &Campaign{InstantlyCampaignID: "ext-b", Name: "Warm Intro", Status: 2, RawData: "{}"}
	require.NoError(t, s.UpsertCampaign(ctx, a))
	require.NoError(t, s.UpsertCampaign(ctx, b))
	require.NoError(t, s.ReplaceCampaignSteps(ctx, a.ID, []CampaignStep{
		{StepNumber: 1, Variant: "A", Subject: "Intro", Sent: 10},
	}))

	g := &VariantGroup{Name: "Intro Test", Description: "cold vs warm"}
	require.NoError(t, s.CreateVariantGroup(ctx, g, []string{a.ID, b.ID}))
	require.NotEmpty(t, g.ID)

	got, err := s.GetVariantGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Intro Test", got.Name)
	assert.Equal(t, 2, got.CampaignCount)
	require.Len(t, got.Variants, 2)
	assert.Equal(t, "Variant A", got.Variants[0].VariantLabel)
	assert.Equal(t, "Variant B", got.Variants[1].VariantLabel)
	// Detail views carry the full campaigns, steps included.
	require.NotNil(t, got.Variants[0].Campaign)
	assert.Equal(t, "Cold Intro", got.Variants[0].Campaign.Name)
	require.Len(t, got.Variants[0].Campaign.Steps, 1)

	list, err := s.ListVariantGroups(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].CampaignCount)
	// List views stay shallow.
	require.NotNil(t, list[0].Variants[0].Campaign)
	assert.Empty(t, list[0].Variants[0].Campaign.Steps)

	require.NoError(t, s.DeleteVariantGroup(ctx, g.ID))
	_, err = s.GetVariantGroup(ctx, g.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteVariantGroup(ctx, g.ID), ErrNotFound)

	// The campaigns themselves survive the group.
	_, err = s.GetCampaign(ctx, a.ID)
	require.NoError(t, err)
}

func TestVariantGroupLabelsPastZ(t *testing.T) {
	assert.Equal(t, "Variant A", groupVariantLabel(0))
	assert.Equal(t, "Variant Z", groupVariantLabel(25))
	assert.Equal(t, "Variant 27", groupVariantLabel(26))
}

func TestVariantGroupRejectsUnknownCampaign(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := &Campaign{InstantlyCampaignID: "ext-1", Name: "Only One", Status: 1, RawData: "{}"}
	require.NoError(t, s.UpsertCampaign(ctx, c))

	g := &VariantGroup{Name: "Broken"}
	err := s.CreateVariantGroup(ctx, g, []string{c.ID, "no-such-campaign"})
	require.Error(t, err)

	// The transaction rolled back, so no half-created group remains.
	list, lerr := s.ListVariantGroups(ctx)
	require.NoError(t, lerr)
	assert.Empty(t, list)
}

func TestResourceSearch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateResource(ctx, &Resource{
		Title:         "Billing Runbook",
		ResourceType:  ResourceFile,
		FileName:      "billing.pdf",
		ExtractedText: "stripe dashboard invoices dunning",
	}))
	require.NoError(t, s.CreateResource(ctx, &Resource{
		Title:        "Team Wiki",
		ResourceType: ResourceURL,
		URL:          "https://wiki.example.com",
	}))

	hits, err := s.ListResources(ctx, false, "", "dunning")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Billing Runbook", hits[0].Title)
	// Payload columns stay out of list views.
	assert.Empty(t, hits[0].FileData)
}

package campsync

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alaiso/hubd/internal/instantly"
	"github.com/alaiso/hubd/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestJobSnapshotIsSafeCopy(t *testing.T) {
	job := NewJob("cred-1", "main")
	job.SetTotal(3)
	job.IncrSynced()
	job.AddError("campaign x: boom")

	snap := job.Snapshot()
	assert.Equal(t, StatusQueued, snap.Status)
	assert.Equal(t, 3, snap.Progress.CampaignsTotal)
	assert.Equal(t, 1, snap.Progress.CampaignsSynced)
	assert.Equal(t, []string{"campaign x: boom"}, snap.Progress.Errors)

	// Mutating the snapshot must not touch the job.
	snap.Progress.Errors = append(snap.Progress.Errors, "extra")
	assert.Len(t, job.Snapshot().Progress.Errors, 1)
}

func TestJobSnapshotEmptyErrorsNotNil(t *testing.T) {
	snap := NewJob("cred-1", "main").Snapshot()
	require.NotNil(t, snap.Progress.Errors)
	assert.Empty(t, snap.Progress.Errors)
}

func TestBackoffBounds(t *testing.T) {
	for attempt := range MaxRetries {
		base := time.Second * time.Duration(1<<attempt)
		for range 20 {
			d := Backoff(attempt)
			assert.GreaterOrEqual(t, d, base)
			assert.Less(t, d, base+base/4+time.Millisecond)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&instantly.APIError{StatusCode: 429}))
	assert.True(t, IsRetryable(&instantly.APIError{StatusCode: 503}))
	assert.False(t, IsRetryable(&instantly.APIError{StatusCode: 401}))
	assert.False(t, IsRetryable(io.ErrUnexpectedEOF))
}

func TestCampaignRowRates(t *testing.T) {
	camp := &instantly.Campaign{ID: "c-1", Name: "Launch", Status: 1}
	a := &instantly.Analytics{
		LeadsCount:           200,
		ContactedCount:       150,
		EmailsSentCount:      400,
		OpenCount:            180,
		ReplyCount:           40,
		ReplyCountUnique:     32,
		LinkClickCountUnique: 12,
		TotalOpportunities:   10,
	}

	row := campaignRow("cred-1", camp, a)
	assert.Equal(t, "c-1", row.InstantlyCampaignID)
	assert.Equal(t, 400, row.EmailsSent)
	assert.Equal(t, 50, row.LeadsNotStarted)
	assert.InDelta(t, 8.0, row.ReplyRate, 0.001)
	assert.InDelta(t, 25.0, row.PositiveRate, 0.001)
	assert.NotEmpty(t, row.RawData)
}

func TestCampaignRowZeroSentNoDivide(t *testing.T) {
	row := campaignRow("cred-1", &instantly.Campaign{ID: "c-1"}, &instantly.Analytics{})
	assert.Zero(t, row.ReplyRate)
	assert.Zero(t, row.PositiveRate)
}

func TestBuildStepsJoinsMetrics(t *testing.T) {
	camp := &instantly.Campaign{
		Sequences: []instantly.Sequence{{
			Steps: []instantly.SequenceStep{
				{Variants: []instantly.Variant{
					{Subject: "Hi {{firstName}}", Body: "<p>intro</p>"},
					{Subject: "Quick question", Body: "<p>alt intro</p>"},
				}},
				{Variants: []instantly.Variant{
					{Subject: "Bumping this", Body: "<p>follow up</p>"},
				}},
			},
		}},
	}
	metrics := []instantly.StepAnalytics{
		{Step: "1", Variant: "B", Sent: 120, Opened: 60, UniqueOpened: 50, Replies: 7},
		{Step: "2", Variant: "A", Sent: 80, Opened: 30, UniqueOpened: 25, Replies: 3},
	}

	steps := buildSteps(camp, metrics)
	require.Len(t, steps, 3)

	assert.Equal(t, 1, steps[0].StepNumber)
	assert.Equal(t, "A", steps[0].Variant)
	assert.Zero(t, steps[0].Sent)

	assert.Equal(t, "B", steps[1].Variant)
	assert.Equal(t, 120, steps[1].Sent)
	assert.Equal(t, 7, steps[1].Replies)

	assert.Equal(t, 2, steps[2].StepNumber)
	assert.Equal(t, "A", steps[2].Variant)
	assert.Equal(t, 80, steps[2].Sent)
}

func TestVariantLetter(t *testing.T) {
	assert.Equal(t, "A", variantLetter(0))
	assert.Equal(t, "C", variantLetter(2))
	assert.Equal(t, "V27", variantLetter(26))
}

func TestSyncStatsWindow(t *testing.T) {
	stats := NewSyncStats(time.Hour)
	for _, ms := range []int64{10, 20, 30, 40} {
		stats.Record(ms)
	}
	snap := stats.Snapshot()
	assert.Equal(t, 4, snap.Count)
	assert.Equal(t, int64(10), snap.MinMs)
	assert.Equal(t, int64(40), snap.MaxMs)
	assert.InDelta(t, 25.0, snap.AvgMs, 0.001)
	assert.InDelta(t, 25.0, snap.P50Ms, 0.001)
}

func TestJobStoreCleanup(t *testing.T) {
	js := NewJobStore(10 * time.Millisecond)
	job := NewJob("cred-1", "main")
	js.Put(job)
	require.NotNil(t, js.Get(job.ID))

	time.Sleep(25 * time.Millisecond)
	js.Cleanup()
	assert.Nil(t, js.Get(job.ID))
}

func TestSubmitAfterStopErrors(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "hub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	syncer := NewSyncer(st, discardLogger(), Config{Workers: 1})
	syncer.Start(context.Background())
	syncer.Stop()

	job := NewJob("cred-1", "main")
	require.NotPanics(t, func() {
		err = syncer.Submit(job)
	})
	require.Error(t, err)
	assert.Equal(t, StatusFailed, job.Snapshot().Status)
}

func TestFetchWithRetryNoDelayAfterFinalAttempt(t *testing.T) {
	delays := 0
	orig := retryDelay
	retryDelay = func(attempt int) time.Duration {
		delays++
		return 0
	}
	t.Cleanup(func() { retryDelay = orig })

	calls := 0
	_, err := fetchWithRetry(context.Background(), discardLogger(), "campaigns", func() (int, error) {
		calls++
		return 0, &instantly.APIError{StatusCode: 503}
	})
	require.Error(t, err)
	assert.Equal(t, MaxRetries, calls)
	assert.Equal(t, MaxRetries-1, delays)
}

func newInstantlyStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/campaigns", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]instantly.Campaign{{
			ID:     "inst-1",
			Name:   "Outbound Q3",
			Status: 1,
			Sequences: []instantly.Sequence{{
				Steps: []instantly.SequenceStep{{
					Variants: []instantly.Variant{{Subject: "Hello", Body: "<p>hey</p>"}},
				}},
			}},
		}})
	})
	mux.HandleFunc("/campaigns/analytics", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]instantly.Analytics{{
			CampaignID:      "inst-1",
			LeadsCount:      50,
			ContactedCount:  40,
			EmailsSentCount: 100,
			OpenCount:       45,
			ReplyCount:      9,
		}})
	})
	mux.HandleFunc("/campaigns/analytics/steps", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]instantly.StepAnalytics{
			{Step: "1", Variant: "A", Sent: 100, Opened: 45, UniqueOpened: 38, Replies: 9},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSyncerEndToEnd(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "hub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv := newInstantlyStub(t)

	cred := &store.Credential{KeyName: "main", APIKey: "test-key"}
	require.NoError(t, st.CreateCredential(ctx, cred))

	syncer := NewSyncer(st, discardLogger(), Config{BaseURL: srv.URL, Workers: 1})
	syncer.Start(ctx)
	t.Cleanup(syncer.Stop)

	snaps, err := syncer.SubmitAll(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	job := syncer.GetJob(snaps[0].ID)
	require.NotNil(t, job)

	deadline := time.Now().Add(5 * time.Second)
	var snap Snapshot
	for {
		snap = job.Snapshot()
		if snap.Status == StatusCompleted || snap.Status == StatusFailed || snap.Status == StatusPartial {
			break
		}
		require.True(t, time.Now().Before(deadline), "sync did not finish: %+v", snap)
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, StatusCompleted, snap.Status, "errors: %v", snap.Progress.Errors)
	assert.Equal(t, 1, snap.Progress.CampaignsSynced)

	campaigns, err := st.ListCampaigns(ctx)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, "inst-1", campaigns[0].InstantlyCampaignID)
	assert.Equal(t, cred.ID, campaigns[0].CredentialID)
	assert.Equal(t, 100, campaigns[0].EmailsSent)

	full, err := st.GetCampaign(ctx, campaigns[0].ID)
	require.NoError(t, err)
	require.Len(t, full.Steps, 1)
	assert.Equal(t, "A", full.Steps[0].Variant)
	assert.Equal(t, 100, full.Steps[0].Sent)

	history, err := st.ListSyncHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, store.SyncCompleted, history[0].Status)
	assert.NotNil(t, history[0].FinishedAt)
	assert.Equal(t, 1, history[0].CampaignsSynced)

	assert.Positive(t, syncer.Stats().Count)
}

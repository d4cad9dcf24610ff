package campsync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alaiso/hubd/internal/instantly"
	"github.com/alaiso/hubd/internal/store"
)

// Config controls the sync worker pool.
type Config struct {
	// BaseURL overrides the Instantly API endpoint, mainly for tests.
	BaseURL string
	// Workers is the number of concurrent credential syncs.
	Workers int
	// QueueSize bounds the pending-job queue.
	QueueSize int
	// JobTTL is how long finished jobs stay queryable.
	JobTTL time.Duration
	// Interval triggers a full sync of all credentials periodically.
	// Zero disables the ticker; syncs then run only on demand.
	Interval time.Duration
	// StatsWindow is the rolling window for sync latency stats.
	StatsWindow time.Duration
}

// Syncer manages the campaign analytics sync pipeline.
type Syncer struct {
	store *store.Store
	jobs  *JobStore
	queue chan *Job
	stats *SyncStats
	log   *slog.Logger
	cfg   Config

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewSyncer creates the pipeline; call Start to launch workers.
func NewSyncer(st *store.Store, log *slog.Logger, cfg Config) *Syncer {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 32
	}
	return &Syncer{
		store: st,
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.QueueSize),
		stats: NewSyncStats(cfg.StatsWindow),
		log:   log,
		cfg:   cfg,
	}
}

// Start launches worker goroutines and housekeeping.
func (s *Syncer) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for range s.cfg.Workers {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-s.queue:
					if !ok {
						return
					}
					s.processJob(workerCtx, job)
				}
			}
		}()
	}

	// Job store cleanup.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				s.jobs.Cleanup()
			}
		}
	}()

	if s.cfg.Interval > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			ticker := time.NewTicker(s.cfg.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-workerCtx.Done():
					return
				case <-ticker.C:
					if _, err := s.SubmitAll(workerCtx); err != nil {
						s.log.Error("scheduled sync failed", "error", err)
					}
				}
			}
		}()
	}
}

// Stop gracefully shuts down the pipeline. Submit calls racing Stop get an
// error instead of a send on the closed queue.
func (s *Syncer) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Submit queues one job for processing.
func (s *Syncer) Submit(job *Job) error {
	s.jobs.Put(job)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		job.SetStatus(StatusFailed)
		job.AddError("shutting down")
		return fmt.Errorf("syncer is stopped")
	}
	select {
	case s.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed)
		job.AddError("queue full")
		return fmt.Errorf("sync queue is full (%d)", s.cfg.QueueSize)
	}
}

// SubmitAll queues a sync job for every stored credential.
func (s *Syncer) SubmitAll(ctx context.Context) ([]Snapshot, error) {
	creds, err := s.store.ListCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	snaps := []Snapshot{}
	for _, cred := range creds {
		job := NewJob(cred.ID, cred.KeyName)
		if err := s.Submit(job); err != nil {
			return snaps, err
		}
		snaps = append(snaps, job.Snapshot())
	}
	return snaps, nil
}

// GetJob returns a job by ID, or nil if unknown or expired.
func (s *Syncer) GetJob(id string) *Job {
	return s.jobs.Get(id)
}

// Stats returns rolling per-campaign sync latency aggregates.
func (s *Syncer) Stats() StatsSnapshot {
	return s.stats.Snapshot()
}

// QueueDepth returns current queue depth.
func (s *Syncer) QueueDepth() int {
	return len(s.queue)
}

// processJob syncs every campaign visible to one credential.
func (s *Syncer) processJob(ctx context.Context, job *Job) {
	log := s.log.With("job_id", job.ID, "credential_id", job.CredentialID)

	cred, err := s.store.GetCredential(ctx, job.CredentialID)
	if err != nil {
		log.Error("credential lookup failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed)
		return
	}

	rec := &store.SyncRecord{CredentialID: cred.ID, Status: store.SyncRunning}
	if err := s.store.AddSyncRecord(ctx, rec); err != nil {
		log.Warn("sync record write failed", "error", err)
	}
	job.historyID = rec.ID

	client := instantly.NewClient(s.cfg.BaseURL, cred.APIKey)
	defer client.Close()

	job.SetStatus(StatusFetching)
	campaigns, err := fetchWithRetry(ctx, log, "campaigns", func() ([]instantly.Campaign, error) {
		return client.Campaigns(ctx)
	})
	if err != nil {
		log.Error("campaign list failed", "error", err)
		job.AddError(fmt.Sprintf("campaigns: %s", err))
		job.SetStatus(StatusFailed)
		s.finishRecord(ctx, log, job, store.SyncFailed, 0)
		return
	}
	job.SetTotal(len(campaigns))
	log.Info("fetched campaigns", "count", len(campaigns))

	job.SetStatus(StatusStoring)
	synced := 0
	hadErrors := false
	for i := range campaigns {
		start := time.Now()
		if err := s.syncCampaign(ctx, log, client, cred.ID, &campaigns[i]); err != nil {
			log.Error("campaign sync failed", "campaign_id", campaigns[i].ID, "error", err)
			job.AddError(fmt.Sprintf("campaign %s: %s", campaigns[i].ID, err))
			hadErrors = true
			continue
		}
		s.stats.Record(time.Since(start).Milliseconds())
		job.IncrSynced()
		synced++
	}

	switch {
	case hadErrors && synced > 0:
		job.SetStatus(StatusPartial)
		s.finishRecord(ctx, log, job, store.SyncPartial, synced)
	case hadErrors:
		job.SetStatus(StatusFailed)
		s.finishRecord(ctx, log, job, store.SyncFailed, synced)
	default:
		job.SetStatus(StatusCompleted)
		s.finishRecord(ctx, log, job, store.SyncCompleted, synced)
	}
	log.Info("sync finished", "synced", synced, "errors", hadErrors)
}

// syncCampaign fetches analytics for one campaign and upserts it with its
// step metrics.
func (s *Syncer) syncCampaign(ctx context.Context, log *slog.Logger, client *instantly.Client, credentialID string, camp *instantly.Campaign) error {
	analytics, err := fetchWithRetry(ctx, log, "analytics", func() (*instantly.Analytics, error) {
		return client.Analytics(ctx, camp.ID)
	})
	if err != nil {
		return fmt.Errorf("analytics: %w", err)
	}

	// The list endpoint may omit sequences; fall back to the detail call.
	if len(camp.Sequences) == 0 {
		detail, err := client.Campaign(ctx, camp.ID)
		if err != nil {
			log.Warn("campaign detail fetch failed", "campaign_id", camp.ID, "error", err)
		} else {
			camp.Sequences = detail.Sequences
		}
	}

	// Step metrics are best effort; the sequence content still gets stored.
	stepMetrics, err := client.StepAnalytics(ctx, camp.ID)
	if err != nil {
		log.Warn("step analytics fetch failed", "campaign_id", camp.ID, "error", err)
		stepMetrics = nil
	}

	row := campaignRow(credentialID, camp, analytics)
	if err := s.store.UpsertCampaign(ctx, row); err != nil {
		return err
	}
	steps := buildSteps(camp, stepMetrics)
	if err := s.store.ReplaceCampaignSteps(ctx, row.ID, steps); err != nil {
		return err
	}
	return nil
}

func (s *Syncer) finishRecord(ctx context.Context, log *slog.Logger, job *Job, status string, synced int) {
	if job.historyID == "" {
		return
	}
	snap := job.Snapshot()
	errMsg := strings.Join(snap.Progress.Errors, "; ")
	if err := s.store.FinishSyncRecord(ctx, job.historyID, status, synced, errMsg); err != nil {
		log.Warn("sync record update failed", "error", err)
	}
}

// retryDelay is swapped out in tests.
var retryDelay = Backoff

// fetchWithRetry retries transient API failures with jittered backoff. No
// delay is taken after the final attempt.
func fetchWithRetry[T any](ctx context.Context, log *slog.Logger, what string, fn func() (T, error)) (T, error) {
	var out T
	var err error
	for attempt := range MaxRetries {
		out, err = fn()
		if err == nil || !IsRetryable(err) || attempt == MaxRetries-1 {
			break
		}
		log.Warn("retryable api error", "what", what, "attempt", attempt, "error", err)
		select {
		case <-time.After(retryDelay(attempt)):
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
	return out, err
}

// campaignRow maps an API campaign plus its analytics onto a store row.
func campaignRow(credentialID string, camp *instantly.Campaign, a *instantly.Analytics) *store.Campaign {
	row := &store.Campaign{
		InstantlyCampaignID: camp.ID,
		Name:                camp.Name,
		CredentialID:        credentialID,
		Status:              camp.Status,
		EmailsSent:          a.EmailsSentCount,
		Replies:             a.ReplyCount,
		Opens:               a.OpenCount,
		Clicks:              a.LinkClickCountUnique,
		PositiveReplies:     a.TotalOpportunities,
		LeadsTotal:          a.LeadsCount,
	}
	if notStarted := a.LeadsCount - a.ContactedCount; notStarted > 0 {
		row.LeadsNotStarted = notStarted
	}
	if a.EmailsSentCount > 0 {
		row.ReplyRate = 100 * float64(a.ReplyCountUnique) / float64(a.EmailsSentCount)
	}
	if a.ReplyCount > 0 {
		row.PositiveRate = 100 * float64(a.TotalOpportunities) / float64(a.ReplyCount)
	}
	if raw, err := json.Marshal(camp); err == nil {
		row.RawData = string(raw)
	}
	return row
}

// buildSteps flattens sequence variants into step rows, joining in per-step
// metrics where the API reported them.
func buildSteps(camp *instantly.Campaign, metrics []instantly.StepAnalytics) []store.CampaignStep {
	byKey := make(map[string]instantly.StepAnalytics, len(metrics))
	for _, m := range metrics {
		byKey[m.Step+"|"+m.Variant] = m
	}

	steps := []store.CampaignStep{}
	num := 0
	for _, seq := range camp.Sequences {
		for _, st := range seq.Steps {
			num++
			for vi, v := range st.Variants {
				row := store.CampaignStep{
					StepNumber: num,
					Variant:    variantLetter(vi),
					Subject:    v.Subject,
					BodyHTML:   v.Body,
				}
				if m, ok := byKey[strconv.Itoa(num)+"|"+row.Variant]; ok {
					row.Sent = m.Sent
					row.Opened = m.Opened
					row.UniqueOpened = m.UniqueOpened
					row.Replies = m.Replies
				}
				steps = append(steps, row)
			}
		}
	}
	return steps
}

func variantLetter(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return "V" + strconv.Itoa(i+1)
}

package instantly

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCampaigns_ArrayAndEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/campaigns":
			w.Write([]byte(`{"items":[{"id":"c1","name":"Outbound","status":1}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	defer c.Close()

	campaigns, err := c.Campaigns(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(campaigns) != 1 || campaigns[0].ID != "c1" {
		t.Errorf("unexpected campaigns: %+v", campaigns)
	}
}

func TestAnalytics_SingleElementArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"campaign_id":"c1","emails_sent_count":42,"reply_count":3}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	got, err := c.Analytics(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.EmailsSentCount != 42 || got.ReplyCount != 3 {
		t.Errorf("unexpected analytics: %+v", got)
	}
}

func TestAPIError_Retryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	_, err := c.Campaigns(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.Retryable() {
		t.Error("429 should be retryable")
	}

	notRetryable := &APIError{StatusCode: http.StatusForbidden}
	if notRetryable.Retryable() {
		t.Error("403 should not be retryable")
	}
}

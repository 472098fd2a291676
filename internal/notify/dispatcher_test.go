package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blood-donation-support-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func sampleEvent() domain.NotificationEvent {
	return domain.NotificationEvent{
		Kind:          domain.EventAppointmentEligible,
		AppointmentID: uuid.New(),
		DonorID:       uuid.New(),
		OccurredAt:    time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		Summary:       "appointment approved for donation",
	}
}

func TestWebhookDispatcher_Dispatch(t *testing.T) {
	var received domain.NotificationEvent
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	dispatcher := NewWebhookDispatcher(domain.NotifyConfig{WebhookURL: server.URL}, testLogger())

	event := sampleEvent()
	err := dispatcher.Dispatch(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, event.Kind, received.Kind)
	assert.Equal(t, event.AppointmentID, received.AppointmentID)
}

func TestWebhookDispatcher_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dispatcher := NewWebhookDispatcher(domain.NotifyConfig{WebhookURL: server.URL}, testLogger())

	err := dispatcher.Dispatch(context.Background(), sampleEvent())

	assert.Error(t, err)
}

func TestWebhookDispatcher_BreakerOpensAfterFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	dispatcher := NewWebhookDispatcher(domain.NotifyConfig{
		WebhookURL:  server.URL,
		MaxFailures: 2,
	}, testLogger())

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		assert.Error(t, dispatcher.Dispatch(ctx, sampleEvent()))
	}

	// Once open, the breaker fails fast without reaching the server.
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFanout(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	first := NewWebhookDispatcher(domain.NotifyConfig{WebhookURL: server.URL}, testLogger())
	second := NewWebhookDispatcher(domain.NotifyConfig{WebhookURL: server.URL}, testLogger())

	fanout := Fanout{first, second}
	err := fanout.Dispatch(context.Background(), sampleEvent())

	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

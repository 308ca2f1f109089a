package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"knowledgehub/backend/internal/workflow"
	"knowledgehub/backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...any) {}
func (nopLogger) Info(msg string, args ...any)  {}
func (nopLogger) Error(msg string, args ...any) {}

func TestDispatcherDelivers(t *testing.T) {
	received := make(chan workflow.NotificationEvent, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var event workflow.NotificationEvent
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		received <- event
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL, 8, nopLogger{})
	d.Start()
	defer d.Close()

	err := d.Notify(context.Background(), workflow.NotificationEvent{
		RequestID:  "r1",
		DocumentID: "d1",
		Outcome:    models.RequestApproved,
		Comment:    "looks good",
	})
	require.NoError(t, err)

	select {
	case event := <-received:
		assert.Equal(t, "r1", event.RequestID)
		assert.Equal(t, "d1", event.DocumentID)
		assert.Equal(t, models.RequestApproved, event.Outcome)
		assert.Equal(t, "looks good", event.Comment)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestDispatcherQueueFull(t *testing.T) {
	// Worker not started, so the queue never drains.
	d := NewDispatcher("http://localhost:0", 1, nopLogger{})

	require.NoError(t, d.Notify(context.Background(), workflow.NotificationEvent{RequestID: "r1"}))
	err := d.Notify(context.Background(), workflow.NotificationEvent{RequestID: "r2"})
	assert.Error(t, err, "a full queue must not block the caller")
}

func TestDispatcherClose(t *testing.T) {
	d := NewDispatcher("http://localhost:0", 1, nopLogger{})
	d.Start()

	done := make(chan struct{})
	go func() {
		d.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
}

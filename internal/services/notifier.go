// Package services contains outbound collaborator clients.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"knowledgehub/backend/internal/workflow"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Dispatcher delivers workflow notification events to a webhook endpoint.
// Events are queued after the workflow transaction has committed and posted
// by a background worker; delivery is at-most-once best effort and a failed
// delivery is only logged. It implements workflow.Notifier.
type Dispatcher struct {
	url    string
	client *http.Client
	logger Logger

	queue chan workflow.NotificationEvent
	stop  chan struct{}
	done  sync.WaitGroup
}

// NewDispatcher creates a Dispatcher posting to url with the given queue
// capacity.
func NewDispatcher(url string, queueSize int, logger Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Dispatcher{
		url:    url,
		client: http.DefaultClient,
		logger: logger,
		queue:  make(chan workflow.NotificationEvent, queueSize),
		stop:   make(chan struct{}),
	}
}

// Start launches the delivery worker.
func (d *Dispatcher) Start() {
	d.done.Add(1)
	go func() {
		defer d.done.Done()
		for {
			select {
			case event := <-d.queue:
				if err := d.post(context.Background(), event); err != nil {
					d.logger.Error("notification delivery failed for request %s: %v", event.RequestID, err)
				}
			case <-d.stop:
				return
			}
		}
	}()
}

// Close stops the delivery worker. Queued events that have not been posted
// yet are dropped; the workflow transitions they describe are already
// durable.
func (d *Dispatcher) Close() {
	close(d.stop)
	d.done.Wait()
}

// Notify enqueues an event for delivery. It never blocks the caller: when
// the queue is full the event is dropped and an error returned for the
// engine to log.
func (d *Dispatcher) Notify(ctx context.Context, event workflow.NotificationEvent) error {
	select {
	case d.queue <- event:
		return nil
	default:
		return errors.New("notification queue full, event dropped")
	}
}

func (d *Dispatcher) post(ctx context.Context, event workflow.NotificationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

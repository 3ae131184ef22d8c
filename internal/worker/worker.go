// Package worker provides a NATS worker that turns video requests into videos.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SriHarishb/edith/internal/studio"
	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const defaultHandleTimeout = 10 * time.Minute

var (
	// ErrSubjectEmpty indicates that no subject was configured.
	ErrSubjectEmpty = errors.New("subject cannot be empty")
	// ErrUserIDMissing indicates an event without a user in its header.
	ErrUserIDMissing = errors.New("event header has no user id")
	// ErrPromptMissing indicates an event without a prompt.
	ErrPromptMissing = errors.New("event has no prompt")
)

// Generator produces a video for a request.
type Generator interface {
	Generate(ctx context.Context, req studio.Request) (studio.Result, error)
}

// VideoRequestedEvent asks for a video. The requesting user travels in
// Header.UserID.
type VideoRequestedEvent struct {
	Header events.EventHeader `json:"header"`
	Prompt string             `json:"prompt"`
}

// VideoCreatedEvent answers a VideoRequestedEvent. Error is set instead of
// Link when generation failed.
type VideoCreatedEvent struct {
	Header events.EventHeader `json:"header"`
	Link   string             `json:"link,omitempty"`
	Title  string             `json:"title,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// NatsWorker listens for video requests on a NATS subject and replies with
// the stored video.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	generator      Generator
	handleTimeout  time.Duration
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker. A non-positive
// timeout selects the default of ten minutes per request.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	generator Generator,
	timeout time.Duration,
	log *logger.Logger,
) (*NatsWorker, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, ErrSubjectEmpty
	}

	if timeout <= 0 {
		timeout = defaultHandleTimeout
	}

	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		generator:      generator,
		handleTimeout:  timeout,
		log:            log,
	}, nil
}

// Run starts the worker and blocks until ctx is cancelled.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	w.log.Info("Listening for video requests on subject: %s", w.subject)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), w.handleTimeout)
	defer cancel()

	event, err := parseAndValidateEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse and validate event: %v", err)

		header := events.EventHeader{}
		if event != nil {
			header = event.Header
		}

		w.reply(msg, newReply(header, studio.Result{}, err))

		return
	}

	result, err := w.generator.Generate(ctx, studio.Request{
		UserID: event.Header.UserID,
		Prompt: event.Prompt,
	})
	if err != nil {
		w.log.Error("Failed to generate video for workflow %s: %v", event.Header.WorkflowID, err)
	}

	w.reply(msg, newReply(event.Header, result, err))
}

func (w *NatsWorker) reply(msg *nats.Msg, replyEvent *VideoCreatedEvent) {
	if msg.Reply == "" {
		return
	}

	err := publishReplyEvent(msg, replyEvent)
	if err != nil {
		w.log.Error("Failed to publish reply event for workflow %s: %v", replyEvent.Header.WorkflowID, err)
	}
}

// newReply keeps the workflow, user and tenant of the request and stamps a
// fresh event ID.
func newReply(request events.EventHeader, result studio.Result, err error) *VideoCreatedEvent {
	header := request
	header.EventID = uuid.NewString()
	header.Timestamp = time.Now().UTC()

	reply := &VideoCreatedEvent{
		Header: header,
		Link:   result.Link,
		Title:  result.Title,
	}
	if err != nil {
		reply.Error = err.Error()
	}

	return reply
}

// publishReplyEvent marshals and responds with the VideoCreatedEvent.
func publishReplyEvent(msg *nats.Msg, replyEvent *VideoCreatedEvent) error {
	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func parseAndValidateEvent(msg *nats.Msg) (*VideoRequestedEvent, error) {
	var event VideoRequestedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if strings.TrimSpace(event.Header.UserID) == "" {
		return &event, ErrUserIDMissing
	}

	if strings.TrimSpace(event.Prompt) == "" {
		return &event, ErrPromptMissing
	}

	return &event, nil
}

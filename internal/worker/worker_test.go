// Package worker_test tests the NATS worker for the video service.
package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SriHarishb/edith/internal/studio"
	"github.com/SriHarishb/edith/internal/worker"
	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSubject = "video.requested.test"

var errMockGenerate = errors.New("mock generate error")

// mockGenerator is a mock implementation of the worker.Generator interface.
type mockGenerator struct {
	mu         sync.Mutex
	shouldFail bool
	requests   []studio.Request
}

func (m *mockGenerator) Generate(_ context.Context, req studio.Request) (studio.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if m.shouldFail {
		return studio.Result{}, errMockGenerate
	}

	return studio.Result{Link: "https://videos.example.com/users/" + req.UserID + "/videos/0", Title: "Blue Skies"}, nil
}

func (m *mockGenerator) received() []studio.Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]studio.Request(nil), m.requests...)
}

func createTestNatsClient(t *testing.T) *nats.Conn {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1
	server := test.RunServer(&opts)

	natsConnection, err := nats.Connect(server.ClientURL())
	require.NoError(t, err, "Failed to connect to test NATS server")

	t.Cleanup(func() {
		natsConnection.Close()
		server.Shutdown()
	})

	return natsConnection
}

// startWorker runs a worker until the test ends and returns its connection.
func startWorker(t *testing.T, generator *mockGenerator) *nats.Conn {
	t.Helper()

	natsConnection := createTestNatsClient(t)

	testLogger, err := logger.New(t.TempDir(), "worker-test.log")
	require.NoError(t, err)

	workerInstance, err := worker.NewNatsWorker(natsConnection, testSubject, generator, time.Minute, testLogger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)

	go func() {
		errChan <- workerInstance.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-errChan, "worker.Run should not error on graceful shutdown")
	})

	// The subscription is registered asynchronously; wait until it is visible.
	require.Eventually(t, func() bool {
		return natsConnection.NumSubscriptions() > 0 && natsConnection.Flush() == nil
	}, 2*time.Second, 10*time.Millisecond)

	return natsConnection
}

func request(t *testing.T, natsConnection *nats.Conn, event worker.VideoRequestedEvent) worker.VideoCreatedEvent {
	t.Helper()

	eventData, err := json.Marshal(event)
	require.NoError(t, err)

	replyMsg, err := natsConnection.Request(testSubject, eventData, 5*time.Second)
	require.NoError(t, err, "Request should succeed and receive a reply")

	var reply worker.VideoCreatedEvent

	require.NoError(t, json.Unmarshal(replyMsg.Data, &reply))

	return reply
}

func newHeader(userID string) events.EventHeader {
	return events.EventHeader{
		Timestamp:  time.Now(),
		WorkflowID: uuid.NewString(),
		EventID:    uuid.NewString(),
		UserID:     userID,
		TenantID:   "",
	}
}

func TestMessageHandler_Success(t *testing.T) {
	t.Parallel()

	generator := &mockGenerator{}
	natsConnection := startWorker(t, generator)

	event := worker.VideoRequestedEvent{Header: newHeader("alice"), Prompt: "why is the sky blue"}
	reply := request(t, natsConnection, event)

	assert.Empty(t, reply.Error)
	assert.Equal(t, "https://videos.example.com/users/alice/videos/0", reply.Link)
	assert.Equal(t, "Blue Skies", reply.Title)
	assert.Equal(t, event.Header.WorkflowID, reply.Header.WorkflowID)
	assert.Equal(t, "alice", reply.Header.UserID)
	assert.NotEqual(t, event.Header.EventID, reply.Header.EventID)
	assert.Equal(t, []studio.Request{{UserID: "alice", Prompt: "why is the sky blue"}}, generator.received())
}

func TestMessageHandler_GenerateFailure(t *testing.T) {
	t.Parallel()

	generator := &mockGenerator{shouldFail: true}
	natsConnection := startWorker(t, generator)

	reply := request(t, natsConnection, worker.VideoRequestedEvent{Header: newHeader("alice"), Prompt: "sky"})

	assert.Equal(t, errMockGenerate.Error(), reply.Error)
	assert.Empty(t, reply.Link)
}

func TestMessageHandler_InvalidEvent(t *testing.T) {
	t.Parallel()

	generator := &mockGenerator{}
	natsConnection := startWorker(t, generator)

	reply := request(t, natsConnection, worker.VideoRequestedEvent{Header: newHeader(""), Prompt: "sky"})
	assert.Equal(t, worker.ErrUserIDMissing.Error(), reply.Error)

	reply = request(t, natsConnection, worker.VideoRequestedEvent{Header: newHeader("alice"), Prompt: "  "})
	assert.Equal(t, worker.ErrPromptMissing.Error(), reply.Error)

	replyMsg, err := natsConnection.Request(testSubject, []byte("not json"), 5*time.Second)
	require.NoError(t, err)
	assert.Contains(t, string(replyMsg.Data), "failed to unmarshal event")

	assert.Empty(t, generator.received())
}

func TestNewNatsWorker_RequiresSubject(t *testing.T) {
	t.Parallel()

	_, err := worker.NewNatsWorker(nil, " ", &mockGenerator{}, 0, nil)
	require.ErrorIs(t, err, worker.ErrSubjectEmpty)
}

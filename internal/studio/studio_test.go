package studio_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/SriHarishb/edith/internal/core"
	"github.com/SriHarishb/edith/internal/docstore"
	"github.com/SriHarishb/edith/internal/studio"
	"github.com/SriHarishb/edith/internal/timeline"
	"github.com/book-expert/logger"
	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNarration = "The sky is blue. Light scatters."

var errMockSynthesis = errors.New("mock synthesis error")

type mockText struct {
	narration string
	prompts   []string
	gotPrompt string
}

func (m *mockText) Narrate(_ context.Context, prompt string) (string, error) {
	m.gotPrompt = prompt

	return m.narration, nil
}

func (m *mockText) Title(_ context.Context, _ string) (string, error) {
	return "Blue Skies", nil
}

func (m *mockText) ImagePrompts(_ context.Context, _ []string) ([]string, error) {
	return m.prompts, nil
}

func (m *mockText) Chat(_ context.Context, message string) (string, error) {
	return message, nil
}

type mockImages struct {
	mu      sync.Mutex
	prompts []string
}

func (m *mockImages) GenerateImage(_ context.Context, prompt string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)

	return []byte("png:" + prompt), nil
}

type mockSpeech struct {
	fail bool
	text string
}

func (m *mockSpeech) Synthesize(_ context.Context, text string) ([]byte, error) {
	if m.fail {
		return nil, errMockSynthesis
	}

	m.text = text

	return []byte("mp3"), nil
}

type fixedMeter float64

func (f fixedMeter) Measure(_ []byte) (float64, error) {
	return float64(f), nil
}

type mockAssembler struct {
	job       core.VideoJob
	imageData [][]byte
}

func (m *mockAssembler) Assemble(_ context.Context, job core.VideoJob) error {
	m.job = job

	for _, frame := range job.Frames {
		data, err := os.ReadFile(frame.ImagePath)
		if err != nil {
			return err
		}

		m.imageData = append(m.imageData, data)
	}

	return os.WriteFile(job.OutputPath, []byte("mp4"), 0o600)
}

type mockObjects struct {
	uploads map[string][]byte
}

func (m *mockObjects) Download(_ context.Context, key string) ([]byte, error) {
	return m.uploads[key], nil
}

func (m *mockObjects) Upload(_ context.Context, key string, data []byte) error {
	m.uploads[key] = data

	return nil
}

func (m *mockObjects) URL(key string) string {
	return "https://videos.example.com/" + key
}

type fixture struct {
	studio    *studio.Studio
	text      *mockText
	images    *mockImages
	speech    *mockSpeech
	assembler *mockAssembler
	objects   *mockObjects
	documents *docstore.Store
	workDir   string
}

func newFixture(t *testing.T, narration string, measured float64) *fixture {
	t.Helper()

	ctx := context.Background()
	dir := t.TempDir()

	documents, err := docstore.Open(ctx, filepath.Join(dir, "edith.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = documents.Close() })

	testLogger, err := logger.New(dir, "studio-test.log")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testLogger.Close() })

	f := &fixture{
		text:      &mockText{narration: narration, prompts: []string{"A blue sky", "Scattered light"}},
		images:    &mockImages{},
		speech:    &mockSpeech{},
		assembler: &mockAssembler{},
		objects:   &mockObjects{uploads: map[string][]byte{}},
		documents: documents,
		workDir:   filepath.Join(dir, "work"),
	}

	f.studio, err = studio.New(studio.Dependencies{
		Text:      f.text,
		Images:    f.images,
		Speech:    f.speech,
		Meter:     fixedMeter(measured),
		Assembler: f.assembler,
		Objects:   f.objects,
		Documents: documents,
	}, f.workDir, testLogger)
	require.NoError(t, err)

	require.NoError(t, documents.CreateUser(ctx, "alice"))

	return f
}

func TestGenerate_Success(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testNarration, 4.0)
	ctx := context.Background()

	result, err := f.studio.Generate(ctx, studio.Request{UserID: "alice", Prompt: " why is the sky blue "})
	require.NoError(t, err)

	assert.Equal(t, "https://videos.example.com/users/alice/videos/0", result.Link)
	assert.Equal(t, "Blue Skies", result.Title)
	assert.Equal(t, "why is the sky blue", f.text.gotPrompt)
	assert.Equal(t, []byte("mp4"), f.objects.uploads["users/alice/videos/0"])
	assert.Equal(t, []string{"A blue sky", "Scattered light"}, f.images.prompts)
	assert.Equal(t, [][]byte{[]byte("png:A blue sky"), []byte("png:Scattered light")}, f.assembler.imageData)
	assert.Equal(t, testNarration, f.speech.text)

	require.Len(t, f.assembler.job.Frames, 2)

	durations := []float64{f.assembler.job.Frames[0].Duration, f.assembler.job.Frames[1].Duration}
	assert.Equal(t, 4.0, timeline.Sum(durations))

	user, err := f.documents.User(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, user.VideoCount)
	assert.Equal(t, []core.Video{{Link: result.Link, Title: "Blue Skies", Views: 0}}, user.Videos)

	assertNoJobDirs(t, filepath.Join(f.workDir, "alice"))
}

func assertNoJobDirs(t *testing.T, userDir string) {
	t.Helper()

	entries, err := os.ReadDir(userDir)
	require.NoError(t, err)

	for _, entry := range entries {
		assert.False(t, entry.IsDir(), "job directory %s should be removed", entry.Name())
	}
}

func TestGenerate_NumbersSequentially(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testNarration, 4.0)
	ctx := context.Background()

	first, err := f.studio.Generate(ctx, studio.Request{UserID: "alice", Prompt: "one"})
	require.NoError(t, err)

	second, err := f.studio.Generate(ctx, studio.Request{UserID: "alice", Prompt: "two"})
	require.NoError(t, err)

	assert.Equal(t, "https://videos.example.com/users/alice/videos/0", first.Link)
	assert.Equal(t, "https://videos.example.com/users/alice/videos/1", second.Link)
}

func TestGenerate_InvalidRequest(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testNarration, 4.0)
	ctx := context.Background()

	_, err := f.studio.Generate(ctx, studio.Request{UserID: "alice", Prompt: "   "})
	require.ErrorIs(t, err, studio.ErrInvalidRequest)

	_, err = f.studio.Generate(ctx, studio.Request{UserID: "", Prompt: "sky"})
	require.ErrorIs(t, err, studio.ErrInvalidRequest)
}

func TestGenerate_StageFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testNarration, 4.0)
	f.speech.fail = true

	_, err := f.studio.Generate(context.Background(), studio.Request{UserID: "alice", Prompt: "sky"})
	require.ErrorIs(t, err, errMockSynthesis)

	var stageErr *studio.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, studio.StageSpeech, stageErr.Stage)
	assert.Empty(t, f.objects.uploads)

	assertNoJobDirs(t, filepath.Join(f.workDir, "alice"))
}

func TestGenerate_FailsFastWhenUserLocked(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testNarration, 4.0)
	userDir := filepath.Join(f.workDir, "alice")
	require.NoError(t, os.MkdirAll(userDir, 0o750))

	held := flock.New(filepath.Join(userDir, ".generate.lock"))
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)

	_, err = f.studio.Generate(context.Background(), studio.Request{UserID: "alice", Prompt: "sky"})
	require.ErrorIs(t, err, studio.ErrLockUnavailable)

	var stageErr *studio.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, studio.StageLock, stageErr.Stage)
	assert.Empty(t, f.text.gotPrompt)

	require.NoError(t, held.Unlock())

	_, err = f.studio.Generate(context.Background(), studio.Request{UserID: "alice", Prompt: "sky"})
	require.NoError(t, err)
}

func TestGenerate_RejectsNonPositiveFrames(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "A. This sentence is considerably longer than the first.", 0.5)

	_, err := f.studio.Generate(context.Background(), studio.Request{UserID: "alice", Prompt: "sky"})
	require.ErrorIs(t, err, timeline.ErrNonPositiveFrame)

	var stageErr *studio.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, studio.StageTimeline, stageErr.Stage)
}

func TestGenerate_EmptyNarration(t *testing.T) {
	t.Parallel()

	f := newFixture(t, " . . ", 4.0)

	_, err := f.studio.Generate(context.Background(), studio.Request{UserID: "alice", Prompt: "sky"})
	require.ErrorIs(t, err, timeline.ErrEmptyInput)
}

func TestNew_RequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := studio.New(studio.Dependencies{}, t.TempDir(), nil)
	require.ErrorIs(t, err, studio.ErrMissingDependency)
}

func TestAlignPrompts(t *testing.T) {
	t.Parallel()

	sentences := []string{"one", "two", "three"}

	assert.Equal(t, []string{"a", "b", "c"}, studio.AlignPrompts([]string{"a", "b", "c", "d"}, sentences))
	assert.Equal(t, []string{"a", "two", "three"}, studio.AlignPrompts([]string{"a"}, sentences))
	assert.Equal(t, []string{"a", "two", "c"}, studio.AlignPrompts([]string{"a", " ", "c"}, sentences))
	assert.Equal(t, []string{"one", "two", "three"}, studio.AlignPrompts(nil, sentences))
}

package worker

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-docchat/internal/model"
)

type fakeGenerator struct {
	jobs     []model.DescriptionJob
	err      error
	deadline bool
}

func (f *fakeGenerator) GenerateDescription(ctx context.Context, job model.DescriptionJob) error {
	_, f.deadline = ctx.Deadline()
	f.jobs = append(f.jobs, job)
	return f.err
}

func TestHandle_RunsJobWithTimeout(t *testing.T) {
	gen := &fakeGenerator{}
	var logs bytes.Buffer
	w := NewDescriptionWorker(nil, gen, "q", time.Second, zerolog.New(&logs))

	err := w.handle(context.Background(), []byte(`{"document_id":5,"file_id":"abc"}`))
	require.NoError(t, err)
	require.Len(t, gen.jobs, 1)
	assert.Equal(t, model.DescriptionJob{DocumentID: 5, FileID: "abc"}, gen.jobs[0])
	assert.True(t, gen.deadline)
	assert.Contains(t, logs.String(), "description generated")
}

func TestHandle_GeneratorErrorIsReturnedAndLogged(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("llm down")}
	var logs bytes.Buffer
	w := NewDescriptionWorker(nil, gen, "q", 0, zerolog.New(&logs))
	assert.Equal(t, 2*time.Minute, w.jobTimeout)

	err := w.handle(context.Background(), []byte(`{"document_id":5,"file_id":"abc"}`))
	require.Error(t, err)
	assert.Contains(t, logs.String(), "llm down")
	assert.Contains(t, logs.String(), `"document_id":5`)
}

func TestHandle_BadPayload(t *testing.T) {
	gen := &fakeGenerator{}
	w := NewDescriptionWorker(nil, gen, "q", time.Second, zerolog.Nop())

	err := w.handle(context.Background(), []byte(`not json`))
	require.Error(t, err)
	assert.Empty(t, gen.jobs)
}

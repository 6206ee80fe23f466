package jobs

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"pbidesc/adapters/excel"
	"pbidesc/adapters/llm"
	"pbidesc/app"
	"pbidesc/internal/api"
	"pbidesc/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Broadcast(event api.ProgressEvent) {
	m.Called(event)
}

func newService(response string) *app.DescriptionService {
	return app.NewDescriptionService(llm.NewDescriber(&llm.MockTextGenerator{Response: response}))
}

func TestRunnerRunCompletesJob(t *testing.T) {
	store := NewStore()
	job := store.Create(uploadedDataset())

	publisher := &MockPublisher{}
	publisher.On("Broadcast", mock.Anything).Return()

	runner := NewRunner(store, newService("A description."), excel.Serialize, publisher)
	require.NoError(t, runner.Run(job.ID))

	got, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateDone, got.State)
	assert.NotEmpty(t, got.Output)
	for _, row := range got.Dataset.Rows {
		assert.Equal(t, "A description.", row.Description)
	}

	// Two progress events plus one completion event.
	publisher.AssertNumberOfCalls(t, "Broadcast", 3)
	last := publisher.Calls[2].Arguments.Get(0).(api.ProgressEvent)
	assert.Equal(t, api.EventCompleted, last.EventType)
	assert.Equal(t, job.ID, last.SessionID)
	first := publisher.Calls[0].Arguments.Get(0).(api.ProgressEvent)
	assert.Equal(t, api.EventProgress, first.EventType)
	assert.Equal(t, 50, first.Percent)
}

func TestRunnerStartInBackground(t *testing.T) {
	store := NewStore()
	job := store.Create(uploadedDataset())
	runner := NewRunner(store, newService("ok"), excel.Serialize, nil)

	done, err := runner.Start(job.ID)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
	}

	got, _ := store.Get(job.ID)
	assert.Equal(t, StateDone, got.State)

	_, err = runner.Start(job.ID)
	assert.Error(t, err)
}

func TestRunnerSerializeFailure(t *testing.T) {
	store := NewStore()
	job := store.Create(uploadedDataset())

	publisher := &MockPublisher{}
	publisher.On("Broadcast", mock.Anything).Return()

	failing := func(*models.Dataset) ([]byte, error) { return nil, fmt.Errorf("disk full") }
	runner := NewRunner(store, newService("ok"), failing, publisher)
	require.NoError(t, runner.Run(job.ID))

	got, _ := store.Get(job.ID)
	assert.Equal(t, StateFailed, got.State)
	assert.Contains(t, got.Error, "disk full")

	last := publisher.Calls[len(publisher.Calls)-1].Arguments.Get(0).(api.ProgressEvent)
	assert.Equal(t, api.EventFailed, last.EventType)
}

func TestRunnerFailsOnOversizedDescription(t *testing.T) {
	store := NewStore()
	job := store.Create(uploadedDataset())

	runner := NewRunner(store, newService(strings.Repeat("x", 40000)), excel.Serialize, nil)
	require.NoError(t, runner.Run(job.ID))

	got, _ := store.Get(job.ID)
	assert.Equal(t, StateFailed, got.State)
	assert.Contains(t, got.Error, "column Description has 40000 characters")
	assert.Empty(t, got.Output)
}

func TestRunnerRetriesFailedJob(t *testing.T) {
	store := NewStore()
	job := store.Create(uploadedDataset())

	failing := func(*models.Dataset) ([]byte, error) { return nil, fmt.Errorf("disk full") }
	require.NoError(t, NewRunner(store, newService("ok"), failing, nil).Run(job.ID))

	got, _ := store.Get(job.ID)
	require.Equal(t, StateFailed, got.State)

	require.NoError(t, NewRunner(store, newService("ok"), excel.Serialize, nil).Run(job.ID))

	got, _ = store.Get(job.ID)
	assert.Equal(t, StateDone, got.State)
	assert.Empty(t, got.Error)
	assert.NotEmpty(t, got.Output)
}

package jobs

import (
	"context"
	"fmt"
	"log"

	"pbidesc/app"
	"pbidesc/internal/api"
	"pbidesc/models"
)

// Processor annotates a dataset with descriptions
type Processor interface {
	ProcessDataset(ctx context.Context, ds *models.Dataset, onProgress app.ProgressFunc) *models.Dataset
}

// Publisher receives progress events for connected browsers
type Publisher interface {
	Broadcast(event api.ProgressEvent)
}

// SerializeFunc renders a described dataset as the downloadable workbook
type SerializeFunc func(ds *models.Dataset) ([]byte, error)

// Runner executes one job at a time per call on a background goroutine
type Runner struct {
	store     *Store
	processor Processor
	serialize SerializeFunc
	publisher Publisher
}

// NewRunner wires a runner; publisher may be nil
func NewRunner(store *Store, processor Processor, serialize SerializeFunc, publisher Publisher) *Runner {
	return &Runner{
		store:     store,
		processor: processor,
		serialize: serialize,
		publisher: publisher,
	}
}

// Start claims the job and processes it in the background. The returned
// channel is closed when the job has finished.
func (r *Runner) Start(id string) (<-chan struct{}, error) {
	ds, err := r.store.StartRun(id)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.run(id, ds)
	}()
	return done, nil
}

// Run processes the job on the calling goroutine
func (r *Runner) Run(id string) error {
	ds, err := r.store.StartRun(id)
	if err != nil {
		return err
	}
	r.run(id, ds)
	return nil
}

func (r *Runner) run(id string, ds *models.Dataset) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[JobRunner] Job %s panicked: %v", id, rec)
			r.fail(id, fmt.Sprintf("An error occurred while processing the file: %v", rec))
		}
	}()

	log.Printf("[JobRunner] Job %s started (%d rows)", id, ds.Len())
	r.processor.ProcessDataset(context.Background(), ds, func(p app.Progress) {
		r.store.UpdateProgress(id, p)
		r.publish(api.ProgressEvent{
			SessionID: id,
			EventType: api.EventProgress,
			Progress:  p.Fraction,
			Percent:   p.Percent,
			Completed: p.Completed,
			Total:     p.Total,
			Message:   p.Message,
		})
	})

	output, err := r.serialize(ds)
	if err != nil {
		log.Printf("[JobRunner] Job %s failed to serialize: %v", id, err)
		r.fail(id, fmt.Sprintf("An error occurred while processing the file: %v", err))
		return
	}

	r.store.Complete(id, ds, output)
	r.publish(api.ProgressEvent{
		SessionID: id,
		EventType: api.EventCompleted,
		Progress:  1,
		Percent:   100,
		Completed: ds.Len(),
		Total:     ds.Len(),
		Message:   "Descriptions generated successfully!",
	})
	log.Printf("[JobRunner] Job %s completed (%d bytes)", id, len(output))
}

func (r *Runner) fail(id, message string) {
	r.store.Fail(id, message)
	r.publish(api.ProgressEvent{SessionID: id, EventType: api.EventFailed, Message: message})
}

func (r *Runner) publish(event api.ProgressEvent) {
	if r.publisher != nil {
		r.publisher.Broadcast(event)
	}
}

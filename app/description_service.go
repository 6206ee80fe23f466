package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"pbidesc/domain/prompt"
	"pbidesc/models"
	"pbidesc/ports"
)

// Progress is reported after each row is described
type Progress struct {
	Index     int     `json:"index"`     // zero-based row just finished
	Completed int     `json:"completed"` // rows finished so far
	Total     int     `json:"total"`
	Fraction  float64 `json:"fraction"` // Completed / Total
	Percent   int     `json:"percent"`
	Message   string  `json:"message"`
}

// ProgressFunc receives progress updates; it may be nil
type ProgressFunc func(Progress)

// DescriptionService annotates every metadata row with a generated description
type DescriptionService struct {
	describer ports.DescriptionGenerator
	rowDelay  time.Duration
}

// NewDescriptionService creates a new description service
func NewDescriptionService(describer ports.DescriptionGenerator) *DescriptionService {
	return &DescriptionService{describer: describer}
}

// WithRowDelay pauses between rows, throttling the local model server
func (s *DescriptionService) WithRowDelay(delay time.Duration) *DescriptionService {
	s.rowDelay = delay
	return s
}

// ProcessDataset describes rows strictly in order, one request at a time, and
// mutates ds in place. The run is not cancellable; ctx only reaches the
// outbound requests.
func (s *DescriptionService) ProcessDataset(ctx context.Context, ds *models.Dataset, onProgress ProgressFunc) *models.Dataset {
	total := ds.Len()
	if total == 0 {
		return ds
	}

	start := time.Now()
	log.Printf("[DescriptionService] Describing %d rows from %q (%d measures)", total, ds.SourceName, ds.MeasureCount())

	for i := range ds.Rows {
		row := &ds.Rows[i]
		row.SetDescription(s.describer.Describe(ctx, prompt.Build(*row)))

		if onProgress != nil {
			onProgress(NewProgress(i, total))
		}
		if s.rowDelay > 0 && i < total-1 {
			time.Sleep(s.rowDelay)
		}
	}

	log.Printf("[DescriptionService] Described %d rows in %s", total, time.Since(start).Round(time.Millisecond))
	return ds
}

// NewProgress builds the update sent after row index of total completes
func NewProgress(index, total int) Progress {
	completed := index + 1
	fraction := float64(completed) / float64(total)
	percent := completed * 100 / total
	return Progress{
		Index:     index,
		Completed: completed,
		Total:     total,
		Fraction:  fraction,
		Percent:   percent,
		Message:   fmt.Sprintf("Processing: %d%% complete", percent),
	}
}

// Package workbench keeps the datasets uploaded to the dashboard in memory,
// together with the last batch report produced for each of them.
package workbench

import (
	"math"
	"sort"
	"sync"
	"time"

	"sheetlens/domain/frame"
	"sheetlens/internal/errors"
	"sheetlens/models"

	"github.com/google/uuid"
)

// Dataset is one uploaded spreadsheet
type Dataset struct {
	ID         uuid.UUID    `json:"id"`
	Filename   string       `json:"filename"`
	Path       string       `json:"-"`
	SizeBytes  int64        `json:"size_bytes"`
	UploadedAt time.Time    `json:"uploaded_at"`
	Table      *frame.Table `json:"-"`
}

// Metrics are the three numbers shown above the preview
type Metrics struct {
	Rows    int     `json:"rows"`
	Columns int     `json:"columns"`
	SizeKB  float64 `json:"size_kb"`
}

// Metrics summarises the dataset
func (d *Dataset) Metrics() Metrics {
	rows, cols := d.Table.Shape()
	return Metrics{
		Rows:    rows,
		Columns: cols,
		SizeKB:  math.Round(float64(d.SizeBytes)/1024*10) / 10,
	}
}

// Store holds datasets and batch reports by id
type Store struct {
	mu       sync.RWMutex
	datasets map[uuid.UUID]*Dataset
	batches  map[uuid.UUID]*models.BatchReport
	latest   map[uuid.UUID]uuid.UUID // dataset -> last batch
	now      func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		datasets: make(map[uuid.UUID]*Dataset),
		batches:  make(map[uuid.UUID]*models.BatchReport),
		latest:   make(map[uuid.UUID]uuid.UUID),
		now:      time.Now,
	}
}

// ParseID validates a dataset or batch id taken from a URL
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.InvalidInput("invalid id " + raw)
	}
	return id, nil
}

// Add registers a loaded table
func (s *Store) Add(filename, path string, size int64, table *frame.Table) *Dataset {
	d := &Dataset{
		ID:         uuid.New(),
		Filename:   filename,
		Path:       path,
		SizeBytes:  size,
		UploadedAt: s.now().UTC(),
		Table:      table,
	}

	s.mu.Lock()
	s.datasets[d.ID] = d
	s.mu.Unlock()
	return d
}

// Get returns a dataset
func (s *Store) Get(id uuid.UUID) (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.datasets[id]
	if !ok {
		return nil, errors.NotFound("dataset " + id.String())
	}
	return d, nil
}

// List returns datasets, newest first
func (s *Store) List() []*Dataset {
	s.mu.RLock()
	list := make([]*Dataset, 0, len(s.datasets))
	for _, d := range s.datasets {
		list = append(list, d)
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].UploadedAt.After(list[j].UploadedAt)
	})
	return list
}

// Remove drops a dataset and its batch reports
func (s *Store) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.datasets, id)
	if batchID, ok := s.latest[id]; ok {
		delete(s.batches, batchID)
		delete(s.latest, id)
	}
}

// SaveBatch stores report as the latest batch of the dataset
func (s *Store) SaveBatch(datasetID uuid.UUID, report *models.BatchReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.datasets[datasetID]; !ok {
		return errors.NotFound("dataset " + datasetID.String())
	}
	if prev, ok := s.latest[datasetID]; ok {
		delete(s.batches, prev)
	}
	s.batches[report.ID] = report
	s.latest[datasetID] = report.ID
	return nil
}

// Batch returns a stored batch report
func (s *Store) Batch(id uuid.UUID) (*models.BatchReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.batches[id]
	if !ok {
		return nil, errors.NotFound("batch " + id.String())
	}
	return report, nil
}

// LatestBatch returns the last batch report of a dataset, or nil
func (s *Store) LatestBatch(datasetID uuid.UUID) *models.BatchReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.latest[datasetID]; ok {
		return s.batches[id]
	}
	return nil
}

package storage

import (
	"context"
	"sync"
	"time"

	"overlayserver/internal/logger"
	"overlayserver/internal/models"
	"overlayserver/internal/repository"
)

// BufferService batches binding records and writes them to the audit log on
// a timer, so the coordinator never waits on the database.
type BufferService struct {
	repo        repository.BindingRepository
	records     []models.BindingRecord
	bufferLimit int
	dropped     int
	mu          sync.Mutex
	logger      *logger.Logger
}

func NewBufferService(repo repository.BindingRepository, bufferLimit int, logger *logger.Logger) *BufferService {
	return &BufferService{
		repo:        repo,
		bufferLimit: bufferLimit,
		records:     make([]models.BindingRecord, 0),
		logger:      logger,
	}
}

// Run flushes every flushInterval seconds until ctx is done, then flushes
// once more.
func (s *BufferService) Run(ctx context.Context, flushInterval int) {
	if flushInterval <= 0 {
		flushInterval = 10
	}
	ticker := time.NewTicker(time.Duration(flushInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.FlushBindings()
			return
		case <-ticker.C:
			s.FlushBindings()
		}
	}
}

// AddBinding queues rec. Records beyond the buffer limit are dropped until
// the next flush.
func (s *BufferService) AddBinding(rec models.BindingRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	if s.bufferLimit > 0 && len(s.records) >= s.bufferLimit {
		s.dropped++
		return
	}
	s.records = append(s.records, rec)
	s.logger.Debug("Binding buffer size: %d/%d", len(s.records), s.bufferLimit)
}

// Pending returns how many records wait for the next flush.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// FlushBindings writes buffered records in one batch. On failure the records
// stay buffered for the next attempt.
func (s *BufferService) FlushBindings() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) == 0 {
		return
	}

	if err := s.repo.InsertBatch(s.records); err != nil {
		s.logger.Error("Error saving %d bindings: %v", len(s.records), err)
		return
	}

	if s.dropped > 0 {
		s.logger.Warning("Binding buffer full, %d record(s) dropped", s.dropped)
		s.dropped = 0
	}
	s.logger.Info("Flushed %d bindings to the audit log", len(s.records))
	s.records = s.records[:0]
}

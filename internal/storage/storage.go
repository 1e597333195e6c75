package storage

import (
	"sync"
	"time"
)

// RangeData holds the latest range measured to one anchor.
type RangeData struct {
	RSSI      float64
	Distance  float64
	UpdatedAt time.Time
}

// Storage keeps the latest range per anchor ID.
type Storage struct {
	mu   sync.RWMutex
	data map[string]RangeData
	now  func() time.Time
}

// NewStorage returns an empty Storage.
func NewStorage() *Storage {
	return &Storage{
		data: make(map[string]RangeData),
		now:  time.Now,
	}
}

// Set records a new range for the anchor, stamped with the current time.
func (s *Storage) Set(anchorID string, rssi, distance float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[anchorID] = RangeData{
		RSSI:      rssi,
		Distance:  distance,
		UpdatedAt: s.now(),
	}
}

// Get returns the latest range for the anchor.
func (s *Storage) Get(anchorID string) (RangeData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[anchorID]
	return data, ok
}

// GetMany returns the ranges of the given anchors as one consistent
// snapshot. Anchors without a range are absent from the result.
func (s *Storage) GetMany(anchorIDs ...string) map[string]RangeData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]RangeData, len(anchorIDs))
	for _, id := range anchorIDs {
		if data, ok := s.data[id]; ok {
			result[id] = data
		}
	}
	return result
}

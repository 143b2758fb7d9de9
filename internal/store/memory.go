package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"interview/internal/models"
)

// memoryStore keeps records in process memory with the same conditional-update
// semantics as the Postgres store. Used for tests and storeless dev runs.
type memoryStore struct {
	mu      sync.Mutex
	byID    map[string]*models.Interview
	byRoom  map[string]string // roomID -> id
}

func NewMemory() Store {
	return &memoryStore{
		byID:   make(map[string]*models.Interview),
		byRoom: make(map[string]string),
	}
}

func clone(iv *models.Interview) *models.Interview {
	cp := *iv
	return &cp
}

func (s *memoryStore) Create(_ context.Context, iv *models.Interview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[iv.ID] = clone(iv)
	s.byRoom[iv.RoomID] = iv.ID
	return nil
}

func (s *memoryStore) GetByID(_ context.Context, id string) (*models.Interview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	iv, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return clone(iv), nil
}

func (s *memoryStore) GetByRoomID(_ context.Context, roomID string) (*models.Interview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byRoom[roomID]
	if !ok {
		return nil, nil
	}
	return clone(s.byID[id]), nil
}

func (s *memoryStore) List(_ context.Context, f ListFilter) ([]models.Interview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Interview{}
	for _, iv := range s.byID {
		if f.Open {
			if iv.Status == models.StatusScheduled && iv.InterviewerID == nil {
				out = append(out, *clone(iv))
			}
			continue
		}
		if iv.IsParticipant(f.ParticipantID) {
			out = append(out, *clone(iv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if f.Open {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ScheduledAt.After(out[j].ScheduledAt)
	})
	return out, nil
}

func (s *memoryStore) AssignInterviewer(_ context.Context, id, interviewerID, interviewerName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	iv, ok := s.byID[id]
	if !ok || iv.InterviewerID != nil {
		return false, nil
	}
	iv.InterviewerID = &interviewerID
	iv.InterviewerName = &interviewerName
	iv.UpdatedAt = time.Now()
	return true, nil
}

func (s *memoryStore) Transition(_ context.Context, id string, from []models.Status, to models.Status, set TransitionSet) (*models.Interview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	iv, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	allowed := false
	for _, st := range from {
		if iv.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, nil
	}
	iv.Status = to
	if set.StartedAt != nil {
		iv.StartedAt = set.StartedAt
	}
	if set.CompletedAt != nil {
		iv.CompletedAt = set.CompletedAt
	}
	if set.Score != nil {
		iv.Score = set.Score
	}
	if set.Feedback != nil {
		iv.Feedback = set.Feedback
	}
	iv.UpdatedAt = time.Now()
	return clone(iv), nil
}

func (s *memoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	iv, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	delete(s.byRoom, iv.RoomID)
	delete(s.byID, id)
	return true, nil
}

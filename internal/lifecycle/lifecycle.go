// Package lifecycle owns the interview status state machine and the
// authorization rules for who may cause which transition.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"interview/internal/events"
	"interview/internal/ident"
	"interview/internal/models"
	"interview/internal/store"
)

type Service struct {
	store store.Store
	pub   events.Publisher
	now   func() time.Time
}

func New(st store.Store, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Service{store: st, pub: pub, now: time.Now}
}

// Create registers a new interview owned by the acting candidate. The room id
// is assigned here and never changes.
func (s *Service) Create(ctx context.Context, actor models.User, req models.CreateInterviewRequest) (*models.Interview, error) {
	if actor.Role != models.RoleCandidate {
		return nil, fmt.Errorf("%w: only candidates may create interviews", ErrAccessDenied)
	}
	if !req.ScheduledAt.After(s.now()) {
		return nil, ErrSchedulingConflict
	}
	if req.Duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrValidation)
	}

	now := s.now()
	iv := &models.Interview{
		ID:            ident.InterviewID(),
		RoomID:        ident.RoomID(),
		CandidateID:   actor.ID,
		CandidateName: actor.Name,
		Status:        models.StatusScheduled,
		ScheduledAt:   req.ScheduledAt,
		DurationMin:   req.Duration,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, iv); err != nil {
		return nil, err
	}
	s.publish(ctx, events.TypeCreated, iv, actor)
	return iv, nil
}

// Get resolves an interview by id for a participant or admin.
func (s *Service) Get(ctx context.Context, actor models.User, id string) (*models.Interview, error) {
	iv, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if iv == nil {
		return nil, ErrNotFound
	}
	if err := requireParticipant(actor, iv); err != nil {
		return nil, err
	}
	return iv, nil
}

// GetByRoom resolves an interview by its room id. A room that exists but does
// not belong to the caller fails with ErrAccessDenied, not ErrNotFound, so
// clients can tell the two apart.
func (s *Service) GetByRoom(ctx context.Context, actor models.User, roomID string) (*models.Interview, error) {
	iv, err := s.store.GetByRoomID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if iv == nil {
		return nil, ErrNotFound
	}
	if err := requireParticipant(actor, iv); err != nil {
		return nil, err
	}
	return iv, nil
}

// List returns the actor's interviews, or with open=true the unassigned
// SCHEDULED pool (interviewers and admins only).
func (s *Service) List(ctx context.Context, actor models.User, open bool) ([]models.Interview, error) {
	if open {
		if actor.Role != models.RoleInterviewer && actor.Role != models.RoleAdmin {
			return nil, fmt.Errorf("%w: open pool is interviewer-only", ErrAccessDenied)
		}
		return s.store.List(ctx, store.ListFilter{Open: true})
	}
	return s.store.List(ctx, store.ListFilter{ParticipantID: actor.ID})
}

// Accept claims the interviewer slot. The slot is write-once: concurrent
// accepts serialize at the store and exactly one wins.
func (s *Service) Accept(ctx context.Context, actor models.User, id string) (*models.Interview, error) {
	if actor.Role != models.RoleInterviewer {
		return nil, fmt.Errorf("%w: only interviewers may accept", ErrAccessDenied)
	}
	iv, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if iv == nil {
		return nil, ErrNotFound
	}
	if iv.CandidateID == actor.ID {
		return nil, fmt.Errorf("%w: cannot accept own interview", ErrAccessDenied)
	}
	if iv.Status != models.StatusScheduled {
		return nil, ErrInvalidTransition
	}
	if iv.InterviewerID != nil {
		return nil, ErrAlreadyAssigned
	}
	ok, err := s.store.AssignInterviewer(ctx, id, actor.ID, actor.Name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyAssigned
	}
	iv, err = s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if iv == nil {
		return nil, ErrNotFound
	}
	s.publish(ctx, events.TypeAccepted, iv, actor)
	return iv, nil
}

func (s *Service) Start(ctx context.Context, actor models.User, id string) (*models.Interview, error) {
	iv, err := s.loadForTransition(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	updated, err := s.store.Transition(ctx, iv.ID,
		[]models.Status{models.StatusScheduled},
		models.StatusInProgress,
		store.TransitionSet{StartedAt: &now})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrInvalidTransition
	}
	s.publish(ctx, events.TypeStarted, updated, actor)
	return updated, nil
}

// Complete ends the interview. Score and feedback are accepted only from the
// assigned interviewer.
func (s *Service) Complete(ctx context.Context, actor models.User, id string, req models.CompleteInterviewRequest) (*models.Interview, error) {
	iv, err := s.loadForTransition(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	hasOutcome := req.Score != nil || req.Feedback != nil
	isInterviewer := iv.InterviewerID != nil && *iv.InterviewerID == actor.ID
	if hasOutcome && !isInterviewer {
		return nil, fmt.Errorf("%w: only the assigned interviewer may set score or feedback", ErrAccessDenied)
	}
	if req.Score != nil && (*req.Score < 0 || *req.Score > 100) {
		return nil, fmt.Errorf("%w: score must be between 0 and 100", ErrValidation)
	}
	now := s.now()
	updated, err := s.store.Transition(ctx, iv.ID,
		[]models.Status{models.StatusScheduled, models.StatusInProgress},
		models.StatusCompleted,
		store.TransitionSet{CompletedAt: &now, Score: req.Score, Feedback: req.Feedback})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrInvalidTransition
	}
	s.publish(ctx, events.TypeCompleted, updated, actor)
	return updated, nil
}

func (s *Service) Cancel(ctx context.Context, actor models.User, id string) (*models.Interview, error) {
	iv, err := s.loadForTransition(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.store.Transition(ctx, iv.ID,
		[]models.Status{models.StatusScheduled, models.StatusInProgress},
		models.StatusCancelled,
		store.TransitionSet{})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrInvalidTransition
	}
	s.publish(ctx, events.TypeCancelled, updated, actor)
	return updated, nil
}

// Delete removes the record entirely. Not a status transition: any status may
// be deleted, but only by the owning candidate or an admin.
func (s *Service) Delete(ctx context.Context, actor models.User, id string) error {
	iv, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if iv == nil {
		return ErrNotFound
	}
	if actor.Role != models.RoleAdmin && actor.ID != iv.CandidateID {
		return fmt.Errorf("%w: only the owning candidate or an admin may delete", ErrAccessDenied)
	}
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.publish(ctx, events.TypeDeleted, iv, actor)
	return nil
}

// loadForTransition fetches the record and checks the actor is the candidate,
// the assigned interviewer, or an admin.
func (s *Service) loadForTransition(ctx context.Context, actor models.User, id string) (*models.Interview, error) {
	iv, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if iv == nil {
		return nil, ErrNotFound
	}
	if err := requireParticipant(actor, iv); err != nil {
		return nil, err
	}
	return iv, nil
}

func requireParticipant(actor models.User, iv *models.Interview) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if !iv.IsParticipant(actor.ID) {
		return ErrAccessDenied
	}
	return nil
}

func (s *Service) publish(ctx context.Context, eventType string, iv *models.Interview, actor models.User) {
	ev := events.Event{
		Type:        eventType,
		InterviewID: iv.ID,
		RoomID:      iv.RoomID,
		Status:      iv.Status,
		ActorID:     actor.ID,
		At:          s.now(),
	}
	if err := s.pub.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("interviewId", iv.ID).Str("event", eventType).
			Msg("failed to publish lifecycle event")
	}
}

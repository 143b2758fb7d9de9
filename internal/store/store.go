// Package store is the durable record store for interviews. Implementations
// must serialize conditional updates so that racing accepts and transitions
// resolve to exactly one winner.
package store

import (
	"context"
	"time"

	"interview/internal/models"
)

// ListFilter selects which interviews List returns. ParticipantID and Open
// are mutually exclusive.
type ListFilter struct {
	// ParticipantID matches interviews where the user is candidate or interviewer.
	ParticipantID string
	// Open matches SCHEDULED interviews with no interviewer assigned.
	Open bool
}

// TransitionSet carries the outcome fields written alongside a status change.
// Nil fields are left untouched.
type TransitionSet struct {
	StartedAt   *time.Time
	CompletedAt *time.Time
	Score       *int
	Feedback    *string
}

type Store interface {
	Create(ctx context.Context, iv *models.Interview) error
	// GetByID returns (nil, nil) when no record exists.
	GetByID(ctx context.Context, id string) (*models.Interview, error)
	// GetByRoomID returns (nil, nil) when no record exists.
	GetByRoomID(ctx context.Context, roomID string) (*models.Interview, error)
	List(ctx context.Context, f ListFilter) ([]models.Interview, error)
	// AssignInterviewer sets the interviewer only if the slot is still empty.
	// Returns false when another interviewer won the slot first.
	AssignInterviewer(ctx context.Context, id, interviewerID, interviewerName string) (bool, error)
	// Transition moves the record to the target status only if its current
	// status is in from. Returns (nil, nil) when the guard fails.
	Transition(ctx context.Context, id string, from []models.Status, to models.Status, set TransitionSet) (*models.Interview, error)
	Delete(ctx context.Context, id string) (bool, error)
}

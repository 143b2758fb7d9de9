package models

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleCandidate   Role = "candidate"
	RoleInterviewer Role = "interviewer"
	RoleAdmin       Role = "admin"
)

// User is the authenticated actor behind a request, as carried in its token.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

type Status string

const (
	StatusScheduled  Status = "SCHEDULED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// Terminal reports whether no further status transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// UserRef is a reference to a participant that is either unresolved (id only)
// or resolved with a display name. Callers must handle both shapes.
type UserRef struct {
	ID   string  `json:"id"`
	Name *string `json:"name,omitempty"`
}

func UnresolvedUser(id string) UserRef { return UserRef{ID: id} }

func ResolvedUser(id, name string) UserRef { return UserRef{ID: id, Name: &name} }

// Resolve returns the display name if the reference is resolved.
func (r UserRef) Resolve() (string, bool) {
	if r.Name == nil {
		return "", false
	}
	return *r.Name, true
}

// Interview is one live interview record. One row serves the whole lifecycle;
// roomId is the only addressing key the signaling layer ever sees.
type Interview struct {
	ID              string     `db:"id" json:"id"`
	RoomID          string     `db:"room_id" json:"roomId"`
	CandidateID     string     `db:"candidate_id" json:"-"`
	CandidateName   string     `db:"candidate_name" json:"-"`
	InterviewerID   *string    `db:"interviewer_id" json:"-"`
	InterviewerName *string    `db:"interviewer_name" json:"-"`
	Status          Status     `db:"status" json:"status"`
	ScheduledAt     time.Time  `db:"scheduled_at" json:"scheduledAt"`
	DurationMin     int        `db:"duration_min" json:"duration"`
	Score           *int       `db:"score" json:"score,omitempty"`
	Feedback        *string    `db:"feedback" json:"feedback,omitempty"`
	StartedAt       *time.Time `db:"started_at" json:"startedAt,omitempty"`
	CompletedAt     *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

func (iv *Interview) Candidate() UserRef {
	if iv.CandidateName == "" {
		return UnresolvedUser(iv.CandidateID)
	}
	return ResolvedUser(iv.CandidateID, iv.CandidateName)
}

// Interviewer returns the assigned interviewer, if any.
func (iv *Interview) Interviewer() (UserRef, bool) {
	if iv.InterviewerID == nil {
		return UserRef{}, false
	}
	if iv.InterviewerName == nil {
		return UnresolvedUser(*iv.InterviewerID), true
	}
	return ResolvedUser(*iv.InterviewerID, *iv.InterviewerName), true
}

// IsParticipant reports whether the user is the candidate or the assigned
// interviewer of this interview.
func (iv *Interview) IsParticipant(userID string) bool {
	if userID == iv.CandidateID {
		return true
	}
	return iv.InterviewerID != nil && *iv.InterviewerID == userID
}

type CreateInterviewRequest struct {
	ScheduledAt time.Time `json:"scheduledAt"`
	Duration    int       `json:"duration"`
}

type CompleteInterviewRequest struct {
	Score    *int    `json:"score,omitempty"`
	Feedback *string `json:"feedback,omitempty"`
}

/*** Signaling wire frames ***/

type WSFrame struct {
	Type string      `json:"type"` // "join-room","room-users","user-joined","offer","answer","ice-candidate","chat-message","user-left","status","error"
	Data interface{} `json:"data"`
}

type JoinRoom struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// RoomUser is one entry of the membership list sent to a joining connection.
type RoomUser struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId"`
	UserName     string `json:"userName"`
}

// Signal is an inbound offer/answer/ice-candidate addressed to one connection.
// The payload is opaque to the server.
type Signal struct {
	RoomID  string          `json:"roomId"`
	Target  string          `json:"targetConnectionId"`
	Payload json.RawMessage `json:"payload"`
}

// SignalRelay is the relayed form, tagged with the sender's connection id.
type SignalRelay struct {
	ConnectionID string          `json:"connectionId"`
	Payload      json.RawMessage `json:"payload"`
}

type ChatMessage struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

type ChatBroadcast struct {
	Message   string `json:"message"`
	UserName  string `json:"userName"`
	SenderID  string `json:"senderId"`
	Timestamp string `json:"timestamp"`
}

type UserLeft struct {
	ConnectionID string `json:"connectionId"`
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"interview/internal/models"
)

type postgresStore struct {
	db *sqlx.DB
}

// Connect opens the Postgres pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return db, nil
}

func NewPostgres(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) Create(ctx context.Context, iv *models.Interview) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interviews (
			id, room_id, candidate_id, candidate_name, interviewer_id, interviewer_name,
			status, scheduled_at, duration_min, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, iv.ID, iv.RoomID, iv.CandidateID, iv.CandidateName, iv.InterviewerID, iv.InterviewerName,
		iv.Status, iv.ScheduledAt, iv.DurationMin, iv.CreatedAt, iv.UpdatedAt)
	return err
}

func (s *postgresStore) GetByID(ctx context.Context, id string) (*models.Interview, error) {
	var iv models.Interview
	err := s.db.GetContext(ctx, &iv, `SELECT * FROM interviews WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &iv, nil
}

func (s *postgresStore) GetByRoomID(ctx context.Context, roomID string) (*models.Interview, error) {
	var iv models.Interview
	err := s.db.GetContext(ctx, &iv, `SELECT * FROM interviews WHERE room_id = $1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &iv, nil
}

func (s *postgresStore) List(ctx context.Context, f ListFilter) ([]models.Interview, error) {
	ivs := []models.Interview{}
	if f.Open {
		err := s.db.SelectContext(ctx, &ivs, `
			SELECT * FROM interviews
			WHERE status = $1 AND interviewer_id IS NULL
			ORDER BY scheduled_at ASC
		`, models.StatusScheduled)
		return ivs, err
	}
	err := s.db.SelectContext(ctx, &ivs, `
		SELECT * FROM interviews
		WHERE candidate_id = $1 OR interviewer_id = $1
		ORDER BY scheduled_at DESC
	`, f.ParticipantID)
	return ivs, err
}

func (s *postgresStore) AssignInterviewer(ctx context.Context, id, interviewerID, interviewerName string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE interviews
		SET interviewer_id = $2, interviewer_name = $3, updated_at = NOW()
		WHERE id = $1 AND interviewer_id IS NULL
	`, id, interviewerID, interviewerName)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *postgresStore) Transition(ctx context.Context, id string, from []models.Status, to models.Status, set TransitionSet) (*models.Interview, error) {
	fromStrs := make([]string, len(from))
	for i, st := range from {
		fromStrs[i] = string(st)
	}
	var iv models.Interview
	err := s.db.GetContext(ctx, &iv, `
		UPDATE interviews
		SET status = $2,
		    started_at = COALESCE($3, started_at),
		    completed_at = COALESCE($4, completed_at),
		    score = COALESCE($5, score),
		    feedback = COALESCE($6, feedback),
		    updated_at = NOW()
		WHERE id = $1 AND status = ANY($7)
		RETURNING *
	`, id, to, set.StartedAt, set.CompletedAt, set.Score, set.Feedback, pq.Array(fromStrs))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &iv, nil
}

func (s *postgresStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM interviews WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/crowdcast/internal/domain"
)

// QuestionRepository implements domain.QuestionRepository backed by PostgreSQL.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

func (r *QuestionRepository) Create(ctx context.Context, roomID uuid.UUID, title, body string) (*domain.Question, error) {
	query := `
		INSERT INTO questions (room_id, title, body)
		VALUES ($1, $2, $3)
		RETURNING id, room_id, title, body, estimate, resolved, created_at
	`

	var q domain.Question
	err := r.pool.QueryRow(ctx, query, roomID, title, body).
		Scan(&q.ID, &q.RoomID, &q.Title, &q.Body, &q.Estimate, &q.Resolved, &q.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("create question: %w", err)
	}

	return &q, nil
}

func (r *QuestionRepository) GetByID(ctx context.Context, questionID uuid.UUID) (*domain.Question, error) {
	query := `
		SELECT id, room_id, title, body, estimate, resolved, created_at
		FROM questions WHERE id = $1
	`

	var q domain.Question
	err := r.pool.QueryRow(ctx, query, questionID).
		Scan(&q.ID, &q.RoomID, &q.Title, &q.Body, &q.Estimate, &q.Resolved, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrQuestionNotFound
		}
		return nil, fmt.Errorf("get question by id: %w", err)
	}

	return &q, nil
}

func (r *QuestionRepository) ListByRoom(ctx context.Context, roomID, viewerID uuid.UUID) ([]domain.QuestionSummary, error) {
	query := `
		SELECT q.id, q.room_id, q.title, q.body, q.estimate, q.resolved, q.created_at,
		       COUNT(v.id) AS vote_count,
		       BOOL_OR(v.voter_id = $2) AS voted
		FROM questions q
		LEFT JOIN votes v ON v.question_id = q.id
		WHERE q.room_id = $1
		GROUP BY q.id
		ORDER BY q.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, roomID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list questions by room: %w", err)
	}
	defer rows.Close()

	summaries := make([]domain.QuestionSummary, 0)
	for rows.Next() {
		var s domain.QuestionSummary
		var voted *bool // BOOL_OR over zero vote rows is NULL
		err := rows.Scan(&s.ID, &s.RoomID, &s.Title, &s.Body, &s.Estimate, &s.Resolved, &s.CreatedAt,
			&s.VoteCount, &voted)
		if err != nil {
			return nil, fmt.Errorf("scan question summary: %w", err)
		}
		s.Voted = voted != nil && *voted
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

func (r *QuestionRepository) CloseWithEstimate(ctx context.Context, questionID uuid.UUID, estimate float64) error {
	// Compare-and-set: only one closer wins, any later attempt sees zero rows.
	query := `UPDATE questions SET estimate = $1, resolved = TRUE WHERE id = $2 AND resolved = FALSE`

	tag, err := r.pool.Exec(ctx, query, estimate, questionID)
	if err != nil {
		return fmt.Errorf("close question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish missing question from already-closed question
		if _, err := r.GetByID(ctx, questionID); err != nil {
			return err
		}
		return domain.ErrAlreadyResolved
	}

	return nil
}

func (r *QuestionRepository) Delete(ctx context.Context, questionID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, questionID)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}

	return nil
}

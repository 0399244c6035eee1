package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/crowdcast/internal/domain"
)

// VoteRepository implements domain.VoteRepository backed by PostgreSQL.
type VoteRepository struct {
	pool *pgxpool.Pool
}

func NewVoteRepository(pool *pgxpool.Pool) *VoteRepository {
	return &VoteRepository{pool: pool}
}

func (r *VoteRepository) Append(ctx context.Context, questionID, voterID uuid.UUID, estimate float64) error {
	query := `INSERT INTO votes (question_id, voter_id, estimate) VALUES ($1, $2, $3)`

	if _, err := r.pool.Exec(ctx, query, questionID, voterID, estimate); err != nil {
		return mapVoteInsertError(err)
	}
	return nil
}

// Replace records a vote, overwriting the voter's earlier vote if one exists.
// Update-then-insert inside a transaction; the schema has no uniqueness
// constraint on (question_id, voter_id) so the append policy stays possible.
func (r *VoteRepository) Replace(ctx context.Context, questionID, voterID uuid.UUID, estimate float64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin vote transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	updateQuery := `UPDATE votes SET estimate = $1 WHERE question_id = $2 AND voter_id = $3`
	tag, err := tx.Exec(ctx, updateQuery, estimate, questionID, voterID)
	if err != nil {
		return fmt.Errorf("update vote: %w", err)
	}

	if tag.RowsAffected() == 0 {
		insertQuery := `INSERT INTO votes (question_id, voter_id, estimate) VALUES ($1, $2, $3)`
		if _, err := tx.Exec(ctx, insertQuery, questionID, voterID, estimate); err != nil {
			return mapVoteInsertError(err)
		}
	}

	return tx.Commit(ctx)
}

func (r *VoteRepository) Count(ctx context.Context, questionID uuid.UUID) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM votes WHERE question_id = $1`, questionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return count, nil
}

func (r *VoteRepository) ListEstimates(ctx context.Context, questionID uuid.UUID) ([]float64, error) {
	rows, err := r.pool.Query(ctx, `SELECT estimate FROM votes WHERE question_id = $1`, questionID)
	if err != nil {
		return nil, fmt.Errorf("list vote estimates: %w", err)
	}
	defer rows.Close()

	estimates := make([]float64, 0)
	for rows.Next() {
		var e float64
		if err := rows.Scan(&e); err != nil {
			return nil, fmt.Errorf("scan estimate: %w", err)
		}
		estimates = append(estimates, e)
	}

	return estimates, rows.Err()
}

func mapVoteInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return domain.ErrQuestionNotFound
	}
	return fmt.Errorf("insert vote: %w", err)
}

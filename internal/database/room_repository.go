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

// RoomRepository implements domain.RoomRepository backed by PostgreSQL.
type RoomRepository struct {
	pool *pgxpool.Pool
}

func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

func (r *RoomRepository) Create(ctx context.Context, code string, ownerID uuid.UUID) (*domain.Room, error) {
	query := `
		INSERT INTO rooms (code, owner_id)
		VALUES ($1, $2)
		RETURNING id, code, owner_id, active, created_at
	`

	var room domain.Room
	err := r.pool.QueryRow(ctx, query, code, ownerID).
		Scan(&room.ID, &room.Code, &room.OwnerID, &room.Active, &room.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrDuplicateCode
		}
		return nil, fmt.Errorf("create room: %w", err)
	}

	return &room, nil
}

func (r *RoomRepository) GetByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	query := `SELECT id, code, owner_id, active, created_at FROM rooms WHERE id = $1`
	return r.scanOne(ctx, query, roomID)
}

func (r *RoomRepository) GetByCode(ctx context.Context, code string) (*domain.Room, error) {
	query := `SELECT id, code, owner_id, active, created_at FROM rooms WHERE code = $1`
	return r.scanOne(ctx, query, code)
}

func (r *RoomRepository) scanOne(ctx context.Context, query string, arg any) (*domain.Room, error) {
	var room domain.Room
	err := r.pool.QueryRow(ctx, query, arg).
		Scan(&room.ID, &room.Code, &room.OwnerID, &room.Active, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	return &room, nil
}

func (r *RoomRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Room, error) {
	query := `
		SELECT id, code, owner_id, active, created_at
		FROM rooms
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list rooms by owner: %w", err)
	}
	defer rows.Close()

	rooms := make([]domain.Room, 0)
	for rows.Next() {
		var room domain.Room
		if err := rows.Scan(&room.ID, &room.Code, &room.OwnerID, &room.Active, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

func (r *RoomRepository) SetActive(ctx context.Context, roomID, ownerID uuid.UUID, active bool) error {
	query := `UPDATE rooms SET active = $1 WHERE id = $2 AND owner_id = $3`

	tag, err := r.pool.Exec(ctx, query, active, roomID, ownerID)
	if err != nil {
		return fmt.Errorf("set room active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRoomNotFound
	}

	return nil
}

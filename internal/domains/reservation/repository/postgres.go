package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	bookModel "library-backend/internal/domains/book/model"
	memberModel "library-backend/internal/domains/member/model"
	"library-backend/internal/domains/reservation/model"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{pool: pool}
}

const reservationColumns = `id, book_id, member_id, status, created_at, updated_at`

func (r *postgresRepository) Create(ctx context.Context, res *model.Reservation) error {
	query := `
		INSERT INTO reservations (` + reservationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		res.ID, res.BookID, res.MemberID, string(res.Status), res.CreatedAt, res.UpdatedAt,
	)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return model.NewDuplicatePendingError(res.BookID, res.MemberID)
		case "23503":
			if strings.Contains(pgErr.ConstraintName, "member") {
				return memberModel.NewMemberNotFoundError("id=" + res.MemberID.String())
			}
			return bookModel.NewBookNotFoundError(res.BookID.String())
		}
	}
	return fmt.Errorf("insert reservation: %w", err)
}

func (r *postgresRepository) ExistsPending(ctx context.Context, bookID, memberID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM reservations
			WHERE book_id = $1 AND member_id = $2 AND status = 'pending'
		)
	`, bookID, memberID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pending reservation: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) CountPendingByBook(ctx context.Context, bookID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reservations WHERE book_id = $1 AND status = 'pending'`, bookID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending by book: %w", err)
	}
	return n, nil
}

func (r *postgresRepository) CountPendingByMember(ctx context.Context, memberID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reservations WHERE member_id = $1 AND status = 'pending'`, memberID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending by member: %w", err)
	}
	return n, nil
}

func (r *postgresRepository) ListByMember(ctx context.Context, memberID uuid.UUID) ([]model.Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE member_id = $1
		ORDER BY created_at DESC
	`, memberID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	list := make([]model.Reservation, 0)
	for rows.Next() {
		var res model.Reservation
		var status string
		if err := rows.Scan(&res.ID, &res.BookID, &res.MemberID, &status, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		res.Status = model.Status(status)
		list = append(list, res)
	}
	return list, rows.Err()
}

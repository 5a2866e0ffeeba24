package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"library-backend/internal/domains/member/model"
	"library-backend/pkg/database"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{pool: pool}
}

const memberColumns = `id, name, email, phone, address, membership_date, created_at, updated_at`

func scanMember(row pgx.Row) (*model.Member, error) {
	var m model.Member
	if err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Email,
		&m.Phone,
		&m.Address,
		&m.MembershipDate,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// InsertMember writes m using q, so account registration can create the
// member inside its own transaction.
func InsertMember(ctx context.Context, q database.Querier, m *model.Member) error {
	query := `
		INSERT INTO members (` + memberColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := q.Exec(ctx, query,
		m.ID, m.Name, m.Email, m.Phone, m.Address, m.MembershipDate, m.CreatedAt, m.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: email=%s", model.ErrEmailAlreadyExists, m.Email)
	}
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// FindMemberByEmail looks up a member using q; returns ErrMemberNotFound on a miss
func FindMemberByEmail(ctx context.Context, q database.Querier, email string) (*model.Member, error) {
	m, err := scanMember(q.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NewMemberNotFoundError("email=" + email)
	}
	if err != nil {
		return nil, fmt.Errorf("get member by email: %w", err)
	}
	return m, nil
}

func (r *postgresRepository) Create(ctx context.Context, m *model.Member) error {
	return InsertMember(ctx, r.pool, m)
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Member, error) {
	m, err := scanMember(r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NewMemberNotFoundError("id=" + id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*model.Member, error) {
	return FindMemberByEmail(ctx, r.pool, email)
}

func (r *postgresRepository) List(ctx context.Context) ([]model.Member, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+memberColumns+` FROM members ORDER BY membership_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := make([]model.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, patch model.Patch) (*model.Member, error) {
	return database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) (*model.Member, error) {
		current, err := scanMember(tx.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.NewMemberNotFoundError("id=" + id.String())
		}
		if err != nil {
			return nil, fmt.Errorf("lock member: %w", err)
		}

		var now = current.UpdatedAt
		if err := tx.QueryRow(ctx, `SELECT NOW()`).Scan(&now); err != nil {
			return nil, fmt.Errorf("read clock: %w", err)
		}
		updated := patch.Apply(*current, now)

		_, err = tx.Exec(ctx, `
			UPDATE members
			SET name = $2, email = $3, phone = $4, address = $5, updated_at = $6
			WHERE id = $1
		`, id, updated.Name, updated.Email, updated.Phone, updated.Address, updated.UpdatedAt)
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: email=%s", model.ErrEmailAlreadyExists, updated.Email)
		}
		if err != nil {
			return nil, fmt.Errorf("update member: %w", err)
		}
		return &updated, nil
	})
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		var locked uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM members WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return model.NewMemberNotFoundError("id=" + id.String())
		}
		if err != nil {
			return fmt.Errorf("lock member: %w", err)
		}

		var open int
		err = tx.QueryRow(ctx, `
			SELECT
				(SELECT COUNT(*) FROM issue_records WHERE member_id = $1 AND status = 'issued') +
				(SELECT COUNT(*) FROM reservations WHERE member_id = $1 AND status = 'pending')
		`, id).Scan(&open)
		if err != nil {
			return fmt.Errorf("count open references: %w", err)
		}
		if open > 0 {
			return fmt.Errorf("%w: id=%s open=%d", model.ErrMemberHasOpenReferences, id, open)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM members WHERE id = $1`, id); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return fmt.Errorf("%w: id=%s", model.ErrMemberHasHistory, id)
			}
			return fmt.Errorf("delete member: %w", err)
		}
		return nil
	})
}

func (r *postgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM members`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return n, nil
}

func (r *postgresRepository) NamesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id, name FROM members WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("member names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"library-backend/internal/domains/account/model"
	memberModel "library-backend/internal/domains/member/model"
	memberRepo "library-backend/internal/domains/member/repository"
	"library-backend/internal/shared/identity"
	"library-backend/pkg/database"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{pool: pool}
}

const accountColumns = `id, name, email, password_hash, role, member_id, created_at, updated_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	var role string
	if err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Email,
		&a.PasswordHash,
		&role,
		&a.MemberID,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Role = identity.Role(role)
	return &a, nil
}

func insertAccount(ctx context.Context, q database.Querier, a *model.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := q.Exec(ctx, query,
		a.ID, a.Name, a.Email, a.PasswordHash, string(a.Role), a.MemberID, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return fmt.Errorf("%w: email=%s", model.ErrEmailAlreadyExists, a.Email)
			case "23503":
				return memberModel.NewMemberNotFoundError("id=" + a.MemberID.String())
			}
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *postgresRepository) Create(ctx context.Context, a *model.Account) error {
	return insertAccount(ctx, r.pool, a)
}

func (r *postgresRepository) CreateWithMember(ctx context.Context, a *model.Account, m *memberModel.Member) (*memberModel.Member, error) {
	return database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) (*memberModel.Member, error) {
		linked, err := memberRepo.FindMemberByEmail(ctx, tx, m.Email)
		switch {
		case errors.Is(err, memberModel.ErrMemberNotFound):
			if err := memberRepo.InsertMember(ctx, tx, m); err != nil {
				return nil, err
			}
			linked = m
		case err != nil:
			return nil, err
		}

		a.MemberID = &linked.ID
		if err := insertAccount(ctx, tx, a); err != nil {
			return nil, err
		}
		return linked, nil
	})
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NewAccountNotFoundError("id=" + id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NewAccountNotFoundError("email=" + email)
	}
	if err != nil {
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return a, nil
}

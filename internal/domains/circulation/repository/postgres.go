package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	bookModel "library-backend/internal/domains/book/model"
	"library-backend/internal/domains/circulation/model"
	memberModel "library-backend/internal/domains/member/model"
)

type postgresLedger struct {
	pool *pgxpool.Pool
}

func NewPostgresLedger(pool *pgxpool.Pool) LedgerInterface {
	return &postgresLedger{pool: pool}
}

const recordColumns = `id, book_id, member_id, issue_date, due_date, return_date, status, fine_amount, created_at, updated_at`

func scanRecord(row pgx.Row) (*model.IssueRecord, error) {
	var rec model.IssueRecord
	var status string
	if err := row.Scan(
		&rec.ID,
		&rec.BookID,
		&rec.MemberID,
		&rec.IssueDate,
		&rec.DueDate,
		&rec.ReturnDate,
		&status,
		&rec.FineAmount,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.Status = model.Status(status)
	return &rec, nil
}

func (r *postgresLedger) queryRecords(ctx context.Context, query string, args ...interface{}) ([]model.IssueRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]model.IssueRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (r *postgresLedger) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *postgresLedger) Create(ctx context.Context, rec *model.IssueRecord) error {
	query := `
		INSERT INTO issue_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.BookID, rec.MemberID, rec.IssueDate, rec.DueDate,
		rec.ReturnDate, string(rec.Status), rec.FineAmount, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			if strings.Contains(pgErr.ConstraintName, "member") {
				return memberModel.NewMemberNotFoundError("id=" + rec.MemberID.String())
			}
			return bookModel.NewBookNotFoundError(rec.BookID.String())
		}
		return fmt.Errorf("insert issue record: %w", err)
	}
	return nil
}

func (r *postgresLedger) GetByID(ctx context.Context, id uuid.UUID) (*model.IssueRecord, error) {
	rec, err := scanRecord(r.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM issue_records WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NewIssueNotFoundError(id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get issue record: %w", err)
	}
	return rec, nil
}

// MarkReturned only matches status='issued', so of two racing returns
// exactly one updates a row.
func (r *postgresLedger) MarkReturned(ctx context.Context, id uuid.UUID, returnedAt time.Time, fine int) (*model.IssueRecord, error) {
	query := `
		UPDATE issue_records
		SET status = 'returned', return_date = $2, fine_amount = $3, updated_at = $2
		WHERE id = $1 AND status = 'issued'
		RETURNING ` + recordColumns

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id, returnedAt, fine))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, model.NewAlreadyReturnedError(id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("mark returned: %w", err)
	}
	return rec, nil
}

func (r *postgresLedger) CountOpenByBook(ctx context.Context, bookID uuid.UUID) (int, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM issue_records WHERE book_id = $1 AND status = 'issued'`, bookID)
	if err != nil {
		return 0, fmt.Errorf("count open by book: %w", err)
	}
	return n, nil
}

func (r *postgresLedger) CountOpenByMember(ctx context.Context, memberID uuid.UUID) (int, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM issue_records WHERE member_id = $1 AND status = 'issued'`, memberID)
	if err != nil {
		return 0, fmt.Errorf("count open by member: %w", err)
	}
	return n, nil
}

func (r *postgresLedger) CountOpen(ctx context.Context) (int, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM issue_records WHERE status = 'issued'`)
	if err != nil {
		return 0, fmt.Errorf("count open: %w", err)
	}
	return n, nil
}

func (r *postgresLedger) CountOverdue(ctx context.Context, now time.Time) (int, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM issue_records WHERE status = 'issued' AND due_date < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("count overdue: %w", err)
	}
	return n, nil
}

func (r *postgresLedger) ListOverdue(ctx context.Context, now time.Time) ([]model.IssueRecord, error) {
	records, err := r.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM issue_records
		WHERE status = 'issued' AND due_date < $1
		ORDER BY due_date ASC
	`, now)
	if err != nil {
		return nil, fmt.Errorf("list overdue: %w", err)
	}
	return records, nil
}

func (r *postgresLedger) ListRecent(ctx context.Context, limit int) ([]model.IssueRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM issue_records ORDER BY created_at DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	records, err := r.queryRecords(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	return records, nil
}

func (r *postgresLedger) ListByMember(ctx context.Context, memberID uuid.UUID) ([]model.IssueRecord, error) {
	records, err := r.queryRecords(ctx, `
		SELECT `+recordColumns+` FROM issue_records
		WHERE member_id = $1
		ORDER BY issue_date DESC
	`, memberID)
	if err != nil {
		return nil, fmt.Errorf("list by member: %w", err)
	}
	return records, nil
}

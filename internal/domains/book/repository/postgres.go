package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"library-backend/internal/domains/book/model"
	"library-backend/pkg/database"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{pool: pool}
}

const bookColumns = `id, title, author, category, COALESCE(isbn, ''), total_quantity, available_quantity, added_at, updated_at`

func scanBook(row pgx.Row) (*model.Book, error) {
	var b model.Book
	err := row.Scan(
		&b.ID,
		&b.Title,
		&b.Author,
		&b.Category,
		&b.ISBN,
		&b.TotalQuantity,
		&b.AvailableQuantity,
		&b.AddedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// nullableISBN stores an empty ISBN as NULL so the unique index ignores it
func nullableISBN(isbn string) *string {
	if isbn == "" {
		return nil
	}
	return &isbn
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return model.ErrISBNAlreadyExists
		case "23514":
			return model.ErrInvalidQuantity
		}
	}
	return err
}

// ========================= CRUD =========================

func (r *postgresRepository) Create(ctx context.Context, b *model.Book) error {
	query := `
		INSERT INTO books (id, title, author, category, isbn, total_quantity, available_quantity, added_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		b.ID, b.Title, b.Author, b.Category, nullableISBN(b.ISBN),
		b.TotalQuantity, b.AvailableQuantity, b.AddedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert book: %w", mapWriteError(err))
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	b, err := scanBook(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NewBookNotFoundError(id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

func (r *postgresRepository) List(ctx context.Context, filter model.ListFilter) ([]model.Book, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR author ILIKE $%d OR isbn ILIKE $%d)", len(args), len(args), len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}

	query := `SELECT ` + bookColumns + ` FROM books`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY added_at DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	books := make([]model.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return books, nil
}

// Update locks the row, applies the patch in Go and writes it back, so the
// available recompute sees the same row state as the guard.
func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, patch model.Patch) (*model.Book, error) {
	return database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) (*model.Book, error) {
		current, err := scanBook(tx.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.NewBookNotFoundError(id.String())
		}
		if err != nil {
			return nil, fmt.Errorf("lock book: %w", err)
		}

		var now = current.UpdatedAt
		if err := tx.QueryRow(ctx, `SELECT NOW()`).Scan(&now); err != nil {
			return nil, fmt.Errorf("read clock: %w", err)
		}

		updated, err := patch.Apply(*current, now)
		if err != nil {
			return nil, err
		}

		query := `
			UPDATE books
			SET title = $2, author = $3, category = $4, isbn = $5,
			    total_quantity = $6, available_quantity = $7, updated_at = $8
			WHERE id = $1
		`
		_, err = tx.Exec(ctx, query,
			id, updated.Title, updated.Author, updated.Category, nullableISBN(updated.ISBN),
			updated.TotalQuantity, updated.AvailableQuantity, updated.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("update book: %w", mapWriteError(err))
		}
		return &updated, nil
	})
}

// Delete re-checks open references under a row lock. Inserts into
// issue_records/reservations take a key-share lock on the book row, so no
// new reference can appear between the check and the delete.
func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		var locked uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM books WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return model.NewBookNotFoundError(id.String())
		}
		if err != nil {
			return fmt.Errorf("lock book: %w", err)
		}

		var open int
		err = tx.QueryRow(ctx, `
			SELECT
				(SELECT COUNT(*) FROM issue_records WHERE book_id = $1 AND status = 'issued') +
				(SELECT COUNT(*) FROM reservations WHERE book_id = $1 AND status = 'pending')
		`, id).Scan(&open)
		if err != nil {
			return fmt.Errorf("count open references: %w", err)
		}
		if open > 0 {
			return fmt.Errorf("%w: id=%s open=%d", model.ErrBookHasOpenReferences, id, open)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM books WHERE id = $1`, id); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return fmt.Errorf("%w: id=%s", model.ErrBookHasHistory, id)
			}
			return fmt.Errorf("delete book: %w", err)
		}
		return nil
	})
}

// ========================= STOCK =========================

func (r *postgresRepository) Decrement(ctx context.Context, id uuid.UUID) (*model.Book, error) {
	query := `
		UPDATE books
		SET available_quantity = available_quantity - 1, updated_at = NOW()
		WHERE id = $1 AND available_quantity >= 1
		RETURNING ` + bookColumns

	b, err := scanBook(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		// either missing or exhausted
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, model.NewNoCopiesAvailableError(id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("decrement book: %w", err)
	}
	return b, nil
}

func (r *postgresRepository) Increment(ctx context.Context, id uuid.UUID) (*model.Book, error) {
	query := `
		UPDATE books
		SET available_quantity = LEAST(available_quantity + 1, total_quantity), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + bookColumns

	b, err := scanBook(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NewBookNotFoundError(id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("increment book: %w", err)
	}
	return b, nil
}

// ========================= AGGREGATES =========================

func (r *postgresRepository) Totals(ctx context.Context) (*model.Totals, error) {
	var t model.Totals
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(available_quantity), 0) FROM books`).
		Scan(&t.Titles, &t.AvailableCount)
	if err != nil {
		return nil, fmt.Errorf("book totals: %w", err)
	}
	return &t, nil
}

func (r *postgresRepository) TitlesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	titles := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return titles, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id, title FROM books WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("book titles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles[id] = title
	}
	return titles, rows.Err()
}

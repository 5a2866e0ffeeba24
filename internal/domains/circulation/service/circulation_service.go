package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	bookModel "library-backend/internal/domains/book/model"
	"library-backend/internal/domains/circulation/model"
	"library-backend/internal/domains/circulation/repository"
	memberModel "library-backend/internal/domains/member/model"
	resModel "library-backend/internal/domains/reservation/model"
	resRepo "library-backend/internal/domains/reservation/repository"
	"library-backend/internal/shared/apperror"
	"library-backend/internal/shared/identity"
	"library-backend/pkg/lock"
	"library-backend/pkg/logger"
)

const (
	DefaultLoanPeriod  = 14 * 24 * time.Hour
	DefaultLockTimeout = 5 * time.Second
	DefaultRecentLimit = 5
)

type Config struct {
	LoanPeriod  time.Duration // self-checkout due date offset
	LockTimeout time.Duration // bound on waiting for book/member locks
	RecentLimit int           // dashboard recent transactions
}

func (c Config) withDefaults() Config {
	if c.LoanPeriod <= 0 {
		c.LoanPeriod = DefaultLoanPeriod
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = DefaultLockTimeout
	}
	if c.RecentLimit <= 0 {
		c.RecentLimit = DefaultRecentLimit
	}
	return c
}

type CirculationService struct {
	books        Inventory
	members      MemberDirectory
	resolver     MemberResolver
	ledger       repository.LedgerInterface
	reservations resRepo.RepositoryInterface
	locker       lock.Locker
	publisher    AvailabilityPublisher
	cfg          Config
	now          func() time.Time
}

type Option func(*CirculationService)

func WithPublisher(p AvailabilityPublisher) Option {
	return func(s *CirculationService) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *CirculationService) { s.now = now }
}

func NewService(
	books Inventory,
	members MemberDirectory,
	resolver MemberResolver,
	ledger repository.LedgerInterface,
	reservations resRepo.RepositoryInterface,
	locker lock.Locker,
	cfg Config,
	opts ...Option,
) *CirculationService {
	s := &CirculationService{
		books:        books,
		members:      members,
		resolver:     resolver,
		ledger:       ledger,
		reservations: reservations,
		locker:       locker,
		cfg:          cfg.withDefaults(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ServiceInterface = (*CirculationService)(nil)

// ========================================
// ISSUE
// ========================================

func (s *CirculationService) Issue(ctx context.Context, req model.IssueRequest) (*model.IssueRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.Invalid(err)
	}
	memberID := func(context.Context) (uuid.UUID, error) { return req.MemberID, nil }
	dueAt := func(now time.Time) (time.Time, error) {
		if !req.DueDate.After(now) {
			return time.Time{}, fmt.Errorf("%w: due=%s", model.ErrInvalidDueDate, req.DueDate.Format(time.RFC3339))
		}
		return req.DueDate.UTC(), nil
	}
	return s.checkout(ctx, req.BookID, memberID, dueAt, "issue")
}

func (s *CirculationService) SelfCheckout(ctx context.Context, req model.SelfCheckoutRequest) (*model.IssueRecord, error) {
	if req.Identity.IsZero() {
		return nil, model.ErrUnauthorized
	}
	if req.BookID == uuid.Nil {
		return nil, apperror.Invalid(errors.New("book_id: cannot be blank"))
	}

	memberID := func(ctx context.Context) (uuid.UUID, error) {
		m, err := s.resolver.Resolve(ctx, req.Identity)
		if err != nil {
			return uuid.Nil, err
		}
		return m.ID, nil
	}
	loan := s.cfg.LoanPeriod
	dueAt := func(now time.Time) (time.Time, error) { return now.Add(loan), nil }
	return s.checkout(ctx, req.BookID, memberID, dueAt, "self_checkout")
}

// checkout is shared by Issue and SelfCheckout. Book checks run before the
// member is looked at, and the due date is judged only once both exist. The
// ledger insert comes after the inventory debit and is compensated by an
// Increment when it fails.
func (s *CirculationService) checkout(
	ctx context.Context,
	bookID uuid.UUID,
	memberOf func(context.Context) (uuid.UUID, error),
	dueAt func(now time.Time) (time.Time, error),
	source string,
) (*model.IssueRecord, error) {
	unlockBook, err := s.acquire(ctx, lock.BookKey(bookID.String()))
	if err != nil {
		return nil, err
	}
	defer unlockBook()

	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.AvailableQuantity < 1 {
		return nil, bookModel.NewNoCopiesAvailableError(bookID.String())
	}

	memberID, err := memberOf(ctx)
	if err != nil {
		return nil, err
	}
	unlockMember, err := s.acquire(ctx, lock.MemberKey(memberID.String()))
	if err != nil {
		return nil, err
	}
	defer unlockMember()

	if err := s.memberExists(ctx, memberID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	due, err := dueAt(now)
	if err != nil {
		return nil, err
	}

	if _, err := s.books.Decrement(ctx, bookID); err != nil {
		return nil, err
	}

	rec := model.NewIssueRecord(bookID, memberID, due, now)
	if err := s.ledger.Create(ctx, rec); err != nil {
		if _, cerr := s.books.Increment(ctx, bookID); cerr != nil {
			logger.ErrorWithFields("compensating increment failed", cerr, map[string]interface{}{
				"book_id": bookID.String(),
				"source":  source,
			})
		}
		return nil, apperror.Internal("ISSUE_FAILED", "could not record issue", err)
	}

	s.publish(ctx, bookID, source)
	logger.Info("book issued", map[string]interface{}{
		"issue_id":  rec.ID.String(),
		"book_id":   bookID.String(),
		"member_id": memberID.String(),
		"due_date":  rec.DueDate,
		"source":    source,
	})
	return rec, nil
}

// ========================================
// RETURN
// ========================================

func (s *CirculationService) Return(ctx context.Context, req model.ReturnRequest) (*model.ReturnResult, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.Invalid(err)
	}

	rec, err := s.ledger.GetByID(ctx, req.IssueID)
	if err != nil {
		return nil, err
	}
	return s.returnRecord(ctx, rec, "return")
}

// SelfReturn fails closed: a caller that cannot be resolved to a member is
// forbidden, and a storage failure during resolution is Internal.
func (s *CirculationService) SelfReturn(ctx context.Context, req model.SelfReturnRequest) (*model.ReturnResult, error) {
	if req.Identity.IsZero() {
		return nil, model.ErrUnauthorized
	}
	if req.IssueID == uuid.Nil {
		return nil, apperror.Invalid(errors.New("issue_id: cannot be blank"))
	}

	rec, err := s.ledger.GetByID(ctx, req.IssueID)
	if err != nil {
		return nil, err
	}

	caller, err := s.resolver.Resolve(ctx, req.Identity)
	switch {
	case errors.Is(err, memberModel.ErrMemberNotFound):
		return nil, fmt.Errorf("%w: caller has no member record", model.ErrForbidden)
	case err != nil:
		return nil, apperror.Internal("MEMBER_LOOKUP_FAILED", "could not verify ownership", err)
	}
	if rec.MemberID != caller.ID {
		return nil, fmt.Errorf("%w: issue=%s", model.ErrForbidden, rec.ID)
	}

	return s.returnRecord(ctx, rec, "self_return")
}

// returnRecord credits inventory before closing the ledger entry, so
// Total - Available never exceeds the open records for the book.
func (s *CirculationService) returnRecord(ctx context.Context, rec *model.IssueRecord, source string) (*model.ReturnResult, error) {
	if !rec.IsOpen() {
		return nil, model.NewAlreadyReturnedError(rec.ID.String())
	}

	unlock, err := s.acquire(ctx, lock.BookKey(rec.BookID.String()))
	if err != nil {
		return nil, err
	}
	defer unlock()

	// re-read under the lock; a concurrent return may have won
	rec, err = s.ledger.GetByID(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	if !rec.IsOpen() {
		return nil, model.NewAlreadyReturnedError(rec.ID.String())
	}

	incremented, err := s.creditInventory(ctx, rec)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	fine := model.ComputeFine(rec.DueDate, now)
	updated, err := s.ledger.MarkReturned(ctx, rec.ID, now, fine)
	if err != nil {
		if incremented {
			if _, cerr := s.books.Decrement(ctx, rec.BookID); cerr != nil {
				logger.ErrorWithFields("compensating decrement failed", cerr, map[string]interface{}{
					"book_id":  rec.BookID.String(),
					"issue_id": rec.ID.String(),
				})
			}
		}
		return nil, err
	}

	if incremented {
		s.publish(ctx, rec.BookID, source)
	}
	logger.Info("book returned", map[string]interface{}{
		"issue_id": rec.ID.String(),
		"book_id":  rec.BookID.String(),
		"fine":     fine,
		"source":   source,
	})
	return &model.ReturnResult{Record: updated, Fine: fine}, nil
}

// creditInventory gives the copy back. A missing book is an inventory
// desync and does not block the return. Reports whether the counter moved.
func (s *CirculationService) creditInventory(ctx context.Context, rec *model.IssueRecord) (bool, error) {
	before, err := s.books.GetByID(ctx, rec.BookID)
	if err == nil {
		var after *bookModel.Book
		after, err = s.books.Increment(ctx, rec.BookID)
		if err == nil {
			return after.AvailableQuantity > before.AvailableQuantity, nil
		}
	}

	if errors.Is(err, bookModel.ErrBookNotFound) {
		logger.Warn("returned book missing from inventory", map[string]interface{}{
			"book_id":  rec.BookID.String(),
			"issue_id": rec.ID.String(),
		})
		return false, nil
	}
	return false, apperror.Internal("RETURN_FAILED", "could not update inventory", err)
}

// ========================================
// RESERVE
// ========================================

// Reserve queues a request for an exhausted title. Runs under the book lock
// then the member lock so the availability and duplicate checks hold until
// the insert.
func (s *CirculationService) Reserve(ctx context.Context, req resModel.ReserveRequest) (*resModel.Reservation, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.Invalid(err)
	}
	if req.MemberID == nil && req.Identity.IsZero() {
		return nil, model.ErrUnauthorized
	}

	unlockBook, err := s.acquire(ctx, lock.BookKey(req.BookID.String()))
	if err != nil {
		return nil, err
	}
	defer unlockBook()

	book, err := s.books.GetByID(ctx, req.BookID)
	if err != nil {
		return nil, err
	}

	memberID, err := s.reservingMember(ctx, req)
	if err != nil {
		return nil, err
	}
	unlockMember, err := s.acquire(ctx, lock.MemberKey(memberID.String()))
	if err != nil {
		return nil, err
	}
	defer unlockMember()

	if err := s.memberExists(ctx, memberID); err != nil {
		return nil, err
	}

	if book.AvailableQuantity > 0 {
		return nil, fmt.Errorf("%w: book=%s available=%d", resModel.ErrBookAvailable, book.ID, book.AvailableQuantity)
	}

	pending, err := s.reservations.ExistsPending(ctx, req.BookID, memberID)
	if err != nil {
		return nil, apperror.Internal("STORAGE_ERROR", "check pending reservation", err)
	}
	if pending {
		return nil, resModel.NewDuplicatePendingError(req.BookID, memberID)
	}

	res := resModel.NewPending(req.BookID, memberID, s.now().UTC())
	if err := s.reservations.Create(ctx, res); err != nil {
		return nil, err
	}

	logger.Info("reservation created", map[string]interface{}{
		"reservation_id": res.ID.String(),
		"book_id":        res.BookID.String(),
		"member_id":      memberID.String(),
	})
	return res, nil
}

// reservingMember picks the member a reservation is for. Staff may name any
// member; students are resolved from their identity and may not name others.
func (s *CirculationService) reservingMember(ctx context.Context, req resModel.ReserveRequest) (uuid.UUID, error) {
	if req.MemberID != nil && (req.Identity.IsZero() || req.Identity.Role.IsStaff()) {
		return *req.MemberID, nil
	}

	m, err := s.resolver.Resolve(ctx, req.Identity)
	if err != nil {
		return uuid.Nil, err
	}
	if req.MemberID != nil && *req.MemberID != m.ID {
		return uuid.Nil, fmt.Errorf("%w: cannot reserve for another member", model.ErrForbidden)
	}
	return m.ID, nil
}

// ========================================
// LISTINGS
// ========================================

func (s *CirculationService) ListTransactions(ctx context.Context) ([]model.RecordView, error) {
	records, err := s.ledger.ListRecent(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return s.enrich(ctx, records)
}

func (s *CirculationService) MyTransactions(ctx context.Context, caller identity.Identity) ([]model.RecordView, error) {
	if caller.IsZero() {
		return nil, model.ErrUnauthorized
	}
	m, err := s.resolver.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}

	records, err := s.ledger.ListByMember(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("list member transactions: %w", err)
	}
	return s.enrich(ctx, records)
}

func (s *CirculationService) MyReservations(ctx context.Context, caller identity.Identity) ([]resModel.View, error) {
	if caller.IsZero() {
		return nil, model.ErrUnauthorized
	}
	m, err := s.resolver.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}

	list, err := s.reservations.ListByMember(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("list member reservations: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(list))
	for _, res := range list {
		ids = append(ids, res.BookID)
	}
	titles, err := s.books.TitlesByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load titles: %w", err)
	}

	views := make([]resModel.View, 0, len(list))
	for _, res := range list {
		views = append(views, resModel.View{Reservation: res, BookTitle: titles[res.BookID]})
	}
	return views, nil
}

func (s *CirculationService) DashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	totals, err := s.books.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("book totals: %w", err)
	}
	issued, err := s.ledger.CountOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("count open issues: %w", err)
	}
	members, err := s.members.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}
	overdue, err := s.ledger.CountOverdue(ctx, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("count overdue: %w", err)
	}
	recent, err := s.ledger.ListRecent(ctx, s.cfg.RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	views, err := s.enrich(ctx, recent)
	if err != nil {
		return nil, err
	}

	return &model.DashboardStats{
		TotalBooks:         totals.Titles,
		AvailableBooks:     totals.AvailableCount,
		IssuedBooks:        issued,
		TotalMembers:       members,
		OverdueBooks:       overdue,
		RecentTransactions: views,
	}, nil
}

// CheckConsistency compares the counter with the ledger under the book lock.
// Consistent means the counter is in bounds and every copy out is backed by
// an open record.
func (s *CirculationService) CheckConsistency(ctx context.Context, bookID uuid.UUID) (*model.ConsistencyReport, error) {
	unlock, err := s.acquire(ctx, lock.BookKey(bookID.String()))
	if err != nil {
		return nil, err
	}
	defer unlock()

	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	open, err := s.ledger.CountOpenByBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("count open issues: %w", err)
	}

	inBounds := book.AvailableQuantity >= 0 && book.AvailableQuantity <= book.TotalQuantity
	return &model.ConsistencyReport{
		BookID:     bookID,
		Total:      book.TotalQuantity,
		Available:  book.AvailableQuantity,
		Open:       open,
		Consistent: inBounds && book.CopiesOut() <= open,
	}, nil
}

// ========================================
// HELPERS
// ========================================

func (s *CirculationService) acquire(ctx context.Context, key string) (lock.Unlock, error) {
	unlock, err := lock.AcquireWithin(ctx, s.locker, key, s.cfg.LockTimeout)
	if err != nil {
		return nil, apperror.Internal("LOCK_TIMEOUT", "resource is busy, try again", err)
	}
	return unlock, nil
}

func (s *CirculationService) memberExists(ctx context.Context, id uuid.UUID) error {
	_, err := s.members.GetByID(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, memberModel.ErrMemberNotFound):
		return err
	default:
		return apperror.Internal("MEMBER_LOOKUP_FAILED", "could not load member", err)
	}
}

func (s *CirculationService) enrich(ctx context.Context, records []model.IssueRecord) ([]model.RecordView, error) {
	bookIDs := make([]uuid.UUID, 0, len(records))
	memberIDs := make([]uuid.UUID, 0, len(records))
	for _, rec := range records {
		bookIDs = append(bookIDs, rec.BookID)
		memberIDs = append(memberIDs, rec.MemberID)
	}

	titles, err := s.books.TitlesByID(ctx, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("load titles: %w", err)
	}
	names, err := s.members.NamesByID(ctx, memberIDs)
	if err != nil {
		return nil, fmt.Errorf("load member names: %w", err)
	}

	views := make([]model.RecordView, 0, len(records))
	for _, rec := range records {
		views = append(views, model.RecordView{
			IssueRecord: rec,
			BookTitle:   titles[rec.BookID],
			MemberName:  names[rec.MemberID],
		})
	}
	return views, nil
}

// publish never fails the caller; the sync job reconciles later
func (s *CirculationService) publish(ctx context.Context, bookID uuid.UUID, source string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAvailabilityChanged(ctx, bookID, source); err != nil {
		logger.Warn("publish availability change failed", map[string]interface{}{
			"book_id": bookID.String(),
			"source":  source,
			"error":   err.Error(),
		})
	}
}

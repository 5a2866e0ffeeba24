package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookModel "library-backend/internal/domains/book/model"
	bookRepo "library-backend/internal/domains/book/repository"
	"library-backend/internal/domains/circulation/model"
	"library-backend/internal/domains/circulation/repository"
	memberModel "library-backend/internal/domains/member/model"
	memberRepo "library-backend/internal/domains/member/repository"
	memberService "library-backend/internal/domains/member/service"
	resModel "library-backend/internal/domains/reservation/model"
	resRepo "library-backend/internal/domains/reservation/repository"
	"library-backend/internal/shared/apperror"
	"library-backend/internal/shared/identity"
	"library-backend/pkg/lock"
)

// ========================================
// FIXTURE
// ========================================

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (p *recordingPublisher) PublishAvailabilityChanged(_ context.Context, bookID uuid.UUID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, bookID)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// failingLedger breaks the writes the engine must compensate for
type failingLedger struct {
	*repository.MemoryLedger
	failCreate bool
	failReturn bool
}

var errLedgerDown = errors.New("ledger unavailable")

func (l *failingLedger) Create(ctx context.Context, rec *model.IssueRecord) error {
	if l.failCreate {
		return errLedgerDown
	}
	return l.MemoryLedger.Create(ctx, rec)
}

func (l *failingLedger) MarkReturned(ctx context.Context, id uuid.UUID, at time.Time, fine int) (*model.IssueRecord, error) {
	if l.failReturn {
		return nil, errLedgerDown
	}
	return l.MemoryLedger.MarkReturned(ctx, id, at, fine)
}

type fixture struct {
	books        *bookRepo.MemoryRepository
	members      *memberRepo.MemoryRepository
	ledger       *failingLedger
	reservations *resRepo.MemoryRepository
	locker       *lock.KeyedMutex
	publisher    *recordingPublisher
	clock        *fakeClock
	svc          *CirculationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		books:        bookRepo.NewMemoryRepository(),
		members:      memberRepo.NewMemoryRepository(),
		ledger:       &failingLedger{MemoryLedger: repository.NewMemoryLedger()},
		reservations: resRepo.NewMemoryRepository(),
		locker:       lock.NewKeyedMutex(),
		publisher:    &recordingPublisher{},
		clock:        &fakeClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
	}

	resolver := memberService.NewService(f.members, f.ledger, f.reservations, f.locker, time.Second)
	f.svc = NewService(
		f.books, f.members, resolver, f.ledger, f.reservations, f.locker,
		Config{LockTimeout: time.Second},
		WithPublisher(f.publisher),
		WithClock(f.clock.Now),
	)
	return f
}

func (f *fixture) book(t *testing.T, total, available int) bookModel.Book {
	t.Helper()
	b := bookModel.Book{
		ID:                uuid.New(),
		Title:             "Book " + uuid.NewString()[:8],
		Author:            "Author",
		TotalQuantity:     total,
		AvailableQuantity: available,
		AddedAt:           f.clock.Now(),
		UpdatedAt:         f.clock.Now(),
	}
	f.books.Seed(b)
	return b
}

func (f *fixture) member(t *testing.T) memberModel.Member {
	t.Helper()
	id := uuid.New()
	m := memberModel.Member{
		ID:    id,
		Name:  "Member " + id.String()[:8],
		Email: id.String()[:8] + "@school.test",
	}
	f.members.Seed(m)
	return m
}

func studentOf(m memberModel.Member) identity.Identity {
	linked := m.ID
	return identity.Identity{
		AccountID:      uuid.New(),
		Email:          m.Email,
		Role:           identity.RoleStudent,
		LinkedMemberID: &linked,
	}
}

func (f *fixture) available(t *testing.T, id uuid.UUID) int {
	t.Helper()
	b, err := f.books.GetByID(context.Background(), id)
	require.NoError(t, err)
	return b.AvailableQuantity
}

func (f *fixture) issue(t *testing.T, bookID, memberID uuid.UUID, due time.Duration) *model.IssueRecord {
	t.Helper()
	rec, err := f.svc.Issue(context.Background(), model.IssueRequest{
		BookID:   bookID,
		MemberID: memberID,
		DueDate:  f.clock.Now().Add(due),
	})
	require.NoError(t, err)
	return rec
}

// ========================================
// ISSUE
// ========================================

func Test_Issue_DebitsInventoryAndOpensRecord(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, 3, 3)
	m := f.member(t)

	rec := f.issue(t, b.ID, m.ID, 7*24*time.Hour)

	assert.Equal(t, model.StatusIssued, rec.Status)
	assert.Equal(t, f.clock.Now(), rec.IssueDate)
	assert.Nil(t, rec.ReturnDate)
	assert.Equal(t, 0, rec.FineAmount)
	assert.Equal(t, 2, f.available(t, b.ID))
	assert.Equal(t, 1, f.publisher.count())

	stored, err := f.ledger.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, stored.MemberID)
}

func Test_Issue_Errors(t *testing.T) {
	f := newFixture(t)
	stocked := f.book(t, 2, 2)
	exhausted := f.book(t, 1, 0)
	m := f.member(t)
	future := f.clock.Now().Add(24 * time.Hour)

	cases := []struct {
		name string
		req  model.IssueRequest
		want error
	}{
		{"unknown book", model.IssueRequest{BookID: uuid.New(), MemberID: m.ID, DueDate: future}, bookModel.ErrBookNotFound},
		{"book checked before member", model.IssueRequest{BookID: uuid.New(), MemberID: uuid.New(), DueDate: future}, bookModel.ErrBookNotFound},
		{"no copies", model.IssueRequest{BookID: exhausted.ID, MemberID: m.ID, DueDate: future}, bookModel.ErrNoCopiesAvailable},
		{"unknown member", model.IssueRequest{BookID: stocked.ID, MemberID: uuid.New(), DueDate: future}, memberModel.ErrMemberNotFound},
		{"due date in the past", model.IssueRequest{BookID: stocked.ID, MemberID: m.ID, DueDate: f.clock.Now().Add(-time.Hour)}, model.ErrInvalidDueDate},
		{"due date now", model.IssueRequest{BookID: stocked.ID, MemberID: m.ID, DueDate: f.clock.Now()}, model.ErrInvalidDueDate},
		{"unknown book with past due date", model.IssueRequest{BookID: uuid.New(), MemberID: m.ID, DueDate: f.clock.Now().Add(-time.Hour)}, bookModel.ErrBookNotFound},
		{"no copies with past due date", model.IssueRequest{BookID: exhausted.ID, MemberID: m.ID, DueDate: f.clock.Now().Add(-time.Hour)}, bookModel.ErrNoCopiesAvailable},
		{"unknown member with past due date", model.IssueRequest{BookID: stocked.ID, MemberID: uuid.New(), DueDate: f.clock.Now().Add(-time.Hour)}, memberModel.ErrMemberNotFound},
		{"zero due date", model.IssueRequest{BookID: stocked.ID, MemberID: m.ID}, apperror.ErrValidation},
		{"missing book id", model.IssueRequest{MemberID: m.ID, DueDate: future}, apperror.ErrValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := f.svc.Issue(context.Background(), tc.req)
			assert.Nil(t, rec)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assert.Equal(t, 2, f.available(t, stocked.ID), "failed issues leave stock untouched")
	open, err := f.ledger.CountOpen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, open)
}

func Test_Issue_ConcurrentLastCopy(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, 1, 1)

	const callers = 20
	members := make([]memberModel.Member, callers)
	for i := range members {
		members[i] = f.member(t)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		noCopies  int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(m memberModel.Member) {
			defer wg.Done()
			_, err := f.svc.Issue(context.Background(), model.IssueRequest{
				BookID:   b.ID,
				MemberID: m.ID,
				DueDate:  f.clock.Now().Add(24 * time.Hour),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, bookModel.ErrNoCopiesAvailable):
				noCopies++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(members[i])
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, noCopies)
	assert.Equal(t, 0, f.available(t, b.ID))

	open, err := f.ledger.CountOpenByBook(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, open)
}

func Test_Issue_CompensatesWhenLedgerFails(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, 2, 2)
	m := f.member(t)
	f.ledger.failCreate = true

	_, err := f.svc.Issue(context.Background(), model.IssueRequest{
		BookID:   b.ID,
		MemberID: m.ID,
		DueDate:  f.clock.Now().Add(24 * time.Hour),
	})

	require.Error(t, err)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
	assert.ErrorIs(t, err, errLedgerDown)
	assert.Equal(t, 2, f.available(t, b.ID), "debit is rolled back")
	assert.Equal(t, 0, f.publisher.count())
}

func Test_Issue_LockTimeout(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg.LockTimeout = 20 * time.Millisecond
	b := f.book(t, 1, 1)
	m := f.member(t)

	unlock, err := f.locker.Acquire(context.Background(), lock.BookKey(b.ID.String()))
	require.NoError(t, err)
	defer unlock()

	_, err = f.svc.Issue(context.Background(), model.IssueRequest{
		BookID:   b.ID,
		MemberID: m.ID,
		DueDate:  f.clock.Now().Add(time.Hour),
	})

	assert.Equal(t, "LOCK_TIMEOUT", apperror.Code(err))
	assert.ErrorIs(t, err, lock.ErrLockTimeout)
	assert.Equal(t, 1, f.available(t, b.ID))
}

// ========================================
// RETURN
// ========================================

func Test_Return_CreditsInventoryAndChargesFine(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, 1, 1)
	m := f.member(t)
	rec := f.issue(t, b.ID, m.ID, 24*time.Hour)

	// due after one day, returned 36h late
	f.clock.Advance(60 * time.Hour)
	res, err := f.svc.Return(context.Background(), model.ReturnRequest{IssueID: rec.ID})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Fine)
	assert.Equal(t, 2, res.Record.FineAmount)
	assert.Equal(t, model.StatusReturned, res.Record.Status)
	require.NotNil(t, res.Record.ReturnDate)
	assert.Equal(t, f.clock.Now(), *res.Record.ReturnDate)
	assert.Equal(t, 1, f.available(t, b.ID))
	assert.Equal(t, 2, f.publisher.count())
}

func Test_Return_OnTimeHasNoFine(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, 1, 1)
	m := f.member(t)
	rec := f.issue(t, b.ID, m.ID, 24*time.Hour)

	f.clock.Advance(24 * time.Hour)
	res, err := f.svc.Return(context.Background(), model.ReturnRequest{IssueID: rec.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Fine)
}

func Test_Return_Twice(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, 2, 2)
	m := f.member(t)
	rec := f.issue(t, b.ID, m.ID, 24*time.Hour)

	_, err := f.svc.Return(context.Background(), model.ReturnRequest{IssueID: rec.ID})
	require.NoError(t, err)

	f.clock.Advance(72 * time.Hour)
	_, err = f.svc.Return(context.Background(), model.ReturnRequest{IssueID: rec.ID})
	assert.ErrorIs(t, err, model.ErrAlreadyReturned)

	stored, err := f.ledger.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.FineAmount, "fine is fixed at the first return")
	assert.Equal(t, 2, f.available(t, b.ID))
}

func Test_Return_ConcurrentDoubleReturn(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, 3, 3)
	m := f.member(t)
	rec := f.issue(t, b.ID, m.ID, 24*time.Hour)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Return(context.Background(), model.ReturnRequest{IssueID: rec.ID})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, model.ErrAlreadyReturned)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 3, f.available(t, b.ID))
}

func Test_Return_UnknownIssue(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Return(context.Background(), model.ReturnRequest{IssueID: uuid.New()})
	assert.ErrorIs(t, err, model.ErrIssueNotFound)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func Test_Return_MissingBookStillCloses(t *testing.T) {
	f := newFixture(t)
	m := f.member(t)
	now := f.clock.Now()
	rec := model.NewIssueRecord(uuid.New(), m.ID, now.Add(24*time.Hour), now)
	f.ledger.Seed(*rec)

	res, err := f.svc.Return(context.Background(), model.ReturnRequest{IssueID: rec.ID})
	require.NoError(t, err)
	assert.Equal(t, model.StatusReturned, res.Record.Status)
	assert.Equal(t, 0, f.publisher.count())
}

func Test_Return_CompensatesWhenLedgerFails(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, 2, 2)
	m := f.member(t)
	rec := f.issue(t, b.ID, m.ID, 24*time.Hour)
	f.ledger.failReturn = true

	_, err := f.svc.Return(context.Background(), model.ReturnRequest{IssueID: rec.ID})
	assert.ErrorIs(t, err, errLedgerDown)
	assert.Equal(t, 1, f.available(t, b.ID), "credit is rolled back")

	stored, err := f.ledger.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsOpen())
}

func Test_Return_ClampedCreditIsNotCompensated(t *testing.T) {
	f := newFixture(t)
	// desynced: counter is full but a loan is still open
	b := f.book(t, 1, 1)
	m := f.member(t)
	now := f.clock.Now()
	rec := model.NewIssueRecord(b.ID, m.ID, now.Add(24*time.Hour), now)
	f.ledger.Seed(*rec)
	f.ledger.failReturn = true

	_, err := f.svc.Return(context.Background(), model.ReturnRequest{IssueID: rec.ID})
	require.Error(t, err)
	assert.Equal(t, 1, f.available(t, b.ID))
}

// ========================================
// SELF SERVICE
// ========================================

func Test_SelfCheckout_UsesLoanPeriod(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, 1, 1)
	m := f.member(t)

	rec, err := f.svc.SelfCheckout(context.Background(), model.SelfCheckoutRequest{
		Identity: studentOf(m),
		BookID:   b.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, m.ID, rec.MemberID)
	assert.Equal(t, f.clock.Now().Add(14*24*time.Hour), rec.DueDate)
	assert.Equal(t, 0, f.available(t, b.ID))
}

func Test_SelfCheckout_ResolvesByEmailWithoutLink(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, 1, 1)
	m := f.member(t)

	caller := identity.Identity{AccountID: uuid.New(), Email: m.Email, Role: identity.RoleStudent}
	rec, err := f.svc.SelfCheckout(context.Background(), model.SelfCheckoutRequest{Identity: caller, BookID: b.ID})
	require.NoError(t, err)
	assert.Equal(t, m.ID, rec.MemberID)
}

func Test_SelfCheckout_Errors(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, 1, 1)
	stranger := identity.Identity{AccountID: uuid.New(), Email: "nobody@school.test", Role: identity.RoleStudent}

	_, err := f.svc.SelfCheckout(context.Background(), model.SelfCheckoutRequest{BookID: b.ID})
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = f.svc.SelfCheckout(context.Background(), model.SelfCheckoutRequest{Identity: stranger, BookID: uuid.New()})
	assert.ErrorIs(t, err, bookModel.ErrBookNotFound, "book checks come first")

	_, err = f.svc.SelfCheckout(context.Background(), model.SelfCheckoutRequest{Identity: stranger, BookID: b.ID})
	assert.ErrorIs(t, err, memberModel.ErrMemberNotFound)

	assert.Equal(t, 1, f.available(t, b.ID))
}

func Test_SelfReturn_ForeignRecordForbidden(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, 1, 1)
	owner := f.member(t)
	other := f.member(t)
	rec := f.issue(t, b.ID, owner.ID, 24*time.Hour)

	_, err := f.svc.SelfReturn(context.Background(), model.SelfReturnRequest{
		Identity: studentOf(other),
		IssueID:  rec.ID,
	})
	assert.ErrorIs(t, err, model.ErrForbidden)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))

	stored, err := f.ledger.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsOpen())
	assert.Equal(t, 0, f.available(t, b.ID))
}

func Test_SelfReturn_FailsClosed(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, 1, 1)
	owner := f.member(t)
	rec := f.issue(t, b.ID, owner.ID, 24*time.Hour)

	t.Run("unresolvable caller", func(t *testing.T) {
		stranger := identity.Identity{AccountID: uuid.New(), Email: "ghost@school.test", Role: identity.RoleStudent}
		_, err := f.svc.SelfReturn(context.Background(), model.SelfReturnRequest{Identity: stranger, IssueID: rec.ID})
		assert.ErrorIs(t, err, model.ErrForbidden)
	})

	t.Run("member store down", func(t *testing.T) {
		f.members.FailLookups(errors.New("connection reset"))
		defer f.members.FailLookups(nil)

		_, err := f.svc.SelfReturn(context.Background(), model.SelfReturnRequest{Identity: studentOf(owner), IssueID: rec.ID})
		require.Error(t, err)
		assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
	})

	stored, err := f.ledger.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsOpen())
	assert.Equal(t, 0, f.available(t, b.ID))
}

func Test_SelfReturn_OwnRecord(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, 1, 1)
	m := f.member(t)
	rec := f.issue(t, b.ID, m.ID, 24*time.Hour)

	res, err := f.svc.SelfReturn(context.Background(), model.SelfReturnRequest{Identity: studentOf(m), IssueID: rec.ID})
	require.NoError(t, err)
	assert.Equal(t, model.StatusReturned, res.Record.Status)
	assert.Equal(t, 1, f.available(t, b.ID))
}

// ========================================
// RESERVE
// ========================================

func Test_Reserve(t *testing.T) {
	f := newFixture(t)
	stocked := f.book(t, 2, 1)
	exhausted := f.book(t, 1, 0)
	m := f.member(t)
	caller := studentOf(m)

	_, err := f.svc.Reserve(context.Background(), resModel.ReserveRequest{Identity: caller, BookID: stocked.ID})
	assert.ErrorIs(t, err, resModel.ErrBookAvailable)

	res, err := f.svc.Reserve(context.Background(), resModel.ReserveRequest{Identity: caller, BookID: exhausted.ID})
	require.NoError(t, err)
	assert.Equal(t, resModel.StatusPending, res.Status)
	assert.Equal(t, m.ID, res.MemberID)

	_, err = f.svc.Reserve(context.Background(), resModel.ReserveRequest{Identity: caller, BookID: exhausted.ID})
	assert.ErrorIs(t, err, resModel.ErrDuplicatePending)

	pending, err := f.reservations.CountPendingByBook(context.Background(), exhausted.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func Test_Reserve_Errors(t *testing.T) {
	f := newFixture(t)
	exhausted := f.book(t, 1, 0)
	m := f.member(t)
	other := f.member(t)
	unknown := uuid.New()
	staff := identity.Identity{AccountID: uuid.New(), Email: "desk@library.test", Role: identity.RoleLibrarian}

	cases := []struct {
		name string
		req  resModel.ReserveRequest
		want error
	}{
		{"unknown book", resModel.ReserveRequest{Identity: staff, BookID: uuid.New(), MemberID: &unknown}, bookModel.ErrBookNotFound},
		{"unknown member", resModel.ReserveRequest{Identity: staff, BookID: exhausted.ID, MemberID: &unknown}, memberModel.ErrMemberNotFound},
		{"student naming another member", resModel.ReserveRequest{Identity: studentOf(m), BookID: exhausted.ID, MemberID: &other.ID}, model.ErrForbidden},
		{"anonymous without member", resModel.ReserveRequest{BookID: exhausted.ID}, model.ErrUnauthorized},
		{"missing book id", resModel.ReserveRequest{Identity: studentOf(m)}, apperror.ErrValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Reserve(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func Test_Reserve_StaffForMember(t *testing.T) {
	f := newFixture(t)
	exhausted := f.book(t, 1, 0)
	m := f.member(t)
	staff := identity.Identity{AccountID: uuid.New(), Email: "desk@library.test", Role: identity.RoleAdmin}

	res, err := f.svc.Reserve(context.Background(), resModel.ReserveRequest{Identity: staff, BookID: exhausted.ID, MemberID: &m.ID})
	require.NoError(t, err)
	assert.Equal(t, m.ID, res.MemberID)

	views, err := f.svc.MyReservations(context.Background(), studentOf(m))
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, exhausted.Title, views[0].BookTitle)
}

// ========================================
// FLOWS AND PROPERTIES
// ========================================

func Test_SelfServiceFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, 1, 1)
	alice := f.member(t)
	bob := f.member(t)

	rec, err := f.svc.SelfCheckout(ctx, model.SelfCheckoutRequest{Identity: studentOf(alice), BookID: b.ID})
	require.NoError(t, err)

	_, err = f.svc.SelfCheckout(ctx, model.SelfCheckoutRequest{Identity: studentOf(bob), BookID: b.ID})
	assert.ErrorIs(t, err, bookModel.ErrNoCopiesAvailable)

	_, err = f.svc.Reserve(ctx, resModel.ReserveRequest{Identity: studentOf(bob), BookID: b.ID})
	require.NoError(t, err)

	_, err = f.svc.SelfReturn(ctx, model.SelfReturnRequest{Identity: studentOf(bob), IssueID: rec.ID})
	assert.ErrorIs(t, err, model.ErrForbidden)

	f.clock.Advance(15 * 24 * time.Hour)
	res, err := f.svc.SelfReturn(ctx, model.SelfReturnRequest{Identity: studentOf(alice), IssueID: rec.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fine)

	mine, err := f.svc.MyTransactions(ctx, studentOf(alice))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, b.Title, mine[0].BookTitle)
	assert.Equal(t, alice.Name, mine[0].MemberName)

	// bob takes the freed copy and brings it back well before it is due
	again, err := f.svc.SelfCheckout(ctx, model.SelfCheckoutRequest{Identity: studentOf(bob), BookID: b.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, f.available(t, b.ID))

	f.clock.Advance(2 * 24 * time.Hour)
	onTime, err := f.svc.SelfReturn(ctx, model.SelfReturnRequest{Identity: studentOf(bob), IssueID: again.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, onTime.Fine)
	assert.Equal(t, 0, onTime.Record.FineAmount)
	assert.Equal(t, model.StatusReturned, onTime.Record.Status)
	assert.Equal(t, 1, f.available(t, b.ID))

	report, err := f.svc.CheckConsistency(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, 1, report.Available)
	assert.Equal(t, 0, report.Open)
}

func Test_Bounds_UnderConcurrentTraffic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	books := []bookModel.Book{f.book(t, 1, 1), f.book(t, 2, 2), f.book(t, 3, 3)}
	members := make([]memberModel.Member, 6)
	for i := range members {
		members[i] = f.member(t)
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		issued []uuid.UUID
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 60; i++ {
				if rng.Intn(2) == 0 {
					b := books[rng.Intn(len(books))]
					m := members[rng.Intn(len(members))]
					rec, err := f.svc.Issue(ctx, model.IssueRequest{BookID: b.ID, MemberID: m.ID, DueDate: f.clock.Now().Add(time.Hour)})
					if err == nil {
						mu.Lock()
						issued = append(issued, rec.ID)
						mu.Unlock()
					}
					continue
				}

				mu.Lock()
				var id uuid.UUID
				if len(issued) > 0 {
					id = issued[rng.Intn(len(issued))]
				}
				mu.Unlock()
				if id != uuid.Nil {
					_, _ = f.svc.Return(ctx, model.ReturnRequest{IssueID: id})
				}
			}
		}(int64(w))
	}
	wg.Wait()

	for _, b := range books {
		report, err := f.svc.CheckConsistency(ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, report.Consistent, "book %s: %+v", b.ID, report)
		assert.Equal(t, report.Total-report.Available, report.Open)
	}
}

func Test_DashboardStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.book(t, 2, 2)
	b := f.book(t, 3, 3)
	m := f.member(t)
	f.member(t)

	f.issue(t, a.ID, m.ID, time.Hour)
	f.clock.Advance(time.Minute)
	f.issue(t, b.ID, m.ID, 48*time.Hour)
	f.clock.Advance(2 * time.Hour)

	stats, err := f.svc.DashboardStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalBooks)
	assert.Equal(t, 3, stats.AvailableBooks)
	assert.Equal(t, 2, stats.IssuedBooks)
	assert.Equal(t, 2, stats.TotalMembers)
	assert.Equal(t, 1, stats.OverdueBooks)
	require.Len(t, stats.RecentTransactions, 2)
	assert.Equal(t, b.ID, stats.RecentTransactions[0].BookID, "newest first")
}

func Test_MyListings_RequireIdentity(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.MyTransactions(context.Background(), identity.Identity{})
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = f.svc.MyReservations(context.Background(), identity.Identity{})
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

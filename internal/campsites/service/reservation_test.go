package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	campsiteerrors "basecamp/internal/campsites/errors"
	"basecamp/internal/campsites/validator"
	"basecamp/pkg/config"
	apperrors "basecamp/pkg/errors"
	"basecamp/pkg/logger"
	"basecamp/pkg/model"
)

const testCampsiteID = "00000000000000000000cafe"

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:  "error",
			Format: logger.JSON,
			Output: io.Discard,
		}),
		ReadTimeout:             5 * time.Second,
		WriteTimeout:            5 * time.Second,
		ReservationMaxDays:      3,
		ReservationMinDaysAhead: 1,
		ReservationMaxDaysAhead: 30,
		AvailabilityRangeDays:   30,
	}
}

type reservationEnv struct {
	service   ReservationService
	ledger    *fakeAvailabilityRepository
	store     *fakeReservationRepository
	campsites *mockCampsiteRepository
	publisher *recordingPublisher
	capacity  int
}

// newReservationEnv wires the service against in-memory fakes, seeding one
// availability bucket per day for the next `days` days at `capacity` sites.
func newReservationEnv(t *testing.T, capacity, days int) *reservationEnv {
	t.Helper()

	cfg := testConfig()
	ledger := newFakeAvailabilityRepository()
	today := model.NormalizeDate(time.Now())
	for i := 0; i < days; i++ {
		ledger.seed(testCampsiteID, today.AddDate(0, 0, i), capacity)
	}

	store := newFakeReservationRepository()
	campsites := &mockCampsiteRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Campsite, error) {
			if id != testCampsiteID {
				return nil, campsiteerrors.ErrCampsiteNotFound
			}
			return &model.Campsite{ID: testCampsiteID, Name: "Pine Grove", Capacity: capacity}, nil
		},
	}
	publisher := &recordingPublisher{}

	svc := NewReservationService(
		store,
		campsites,
		ledger,
		validator.NewReservationValidator(cfg.Log, cfg),
		publisher,
		cfg,
	)

	return &reservationEnv{
		service:   svc,
		ledger:    ledger,
		store:     store,
		campsites: campsites,
		publisher: publisher,
		capacity:  capacity,
	}
}

func daysFromNow(n int) time.Time {
	return model.NormalizeDate(time.Now()).AddDate(0, 0, n)
}

func newReservation(checkIn, checkOut time.Time) *model.Reservation {
	return &model.Reservation{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		CheckIn:  checkIn,
		CheckOut: checkOut,
	}
}

func appCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	return appErr.Code
}

func TestReservationCreate_DecrementsEveryNight(t *testing.T) {
	env := newReservationEnv(t, 2, 40)

	reservation := newReservation(daysFromNow(2), daysFromNow(4))
	if err := env.service.Create(context.Background(), testCampsiteID, reservation); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reservation.ID == "" {
		t.Fatal("expected reservation ID to be assigned")
	}
	if len(reservation.AvailabilityIDs) != 2 {
		t.Fatalf("expected 2 availability IDs for 2 nights, got %d", len(reservation.AvailabilityIDs))
	}

	for _, id := range reservation.AvailabilityIDs {
		record := env.ledger.get(id)
		if record.Sites != 1 {
			t.Errorf("date %s: expected 1 site left, got %d", record.Date.Format(model.DateLayout), record.Sites)
		}
		if record.Version != 1 {
			t.Errorf("date %s: expected version 1, got %d", record.Date.Format(model.DateLayout), record.Version)
		}
	}

	events := env.publisher.all()
	if len(events) != 1 || events[0] != "created:"+reservation.ID {
		t.Errorf("expected one created event, got %v", events)
	}
}

func TestReservationCreate_FullDateRejected(t *testing.T) {
	env := newReservationEnv(t, 1, 40)

	first := newReservation(daysFromNow(2), daysFromNow(4))
	if err := env.service.Create(context.Background(), testCampsiteID, first); err != nil {
		t.Fatalf("unexpected error on first booking: %v", err)
	}

	// Overlaps the first stay on day 3 and the capacity is 1.
	second := newReservation(daysFromNow(3), daysFromNow(5))
	err := env.service.Create(context.Background(), testCampsiteID, second)
	if err == nil {
		t.Fatal("expected not-available error")
	}
	if code := appCode(t, err); code != apperrors.CodeNotAvailable {
		t.Fatalf("expected %s, got %s", apperrors.CodeNotAvailable, code)
	}

	var appErr *apperrors.AppError
	errors.As(err, &appErr)
	if _, ok := appErr.Details["availability"]; !ok {
		t.Error("expected availability details on not-available error")
	}
}

func TestReservationCreate_PastHorizonRejected(t *testing.T) {
	// Only 3 days of calendar exist; a stay ending on day 4 reaches past it.
	env := newReservationEnv(t, 5, 3)

	reservation := newReservation(daysFromNow(2), daysFromNow(4))
	err := env.service.Create(context.Background(), testCampsiteID, reservation)
	if err == nil {
		t.Fatal("expected not-available error for dates past the calendar horizon")
	}
	if code := appCode(t, err); code != apperrors.CodeNotAvailable {
		t.Fatalf("expected %s, got %s", apperrors.CodeNotAvailable, code)
	}
}

func TestReservationCreate_UnknownCampsite(t *testing.T) {
	env := newReservationEnv(t, 2, 40)

	reservation := newReservation(daysFromNow(2), daysFromNow(3))
	err := env.service.Create(context.Background(), "00000000000000000000beef", reservation)
	if err == nil {
		t.Fatal("expected not-found error")
	}
	if code := appCode(t, err); code != apperrors.CodeNotFound {
		t.Fatalf("expected %s, got %s", apperrors.CodeNotFound, code)
	}
}

func TestReservationCreate_WindowRules(t *testing.T) {
	env := newReservationEnv(t, 2, 400)

	cases := []struct {
		name     string
		checkIn  time.Time
		checkOut time.Time
	}{
		{"same day check-in", daysFromNow(0), daysFromNow(2)},
		{"too far ahead", daysFromNow(31), daysFromNow(32)},
		{"stay too long", daysFromNow(2), daysFromNow(6)},
		{"checkout before checkin", daysFromNow(4), daysFromNow(2)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := env.service.Create(context.Background(), testCampsiteID, newReservation(tc.checkIn, tc.checkOut))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if code := appCode(t, err); code != apperrors.CodeValidation {
				t.Fatalf("expected %s, got %s", apperrors.CodeValidation, code)
			}
		})
	}
}

func TestReservationCreate_StaleVersionConflict(t *testing.T) {
	env := newReservationEnv(t, 2, 40)

	// Bump the version of one bucket between the service's read and write by
	// wrapping the decrement through a pre-staled record.
	today := model.NormalizeDate(time.Now())
	records, _ := env.ledger.FindRangeInclusive(context.Background(), testCampsiteID, today.AddDate(0, 0, 2), today.AddDate(0, 0, 2))
	if len(records) != 1 {
		t.Fatalf("expected seeded record, got %d", len(records))
	}
	stale := *records[0]
	if err := env.ledger.Decrement(context.Background(), records[0]); err != nil {
		t.Fatalf("setup decrement failed: %v", err)
	}

	err := env.ledger.Decrement(context.Background(), &stale)
	if !errors.Is(err, campsiteerrors.ErrStaleVersion) {
		t.Fatalf("expected stale version error, got %v", err)
	}

	svc := env.service.(*reservationService)
	if code := appCode(t, svc.ledgerError(err)); code != apperrors.CodeConcurrentModification {
		t.Fatalf("expected %s mapping for stale version", apperrors.CodeConcurrentModification)
	}
}

func TestReservationCreate_ConcurrentLastSite(t *testing.T) {
	env := newReservationEnv(t, 1, 40)

	const attempts = 8
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	wg.Add(attempts)

	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			results <- env.service.Create(context.Background(), testCampsiteID, newReservation(daysFromNow(2), daysFromNow(3)))
		}()
	}
	wg.Wait()
	close(results)

	var successes, failures int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		failures++
		code := appCode(t, err)
		if code != apperrors.CodeNotAvailable && code != apperrors.CodeConcurrentModification {
			t.Errorf("unexpected failure code %s: %v", code, err)
		}
	}

	if successes != 1 {
		t.Fatalf("expected exactly one success for the last site, got %d (failures %d)", successes, failures)
	}

	today := model.NormalizeDate(time.Now())
	records, _ := env.ledger.FindRangeInclusive(context.Background(), testCampsiteID, today.AddDate(0, 0, 2), today.AddDate(0, 0, 2))
	if len(records) != 1 || records[0].Sites != 0 {
		t.Fatalf("expected the single site fully booked, got %+v", records)
	}
}

func TestReservationModify_OverlapUntouched(t *testing.T) {
	env := newReservationEnv(t, 2, 40)

	reservation := newReservation(daysFromNow(2), daysFromNow(5))
	if err := env.service.Create(context.Background(), testCampsiteID, reservation); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	originalIDs := append([]string(nil), reservation.AvailabilityIDs...)

	// Shift the stay by one day: day 2 is dropped, days 3-4 are kept, day 5
	// is added.
	newIn, newOut := daysFromNow(3), daysFromNow(6)
	err := env.service.Modify(context.Background(), testCampsiteID, reservation.ID, &model.ReservationUpdate{
		CheckIn:  &newIn,
		CheckOut: &newOut,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dropped := env.ledger.get(originalIDs[0])
	if dropped.Sites != 2 || dropped.Version != 2 {
		t.Errorf("dropped date: expected sites=2 version=2, got sites=%d version=%d", dropped.Sites, dropped.Version)
	}

	// Kept buckets must not have been released and re-claimed.
	for _, id := range originalIDs[1:] {
		kept := env.ledger.get(id)
		if kept.Sites != 1 || kept.Version != 1 {
			t.Errorf("kept date %s: expected sites=1 version=1, got sites=%d version=%d",
				kept.Date.Format(model.DateLayout), kept.Sites, kept.Version)
		}
	}

	updated := env.store.get(reservation.ID)
	if !updated.CheckIn.Equal(newIn) || !updated.CheckOut.Equal(newOut) {
		t.Errorf("reservation span not updated: %v - %v", updated.CheckIn, updated.CheckOut)
	}
	if len(updated.AvailabilityIDs) != 3 {
		t.Fatalf("expected 3 availability IDs, got %d", len(updated.AvailabilityIDs))
	}
}

func TestReservationModify_SameSpanSkipsLedger(t *testing.T) {
	env := newReservationEnv(t, 2, 40)

	reservation := newReservation(daysFromNow(2), daysFromNow(4))
	if err := env.service.Create(context.Background(), testCampsiteID, reservation); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := env.service.Modify(context.Background(), testCampsiteID, reservation.ID, &model.ReservationUpdate{
		Name: "Grace Hopper",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, id := range reservation.AvailabilityIDs {
		record := env.ledger.get(id)
		if record.Version != 1 {
			t.Errorf("expected version untouched at 1, got %d", record.Version)
		}
	}

	updated := env.store.get(reservation.ID)
	if updated.Name != "Grace Hopper" {
		t.Errorf("expected name updated, got %q", updated.Name)
	}
}

func TestReservationModify_NewDatesFull(t *testing.T) {
	env := newReservationEnv(t, 1, 40)

	first := newReservation(daysFromNow(5), daysFromNow(6))
	if err := env.service.Create(context.Background(), testCampsiteID, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := newReservation(daysFromNow(2), daysFromNow(4))
	if err := env.service.Create(context.Background(), testCampsiteID, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Moving the second stay onto the day held by the first must fail.
	newIn, newOut := daysFromNow(4), daysFromNow(7)
	err := env.service.Modify(context.Background(), testCampsiteID, second.ID, &model.ReservationUpdate{
		CheckIn:  &newIn,
		CheckOut: &newOut,
	})
	if err == nil {
		t.Fatal("expected not-available error")
	}
	if code := appCode(t, err); code != apperrors.CodeNotAvailable {
		t.Fatalf("expected %s, got %s", apperrors.CodeNotAvailable, code)
	}
}

func TestReservationCancel_ReleasesEveryNight(t *testing.T) {
	env := newReservationEnv(t, 2, 40)

	reservation := newReservation(daysFromNow(2), daysFromNow(5))
	if err := env.service.Create(context.Background(), testCampsiteID, reservation); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := env.service.Cancel(context.Background(), testCampsiteID, reservation.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, id := range reservation.AvailabilityIDs {
		record := env.ledger.get(id)
		if record.Sites != 2 {
			t.Errorf("date %s: expected capacity restored to 2, got %d", record.Date.Format(model.DateLayout), record.Sites)
		}
	}

	if env.store.get(reservation.ID) != nil {
		t.Error("expected reservation to be deleted")
	}

	events := env.publisher.all()
	if len(events) != 2 || events[1] != "cancelled:"+reservation.ID {
		t.Errorf("expected cancelled event, got %v", events)
	}
}

func TestReservationCancel_NotFound(t *testing.T) {
	env := newReservationEnv(t, 2, 40)

	err := env.service.Cancel(context.Background(), testCampsiteID, "00000000000000000000dead")
	if err == nil {
		t.Fatal("expected not-found error")
	}
	if code := appCode(t, err); code != apperrors.CodeNotFound {
		t.Fatalf("expected %s, got %s", apperrors.CodeNotFound, code)
	}
}

func TestReservationGetAll_PaginatesPerCampsite(t *testing.T) {
	env := newReservationEnv(t, 5, 40)

	for i := 0; i < 3; i++ {
		r := newReservation(daysFromNow(2+i), daysFromNow(3+i))
		if err := env.service.Create(context.Background(), testCampsiteID, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	reservations, total, err := env.service.GetAll(context.Background(), testCampsiteID, 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 {
		t.Errorf("expected total 3, got %d", total)
	}
	if len(reservations) != 2 {
		t.Errorf("expected page of 2, got %d", len(reservations))
	}
}

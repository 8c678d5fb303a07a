package service

import (
	"context"
	"testing"
	"time"

	"basecamp/pkg/model"
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestEnsureCalendar_SeedsFullYear(t *testing.T) {
	cfg := testConfig()
	ledger := newFakeAvailabilityRepository()
	campsite := &model.Campsite{ID: testCampsiteID, Name: "Pine Grove", Capacity: 7}

	svc := &calendarService{
		campsiteRepo:     &mockCampsiteRepository{},
		availabilityRepo: ledger,
		cfg:              cfg,
		now:              fixedNow(time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC)),
	}

	written, err := svc.EnsureCalendar(context.Background(), campsite)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != 365 {
		t.Fatalf("expected 365 days for 2026, got %d", written)
	}

	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	records, err := ledger.FindRangeInclusive(context.Background(), testCampsiteID, today, today.AddDate(0, 0, 364))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 365 {
		t.Fatalf("expected 365 records, got %d", len(records))
	}
	if !records[0].Date.Equal(today) {
		t.Errorf("expected first record today, got %s", records[0].Date)
	}
	for _, record := range records {
		if record.Sites != 7 {
			t.Fatalf("date %s: expected 7 sites, got %d", record.Date.Format(model.DateLayout), record.Sites)
		}
		if record.Version != 0 {
			t.Fatalf("date %s: expected version 0, got %d", record.Date.Format(model.DateLayout), record.Version)
		}
	}
}

func TestEnsureCalendar_LeapYear(t *testing.T) {
	cfg := testConfig()
	ledger := newFakeAvailabilityRepository()
	campsite := &model.Campsite{ID: testCampsiteID, Name: "Pine Grove", Capacity: 3}

	svc := &calendarService{
		campsiteRepo:     &mockCampsiteRepository{},
		availabilityRepo: ledger,
		cfg:              cfg,
		now:              fixedNow(time.Date(2028, 1, 1, 0, 0, 0, 0, time.UTC)),
	}

	written, err := svc.EnsureCalendar(context.Background(), campsite)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != 366 {
		t.Fatalf("expected 366 days for 2028, got %d", written)
	}
}

func TestEnsureCalendar_NoopWhenHorizonAhead(t *testing.T) {
	cfg := testConfig()
	ledger := newFakeAvailabilityRepository()
	campsite := &model.Campsite{ID: testCampsiteID, Name: "Pine Grove", Capacity: 3}

	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	// Horizon already extends past today.
	ledger.seed(testCampsiteID, now.AddDate(0, 0, 10), 3)

	svc := &calendarService{
		campsiteRepo:     &mockCampsiteRepository{},
		availabilityRepo: ledger,
		cfg:              cfg,
		now:              fixedNow(now),
	}

	written, err := svc.EnsureCalendar(context.Background(), campsite)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != 0 {
		t.Fatalf("expected no-op, wrote %d records", written)
	}
}

func TestEnsureCalendar_ExtendsFromHorizon(t *testing.T) {
	cfg := testConfig()
	ledger := newFakeAvailabilityRepository()
	campsite := &model.Campsite{ID: testCampsiteID, Name: "Pine Grove", Capacity: 3}

	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	// Calendar ran out three days ago.
	horizon := now.AddDate(0, 0, -3)
	ledger.seed(testCampsiteID, horizon, 3)

	svc := &calendarService{
		campsiteRepo:     &mockCampsiteRepository{},
		availabilityRepo: ledger,
		cfg:              cfg,
		now:              fixedNow(now),
	}

	written, err := svc.EnsureCalendar(context.Background(), campsite)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != 365 {
		t.Fatalf("expected 365 days, got %d", written)
	}

	// The extension starts the day after the old horizon, leaving no gap.
	records, err := ledger.FindRangeInclusive(context.Background(), testCampsiteID, horizon, horizon.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected contiguous records across the old horizon, got %d", len(records))
	}
	for i := 1; i < len(records); i++ {
		if model.DaysBetween(records[i-1].Date, records[i].Date) != 1 {
			t.Fatalf("gap between %s and %s", records[i-1].Date, records[i].Date)
		}
	}
}

func TestEnsureAllCalendars_ContinuesPastFailures(t *testing.T) {
	cfg := testConfig()
	ledger := newFakeAvailabilityRepository()

	campsites := []*model.Campsite{
		{ID: "00000000000000000000000a", Name: "A", Capacity: 2},
		{ID: "00000000000000000000000b", Name: "B", Capacity: 2},
	}
	repo := &mockCampsiteRepository{
		findAllFunc: func(ctx context.Context, limit int, offset int64) ([]*model.Campsite, error) {
			if offset > 0 {
				return nil, nil
			}
			return campsites, nil
		},
	}

	svc := &calendarService{
		campsiteRepo:     repo,
		availabilityRepo: ledger,
		cfg:              cfg,
		now:              fixedNow(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)),
	}

	if err := svc.EnsureAllCalendars(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, campsite := range campsites {
		if _, err := ledger.FindLast(context.Background(), campsite.ID); err != nil {
			t.Errorf("campsite %s: expected seeded calendar, got %v", campsite.ID, err)
		}
	}
}

package service

import (
	"context"
	"errors"
	"time"

	campsiteerrors "basecamp/internal/campsites/errors"
	"basecamp/internal/campsites/repository"
	"basecamp/pkg/config"
	apperrors "basecamp/pkg/errors"
	"basecamp/pkg/model"
)

// CalendarService keeps every campsite's availability calendar extended about
// a year past its current horizon. Extension is idempotent: it only appends
// dates after the last existing record, so concurrent runs converge.
type CalendarService interface {
	EnsureCalendar(ctx context.Context, campsite *model.Campsite) (int, error)
	EnsureAllCalendars(ctx context.Context) error
}

type calendarService struct {
	campsiteRepo     repository.CampsiteRepository
	availabilityRepo repository.AvailabilityRepository
	cfg              *config.Config
	now              func() time.Time
}

func NewCalendarService(
	campsiteRepo repository.CampsiteRepository,
	availabilityRepo repository.AvailabilityRepository,
	cfg *config.Config,
) CalendarService {
	return &calendarService{
		campsiteRepo:     campsiteRepo,
		availabilityRepo: availabilityRepo,
		cfg:              cfg,
		now:              time.Now,
	}
}

// EnsureCalendar appends availability records from the day after the
// campsite's current horizon, one year's worth counted from that base date.
// A horizon already past today leaves the calendar untouched. Returns the
// number of records written.
func (s *calendarService) EnsureCalendar(ctx context.Context, campsite *model.Campsite) (int, error) {
	today := model.NormalizeDate(s.now())

	base := today
	last, err := s.availabilityRepo.FindLast(ctx, campsite.ID)
	if err != nil {
		if !errors.Is(err, campsiteerrors.ErrAvailabilityNotFound) {
			return 0, apperrors.Internal("Failed to read availability horizon", err)
		}
	} else {
		base = model.NormalizeDate(last.Date).AddDate(0, 0, 1)
	}

	if base.After(today) {
		return 0, nil
	}

	days := lengthOfYear(base)
	records := make([]*model.Availability, 0, days)
	for i := 0; i < days; i++ {
		records = append(records, &model.Availability{
			CampsiteID: campsite.ID,
			Date:       base.AddDate(0, 0, i),
			Sites:      campsite.Capacity,
			Version:    0,
		})
	}

	if err := s.availabilityRepo.InsertMany(ctx, records); err != nil {
		return 0, apperrors.Internal("Failed to extend availability calendar", err)
	}

	s.cfg.Log.Info("Availability calendar extended",
		"campsite_id", campsite.ID,
		"base_date", base.Format(model.DateLayout),
		"days", days,
	)
	return days, nil
}

// EnsureAllCalendars walks every campsite and extends each calendar. A
// failure on one campsite is logged and does not stop the rest.
func (s *calendarService) EnsureAllCalendars(ctx context.Context) error {
	var offset int64
	limit := config.DefaultPaginationLimit

	for {
		campsites, err := s.campsiteRepo.FindAll(ctx, limit, offset)
		if err != nil {
			return apperrors.Internal("Failed to list campsites for calendar refresh", err)
		}
		if len(campsites) == 0 {
			return nil
		}

		for _, campsite := range campsites {
			if _, err := s.EnsureCalendar(ctx, campsite); err != nil {
				s.cfg.Log.Error("Failed to extend availability calendar",
					"campsite_id", campsite.ID,
					"error", err,
				)
			}
		}

		offset += int64(len(campsites))
	}
}

// lengthOfYear returns the number of days in the year the date falls in.
func lengthOfYear(t time.Time) int {
	year := t.Year()
	if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
		return 366
	}
	return 365
}

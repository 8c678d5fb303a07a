package service

import (
	"context"
	"errors"
	"sync"
	"time"

	campsiteerrors "basecamp/internal/campsites/errors"
	"basecamp/internal/campsites/events"
	"basecamp/internal/campsites/repository"
	"basecamp/internal/campsites/validator"
	"basecamp/pkg/config"
	apperrors "basecamp/pkg/errors"
	"basecamp/pkg/model"
	"basecamp/pkg/sanitizer"
)

type ReservationService interface {
	Create(ctx context.Context, campsiteID string, reservation *model.Reservation) error
	GetByID(ctx context.Context, campsiteID, id string) (*model.Reservation, error)
	GetAll(ctx context.Context, campsiteID string, limit int, offset int64) ([]*model.Reservation, int64, error)
	Modify(ctx context.Context, campsiteID, id string, updates *model.ReservationUpdate) error
	Cancel(ctx context.Context, campsiteID, id string) error
}

type reservationService struct {
	repo             repository.ReservationRepository
	campsiteRepo     repository.CampsiteRepository
	availabilityRepo repository.AvailabilityRepository
	validator        *validator.ReservationValidator
	publisher        events.Publisher
	cfg              *config.Config
}

func NewReservationService(
	repo repository.ReservationRepository,
	campsiteRepo repository.CampsiteRepository,
	availabilityRepo repository.AvailabilityRepository,
	validator *validator.ReservationValidator,
	publisher events.Publisher,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		repo:             repo,
		campsiteRepo:     campsiteRepo,
		availabilityRepo: availabilityRepo,
		validator:        validator,
		publisher:        publisher,
		cfg:              cfg,
	}
}

// Create books the stay span [check_in, check_out) by taking one site from
// every date's availability bucket and storing the reservation, all in one
// transaction. The conflict check and the decrements run against the same
// snapshot; a concurrent writer shows up as a version mismatch, not a
// double booking.
func (s *reservationService) Create(ctx context.Context, campsiteID string, reservation *model.Reservation) error {
	reservation.CampsiteID = campsiteID
	s.sanitize(reservation)
	reservation.CheckIn = model.NormalizeDate(reservation.CheckIn)
	reservation.CheckOut = model.NormalizeDate(reservation.CheckOut)

	if err := s.validator.Validate(reservation); err != nil {
		s.cfg.Log.Warn("Reservation validation failed", "error", err)
		return apperrors.Validation("Reservation validation failed", map[string]any{"error": err.Error()})
	}

	if _, err := s.findCampsite(ctx, campsiteID); err != nil {
		return err
	}

	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		records, err := s.claimSpan(txCtx, campsiteID, reservation.CheckIn, reservation.CheckOut)
		if err != nil {
			return err
		}

		reservation.AvailabilityIDs = recordIDs(records)
		if err := s.repo.Create(txCtx, reservation); err != nil {
			return apperrors.Internal("Failed to create reservation", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create reservation",
			"campsite_id", campsiteID,
			"check_in", reservation.CheckIn.Format(model.DateLayout),
			"check_out", reservation.CheckOut.Format(model.DateLayout),
			"error", err,
		)
		return err
	}

	s.publisher.ReservationCreated(ctx, reservation)

	s.cfg.Log.Info("Reservation created successfully",
		"id", reservation.ID,
		"campsite_id", campsiteID,
		"check_in", reservation.CheckIn.Format(model.DateLayout),
		"check_out", reservation.CheckOut.Format(model.DateLayout),
	)
	return nil
}

func (s *reservationService) GetByID(ctx context.Context, campsiteID, id string) (*model.Reservation, error) {
	if campsiteID == "" || id == "" {
		return nil, apperrors.InvalidInput("Campsite ID and reservation ID cannot be empty")
	}

	reservation, err := s.repo.FindByID(ctx, campsiteID, id)
	if err != nil {
		if errors.Is(err, campsiteerrors.ErrReservationNotFound) {
			return nil, apperrors.NotFoundWithID("Reservation", id)
		}
		if errors.Is(err, campsiteerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid reservation ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve reservation", err)
	}

	return reservation, nil
}

func (s *reservationService) GetAll(ctx context.Context, campsiteID string, limit int, offset int64) ([]*model.Reservation, int64, error) {
	if _, err := s.findCampsite(ctx, campsiteID); err != nil {
		return nil, 0, err
	}

	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByCampsite(ctx, campsiteID)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count reservations", "campsite_id", campsiteID, "error", errCount)
			errCount = apperrors.Internal("Failed to count reservations", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		reservations, errFind = s.repo.FindAllByCampsite(ctx, campsiteID, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list reservations", "campsite_id", campsiteID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve reservations", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return reservations, count, nil
}

// Modify moves a reservation to a new span by diffing dates: buckets shared
// by both spans are left untouched, dropped dates get their site back, and
// only newly added dates are claimed. A same-span modify therefore never
// touches the ledger and cannot lose a version race it has no stake in.
func (s *reservationService) Modify(ctx context.Context, campsiteID, id string, updates *model.ReservationUpdate) error {
	existing, err := s.GetByID(ctx, campsiteID, id)
	if err != nil {
		return err
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Reservation update validation failed", "id", id, "error", err)
		return apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := s.mergeUpdates(existing, updates)
	s.sanitize(merged)
	if err := s.validator.Validate(merged); err != nil {
		s.cfg.Log.Warn("Reservation validation failed", "id", id, "error", err)
		return apperrors.Validation("Reservation validation failed", map[string]any{"error": err.Error()})
	}

	if existing.SameSpan(merged.CheckIn, merged.CheckOut) {
		if err := s.repo.Update(ctx, merged); err != nil {
			s.cfg.Log.Error("Failed to update reservation", "id", id, "error", err)
			return apperrors.Internal("Failed to update reservation", err)
		}
	} else {
		campsite, err := s.findCampsite(ctx, campsiteID)
		if err != nil {
			return err
		}

		err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			return s.moveSpan(txCtx, campsite, existing, merged)
		})
		if err != nil {
			s.cfg.Log.Error("Failed to modify reservation span", "id", id, "error", err)
			return err
		}
	}

	s.publisher.ReservationModified(ctx, merged)

	s.cfg.Log.Info("Reservation modified successfully",
		"id", id,
		"campsite_id", campsiteID,
		"check_in", merged.CheckIn.Format(model.DateLayout),
		"check_out", merged.CheckOut.Format(model.DateLayout),
	)
	return nil
}

// Cancel releases every bucket the reservation holds and deletes it.
func (s *reservationService) Cancel(ctx context.Context, campsiteID, id string) error {
	campsite, err := s.findCampsite(ctx, campsiteID)
	if err != nil {
		return err
	}

	var cancelled *model.Reservation
	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		reservation, err := s.repo.FindByID(txCtx, campsiteID, id)
		if err != nil {
			if errors.Is(err, campsiteerrors.ErrReservationNotFound) {
				return apperrors.NotFoundWithID("Reservation", id)
			}
			if errors.Is(err, campsiteerrors.ErrInvalidID) {
				return apperrors.InvalidInput("Invalid reservation ID format")
			}
			return apperrors.Internal("Failed to retrieve reservation", err)
		}

		records, err := s.availabilityRepo.FindByIDs(txCtx, reservation.AvailabilityIDs)
		if err != nil {
			return apperrors.Internal("Failed to load reservation availability", err)
		}

		for _, record := range records {
			if err := s.availabilityRepo.Increment(txCtx, record, campsite.Capacity); err != nil {
				return s.ledgerError(err)
			}
		}

		if err := s.repo.Delete(txCtx, campsiteID, id); err != nil {
			return apperrors.Internal("Failed to delete reservation", err)
		}

		cancelled = reservation
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to cancel reservation", "id", id, "campsite_id", campsiteID, "error", err)
		return err
	}

	s.publisher.ReservationCancelled(ctx, cancelled)

	s.cfg.Log.Info("Reservation cancelled successfully", "id", id, "campsite_id", campsiteID)
	return nil
}

// --- Helpers ---

// claimSpan checks that every date of the stay span has a site left and takes
// one from each bucket. On a full date it fails with the current availability
// for the whole span so callers can offer alternatives.
func (s *reservationService) claimSpan(ctx context.Context, campsiteID string, checkIn, checkOut time.Time) ([]*model.Availability, error) {
	nights := model.DaysBetween(checkIn, checkOut)
	lastNight := checkOut.AddDate(0, 0, -1)

	records, err := s.availabilityRepo.FindRangeInclusive(ctx, campsiteID, checkIn, lastNight)
	if err != nil {
		return nil, apperrors.Internal("Failed to check availability", err)
	}

	// A date past the calendar horizon has no record and counts as full.
	if len(records) != nights || anyFull(records) {
		return nil, s.notAvailable(records)
	}

	for _, record := range records {
		if err := s.availabilityRepo.Decrement(ctx, record); err != nil {
			return nil, s.ledgerError(err)
		}
	}

	return records, nil
}

// moveSpan applies the date diff between the reservation's current span and
// the merged one, then rewrites the reservation document.
func (s *reservationService) moveSpan(ctx context.Context, campsite *model.Campsite, existing, merged *model.Reservation) error {
	oldRecords, err := s.availabilityRepo.FindByIDs(ctx, existing.AvailabilityIDs)
	if err != nil {
		return apperrors.Internal("Failed to load reservation availability", err)
	}
	oldByDate := recordsByDate(oldRecords)

	nights := model.DaysBetween(merged.CheckIn, merged.CheckOut)
	lastNight := merged.CheckOut.AddDate(0, 0, -1)

	newRecords, err := s.availabilityRepo.FindRangeInclusive(ctx, campsite.ID, merged.CheckIn, lastNight)
	if err != nil {
		return apperrors.Internal("Failed to check availability", err)
	}
	newByDate := recordsByDate(newRecords)

	// Every added date must have a record with a site left. Kept dates are
	// already held by this reservation and need no headroom.
	if len(newRecords) != nights {
		return s.notAvailable(newRecords)
	}
	for date, record := range newByDate {
		if _, kept := oldByDate[date]; !kept && record.Sites == 0 {
			return s.notAvailable(newRecords)
		}
	}

	for date, record := range newByDate {
		if _, kept := oldByDate[date]; !kept {
			if err := s.availabilityRepo.Decrement(ctx, record); err != nil {
				return s.ledgerError(err)
			}
		}
	}
	for date, record := range oldByDate {
		if _, kept := newByDate[date]; !kept {
			if err := s.availabilityRepo.Increment(ctx, record, campsite.Capacity); err != nil {
				return s.ledgerError(err)
			}
		}
	}

	merged.AvailabilityIDs = recordIDs(newRecords)
	if err := s.repo.Update(ctx, merged); err != nil {
		if errors.Is(err, campsiteerrors.ErrReservationNotFound) {
			return apperrors.NotFoundWithID("Reservation", merged.ID)
		}
		return apperrors.Internal("Failed to update reservation", err)
	}
	return nil
}

func (s *reservationService) findCampsite(ctx context.Context, campsiteID string) (*model.Campsite, error) {
	if campsiteID == "" {
		return nil, apperrors.InvalidInput("Campsite ID cannot be empty")
	}

	campsite, err := s.campsiteRepo.FindByID(ctx, campsiteID)
	if err != nil {
		if errors.Is(err, campsiteerrors.ErrCampsiteNotFound) {
			return nil, apperrors.NotFoundWithID("Campsite", campsiteID)
		}
		if errors.Is(err, campsiteerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid campsite ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve campsite", err)
	}
	return campsite, nil
}

func (s *reservationService) sanitize(r *model.Reservation) {
	r.Name = sanitizer.NormalizeName(r.Name)
	r.Email = sanitizer.NormalizeEmail(r.Email)
}

func (s *reservationService) mergeUpdates(existing *model.Reservation, updates *model.ReservationUpdate) *model.Reservation {
	merged := *existing

	if updates.Name != "" {
		merged.Name = updates.Name
	}
	if updates.Email != "" {
		merged.Email = updates.Email
	}
	if updates.CheckIn != nil && updates.CheckOut != nil {
		merged.CheckIn = model.NormalizeDate(*updates.CheckIn)
		merged.CheckOut = model.NormalizeDate(*updates.CheckOut)
	}

	return &merged
}

func (s *reservationService) notAvailable(records []*model.Availability) error {
	return apperrors.NotAvailable(
		"One or more requested dates are not available",
		map[string]any{"availability": model.AvailabilityViews(records)},
	)
}

// ledgerError maps bucket mutation failures onto the API error taxonomy. A
// stale version means another request moved the bucket between our read and
// write; the whole transaction aborts and the client may retry.
func (s *reservationService) ledgerError(err error) error {
	switch {
	case errors.Is(err, campsiteerrors.ErrStaleVersion):
		return apperrors.ConcurrentModification("Availability changed while processing the request, please retry")
	case errors.Is(err, campsiteerrors.ErrInvariantViolation):
		return apperrors.Internal("Availability counter out of bounds", err)
	case errors.Is(err, campsiteerrors.ErrAvailabilityNotFound):
		return apperrors.Internal("Availability record disappeared", err)
	default:
		return apperrors.Internal("Failed to update availability", err)
	}
}

func anyFull(records []*model.Availability) bool {
	for _, record := range records {
		if record.Sites == 0 {
			return true
		}
	}
	return false
}

func recordIDs(records []*model.Availability) []string {
	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ID)
	}
	return ids
}

func recordsByDate(records []*model.Availability) map[string]*model.Availability {
	byDate := make(map[string]*model.Availability, len(records))
	for _, record := range records {
		byDate[record.Date.Format(model.DateLayout)] = record
	}
	return byDate
}

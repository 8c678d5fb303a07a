package service

import (
	"context"
	"errors"
	"sync"
	"time"

	campsiteerrors "basecamp/internal/campsites/errors"
	"basecamp/internal/campsites/repository"
	"basecamp/internal/campsites/validator"
	"basecamp/pkg/config"
	apperrors "basecamp/pkg/errors"
	"basecamp/pkg/model"
	"basecamp/pkg/sanitizer"
)

type CampsiteService interface {
	Create(ctx context.Context, campsite *model.Campsite) error
	GetByID(ctx context.Context, id string) (*model.Campsite, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Campsite, int64, error)
	UpdateName(ctx context.Context, id string, updates *model.CampsiteUpdate) error
	Delete(ctx context.Context, id string) error
	GetAvailability(ctx context.Context, id string, start, end *time.Time) ([]model.AvailabilityView, error)
}

type campsiteService struct {
	repo             repository.CampsiteRepository
	availabilityRepo repository.AvailabilityRepository
	reservationRepo  repository.ReservationRepository
	calendar         CalendarService
	validator        *validator.CampsiteValidator
	cfg              *config.Config
	now              func() time.Time
}

func NewCampsiteService(
	repo repository.CampsiteRepository,
	availabilityRepo repository.AvailabilityRepository,
	reservationRepo repository.ReservationRepository,
	calendar CalendarService,
	validator *validator.CampsiteValidator,
	cfg *config.Config,
) CampsiteService {
	return &campsiteService{
		repo:             repo,
		availabilityRepo: availabilityRepo,
		reservationRepo:  reservationRepo,
		calendar:         calendar,
		validator:        validator,
		cfg:              cfg,
		now:              time.Now,
	}
}

// Create stores the campsite and seeds its first year of availability.
func (s *campsiteService) Create(ctx context.Context, campsite *model.Campsite) error {
	campsite.Name = sanitizer.NormalizeName(campsite.Name)

	if err := s.validator.Validate(campsite); err != nil {
		s.cfg.Log.Warn("Campsite validation failed", "error", err)
		return apperrors.Validation("Campsite validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.repo.Create(ctx, campsite); err != nil {
		s.cfg.Log.Error("Failed to create campsite", "error", err)
		return apperrors.Internal("Failed to create campsite", err)
	}

	if _, err := s.calendar.EnsureCalendar(ctx, campsite); err != nil {
		// The campsite exists but has no bookable dates yet. The periodic
		// refresh will retry, so surface the partial state instead of
		// rolling back.
		s.cfg.Log.Error("Failed to seed availability calendar", "campsite_id", campsite.ID, "error", err)
		return apperrors.Internal("Campsite created but availability seeding failed", err)
	}

	s.cfg.Log.Info("Campsite created successfully",
		"id", campsite.ID,
		"name", campsite.Name,
		"capacity", campsite.Capacity,
	)
	return nil
}

func (s *campsiteService) GetByID(ctx context.Context, id string) (*model.Campsite, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Campsite ID cannot be empty")
	}

	campsite, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, campsiteerrors.ErrCampsiteNotFound) {
			return nil, apperrors.NotFoundWithID("Campsite", id)
		}
		if errors.Is(err, campsiteerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid campsite ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve campsite", err)
	}

	return campsite, nil
}

func (s *campsiteService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Campsite, int64, error) {
	var count int64
	var campsites []*model.Campsite
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count campsites", "error", errCount)
			errCount = apperrors.Internal("Failed to count campsites", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		campsites, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list campsites", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve campsites", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return campsites, count, nil
}

func (s *campsiteService) UpdateName(ctx context.Context, id string, updates *model.CampsiteUpdate) error {
	if id == "" {
		return apperrors.InvalidInput("Campsite ID cannot be empty")
	}

	updates.Name = sanitizer.NormalizeName(updates.Name)
	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Campsite update validation failed", "id", id, "error", err)
		return apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	if err := s.repo.UpdateName(ctx, id, updates.Name); err != nil {
		if errors.Is(err, campsiteerrors.ErrCampsiteNotFound) {
			return apperrors.NotFoundWithID("Campsite", id)
		}
		if errors.Is(err, campsiteerrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid campsite ID format")
		}
		s.cfg.Log.Error("Failed to update campsite", "id", id, "error", err)
		return apperrors.Internal("Failed to update campsite", err)
	}

	s.cfg.Log.Info("Campsite updated successfully", "id", id)
	return nil
}

// Delete removes the campsite together with its availability calendar and
// reservations in one transaction.
func (s *campsiteService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Campsite ID cannot be empty")
	}

	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, id); err != nil {
			if errors.Is(err, campsiteerrors.ErrCampsiteNotFound) {
				return apperrors.NotFoundWithID("Campsite", id)
			}
			if errors.Is(err, campsiteerrors.ErrInvalidID) {
				return apperrors.InvalidInput("Invalid campsite ID format")
			}
			return apperrors.Internal("Failed to delete campsite", err)
		}
		if err := s.reservationRepo.DeleteByCampsite(txCtx, id); err != nil {
			return apperrors.Internal("Failed to delete campsite reservations", err)
		}
		if err := s.availabilityRepo.DeleteByCampsite(txCtx, id); err != nil {
			return apperrors.Internal("Failed to delete campsite availability", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cfg.Log.Info("Campsite deleted successfully", "id", id)
	return nil
}

// GetAvailability returns the per-date remaining capacity for a display
// range. The range defaults to today and is clamped to the configured number
// of days; dates past the calendar horizon are simply absent.
func (s *campsiteService) GetAvailability(ctx context.Context, id string, start, end *time.Time) ([]model.AvailabilityView, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}

	rangeStart := model.NormalizeDate(s.now())
	if start != nil {
		rangeStart = model.NormalizeDate(*start)
	}

	maxEnd := rangeStart.AddDate(0, 0, s.cfg.AvailabilityRangeDays)
	rangeEnd := maxEnd
	if end != nil {
		rangeEnd = model.NormalizeDate(*end)
	}

	if !rangeEnd.After(rangeStart) {
		return nil, apperrors.InvalidInput("end date must be after start date")
	}
	if rangeEnd.After(maxEnd) {
		rangeEnd = maxEnd
	}

	records, err := s.availabilityRepo.FindRange(ctx, id, rangeStart, rangeEnd)
	if err != nil {
		s.cfg.Log.Error("Failed to read availability", "campsite_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve availability", err)
	}

	return model.AvailabilityViews(records), nil
}

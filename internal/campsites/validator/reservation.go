package validator

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"basecamp/pkg/config"
	"basecamp/pkg/logger"
	"basecamp/pkg/model"
)

// ReservationValidator covers both structural rules (tags on the model) and
// the stay rules driven by configuration: maximum stay length and the booking
// window relative to the current date.
type ReservationValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
	cfg      *config.Config

	// now is swappable so window rules can be tested against a fixed date.
	now func() time.Time
}

func NewReservationValidator(log *logger.Logger, cfg *config.Config) *ReservationValidator {
	return &ReservationValidator{
		validate: validator.New(),
		logger:   log,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (v *ReservationValidator) Validate(reservation *model.Reservation) error {
	if err := v.validate.Struct(reservation); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}

	return v.ValidateSpan(reservation.CheckIn, reservation.CheckOut)
}

func (v *ReservationValidator) ValidateUpdate(update *model.ReservationUpdate) error {
	if err := v.validate.Struct(update); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}

	if (update.CheckIn == nil) != (update.CheckOut == nil) {
		return ValidationErrors{
			ValidationError{
				Field:   "CheckIn",
				Message: "check_in and check_out must be provided together",
			},
		}
	}

	return nil
}

// ValidateSpan enforces the stay rules on a normalized [checkIn, checkOut)
// span: checkout strictly after checkin, stay length within the maximum, and
// checkin inside the configured booking window counted from today.
func (v *ReservationValidator) ValidateSpan(checkIn, checkOut time.Time) error {
	checkIn = model.NormalizeDate(checkIn)
	checkOut = model.NormalizeDate(checkOut)

	if !checkOut.After(checkIn) {
		return ValidationErrors{
			ValidationError{
				Field:   "CheckOut",
				Message: "check_out must be after check_in",
			},
		}
	}

	if nights := model.DaysBetween(checkIn, checkOut); nights > v.cfg.ReservationMaxDays {
		return ValidationErrors{
			ValidationError{
				Field:   "CheckOut",
				Message: fmt.Sprintf("stay cannot exceed %d days, got %d", v.cfg.ReservationMaxDays, nights),
			},
		}
	}

	today := model.NormalizeDate(v.now())
	daysAhead := model.DaysBetween(today, checkIn)

	if daysAhead < v.cfg.ReservationMinDaysAhead {
		return ValidationErrors{
			ValidationError{
				Field:   "CheckIn",
				Message: fmt.Sprintf("check_in must be at least %d day(s) ahead", v.cfg.ReservationMinDaysAhead),
			},
		}
	}
	if daysAhead > v.cfg.ReservationMaxDaysAhead {
		return ValidationErrors{
			ValidationError{
				Field:   "CheckIn",
				Message: fmt.Sprintf("check_in cannot be more than %d day(s) ahead", v.cfg.ReservationMaxDaysAhead),
			},
		}
	}

	return nil
}

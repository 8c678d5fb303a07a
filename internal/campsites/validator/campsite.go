package validator

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"basecamp/pkg/logger"
	"basecamp/pkg/model"
)

type CampsiteValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewCampsiteValidator(log *logger.Logger) *CampsiteValidator {
	return &CampsiteValidator{
		validate: validator.New(),
		logger:   log,
	}
}

func (v *CampsiteValidator) Validate(campsite *model.Campsite) error {
	if err := v.validate.Struct(campsite); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *CampsiteValidator) ValidateUpdate(update *model.CampsiteUpdate) error {
	if err := v.validate.Struct(update); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}

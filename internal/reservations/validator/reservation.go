package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"roomres/pkg/clock"
	"roomres/pkg/logger"
	"roomres/pkg/model"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// ReservationValidator checks reservations entering the system through the
// booking endpoint. Lifecycle transitions are guarded elsewhere.
type ReservationValidator struct {
	validate *validator.Validate
	clock    clock.Clock
	logger   *logger.Logger
}

func NewReservationValidator(clk clock.Clock, log *logger.Logger) *ReservationValidator {
	v := validator.New()

	if err := v.RegisterValidation("idnumber", validateIDNumber); err != nil {
		log.Fatal("Failed to register 'idnumber' validator", "error", err)
	}

	return &ReservationValidator{
		validate: v,
		clock:    clk,
		logger:   log,
	}
}

var idNumberRegex = regexp.MustCompile(`^[0-9]{2,12}(-[0-9]{1,8})?$`)

func validateIDNumber(fl validator.FieldLevel) bool {
	return idNumberRegex.MatchString(fl.Field().String())
}

func (v *ReservationValidator) Validate(res *model.Reservation) error {
	if err := v.validate.Struct(res); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}

	if !res.EndTime.After(res.StartTime) {
		return ValidationErrors{
			ValidationError{Field: "EndTime", Message: "end_time must be after start_time"},
		}
	}

	if res.StartTime.Before(v.clock.Now()) {
		return ValidationErrors{
			ValidationError{Field: "StartTime", Message: "start_time cannot be in the past"},
		}
	}

	if len(res.Participants) > res.NumUsers {
		return ValidationErrors{
			ValidationError{
				Field:   "Participants",
				Message: fmt.Sprintf("participants count (%d) exceeds declared headcount (%d)", len(res.Participants), res.NumUsers),
			},
		}
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
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		case "idnumber":
			message = fmt.Sprintf("%s must be a student or employee ID number", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}

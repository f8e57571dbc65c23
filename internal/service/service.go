package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"suzukitracker/internal/database"
	"suzukitracker/internal/metrics"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput runs struct tag validation and wraps failures in ErrValidation
func validateInput(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		msgs := make([]string, len(fieldErrs))
		for i, fe := range fieldErrs {
			msgs[i] = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// Deps are the collaborators every core service shares
type Deps struct {
	DB      *database.DB
	Guard   *Guard
	Log     *zap.Logger
	Metrics *metrics.Recorder
}

// finish records the outcome of operation and logs rejected or failed calls
func (d Deps) finish(operation string, err error, fields ...zap.Field) {
	result := Classify(err)
	d.Metrics.Observe(operation, result)

	switch result {
	case metrics.ResultOK:
		d.Log.Info(operation, fields...)
	case metrics.ResultError:
		d.Log.Error(operation+" failed", append(fields, zap.Error(err))...)
	default:
		d.Log.Warn(operation+" rejected", append(fields, zap.String("reason", result), zap.Error(err))...)
	}
}

// observe records the outcome of a read-only operation without logging it
func (d Deps) observe(operation string, err error) {
	d.Metrics.Observe(operation, Classify(err))
}

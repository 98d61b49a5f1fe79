package usecase

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
)

// Sentinel errors for use case layer
var (
	// ErrNothingToUpdate is returned when a partial update carries no applicable field
	ErrNothingToUpdate = errors.New("nothing to update")
)

// Context keys for error values
const (
	FieldKey = "field"
)

func validationError(msg, field string) error {
	return goerr.Wrap(model.ErrValidation, msg, goerr.V(FieldKey, field))
}

func nothingToUpdate(opts ...goerr.Option) error {
	return goerr.Wrap(errors.Join(model.ErrValidation, ErrNothingToUpdate), "nothing to update", opts...)
}

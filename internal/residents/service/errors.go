package service

import (
	"errors"
	"fmt"
	"strings"

	"condo/internal/residents/models"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/platform/sentinel"
)

// MessagePrincipalTaken is reported on is_principal when a unit already has
// a principal residency.
const MessagePrincipalTaken = "This unit already has a principal resident."

func translatePersonErr(err error) error {
	var derr *dErrors.Error
	switch {
	case errors.As(err, &derr):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "resident not found")
	case errors.Is(err, sentinel.ErrDuplicate):
		return duplicatePersonErr(err)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "residents store failure")
	}
}

func duplicatePersonErr(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, models.ConstraintPersonEmail):
		return dErrors.Validation(map[string][]string{"email": {"Person with this email already exists."}})
	case strings.Contains(msg, models.ConstraintPersonIdentity):
		return dErrors.Validation(map[string][]string{"identity_id": {"This identity already has a person profile."}})
	default:
		return dErrors.Validation(map[string][]string{"code": {"Person with this code already exists."}})
	}
}

func translateResidencyErr(err error) error {
	var derr *dErrors.Error
	switch {
	case errors.As(err, &derr):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "residency not found")
	case errors.Is(err, sentinel.ErrReferenced):
		return dErrors.New(dErrors.CodeValidation, "residency references a missing record")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "residents store failure")
	}
}

func invalidPK(v fmt.Stringer) string {
	return fmt.Sprintf("Invalid pk %q - object does not exist.", v.String())
}

// asDomainErr passes coded errors through and wraps anything else as internal.
func asDomainErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	var derr *dErrors.Error
	if errors.As(err, &derr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

package service

import (
	"context"

	"condo/internal/auth/password"
	dErrors "condo/pkg/domain-errors"
)

const (
	msgUsernameTaken = "A user with that username already exists."
	msgEmailTaken    = "A user with this email already exists."
	msgCodeTaken     = "Person with this code already exists."
)

// validate checks password strength and uniqueness, collecting every
// failure before returning.
func (s *Service) validate(ctx context.Context, in Input) error {
	fields := dErrors.FieldErrors{}
	if err := password.Validate("password", in.Password, password.Attributes{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}); err != nil {
		fields.Merge(dErrors.Fields(err))
	}

	taken, err := s.identities.UsernameTaken(ctx, in.Username)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check username")
	}
	if taken {
		fields.Add("username", msgUsernameTaken)
	}

	taken, err = s.emailTaken(ctx, in.Email)
	if err != nil {
		return err
	}
	if taken {
		fields.Add("email", msgEmailTaken)
	}

	taken, err = s.residents.CodeTaken(ctx, in.Code)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check person code")
	}
	if taken {
		fields.Add("code", msgCodeTaken)
	}
	return fields.Err()
}

// emailTaken checks both logins and person profiles, which may exist
// without a login.
func (s *Service) emailTaken(ctx context.Context, email string) (bool, error) {
	taken, err := s.identities.EmailTaken(ctx, email)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email")
	}
	if taken {
		return true, nil
	}
	taken, err = s.residents.EmailTaken(ctx, email)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email")
	}
	return taken, nil
}

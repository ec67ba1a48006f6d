package service

import (
	"context"

	"condo/internal/access"
	"condo/internal/gate/models"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/requestcontext"
)

type VisitorInput struct {
	FullName     string
	DocumentID   string
	AuthorizedBy *id.ResidencyID
}

// VisitorPatch is a partial update. ClearAuthorizer removes the authorizer.
type VisitorPatch struct {
	FullName        *string
	DocumentID      *string
	AuthorizedBy    *id.ResidencyID
	ClearAuthorizer bool
}

// ListVisitors lists the log newest first. Residents only see visitors
// they authorized.
func (s *Service) ListVisitors(ctx context.Context, insideOnly bool) ([]*models.Visitor, error) {
	scope, err := s.scope(ctx, access.Visitors)
	if err != nil {
		return nil, translate(err, "visitor")
	}
	visitors, err := s.store.ListVisitors(ctx, models.VisitorFilter{Scope: scope, InsideOnly: insideOnly})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list visitors")
	}
	return visitors, nil
}

func (s *Service) GetVisitor(ctx context.Context, visitorID id.VisitorID) (*models.Visitor, error) {
	v, err := s.store.FindVisitor(ctx, visitorID)
	if err != nil {
		return nil, translate(err, "visitor")
	}
	scope, err := s.scope(ctx, access.Visitors)
	if err != nil {
		return nil, translate(err, "visitor")
	}
	if !scope.Allows(v.AuthorizedBy) {
		return nil, dErrors.New(dErrors.CodeNotFound, "visitor not found")
	}
	return v, nil
}

// RecordEntry logs a visitor entering now.
func (s *Service) RecordEntry(ctx context.Context, in VisitorInput) (*models.Visitor, error) {
	v := &models.Visitor{
		ID:           newVisitorID(),
		FullName:     in.FullName,
		DocumentID:   in.DocumentID,
		EnteredAt:    requestcontext.Now(ctx),
		AuthorizedBy: in.AuthorizedBy,
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.validateVisitor(ctx, v); err != nil {
			return err
		}
		return s.store.CreateVisitor(ctx, v)
	})
	if err != nil {
		return nil, translate(err, "visitor")
	}
	s.logger.InfoContext(ctx, "visitor entered", "visitor_id", v.ID.String())
	return v, nil
}

// RecordExit stamps the exit time. A visitor can leave once.
func (s *Service) RecordExit(ctx context.Context, visitorID id.VisitorID) (*models.Visitor, error) {
	var updated *models.Visitor
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		v, err := s.store.FindVisitor(ctx, visitorID)
		if err != nil {
			return err
		}
		if !v.Inside() {
			return dErrors.Validation(map[string][]string{"exited_at": {"Visitor has already exited."}})
		}
		now := requestcontext.Now(ctx)
		v.ExitedAt = &now
		if err := s.store.UpdateVisitor(ctx, v); err != nil {
			return err
		}
		updated = v
		return nil
	})
	if err != nil {
		return nil, translate(err, "visitor")
	}
	return updated, nil
}

func (s *Service) UpdateVisitor(ctx context.Context, visitorID id.VisitorID, p VisitorPatch) (*models.Visitor, error) {
	var updated *models.Visitor
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		v, err := s.store.FindVisitor(ctx, visitorID)
		if err != nil {
			return err
		}
		setIf(&v.FullName, p.FullName)
		setIf(&v.DocumentID, p.DocumentID)
		switch {
		case p.ClearAuthorizer:
			v.AuthorizedBy = nil
		case p.AuthorizedBy != nil:
			v.AuthorizedBy = p.AuthorizedBy
		}
		if err := s.validateVisitor(ctx, v); err != nil {
			return err
		}
		if err := s.store.UpdateVisitor(ctx, v); err != nil {
			return err
		}
		updated = v
		return nil
	})
	if err != nil {
		return nil, translate(err, "visitor")
	}
	return updated, nil
}

func (s *Service) DeleteVisitor(ctx context.Context, visitorID id.VisitorID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.DeleteVisitor(ctx, visitorID)
	})
	if err != nil {
		return translate(err, "visitor")
	}
	return nil
}

func (s *Service) validateVisitor(ctx context.Context, v *models.Visitor) error {
	fields := dErrors.FieldErrors{}
	if v.FullName == "" {
		fields.Add("full_name", "This field may not be blank.")
	}
	if v.AuthorizedBy != nil {
		if err := s.checkResidency(ctx, fields, "authorized_by", *v.AuthorizedBy); err != nil {
			return err
		}
	}
	return fields.Err()
}

package service

import (
	"context"

	"condo/internal/access"
	"condo/internal/gate/models"
	id "condo/pkg/domain"
	dErrors "condo/pkg/domain-errors"
	"condo/pkg/requestcontext"
)

type VehicleInput struct {
	Plate       string
	Brand       string
	Model       string
	Color       string
	ResidencyID id.ResidencyID
}

// VehiclePatch is a partial update; nil fields are left unchanged.
type VehiclePatch struct {
	Plate       *string
	Brand       *string
	Model       *string
	Color       *string
	ResidencyID *id.ResidencyID
}

// ListVehicles lists vehicles, optionally of one residency. Residents only
// see vehicles of their own residencies.
func (s *Service) ListVehicles(ctx context.Context, residencyID *id.ResidencyID) ([]*models.Vehicle, error) {
	scope, err := s.scope(ctx, access.Vehicles)
	if err != nil {
		return nil, translate(err, "vehicle")
	}
	vehicles, err := s.store.ListVehicles(ctx, models.VehicleFilter{Scope: scope, ResidencyID: residencyID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list vehicles")
	}
	return vehicles, nil
}

// GetVehicle hides vehicles outside the caller's scope as not found.
func (s *Service) GetVehicle(ctx context.Context, vehicleID id.VehicleID) (*models.Vehicle, error) {
	v, err := s.store.FindVehicle(ctx, vehicleID)
	if err != nil {
		return nil, translate(err, "vehicle")
	}
	scope, err := s.scope(ctx, access.Vehicles)
	if err != nil {
		return nil, translate(err, "vehicle")
	}
	if !scope.Allows(&v.ResidencyID) {
		return nil, dErrors.New(dErrors.CodeNotFound, "vehicle not found")
	}
	return v, nil
}

func (s *Service) CreateVehicle(ctx context.Context, in VehicleInput) (*models.Vehicle, error) {
	v := &models.Vehicle{
		ID:          newVehicleID(),
		Plate:       models.NormalizePlate(in.Plate),
		Brand:       in.Brand,
		Model:       in.Model,
		Color:       in.Color,
		ResidencyID: in.ResidencyID,
		CreatedAt:   requestcontext.Now(ctx),
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.validateVehicle(ctx, v); err != nil {
			return err
		}
		return s.store.CreateVehicle(ctx, v)
	})
	if err != nil {
		return nil, translate(err, "vehicle")
	}
	s.logger.InfoContext(ctx, "vehicle registered", "vehicle_id", v.ID.String(), "plate", v.Plate)
	return v, nil
}

func (s *Service) UpdateVehicle(ctx context.Context, vehicleID id.VehicleID, p VehiclePatch) (*models.Vehicle, error) {
	var updated *models.Vehicle
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		v, err := s.store.FindVehicle(ctx, vehicleID)
		if err != nil {
			return err
		}
		if p.Plate != nil {
			v.Plate = models.NormalizePlate(*p.Plate)
		}
		setIf(&v.Brand, p.Brand)
		setIf(&v.Model, p.Model)
		setIf(&v.Color, p.Color)
		if p.ResidencyID != nil {
			v.ResidencyID = *p.ResidencyID
		}
		if err := s.validateVehicle(ctx, v); err != nil {
			return err
		}
		if err := s.store.UpdateVehicle(ctx, v); err != nil {
			return err
		}
		updated = v
		return nil
	})
	if err != nil {
		return nil, translate(err, "vehicle")
	}
	return updated, nil
}

func (s *Service) DeleteVehicle(ctx context.Context, vehicleID id.VehicleID) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.DeleteVehicle(ctx, vehicleID)
	})
	if err != nil {
		return translate(err, "vehicle")
	}
	return nil
}

func (s *Service) validateVehicle(ctx context.Context, v *models.Vehicle) error {
	fields := dErrors.FieldErrors{}
	if v.Plate == "" {
		fields.Add("plate", "This field may not be blank.")
	}
	if err := s.checkResidency(ctx, fields, "residency_id", v.ResidencyID); err != nil {
		return err
	}
	return fields.Err()
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

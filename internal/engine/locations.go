package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/davidweatherstone/move-my-pallets/models"
)

// Location management. Locations only feed the address choices on requests;
// they are company-scoped for listing and creator-scoped for mutation.

type LocationInput struct {
	Name    string `validate:"required,max=100"`
	Street  string `validate:"required,max=200"`
	City    string `validate:"required,max=100"`
	Country string `validate:"required,max=100"`
	Zipcode string `validate:"required,max=20"`
}

func (e *Engine) ListLocations(ctx context.Context, caller models.Identity) ([]models.Location, error) {
	if caller.Role != models.RoleCustomer {
		return nil, fmt.Errorf("%w: customer view", ErrUnauthorized)
	}
	ls, err := e.store.LocationsForCompany(ctx, caller.Company)
	if err != nil {
		return nil, classify(err)
	}
	return ls, nil
}

func (e *Engine) CreateLocation(ctx context.Context, caller models.Identity, in LocationInput) (*models.Location, error) {
	if caller.Role != models.RoleCustomer {
		return nil, fmt.Errorf("%w: only customers manage locations", ErrUnauthorized)
	}
	if err := e.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	l := &models.Location{
		CreatedBy: caller.UserID,
		Company:   caller.Company,
		Name:      in.Name,
		Street:    in.Street,
		City:      in.City,
		Country:   in.Country,
		Zipcode:   in.Zipcode,
	}
	if err := e.store.InsertLocation(ctx, l); err != nil {
		return nil, classify(err)
	}

	e.log.Info("location created", zap.Int("location_id", l.ID), zap.String("company", l.Company))
	return l, nil
}

func (e *Engine) UpdateLocation(ctx context.Context, caller models.Identity, id int, in LocationInput) (*models.Location, error) {
	if caller.Role != models.RoleCustomer {
		return nil, fmt.Errorf("%w: only customers manage locations", ErrUnauthorized)
	}
	if err := e.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var updated *models.Location
	err := e.store.Transact(ctx, func(tx Store) error {
		l, err := tx.GetLocation(ctx, id)
		if err != nil {
			return err
		}
		if l.CreatedBy != caller.UserID {
			return fmt.Errorf("%w: location %d was created by another user", ErrUnauthorized, id)
		}
		l.Name, l.Street, l.City, l.Country, l.Zipcode = in.Name, in.Street, in.City, in.Country, in.Zipcode
		if err := tx.UpdateLocation(ctx, l); err != nil {
			return err
		}
		updated = l
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return updated, nil
}

func (e *Engine) DeleteLocation(ctx context.Context, caller models.Identity, id int) error {
	if caller.Role != models.RoleCustomer {
		return fmt.Errorf("%w: only customers manage locations", ErrUnauthorized)
	}

	err := e.store.Transact(ctx, func(tx Store) error {
		l, err := tx.GetLocation(ctx, id)
		if err != nil {
			return err
		}
		if l.CreatedBy != caller.UserID {
			return fmt.Errorf("%w: location %d was created by another user", ErrUnauthorized, id)
		}
		return tx.DeleteLocation(ctx, id)
	})
	if err != nil {
		return classify(err)
	}

	e.log.Info("location removed", zap.Int("location_id", id))
	return nil
}

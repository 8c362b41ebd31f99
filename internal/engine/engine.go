// Package engine owns the request/bid lifecycle state machine: how a
// request's status and its bids' statuses evolve as customers create, cancel
// and resolve requests and as suppliers bid. Every operation takes the
// caller's identity explicitly, checks authorization first, and executes as a
// single atomic transaction against the Store.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/davidweatherstone/move-my-pallets/models"
)

type Engine struct {
	store    Store
	log      *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

func New(store Store, log *zap.Logger) *Engine {
	return &Engine{
		store:    store,
		log:      log,
		validate: validator.New(),
		now:      time.Now,
	}
}

// RequestInput carries the customer-editable fields of a request. The
// engine enforces the ranges itself so a bypassed form cannot write bad
// rows.
type RequestInput struct {
	CollectionAddress string    `validate:"required,max=200"`
	DeliveryAddress   string    `validate:"required,max=200"`
	CollectionDate    time.Time `validate:"required"`
	DeliveryDate      time.Time `validate:"required"`
	Pallets           int       `validate:"min=1,max=10"`
	Weight            int       `validate:"min=1,max=10000"`
}

func (e *Engine) validateRequestInput(in RequestInput) error {
	if err := e.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	today := e.now().UTC().Truncate(24 * time.Hour)
	if in.CollectionDate.Before(today) {
		return fmt.Errorf("%w: collection date must not be in the past", ErrInvalidInput)
	}
	if in.DeliveryDate.Before(in.CollectionDate) {
		return fmt.Errorf("%w: delivery date must not be before the collection date", ErrInvalidInput)
	}
	return nil
}

// CreateRequest inserts a new request for the caller's company with status
// "Awaiting bids" and returns the stored row.
func (e *Engine) CreateRequest(ctx context.Context, caller models.Identity, in RequestInput) (*models.Request, error) {
	if caller.Role != models.RoleCustomer {
		return nil, fmt.Errorf("%w: only customers create requests", ErrUnauthorized)
	}
	if err := e.validateRequestInput(in); err != nil {
		return nil, err
	}

	r := &models.Request{
		CreatedBy:         caller.UserID,
		Company:           caller.Company,
		CollectionAddress: in.CollectionAddress,
		DeliveryAddress:   in.DeliveryAddress,
		CollectionDate:    in.CollectionDate,
		DeliveryDate:      in.DeliveryDate,
		Pallets:           in.Pallets,
		Weight:            in.Weight,
		Status:            models.RequestAwaitingBids,
	}
	if err := e.store.InsertRequest(ctx, r); err != nil {
		return nil, classify(err)
	}

	e.log.Info("request created",
		zap.Int("request_id", r.ID),
		zap.String("company", r.Company))
	return r, nil
}

// UpdateRequest replaces the logistics fields of an existing request owned by
// the caller's company. The request's status is never touched, and a Complete
// request may still be edited; resolving a request freezes its bids, not its
// paperwork.
func (e *Engine) UpdateRequest(ctx context.Context, caller models.Identity, id int, in RequestInput) (*models.Request, error) {
	if caller.Role != models.RoleCustomer {
		return nil, fmt.Errorf("%w: only customers update requests", ErrUnauthorized)
	}
	if err := e.validateRequestInput(in); err != nil {
		return nil, err
	}

	var updated *models.Request
	err := e.store.Transact(ctx, func(tx Store) error {
		r, err := tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if r.Company != caller.Company {
			return fmt.Errorf("%w: request %d belongs to another company", ErrUnauthorized, id)
		}
		if err := tx.UpdateRequestFields(ctx, id, in); err != nil {
			return err
		}
		r.CollectionAddress = in.CollectionAddress
		r.DeliveryAddress = in.DeliveryAddress
		r.CollectionDate = in.CollectionDate
		r.DeliveryDate = in.DeliveryDate
		r.Pallets = in.Pallets
		r.Weight = in.Weight
		updated = r
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	e.log.Info("request updated", zap.Int("request_id", id))
	return updated, nil
}

// CancelRequest deletes a request owned by the caller's company. A Complete
// request cannot be removed. Bids against the request are left in place.
func (e *Engine) CancelRequest(ctx context.Context, caller models.Identity, id int) error {
	if caller.Role != models.RoleCustomer {
		return fmt.Errorf("%w: only customers cancel requests", ErrUnauthorized)
	}

	err := e.store.Transact(ctx, func(tx Store) error {
		r, err := tx.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if r.Company != caller.Company {
			return fmt.Errorf("%w: request %d belongs to another company", ErrUnauthorized, id)
		}
		if r.Status == models.RequestComplete {
			return fmt.Errorf("%w: request %d is complete and cannot be removed", ErrInvalidState, id)
		}
		return tx.DeleteRequest(ctx, id)
	})
	if err != nil {
		return classify(err)
	}

	e.log.Info("request cancelled", zap.Int("request_id", id))
	return nil
}

// SubmitBid records a supplier offer against a request and moves the request
// to "Bid(s) received". Bidding against a Complete request is refused.
func (e *Engine) SubmitBid(ctx context.Context, caller models.Identity, requestID int, amount float64) (*models.Bid, error) {
	if caller.Role != models.RoleSupplier {
		return nil, fmt.Errorf("%w: only suppliers submit bids", ErrUnauthorized)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: bid amount must be positive", ErrInvalidInput)
	}

	b := &models.Bid{
		RequestID: requestID,
		CreatedBy: caller.UserID,
		Amount:    amount,
		Status:    models.BidPending,
	}
	err := e.store.Transact(ctx, func(tx Store) error {
		r, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if r.Status == models.RequestComplete {
			return fmt.Errorf("%w: request %d is complete and no longer open for bids", ErrInvalidState, requestID)
		}
		if err := tx.InsertBid(ctx, b); err != nil {
			return err
		}
		return tx.SetRequestStatus(ctx, requestID, models.RequestBidsReceived)
	})
	if err != nil {
		return nil, classify(err)
	}

	e.log.Info("bid submitted",
		zap.Int("bid_id", b.ID),
		zap.Int("request_id", requestID),
		zap.String("company", caller.Company))
	return b, nil
}

// AcceptBid resolves a request: the accepted bid wins, every sibling bid is
// rejected, and the request becomes Complete. Only the customer company that
// owns the parent request may accept.
func (e *Engine) AcceptBid(ctx context.Context, caller models.Identity, bidID int) error {
	if caller.Role != models.RoleCustomer {
		return fmt.Errorf("%w: only customers accept bids", ErrUnauthorized)
	}

	var requestID int
	err := e.store.Transact(ctx, func(tx Store) error {
		b, err := tx.GetBid(ctx, bidID)
		if err != nil {
			return err
		}
		r, err := tx.GetRequest(ctx, b.RequestID)
		if err != nil {
			return err
		}
		if r.Company != caller.Company {
			return fmt.Errorf("%w: request %d belongs to another company", ErrUnauthorized, r.ID)
		}
		if r.Status == models.RequestComplete {
			return fmt.Errorf("%w: request %d is already complete", ErrInvalidState, r.ID)
		}
		requestID = r.ID

		if err := tx.SetRequestStatus(ctx, r.ID, models.RequestComplete); err != nil {
			return err
		}
		if err := tx.SetBidStatus(ctx, bidID, models.BidAccepted); err != nil {
			return err
		}
		return tx.RejectOtherBids(ctx, r.ID, bidID)
	})
	if err != nil {
		return classify(err)
	}

	e.log.Info("bid accepted",
		zap.Int("bid_id", bidID),
		zap.Int("request_id", requestID))
	return nil
}

// RejectBid marks one bid Rejected. The active-bid count is taken before the
// target bid is mutated, so the bid being rejected counts as still active: a
// pre-count of exactly 1 means it was the last active bid and the request
// reverts to "Awaiting bids".
func (e *Engine) RejectBid(ctx context.Context, caller models.Identity, bidID int) error {
	if caller.Role != models.RoleCustomer {
		return fmt.Errorf("%w: only customers reject bids", ErrUnauthorized)
	}

	var requestID int
	err := e.store.Transact(ctx, func(tx Store) error {
		b, err := tx.GetBid(ctx, bidID)
		if err != nil {
			return err
		}
		r, err := tx.GetRequest(ctx, b.RequestID)
		if err != nil {
			return err
		}
		if r.Company != caller.Company {
			return fmt.Errorf("%w: request %d belongs to another company", ErrUnauthorized, r.ID)
		}
		if r.Status == models.RequestComplete {
			return fmt.Errorf("%w: request %d is already complete", ErrInvalidState, r.ID)
		}
		requestID = r.ID

		active, err := tx.CountActiveBids(ctx, r.ID)
		if err != nil {
			return err
		}
		if err := tx.SetBidStatus(ctx, bidID, models.BidRejected); err != nil {
			return err
		}
		if active == 1 {
			return tx.SetRequestStatus(ctx, r.ID, models.RequestAwaitingBids)
		}
		return nil
	})
	if err != nil {
		return classify(err)
	}

	e.log.Info("bid rejected",
		zap.Int("bid_id", bidID),
		zap.Int("request_id", requestID))
	return nil
}

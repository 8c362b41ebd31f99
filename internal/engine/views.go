package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/davidweatherstone/move-my-pallets/models"
)

// Read-only projections backing the customer and supplier dashboards. Each
// view checks the caller's role first, then reads through the store.

// RequestsForCompany lists the caller company's requests, newest first.
func (e *Engine) RequestsForCompany(ctx context.Context, caller models.Identity) ([]models.Request, error) {
	if caller.Role != models.RoleCustomer {
		return nil, fmt.Errorf("%w: customer view", ErrUnauthorized)
	}
	rs, err := e.store.RequestsForCompany(ctx, caller.Company)
	if err != nil {
		return nil, classify(err)
	}
	return rs, nil
}

// RequestBids returns a request together with every bid made against it,
// rejected ones included, each carrying the bidding company.
func (e *Engine) RequestBids(ctx context.Context, caller models.Identity, requestID int) (*models.Request, []models.BidWithCompany, error) {
	if caller.Role != models.RoleCustomer {
		return nil, nil, fmt.Errorf("%w: customer view", ErrUnauthorized)
	}
	r, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, nil, classify(err)
	}
	bids, err := e.store.BidsForRequest(ctx, requestID)
	if err != nil {
		return nil, nil, classify(err)
	}
	return r, bids, nil
}

// SupplierDashboard partitions requests for a supplier company: open requests
// it has not bid on, live requests it has bid on, and completed requests it
// won. The store computes all three against one snapshot so a request cannot
// appear in two partitions.
func (e *Engine) SupplierDashboard(ctx context.Context, caller models.Identity) (*models.SupplierDashboard, error) {
	if caller.Role != models.RoleSupplier {
		return nil, fmt.Errorf("%w: supplier view", ErrUnauthorized)
	}
	d, err := e.store.SupplierDashboard(ctx, caller.Company)
	if err != nil {
		return nil, classify(err)
	}
	return d, nil
}

// MyBids lists every bid placed by users of the caller's company, newest first.
func (e *Engine) MyBids(ctx context.Context, caller models.Identity) ([]models.Bid, error) {
	if caller.Role != models.RoleSupplier {
		return nil, fmt.Errorf("%w: supplier view", ErrUnauthorized)
	}
	bids, err := e.store.BidsForCompany(ctx, caller.Company)
	if err != nil {
		return nil, classify(err)
	}
	return bids, nil
}

// SupplierRequestDetail returns a request plus the caller company's bid on
// it, if any. The bid is nil when the company has not bid.
func (e *Engine) SupplierRequestDetail(ctx context.Context, caller models.Identity, requestID int) (*models.Request, *models.Bid, error) {
	if caller.Role != models.RoleSupplier {
		return nil, nil, fmt.Errorf("%w: supplier view", ErrUnauthorized)
	}
	r, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, nil, classify(err)
	}
	b, err := e.store.CompanyBidForRequest(ctx, requestID, caller.Company)
	if errors.Is(err, sql.ErrNoRows) {
		return r, nil, nil
	}
	if err != nil {
		return nil, nil, classify(err)
	}
	return r, b, nil
}

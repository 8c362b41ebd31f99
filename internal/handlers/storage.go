package handlers

import (
	"context"

	"github.com/davidweatherstone/move-my-pallets/internal/engine"
	"github.com/davidweatherstone/move-my-pallets/models"
)

// LifecycleEngine is the slice of the engine the handlers invoke. Mocked in
// handler tests.
type LifecycleEngine interface {
	CreateRequest(ctx context.Context, caller models.Identity, in engine.RequestInput) (*models.Request, error)
	UpdateRequest(ctx context.Context, caller models.Identity, id int, in engine.RequestInput) (*models.Request, error)
	CancelRequest(ctx context.Context, caller models.Identity, id int) error
	SubmitBid(ctx context.Context, caller models.Identity, requestID int, amount float64) (*models.Bid, error)
	AcceptBid(ctx context.Context, caller models.Identity, bidID int) error
	RejectBid(ctx context.Context, caller models.Identity, bidID int) error

	RequestsForCompany(ctx context.Context, caller models.Identity) ([]models.Request, error)
	RequestBids(ctx context.Context, caller models.Identity, requestID int) (*models.Request, []models.BidWithCompany, error)
	SupplierDashboard(ctx context.Context, caller models.Identity) (*models.SupplierDashboard, error)
	MyBids(ctx context.Context, caller models.Identity) ([]models.Bid, error)
	SupplierRequestDetail(ctx context.Context, caller models.Identity, requestID int) (*models.Request, *models.Bid, error)

	ListLocations(ctx context.Context, caller models.Identity) ([]models.Location, error)
	CreateLocation(ctx context.Context, caller models.Identity, in engine.LocationInput) (*models.Location, error)
	UpdateLocation(ctx context.Context, caller models.Identity, id int, in engine.LocationInput) (*models.Location, error)
	DeleteLocation(ctx context.Context, caller models.Identity, id int) error
}

// UserStore is the user lookup surface the handlers need for registration,
// login and identity resolution.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

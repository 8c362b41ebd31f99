package engine

import (
	"context"

	"github.com/davidweatherstone/move-my-pallets/models"
)

// Store is the persistence gateway the engine runs against. Row lookups
// return sql.ErrNoRows when nothing matches.
//
// Transact runs fn against a transaction-scoped Store: either every mutation
// inside fn commits, or none do. Implementations must serialize concurrent
// transactions touching the same rows; a Store already scoped to a
// transaction runs fn in place.
type Store interface {
	Transact(ctx context.Context, fn func(Store) error) error

	GetRequest(ctx context.Context, id int) (*models.Request, error)
	InsertRequest(ctx context.Context, r *models.Request) error
	UpdateRequestFields(ctx context.Context, id int, in RequestInput) error
	SetRequestStatus(ctx context.Context, id int, status models.RequestStatus) error
	DeleteRequest(ctx context.Context, id int) error

	GetBid(ctx context.Context, id int) (*models.Bid, error)
	InsertBid(ctx context.Context, b *models.Bid) error
	SetBidStatus(ctx context.Context, id int, status models.BidStatus) error
	// RejectOtherBids marks every bid on the request except keepID Rejected.
	RejectOtherBids(ctx context.Context, requestID, keepID int) error
	// CountActiveBids counts the request's bids whose status is not Rejected.
	CountActiveBids(ctx context.Context, requestID int) (int, error)

	RequestsForCompany(ctx context.Context, company string) ([]models.Request, error)
	BidsForRequest(ctx context.Context, requestID int) ([]models.BidWithCompany, error)
	// SupplierDashboard computes all three partitions against one snapshot.
	SupplierDashboard(ctx context.Context, company string) (*models.SupplierDashboard, error)
	BidsForCompany(ctx context.Context, company string) ([]models.Bid, error)
	CompanyBidForRequest(ctx context.Context, requestID int, company string) (*models.Bid, error)

	GetLocation(ctx context.Context, id int) (*models.Location, error)
	InsertLocation(ctx context.Context, l *models.Location) error
	UpdateLocation(ctx context.Context, l *models.Location) error
	DeleteLocation(ctx context.Context, id int) error
	LocationsForCompany(ctx context.Context, company string) ([]models.Location, error)
}

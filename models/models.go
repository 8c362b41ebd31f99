package models

import "time"

// User is a registered account belonging to a customer or supplier company.
type User struct {
	ID           int       `db:"id" json:"id"`
	Email        string    `db:"email" json:"email" validate:"required,email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Company      string    `db:"company" json:"company" validate:"required,max=100"`
	UserType     UserType  `db:"user_type" json:"userType" validate:"required"`
	FullName     string    `db:"full_name" json:"fullName" validate:"required,max=100"`
	CreatedDate  time.Time `db:"created_date" json:"createdDate"`
}

// Identity is the authenticated caller context passed explicitly into every
// engine operation. It is resolved upstream by the presentation layer.
type Identity struct {
	UserID  int
	Company string
	Role    UserType
}

// Identity returns the caller context for a stored user.
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Company: u.Company, Role: u.UserType}
}

// Location is a named address owned by a customer company, used to populate
// address choices on requests.
type Location struct {
	ID          int       `db:"id" json:"id"`
	CreatedBy   int       `db:"created_by" json:"createdBy"`
	Company     string    `db:"company" json:"company"`
	Name        string    `db:"name" json:"name" validate:"required,max=100"`
	Street      string    `db:"street" json:"street" validate:"required,max=200"`
	City        string    `db:"city" json:"city" validate:"required,max=100"`
	Country     string    `db:"country" json:"country" validate:"required,max=100"`
	Zipcode     string    `db:"zipcode" json:"zipcode" validate:"required,max=20"`
	CreatedDate time.Time `db:"created_date" json:"createdDate"`
}

// Request is one shipment request posted by a customer company.
type Request struct {
	ID                int           `db:"id" json:"id"`
	CreatedBy         int           `db:"created_by" json:"createdBy"`
	Company           string        `db:"company" json:"company"`
	CollectionAddress string        `db:"collection_address" json:"collectionAddress"`
	DeliveryAddress   string        `db:"delivery_address" json:"deliveryAddress"`
	CollectionDate    time.Time     `db:"collection_date" json:"collectionDate"`
	DeliveryDate      time.Time     `db:"delivery_date" json:"deliveryDate"`
	Pallets           int           `db:"pallets" json:"pallets"`
	Weight            int           `db:"weight" json:"weight"`
	Status            RequestStatus `db:"status" json:"status"`
	CreatedDate       time.Time     `db:"created_date" json:"createdDate"`
}

// Bid is one supplier offer against a request.
type Bid struct {
	ID          int       `db:"id" json:"id"`
	RequestID   int       `db:"request_id" json:"requestId"`
	CreatedBy   int       `db:"created_by" json:"createdBy"`
	Amount      float64   `db:"amount" json:"amount"`
	Status      BidStatus `db:"status" json:"status"`
	CreatedDate time.Time `db:"created_date" json:"createdDate"`
}

// BidWithCompany is a bid joined with the bidding user's company, as shown on
// the customer's per-request bid listing.
type BidWithCompany struct {
	Bid
	Company string `db:"company" json:"company"`
}

// DashboardRow is one request on the supplier dashboard, with the company's
// own bid attached for the bid/won partitions.
type DashboardRow struct {
	Request
	BidID *int `db:"bid_id" json:"bidId,omitempty"`
}

// SupplierDashboard partitions all requests visible to a supplier company.
// The three slices are disjoint and computed against a single snapshot.
type SupplierDashboard struct {
	Open []Request      `json:"open"`
	Bid  []DashboardRow `json:"bid"`
	Won  []DashboardRow `json:"won"`
}

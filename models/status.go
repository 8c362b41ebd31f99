package models

import (
	"database/sql/driver"
	"fmt"
)

// Closed enumerations for statuses and roles. The Scan implementations reject
// unrecognized values at the persistence boundary so a bad row never reaches
// the state machine.

type UserType string

const (
	RoleCustomer UserType = "Customer"
	RoleSupplier UserType = "Supplier"
)

func (t UserType) Valid() bool {
	return t == RoleCustomer || t == RoleSupplier
}

func (t *UserType) Scan(src any) error {
	v, err := scanString(src)
	if err != nil {
		return fmt.Errorf("user_type: %w", err)
	}
	if !UserType(v).Valid() {
		return fmt.Errorf("user_type: unrecognized value %q", v)
	}
	*t = UserType(v)
	return nil
}

func (t UserType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("user_type: unrecognized value %q", string(t))
	}
	return string(t), nil
}

type RequestStatus string

const (
	RequestAwaitingBids RequestStatus = "Awaiting bids"
	RequestBidsReceived RequestStatus = "Bid(s) received"
	RequestComplete     RequestStatus = "Complete"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestAwaitingBids, RequestBidsReceived, RequestComplete:
		return true
	}
	return false
}

func (s *RequestStatus) Scan(src any) error {
	v, err := scanString(src)
	if err != nil {
		return fmt.Errorf("request status: %w", err)
	}
	if !RequestStatus(v).Valid() {
		return fmt.Errorf("request status: unrecognized value %q", v)
	}
	*s = RequestStatus(v)
	return nil
}

func (s RequestStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("request status: unrecognized value %q", string(s))
	}
	return string(s), nil
}

type BidStatus string

const (
	BidPending  BidStatus = "Pending"
	BidAccepted BidStatus = "Accepted"
	BidRejected BidStatus = "Rejected"
)

func (s BidStatus) Valid() bool {
	switch s {
	case BidPending, BidAccepted, BidRejected:
		return true
	}
	return false
}

func (s *BidStatus) Scan(src any) error {
	v, err := scanString(src)
	if err != nil {
		return fmt.Errorf("bid status: %w", err)
	}
	if !BidStatus(v).Valid() {
		return fmt.Errorf("bid status: unrecognized value %q", v)
	}
	*s = BidStatus(v)
	return nil
}

func (s BidStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("bid status: unrecognized value %q", string(s))
	}
	return string(s), nil
}

func scanString(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("cannot scan %T", src)
	}
}

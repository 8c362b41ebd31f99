// Package db is the Postgres persistence gateway. Methods issue raw SQL via
// sqlx; a Storage scoped to a transaction by Transact reuses the same method
// set against the transaction handle.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/davidweatherstone/move-my-pallets/internal/engine"
	"github.com/davidweatherstone/move-my-pallets/models"
)

type Storage struct {
	db *sqlx.DB
	q  sqlx.ExtContext
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db, q: db}
}

// transact opens a serializable transaction and runs fn against a Storage
// bound to it. Serializable isolation is what keeps concurrent accept/reject
// calls on the same request from interleaving; a conflict aborts one side and
// surfaces as an error the engine classifies as transient.
func (s *Storage) transact(ctx context.Context, fn func(*Storage) error) error {
	if _, ok := s.q.(*sqlx.Tx); ok {
		// already inside a transaction
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(&Storage{db: s.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Transact implements engine.Store.
func (s *Storage) Transact(ctx context.Context, fn func(engine.Store) error) error {
	return s.transact(ctx, func(tx *Storage) error { return fn(tx) })
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// failure, e.g. a duplicate user email.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Users

func (s *Storage) CreateUser(ctx context.Context, u *models.User) error {
	query := `
        INSERT INTO users (email, password_hash, company, user_type, full_name)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_date`
	return s.q.QueryRowxContext(ctx, query,
		u.Email, u.PasswordHash, u.Company, u.UserType, u.FullName).
		Scan(&u.ID, &u.CreatedDate)
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u := &models.User{}
	query := `SELECT * FROM users WHERE email = $1`
	err := sqlx.GetContext(ctx, s.q, u, query, email)
	return u, err
}

// Requests

func (s *Storage) GetRequest(ctx context.Context, id int) (*models.Request, error) {
	r := &models.Request{}
	query := `SELECT * FROM requests WHERE id = $1`
	err := sqlx.GetContext(ctx, s.q, r, query, id)
	return r, err
}

func (s *Storage) InsertRequest(ctx context.Context, r *models.Request) error {
	query := `
        INSERT INTO requests
            (created_by, company, collection_address, delivery_address,
             collection_date, delivery_date, pallets, weight, status)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_date`
	return s.q.QueryRowxContext(ctx, query,
		r.CreatedBy, r.Company, r.CollectionAddress, r.DeliveryAddress,
		r.CollectionDate, r.DeliveryDate, r.Pallets, r.Weight, r.Status).
		Scan(&r.ID, &r.CreatedDate)
}

func (s *Storage) UpdateRequestFields(ctx context.Context, id int, in engine.RequestInput) error {
	query := `
        UPDATE requests SET
            collection_address = $1,
            delivery_address = $2,
            collection_date = $3,
            delivery_date = $4,
            pallets = $5,
            weight = $6
        WHERE id = $7`
	res, err := s.q.ExecContext(ctx, query,
		in.CollectionAddress, in.DeliveryAddress, in.CollectionDate, in.DeliveryDate,
		in.Pallets, in.Weight, id)
	if err != nil {
		return err
	}
	return oneRowAffected(res)
}

func (s *Storage) SetRequestStatus(ctx context.Context, id int, status models.RequestStatus) error {
	query := `UPDATE requests SET status = $1 WHERE id = $2`
	res, err := s.q.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return oneRowAffected(res)
}

// DeleteRequest removes the request row only. Bids referencing it stay in
// place; see the orphaned-bids note in DESIGN.md.
func (s *Storage) DeleteRequest(ctx context.Context, id int) error {
	query := `DELETE FROM requests WHERE id = $1`
	res, err := s.q.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return oneRowAffected(res)
}

// Bids

func (s *Storage) GetBid(ctx context.Context, id int) (*models.Bid, error) {
	b := &models.Bid{}
	query := `SELECT * FROM bids WHERE id = $1`
	err := sqlx.GetContext(ctx, s.q, b, query, id)
	return b, err
}

func (s *Storage) InsertBid(ctx context.Context, b *models.Bid) error {
	query := `
        INSERT INTO bids (request_id, created_by, amount, status)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_date`
	return s.q.QueryRowxContext(ctx, query,
		b.RequestID, b.CreatedBy, b.Amount, b.Status).
		Scan(&b.ID, &b.CreatedDate)
}

func (s *Storage) SetBidStatus(ctx context.Context, id int, status models.BidStatus) error {
	query := `UPDATE bids SET status = $1 WHERE id = $2`
	res, err := s.q.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return oneRowAffected(res)
}

func (s *Storage) RejectOtherBids(ctx context.Context, requestID, keepID int) error {
	query := `UPDATE bids SET status = $1 WHERE request_id = $2 AND id <> $3`
	_, err := s.q.ExecContext(ctx, query, models.BidRejected, requestID, keepID)
	return err
}

func (s *Storage) CountActiveBids(ctx context.Context, requestID int) (int, error) {
	var count int
	query := `SELECT COUNT(1) FROM bids WHERE request_id = $1 AND status <> $2`
	err := sqlx.GetContext(ctx, s.q, &count, query, requestID, models.BidRejected)
	return count, err
}

// Query views

func (s *Storage) RequestsForCompany(ctx context.Context, company string) ([]models.Request, error) {
	query := `
        SELECT * FROM requests
        WHERE company = $1
        ORDER BY created_date DESC`
	requests := []models.Request{}
	err := sqlx.SelectContext(ctx, s.q, &requests, query, company)
	return requests, err
}

func (s *Storage) BidsForRequest(ctx context.Context, requestID int) ([]models.BidWithCompany, error) {
	query := `
        SELECT b.*, u.company
        FROM bids b
        JOIN users u ON u.id = b.created_by
        WHERE b.request_id = $1
        ORDER BY b.created_date DESC`
	bids := []models.BidWithCompany{}
	err := sqlx.SelectContext(ctx, s.q, &bids, query, requestID)
	return bids, err
}

func (s *Storage) BidsForCompany(ctx context.Context, company string) ([]models.Bid, error) {
	query := `
        SELECT b.*
        FROM bids b
        JOIN users u ON u.id = b.created_by
        WHERE u.company = $1
        ORDER BY b.created_date DESC`
	bids := []models.Bid{}
	err := sqlx.SelectContext(ctx, s.q, &bids, query, company)
	return bids, err
}

// CompanyBidForRequest returns the company's bid on a request. When the
// company has somehow placed more than one, the earliest wins.
func (s *Storage) CompanyBidForRequest(ctx context.Context, requestID int, company string) (*models.Bid, error) {
	b := &models.Bid{}
	query := `
        SELECT b.*
        FROM bids b
        JOIN users u ON u.id = b.created_by
        WHERE b.request_id = $1 AND u.company = $2
        ORDER BY b.id
        LIMIT 1`
	err := sqlx.GetContext(ctx, s.q, b, query, requestID, company)
	return b, err
}

// SupplierDashboard runs the three partition queries inside one transaction
// so they observe a single snapshot of the data.
func (s *Storage) SupplierDashboard(ctx context.Context, company string) (*models.SupplierDashboard, error) {
	d := &models.SupplierDashboard{
		Open: []models.Request{},
		Bid:  []models.DashboardRow{},
		Won:  []models.DashboardRow{},
	}
	err := s.transact(ctx, func(tx *Storage) error {
		openQuery := `
            SELECT r.* FROM requests r
            WHERE r.status <> $1
              AND NOT EXISTS (
                  SELECT 1 FROM bids b
                  JOIN users u ON u.id = b.created_by
                  WHERE b.request_id = r.id AND u.company = $2)
            ORDER BY r.id`
		if err := sqlx.SelectContext(ctx, tx.q, &d.Open, openQuery, models.RequestComplete, company); err != nil {
			return err
		}

		bidQuery := `
            SELECT r.*, b.id AS bid_id
            FROM requests r
            JOIN bids b ON b.request_id = r.id
            JOIN users u ON u.id = b.created_by
            WHERE u.company = $1 AND r.status <> $2
            ORDER BY r.id`
		if err := sqlx.SelectContext(ctx, tx.q, &d.Bid, bidQuery, company, models.RequestComplete); err != nil {
			return err
		}

		wonQuery := `
            SELECT r.*, b.id AS bid_id
            FROM requests r
            JOIN bids b ON b.request_id = r.id
            JOIN users u ON u.id = b.created_by
            WHERE u.company = $1 AND r.status = $2 AND b.status <> $3
            ORDER BY r.id`
		return sqlx.SelectContext(ctx, tx.q, &d.Won, wonQuery, company, models.RequestComplete, models.BidRejected)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Locations

func (s *Storage) GetLocation(ctx context.Context, id int) (*models.Location, error) {
	l := &models.Location{}
	query := `
        SELECT l.*, u.company
        FROM locations l
        JOIN users u ON u.id = l.created_by
        WHERE l.id = $1`
	err := sqlx.GetContext(ctx, s.q, l, query, id)
	return l, err
}

func (s *Storage) InsertLocation(ctx context.Context, l *models.Location) error {
	query := `
        INSERT INTO locations (created_by, name, street, city, country, zipcode)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_date`
	return s.q.QueryRowxContext(ctx, query,
		l.CreatedBy, l.Name, l.Street, l.City, l.Country, l.Zipcode).
		Scan(&l.ID, &l.CreatedDate)
}

func (s *Storage) UpdateLocation(ctx context.Context, l *models.Location) error {
	query := `
        UPDATE locations SET name = $1, street = $2, city = $3, country = $4, zipcode = $5
        WHERE id = $6`
	res, err := s.q.ExecContext(ctx, query, l.Name, l.Street, l.City, l.Country, l.Zipcode, l.ID)
	if err != nil {
		return err
	}
	return oneRowAffected(res)
}

func (s *Storage) DeleteLocation(ctx context.Context, id int) error {
	query := `DELETE FROM locations WHERE id = $1`
	res, err := s.q.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return oneRowAffected(res)
}

func (s *Storage) LocationsForCompany(ctx context.Context, company string) ([]models.Location, error) {
	query := `
        SELECT l.*, u.company
        FROM locations l
        JOIN users u ON u.id = l.created_by
        WHERE u.company = $1
        ORDER BY l.id`
	locations := []models.Location{}
	err := sqlx.SelectContext(ctx, s.q, &locations, query, company)
	return locations, err
}

// oneRowAffected maps a zero-row write to sql.ErrNoRows so callers see the
// same not-found signal whether they read or write first.
func oneRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/davidweatherstone/move-my-pallets/internal/engine"
	"github.com/davidweatherstone/move-my-pallets/internal/handlers/testutils"
	"github.com/davidweatherstone/move-my-pallets/models"
)

// mockEngine implements LifecycleEngine through per-method function fields so
// each test wires up only the calls it expects.
type mockEngine struct {
	createRequestFn func(caller models.Identity, in engine.RequestInput) (*models.Request, error)
	updateRequestFn func(caller models.Identity, id int, in engine.RequestInput) (*models.Request, error)
	cancelRequestFn func(caller models.Identity, id int) error
	submitBidFn     func(caller models.Identity, requestID int, amount float64) (*models.Bid, error)
	acceptBidFn     func(caller models.Identity, bidID int) error
	rejectBidFn     func(caller models.Identity, bidID int) error

	requestsForCompanyFn    func(caller models.Identity) ([]models.Request, error)
	requestBidsFn           func(caller models.Identity, requestID int) (*models.Request, []models.BidWithCompany, error)
	supplierDashboardFn     func(caller models.Identity) (*models.SupplierDashboard, error)
	myBidsFn                func(caller models.Identity) ([]models.Bid, error)
	supplierRequestDetailFn func(caller models.Identity, requestID int) (*models.Request, *models.Bid, error)

	listLocationsFn  func(caller models.Identity) ([]models.Location, error)
	createLocationFn func(caller models.Identity, in engine.LocationInput) (*models.Location, error)
	updateLocationFn func(caller models.Identity, id int, in engine.LocationInput) (*models.Location, error)
	deleteLocationFn func(caller models.Identity, id int) error
}

func (m *mockEngine) CreateRequest(_ context.Context, caller models.Identity, in engine.RequestInput) (*models.Request, error) {
	return m.createRequestFn(caller, in)
}

func (m *mockEngine) UpdateRequest(_ context.Context, caller models.Identity, id int, in engine.RequestInput) (*models.Request, error) {
	return m.updateRequestFn(caller, id, in)
}

func (m *mockEngine) CancelRequest(_ context.Context, caller models.Identity, id int) error {
	return m.cancelRequestFn(caller, id)
}

func (m *mockEngine) SubmitBid(_ context.Context, caller models.Identity, requestID int, amount float64) (*models.Bid, error) {
	return m.submitBidFn(caller, requestID, amount)
}

func (m *mockEngine) AcceptBid(_ context.Context, caller models.Identity, bidID int) error {
	return m.acceptBidFn(caller, bidID)
}

func (m *mockEngine) RejectBid(_ context.Context, caller models.Identity, bidID int) error {
	return m.rejectBidFn(caller, bidID)
}

func (m *mockEngine) RequestsForCompany(_ context.Context, caller models.Identity) ([]models.Request, error) {
	return m.requestsForCompanyFn(caller)
}

func (m *mockEngine) RequestBids(_ context.Context, caller models.Identity, requestID int) (*models.Request, []models.BidWithCompany, error) {
	return m.requestBidsFn(caller, requestID)
}

func (m *mockEngine) SupplierDashboard(_ context.Context, caller models.Identity) (*models.SupplierDashboard, error) {
	return m.supplierDashboardFn(caller)
}

func (m *mockEngine) MyBids(_ context.Context, caller models.Identity) ([]models.Bid, error) {
	return m.myBidsFn(caller)
}

func (m *mockEngine) SupplierRequestDetail(_ context.Context, caller models.Identity, requestID int) (*models.Request, *models.Bid, error) {
	return m.supplierRequestDetailFn(caller, requestID)
}

func (m *mockEngine) ListLocations(_ context.Context, caller models.Identity) ([]models.Location, error) {
	return m.listLocationsFn(caller)
}

func (m *mockEngine) CreateLocation(_ context.Context, caller models.Identity, in engine.LocationInput) (*models.Location, error) {
	return m.createLocationFn(caller, in)
}

func (m *mockEngine) UpdateLocation(_ context.Context, caller models.Identity, id int, in engine.LocationInput) (*models.Location, error) {
	return m.updateLocationFn(caller, id, in)
}

func (m *mockEngine) DeleteLocation(_ context.Context, caller models.Identity, id int) error {
	return m.deleteLocationFn(caller, id)
}

type mockUsers struct {
	createUserFn     func(u *models.User) error
	getUserByEmailFn func(email string) (*models.User, error)
}

func (m *mockUsers) CreateUser(_ context.Context, u *models.User) error {
	return m.createUserFn(u)
}

func (m *mockUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return m.getUserByEmailFn(email)
}

var testCaller = models.Identity{UserID: 7, Company: "Acme Shipping", Role: models.RoleCustomer}

func newTestHandler(eng LifecycleEngine, users UserStore) *Handler {
	return NewHandler(eng, users, zap.NewNop())
}

// asCaller stamps the request with an already-resolved identity, standing in
// for the WithIdentity middleware.
func asCaller(req *http.Request, id models.Identity) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), identityKey{}, id))
}

func TestPingHandler(t *testing.T) {
	h := newTestHandler(&mockEngine{}, &mockUsers{})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	h.PingHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestWithIdentityMissingHeader(t *testing.T) {
	h := newTestHandler(&mockEngine{}, &mockUsers{})
	next := h.WithIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/requests", nil)
	rec := httptest.NewRecorder()
	next.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWithIdentityUnknownUser(t *testing.T) {
	users := &mockUsers{
		getUserByEmailFn: func(email string) (*models.User, error) { return nil, sql.ErrNoRows },
	}
	h := newTestHandler(&mockEngine{}, users)
	next := h.WithIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/requests", nil)
	req.Header.Set("X-User-Email", "nobody@acme.test")
	rec := httptest.NewRecorder()
	next.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWithIdentityResolvesCaller(t *testing.T) {
	users := &mockUsers{
		getUserByEmailFn: func(email string) (*models.User, error) {
			require.Equal(t, "kim@acme.test", email)
			return &models.User{ID: 7, Company: "Acme Shipping", UserType: models.RoleCustomer}, nil
		},
	}
	h := newTestHandler(&mockEngine{}, users)

	var got models.Identity
	next := h.WithIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = identityFrom(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/requests", nil)
	req.Header.Set("X-User-Email", "kim@acme.test")
	rec := httptest.NewRecorder()
	next.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, testCaller, got)
}

func TestCreateRequestHandler(t *testing.T) {
	eng := &mockEngine{
		createRequestFn: func(caller models.Identity, in engine.RequestInput) (*models.Request, error) {
			require.Equal(t, testCaller, caller)
			require.Equal(t, "Acme Depot", in.CollectionAddress)
			require.Equal(t, 4, in.Pallets)
			require.Equal(t, "2026-09-10", in.CollectionDate.Format(dateLayout))
			return &models.Request{ID: 12, Status: models.RequestAwaitingBids}, nil
		},
	}
	h := newTestHandler(eng, &mockUsers{})

	body := `{"collectionAddress":"Acme Depot","deliveryAddress":"Acme North",
		"collectionDate":"2026-09-10","deliveryDate":"2026-09-12","pallets":4,"weight":800}`
	req := asCaller(httptest.NewRequest(http.MethodPost, "/api/requests", strings.NewReader(body)), testCaller)
	rec := httptest.NewRecorder()
	h.CreateRequestHandler(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":12`)
	require.Contains(t, rec.Body.String(), `"status":"Awaiting bids"`)
}

func TestCreateRequestHandlerBadJSON(t *testing.T) {
	h := newTestHandler(&mockEngine{}, &mockUsers{})

	req := asCaller(httptest.NewRequest(http.MethodPost, "/api/requests", strings.NewReader("{not json")), testCaller)
	rec := httptest.NewRecorder()
	h.CreateRequestHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRequestHandlerBadDate(t *testing.T) {
	h := newTestHandler(&mockEngine{}, &mockUsers{})

	body := `{"collectionAddress":"Acme Depot","collectionDate":"10/09/2026","deliveryDate":"2026-09-12"}`
	req := asCaller(httptest.NewRequest(http.MethodPost, "/api/requests", strings.NewReader(body)), testCaller)
	rec := httptest.NewRecorder()
	h.CreateRequestHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "YYYY-MM-DD")
}

func TestGetRequestHandler(t *testing.T) {
	eng := &mockEngine{
		requestBidsFn: func(caller models.Identity, requestID int) (*models.Request, []models.BidWithCompany, error) {
			require.Equal(t, 12, requestID)
			return &models.Request{ID: 12}, []models.BidWithCompany{
				{Bid: models.Bid{ID: 3, RequestID: 12}, Company: "Haulage Co"},
			}, nil
		},
	}
	h := newTestHandler(eng, &mockUsers{})

	req := httptest.NewRequest(http.MethodGet, "/api/requests/12", nil)
	req = testutils.WithChiURLParams(asCaller(req, testCaller), map[string]string{"requestId": "12"})
	rec := httptest.NewRecorder()
	h.GetRequestHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"company":"Haulage Co"`)
}

func TestGetRequestHandlerBadID(t *testing.T) {
	h := newTestHandler(&mockEngine{}, &mockUsers{})

	req := httptest.NewRequest(http.MethodGet, "/api/requests/abc", nil)
	req = testutils.WithChiURLParams(asCaller(req, testCaller), map[string]string{"requestId": "abc"})
	rec := httptest.NewRecorder()
	h.GetRequestHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveRequestHandler(t *testing.T) {
	eng := &mockEngine{
		cancelRequestFn: func(caller models.Identity, id int) error {
			require.Equal(t, 12, id)
			return nil
		},
	}
	h := newTestHandler(eng, &mockUsers{})

	req := httptest.NewRequest(http.MethodDelete, "/api/requests/12", nil)
	req = testutils.WithChiURLParams(asCaller(req, testCaller), map[string]string{"requestId": "12"})
	rec := httptest.NewRecorder()
	h.RemoveRequestHandler(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSubmitBidHandler(t *testing.T) {
	eng := &mockEngine{
		submitBidFn: func(caller models.Identity, requestID int, amount float64) (*models.Bid, error) {
			require.Equal(t, 12, requestID)
			require.Equal(t, 350.50, amount)
			return &models.Bid{ID: 4, RequestID: requestID, Amount: amount, Status: models.BidPending}, nil
		},
	}
	h := newTestHandler(eng, &mockUsers{})

	req := httptest.NewRequest(http.MethodPost, "/api/requests/12/bids", strings.NewReader(`{"amount":350.50}`))
	req = testutils.WithChiURLParams(asCaller(req, testCaller), map[string]string{"requestId": "12"})
	rec := httptest.NewRecorder()
	h.SubmitBidHandler(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"Pending"`)
}

func TestAcceptBidHandlerStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"forbidden", engine.ErrUnauthorized, http.StatusForbidden},
		{"not found", engine.ErrNotFound, http.StatusNotFound},
		{"conflict", engine.ErrInvalidState, http.StatusConflict},
		{"bad input", engine.ErrInvalidInput, http.StatusBadRequest},
		{"transient", fmt.Errorf("%w: %v", engine.ErrTransient, errors.New("timeout")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eng := &mockEngine{
				acceptBidFn: func(caller models.Identity, bidID int) error { return tc.err },
			}
			h := newTestHandler(eng, &mockUsers{})

			req := httptest.NewRequest(http.MethodPost, "/api/bids/4/accept", nil)
			req = testutils.WithChiURLParams(asCaller(req, testCaller), map[string]string{"bidId": "4"})
			rec := httptest.NewRecorder()
			h.AcceptBidHandler(rec, req)

			require.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestAcceptBidHandlerMasksInternalError(t *testing.T) {
	eng := &mockEngine{
		acceptBidFn: func(caller models.Identity, bidID int) error {
			return fmt.Errorf("%w: %v", engine.ErrTransient, errors.New("pq: password authentication failed"))
		},
	}
	h := newTestHandler(eng, &mockUsers{})

	req := httptest.NewRequest(http.MethodPost, "/api/bids/4/accept", nil)
	req = testutils.WithChiURLParams(asCaller(req, testCaller), map[string]string{"bidId": "4"})
	rec := httptest.NewRecorder()
	h.AcceptBidHandler(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "pq:")
}

func TestRejectBidHandler(t *testing.T) {
	eng := &mockEngine{
		rejectBidFn: func(caller models.Identity, bidID int) error {
			require.Equal(t, 4, bidID)
			return nil
		},
	}
	h := newTestHandler(eng, &mockUsers{})

	req := httptest.NewRequest(http.MethodPost, "/api/bids/4/reject", nil)
	req = testutils.WithChiURLParams(asCaller(req, testCaller), map[string]string{"bidId": "4"})
	rec := httptest.NewRecorder()
	h.RejectBidHandler(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSupplierRequestHandlerNoBid(t *testing.T) {
	eng := &mockEngine{
		supplierRequestDetailFn: func(caller models.Identity, requestID int) (*models.Request, *models.Bid, error) {
			return &models.Request{ID: 12}, nil, nil
		},
	}
	h := newTestHandler(eng, &mockUsers{})

	req := httptest.NewRequest(http.MethodGet, "/api/supplier/requests/12", nil)
	req = testutils.WithChiURLParams(asCaller(req, testCaller), map[string]string{"requestId": "12"})
	rec := httptest.NewRecorder()
	h.SupplierRequestHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), `"bid"`)
}

func TestSupplierDashboardHandler(t *testing.T) {
	eng := &mockEngine{
		supplierDashboardFn: func(caller models.Identity) (*models.SupplierDashboard, error) {
			return &models.SupplierDashboard{
				Open: []models.Request{{ID: 1}},
				Bid:  []models.DashboardRow{},
				Won:  []models.DashboardRow{},
			}, nil
		},
	}
	h := newTestHandler(eng, &mockUsers{})

	req := asCaller(httptest.NewRequest(http.MethodGet, "/api/supplier/requests", nil), testCaller)
	rec := httptest.NewRecorder()
	h.SupplierDashboardHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"open"`)
	require.Contains(t, rec.Body.String(), `"won":[]`)
}

func TestRegisterHandler(t *testing.T) {
	users := &mockUsers{
		createUserFn: func(u *models.User) error {
			require.Equal(t, "kim@acme.test", u.Email)
			require.NotEqual(t, "hunter2", u.PasswordHash)
			require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("hunter2")))
			u.ID = 7
			return nil
		},
	}
	h := newTestHandler(&mockEngine{}, users)

	body := `{"email":"kim@acme.test","password":"hunter2","company":"Acme Shipping",
		"userType":"Customer","fullName":"Kim Lee"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.RegisterHandler(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":7`)
	require.NotContains(t, rec.Body.String(), "hunter2")
}

func TestRegisterHandlerDuplicateEmail(t *testing.T) {
	users := &mockUsers{
		createUserFn: func(u *models.User) error {
			return &pq.Error{Code: "23505"}
		},
	}
	h := newTestHandler(&mockEngine{}, users)

	body := `{"email":"kim@acme.test","password":"hunter2","company":"Acme Shipping",
		"userType":"Customer","fullName":"Kim Lee"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.RegisterHandler(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterHandlerBadUserType(t *testing.T) {
	h := newTestHandler(&mockEngine{}, &mockUsers{})

	body := `{"email":"kim@acme.test","password":"hunter2","company":"Acme Shipping",
		"userType":"Admin","fullName":"Kim Lee"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.RegisterHandler(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "userType")
}

func TestLoginHandler(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	users := &mockUsers{
		getUserByEmailFn: func(email string) (*models.User, error) {
			return &models.User{ID: 7, Email: email, PasswordHash: string(hash)}, nil
		},
	}
	h := newTestHandler(&mockEngine{}, users)

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"kim@acme.test","password":"hunter2"}`))
	rec := httptest.NewRecorder()
	h.LoginHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":7`)
	require.NotContains(t, rec.Body.String(), string(hash))
}

func TestLoginHandlerWrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	users := &mockUsers{
		getUserByEmailFn: func(email string) (*models.User, error) {
			return &models.User{ID: 7, Email: email, PasswordHash: string(hash)}, nil
		},
	}
	h := newTestHandler(&mockEngine{}, users)

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"kim@acme.test","password":"wrong"}`))
	rec := httptest.NewRecorder()
	h.LoginHandler(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginHandlerUnknownEmail(t *testing.T) {
	users := &mockUsers{
		getUserByEmailFn: func(email string) (*models.User, error) { return nil, sql.ErrNoRows },
	}
	h := newTestHandler(&mockEngine{}, users)

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"nobody@acme.test","password":"hunter2"}`))
	rec := httptest.NewRecorder()
	h.LoginHandler(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

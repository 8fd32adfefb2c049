package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/bloodrequest/disaster"
	"bloodlink/internal/bloodrequest/eligibility"
	"bloodlink/internal/bloodrequest/models"
	"bloodlink/internal/bloodrequest/service"
	"bloodlink/internal/bloodrequest/store/directory"
	requeststore "bloodlink/internal/bloodrequest/store/request"
	"bloodlink/internal/notification"
	"bloodlink/internal/platform/middleware"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/geo"
	"bloodlink/pkg/platform/audit/publisher"
	auditmemory "bloodlink/pkg/platform/audit/store/memory"
	"bloodlink/pkg/platform/httputil"
	"bloodlink/pkg/requestcontext"
	"bloodlink/pkg/testutil"
)

// tokenTable maps bearer tokens straight to claims.
type tokenTable map[string]*middleware.JWTClaims

func (t tokenTable) ValidateToken(token string) (*middleware.JWTClaims, error) {
	if c, ok := t[token]; ok {
		return c, nil
	}
	return nil, errors.New("unknown token")
}

type fixture struct {
	router   http.Handler
	handler  *Handler
	hospital models.HospitalContact
	donor    models.Donor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	origin := geo.Point{Lat: 41.3874, Lng: 2.1686}
	hospital := models.HospitalContact{ID: id.HospitalID(uuid.New()), Name: "Hospital Clinic", Email: "banc@clinic.example", Location: &origin}
	bt := models.BloodTypeONeg
	loc := geo.Point{Lat: origin.Lat + 0.02, Lng: origin.Lng}
	donor := models.Donor{ID: id.DonorID(uuid.New()), Email: "donor@example.com", BloodType: &bt, Location: &loc, Availability: models.AvailabilityNormal}

	dir := directory.NewInMemory()
	require.NoError(t, dir.PutHospital(ctx, hospital))
	require.NoError(t, dir.PutDonor(ctx, donor))

	requests := requeststore.NewInMemory()
	override := disaster.NewSwitch(false)
	auditLog := publisher.NewPublisher(auditmemory.NewInMemoryStore())
	svc := service.New(requests, dir, dir,
		eligibility.New(dir, requests, override, eligibility.WithLogger(logger)),
		notification.NewLogDispatcher(logger),
		service.WithLogger(logger),
		service.WithDisaster(override),
		service.WithAuditPublisher(auditLog),
		service.WithAuditReader(auditLog),
		service.WithDonationRecorder(dir),
	)

	tokens := tokenTable{
		"hospital": {ActorID: uuid.UUID(hospital.ID), Role: requestcontext.RoleHospital},
		"other":    {ActorID: uuid.New(), Role: requestcontext.RoleHospital},
		"donor":    {ActorID: uuid.UUID(donor.ID), Role: requestcontext.RoleDonor},
	}
	h := New(svc, logger)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.RequireAuth(tokens, logger))
	h.Register(r)
	return &fixture{router: r, handler: h, hospital: hospital, donor: donor}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.Do(f.router, testutil.WithBearer(testutil.NewJSONRequest(t, method, path, body), token))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	return testutil.Decode[T](t, rec)
}

func (f *fixture) createRequest(t *testing.T) RequestResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/v1/requests", "hospital", map[string]any{
		"blood_type": "A+",
		"units":      2,
		"urgency":    "high",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[RequestResponse](t, rec)
}

func TestCreateAndRespondFlow(t *testing.T) {
	f := newFixture(t)

	created := f.createRequest(t)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, 1, created.Stage)
	assert.InDelta(t, 20.0, created.RadiusKm, 0)
	assert.Equal(t, 1, created.DonorsNotified)

	rec := f.do(t, http.MethodPost, "/v1/requests/"+created.ID+"/responses", "donor", map[string]string{"decision": "accept"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	accepted := decode[DonorRequestResponse](t, rec)
	require.NotNil(t, accepted.Response)
	assert.Equal(t, "accepted", accepted.Response.State)
	require.NotNil(t, accepted.Hospital)
	assert.Equal(t, f.hospital.Email, accepted.Hospital.Email)

	rec = f.do(t, http.MethodPost, "/v1/requests/"+created.ID+"/responses", "donor", map[string]string{"decision": "accept"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_responded", decode[httputil.ErrorResponse](t, rec).Error)

	rec = f.do(t, http.MethodDelete, "/v1/requests/"+created.ID+"/responses/me", "donor", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cancelled", decode[DonorRequestResponse](t, rec).Response.State)

	rec = f.do(t, http.MethodGet, "/v1/requests/"+created.ID+"/history", "hospital", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[HistoryResponse](t, rec)
	actions := make([]string, 0, len(history.Events))
	for _, e := range history.Events {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{"request_created", "donor_accepted", "donor_cancelled"}, actions)
}

func TestFulfillFlow(t *testing.T) {
	f := newFixture(t)
	created := f.createRequest(t)
	rec := f.do(t, http.MethodPost, "/v1/requests/"+created.ID+"/responses", "donor", map[string]string{"decision": "accept"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/requests/"+created.ID+"/fulfill", "hospital", map[string]string{"donor_id": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/requests/"+created.ID+"/fulfill", "hospital", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fulfilled := decode[FulfillResponse](t, rec)
	assert.Equal(t, "fulfilled", fulfilled.Status)
	assert.Equal(t, f.donor.ID.String(), fulfilled.CompletedDonorID)

	rec = f.do(t, http.MethodPost, "/v1/requests/"+created.ID+"/cancel", "hospital", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "request_not_pending", decode[httputil.ErrorResponse](t, rec).Error)
}

func TestHospitalCancelsDonorAndEscalates(t *testing.T) {
	f := newFixture(t)
	created := f.createRequest(t)
	rec := f.do(t, http.MethodPost, "/v1/requests/"+created.ID+"/responses", "donor", map[string]string{"decision": "accept"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/v1/requests/"+created.ID+"/responses/"+f.donor.ID.String(), "hospital", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[RequestResponse](t, rec)
	require.Len(t, view.Responses, 1)
	assert.Equal(t, "cancelled", view.Responses[0].State)
	assert.Equal(t, "hospital", view.Responses[0].CancelledBy)

	rec = f.do(t, http.MethodPost, "/v1/requests/"+created.ID+"/escalate", "hospital", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[RequestResponse](t, rec).Stage)
}

func TestAccessControl(t *testing.T) {
	f := newFixture(t)
	created := f.createRequest(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
	}{
		{"missing token", http.MethodGet, "/v1/requests/" + created.ID, "", nil, http.StatusUnauthorized},
		{"unknown token", http.MethodGet, "/v1/requests/" + created.ID, "forged", nil, http.StatusUnauthorized},
		{"donor cannot create", http.MethodPost, "/v1/requests", "donor", map[string]any{"blood_type": "A+", "units": 1}, http.StatusForbidden},
		{"hospital cannot respond", http.MethodPost, "/v1/requests/" + created.ID + "/responses", "hospital", map[string]string{"decision": "accept"}, http.StatusForbidden},
		{"other hospital cannot read", http.MethodGet, "/v1/requests/" + created.ID, "other", nil, http.StatusForbidden},
		{"other hospital cannot cancel", http.MethodPost, "/v1/requests/" + created.ID + "/cancel", "other", nil, http.StatusForbidden},
		{"malformed id", http.MethodGet, "/v1/requests/not-a-uuid", "hospital", nil, http.StatusBadRequest},
		{"unknown request", http.MethodGet, "/v1/requests/" + uuid.NewString(), "hospital", nil, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, tc.method, tc.path, tc.token, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body any
		code string
	}{
		{"missing blood type", map[string]any{"units": 1}, "validation_error"},
		{"unknown blood type", map[string]any{"blood_type": "Z+", "units": 1}, "invalid_input"},
		{"zero units", map[string]any{"blood_type": "A+", "units": 0}, "validation_error"},
		{"bad urgency", map[string]any{"blood_type": "A+", "units": 1, "urgency": "whenever"}, "invalid_input"},
		{"bad origin", map[string]any{"blood_type": "A+", "units": 1, "origin": map[string]float64{"lat": 91, "lng": 0}}, "validation_error"},
		{"missing body", nil, "bad_request"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/v1/requests", "hospital", tc.body)
			testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, tc.code)
		})
	}
}

// Routes served without the auth middleware, with the actor and clock pinned on the
// request context the way RequireAuth and RequestTime would set them.
func TestWithdrawAfterCancelWindow(t *testing.T) {
	f := newFixture(t)
	created := f.createRequest(t)

	bare := chi.NewRouter()
	f.handler.Register(bare)
	acceptedAt := time.Now()

	req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/requests/"+created.ID+"/responses", map[string]string{"decision": "accept"})
	req = testutil.AtTime(testutil.AsDonor(req, uuid.UUID(f.donor.ID)), acceptedAt)
	rec := testutil.Do(bare, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = testutil.NewJSONRequest(t, http.MethodDelete, "/v1/requests/"+created.ID+"/responses/me", nil)
	req = testutil.AtTime(testutil.AsDonor(req, uuid.UUID(f.donor.ID)), acceptedAt.Add(models.DonorCancelWindow+time.Second))
	testutil.AssertStatusAndError(t, testutil.Do(bare, req), http.StatusUnprocessableEntity, "cancel_window_expired")

	req = testutil.NewJSONRequest(t, http.MethodGet, "/v1/requests/"+created.ID, nil)
	req = testutil.AsHospital(req, uuid.UUID(f.hospital.ID))
	rec = testutil.Do(bare, req)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[RequestResponse](t, rec)
	require.Len(t, view.Responses, 1)
	assert.Equal(t, "accepted", view.Responses[0].State)
}

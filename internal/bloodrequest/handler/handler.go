// Package handler exposes the request lifecycle over HTTP under /v1/requests.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bloodlink/internal/bloodrequest/models"
	"bloodlink/internal/bloodrequest/service"
	"bloodlink/internal/platform/middleware"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/audit"
	"bloodlink/pkg/platform/httputil"
	"bloodlink/pkg/requestcontext"
)

// Service is the request lifecycle as seen by the HTTP layer.
type Service interface {
	CreateRequest(ctx context.Context, cmd service.CreateCommand) (*models.Request, error)
	GetRequest(ctx context.Context, requestID id.RequestID, hospitalID id.HospitalID) (*models.Request, error)
	History(ctx context.Context, requestID id.RequestID, hospitalID id.HospitalID) ([]audit.Event, error)
	Respond(ctx context.Context, cmd service.RespondCommand) (*service.RespondResult, error)
	CancelByDonor(ctx context.Context, requestID id.RequestID, donorID id.DonorID) (*models.Request, error)
	CancelDonorByHospital(ctx context.Context, requestID id.RequestID, hospitalID id.HospitalID, donorID id.DonorID) (*models.Request, error)
	CancelRequest(ctx context.Context, requestID id.RequestID, hospitalID id.HospitalID) (*models.Request, error)
	Fulfill(ctx context.Context, cmd service.FulfillCommand) (*service.FulfillResult, error)
	Escalate(ctx context.Context, requestID id.RequestID, hospitalID id.HospitalID) (*models.Request, error)
}

// Handler wires request endpoints to the lifecycle service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the request endpoints. Authentication must already have run.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/requests", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(requestcontext.RoleHospital))
			r.Post("/", h.HandleCreate)
			r.Get("/{id}", h.HandleGet)
			r.Get("/{id}/history", h.HandleHistory)
			r.Post("/{id}/cancel", h.HandleCancelRequest)
			r.Post("/{id}/fulfill", h.HandleFulfill)
			r.Post("/{id}/escalate", h.HandleEscalate)
			r.Delete("/{id}/responses/{donorID}", h.HandleCancelDonor)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(requestcontext.RoleDonor))
			r.Post("/{id}/responses", h.HandleRespond)
			r.Delete("/{id}/responses/me", h.HandleWithdraw)
		})
	})
}

// HandleCreate handles POST /v1/requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()
	hospitalID := hospitalOf(ctx)

	body, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	req, err := h.service.CreateRequest(ctx, service.CreateCommand{
		HospitalID: hospitalID,
		BloodType:  string(body.parsedBloodType),
		Units:      body.Units,
		Urgency:    string(body.parsedUrgency),
		Origin:     body.Origin,
	})
	if err != nil {
		h.fail(ctx, w, err, "create request failed", "hospital_id", hospitalID.String())
		return
	}

	h.logger.InfoContext(ctx, "blood request created",
		"request_id", requestID,
		"blood_request_id", req.ID.String(),
		"hospital_id", hospitalID.String(),
		"donors_notified", len(req.NotifiedDonors),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	w.Header().Set("Location", "/v1/requests/"+req.ID.String())
	httputil.WriteJSON(w, http.StatusCreated, FromRequest(req))
}

// HandleGet handles GET /v1/requests/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, ok := h.pathRequestID(w, r)
	if !ok {
		return
	}
	req, err := h.service.GetRequest(ctx, requestID, hospitalOf(ctx))
	if err != nil {
		h.fail(ctx, w, err, "get request failed", "blood_request_id", requestID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequest(req))
}

// HandleHistory handles GET /v1/requests/{id}/history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, ok := h.pathRequestID(w, r)
	if !ok {
		return
	}
	events, err := h.service.History(ctx, requestID, hospitalOf(ctx))
	if err != nil {
		h.fail(ctx, w, err, "load history failed", "blood_request_id", requestID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEvents(events))
}

// HandleRespond handles POST /v1/requests/{id}/responses.
func (h *Handler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, ok := h.pathRequestID(w, r)
	if !ok {
		return
	}
	body, ok := httputil.DecodeAndPrepare[RespondRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	donorID := donorOf(ctx)
	result, err := h.service.Respond(ctx, service.RespondCommand{
		RequestID: requestID,
		DonorID:   donorID,
		Decision:  string(body.parsedDecision),
	})
	if err != nil {
		h.fail(ctx, w, err, "respond failed",
			"blood_request_id", requestID.String(),
			"donor_id", donorID.String(),
		)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRespondResult(result))
}

// HandleWithdraw handles DELETE /v1/requests/{id}/responses/me.
func (h *Handler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, ok := h.pathRequestID(w, r)
	if !ok {
		return
	}
	donorID := donorOf(ctx)
	req, err := h.service.CancelByDonor(ctx, requestID, donorID)
	if err != nil {
		h.fail(ctx, w, err, "donor cancellation failed",
			"blood_request_id", requestID.String(),
			"donor_id", donorID.String(),
		)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDonorView(req, donorID))
}

// HandleCancelDonor handles DELETE /v1/requests/{id}/responses/{donorID}.
func (h *Handler) HandleCancelDonor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, ok := h.pathRequestID(w, r)
	if !ok {
		return
	}
	donorID, err := id.ParseDonorID(chi.URLParam(r, "donorID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := h.service.CancelDonorByHospital(ctx, requestID, hospitalOf(ctx), donorID)
	if err != nil {
		h.fail(ctx, w, err, "hospital donor cancellation failed",
			"blood_request_id", requestID.String(),
			"donor_id", donorID.String(),
		)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequest(req))
}

// HandleCancelRequest handles POST /v1/requests/{id}/cancel.
func (h *Handler) HandleCancelRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, ok := h.pathRequestID(w, r)
	if !ok {
		return
	}
	req, err := h.service.CancelRequest(ctx, requestID, hospitalOf(ctx))
	if err != nil {
		h.fail(ctx, w, err, "cancel request failed", "blood_request_id", requestID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequest(req))
}

// HandleFulfill handles POST /v1/requests/{id}/fulfill. The body is optional.
func (h *Handler) HandleFulfill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, ok := h.pathRequestID(w, r)
	if !ok {
		return
	}
	var donorID *id.DonorID
	if r.ContentLength != 0 {
		body, ok := httputil.DecodeAndPrepare[FulfillRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
		if !ok {
			return
		}
		donorID = body.parsedDonorID
	}
	result, err := h.service.Fulfill(ctx, service.FulfillCommand{
		RequestID:  requestID,
		HospitalID: hospitalOf(ctx),
		DonorID:    donorID,
	})
	if err != nil {
		h.fail(ctx, w, err, "fulfil request failed", "blood_request_id", requestID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromFulfillResult(result))
}

// HandleEscalate handles POST /v1/requests/{id}/escalate.
func (h *Handler) HandleEscalate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, ok := h.pathRequestID(w, r)
	if !ok {
		return
	}
	req, err := h.service.Escalate(ctx, requestID, hospitalOf(ctx))
	if err != nil {
		h.fail(ctx, w, err, "escalate request failed", "blood_request_id", requestID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRequest(req))
}

func (h *Handler) pathRequestID(w http.ResponseWriter, r *http.Request) (id.RequestID, bool) {
	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.RequestID{}, false
	}
	return requestID, true
}

// fail logs at warn for caller and policy errors and at error for everything else.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error, msg string, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	if httputil.StatusFor(dErrors.CodeOf(err)) < http.StatusInternalServerError {
		h.logger.WarnContext(ctx, msg, attrs...)
	} else {
		h.logger.ErrorContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}

func hospitalOf(ctx context.Context) id.HospitalID {
	return id.HospitalID(requestcontext.Actor(ctx).ID)
}

func donorOf(ctx context.Context) id.DonorID {
	return id.DonorID(requestcontext.Actor(ctx).ID)
}

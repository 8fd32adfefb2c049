// Package service orchestrates the blood request lifecycle: creation, donor responses,
// cancellation, fulfilment and radius escalation.
//
// Every state change goes through RequestStore.Execute so its preconditions are checked
// against the stored record at write time. Notification and audit happen after the
// write and never undo it.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bloodlink/internal/bloodrequest/disaster"
	"bloodlink/internal/bloodrequest/eligibility"
	"bloodlink/internal/bloodrequest/metrics"
	"bloodlink/internal/bloodrequest/models"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/audit"
	"bloodlink/pkg/platform/device"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/requestcontext"
)

const (
	DefaultDwellTime         = 5 * time.Minute
	DefaultNotifyConcurrency = 8
)

type RequestStore interface {
	Create(ctx context.Context, req *models.Request) error
	FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	Execute(ctx context.Context, requestID id.RequestID, validate func(*models.Request) error, mutate func(*models.Request)) (*models.Request, error)
	ListEscalationCandidates(ctx context.Context, now time.Time, dwell time.Duration) ([]*models.Request, error)
}

type DonorDirectory interface {
	FindByID(ctx context.Context, donorID id.DonorID) (*models.Donor, error)
}

type HospitalDirectory interface {
	FindContact(ctx context.Context, hospitalID id.HospitalID) (*models.HospitalContact, error)
}

type EligibilityFinder interface {
	FindEligible(ctx context.Context, q eligibility.Query) ([]models.Donor, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, email, subject, body string) error
}

type DonationRecorder interface {
	RecordDonation(ctx context.Context, donorID id.DonorID, requestID id.RequestID, at time.Time) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

type AuditReader interface {
	List(ctx context.Context, requestID id.RequestID) ([]audit.Event, error)
}

// Service orchestrates the request lifecycle.
type Service struct {
	requests  RequestStore
	donors    DonorDirectory
	hospitals HospitalDirectory
	finder    EligibilityFinder
	notifier  Notifier

	override          disaster.Override
	donations         DonationRecorder
	logger            *slog.Logger
	auditPublisher    AuditPublisher
	auditReader       AuditReader
	metrics           *metrics.Metrics
	dwell             time.Duration
	notifyConcurrency int
	tracer            trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithAuditReader(reader AuditReader) Option {
	return func(s *Service) {
		s.auditReader = reader
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithDisaster shares the override the eligibility filter reads.
func WithDisaster(o disaster.Override) Option {
	return func(s *Service) {
		s.override = o
	}
}

func WithDonationRecorder(r DonationRecorder) Option {
	return func(s *Service) {
		s.donations = r
	}
}

// WithDwellTime sets how long a request stays at a stage before the scheduler may widen it.
func WithDwellTime(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.dwell = d
		}
	}
}

func WithNotifyConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.notifyConcurrency = n
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New constructs a Service.
func New(
	requests RequestStore,
	donors DonorDirectory,
	hospitals HospitalDirectory,
	finder EligibilityFinder,
	notifier Notifier,
	opts ...Option,
) *Service {
	s := &Service{
		requests:          requests,
		donors:            donors,
		hospitals:         hospitals,
		finder:            finder,
		notifier:          notifier,
		logger:            slog.Default(),
		dwell:             DefaultDwellTime,
		notifyConcurrency: DefaultNotifyConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.override == nil {
		s.override = disaster.NewSwitch(false)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("bloodlink/bloodrequest")
	}
	return s
}

// DwellTime is the minimum time a request spends at a stage before automatic escalation.
func (s *Service) DwellTime() time.Duration { return s.dwell }

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "bloodrequest."+name, trace.WithAttributes(attrs...))
}

// endSpan records err on the span. Policy rejections are expected outcomes and do not
// mark the span as failed.
func (s *Service) endSpan(span trace.Span, err error) {
	if err != nil {
		code := dErrors.CodeOf(err)
		span.SetAttributes(attribute.String("error.code", string(code)))
		if dErrors.IsPolicy(err) {
			s.incrementPolicyRejection(code)
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}

// translateStoreError maps store sentinels to domain errors. Domain errors raised by
// validate callbacks pass through.
func translateStoreError(err error, action string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "request not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeDonorCommitted, "donor already holds an accepted response on another open request")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "request store unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "timed out: "+action)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+action)
	}
}

func requireOwner(r *models.Request, hospitalID id.HospitalID) error {
	if !r.IsOwnedBy(hospitalID) {
		return dErrors.New(dErrors.CodeForbidden, "request belongs to another hospital")
	}
	return nil
}

// GetRequest returns a request to its owning hospital.
func (s *Service) GetRequest(ctx context.Context, requestID id.RequestID, hospitalID id.HospitalID) (*models.Request, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, translateStoreError(err, "load request")
	}
	if err := requireOwner(req, hospitalID); err != nil {
		return nil, err
	}
	return req, nil
}

// History returns the audit trail of a request to its owning hospital.
func (s *Service) History(ctx context.Context, requestID id.RequestID, hospitalID id.HospitalID) ([]audit.Event, error) {
	if _, err := s.GetRequest(ctx, requestID, hospitalID); err != nil {
		return nil, err
	}
	if s.auditReader == nil {
		return []audit.Event{}, nil
	}
	events, err := s.auditReader.List(ctx, requestID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load request history")
	}
	return events, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, requestID id.RequestID, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "blood_request_id", requestID.String(), "event", string(event), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}

	actor := requestcontext.Actor(ctx)
	e := audit.Event{
		Category:       event.Category(),
		Timestamp:      requestcontext.Now(ctx),
		BloodRequestID: requestID,
		Action:         string(event),
		ActorRole:      string(actor.Role),
		HospitalID:     stringAttr(attributes, "hospital_id"),
		DonorID:        stringAttr(attributes, "donor_id"),
		Decision:       stringAttr(attributes, "decision"),
		Reason:         stringAttr(attributes, "reason"),
		RequestID:      requestcontext.RequestID(ctx),
		ClientIP:       requestcontext.ClientIP(ctx),
	}
	if !actor.IsZero() {
		e.ActorID = actor.ID.String()
	}
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		e.Device = device.ParseUserAgent(ua)
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		e.TraceID = sc.TraceID().String()
	}
	if err := s.auditPublisher.Emit(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", string(event), "error", err)
	}
}

// stringAttr extracts a string value from a key-value attribute slice.
func stringAttr(attrs []any, key string) string {
	for i := 0; i+1 < len(attrs); i += 2 {
		if k, ok := attrs[i].(string); ok && k == key {
			if v, ok := attrs[i+1].(string); ok {
				return v
			}
		}
	}
	return ""
}

func (s *Service) incrementPolicyRejection(code dErrors.Code) {
	if s.metrics != nil {
		s.metrics.IncrementPolicyRejection(string(code))
	}
}

func (s *Service) incrementRequestsCreated() {
	if s.metrics != nil {
		s.metrics.IncrementRequestsCreated()
	}
}

func (s *Service) incrementRequestsClosed(status models.Status) {
	if s.metrics != nil {
		s.metrics.IncrementRequestsClosed(string(status))
	}
}

func (s *Service) incrementResponses(decision models.Decision) {
	if s.metrics != nil {
		s.metrics.IncrementResponses(string(decision))
	}
}

func (s *Service) incrementEscalations(trigger string) {
	if s.metrics != nil {
		s.metrics.IncrementEscalations(trigger)
	}
}

func (s *Service) addDonorsNotified(n int) {
	if s.metrics != nil && n > 0 {
		s.metrics.AddDonorsNotified(n)
	}
}

func (s *Service) incrementNotifyFailures() {
	if s.metrics != nil {
		s.metrics.IncrementNotifyFailures()
	}
}

func (s *Service) observeEligibility(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveEligibility(start)
	}
}

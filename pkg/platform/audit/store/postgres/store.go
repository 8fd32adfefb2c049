package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "bloodlink/pkg/domain"
	audit "bloodlink/pkg/platform/audit"
	txcontext "bloodlink/pkg/platform/tx"
)

// Store appends audit events to the audit_events table. Appends join a transaction
// carried in ctx, so an event can commit together with the state change it records.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	var requestID *uuid.UUID
	if !event.BloodRequestID.IsNil() {
		rid := uuid.UUID(event.BloodRequestID)
		requestID = &rid
	}

	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}

	_, err := txcontext.Use(ctx, s.db).ExecContext(ctx, `
		INSERT INTO audit_events (
			category, timestamp, blood_request_id, action, actor_id, actor_role,
			hospital_id, donor_id, decision, reason, request_id, client_ip, device, trace_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		string(category),
		event.Timestamp,
		requestID,
		event.Action,
		event.ActorID,
		event.ActorRole,
		event.HospitalID,
		event.DonorID,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.ClientIP,
		event.Device,
		event.TraceID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByRequest returns events for a blood request in insertion order.
func (s *Store) ListByRequest(ctx context.Context, requestID id.RequestID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, timestamp, blood_request_id, action, actor_id, actor_role,
			   hospital_id, donor_id, decision, reason, request_id, client_ip, device, trace_id
		FROM audit_events
		WHERE blood_request_id = $1
		ORDER BY id
	`, uuid.UUID(requestID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			category string
			event    audit.Event
			rid      *uuid.UUID
		)
		if err := rows.Scan(
			&category,
			&event.Timestamp,
			&rid,
			&event.Action,
			&event.ActorID,
			&event.ActorRole,
			&event.HospitalID,
			&event.DonorID,
			&event.Decision,
			&event.Reason,
			&event.RequestID,
			&event.ClientIP,
			&event.Device,
			&event.TraceID,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		if rid != nil {
			event.BloodRequestID = id.RequestID(*rid)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

package request

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"bloodlink/internal/bloodrequest/models"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/geo"
	"bloodlink/pkg/platform/sentinel"
	txcontext "bloodlink/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists requests in PostgreSQL. Execute locks the request row with
// SELECT ... FOR UPDATE; the partial unique index on accepted responses of open
// requests rejects a second commitment for the same donor.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const requestColumns = `
	id, hospital_id, blood_type, units, urgency, origin_lat, origin_lng, status, stage,
	notified_donors::text, first_accepted_at, fulfilled_at, cancelled_at, had_acceptance,
	stage_changed_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, req *models.Request) error {
	lat, lng := originArgs(req.Origin)
	_, err := txcontext.Use(ctx, s.db).ExecContext(ctx, `
		INSERT INTO blood_requests (
			id, hospital_id, blood_type, units, urgency, origin_lat, origin_lng, status, stage,
			notified_donors, first_accepted_at, fulfilled_at, cancelled_at, had_acceptance,
			stage_changed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::uuid[], $11, $12, $13, $14, $15, $16, $17)`,
		uuid.UUID(req.ID), uuid.UUID(req.HospitalID), string(req.BloodType), req.Units, string(req.Urgency),
		lat, lng, string(req.Status), req.Stage, pq.Array(donorStrings(req.NotifiedDonors)),
		nullTime(req.FirstAcceptedAt), nullTime(req.FulfilledAt), nullTime(req.CancelledAt), req.HadAcceptance,
		req.StageChangedAt, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("request %s already exists: %w", req.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	return s.load(ctx, txcontext.Use(ctx, s.db), requestID, false)
}

func (s *PostgresStore) Execute(
	ctx context.Context,
	requestID id.RequestID,
	validate func(*models.Request) error,
	mutate func(*models.Request),
) (*models.Request, error) {
	var result *models.Request
	err := txcontext.RunInTx(ctx, s.db, func(ctx context.Context) error {
		q := txcontext.Use(ctx, s.db)
		current, err := s.load(ctx, q, requestID, true)
		if err != nil {
			return err
		}
		if err := validate(current); err != nil {
			return err
		}
		mutate(current)
		if err := s.save(ctx, q, current); err != nil {
			return err
		}
		result = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PostgresStore) ListEscalationCandidates(ctx context.Context, now time.Time, dwell time.Duration) ([]*models.Request, error) {
	rows, err := txcontext.Use(ctx, s.db).QueryContext(ctx, `
		SELECT id FROM blood_requests
		WHERE status = 'pending' AND stage < $1 AND stage_changed_at <= $2
		ORDER BY stage_changed_at`,
		models.MaxStage, now.Add(-dwell),
	)
	if err != nil {
		return nil, fmt.Errorf("list escalation candidates: %w", err)
	}
	var ids []uuid.UUID
	for rows.Next() {
		var u uuid.UUID
		if err := rows.Scan(&u); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan escalation candidate: %w", err)
		}
		ids = append(ids, u)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close escalation candidates: %w", err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate escalation candidates: %w", err)
	}

	out := make([]*models.Request, 0, len(ids))
	for _, u := range ids {
		req, err := s.FindByID(ctx, id.RequestID(u))
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

func (s *PostgresStore) ActiveCommitments(ctx context.Context) (map[id.DonorID]id.RequestID, error) {
	rows, err := txcontext.Use(ctx, s.db).QueryContext(ctx, `
		SELECT donor_id, request_id FROM request_responses
		WHERE state = 'accepted' AND request_open`)
	if err != nil {
		return nil, fmt.Errorf("list active commitments: %w", err)
	}
	defer rows.Close()

	out := make(map[id.DonorID]id.RequestID)
	for rows.Next() {
		var donorID, requestID uuid.UUID
		if err := rows.Scan(&donorID, &requestID); err != nil {
			return nil, fmt.Errorf("scan commitment: %w", err)
		}
		out[id.DonorID(donorID)] = id.RequestID(requestID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commitments: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ActiveCommitment(ctx context.Context, donorID id.DonorID) (id.RequestID, bool, error) {
	var requestID uuid.UUID
	err := txcontext.Use(ctx, s.db).QueryRowContext(ctx, `
		SELECT request_id FROM request_responses
		WHERE donor_id = $1 AND state = 'accepted' AND request_open`,
		uuid.UUID(donorID),
	).Scan(&requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return id.RequestID{}, false, nil
	}
	if err != nil {
		return id.RequestID{}, false, fmt.Errorf("find active commitment: %w", err)
	}
	return id.RequestID(requestID), true, nil
}

func (s *PostgresStore) load(ctx context.Context, q txcontext.Querier, requestID id.RequestID, forUpdate bool) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM blood_requests WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		req                                 models.Request
		reqID, hospitalID                   uuid.UUID
		bloodType, urgency, status          string
		lat, lng                            sql.NullFloat64
		notified                            []string
		firstAccepted, fulfilled, cancelled sql.NullTime
	)
	err := q.QueryRowContext(ctx, query, uuid.UUID(requestID)).Scan(
		&reqID, &hospitalID, &bloodType, &req.Units, &urgency, &lat, &lng, &status, &req.Stage,
		pq.Array(&notified), &firstAccepted, &fulfilled, &cancelled, &req.HadAcceptance,
		&req.StageChangedAt, &req.CreatedAt, &req.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("request not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load request: %w", err)
	}

	req.ID = id.RequestID(reqID)
	req.HospitalID = id.HospitalID(hospitalID)
	req.BloodType = models.BloodType(bloodType)
	req.Urgency = models.Urgency(urgency)
	req.Status = models.Status(status)
	if lat.Valid && lng.Valid {
		req.Origin = &geo.Point{Lat: lat.Float64, Lng: lng.Float64}
	}
	req.FirstAcceptedAt = timePtr(firstAccepted)
	req.FulfilledAt = timePtr(fulfilled)
	req.CancelledAt = timePtr(cancelled)

	req.NotifiedDonors = make([]id.DonorID, 0, len(notified))
	for _, raw := range notified {
		u, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse notified donor %q: %w", raw, err)
		}
		req.NotifiedDonors = append(req.NotifiedDonors, id.DonorID(u))
	}

	responses, err := loadResponses(ctx, q, requestID)
	if err != nil {
		return nil, err
	}
	req.Responses = responses
	return &req, nil
}

func loadResponses(ctx context.Context, q txcontext.Querier, requestID id.RequestID) ([]models.Response, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT donor_id, state, responded_at, completed_at, cancelled_at, COALESCE(cancelled_by, '')
		FROM request_responses WHERE request_id = $1 ORDER BY seq`,
		uuid.UUID(requestID),
	)
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}
	defer rows.Close()

	out := []models.Response{}
	for rows.Next() {
		var (
			r                    models.Response
			donorID              uuid.UUID
			state, cancelledBy   string
			completed, cancelled sql.NullTime
		)
		if err := rows.Scan(&donorID, &state, &r.RespondedAt, &completed, &cancelled, &cancelledBy); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		r.DonorID = id.DonorID(donorID)
		r.State = models.ResponseState(state)
		r.CompletedAt = timePtr(completed)
		r.CancelledAt = timePtr(cancelled)
		r.CancelledBy = models.Actor(cancelledBy)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate responses: %w", err)
	}
	return out, nil
}

// save writes the mutable request columns and upserts the response log. The response
// log is append-only so existing rows only change state and timestamps.
func (s *PostgresStore) save(ctx context.Context, q txcontext.Querier, req *models.Request) error {
	_, err := q.ExecContext(ctx, `
		UPDATE blood_requests SET
			status = $2, stage = $3, notified_donors = $4::uuid[], first_accepted_at = $5,
			fulfilled_at = $6, cancelled_at = $7, had_acceptance = $8, stage_changed_at = $9,
			updated_at = $10
		WHERE id = $1`,
		uuid.UUID(req.ID), string(req.Status), req.Stage, pq.Array(donorStrings(req.NotifiedDonors)),
		nullTime(req.FirstAcceptedAt), nullTime(req.FulfilledAt), nullTime(req.CancelledAt),
		req.HadAcceptance, req.StageChangedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}

	open := req.IsPending()
	// Closing the request releases every commitment before any row is rewritten.
	if !open {
		if _, err := q.ExecContext(ctx,
			`UPDATE request_responses SET request_open = FALSE WHERE request_id = $1`,
			uuid.UUID(req.ID),
		); err != nil {
			return fmt.Errorf("close responses: %w", err)
		}
	}

	for seq, r := range req.Responses {
		var cancelledBy sql.NullString
		if r.CancelledBy != "" {
			cancelledBy = sql.NullString{String: string(r.CancelledBy), Valid: true}
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO request_responses (
				request_id, seq, donor_id, state, responded_at, completed_at, cancelled_at,
				cancelled_by, request_open
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (request_id, donor_id) DO UPDATE SET
				state = EXCLUDED.state,
				completed_at = EXCLUDED.completed_at,
				cancelled_at = EXCLUDED.cancelled_at,
				cancelled_by = EXCLUDED.cancelled_by,
				request_open = EXCLUDED.request_open
			WHERE (request_responses.state, request_responses.request_open)
				IS DISTINCT FROM (EXCLUDED.state, EXCLUDED.request_open)`,
			uuid.UUID(req.ID), seq, uuid.UUID(r.DonorID), string(r.State), r.RespondedAt,
			nullTime(r.CompletedAt), nullTime(r.CancelledAt), cancelledBy, open,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("donor %s already committed to another request: %w", r.DonorID, sentinel.ErrConflict)
			}
			return fmt.Errorf("upsert response: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func originArgs(p *geo.Point) (sql.NullFloat64, sql.NullFloat64) {
	if p == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: p.Lat, Valid: true}, sql.NullFloat64{Float64: p.Lng, Valid: true}
}

func donorStrings(ids []id.DonorID) []string {
	out := make([]string, 0, len(ids))
	for _, d := range ids {
		out = append(out, d.String())
	}
	return out
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

package notification

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/bloodrequest/models"
	id "bloodlink/pkg/domain"
)

func TestMessages(t *testing.T) {
	req, err := models.NewRequest(id.NewRequestID(), id.HospitalID(uuid.New()), models.BloodTypeABNeg, 3,
		models.UrgencyHigh, nil, time.Now())
	require.NoError(t, err)
	hospital := &models.HospitalContact{Name: "General Hospital"}

	t.Run("nearby", func(t *testing.T) {
		m := RequestNearby(req, hospital)
		assert.Contains(t, m.Subject, "AB-")
		assert.Contains(t, m.Body, "General Hospital needs 3 unit(s)")
		assert.Contains(t, m.Body, "20 km")
		assert.Contains(t, m.Body, req.ID.String())
	})

	t.Run("escalated uses the current radius", func(t *testing.T) {
		req.ApplyEscalation(time.Now())
		m := RequestEscalated(req, hospital)
		assert.Contains(t, m.Subject, "30 km")
	})

	t.Run("cancelled without hospital name", func(t *testing.T) {
		m := CommitmentCancelled(req, nil)
		assert.Contains(t, m.Body, "A hospital has cancelled")
	})
}

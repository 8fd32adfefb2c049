package testutil

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"bloodlink/pkg/requestcontext"
)

// AsHospital marks the request as made by an authenticated hospital, as RequireAuth would.
func AsHospital(req *http.Request, hospitalID uuid.UUID) *http.Request {
	return withActor(req, hospitalID, requestcontext.RoleHospital)
}

// AsDonor marks the request as made by an authenticated donor.
func AsDonor(req *http.Request, donorID uuid.UUID) *http.Request {
	return withActor(req, donorID, requestcontext.RoleDonor)
}

// AtTime pins the request-scoped clock.
func AtTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

func withActor(req *http.Request, actorID uuid.UUID, role requestcontext.Role) *http.Request {
	ctx := requestcontext.WithActor(req.Context(), requestcontext.ActorInfo{ID: actorID, Role: role})
	return req.WithContext(ctx)
}

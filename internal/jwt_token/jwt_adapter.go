package jwttoken

import (
	"github.com/google/uuid"

	"bloodlink/internal/platform/middleware"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/requestcontext"
)

// ToMiddlewareClaims converts validated token claims into the actor the middleware stores.
func ToMiddlewareClaims(claims *Claims) (*middleware.JWTClaims, error) {
	actorID, err := uuid.Parse(claims.Subject)
	if err != nil || actorID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	role := requestcontext.Role(claims.Role)
	if !role.Valid() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "unsupported token role")
	}
	return &middleware.JWTClaims{
		ActorID: actorID,
		Role:    role,
		JTI:     claims.ID,
	}, nil
}

type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims)
}

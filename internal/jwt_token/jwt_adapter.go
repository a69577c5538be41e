package jwttoken

import (
	"staffops/internal/platform/middleware"
	id "staffops/pkg/domain"
)

// JWTServiceAdapter bridges the token service to the middleware's validator
// interface so the middleware package stays free of JWT internals.
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
	return &middleware.JWTClaims{
		UserID: id.UserID(claims.UserID),
		Role:   id.ParseRole(claims.Role),
	}, nil
}

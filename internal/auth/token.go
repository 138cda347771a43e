// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"technexus/internal/models"
)

const (
	purposeSession = "session"
	purposeReset   = "reset"
)

// tokenClaims carry the account's token version; a password change bumps
// it and every older token stops verifying.
type tokenClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	Version int    `json:"ver"`
	jwt.RegisteredClaims
}

func (s *Service) issueSession(u *models.User) (*models.Session, error) {
	token, exp, err := s.signToken(u, purposeSession, s.cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	return &models.Session{AccessToken: token, ExpiresAt: exp, User: u.Public()}, nil
}

func (s *Service) signToken(u *models.User, purpose string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(ttl)
	claims := tokenClaims{
		Email:   u.Email,
		Purpose: purpose,
		Version: u.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp.UTC().Truncate(time.Second), nil
}

func (s *Service) parseToken(raw, purpose string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return s.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Purpose != purpose || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// currentUser loads the token's account and rejects tokens signed under an
// older token version.
func (s *Service) currentUser(ctx context.Context, claims *tokenClaims) (*models.User, error) {
	u, err := s.users.FindByID(ctx, models.ID(claims.Subject))
	if err != nil {
		return nil, err
	}
	if u == nil || u.TokenVersion != claims.Version {
		return nil, ErrInvalidToken
	}
	return u, nil
}

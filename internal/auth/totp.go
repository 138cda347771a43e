// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"technexus/internal/models"
)

// Enrollment is a pending 2FA setup: the secret and a QR code of its
// otpauth URL.
type Enrollment struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
	QRPNG  []byte `json:"qr_png"`
}

// EnrollTOTP generates and stores a fresh secret. 2FA is not active until
// ConfirmTOTP succeeds.
func (s *Service) EnrollTOTP(ctx context.Context, id models.ID) (*Enrollment, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("enroll totp: %w", err)
	}
	if u == nil {
		return nil, ErrInvalidToken
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.cfg.Issuer,
		AccountName: u.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("totp generate: %w", err)
	}
	if err := s.users.SetTOTPSecret(ctx, id, key.Secret()); err != nil {
		return nil, fmt.Errorf("save totp secret: %w", err)
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	return &Enrollment{Secret: key.Secret(), URL: key.URL(), QRPNG: png}, nil
}

// ConfirmTOTP activates 2FA once the user proves they hold the secret.
func (s *Service) ConfirmTOTP(ctx context.Context, id models.ID, code string) error {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("confirm totp: %w", err)
	}
	if u == nil || u.TOTPSecret == nil {
		return models.Invalid("code", "no pending two-factor enrollment")
	}
	if !validateTOTP(code, *u.TOTPSecret, s.now()) {
		return models.Invalid("code", "invalid two-factor code")
	}
	if err := s.users.EnableTOTP(ctx, id); err != nil {
		return fmt.Errorf("enable totp: %w", err)
	}
	return nil
}

func validateTOTP(code, secret string, at time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

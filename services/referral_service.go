package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"kelpAPI/internal/metrics"
	"kelpAPI/internal/profile"
	"kelpAPI/internal/store"
)

const (
	codeAlphabet   = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	CodeLength     = 8
	maxCodeRetries = 5
	qrSize         = 256
)

// CodeGenerator returns a fresh candidate referral code.
type CodeGenerator func() (string, error)

// RandomCode draws CodeLength characters uniformly from 0-9A-Z.
func RandomCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	var sb strings.Builder
	sb.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(codeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// NormalizeCode trims whitespace and upper-cases a user supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type ReferralService struct {
	store         ProfileRepository
	generate      CodeGenerator
	shareLinkBase string
	logger        *zap.Logger
}

func NewReferralService(s ProfileRepository, shareLinkBase string, logger *zap.Logger) *ReferralService {
	return &ReferralService{
		store:         s,
		generate:      RandomCode,
		shareLinkBase: shareLinkBase,
		logger:        logger,
	}
}

// WithGenerator swaps the code source; tests use it to force collisions.
func (s *ReferralService) WithGenerator(g CodeGenerator) *ReferralService {
	s.generate = g
	return s
}

func (s *ReferralService) loadProfile(ctx context.Context, userID string) (*profile.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewNotFoundError("profile not found")
		}
		return nil, NewPersistenceError("could not load profile", err)
	}
	return p, nil
}

// withFreshCode calls write with new candidate codes until one is not taken
// by another profile.
func (s *ReferralService) withFreshCode(userID string, write func(code string) (string, error)) (string, error) {
	for attempt := 1; attempt <= maxCodeRetries; attempt++ {
		candidate, err := s.generate()
		if err != nil {
			return "", NewPersistenceError("could not generate code", err)
		}

		code, err := write(candidate)
		if err == nil {
			return code, nil
		}
		if errors.Is(err, store.ErrNotFound) {
			return "", NewNotFoundError("profile not found")
		}
		if !errors.Is(err, store.ErrConflict) {
			return "", NewPersistenceError("could not generate code", err)
		}

		s.logger.Warn("referral code collision, retrying",
			zap.String("user_id", userID),
			zap.Int("attempt", attempt),
		)
	}
	return "", NewPersistenceError("could not generate code", fmt.Errorf("no unique code after %d attempts", maxCodeRetries))
}

// GetOrCreateCode returns the user's code, creating one on first use. The
// claim is conditional so concurrent first calls all see the same code.
func (s *ReferralService) GetOrCreateCode(ctx context.Context, userID string) (string, error) {
	p, err := s.loadProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	if p.ReferralCode != nil && *p.ReferralCode != "" {
		return *p.ReferralCode, nil
	}

	created := false
	code, err := s.withFreshCode(userID, func(candidate string) (string, error) {
		got, err := s.store.ClaimReferralCode(ctx, userID, candidate)
		if err == nil && got == candidate {
			created = true
		}
		return got, err
	})
	if err != nil {
		return "", err
	}

	if created {
		metrics.ReferralCodesGenerated.Inc()
		s.logger.Info("referral code created", zap.String("user_id", userID))
	}
	return code, nil
}

// RegenerateCode replaces the user's code unconditionally.
func (s *ReferralService) RegenerateCode(ctx context.Context, userID string) (string, error) {
	p, err := s.loadProfile(ctx, userID)
	if err != nil {
		return "", err
	}

	previous := ""
	if p.ReferralCode != nil {
		previous = *p.ReferralCode
	}

	code, err := s.withFreshCode(userID, func(candidate string) (string, error) {
		if candidate == previous {
			return "", store.ErrConflict
		}
		return candidate, s.store.SetReferralCode(ctx, userID, candidate)
	})
	if err != nil {
		return "", err
	}

	metrics.ReferralCodesGenerated.Inc()
	s.logger.Info("referral code regenerated", zap.String("user_id", userID))
	return code, nil
}

// ValidateCode looks up the owner of code. An unknown or empty code is not an
// error: found is false and the profile is nil.
func (s *ReferralService) ValidateCode(ctx context.Context, code string) (*profile.Profile, bool, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, false, nil
	}

	owner, err := s.store.FindByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, NewPersistenceError("could not validate code", err)
	}
	return owner, true, nil
}

// RedeemCode records that userID was invited by the owner of code. A user
// can be referred once and never by themselves.
func (s *ReferralService) RedeemCode(ctx context.Context, userID, code string) (*profile.Referrer, error) {
	if _, err := s.loadProfile(ctx, userID); err != nil {
		return nil, err
	}

	owner, found, err := s.ValidateCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, NewNoMatchError("invite code not found")
	}
	if owner.ID == userID {
		return nil, NewValidationError("cannot redeem your own invite code")
	}

	linked, err := s.store.SetReferredBy(ctx, userID, owner.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewNotFoundError("profile not found")
		}
		return nil, NewPersistenceError("could not redeem code", err)
	}
	if !linked {
		return nil, NewValidationError("an invite code was already redeemed")
	}

	s.logger.Info("invite code redeemed",
		zap.String("user_id", userID),
		zap.String("referrer_id", owner.ID),
	)
	return owner.AsReferrer(), nil
}

// ShareLink builds the deep link for code.
func (s *ReferralService) ShareLink(code string) string {
	return s.shareLinkBase + "?ref=" + url.QueryEscape(code)
}

// ShareCode returns the user's code with a deep link and a PNG QR code of
// that link, base64 encoded.
func (s *ReferralService) ShareCode(ctx context.Context, userID string) (*profile.ShareCodeResponse, error) {
	code, err := s.GetOrCreateCode(ctx, userID)
	if err != nil {
		return nil, err
	}

	link := s.ShareLink(code)
	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		return nil, NewPersistenceError("could not render share code", err)
	}

	return &profile.ShareCodeResponse{
		Code:         code,
		ShareLink:    link,
		QrCodeBase64: base64.StdEncoding.EncodeToString(png),
	}, nil
}

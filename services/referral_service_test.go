package services

import (
	"context"
	"encoding/base64"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kelpAPI/internal/store"
)

var codePattern = regexp.MustCompile(`^[0-9A-Z]{8}$`)

func sequence(codes ...string) CodeGenerator {
	i := 0
	return func() (string, error) {
		if i >= len(codes) {
			return "", errors.New("sequence exhausted")
		}
		c := codes[i]
		i++
		return c, nil
	}
}

func newReferralService(mem *store.MemoryStore) *ReferralService {
	return NewReferralService(mem, "kelp://invite", zap.NewNop())
}

func TestRandomCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := RandomCode()
		require.NoError(t, err)
		assert.Regexp(t, codePattern, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestGetOrCreateCodeIsStable(t *testing.T) {
	mem := store.NewMemoryStore()
	newProfile(t, mem, "user_1")
	svc := newReferralService(mem)
	ctx := context.Background()

	first, err := svc.GetOrCreateCode(ctx, "user_1")
	require.NoError(t, err)
	assert.Regexp(t, codePattern, first)

	second, err := svc.GetOrCreateCode(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGetOrCreateCodeUnknownUser(t *testing.T) {
	svc := newReferralService(store.NewMemoryStore())

	_, err := svc.GetOrCreateCode(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetOrCreateCodeRetriesCollisions(t *testing.T) {
	mem := store.NewMemoryStore()
	newProfile(t, mem, "owner", withCode("TAKEN001"))
	newProfile(t, mem, "user_1")
	svc := newReferralService(mem).WithGenerator(sequence("TAKEN001", "TAKEN001", "FRESH002"))

	code, err := svc.GetOrCreateCode(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, "FRESH002", code)
}

func TestGetOrCreateCodeGivesUpAfterRetries(t *testing.T) {
	mem := store.NewMemoryStore()
	newProfile(t, mem, "owner", withCode("TAKEN001"))
	newProfile(t, mem, "user_1")
	svc := newReferralService(mem).WithGenerator(func() (string, error) { return "TAKEN001", nil })
	ctx := context.Background()

	_, err := svc.GetOrCreateCode(ctx, "user_1")
	require.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, "could not generate code", AsServiceError(err).Message)

	p, err := mem.GetProfile(ctx, "user_1")
	require.NoError(t, err)
	assert.Nil(t, p.ReferralCode, "failed generation leaves no partial state")
}

func TestRegenerateCodeReplacesStoredCode(t *testing.T) {
	mem := store.NewMemoryStore()
	newProfile(t, mem, "user_1")
	svc := newReferralService(mem)
	ctx := context.Background()

	original, err := svc.GetOrCreateCode(ctx, "user_1")
	require.NoError(t, err)

	regenerated, err := svc.RegenerateCode(ctx, "user_1")
	require.NoError(t, err)
	assert.NotEqual(t, original, regenerated)

	current, err := svc.GetOrCreateCode(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, regenerated, current)

	_, found, err := svc.ValidateCode(ctx, original)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRegenerateCodeSkipsPreviousValue(t *testing.T) {
	mem := store.NewMemoryStore()
	newProfile(t, mem, "user_1", withCode("SAME0001"))
	svc := newReferralService(mem).WithGenerator(sequence("SAME0001", "NEXT0002"))

	code, err := svc.RegenerateCode(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, "NEXT0002", code)
}

func TestValidateCodeIgnoresCaseAndWhitespace(t *testing.T) {
	mem := store.NewMemoryStore()
	newProfile(t, mem, "owner", withCode("ABC123"))
	svc := newReferralService(mem)
	ctx := context.Background()

	for _, input := range []string{"abc123", " ABC123 ", "AbC123\n"} {
		p, found, err := svc.ValidateCode(ctx, input)
		require.NoError(t, err, input)
		assert.True(t, found, input)
		require.NotNil(t, p)
		assert.Equal(t, "owner", p.ID)
	}

	p, found, err := svc.ValidateCode(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, p)

	p, found, err = svc.ValidateCode(ctx, "   ")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, p)
}

func TestRedeemCode(t *testing.T) {
	mem := store.NewMemoryStore()
	newProfile(t, mem, "owner", withCode("ABC123"))
	newProfile(t, mem, "other", withCode("XYZ789"))
	newProfile(t, mem, "newbie")
	svc := newReferralService(mem)
	ctx := context.Background()

	_, err := svc.RedeemCode(ctx, "owner", "abc123")
	assert.ErrorIs(t, err, ErrValidation, "own code")

	_, err = svc.RedeemCode(ctx, "newbie", "MISSING1")
	assert.ErrorIs(t, err, ErrNoMatch)

	ref, err := svc.RedeemCode(ctx, "newbie", " abc123")
	require.NoError(t, err)
	assert.Equal(t, "owner", ref.ID)

	_, err = svc.RedeemCode(ctx, "newbie", "XYZ789")
	assert.ErrorIs(t, err, ErrValidation, "second redemption")

	p, err := mem.GetProfile(ctx, "newbie")
	require.NoError(t, err)
	require.NotNil(t, p.ReferredBy)
	assert.Equal(t, "owner", *p.ReferredBy)
}

func TestShareCode(t *testing.T) {
	mem := store.NewMemoryStore()
	newProfile(t, mem, "owner", withCode("ABC12345"))
	svc := newReferralService(mem)

	share, err := svc.ShareCode(context.Background(), "owner")
	require.NoError(t, err)
	assert.Equal(t, "ABC12345", share.Code)
	assert.Equal(t, "kelp://invite?ref=ABC12345", share.ShareLink)

	png, err := base64.StdEncoding.DecodeString(share.QrCodeBase64)
	require.NoError(t, err)
	require.Greater(t, len(png), 8)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

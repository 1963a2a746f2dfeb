package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time           { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, h.Verify("s3cret", hash))
	assert.False(t, h.Verify("wrong", hash))
	assert.False(t, h.Verify("s3cret", "not-a-hash"))

	other, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salted hashes differ")
}

func TestPasswordHasher_FixtureHash(t *testing.T) {
	h := NewPasswordHasher(0)
	assert.True(t, h.Verify("secret", "$2b$12$EixZaYVK1fsbw1ZfbX3OXePaWxn96p36WQoeG6Lruj3vjPGga31lW"))
}

func TestTokenService_RoundTrip(t *testing.T) {
	ts, err := NewTokenService("test-secret", "HS256")
	require.NoError(t, err)

	token, err := ts.Issue("a@x.com", time.Minute)
	require.NoError(t, err)

	sub, err := ts.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", sub)
}

func TestTokenService_Expired(t *testing.T) {
	c := newClock()
	ts, err := NewTokenService("test-secret", "HS256")
	require.NoError(t, err)
	ts.now = c.now

	token, err := ts.Issue("a@x.com", 30*time.Minute)
	require.NoError(t, err)

	c.advance(29 * time.Minute)
	_, err = ts.Decode(token)
	require.NoError(t, err)

	c.advance(2 * time.Minute)
	_, err = ts.Decode(token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokenService_DefaultTTL(t *testing.T) {
	c := newClock()
	ts, err := NewTokenService("test-secret", "HS256")
	require.NoError(t, err)
	ts.now = c.now

	token, err := ts.Issue("a@x.com", 0)
	require.NoError(t, err)

	c.advance(DefaultTokenTTL - time.Second)
	_, err = ts.Decode(token)
	require.NoError(t, err)

	c.advance(2 * time.Second)
	_, err = ts.Decode(token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokenService_Rejects(t *testing.T) {
	ts, err := NewTokenService("test-secret", "HS256")
	require.NoError(t, err)
	other, err := NewTokenService("other-secret", "HS256")
	require.NoError(t, err)

	foreign, err := other.Issue("a@x.com", time.Minute)
	require.NoError(t, err)
	_, err = ts.Decode(foreign)
	assert.ErrorIs(t, err, ErrInvalidCredentials, "different secret")

	_, err = ts.Decode("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "malformed")

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = ts.Decode(noSub)
	assert.ErrorIs(t, err, ErrInvalidCredentials, "missing subject")

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "a@x.com",
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = ts.Decode(noExp)
	assert.ErrorIs(t, err, ErrInvalidCredentials, "missing expiry")

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "a@x.com",
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = ts.Decode(hs512)
	assert.ErrorIs(t, err, ErrInvalidCredentials, "unexpected algorithm")
}

func TestNewTokenService_Validation(t *testing.T) {
	_, err := NewTokenService("", "HS256")
	assert.Error(t, err)
	_, err = NewTokenService("secret", "RS256")
	assert.Error(t, err)
	_, err = NewTokenService("secret", "none")
	assert.Error(t, err)
}

func newTestVerification(c *clock) (*VerificationService, *MemoryCodeStore) {
	store := NewMemoryCodeStore()
	store.now = c.now
	svc := NewVerificationService(store, DefaultCodeTTL)
	svc.now = c.now
	return svc, store
}

func TestVerification_CodeShape(t *testing.T) {
	svc, _ := newTestVerification(newClock())
	code, err := svc.Generate(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Regexp(t, `^[1-9][0-9]{5}$`, code)
}

func TestVerification_CheckAndExpiry(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	svc, _ := newTestVerification(c)

	assert.ErrorIs(t, svc.Check(ctx, "a@x.com", "123456"), ErrCodeExpired, "no record")

	code, err := svc.Generate(ctx, "a@x.com")
	require.NoError(t, err)
	assert.NoError(t, svc.Check(ctx, "a@x.com", code))
	assert.ErrorIs(t, svc.Check(ctx, "a@x.com", "000000"), ErrInvalidCode)

	c.advance(DefaultCodeTTL)
	assert.ErrorIs(t, svc.Check(ctx, "a@x.com", code), ErrCodeExpired)
}

func TestVerification_LatestCodeWins(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestVerification(newClock())

	first, err := svc.Generate(ctx, "a@x.com")
	require.NoError(t, err)
	var second string
	for second == "" || second == first {
		second, err = svc.Generate(ctx, "a@x.com")
		require.NoError(t, err)
	}

	assert.ErrorIs(t, svc.Check(ctx, "a@x.com", first), ErrInvalidCode)
	assert.NoError(t, svc.Check(ctx, "a@x.com", second))
}

func TestVerification_VerifiedGate(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	svc, _ := newTestVerification(c)

	ok, err := svc.IsVerified(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)

	code, err := svc.Generate(ctx, "a@x.com")
	require.NoError(t, err)
	ok, err = svc.IsVerified(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok, "generated but not checked")

	require.NoError(t, svc.Verify(ctx, "a@x.com", code))
	ok, err = svc.IsVerified(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, ok)

	c.advance(DefaultCodeTTL + time.Second)
	ok, err = svc.IsVerified(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok, "verification lapses with the code")
}

func TestVerification_Consume(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestVerification(newClock())

	code, err := svc.Generate(ctx, "a@x.com")
	require.NoError(t, err)
	require.NoError(t, svc.Verify(ctx, "a@x.com", code))
	require.NoError(t, svc.Consume(ctx, "a@x.com"))

	assert.Equal(t, 0, store.Len())
	ok, err := svc.IsVerified(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, svc.Verify(ctx, "a@x.com", code), ErrCodeExpired)
}

func TestMemoryCodeStore_SweepsExpired(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	svc, store := newTestVerification(c)

	_, err := svc.Generate(ctx, "old@x.com")
	require.NoError(t, err)
	c.advance(DefaultCodeTTL + time.Minute)
	_, err = svc.Generate(ctx, "new@x.com")
	require.NoError(t, err)

	assert.Equal(t, 1, store.Len())
}

func TestRedisCodeStore(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	client, mock := redismock.NewClientMock()
	store := NewRedisCodeStore(client)
	store.now = c.now

	rec := CodeRecord{Code: "123456", ExpiresAt: c.t.Add(DefaultCodeTTL)}
	payload, err := json.Marshal(rec)
	require.NoError(t, err)
	verified := rec
	verified.Verified = true
	verifiedPayload, err := json.Marshal(verified)
	require.NoError(t, err)

	mock.ExpectSet("verification:a@x.com", payload, DefaultCodeTTL).SetVal("OK")
	mock.ExpectGet("verification:a@x.com").SetVal(string(payload))
	mock.ExpectSet("verification:a@x.com", verifiedPayload, redis.KeepTTL).SetVal("OK")
	mock.ExpectDel("verification:a@x.com").SetVal(1)
	mock.ExpectGet("verification:a@x.com").RedisNil()

	require.NoError(t, store.Save(ctx, "a@x.com", rec))
	require.NoError(t, store.MarkVerified(ctx, "a@x.com"))
	require.NoError(t, store.Delete(ctx, "a@x.com"))
	_, err = store.Get(ctx, "a@x.com")
	assert.ErrorIs(t, err, errNoCode)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCodeStore_SaveExpiredDeletes(t *testing.T) {
	c := newClock()
	client, mock := redismock.NewClientMock()
	store := NewRedisCodeStore(client)
	store.now = c.now

	mock.ExpectDel("verification:a@x.com").SetVal(0)
	require.NoError(t, store.Save(context.Background(), "a@x.com", CodeRecord{Code: "1", ExpiresAt: c.t}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCodeStore_WithVerificationService(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	client, mock := redismock.NewClientMock()
	store := NewRedisCodeStore(client)
	store.now = c.now
	svc := NewVerificationService(store, DefaultCodeTTL)
	svc.now = c.now

	rec := CodeRecord{Code: "654321", ExpiresAt: c.t.Add(DefaultCodeTTL), Verified: true}
	payload, err := json.Marshal(rec)
	require.NoError(t, err)
	mock.ExpectGet("verification:a@x.com").SetVal(string(payload))

	ok, err := svc.IsVerified(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectFromClaims(t *testing.T) {
	exp := jwt.NewNumericDate(time.Now().Add(time.Minute))

	sub, err := SubjectFromClaims(jwt.MapClaims{"sub": "a@x.com", "exp": float64(exp.Unix())})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", sub)

	_, err = SubjectFromClaims(jwt.MapClaims{"sub": "a@x.com"})
	assert.ErrorIs(t, err, ErrInvalidCredentials, "no expiry")

	_, err = SubjectFromClaims(jwt.MapClaims{"exp": float64(exp.Unix())})
	assert.ErrorIs(t, err, ErrInvalidCredentials, "no subject")
}

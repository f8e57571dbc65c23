package security

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for tokens that fail verification or have expired
var ErrInvalidToken = errors.New("invalid session token")

const issuer = "suzukitracker"

// SessionSigner issues and verifies HS256 session tokens whose subject is the teacher ID
type SessionSigner struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

// NewSessionSigner creates a signer; tokens expire after duration
func NewSessionSigner(secret string, duration time.Duration) *SessionSigner {
	return &SessionSigner{secret: []byte(secret), duration: duration, now: time.Now}
}

// Issue returns a signed token for teacherID and its expiry
func (s *SessionSigner) Issue(teacherID int64) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.duration)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   strconv.FormatInt(teacherID, 10),
		ID:        GenerateSessionID(),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify checks a token's signature and expiry and returns the teacher ID it carries
func (s *SessionSigner) Verify(token string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	teacherID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || teacherID <= 0 {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return teacherID, nil
}

// GenerateSessionID creates a new UUID used as a token ID
func GenerateSessionID() string {
	return uuid.New().String()
}

// NewResetToken returns a random single-use token and the hash to store for it
func NewResetToken() (token, hash string) {
	token = uuid.New().String()
	return token, HashToken(token)
}

// HashToken returns the hex SHA-256 of a token
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

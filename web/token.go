package web

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

var (
	ErrSessionTokenExpired = goerrors.New("session token expired", goerrors.CategoryAuth).
				WithTextCode("SESSION_TOKEN_EXPIRED").
				WithCode(goerrors.CodeUnauthorized)

	ErrSessionTokenMalformed = goerrors.New("session token malformed", goerrors.CategoryAuth).
					WithTextCode("SESSION_TOKEN_MALFORMED").
					WithCode(goerrors.CodeUnauthorized)
)

// SessionClaims is what the session cookie carries. UID is empty while the
// browser is signed out.
type SessionClaims struct {
	jwt.RegisteredClaims
	SID string `json:"sid"`
	UID string `json:"uid,omitempty"`
}

// SessionTokens signs and verifies session cookies with HS256.
type SessionTokens struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

func NewSessionTokens(signingKey []byte, issuer string, ttl time.Duration) *SessionTokens {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionTokens{
		signingKey: signingKey,
		issuer:     issuer,
		ttl:        ttl,
		now:        time.Now,
	}
}

// TTL is how long an issued token is valid.
func (ts *SessionTokens) TTL() time.Duration {
	return ts.ttl
}

func (ts *SessionTokens) Issue(sid, uid string) (string, error) {
	now := ts.now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   sid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
		SID: sid,
		UID: uid,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session token")
	}
	return signed, nil
}

func (ts *SessionTokens) Parse(raw string) (*SessionClaims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(ts.now)}
	if ts.issuer != "" {
		opts = append(opts, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrSessionTokenMalformed.Category, ErrSessionTokenMalformed.Message).
			WithTextCode(ErrSessionTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SID == "" {
		return nil, ErrSessionTokenMalformed
	}
	return claims, nil
}

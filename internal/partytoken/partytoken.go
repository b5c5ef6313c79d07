// Package partytoken issues and validates the JWTs market parties present on
// common reference endpoints. Tokens bind a party domain to a market role;
// the topology handlers refuse updates whose sender domain differs from the
// authenticated party.
package partytoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"coref/internal/domain"
	dErrors "coref/pkg/domain-errors"
)

// Claims are the JWT claims carried by a party token.
type Claims struct {
	PartyDomain string `json:"party_domain"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// Service signs and validates party tokens with a shared HS256 key.
type Service struct {
	signingKey []byte
	issuer     string
}

// New builds a party token service.
func New(signingKey string, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// Issue mints a token for a party. Tokens are handed out operationally, not
// through a public endpoint.
func (s *Service) Issue(partyDomain string, role domain.Role, expiresIn time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		PartyDomain: partyDomain,
		Role:        string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Subject:   partyDomain,
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// ValidateToken parses and verifies a party token.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.PartyDomain == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token carries no party domain")
	}
	return claims, nil
}

package jwttoken

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"roster/internal/platform/middleware"
	dErrors "roster/pkg/domain-errors"
)

// Claims carries the member identity inside access tokens. The session layer
// that issues these tokens lives outside this service; we only validate.
type Claims struct {
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
}

func New(signingKey string, issuer string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// GenerateToken signs an HS256 token for the given member. Used by tests and
// local tooling; production tokens come from the identity provider.
func (s *Service) GenerateToken(username string, admin bool, expiresIn time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username: username,
		Admin:    admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken parses and verifies a token, returning middleware claims.
func (s *Service) ValidateToken(tokenString string) (*middleware.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnauthorized, "invalid token", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Username == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return &middleware.Claims{Username: claims.Username, Admin: claims.Admin}, nil
}

package mongobackend

import (
	"errors"
	"time"

	"github.com/dalemusser/souqhub/internal/app/backend"
	"github.com/dalemusser/souqhub/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "souqhub"

// Claims are the access-token claims. Subject is the account id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

func (s *Service) signAccessToken(a models.Account, now, exp time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   a.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: a.Email,
	})
	return token.SignedString(s.secret)
}

// VerifyAccessToken validates signature, issuer and expiry and returns the
// claims. Any failure is reported as backend.ErrInvalidToken.
func (s *Service) VerifyAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.Join(backend.ErrInvalidToken, err)
		}
		return nil, backend.ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return nil, backend.ErrInvalidToken
	}
	return claims, nil
}

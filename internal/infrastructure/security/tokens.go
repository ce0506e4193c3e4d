package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/99minutos/identity-service/internal/core/domain"
)

const (
	DefaultTokenTTL    = time.Hour
	DefaultTokenIssuer = "identity-service"
)

// sessionClaims is the JWT payload. Role is a snapshot taken at issuance.
type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTTokenService implements ports.TokenService with HS256 tokens.
type JWTTokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

type TokenOption func(*JWTTokenService)

func WithIssuer(issuer string) TokenOption {
	return func(s *JWTTokenService) {
		s.issuer = issuer
	}
}

func WithNowFunc(now func() time.Time) TokenOption {
	return func(s *JWTTokenService) {
		s.now = now
	}
}

// NewJWTTokenService builds the token service. The secret is read once here;
// changing it at runtime would invalidate every outstanding token.
func NewJWTTokenService(secret string, ttl time.Duration, opts ...TokenOption) *JWTTokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &JWTTokenService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: DefaultTokenIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithStrictDecoding(),
	)
	return s
}

// TTL is the configured token lifetime.
func (s *JWTTokenService) TTL() time.Duration { return s.ttl }

func (s *JWTTokenService) Issue(identityID string, role domain.Role) (domain.IssuedToken, error) {
	if identityID == "" || !role.Valid() {
		return domain.IssuedToken{}, errors.New("issue token: subject and a valid role are required")
	}

	now := s.now().UTC().Truncate(time.Second)
	exp := now.Add(s.ttl)
	id := uuid.NewString()

	claims := sessionClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Issuer:    s.issuer,
			Subject:   identityID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("issue token: %w", err)
	}
	return domain.IssuedToken{Value: signed, ID: id, ExpiresAt: exp}, nil
}

// Verify checks the signature before decoding any claim, so a modified header
// or payload is reported as ErrInvalidSignature rather than as a parse error.
func (s *JWTTokenService) Verify(raw string) (*domain.SessionClaims, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return nil, domain.ErrMalformedToken
	}

	sig, err := s.parser.DecodeSegment(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: signature segment: %w", domain.ErrMalformedToken, err)
	}
	if err := jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, s.secret); err != nil {
		return nil, domain.ErrInvalidSignature
	}

	var claims sessionClaims
	if _, err := s.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}); err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, domain.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrSignatureInvalid):
			return nil, domain.ErrInvalidSignature
		default:
			return nil, fmt.Errorf("%w: %w", domain.ErrMalformedToken, err)
		}
	}

	role := domain.Role(claims.Role)
	if claims.Subject == "" || !role.Valid() {
		return nil, fmt.Errorf("%w: missing subject or unknown role", domain.ErrMalformedToken)
	}

	out := &domain.SessionClaims{
		ID:        claims.ID,
		Subject:   claims.Subject,
		Role:      role,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

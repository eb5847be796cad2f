package server

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/medhist/annotation-iam/errors"
	"github.com/medhist/annotation-iam/generates"
	"github.com/medhist/annotation-iam/identity"
	"github.com/medhist/annotation-iam/store"
)

type accessClaimsKey struct{}

func withAccessClaims(ctx context.Context, claims *generates.Claims) context.Context {
	return context.WithValue(ctx, accessClaimsKey{}, claims)
}

func accessClaimsFrom(ctx context.Context) (*generates.Claims, bool) {
	claims, ok := ctx.Value(accessClaimsKey{}).(*generates.Claims)
	return claims, ok && claims != nil
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// issuedAt is the issue instant with millisecond precision. Token ids are
// ULIDs and carry it; iat only has seconds.
func issuedAt(claims *generates.Claims) time.Time {
	if id, err := ulid.ParseStrict(claims.ID); err == nil {
		return ulid.Time(id.Time())
	}
	if claims.IssuedAt != nil {
		return claims.IssuedAt.Time
	}
	return time.Time{}
}

// Authenticate validates the bearer token and puts the resolved identity in
// the request context. It must run before any permission or role check.
func (s *Server) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			s.rejectToken(c, errors.New("missing or malformed authorization header"))
			return
		}

		claims, err := s.Tokens.VerifyAccessToken(token)
		if err != nil {
			s.rejectToken(c, err)
			return
		}

		ctx := c.Request.Context()
		revoked, err := store.IsRevoked(ctx, s.Revocations, claims.ID, claims.UserID, issuedAt(claims))
		if err != nil {
			abort(c, err)
			return
		}
		if revoked {
			s.rejectToken(c, errors.New("token revoked"))
			return
		}

		id, err := s.Resolver.Resolve(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, errors.ErrAuthentication) {
				s.rejectToken(c, err)
				return
			}
			abort(c, err)
			return
		}

		ctx = identity.WithIdentity(ctx, id)
		ctx = withAccessClaims(ctx, claims)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) rejectToken(c *gin.Context, cause error) {
	s.Metrics.observe(OutcomeTokenRejected)
	abort(c, errors.Wrap(errors.ErrAuthentication, "Invalid token", cause))
}

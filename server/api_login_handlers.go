package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medhist/annotation-iam/dto"
	"github.com/medhist/annotation-iam/errors"
	"github.com/medhist/annotation-iam/generates"
	"github.com/medhist/annotation-iam/identity"
	"github.com/medhist/annotation-iam/models"
	"github.com/medhist/annotation-iam/store"
)

const invalidCredentials = "Invalid credentials"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func claimFor(id *identity.Identity) generates.TokenClaim {
	return generates.TokenClaim{UserID: id.UserID, Username: id.Username, Roles: id.Roles}
}

func (s *Server) authResponse(u *models.User, pair *generates.TokenPair) dto.AuthResponse {
	return dto.AuthResponse{
		User:         dto.FromUser(u),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    s.Config.TokenType,
		ExpiresIn:    int64(s.Tokens.AccessExpiresIn().Seconds()),
	}
}

// HandleAPILoginGin authenticates a user by username and password and issues
// an access/refresh pair. Every failure looks the same to the caller.
func (s *Server) HandleAPILoginGin(c *gin.Context) {
	var payload loginRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		abort(c, errors.ValidationError("invalid JSON payload"))
		return
	}
	username := strings.TrimSpace(payload.Username)
	if username == "" || payload.Password == "" {
		abort(c, errors.ValidationError("username and password are required"))
		return
	}

	ctx := c.Request.Context()
	u, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			abort(c, err)
			return
		}
		s.Passwords.CompareDummy(payload.Password)
		s.loginFailed(c, err)
		return
	}
	if err := s.Passwords.Compare(u.PasswordHash, payload.Password); err != nil {
		s.loginFailed(c, err)
		return
	}
	if !u.IsActive {
		s.loginFailed(c, errors.New("user "+u.ID+" is inactive"))
		return
	}

	pair, err := s.Tokens.IssuePair(claimFor(identity.FromUser(u)))
	if err != nil {
		abort(c, err)
		return
	}
	s.Metrics.observe(OutcomeLoginSuccess)
	s.Log.WithField("user_id", u.ID).Info("user logged in")
	c.JSON(http.StatusOK, s.authResponse(u, pair))
}

func (s *Server) loginFailed(c *gin.Context, cause error) {
	s.Metrics.observe(OutcomeLoginFailure)
	abort(c, errors.Wrap(errors.ErrAuthentication, invalidCredentials, cause))
}

// HandleAPIRefreshTokenGin exchanges a refresh token for a new pair. With a
// revocation list the presented token is retired, and presenting a retired
// token again revokes every token of its user.
func (s *Server) HandleAPIRefreshTokenGin(c *gin.Context) {
	var payload refreshRequest
	if err := c.ShouldBindJSON(&payload); err != nil || payload.RefreshToken == "" {
		abort(c, errors.ValidationError("refreshToken is required"))
		return
	}

	claims, err := s.Tokens.VerifyRefreshToken(payload.RefreshToken)
	if err != nil {
		s.rejectToken(c, err)
		return
	}

	ctx := c.Request.Context()
	if s.Revocations != nil {
		reused, err := s.Revocations.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			abort(c, err)
			return
		}
		if reused {
			if err := s.Revocations.RevokeUser(ctx, claims.UserID, s.now()); err != nil {
				abort(c, err)
				return
			}
			s.Metrics.observe(OutcomeRefreshReuse)
			s.Log.WithField("user_id", claims.UserID).Warn("refresh token reused, all sessions revoked")
			s.rejectToken(c, errors.New("refresh token reuse"))
			return
		}
		revoked, err := store.IsRevoked(ctx, s.Revocations, "", claims.UserID, issuedAt(claims))
		if err != nil {
			abort(c, err)
			return
		}
		if revoked {
			s.rejectToken(c, errors.New("token revoked"))
			return
		}
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
	u, err := s.Users.GetByID(ctx, id.UserID)
	if err != nil {
		abort(c, err)
		return
	}

	pair, err := s.Tokens.IssuePair(claimFor(id))
	if err != nil {
		abort(c, err)
		return
	}
	if s.Revocations != nil && claims.ExpiresAt != nil {
		if err := s.Revocations.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			abort(c, err)
			return
		}
	}
	s.Metrics.observe(OutcomeRefresh)
	c.JSON(http.StatusOK, s.authResponse(u, pair))
}

// HandleAPILogoutGin retires the access token of the request and, when it
// belongs to the same user, the refresh token in the body.
func (s *Server) HandleAPILogoutGin(c *gin.Context) {
	ctx := c.Request.Context()
	claims, ok := accessClaimsFrom(ctx)
	if !ok {
		abort(c, errors.AuthenticationError(""))
		return
	}
	var payload refreshRequest
	_ = c.ShouldBindJSON(&payload)

	if s.Revocations != nil {
		if claims.ExpiresAt != nil {
			if err := s.Revocations.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
				abort(c, err)
				return
			}
		}
		if payload.RefreshToken != "" {
			rc, err := s.Tokens.VerifyRefreshToken(payload.RefreshToken)
			if err == nil && rc.UserID == claims.UserID && rc.ExpiresAt != nil {
				if err := s.Revocations.RevokeToken(ctx, rc.ID, rc.ExpiresAt.Time); err != nil {
					abort(c, err)
					return
				}
			}
		}
	}
	c.Status(http.StatusNoContent)
}

// HandleAPIProfileGin returns the caller with its roles and permissions.
func (s *Server) HandleAPIProfileGin(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	u, err := s.Users.GetByID(c.Request.Context(), id.UserID)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromIdentity(u, id))
}

func (s *Server) HandleAPIPermissionsGin(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		return
	}
	perms := id.Permissions
	if perms == nil {
		perms = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"permissions": perms})
}

package generates

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"github.com/medhist/annotation-iam/errors"
)

// Token kinds carried in the typ claim
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Default lifetimes
const (
	DefaultAccessExpiresIn  = time.Hour
	DefaultRefreshExpiresIn = 7 * 24 * time.Hour
)

// invalidTokenDescription is the only thing callers learn about a rejected token.
const invalidTokenDescription = "Invalid token"

// TokenClaim is the identity carried inside every token.
type TokenClaim struct {
	UserID   string   `json:"userId"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// Claims jwt claims
type Claims struct {
	jwt.RegisteredClaims
	TokenClaim
	Kind string `json:"typ"`
}

// TokenPair access and refresh tokens issued together
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// JWTOptions configures a JWTGenerate. Zero lifetimes take the defaults.
type JWTOptions struct {
	AccessSecret     []byte
	RefreshSecret    []byte
	AccessExpiresIn  time.Duration
	RefreshExpiresIn time.Duration
	Issuer           string
	SignedMethod     jwt.SigningMethod
	Now              func() time.Time
}

// JWTGenerate issues and verifies HMAC-signed access and refresh tokens,
// each kind with its own secret.
type JWTGenerate struct {
	accessKey  []byte
	refreshKey []byte
	accessExp  time.Duration
	refreshExp time.Duration
	issuer     string
	method     jwt.SigningMethod
	now        func() time.Time
	parser     *jwt.Parser
}

// NewJWTGenerate create to generate the jwt token instance
func NewJWTGenerate(opts JWTOptions) (*JWTGenerate, error) {
	if len(opts.AccessSecret) == 0 || len(opts.RefreshSecret) == 0 {
		return nil, errors.New("access and refresh secrets are required")
	}
	if string(opts.AccessSecret) == string(opts.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if opts.AccessExpiresIn == 0 {
		opts.AccessExpiresIn = DefaultAccessExpiresIn
	}
	if opts.RefreshExpiresIn == 0 {
		opts.RefreshExpiresIn = DefaultRefreshExpiresIn
	}
	if opts.AccessExpiresIn < 0 || opts.RefreshExpiresIn < 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	if opts.SignedMethod == nil {
		opts.SignedMethod = jwt.SigningMethodHS256
	}
	if !strings.HasPrefix(opts.SignedMethod.Alg(), "HS") {
		return nil, errors.New("unsupported sign method")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	g := &JWTGenerate{
		accessKey:  opts.AccessSecret,
		refreshKey: opts.RefreshSecret,
		accessExp:  opts.AccessExpiresIn,
		refreshExp: opts.RefreshExpiresIn,
		issuer:     opts.Issuer,
		method:     opts.SignedMethod,
		now:        opts.Now,
	}
	g.parser = g.newParser()
	return g, nil
}

func (g *JWTGenerate) newParser() *jwt.Parser {
	popts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{g.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(g.now),
	}
	if g.issuer != "" {
		popts = append(popts, jwt.WithIssuer(g.issuer))
	}
	return jwt.NewParser(popts...)
}

// AccessExpiresIn access token lifetime
func (g *JWTGenerate) AccessExpiresIn() time.Duration { return g.accessExp }

// RefreshExpiresIn refresh token lifetime
func (g *JWTGenerate) RefreshExpiresIn() time.Duration { return g.refreshExp }

// IssueAccessToken signs claim with the access secret.
func (g *JWTGenerate) IssueAccessToken(claim TokenClaim) (string, error) {
	tok, _, err := g.issue(claim, KindAccess, g.now())
	return tok, err
}

// IssueRefreshToken signs claim with the refresh secret.
func (g *JWTGenerate) IssueRefreshToken(claim TokenClaim) (string, error) {
	tok, _, err := g.issue(claim, KindRefresh, g.now())
	return tok, err
}

// IssuePair issues an access and a refresh token for the same claim and
// issue time. Either both are returned or neither.
func (g *JWTGenerate) IssuePair(claim TokenClaim) (*TokenPair, error) {
	now := g.now()
	access, accessExp, err := g.issue(claim, KindAccess, now)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := g.issue(claim, KindRefresh, now)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (g *JWTGenerate) issue(claim TokenClaim, kind string, now time.Time) (string, time.Time, error) {
	if claim.UserID == "" {
		return "", time.Time{}, errors.New("token claim requires a user id")
	}
	key, exp := g.accessKey, g.accessExp
	if kind == KindRefresh {
		key, exp = g.refreshKey, g.refreshExp
	}
	expiresAt := now.Add(exp)
	roles := claim.Roles
	if roles == nil {
		roles = []string{}
	}

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        newTokenID(now),
			Issuer:    g.issuer,
			Subject:   claim.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TokenClaim: TokenClaim{
			UserID:   claim.UserID,
			Username: claim.Username,
			Roles:    roles,
		},
		Kind: kind,
	}

	token := jwt.NewWithClaims(g.method, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// VerifyAccessToken checks signature, expiry and kind against the access secret.
func (g *JWTGenerate) VerifyAccessToken(token string) (*Claims, error) {
	return g.verify(token, g.accessKey, KindAccess)
}

// VerifyRefreshToken checks signature, expiry and kind against the refresh secret.
func (g *JWTGenerate) VerifyRefreshToken(token string) (*Claims, error) {
	return g.verify(token, g.refreshKey, KindRefresh)
}

// verify normalizes every failure to the same authentication error; the jwt
// error is kept as the internal cause.
func (g *JWTGenerate) verify(token string, key []byte, kind string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.Wrap(errors.ErrAuthentication, invalidTokenDescription, jwt.ErrTokenMalformed)
	}
	claims := &Claims{}
	parsed, err := g.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrAuthentication, invalidTokenDescription, err)
	}
	if !parsed.Valid {
		return nil, errors.Wrap(errors.ErrAuthentication, invalidTokenDescription, jwt.ErrTokenInvalidClaims)
	}
	if claims.Kind != kind {
		return nil, errors.Wrap(errors.ErrAuthentication, invalidTokenDescription, errors.New("unexpected token kind "+claims.Kind))
	}
	if claims.UserID == "" || claims.Subject != claims.UserID {
		return nil, errors.Wrap(errors.ErrAuthentication, invalidTokenDescription, errors.New("subject does not match userId"))
	}
	return claims, nil
}

func newTokenID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}

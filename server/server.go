package server

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/medhist/annotation-iam/generates"
	"github.com/medhist/annotation-iam/identity"
	"github.com/medhist/annotation-iam/models"
	"github.com/medhist/annotation-iam/store"
	"github.com/medhist/annotation-iam/utils/password"
)

// TokenService issues and verifies the access/refresh pair.
type TokenService interface {
	IssuePair(claim generates.TokenClaim) (*generates.TokenPair, error)
	VerifyAccessToken(token string) (*generates.Claims, error)
	VerifyRefreshToken(token string) (*generates.Claims, error)
	AccessExpiresIn() time.Duration
}

// IdentityResolver turns a verified user id into the request identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, userID string) (*identity.Identity, error)
}

// PasswordHasher hashes and compares user passwords. CompareDummy burns the
// same time as Compare for callers without a stored hash.
type PasswordHasher interface {
	password.Hasher
	CompareDummy(plain string)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, u *models.User, roleNames ...string) error
	Update(ctx context.Context, id string, upd store.UserUpdate) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	ReplaceRoles(ctx context.Context, userID string, roleNames []string) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

type RoleRepository interface {
	List(ctx context.Context) ([]models.Role, error)
	ListPermissions(ctx context.Context) ([]models.Permission, error)
	ReplacePermissions(ctx context.Context, roleID string, names []string) (*models.Role, error)
}

type SampleRepository interface {
	List(ctx context.Context) ([]models.Sample, error)
	Get(ctx context.Context, id string) (*models.Sample, error)
	Create(ctx context.Context, m *models.Sample) error
	Update(ctx context.Context, id string, upd store.SampleUpdate) (*models.Sample, error)
	Delete(ctx context.Context, id string) error
}

type TissueTypeRepository interface {
	List(ctx context.Context) ([]models.TissueType, error)
	Get(ctx context.Context, id string) (*models.TissueType, error)
	Create(ctx context.Context, m *models.TissueType) error
	Update(ctx context.Context, id, name, description string) (*models.TissueType, error)
	Delete(ctx context.Context, id string) error
}

type FormDetailRepository interface {
	GetBySample(ctx context.Context, sampleID string) (*models.FormDetail, error)
	Upsert(ctx context.Context, m *models.FormDetail) (*models.FormDetail, error)
}

type AnnotationRepository interface {
	ListBySample(ctx context.Context, sampleID string) ([]models.ImageAnnotation, error)
	Get(ctx context.Context, sampleID, id string) (*models.ImageAnnotation, error)
	Create(ctx context.Context, m *models.ImageAnnotation) error
	UpdateOwned(ctx context.Context, id, ownerID string, upd store.AnnotationUpdate) (*models.ImageAnnotation, error)
	DeleteOwned(ctx context.Context, id, ownerID string) error
}

// Pinger reports database reachability; *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators of a Server. Revocations and DB may be nil.
type Deps struct {
	Tokens      TokenService
	Resolver    IdentityResolver
	Passwords   PasswordHasher
	Users       UserRepository
	Roles       RoleRepository
	Samples     SampleRepository
	TissueTypes TissueTypeRepository
	FormDetails FormDetailRepository
	Annotations AnnotationRepository
	Revocations store.Revoker
	DB          Pinger
	Log         *logrus.Logger
	Metrics     *Metrics
}

// Server serves the annotation platform API
type Server struct {
	Config      *Config
	Tokens      TokenService
	Resolver    IdentityResolver
	Passwords   PasswordHasher
	Users       UserRepository
	Roles       RoleRepository
	Samples     SampleRepository
	TissueTypes TissueTypeRepository
	FormDetails FormDetailRepository
	Annotations AnnotationRepository
	Revocations store.Revoker
	DB          Pinger
	Log         *logrus.Logger
	Metrics     *Metrics

	now func() time.Time
}

// NewServer create the API server
func NewServer(cfg *Config, deps Deps) *Server {
	if cfg == nil {
		cfg = NewConfig()
	}
	srv := &Server{
		Config:      cfg,
		Tokens:      deps.Tokens,
		Resolver:    deps.Resolver,
		Passwords:   deps.Passwords,
		Users:       deps.Users,
		Roles:       deps.Roles,
		Samples:     deps.Samples,
		TissueTypes: deps.TissueTypes,
		FormDetails: deps.FormDetails,
		Annotations: deps.Annotations,
		Revocations: deps.Revocations,
		DB:          deps.DB,
		Log:         deps.Log,
		Metrics:     deps.Metrics,
		now:         time.Now,
	}
	if srv.Log == nil {
		srv.Log = logrus.StandardLogger()
	}
	if srv.Passwords == nil {
		srv.Passwords = password.NewBcrypt(0)
	}
	if srv.Metrics == nil {
		srv.Metrics = NewMetrics()
	}
	return srv
}

// NewLogger builds the process logger from the log section of AppConfig.
func NewLogger(cfg LogConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.Warnf("invalid log level %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

package store

import (
	"context"
	"strconv"
	"time"

	"github.com/tidwall/buntdb"

	"github.com/medhist/annotation-iam/errors"
)

const (
	revocationKeyPrefix    = "revoke:"
	revokedUsersKeyPrefix  = revocationKeyPrefix + "users:"
	revokedTokensKeyPrefix = revocationKeyPrefix + "tokens:"
)

// Revoker records revoked token ids and per-user revocation instants.
// Entries expire on their own once the tokens they cover would have expired.
type Revoker interface {
	// RevokeToken marks a single token id as revoked until expiresAt.
	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
	// RevokeUser invalidates every token of userID issued up to and including at.
	RevokeUser(ctx context.Context, userID string, at time.Time) error
	UserRevokedAt(ctx context.Context, userID string) (time.Time, bool, error)
	Close() error
}

// RevocationConfig holds configuration for the revocation stores.
type RevocationConfig struct {
	// UserRevocationTTL is how long user revocations are kept; it should be
	// at least the refresh token lifetime.
	UserRevocationTTL time.Duration
	// Prefix namespaces keys in shared backends.
	Prefix string
}

// DefaultRevocationConfig returns the default configuration.
func DefaultRevocationConfig() RevocationConfig {
	return RevocationConfig{
		UserRevocationTTL: 7 * 24 * time.Hour,
		Prefix:            "annotation-iam:",
	}
}

// IsRevoked reports whether the token identified by tokenID, issued to userID
// at issuedAt, has been revoked individually or through its user.
func IsRevoked(ctx context.Context, r Revoker, tokenID, userID string, issuedAt time.Time) (bool, error) {
	if r == nil {
		return false, nil
	}
	if tokenID != "" {
		revoked, err := r.IsTokenRevoked(ctx, tokenID)
		if err != nil || revoked {
			return revoked, err
		}
	}
	at, ok, err := r.UserRevokedAt(ctx, userID)
	if err != nil || !ok {
		return false, err
	}
	// Both instants are kept at millisecond precision; a token issued in the
	// same millisecond as the revocation is revoked with it.
	return !issuedAt.After(at), nil
}

func encodeInstant(t time.Time) string { return strconv.FormatInt(t.UnixMilli(), 10) }

func decodeInstant(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

// BuntRevocationStore keeps the revocation list in an embedded buntdb
// database, either in memory (":memory:") or in a file.
type BuntRevocationStore struct {
	db     *buntdb.DB
	config RevocationConfig
}

// NewBuntRevocationStore opens the buntdb database at path.
func NewBuntRevocationStore(path string, config RevocationConfig) (*BuntRevocationStore, error) {
	if path == "" {
		path = ":memory:"
	}
	if config.UserRevocationTTL <= 0 {
		config.UserRevocationTTL = DefaultRevocationConfig().UserRevocationTTL
	}
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, err
	}
	return &BuntRevocationStore{db: db, config: config}, nil
}

func (s *BuntRevocationStore) RevokeToken(_ context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return errors.New("token id is required")
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(revokedTokensKeyPrefix+tokenID, "1", &buntdb.SetOptions{Expires: true, TTL: ttl})
		return err
	})
}

func (s *BuntRevocationStore) IsTokenRevoked(_ context.Context, tokenID string) (bool, error) {
	var revoked bool
	err := s.db.View(func(tx *buntdb.Tx) error {
		_, err := tx.Get(revokedTokensKeyPrefix + tokenID)
		if err == buntdb.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		revoked = true
		return nil
	})
	return revoked, err
}

func (s *BuntRevocationStore) RevokeUser(_ context.Context, userID string, at time.Time) error {
	if userID == "" {
		return errors.New("user id is required")
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(revokedUsersKeyPrefix+userID, encodeInstant(at),
			&buntdb.SetOptions{Expires: true, TTL: s.config.UserRevocationTTL})
		return err
	})
}

func (s *BuntRevocationStore) UserRevokedAt(_ context.Context, userID string) (time.Time, bool, error) {
	var (
		at time.Time
		ok bool
	)
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(revokedUsersKeyPrefix + userID)
		if err == buntdb.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		at, err = decodeInstant(v)
		ok = err == nil
		return err
	})
	return at, ok, err
}

func (s *BuntRevocationStore) Close() error { return s.db.Close() }

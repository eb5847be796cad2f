package store

import (
	"context"
	"fmt"
	"time"

	valkey "github.com/valkey-io/valkey-go"
)

// ValkeyRevocationStore shares the revocation list between replicas through
// Valkey (Redis-compatible).
type ValkeyRevocationStore struct {
	client valkey.Client
	prefix string
	config RevocationConfig
}

// NewValkeyRevocationStore connects to addr, e.g. "127.0.0.1:6379".
func NewValkeyRevocationStore(addr string, config RevocationConfig) (*ValkeyRevocationStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("valkey address is required")
	}
	cli, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}
	return newValkeyRevocationStore(cli, config), nil
}

func newValkeyRevocationStore(cli valkey.Client, config RevocationConfig) *ValkeyRevocationStore {
	def := DefaultRevocationConfig()
	if config.Prefix == "" {
		config.Prefix = def.Prefix
	}
	if config.UserRevocationTTL <= 0 {
		config.UserRevocationTTL = def.UserRevocationTTL
	}
	return &ValkeyRevocationStore{client: cli, prefix: config.Prefix, config: config}
}

// key returns the full key with prefix.
func (s *ValkeyRevocationStore) key(k string) string { return s.prefix + k }

func (s *ValkeyRevocationStore) RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return fmt.Errorf("token id is required")
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	k := s.key(revokedTokensKeyPrefix + tokenID)
	return s.client.Do(ctx, s.client.B().Set().Key(k).Value("1").Ex(ttl).Build()).Error()
}

func (s *ValkeyRevocationStore) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	k := s.key(revokedTokensKeyPrefix + tokenID)
	n, err := s.client.Do(ctx, s.client.B().Exists().Key(k).Build()).AsInt64()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *ValkeyRevocationStore) RevokeUser(ctx context.Context, userID string, at time.Time) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	k := s.key(revokedUsersKeyPrefix + userID)
	return s.client.Do(ctx, s.client.B().Set().Key(k).Value(encodeInstant(at)).Ex(s.config.UserRevocationTTL).Build()).Error()
}

func (s *ValkeyRevocationStore) UserRevokedAt(ctx context.Context, userID string) (time.Time, bool, error) {
	k := s.key(revokedUsersKeyPrefix + userID)
	v, err := s.client.Do(ctx, s.client.B().Get().Key(k).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	at, err := decodeInstant(v)
	if err != nil {
		return time.Time{}, false, err
	}
	return at, true, nil
}

// Close closes the connection.
func (s *ValkeyRevocationStore) Close() error {
	s.client.Close()
	return nil
}

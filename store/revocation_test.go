package store

import (
	"context"
	"os"
	"testing"
	"time"
)

func newTestRevoker(t *testing.T) *BuntRevocationStore {
	t.Helper()
	s, err := NewBuntRevocationStore(":memory:", DefaultRevocationConfig())
	if err != nil {
		t.Fatalf("open buntdb: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRevoker(t *testing.T, r Revoker) {
	ctx := context.Background()

	revoked, err := r.IsTokenRevoked(ctx, "01HX-unknown")
	if err != nil || revoked {
		t.Fatalf("unknown token: revoked=%v err=%v", revoked, err)
	}
	if err := r.RevokeToken(ctx, "01HX-jti", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("revoke token: %v", err)
	}
	revoked, err = r.IsTokenRevoked(ctx, "01HX-jti")
	if err != nil || !revoked {
		t.Fatalf("revoked token: revoked=%v err=%v", revoked, err)
	}

	// already expired tokens are not stored
	if err := r.RevokeToken(ctx, "01HX-old", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("revoke expired token: %v", err)
	}
	if revoked, _ := r.IsTokenRevoked(ctx, "01HX-old"); revoked {
		t.Fatal("expired token should not be recorded")
	}

	if _, ok, err := r.UserRevokedAt(ctx, "u1"); ok || err != nil {
		t.Fatalf("unrevoked user: ok=%v err=%v", ok, err)
	}
	at := time.Now()
	if err := r.RevokeUser(ctx, "u1", at); err != nil {
		t.Fatalf("revoke user: %v", err)
	}
	got, ok, err := r.UserRevokedAt(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("revoked user: ok=%v err=%v", ok, err)
	}
	if got.UnixMilli() != at.UnixMilli() {
		t.Fatalf("revoked at = %v, want %v", got, at)
	}

	before, err := IsRevoked(ctx, r, "01HX-other", "u1", at.Add(-time.Second))
	if err != nil || !before {
		t.Fatalf("token issued before user revocation: revoked=%v err=%v", before, err)
	}
	sameMilli, err := IsRevoked(ctx, r, "01HX-other", "u1", time.UnixMilli(at.UnixMilli()))
	if err != nil || !sameMilli {
		t.Fatalf("token issued in the revocation millisecond: revoked=%v err=%v", sameMilli, err)
	}
	after, err := IsRevoked(ctx, r, "01HX-other", "u1", at.Add(time.Second))
	if err != nil || after {
		t.Fatalf("token issued after user revocation: revoked=%v err=%v", after, err)
	}
	single, err := IsRevoked(ctx, r, "01HX-jti", "u2", time.Now())
	if err != nil || !single {
		t.Fatalf("individually revoked token: revoked=%v err=%v", single, err)
	}
}

func TestBuntRevocationStore(t *testing.T) {
	testRevoker(t, newTestRevoker(t))
}

func TestBuntRevocationStore_TokenExpires(t *testing.T) {
	r := newTestRevoker(t)
	ctx := context.Background()
	if err := r.RevokeToken(ctx, "short", time.Now().Add(1500*time.Millisecond)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	time.Sleep(2 * time.Second)
	if revoked, _ := r.IsTokenRevoked(ctx, "short"); revoked {
		t.Fatal("revocation entry should expire with the token")
	}
}

func TestBuntRevocationStore_RequiresIDs(t *testing.T) {
	r := newTestRevoker(t)
	if err := r.RevokeToken(context.Background(), "", time.Now().Add(time.Hour)); err == nil {
		t.Fatal("expected error for empty token id")
	}
	if err := r.RevokeUser(context.Background(), "", time.Now()); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestIsRevokedWithoutRevoker(t *testing.T) {
	revoked, err := IsRevoked(context.Background(), nil, "jti", "u1", time.Now())
	if err != nil || revoked {
		t.Fatalf("nil revoker: revoked=%v err=%v", revoked, err)
	}
}

func TestValkeyRevocationStore(t *testing.T) {
	addr := os.Getenv("TEST_VALKEY_ADDR")
	if addr == "" {
		t.Skip("TEST_VALKEY_ADDR not set")
	}
	cfg := DefaultRevocationConfig()
	cfg.Prefix = uniqueName("annotation-iam-test:") + ":"
	r, err := NewValkeyRevocationStore(addr, cfg)
	if err != nil {
		t.Fatalf("connect valkey: %v", err)
	}
	defer r.Close()
	testRevoker(t, r)
}

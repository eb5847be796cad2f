package password

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher is a one-way hash and compare capability.
type Hasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
}

// ErrMismatch is returned by Compare when the password does not match.
var ErrMismatch = bcrypt.ErrMismatchedHashAndPassword

// Bcrypt hashes with golang.org/x/crypto/bcrypt. A zero Cost uses bcrypt.DefaultCost.
type Bcrypt struct {
	Cost int
}

// NewBcrypt create a bcrypt hasher, clamping cost into the range bcrypt accepts.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{Cost: cost}
}

func (b *Bcrypt) Hash(plain string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b *Bcrypt) Compare(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// dummyHash is compared against when a username does not exist so that the
// response time does not reveal whether it does.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("annotation-iam-timing-equalizer"), bcrypt.DefaultCost)

// CompareDummy burns the same work as a real comparison and always fails.
func (b *Bcrypt) CompareDummy(plain string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}

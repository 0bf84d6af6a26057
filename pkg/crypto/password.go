package crypto

import "golang.org/x/crypto/bcrypt"

// hashCost is the bcrypt work factor. The library default balances login
// latency against brute-force cost for a service of this size.
const hashCost = bcrypt.DefaultCost

// HashPassword derives an irreversible salted hash from the plaintext.
func HashPassword(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), hashCost)
}

// ComparePassword verifies plaintext against a stored hash.
func ComparePassword(hash []byte, plain string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain))
}

package security

import "golang.org/x/crypto/bcrypt"

// TokenGuard verifies the shared admin token against its configured bcrypt
// hash. An empty hash disables admin access entirely.
type TokenGuard struct {
	hash string
}

func NewTokenGuard(hash string) *TokenGuard {
	return &TokenGuard{hash: hash}
}

func (g *TokenGuard) Verify(token string) bool {
	if g.hash == "" || token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(g.hash), []byte(token)) == nil
}

// HashToken is a helper for provisioning a new admin token.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

package cluster

import (
	"crypto/rand"
	"math/big"
)

const passwordLength = 24

// no shell or URL metacharacters so the password survives connection strings
const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generatePassword returns a random database password. It is handed to the
// caller exactly once and never stored or logged.
func generatePassword() string {
	password := make([]byte, passwordLength)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range password {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the process has no usable entropy source
			panic(err)
		}
		password[i] = passwordAlphabet[n.Int64()]
	}
	return string(password)
}

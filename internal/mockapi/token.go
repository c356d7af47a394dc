package mockapi

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// The demo token is a real HS256 JWT so clients exercising bearer headers
// see a plausible credential. The contract treats it as opaque; nothing
// validates the signature.
var demoSigningKey = []byte("taskboard-demo-signing-key")

func mintDemoToken(now time.Time, subject string) (string, error) {
	claims := jwt.MapClaims{
		"sub": subject,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(demoSigningKey)
}

package auth

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// App JWT timing. GitHub rejects app tokens valid for more than ten minutes
// and tolerates clock drift when iat is backdated.
const (
	AppJWTBackdate = 60 * time.Second
	AppJWTLifetime = 9 * time.Minute
)

// ParsePrivateKey decodes a PEM-encoded RSA private key (PKCS#1 or PKCS#8).
func ParsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	if len(pemBytes) == 0 {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidPrivateKey)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return key, nil
}

// SignAppJWT returns the RS256 app JWT for appID: iss=appID,
// iat=now-AppJWTBackdate, exp=now+AppJWTLifetime.
func SignAppJWT(appID string, key *rsa.PrivateKey, now time.Time) (string, error) {
	if appID == "" || key == nil {
		return "", ErrMissingCredentials
	}
	claims := jwt.RegisteredClaims{
		Issuer:    appID,
		IssuedAt:  jwt.NewNumericDate(now.Add(-AppJWTBackdate)),
		ExpiresAt: jwt.NewNumericDate(now.Add(AppJWTLifetime)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("auth: sign app jwt: %w", err)
	}
	return signed, nil
}

// VerifyAppJWT parses token with the app's public key and returns its
// registered claims. The upstream does this; it is exposed for diagnostics
// and tests.
func VerifyAppJWT(token string, pub *rsa.PublicKey, now time.Time) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return pub, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	return claims, nil
}

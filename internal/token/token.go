// Package token issues and verifies the signed bearer tokens used by the
// super, admin, and customer realms. Tokens are HS256 JWTs; each realm is
// bound to its own signing secret, selected by the caller.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RealmSuper = "super"
	RealmAdmin = "admin"
	RealmCust  = "cust"
)

type Claims struct {
	Realm     string
	Subject   string
	StoreID   string
	Name      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issue signs claims with the given secret. The expiry is always computed
// from ttl; any ExpiresAt on the input is ignored.
func Issue(claims Claims, secret string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	mapClaims := jwt.MapClaims{
		"realm": claims.Realm,
		"sub":   claims.Subject,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	if claims.StoreID != "" {
		mapClaims["store_id"] = claims.StoreID
	}
	if claims.Name != "" {
		mapClaims["name"] = claims.Name
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims).SignedString([]byte(secret))
}

// Verify parses and validates a token against the given secret. Malformed
// input, a bad signature, a non-HMAC algorithm, and an elapsed expiry all
// yield ok=false; callers branch only on the absence of an identity.
func Verify(raw, secret string) (Claims, bool) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, false
	}
	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, false
	}

	claims := Claims{
		Realm:   stringClaim(mapClaims, "realm"),
		Subject: stringClaim(mapClaims, "sub"),
		StoreID: stringClaim(mapClaims, "store_id"),
		Name:    stringClaim(mapClaims, "name"),
	}
	if claims.Realm == "" {
		return Claims{}, false
	}
	if issued, err := mapClaims.GetIssuedAt(); err == nil && issued != nil {
		claims.IssuedAt = issued.Time
	}
	if expires, err := mapClaims.GetExpirationTime(); err == nil && expires != nil {
		claims.ExpiresAt = expires.Time
	}
	return claims, true
}

func stringClaim(claims jwt.MapClaims, key string) string {
	value, ok := claims[key]
	if !ok {
		return ""
	}
	text, ok := value.(string)
	if !ok {
		return ""
	}
	return text
}

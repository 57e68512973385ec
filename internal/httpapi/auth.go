package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/makersnr-dev/qr-order-nr-v5-sub000/internal/token"
)

// Secrets holds the per-realm signing keys. Admin and customer tokens
// share one key; super tokens use their own, so a leaked store key can
// never mint platform credentials.
type Secrets struct {
	JWT      string
	SuperJWT string
}

type AuthContext struct {
	Realm   string
	Subject string
	StoreID string
	Name    string
	IsSuper bool
}

type authContextKey struct{}

type realmRequirement int

const (
	allowPublic realmRequirement = iota
	allowCust
	allowStoreScoped
	allowSuper
	allowAny
)

type routeRule struct {
	method  string
	path    string // trailing slash matches the prefix
	require realmRequirement
}

// routeRules is the single authorization table: every API resource maps
// (method, resource) to the realm allowed to touch it. The gate checks
// it once, before any handler runs.
var routeRules = []routeRule{
	{http.MethodPost, "/api/auth/login-admin", allowPublic},
	{http.MethodPost, "/api/auth/super-login", allowPublic},
	{http.MethodPost, "/api/auth/login-cust", allowPublic},
	{http.MethodGet, "/api/auth/verify", allowAny},

	{http.MethodGet, "/api/menus", allowPublic},
	{http.MethodPost, "/api/menus", allowStoreScoped},
	{http.MethodPut, "/api/menus/", allowStoreScoped},
	{http.MethodDelete, "/api/menus/", allowStoreScoped},

	{http.MethodPost, "/api/call", allowPublic},
	{http.MethodGet, "/api/calls", allowStoreScoped},
	{http.MethodPost, "/api/calls/", allowStoreScoped},

	{http.MethodPost, "/api/orders", allowCust},
	{http.MethodGet, "/api/orders", allowStoreScoped},
	{http.MethodPost, "/api/orders/", allowStoreScoped},

	{http.MethodPost, "/api/payments/confirm", allowStoreScoped},

	{http.MethodGet, "/api/qrcodes", allowStoreScoped},
	{http.MethodPost, "/api/qrcodes", allowStoreScoped},
	{http.MethodGet, "/api/settings", allowStoreScoped},
	{http.MethodPut, "/api/settings", allowStoreScoped},
	{http.MethodGet, "/api/payment-code", allowStoreScoped},
	{http.MethodPost, "/api/payment-code", allowStoreScoped},

	{http.MethodGet, "/api/stores", allowSuper},
	{http.MethodPost, "/api/stores", allowSuper},
	{http.MethodPut, "/api/stores/", allowSuper},
	{http.MethodDelete, "/api/stores/", allowSuper},
	{http.MethodGet, "/api/admins", allowSuper},
	{http.MethodPost, "/api/admins", allowSuper},
	{http.MethodDelete, "/api/admins/", allowSuper},
	{http.MethodGet, "/api/mappings", allowSuper},
	{http.MethodPost, "/api/mappings", allowSuper},
	{http.MethodDelete, "/api/mappings/", allowSuper},
}

func requirementFor(r *http.Request) realmRequirement {
	best := allowPublic
	bestLen := -1
	for _, rule := range routeRules {
		if rule.method != r.Method {
			continue
		}
		if strings.HasSuffix(rule.path, "/") {
			if !strings.HasPrefix(r.URL.Path, rule.path) {
				continue
			}
		} else if r.URL.Path != rule.path {
			continue
		}
		if len(rule.path) > bestLen {
			best = rule.require
			bestLen = len(rule.path)
		}
	}
	// API routes missing from the table fail closed: a handler added
	// without a rule must not ship unauthenticated.
	if bestLen < 0 && strings.HasPrefix(r.URL.Path, "/api/") {
		return allowStoreScoped
	}
	return best
}

type AuthGate struct {
	secrets Secrets
}

func NewAuthGate(secrets Secrets) *AuthGate {
	return &AuthGate{secrets: secrets}
}

func (g *AuthGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require := requirementFor(r)
		if require == allowPublic {
			next.ServeHTTP(w, r)
			return
		}

		auth, found, valid := g.Resolve(r)
		if !found {
			writeError(w, http.StatusUnauthorized, "auth_missing", "no token presented")
			return
		}
		if !valid {
			writeError(w, http.StatusUnauthorized, "auth_invalid", "token signature or expiry check failed")
			return
		}

		allowed := false
		switch require {
		case allowAny:
			allowed = true
		case allowCust:
			allowed = auth.Realm == token.RealmCust
		case allowStoreScoped:
			allowed = auth.Realm == token.RealmAdmin || auth.IsSuper
		case allowSuper:
			allowed = auth.IsSuper
		}
		if !allowed {
			writeError(w, http.StatusForbidden, "auth_forbidden", "wrong realm for this operation")
			return
		}

		ctx := context.WithValue(r.Context(), authContextKey{}, auth)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Resolve extracts and verifies a token from the request: Authorization
// bearer first, then the realm cookies, then a legacy body field. The
// second return reports whether any token was presented, the third
// whether one of them verified.
func (g *AuthGate) Resolve(r *http.Request) (AuthContext, bool, bool) {
	candidates := tokenCandidates(r)
	if len(candidates) == 0 {
		return AuthContext{}, false, false
	}
	for _, candidate := range candidates {
		if claims, ok := token.Verify(candidate, g.secrets.SuperJWT); ok && claims.Realm == token.RealmSuper {
			return contextFromClaims(claims), true, true
		}
		if claims, ok := token.Verify(candidate, g.secrets.JWT); ok && claims.Realm != token.RealmSuper {
			return contextFromClaims(claims), true, true
		}
	}
	return AuthContext{}, true, false
}

func contextFromClaims(claims token.Claims) AuthContext {
	return AuthContext{
		Realm:   claims.Realm,
		Subject: claims.Subject,
		StoreID: claims.StoreID,
		Name:    claims.Name,
		IsSuper: claims.Realm == token.RealmSuper,
	}
}

func tokenCandidates(r *http.Request) []string {
	var candidates []string
	if bearer := bearerToken(r.Header.Get("Authorization")); bearer != "" {
		candidates = append(candidates, bearer)
	}
	for _, name := range []string{superCookie, adminCookie, custCookie} {
		if cookie, err := r.Cookie(name); err == nil && cookie.Value != "" {
			candidates = append(candidates, cookie.Value)
		}
	}
	if len(candidates) == 0 {
		if body := tokenFromBody(r); body != "" {
			candidates = append(candidates, body)
		}
	}
	return candidates
}

const (
	superCookie = "super_token"
	adminCookie = "admin_token"
	custCookie  = "cust_token"
)

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

// tokenFromBody supports the legacy clients that post the token as a
// JSON field. The body is re-buffered so the handler can decode it
// again.
func tokenFromBody(r *http.Request) string {
	if r.Body == nil || !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return ""
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Token)
}

func authFromContext(ctx context.Context) (AuthContext, bool) {
	value := ctx.Value(authContextKey{})
	if value == nil {
		return AuthContext{}, false
	}
	auth, ok := value.(AuthContext)
	if !ok {
		return AuthContext{}, false
	}
	return auth, true
}

// storeScope resolves the effective store for a store-scoped request:
// the token's binding for an admin, an explicit store_id parameter for
// a super. An admin naming a different store is refused, never
// silently redirected to their own.
func storeScope(w http.ResponseWriter, r *http.Request) (string, bool) {
	auth, ok := authFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "auth_missing", "no token presented")
		return "", false
	}
	requested := strings.TrimSpace(r.URL.Query().Get("store_id"))
	if auth.IsSuper {
		if requested == "" {
			writeError(w, http.StatusBadRequest, "validation_error", "store_id is required for super requests")
			return "", false
		}
		return requested, true
	}
	if auth.StoreID == "" {
		writeError(w, http.StatusForbidden, "auth_forbidden", "token is not bound to a store")
		return "", false
	}
	if requested != "" && requested != auth.StoreID {
		writeError(w, http.StatusForbidden, "auth_forbidden", "store mismatch")
		return "", false
	}
	return auth.StoreID, true
}

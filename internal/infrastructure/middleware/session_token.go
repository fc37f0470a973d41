package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"free-shipping-bar/internal/domain"
	"free-shipping-bar/internal/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

var sessionTokenMethod = jwt.SigningMethodHS256

// SessionTokenClaims are the claims of an App Bridge session token.
type SessionTokenClaims struct {
	Dest string `json:"dest"`
	jwt.RegisteredClaims
}

// ParseSessionToken validates an embedded admin session token and returns
// the shop domain named by its dest claim.
func ParseSessionToken(apiKey, apiSecret, tokenString string) (string, error) {
	claims := &SessionTokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != sessionTokenMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(apiSecret), nil
		},
		jwt.WithValidMethods([]string{sessionTokenMethod.Alg()}),
		jwt.WithAudience(apiKey),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	dest, err := url.Parse(claims.Dest)
	if err != nil {
		return "", fmt.Errorf("%w: invalid dest claim", domain.ErrInvalidSignature)
	}
	shop := domain.NormalizeShopDomain(dest.Host)
	if !domain.ValidShopDomain(shop) {
		return "", fmt.Errorf("%w: dest %q", domain.ErrInvalidShop, claims.Dest)
	}
	return shop, nil
}

// SessionTokenAuth authenticates admin API calls with the App Bridge bearer
// token and stores the shop in the request context. In dev mode a shop query
// parameter is accepted when no token is sent.
func SessionTokenAuth(apiKey, apiSecret string, devMode bool, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}

			var shop string
			switch {
			case token != "":
				parsed, err := ParseSessionToken(apiKey, apiSecret, token)
				if err != nil {
					logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Rejected session token")
					unauthorized(w, "invalid session token")
					return
				}
				shop = parsed
			case devMode:
				shop = domain.NormalizeShopDomain(r.URL.Query().Get("shop"))
				if !domain.ValidShopDomain(shop) {
					unauthorized(w, "missing session token")
					return
				}
			default:
				unauthorized(w, "missing session token")
				return
			}

			ctx := domain.WithShop(r.Context(), shop)
			ctx = zerolog.Ctx(ctx).With().Str("shop", shop).Logger().WithContext(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AppProxyVerification checks the signature Shopify adds to app proxy
// requests and stores the shop in the request context.
func AppProxyVerification(verifier ports.RequestVerifier, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query := r.URL.Query()
			if err := verifier.VerifyAppProxy(query); err != nil {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("App proxy signature verification failed")
				unauthorized(w, "invalid signature")
				return
			}
			shop := domain.NormalizeShopDomain(query.Get("shop"))
			if !domain.ValidShopDomain(shop) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid shop"})
				return
			}
			next.ServeHTTP(w, r.WithContext(domain.WithShop(r.Context(), shop)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

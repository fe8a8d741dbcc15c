package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"chantierpro/internal/domain"
	"chantierpro/internal/engine"
	"chantierpro/internal/repo"
)

type AuthConfig struct {
	JWTSecret              string
	TokenTTL               time.Duration
	DevLoginEnabled        bool
	AllowLegacyActorHeader bool
	Logger                 *logrus.Logger
}

// Principal is the authenticated caller with its identity resolved against
// the users table.
type Principal struct {
	Identity domain.Identity
	Source   string
}

type principalKey struct{}

func (c AuthConfig) logger() *logrus.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logrus.StandardLogger()
}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func identityFromContext(ctx context.Context) (domain.Identity, huma.StatusError) {
	if p, ok := principalFromContext(ctx); ok && p.Identity.ID != "" {
		return p.Identity, nil
	}
	return domain.Identity{}, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
}

// requireRole gates a route on transport level before the engine re-checks
// ownership.
func requireRole(ctx context.Context, roles ...domain.Role) (domain.Identity, huma.StatusError) {
	id, authErr := identityFromContext(ctx)
	if authErr != nil {
		return domain.Identity{}, authErr
	}
	if !id.Active {
		return domain.Identity{}, newAPIError(http.StatusForbidden, "forbidden", "account inactive", nil)
	}
	for _, r := range roles {
		if id.Role == r {
			return id, nil
		}
	}
	return domain.Identity{}, newAPIError(http.StatusForbidden, "forbidden", "role not allowed for this operation", map[string]any{"role": id.Role})
}

func authenticateJWT(token, secret string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwt.RegisteredClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("subject claim required")
	}
	return claims.Subject, nil
}

func authenticateAPIKey(ctx context.Context, r repo.Repo, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("api key required")
	}
	apiKey, err := r.GetAPIKeyByHash(ctx, repo.HashAPIKey(key))
	if err != nil {
		return "", err
	}
	if apiKey.UserID == "" {
		return "", errors.New("api key missing user")
	}
	return apiKey.UserID, nil
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func newAuthMiddleware(basePath string, cfg AuthConfig, e engine.Engine) func(http.Handler) http.Handler {
	healthPath := path.Join(basePath, "health")
	devLoginPath := path.Join(basePath, "auth/dev/login")
	resolve := func(w http.ResponseWriter, req *http.Request, next http.Handler, userID, source string) {
		id, err := e.Identity(req.Context(), userID)
		if err != nil {
			respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
			return
		}
		ctx := withPrincipal(req.Context(), Principal{Identity: id, Source: source})
		next.ServeHTTP(w, req.WithContext(ctx))
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			// Only enforce for API base path.
			if basePath != "" && !strings.HasPrefix(req.URL.Path, basePath) {
				next.ServeHTTP(w, req)
				return
			}
			if req.URL.Path == healthPath || req.URL.Path == devLoginPath {
				next.ServeHTTP(w, req)
				return
			}

			authz := strings.TrimSpace(req.Header.Get("Authorization"))
			apiKeyHeader := strings.TrimSpace(req.Header.Get("X-Api-Key"))
			legacyActor := strings.TrimSpace(req.Header.Get("X-Actor-Id"))

			if authz != "" {
				token, ok := bearerToken(authz)
				if !ok {
					respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
					return
				}
				userID, err := authenticateJWT(token, cfg.JWTSecret)
				if err != nil {
					respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
					return
				}
				resolve(w, req, next, userID, "jwt")
				return
			}

			if apiKeyHeader != "" {
				userID, err := authenticateAPIKey(req.Context(), e.Repo, apiKeyHeader)
				if err != nil {
					respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
					return
				}
				resolve(w, req, next, userID, "api_key")
				return
			}

			if legacyActor != "" && cfg.AllowLegacyActorHeader {
				cfg.logger().WithField("user_id", legacyActor).Warn("using legacy X-Actor-Id header without auth; deprecated")
				resolve(w, req, next, legacyActor, "legacy_header")
				return
			}

			respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil))
		})
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	status := http.StatusInternalServerError
	if e, ok := err.(interface{ GetStatus() int }); ok {
		status = e.GetStatus()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err)
}

// mintToken signs an HS256 token for the user id.
func mintToken(secret, userID string, ttl time.Duration, now time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func registerDevAuth(api huma.API, e engine.Engine, cfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "Mint a development token for an existing user",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body struct {
			Email string `json:"email"`
		} `json:"body"`
	}) (*struct {
		Body TokenResponse `json:"body"`
	}, error) {
		if !cfg.DevLoginEnabled {
			return nil, newAPIError(http.StatusNotFound, "not_found", "not found", nil)
		}
		if strings.TrimSpace(input.Body.Email) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "email is required", nil)
		}
		u, err := e.Repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Body.Email)))
		if err != nil {
			return nil, handleError(err)
		}
		if !u.IsActive {
			return nil, newAPIError(http.StatusForbidden, "forbidden", "account inactive", nil)
		}
		now := time.Now().UTC()
		token, err := mintToken(cfg.JWTSecret, u.ID, cfg.TokenTTL, now)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TokenResponse `json:"body"`
		}{Body: TokenResponse{Token: token, UserID: u.ID, Role: u.Role}}, nil
	})
}

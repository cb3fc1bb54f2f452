package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"partner-portal/internal/domain"
	"partner-portal/internal/repository"
)

type contextKey string

const (
	PartnerContextKey contextKey = "partner"
	CredentialIDKey   contextKey = "credential_id"
)

// APIKeyAuth authenticates integration requests with the X-API-Key header.
// The presented key is hashed and resolved through the credential lookup;
// the owning partner is injected into the request context.
type APIKeyAuth struct {
	partnerRepo    *repository.PartnerRepo
	credentialRepo *repository.CredentialRepo
	logger         *zap.Logger
}

func NewAPIKeyAuth(partnerRepo *repository.PartnerRepo, credentialRepo *repository.CredentialRepo, logger *zap.Logger) *APIKeyAuth {
	return &APIKeyAuth{
		partnerRepo:    partnerRepo,
		credentialRepo: credentialRepo,
		logger:         logger,
	}
}

// RequireAPIKey validates the API key, checks partner standing and IP
// allowlist, then injects the partner into context.
func (m *APIKeyAuth) RequireAPIKey() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				m.logger.Warn("missing API key",
					zap.String("path", r.URL.Path),
					zap.String("ip", getClientIP(r)))
				m.sendError(w, r, http.StatusUnauthorized, "missing API credentials")
				return
			}

			sum := sha256.Sum256([]byte(apiKey))
			cred, err := m.credentialRepo.GetCredentialByKeyHash(ctx, hex.EncodeToString(sum[:]))
			if err != nil {
				m.logger.Warn("invalid API key",
					zap.String("api_key", maskAPIKey(apiKey)),
					zap.String("ip", getClientIP(r)))
				m.sendError(w, r, http.StatusUnauthorized, "invalid API credentials")
				return
			}
			if !cred.Active {
				m.logger.Warn("revoked credential attempted access",
					zap.String("credential_id", cred.ID))
				m.sendError(w, r, http.StatusUnauthorized, "credential has been revoked")
				return
			}

			partner, err := m.partnerRepo.GetPartnerByID(ctx, cred.PartnerID)
			if err != nil {
				m.logger.Error("credential points at missing partner",
					zap.String("credential_id", cred.ID),
					zap.String("partner_id", cred.PartnerID),
					zap.Error(err))
				m.sendError(w, r, http.StatusUnauthorized, "invalid API credentials")
				return
			}

			if partner.Status != domain.PartnerStatusActive {
				m.logger.Warn("inactive partner attempted access",
					zap.String("partner_id", partner.ID),
					zap.String("status", string(partner.Status)))
				m.sendError(w, r, http.StatusForbidden, "partner account is not active")
				return
			}
			if !partner.APIEnabled {
				m.logger.Warn("API access disabled for partner",
					zap.String("partner_id", partner.ID))
				m.sendError(w, r, http.StatusForbidden, "API access is disabled")
				return
			}

			if len(partner.AllowedIPs) > 0 {
				clientIP := getClientIP(r)
				if !ipAllowed(clientIP, partner.AllowedIPs) {
					m.logger.Warn("request from non-allowlisted IP",
						zap.String("partner_id", partner.ID),
						zap.String("ip", clientIP))
					m.sendError(w, r, http.StatusForbidden, "IP not allowed")
					return
				}
			}

			ctx = context.WithValue(ctx, PartnerContextKey, partner)
			ctx = context.WithValue(ctx, CredentialIDKey, cred.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPartnerFromContext returns the authenticated partner, if any.
func GetPartnerFromContext(ctx context.Context) (*domain.Partner, bool) {
	p, ok := ctx.Value(PartnerContextKey).(*domain.Partner)
	return p, ok
}

func (m *APIKeyAuth) sendError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

func getClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func ipAllowed(ip string, allowed []string) bool {
	for _, a := range allowed {
		if a == ip {
			return true
		}
	}
	return false
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fabriclibrary/backend/internal/config"
	"github.com/fabriclibrary/backend/internal/oidc"
	"github.com/fabriclibrary/backend/internal/tokens"
	"github.com/fabriclibrary/backend/internal/users"
	"github.com/fabriclibrary/backend/pkg/logger"
	"github.com/fabriclibrary/backend/pkg/metrics"
	"github.com/fabriclibrary/backend/pkg/middleware"
)

// GoogleSignInRequest is the body of POST /api/auth/google
type GoogleSignInRequest struct {
	IDToken string `json:"idToken"`
}

// MeResponse is the body of GET /api/me
type MeResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg      *config.Config
	usersSvc *users.Service
	verifier oidc.Verifier
}

func NewAuthHandler(cfg *config.Config, u *users.Service, v oidc.Verifier) *AuthHandler {
	return &AuthHandler{cfg: cfg, usersSvc: u, verifier: v}
}

// Register routes under /api
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/api")
	a.POST("/auth/google", h.GoogleSignIn)
	a.GET("/me", middleware.AuthMiddleware(h.cfg.JWT.Secret), h.Me)
}

// GoogleSignIn exchanges a Google ID token for an application access token.
// The user row for the token's subject is created on first sign-in; later
// sign-ins only update LastSeenAt.
func (h *AuthHandler) GoogleSignIn(c *gin.Context) {
	var req GoogleSignInRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IDToken == "" {
		metrics.SignIns.WithLabelValues(metrics.OutcomeBadRequest).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "idToken is required"})
		return
	}

	ident, err := h.verifier.Verify(c.Request.Context(), req.IDToken)
	if err != nil {
		// never echo verifier detail back to the caller
		logger.Debugf("id token rejected: %v", err)
		metrics.SignIns.WithLabelValues(metrics.OutcomeUnauthorized).Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid id token"})
		return
	}

	u, created, err := h.usersSvc.SignIn(c.Request.Context(), ident)
	if err != nil {
		logger.Errorf("sign-in persistence failed for sub %s: %v", ident.Subject, err)
		metrics.SignIns.WithLabelValues(metrics.OutcomeError).Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign-in failed"})
		return
	}

	token, err := tokens.IssueAccessToken(h.cfg.JWT.Secret, u, h.cfg.JWT.AccessTokenTTL)
	if err != nil {
		logger.Errorf("failed to issue access token for user %s: %v", u.ID, err)
		metrics.SignIns.WithLabelValues(metrics.OutcomeError).Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign-in failed"})
		return
	}
	metrics.AccessTokensIssued.Inc()
	if created {
		metrics.SignIns.WithLabelValues(metrics.OutcomeCreated).Inc()
	} else {
		metrics.SignIns.WithLabelValues(metrics.OutcomeReturning).Inc()
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Me returns the profile of the user identified by the bearer token's subject.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.AccessClaims(c)
	if claims == nil || claims.Subject == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no subject claim"})
		return
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid subject claim"})
		return
	}

	u, err := h.usersSvc.GetByID(c.Request.Context(), claims.Subject)
	if err != nil {
		if err == users.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		logger.Errorf("profile lookup failed for user %s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile lookup failed"})
		return
	}

	c.JSON(http.StatusOK, MeResponse{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName})
}

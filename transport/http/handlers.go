package http

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/service"
)

// AuthHandlers contains HTTP handlers for the sign-in endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

// PrepareLogin handles the prepare request and returns the message to sign
func (h *AuthHandlers) PrepareLogin(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	message, err := h.authService.PrepareLogin(c.Request.Context(), req.Address)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

// Login handles the login request
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		Signature  string `json:"signature" binding:"required"`
		Address    string `json:"address" binding:"required"`
		SessionKey string `json:"session_key" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	sessionKey, err := base64.StdEncoding.DecodeString(req.SessionKey)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session key"})
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req.Signature, req.Address, sessionKey)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"expiration":          res.Expiration,
		"identity_public_key": base64.StdEncoding.EncodeToString(res.IdentityPublicKey),
	})
}

// GetDelegation handles the delegation fetch request
func (h *AuthHandlers) GetDelegation(c *gin.Context) {
	var req struct {
		Address    string `json:"address" binding:"required"`
		SessionKey string `json:"session_key" binding:"required"`
		Expiration uint64 `json:"expiration" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	sessionKey, err := base64.StdEncoding.DecodeString(req.SessionKey)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session key"})
		return
	}

	signed, err := h.authService.GetDelegation(c.Request.Context(), req.Address, sessionKey, req.Expiration)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"delegation": delegationJSON(signed.Delegation),
		"signature":  base64.StdEncoding.EncodeToString(signed.Signature),
	})
}

// IdentityForAddress resolves a wallet address to its derived identity
func (h *AuthHandlers) IdentityForAddress(c *gin.Context) {
	seed, err := h.authService.IdentityForAddress(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"identity": seed.String()})
}

// AddressForIdentity resolves an identity back to the wallet address it was derived from
func (h *AuthHandlers) AddressForIdentity(c *gin.Context) {
	address, err := h.authService.AddressForIdentity(c.Request.Context(), c.Param("identity"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"address": address})
}

// Health reports service liveness
func (h *AuthHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func delegationJSON(d core.Delegation) gin.H {
	out := gin.H{
		"pubkey":     base64.StdEncoding.EncodeToString(d.Pubkey),
		"expiration": d.Expiration,
	}
	if len(d.Targets) > 0 {
		targets := make([]string, len(d.Targets))
		for i, t := range d.Targets {
			targets[i] = base64.StdEncoding.EncodeToString(t)
		}
		out["targets"] = targets
	}
	return out
}

// respondError maps domain errors to appropriate status codes
func respondError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	errorMsg := "Internal error"

	switch {
	case errors.Is(err, core.ErrInvalidAddress):
		statusCode = http.StatusBadRequest
		errorMsg = "Invalid address"
	case errors.Is(err, core.ErrInvalidIdentity):
		statusCode = http.StatusBadRequest
		errorMsg = "Invalid identity"
	case errors.Is(err, core.ErrInvalidSessionKey):
		statusCode = http.StatusBadRequest
		errorMsg = "Invalid session key"
	case errors.Is(err, core.ErrMalformedMessage):
		statusCode = http.StatusBadRequest
		errorMsg = "Malformed message"
	case errors.Is(err, core.ErrMalformedSignature):
		statusCode = http.StatusBadRequest
		errorMsg = "Malformed signature"
	case errors.Is(err, core.ErrAddressMismatch):
		statusCode = http.StatusUnauthorized
		errorMsg = "Signature does not match address"
	case errors.Is(err, core.ErrInvalidSignature):
		statusCode = http.StatusUnauthorized
		errorMsg = "Invalid signature"
	case errors.Is(err, core.ErrLoginNotFound):
		statusCode = http.StatusNotFound
		errorMsg = "No login in progress"
	case errors.Is(err, core.ErrLoginExpired):
		statusCode = http.StatusGone
		errorMsg = "Prepared login expired"
	case errors.Is(err, core.ErrLoginMismatch):
		statusCode = http.StatusConflict
		errorMsg = "Session key does not match active login"
	case errors.Is(err, core.ErrDelegationNotIssued):
		statusCode = http.StatusNotFound
		errorMsg = "Delegation not issued"
	case errors.Is(err, core.ErrDelegationExpired):
		statusCode = http.StatusGone
		errorMsg = "Delegation expired"
	case errors.Is(err, core.ErrIdentityNotFound):
		statusCode = http.StatusNotFound
		errorMsg = "Identity not found"
	case errors.Is(err, core.ErrAddressNotFound):
		statusCode = http.StatusNotFound
		errorMsg = "Address not found"
	case errors.Is(err, core.ErrLookupDisabled):
		statusCode = http.StatusForbidden
		errorMsg = "Lookup disabled"
	case errors.Is(err, core.ErrAttestationUnavailable):
		statusCode = http.StatusServiceUnavailable
		errorMsg = "Attestation unavailable"
	}

	c.JSON(statusCode, gin.H{"error": errorMsg})
}

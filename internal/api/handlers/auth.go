// internal/api/handlers/auth.go
package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/baharkarakas/hodl-ledger/internal/api/httpx"
	"github.com/baharkarakas/hodl-ledger/internal/auth"
)

// AuthHandler trades the ingest client's credentials for a JWT pair.
type AuthHandler struct {
	TM         *auth.TokenManager
	ClientID   string
	SecretHash string
}

func NewAuthHandler(tm *auth.TokenManager, clientID, secretHash string) *AuthHandler {
	return &AuthHandler{TM: tm, ClientID: clientID, SecretHash: secretHash}
}

type tokenReq struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request", nil)
		return
	}
	idOK := subtle.ConstantTimeCompare([]byte(req.ClientID), []byte(h.ClientID)) == 1
	secretErr := auth.VerifySecret(req.ClientSecret, h.SecretHash)
	if !idOK || secretErr != nil {
		slog.Warn("ingest token denied", "client_id", req.ClientID)
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid client credentials", nil)
		return
	}
	h.issue(w, req.ClientID, auth.RoleIngest)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := httpx.DecodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request", nil)
		return
	}
	claims, err := h.TM.ParseRefresh(req.RefreshToken)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token", nil)
		return
	}
	h.issue(w, claims.ClientID, claims.Role)
}

func (h *AuthHandler) issue(w http.ResponseWriter, clientID, role string) {
	access, refresh, exp, err := h.TM.GeneratePair(clientID, role)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResp{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(time.Until(exp).Truncate(time.Second) / time.Second),
	})
}

package api

import (
	"net/http"

	"github.com/tossware/poolengine/internal/auth"
)

// TokenHandler issues API tokens to operators presenting the shared
// operator secret. It is mounted outside the auth middleware.
type TokenHandler struct {
	tokens       *auth.TokenManager
	operatorHash string
}

// NewTokenHandler creates a token issuance handler. operatorHash is
// the bcrypt hash the presented secret is verified against.
func NewTokenHandler(tokens *auth.TokenManager, operatorHash string) *TokenHandler {
	return &TokenHandler{tokens: tokens, operatorHash: operatorHash}
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.operatorHash == "" {
		http.Error(w, "token issuance disabled", http.StatusNotFound)
		return
	}

	var req struct {
		OperatorID string `json:"operator_id"`
		TenantID   string `json:"tenant_id"`
		Secret     string `json:"secret"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := auth.VerifySecret(h.operatorHash, req.Secret); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	token, err := h.tokens.Generate(req.OperatorID, req.TenantID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to issue token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

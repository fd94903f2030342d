package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/upb/websecurity/middleware"
	"github.com/upb/websecurity/security"
	"github.com/upb/websecurity/utils"
	"go.uber.org/zap"
)

// LoginRequest is the login payload, sent as JSON or as a form
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

// LoginResponse is returned on a successful login
type LoginResponse struct {
	Username string `json:"username"`
	Token    string `json:"token,omitempty"`
}

// Handler serves login and logout.
// With an issuer configured, login answers with a bearer token instead of
// remembering the identity.
type Handler struct {
	checker CredentialChecker
	issuer  *TokenIssuer
	logger  *zap.Logger
}

// NewHandler creates a new auth handler. issuer may be nil.
func NewHandler(checker CredentialChecker, issuer *TokenIssuer, logger *zap.Logger) *Handler {
	return &Handler{
		checker: checker,
		issuer:  issuer,
		logger:  logger,
	}
}

// HandleLogin checks the credentials and remembers the username as identity
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := decodeLogin(r)
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		_ = utils.WriteBadRequest(w, "Validation failed", utils.ValidationDetails(err))
		return
	}

	ok, err := h.checker.CheckCredentials(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Error("credential check failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
		return
	}
	if !ok {
		h.logger.Info("login rejected", zap.String("username", req.Username))
		_ = utils.WriteUnauthorized(w, "Invalid username/password combination")
		return
	}

	resp := LoginResponse{Username: req.Username}
	if h.issuer != nil {
		token, err := h.issuer.Issue(req.Username)
		if err != nil {
			h.logger.Error("failed to issue token", zap.Error(err))
			_ = utils.WriteInternalServerError(w, "")
			return
		}
		resp.Token = token
	} else if err := security.Remember(w, r, req.Username); err != nil {
		h.logger.Error("failed to remember identity", zap.Error(err))
		_ = middleware.WriteSecurityError(w, err)
		return
	}

	h.logger.Info("user logged in", zap.String("username", req.Username))
	_ = utils.WriteOK(w, resp)
}

// HandleLogout forgets the remembered identity
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := security.Forget(w, r); err != nil {
		h.logger.Error("failed to forget identity", zap.Error(err))
		_ = middleware.WriteSecurityError(w, err)
		return
	}
	_ = utils.WriteMessage(w, "You have been logged out")
}

func decodeLogin(r *http.Request) (*LoginRequest, error) {
	var req LoginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	req.Username = r.PostForm.Get("username")
	req.Password = r.PostForm.Get("password")
	return &req, nil
}

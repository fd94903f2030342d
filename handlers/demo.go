package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/websecurity/middleware"
	"github.com/upb/websecurity/security"
	"github.com/upb/websecurity/utils"
	"go.uber.org/zap"
)

// IndexResponse is returned by GET /
type IndexResponse struct {
	Message  string `json:"message"`
	LoggedIn bool   `json:"logged_in"`
	UserID   string `json:"user_id,omitempty"`
}

// DemoHandler serves the demo pages. Access control happens in the guards
// mounted in front of the handlers, except for the index page which only
// reports who is logged in.
type DemoHandler struct {
	logger *zap.Logger
}

// NewDemoHandler creates a new DemoHandler
func NewDemoHandler(logger *zap.Logger) *DemoHandler {
	return &DemoHandler{logger: logger}
}

// HandleIndex greets the logged in user
func (h *DemoHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	userID, ok, err := security.AuthorizedUserID(r)
	if err != nil {
		h.logger.Warn("failed to resolve user", zap.Error(err))
		_ = middleware.WriteSecurityError(w, err)
		return
	}
	if !ok {
		_ = utils.WriteOK(w, IndexResponse{Message: "You need to login"})
		return
	}
	// greet by login; the user id may be a database key
	login, err := security.GetIdentity(r)
	if err != nil {
		h.logger.Warn("failed to identify user", zap.Error(err))
		_ = middleware.WriteSecurityError(w, err)
		return
	}
	_ = utils.WriteOK(w, IndexResponse{
		Message:  "Hello, " + login.String() + "!",
		LoggedIn: true,
		UserID:   string(userID),
	})
}

// HandlePublic serves the page guarded by the "public" permission
func (h *DemoHandler) HandlePublic(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteMessage(w, "This page is visible for all registered users")
}

// HandleProtected serves the page guarded by the "protected" permission
func (h *DemoHandler) HandleProtected(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteMessage(w, "You are on protected page")
}

// BikeHandlers returns the handlers of the bike resource, one per method.
// Each answers with the action it performed.
func (h *DemoHandler) BikeHandlers() middleware.MethodHandlers {
	action := func(verb string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = utils.WriteOK(w, map[string]string{"resource": "bike", "action": verb})
		})
	}
	return middleware.MethodHandlers{
		http.MethodGet:    action("read"),
		http.MethodPost:   action("create"),
		http.MethodPut:    action("update"),
		http.MethodPatch:  action("update"),
		http.MethodDelete: action("delete"),
	}
}

// HandleRemember remembers the {user} URL parameter as identity and
// redirects to the index
func (h *DemoHandler) HandleRemember(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	if err := security.Remember(w, r, user); err != nil {
		h.logger.Warn("failed to remember identity", zap.String("user", user), zap.Error(err))
		_ = middleware.WriteSecurityError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleForget forgets the remembered identity and redirects to the index
func (h *DemoHandler) HandleForget(w http.ResponseWriter, r *http.Request) {
	if err := security.Forget(w, r); err != nil {
		h.logger.Warn("failed to forget identity", zap.Error(err))
		_ = middleware.WriteSecurityError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

package identity

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"docvault/internal/transport/http/shared"
	"docvault/pkg/apierrors"
	"docvault/pkg/requestcontext"
)

// Handler exposes the auth and user endpoints.
type Handler struct {
	service *Service
	tokens  *TokenIssuer
	logger  *slog.Logger
}

func NewHandler(service *Service, tokens *TokenIssuer, logger *slog.Logger) *Handler {
	return &Handler{service: service, tokens: tokens, logger: logger}
}

// RegisterPublic mounts the unauthenticated auth routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/api/auth/register", h.handleRegister)
	r.Post("/api/auth/login", h.handleLogin)
}

// RegisterProtected mounts the routes that require a valid bearer token,
// verified or not.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/api/auth/me", h.handleMe)
	r.Post("/api/auth/logout", h.handleLogout)
	r.Post("/api/auth/send-otp", h.handleSendOTP)
	r.Post("/api/auth/verify-otp", h.handleVerifyOTP)

	r.Get("/api/users/{id}", h.handleGetUser)
	r.Put("/api/users/{id}", h.handleUpdateUser)
	r.Delete("/api/users/{id}", h.handleDeleteUser)
}

// RegisterVerified mounts the routes that additionally require a verified
// account.
func (h *Handler) RegisterVerified(r chi.Router) {
	r.Get("/api/users/search", h.handleSearchByNationalID)
}

// RegisterAdmin mounts the admin-only user routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/api/users", h.handleListUsers)
}

type tokenResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request, status int, user *User) {
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, status, tokenResponse{Token: token, User: user})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		shared.WriteError(w, r, h.logger, apierrors.New(apierrors.CodeValidation, "invalid request body"))
		return
	}

	user, err := h.service.Register(r.Context(), in)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	h.issueToken(w, r, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		shared.WriteError(w, r, h.logger, apierrors.New(apierrors.CodeValidation, "invalid request body"))
		return
	}

	user, err := h.service.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	h.issueToken(w, r, http.StatusOK, user)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.service.RecordLogout(r.Context(), requestcontext.UserID(r.Context()))
	shared.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.IssueOTP(r.Context(), requestcontext.UserID(r.Context())); err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"message": "OTP sent to registered email"})
}

type verifyOTPRequest struct {
	OTP string `json:"otp"`
}

func (h *Handler) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var in verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		shared.WriteError(w, r, h.logger, apierrors.New(apierrors.CodeValidation, "invalid request body"))
		return
	}

	user, err := h.service.VerifyOTP(r.Context(), requestcontext.UserID(r.Context()), in.OTP)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleSearchByNationalID(w http.ResponseWriter, r *http.Request) {
	nationalID := r.URL.Query().Get("national_id")
	if nationalID == "" {
		shared.WriteError(w, r, h.logger, apierrors.New(apierrors.CodeValidation, "national_id query parameter is required"))
		return
	}
	profile, err := h.service.SearchByNationalID(r.Context(), nationalID)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, shared.NewListEnvelope(users, len(users), len(users), 1, max(len(users), 1)))
}

// userID extracts and authorizes the {id} path parameter: only the user
// themselves or an admin may touch a user record.
func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, r, h.logger, apierrors.New(apierrors.CodeValidation, "invalid user id"))
		return uuid.Nil, false
	}
	ctx := r.Context()
	if id != requestcontext.UserID(ctx) && requestcontext.Role(ctx) != RoleAdmin {
		shared.WriteError(w, r, h.logger, apierrors.New(apierrors.CodeForbidden, "not authorized to access this user"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	var patch ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		shared.WriteError(w, r, h.logger, apierrors.New(apierrors.CodeValidation, "invalid request body"))
		return
	}

	ctx := r.Context()
	user, err := h.service.UpdateProfile(ctx, id, patch, requestcontext.UserID(ctx), requestcontext.Role(ctx))
	if err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.service.DeleteAccount(ctx, id, requestcontext.UserID(ctx), requestcontext.Role(ctx)); err != nil {
		shared.WriteError(w, r, h.logger, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

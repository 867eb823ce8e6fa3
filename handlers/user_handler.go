package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jali/security/middleware"
	"github.com/jali/security/models"
	"github.com/jali/security/utils"
	"go.uber.org/zap"
)

const defaultPageSize = 20

// UserService defines the account lookups exposed over HTTP
type UserService interface {
	GetUser(ctx context.Context, identifier string) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Authorities []string  `json:"authorities"`
	CreatedAt   string    `json:"createdAt"`
}

// UserHandler handles account endpoints
type UserHandler struct {
	service UserService
	logger  *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger,
	}
}

// HandleGetCurrentUser handles GET /api/v1/users/me
func (h *UserHandler) HandleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal := middleware.GetPrincipalFromContext(ctx)
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	user, err := h.service.GetUser(ctx, principal.Identifier())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, toUserResponse(user))
}

// HandleGetUser handles GET /api/v1/admin/users/{email}
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	email := chi.URLParam(r, "email")
	if err := utils.ValidateEmail(email); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid email", map[string]any{"email": "must be a valid email address"})
		return
	}

	h.logger.Debug("admin user lookup",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.String("email", email))

	user, err := h.service.GetUser(ctx, email)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, toUserResponse(user))
}

// HandleListUsers handles GET /api/v1/admin/users?limit=&offset=
func (h *UserHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid limit", map[string]any{"limit": "must be an integer"})
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid offset", map[string]any{"offset": "must be an integer"})
		return
	}

	users, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	_ = utils.WriteOK(w, out)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func toUserResponse(u *models.User) UserResponse {
	authorities := u.Authorities()
	if authorities == nil {
		authorities = []string{}
	}
	return UserResponse{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Role:        u.Role.String(),
		Authorities: authorities,
		CreatedAt:   u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

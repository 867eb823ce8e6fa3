package handlers

import (
	"context"
	"net/http"

	"github.com/jali/security/middleware"
	"github.com/jali/security/services"
	"github.com/jali/security/utils"
	"go.uber.org/zap"
)

// AuthService defines the authentication operations exposed over HTTP
type AuthService interface {
	Register(ctx context.Context, req services.RegisterRequest) (*services.AuthenticationResponse, error)
	Authenticate(ctx context.Context, req services.AuthenticationRequest) (*services.AuthenticationResponse, error)
}

// AuthHandler handles the public /auth endpoints
type AuthHandler struct {
	service AuthService
	logger  *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

// HandleRegister handles POST /api/v1/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req services.RegisterRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		HandleDecodeError(w, err, h.logger)
		return
	}

	resp, err := h.service.Register(ctx, req)
	if err != nil {
		h.logger.Debug("registration failed",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.writeToken(w, resp)
}

// HandleAuthenticate handles POST /api/v1/auth/authenticate
func (h *AuthHandler) HandleAuthenticate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req services.AuthenticationRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		HandleDecodeError(w, err, h.logger)
		return
	}

	resp, err := h.service.Authenticate(ctx, req)
	if err != nil {
		h.logger.Debug("authentication failed",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.writeToken(w, resp)
}

// writeToken sends the bare {"token": ...} document
func (h *AuthHandler) writeToken(w http.ResponseWriter, resp *services.AuthenticationResponse) {
	w.Header().Set("Cache-Control", "no-store")
	if err := utils.WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("failed to write token response", zap.Error(err))
	}
}

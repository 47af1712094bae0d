package handler

import (
	"log/slog"
	"net/http"
	"time"

	"auth-bridge/internal/usecase"

	"github.com/labstack/echo/v4"
)

// InternalSessionHandler handles session creation and revocation requested
// by the identity provider and operators.
type InternalSessionHandler struct {
	lifecycle *usecase.SessionLifecycle
	logger    *slog.Logger
}

// NewInternalSessionHandler creates a new internal session handler.
func NewInternalSessionHandler(lc *usecase.SessionLifecycle, l *slog.Logger) *InternalSessionHandler {
	return &InternalSessionHandler{
		lifecycle: lc,
		logger:    l.With("component", "internal_sessions"),
	}
}

type createSessionRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type createSessionResponse struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Create handles POST /internal/sessions.
func (h *InternalSessionHandler) Create(c echo.Context) error {
	var req createSessionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	s, err := h.lifecycle.Create(ctx, req.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "session create failed", "user_id", req.UserID, "error", err)
		return mapDomainError(err)
	}

	h.logger.InfoContext(ctx, "session created", "user_id", s.UserID, "session_id", s.ID, "remote_addr", c.RealIP())
	return c.JSON(http.StatusCreated, createSessionResponse{
		ID:        s.ID,
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
	})
}

// Revoke handles DELETE /internal/sessions/:id.
func (h *InternalSessionHandler) Revoke(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	ctx := c.Request().Context()
	if err := h.lifecycle.RevokeByID(ctx, id); err != nil {
		h.logger.ErrorContext(ctx, "session revoke failed", "session_id", id, "error", err)
		return mapDomainError(err)
	}

	h.logger.InfoContext(ctx, "session revoked", "session_id", id, "remote_addr", c.RealIP())
	return c.NoContent(http.StatusNoContent)
}

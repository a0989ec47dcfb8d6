package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/fieldline/casework-api/internal/auth"
	"github.com/fieldline/casework-api/internal/domain"
)

type AuthHandler struct {
	logger *zap.Logger
}

func NewAuthHandler(logger *zap.Logger) *AuthHandler {
	return &AuthHandler{logger: logger}
}

// Me godoc
// @Summary Get current authenticated user
// @Description Returns the current authenticated user with roles and organization.
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.AuthUserDTO
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "unauthorized",
		})
		return
	}

	dto := domain.AuthUserDTO{
		ID:             userCtx.UserID.String(),
		Name:           userCtx.DisplayName,
		Email:          userCtx.Email,
		Roles:          userCtx.RolesAsStrings(),
		OrganizationID: string(userCtx.OrganizationID),
		Initials:       userCtx.GetDisplayNameInitials(),
		IsAdmin:        userCtx.IsAdmin(),
	}

	respondJSON(w, http.StatusOK, dto)
}

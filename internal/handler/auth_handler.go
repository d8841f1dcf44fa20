package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tahfidz-admin-api/internal/authz"
	appErrors "github.com/noah-isme/tahfidz-admin-api/pkg/errors"
	"github.com/noah-isme/tahfidz-admin-api/pkg/response"
)

// AuthHandler describes the caller. Tokens are issued elsewhere.
type AuthHandler struct{}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// Me godoc
// @Summary Current user and the actions their role allows
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"user_id":      claims.UserID,
		"name":         claims.Name,
		"role":         claims.Role,
		"student_ids":  claims.StudentIDs,
		"capabilities": authz.Capabilities(authz.PrincipalFromClaims(claims)),
	}, nil)
}

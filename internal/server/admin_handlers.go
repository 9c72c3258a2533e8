package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vector-skill/academy/internal/models"
)

// SetUserActiveRequest toggles an account's active flag
type SetUserActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// @Summary List users
// @Description List all accounts (admin only)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} UserResponse
// @Failure 403 {object} map[string]interface{}
// @Router /api/admin/users [get]
func (s *Server) listUsers(c *gin.Context) {
	var users []models.User
	if err := s.db.Order("created_at DESC").Find(&users).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list users")
		detail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	responses := make([]UserResponse, len(users))
	for i := range users {
		responses[i] = userResponse(&users[i])
	}

	c.JSON(http.StatusOK, responses)
}

// @Summary Activate or deactivate a user
// @Description Toggle an account's active status (admin only, not self)
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body SetUserActiveRequest true "Active flag"
// @Success 200 {object} UserResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/admin/users/{id}/activate [patch]
func (s *Server) setUserActive(c *gin.Context) {
	userID := c.Param("id")

	sessionData, _ := GetSessionData(c)
	if sessionData != nil && userID == sessionData.UserID {
		detail(c, http.StatusBadRequest, "Cannot change your own active status")
		return
	}

	var req SetUserActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingDetail(c, err)
		return
	}

	var user models.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			detail(c, http.StatusNotFound, "User not found")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		detail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := s.db.Model(&user).Update("is_active", *req.IsActive).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update user")
		detail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Bool("is_active", *req.IsActive).
		Str("changed_by", sessionData.UserID).
		Msg("User active status changed")

	c.JSON(http.StatusOK, userResponse(&user))
}

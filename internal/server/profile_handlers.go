package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vector-skill/academy/internal/models"
)

// UpdateProfileRequest updates the caller's own profile fields. Role and
// active status are never client-writable.
type UpdateProfileRequest struct {
	FullName *string `json:"full_name" binding:"omitempty,max=120"`
	Phone    *string `json:"phone" binding:"omitempty,phone"`
}

// @Summary Get profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Router /api/users/profile [get]
func (s *Server) getProfile(c *gin.Context) {
	s.getCurrentUser(c)
}

// @Summary Update profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} UserResponse
// @Failure 422 {object} map[string]interface{}
// @Router /api/users/profile [put]
func (s *Server) updateProfile(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		detail(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingDetail(c, err)
		return
	}

	var user models.User
	if err := s.db.Where("id = ?", sessionData.UserID).First(&user).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to find user")
		detail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	updates := map[string]interface{}{}
	if req.FullName != nil {
		updates["full_name"] = req.FullName
	}
	if req.Phone != nil {
		updates["phone"] = req.Phone
	}
	if len(updates) > 0 {
		now := time.Now()
		updates["updated_at"] = &now
		if err := s.db.Model(&user).Updates(updates).Error; err != nil {
			s.logger.Error().Err(err).Msg("Failed to update profile")
			detail(c, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	c.JSON(http.StatusOK, userResponse(&user))
}

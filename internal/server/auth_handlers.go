package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vector-skill/academy/internal/auth"
	"github.com/vector-skill/academy/internal/models"
	"github.com/vector-skill/academy/internal/tasks"
)

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=6,max=72"`
	FullName *string `json:"full_name" binding:"omitempty,max=120"`
	Phone    *string `json:"phone" binding:"omitempty,phone"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// VerifyPhoneRequest carries the identity assertion from the OTP provider
type VerifyPhoneRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

// ForgotPasswordRequest starts the password recovery flow
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest completes the password recovery flow
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=72"`
}

// TokenResponse is the successful credential-exchange response
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserResponse represents user profile information returned in responses
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"full_name"`
	Phone     *string   `json:"phone"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func userResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Phone:     user.Phone,
		Role:      user.Role,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}
}

func tokenResponse(c *gin.Context, status int, token string) {
	c.JSON(status, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// @Summary Register
// @Description Create an account and return a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 201 {object} TokenResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/auth/register [post]
func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingDetail(c, err)
		return
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to check existing email")
		detail(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	if count > 0 {
		detail(c, http.StatusBadRequest, "Email already registered")
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		detail(c, http.StatusInternalServerError, "Registration failed")
		return
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: passwordHash,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Role:         models.RoleProspect,
		IsActive:     true,
	}

	if err := s.db.Create(user).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create user")
		detail(c, http.StatusBadRequest, "Email already registered")
		return
	}

	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		detail(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	fullName := ""
	if user.FullName != nil {
		fullName = *user.FullName
	}
	if task, err := tasks.NewWelcomeEmailTask(user.Email, fullName); err == nil {
		if _, err := s.enqueue.Enqueue(task); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to enqueue welcome email")
		}
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User registered")
	recordLogin("register", true)

	tokenResponse(c, http.StatusCreated, token)
}

// @Summary Login
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/login [post]
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingDetail(c, err)
		return
	}

	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			recordLogin("password", false)
			detail(c, http.StatusUnauthorized, "Incorrect email or password")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		detail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		recordLogin("password", false)
		detail(c, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	if !user.IsActive {
		recordLogin("password", false)
		detail(c, http.StatusBadRequest, "Inactive user")
		return
	}

	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		detail(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User logged in")
	recordLogin("password", true)

	tokenResponse(c, http.StatusOK, token)
}

// @Summary Verify phone
// @Description Exchange an OTP provider identity assertion for a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body VerifyPhoneRequest true "Identity assertion"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/auth/verify-phone [post]
func (s *Server) verifyPhone(c *gin.Context) {
	var req VerifyPhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingDetail(c, err)
		return
	}

	phone, err := s.phoneVerifier.VerifyIDToken(c.Request.Context(), req.IDToken)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Phone assertion verification failed")
		recordLogin("phone", false)
		detail(c, http.StatusUnauthorized, "Invalid or expired verification code. Please try again.")
		return
	}

	// Phone formatting differs between the provider and what users typed
	// at registration; compare digits only.
	var candidates []models.User
	if err := s.db.Where("phone IS NOT NULL").Find(&candidates).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to load users for phone match")
		detail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	phoneDigits := models.DigitsOnly(phone)
	var user *models.User
	for i := range candidates {
		if candidates[i].PhoneDigits() == phoneDigits {
			user = &candidates[i]
			break
		}
	}

	if user == nil {
		recordLogin("phone", false)
		detail(c, http.StatusNotFound, "This phone number is not registered. Please register first and add your phone number, or sign in with email.")
		return
	}

	if !user.IsActive {
		recordLogin("phone", false)
		detail(c, http.StatusBadRequest, "Account is inactive")
		return
	}

	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		detail(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Msg("User logged in via phone")
	recordLogin("phone", true)

	tokenResponse(c, http.StatusOK, token)
}

// @Summary Get current user
// @Description Get the profile of the currently authenticated user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/me [get]
func (s *Server) getCurrentUser(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		detail(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var user models.User
	if err := s.db.Where("id = ?", sessionData.UserID).First(&user).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to find user")
		detail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	c.JSON(http.StatusOK, userResponse(&user))
}

// @Summary Forgot password
// @Description Start password recovery. Always returns 200 to avoid account enumeration.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Account email"
// @Success 200 {object} map[string]interface{}
// @Router /api/auth/forgot-password [post]
func (s *Server) forgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingDetail(c, err)
		return
	}

	response := gin.H{"message": "If that email is registered, a reset link has been sent."}

	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error().Err(err).Msg("Failed to look up user for password reset")
		}
		c.JSON(http.StatusOK, response)
		return
	}

	token, err := auth.GenerateResetToken()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate reset token")
		detail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	record := &models.PasswordResetToken{
		Email:     user.Email,
		TokenHash: auth.HashResetToken(token),
		ExpiresAt: time.Now().Add(s.config.Auth.ResetTTL),
	}
	if err := s.db.Create(record).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to store reset token")
		detail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	task, err := tasks.NewPasswordResetEmailTask(user.Email, token)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build reset email task")
		detail(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	if _, err := s.enqueue.Enqueue(task); err != nil {
		s.logger.Error().Err(err).Msg("Failed to enqueue reset email")
		detail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.logger.Info().Str("email", user.Email).Msg("Password reset requested")
	c.JSON(http.StatusOK, response)
}

// @Summary Reset password
// @Description Complete password recovery with the emailed token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Reset request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/auth/reset-password [post]
func (s *Server) resetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingDetail(c, err)
		return
	}

	var record models.PasswordResetToken
	err := s.db.Where("token_hash = ?", auth.HashResetToken(req.Token)).First(&record).Error
	if err != nil || record.Expired(time.Now()) {
		detail(c, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}

	var user models.User
	if err := s.db.Where("email = ?", record.Email).First(&user).Error; err != nil {
		detail(c, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}

	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		detail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := s.db.Model(&user).Update("password_hash", passwordHash).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to update password")
		detail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Single use: burn every outstanding token for the account
	if err := s.db.Where("email = ?", record.Email).Delete(&models.PasswordResetToken{}).Error; err != nil {
		s.logger.Warn().Err(err).Msg("Failed to delete used reset tokens")
	}

	s.logger.Info().Str("email", user.Email).Msg("Password reset completed")
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset. You can now sign in."})
}

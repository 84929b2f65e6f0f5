package server

import (
	"harfzaar/internal/middleware"
	"harfzaar/internal/models"
	"harfzaar/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Signup handles POST /api/auth/signup
// @Summary User signup
// @Description Register a new user account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,email=string,password=string} true "Signup request"
// @Success 201 {object} object{message=string,token=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	token, _, err := s.authService.Signup(c.UserContext(), service.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return models.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"token":   token,
	})
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate by username and return a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,password=string} true "Login credentials"
// @Success 200 {object} object{message=string,token=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	token, err := s.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
	})
}

// ForgotPassword handles POST /api/auth/forgot-password
// @Summary Send a password reset OTP
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string} true "Registered email"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/forgot-password [post]
func (s *Server) ForgotPassword(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	if err := s.authService.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "OTP sent successfully."})
}

// VerifyOTP handles POST /api/auth/verify-otp
// @Summary Verify a password reset OTP
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,otp=string} true "OTP"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/verify-otp [post]
func (s *Server) VerifyOTP(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	if err := s.authService.VerifyOTP(c.UserContext(), req.Email, req.OTP); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "OTP matched. You can now set a new password."})
}

// ChangePassword handles POST /api/auth/change-password
// @Summary Set a new password after OTP verification
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,newPassword=string} true "New password"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/change-password [post]
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req struct {
		Email       string `json:"email"`
		NewPassword string `json:"newPassword"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	if err := s.authService.ChangePassword(c.UserContext(), req.Email, req.NewPassword); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password changed successfully."})
}

// ChangePasswordViaPassword handles POST /api/auth/change-passwordviapassword
// @Summary Change password using the current one
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,oldPassword=string,newPassword=string} true "Passwords"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/change-passwordviapassword [post]
func (s *Server) ChangePasswordViaPassword(c *fiber.Ctx) error {
	var req struct {
		Email       string `json:"email"`
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	if err := s.authService.ChangePasswordViaPassword(c.UserContext(), req.Email, req.OldPassword, req.NewPassword); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password changed successfully."})
}

// VerifyEmail handles POST /api/auth/verify-email
// @Summary Check that an email is registered
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string} true "Email"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/verify-email [post]
func (s *Server) VerifyEmail(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	if err := s.authService.VerifyEmail(c.UserContext(), req.Email); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Email exists."})
}

// UserInfo handles GET /api/auth/user-info
// @Summary Current user's name and email
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{username=string,email=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/user-info [get]
func (s *Server) UserInfo(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{
		"username": user.Username,
		"email":    user.Email,
	})
}

// Logout handles POST /api/auth/logout
// @Summary Revoke the current token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{message=string}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, _ := c.Locals(localClaims).(*middleware.TokenClaims)
	if err := s.authService.Logout(c.UserContext(), claims); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

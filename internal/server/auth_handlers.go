package server

import (
	"time"

	"bbs/internal/middleware"
	"bbs/internal/models"
	"bbs/internal/service"

	"github.com/gofiber/fiber/v2"
)

// landingPath is where a freshly signed-up user is sent.
const landingPath = "/board/free/"

type signupForm struct {
	Username        string `json:"username" form:"username"`
	Password        string `json:"password" form:"password1"`
	PasswordConfirm string `json:"password_confirm" form:"password2"`
	Nickname        string `json:"nickname" form:"nickname"`
	Email           string `json:"email" form:"email"`
}

// signupEcho is a signupForm without the passwords, for redisplay.
type signupEcho struct {
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
}

type loginForm struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// SignupForm handles GET /accounts/signup/
func (s *Server) SignupForm(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"form":   signupEcho{},
		"fields": []string{"username", "password1", "password2", "nickname", "email", "avatar"},
	})
}

// Signup handles POST /accounts/signup/
// The new user is logged in straight away.
func (s *Server) Signup(c *fiber.Ctx) error {
	var form signupForm
	if err := bindForm(c, &form); err != nil {
		return respondError(c, err)
	}
	echo := signupEcho{Username: form.Username, Nickname: form.Nickname, Email: form.Email}

	avatar, err := formUpload(c, "avatar")
	if err != nil {
		return respondForm(c, err, echo)
	}

	user, err := s.userService.Signup(c.UserContext(), service.SignupInput{
		Username:        form.Username,
		Password:        form.Password,
		PasswordConfirm: form.PasswordConfirm,
		Nickname:        form.Nickname,
		Email:           form.Email,
		Avatar:          avatar,
	})
	if err != nil {
		return respondForm(c, err, echo)
	}

	token, err := s.startSession(c, user)
	if err != nil {
		return respondError(c, err)
	}

	c.Location(landingPath)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// LoginForm handles GET /accounts/login/
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"form":     loginForm{},
		"messages": popFlash(c),
	})
}

// Login handles POST /accounts/login/
func (s *Server) Login(c *fiber.Ctx) error {
	var form loginForm
	if err := bindForm(c, &form); err != nil {
		return respondError(c, err)
	}

	user, err := s.userService.Authenticate(c.UserContext(), form.Username, form.Password)
	if err != nil {
		return respondError(c, err)
	}

	token, err := s.startSession(c, user)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Logout handles POST /accounts/logout/
// The presented token, if still valid, is revoked until its natural expiry.
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, err := middleware.ParseToken(middleware.TokenFromRequest(c), s.config.JWTSecret)
	if err == nil {
		if rerr := s.revoke(c.UserContext(), claims); rerr != nil {
			middleware.Logger.WarnContext(c.UserContext(), "failed to revoke token",
				"jti", claims.JTI, "error", rerr)
		}
	}
	s.clearSessionCookie(c)
	return c.Redirect("/board/", fiber.StatusSeeOther)
}

func (s *Server) startSession(c *fiber.Ctx, user *models.User) (string, error) {
	token, claims, err := middleware.IssueToken(s.config.JWTSecret, user.ID, user.Username, time.Now())
	if err != nil {
		return "", models.NewInternalError(err)
	}
	s.setSessionCookie(c, token, claims.ExpiresAt)
	return token, nil
}

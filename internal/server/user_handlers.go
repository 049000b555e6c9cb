package server

import (
	"bbs/internal/media"
	"bbs/internal/models"
	"bbs/internal/service"

	"github.com/gofiber/fiber/v2"
)

type profileForm struct {
	Email     string `json:"email" form:"email"`
	Nickname  string `json:"nickname" form:"nickname"`
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
}

func profileView(user *models.User) fiber.Map {
	view := fiber.Map{"user": user}
	if user.Avatar != "" {
		view["avatar_url"] = media.URL(user.Avatar)
	}
	return view
}

// GetProfile handles GET /accounts/profile/
func (s *Server) GetProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetUserByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	view := profileView(user)
	view["messages"] = popFlash(c)
	return c.JSON(view)
}

// EditProfileForm handles GET /accounts/profile/edit/
func (s *Server) EditProfileForm(c *fiber.Ctx) error {
	user, err := s.userService.GetUserByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	view := profileView(user)
	view["form"] = profileForm{
		Email:     user.Email,
		Nickname:  user.DisplayName(),
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
	return c.JSON(view)
}

// UpdateProfile handles POST /accounts/profile/edit/
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var form profileForm
	if err := bindForm(c, &form); err != nil {
		return respondError(c, err)
	}
	avatar, err := formUpload(c, "avatar")
	if err != nil {
		return respondForm(c, err, form)
	}

	_, err = s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:    currentUserID(c),
		Email:     form.Email,
		Nickname:  form.Nickname,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Avatar:    avatar,
	})
	if err != nil {
		return respondForm(c, err, form)
	}
	return redirectWithFlash(c, "/accounts/profile/", "Your profile has been updated.")
}

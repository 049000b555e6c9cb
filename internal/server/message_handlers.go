package server

import (
	"errors"

	"bbs/internal/models"
	"bbs/internal/service"

	"github.com/gofiber/fiber/v2"
)

const messageBoxPath = "/accounts/messages/"

type messageForm struct {
	Title   string `json:"title" form:"title"`
	Content string `json:"content" form:"content"`
}

// selfAddressed reports a refused send-to-self, which has no form field to pin to.
func selfAddressed(err error) (string, bool) {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == models.CodeValidation && len(appErr.Fields) == 0 {
		return appErr.Message, true
	}
	return "", false
}

// GetMessageBox handles GET /accounts/messages/
func (s *Server) GetMessageBox(c *fiber.Ctx) error {
	box, err := s.messageService.Box(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"received_messages": box.Received,
		"sent_messages":     box.Sent,
		"unread_count":      box.UnreadCount,
		"messages":          popFlash(c),
	})
}

// GetMessage handles GET /accounts/messages/:id/
// Opening a message as its receiver marks it read.
func (s *Server) GetMessage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	msg, err := s.messageService.OpenMessage(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": msg})
}

// SendMessageForm handles GET /accounts/messages/send/:receiverId/
func (s *Server) SendMessageForm(c *fiber.Ctx) error {
	receiverID, err := s.parseID(c, "receiverId")
	if err != nil {
		return nil
	}

	receiver, err := s.messageService.Recipient(c.UserContext(), currentUserID(c), receiverID)
	if err != nil {
		if msg, ok := selfAddressed(err); ok {
			return redirectWithFlash(c, messageBoxPath, msg)
		}
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"receiver": receiver,
		"form":     messageForm{},
	})
}

// SendMessage handles POST /accounts/messages/send/:receiverId/
func (s *Server) SendMessage(c *fiber.Ctx) error {
	receiverID, err := s.parseID(c, "receiverId")
	if err != nil {
		return nil
	}

	var form messageForm
	if err := bindForm(c, &form); err != nil {
		return respondError(c, err)
	}

	_, err = s.messageService.Send(c.UserContext(), service.SendMessageInput{
		SenderID:   currentUserID(c),
		ReceiverID: receiverID,
		Title:      form.Title,
		Content:    form.Content,
	})
	if err != nil {
		if msg, ok := selfAddressed(err); ok {
			return redirectWithFlash(c, messageBoxPath, msg)
		}
		return respondForm(c, err, form)
	}
	return redirectWithFlash(c, messageBoxPath, "Your message has been sent.")
}

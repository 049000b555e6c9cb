package service

import (
	"context"
	"strings"
	"time"

	"bbs/internal/models"
	"bbs/internal/observability"
	"bbs/internal/repository"
	"bbs/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// MessageBoxLimit caps how many messages each side of the box lists.
const MessageBoxLimit = 100

type MessageService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	now         func() time.Time
}

type SendMessageInput struct {
	SenderID   uint
	ReceiverID uint
	Title      string
	Content    string
}

// MessageBox is everything the message list page shows.
type MessageBox struct {
	Received    []models.Message `json:"received_messages"`
	Sent        []models.Message `json:"sent_messages"`
	UnreadCount int64            `json:"unread_count"`
}

func NewMessageService(messageRepo repository.MessageRepository, userRepo repository.UserRepository) *MessageService {
	return &MessageService{messageRepo: messageRepo, userRepo: userRepo, now: time.Now}
}

func (s *MessageService) Box(ctx context.Context, userID uint) (*MessageBox, error) {
	received, err := s.messageRepo.List(ctx, userID, repository.Inbox, MessageBoxLimit, 0)
	if err != nil {
		return nil, err
	}
	sent, err := s.messageRepo.List(ctx, userID, repository.Outbox, MessageBoxLimit, 0)
	if err != nil {
		return nil, err
	}
	unread, err := s.messageRepo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &MessageBox{Received: received, Sent: sent, UnreadCount: unread}, nil
}

// OpenMessage shows a message to one of its two participants. The
// receiver's first open stamps read_at; later opens leave it unchanged.
func (s *MessageService) OpenMessage(ctx context.Context, messageID, userID uint) (*models.Message, error) {
	span, ctx := observability.NewSpan(ctx, "MessageService.OpenMessage",
		attribute.Int64("message.id", int64(messageID)))
	defer span.End()

	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if !msg.IsParticipant(userID) {
		return nil, permissionDenied("message", "You cannot read this message.")
	}

	if userID == msg.ReceiverID && msg.ReadAt == nil {
		at := s.now()
		stamped, err := s.messageRepo.MarkRead(ctx, msg.ID, at)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		if stamped {
			msg.ReadAt = &at
		} else {
			// Another request stamped it first.
			if msg, err = s.messageRepo.GetByID(ctx, messageID); err != nil {
				return nil, err
			}
		}
	}
	return msg, nil
}

// Recipient resolves who a new message is addressed to. Addressing yourself
// is refused.
func (s *MessageService) Recipient(ctx context.Context, senderID, receiverID uint) (*models.User, error) {
	receiver, err := s.userRepo.GetByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if receiver.ID == senderID {
		return nil, models.NewValidationError("You cannot send a message to yourself")
	}
	return receiver, nil
}

func (s *MessageService) Send(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	if _, err := s.Recipient(ctx, in.SenderID, in.ReceiverID); err != nil {
		return nil, err
	}

	fields := validation.FieldErrors{}
	fields.Required("title", in.Title)
	fields.MaxLen("title", in.Title, validation.MaxTitleLen)
	fields.Required("content", in.Content)
	fields.MaxLen("content", in.Content, validation.MaxContentLen)
	if !fields.Empty() {
		return nil, models.NewFieldValidationError(fields)
	}

	msg := &models.Message{
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Title:      strings.TrimSpace(in.Title),
		Content:    in.Content,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}
	observability.MessagesSent.Inc()
	return msg, nil
}

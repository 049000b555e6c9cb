package repository

import (
	"context"
	"time"

	"bbs/internal/models"
	"bbs/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Mailbox selects one side of a user's message box.
type Mailbox int

const (
	Inbox Mailbox = iota
	Outbox
)

// MessageRepository defines persistence operations for private messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	MarkRead(ctx context.Context, id uint, at time.Time) (bool, error)
	List(ctx context.Context, userID uint, box Mailbox, limit, offset int) ([]models.Message, error)
	Count(ctx context.Context, userID uint, box Mailbox) (int64, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
}

type messageRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewMessageRepository returns a new MessageRepository implementation.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db, log: observability.NewRepoLogger("messages")}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(msg).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return translateError(err, "Message", msg.ID)
	}
	r.log.LogCreate(ctx, map[string]any{"message_id": msg.ID})
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	if err := r.db.WithContext(ctx).Preload("Sender").Preload("Receiver").First(&msg, id).Error; err != nil {
		return nil, translateError(err, "Message", id)
	}
	return &msg, nil
}

// MarkRead stamps read_at only while it is still unset. It reports whether
// this call was the one that stamped it.
func (r *messageRepository) MarkRead(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND read_at IS NULL", id).
		UpdateColumn("read_at", at)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *messageRepository) scope(db *gorm.DB, userID uint, box Mailbox) *gorm.DB {
	if box == Outbox {
		return db.Where("sender_id = ?", userID)
	}
	return db.Where("receiver_id = ?", userID)
}

// List returns one mailbox, newest first.
func (r *messageRepository) List(ctx context.Context, userID uint, box Mailbox, limit, offset int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.scope(r.db.WithContext(ctx), userID, box).
		Preload("Sender").
		Preload("Receiver").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&msgs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

func (r *messageRepository) Count(ctx context.Context, userID uint, box Mailbox) (int64, error) {
	var total int64
	if err := r.scope(r.db.WithContext(ctx).Model(&models.Message{}), userID, box).Count(&total).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return total, nil
}

func (r *messageRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND read_at IS NULL", userID).
		Count(&total).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return total, nil
}

package repository

import (
	"context"

	"bbs/internal/cache"
	"bbs/internal/models"
	"bbs/internal/observability"

	"gorm.io/gorm"
)

// BoardRepository defines persistence operations for boards.
type BoardRepository interface {
	List(ctx context.Context) ([]models.Board, error)
	GetByCode(ctx context.Context, code string) (*models.Board, error)
	Create(ctx context.Context, board *models.Board) error
	Update(ctx context.Context, board *models.Board) error
	Delete(ctx context.Context, id uint) error
}

type boardRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewBoardRepository returns a new BoardRepository implementation.
func NewBoardRepository(db *gorm.DB) BoardRepository {
	return &boardRepository{db: db, log: observability.NewRepoLogger("boards")}
}

func (r *boardRepository) List(ctx context.Context) ([]models.Board, error) {
	return cache.Aside(ctx, cache.BoardListKey, cache.BoardTTL, func(ctx context.Context) ([]models.Board, error) {
		defer observability.TrackQuery("list", "boards")()
		var boards []models.Board
		if err := readDB(r.db).WithContext(ctx).Order("id ASC").Find(&boards).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
		return boards, nil
	})
}

func (r *boardRepository) GetByCode(ctx context.Context, code string) (*models.Board, error) {
	board, err := cache.Aside(ctx, cache.BoardKey(code), cache.BoardTTL, func(ctx context.Context) (models.Board, error) {
		var b models.Board
		err := readDB(r.db).WithContext(ctx).Where("code = ?", code).First(&b).Error
		return b, translateError(err, "Board", code)
	})
	if err != nil {
		return nil, err
	}
	return &board, nil
}

func (r *boardRepository) Create(ctx context.Context, board *models.Board) error {
	if err := r.db.WithContext(ctx).Create(board).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return translateError(err, "Board", board.Code)
	}
	cache.Invalidate(ctx, cache.BoardListKey)
	r.log.LogCreate(ctx, map[string]any{"board_id": board.ID, "code": board.Code})
	return nil
}

func (r *boardRepository) Update(ctx context.Context, board *models.Board) error {
	var stored models.Board
	if err := r.db.WithContext(ctx).Select("id", "code").First(&stored, board.ID).Error; err != nil {
		return translateError(err, "Board", board.ID)
	}
	// code is never written; the stored value wins.
	board.Code = stored.Code
	if err := r.db.WithContext(ctx).Model(board).Select("title", "description").Updates(board).Error; err != nil {
		r.log.LogError(ctx, err, "update")
		return translateError(err, "Board", board.Code)
	}
	cache.InvalidateBoard(ctx, board.Code)
	r.log.LogUpdate(ctx, map[string]any{"board_id": board.ID})
	return nil
}

// Delete removes the board together with its posts and their comments and likes.
func (r *boardRepository) Delete(ctx context.Context, id uint) error {
	var board models.Board
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id", "code").First(&board, id).Error; err != nil {
			return err
		}
		postIDs := func() *gorm.DB {
			return tx.Model(&models.Post{}).Select("id").Where("board_id = ?", id)
		}
		if err := tx.Where("post_id IN (?)", postIDs()).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id IN (?)", postIDs()).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("board_id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Board{}, id).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return translateError(err, "Board", id)
	}

	cache.InvalidateBoard(ctx, board.Code)
	r.log.LogDelete(ctx, map[string]any{"board_id": id, "code": board.Code})
	return nil
}

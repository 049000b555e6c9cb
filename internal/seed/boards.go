package seed

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"bbs/internal/models"
	"bbs/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BoardSpec is one entry of the default board directory.
type BoardSpec struct {
	Code        string `yaml:"code"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type boardsFile struct {
	Boards []BoardSpec `yaml:"boards"`
}

// BuiltInBoards is used when no boards file is present.
var BuiltInBoards = []BoardSpec{
	{Code: "notice", Title: "Notice", Description: "Announcements from the board managers."},
	{Code: "free", Title: "Free Board", Description: "Talk about anything."},
	{Code: "qna", Title: "Q&A", Description: "Ask questions and help others."},
}

// LoadBoards reads a YAML board directory. A missing file yields BuiltInBoards.
func LoadBoards(path string) ([]BoardSpec, error) {
	if strings.TrimSpace(path) == "" {
		return BuiltInBoards, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return BuiltInBoards, nil
		}
		return nil, fmt.Errorf("read boards file: %w", err)
	}
	return ParseBoards(raw)
}

// ParseBoards decodes and validates a YAML board directory.
func ParseBoards(raw []byte) ([]BoardSpec, error) {
	var doc boardsFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse boards file: %w", err)
	}

	seen := make(map[string]bool, len(doc.Boards))
	for i := range doc.Boards {
		b := &doc.Boards[i]
		b.Code = strings.ToLower(strings.TrimSpace(b.Code))
		b.Title = strings.TrimSpace(b.Title)
		b.Description = strings.TrimSpace(b.Description)

		if err := validation.ValidateBoardCode(b.Code); err != nil {
			return nil, fmt.Errorf("board %d (%q): %w", i, b.Code, err)
		}
		if b.Title == "" || len([]rune(b.Title)) > validation.MaxBoardTitleLen {
			return nil, fmt.Errorf("board %q: title must be 1-%d characters", b.Code, validation.MaxBoardTitleLen)
		}
		if len([]rune(b.Description)) > validation.MaxDescriptionLen {
			return nil, fmt.Errorf("board %q: description exceeds %d characters", b.Code, validation.MaxDescriptionLen)
		}
		if seen[b.Code] {
			return nil, fmt.Errorf("board %q listed twice", b.Code)
		}
		seen[b.Code] = true
	}
	return doc.Boards, nil
}

// Boards upserts the given boards by code. Running it twice leaves one row per code.
func Boards(db *gorm.DB, specs []BoardSpec) error {
	for _, item := range specs {
		board := models.Board{
			Code:        item.Code,
			Title:       item.Title,
			Description: item.Description,
		}
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description", "updated_at"}),
		}).Create(&board).Error; err != nil {
			return fmt.Errorf("seed board %s: %w", item.Code, err)
		}
	}
	return nil
}

package database

import "bbs/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Board{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.Message{},
	}
}

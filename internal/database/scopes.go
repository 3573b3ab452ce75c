package database

import (
	"gorm.io/gorm"

	"github.com/eproba/eproba-api/internal/utils"
)

// Alive filters out soft-deleted worksheets still inside the retention
// window
func Alive(db *gorm.DB) *gorm.DB {
	return db.Where("worksheets.deleted = ?", false)
}

// Paginate applies pagination to a GORM query
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}

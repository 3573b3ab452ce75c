package database

import (
	"fmt"

	"gorm.io/gorm"
)

// AddIndexes adds performance-critical indexes to the database
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Worksheet indexes for scope listings and the retention sweep
		{"worksheets", "idx_worksheets_user_id", "user_id"},
		{"worksheets", "idx_worksheets_supervisor_id", "supervisor_id"},
		{"worksheets", "idx_worksheets_deleted_updated_at", "deleted, updated_at"},
		{"worksheets", "idx_worksheets_is_archived", "is_archived"},

		// Task indexes for review queues and statistics windows
		{"tasks", "idx_tasks_worksheet_id", "worksheet_id"},
		{"tasks", "idx_tasks_status_approver_id", "status, approver_id"},
		{"tasks", "idx_tasks_approval_date", "approval_date"},

		// User indexes for team-scoped queries
		{"users", "idx_users_patrol_id", "patrol_id"},
		{"users", "idx_users_function", "function"},

		{"patrols", "idx_patrols_team_id", "team_id"},
		{"devices", "idx_devices_user_id", "user_id"},
		{"access_tokens", "idx_access_tokens_user_id", "user_id"},
	}

	for _, idx := range indexes {
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM pg_indexes
			WHERE tablename = ? AND indexname = ?
		`, idx.table, idx.name).Count(&count).Error

		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if count > 0 {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}

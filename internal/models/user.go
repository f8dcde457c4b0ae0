package models

import (
	"database/sql"

	"dispatchtrack/internal/constants"
)

// User - пользователь системы.
type User struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Role        constants.Role `json:"role"`
	CompanyName NullString     `json:"company_name"` // для поставщиков
	IsBlocked   bool           `json:"is_blocked"`
	BlockReason sql.NullString `json:"-"`
}

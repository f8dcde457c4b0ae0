package models

import (
	"fmt"
	"time"

	"dispatchtrack/internal/constants"
)

// StatusHistoryEntry - строка журнала смены статусов. Только добавление.
type StatusHistoryEntry struct {
	ID           int64          `json:"id"`
	TaskID       string         `json:"task_id"`
	StatusChange string         `json:"status_change"`
	Operator     string         `json:"operator"`
	OperatorID   int64          `json:"operator_id"`
	OperatorRole constants.Role `json:"operator_role"`
	Note         string         `json:"note"`
	CreatedAt    time.Time      `json:"created_at"`
}

// FormatStatusChange - "old→new".
func FormatStatusChange(from, to constants.Status) string {
	return fmt.Sprintf("%s→%s", from, to)
}

package db

import (
	"context"
	"database/sql"
	"fmt"

	"dispatchtrack/internal/constants"
	"dispatchtrack/internal/models"
)

// appendHistory добавляет строку журнала и заполняет entry.ID.
func appendHistory(ctx context.Context, q queryer, e *models.StatusHistoryEntry) error {
	err := q.QueryRowContext(ctx, `
        INSERT INTO dispatch_status_history (task_id, status_change, operator, operator_id, operator_role, note, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		e.TaskID, e.StatusChange, e.Operator, e.OperatorID, nullIfEmpty(string(e.OperatorRole)), e.Note, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return translateError(err)
	}
	return nil
}

// listHistory - журнал задачи, новые записи первыми.
func listHistory(ctx context.Context, q queryer, taskID string) ([]models.StatusHistoryEntry, error) {
	rows, err := q.QueryContext(ctx, `
        SELECT id, task_id, status_change, operator, COALESCE(operator_id, 0), operator_role, COALESCE(note, ''), created_at
        FROM dispatch_status_history
        WHERE task_id = $1
        ORDER BY created_at DESC, id DESC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("listHistory: ошибка выборки журнала задачи %s: %w", taskID, translateError(err))
	}
	defer rows.Close()

	entries := []models.StatusHistoryEntry{}
	for rows.Next() {
		var (
			e    models.StatusHistoryEntry
			role sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.TaskID, &e.StatusChange, &e.Operator, &e.OperatorID, &role, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("listHistory: ошибка сканирования строки: %w", err)
		}
		e.OperatorRole = constants.Role(role.String)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

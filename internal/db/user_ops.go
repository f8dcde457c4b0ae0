package db

import (
	"context"

	"dispatchtrack/internal/apperr"
	"dispatchtrack/internal/dispatch"
	"dispatchtrack/internal/models"
)

// getUser извлекает пользователя по id. Роль и имя используются как актор операций.
func getUser(ctx context.Context, q queryer, userID int64) (*models.User, error) {
	var u models.User
	err := q.QueryRowContext(ctx, `
        SELECT id, name, role, company_name, COALESCE(is_blocked, FALSE), block_reason
        FROM users WHERE id = $1`, userID).Scan(
		&u.ID, &u.Name, &u.Role, &u.CompanyName, &u.IsBlocked, &u.BlockReason,
	)
	if err != nil {
		return nil, notFoundOr(err, apperr.NotFound(dispatch.MsgUserNotFound).WithField("user_id"))
	}
	return &u, nil
}

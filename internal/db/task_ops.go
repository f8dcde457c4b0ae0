package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"dispatchtrack/internal/constants"
	"dispatchtrack/internal/dispatch"
	"dispatchtrack/internal/models"
)

const taskColumns = `task_id, dispatch_track, requirement_type, transport_type, start_location,
        end_location, carrier_company, weight, volume, required_time, remarks,
        initiator_user_id, initiator_role, status, current_handler_role, current_handler_user_id,
        assigned_supplier_id, audit_required, audit_status, auditor_role, auditor_user_id,
        audit_time, audit_note, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// scanTask читает строку в порядке taskColumns.
func scanTask(row rowScanner) (*models.DispatchTask, error) {
	var (
		t                                     models.DispatchTask
		handlerRole, auditStatus, auditorRole sql.NullString
	)
	err := row.Scan(
		&t.TaskID, &t.Track, &t.RequirementType, &t.TransportType, &t.StartLocation,
		&t.EndLocation, &t.CarrierCompany, &t.Weight, &t.Volume, &t.RequiredTime, &t.Remarks,
		&t.InitiatorUserID, &t.InitiatorRole, &t.Status, &handlerRole, &t.CurrentHandlerUserID,
		&t.AssignedSupplierID, &t.AuditRequired, &auditStatus, &auditorRole, &t.AuditorUserID,
		&t.AuditTime, &t.AuditNote, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.CurrentHandlerRole = constants.Role(handlerRole.String)
	t.AuditStatus = constants.AuditStatus(auditStatus.String)
	t.AuditorRole = constants.Role(auditorRole.String)
	return &t, nil
}

func getTask(ctx context.Context, q queryer, taskID string) (*models.DispatchTask, error) {
	row := q.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM dispatch_tasks WHERE task_id = $1", taskID)
	t, err := scanTask(row)
	if err != nil {
		return nil, notFoundOr(err, dispatch.ErrTaskNotFound())
	}
	return t, nil
}

func countTasksWithPrefix(ctx context.Context, q queryer, prefix string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM dispatch_tasks WHERE task_id LIKE $1", prefix+"%").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("countTasksWithPrefix: %w", translateError(err))
	}
	return n, nil
}

func insertTask(ctx context.Context, q queryer, t *models.DispatchTask) error {
	_, err := q.ExecContext(ctx, `
        INSERT INTO dispatch_tasks (`+taskColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`,
		t.TaskID, t.Track, t.RequirementType, t.TransportType, t.StartLocation,
		t.EndLocation, t.CarrierCompany, t.Weight, t.Volume, t.RequiredTime, t.Remarks,
		t.InitiatorUserID, t.InitiatorRole, t.Status, nullIfEmpty(string(t.CurrentHandlerRole)), t.CurrentHandlerUserID,
		t.AssignedSupplierID, t.AuditRequired, nullIfEmpty(string(t.AuditStatus)), nullIfEmpty(string(t.AuditorRole)), t.AuditorUserID,
		t.AuditTime, t.AuditNote, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return translateError(err)
	}
	return nil
}

// updateTaskCAS записывает изменяемые поля, если status и updated_at не изменились
// с момента чтения. Второй писатель ждёт блокировку строки, после чего условие
// WHERE перепроверяется по новой версии и не находит строку.
func updateTaskCAS(ctx context.Context, q queryer, t *models.DispatchTask, prev dispatch.Snapshot) error {
	res, err := q.ExecContext(ctx, `
        UPDATE dispatch_tasks SET
            status = $1, current_handler_role = $2, current_handler_user_id = $3,
            assigned_supplier_id = $4, audit_status = $5, auditor_role = $6,
            auditor_user_id = $7, audit_time = $8, audit_note = $9, updated_at = $10
        WHERE task_id = $11 AND status = $12 AND updated_at = $13`,
		t.Status, nullIfEmpty(string(t.CurrentHandlerRole)), t.CurrentHandlerUserID,
		t.AssignedSupplierID, nullIfEmpty(string(t.AuditStatus)), nullIfEmpty(string(t.AuditorRole)),
		t.AuditorUserID, t.AuditTime, t.AuditNote, t.UpdatedAt,
		t.TaskID, prev.Status, prev.UpdatedAt,
	)
	if err != nil {
		return translateError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updateTaskCAS: ошибка получения количества строк: %w", err)
	}
	if n == 0 {
		return dispatch.ErrStaleTask()
	}
	return nil
}

func listTasks(ctx context.Context, q queryer, f dispatch.TaskFilter) ([]models.DispatchTask, int, error) {
	var (
		conds []string
		args  []any
	)
	add := func(col string, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("status", string(f.Status))
	add("dispatch_track", string(f.Track))
	add("current_handler_role", string(f.HandlerRole))

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM dispatch_tasks"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("listTasks: ошибка подсчёта задач: %w", translateError(err))
	}

	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf("SELECT %s FROM dispatch_tasks%s ORDER BY created_at DESC, task_id DESC LIMIT $%d OFFSET $%d",
		taskColumns, where, len(args)-1, len(args))
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listTasks: ошибка выборки задач: %w", translateError(err))
	}
	defer rows.Close()

	tasks := []models.DispatchTask{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("listTasks: ошибка сканирования задачи: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("listTasks: %w", err)
	}
	return tasks, total, nil
}

package db

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"dispatchtrack/internal/apperr"
	"dispatchtrack/internal/dispatch"
)

// Коды ошибок PostgreSQL, которые переводятся в Conflict.
const (
	pqUniqueViolation      = "23505"
	pqCheckViolation       = "23514"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
)

// constraintFields - уникальные ограничения и поля, о которых сообщаем клиенту.
var constraintFields = map[string]string{
	"vehicles_task_id_key":         "task_id",
	"vehicles_manifest_number_key": "manifest_number",
	"vehicles_dispatch_number_key": "dispatch_number",
}

// translateError переводит ошибки драйвера в типизированные ошибки. Прочие
// ошибки возвращаются как есть.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case pqUniqueViolation:
		if field, ok := constraintFields[pqErr.Constraint]; ok {
			return dispatch.ErrVehicleConflict(field)
		}
		if pqErr.Constraint == "dispatch_tasks_pkey" {
			return dispatch.ErrTaskIDTaken()
		}
		return apperr.Wrap(apperr.KindConflict, "数据已存在", err)
	case pqCheckViolation:
		return apperr.Wrap(apperr.KindValidation, "数据不符合约束", err)
	case pqSerializationFailure, pqDeadlockDetected, pqLockNotAvailable:
		return apperr.Wrap(apperr.KindConflict, dispatch.MsgStoreBusy, err)
	}
	return err
}

// notFoundOr возвращает notFound для sql.ErrNoRows, иначе переведённую ошибку.
func notFoundOr(err error, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return translateError(err)
}

package db

import (
	"context"
	"fmt"

	"dispatchtrack/internal/apperr"
	"dispatchtrack/internal/dispatch"
	"dispatchtrack/internal/models"
)

func vehicleExists(ctx context.Context, q queryer, taskID string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM vehicles WHERE task_id = $1)", taskID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("vehicleExists: %w", translateError(err))
	}
	return exists, nil
}

// insertVehicle полагается на уникальные ограничения таблицы: нарушение
// переводится в Conflict с именем поля.
func insertVehicle(ctx context.Context, q queryer, v *models.Vehicle) error {
	_, err := q.ExecContext(ctx, `
        INSERT INTO vehicles (id, task_id, manifest_number, manifest_serial, dispatch_number,
            license_plate, carriage_number, volume, supplier_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		v.ID, v.TaskID, v.ManifestNumber, v.ManifestSerial, v.DispatchNumber,
		v.LicensePlate, v.CarriageNumber, v.Volume, v.SupplierID, v.CreatedAt,
	)
	return translateError(err)
}

func getVehicle(ctx context.Context, q queryer, taskID string) (*models.Vehicle, error) {
	var v models.Vehicle
	err := q.QueryRowContext(ctx, `
        SELECT id, task_id, manifest_number, manifest_serial, dispatch_number,
               license_plate, carriage_number, volume, supplier_id, created_at
        FROM vehicles WHERE task_id = $1`, taskID).Scan(
		&v.ID, &v.TaskID, &v.ManifestNumber, &v.ManifestSerial, &v.DispatchNumber,
		&v.LicensePlate, &v.CarriageNumber, &v.Volume, &v.SupplierID, &v.CreatedAt,
	)
	if err != nil {
		return nil, notFoundOr(err, apperr.NotFound(dispatch.MsgVehicleNotFound).WithField("task_id"))
	}
	return &v, nil
}

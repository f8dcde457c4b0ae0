package dispatch

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"dispatchtrack/internal/apperr"
	"dispatchtrack/internal/constants"
	"dispatchtrack/internal/models"
)

// MsgVehicleExists - повторная отправка данных машины по задаче.
const MsgVehicleExists = "该任务已存在车辆信息"

// VehicleInput - данные машины и путевого листа от поставщика.
type VehicleInput struct {
	ManifestNumber string   `json:"manifest_number" validate:"required,min=5,max=20"`
	ManifestSerial string   `json:"manifest_serial" validate:"omitempty,min=5,max=20"`
	DispatchNumber string   `json:"dispatch_number" validate:"required,min=5,max=20"`
	LicensePlate   string   `json:"license_plate" validate:"required,license_plate"`
	CarriageNumber string   `json:"carriage_number" validate:"max=20"`
	Volume         *float64 `json:"volume" validate:"omitempty,finite,gt=0"`
}

func (in *VehicleInput) normalize() {
	in.ManifestNumber = strings.TrimSpace(in.ManifestNumber)
	in.ManifestSerial = strings.TrimSpace(in.ManifestSerial)
	in.DispatchNumber = strings.TrimSpace(in.DispatchNumber)
	in.LicensePlate = strings.ToUpper(strings.TrimSpace(in.LicensePlate))
	in.CarriageNumber = strings.TrimSpace(in.CarriageNumber)
}

// ConfirmSupplierResponse - отклик поставщика на задачу, не более одного раза.
// Данные машины необязательны. Запись машины и смена статуса выполняются
// в одной транзакции: при любой ошибке не сохраняется ни то, ни другое.
func (s *Service) ConfirmSupplierResponse(ctx context.Context, taskID string, actor Actor, vehicle *VehicleInput, note string) (*models.DispatchTask, error) {
	if err := checkNote("note", note, constants.MaxStatusNoteLen); err != nil {
		return nil, err
	}
	if vehicle != nil {
		v := *vehicle
		v.normalize()
		if err := validateStruct(&v); err != nil {
			return nil, err
		}
		vehicle = &v
	}

	return s.run(ctx, actor, func(tx Tx) (*change, error) {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if actor.Role != constants.ROLE_SUPPLIER {
			return nil, apperr.PermissionDenied("只有供应商可以响应任务")
		}
		// Повторная отправка распознаётся по уже записанной машине,
		// даже если статус задачи успел уйти дальше.
		exists, err := tx.VehicleExists(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperr.Conflict(MsgVehicleExists).WithField("task_id")
		}
		if task.Status != constants.STATUS_PENDING_SUPPLIER_RESPONSE {
			return nil, apperr.InvalidState("任务当前状态不允许供应商响应")
		}
		if err := authorize(task, actor, constants.STATUS_SUPPLIER_RESPONDED); err != nil {
			return nil, err
		}

		if vehicle != nil {
			v := &models.Vehicle{
				ID:             uuid.NewString(),
				TaskID:         taskID,
				ManifestNumber: vehicle.ManifestNumber,
				ManifestSerial: models.NewNullString(vehicle.ManifestSerial),
				DispatchNumber: vehicle.DispatchNumber,
				LicensePlate:   vehicle.LicensePlate,
				CarriageNumber: models.NewNullString(vehicle.CarriageNumber),
				SupplierID:     actor.ID,
				CreatedAt:      s.timestamp(),
			}
			if vehicle.Volume != nil {
				v.Volume = models.NewNullFloat64(*vehicle.Volume)
			}
			if err := tx.InsertVehicle(ctx, v); err != nil {
				return nil, err
			}
		}

		return s.apply(ctx, tx, task, actor, constants.STATUS_SUPPLIER_RESPONDED, note, nil)
	})
}

package dispatch

import "dispatchtrack/internal/apperr"

// Сообщения, общие для реализаций Store.
const (
	MsgTaskNotFound        = "任务不存在"
	MsgVehicleNotFound     = "车辆信息不存在"
	MsgUserNotFound        = "用户不存在"
	MsgStaleTask           = "任务已被其他操作更新，请刷新后重试"
	MsgTaskIDTaken         = "任务编号已存在，请重试"
	MsgManifestTaken       = "路单流水号已存在"
	MsgDispatchNumberTaken = "派车单号已存在"
	MsgStoreBusy           = "数据正被其他操作占用，请稍后重试"
	MsgUseConfirm          = "供应商响应请通过确认接口提交"
)

func ErrTaskNotFound() error { return apperr.NotFound(MsgTaskNotFound).WithField("task_id") }

func ErrStaleTask() error { return apperr.Conflict(MsgStaleTask).WithField("status") }

func ErrTaskIDTaken() error { return apperr.Conflict(MsgTaskIDTaken).WithField("task_id") }

// ErrVehicleConflict - нарушение уникальности в таблице машин по полю field.
func ErrVehicleConflict(field string) error {
	switch field {
	case "manifest_number":
		return apperr.Conflict(MsgManifestTaken).WithField(field)
	case "dispatch_number":
		return apperr.Conflict(MsgDispatchNumberTaken).WithField(field)
	}
	return apperr.Conflict(MsgVehicleExists).WithField("task_id")
}

package models

import (
	"time"

	"dispatchtrack/internal/constants"
)

// DispatchTask - заявка на подачу транспорта.
type DispatchTask struct {
	TaskID string          `json:"task_id"`
	Track  constants.Track `json:"dispatch_track"`

	RequirementType string     `json:"requirement_type"`
	TransportType   string     `json:"transport_type"`
	StartLocation   string     `json:"start_location"`
	EndLocation     string     `json:"end_location"`
	CarrierCompany  string     `json:"carrier_company"`
	Weight          string     `json:"weight"`
	Volume          float64    `json:"volume"`
	RequiredTime    time.Time  `json:"required_time"`
	Remarks         NullString `json:"remarks"`

	InitiatorUserID int64          `json:"initiator_user_id"`
	InitiatorRole   constants.Role `json:"initiator_role"`

	Status               constants.Status `json:"status"`
	CurrentHandlerRole   constants.Role   `json:"current_handler_role,omitempty"` // пусто для завершённых задач
	CurrentHandlerUserID NullInt64        `json:"current_handler_user_id"`
	AssignedSupplierID   NullInt64        `json:"assigned_supplier_id"`

	AuditRequired bool                  `json:"audit_required"`
	AuditStatus   constants.AuditStatus `json:"audit_status,omitempty"`
	AuditorRole   constants.Role        `json:"auditor_role,omitempty"`
	AuditorUserID NullInt64             `json:"auditor_user_id"`
	AuditTime     NullTime              `json:"audit_time"`
	AuditNote     NullString            `json:"audit_note"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasHandler - есть ли роль, от которой ожидается следующее действие.
func (t *DispatchTask) HasHandler() bool {
	return t.CurrentHandlerRole != ""
}

// Clone возвращает независимую копию (все поля - значения).
func (t *DispatchTask) Clone() *DispatchTask {
	c := *t
	return &c
}

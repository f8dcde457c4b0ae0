package dispatch

import (
	"context"
	"fmt"
	"strings"

	"dispatchtrack/internal/apperr"
	"dispatchtrack/internal/constants"
	"dispatchtrack/internal/models"
)

// TaskInput - поля новой задачи.
type TaskInput struct {
	RequirementType string  `json:"requirement_type" validate:"required,oneof=正班 加班"`
	TransportType   string  `json:"transport_type" validate:"required,oneof=单程 往返"`
	StartLocation   string  `json:"start_location" validate:"required,max=100"`
	EndLocation     string  `json:"end_location" validate:"required,max=100"`
	CarrierCompany  string  `json:"carrier_company" validate:"required,max=100"`
	Weight          string  `json:"weight" validate:"required,oneof=5 8 12 20 30 40A 40B"`
	Volume          float64 `json:"volume" validate:"finite,gt=0"`
	RequiredTime    string  `json:"required_time" validate:"required,dispatch_time"`
	Remarks         string  `json:"remarks" validate:"max=500"`
}

func (in *TaskInput) normalize() {
	in.RequirementType = strings.TrimSpace(in.RequirementType)
	in.TransportType = strings.TrimSpace(in.TransportType)
	in.StartLocation = strings.TrimSpace(in.StartLocation)
	in.EndLocation = strings.TrimSpace(in.EndLocation)
	in.CarrierCompany = strings.TrimSpace(in.CarrierCompany)
	in.Weight = strings.ToUpper(strings.TrimSpace(in.Weight))
	in.RequiredTime = strings.TrimSpace(in.RequiredTime)
	in.Remarks = strings.TrimSpace(in.Remarks)
}

// entry - начальное состояние задачи.
type entry struct {
	track   constants.Track
	status  constants.Status
	handler constants.Role
}

// initialState - правило входа в машину состояний.
// Задача цехового диспетчера всегда идёт по маршруту A и сразу попадает на аудит.
func initialState(role constants.Role, requested constants.Track) (entry, error) {
	switch role {
	case constants.ROLE_WORKSHOP_DISPATCHER:
		return entry{constants.TRACK_A, constants.STATUS_PENDING_AUDIT, constants.ROLE_REGIONAL_DISPATCHER}, nil
	case constants.ROLE_REGIONAL_DISPATCHER, constants.ROLE_SUPER_ADMIN:
		if requested == constants.TRACK_B {
			return entry{constants.TRACK_B, constants.STATUS_PENDING_SUPPLIER_RESPONSE, constants.ROLE_SUPPLIER}, nil
		}
		return entry{constants.TRACK_A, constants.STATUS_PENDING_AUDIT, constants.ROLE_REGIONAL_DISPATCHER}, nil
	}
	return entry{}, errCreateDenied(role)
}

func canCreate(role constants.Role) bool {
	switch role {
	case constants.ROLE_WORKSHOP_DISPATCHER, constants.ROLE_REGIONAL_DISPATCHER, constants.ROLE_SUPER_ADMIN:
		return true
	}
	return false
}

func errCreateDenied(role constants.Role) error {
	return apperr.PermissionDenied(fmt.Sprintf("角色%s无权创建派车任务", role))
}

// TaskIDPrefix - "T" + YYYYMMDD.
func (s *Service) TaskIDPrefix() string {
	return "T" + s.now().Format("20060102")
}

// CreateTask создаёт задачу. trackRequest может быть пустым (маршрут A),
// для цехового диспетчера он игнорируется.
func (s *Service) CreateTask(ctx context.Context, actor Actor, trackRequest string, in TaskInput) (*models.DispatchTask, error) {
	// Право создавать проверяется раньше формата запроса.
	if !canCreate(actor.Role) {
		return nil, errCreateDenied(actor.Role)
	}
	var requested constants.Track
	if strings.TrimSpace(trackRequest) != "" && actor.Role != constants.ROLE_WORKSHOP_DISPATCHER {
		t, err := constants.ParseTrack(trackRequest)
		if err != nil {
			return nil, apperr.Validation("dispatch_track", "派车轨道必须是A或B")
		}
		requested = t
	}
	start, err := initialState(actor.Role, requested)
	if err != nil {
		return nil, err
	}

	in.normalize()
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	requiredAt, err := ParseRequiredTime(in.RequiredTime)
	if err != nil {
		return nil, apperr.Validation("required_time", err.Error())
	}

	now := s.timestamp()
	task := &models.DispatchTask{
		Track:              start.track,
		RequirementType:    in.RequirementType,
		TransportType:      in.TransportType,
		StartLocation:      in.StartLocation,
		EndLocation:        in.EndLocation,
		CarrierCompany:     in.CarrierCompany,
		Weight:             in.Weight,
		Volume:             in.Volume,
		RequiredTime:       requiredAt,
		Remarks:            models.NewNullString(in.Remarks),
		InitiatorUserID:    actor.ID,
		InitiatorRole:      actor.Role,
		Status:             start.status,
		CurrentHandlerRole: start.handler,
		AuditRequired:      start.track == constants.TRACK_A,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if start.handler == actor.Role {
		task.CurrentHandlerUserID = models.NewNullInt64(actor.ID)
	}
	if task.AuditRequired {
		task.AuditStatus = constants.AUDIT_STATUS_PENDING
	}

	prefix := s.TaskIDPrefix()
	return s.run(ctx, actor, func(tx Tx) (*change, error) {
		n, err := tx.CountTasksWithPrefix(ctx, prefix)
		if err != nil {
			return nil, err
		}
		task.TaskID = fmt.Sprintf("%s%03d", prefix, n+1)

		if err := tx.InsertTask(ctx, task); err != nil {
			return nil, err
		}
		h := &models.StatusHistoryEntry{
			TaskID:       task.TaskID,
			StatusChange: string(task.Status),
			Operator:     actor.DisplayName(),
			OperatorID:   actor.ID,
			OperatorRole: actor.Role,
			Note:         fmt.Sprintf("created track %s", strings.TrimPrefix(task.Track.Code(), "TRACK_")),
			CreatedAt:    now,
		}
		if err := tx.AppendHistory(ctx, h); err != nil {
			return nil, err
		}
		return &change{task: task.Clone(), entry: h}, nil
	})
}

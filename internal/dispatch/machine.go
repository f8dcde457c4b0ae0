package dispatch

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"dispatchtrack/internal/apperr"
	"dispatchtrack/internal/constants"
	"dispatchtrack/internal/models"
)

// change - результат одного применённого перехода внутри транзакции.
type change struct {
	task  *models.DispatchTask
	entry *models.StatusHistoryEntry
}

func checkNote(field, note string, max int) error {
	if utf8.RuneCountInString(note) > max {
		return apperr.Validation(field, fmt.Sprintf("备注不能超过%d字符", max))
	}
	return nil
}

// authorize проверяет переход по таблице правил: сначала статус, затем роль, затем цель.
func authorize(task *models.DispatchTask, actor Actor, target constants.Status) error {
	rule, ok := LookupRule(task.Track, task.Status)
	if !ok {
		return apperr.InvalidState(fmt.Sprintf("任务状态%s不允许变更", task.Status))
	}
	if !rule.AllowsRole(actor.Role) {
		return apperr.PermissionDenied(fmt.Sprintf("角色%s无权处理状态为%s的任务", actor.Role, task.Status))
	}
	if !rule.AllowsTarget(target) {
		return apperr.InvalidTransition(fmt.Sprintf("不允许从%s变更为%s", task.Status, target))
	}
	// После отклика задачу ведёт только назначенный поставщик.
	if actor.Role == constants.ROLE_SUPPLIER && task.AssignedSupplierID.Valid && task.AssignedSupplierID.Int64 != actor.ID {
		return apperr.PermissionDenied("任务已分配给其他供应商")
	}
	return nil
}

// apply переводит задачу в target и добавляет строку журнала в той же транзакции.
// mutate позволяет дописать поля (аудит) до записи.
func (s *Service) apply(ctx context.Context, tx Tx, task *models.DispatchTask, actor Actor, target constants.Status, note string, mutate func(*models.DispatchTask)) (*change, error) {
	prev := SnapshotOf(task)
	next := task.Clone()
	now := s.timestamp()

	next.Status = target
	next.CurrentHandlerRole = NextHandler(task.Track, target)
	next.CurrentHandlerUserID = models.NullInt64{}
	if next.HasHandler() && next.CurrentHandlerRole == actor.Role {
		next.CurrentHandlerUserID = models.NewNullInt64(actor.ID)
	}
	if target == constants.STATUS_SUPPLIER_RESPONDED && actor.Role == constants.ROLE_SUPPLIER {
		next.AssignedSupplierID = models.NewNullInt64(actor.ID)
	}
	if mutate != nil {
		mutate(next)
	}
	// updated_at строго растёт, даже если часы не сдвинулись
	if !now.After(prev.UpdatedAt) {
		now = prev.UpdatedAt.Add(time.Microsecond)
	}
	next.UpdatedAt = now

	if err := tx.UpdateTask(ctx, next, prev); err != nil {
		return nil, err
	}

	entry := &models.StatusHistoryEntry{
		TaskID:       task.TaskID,
		StatusChange: models.FormatStatusChange(prev.Status, target),
		Operator:     actor.DisplayName(),
		OperatorID:   actor.ID,
		OperatorRole: actor.Role,
		Note:         note,
		CreatedAt:    now,
	}
	if err := tx.AppendHistory(ctx, entry); err != nil {
		return nil, err
	}
	return &change{task: next, entry: entry}, nil
}

// run выполняет fn в транзакции и публикует событие после коммита.
func (s *Service) run(ctx context.Context, actor Actor, fn func(tx Tx) (*change, error)) (*models.DispatchTask, error) {
	var ch *change
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		ch, err = fn(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, ch.task, ch.entry, actor)
	return ch.task, nil
}

// Transition - общий путь смены статуса. Выход из PENDING_AUDIT проходит
// через семантику аудита: PENDING_SUPPLIER_RESPONSE - одобрение, CANCELLED - отказ.
// Переход в SUPPLIER_RESPONDED здесь запрещён.
func (s *Service) Transition(ctx context.Context, taskID string, actor Actor, target constants.Status, note string) (*models.DispatchTask, error) {
	if !target.Valid() {
		return nil, apperr.Validation("status", fmt.Sprintf("无效的状态: %s", target))
	}
	if err := checkNote("note", note, constants.MaxStatusNoteLen); err != nil {
		return nil, err
	}

	return s.run(ctx, actor, func(tx Tx) (*change, error) {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if err := authorize(task, actor, target); err != nil {
			return nil, err
		}
		// Отклик поставщика идёт только через ConfirmSupplierResponse,
		// иначе данные машины к задаче уже не прикрепить.
		if target == constants.STATUS_SUPPLIER_RESPONDED {
			return nil, apperr.InvalidTransition(MsgUseConfirm).WithField("status")
		}
		if task.Status == constants.STATUS_PENDING_AUDIT {
			result := constants.AUDIT_APPROVE
			if target == constants.STATUS_CANCELLED {
				result = constants.AUDIT_REJECT
			}
			return s.applyAudit(ctx, tx, task, actor, result, note)
		}
		return s.apply(ctx, tx, task, actor, target, note, nil)
	})
}

// SubmitForAudit переводит задачу маршрута A из PENDING_SUBMIT в PENDING_AUDIT.
// Отправить может только инициатор задачи.
func (s *Service) SubmitForAudit(ctx context.Context, taskID string, actor Actor, note string) (*models.DispatchTask, error) {
	if err := checkNote("note", note, constants.MaxStatusNoteLen); err != nil {
		return nil, err
	}
	if note == "" {
		note = constants.HistoryNoteSubmit
	}

	return s.run(ctx, actor, func(tx Tx) (*change, error) {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if task.Track != constants.TRACK_A {
			return nil, apperr.InvalidState("只有轨道A任务需要提交审核")
		}
		if task.Status != constants.STATUS_PENDING_SUBMIT {
			return nil, apperr.InvalidState(fmt.Sprintf("任务状态为%s，无法提交审核", task.Status))
		}
		if task.InitiatorUserID != actor.ID {
			return nil, apperr.PermissionDenied("只有任务发起人可以提交审核")
		}
		if err := authorize(task, actor, constants.STATUS_PENDING_AUDIT); err != nil {
			return nil, err
		}
		return s.apply(ctx, tx, task, actor, constants.STATUS_PENDING_AUDIT, note, func(t *models.DispatchTask) {
			t.AuditStatus = constants.AUDIT_STATUS_PENDING
		})
	})
}

// Audit - решение диспетчера по задаче маршрута A в статусе PENDING_AUDIT.
func (s *Service) Audit(ctx context.Context, taskID string, actor Actor, result constants.AuditResult, note string) (*models.DispatchTask, error) {
	if result != constants.AUDIT_APPROVE && result != constants.AUDIT_REJECT {
		return nil, apperr.Validation("audit_result", "审核结果必须是通过或拒绝")
	}
	if err := checkNote("audit_note", note, constants.MaxAuditNoteLen); err != nil {
		return nil, err
	}

	return s.run(ctx, actor, func(tx Tx) (*change, error) {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if task.Track != constants.TRACK_A {
			return nil, apperr.InvalidState("轨道B任务无需审核")
		}
		if task.Status != constants.STATUS_PENDING_AUDIT {
			return nil, apperr.InvalidState(fmt.Sprintf("任务状态为%s，无法审核", task.Status))
		}
		target := auditTarget(result)
		if err := authorize(task, actor, target); err != nil {
			return nil, err
		}
		return s.applyAudit(ctx, tx, task, actor, result, note)
	})
}

func auditTarget(result constants.AuditResult) constants.Status {
	if result == constants.AUDIT_REJECT {
		return constants.STATUS_CANCELLED
	}
	return constants.STATUS_PENDING_SUPPLIER_RESPONSE
}

// applyAudit записывает результат аудита в строку задачи вместе с переходом.
func (s *Service) applyAudit(ctx context.Context, tx Tx, task *models.DispatchTask, actor Actor, result constants.AuditResult, note string) (*change, error) {
	if err := checkNote("audit_note", note, constants.MaxAuditNoteLen); err != nil {
		return nil, err
	}
	auditedAt := s.timestamp()
	return s.apply(ctx, tx, task, actor, auditTarget(result), note, func(t *models.DispatchTask) {
		t.AuditStatus = constants.AUDIT_STATUS_APPROVED
		if result == constants.AUDIT_REJECT {
			t.AuditStatus = constants.AUDIT_STATUS_REJECTED
		}
		t.AuditorRole = actor.Role
		t.AuditorUserID = models.NewNullInt64(actor.ID)
		t.AuditTime = models.NewNullTime(auditedAt)
		t.AuditNote = models.NewNullString(note)
	})
}

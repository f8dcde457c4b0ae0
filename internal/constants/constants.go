package constants

import (
	"fmt"
	"strings"
)

// Status - статус задачи на подачу транспорта.
// Хранимые значения совпадают с метками в существующих данных.
type Status string

// Статусы задачи
const (
	STATUS_PENDING_SUBMIT            Status = "待提交"
	STATUS_PENDING_AUDIT             Status = "待调度员审核"
	STATUS_PENDING_SUPPLIER_RESPONSE Status = "待供应商响应"
	STATUS_SUPPLIER_RESPONDED        Status = "供应商已响应"
	STATUS_WORKSHOP_VERIFIED         Status = "车间已核查"
	STATUS_SUPPLIER_CONFIRMED        Status = "供应商已确认"
	STATUS_COMPLETED                 Status = "任务结束"
	STATUS_CANCELLED                 Status = "已取消"

	// Старая метка статуса аудита, встречается в ранних записях
	legacyPendingAuditLabel = "待区域调度员审核"
)

// Track - маршрут согласования задачи.
type Track string

const (
	TRACK_A Track = "轨道A" // с аудитом диспетчера
	TRACK_B Track = "轨道B" // без аудита
)

// Role - роль пользователя.
type Role string

const (
	ROLE_WORKSHOP_DISPATCHER Role = "车间地调"
	ROLE_REGIONAL_DISPATCHER Role = "区域调度员"
	ROLE_SUPER_ADMIN         Role = "超级管理员"
	ROLE_SUPPLIER            Role = "供应商"
	ROLE_ACCOUNTANT          Role = "对账人员"
)

// AuditStatus - результат аудита (только маршрут A).
type AuditStatus string

const (
	AUDIT_STATUS_PENDING  AuditStatus = "待审核"
	AUDIT_STATUS_APPROVED AuditStatus = "已通过"
	AUDIT_STATUS_REJECTED AuditStatus = "已拒绝"
)

// AuditResult - решение аудитора.
type AuditResult string

const (
	AUDIT_APPROVE AuditResult = "approve"
	AUDIT_REJECT  AuditResult = "reject"
)

// Типы перевозки и потребности
const (
	TRANSPORT_ONE_WAY    = "单程"
	TRANSPORT_ROUND_TRIP = "往返"

	REQUIREMENT_REGULAR  = "正班"
	REQUIREMENT_OVERTIME = "加班"
)

// WeightClasses - допустимые классы тоннажа.
var WeightClasses = []string{"5", "8", "12", "20", "30", "40A", "40B"}

// Форматы времени подачи
const (
	RequiredTimeLayout    = "2006-01-02T15:04"
	RequiredTimeAltLayout = "2006-01-02 15:04"
)

// Ограничения на длину заметок
const (
	MaxStatusNoteLen = 200
	MaxAuditNoteLen  = 500
	MaxRemarksLen    = 500
)

// HistoryNoteSubmit - заметка по умолчанию при отправке на аудит.
const HistoryNoteSubmit = "提交审核"

// AllStatuses перечисляет все статусы в порядке жизненного цикла.
var AllStatuses = []Status{
	STATUS_PENDING_SUBMIT,
	STATUS_PENDING_AUDIT,
	STATUS_PENDING_SUPPLIER_RESPONSE,
	STATUS_SUPPLIER_RESPONDED,
	STATUS_WORKSHOP_VERIFIED,
	STATUS_SUPPLIER_CONFIRMED,
	STATUS_COMPLETED,
	STATUS_CANCELLED,
}

var AllRoles = []Role{
	ROLE_WORKSHOP_DISPATCHER,
	ROLE_REGIONAL_DISPATCHER,
	ROLE_SUPER_ADMIN,
	ROLE_SUPPLIER,
	ROLE_ACCOUNTANT,
}

// StatusCodeMap - каноническое имя статуса.
var StatusCodeMap = map[Status]string{
	STATUS_PENDING_SUBMIT:            "PENDING_SUBMIT",
	STATUS_PENDING_AUDIT:             "PENDING_AUDIT",
	STATUS_PENDING_SUPPLIER_RESPONSE: "PENDING_SUPPLIER_RESPONSE",
	STATUS_SUPPLIER_RESPONDED:        "SUPPLIER_RESPONDED",
	STATUS_WORKSHOP_VERIFIED:         "WORKSHOP_VERIFIED",
	STATUS_SUPPLIER_CONFIRMED:        "SUPPLIER_CONFIRMED",
	STATUS_COMPLETED:                 "COMPLETED",
	STATUS_CANCELLED:                 "CANCELLED",
}

var TrackCodeMap = map[Track]string{
	TRACK_A: "TRACK_A",
	TRACK_B: "TRACK_B",
}

var RoleCodeMap = map[Role]string{
	ROLE_WORKSHOP_DISPATCHER: "WORKSHOP_DISPATCHER",
	ROLE_REGIONAL_DISPATCHER: "REGIONAL_DISPATCHER",
	ROLE_SUPER_ADMIN:         "SUPER_ADMIN",
	ROLE_SUPPLIER:            "SUPPLIER",
	ROLE_ACCOUNTANT:          "ACCOUNTANT",
}

var (
	statusByCode = make(map[string]Status)
	trackByCode  = make(map[string]Track)
	roleByCode   = make(map[string]Role)
)

func init() {
	for k, v := range StatusCodeMap {
		statusByCode[v] = k
	}
	for k, v := range TrackCodeMap {
		trackByCode[v] = k
	}
	for k, v := range RoleCodeMap {
		roleByCode[v] = k
	}
	// короткие формы маршрутов, как в запросах старого фронтенда
	trackByCode["A"] = TRACK_A
	trackByCode["B"] = TRACK_B
}

// Code возвращает каноническое имя статуса.
func (s Status) Code() string {
	if c, ok := StatusCodeMap[s]; ok {
		return c
	}
	return string(s)
}

// IsTerminal - COMPLETED и CANCELLED не имеют исходящих переходов.
func (s Status) IsTerminal() bool {
	return s == STATUS_COMPLETED || s == STATUS_CANCELLED
}

func (s Status) Valid() bool {
	_, ok := StatusCodeMap[s]
	return ok
}

func (t Track) Code() string {
	if c, ok := TrackCodeMap[t]; ok {
		return c
	}
	return string(t)
}

func (t Track) Valid() bool {
	_, ok := TrackCodeMap[t]
	return ok
}

func (r Role) Code() string {
	if c, ok := RoleCodeMap[r]; ok {
		return c
	}
	return string(r)
}

func (r Role) Valid() bool {
	_, ok := RoleCodeMap[r]
	return ok
}

// ParseStatus принимает каноническое имя или метку статуса.
func ParseStatus(raw string) (Status, error) {
	raw = strings.TrimSpace(raw)
	if s, ok := statusByCode[strings.ToUpper(raw)]; ok {
		return s, nil
	}
	if raw == legacyPendingAuditLabel {
		return STATUS_PENDING_AUDIT, nil
	}
	if Status(raw).Valid() {
		return Status(raw), nil
	}
	return "", fmt.Errorf("неизвестный статус: %q", raw)
}

// ParseTrack принимает TRACK_A, A или 轨道A.
func ParseTrack(raw string) (Track, error) {
	raw = strings.TrimSpace(raw)
	if t, ok := trackByCode[strings.ToUpper(raw)]; ok {
		return t, nil
	}
	if Track(raw).Valid() {
		return Track(raw), nil
	}
	return "", fmt.Errorf("неизвестный маршрут: %q", raw)
}

func ParseRole(raw string) (Role, error) {
	raw = strings.TrimSpace(raw)
	if r, ok := roleByCode[strings.ToUpper(raw)]; ok {
		return r, nil
	}
	if Role(raw).Valid() {
		return Role(raw), nil
	}
	return "", fmt.Errorf("неизвестная роль: %q", raw)
}

// ParseAuditResult принимает approve/reject и метки 通过/拒绝.
func ParseAuditResult(raw string) (AuditResult, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approve", "approved", "通过":
		return AUDIT_APPROVE, nil
	case "reject", "rejected", "拒绝":
		return AUDIT_REJECT, nil
	}
	return "", fmt.Errorf("неизвестный результат аудита: %q", raw)
}

// IsDispatcherAdmin - роли, которым разрешены административные операции.
func IsDispatcherAdmin(r Role) bool {
	return r == ROLE_REGIONAL_DISPATCHER || r == ROLE_SUPER_ADMIN
}

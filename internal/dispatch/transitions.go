package dispatch

import (
	"dispatchtrack/internal/constants"
)

// Rule - кто может действовать в данном статусе и куда можно перейти.
type Rule struct {
	Roles   []constants.Role
	Targets []constants.Status
}

func (r Rule) AllowsRole(role constants.Role) bool {
	for _, x := range r.Roles {
		if x == role {
			return true
		}
	}
	return false
}

func (r Rule) AllowsTarget(s constants.Status) bool {
	for _, x := range r.Targets {
		if x == s {
			return true
		}
	}
	return false
}

var (
	workshopOnly = []constants.Role{constants.ROLE_WORKSHOP_DISPATCHER}
	regionalOnly = []constants.Role{constants.ROLE_REGIONAL_DISPATCHER, constants.ROLE_SUPER_ADMIN}
	supplierOnly = []constants.Role{constants.ROLE_SUPPLIER}
)

// transitionTable - единственный источник правил переходов. Не изменяется после инициализации.
var transitionTable = map[constants.Track]map[constants.Status]Rule{
	constants.TRACK_A: {
		constants.STATUS_PENDING_SUBMIT: {
			Roles:   workshopOnly,
			Targets: []constants.Status{constants.STATUS_PENDING_AUDIT},
		},
		constants.STATUS_PENDING_AUDIT: {
			Roles:   regionalOnly,
			Targets: []constants.Status{constants.STATUS_PENDING_SUPPLIER_RESPONSE, constants.STATUS_CANCELLED},
		},
		constants.STATUS_PENDING_SUPPLIER_RESPONSE: {
			Roles:   supplierOnly,
			Targets: []constants.Status{constants.STATUS_SUPPLIER_RESPONDED},
		},
		constants.STATUS_SUPPLIER_RESPONDED: {
			Roles:   workshopOnly,
			Targets: []constants.Status{constants.STATUS_WORKSHOP_VERIFIED},
		},
		constants.STATUS_WORKSHOP_VERIFIED: {
			Roles:   supplierOnly,
			Targets: []constants.Status{constants.STATUS_SUPPLIER_CONFIRMED},
		},
		constants.STATUS_SUPPLIER_CONFIRMED: {
			Roles:   workshopOnly,
			Targets: []constants.Status{constants.STATUS_COMPLETED},
		},
	},
	constants.TRACK_B: {
		constants.STATUS_PENDING_SUPPLIER_RESPONSE: {
			Roles:   supplierOnly,
			Targets: []constants.Status{constants.STATUS_SUPPLIER_RESPONDED},
		},
		constants.STATUS_SUPPLIER_RESPONDED: {
			Roles:   regionalOnly,
			Targets: []constants.Status{constants.STATUS_WORKSHOP_VERIFIED},
		},
		constants.STATUS_WORKSHOP_VERIFIED: {
			Roles:   supplierOnly,
			Targets: []constants.Status{constants.STATUS_SUPPLIER_CONFIRMED},
		},
		constants.STATUS_SUPPLIER_CONFIRMED: {
			Roles:   regionalOnly,
			Targets: []constants.Status{constants.STATUS_COMPLETED},
		},
	},
}

// LookupRule возвращает правило для (маршрут, статус). ok=false для терминальных
// статусов и для статусов, которых нет на маршруте.
func LookupRule(track constants.Track, status constants.Status) (Rule, bool) {
	byStatus, ok := transitionTable[track]
	if !ok {
		return Rule{}, false
	}
	rule, ok := byStatus[status]
	return rule, ok
}

// NextHandler - роль, от которой ожидается действие в новом статусе.
// Пустая роль означает, что задача закрыта.
func NextHandler(track constants.Track, status constants.Status) constants.Role {
	switch status {
	case constants.STATUS_PENDING_SUBMIT:
		return constants.ROLE_WORKSHOP_DISPATCHER
	case constants.STATUS_PENDING_AUDIT:
		return constants.ROLE_REGIONAL_DISPATCHER
	case constants.STATUS_PENDING_SUPPLIER_RESPONSE, constants.STATUS_WORKSHOP_VERIFIED:
		return constants.ROLE_SUPPLIER
	case constants.STATUS_SUPPLIER_RESPONDED, constants.STATUS_SUPPLIER_CONFIRMED:
		if track == constants.TRACK_B {
			return constants.ROLE_REGIONAL_DISPATCHER
		}
		return constants.ROLE_WORKSHOP_DISPATCHER
	}
	return ""
}

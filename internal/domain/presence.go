package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role - одна из двух сторон переписки
type Role string

const (
	RoleRequester Role = "requester"
	RoleResponder Role = "responder"
)

// Counterpart возвращает противоположную роль
func (r Role) Counterpart() Role {
	if r == RoleResponder {
		return RoleRequester
	}
	return RoleResponder
}

// Label - имя роли в событиях клиента (active_hr_users / active_employee_users)
func (r Role) Label() string {
	if r == RoleResponder {
		return "hr"
	}
	return "employee"
}

// Роли справочника пользователей
const (
	DirectoryRoleEmployee = "Employee"
	DirectoryRoleHR       = "HR"
	DirectoryRoleAdmin    = "Admin"
)

// RoleFromDirectory сопоставляет роль справочника стороне переписки.
// Администратор в чате выступает как сотрудник.
func RoleFromDirectory(directoryRole string) (Role, error) {
	switch directoryRole {
	case DirectoryRoleEmployee, DirectoryRoleAdmin:
		return RoleRequester, nil
	case DirectoryRoleHR:
		return RoleResponder, nil
	default:
		return "", fmt.Errorf("unknown directory role %q", directoryRole)
	}
}

// ActiveUserView - проекция записи присутствия для рассылки снапшотов
type ActiveUserView struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Department string    `json:"department"`
}

// SessionContext создается один раз при успешном рукопожатии и
// передается явно во все обработчики соединения
type SessionContext struct {
	SessionID     uuid.UUID
	UserID        uuid.UUID
	Role          Role
	DirectoryRole string
	Name          string
	Department    string
	RemoteAddr    string
	ConnectedAt   time.Time
}

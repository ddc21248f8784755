package domain

import (
	"github.com/google/uuid"
)

// User - запись внешнего справочника пользователей (только чтение)
type User struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Department string    `json:"department"`
}

func (u *User) View() ActiveUserView {
	return ActiveUserView{
		ID:         u.ID,
		Name:       u.Name,
		Department: u.Department,
	}
}

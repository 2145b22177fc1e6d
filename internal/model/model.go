// Package model содержит доменные сущности сервиса франчайзинга.
package model

import "time"

// ApplicationStatus описывает статус заявки на франшизу.
type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "pending"
	StatusAccepted ApplicationStatus = "accepted"
	StatusGranted  ApplicationStatus = "granted"
	StatusRejected ApplicationStatus = "rejected"
)

// transitions задаёт допустимые переходы статусов заявки.
// granted и rejected — терминальные состояния.
var transitions = map[ApplicationStatus][]ApplicationStatus{
	StatusPending:  {StatusAccepted, StatusRejected},
	StatusAccepted: {StatusGranted, StatusRejected},
}

// CanTransition сообщает, допустим ли переход из состояния from в to.
func CanTransition(from, to ApplicationStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedSources возвращает состояния, из которых разрешён переход в to.
func AllowedSources(to ApplicationStatus) []ApplicationStatus {
	var src []ApplicationStatus
	for from, nexts := range transitions {
		for _, next := range nexts {
			if next == to {
				src = append(src, from)
			}
		}
	}
	return src
}

// IsValidStatus проверяет, что строка является известным статусом заявки.
func IsValidStatus(s ApplicationStatus) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusGranted, StatusRejected:
		return true
	}
	return false
}

// Applicant представляет заявку на открытие франшизы.
type Applicant struct {
	ID                 int64
	Email              string
	FirstName          string
	LastName           string
	Phone              string
	ResidentialAddress string
	BusinessName       string
	SiteAddress        string
	SiteCity           string
	SitePostal         string
	AreaSqft           string
	SiteFloor          string
	Ownership          string
	Status             ApplicationStatus
	AppliedAt          time.Time
}

// Credential содержит выданные франчайзи учётные данные.
type Credential struct {
	Email    string
	Secret   string
	IssuedAt time.Time
}

// SalesEntry описывает выручку франчайзи за один календарный день.
type SalesEntry struct {
	Email        string
	Day          time.Time
	RevenueCents int64
	RecordedAt   time.Time
}

// Revenue возвращает выручку в денежных единицах.
func (e SalesEntry) Revenue() float64 {
	return float64(e.RevenueCents) / 100
}

// Admin представляет учётную запись администратора.
type Admin struct {
	Email        string
	Name         string
	PasswordHash []byte
	Role         string
}

// Role описывает роль аутентифицированного пользователя.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleFranchisee Role = "franchisee"
)

// Session связывает идентификатор сессии с ролью и email пользователя.
type Session struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

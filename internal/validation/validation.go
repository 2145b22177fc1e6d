// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// ErrValidation возвращается при некорректных входных данных запроса.
var ErrValidation = errors.New("validation error")

// saleDateLayout задаёт формат даты продаж на уровне API.
const saleDateLayout = "2006-01-02"

// IsValidEmail проверяет, что строка является корректным email-адресом.
func IsValidEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	// mail.ParseAddress принимает формы с отображаемым именем,
	// здесь нужен только голый адрес.
	return addr.Address == email
}

// NormalizeEmail приводит email к каноническому виду для использования в качестве ключа.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ParseSaleDate разбирает дату продаж формата YYYY-MM-DD и
// нормализует её к полуночи UTC.
func ParseSaleDate(value string) (time.Time, error) {
	t, err := time.Parse(saleDateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q, want YYYY-MM-DD", ErrValidation, value)
	}
	return NormalizeDay(t), nil
}

// NormalizeDay отбрасывает время суток, оставляя календарную дату в UTC.
func NormalizeDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EndOfDay возвращает последний момент календарного дня в UTC.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
}

// RevenueToCents конвертирует неотрицательную выручку в копейки.
func RevenueToCents(revenue float64) (int64, error) {
	if revenue < 0 {
		return 0, fmt.Errorf("%w: revenue must be non-negative", ErrValidation)
	}
	return int64(revenue*100 + 0.5), nil
}

// ApplicationInput описывает обязательные поля заявки для проверки.
type ApplicationInput struct {
	FirstName string
	LastName  string
	Email     string
}

// ValidateApplication проверяет обязательные поля заявки на франшизу.
func ValidateApplication(in ApplicationInput) error {
	if strings.TrimSpace(in.FirstName) == "" {
		return fmt.Errorf("%w: first name is required", ErrValidation)
	}
	if strings.TrimSpace(in.LastName) == "" {
		return fmt.Errorf("%w: last name is required", ErrValidation)
	}
	if !IsValidEmail(in.Email) {
		return fmt.Errorf("%w: invalid email %q", ErrValidation, in.Email)
	}
	return nil
}

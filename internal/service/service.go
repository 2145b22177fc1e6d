// Package service реализует бизнес-логику сервиса франчайзинга.
package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/franchise-hub/internal/model"
	"github.com/mmeshcher/franchise-hub/internal/repository"
	"github.com/mmeshcher/franchise-hub/internal/validation"
)

// ErrInvalidCredentials возвращается при неверной паре email/пароль.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotGranted возвращается при попытке выдать учётные данные
	// заявителю, которому франшиза не предоставлена.
	ErrNotGranted = errors.New("applicant is not granted")
)

const (
	secretLength   = 10
	secretAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateApplicant(ctx context.Context, a *model.Applicant) (int64, error)
	GetApplicantByEmail(ctx context.Context, email string) (*model.Applicant, error)
	ListApplicants(ctx context.Context) ([]model.Applicant, error)
	UpdateApplicantStatus(ctx context.Context, email string, to model.ApplicationStatus) error
	GrantWithCredential(ctx context.Context, email, secret string) (string, error)
	CreateCredential(ctx context.Context, email, secret string) (*model.Credential, error)
	GetCredential(ctx context.Context, email string) (*model.Credential, error)
	UpsertSale(ctx context.Context, email string, day time.Time, revenueCents int64) error
	GetSalesByEmail(ctx context.Context, email string, from, to *time.Time) ([]model.SalesEntry, error)
	GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error)
	UpsertAdmin(ctx context.Context, a *model.Admin) error
}

// Service содержит бизнес-логику сервиса франчайзинга.
type Service struct {
	repo Repository
}

// NewService создаёт новый сервис с указанным репозиторием.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// SubmitApplication принимает новую заявку на франшизу.
// Повторная подача с тем же email завершается ошибкой ErrApplicantExists.
func (s *Service) SubmitApplication(ctx context.Context, a *model.Applicant) (int64, error) {
	if err := validation.ValidateApplication(validation.ApplicationInput{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
	}); err != nil {
		return 0, err
	}

	a.Email = validation.NormalizeEmail(a.Email)
	return s.repo.CreateApplicant(ctx, a)
}

// ListApplicants возвращает все заявки, новые первыми.
func (s *Service) ListApplicants(ctx context.Context) ([]model.Applicant, error) {
	return s.repo.ListApplicants(ctx)
}

// AcceptApplicant переводит заявку в состояние accepted.
func (s *Service) AcceptApplicant(ctx context.Context, email string) error {
	return s.repo.UpdateApplicantStatus(ctx, validation.NormalizeEmail(email), model.StatusAccepted)
}

// RejectApplicant переводит заявку в состояние rejected.
func (s *Service) RejectApplicant(ctx context.Context, email string) error {
	return s.repo.UpdateApplicantStatus(ctx, validation.NormalizeEmail(email), model.StatusRejected)
}

// GrantApplicant предоставляет франшизу: переводит заявку из accepted в granted
// и в той же транзакции выдаёт учётные данные. Возвращает действующий секрет.
func (s *Service) GrantApplicant(ctx context.Context, email string) (string, error) {
	secret, err := generateSecret()
	if err != nil {
		return "", err
	}
	return s.repo.GrantWithCredential(ctx, validation.NormalizeEmail(email), secret)
}

// IssueCredential идемпотентно выдаёт учётные данные франчайзи.
// Допускается только для заявок в состоянии granted; повторный вызов
// возвращает уже выданный секрет.
func (s *Service) IssueCredential(ctx context.Context, email string) (*model.Credential, error) {
	email = validation.NormalizeEmail(email)

	a, err := s.repo.GetApplicantByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if a.Status != model.StatusGranted {
		return nil, fmt.Errorf("%w: status is %s", ErrNotGranted, a.Status)
	}

	secret, err := generateSecret()
	if err != nil {
		return nil, err
	}

	return s.repo.CreateCredential(ctx, email, secret)
}

// AuthenticateAdmin проверяет email и пароль администратора.
func (s *Service) AuthenticateAdmin(ctx context.Context, email, password string) (*model.Admin, error) {
	a, err := s.repo.GetAdminByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrAdminNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return a, nil
}

// AuthenticateFranchisee проверяет email и секрет франчайзи.
func (s *Service) AuthenticateFranchisee(ctx context.Context, email, secret string) error {
	c, err := s.repo.GetCredential(ctx, validation.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	if subtle.ConstantTimeCompare([]byte(c.Secret), []byte(secret)) != 1 {
		return ErrInvalidCredentials
	}

	return nil
}

// GetProfile возвращает заявку франчайзи по его email.
func (s *Service) GetProfile(ctx context.Context, email string) (*model.Applicant, error) {
	return s.repo.GetApplicantByEmail(ctx, validation.NormalizeEmail(email))
}

// RecordSale сохраняет выручку франчайзи за календарный день.
// Время суток отбрасывается; повторная запись за день перезаписывает сумму.
func (s *Service) RecordSale(ctx context.Context, email string, day time.Time, revenue float64) error {
	cents, err := validation.RevenueToCents(revenue)
	if err != nil {
		return err
	}

	return s.repo.UpsertSale(ctx, validation.NormalizeEmail(email), validation.NormalizeDay(day), cents)
}

// GetSales возвращает записи о выручке франчайзи по убыванию даты.
// Границы периода включительные: from нормализуется к началу дня, to — к концу.
func (s *Service) GetSales(ctx context.Context, email string, from, to *time.Time) ([]model.SalesEntry, error) {
	if from != nil && to != nil {
		start := validation.NormalizeDay(*from)
		end := validation.EndOfDay(*to)
		from, to = &start, &end
	} else {
		from, to = nil, nil
	}

	return s.repo.GetSalesByEmail(ctx, validation.NormalizeEmail(email), from, to)
}

// BootstrapAdmin создаёт или обновляет администратора из конфигурации запуска.
func (s *Service) BootstrapAdmin(ctx context.Context, email, password, name string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	return s.repo.UpsertAdmin(ctx, &model.Admin{
		Email:        validation.NormalizeEmail(email),
		Name:         name,
		PasswordHash: hash,
		Role:         string(model.RoleAdmin),
	})
}

// generateSecret генерирует случайный секрет франчайзи.
func generateSecret() (string, error) {
	buf := make([]byte, secretLength)
	max := big.NewInt(int64(len(secretAlphabet)))

	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate secret: %w", err)
		}
		buf[i] = secretAlphabet[n.Int64()]
	}

	return string(buf), nil
}

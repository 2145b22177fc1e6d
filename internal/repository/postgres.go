// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/mmeshcher/franchise-hub/internal/model"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrApplicantExists возвращается при повторной подаче заявки с тем же email.
var (
	ErrApplicantExists = errors.New("applicant already exists")
	// ErrApplicantNotFound возвращается, если заявка не найдена.
	ErrApplicantNotFound = errors.New("applicant not found")
	// ErrInvalidTransition возвращается при недопустимой смене статуса заявки.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrAdminNotFound возвращается, если администратор не найден.
	ErrAdminNotFound = errors.New("admin not found")
	// ErrCredentialNotFound возвращается, если учётные данные франчайзи не выданы.
	ErrCredentialNotFound = errors.New("franchise credential not found")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Если ошибка контекста — выходим сразу
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			// Ретраи полезны для Serialization Failure и Deadlocks,
			// переподключением занимается сам pgxpool.
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateApplicant сохраняет новую заявку со статусом pending и возвращает её идентификатор.
func (r *PostgresRepository) CreateApplicant(ctx context.Context, a *model.Applicant) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO applicants
		   (email, first_name, last_name, phone, residential_address, business_name,
		    site_address, site_city, site_postal, area_sqft, site_floor, ownership, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id`,
		a.Email, a.FirstName, a.LastName, a.Phone, a.ResidentialAddress, a.BusinessName,
		a.SiteAddress, a.SiteCity, a.SitePostal, a.AreaSqft, a.SiteFloor, a.Ownership,
		string(model.StatusPending),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrApplicantExists, a.Email)
		}
		return 0, fmt.Errorf("create applicant: %w", err)
	}
	return id, nil
}

const applicantColumns = `id, email, first_name, last_name, phone, residential_address,
	business_name, site_address, site_city, site_postal, area_sqft, site_floor,
	ownership, status, applied_at`

func scanApplicant(row pgx.Row) (*model.Applicant, error) {
	var a model.Applicant
	var status string
	err := row.Scan(&a.ID, &a.Email, &a.FirstName, &a.LastName, &a.Phone,
		&a.ResidentialAddress, &a.BusinessName, &a.SiteAddress, &a.SiteCity,
		&a.SitePostal, &a.AreaSqft, &a.SiteFloor, &a.Ownership, &status, &a.AppliedAt)
	if err != nil {
		return nil, err
	}
	a.Status = model.ApplicationStatus(status)
	return &a, nil
}

// GetApplicantByEmail возвращает заявку по email.
func (r *PostgresRepository) GetApplicantByEmail(ctx context.Context, email string) (*model.Applicant, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+applicantColumns+` FROM applicants WHERE email = $1`,
		email,
	)

	a, err := scanApplicant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrApplicantNotFound
		}
		return nil, fmt.Errorf("get applicant: %w", err)
	}

	return a, nil
}

// ListApplicants возвращает все заявки, новые первыми.
func (r *PostgresRepository) ListApplicants(ctx context.Context) ([]model.Applicant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+applicantColumns+`
		 FROM applicants
		 ORDER BY applied_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select applicants: %w", err)
	}
	defer rows.Close()

	var applicants []model.Applicant
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan applicant: %w", err)
		}
		applicants = append(applicants, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return applicants, nil
}

// UpdateApplicantStatus переводит заявку в состояние to, проверяя допустимость перехода.
// Строка заявки блокируется на время транзакции, чтобы параллельные решения
// администратора не затирали друг друга.
func (r *PostgresRepository) UpdateApplicantStatus(ctx context.Context, email string, to model.ApplicationStatus) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var current string
		err = tx.QueryRow(ctx,
			`SELECT status FROM applicants WHERE email = $1 FOR UPDATE`,
			email,
		).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrApplicantNotFound, email)
			}
			return fmt.Errorf("lock applicant: %w", err)
		}

		if !model.CanTransition(model.ApplicationStatus(current), to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, to)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE applicants SET status = $2 WHERE email = $1`,
			email, string(to),
		); err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})
}

// GrantWithCredential атомарно переводит заявку из accepted в granted и выдаёт
// учётные данные франчайзи. Если учётные данные уже существуют, secret не меняется;
// возвращается действующий секрет.
func (r *PostgresRepository) GrantWithCredential(ctx context.Context, email, secret string) (string, error) {
	var effective string

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var current string
		err = tx.QueryRow(ctx,
			`SELECT status FROM applicants WHERE email = $1 FOR UPDATE`,
			email,
		).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrApplicantNotFound, email)
			}
			return fmt.Errorf("lock applicant: %w", err)
		}

		if !model.CanTransition(model.ApplicationStatus(current), model.StatusGranted) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, model.StatusGranted)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE applicants SET status = $2 WHERE email = $1`,
			email, string(model.StatusGranted),
		); err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO franchise_credentials (email, secret) VALUES ($1, $2)
			 ON CONFLICT (email) DO NOTHING`,
			email, secret,
		); err != nil {
			return fmt.Errorf("insert credential: %w", err)
		}

		if err := tx.QueryRow(ctx,
			`SELECT secret FROM franchise_credentials WHERE email = $1`,
			email,
		).Scan(&effective); err != nil {
			return fmt.Errorf("select credential: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	return effective, nil
}

// CreateCredential идемпотентно сохраняет учётные данные франчайзи.
// Повторный вызов возвращает уже выданный секрет без ротации.
func (r *PostgresRepository) CreateCredential(ctx context.Context, email, secret string) (*model.Credential, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO franchise_credentials (email, secret) VALUES ($1, $2)
		 ON CONFLICT (email) DO NOTHING`,
		email, secret,
	)
	if err != nil {
		return nil, fmt.Errorf("insert credential: %w", err)
	}

	return r.GetCredential(ctx, email)
}

// GetCredential возвращает учётные данные франчайзи по email.
func (r *PostgresRepository) GetCredential(ctx context.Context, email string) (*model.Credential, error) {
	var c model.Credential
	err := r.pool.QueryRow(ctx,
		`SELECT email, secret, issued_at FROM franchise_credentials WHERE email = $1`,
		email,
	).Scan(&c.Email, &c.Secret, &c.IssuedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}

	return &c, nil
}

// UpsertSale сохраняет выручку франчайзи за календарный день.
// Повторная запись за тот же день перезаписывает сумму.
func (r *PostgresRepository) UpsertSale(ctx context.Context, email string, day time.Time, revenueCents int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sales_entries (email, sale_date, revenue_cents)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (email, sale_date)
		 DO UPDATE SET revenue_cents = EXCLUDED.revenue_cents, updated_at = now()`,
		email, day, revenueCents,
	)
	if err != nil {
		return fmt.Errorf("upsert sale: %w", err)
	}
	return nil
}

// GetSalesByEmail возвращает записи о выручке франчайзи, по убыванию даты.
// Если указаны границы периода, выборка ограничивается им включительно.
func (r *PostgresRepository) GetSalesByEmail(ctx context.Context, email string, from, to *time.Time) ([]model.SalesEntry, error) {
	query := `SELECT email, sale_date, revenue_cents, recorded_at
		 FROM sales_entries
		 WHERE email = $1`
	args := []any{email}

	if from != nil && to != nil {
		query += ` AND sale_date BETWEEN $2 AND $3`
		args = append(args, *from, *to)
	}

	query += ` ORDER BY sale_date DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select sales: %w", err)
	}
	defer rows.Close()

	var entries []model.SalesEntry
	for rows.Next() {
		var e model.SalesEntry
		if err := rows.Scan(&e.Email, &e.Day, &e.RevenueCents, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return entries, nil
}

// GetAdminByEmail возвращает администратора по email.
func (r *PostgresRepository) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var a model.Admin
	err := r.pool.QueryRow(ctx,
		`SELECT email, name, password_hash, role FROM admins WHERE email = $1`,
		email,
	).Scan(&a.Email, &a.Name, &a.PasswordHash, &a.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}

	return &a, nil
}

// UpsertAdmin создаёт или обновляет учётную запись администратора.
// Используется при начальной загрузке администратора из конфигурации.
func (r *PostgresRepository) UpsertAdmin(ctx context.Context, a *model.Admin) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO admins (email, name, password_hash, role)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (email)
		 DO UPDATE SET name = EXCLUDED.name, password_hash = EXCLUDED.password_hash`,
		a.Email, a.Name, a.PasswordHash, a.Role,
	)
	if err != nil {
		return fmt.Errorf("upsert admin: %w", err)
	}
	return nil
}

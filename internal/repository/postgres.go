// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/wooadmin-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrTenantExists возвращается при попытке создать арендатора с уже занятым email.
var (
	ErrTenantExists = errors.New("tenant already exists")
	// ErrTenantNotFound возвращается, если арендатор не найден.
	ErrTenantNotFound = errors.New("tenant not found")
)

// PostgresRepository предоставляет доступ к хранилищу арендаторов в PostgreSQL.
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

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateTenant создаёт нового арендатора с его ключами WooCommerce.
func (r *PostgresRepository) CreateTenant(ctx context.Context, email string, passwordHash []byte, wooURL, wooKey, wooSecret string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tenants (email, password_hash, woo_url, woo_ck, woo_cs)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		email, passwordHash, wooURL, wooKey, wooSecret,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrTenantExists, email)
		}
		return 0, fmt.Errorf("create tenant: %w", err)
	}
	return id, nil
}

// GetTenantByEmail возвращает арендатора по email.
func (r *PostgresRepository) GetTenantByEmail(ctx context.Context, email string) (*model.Tenant, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, woo_url, woo_ck, woo_cs, created_at
		 FROM tenants WHERE email = $1`,
		email,
	)
	return scanTenant(row)
}

// GetTenantByID возвращает арендатора по идентификатору.
func (r *PostgresRepository) GetTenantByID(ctx context.Context, id int64) (*model.Tenant, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, woo_url, woo_ck, woo_cs, created_at
		 FROM tenants WHERE id = $1`,
		id,
	)
	return scanTenant(row)
}

func scanTenant(row pgx.Row) (*model.Tenant, error) {
	var t model.Tenant
	err := row.Scan(&t.ID, &t.Email, &t.PasswordHash, &t.WooURL, &t.WooKey, &t.WooSecret, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

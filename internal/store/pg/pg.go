// Package pg implementa los repositorios del dominio sobre PostgreSQL.
// Usa pgxpool directamente; las sentinelas del dominio se traducen acá
// (pgx.ErrNoRows -> ErrNotFound, 23505 -> ErrConflict).
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/mailroom/internal/domain/repository"
)

// Config configura la conexión.
type Config struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// Store es una conexión activa a PostgreSQL con sus repositorios.
type Store struct {
	pool *pgxpool.Pool
}

// Connect abre el pool y verifica la conexión.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	} else {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Ping verifica la conexión.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close cierra el pool.
func (s *Store) Close() { s.pool.Close() }

// Pool expone el pool subyacente (migraciones).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// ─── Repositorios ───

func (s *Store) Templates() repository.TemplateRepository {
	return &templateRepo{pool: s.pool}
}

func (s *Store) DispatchLogs() repository.DispatchLogRepository {
	return &dispatchLogRepo{pool: s.pool}
}

func (s *Store) Tenants() repository.TenantRepository {
	return &tenantRepo{pool: s.pool}
}

// isUniqueViolation detecta violaciones de constraint UNIQUE (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

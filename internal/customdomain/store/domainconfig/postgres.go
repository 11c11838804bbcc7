package domainconfig

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/platform/sentinel"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/platform/tx"
)

const domainColumns = `id, tenant_id, domain, platform_subdomain, cname_target, status,
	verification_token, ssl_enabled, ssl_provider, auto_renew, verified_at, created_at, updated_at, version`

// PostgresStore persists domain configs in PostgreSQL.
// This store is pure I/O; transition rules live in the model and service.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed domain store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the ambient transaction when one is carried in the context,
// otherwise the pooled connection.
func (s *PostgresStore) q(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, d *models.DomainConfig) error {
	query := `
		INSERT INTO domain_configs (` + domainColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		d.ID.String(), d.TenantID.String(), d.Domain.String(), d.PlatformSubdomain,
		d.CNAMETarget.String(), d.Status.String(), d.VerificationToken, d.SSLEnabled,
		d.SSLProvider.String(), d.AutoRenew, nullTime(d.VerifiedAt), d.CreatedAt, d.UpdatedAt, d.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create domain config: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByDomain(ctx context.Context, name domain.DomainName) (*models.DomainConfig, error) {
	query := `SELECT ` + domainColumns + ` FROM domain_configs WHERE domain = $1`
	d, err := scanDomain(s.q(ctx).QueryRowContext(ctx, query, name.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find domain config: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, domainID domain.DomainID) (*models.DomainConfig, error) {
	query := `SELECT ` + domainColumns + ` FROM domain_configs WHERE id = $1`
	d, err := scanDomain(s.q(ctx).QueryRowContext(ctx, query, domainID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find domain config by id: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) FindByTenantAndDomain(ctx context.Context, tenantID domain.TenantID, name domain.DomainName) (*models.DomainConfig, error) {
	query := `SELECT ` + domainColumns + ` FROM domain_configs WHERE tenant_id = $1 AND domain = $2`
	d, err := scanDomain(s.q(ctx).QueryRowContext(ctx, query, tenantID.String(), name.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find tenant domain config: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID domain.TenantID) ([]*models.DomainConfig, error) {
	query := `SELECT ` + domainColumns + ` FROM domain_configs WHERE tenant_id = $1 ORDER BY created_at`
	rows, err := s.q(ctx).QueryContext(ctx, query, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("list tenant domain configs: %w", err)
	}
	defer rows.Close()
	return collectDomains(rows)
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]*models.DomainConfig, error) {
	query := `SELECT ` + domainColumns + ` FROM domain_configs WHERE status <> $1 ORDER BY created_at`
	rows, err := s.q(ctx).QueryContext(ctx, query, models.DomainStatusReleased.String())
	if err != nil {
		return nil, fmt.Errorf("list active domain configs: %w", err)
	}
	defer rows.Close()
	return collectDomains(rows)
}

// Execute locks the row with FOR UPDATE, runs the callbacks, and writes
// back with a version check. A write from a connection that read the row
// before the lock was taken fails the version predicate instead of
// clobbering the newer state.
func (s *PostgresStore) Execute(ctx context.Context, name domain.DomainName, validate func(*models.DomainConfig) error, mutate func(*models.DomainConfig)) (*models.DomainConfig, error) {
	if ambient, ok := tx.From(ctx); ok {
		return s.executeIn(ctx, ambient, name, validate, mutate)
	}

	transaction, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin domain update: %w", err)
	}
	d, err := s.executeIn(ctx, transaction, name, validate, mutate)
	if err != nil {
		_ = transaction.Rollback()
		return nil, err
	}
	if err := transaction.Commit(); err != nil {
		return nil, fmt.Errorf("commit domain update: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) executeIn(ctx context.Context, t *sql.Tx, name domain.DomainName, validate func(*models.DomainConfig) error, mutate func(*models.DomainConfig)) (*models.DomainConfig, error) {
	query := `SELECT ` + domainColumns + ` FROM domain_configs WHERE domain = $1 FOR UPDATE`
	d, err := scanDomain(t.QueryRowContext(ctx, query, name.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock domain config: %w", err)
	}

	if err := validate(d); err != nil {
		return nil, err
	}
	mutate(d)

	previousVersion := d.Version
	d.Version++

	update := `
		UPDATE domain_configs SET
			status = $1, verification_token = $2, ssl_enabled = $3, ssl_provider = $4,
			auto_renew = $5, verified_at = $6, updated_at = $7, version = $8
		WHERE id = $9 AND version = $10
	`
	result, err := t.ExecContext(ctx, update,
		d.Status.String(), d.VerificationToken, d.SSLEnabled, d.SSLProvider.String(),
		d.AutoRenew, nullTime(d.VerifiedAt), d.UpdatedAt, d.Version,
		d.ID.String(), previousVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("update domain config: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update domain config: %w", err)
	}
	if affected == 0 {
		return nil, sentinel.ErrConflict
	}
	return d, nil
}

func scanDomain(row *sql.Row) (*models.DomainConfig, error) {
	var (
		d          models.DomainConfig
		rawID      string
		rawTenant  string
		rawName    string
		rawTarget  string
		rawStatus  string
		rawProv    string
		verifiedAt sql.NullTime
	)
	err := row.Scan(&rawID, &rawTenant, &rawName, &d.PlatformSubdomain, &rawTarget, &rawStatus,
		&d.VerificationToken, &d.SSLEnabled, &rawProv, &d.AutoRenew, &verifiedAt, &d.CreatedAt, &d.UpdatedAt, &d.Version)
	if err != nil {
		return nil, err
	}
	return assembleDomain(&d, rawID, rawTenant, rawName, rawTarget, rawStatus, rawProv, verifiedAt)
}

func collectDomains(rows *sql.Rows) ([]*models.DomainConfig, error) {
	var out []*models.DomainConfig
	for rows.Next() {
		var (
			d          models.DomainConfig
			rawID      string
			rawTenant  string
			rawName    string
			rawTarget  string
			rawStatus  string
			rawProv    string
			verifiedAt sql.NullTime
		)
		err := rows.Scan(&rawID, &rawTenant, &rawName, &d.PlatformSubdomain, &rawTarget, &rawStatus,
			&d.VerificationToken, &d.SSLEnabled, &rawProv, &d.AutoRenew, &verifiedAt, &d.CreatedAt, &d.UpdatedAt, &d.Version)
		if err != nil {
			return nil, fmt.Errorf("scan domain config: %w", err)
		}
		assembled, err := assembleDomain(&d, rawID, rawTenant, rawName, rawTarget, rawStatus, rawProv, verifiedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, assembled)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domain configs: %w", err)
	}
	return out, nil
}

func assembleDomain(d *models.DomainConfig, rawID, rawTenant, rawName, rawTarget, rawStatus, rawProv string, verifiedAt sql.NullTime) (*models.DomainConfig, error) {
	domainID, err := domain.ParseDomainID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored domain id %q: %w", rawID, err)
	}
	tenantID, err := domain.ParseTenantID(rawTenant)
	if err != nil {
		return nil, fmt.Errorf("stored tenant id %q: %w", rawTenant, err)
	}
	d.ID = domainID
	d.TenantID = tenantID
	d.Domain = domain.DomainName(rawName)
	d.CNAMETarget = domain.DomainName(rawTarget)
	d.Status = models.DomainStatus(rawStatus)
	d.SSLProvider = models.SSLProvider(rawProv)
	if verifiedAt.Valid {
		t := verifiedAt.Time
		d.VerifiedAt = &t
	}
	return d, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

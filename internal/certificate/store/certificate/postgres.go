package certificate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/certificate/models"
	customdomain "github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/platform/sentinel"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/platform/tx"
)

const certColumns = `id, domain, provider, status, issued_at, expires_at, created_at, updated_at`

// PostgresStore persists certificate records in PostgreSQL.
// This store is pure I/O; lifecycle rules live in the model and manager.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed certificate store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

// Put records a freshly issued certificate, superseding the previous
// active record for the same domain inside one transaction. The partial
// unique index on active rows backstops the supersede: two concurrent
// inserts for one domain cannot both land active.
func (s *PostgresStore) Put(ctx context.Context, cert *models.SSLCertificate) error {
	if ambient, ok := tx.From(ctx); ok {
		return s.putIn(ctx, ambient, cert)
	}

	transaction, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin certificate insert: %w", err)
	}
	if err := s.putIn(ctx, transaction, cert); err != nil {
		_ = transaction.Rollback()
		return err
	}
	if err := transaction.Commit(); err != nil {
		return fmt.Errorf("commit certificate insert: %w", err)
	}
	return nil
}

func (s *PostgresStore) putIn(ctx context.Context, t *sql.Tx, cert *models.SSLCertificate) error {
	supersede := `UPDATE certificates SET status = $1, updated_at = $2 WHERE domain = $3 AND status = $4`
	_, err := t.ExecContext(ctx, supersede,
		models.CertificateStatusSuperseded.String(), cert.CreatedAt,
		cert.Domain.String(), models.CertificateStatusActive.String(),
	)
	if err != nil {
		return fmt.Errorf("supersede active certificate: %w", err)
	}

	insert := `
		INSERT INTO certificates (` + certColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = t.ExecContext(ctx, insert,
		cert.ID.String(), cert.Domain.String(), cert.Provider.String(), cert.Status.String(),
		cert.IssuedAt, cert.ExpiresAt, cert.CreatedAt, cert.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

// GetActive returns the single active certificate for a domain.
func (s *PostgresStore) GetActive(ctx context.Context, name domain.DomainName) (*models.SSLCertificate, error) {
	query := `SELECT ` + certColumns + ` FROM certificates WHERE domain = $1 AND status = $2`
	cert, err := scanCert(s.q(ctx).QueryRowContext(ctx, query, name.String(), models.CertificateStatusActive.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find active certificate: %w", err)
	}
	return cert, nil
}

// History returns every certificate ever issued for a domain, newest first.
func (s *PostgresStore) History(ctx context.Context, name domain.DomainName) ([]*models.SSLCertificate, error) {
	query := `SELECT ` + certColumns + ` FROM certificates WHERE domain = $1 ORDER BY issued_at DESC, created_at DESC`
	rows, err := s.q(ctx).QueryContext(ctx, query, name.String())
	if err != nil {
		return nil, fmt.Errorf("list certificate history: %w", err)
	}
	defer rows.Close()
	return collectCerts(rows)
}

// ListActive returns all active certificates, soonest expiry first.
func (s *PostgresStore) ListActive(ctx context.Context) ([]*models.SSLCertificate, error) {
	query := `SELECT ` + certColumns + ` FROM certificates WHERE status = $1 ORDER BY expires_at`
	rows, err := s.q(ctx).QueryContext(ctx, query, models.CertificateStatusActive.String())
	if err != nil {
		return nil, fmt.Errorf("list active certificates: %w", err)
	}
	defer rows.Close()
	return collectCerts(rows)
}

// ListExpiring returns active certificates whose expiry is at or before
// the cutoff.
func (s *PostgresStore) ListExpiring(ctx context.Context, cutoff time.Time) ([]*models.SSLCertificate, error) {
	query := `SELECT ` + certColumns + ` FROM certificates WHERE status = $1 AND expires_at <= $2 ORDER BY expires_at`
	rows, err := s.q(ctx).QueryContext(ctx, query, models.CertificateStatusActive.String(), cutoff)
	if err != nil {
		return nil, fmt.Errorf("list expiring certificates: %w", err)
	}
	defer rows.Close()
	return collectCerts(rows)
}

// MarkExpired moves one certificate record to the expired state.
func (s *PostgresStore) MarkExpired(ctx context.Context, id domain.CertificateID, now time.Time) error {
	query := `UPDATE certificates SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := s.q(ctx).ExecContext(ctx, query, models.CertificateStatusExpired.String(), now, id.String())
	if err != nil {
		return fmt.Errorf("expire certificate: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("expire certificate: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanCert(row *sql.Row) (*models.SSLCertificate, error) {
	var (
		c         models.SSLCertificate
		rawID     string
		rawName   string
		rawProv   string
		rawStatus string
	)
	err := row.Scan(&rawID, &rawName, &rawProv, &rawStatus, &c.IssuedAt, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return assembleCert(&c, rawID, rawName, rawProv, rawStatus)
}

func collectCerts(rows *sql.Rows) ([]*models.SSLCertificate, error) {
	var out []*models.SSLCertificate
	for rows.Next() {
		var (
			c         models.SSLCertificate
			rawID     string
			rawName   string
			rawProv   string
			rawStatus string
		)
		err := rows.Scan(&rawID, &rawName, &rawProv, &rawStatus, &c.IssuedAt, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		assembled, err := assembleCert(&c, rawID, rawName, rawProv, rawStatus)
		if err != nil {
			return nil, err
		}
		out = append(out, assembled)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificates: %w", err)
	}
	return out, nil
}

func assembleCert(c *models.SSLCertificate, rawID, rawName, rawProv, rawStatus string) (*models.SSLCertificate, error) {
	certID, err := domain.ParseCertificateID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored certificate id %q: %w", rawID, err)
	}
	c.ID = certID
	c.Domain = domain.DomainName(rawName)
	c.Provider = customdomain.SSLProvider(rawProv)
	c.Status = models.CertificateStatus(rawStatus)
	return c, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

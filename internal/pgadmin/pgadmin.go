// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package pgadmin performs the privileged credential change over a
// trust-mode administrative connection, and the end-to-end verification
// using the new credential. Connections are scoped acquisitions: opened,
// used for a bounded set of statements and closed on every exit path.
package pgadmin

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/lib/pq"
)

var logger = loggo.GetLogger("pgreset.pgadmin")

const (
	// ErrAdminConnRefused indicates the administrative connection was
	// refused, typically because the relaxed policy is not active.
	ErrAdminConnRefused = errors.ConstError("administrative connection refused")

	// ErrVerifyFailed indicates the end-to-end reset did not take
	// effect: the new credential could not be used to connect and
	// identify the service.
	ErrVerifyFailed = errors.ConstError("verification with new credential failed")

	// ErrMissingCapability indicates the postgres driver is not
	// registered with database/sql. The capability must be present up
	// front; nothing is installed at run time.
	ErrMissingCapability = errors.ConstError("postgres driver not available")
)

const driverName = "postgres"

// Credential is the target credential being installed.
type Credential struct {
	Principal string
	Secret    string
}

// ConnParams carries the administrative connection parameters.
type ConnParams struct {
	// Host is where the service listens; always localhost in this
	// workflow.
	Host string

	// Port is the service's listen port.
	Port int

	// AdminUser is the administrative principal used during the
	// relaxed-policy window.
	AdminUser string

	// AdminDB is the maintenance database to connect to.
	AdminDB string
}

// adminDSN is the passwordless source usable only under the relaxed
// policy.
func (p ConnParams) adminDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=disable",
		p.Host, p.Port, p.AdminUser, p.AdminDB)
}

// credentialDSN is the source using the given credential against the
// maintenance database.
func (p ConnParams) credentialDSN(cred Credential) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		p.Host, p.Port, cred.Principal, quoteDSNValue(cred.Secret), p.AdminDB)
}

// quoteDSNValue quotes a libpq keyword/value connection string value.
func quoteDSNValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// Database is the slice of *sqlx.DB the changer and verifier need,
// injectable for tests.
type Database interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Close() error
}

// Opener opens a database connection for a DSN, verifying it with a
// ping. The default opener dials through lib/pq.
type Opener func(dsn string) (Database, error)

func defaultOpener(dsn string) (Database, error) {
	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureDriver fails fast if the postgres driver is not registered.
func EnsureDriver() error {
	for _, name := range sql.Drivers() {
		if name == driverName {
			return nil
		}
	}
	return errors.Trace(ErrMissingCapability)
}

// Changer applies the credential change over an administrative
// connection.
type Changer struct {
	params ConnParams
	auxDB  string
	open   Opener
}

// NewChanger returns a Changer that will also ensure the named
// auxiliary database exists after the credential change.
func NewChanger(params ConnParams, auxDB string) *Changer {
	return &Changer{params: params, auxDB: auxDB, open: defaultOpener}
}

// Ping opens and closes an administrative connection. Used as the
// readiness probe while the relaxed policy is active.
func (c *Changer) Ping(ctx context.Context) error {
	db, err := c.open(c.params.adminDSN())
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(db.Close())
}

// Reset changes the principal's password and ensures the auxiliary
// database exists. The password change is fatal on failure; the
// auxiliary database is best-effort and only logged. Re-running against
// an already-reset service overwrites the password and is not an error.
func (c *Changer) Reset(ctx context.Context, cred Credential) error {
	db, err := c.open(c.params.adminDSN())
	if err != nil {
		return errors.Annotatef(ErrAdminConnRefused, "connecting as %q: %v", c.params.AdminUser, err)
	}
	defer func() { _ = db.Close() }()

	// ALTER USER does not take bind parameters.
	stmt := fmt.Sprintf("ALTER USER %s PASSWORD %s",
		pq.QuoteIdentifier(cred.Principal), pq.QuoteLiteral(cred.Secret))
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return errors.Annotatef(err, "changing credential for %q", cred.Principal)
	}
	logger.Infof("credential changed for %q", cred.Principal)

	if err := c.ensureAuxDatabase(ctx, db); err != nil {
		logger.Warningf("ensuring auxiliary database %q: %v", c.auxDB, err)
	}
	return nil
}

func (c *Changer) ensureAuxDatabase(ctx context.Context, db Database) error {
	if c.auxDB == "" {
		return nil
	}
	var count int
	err := db.GetContext(ctx, &count,
		"SELECT count(*) FROM pg_database WHERE datname = $1", c.auxDB)
	if err != nil {
		return errors.Trace(err)
	}
	if count > 0 {
		return nil
	}
	stmt := fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(c.auxDB))
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return errors.Trace(err)
	}
	logger.Infof("created auxiliary database %q", c.auxDB)
	return nil
}

// Verifier proves the reset took effect end to end by connecting with
// the new credential under the secured policy.
type Verifier struct {
	params ConnParams
	open   Opener
}

// NewVerifier returns a Verifier for the given connection parameters.
func NewVerifier(params ConnParams) *Verifier {
	return &Verifier{params: params, open: defaultOpener}
}

// Ping opens and closes a connection with the credential. Used as the
// readiness probe after the secured policy is applied.
func (v *Verifier) Ping(ctx context.Context, cred Credential) error {
	db, err := v.open(v.params.credentialDSN(cred))
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(db.Close())
}

// Verify connects with the credential and runs an identity query,
// returning the reported service version.
func (v *Verifier) Verify(ctx context.Context, cred Credential) (string, error) {
	db, err := v.open(v.params.credentialDSN(cred))
	if err != nil {
		return "", errors.Annotatef(ErrVerifyFailed, "connecting as %q: %v", cred.Principal, err)
	}
	defer func() { _ = db.Close() }()

	var version string
	if err := db.GetContext(ctx, &version, "SELECT version()"); err != nil {
		return "", errors.Annotatef(ErrVerifyFailed, "querying version: %v", err)
	}
	if version == "" {
		return "", errors.Annotatef(ErrVerifyFailed, "empty version string")
	}
	logger.Infof("verified connection as %q: %s", cred.Principal, version)
	return version, nil
}

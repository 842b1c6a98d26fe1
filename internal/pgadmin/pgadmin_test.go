// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package pgadmin_test

import (
	"context"
	"database/sql"

	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/pgreset/internal/pgadmin"
)

var params = pgadmin.ConnParams{
	Host:      "localhost",
	Port:      5432,
	AdminUser: "postgres",
	AdminDB:   "postgres",
}

var cred = pgadmin.Credential{Principal: "postgres", Secret: "1"}

// fakeDB scripts statement results and records execution on the stub.
type fakeDB struct {
	stub *testing.Stub

	// auxCount is returned for the pg_database existence query.
	auxCount int
	// version is returned for the identity query.
	version string

	closed bool
}

func (f *fakeDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	f.stub.AddCall("Exec", query)
	return nil, f.stub.NextErr()
}

func (f *fakeDB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	f.stub.AddCall("Get", query)
	if err := f.stub.NextErr(); err != nil {
		return err
	}
	switch d := dest.(type) {
	case *int:
		*d = f.auxCount
	case *string:
		*d = f.version
	}
	return nil
}

func (f *fakeDB) Close() error {
	f.closed = true
	return nil
}

func opener(db *fakeDB, dsns *[]string) pgadmin.Opener {
	return func(dsn string) (pgadmin.Database, error) {
		*dsns = append(*dsns, dsn)
		return db, nil
	}
}

func failingOpener(err error) pgadmin.Opener {
	return func(dsn string) (pgadmin.Database, error) {
		return nil, err
	}
}

type changerSuite struct {
	testing.IsolationSuite

	db   *fakeDB
	dsns []string
}

var _ = gc.Suite(&changerSuite{})

func (s *changerSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.db = &fakeDB{stub: &testing.Stub{}, auxCount: 0}
	s.dsns = nil
}

func (s *changerSuite) TestDSNs(c *gc.C) {
	c.Check(pgadmin.AdminDSN(params), gc.Equals,
		"host=localhost port=5432 user=postgres dbname=postgres sslmode=disable")
	c.Check(pgadmin.CredentialDSN(params, cred), gc.Equals,
		"host=localhost port=5432 user=postgres password='1' dbname=postgres sslmode=disable")
}

func (s *changerSuite) TestDSNQuotesSecret(c *gc.C) {
	awkward := pgadmin.Credential{Principal: "postgres", Secret: `pa'ss\word`}
	c.Check(pgadmin.CredentialDSN(params, awkward), gc.Equals,
		`host=localhost port=5432 user=postgres password='pa\'ss\\word' dbname=postgres sslmode=disable`)
}

func (s *changerSuite) TestResetChangesCredentialAndCreatesAuxDB(c *gc.C) {
	changer := pgadmin.NewTestChanger(params, "testdb", opener(s.db, &s.dsns))

	err := changer.Reset(context.Background(), cred)
	c.Assert(err, jc.ErrorIsNil)

	c.Check(s.dsns, jc.DeepEquals, []string{pgadmin.AdminDSN(params)})
	s.db.stub.CheckCalls(c, []testing.StubCall{
		{FuncName: "Exec", Args: []interface{}{`ALTER USER "postgres" PASSWORD '1'`}},
		{FuncName: "Get", Args: []interface{}{"SELECT count(*) FROM pg_database WHERE datname = $1"}},
		{FuncName: "Exec", Args: []interface{}{`CREATE DATABASE "testdb"`}},
	})
	c.Check(s.db.closed, jc.IsTrue)
}

func (s *changerSuite) TestResetAuxDBAlreadyExists(c *gc.C) {
	s.db.auxCount = 1
	changer := pgadmin.NewTestChanger(params, "testdb", opener(s.db, &s.dsns))

	err := changer.Reset(context.Background(), cred)
	c.Assert(err, jc.ErrorIsNil)
	s.db.stub.CheckCallNames(c, "Exec", "Get")
}

func (s *changerSuite) TestResetConnectionRefused(c *gc.C) {
	changer := pgadmin.NewTestChanger(params, "testdb",
		failingOpener(errors.New("connection refused")))

	err := changer.Reset(context.Background(), cred)
	c.Check(err, jc.ErrorIs, pgadmin.ErrAdminConnRefused)
	c.Check(err, gc.ErrorMatches, `connecting as "postgres": connection refused: administrative connection refused`)
}

func (s *changerSuite) TestResetChangeStatementFails(c *gc.C) {
	s.db.stub.SetErrors(errors.New("syntax error"))
	changer := pgadmin.NewTestChanger(params, "testdb", opener(s.db, &s.dsns))

	err := changer.Reset(context.Background(), cred)
	c.Check(err, gc.ErrorMatches, `changing credential for "postgres": syntax error`)
	c.Check(err, gc.Not(jc.ErrorIs), pgadmin.ErrAdminConnRefused)
	c.Check(s.db.closed, jc.IsTrue)
}

func (s *changerSuite) TestResetAuxDBFailureIsBestEffort(c *gc.C) {
	// The ALTER USER succeeds; the existence query blows up.
	s.db.stub.SetErrors(nil, errors.New("boom"))
	changer := pgadmin.NewTestChanger(params, "testdb", opener(s.db, &s.dsns))

	err := changer.Reset(context.Background(), cred)
	c.Assert(err, jc.ErrorIsNil)
}

func (s *changerSuite) TestResetNoAuxDBConfigured(c *gc.C) {
	changer := pgadmin.NewTestChanger(params, "", opener(s.db, &s.dsns))

	err := changer.Reset(context.Background(), cred)
	c.Assert(err, jc.ErrorIsNil)
	s.db.stub.CheckCallNames(c, "Exec")
}

func (s *changerSuite) TestEnsureDriver(c *gc.C) {
	c.Check(pgadmin.EnsureDriver(), jc.ErrorIsNil)
}

type verifierSuite struct {
	testing.IsolationSuite

	db   *fakeDB
	dsns []string
}

var _ = gc.Suite(&verifierSuite{})

func (s *verifierSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.db = &fakeDB{stub: &testing.Stub{}, version: "PostgreSQL 16.3"}
	s.dsns = nil
}

func (s *verifierSuite) TestVerifySuccess(c *gc.C) {
	verifier := pgadmin.NewTestVerifier(params, opener(s.db, &s.dsns))

	version, err := verifier.Verify(context.Background(), cred)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(version, gc.Equals, "PostgreSQL 16.3")
	c.Check(s.dsns, jc.DeepEquals, []string{pgadmin.CredentialDSN(params, cred)})
	c.Check(s.db.closed, jc.IsTrue)
}

func (s *verifierSuite) TestVerifyConnectionFails(c *gc.C) {
	verifier := pgadmin.NewTestVerifier(params,
		failingOpener(errors.New("password authentication failed")))

	_, err := verifier.Verify(context.Background(), cred)
	c.Check(err, jc.ErrorIs, pgadmin.ErrVerifyFailed)
}

func (s *verifierSuite) TestVerifyQueryFails(c *gc.C) {
	s.db.stub.SetErrors(errors.New("terminating connection"))
	verifier := pgadmin.NewTestVerifier(params, opener(s.db, &s.dsns))

	_, err := verifier.Verify(context.Background(), cred)
	c.Check(err, jc.ErrorIs, pgadmin.ErrVerifyFailed)
	c.Check(s.db.closed, jc.IsTrue)
}

func (s *verifierSuite) TestVerifyEmptyVersion(c *gc.C) {
	s.db.version = ""
	verifier := pgadmin.NewTestVerifier(params, opener(s.db, &s.dsns))

	_, err := verifier.Verify(context.Background(), cred)
	c.Check(err, jc.ErrorIs, pgadmin.ErrVerifyFailed)
}

// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package service_test

import (
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/pgreset/internal/service"
)

type controlSuite struct {
	testing.IsolationSuite

	runner *fakeRunner
}

var _ = gc.Suite(&controlSuite{})

func (s *controlSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.runner = newFakeRunner()
}

var linuxSvc = service.Descriptor{
	Platform: service.Linux,
	Name:     "postgresql",
	DataDir:  "/var/lib/postgresql/data",
}

var windowsSvc = service.Descriptor{
	Platform: service.Windows,
	Name:     "postgresql-x64-16",
	DataDir:  `C:\Program Files\PostgreSQL\16\data`,
}

func (s *controlSuite) TestControlCommands(c *gc.C) {
	darwinSvc := service.Descriptor{Platform: service.Darwin, Name: "postgresql"}

	c.Check(service.ControlCommand(linuxSvc, "stop"), gc.Equals,
		"sudo systemctl stop postgresql")
	c.Check(service.ControlCommand(linuxSvc, "start"), gc.Equals,
		"sudo systemctl start postgresql")
	c.Check(service.ControlCommand(windowsSvc, "start"), gc.Equals,
		`net start "postgresql-x64-16"`)
	c.Check(service.ControlCommand(darwinSvc, "stop"), gc.Equals,
		"brew services stop postgresql")
}

func (s *controlSuite) TestStartSuccess(c *gc.C) {
	s.runner.respond("sudo systemctl start postgresql", 0, "", "")

	result := service.NewController(s.runner).Start(linuxSvc)
	c.Check(result.OK, jc.IsTrue)
	s.runner.stub.CheckCall(c, 0, "RunCommands", "sudo systemctl start postgresql")
}

func (s *controlSuite) TestStopFailureDoesNotError(c *gc.C) {
	s.runner.respond("sudo systemctl stop postgresql", 1, "",
		"Failed to stop postgresql.service: Access denied")

	result := service.NewController(s.runner).Stop(linuxSvc)
	c.Check(result.OK, jc.IsFalse)
	c.Check(result.Detail, gc.Matches, ".*Access denied")
}

func (s *controlSuite) TestStopAlreadyStoppedWindows(c *gc.C) {
	s.runner.respond(`net stop "postgresql-x64-16"`, 2, "",
		"The postgresql-x64-16 service is not started.")

	result := service.NewController(s.runner).Stop(windowsSvc)
	c.Check(result.OK, jc.IsTrue)
}

func (s *controlSuite) TestStartAlreadyStartedWindows(c *gc.C) {
	s.runner.respond(`net start "postgresql-x64-16"`, 2, "",
		"The requested service has already been started.")

	result := service.NewController(s.runner).Start(windowsSvc)
	c.Check(result.OK, jc.IsTrue)
}

func (s *controlSuite) TestRunnerErrorReported(c *gc.C) {
	s.runner.stub.SetErrors(errFake)

	result := service.NewController(s.runner).Start(linuxSvc)
	c.Check(result.OK, jc.IsFalse)
	c.Check(result.Detail, gc.Equals, "splat")
}

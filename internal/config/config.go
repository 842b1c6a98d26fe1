// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package config supplies the run parameters for a reset, with
// defaults matching a stock single-host installation. Values come from
// the PGRESET_* environment first; command-line flags override them.
package config

import (
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/juju/errors"
)

// Params carries everything the workflow needs to know about the
// target installation and timing.
type Params struct {
	// Host is where the service listens. The workflow is single-host;
	// anything other than a loopback name is almost certainly a
	// mistake, but is not rejected.
	Host string `env:"PGRESET_HOST" envDefault:"localhost"`

	// Port is the service's listen port.
	Port int `env:"PGRESET_PORT" envDefault:"5432"`

	// AdminUser is the administrative principal used for the
	// credential change, and the principal whose credential is reset.
	AdminUser string `env:"PGRESET_ADMIN_USER" envDefault:"postgres"`

	// AdminDB is the maintenance database to connect to.
	AdminDB string `env:"PGRESET_ADMIN_DB" envDefault:"postgres"`

	// AuxDB is created if absent after the credential change. Empty
	// disables the step.
	AuxDB string `env:"PGRESET_AUX_DB" envDefault:"testdb"`

	// Secret is the credential value being installed.
	Secret string `env:"PGRESET_SECRET" envDefault:"1"`

	// WaitTimeout bounds each poll-until-ready wait after a service
	// start.
	WaitTimeout time.Duration `env:"PGRESET_WAIT_TIMEOUT" envDefault:"30s"`
}

// FromEnv returns Params populated from the environment, with
// defaults where unset.
func FromEnv() (Params, error) {
	var p Params
	if err := env.Parse(&p); err != nil {
		return Params{}, errors.Annotate(err, "parsing environment")
	}
	return p, nil
}

// Validate returns an error for parameters no run could use.
func (p Params) Validate() error {
	if p.Host == "" {
		return errors.NotValidf("empty host")
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.NotValidf("port %d", p.Port)
	}
	if p.AdminUser == "" {
		return errors.NotValidf("empty admin user")
	}
	if p.AdminDB == "" {
		return errors.NotValidf("empty admin database")
	}
	if p.Secret == "" {
		return errors.NotValidf("empty secret")
	}
	if p.WaitTimeout <= 0 {
		return errors.NotValidf("wait timeout %v", p.WaitTimeout)
	}
	return nil
}

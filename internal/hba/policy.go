// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package hba renders pg_hba.conf authentication policies and mutates
// the on-disk file with backup and restore guarantees. The two policy
// templates are fixed-format text, deliberately free of any templating
// engine so that what gets written is auditable and diffable.
package hba

import (
	"fmt"
	"strings"
)

// Policy is a complete pg_hba.conf worth of records. A policy is a
// value: rendering it twice yields identical bytes.
type Policy struct {
	name    string
	content string
}

// Name identifies the policy in logs and reports.
func (p Policy) Name() string {
	return p.name
}

// Render returns the exact file content for the policy.
func (p Policy) Render() []byte {
	return []byte(p.content)
}

const hbaHeader = "# TYPE  DATABASE        USER            ADDRESS                 METHOD\n"

// record formats one pg_hba.conf line with the stock column layout.
// The method token is last so no line carries trailing whitespace.
func record(connType, database, user, address, method string) string {
	return fmt.Sprintf("%-8s%-16s%-16s%-24s%s\n", connType, database, user, address, method)
}

// Relaxed returns the transient policy that accepts all local and
// loopback connections without a credential check. It exists only to
// open the window in which the administrative credential change can be
// made, and must never be the terminal state of a run.
func Relaxed() Policy {
	var b strings.Builder
	b.WriteString(hbaHeader)
	b.WriteString("# Allow local connections with trust (for reset)\n")
	b.WriteString(record("local", "all", "all", "", "trust"))
	b.WriteString(record("host", "all", "all", "127.0.0.1/32", "trust"))
	b.WriteString(record("host", "all", "all", "::1/128", "trust"))
	return Policy{name: "relaxed", content: b.String()}
}

// Secured returns the durable policy requiring hashed-password
// verification for all local and loopback connections: one record for
// the named principal plus a catch-all per connection topology.
func Secured(principal string) Policy {
	var b strings.Builder
	b.WriteString(hbaHeader)
	b.WriteString("# Local connections\n")
	b.WriteString(record("local", "all", principal, "", "md5"))
	b.WriteString(record("local", "all", "all", "", "md5"))
	b.WriteString("\n# IPv4 local connections:\n")
	b.WriteString(record("host", "all", principal, "127.0.0.1/32", "md5"))
	b.WriteString(record("host", "all", "all", "127.0.0.1/32", "md5"))
	b.WriteString("\n# IPv6 local connections:\n")
	b.WriteString(record("host", "all", principal, "::1/128", "md5"))
	b.WriteString(record("host", "all", "all", "::1/128", "md5"))
	return Policy{name: "secured", content: b.String()}
}

// Package auth decides operator privilege from platform-supplied permission
// and role membership. There is no login surface; the platform is the
// identity provider.
package auth

import (
	"strings"

	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

// Checker answers privilege questions for the configured community roles.
type Checker struct {
	operatorRole string
	supportRoles []string
}

// NewChecker builds a checker from ticket configuration.
func NewChecker(cfg config.TicketConfig) *Checker {
	return &Checker{
		operatorRole: cfg.OperatorRole,
		supportRoles: cfg.SupportRoles,
	}
}

// IsOperator reports whether the member may close and manage tickets:
// administrator permission or membership in the configured operator role.
func (c *Checker) IsOperator(m platform.Member) bool {
	if m.Administrator {
		return true
	}
	return c.operatorRole != "" && hasRole(m, c.operatorRole)
}

// IsAdministrator reports administrator permission only; setup requires it.
func (c *Checker) IsAdministrator(m platform.Member) bool {
	return m.Administrator
}

// SupportRoles returns the configured support role names, used when
// provisioning ticket-channel permission overwrites.
func (c *Checker) SupportRoles() []string {
	return c.supportRoles
}

// OperatorRole returns the configured operator role name.
func (c *Checker) OperatorRole() string {
	return c.operatorRole
}

func hasRole(m platform.Member, name string) bool {
	for _, role := range m.RoleNames {
		if strings.EqualFold(role, name) {
			return true
		}
	}
	return false
}

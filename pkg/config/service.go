package config

import (
	"github.com/charmbracelet/log"

	"github.com/yurifrl/coa/pkg/remote"
	"github.com/yurifrl/coa/pkg/session"
	"github.com/yurifrl/coa/pkg/ynab"
)

// NewService builds the configured accounting service backend.
func (c *Config) NewService(logger *log.Logger) remote.Service {
	if c.Service.Backend == BackendYNAB {
		return ynab.New(c.YNAB.Token, c.YNAB.BudgetID, logger)
	}
	return remote.NewClient(c.Service.URL, logger,
		remote.WithTimeout(c.Service.Timeout),
		remote.WithSessionCookie(c.Session.Cookie),
	)
}

// TokenProvider prefers the configured token, then the environment variable.
func (c *Config) TokenProvider() session.TokenProvider {
	providers := []session.TokenProvider{session.Static(c.Session.CSRFToken)}
	if c.Session.CSRFTokenEnv != "" {
		providers = append(providers, session.FromEnv(c.Session.CSRFTokenEnv))
	}
	return session.First(providers...)
}

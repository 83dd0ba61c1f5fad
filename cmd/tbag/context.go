package main

import (
	"strings"

	"tbag/internal/config"
)

// commandContext carries lazily-loaded configuration and flag values shared
// across CLI commands.
type commandContext struct {
	apiFlag    *string
	configFlag *string

	cfg *config.Config
}

func newCommandContext(apiFlag, configFlag *string) *commandContext {
	return &commandContext{apiFlag: apiFlag, configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// ensureConfig loads the configuration once, honoring --config.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, _, _, err := config.Load(c.configPath())
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// client builds an API client against the configured daemon, honoring --api.
func (c *commandContext) client() (*apiClient, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	addr := cfg.Paths.APIBind
	if c.apiFlag != nil && strings.TrimSpace(*c.apiFlag) != "" {
		addr = strings.TrimSpace(*c.apiFlag)
	}
	return newAPIClient(addr, cfg.Paths.APIToken), nil
}

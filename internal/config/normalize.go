package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDevice()
	c.normalizeGPIO()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ProjectsDir) == "" {
		c.Paths.ProjectsDir = defaultProjectsDir
	}
	if c.Paths.ProjectsDir, err = expandPath(c.Paths.ProjectsDir); err != nil {
		return fmt.Errorf("paths.projects_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ComponentsDir) == "" {
		c.Paths.ComponentsDir = defaultComponentsDir
	}
	if c.Paths.ComponentsDir, err = expandPath(c.Paths.ComponentsDir); err != nil {
		return fmt.Errorf("paths.components_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeDevice() {
	c.Device.ID = strings.TrimSpace(c.Device.ID)
	if c.Device.ID == "" {
		c.Device.ID = defaultDeviceID
	}
	if c.Device.PresenceTimeoutSec <= 0 {
		c.Device.PresenceTimeoutSec = defaultPresenceTimeout
	}
}

func (c *Config) normalizeGPIO() {
	c.GPIO.Driver = strings.ToLower(strings.TrimSpace(c.GPIO.Driver))
	if c.GPIO.Driver == "" {
		c.GPIO.Driver = defaultGPIODriver
	}
	c.GPIO.Chip = strings.TrimSpace(c.GPIO.Chip)
	if c.GPIO.Chip == "" {
		c.GPIO.Chip = defaultGPIOChip
	}
	c.GPIO.Consumer = strings.TrimSpace(c.GPIO.Consumer)
	if c.GPIO.Consumer == "" {
		c.GPIO.Consumer = defaultGPIOConsumer
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.ClaimRetryLimit <= 0 {
		c.Workflow.ClaimRetryLimit = defaultClaimRetryLimit
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

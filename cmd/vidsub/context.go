package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"vidsub/internal/config"
)

// offlineKey marks commands that run without loading config.toml.
const offlineKey = "vidsub.offline"

func offline() map[string]string {
	return map[string]string{offlineKey: "true"}
}

func isOffline(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[offlineKey] == "true" {
			return true
		}
	}
	return false
}

// commandContext carries the persistent flags and the config they select.
// The config is loaded at most once per invocation.
type commandContext struct {
	configPath string
	apiAddr    string

	load sync.Once
	cfg  *config.Config
	err  error
}

func (c *commandContext) loadConfig() (*config.Config, error) {
	c.load.Do(func() {
		c.cfg, _, _, c.err = config.Load(strings.TrimSpace(c.configPath))
	})
	return c.cfg, c.err
}

// serveConfig is loadConfig with --api, when given, replacing paths.api_bind.
func (c *commandContext) serveConfig() (*config.Config, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if addr := strings.TrimSpace(c.apiAddr); addr != "" {
		cfg.Paths.APIBind = addr
	}
	return cfg, nil
}

// client returns an API client for --api, falling back to paths.api_bind.
func (c *commandContext) client() (*apiClient, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	addr := strings.TrimSpace(c.apiAddr)
	if addr == "" {
		addr = cfg.Paths.APIBind
	}
	return newAPIClient(addr, cfg.Paths.APIToken), nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

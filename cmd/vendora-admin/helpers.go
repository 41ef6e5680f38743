package main

import (
	"fmt"
	"os"

	adminchat "github.com/vendora-hq/adminchat-go"
)

// resolvedConfig merges the config file with environment overrides.
// VENDORA_ADMIN_TOKEN, VENDORA_ADMIN_BASE_URL and VENDORA_ADMIN_REALTIME_URL
// win over the file, which suits CI and throwaway sessions.
func resolvedConfig() (*Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if v := os.Getenv("VENDORA_ADMIN_TOKEN"); v != "" {
		cfg.Auth.Token = v
	}
	if v := os.Getenv("VENDORA_ADMIN_BASE_URL"); v != "" {
		cfg.Default.BaseURL = v
	}
	if v := os.Getenv("VENDORA_ADMIN_REALTIME_URL"); v != "" {
		cfg.Default.RealtimeURL = v
	}
	return cfg, nil
}

// getClient creates an authenticated admin client from the resolved config.
func getClient() (*adminchat.Client, *Config) {
	cfg, err := resolvedConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Auth.Token == "" {
		fmt.Fprintln(os.Stderr, "No auth token. Run 'vendora-admin config set auth.token <token>' or set VENDORA_ADMIN_TOKEN.")
		os.Exit(1)
	}

	var opts []adminchat.ClientOption
	if cfg.Default.BaseURL != "" {
		opts = append(opts, adminchat.WithBaseURL(cfg.Default.BaseURL))
	}
	if cfg.Default.RealtimeURL != "" {
		opts = append(opts, adminchat.WithRealtimeURL(cfg.Default.RealtimeURL))
	}

	return adminchat.NewClient(cfg.Auth.Token, opts...), cfg
}

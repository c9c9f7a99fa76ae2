// Package secrets resolves sensitive console settings from Doppler, falling
// back to the process environment.
package secrets

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Source resolves a secret by key
type Source interface {
	Lookup(key string) (string, error)
}

// Runner executes the doppler CLI and returns its stdout
type Runner func(ctx context.Context, args ...string) ([]byte, error)

// DopplerClient provides access to secrets stored in Doppler
type DopplerClient struct {
	Project string
	Config  string

	run       Runner
	available bool
}

// NewDopplerClient creates a new Doppler client. The CLI is only consulted when
// it is installed; otherwise every lookup falls through to the environment.
func NewDopplerClient(project, config string) *DopplerClient {
	_, err := exec.LookPath("doppler")
	return &DopplerClient{
		Project:   project,
		Config:    config,
		run:       execRunner,
		available: err == nil,
	}
}

// NewDopplerClientWithRunner creates a client that shells out through run
func NewDopplerClientWithRunner(project, config string, run Runner) *DopplerClient {
	return &DopplerClient{Project: project, Config: config, run: run, available: true}
}

func execRunner(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "doppler", args...).Output()
}

// Available reports whether the Doppler CLI can be used
func (d *DopplerClient) Available() bool {
	return d.available
}

// Lookup retrieves a secret. The environment wins so `doppler run` and local
// .env files behave the same.
func (d *DopplerClient) Lookup(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	if !d.available {
		return "", fmt.Errorf("secret %s not set and doppler CLI not available", key)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := d.run(ctx, "secrets", "get", key,
		"--project", d.Project,
		"--config", d.Config,
		"--plain")
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", key, err)
	}

	return strings.TrimSpace(string(output)), nil
}

// GetSecretWithFallback gets a secret with a fallback value
func (d *DopplerClient) GetSecretWithFallback(key, fallback string) string {
	value, err := d.Lookup(key)
	if err != nil || value == "" {
		return fallback
	}
	return value
}

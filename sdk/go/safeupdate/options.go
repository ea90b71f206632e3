package safeupdate

import "log/slog"

// Option configures a Client at creation time.
type Option func(*clientConfig)

type clientConfig struct {
	policyPath   string
	policy       *Config
	auditLogPath string
	logger       *slog.Logger
}

// WithPolicyFile loads the initial policy from a YAML file.
func WithPolicyFile(path string) Option {
	return func(c *clientConfig) { c.policyPath = path }
}

// WithPolicy sets the initial policy directly. It wins over WithPolicyFile.
func WithPolicy(cfg Config) Option {
	return func(c *clientConfig) { c.policy = &cfg }
}

// WithAuditLog records every decision to a hash-chained JSONL file.
func WithAuditLog(path string) Option {
	return func(c *clientConfig) { c.auditLogPath = path }
}

// WithLogger sets the logger for rejections and audit failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}

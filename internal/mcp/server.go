// Package mcp exposes guarded collection updates as MCP tools over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/safeupdate/internal/audit"
	"github.com/ppiankov/safeupdate/internal/docstore"
	"github.com/ppiankov/safeupdate/internal/guard"
	"github.com/ppiankov/safeupdate/internal/policy"
)

// Version is reported to MCP clients.
var Version = "dev"

// Config holds MCP server configuration.
type Config struct {
	PolicyPath   string
	DBPath       string
	AuditLogPath string
	Logger       *slog.Logger
}

// Server wraps the MCP SDK server with guarded access to a docstore.
type Server struct {
	mcpServer *mcpsdk.Server
	guard     *guard.Guard
	db        *docstore.DB
	auditLog  *audit.Log
	logger    *slog.Logger
}

// New creates an MCP server with the loaded policy, database and tools.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DBPath == "" {
		cfg.DBPath = ":memory:"
	}

	policyCfg, policyHash, err := policy.LoadConfigWithHash(cfg.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy config: %w", err)
	}
	for _, w := range policyCfg.Validate() {
		cfg.Logger.Warn("policy warning", "warning", w)
	}
	store := policy.NewStore(nil)
	store.SetWithHash(policyCfg, policyHash)

	db, err := docstore.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	var auditLog *audit.Log
	if cfg.AuditLogPath != "" {
		auditLog, err = audit.Open(cfg.AuditLogPath)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
	}

	s := &Server{
		guard: guard.New(guard.Config{
			Policy:   store,
			Logger:   cfg.Logger,
			AuditLog: auditLog,
		}),
		db:       db,
		auditLog: auditLog,
		logger:   cfg.Logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "safeupdate",
			Version: Version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close closes the database and the audit log if configured.
func (s *Server) Close() error {
	err := s.db.Close()
	if s.auditLog != nil {
		err = errors.Join(err, s.auditLog.Close())
	}
	return err
}

// registerTools adds all safeupdate tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "safeupdate_update",
		Description: "Update documents in a collection. Empty selectors and modifiers without $-operators are rejected unless the matching option is set.",
	}, s.handleUpdate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "safeupdate_check",
		Description: "Check whether an update would be accepted without running it (dry-run).",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "safeupdate_find",
		Description: "Find documents in a collection matching a selector.",
	}, s.handleFind)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "safeupdate_policy",
		Description: "Show the active collection policy and its hash.",
	}, s.handlePolicy)
}

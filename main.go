package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/kestrel-data/resolve-engine/pkg/adapters/datasource"
	"github.com/kestrel-data/resolve-engine/pkg/adapters/datasource/mssql"
	"github.com/kestrel-data/resolve-engine/pkg/adapters/datasource/postgres"
	"github.com/kestrel-data/resolve-engine/pkg/config"
	"github.com/kestrel-data/resolve-engine/pkg/handlers"
	"github.com/kestrel-data/resolve-engine/pkg/logging"
	"github.com/kestrel-data/resolve-engine/pkg/mcp"
	"github.com/kestrel-data/resolve-engine/pkg/mcp/tools"
	"github.com/kestrel-data/resolve-engine/pkg/resolver"
	"github.com/kestrel-data/resolve-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("datasource_type", cfg.Datasource.Type),
		zap.String("datasource", fmt.Sprintf("%s@%s:%d/%s",
			cfg.Datasource.User, cfg.Datasource.Host, cfg.Datasource.Port, cfg.Datasource.Database)))

	res := resolver.New(cfg.Resolver, resolver.NewUserPreferenceStore(), logger)
	onboarding := services.NewOnboardingService(cfg, res, newReaderFactory(cfg, logger), logger)

	mcpServer := mcp.NewServer("resolve-engine", cfg.Version, logger)
	tools.RegisterResolveTools(mcpServer.MCP(), &tools.ResolveToolDeps{
		Resolver: res,
		Logger:   logger,
	})
	tools.RegisterOnboardTool(mcpServer.MCP(), &tools.OnboardToolDeps{
		Onboarding: onboarding,
		Logger:     logger,
	})
	tools.RegisterHealthTool(mcpServer.MCP(), cfg.Version, res)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, res, logger).RegisterRoutes(mux)
	handlers.NewMCPHandler(mcpServer, logger).RegisterRoutes(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting resolve-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// newReaderFactory returns a factory that opens a schema reader for the
// configured datasource type. Each onboarding run gets a fresh
// connection, closed when the run finishes.
func newReaderFactory(cfg *config.Config, logger *zap.Logger) services.ReaderFactory {
	return func(ctx context.Context) (datasource.SchemaReader, error) {
		switch cfg.Datasource.Type {
		case "postgres":
			return postgres.NewSchemaReader(ctx, cfg.Datasource.ConnectionString(), cfg.Datasource.Schema, logger)
		case "mssql":
			return mssql.NewSchemaReader(ctx, cfg.Datasource.ConnectionString(), cfg.Datasource.Schema, logger)
		default:
			return nil, fmt.Errorf("unsupported datasource type %q", cfg.Datasource.Type)
		}
	}
}

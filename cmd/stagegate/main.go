package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/deploykit/stagegate/internal/audit"
	"github.com/deploykit/stagegate/internal/auth"
	"github.com/deploykit/stagegate/internal/authz"
	"github.com/deploykit/stagegate/internal/config"
	"github.com/deploykit/stagegate/internal/domain"
	"github.com/deploykit/stagegate/internal/lifecycle"
	"github.com/deploykit/stagegate/internal/server"
	"github.com/deploykit/stagegate/internal/storage/sqlite"
	"github.com/deploykit/stagegate/internal/tag"
	"github.com/deploykit/stagegate/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize OpenTelemetry
	shutdown, err := telemetry.InitTracer("stagegate", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	store, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to open stage store: %v", err)
	}
	defer store.Close()

	tokens := make([]auth.TokenEntry, len(cfg.Auth.Tokens))
	for i, t := range cfg.Auth.Tokens {
		tokens[i] = auth.TokenEntry{TokenHash: t.TokenHash, Principal: t.Principal}
	}
	resolver := auth.NewResolver(tokens)

	grants := make([]authz.Grant, len(cfg.Authz.Grants))
	for i, g := range cfg.Authz.Grants {
		grants[i] = authz.Grant{
			Principal: g.Principal,
			Resource:  g.Resource,
			Type:      resourceType(g.Type),
			Role:      domainRole(g.Role),
		}
	}
	authorizer := authz.New(grants)

	manager := lifecycle.NewManager(
		store,
		authorizer,
		audit.NewRecorder(store, logger),
		tag.NewHandler(store, logger),
		logger,
	)

	srv := server.New(cfg.Server.Port, logger, resolver, manager)
	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// resourceType maps a config token to a resource type, defaulting to ENV.
func resourceType(s string) domain.ResourceType {
	if s == string(domain.ResourceTypeSystem) {
		return domain.ResourceTypeSystem
	}
	return domain.ResourceTypeEnv
}

// domainRole maps a config token to a role, defaulting to READER.
func domainRole(s string) domain.Role {
	switch domain.Role(s) {
	case domain.RoleOperator:
		return domain.RoleOperator
	case domain.RoleAdmin:
		return domain.RoleAdmin
	}
	return domain.RoleReader
}

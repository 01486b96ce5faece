package main

import (
	"context"
	"flag"
	"log"

	"gorm.io/driver/postgres"

	"github.com/sparkyhq/sparky/internal/ai"
	"github.com/sparkyhq/sparky/internal/config"
	"github.com/sparkyhq/sparky/internal/event"
	"github.com/sparkyhq/sparky/internal/mirror"
	"github.com/sparkyhq/sparky/internal/model"
	"github.com/sparkyhq/sparky/internal/server"
	"github.com/sparkyhq/sparky/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Config file path (default ~/.config/sparky/config.toml)")
	httpAddr := flag.String("http", "", "HTTP/WebSocket listen address")
	statePath := flag.String("state", "", "Local state file path")
	dbDSN := flag.String("db", "", "Remote store DSN (or set SPARKY_DB_DSN)")
	userID := flag.String("user", "", "Authenticated user id for remote mirroring (or set SPARKY_USER_ID)")
	openaiKey := flag.String("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY)")
	flag.Parse()

	if *configPath == "" {
		path, err := config.DefaultPath()
		if err != nil {
			log.Fatalf("[Main] Failed to resolve config path: %v", err)
		}
		*configPath = path
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[Main] Failed to load config: %v", err)
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if *statePath != "" {
		cfg.StateFile = *statePath
	}
	if *dbDSN != "" {
		cfg.Remote.DSN = *dbDSN
	}
	if *userID != "" {
		cfg.Remote.UserID = *userID
	}
	if *openaiKey != "" {
		cfg.AI.OpenAIKey = *openaiKey
	}

	// Remote mirroring only with both connection settings and a session
	var replicator store.Replicator
	if cfg.Remote.DSN != "" && cfg.Remote.UserID != "" {
		m, err := mirror.New(postgres.Open(cfg.Remote.DSN), cfg.Remote.UserID)
		if err != nil {
			log.Printf("[Main] Remote mirror unavailable, continuing local-only: %v", err)
		} else {
			replicator = m
		}
	} else {
		log.Println("[Main] Remote connection settings missing, using local storage only")
	}

	bus := event.NewBus()
	st := store.New(cfg.StateFile, replicator, bus)

	ctx := context.Background()
	if err := st.Load(ctx); err != nil {
		log.Fatalf("[Main] Failed to load state: %v", err)
	}

	// Provider config from the file wins over the rehydrated one
	if appCfg := cfg.AppConfig(); len(cfg.AI.Providers) > 0 {
		if err := st.UpdateConfig(store.ConfigPatch{
			ActiveProvider: &appCfg.ActiveProvider,
			Providers:      appCfg.Providers,
		}); err != nil {
			log.Fatalf("[Main] Invalid provider config: %v", err)
		}
	}

	assembler := ai.NewAssembler(st, ai.NewOpenAIProvider(cfg.AI.OpenAIKey))

	// Reload provider config when the file changes on disk
	mgr, err := config.NewManager(*configPath, func(appCfg model.AppConfig) {
		if err := st.UpdateConfig(store.ConfigPatch{
			ActiveProvider: &appCfg.ActiveProvider,
			Providers:      appCfg.Providers,
		}); err != nil {
			log.Printf("[Main] Rejected provider config reload: %v", err)
		}
	})
	if err != nil {
		log.Printf("[Main] Config watching disabled: %v", err)
	} else {
		defer mgr.Stop()
	}

	srv := server.New(cfg.HTTPAddr, st, assembler, bus)
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// Package main provides the bot server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/vctrack/internal/api/connect"
	"github.com/osa030/vctrack/internal/api/discord"
	"github.com/osa030/vctrack/internal/app/session"
	"github.com/osa030/vctrack/internal/app/session/state"
	"github.com/osa030/vctrack/internal/infra/config"
	"github.com/osa030/vctrack/internal/infra/logger"
	"github.com/osa030/vctrack/internal/infra/redis"
	"github.com/osa030/vctrack/internal/infra/system"
)

var (
	app        = kingpin.New("vctrack-server", "Voice channel time tracking bot")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-commands command
	listCommandsCmd = app.Command("list-commands", "List the slash commands and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the bot (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listCommandsCmd.FullCommand() {
		printCommands()
		return
	}

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	discord.BridgeLogger()

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	dg, err := discord.NewSession(cfg)
	if err != nil {
		return err
	}

	var opts []session.Option
	if cfg.RedisEnabled() {
		sink := redis.NewReportSink(cfg.Redis)
		defer func() {
			if err := sink.Close(); err != nil {
				zlog.Warn().Msgf("Failed to close redis client: %v", err)
			}
		}()
		if err := sink.Ping(ctx); err != nil {
			zlog.Warn().Msgf("Redis unavailable, reports will not be published until it recovers: %v", err)
		}
		opts = append(opts, session.WithReportSink(sink))
		zlog.Info().Msgf("Report sink enabled: addr=%s channel=%s", cfg.Redis.Addr, cfg.Redis.Channel)
	}

	presence := discord.NewPresence(dg, cfg.Discord.GuildID)
	sessionMgr := session.NewManager(cfg, presence, opts...)
	bot := discord.NewBot(dg, cfg, sessionMgr)

	// Admin API
	adminService := apiconnect.NewAdminService(sessionMgr, cfg.Admin.Token, system.Collect)
	adminPath, adminHandler := apiconnect.NewAdminServiceHandler(adminService)

	mux := http.NewServeMux()
	mux.Handle(adminPath, adminHandler)

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:              cfg.Admin.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting admin server: addr=%s", cfg.Admin.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	if err := bot.Open(); err != nil {
		shutdown(server, adminService)
		return err
	}
	zlog.Info().Msgf("Bot connected: guild_id=%s target_channel_id=%s", cfg.Discord.GuildID, cfg.Discord.TargetChannelID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		runErr = errors.Wrap(err, "admin server error")
	}

	// Sessions are not persisted; an active one is lost on shutdown
	if st := sessionMgr.Status(ctx); st.Phase == state.PhaseActive {
		zlog.Warn().Msgf("Discarding active session: session_id=%s tracked=%d", st.SessionID, len(st.Users))
	}

	if err := bot.Close(); err != nil {
		zlog.Error().Msgf("Failed to close discord session: %v", err)
	}
	shutdown(server, adminService)

	// Let in-flight reports reach the sink before it is closed
	sessionMgr.Drain()

	zlog.Info().Msg("Server stopped")
	return runErr
}

// shutdown closes open admin streams and stops the HTTP server.
func shutdown(server *http.Server, adminService *apiconnect.AdminService) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	adminService.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}
}

// printCommands prints the slash commands registered by the bot.
func printCommands() {
	fmt.Println("Slash Commands:")
	for _, cmd := range discord.Commands() {
		var opts []string
		for _, o := range cmd.Options {
			name := o.Name
			if !o.Required {
				name += "?"
			}
			opts = append(opts, name)
		}
		fmt.Printf("  /%-15s - %s [options: %s]\n", cmd.Name, cmd.Description, strings.Join(opts, ", "))
	}
}

package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/trendgal/internal/bot"
	"github.com/raine/trendgal/internal/config"
	"github.com/raine/trendgal/internal/fashion"
	"github.com/raine/trendgal/internal/server"
	"github.com/raine/trendgal/internal/service"
	"github.com/raine/trendgal/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const logFileName = "trendgal.log"

var rootCmd = &cobra.Command{
	Use:          "trendgal",
	Short:        "Detects fashion items in outfit photos and recommends similar products",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadEnvFile()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, and the Telegram bot when BOT_TOKEN is set",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides LISTEN_ADDR)")
	serveCmd.Flags().String("db", "", "run history database path (overrides DB_PATH)")
	rootCmd.AddCommand(serveCmd, analyzeCmd)
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging logs to stderr, plus a log file unless running under systemd
// (JOURNAL_STREAM set), where journald keeps the logs. The returned function
// closes the file.
func setupLogging() (func(), error) {
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		return func() {}, nil
	}

	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
	fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
	log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))
	log.Info().Str("logFile", logFileName).Msg("logging to file")
	return func() { logFile.Close() }, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Load()
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.ListenAddr = addr
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.DBPath = db
	}
	if missing := cfg.Missing(); len(missing) > 0 {
		return nil, errors.New("missing required config: " + strings.Join(missing, ", "))
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	closeLog, err := setupLogging()
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Info().Str("dbPath", cfg.DBPath).Msg("run history store initialized")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	components, err := service.Build(ctx, cfg, store)
	if err != nil {
		return err
	}

	srv := server.New(server.Options{
		Pipeline:       components.Service,
		Vision:         components.Vision,
		History:        store,
		Metrics:        components.Metrics.Handler(),
		DefaultPersona: fashion.PersonaID(cfg.DefaultPersona),
	})

	var b *bot.Bot
	var tg *tgbotapi.BotAPI
	if cfg.BotToken != "" {
		tg, err = tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			return err
		}
		tg.Debug = false
		log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")
		bot.RegisterCommands(tg)
		b = bot.NewBot(tg, components.Service, store, fashion.PersonaID(cfg.DefaultPersona))
	} else {
		log.Info().Msg("BOT_TOKEN not set, telegram bot disabled")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(ctx, cfg.ListenAddr)
	})
	if b != nil {
		g.Go(func() error {
			return runBot(ctx, tg, b)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
		return err
	}
	log.Info().Msg("shutdown complete")
	return nil
}

func runBot(ctx context.Context, tg *tgbotapi.BotAPI, b *bot.Bot) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := tg.GetUpdatesChan(updateConfig)

	var wg sync.WaitGroup
	defer b.Shutdown()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping bot update loop")
			tg.StopReceivingUpdates()
			wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				log.Warn().Msg("updates channel closed")
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}

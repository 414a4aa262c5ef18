package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/decktable/decktable-go/internal/config"
	"github.com/decktable/decktable-go/internal/deck"
	"github.com/decktable/decktable-go/internal/localstore"
	"github.com/decktable/decktable-go/internal/room"
	"github.com/decktable/decktable-go/internal/session"
	"github.com/decktable/decktable-go/internal/transport"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	roomCode   = flag.String("room", "", "room code to join; empty hosts a new room")
	playerName = flag.String("name", "Player", "display name")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting decktable client",
		zap.String("version", version),
		zap.String("transport", cfg.Transport.Kind),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	local, err := localstore.Open(cfg.LocalStore.Path)
	if err != nil {
		logger.Fatal("failed to open local store", zap.Error(err))
	}
	defer local.Close()

	store, err := newStore(ctx, cfg.Transport, logger)
	if err != nil {
		logger.Fatal("failed to connect transport", zap.Error(err))
	}

	sess := session.New(store, deck.NewMemoryCatalog(), logNotifier{logger: logger}, logger, session.Options{
		PollInterval: cfg.Session.PollInterval,
	})

	if *roomCode == "" {
		code, hostErr := sess.Host(ctx, *playerName)
		if hostErr != nil {
			logger.Fatal("failed to host room", zap.Error(hostErr))
		}
		logger.Info("room ready", zap.String("room", code))
	} else {
		if joinErr := sess.Join(ctx, *roomCode, *playerName); joinErr != nil {
			logger.Fatal("failed to join room", zap.Error(joinErr))
		}
	}

	if saveErr := local.SetPlayerID(sess.PlayerID); saveErr != nil {
		logger.Warn("failed to persist player id", zap.Error(saveErr))
	}

	go sess.Run(ctx)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	cancel()
	sess.Leave()

	logger.Info("decktable client stopped")
}

// newStore builds the document store adapter selected by configuration.
func newStore(ctx context.Context, cfg config.TransportConfig, logger *zap.Logger) (transport.Store, error) {
	switch cfg.Kind {
	case "redis":
		return transport.NewRedisStore(ctx, cfg.RedisAddr, logger)
	case "ws":
		return transport.NewWSStore(ctx, cfg.RelayURL, logger)
	default:
		return transport.NewMemoryStore(), nil
	}
}

// logNotifier prints the engine's notifications; a real UI would re-render.
type logNotifier struct {
	logger *zap.Logger
}

func (n logNotifier) LogEntry(text string, kind session.LogKind) {
	n.logger.Info(text, zap.String("kind", string(kind)))
}

func (n logNotifier) StateChanged() {}

func (n logNotifier) BigReveal(ev room.RevealEvent) {
	n.logger.Info("reveal",
		zap.String("player", ev.PlayerName),
		zap.String("action", string(ev.Action)),
		zap.Int("cards", len(ev.Cards)),
	)
}

func (n logNotifier) EffectRequest(req *session.PendingRequest) {
	n.logger.Info("incoming effect request",
		zap.String("from", req.RequesterName()),
		zap.String("action", string(req.Event.Action)),
	)
}

func (n logNotifier) EffectResponse(ev room.RevealEvent) {
	n.logger.Info("effect response",
		zap.String("from", ev.PlayerName),
		zap.String("action", string(ev.Action)),
	)
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

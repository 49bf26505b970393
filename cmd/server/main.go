package main

import (
	"context"
	"fmt"
	"math/rand"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/textordeath/server/internal/bot"
	"github.com/textordeath/server/internal/config"
	"github.com/textordeath/server/internal/game"
	"github.com/textordeath/server/internal/registry"
	"github.com/textordeath/server/internal/server"
	"github.com/textordeath/server/internal/words"
)

const releaseVersion = "0.1.0"

func newCmd(cfg *config.Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TEXTORDEATH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "textordeath-server",
		Short:         "Coordinator for the Text or Death last-player-standing typing contest.",
		Args:          cobra.ExactArgs(0),
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: TEXTORDEATH_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8888, "TCP port for game clients (env: TEXTORDEATH_PORT)")
	fs.IntVar(&cfg.AdminPort, "admin-port", 8889, "HTTP port for the admin api (env: TEXTORDEATH_ADMIN_PORT)")
	fs.IntVar(&cfg.MaxPlayers, "max-players", 4, "registry capacity (env: TEXTORDEATH_MAX_PLAYERS)")
	fs.DurationVar(&cfg.TypingTimeLimit, "typing-time-limit", 10*time.Second, "per-round typing deadline (env: TEXTORDEATH_TYPING_TIME_LIMIT)")
	fs.DurationVar(&cfg.RoundPause, "round-pause", 2*time.Second, "pause between rounds (env: TEXTORDEATH_ROUND_PAUSE)")
	fs.BoolVar(&cfg.BotFill, "bot-fill", true, "fill the lobby with bots for the reserved player name (env: TEXTORDEATH_BOT_FILL)")
	fs.StringVar(&cfg.WordDir, "word-dir", "", "directory with words_<tier>.json files to merge (env: TEXTORDEATH_WORD_DIR)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "enable debug logging (env: TEXTORDEATH_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("textordeath-server v{{.Version}}\n")

	return cmd
}

func run(parent context.Context, cfg *config.Config) error {
	log, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The word source and the bot driver run on different goroutines,
	// so each gets its own rng.
	seed := time.Now().UnixNano()

	source := words.NewListSource(rand.New(rand.NewSource(seed)))
	if cfg.WordDir != "" {
		if err := source.LoadCustom(cfg.WordDir); err != nil {
			return fmt.Errorf("load custom words: %w", err)
		}
	}

	reg := registry.New(cfg.MaxPlayers)
	driver := bot.New(rand.New(rand.NewSource(seed+1)), log)
	coord := game.New(game.Config{
		TypingTimeLimit: cfg.TypingTimeLimit,
		RoundPause:      cfg.RoundPause,
		BotFill:         cfg.BotFill,
	}, reg, source, driver, log)

	srv := server.New(cfg.Addr(), cfg.AdminAddr(), reg, coord, log)
	return srv.Run(ctx)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	_ = godotenv.Load()

	cfg := &config.Config{}
	cobra.CheckErr(newCmd(cfg).ExecuteContext(context.Background()))
}

package main

import (
	"fmt"
	"math/rand"
	"time"

	"bigtwo/internal/app"
	"bigtwo/internal/bot"
	"bigtwo/internal/config"
	"bigtwo/internal/logging"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// runtimeEnv is what every subcommand needs after the root pre-run.
type runtimeEnv struct {
	configPath string
	name       string
	logLevel   string

	cfg    *config.Config
	logger *logging.Logger
}

func newRootCmd() *cobra.Command {
	env := &runtimeEnv{}

	root := &cobra.Command{
		Use:           "bigtwo",
		Short:         "Four-player Big Two card game",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return env.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if env.logger != nil {
				_ = env.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&env.configPath, "config", "", "path to a TOML config file")
	flags.StringVar(&env.name, "name", "", "player name (overrides player.name)")
	flags.StringVar(&env.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newSoloCmd(env),
		newHostCmd(env),
		newJoinCmd(env),
		newVersionCmd(),
	)
	return root
}

func (e *runtimeEnv) load() error {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return err
	}
	if e.name != "" {
		cfg.Player.Name = e.name
	}
	if e.logLevel != "" {
		cfg.Log.Level = e.logLevel
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.logger = logger.WithField("player", cfg.Player.Name).(*logging.Logger)
	return nil
}

// newGame builds a table from the game section.
func (e *runtimeEnv) newGame(autoFill bool) *app.Game {
	seed := e.cfg.Game.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return app.NewGame(
		app.WithRand(rand.New(rand.NewSource(seed))),
		app.WithLogger(e.logger),
		app.WithAutoFill(autoFill),
	)
}

// newAgent creates the AI driver for local AI seats. The returned closer
// releases strategy resources.
func (e *runtimeEnv) newAgent() (*bot.Agent, func(), error) {
	strategy, err := bot.NewStrategy(e.cfg.Game.Strategy, e.cfg.Game.LuaScript)
	if err != nil {
		return nil, nil, err
	}
	agent := bot.NewAgent(strategy, e.cfg.GetAIDelay(), e.logger)
	closeFn := func() {
		agent.Stop()
		if c, ok := strategy.(interface{ Close() }); ok {
			c.Close()
		}
	}
	return agent, closeFn, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "bigtwo %s\n", version)
			return err
		},
	}
}

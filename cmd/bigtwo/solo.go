package main

import (
	"fmt"
	"strconv"

	"bigtwo/internal/app"
	"bigtwo/internal/domain"

	"github.com/spf13/cobra"
)

func newSoloCmd(env *runtimeEnv) *cobra.Command {
	var (
		aiCount  int
		strategy string
		seed     int64
	)

	cmd := &cobra.Command{
		Use:   "solo",
		Short: "Play against AI opponents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if aiCount < 1 || aiCount > app.MaxPlayers-1 {
				return fmt.Errorf("--ai must be between 1 and %d", app.MaxPlayers-1)
			}
			if cmd.Flags().Changed("strategy") {
				env.cfg.Game.Strategy = strategy
			}
			if cmd.Flags().Changed("seed") {
				env.cfg.Game.Seed = seed
			}

			g, err := soloTable(env, aiCount)
			if err != nil {
				return err
			}
			agent, closeAgent, err := env.newAgent()
			if err != nil {
				return err
			}
			defer closeAgent()
			g.AddListener(agent)

			self := env.cfg.Player.Name
			c := newConsole(g, self, localActions{game: g, name: self}, cmd.OutOrStdout())
			return c.Run(cmd.Context(), cmd.InOrStdin())
		},
	}

	cmd.Flags().IntVar(&aiCount, "ai", app.MaxPlayers-1, "number of AI opponents")
	cmd.Flags().StringVar(&strategy, "strategy", "", "AI strategy: simple, smart or lua")
	cmd.Flags().Int64Var(&seed, "seed", 0, "shuffle seed, 0 for random")
	return cmd
}

// soloTable seats the local player and n AI players. A full table is left
// to the engine, which fills the empty seats at start.
func soloTable(env *runtimeEnv, n int) (*app.Game, error) {
	full := n == app.MaxPlayers-1
	g := env.newGame(full)
	if err := g.AddPlayer(domain.NewPlayer(env.cfg.Player.Name, true)); err != nil {
		return nil, err
	}
	if full {
		return g, nil
	}
	for i := 1; i <= n; i++ {
		if err := g.AddPlayer(domain.NewPlayer(app.AIPlayerNamePrefix+strconv.Itoa(i), false)); err != nil {
			return nil, err
		}
	}
	return g, nil
}

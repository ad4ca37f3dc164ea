package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"bigtwo/internal/app"
	"bigtwo/internal/config"
	"bigtwo/internal/session"
	"bigtwo/internal/transport"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newHostCmd(env *runtimeEnv) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "host",
		Short: "Host a networked game",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("listen") {
				env.cfg.Network.Listen = listen
			}
			return runHost(cmd.Context(), env, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides network.listen)")
	return cmd
}

func newJoinCmd(env *runtimeEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "join <addr>",
		Short: "Join a hosted game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJoin(cmd.Context(), env, args[0], cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func sessionConfig(cfg *config.Config, role session.Role) session.Config {
	return session.Config{
		Role:         role,
		Name:         cfg.Player.Name,
		JoinWindow:   cfg.GetJoinWindow(),
		JoinAttempts: cfg.Network.JoinAttempts,
		JoinDelay:    cfg.GetJoinDelay(),
	}
}

func openListener(cfg *config.Config, env *runtimeEnv) (net.Listener, error) {
	if cfg.Network.Transport == config.TransportWebSocket {
		return transport.ListenWebSocket(cfg.Network.Listen, cfg.Network.WSPath, env.logger)
	}
	return net.Listen("tcp", cfg.Network.Listen)
}

// hostSession seats the host at an authoritative table. AI players never
// fill a networked table; every other seat comes from an explicit join.
func hostSession(ctx context.Context, env *runtimeEnv, hooks session.Hooks) (*app.Game, *session.Coordinator, error) {
	g := env.newGame(false)
	coord, err := session.New(ctx, sessionConfig(env.cfg, session.RoleHost), g, env.logger, hooks)
	if err != nil {
		return nil, nil, err
	}
	return g, coord, nil
}

func runHost(ctx context.Context, env *runtimeEnv, in io.Reader, out io.Writer) error {
	cfg := env.cfg

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var c *console
	g, coord, err := hostSession(ctx, env, chatHooks(&c))
	if err != nil {
		return err
	}

	agent, closeAgent, err := env.newAgent()
	if err != nil {
		return err
	}
	defer closeAgent()
	g.AddListener(agent)

	mgr := transport.NewManager(cfg.TransportConfig(), coord, transport.WithLogger(env.logger))
	defer mgr.Close()
	coord.Bind(mgr)

	ln, err := openListener(cfg, env)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Network.Listen, err)
	}

	c = newConsole(g, cfg.Player.Name, coord, out)
	c.printf("Hosting on %s (%s) as %s. Type 'start' when everyone has joined.", ln.Addr(), cfg.Network.Transport, cfg.Player.Name)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return mgr.Serve(ctx, ln)
	})
	eg.Go(func() error {
		defer cancel()
		return c.Run(ctx, in)
	})
	return eg.Wait()
}

func runJoin(ctx context.Context, env *runtimeEnv, addr string, in io.Reader, out io.Writer) error {
	cfg := env.cfg
	g := env.newGame(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var c *console
	hooks := chatHooks(&c)
	hooks.OnDisconnect = func() {
		if c != nil {
			c.printf("Disconnected from host.")
		}
		cancel()
	}
	coord, err := session.New(ctx, sessionConfig(cfg, session.RoleClient), g, env.logger, hooks)
	if err != nil {
		return err
	}

	opts := []transport.Option{transport.WithLogger(env.logger)}
	if cfg.Network.Transport == config.TransportWebSocket {
		opts = append(opts, transport.WithDialer(transport.DialWebSocket(cfg.Network.WSPath)))
	}
	mgr := transport.NewManager(cfg.TransportConfig(), coord, opts...)
	defer mgr.Close()
	coord.Bind(mgr)

	c = newConsole(g, cfg.Player.Name, coord, out)

	if _, err := mgr.Dial(ctx, addr); err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	if err := coord.Join(ctx); err != nil {
		return err
	}
	c.printf("Joined %s as %s. Players: %v", addr, cfg.Player.Name, coord.Lobby())

	err = c.Run(ctx, in)
	if leaveErr := coord.Leave(); leaveErr != nil && !errors.Is(leaveErr, session.ErrNotConnected) {
		env.logger.Warn("Session: leave: %v", leaveErr)
	}
	return err
}

// chatHooks prints lobby and chat traffic on the console once it exists.
func chatHooks(c **console) session.Hooks {
	say := func(format string, args ...interface{}) {
		if *c != nil {
			(*c).printf(format, args...)
		}
	}
	return session.Hooks{
		OnChat:  func(text string) { say("[chat] %s", text) },
		OnJoin:  func(name string) { say("%s joined.", name) },
		OnLeave: func(name string) { say("%s left.", name) },
	}
}

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"bigtwo/internal/app"
	"bigtwo/internal/bot"
	"bigtwo/internal/config"
	"bigtwo/internal/domain"
	"bigtwo/internal/logging"
	"bigtwo/internal/protocol"
	"bigtwo/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv() *runtimeEnv {
	cfg := config.DefaultConfig()
	cfg.Player.Name = "alice"
	cfg.Game.Seed = 7
	cfg.Game.Strategy = bot.StrategySimple
	return &runtimeEnv{cfg: cfg, logger: logging.NewNop()}
}

func TestParseCards(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []domain.Card
		wantErr bool
	}{
		{name: "ShortForm", args: []string{"3D"}, want: []domain.Card{domain.DiamondThree}},
		{name: "LowerCaseTen", args: []string{"10s"}, want: []domain.Card{{Suit: domain.Spade, Rank: domain.Ten}}},
		{name: "WireToken", args: []string{"0.0"}, want: []domain.Card{domain.DiamondThree}},
		{name: "CommaList", args: []string{"3D,3C"}, want: []domain.Card{domain.DiamondThree, {Suit: domain.Club, Rank: domain.Three}}},
		{name: "WireList", args: []string{protocol.EncodeCards([]domain.Card{domain.DiamondThree})}, want: []domain.Card{domain.DiamondThree}},
		{name: "Garbage", args: []string{"XX"}, wantErr: true},
		{name: "Empty", args: nil, wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := parseCards(test.args)
			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func newSoloConsole(t *testing.T) (*console, *bytes.Buffer) {
	t.Helper()
	env := testEnv()

	g, err := soloTable(env, 3)
	require.NoError(t, err)
	agent, closeAgent, err := env.newAgent()
	require.NoError(t, err)
	t.Cleanup(closeAgent)
	g.AddListener(agent)

	out := &bytes.Buffer{}
	return newConsole(g, "alice", localActions{game: g, name: "alice"}, out), out
}

func TestConsole_SoloStartHandsTurnToHuman(t *testing.T) {
	c, out := newSoloConsole(t)

	c.exec("start")
	assert.Contains(t, out.String(), "Game started")
	require.Equal(t, domain.StatePlaying, c.game.State())
	assert.Equal(t, "alice", c.game.CurrentPlayer().Name, "AI seats play synchronously until the human acts")

	out.Reset()
	c.exec("hand")
	assert.Contains(t, out.String(), "Your hand (13)")
}

func TestConsole_SoloPlay(t *testing.T) {
	c, out := newSoloConsole(t)
	c.exec("start")
	require.Equal(t, "alice", c.game.CurrentPlayer().Name)

	me := c.game.Player("alice")
	move := bot.SimpleStrategy{}.Decide(me.Hand(), c.game.LastPattern(), nil)
	require.NotEmpty(t, move, "a free lead always has a move")

	out.Reset()
	c.exec("play " + protocol.EncodeCards(move))

	assert.Contains(t, out.String(), "alice plays")
	assert.NotContains(t, out.String(), "!")
	assert.Equal(t, 13-len(move), me.HandSize())
	if c.game.State() == domain.StatePlaying {
		assert.Equal(t, "alice", c.game.CurrentPlayer().Name)
	}
}

func TestConsole_Errors(t *testing.T) {
	c, out := newSoloConsole(t)

	c.exec("dance")
	assert.Contains(t, out.String(), `! unknown command "dance"`)

	out.Reset()
	c.exec("chat hello")
	assert.Contains(t, out.String(), errNoChat.Error())

	out.Reset()
	c.exec("pass")
	assert.Contains(t, out.String(), "!")
}

func TestConsole_RunStopsOnQuit(t *testing.T) {
	c, out := newSoloConsole(t)

	err := c.Run(context.Background(), strings.NewReader("help\nquit\nstart\n"))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Commands:")
	assert.NotContains(t, out.String(), "Game started")
}

func TestHostSession_StartNeedsJoinedPlayer(t *testing.T) {
	env := testEnv()

	g, coord, err := hostSession(context.Background(), env, session.Hooks{})
	require.NoError(t, err)

	err = coord.Start()
	assert.ErrorIs(t, err, app.ErrTooFewPlayers)
	assert.Equal(t, domain.StateWaiting, g.State())
	require.Len(t, g.Players(), 1)
	assert.Equal(t, "alice", g.Players()[0].Name)
}

func TestSoloTable(t *testing.T) {
	env := testEnv()

	full, err := soloTable(env, 3)
	require.NoError(t, err)
	require.Len(t, full.Players(), 1)
	require.NoError(t, full.StartGame())
	assert.Len(t, full.Players(), 4)
	assert.False(t, full.Player("AI 3").Human)

	two, err := soloTable(env, 1)
	require.NoError(t, err)
	require.NoError(t, two.StartGame())
	assert.Len(t, two.Players(), 2)
	assert.Equal(t, 26, two.Player("alice").HandSize())
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"version", "--log-level", "error"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "bigtwo dev\n", out.String())
}

func TestSoloCommand_RejectsBadAICount(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"solo", "--ai", "4", "--log-level", "error"})
	cmd.SetIn(strings.NewReader(""))
	cmd.SetOut(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--ai")
}

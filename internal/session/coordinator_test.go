package session

import (
	"context"
	"math/rand"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"bigtwo/internal/app"
	"bigtwo/internal/domain"
	"bigtwo/internal/protocol"
	"bigtwo/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// wireLog records every frame written through a connection.
type wireLog struct {
	net.Conn
	mu  sync.Mutex
	buf strings.Builder
}

func (w *wireLog) Write(b []byte) (int, error) {
	w.mu.Lock()
	w.buf.Write(b)
	w.mu.Unlock()
	return w.Conn.Write(b)
}

func (w *wireLog) lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strings.Split(strings.TrimSuffix(w.buf.String(), "\n"), "\n")
}

func (w *wireLog) contains(line string) bool {
	for _, l := range w.lines() {
		if l == line {
			return true
		}
	}
	return false
}

type node struct {
	game  *app.Game
	coord *Coordinator
	mgr   *transport.Manager

	mu     sync.Mutex
	chats  []string
	syncs  int
	winner string
	joins  []string
}

func (n *node) hooks() Hooks {
	return Hooks{
		OnChat: func(text string) {
			n.mu.Lock()
			defer n.mu.Unlock()
			n.chats = append(n.chats, text)
		},
		OnResync: func(app.Snapshot) {
			n.mu.Lock()
			defer n.mu.Unlock()
			n.syncs++
		},
		OnGameOver: func(w string) {
			n.mu.Lock()
			defer n.mu.Unlock()
			n.winner = w
		},
		OnJoin: func(name string) {
			n.mu.Lock()
			defer n.mu.Unlock()
			n.joins = append(n.joins, name)
		},
	}
}

func newNode(t *testing.T, role Role, name string, seed int64) *node {
	t.Helper()
	n := &node{game: app.NewGame(app.WithRand(rand.New(rand.NewSource(seed))))}
	cfg := Config{
		Role:         role,
		Name:         name,
		JoinWindow:   time.Second,
		JoinAttempts: 3,
		JoinDelay:    200 * time.Millisecond,
	}
	coord, err := New(context.Background(), cfg, n.game, nil, n.hooks())
	require.NoError(t, err)
	n.coord = coord

	tc := transport.DefaultConfig()
	tc.WriteDelay = time.Millisecond
	tc.DrainTimeout = time.Second
	n.mgr = transport.NewManager(tc, coord)
	coord.Bind(n.mgr)
	t.Cleanup(func() { _ = n.mgr.Close() })
	return n
}

// link connects host and client over an in-memory pipe and joins the client.
// The returned log captures what the host writes to that client.
func link(t *testing.T, host, client *node) *wireLog {
	t.Helper()
	hostEnd, clientEnd := net.Pipe()
	log := &wireLog{Conn: hostEnd}
	_, err := host.mgr.Attach(log)
	require.NoError(t, err)
	_, err = client.mgr.Attach(clientEnd)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, client.coord.Join(ctx))
	return log
}

// seedWhere finds a shuffle seed that deals the Diamond-Three to seat holder
// of a two-player table.
func seedWhere(t *testing.T, holder int) int64 {
	t.Helper()
	for seed := int64(1); seed < 500; seed++ {
		deck := domain.NewDeck()
		deck.Shuffle(rand.New(rand.NewSource(seed)))
		hands, err := deck.Deal(2)
		require.NoError(t, err)
		if domain.ContainsCard(hands[holder], domain.DiamondThree) {
			return seed
		}
	}
	t.Fatal("no seed found")
	return 0
}

func startTwoPlayer(t *testing.T, holder int) (*node, *node, *wireLog) {
	t.Helper()
	host := newNode(t, RoleHost, "alice", seedWhere(t, holder))
	client := newNode(t, RoleClient, "bob", 0)
	log := link(t, host, client)

	require.Len(t, host.game.Players(), 2)
	require.NoError(t, host.coord.Start())
	require.Eventually(t, func() bool { return client.game.State() == domain.StatePlaying }, waitFor, tick)
	return host, client, log
}

func handSize(g *app.Game, name string) int {
	if p := g.Player(name); p != nil {
		return p.HandSize()
	}
	return -1
}

func TestDealReachesClient(t *testing.T) {
	host, client, log := startTwoPlayer(t, 0)

	assert.True(t, log.contains("2|start"))
	for _, name := range []string{"alice", "bob"} {
		assert.Equal(t, 26, handSize(client.game, name))
		assert.Equal(t, host.game.Player(name).Hand(), client.game.Player(name).Hand())
	}
	assert.Equal(t, "alice", client.game.CurrentPlayer().Name)

	var deal string
	for _, l := range log.lines() {
		if strings.HasPrefix(l, "3|") {
			deal = l
		}
	}
	require.NotEmpty(t, deal)
	assert.True(t, strings.HasSuffix(deal, ";self=bob"))
}

func TestHostPlayIsBroadcastWithNext(t *testing.T) {
	host, client, log := startTwoPlayer(t, 0)

	require.NoError(t, host.coord.Play([]domain.Card{domain.DiamondThree}))

	require.Eventually(t, func() bool { return log.contains("5|alice:0.0;|next=bob") }, waitFor, tick)
	require.Eventually(t, func() bool { return handSize(client.game, "alice") == 25 }, waitFor, tick)
	assert.False(t, client.game.Player("alice").HasCard(domain.DiamondThree))
	assert.Equal(t, "bob", client.game.CurrentPlayer().Name)
	assert.Zero(t, client.game.DriftCount())
}

func TestClientPlayIsValidatedByHost(t *testing.T) {
	host, client, log := startTwoPlayer(t, 1)
	require.Equal(t, "bob", client.game.CurrentPlayer().Name)

	require.NoError(t, client.coord.Play([]domain.Card{domain.DiamondThree}))
	// Applied optimistically before the host answers.
	assert.Equal(t, 25, handSize(client.game, "bob"))

	require.Eventually(t, func() bool { return handSize(host.game, "bob") == 25 }, waitFor, tick)
	assert.Equal(t, "alice", host.game.CurrentPlayer().Name)

	// The author is not sent its own delta.
	for _, l := range log.lines() {
		assert.False(t, strings.HasPrefix(l, "5|"), "unexpected broadcast %q", l)
	}

	// Host answers and bob passes; both replicas agree on the cleared trick.
	require.NoError(t, host.coord.Play([]domain.Card{host.game.Player("alice").Hand()[25]}))
	require.Eventually(t, func() bool { return client.game.CurrentPlayer().Name == "bob" }, waitFor, tick)
	require.NoError(t, client.coord.Pass())
	require.Eventually(t, func() bool { return host.game.CurrentPlayer().Name == "alice" }, waitFor, tick)
	assert.Nil(t, host.game.LastPattern())
	assert.Nil(t, client.game.LastPattern())
}

func TestRejectedRequestTriggersStateSync(t *testing.T) {
	host, client, log := startTwoPlayer(t, 0)

	// Bob forges a play out of turn; the host refuses and resyncs him.
	bobCard := client.game.Player("bob").Hand()[0]
	peers := client.mgr.Peers()
	require.Len(t, peers, 1)
	req := protocol.Message{Type: protocol.PlayRequest, Payload: protocol.EncodePlay(protocol.Play{Player: "bob", Cards: []domain.Card{bobCard}})}
	require.NoError(t, peers[0].Send(context.Background(), req))

	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.syncs == 1
	}, waitFor, tick)

	var syncLine string
	for _, l := range log.lines() {
		if strings.HasPrefix(l, "11|") {
			syncLine = l
		}
	}
	assert.True(t, strings.HasPrefix(syncLine, "11|alice,,0,#2:alice,26,"), syncLine)
	assert.Equal(t, 26, handSize(host.game, "bob"))
	assert.Equal(t, 26, handSize(client.game, "bob"))
	assert.Equal(t, "alice", client.game.CurrentPlayer().Name)
	assert.True(t, client.game.OpeningRequired())
}

func TestGameOverIsAnnounced(t *testing.T) {
	host, client, log := startTwoPlayer(t, 0)

	four := domain.Card{Suit: domain.Club, Rank: domain.Four}
	five := domain.Card{Suit: domain.Club, Rank: domain.Five}
	require.NoError(t, host.game.Restore(app.Snapshot{
		State: domain.StatePlaying,
		Players: []app.PlayerSnapshot{
			{Name: "alice", Human: true, Hand: []domain.Card{domain.DiamondThree}},
			{Name: "bob", Human: true, Hand: []domain.Card{four, five}},
		},
		CurrentIdx:      0,
		LastIdx:         -1,
		OpeningRequired: true,
	}))
	host.coord.mu.Lock()
	bobPeer := host.coord.peerByName["bob"]
	host.coord.mu.Unlock()
	host.coord.sendSync(bobPeer, "bob")
	require.Eventually(t, func() bool { return handSize(client.game, "alice") == 1 }, waitFor, tick)

	require.NoError(t, host.coord.Play([]domain.Card{domain.DiamondThree}))

	require.Eventually(t, func() bool { return client.game.State() == domain.StateGameOver }, waitFor, tick)
	require.Eventually(t, func() bool { return log.contains("9|alice") }, waitFor, tick)
	assert.True(t, log.contains("5|alice:0.0;"))
	client.mu.Lock()
	assert.Equal(t, "alice", client.winner)
	client.mu.Unlock()
}

func TestHostStartsRematchAfterGameOver(t *testing.T) {
	host, client, log := startTwoPlayer(t, 0)

	require.NoError(t, host.game.Restore(app.Snapshot{
		State: domain.StatePlaying,
		Players: []app.PlayerSnapshot{
			{Name: "alice", Human: true, Hand: []domain.Card{domain.DiamondThree}},
			{Name: "bob", Human: true, Hand: []domain.Card{{Suit: domain.Club, Rank: domain.Four}}},
		},
		CurrentIdx:      0,
		LastIdx:         -1,
		OpeningRequired: true,
	}))
	require.NoError(t, host.coord.Play([]domain.Card{domain.DiamondThree}))
	require.Equal(t, domain.StateGameOver, host.game.State())
	require.Eventually(t, func() bool { return log.contains("9|alice") }, waitFor, tick)

	require.NoError(t, host.coord.Start())
	assert.Equal(t, domain.StatePlaying, host.game.State())
	assert.Len(t, host.game.Players(), 2)
	assert.Equal(t, 26, handSize(host.game, "alice"))
	assert.Equal(t, 26, handSize(host.game, "bob"))

	want := host.game.Player("bob").Hand()
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(want, client.game.Player("bob").Hand())
	}, waitFor, tick)
	assert.Equal(t, domain.StatePlaying, client.game.State())
	assert.Equal(t, host.game.CurrentPlayer().Name, client.game.CurrentPlayer().Name)
}

func TestHostCannotStartAlone(t *testing.T) {
	host := newNode(t, RoleHost, "alice", 1)

	err := host.coord.Start()
	assert.ErrorIs(t, err, app.ErrTooFewPlayers)
	assert.Equal(t, domain.StateWaiting, host.game.State())
	assert.Equal(t, []string{"alice"}, playerNames(host.game))
}

func playerNames(g *app.Game) []string {
	var names []string
	for _, p := range g.Players() {
		names = append(names, p.Name)
	}
	return names
}

func TestJoinIsDeduplicated(t *testing.T) {
	host := newNode(t, RoleHost, "alice", 1)
	client := newNode(t, RoleClient, "bob", 0)
	link(t, host, client)

	peers := client.mgr.Peers()
	require.Len(t, peers, 1)
	require.NoError(t, peers[0].Send(context.Background(), protocol.Message{Type: protocol.JoinGame, Payload: "bob"}))
	require.NoError(t, peers[0].Send(context.Background(), protocol.Message{Type: protocol.JoinGame, Payload: "bob"}))

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, host.game.Players(), 2)
	host.mu.Lock()
	assert.Equal(t, []string{"bob"}, host.joins)
	host.mu.Unlock()
	assert.ElementsMatch(t, []string{"alice", "bob"}, client.coord.Lobby())
}

func TestJoinRejectsHostName(t *testing.T) {
	host := newNode(t, RoleHost, "alice", 1)
	client := newNode(t, RoleClient, "alice", 0)

	hostEnd, clientEnd := net.Pipe()
	_, err := host.mgr.Attach(hostEnd)
	require.NoError(t, err)
	_, err = client.mgr.Attach(clientEnd)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	assert.ErrorIs(t, client.coord.Join(ctx), ErrJoinTimeout)
	assert.Len(t, host.game.Players(), 1)
}

func TestPlayerLeftWhileWaiting(t *testing.T) {
	host := newNode(t, RoleHost, "alice", 1)
	client := newNode(t, RoleClient, "bob", 0)
	link(t, host, client)
	require.Len(t, host.game.Players(), 2)

	require.NoError(t, client.coord.Leave())
	require.Eventually(t, func() bool { return len(host.game.Players()) == 1 }, waitFor, tick)
	require.Eventually(t, func() bool { return host.mgr.PeerCount() == 0 }, waitFor, tick)
}

func TestDisconnectRemovesWaitingPlayer(t *testing.T) {
	host := newNode(t, RoleHost, "alice", 1)
	client := newNode(t, RoleClient, "bob", 0)
	link(t, host, client)

	require.NoError(t, client.mgr.Close())
	require.Eventually(t, func() bool { return len(host.game.Players()) == 1 }, waitFor, tick)
}

func TestChatRelay(t *testing.T) {
	host := newNode(t, RoleHost, "alice", 1)
	bob := newNode(t, RoleClient, "bob", 0)
	carol := newNode(t, RoleClient, "carol", 0)
	link(t, host, bob)
	link(t, host, carol)

	require.NoError(t, bob.coord.Chat("good  luck\t all"))

	received := func(n *node, text string) func() bool {
		return func() bool {
			n.mu.Lock()
			defer n.mu.Unlock()
			for _, c := range n.chats {
				if c == text {
					return true
				}
			}
			return false
		}
	}
	require.Eventually(t, received(host, "bob: good luck all"), waitFor, tick)
	require.Eventually(t, received(carol, "bob: good luck all"), waitFor, tick)

	require.NoError(t, host.coord.Chat("thanks"))
	require.Eventually(t, received(bob, "alice: thanks"), waitFor, tick)

	bob.mu.Lock()
	defer bob.mu.Unlock()
	assert.NotContains(t, bob.chats, "bob: good luck all")
}

func TestClientCannotStart(t *testing.T) {
	client := newNode(t, RoleClient, "bob", 0)
	assert.ErrorIs(t, client.coord.Start(), ErrNotHost)
	assert.ErrorIs(t, client.coord.Chat("hi"), ErrNotConnected)
}

func TestFromSyncValidation(t *testing.T) {
	_, err := fromSync(protocol.Sync{Current: "zed", Deal: protocol.Deal{Hands: []protocol.Hand{{Name: "a"}, {Name: "b"}}}})
	assert.ErrorIs(t, err, protocol.ErrDecode)

	snap, err := fromSync(protocol.Sync{
		Current: "b",
		Last:    "a",
		Lead:    []domain.Card{domain.DiamondThree},
		Deal: protocol.Deal{Hands: []protocol.Hand{
			{Name: "a", Cards: []domain.Card{{Suit: domain.Club, Rank: domain.Nine}}},
			{Name: "b", Cards: []domain.Card{{Suit: domain.Heart, Rank: domain.Nine}}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.CurrentIdx)
	assert.Equal(t, 0, snap.LastIdx)
	require.NotNil(t, snap.LastPattern)
	assert.Equal(t, domain.Single, snap.LastPattern.Type)
	assert.False(t, snap.OpeningRequired)
	assert.Equal(t, domain.StatePlaying, snap.State)
}

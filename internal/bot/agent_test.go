package bot

import (
	"math/rand"
	"testing"
	"time"

	"bigtwo/internal/app"
	"bigtwo/internal/domain"
)

func TestAgent_PlaysAllAISeatsToGameOver(t *testing.T) {
	g := app.NewGame(app.WithRand(rand.New(rand.NewSource(7))), app.WithAutoFill(true))
	g.AddListener(NewAgent(NewSmartStrategy(), 0, nil))

	if err := g.StartGame(); err != nil {
		t.Fatal(err)
	}
	if got := g.State(); got != domain.StateGameOver {
		t.Fatalf("expected AI-only table to finish synchronously, state %s", got)
	}

	empty := 0
	for _, p := range g.Players() {
		if p.HandSize() == 0 {
			empty++
		}
	}
	if empty != 1 {
		t.Fatalf("expected exactly one winner, got %d empty hands", empty)
	}
}

func TestAgent_WaitsForHuman(t *testing.T) {
	g := app.NewGame(app.WithRand(rand.New(rand.NewSource(3))), app.WithAutoFill(true))
	if err := g.AddPlayer(domain.NewPlayer("alice", true)); err != nil {
		t.Fatal(err)
	}
	g.AddListener(NewAgent(SimpleStrategy{}, 0, nil))

	if err := g.StartGame(); err != nil {
		t.Fatal(err)
	}
	if g.State() != domain.StatePlaying {
		t.Fatalf("state %s", g.State())
	}
	if cur := g.CurrentPlayer(); cur == nil || cur.Name != "alice" {
		t.Fatalf("expected the turn to rest with alice, got %v", cur)
	}
}

func TestAgent_Delay(t *testing.T) {
	g := app.NewGame()
	for _, p := range []*domain.Player{domain.NewPlayer("alice", true), domain.NewPlayer("bot", false)} {
		if err := g.AddPlayer(p); err != nil {
			t.Fatal(err)
		}
	}

	moved := make(chan string, 1)
	g.AddListener(app.ListenerFuncs{OnCardsPlayed: func(_ *app.Game, ev app.Event) {
		if ev.Player == "bot" {
			select {
			case moved <- ev.Player:
			default:
			}
		}
	}})
	agent := NewAgent(SimpleStrategy{}, 20*time.Millisecond, nil)
	g.AddListener(agent)
	defer agent.Stop()

	// bot holds the Diamond-Three and must lead.
	err := g.LoadDeal([]app.SeatHand{
		{Name: "alice", Cards: []domain.Card{card(domain.Four, domain.Club), card(domain.Nine, domain.Club)}},
		{Name: "bot", Cards: []domain.Card{domain.DiamondThree, card(domain.Six, domain.Club)}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if cur := g.CurrentPlayer(); cur.Name != "bot" {
		t.Fatalf("expected bot to lead, got %s", cur.Name)
	}

	select {
	case <-moved:
	case <-time.After(2 * time.Second):
		t.Fatal("delayed agent never moved")
	}
	if cur := g.CurrentPlayer(); cur.Name != "alice" {
		t.Fatalf("expected alice to act next, got %s", cur.Name)
	}
}

func TestAgent_StopCancelsPendingMoves(t *testing.T) {
	g := app.NewGame()
	for _, p := range []*domain.Player{domain.NewPlayer("alice", true), domain.NewPlayer("bot", false)} {
		if err := g.AddPlayer(p); err != nil {
			t.Fatal(err)
		}
	}
	agent := NewAgent(SimpleStrategy{}, 50*time.Millisecond, nil)
	g.AddListener(agent)

	err := g.LoadDeal([]app.SeatHand{
		{Name: "alice", Cards: []domain.Card{card(domain.Four, domain.Club)}},
		{Name: "bot", Cards: []domain.Card{domain.DiamondThree, card(domain.Six, domain.Club)}},
	})
	if err != nil {
		t.Fatal(err)
	}
	agent.Stop()
	time.Sleep(120 * time.Millisecond)

	if g.LastIndex() != -1 {
		t.Fatal("stopped agent should not have moved")
	}
}

func TestAgent_PlayNeverPassesFreeLead(t *testing.T) {
	g := app.NewGame()
	for _, p := range []*domain.Player{domain.NewPlayer("a", false), domain.NewPlayer("b", true)} {
		if err := g.AddPlayer(p); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.LoadDeal([]app.SeatHand{
		{Name: "a", Cards: []domain.Card{domain.DiamondThree}},
		{Name: "b", Cards: []domain.Card{card(domain.Four, domain.Club)}},
	}); err != nil {
		t.Fatal(err)
	}

	passer := StrategyFunc(func([]domain.Card, *domain.CardPattern, []int) []domain.Card { return nil })
	move, err := NewAgent(passer, 0, nil).Play(g, "a")
	if err != nil {
		t.Fatal(err)
	}
	if move.Pass || len(move.Cards) != 1 || move.Cards[0] != domain.DiamondThree {
		t.Fatalf("expected forced lead of 3♦, got %+v", move)
	}
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"bigtwo/internal/app"
	"bigtwo/internal/domain"
	"bigtwo/internal/protocol"
)

var errNoChat = errors.New("chat needs a networked game")

// actions are the moves a console can request. session.Coordinator
// satisfies it for networked games; localActions for solo play.
type actions interface {
	Start() error
	Play(cards []domain.Card) error
	Pass() error
	Chat(text string) error
}

// localActions drives a solo game directly.
type localActions struct {
	game *app.Game
	name string
}

func (a localActions) Start() error {
	if a.game.State() == domain.StateGameOver {
		a.game.Reset()
	}
	return a.game.StartGame()
}

func (a localActions) Play(cards []domain.Card) error {
	_, err := a.game.PlayFor(a.name, cards)
	return err
}

func (a localActions) Pass() error {
	return a.game.PassFor(a.name)
}

func (a localActions) Chat(string) error {
	return errNoChat
}

// console is the line-oriented table UI. It prints game events as they
// arrive and reads commands from in.
type console struct {
	game *app.Game
	self string
	act  actions

	mu  sync.Mutex
	out io.Writer
}

func newConsole(g *app.Game, self string, act actions, out io.Writer) *console {
	c := &console{game: g, self: self, act: act, out: out}
	g.AddListener(c)
	return c
}

func (c *console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format+"\n", args...)
}

// Run reads commands until quit, EOF or ctx ends.
func (c *console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	c.printf("Type 'help' for commands.")
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			if quit := c.exec(line); quit {
				return nil
			}
		}
	}
}

// exec runs one command line and reports whether the console should exit.
func (c *console) exec(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch cmd {
	case "quit", "exit":
		return true
	case "help":
		c.printf("Commands: start | play <cards> | pass | hand | table | chat <text> | quit")
		c.printf("Cards: 3D 10S AH 2C or wire tokens like 0.0")
	case "start":
		err = c.act.Start()
	case "play":
		var cards []domain.Card
		if cards, err = parseCards(args); err == nil {
			err = c.act.Play(cards)
		}
	case "pass":
		err = c.act.Pass()
	case "hand":
		c.showHand()
	case "table":
		c.showTable()
	case "chat":
		err = c.act.Chat(strings.Join(args, " "))
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		c.printf("! %v", err)
	}
	return false
}

// parseCards accepts the console short form or the wire token per card.
func parseCards(args []string) ([]domain.Card, error) {
	if len(args) == 0 {
		return nil, errors.New("play needs at least one card")
	}
	cards := make([]domain.Card, 0, len(args))
	for _, a := range args {
		tokens := strings.FieldsFunc(a, func(r rune) bool { return r == ',' || r == ';' })
		for _, tok := range tokens {
			card, err := domain.ParseCard(tok)
			if err != nil {
				var wireErr error
				if card, wireErr = protocol.DecodeCard(tok); wireErr != nil {
					return nil, err
				}
			}
			cards = append(cards, card)
		}
	}
	return cards, nil
}

func (c *console) showHand() {
	p := c.game.Player(c.self)
	if p == nil {
		c.printf("You are not seated.")
		return
	}
	c.printf("Your hand (%d): %s", p.HandSize(), domain.FormatCards(p.Hand()))
}

func (c *console) showTable() {
	snap := c.game.Snapshot()
	c.printf("State: %s", snap.State)
	for i, p := range snap.Players {
		marker := " "
		if snap.State == domain.StatePlaying && i == snap.CurrentIdx {
			marker = ">"
		}
		c.printf("%s %-12s %2d cards", marker, p.Name, len(p.Hand))
	}
	if snap.LastPattern != nil {
		c.printf("To beat: %s (%s) by %s", domain.FormatCards(snap.LastPattern.Cards), snap.LastPattern.Type, snap.LastName())
	}
}

func (c *console) announceTurn(next string) {
	if next == c.self {
		c.printf("Your turn.")
	}
}

func (c *console) GameStarted(g *app.Game, ev app.Event) {
	c.printf("Game started, %s leads.", ev.Next)
	c.showHand()
	c.announceTurn(ev.Next)
}

func (c *console) CardsPlayed(g *app.Game, ev app.Event) {
	c.printf("%s plays %s (%s)", ev.Player, domain.FormatCards(ev.Cards), ev.Pattern.Type)
	c.announceTurn(ev.Next)
}

func (c *console) PlayerPassed(g *app.Game, ev app.Event) {
	c.printf("%s passes", ev.Player)
	if ev.TrickCleared {
		c.printf("Trick cleared, %s leads.", ev.Next)
	}
	c.announceTurn(ev.Next)
}

func (c *console) GameOver(g *app.Game, ev app.Event) {
	if ev.Player == c.self {
		c.printf("You win!")
		return
	}
	c.printf("%s wins.", ev.Player)
}

func (c *console) StateRestored(g *app.Game, ev app.Event) {
	c.printf("Table resynchronized.")
	c.announceTurn(ev.Next)
}

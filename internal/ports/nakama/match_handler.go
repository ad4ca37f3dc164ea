package nakama

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"bigtwo/internal/app"
	"bigtwo/internal/bot"
	"bigtwo/internal/domain"
	"bigtwo/internal/logging"
	"bigtwo/internal/ports"
	"bigtwo/internal/protocol"
	"bigtwo/internal/session"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Game      *app.Game                   `json:"-"`
	Names     map[string]string           `json:"names"`    // user ID -> seat name
	Presences map[string]runtime.Presence `json:"-"`        // user ID -> presence for targeted messaging
	OwnerID   string                      `json:"owner_id"` // user allowed to start the game
	Tick      int64                       `json:"tick"`

	BotsEnabled   bool       `json:"bots_enabled"`
	BotDelayTicks int64      `json:"bot_delay_ticks"` // ticks a bot waits before acting
	BotWaitUntil  int64      `json:"bot_wait_until"`  // tick when the current bot acts
	Agent         *bot.Agent `json:"-"`

	Stats ports.StatsPort `json:"-"`

	// Set at the top of every handler callback so game listeners can reach Nakama.
	ctx        context.Context
	dispatcher runtime.MatchDispatcher
	logger     runtime.Logger
}

// NewMatchState builds an empty lobby.
func NewMatchState(logger runtime.Logger, agent *bot.Agent, stats ports.StatsPort) *MatchState {
	logger = logging.OrNop(logger)
	if agent == nil {
		agent = bot.NewAgent(bot.NewSmartStrategy(), 0, logger)
	}
	ms := &MatchState{
		Game:          app.NewGame(app.WithLogger(logger)),
		Names:         make(map[string]string),
		Presences:     make(map[string]runtime.Presence),
		BotDelayTicks: defaultBotDelayTicks,
		Agent:         agent,
		Stats:         stats,
		ctx:           context.Background(),
		logger:        logger,
	}
	ms.Game.AddListener(ms)
	return ms
}

func (ms *MatchState) bind(ctx context.Context, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	ms.ctx = ctx
	ms.dispatcher = dispatcher
	ms.logger = logging.OrNop(logger)
}

// GetOpenSeatsCount reports free seats. Seats only open between games.
func (ms *MatchState) GetOpenSeatsCount() int {
	switch ms.Game.State() {
	case domain.StateWaiting, domain.StateGameOver:
		return app.MaxPlayers - ms.seatedCount()
	default:
		return 0
	}
}

// seatedCount counts humans and bots that will play the next deal.
func (ms *MatchState) seatedCount() int {
	if ms.Game.State() == domain.StateGameOver {
		// Human seats whose presence left are dropped when the lobby reopens.
		n := 0
		for _, p := range ms.Game.Players() {
			if !p.Human {
				n++
				continue
			}
			if uid := ms.userFor(p.Name); uid != "" && ms.Presences[uid] != nil {
				n++
			}
		}
		return n
	}
	return len(ms.Game.Players())
}

// GetHumanPlayerCount counts joined humans.
func (ms *MatchState) GetHumanPlayerCount() int {
	return len(ms.Names)
}

func (ms *MatchState) userFor(name string) string {
	for uid, n := range ms.Names {
		if n == name {
			return uid
		}
	}
	return ""
}

// reopen turns a finished table back into a lobby, dropping humans who left mid-game.
func (ms *MatchState) reopen() {
	if ms.Game.State() != domain.StateGameOver {
		return
	}
	ms.Game.Reset()
	for uid, name := range ms.Names {
		if _, ok := ms.Presences[uid]; ok {
			continue
		}
		if err := ms.Game.RemovePlayer(name); err != nil {
			ms.logger.Warn("Match: could not drop %s on reopen: %v", name, err)
		}
		delete(ms.Names, uid)
	}
	ms.electOwner()
}

// electOwner keeps the owner if still present, else picks the earliest seated human.
func (ms *MatchState) electOwner() {
	if _, ok := ms.Presences[ms.OwnerID]; ok && ms.Names[ms.OwnerID] != "" {
		return
	}
	ms.OwnerID = ""
	for _, p := range ms.Game.Players() {
		if uid := ms.userFor(p.Name); uid != "" && ms.Presences[uid] != nil {
			ms.OwnerID = uid
			return
		}
	}
}

// send delivers payload to the given presences, or to everyone when to is nil.
func (ms *MatchState) send(op protocol.Type, payload string, to []runtime.Presence) {
	if ms.dispatcher == nil {
		return
	}
	if err := ms.dispatcher.BroadcastMessage(int64(op), []byte(payload), to, nil, true); err != nil {
		ms.logger.Error("Match: broadcast %s failed: %v", op, err)
	}
}

// sendExcept delivers payload to every presence but the given user.
func (ms *MatchState) sendExcept(op protocol.Type, payload string, userID string) {
	recipients := make([]runtime.Presence, 0, len(ms.Presences))
	for uid, p := range ms.Presences {
		if uid != userID {
			recipients = append(recipients, p)
		}
	}
	// An empty list means everyone to the dispatcher.
	if len(recipients) == 0 {
		return
	}
	ms.send(op, payload, recipients)
}

func (ms *MatchState) sendTo(op protocol.Type, payload string, userID string) {
	p, ok := ms.Presences[userID]
	if !ok {
		return
	}
	ms.send(op, payload, []runtime.Presence{p})
}

// sendSync pushes the authoritative table to one user.
func (ms *MatchState) sendSync(userID string) {
	name, ok := ms.Names[userID]
	if !ok || ms.Game.State() == domain.StateWaiting {
		return
	}
	payload, err := protocol.EncodeSync(session.SyncFor(ms.Game.Snapshot(), name))
	if err != nil {
		ms.logger.Error("Match: encode sync for %s: %v", name, err)
		return
	}
	ms.sendTo(protocol.StateSync, payload, userID)
}

func (ms *MatchState) reject(userID string, err error) {
	ms.logger.Warn("Match: rejected request from %s: %v", userID, err)
	ms.sendSync(userID)
}

// label renders the match label used by quick match queries.
func (ms *MatchState) label() (string, error) {
	s, err := structpb.NewStruct(map[string]interface{}{
		MatchLabelKeyGame:      GameLabel,
		MatchLabelKeyOpenSeats: ms.GetOpenSeatsCount(),
		MatchLabelKeyState:     string(ms.Game.State()),
	})
	if err != nil {
		return "", err
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (ms *MatchState) updateLabel() {
	if ms.dispatcher == nil {
		return
	}
	label, err := ms.label()
	if err != nil {
		ms.logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := ms.dispatcher.MatchLabelUpdate(label); err != nil {
		ms.logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

// fillBots seats AI players until the table is full.
func (ms *MatchState) fillBots() {
	for n := 1; len(ms.Game.Players()) < app.MaxPlayers; n++ {
		name := app.AIPlayerNamePrefix + strconv.Itoa(n)
		if ms.Game.Player(name) != nil {
			continue
		}
		if err := ms.Game.AddPlayer(domain.NewPlayer(name, false)); err != nil {
			ms.logger.Error("fillBots: Failed to seat %s: %v", name, err)
			return
		}
		ms.logger.Info("fillBots: Added bot %s", name)
		ms.send(protocol.JoinGame, name, nil)
	}
}

// GameStarted announces the start and deals each presence its own view.
func (ms *MatchState) GameStarted(g *app.Game, ev app.Event) {
	ms.send(protocol.GameStart, "start", nil)

	snap := g.Snapshot()
	for uid, name := range ms.Names {
		payload, err := protocol.EncodeDeal(session.SyncFor(snap, name).Deal)
		if err != nil {
			ms.logger.Error("StartGame: encode deal for %s: %v", name, err)
			continue
		}
		ms.sendTo(protocol.DealCards, payload, uid)
	}
	ms.BotWaitUntil = 0
	ms.updateLabel()
	ms.logger.Info("StartGame: Game started with %d players, %s leads.", len(snap.Players), ev.Next)
}

// CardsPlayed relays an accepted play to everyone but its author.
func (ms *MatchState) CardsPlayed(g *app.Game, ev app.Event) {
	payload := protocol.EncodePlay(protocol.Play{Player: ev.Player, Cards: ev.Cards, Next: ev.Next})
	ms.sendExcept(protocol.PlayBroadcast, payload, ms.userFor(ev.Player))
}

// PlayerPassed relays an accepted pass to everyone but its author.
func (ms *MatchState) PlayerPassed(g *app.Game, ev app.Event) {
	payload := protocol.EncodePass(protocol.PassMove{Player: ev.Player, Next: ev.Next})
	ms.sendExcept(protocol.Pass, payload, ms.userFor(ev.Player))
}

// GameOver announces the winner and records results for seated humans.
func (ms *MatchState) GameOver(g *app.Game, ev app.Event) {
	ms.send(protocol.GameOver, ev.Player, nil)
	ms.BotWaitUntil = 0
	ms.updateLabel()

	if ms.Stats == nil {
		return
	}
	matchID, _ := ms.ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	updates := make([]ports.ResultUpdate, 0, len(ms.Names))
	for uid, name := range ms.Names {
		updates = append(updates, ports.ResultUpdate{
			UserID: uid,
			Won:    name == ev.Player,
			Metadata: map[string]interface{}{
				"match_id": matchID,
				"reason":   "game_result",
			},
		})
	}
	if err := ms.Stats.RecordResults(ms.ctx, updates); err != nil {
		ms.logger.Error("GameOver: Failed to record results: %v", err)
	}
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)

	strategy, err := bot.NewStrategy(env[envBotStrategy], "")
	if err != nil {
		logger.Warn("MatchInit: %v, using default strategy", err)
		strategy = bot.NewSmartStrategy()
	}

	var stats ports.StatsPort
	if nk != nil {
		stats = NewNakamaStatsAdapter(nk)
	}

	state := NewMatchState(logger, bot.NewAgent(strategy, 0, logger), stats)
	state.BotsEnabled = env[envBotsEnabled] == "true"
	if val, ok := env[envBotDelayTicks]; ok {
		if i, err := strconv.Atoi(val); err == nil && i >= 0 {
			state.BotDelayTicks = int64(i)
		}
	}

	label, err := state.label()
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	return state, matchTickRate, label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	ms, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// Players returning to a table they are seated at.
	if _, seated := ms.Names[presence.GetUserId()]; seated {
		return ms, true, ""
	}

	switch ms.Game.State() {
	case domain.StateWaiting, domain.StateGameOver:
	default:
		return ms, false, "Game in progress"
	}

	name := presence.GetUsername()
	if err := protocol.ValidateName(name); err != nil {
		return ms, false, "Invalid name"
	}
	if strings.HasPrefix(name, app.AIPlayerNamePrefix) || ms.Game.Player(name) != nil {
		return ms, false, "Name taken"
	}
	if ms.GetOpenSeatsCount() <= 0 {
		return ms, false, "Match full"
	}
	return ms, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	ms, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}
	ms.bind(ctx, dispatcher, logger)

	for _, p := range presences {
		uid := p.GetUserId()
		ms.Presences[uid] = p

		if name, seated := ms.Names[uid]; seated {
			logger.Info("MatchJoin: %s rejoined as %s", uid, name)
			ms.sendSync(uid)
			continue
		}

		ms.reopen()
		name := p.GetUsername()
		if err := ms.Game.AddPlayer(domain.NewPlayer(name, true)); err != nil {
			logger.Warn("MatchJoin: User %s could not take a seat: %v", uid, err)
			delete(ms.Presences, uid)
			continue
		}
		ms.Names[uid] = name

		for _, seated := range ms.Game.Players() {
			if seated.Name != name {
				ms.sendTo(protocol.JoinGame, seated.Name, uid)
			}
		}
		ms.send(protocol.JoinGame, name, nil)
		logger.Debug("MatchJoin: User %s seated as %s.", uid, name)
	}

	ms.electOwner()
	ms.updateLabel()
	return ms
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	ms, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}
	ms.bind(ctx, dispatcher, logger)

	for _, p := range presences {
		uid := p.GetUserId()
		delete(ms.Presences, uid)

		name, seated := ms.Names[uid]
		if !seated {
			continue
		}
		// Mid-game seats stay so the hand can be resumed on rejoin.
		if ms.Game.State() == domain.StateWaiting {
			if err := ms.Game.RemovePlayer(name); err != nil {
				logger.Warn("MatchLeave: %v", err)
			}
			delete(ms.Names, uid)
		}
		ms.send(protocol.PlayerLeft, name, nil)
		logger.Debug("MatchLeave: User %s (%s) left.", uid, name)
	}

	if len(ms.Presences) == 0 {
		logger.Info("MatchLeave: Terminating match with no humans.")
		ms.Agent.Stop()
		return nil
	}

	ms.electOwner()
	ms.updateLabel()
	return ms
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	ms, ok := state.(*MatchState)
	if !ok {
		return state
	}
	ms.bind(ctx, dispatcher, logger)
	ms.Tick = tick

	for _, msg := range messages {
		switch protocol.Type(msg.GetOpCode()) {
		case protocol.GameStart:
			mh.handleStartGame(ms, msg)
		case protocol.PlayRequest:
			mh.handlePlayRequest(ms, msg)
		case protocol.Pass:
			mh.handlePass(ms, msg)
		case protocol.ChatMessage:
			mh.handleChat(ms, msg)
		case protocol.PlayerLeft:
			// Presence leave drives the roster.
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	mh.processBots(ms)
	return ms
}

func (mh *matchHandler) handleStartGame(ms *MatchState, msg runtime.MatchData) {
	uid := msg.GetUserId()
	if uid != ms.OwnerID {
		ms.logger.Warn("StartGame: User %s tried to start game but is not owner (%s)", uid, ms.OwnerID)
		return
	}

	ms.reopen()
	if ms.Game.State() != domain.StateWaiting {
		ms.logger.Warn("StartGame: Game already %s.", ms.Game.State())
		return
	}
	if ms.BotsEnabled && ms.GetHumanPlayerCount() < app.MinPlayersToStartGame {
		ms.fillBots()
	}

	if err := ms.Game.StartGame(); err != nil {
		ms.logger.Warn("StartGame: Failed to start game: %v", err)
	}
}

func (mh *matchHandler) handlePlayRequest(ms *MatchState, msg runtime.MatchData) {
	uid := msg.GetUserId()
	name, ok := ms.Names[uid]
	if !ok {
		ms.logger.Warn("handlePlayRequest: Unknown user %s", uid)
		return
	}

	play, err := protocol.DecodePlay(string(msg.GetData()))
	if err != nil {
		ms.reject(uid, err)
		return
	}
	if play.Player != name {
		ms.reject(uid, fmt.Errorf("%s cannot play for %s", name, play.Player))
		return
	}
	if _, err := ms.Game.PlayFor(name, play.Cards); err != nil {
		ms.reject(uid, err)
	}
}

func (mh *matchHandler) handlePass(ms *MatchState, msg runtime.MatchData) {
	uid := msg.GetUserId()
	name, ok := ms.Names[uid]
	if !ok {
		ms.logger.Warn("handlePass: Unknown user %s", uid)
		return
	}

	pass, err := protocol.DecodePass(string(msg.GetData()))
	if err != nil {
		ms.reject(uid, err)
		return
	}
	if pass.Player != name {
		ms.reject(uid, fmt.Errorf("%s cannot pass for %s", name, pass.Player))
		return
	}
	if err := ms.Game.PassFor(name); err != nil {
		ms.reject(uid, err)
	}
}

// handleChat relays a line to everyone else, attributed to the sender.
func (mh *matchHandler) handleChat(ms *MatchState, msg runtime.MatchData) {
	uid := msg.GetUserId()
	name, ok := ms.Names[uid]
	if !ok {
		return
	}
	text := strings.Join(strings.Fields(string(msg.GetData())), " ")
	if text == "" {
		return
	}
	if !strings.HasPrefix(text, name+": ") {
		text = name + ": " + text
	}
	ms.sendExcept(protocol.ChatMessage, text, uid)
}

// processBots lets the bot agent act for the current AI seat once its delay elapses.
func (mh *matchHandler) processBots(ms *MatchState) {
	current := ms.Game.CurrentPlayer()
	if ms.Game.State() != domain.StatePlaying || current == nil || current.Human {
		ms.BotWaitUntil = 0
		return
	}

	if ms.BotWaitUntil == 0 {
		ms.BotWaitUntil = ms.Tick + ms.BotDelayTicks
		ms.logger.Debug("processBots: Bot %s will act at tick %d (current %d)", current.Name, ms.BotWaitUntil, ms.Tick)
	}
	if ms.Tick < ms.BotWaitUntil {
		return
	}

	ms.BotWaitUntil = 0
	if err := ms.Agent.Act(ms.Game, current.Name); err != nil {
		ms.logger.Error("processBots: Bot %s failed to move: %v", current.Name, err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated with grace %d", graceSeconds)
	if ms, ok := state.(*MatchState); ok {
		ms.Agent.Stop()
	}
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}

package bot

import (
	"fmt"
	"os"
	"sync"

	"bigtwo/internal/bot/internal"
	"bigtwo/internal/domain"

	lua "github.com/yuin/gopher-lua"
)

// LuaStrategy runs a user script that defines
//
//	function decide(hand, last, others) ... end
//
// Cards cross the boundary as {suit=, rank=} tables using the wire ordinals.
// last is nil on a free lead, otherwise {type=, cards=}. The script returns a
// list of cards, or nil/empty to pass. Script errors and illegal results fall
// back to Fallback.
type LuaStrategy struct {
	mu       sync.Mutex
	state    *lua.LState
	Fallback Strategy
}

// NewLuaStrategyFromFile loads a script from disk.
func NewLuaStrategyFromFile(path string) (*LuaStrategy, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lua script: %w", err)
	}
	return NewLuaStrategy(string(src))
}

// NewLuaStrategy compiles src and checks that it defines decide.
func NewLuaStrategy(src string) (*LuaStrategy, error) {
	L := lua.NewState()
	registerHelpers(L)
	if err := L.DoString(src); err != nil {
		L.Close()
		return nil, fmt.Errorf("load lua script: %w", err)
	}
	if fn, ok := L.GetGlobal("decide").(*lua.LFunction); !ok || fn == nil {
		L.Close()
		return nil, fmt.Errorf("lua script does not define decide(hand, last, others)")
	}
	return &LuaStrategy{state: L, Fallback: SimpleStrategy{}}, nil
}

func (s *LuaStrategy) Name() string { return StrategyLua }

// Close releases the interpreter.
func (s *LuaStrategy) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != nil {
		s.state.Close()
		s.state = nil
	}
}

func (s *LuaStrategy) Decide(hand []domain.Card, last *domain.CardPattern, others []int) []domain.Card {
	cards, err := s.call(hand, last, others)
	if err == nil && (len(cards) == 0 && last != nil || internal.IsLegal(hand, last, cards)) {
		return cards
	}
	return s.fallback().Decide(hand, last, others)
}

func (s *LuaStrategy) fallback() Strategy {
	if s.Fallback == nil {
		return SimpleStrategy{}
	}
	return s.Fallback
}

func (s *LuaStrategy) call(hand []domain.Card, last *domain.CardPattern, others []int) ([]domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	L := s.state
	if L == nil {
		return nil, fmt.Errorf("lua strategy closed")
	}

	lastValue := lua.LValue(lua.LNil)
	if last != nil {
		t := L.NewTable()
		t.RawSetString("type", lua.LString(last.Type.String()))
		t.RawSetString("cards", cardsToTable(L, last.Cards))
		lastValue = t
	}
	othersTable := L.NewTable()
	for _, n := range others {
		othersTable.Append(lua.LNumber(n))
	}

	err := L.CallByParam(lua.P{
		Fn:      L.GetGlobal("decide"),
		NRet:    1,
		Protect: true,
	}, cardsToTable(L, hand), lastValue, othersTable)
	if err != nil {
		return nil, err
	}
	ret := L.Get(-1)
	L.Pop(1)

	if ret == lua.LNil {
		return nil, nil
	}
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("decide returned %s, want table", ret.Type())
	}
	return tableToCards(tbl)
}

func registerHelpers(L *lua.LState) {
	L.SetGlobal("classify", L.NewFunction(func(L *lua.LState) int {
		cards, err := tableToCards(L.CheckTable(1))
		if err != nil {
			L.ArgError(1, err.Error())
			return 0
		}
		L.Push(lua.LString(domain.IdentifyPattern(cards).Type.String()))
		return 1
	}))
	L.SetGlobal("can_beat", L.NewFunction(func(L *lua.LState) int {
		mover, err := tableToCards(L.CheckTable(1))
		if err != nil {
			L.ArgError(1, err.Error())
			return 0
		}
		incumbent, err := tableToCards(L.CheckTable(2))
		if err != nil {
			L.ArgError(2, err.Error())
			return 0
		}
		ok, err := domain.CanBeat(domain.IdentifyPattern(mover), domain.IdentifyPattern(incumbent))
		L.Push(lua.LBool(err == nil && ok))
		return 1
	}))
}

func cardsToTable(L *lua.LState, cards []domain.Card) *lua.LTable {
	t := L.NewTable()
	for _, c := range cards {
		ct := L.NewTable()
		ct.RawSetString("suit", lua.LNumber(c.Suit))
		ct.RawSetString("rank", lua.LNumber(c.Rank))
		t.Append(ct)
	}
	return t
}

func tableToCards(t *lua.LTable) ([]domain.Card, error) {
	var (
		cards []domain.Card
		bad   error
	)
	t.ForEach(func(_, v lua.LValue) {
		if bad != nil {
			return
		}
		ct, ok := v.(*lua.LTable)
		if !ok {
			bad = fmt.Errorf("card entry is %s, want table", v.Type())
			return
		}
		suit, sok := ct.RawGetString("suit").(lua.LNumber)
		rank, rok := ct.RawGetString("rank").(lua.LNumber)
		if !sok || !rok {
			bad = fmt.Errorf("card entry needs numeric suit and rank")
			return
		}
		c := domain.Card{Suit: domain.Suit(suit), Rank: domain.Rank(rank)}
		if !c.Valid() {
			bad = fmt.Errorf("card %d.%d out of range", int(suit), int(rank))
			return
		}
		cards = append(cards, c)
	})
	return cards, bad
}

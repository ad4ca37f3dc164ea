package bot

import (
	"fmt"
	"strings"
)

// Strategy names accepted by NewStrategy.
const (
	StrategySimple = "simple"
	StrategySmart  = "smart"
	StrategyLua    = "lua"
)

// NewStrategy creates a strategy by name. script is the Lua source path and is
// only used by the lua strategy.
func NewStrategy(name, script string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategySmart:
		return NewSmartStrategy(), nil
	case StrategySimple:
		return SimpleStrategy{}, nil
	case StrategyLua:
		if script == "" {
			return nil, fmt.Errorf("lua strategy needs a script path")
		}
		return NewLuaStrategyFromFile(script)
	default:
		return nil, fmt.Errorf("unknown strategy: %q", name)
	}
}

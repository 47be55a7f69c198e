package engine

// Action is the sealed set of state mutations the reducer understands.
// Every variant is a struct so the dispatch switch stays exhaustive.
type Action interface{ isAction() }

type Join struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

type AddTeam struct {
	Team Team `json:"team"`
}

type UpdateTeam struct {
	TeamID  string    `json:"teamId"`
	Updates TeamPatch `json:"updates"`
}

type RemoveTeam struct {
	TeamID string `json:"teamId"`
}

type UpdateConfig struct {
	Patch ConfigPatch `json:"patch"`
}

// ImportPlayers replaces the player list. Seed drives the pot-grouped
// shuffle so the draw order is reproducible from the action alone.
type ImportPlayers struct {
	Players []Player `json:"players"`
	Seed    int64    `json:"seed"`
}

type StartGame struct{}

type EndGame struct{}

type PlaceBid struct {
	TeamID string `json:"teamId"`
	Amount int    `json:"amount"`
}

type MarkSold struct {
	Commentary string `json:"commentary,omitempty"`
}

type MarkUnsold struct {
	Commentary string `json:"commentary,omitempty"`
}

type NextPlayer struct{}

type TogglePause struct{}

type UpdateTimer struct {
	Timer int `json:"timer"`
}

type AddLog struct {
	Message string  `json:"message"`
	Type    LogType `json:"type"`
}

func (Join) isAction()          {}
func (AddTeam) isAction()       {}
func (UpdateTeam) isAction()    {}
func (RemoveTeam) isAction()    {}
func (UpdateConfig) isAction()  {}
func (ImportPlayers) isAction() {}
func (StartGame) isAction()     {}
func (EndGame) isAction()       {}
func (PlaceBid) isAction()      {}
func (MarkSold) isAction()      {}
func (MarkUnsold) isAction()    {}
func (NextPlayer) isAction()    {}
func (TogglePause) isAction()   {}
func (UpdateTimer) isAction()   {}
func (AddLog) isAction()        {}

package engine

type RoomStatus string

const (
	RoomLobby     RoomStatus = "LOBBY"
	RoomActive    RoomStatus = "ACTIVE"
	RoomCompleted RoomStatus = "COMPLETED"
)

type PlayerStatus string

const (
	PlayerPending   PlayerStatus = "PENDING"
	PlayerOnAuction PlayerStatus = "ON_AUCTION"
	PlayerSold      PlayerStatus = "SOLD"
	PlayerUnsold    PlayerStatus = "UNSOLD"
)

type Pot string

const (
	PotA             Pot = "A"
	PotB             Pot = "B"
	PotC             Pot = "C"
	PotD             Pot = "D"
	PotUncategorized Pot = "Uncategorized"
)

// PotOrder is the fixed phase order players are auctioned in.
var PotOrder = []Pot{PotA, PotB, PotC, PotD, PotUncategorized}

type LogType string

const (
	LogBid    LogType = "BID"
	LogSold   LogType = "SOLD"
	LogUnsold LogType = "UNSOLD"
	LogSystem LogType = "SYSTEM"
	LogAI     LogType = "AI"
)

// MaxLogEntries caps the room log; oldest entries are evicted first.
const MaxLogEntries = 50

type Player struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Position     string       `json:"position"`
	Pot          Pot          `json:"pot"`
	BasePrice    int          `json:"basePrice"`
	Status       PlayerStatus `json:"status"`
	SoldPrice    int          `json:"soldPrice,omitempty"`
	SoldToTeamID string       `json:"soldToTeamId,omitempty"`
	Country      string       `json:"country,omitempty"`
	Stats        string       `json:"stats,omitempty"`
	ImageURL     string       `json:"imageUrl,omitempty"`
}

type Team struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	OwnerName          string   `json:"ownerName"`
	Budget             int      `json:"budget"`
	Roster             []Player `json:"roster"`
	Color              string   `json:"color"`
	LogoURL            string   `json:"logoUrl,omitempty"`
	ControlledByUserID string   `json:"controlledByUserId,omitempty"`
}

type Config struct {
	TotalBudget     int   `json:"totalBudget"`
	MaxRosterSize   int   `json:"maxPlayers"`
	BidTimerSeconds int   `json:"bidTimerSeconds"`
	MinIncrement    int   `json:"minBidIncrement"`
	ScheduledStart  int64 `json:"scheduledStart,omitempty"`
}

// ConfigPatch is a shallow partial update; nil fields are left untouched.
// Range validation is the caller's responsibility.
type ConfigPatch struct {
	TotalBudget     *int   `json:"totalBudget,omitempty"`
	MaxRosterSize   *int   `json:"maxPlayers,omitempty"`
	BidTimerSeconds *int   `json:"bidTimerSeconds,omitempty"`
	MinIncrement    *int   `json:"minBidIncrement,omitempty"`
	ScheduledStart  *int64 `json:"scheduledStart,omitempty"`
}

// TeamPatch is a shallow partial update applied to one team.
type TeamPatch struct {
	Name      *string `json:"name,omitempty"`
	OwnerName *string `json:"ownerName,omitempty"`
	Budget    *int    `json:"budget,omitempty"`
	Color     *string `json:"color,omitempty"`
	LogoURL   *string `json:"logoUrl,omitempty"`
}

type Bid struct {
	TeamID    string `json:"teamId"`
	Amount    int    `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

type LogEntry struct {
	ID        string  `json:"id"`
	Message   string  `json:"message"`
	Type      LogType `json:"type"`
	Timestamp int64   `json:"timestamp"`
}

type GameState struct {
	CurrentPot      Pot        `json:"currentPot"`
	CurrentPlayerID string     `json:"currentPlayerId,omitempty"`
	CurrentBid      *Bid       `json:"currentBid,omitempty"`
	Timer           int        `json:"timer"`
	Logs            []LogEntry `json:"logs"`
	AICommentary    string     `json:"aiCommentary"`
	IsPaused        bool       `json:"isPaused"`
}

type Member struct {
	UserID  string `json:"userId"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"isAdmin"`
}

// Room is the full replicated snapshot. The host owns the canonical copy;
// clients replace their cache wholesale on every SYNC.
type Room struct {
	ID        string     `json:"id"`
	HostID    string     `json:"hostId"`
	Name      string     `json:"name"`
	CreatedAt int64      `json:"createdAt"`
	Status    RoomStatus `json:"status"`
	Config    Config     `json:"config"`
	Teams     []Team     `json:"teams"`
	Players   []Player   `json:"players"`
	GameState GameState  `json:"gameState"`
	Members   []Member   `json:"members"`
}

// DefaultConfig mirrors the stock auction setup.
func DefaultConfig() Config {
	return Config{
		TotalBudget:     1500,
		MaxRosterSize:   15,
		BidTimerSeconds: 30,
		MinIncrement:    20,
	}
}

// NewRoom builds the initial lobby-state room owned by hostID.
func NewRoom(id, hostID, name, hostName string, createdAt int64) Room {
	cfg := DefaultConfig()
	return Room{
		ID:        id,
		HostID:    hostID,
		Name:      name,
		CreatedAt: createdAt,
		Status:    RoomLobby,
		Config:    cfg,
		Teams:     []Team{},
		Players:   []Player{},
		GameState: GameState{
			CurrentPot: PotA,
			Timer:      cfg.BidTimerSeconds,
			Logs:       []LogEntry{},
			IsPaused:   true,
		},
		Members: []Member{{UserID: hostID, Name: hostName, IsAdmin: true}},
	}
}

// TeamByID returns the index of the team or -1.
func (r Room) TeamByID(id string) int {
	for i := range r.Teams {
		if r.Teams[i].ID == id {
			return i
		}
	}
	return -1
}

// PlayerByID returns the index of the player or -1.
func (r Room) PlayerByID(id string) int {
	for i := range r.Players {
		if r.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// TeamOf returns the team controlled by userID, if any.
func (r Room) TeamOf(userID string) (Team, bool) {
	for _, t := range r.Teams {
		if t.ControlledByUserID != "" && t.ControlledByUserID == userID {
			return t, true
		}
	}
	return Team{}, false
}

package engine

import (
	"fmt"
	"time"
)

// Apply runs one action against the room and returns the next state plus
// whether anything changed. A false return means the action was rejected
// or was a stale duplicate; the input room is returned untouched and the
// caller must not broadcast. Rejections are silent: the wire is
// fire-and-forget and the UI pre-validates.
//
// Apply never does I/O and never mutates its input. Mutation paths clone
// only the slices they touch, so a rejected action can never leave the
// canonical state half-written.
func Apply(r Room, act Action, now time.Time) (Room, bool) {
	if r.Status == RoomCompleted {
		// Terminal room: membership and log appends still land, nothing else.
		switch act.(type) {
		case Join, AddLog:
		default:
			return r, false
		}
	}

	lw := logWriter{now: now}

	switch a := act.(type) {
	case Join:
		for _, m := range r.Members {
			if m.UserID == a.UserID {
				return r, false
			}
		}
		members := make([]Member, len(r.Members), len(r.Members)+1)
		copy(members, r.Members)
		r.Members = append(members, Member{UserID: a.UserID, Name: a.Name})
		return r, true

	case AddTeam:
		if a.Team.ID == "" || r.TeamByID(a.Team.ID) != -1 {
			return r, false
		}
		t := a.Team
		if t.Budget == 0 {
			t.Budget = r.Config.TotalBudget
		}
		if t.Roster == nil {
			t.Roster = []Player{}
		}
		teams := make([]Team, len(r.Teams), len(r.Teams)+1)
		copy(teams, r.Teams)
		r.Teams = append(teams, t)
		return r, true

	case UpdateTeam:
		i := r.TeamByID(a.TeamID)
		if i == -1 {
			return r, false
		}
		teams := cloneTeams(r.Teams)
		patchTeam(&teams[i], a.Updates)
		r.Teams = teams
		return r, true

	case RemoveTeam:
		i := r.TeamByID(a.TeamID)
		if i == -1 {
			return r, false
		}
		teams := make([]Team, 0, len(r.Teams)-1)
		teams = append(teams, r.Teams[:i]...)
		teams = append(teams, r.Teams[i+1:]...)
		r.Teams = teams
		if bid := r.GameState.CurrentBid; bid != nil && bid.TeamID == a.TeamID {
			r.GameState.CurrentBid = nil
		}
		return r, true

	case UpdateConfig:
		patchConfig(&r.Config, a.Patch)
		return r, true

	case ImportPlayers:
		players := make([]Player, len(a.Players))
		copy(players, a.Players)
		for i := range players {
			if players[i].Status == "" {
				players[i].Status = PlayerPending
			}
			// Unknown pot tags fold into Uncategorized here so the draw
			// order, the pot-advance log and CurrentPot all agree.
			players[i].Pot = normalizePot(players[i].Pot)
		}
		r.Players = PotShuffle(players, a.Seed)
		r.GameState.CurrentPot = PotA
		r.GameState.CurrentPlayerID = ""
		r.GameState.CurrentBid = nil
		r.GameState.Timer = r.Config.BidTimerSeconds
		r.GameState.AICommentary = ""
		r.GameState.IsPaused = true
		r.GameState.Logs = lw.prepend(r.GameState.Logs,
			LogSystem, fmt.Sprintf("Imported %d players", len(players)))
		return r, true

	case StartGame:
		if r.Status != RoomLobby {
			return r, false
		}
		r.Status = RoomActive
		r.GameState.IsPaused = false
		r.GameState.Logs = lw.prepend(r.GameState.Logs, LogSystem, "Auction started")
		return r, true

	case EndGame:
		if r.Status != RoomActive {
			return r, false
		}
		r.Status = RoomCompleted
		r.GameState.IsPaused = true
		r.GameState.Logs = lw.prepend(r.GameState.Logs, LogSystem, "Auction Ended")
		return r, true

	case PlaceBid:
		return applyBid(r, a, &lw)

	case MarkSold:
		return applySold(r, a, &lw)

	case MarkUnsold:
		return applyUnsold(r, a, &lw)

	case NextPlayer:
		return applyNextPlayer(r, &lw)

	case TogglePause:
		r.GameState.IsPaused = !r.GameState.IsPaused
		msg := "Resumed"
		if r.GameState.IsPaused {
			msg = "Paused"
		}
		r.GameState.Logs = lw.prepend(r.GameState.Logs, LogSystem, msg)
		return r, true

	case UpdateTimer:
		if r.GameState.Timer == a.Timer {
			return r, false
		}
		// Timer churn stays out of the log history.
		r.GameState.Timer = a.Timer
		return r, true

	case AddLog:
		r.GameState.Logs = lw.prepend(r.GameState.Logs, a.Type, a.Message)
		if a.Type == LogAI {
			r.GameState.AICommentary = a.Message
		}
		return r, true
	}

	return r, false
}

func applyBid(r Room, a PlaceBid, lw *logWriter) (Room, bool) {
	if r.Status != RoomActive {
		return r, false
	}
	pi := r.PlayerByID(r.GameState.CurrentPlayerID)
	if pi == -1 || r.Players[pi].Status != PlayerOnAuction {
		return r, false
	}
	ti := r.TeamByID(a.TeamID)
	if ti == -1 {
		return r, false
	}
	floor := r.Players[pi].BasePrice
	if cur := r.GameState.CurrentBid; cur != nil {
		inc := r.Config.MinIncrement
		if inc < 1 {
			inc = 1
		}
		floor = cur.Amount + inc
	}
	if a.Amount < floor || r.Teams[ti].Budget < a.Amount {
		return r, false
	}

	r.GameState.CurrentBid = &Bid{TeamID: a.TeamID, Amount: a.Amount, Timestamp: lw.now.UnixMilli()}
	r.GameState.Timer = r.Config.BidTimerSeconds
	r.GameState.Logs = lw.prepend(r.GameState.Logs,
		LogBid, fmt.Sprintf("%s bids %d", r.Teams[ti].Name, a.Amount))
	return r, true
}

func applySold(r Room, a MarkSold, lw *logWriter) (Room, bool) {
	bid := r.GameState.CurrentBid
	if r.GameState.CurrentPlayerID == "" || bid == nil {
		return r, false
	}
	pi := r.PlayerByID(r.GameState.CurrentPlayerID)
	ti := r.TeamByID(bid.TeamID)
	if pi == -1 || ti == -1 || r.Players[pi].Status != PlayerOnAuction {
		return r, false
	}

	players := clonePlayers(r.Players)
	players[pi].Status = PlayerSold
	players[pi].SoldPrice = bid.Amount
	players[pi].SoldToTeamID = bid.TeamID
	r.Players = players

	teams := cloneTeams(r.Teams)
	teams[ti].Budget -= bid.Amount
	roster := make([]Player, len(teams[ti].Roster), len(teams[ti].Roster)+1)
	copy(roster, teams[ti].Roster)
	teams[ti].Roster = append(roster, players[pi])
	r.Teams = teams

	logs := lw.prepend(r.GameState.Logs,
		LogSold, fmt.Sprintf("SOLD: %s to %s for %d", players[pi].Name, teams[ti].Name, bid.Amount))
	if a.Commentary != "" {
		logs = lw.prepend(logs, LogAI, a.Commentary)
		r.GameState.AICommentary = a.Commentary
	}
	r.GameState.Logs = logs
	r.GameState.CurrentBid = nil
	r.GameState.CurrentPlayerID = ""
	r.GameState.IsPaused = true
	return r, true
}

func applyUnsold(r Room, a MarkUnsold, lw *logWriter) (Room, bool) {
	if r.GameState.CurrentPlayerID == "" {
		return r, false
	}
	pi := r.PlayerByID(r.GameState.CurrentPlayerID)
	if pi == -1 || r.Players[pi].Status != PlayerOnAuction {
		return r, false
	}

	players := clonePlayers(r.Players)
	players[pi].Status = PlayerUnsold
	r.Players = players

	logs := lw.prepend(r.GameState.Logs,
		LogUnsold, fmt.Sprintf("UNSOLD: %s", players[pi].Name))
	if a.Commentary != "" {
		logs = lw.prepend(logs, LogAI, a.Commentary)
		r.GameState.AICommentary = a.Commentary
	}
	r.GameState.Logs = logs
	r.GameState.CurrentBid = nil
	r.GameState.CurrentPlayerID = ""
	r.GameState.IsPaused = true
	return r, true
}

func applyNextPlayer(r Room, lw *logWriter) (Room, bool) {
	if r.Status != RoomActive {
		return r, false
	}
	// An unresolved player on the block is never skipped over.
	if pi := r.PlayerByID(r.GameState.CurrentPlayerID); pi != -1 && r.Players[pi].Status == PlayerOnAuction {
		return r, false
	}

	next := -1
	for i := range r.Players {
		if r.Players[i].Status == PlayerPending {
			next = i
			break
		}
	}
	if next == -1 {
		r.Status = RoomCompleted
		r.GameState.CurrentPlayerID = ""
		r.GameState.CurrentBid = nil
		r.GameState.IsPaused = true
		r.GameState.Logs = lw.prepend(r.GameState.Logs, LogSystem, "Auction Ended")
		return r, true
	}

	players := clonePlayers(r.Players)
	players[next].Status = PlayerOnAuction
	r.Players = players

	logs := r.GameState.Logs
	if pot := players[next].Pot; pot != r.GameState.CurrentPot {
		logs = lw.prepend(logs, LogSystem, fmt.Sprintf("Moving to Pot %s", pot))
		r.GameState.CurrentPot = pot
	}
	r.GameState.Logs = lw.prepend(logs, LogSystem, fmt.Sprintf("On Auction: %s", players[next].Name))
	r.GameState.CurrentPlayerID = players[next].ID
	r.GameState.CurrentBid = nil
	r.GameState.Timer = r.Config.BidTimerSeconds
	r.GameState.AICommentary = ""
	r.GameState.IsPaused = false
	return r, true
}

func patchConfig(c *Config, p ConfigPatch) {
	if p.TotalBudget != nil {
		c.TotalBudget = *p.TotalBudget
	}
	if p.MaxRosterSize != nil {
		c.MaxRosterSize = *p.MaxRosterSize
	}
	if p.BidTimerSeconds != nil {
		c.BidTimerSeconds = *p.BidTimerSeconds
	}
	if p.MinIncrement != nil {
		c.MinIncrement = *p.MinIncrement
	}
	if p.ScheduledStart != nil {
		c.ScheduledStart = *p.ScheduledStart
	}
}

func patchTeam(t *Team, p TeamPatch) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.OwnerName != nil {
		t.OwnerName = *p.OwnerName
	}
	if p.Budget != nil {
		t.Budget = *p.Budget
	}
	if p.Color != nil {
		t.Color = *p.Color
	}
	if p.LogoURL != nil {
		t.LogoURL = *p.LogoURL
	}
}

func cloneTeams(ts []Team) []Team {
	out := make([]Team, len(ts))
	copy(out, ts)
	return out
}

func clonePlayers(ps []Player) []Player {
	out := make([]Player, len(ps))
	copy(out, ps)
	return out
}

// logWriter stamps entries with ids derived from the reducer's notion of
// now, keeping Apply deterministic for a given (state, action, now).
type logWriter struct {
	now time.Time
	n   int
}

func (w *logWriter) prepend(logs []LogEntry, typ LogType, msg string) []LogEntry {
	w.n++
	out := make([]LogEntry, 0, len(logs)+1)
	out = append(out, LogEntry{
		ID:        fmt.Sprintf("%d-%d", w.now.UnixMilli(), w.n),
		Message:   msg,
		Type:      typ,
		Timestamp: w.now.UnixMilli(),
	})
	out = append(out, logs...)
	if len(out) > MaxLogEntries {
		out = out[:MaxLogEntries]
	}
	return out
}

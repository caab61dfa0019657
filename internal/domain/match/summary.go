package match

import "fmt"

// Summary is the condensed post-game record from the upstream match endpoint.
// It backs the fallback path for modes the scoring engine does not support.
type Summary struct {
	MatchID         string
	QueueID         int
	DurationSeconds int64
	Participants    []SummaryParticipant
}

type SummaryParticipant struct {
	Slot              int
	TeamID            int
	ChampionName      string
	Kills             int
	Deaths            int
	Assists           int
	GoldEarned        int
	CreepScore        int
	VisionScore       int
	DamageToChampions int
	Win               bool
}

func (s Summary) Validate() error {
	if s.MatchID == "" {
		return fmt.Errorf("match id is required")
	}
	if len(s.Participants) == 0 {
		return fmt.Errorf("summary has no participants")
	}

	seen := make(map[int]bool, len(s.Participants))
	for _, p := range s.Participants {
		if p.Slot < MinSlot || p.Slot > MaxSlot {
			return fmt.Errorf("participant slot %d out of range", p.Slot)
		}
		if seen[p.Slot] {
			return fmt.Errorf("duplicate participant slot %d", p.Slot)
		}
		seen[p.Slot] = true
	}

	return nil
}

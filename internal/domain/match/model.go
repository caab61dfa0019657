package match

import "fmt"

// Slots identify participants within a match. Slots 1-5 form the blue side,
// 6-10 the red side.
const (
	MinSlot = 1
	MaxSlot = 10

	TeamBlue = 100
	TeamRed  = 200
)

func TeamForSlot(slot int) int {
	if slot <= 5 {
		return TeamBlue
	}
	return TeamRed
}

// Timeline is the chronological record of a completed match as served by the
// upstream timeline endpoint.
type Timeline struct {
	MatchID         string
	QueueID         int
	DurationSeconds int64
	FrameIntervalMS int64
	Frames          []Frame
}

// Frame captures the state of all ten participants at one point in time plus
// the discrete events that occurred since the previous frame.
type Frame struct {
	TimestampMS  int64
	Participants map[int]ParticipantState
	Events       []Event
}

type ParticipantState struct {
	Slot                int
	PositionX           int
	PositionY           int
	CurrentGold         int
	TotalGold           int
	XP                  int
	MinionsKilled       int
	JungleMinionsKilled int
	DamageToChampions   int
	DamageTaken         int
}

func (p ParticipantState) CreepScore() int {
	return p.MinionsKilled + p.JungleMinionsKilled
}

// GoldSpent derives spend from the earned and carried totals.
func (p ParticipantState) GoldSpent() int {
	spent := p.TotalGold - p.CurrentGold
	if spent < 0 {
		return 0
	}
	return spent
}

type EventType string

const (
	EventChampionKill     EventType = "CHAMPION_KILL"
	EventWardPlaced       EventType = "WARD_PLACED"
	EventWardKill         EventType = "WARD_KILL"
	EventEliteMonsterKill EventType = "ELITE_MONSTER_KILL"
	EventBuildingKill     EventType = "BUILDING_KILL"
	EventItemPurchased    EventType = "ITEM_PURCHASED"
)

// Event is a discrete timeline occurrence. KillerSlot may be zero when the
// upstream credits a non-participant source, such as an execution.
type Event struct {
	Type         EventType
	TimestampMS  int64
	KillerSlot   int
	VictimSlot   int
	AssistSlots  []int
	WardType     string
	MonsterType  string
	BuildingType string
	ItemID       int
}

func (t Timeline) Validate() error {
	if t.MatchID == "" {
		return fmt.Errorf("match id is required")
	}
	if t.DurationSeconds < 0 {
		return fmt.Errorf("duration cannot be negative")
	}
	if len(t.Frames) == 0 {
		return fmt.Errorf("timeline has no frames")
	}

	var lastTS int64 = -1
	for i, frame := range t.Frames {
		if frame.TimestampMS < lastTS {
			return fmt.Errorf("frame %d timestamp %d precedes previous frame", i, frame.TimestampMS)
		}
		lastTS = frame.TimestampMS

		for slot := MinSlot; slot <= MaxSlot; slot++ {
			if _, ok := frame.Participants[slot]; !ok {
				return fmt.Errorf("frame %d is missing participant slot %d", i, slot)
			}
		}
		var lastEventTS int64 = -1
		for _, event := range frame.Events {
			if err := event.validateSlots(); err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			if event.TimestampMS < lastEventTS {
				return fmt.Errorf("frame %d: event %s timestamp %d precedes previous event", i, event.Type, event.TimestampMS)
			}
			lastEventTS = event.TimestampMS
		}
	}

	return nil
}

func (e Event) validateSlots() error {
	if e.KillerSlot < 0 || e.KillerSlot > MaxSlot {
		return fmt.Errorf("event %s references invalid killer slot %d", e.Type, e.KillerSlot)
	}
	if e.VictimSlot < 0 || e.VictimSlot > MaxSlot {
		return fmt.Errorf("event %s references invalid victim slot %d", e.Type, e.VictimSlot)
	}
	for _, slot := range e.AssistSlots {
		if slot < MinSlot || slot > MaxSlot {
			return fmt.Errorf("event %s references invalid assist slot %d", e.Type, slot)
		}
	}
	return nil
}

// LastFrame returns the final frame of the timeline. Callers must have
// validated the timeline first.
func (t Timeline) LastFrame() Frame {
	return t.Frames[len(t.Frames)-1]
}

// DurationMinutes derives the match length in minutes, preferring the
// reported duration and falling back to the last frame timestamp.
func (t Timeline) DurationMinutes() float64 {
	if t.DurationSeconds > 0 {
		return float64(t.DurationSeconds) / 60
	}
	if len(t.Frames) == 0 {
		return 0
	}
	return float64(t.LastFrame().TimestampMS) / 60000
}

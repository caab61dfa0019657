package riot

import (
	"strconv"

	"github.com/riskibarqy/match-insights/internal/domain/match"
)

type matchMetadata struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"`
}

type timelineEnvelope struct {
	Metadata matchMetadata `json:"metadata"`
	Info     timelineInfo  `json:"info"`
}

type timelineInfo struct {
	FrameInterval int64           `json:"frameInterval"`
	Frames        []timelineFrame `json:"frames"`
}

type timelineFrame struct {
	Timestamp         int64                       `json:"timestamp"`
	ParticipantFrames map[string]participantFrame `json:"participantFrames"`
	Events            []timelineEvent             `json:"events"`
}

type participantFrame struct {
	ParticipantID       int           `json:"participantId"`
	CurrentGold         int           `json:"currentGold"`
	TotalGold           int           `json:"totalGold"`
	XP                  int           `json:"xp"`
	MinionsKilled       int           `json:"minionsKilled"`
	JungleMinionsKilled int           `json:"jungleMinionsKilled"`
	DamageStats         damageStats   `json:"damageStats"`
	Position            framePosition `json:"position"`
}

type damageStats struct {
	TotalDamageDoneToChampions int `json:"totalDamageDoneToChampions"`
	TotalDamageTaken           int `json:"totalDamageTaken"`
}

type framePosition struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type timelineEvent struct {
	Type                    match.EventType `json:"type"`
	Timestamp               int64           `json:"timestamp"`
	KillerID                int             `json:"killerId"`
	VictimID                int             `json:"victimId"`
	CreatorID               int             `json:"creatorId"`
	ParticipantID           int             `json:"participantId"`
	AssistingParticipantIDs []int           `json:"assistingParticipantIds"`
	WardType                string          `json:"wardType"`
	MonsterType             string          `json:"monsterType"`
	BuildingType            string          `json:"buildingType"`
	ItemID                  int             `json:"itemId"`
}

type matchEnvelope struct {
	Metadata matchMetadata `json:"metadata"`
	Info     matchInfo     `json:"info"`
}

type matchInfo struct {
	QueueID          int                `json:"queueId"`
	GameDuration     int64              `json:"gameDuration"`
	GameEndTimestamp int64              `json:"gameEndTimestamp"`
	Participants     []matchParticipant `json:"participants"`
}

type matchParticipant struct {
	ParticipantID               int    `json:"participantId"`
	TeamID                      int    `json:"teamId"`
	ChampionName                string `json:"championName"`
	Kills                       int    `json:"kills"`
	Deaths                      int    `json:"deaths"`
	Assists                     int    `json:"assists"`
	GoldEarned                  int    `json:"goldEarned"`
	TotalMinionsKilled          int    `json:"totalMinionsKilled"`
	NeutralMinionsKilled        int    `json:"neutralMinionsKilled"`
	VisionScore                 int    `json:"visionScore"`
	TotalDamageDealtToChampions int    `json:"totalDamageDealtToChampions"`
	Win                         bool   `json:"win"`
}

func (e timelineEnvelope) toDomain() match.Timeline {
	frames := make([]match.Frame, 0, len(e.Info.Frames))
	for _, wire := range e.Info.Frames {
		frame := match.Frame{
			TimestampMS:  wire.Timestamp,
			Participants: make(map[int]match.ParticipantState, len(wire.ParticipantFrames)),
		}
		for key, pf := range wire.ParticipantFrames {
			slot := pf.ParticipantID
			if slot == 0 {
				slot, _ = strconv.Atoi(key)
			}
			frame.Participants[slot] = match.ParticipantState{
				Slot:                slot,
				PositionX:           pf.Position.X,
				PositionY:           pf.Position.Y,
				CurrentGold:         pf.CurrentGold,
				TotalGold:           pf.TotalGold,
				XP:                  pf.XP,
				MinionsKilled:       pf.MinionsKilled,
				JungleMinionsKilled: pf.JungleMinionsKilled,
				DamageToChampions:   pf.DamageStats.TotalDamageDoneToChampions,
				DamageTaken:         pf.DamageStats.TotalDamageTaken,
			}
		}
		for _, item := range wire.Events {
			if mapped, ok := mapTimelineEvent(item); ok {
				frame.Events = append(frame.Events, mapped)
			}
		}
		frames = append(frames, frame)
	}

	return match.Timeline{
		MatchID:         e.Metadata.MatchID,
		FrameIntervalMS: e.Info.FrameInterval,
		Frames:          frames,
	}
}

// mapTimelineEvent keeps the event types scoring consumes and drops the rest
// (level ups, skill ups, pauses, item undo).
func mapTimelineEvent(item timelineEvent) (match.Event, bool) {
	mapped := match.Event{Type: item.Type, TimestampMS: item.Timestamp}
	switch item.Type {
	case match.EventChampionKill:
		mapped.KillerSlot = item.KillerID
		mapped.VictimSlot = item.VictimID
		mapped.AssistSlots = item.AssistingParticipantIDs
	case match.EventWardPlaced:
		mapped.KillerSlot = item.CreatorID
		mapped.WardType = item.WardType
	case match.EventWardKill:
		mapped.KillerSlot = item.KillerID
		mapped.WardType = item.WardType
	case match.EventEliteMonsterKill:
		mapped.KillerSlot = item.KillerID
		mapped.AssistSlots = item.AssistingParticipantIDs
		mapped.MonsterType = item.MonsterType
	case match.EventBuildingKill:
		mapped.KillerSlot = item.KillerID
		mapped.AssistSlots = item.AssistingParticipantIDs
		mapped.BuildingType = item.BuildingType
	case match.EventItemPurchased:
		mapped.KillerSlot = item.ParticipantID
		mapped.ItemID = item.ItemID
	default:
		return match.Event{}, false
	}
	return mapped, true
}

func (e matchEnvelope) toDomain() match.Summary {
	participants := make([]match.SummaryParticipant, 0, len(e.Info.Participants))
	for _, p := range e.Info.Participants {
		participants = append(participants, match.SummaryParticipant{
			Slot:              p.ParticipantID,
			TeamID:            p.TeamID,
			ChampionName:      p.ChampionName,
			Kills:             p.Kills,
			Deaths:            p.Deaths,
			Assists:           p.Assists,
			GoldEarned:        p.GoldEarned,
			CreepScore:        p.TotalMinionsKilled + p.NeutralMinionsKilled,
			VisionScore:       p.VisionScore,
			DamageToChampions: p.TotalDamageDealtToChampions,
			Win:               p.Win,
		})
	}

	return match.Summary{
		MatchID:         e.Metadata.MatchID,
		QueueID:         e.Info.QueueID,
		DurationSeconds: e.durationSeconds(),
		Participants:    participants,
	}
}

// The provider changed gameDuration units mid-season: the value is seconds
// when gameEndTimestamp is present, milliseconds otherwise.
func (e matchEnvelope) durationSeconds() int64 {
	if e.Info.GameEndTimestamp > 0 {
		return e.Info.GameDuration
	}
	return e.Info.GameDuration / 1000
}

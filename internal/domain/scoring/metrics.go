package scoring

import "github.com/riskibarqy/match-insights/internal/domain/match"

// fightWindowMS groups kill events into fights: kills separated by at most
// this gap belong to the same engagement.
const fightWindowMS = 10_000

type participantTotals struct {
	slot               int
	team               int
	kills              int
	deaths             int
	assists            int
	finalGold          int
	finalGoldSpent     int
	finalCreepScore    int
	damageToChampions  int
	wardsPlaced        int
	wardsKilled        int
	killsInvolved      int
	objectivesInvolved int
	fightsInvolved     int
}

type timelineTotals struct {
	bySlot         map[int]*participantTotals
	teamKills      map[int]int
	teamObjectives map[int]int
	teamDamage     map[int]int
	teamGold       map[int]int
	totalFights    int
	minutes        float64
}

// collectTotals walks the timeline once, accumulating per-participant and
// per-team aggregates. Cumulative figures (gold, creep score, damage) come
// from the final frame; counted figures come from the event stream.
func collectTotals(t match.Timeline) *timelineTotals {
	totals := &timelineTotals{
		bySlot:         make(map[int]*participantTotals, match.MaxSlot),
		teamKills:      make(map[int]int, 2),
		teamObjectives: make(map[int]int, 2),
		teamDamage:     make(map[int]int, 2),
		teamGold:       make(map[int]int, 2),
		minutes:        t.DurationMinutes(),
	}
	for slot := match.MinSlot; slot <= match.MaxSlot; slot++ {
		totals.bySlot[slot] = &participantTotals{slot: slot, team: match.TeamForSlot(slot)}
	}

	last := t.LastFrame()
	for slot := match.MinSlot; slot <= match.MaxSlot; slot++ {
		state := last.Participants[slot]
		pt := totals.bySlot[slot]
		pt.finalGold = state.TotalGold
		pt.finalGoldSpent = state.GoldSpent()
		pt.finalCreepScore = state.CreepScore()
		pt.damageToChampions = state.DamageToChampions
		totals.teamGold[pt.team] += state.TotalGold
		totals.teamDamage[pt.team] += state.DamageToChampions
	}

	var kills []match.Event
	for _, frame := range t.Frames {
		for _, event := range frame.Events {
			switch event.Type {
			case match.EventChampionKill:
				totals.recordKill(event)
				kills = append(kills, event)
			case match.EventEliteMonsterKill, match.EventBuildingKill:
				totals.recordObjective(event)
			case match.EventWardPlaced:
				// Mushrooms and other pseudo-wards carry no vision value.
				if event.WardType == "TEEMO_MUSHROOM" {
					continue
				}
				if pt := totals.participant(event.KillerSlot); pt != nil {
					pt.wardsPlaced++
				}
			case match.EventWardKill:
				if pt := totals.participant(event.KillerSlot); pt != nil {
					pt.wardsKilled++
				}
			}
		}
	}

	totals.recordFights(kills)
	return totals
}

func (t *timelineTotals) participant(slot int) *participantTotals {
	if slot < match.MinSlot || slot > match.MaxSlot {
		return nil
	}
	return t.bySlot[slot]
}

func (t *timelineTotals) recordKill(event match.Event) {
	victim := t.participant(event.VictimSlot)
	if victim != nil {
		victim.deaths++
		// Executions have no killer slot but still count for the
		// opposing team's kill total.
		t.teamKills[opposingTeam(victim.team)]++
	}

	if killer := t.participant(event.KillerSlot); killer != nil {
		killer.kills++
		killer.killsInvolved++
	}
	for _, slot := range event.AssistSlots {
		if assister := t.participant(slot); assister != nil {
			assister.assists++
			assister.killsInvolved++
		}
	}
}

func (t *timelineTotals) recordObjective(event match.Event) {
	killer := t.participant(event.KillerSlot)
	if killer == nil {
		return
	}
	t.teamObjectives[killer.team]++
	killer.objectivesInvolved++
	for _, slot := range event.AssistSlots {
		if assister := t.participant(slot); assister != nil {
			assister.objectivesInvolved++
		}
	}
}

// recordFights clusters kill events into engagements and counts, per
// participant, how many distinct engagements they took part in as killer or
// assister. Kill events arrive in frame order, which is chronological.
func (t *timelineTotals) recordFights(kills []match.Event) {
	if len(kills) == 0 {
		return
	}

	var fightSlots map[int]bool
	var lastTS int64
	flush := func() {
		if len(fightSlots) == 0 {
			return
		}
		t.totalFights++
		for slot := range fightSlots {
			if pt := t.participant(slot); pt != nil {
				pt.fightsInvolved++
			}
		}
	}

	for i, event := range kills {
		if i == 0 || event.TimestampMS-lastTS > fightWindowMS {
			flush()
			fightSlots = make(map[int]bool)
		}
		lastTS = event.TimestampMS

		if event.KillerSlot >= match.MinSlot {
			fightSlots[event.KillerSlot] = true
		}
		for _, slot := range event.AssistSlots {
			fightSlots[slot] = true
		}
	}
	flush()
}

func opposingTeam(team int) int {
	if team == match.TeamBlue {
		return match.TeamRed
	}
	return match.TeamBlue
}

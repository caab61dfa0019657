package scoring

import (
	"errors"
	"math"
	"reflect"
	"sort"
	"testing"

	"github.com/riskibarqy/match-insights/internal/domain/gamemode"
	"github.com/riskibarqy/match-insights/internal/domain/match"
)

func participantStates(mutate func(slot int, s *match.ParticipantState)) map[int]match.ParticipantState {
	out := make(map[int]match.ParticipantState, match.MaxSlot)
	for slot := match.MinSlot; slot <= match.MaxSlot; slot++ {
		state := match.ParticipantState{Slot: slot}
		if mutate != nil {
			mutate(slot, &state)
		}
		out[slot] = state
	}
	return out
}

// classicTimeline is a 30-minute match with kills, objectives and wards
// spread across both teams.
func classicTimeline() match.Timeline {
	finalStates := participantStates(func(slot int, s *match.ParticipantState) {
		s.TotalGold = 8000 + slot*400
		s.CurrentGold = 500
		s.MinionsKilled = 120 + slot*10
		s.JungleMinionsKilled = 20
		s.XP = 12000 + slot*300
		s.DamageToChampions = 14000 + slot*800
	})

	events := []match.Event{
		{Type: match.EventItemPurchased, TimestampMS: 100_000, KillerSlot: 3, ItemID: 3031},
		{Type: match.EventWardPlaced, TimestampMS: 200_000, KillerSlot: 4, WardType: "YELLOW_TRINKET"},
		{Type: match.EventChampionKill, TimestampMS: 300_000, KillerSlot: 1, VictimSlot: 6, AssistSlots: []int{2, 3}},
		{Type: match.EventChampionKill, TimestampMS: 305_000, KillerSlot: 2, VictimSlot: 7, AssistSlots: []int{1}},
		{Type: match.EventWardPlaced, TimestampMS: 400_000, KillerSlot: 4, WardType: "CONTROL_WARD"},
		{Type: match.EventChampionKill, TimestampMS: 420_000, KillerSlot: 7, VictimSlot: 4, AssistSlots: []int{6, 8}},
		{Type: match.EventWardPlaced, TimestampMS: 500_000, KillerSlot: 9, WardType: "TEEMO_MUSHROOM"},
		{Type: match.EventEliteMonsterKill, TimestampMS: 600_000, KillerSlot: 2, AssistSlots: []int{1, 3}, MonsterType: "DRAGON"},
		{Type: match.EventWardKill, TimestampMS: 700_000, KillerSlot: 5},
		{Type: match.EventEliteMonsterKill, TimestampMS: 900_000, KillerSlot: 7, AssistSlots: []int{6}, MonsterType: "BARON_NASHOR"},
		{Type: match.EventBuildingKill, TimestampMS: 960_000, KillerSlot: 1, BuildingType: "TOWER_BUILDING"},
	}

	return match.Timeline{
		MatchID:         "NA1_100",
		QueueID:         420,
		DurationSeconds: 1800,
		FrameIntervalMS: 60_000,
		Frames: []match.Frame{
			{TimestampMS: 0, Participants: participantStates(nil)},
			{TimestampMS: 900_000, Participants: participantStates(nil), Events: events},
			{TimestampMS: 1_800_000, Participants: finalStates},
		},
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultWeights())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestCompute_TenScoresWithinRange(t *testing.T) {
	engine := newTestEngine(t)

	scores, err := engine.Compute(classicTimeline(), gamemode.ModeClassic)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(scores) != 10 {
		t.Fatalf("expected 10 scores, got %d", len(scores))
	}

	for i, score := range scores {
		if score.Slot != i+1 {
			t.Fatalf("expected slot %d at index %d, got %d", i+1, i, score.Slot)
		}
		if len(score.Dimensions) != 5 {
			t.Fatalf("slot %d: expected 5 dimensions, got %d", score.Slot, len(score.Dimensions))
		}
		for d, v := range score.Dimensions {
			if math.IsNaN(v) || v < 0 || v > 100 {
				t.Fatalf("slot %d dimension %s out of range: %f", score.Slot, d, v)
			}
		}
		if math.IsNaN(score.Overall) || score.Overall < 0 || score.Overall > 100 {
			t.Fatalf("slot %d overall out of range: %f", score.Slot, score.Overall)
		}
	}
}

func TestCompute_OverallMatchesRenormalizedWeights(t *testing.T) {
	engine := newTestEngine(t)

	for _, mode := range []gamemode.Mode{gamemode.ModeClassic, gamemode.ModeARAM, gamemode.ModeURF} {
		scores, err := engine.Compute(classicTimeline(), mode)
		if err != nil {
			t.Fatalf("compute %s: %v", mode, err)
		}

		dims := ApplicableDimensions(mode)
		weights := resolveWeights(DefaultWeights(), dims)

		var weightSum float64
		for _, w := range weights {
			weightSum += w
		}
		if math.Abs(weightSum-1) > 1e-9 {
			t.Fatalf("%s: renormalized weights sum to %f, want 1", mode, weightSum)
		}

		for _, score := range scores {
			var want float64
			for _, d := range dims {
				want += weights[d] * score.Dimensions[d]
			}
			if math.Abs(score.Overall-want) > 0.01 {
				t.Fatalf("%s slot %d: overall %f, want %f", mode, score.Slot, score.Overall, want)
			}
		}
	}
}

func TestCompute_ScenarioHighKDACombat(t *testing.T) {
	engine := newTestEngine(t)

	// Participant 1: 10 kills, 0 deaths, 5 assists over 20 minutes, with
	// damage output well above the per-gold ceiling.
	var events []match.Event
	for i := 0; i < 10; i++ {
		events = append(events, match.Event{
			Type:        match.EventChampionKill,
			TimestampMS: int64(60_000 + i*90_000),
			KillerSlot:  1,
			VictimSlot:  6 + i%5,
		})
	}
	for i := 0; i < 5; i++ {
		events = append(events, match.Event{
			Type:        match.EventChampionKill,
			TimestampMS: int64(90_000 + i*120_000),
			KillerSlot:  2,
			VictimSlot:  6 + i%5,
			AssistSlots: []int{1},
		})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].TimestampMS < events[j].TimestampMS })

	finalStates := participantStates(func(slot int, s *match.ParticipantState) {
		s.TotalGold = 8000
		s.CurrentGold = 500
		s.MinionsKilled = 100
		s.DamageToChampions = 9000
		if slot == 1 {
			s.TotalGold = 12500
			s.CurrentGold = 1000
			s.DamageToChampions = 24000
		}
	})

	timeline := match.Timeline{
		MatchID:         "M1",
		QueueID:         420,
		DurationSeconds: 1200,
		Frames: []match.Frame{
			{TimestampMS: 0, Participants: participantStates(nil)},
			{TimestampMS: 600_000, Participants: participantStates(nil), Events: events},
			{TimestampMS: 1_200_000, Participants: finalStates},
		},
	}

	scores, err := engine.Compute(timeline, gamemode.ModeClassic)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	first := scores[0]
	if first.Raw.KDA != 15 {
		t.Fatalf("expected raw KDA 15, got %f", first.Raw.KDA)
	}
	if combat := first.Dimensions[DimensionCombat]; combat < 90 {
		t.Fatalf("expected combat score >= 90 for KDA 15, got %f", combat)
	}
}

func TestCompute_ZeroDeathDenominatorFloors(t *testing.T) {
	engine := newTestEngine(t)

	scores, err := engine.Compute(classicTimeline(), gamemode.ModeClassic)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	// Slot 1 never dies in the fixture.
	first := scores[0]
	if first.Raw.Deaths != 0 {
		t.Fatalf("fixture drift: expected slot 1 to have zero deaths, got %d", first.Raw.Deaths)
	}
	if math.IsNaN(first.Raw.KDA) || math.IsInf(first.Raw.KDA, 0) {
		t.Fatalf("KDA must stay finite with zero deaths, got %f", first.Raw.KDA)
	}
	if combat := first.Dimensions[DimensionCombat]; combat < 0 || combat > 100 {
		t.Fatalf("combat out of range with zero deaths: %f", combat)
	}
}

func TestCompute_ZeroDurationNeverNaN(t *testing.T) {
	engine := newTestEngine(t)

	timeline := match.Timeline{
		MatchID: "NA1_0",
		QueueID: 420,
		Frames: []match.Frame{
			{TimestampMS: 0, Participants: participantStates(func(slot int, s *match.ParticipantState) {
				s.TotalGold = 500
			})},
		},
	}

	scores, err := engine.Compute(timeline, gamemode.ModeClassic)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for _, score := range scores {
		if economy := score.Dimensions[DimensionEconomy]; economy != 0 {
			t.Fatalf("slot %d: expected zero economy for zero-duration match, got %f", score.Slot, economy)
		}
		if vision := score.Dimensions[DimensionVision]; vision != 0 {
			t.Fatalf("slot %d: expected zero vision for zero-duration match, got %f", score.Slot, vision)
		}
		for d, v := range score.Dimensions {
			if math.IsNaN(v) {
				t.Fatalf("slot %d dimension %s is NaN", score.Slot, d)
			}
		}
		if math.IsNaN(score.Overall) {
			t.Fatalf("slot %d overall is NaN", score.Slot)
		}
	}
}

func TestCompute_MissingSlotIsMalformed(t *testing.T) {
	engine := newTestEngine(t)

	timeline := classicTimeline()
	broken := make(map[int]match.ParticipantState, 9)
	for slot, state := range timeline.Frames[1].Participants {
		if slot == 7 {
			continue
		}
		broken[slot] = state
	}
	timeline.Frames[1].Participants = broken

	_, err := engine.Compute(timeline, gamemode.ModeClassic)
	if err == nil {
		t.Fatal("expected malformed timeline error")
	}
	var malformed *MalformedTimelineError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected *MalformedTimelineError, got %T", err)
	}
	if malformed.MatchID != timeline.MatchID {
		t.Fatalf("unexpected match id in error: %s", malformed.MatchID)
	}
	if !IsMalformedTimeline(err) {
		t.Fatal("IsMalformedTimeline must report true")
	}
}

func TestCompute_EmptyTimelineIsMalformed(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.Compute(match.Timeline{MatchID: "NA1_1", QueueID: 420}, gamemode.ModeClassic)
	if !IsMalformedTimeline(err) {
		t.Fatalf("expected malformed timeline error, got %v", err)
	}
}

func TestCompute_UnsupportedModeRejected(t *testing.T) {
	engine := newTestEngine(t)

	for _, mode := range []gamemode.Mode{gamemode.ModeUnknown, gamemode.ModeArena} {
		_, err := engine.Compute(classicTimeline(), mode)
		if !errors.Is(err, ErrUnsupportedMode) {
			t.Fatalf("expected ErrUnsupportedMode for %s, got %v", mode, err)
		}
	}
}

func TestCompute_Deterministic(t *testing.T) {
	engine := newTestEngine(t)

	first, err := engine.Compute(classicTimeline(), gamemode.ModeClassic)
	if err != nil {
		t.Fatalf("first compute: %v", err)
	}
	second, err := engine.Compute(classicTimeline(), gamemode.ModeClassic)
	if err != nil {
		t.Fatalf("second compute: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical timelines must produce identical scores")
	}
}

func TestCompute_ARAMExcludesVision(t *testing.T) {
	engine := newTestEngine(t)

	scores, err := engine.Compute(classicTimeline(), gamemode.ModeARAM)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	totals := collectTotals(classicTimeline())
	for _, score := range scores {
		if _, ok := score.Dimensions[DimensionVision]; ok {
			t.Fatalf("slot %d: vision must not be scored for aram", score.Slot)
		}
		if len(score.Dimensions) != 4 {
			t.Fatalf("slot %d: expected 4 dimensions for aram, got %d", score.Slot, len(score.Dimensions))
		}
		// ARAM scores under the lite variant, so objective takes the fight
		// heuristic instead of the epic-objective share.
		want := round2(fightPresence(totals.bySlot[score.Slot], totals) * 100)
		if score.Dimensions[DimensionObjective] != want {
			t.Fatalf("slot %d: aram objective %f, want fight heuristic %f", score.Slot, score.Dimensions[DimensionObjective], want)
		}
	}
}

func TestCompute_LiteSubstitutesFightHeuristic(t *testing.T) {
	engine := newTestEngine(t)

	scores, err := engine.Compute(classicTimeline(), gamemode.ModeURF)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for _, score := range scores {
		objective := score.Dimensions[DimensionObjective]
		vision := score.Dimensions[DimensionVision]
		if objective != vision {
			t.Fatalf("slot %d: lite objective %f and vision %f must share the fight heuristic", score.Slot, objective, vision)
		}
		// Raw.FightPresence is rounded to two decimals, so allow the
		// residual from scaling it back up.
		if math.Abs(objective-score.Raw.FightPresence*100) > 0.5 {
			t.Fatalf("slot %d: lite objective %f diverges from fight presence %f", score.Slot, objective, score.Raw.FightPresence*100)
		}
	}
}

func TestNewEngine_RejectsInvalidWeights(t *testing.T) {
	if _, err := NewEngine(Weights{Combat: 0.5, Economy: 0.6}); err == nil {
		t.Fatal("expected error for weights not summing to 1")
	}
	if _, err := NewEngine(Weights{Combat: -0.2, Economy: 0.5, Objective: 0.3, Vision: 0.2, Team: 0.2}); err == nil {
		t.Fatal("expected error for negative weight")
	}
}

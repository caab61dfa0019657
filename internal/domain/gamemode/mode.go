package gamemode

// Mode is the gameplay ruleset a match was played under. Queue identifiers
// map many-to-one onto modes; anything unmapped is ModeUnknown.
type Mode string

const (
	ModeClassic   Mode = "classic"
	ModeARAM      Mode = "aram"
	ModeURF       Mode = "urf"
	ModeOneForAll Mode = "one_for_all"
	ModeArena     Mode = "arena"
	ModeUnknown   Mode = "unknown"
)

// Variant selects how much analysis a mode supports. Full runs every scoring
// dimension, lite runs the event-derived subset, basic bypasses scoring and
// reports raw summary statistics.
type Variant string

const (
	VariantFull  Variant = "full"
	VariantLite  Variant = "lite"
	VariantBasic Variant = "basic"
)

var modeByQueueID = map[int]Mode{
	400:  ModeClassic, // draft pick
	420:  ModeClassic, // ranked solo
	430:  ModeClassic, // blind pick
	440:  ModeClassic, // ranked flex
	490:  ModeClassic, // quickplay
	700:  ModeClassic, // clash
	450:  ModeARAM,
	900:  ModeURF,
	1900: ModeURF,
	1020: ModeOneForAll,
	1700: ModeArena,
	1710: ModeArena,
}

// Detect maps a queue identifier to its mode. Unmapped queues are reported
// as ModeUnknown rather than rejected, so callers can degrade gracefully.
func Detect(queueID int) Mode {
	if mode, ok := modeByQueueID[queueID]; ok {
		return mode
	}
	return ModeUnknown
}

func (m Mode) Variant() Variant {
	switch m {
	case ModeClassic:
		return VariantFull
	case ModeARAM, ModeURF, ModeOneForAll:
		// ARAM has no warding and its objectives differ from the rift, so
		// the full objective and vision formulas do not hold there.
		return VariantLite
	default:
		// Arena matches break the ten-slot frame contract, so they take
		// the basic path alongside unknown queues.
		return VariantBasic
	}
}

// Supported reports whether the scoring engine can process this mode.
func (m Mode) Supported() bool {
	return m.Variant() != VariantBasic
}

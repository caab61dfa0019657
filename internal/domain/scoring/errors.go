package scoring

import (
	"errors"
	"fmt"
)

// ErrUnsupportedMode is returned when a caller asks the engine to score a
// mode that only qualifies for the basic fallback path.
var ErrUnsupportedMode = errors.New("game mode not supported by the scoring engine")

// MalformedTimelineError reports a timeline that fails structural checks.
// It is permanent: retrying the same match cannot succeed.
type MalformedTimelineError struct {
	MatchID string
	Reason  string
}

func (e *MalformedTimelineError) Error() string {
	return fmt.Sprintf("malformed timeline for match %s: %s", e.MatchID, e.Reason)
}

// IsMalformedTimeline reports whether err is a timeline structure failure.
func IsMalformedTimeline(err error) bool {
	var target *MalformedTimelineError
	return errors.As(err, &target)
}

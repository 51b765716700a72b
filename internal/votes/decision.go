package votes

// Action is the transition a vote request caused.
type Action string

const (
	ActionCreated Action = "created"
	ActionChanged Action = "changed"
	ActionRemoved Action = "removed"
)

// Up and Down are the only values a vote row may hold. None marks the absence of a row.
const (
	Up   = 1
	Down = -1
	None = 0
)

// ValidValue reports whether v can be submitted as a vote.
func ValidValue(v int) bool {
	return v == Up || v == Down
}

// Decision is the outcome of applying a requested value to an existing vote.
type Decision struct {
	Action    Action
	Next      int // resulting vote value, None when the row is removed
	UpDelta   int
	DownDelta int
}

// Decide applies requested to existing (None when the user has not voted).
// Re-submitting the existing polarity removes the vote; the opposite polarity
// flips it; anything from None creates it.
func Decide(existing, requested int) Decision {
	switch {
	case existing == None:
		d := Decision{Action: ActionCreated, Next: requested}
		d.adjust(requested, 1)
		return d
	case existing == requested:
		d := Decision{Action: ActionRemoved, Next: None}
		d.adjust(existing, -1)
		return d
	default:
		d := Decision{Action: ActionChanged, Next: requested}
		d.adjust(existing, -1)
		d.adjust(requested, 1)
		return d
	}
}

func (d *Decision) adjust(value, by int) {
	if value == Up {
		d.UpDelta += by
	} else {
		d.DownDelta += by
	}
}

package task

// Status is a task instance's position in the workflow.
type Status string

const (
	StatusDoing  Status = "doing"
	StatusReview Status = "review"
	StatusDone   Status = "done"
)

// Ledger entry reasons.
const (
	ReasonTaskApproved     = "task_approved"
	ReasonRentPaid         = "rent_paid"
	ReasonManualAdjustment = "manual_adjustment"
)

// Column width limits, enforced by truncation on write.
const (
	MaxNameLen    = 80
	MaxTitleLen   = 140
	MaxHelpLen    = 1000
	MaxDetailsLen = 1000
	MaxNoteLen    = 255
)

// transitions is the complete move table. Done is terminal for Move;
// it is reached only through approval.
var transitions = map[Status][]Status{
	StatusDoing:  {StatusReview},
	StatusReview: {StatusDoing},
	StatusDone:   {},
}

// ParseStatus validates a raw status string.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusDoing, StatusReview, StatusDone:
		return Status(s), true
	}
	return "", false
}

// CanMove reports whether the move table allows from -> to.
func CanMove(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CheckMove returns an IllegalTransitionError if from -> to is not allowed.
func CheckMove(from, to Status) error {
	if !CanMove(from, to) {
		return &IllegalTransitionError{From: from, To: to}
	}
	return nil
}

// MonthsCovered reports how many months of rent a balance funds. Display-only
// projection; returns 0 when the rent amount is not positive.
func MonthsCovered(balance, rentAmount int) float64 {
	if rentAmount <= 0 {
		return 0
	}
	return float64(balance) / float64(rentAmount)
}

// ClampRentDay limits the rent day-of-month to 1-28 so every month has the
// configured day.
func ClampRentDay(day int) int {
	if day < 1 {
		return 1
	}
	if day > 28 {
		return 28
	}
	return day
}

// Truncate limits s to max bytes.
func Truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

package roll

import (
	"fmt"
	"strings"
)

const (
	markSuccess  = "✓"
	markFailure  = "✗"
	markCritical = "✗ -1"
)

// Die is the outcome of a single die in a pool.
type Die struct {
	Index     int  `json:"index"` // 1-based position in roll order
	Face      int  `json:"face"`
	Resolved  int  `json:"resolved"` // face value after the exploding rule
	Attribute int  `json:"attribute"`
	Bonus     int  `json:"bonus"`
	Total     int  `json:"total"`
	Success   bool `json:"success"`
	Critical  bool `json:"critical,omitempty"`
	Exploded  bool `json:"exploded,omitempty"`
}

// Successes is the die's contribution to the pool: -1, 0 or 1.
func (d Die) Successes() int {
	switch {
	case d.Critical:
		return -1
	case d.Success:
		return 1
	default:
		return 0
	}
}

// String formats the die as "#<index>[!] = <die>(<resolved>) + <attr> + <bonus> = <total> [<mark>]".
// The "!" marks a die that exploded.
func (d Die) String() string {
	bang := ""
	if d.Exploded {
		bang = "!"
	}
	mark := markFailure
	switch {
	case d.Critical:
		mark = markCritical
	case d.Success:
		mark = markSuccess
	}
	return fmt.Sprintf("#%d%s = %d(%d) + %d + %d = %d [%s]",
		d.Index, bang, d.Face, d.Resolved, d.Attribute, d.Bonus, d.Total, mark)
}

// Result is the outcome of a pool.
type Result struct {
	Input     Input `json:"-"`
	Successes int   `json:"successes"` // may be negative
	Dice      []Die `json:"dice"`
	Capped    bool  `json:"capped,omitempty"` // the safety cap stopped the pool early
}

// Trace returns one display line per die, in roll order.
func (r *Result) Trace() []string {
	lines := make([]string, 0, len(r.Dice))
	for _, d := range r.Dice {
		lines = append(lines, d.String())
	}
	return lines
}

// Summary formats the success count with a pluralized noun, e.g. "2 successes".
func (r *Result) Summary() string {
	return SuccessPhrase(r.Successes)
}

// SuccessPhrase formats n successes, e.g. "1 success", "-2 successes".
func SuccessPhrase(n int) string {
	if n == 1 || n == -1 {
		return fmt.Sprintf("%d success", n)
	}
	return fmt.Sprintf("%d successes", n)
}

// Report renders the result for the transcript: a headline followed by the
// per-die trace.
func (r *Result) Report(req Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s + %s vs %d: %s", req.Skill, req.Attribute, req.Difficulty, r.Summary())
	for _, line := range r.Trace() {
		sb.WriteString("\n")
		sb.WriteString(line)
	}
	if r.Capped {
		fmt.Fprintf(&sb, "\n(stopped after %d dice)", len(r.Dice))
	}
	return sb.String()
}

package roll

// Bonus holds the optional modifiers a narrator can grant to a check.
type Bonus struct {
	Narrative   int `json:"narrative,omitempty"`
	Effort      int `json:"effort,omitempty"`
	Situational int `json:"situational,omitempty"`
}

// Total sums the bonus parts. A nil bonus totals zero.
func (b *Bonus) Total() int {
	if b == nil {
		return 0
	}
	return b.Narrative + b.Effort + b.Situational
}

// Check names a skill/attribute pairing.
type Check struct {
	Skill     string `json:"skill"`
	Attribute string `json:"attribute"`
}

// Request asks the player to roll a check. It is produced by the narrator and
// consumed exactly once when the player resolves it.
type Request struct {
	Skill       string `json:"skill"`
	Attribute   string `json:"attribute"`
	Difficulty  int    `json:"difficulty"`
	Bonus       *Bonus `json:"bonus,omitempty"`
	Alternative *Check `json:"alternative,omitempty"`
}

// HasAlternative reports whether the request offers a usable alternative check.
func (r *Request) HasAlternative() bool {
	return r.Alternative != nil && r.Alternative.Skill != "" && r.Alternative.Attribute != ""
}

// Swap returns the request with the alternative check substituted when
// useAlternative is set and one is available. Difficulty and bonus carry over.
func (r Request) Swap(useAlternative bool) Request {
	if !useAlternative || !r.HasAlternative() {
		return r
	}
	r.Skill = r.Alternative.Skill
	r.Attribute = r.Alternative.Attribute
	return r
}

// Clone returns a copy of the request that shares no pointers with the original.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Bonus != nil {
		b := *r.Bonus
		cp.Bonus = &b
	}
	if r.Alternative != nil {
		a := *r.Alternative
		cp.Alternative = &a
	}
	return &cp
}

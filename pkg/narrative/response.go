// Package narrative parses the structured reply of the narrator model.
package narrative

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jwebster45206/anima-narrator/pkg/roll"
	"github.com/jwebster45206/anima-narrator/pkg/state"
)

// ErrNoNarrative is returned when a reply carries no narrative text.
var ErrNoNarrative = errors.New("narrator reply has no narrative")

// Response is one narrator turn.
type Response struct {
	Narrative    string             `json:"narrative"`
	ASCIIArt     string             `json:"ascii_art,omitempty"`
	RequiredRoll *roll.Request      `json:"required_roll,omitempty"`
	StateUpdate  *state.StateUpdate `json:"state_update,omitempty"`

	// Dropped names top-level fields that were present but unusable.
	Dropped []string `json:"-"`
}

// aliases maps accepted spellings to the canonical field name.
var aliases = map[string]string{
	"narrative":     "narrative",
	"ascii_art":     "ascii_art",
	"asciiArt":      "ascii_art",
	"required_roll": "required_roll",
	"requiredRoll":  "required_roll",
	"state_update":  "state_update",
	"stateUpdate":   "state_update",
}

// Parse extracts a Response from raw model output. The JSON object may be
// wrapped in a markdown code fence or surrounded by prose. Only a missing
// narrative is an error; a malformed roll request or art is dropped.
func Parse(content string) (*Response, error) {
	obj, err := extractObject(content)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]json.RawMessage, len(obj))
	for k, v := range obj {
		if canonical, ok := aliases[k]; ok {
			fields[canonical] = v
		}
	}

	resp := &Response{}
	if err := json.Unmarshal(fields["narrative"], &resp.Narrative); err != nil || strings.TrimSpace(resp.Narrative) == "" {
		return nil, ErrNoNarrative
	}

	if raw, ok := fields["ascii_art"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &resp.ASCIIArt); err != nil {
			resp.Dropped = append(resp.Dropped, "ascii_art")
		}
	}

	if raw, ok := fields["required_roll"]; ok && !isNull(raw) {
		if req, ok := decodeRoll(raw); ok {
			resp.RequiredRoll = req
		} else {
			resp.Dropped = append(resp.Dropped, "required_roll")
		}
	}

	if raw, ok := fields["state_update"]; ok && !isNull(raw) {
		var u state.StateUpdate
		// StateUpdate never fails to decode; bad fragments land in u.Dropped.
		_ = json.Unmarshal(raw, &u)
		resp.StateUpdate = &u
	}

	return resp, nil
}

// decodeRoll validates a roll request: skill and attribute must be named and
// difficulty must be a positive integer. A half-specified alternative is
// discarded.
func decodeRoll(raw json.RawMessage) (*roll.Request, bool) {
	var req roll.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, false
	}
	req.Skill = strings.TrimSpace(req.Skill)
	req.Attribute = strings.TrimSpace(req.Attribute)
	if req.Skill == "" || req.Attribute == "" || req.Difficulty <= 0 {
		return nil, false
	}
	if req.Alternative != nil && !req.HasAlternative() {
		req.Alternative = nil
	}
	return &req, true
}

// extractObject finds the outermost JSON object in content.
func extractObject(content string) (map[string]json.RawMessage, error) {
	s := strings.TrimSpace(content)
	if after, ok := strings.CutPrefix(s, "```"); ok {
		s = strings.TrimPrefix(after, "json")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in narrator reply")
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s[start:end+1]), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse narrator reply: %w", err)
	}
	return obj, nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

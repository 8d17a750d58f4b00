package runner

import (
	"time"
)

// TestSuite is one scripted play-through against a running API.
type TestSuite struct {
	Name       string     `yaml:"name"`
	Class      string     `yaml:"class,omitempty"` // Empty draws a random class
	PlayerName string     `yaml:"player_name,omitempty"`
	Steps      []TestStep `yaml:"steps"`
}

// TestStep is one request and what to check afterwards. A step either sends
// Command or, with Roll set, confirms the pending roll.
type TestStep struct {
	Name           string       `yaml:"name,omitempty"`
	Command        string       `yaml:"command,omitempty"`
	Roll           bool         `yaml:"roll,omitempty"`
	UseAlternative bool         `yaml:"use_alternative,omitempty"`
	Expectations   Expectations `yaml:"expect"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	Status    int      `yaml:"status,omitempty"` // HTTP status, 200 when unset
	Phase     string   `yaml:"phase,omitempty"`
	InCombat  *bool    `yaml:"in_combat,omitempty"`
	Inventory []string `yaml:"inventory,omitempty"` // Items that must be held
	Location  string   `yaml:"location,omitempty"`  // Current room name

	// Response Analysis
	ResponseContains    []string `yaml:"response_contains,omitempty"`
	ResponseNotContains []string `yaml:"response_not_contains,omitempty"`
	ResponseRegex       string   `yaml:"response_regex,omitempty"`
	ResponseMinLength   *int     `yaml:"response_min_length,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	ResponseText string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Name     string
	GameID   string
	Results  []TestResult
	Error    error
	Duration time.Duration
}

package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/jwebster45206/anima-narrator/internal/handlers"
	"github.com/jwebster45206/anima-narrator/pkg/actor"
	"github.com/jwebster45206/anima-narrator/pkg/chat"
	"gopkg.in/yaml.v3"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running narrator API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 2 * time.Minute},
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a YAML file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse YAML in %s: %w", filename, err)
	}
	if suite.Name == "" {
		suite.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	for i, step := range suite.Steps {
		if (step.Command == "") == !step.Roll {
			return TestSuite{}, fmt.Errorf("%s step %d: exactly one of command or roll is required", filename, i+1)
		}
	}
	return suite, nil
}

// DiscoverSuites returns every *.yaml case in dir, sorted by name.
func DiscoverSuites(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

// RunSuite creates a fresh game and plays every step of suite in order.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) TestRunResult {
	start := time.Now()
	result := TestRunResult{
		Name:    suite.Name,
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	var game handlers.GameResponse
	req := handlers.CreateGameRequest{PlayerName: suite.PlayerName, Class: suite.Class}
	if _, err := r.do(ctx, http.MethodPost, "/v1/games", req, http.StatusCreated, &game); err != nil {
		result.Error = fmt.Errorf("failed to create game: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	result.GameID = game.ID

	for i, step := range suite.Steps {
		name := stepName(step, i)
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), name)

		stepResult := r.runStep(ctx, game.ID, step)
		stepResult.StepName = name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i+1, name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}
		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result
}

func stepName(step TestStep, i int) string {
	switch {
	case step.Name != "":
		return step.Name
	case step.Roll:
		return fmt.Sprintf("step %d: roll", i+1)
	default:
		return fmt.Sprintf("step %d: %s", i+1, step.Command)
	}
}

func (r *Runner) runStep(ctx context.Context, gameID string, step TestStep) TestResult {
	start := time.Now()
	var result TestResult

	want := step.Expectations.Status
	if want == 0 {
		want = http.StatusOK
	}

	var (
		resp   chat.CommandResponse
		status int
		err    error
	)
	if step.Roll {
		body := chat.RollConfirmRequest{UseAlternative: step.UseAlternative}
		status, err = r.do(ctx, http.MethodPost, "/v1/games/"+gameID+"/roll", body, want, &resp)
	} else {
		body := chat.CommandRequest{Message: step.Command}
		status, err = r.do(ctx, http.MethodPost, "/v1/games/"+gameID+"/commands", body, want, &resp)
	}
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		return result
	}
	if status != http.StatusOK {
		// expected failure; nothing more to check
		result.Success = true
		return result
	}

	result.ResponseText = responseText(resp.Messages)

	var game handlers.GameResponse
	if _, err := r.do(ctx, http.MethodGet, "/v1/games/"+gameID, nil, http.StatusOK, &game); err != nil {
		result.Error = fmt.Errorf("failed to read game: %w", err)
		return result
	}

	if err := CheckExpectations(step.Expectations, &game, result.ResponseText); err != nil {
		result.Error = err
		return result
	}
	result.Success = true
	return result
}

// responseText joins the narrator-facing entries of a response.
func responseText(msgs []chat.ChatMessage) string {
	var parts []string
	for _, m := range msgs {
		if m.Role == chat.ChatRoleUser {
			continue
		}
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n")
}

// CheckExpectations compares a game and response text against exp and
// reports every mismatch.
func CheckExpectations(exp Expectations, game *handlers.GameResponse, response string) error {
	var problems []string

	if exp.Phase != "" && game.Phase != exp.Phase {
		problems = append(problems, fmt.Sprintf("phase: expected %q, got %q", exp.Phase, game.Phase))
	}
	if gs := game.State; gs != nil {
		if exp.InCombat != nil && gs.InCombat != *exp.InCombat {
			problems = append(problems, fmt.Sprintf("in_combat: expected %v, got %v", *exp.InCombat, gs.InCombat))
		}
		held := actor.NewNameSet(actor.ItemNames(gs.Player.Inventory))
		for _, item := range exp.Inventory {
			if !held.Has(item) {
				problems = append(problems, fmt.Sprintf("inventory: missing %q", item))
			}
		}
		if exp.Location != "" {
			room, ok := gs.CurrentRoom()
			if !ok || actor.NameKey(room.Name) != actor.NameKey(exp.Location) {
				problems = append(problems, fmt.Sprintf("location: expected %q, got %q", exp.Location, room.Name))
			}
		}
	}

	lower := strings.ToLower(response)
	for _, s := range exp.ResponseContains {
		if !strings.Contains(lower, strings.ToLower(s)) {
			problems = append(problems, fmt.Sprintf("response does not contain %q", s))
		}
	}
	for _, s := range exp.ResponseNotContains {
		if strings.Contains(lower, strings.ToLower(s)) {
			problems = append(problems, fmt.Sprintf("response contains %q", s))
		}
	}
	if exp.ResponseRegex != "" {
		re, err := regexp.Compile(exp.ResponseRegex)
		if err != nil {
			problems = append(problems, fmt.Sprintf("invalid response_regex: %v", err))
		} else if !re.MatchString(response) {
			problems = append(problems, fmt.Sprintf("response does not match %q", exp.ResponseRegex))
		}
	}
	if exp.ResponseMinLength != nil && len(response) < *exp.ResponseMinLength {
		problems = append(problems, fmt.Sprintf("response length %d below %d", len(response), *exp.ResponseMinLength))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// do sends a JSON request. The response is decoded into out when the status
// matches want; any other status is an error.
func (r *Runner) do(ctx context.Context, method, path string, body any, want int, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != want {
		return resp.StatusCode, fmt.Errorf("%s %s returned %d (expected %d): %s", method, path, resp.StatusCode, want, strings.TrimSpace(string(data)))
	}
	if out != nil && (resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated) {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

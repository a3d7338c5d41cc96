package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario scripts a mock diagnosis conversation: an ordered list of
// steps the mock model replays, plus canned tool responses that answer
// tools without executing them.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// Settings carries the global pacing knobs.
	Settings ScenarioSettings `yaml:"settings,omitempty"`

	// ToolResponses answers the named tools from the script instead of
	// executing them, keyed by tool name.
	ToolResponses map[string]MockToolResponse `yaml:"tool_responses,omitempty"`

	Steps []ScenarioStep `yaml:"steps"`
}

// ScenarioSettings paces the replay so demos read like a live session.
type ScenarioSettings struct {
	// ThinkingDelayMs pauses before each response. Default 2000.
	ThinkingDelayMs int `yaml:"thinking_delay_ms,omitempty"`

	// ToolDelayMs pauses between tool calls within a step. Default 500.
	ToolDelayMs int `yaml:"tool_delay_ms,omitempty"`
}

// ScenarioStep is one scripted model turn.
type ScenarioStep struct {
	// Trigger gates the step on request content. An empty trigger
	// auto-advances. Recognized forms:
	//   user_message       matches any request
	//   tool_result:NAME   matches once NAME's tool result arrives
	//   contains:TEXT      case-insensitive substring match
	//   anything else      case-insensitive substring match
	Trigger string `yaml:"trigger,omitempty"`

	// Text is the assistant prose for this turn.
	Text string `yaml:"text,omitempty"`

	// ToolCalls are issued after the text, in order.
	ToolCalls []MockToolCall `yaml:"tool_calls,omitempty"`

	// DelayMs overrides ThinkingDelayMs for this step.
	DelayMs int `yaml:"delay_ms,omitempty"`
}

// MockToolCall names a tool and its arguments.
type MockToolCall struct {
	Name string                 `yaml:"name"`
	Args map[string]interface{} `yaml:"args"`
}

// MockToolResponse is a canned tool result.
type MockToolResponse struct {
	Success bool        `yaml:"success"`
	Summary string      `yaml:"summary,omitempty"`
	Data    interface{} `yaml:"data,omitempty"`
	Error   string      `yaml:"error,omitempty"`
	DelayMs int         `yaml:"delay_ms,omitempty"`
}

// DefaultSettings returns the demo pacing: two seconds of thinking and
// half a second between tools.
func DefaultSettings() ScenarioSettings {
	return ScenarioSettings{
		ThinkingDelayMs: 2000,
		ToolDelayMs:     500,
	}
}

// LoadScenario reads and validates a scenario YAML file. A leading ~
// expands to the home directory.
func LoadScenario(path string) (*Scenario, error) {
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- the scenario path is operator-provided configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", path, err)
	}
	scenario.applyDefaultTimings()

	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

// LoadScenarioFromDir resolves a named scenario under
// ~/.responder/scenarios, trying .yaml then .yml.
func LoadScenarioFromDir(name string) (*Scenario, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".responder", "scenarios")

	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return LoadScenario(path)
		}
	}
	return nil, fmt.Errorf("no scenario %q in %s (tried .yaml and .yml)", name, dir)
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

func (s *Scenario) applyDefaultTimings() {
	def := DefaultSettings()
	if s.Settings.ThinkingDelayMs == 0 {
		s.Settings.ThinkingDelayMs = def.ThinkingDelayMs
	}
	if s.Settings.ToolDelayMs == 0 {
		s.Settings.ToolDelayMs = def.ToolDelayMs
	}
}

// Validate rejects scenarios the mock cannot replay.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario has no name")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario has no steps")
	}
	for i, step := range s.Steps {
		if err := step.validate(); err != nil {
			return fmt.Errorf("step[%d]: %w", i, err)
		}
	}
	return nil
}

func (st *ScenarioStep) validate() error {
	if st.Text == "" && len(st.ToolCalls) == 0 {
		return fmt.Errorf("needs text or tool_calls")
	}
	for j, tc := range st.ToolCalls {
		if tc.Name == "" {
			return fmt.Errorf("tool_calls[%d] is missing a name", j)
		}
	}
	return nil
}

// GetThinkingDelay returns the delay for a step, honoring its override.
func (s *Scenario) GetThinkingDelay(stepIndex int) int {
	if stepIndex >= 0 && stepIndex < len(s.Steps) && s.Steps[stepIndex].DelayMs > 0 {
		return s.Steps[stepIndex].DelayMs
	}
	return s.Settings.ThinkingDelayMs
}

// GetToolDelay returns the between-tools delay.
func (s *Scenario) GetToolDelay() int {
	return s.Settings.ToolDelayMs
}

// GetToolResponse returns the canned response for a tool, nil when the
// tool should execute for real.
func (s *Scenario) GetToolResponse(toolName string) *MockToolResponse {
	resp, ok := s.ToolResponses[toolName]
	if !ok {
		return nil
	}
	return &resp
}

// StepMatcher walks the scenario, matching steps against request
// content. A step whose trigger never matches is passed over for good
// once a later step fires.
type StepMatcher struct {
	scenario  *Scenario
	stepIndex int
	done      []bool
}

// NewStepMatcher starts a matcher at the first step.
func NewStepMatcher(scenario *Scenario) *StepMatcher {
	return &StepMatcher{
		scenario: scenario,
		done:     make([]bool, len(scenario.Steps)),
	}
}

// NextStep returns the first unfired step at or after the cursor whose
// trigger matches, advancing the cursor past it. Returns nil when the
// scenario is exhausted.
func (m *StepMatcher) NextStep(requestContent string) *ScenarioStep {
	for i := m.stepIndex; i < len(m.scenario.Steps); i++ {
		if m.done[i] {
			continue
		}
		step := &m.scenario.Steps[i]
		if m.matchesTrigger(step.Trigger, requestContent) {
			m.stepIndex = i + 1
			m.done[i] = true
			return step
		}
	}
	return nil
}

// matchesTrigger implements the trigger grammar described on
// ScenarioStep.Trigger. tool_result: matching is case-sensitive because
// tool names are exact identifiers.
func (m *StepMatcher) matchesTrigger(trigger, content string) bool {
	switch {
	case trigger == "", trigger == "user_message":
		return true
	case strings.HasPrefix(trigger, "tool_result:"):
		return strings.Contains(content, strings.TrimPrefix(trigger, "tool_result:"))
	case strings.HasPrefix(trigger, "contains:"):
		pattern := strings.TrimPrefix(trigger, "contains:")
		return strings.Contains(strings.ToLower(content), strings.ToLower(pattern))
	default:
		return strings.Contains(strings.ToLower(content), strings.ToLower(trigger))
	}
}

// CurrentStepIndex returns the cursor position.
func (m *StepMatcher) CurrentStepIndex() int {
	return m.stepIndex
}

// Reset rewinds the matcher to the first step.
func (m *StepMatcher) Reset() {
	m.stepIndex = 0
	m.done = make([]bool, len(m.scenario.Steps))
}

// HasMoreSteps reports whether the cursor has steps left.
func (m *StepMatcher) HasMoreSteps() bool {
	return m.stepIndex < len(m.scenario.Steps)
}

package model

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// MockLLM replays a scripted Scenario through the model.LLM interface,
// so diagnosis flows run without real API calls. Demos and agent tests
// both drive the commander with it.
type MockLLM struct {
	scenario *Scenario
	matcher  *StepMatcher

	thinkingDelay time.Duration
	toolDelay     time.Duration

	mu  sync.Mutex
	log []ConversationEntry
}

// ConversationEntry records one request/response pair for debugging.
type ConversationEntry struct {
	Timestamp time.Time
	Request   string
	Response  string
	ToolCalls []string
}

// NewMockLLM loads the scenario at path and wraps it.
func NewMockLLM(scenarioPath string) (*MockLLM, error) {
	scenario, err := LoadScenario(scenarioPath)
	if err != nil {
		return nil, err
	}
	return NewMockLLMFromScenario(scenario)
}

// NewMockLLMFromName loads a named scenario from ~/.responder/scenarios.
func NewMockLLMFromName(name string) (*MockLLM, error) {
	scenario, err := LoadScenarioFromDir(name)
	if err != nil {
		return nil, err
	}
	return NewMockLLMFromScenario(scenario)
}

// NewMockLLMFromScenario wraps an already-built scenario.
func NewMockLLMFromScenario(scenario *Scenario) (*MockLLM, error) {
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &MockLLM{
		scenario:      scenario,
		matcher:       NewStepMatcher(scenario),
		thinkingDelay: time.Duration(scenario.Settings.ThinkingDelayMs) * time.Millisecond,
		toolDelay:     time.Duration(scenario.Settings.ToolDelayMs) * time.Millisecond,
	}, nil
}

// Name returns the model identifier, prefixed so logs show the run was
// mocked.
func (m *MockLLM) Name() string {
	if m.scenario != nil {
		return "mock:" + m.scenario.Name
	}
	return "mock"
}

// Scenario returns the scenario driving this mock. The runner reads its
// tool_responses block to install canned tool results.
func (m *MockLLM) Scenario() *Scenario { return m.scenario }

// GenerateContent yields the next scripted step, honoring per-step
// delay overrides and context cancellation during the thinking pause.
func (m *MockLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		request := requestText(req)

		delay := m.thinkingDelay
		if idx := m.matcher.CurrentStepIndex(); idx < len(m.scenario.Steps) && m.scenario.Steps[idx].DelayMs > 0 {
			delay = time.Duration(m.scenario.Steps[idx].DelayMs) * time.Millisecond
		}
		select {
		case <-ctx.Done():
			yield(nil, ctx.Err())
			return
		case <-time.After(delay):
		}

		resp, err := m.nextResponse(ctx, request)
		if err != nil {
			yield(nil, err)
			return
		}
		m.record(request, resp)
		yield(resp, nil)
	}
}

// nextResponse renders the next matching step, or the exhaustion
// message once the script has run out.
func (m *MockLLM) nextResponse(ctx context.Context, request string) (*model.LLMResponse, error) {
	step := m.matcher.NextStep(request)
	if step == nil {
		return &model.LLMResponse{
			Content: &genai.Content{
				Parts: []*genai.Part{{Text: "[Mock scenario completed - no more steps]"}},
				Role:  "model",
			},
			FinishReason: genai.FinishReasonStop,
			TurnComplete: true,
			UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
				PromptTokenCount:     100,
				CandidatesTokenCount: 10,
				TotalTokenCount:      110,
			},
		}, nil
	}

	parts := make([]*genai.Part, 0, 1+len(step.ToolCalls))
	if step.Text != "" {
		parts = append(parts, &genai.Part{Text: step.Text})
	}
	for i, tc := range step.ToolCalls {
		// Later tool calls in the same step pace out by the tool delay.
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(m.toolDelay):
			}
		}
		args := tc.Args
		if args == nil {
			args = make(map[string]interface{})
		}
		parts = append(parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{
				ID:   fmt.Sprintf("mock_call_%d", i),
				Name: tc.Name,
				Args: args,
			},
		})
	}

	promptTokens := len(parts) * 50
	outputTokens := len(step.Text) / 4
	// #nosec G115 -- token estimates cannot overflow int32
	return &model.LLMResponse{
		Content:      &genai.Content{Parts: parts, Role: "model"},
		FinishReason: genai.FinishReasonStop,
		TurnComplete: true,
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     int32(promptTokens),
			CandidatesTokenCount: int32(outputTokens),
			TotalTokenCount:      int32(promptTokens + outputTokens),
		},
	}, nil
}

// record appends a truncated request/response pair to the conversation
// log.
func (m *MockLLM) record(request string, resp *model.LLMResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := ConversationEntry{
		Timestamp: time.Now(),
		Request:   clip(request, 200),
	}
	if resp != nil && resp.Content != nil {
		var texts []string
		for _, part := range resp.Content.Parts {
			if part.Text != "" {
				texts = append(texts, clip(part.Text, 100))
			}
			if part.FunctionCall != nil {
				entry.ToolCalls = append(entry.ToolCalls, part.FunctionCall.Name)
			}
		}
		entry.Response = strings.Join(texts, " | ")
	}
	m.log = append(m.log, entry)
}

// GetConversationLog returns a copy of the conversation log.
func (m *MockLLM) GetConversationLog() []ConversationEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ConversationEntry{}, m.log...)
}

// Reset rewinds the scenario and clears the log so the next request
// replays from the first step.
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matcher.Reset()
	m.log = nil
}

// requestText flattens a request into text for logging and trigger
// matching. Tool results are tagged with their tool name so
// tool_result: triggers can find them.
func requestText(req *model.LLMRequest) string {
	if req == nil || len(req.Contents) == 0 {
		return ""
	}
	var parts []string
	for _, content := range req.Contents {
		if content == nil {
			continue
		}
		for _, part := range content.Parts {
			if part == nil {
				continue
			}
			if part.Text != "" {
				parts = append(parts, part.Text)
			}
			if part.FunctionResponse != nil {
				respJSON, _ := json.Marshal(part.FunctionResponse.Response)
				parts = append(parts, fmt.Sprintf("[tool_result:%s] %s", part.FunctionResponse.Name, respJSON))
			}
		}
	}
	return strings.Join(parts, "\n")
}

// clip truncates s to max characters with an ellipsis marker.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

var _ model.LLM = (*MockLLM)(nil)

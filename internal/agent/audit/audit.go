// Package audit writes the diagnosis audit trail. Every run appends a
// stream of JSONL events (session lifecycle, agent activations, tool
// calls, verdicts, LLM usage) that can be replayed later to reconstruct
// exactly what the agents did and why.
package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// EventType identifies one kind of audit event.
type EventType string

// Session and diagnosis lifecycle events.
const (
	EventTypeSessionStart      EventType = "session_start"
	EventTypeUserMessage       EventType = "user_message"
	EventTypeAgentActivated    EventType = "agent_activated"
	EventTypeToolStart         EventType = "tool_start"
	EventTypeToolComplete      EventType = "tool_complete"
	EventTypeAgentText         EventType = "agent_text"
	EventTypeVerdict           EventType = "verdict"
	EventTypeDiagnosisComplete EventType = "diagnosis_complete"
	EventTypeError             EventType = "error"
	EventTypeSessionEnd        EventType = "session_end"
)

// Token accounting events.
const (
	// EventTypeLLMRequest records one model call with its token usage.
	EventTypeLLMRequest EventType = "llm_request"
	// EventTypeSessionMetrics records usage totals for the whole session.
	EventTypeSessionMetrics EventType = "session_metrics"
)

// Low-level trace events. These mirror the raw ADK event stream and
// exist for debugging runner behavior, not for end users.
const (
	EventTypeEventReceived      EventType = "event_received"
	EventTypeStateDelta         EventType = "state_delta"
	EventTypeFinalResponseCheck EventType = "final_response_check"
	EventTypeAgentTransfer      EventType = "agent_transfer"
	EventTypeEscalation         EventType = "escalation"
	EventTypeEventLoopComplete  EventType = "event_loop_complete"
)

// Event is one line of the audit trail.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`

	// Agent names the agent the event belongs to, when one applies.
	Agent string `json:"agent,omitempty"`

	// Data carries the event-specific payload.
	Data map[string]any `json:"data,omitempty"`
}

// Logger appends audit events to a JSONL file. Methods are safe for
// concurrent use.
type Logger struct {
	mu        sync.Mutex
	file      *os.File
	writer    *bufio.Writer
	sessionID string
}

// NewLogger opens (or creates) the audit log at path and stamps every
// subsequent event with sessionID. Existing content is preserved, so
// several sessions can share one file.
func NewLogger(path, sessionID string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) // #nosec G304 -- audit log location is operator-chosen
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &Logger{
		file:      f,
		writer:    bufio.NewWriter(f),
		sessionID: sessionID,
	}, nil
}

// emit marshals one event and appends it to the log. The writer is
// flushed per event so the trail survives a crash mid-session.
func (l *Logger) emit(typ EventType, agent string, data map[string]any) error {
	line, err := json.Marshal(Event{
		Timestamp: time.Now(),
		Type:      typ,
		SessionID: l.sessionID,
		Agent:     agent,
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.writer.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	if err := l.writer.Flush(); err != nil {
		return fmt.Errorf("flush audit log: %w", err)
	}
	return nil
}

// Close flushes buffered events and closes the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var flushErr, closeErr error
	if err := l.writer.Flush(); err != nil {
		flushErr = fmt.Errorf("flush audit log: %w", err)
	}
	if err := l.file.Close(); err != nil {
		closeErr = fmt.Errorf("close audit log: %w", err)
	}
	return errors.Join(flushErr, closeErr)
}

// LogSessionStart records the model and incident a session was started for.
func (l *Logger) LogSessionStart(model, incidentID string) error {
	return l.emit(EventTypeSessionStart, "", map[string]any{
		"model":       model,
		"incident_id": incidentID,
	})
}

// LogUserMessage records the incident briefing handed to the commander.
// Briefings embed full observability fixtures, so the text is clipped
// and the original length kept alongside it.
func (l *Logger) LogUserMessage(message string) error {
	return l.emit(EventTypeUserMessage, "", map[string]any{
		"message": clip(message, 4000),
		"length":  len(message),
	})
}

// LogAgentActivated records control passing to agentName.
func (l *Logger) LogAgentActivated(agentName string) error {
	return l.emit(EventTypeAgentActivated, agentName, nil)
}

// LogToolStart records a tool invocation with its arguments.
func (l *Logger) LogToolStart(agentName, toolName string, args map[string]any) error {
	return l.emit(EventTypeToolStart, agentName, map[string]any{
		"tool_name": toolName,
		"args":      args,
	})
}

// LogToolComplete records a tool result and how long the call took.
func (l *Logger) LogToolComplete(agentName, toolName string, success bool, duration time.Duration, result any) error {
	return l.emit(EventTypeToolComplete, agentName, map[string]any{
		"tool_name":   toolName,
		"success":     success,
		"duration_ms": duration.Milliseconds(),
		"result":      result,
	})
}

// LogAgentText records free-form text an agent produced.
func (l *Logger) LogAgentText(agentName, content string, isFinal bool) error {
	return l.emit(EventTypeAgentText, agentName, map[string]any{
		"content":  content,
		"is_final": isFinal,
	})
}

// LogVerdict records the synthesized verdict for an incident.
func (l *Logger) LogVerdict(incidentID, rootCause string, confidence float64) error {
	return l.emit(EventTypeVerdict, "", map[string]any{
		"incident_id": incidentID,
		"root_cause":  rootCause,
		"confidence":  confidence,
	})
}

// LogDiagnosisComplete records the wall-clock duration of the run.
func (l *Logger) LogDiagnosisComplete(duration time.Duration) error {
	return l.emit(EventTypeDiagnosisComplete, "", map[string]any{
		"duration_ms": duration.Milliseconds(),
	})
}

// LogError records a processing error attributed to agentName.
func (l *Logger) LogError(agentName string, err error) error {
	return l.emit(EventTypeError, agentName, map[string]any{
		"error": err.Error(),
	})
}

// LogSessionEnd marks the session as finished.
func (l *Logger) LogSessionEnd() error {
	return l.emit(EventTypeSessionEnd, "", nil)
}

// LogLLMRequest records one model call with its token usage.
func (l *Logger) LogLLMRequest(provider, model string, inputTokens, outputTokens int, stopReason string) error {
	return l.emit(EventTypeLLMRequest, "", map[string]any{
		"provider":      provider,
		"model":         model,
		"input_tokens":  inputTokens,
		"output_tokens": outputTokens,
		"stop_reason":   stopReason,
	})
}

// LogSessionMetrics records aggregated token usage for the session.
func (l *Logger) LogSessionMetrics(totalRequests, totalInputTokens, totalOutputTokens int) error {
	return l.emit(EventTypeSessionMetrics, "", map[string]any{
		"total_requests":      totalRequests,
		"total_input_tokens":  totalInputTokens,
		"total_output_tokens": totalOutputTokens,
	})
}

// LogEventReceived traces one raw event from the ADK stream. details
// are merged into the payload next to the event ID.
func (l *Logger) LogEventReceived(eventID, author string, details map[string]any) error {
	data := map[string]any{"event_id": eventID}
	for k, v := range details {
		data[k] = v
	}
	return l.emit(EventTypeEventReceived, author, data)
}

// LogStateDelta traces session-state keys an event changed. Values are
// clipped, only their shape matters for debugging.
func (l *Logger) LogStateDelta(agentName string, keys []string, values map[string]string) error {
	clipped := make(map[string]string, len(values))
	for k, v := range values {
		clipped[k] = clip(v, 200)
	}
	return l.emit(EventTypeStateDelta, agentName, map[string]any{
		"keys":   keys,
		"values": clipped,
	})
}

// LogFinalResponseCheck traces an IsFinalResponse decision and the
// signals that went into it.
func (l *Logger) LogFinalResponseCheck(agentName string, isFinal bool, details map[string]any) error {
	data := map[string]any{"is_final": isFinal}
	for k, v := range details {
		data[k] = v
	}
	return l.emit(EventTypeFinalResponseCheck, agentName, data)
}

// LogAgentTransfer traces delegation from one agent to another.
func (l *Logger) LogAgentTransfer(fromAgent, toAgent string) error {
	return l.emit(EventTypeAgentTransfer, fromAgent, map[string]any{
		"to_agent": toAgent,
	})
}

// LogEscalation traces an agent raising the escalate flag.
func (l *Logger) LogEscalation(agentName, reason string) error {
	return l.emit(EventTypeEscalation, agentName, map[string]any{
		"reason": reason,
	})
}

// LogEventLoopComplete traces the event loop exiting and why.
func (l *Logger) LogEventLoopComplete(reason string, eventCount int) error {
	return l.emit(EventTypeEventLoopComplete, "", map[string]any{
		"reason":      reason,
		"event_count": eventCount,
	})
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...[truncated]"
}

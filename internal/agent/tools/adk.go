package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
)

// registryToolWrapper exposes a registry tool as an ADK tool. Calls go
// through Registry.Execute, so scenario overrides, timing and result
// truncation apply on the agent path as well.
type registryToolWrapper struct {
	registry *Registry
	name     string
}

// WrapTool creates an ADK tool from a registered tool.
func WrapTool(r *Registry, name string) (tool.Tool, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("tool %q not registered", name)
	}

	wrapper := &registryToolWrapper{registry: r, name: name}
	return functiontool.New(functiontool.Config{
		Name:        t.Name(),
		Description: t.Description(),
	}, wrapper.execute)
}

// WrapTools wraps a set of registered tools for handing to an agent.
func WrapTools(r *Registry, names ...string) ([]tool.Tool, error) {
	wrapped := make([]tool.Tool, 0, len(names))
	for _, name := range names {
		t, err := WrapTool(r, name)
		if err != nil {
			return nil, err
		}
		wrapped = append(wrapped, t)
	}
	return wrapped, nil
}

// execute is the handler that bridges registry tools to ADK.
func (w *registryToolWrapper) execute(ctx tool.Context, args map[string]any) (map[string]any, error) {
	// Convert args to json.RawMessage for registry tools
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return map[string]any{"error": fmt.Sprintf("failed to marshal args: %v", err)}, nil
	}

	result := w.registry.Execute(context.Background(), w.name, argsJSON)

	// Domain failures flow back to the model as data, not as Go errors
	if !result.Success {
		return map[string]any{
			"success": false,
			"error":   result.Error,
		}, nil
	}

	// Serialize and deserialize to convert to map[string]any
	dataJSON, err := json.Marshal(result.Data)
	if err != nil {
		return map[string]any{
			"success": true,
			"summary": result.Summary,
			"data":    fmt.Sprintf("%v", result.Data),
		}, nil
	}

	var dataMap map[string]any
	if err := json.Unmarshal(dataJSON, &dataMap); err != nil {
		return map[string]any{
			"success": true,
			"summary": result.Summary,
			"data":    string(dataJSON),
		}, nil
	}

	return map[string]any{
		"success": true,
		"summary": result.Summary,
		"data":    dataMap,
	}, nil
}

package logging

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Per-package level overrides. Keys are logger names ("agent.runner")
// or trailing wildcards ("agent.*").
var (
	packageLevels   = make(map[string]LogLevel)
	packageLevelsMu sync.RWMutex
)

// SetPackageLogLevels replaces the per-package overrides. A nil map is
// a no-op; pass an empty map to clear. Level strings are validated
// before anything is replaced.
func SetPackageLogLevels(levels map[string]string) error {
	if levels == nil {
		return nil
	}

	parsed := make(map[string]LogLevel, len(levels))
	for pkg, levelStr := range levels {
		level, err := parseLevel(levelStr)
		if err != nil {
			return fmt.Errorf("invalid log level for package %q: %w", pkg, err)
		}
		parsed[pkg] = level
	}

	packageLevelsMu.Lock()
	defer packageLevelsMu.Unlock()
	packageLevels = parsed
	return nil
}

// GetPackageLogLevel resolves the override for a logger name: exact
// match first, then the most specific (longest) matching wildcard.
// Returns -1 when no override applies.
func GetPackageLogLevel(name string) LogLevel {
	packageLevelsMu.RLock()
	defer packageLevelsMu.RUnlock()

	if level, ok := packageLevels[name]; ok {
		return level
	}

	var matches []string
	for pattern := range packageLevels {
		if matchesPattern(name, pattern) {
			matches = append(matches, pattern)
		}
	}
	if len(matches) == 0 {
		return LogLevel(-1)
	}
	sort.Slice(matches, func(i, j int) bool {
		return len(matches[i]) > len(matches[j])
	})
	return packageLevels[matches[0]]
}

// matchesPattern reports whether name falls under pattern. "agent.*"
// matches "agent.runner" and "agent.audit" but not "agent" itself.
func matchesPattern(name, pattern string) bool {
	if name == pattern {
		return true
	}
	if strings.HasSuffix(pattern, ".*") {
		prefix := strings.TrimSuffix(pattern, ".*")
		return strings.HasPrefix(name, prefix+".")
	}
	return false
}

// parseLevel converts a level string to its LogLevel.
func parseLevel(levelStr string) (LogLevel, error) {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "FATAL":
		return FATAL, nil
	default:
		return -1, fmt.Errorf("invalid level: %s (must be DEBUG, INFO, WARN, ERROR, or FATAL)", levelStr)
	}
}

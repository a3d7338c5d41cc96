// Package mockdata loads recorded incident fixtures from a directory tree
// and shapes them into the types the diagnosis engine consumes.
//
// The layout is fixed and keyed by incident id:
//
//	topology/production.json
//	scenarios/{id}-database-failure.json
//	logs/{id}/{high_level,application_logs,database_logs,infrastructure_logs}.json
//	metrics/{id}/{application_metrics,database_metrics,infrastructure_metrics}.json
//
// A missing or unparsable file is a hard error: diagnosis must never run
// against partially loaded evidence.
package mockdata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-version"
	lru "github.com/hashicorp/golang-lru/v2"
	dps "github.com/markusmobius/go-dateparser"

	"github.com/incidentlab/responder/internal/incident"
	"github.com/incidentlab/responder/internal/logging"
)

// DemoIncidentID is the recorded incident shipped with the binary:
// a database connection pool exhaustion in production.
const DemoIncidentID = "inc-db-5001"

// MinSchemaVersion is the oldest topology schema this build understands.
// Topology files carry a schema_version field; older trees must be
// regenerated with `responder gendata`.
const MinSchemaVersion = "1.0.0"

const defaultCacheSize = 32

// StoreConfig holds fixture store configuration.
type StoreConfig struct {
	// Dir is the root of the fixture tree.
	Dir string

	// CacheSize bounds the number of assembled observability contexts
	// kept in memory. Default: 32.
	CacheSize int
}

// Store reads fixtures from disk and caches assembled observability
// contexts per incident. Safe for concurrent use; the MCP server calls
// it from multiple tool handlers.
type Store struct {
	dir       string
	minSchema *version.Version
	cache     *lru.Cache[string, *incident.ObservabilityContext]
	logger    *logging.Logger
}

// NewStore creates a fixture store rooted at cfg.Dir.
// The directory itself is only checked lazily: every Load call stats the
// files it needs, so a store can be constructed before `gendata` runs.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("fixture directory cannot be empty")
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}

	minVer, err := version.NewVersion(MinSchemaVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid minimum schema version %q: %w", MinSchemaVersion, err)
	}

	cache, err := lru.New[string, *incident.ObservabilityContext](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create context cache: %w", err)
	}

	return &Store{
		dir:       cfg.Dir,
		minSchema: minVer,
		cache:     cache,
		logger:    logging.GetLogger("mockdata"),
	}, nil
}

// Dir returns the fixture tree root.
func (s *Store) Dir() string {
	return s.dir
}

// Scenario describes one recorded incident: identity plus the narrative
// context (environment, onset, blast radius) that frames the investigation.
type Scenario struct {
	IncidentID       string
	Title            string
	Category         string
	Severity         incident.Severity
	Environment      string
	StartedAt        time.Time
	AffectedServices []string
	ExpectedSymptoms map[string][]string
}

// scenarioFile is the on-disk shape before severity and timestamp parsing.
type scenarioFile struct {
	IncidentID       string              `json:"incident_id"`
	Title            string              `json:"title"`
	Category         string              `json:"category"`
	Severity         string              `json:"severity"`
	Environment      string              `json:"environment"`
	StartedAt        string              `json:"started_at"`
	AffectedServices []string            `json:"affected_services"`
	ExpectedSymptoms map[string][]string `json:"expected_symptoms"`
}

// LoadTopology reads topology/production.json and validates its
// schema_version against MinSchemaVersion.
func (s *Store) LoadTopology() (map[string]any, error) {
	topo, err := s.readJSON(filepath.Join("topology", "production.json"))
	if err != nil {
		return nil, err
	}

	raw, ok := topo["schema_version"].(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("topology %s is missing schema_version", s.path("topology", "production.json"))
	}
	schemaVer, err := version.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("topology has invalid schema_version %q: %w", raw, err)
	}
	if schemaVer.LessThan(s.minSchema) {
		return nil, fmt.Errorf("topology schema_version %s is below minimum %s; regenerate fixtures with `responder gendata`",
			raw, s.minSchema.String())
	}

	return topo, nil
}

// LoadScenario reads and parses the scenario file for the given incident.
func (s *Store) LoadScenario(incidentID string) (*Scenario, error) {
	if incidentID == "" {
		return nil, fmt.Errorf("missing required field: incident_id")
	}

	rel := filepath.Join("scenarios", incidentID+"-database-failure.json")
	data, err := os.ReadFile(s.path(rel))
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", rel, err)
	}

	var file scenarioFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", rel, err)
	}

	sev, err := incident.ParseSeverity(file.Severity)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", rel, err)
	}

	startedAt, err := parseStartedAt(file.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", rel, err)
	}

	return &Scenario{
		IncidentID:       file.IncidentID,
		Title:            file.Title,
		Category:         file.Category,
		Severity:         sev,
		Environment:      file.Environment,
		StartedAt:        startedAt,
		AffectedServices: file.AffectedServices,
		ExpectedSymptoms: file.ExpectedSymptoms,
	}, nil
}

// LoadIncident builds the engine-facing incident from the scenario file.
func (s *Store) LoadIncident(incidentID string) (*incident.Incident, error) {
	scenario, err := s.LoadScenario(incidentID)
	if err != nil {
		return nil, err
	}

	inc := &incident.Incident{
		ID:               scenario.IncidentID,
		Severity:         scenario.Severity,
		ExpectedSymptoms: scenario.ExpectedSymptoms,
	}
	if err := inc.Validate(); err != nil {
		return nil, fmt.Errorf("scenario for %s is incomplete: %w", incidentID, err)
	}
	return inc, nil
}

// LoadContext assembles the full observability context for an incident:
// four log slices and three metric slices. Results are cached until
// Invalidate is called.
func (s *Store) LoadContext(incidentID string) (*incident.ObservabilityContext, error) {
	if incidentID == "" {
		return nil, fmt.Errorf("missing required field: incident_id")
	}

	if cached, ok := s.cache.Get(incidentID); ok {
		s.logger.Debug("Context cache HIT: incident=%s", incidentID)
		return cached, nil
	}
	s.logger.Debug("Context cache MISS: incident=%s", incidentID)

	logs := map[string]any{}
	for category, file := range map[string]string{
		incident.LogCategoryHighLevel:      "high_level.json",
		incident.LogCategoryApplication:    "application_logs.json",
		incident.LogCategoryDatabase:       "database_logs.json",
		incident.LogCategoryInfrastructure: "infrastructure_logs.json",
	} {
		slice, err := s.readJSON(filepath.Join("logs", incidentID, file))
		if err != nil {
			return nil, err
		}
		logs[category] = slice
	}

	metrics := map[string]any{}
	for category, file := range map[string]string{
		incident.MetricCategoryApplication:    "application_metrics.json",
		incident.MetricCategoryDatabase:       "database_metrics.json",
		incident.MetricCategoryInfrastructure: "infrastructure_metrics.json",
	} {
		slice, err := s.readJSON(filepath.Join("metrics", incidentID, file))
		if err != nil {
			return nil, err
		}
		metrics[category] = slice
	}

	obs := &incident.ObservabilityContext{Logs: logs, Metrics: metrics}
	s.cache.Add(incidentID, obs)
	return obs, nil
}

// Invalidate drops all cached contexts. The fixture watcher calls this
// when files under the tree change.
func (s *Store) Invalidate() {
	s.cache.Purge()
	s.logger.Debug("Context cache invalidated")
}

func (s *Store) path(parts ...string) string {
	return filepath.Join(append([]string{s.dir}, parts...)...)
}

// readJSON reads one fixture file into a generic map.
func (s *Store) readJSON(rel string) (map[string]any, error) {
	data, err := os.ReadFile(s.path(rel))
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", rel, err)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", rel, err)
	}
	return out, nil
}

// parseStartedAt parses the scenario onset timestamp. RFC3339 is tried
// first; anything else falls through to lenient date parsing so
// hand-edited fixtures ("2 hours ago", "Nov 3 14:00") still load.
// An empty value is allowed: onset is narrative context, not identity.
func parseStartedAt(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}

	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}

	parser := dps.Parser{}
	parsed, err := parser.Parse(&dps.Configuration{
		PreferredDateSource: dps.CurrentPeriod,
	}, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid started_at %q: %w", raw, err)
	}
	if parsed.IsZero() {
		return time.Time{}, fmt.Errorf("started_at %q could not be parsed as a date", raw)
	}
	return parsed.Time, nil
}

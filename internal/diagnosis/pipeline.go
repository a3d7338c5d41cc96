package diagnosis

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/incidentlab/responder/internal/incident"
	"github.com/incidentlab/responder/internal/logging"
)

// Report captures one full diagnosis run: the incident, the roles the
// selector picked, the findings every selected agent produced, and the
// synthesized verdict.
type Report struct {
	Incident incident.Incident         `json:"incident"`
	Roles    []incident.Role           `json:"selected_agents"`
	Records  []incident.FindingsRecord `json:"findings_records"`
	Verdict  incident.Verdict          `json:"verdict"`
}

// Pipeline wires selector, extractors, and synthesizer into the
// single-incident diagnosis flow. The core functions stay pure; the
// pipeline owns the driver concerns: extraction fan-out, collecting
// every record before synthesis, and substituting empty records for
// selected roles that have no extractor.
type Pipeline struct {
	selector    *Selector
	extractors  map[incident.Role]*Extractor
	synthesizer *Synthesizer
	logger      *logging.Logger
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithSelector replaces the canonical selector.
func WithSelector(s *Selector) PipelineOption {
	return func(p *Pipeline) { p.selector = s }
}

// WithExtractor registers or replaces the extractor for a role.
func WithExtractor(role incident.Role, e *Extractor) PipelineOption {
	return func(p *Pipeline) { p.extractors[role] = e }
}

// WithSynthesizer replaces the canonical synthesizer.
func WithSynthesizer(sy *Synthesizer) PipelineOption {
	return func(p *Pipeline) { p.synthesizer = sy }
}

// NewPipeline returns a pipeline over the canonical tables: the log and
// metric extractors, the symptom router, and the verdict chain.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		selector: NewSelector(),
		extractors: map[incident.Role]*Extractor{
			incident.RoleLogs:    NewLogExtractor(),
			incident.RoleMetrics: NewMetricExtractor(),
		},
		synthesizer: NewSynthesizer(),
		logger:      logging.GetLogger("diagnosis"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the full flow for one incident. Extraction fans out one
// goroutine per selected role; synthesis only runs once every record
// has been collected. A selected role without an extractor (e.g. the
// deploy intelligence role) contributes an empty findings record so the
// synthesis input stays complete.
func (p *Pipeline) Run(ctx context.Context, inc incident.Incident, obs incident.ObservabilityContext) (*Report, error) {
	roles, err := p.selector.SelectAgents(inc)
	if err != nil {
		return nil, fmt.Errorf("agent selection failed: %w", err)
	}
	if len(roles) == 0 {
		p.logger.Warn("No diagnostic agents matched incident %s, verdict will be undetermined", inc.ID)
	} else {
		p.logger.Info("Selected %d diagnostic agents for incident %s: %v", len(roles), inc.ID, roles)
	}

	records := make([]incident.FindingsRecord, len(roles))
	g, gctx := errgroup.WithContext(ctx)
	for i, role := range roles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			extractor, ok := p.extractors[role]
			if !ok {
				records[i] = incident.EmptyFindings(role, inc.ID)
				return nil
			}
			records[i] = extractor.Extract(inc.ID, p.contextSlice(role, obs))
			p.logger.Debug("Agent %s produced %d findings for incident %s", role, len(records[i].Findings), inc.ID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evidence extraction failed: %w", err)
	}

	verdict, err := p.synthesizer.Synthesize(inc, records)
	if err != nil {
		return nil, fmt.Errorf("verdict synthesis failed: %w", err)
	}
	p.logger.InfoWithFields("Synthesized verdict",
		logging.Field("incident_id", inc.ID),
		logging.Field("root_cause", verdict.RootCause),
		logging.Field("confidence", verdict.Confidence),
	)

	return &Report{
		Incident: inc,
		Roles:    roles,
		Records:  records,
		Verdict:  verdict,
	}, nil
}

// contextSlice returns the half of the observability context a role
// consumes.
func (p *Pipeline) contextSlice(role incident.Role, obs incident.ObservabilityContext) map[string]any {
	switch role {
	case incident.RoleLogs:
		return obs.Logs
	case incident.RoleMetrics:
		return obs.Metrics
	default:
		return nil
	}
}

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/mailflow/pkg/models"
	"github.com/dukex/mailflow/pkg/persistence"
)

// Resolver turns a validated graph into a Plan.
type Resolver struct {
	catalog Catalog
	logger  *slog.Logger
	now     func() time.Time
}

func NewResolver(catalog Catalog, logger *slog.Logger, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}

	return &Resolver{
		catalog: catalog,
		logger:  logger.With("module", "resolver"),
		now:     now,
	}
}

type route struct {
	reached bool
	delay   time.Duration
}

// Resolve walks forward from every lead source node to every cold email node,
// summing wait delays on the way. Pairs that never reach the email node are
// dropped; walks that loop or wait longer than models.MaxWaitDelay are dropped
// and reported as anomalies.
func (r *Resolver) Resolve(ctx context.Context, graph models.Graph) (*Plan, error) {
	now := r.now()
	walker := newWalker(graph)

	plan := &Plan{ResolvedAt: now, Entries: make([]PlanEntry, 0)}
	emails := graph.NodesOfKind(models.NodeKindColdEmail)
	templates := make(map[string]*models.EmailTemplate, len(emails))

	for _, email := range emails {
		template, err := r.catalog.EmailTemplate(ctx, email.Data.TemplateRef())
		if persistence.IsEmailTemplateNotFound(err) {
			r.logger.WarnContext(ctx, "Email template not found, skipping node",
				"node_id", email.ID, "template_id", email.Data.TemplateRef())

			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to load email template %s: %w", email.Data.TemplateRef(), err)
		}

		templates[email.ID] = template
	}

	for _, source := range graph.NodesOfKind(models.NodeKindLeadSource) {
		leadSource, err := r.catalog.LeadSource(ctx, source.Data.LeadSourceRef())
		if persistence.IsLeadSourceNotFound(err) {
			r.logger.WarnContext(ctx, "Lead source not found, skipping node",
				"node_id", source.ID, "lead_source_id", source.Data.LeadSourceRef())

			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to load lead source %s: %w", source.Data.LeadSourceRef(), err)
		}

		routes := make(map[string]route, len(emails))

		for _, email := range emails {
			if _, ok := templates[email.ID]; !ok {
				continue
			}

			delay, reached, anomaly := walker.walk(source.ID, email.ID)
			if anomaly != nil {
				plan.Anomalies = append(plan.Anomalies, anomaly)
			}

			routes[email.ID] = route{reached: reached, delay: delay}
		}

		for _, contact := range leadSource.Contacts {
			for _, email := range emails {
				rt, ok := routes[email.ID]
				if !ok || !rt.reached {
					continue
				}

				template := templates[email.ID]

				plan.Entries = append(plan.Entries, PlanEntry{
					SourceNodeID: source.ID,
					EmailNodeID:  email.ID,
					Recipient:    contact.Address(),
					TemplateID:   template.ID,
					Subject:      template.Subject,
					Body:         template.Body,
					Delay:        rt.delay,
					SendAt:       now.Add(rt.delay),
				})
			}
		}
	}

	plan.Anomalies = append(plan.Anomalies, walker.branchAnomalies()...)

	return plan, nil
}

// walker follows outgoing edges through a graph. When a node has several
// outgoing edges the first one in edge order is taken.
type walker struct {
	nodes     map[string]*models.Node
	next      map[string][]string
	branching []string
}

func newWalker(graph models.Graph) *walker {
	w := &walker{
		nodes: make(map[string]*models.Node, len(graph.Nodes)),
		next:  make(map[string][]string, len(graph.Nodes)),
	}

	for _, node := range graph.Nodes {
		if node == nil {
			continue
		}

		if _, exists := w.nodes[node.ID]; !exists {
			w.nodes[node.ID] = node
		}
	}

	for _, edge := range graph.Edges {
		if edge == nil {
			continue
		}

		if len(w.next[edge.Source]) == 1 {
			w.branching = append(w.branching, edge.Source)
		}

		w.next[edge.Source] = append(w.next[edge.Source], edge.Target)
	}

	return w
}

// walk returns the summed wait delay from source to target and whether target
// was reached. The walk visits each node at most once, so it ends within
// len(nodes) steps.
func (w *walker) walk(source, target string) (time.Duration, bool, *SchedulingAnomaly) {
	var delay time.Duration

	visited := map[string]bool{source: true}
	current := source

	for range len(w.nodes) {
		targets := w.next[current]
		if len(targets) == 0 {
			return 0, false, nil
		}

		node, ok := w.nodes[targets[0]]
		if !ok {
			return 0, false, nil
		}

		if visited[node.ID] {
			return 0, false, &SchedulingAnomaly{
				Kind:         AnomalyCycle,
				SourceNodeID: source,
				EmailNodeID:  target,
				NodeID:       node.ID,
			}
		}

		visited[node.ID] = true

		if node.Type == models.NodeKindWait {
			delay += node.Data.Delay.Duration()

			if delay > models.MaxWaitDelay {
				return 0, false, &SchedulingAnomaly{
					Kind:         AnomalyDelay,
					SourceNodeID: source,
					EmailNodeID:  target,
					NodeID:       node.ID,
				}
			}
		}

		if node.ID == target {
			return delay, true, nil
		}

		current = node.ID
	}

	return 0, false, &SchedulingAnomaly{Kind: AnomalyCycle, SourceNodeID: source, EmailNodeID: target}
}

func (w *walker) branchAnomalies() []*SchedulingAnomaly {
	anomalies := make([]*SchedulingAnomaly, 0, len(w.branching))

	for _, nodeID := range w.branching {
		anomalies = append(anomalies, &SchedulingAnomaly{Kind: AnomalyBranch, NodeID: nodeID})
	}

	return anomalies
}

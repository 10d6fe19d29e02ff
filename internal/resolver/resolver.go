package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fjglira/tfs-testcase-exporter/internal/domain"
	"github.com/fjglira/tfs-testcase-exporter/internal/stepxml"
	"github.com/fjglira/tfs-testcase-exporter/internal/workitem"
)

// DefaultMissingAction is used for steps that carry no action text.
const DefaultMissingAction = "No action defined"

// Resolver turns Test Case work items into flattened TestCases, expanding
// shared step references depth first. Nothing is cached: a shared step used by
// several test cases is fetched again each time it is referenced.
type Resolver struct {
	repo          workitem.Repository
	log           *logrus.Logger
	missingAction string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMissingAction overrides the placeholder used for steps without an action.
func WithMissingAction(text string) Option {
	return func(r *Resolver) {
		if text != "" {
			r.missingAction = text
		}
	}
}

// NewResolver creates a Resolver reading work items from repo.
func NewResolver(repo workitem.Repository, log *logrus.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		repo:          repo,
		log:           log,
		missingAction: DefaultMissingAction,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveTestCase fetches work item id and flattens its steps. It fails with
// ErrWrongType when the item is not a Test Case; fetch, parse and cycle errors
// are returned as-is for the caller to report.
func (r *Resolver) ResolveTestCase(ctx context.Context, id int) (*domain.TestCase, error) {
	item, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.TypeName != domain.TypeTestCase {
		return nil, domain.NewItemError("resolve", id,
			fmt.Sprintf("work item %d is not a Test Case (type %q)", id, item.TypeName), domain.ErrWrongType)
	}

	tc := &domain.TestCase{
		ID:    item.ID,
		Title: item.Title,
		Steps: []domain.Step{},
	}

	nodes, err := parseSteps(item)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return tc, nil
	}

	steps, err := r.flatten(ctx, nodes, map[int]bool{}, nil)
	if err != nil {
		return nil, err
	}
	tc.Steps = append(tc.Steps, steps...)

	r.log.Debugf("Resolved test case %d %q with %d step(s)", tc.ID, tc.Title, len(tc.Steps))
	return tc, nil
}

// FlattenSteps walks nodes in document order and returns the resulting steps,
// with shared step references expanded in place.
func (r *Resolver) FlattenSteps(ctx context.Context, nodes []stepxml.Node) ([]domain.Step, error) {
	steps, err := r.flatten(ctx, nodes, map[int]bool{}, nil)
	if err != nil {
		return nil, err
	}
	if steps == nil {
		steps = []domain.Step{}
	}
	return steps, nil
}

// flatten appends the steps for nodes to out. path holds the Shared Steps
// items being expanded on the current branch.
func (r *Resolver) flatten(ctx context.Context, nodes []stepxml.Node, path map[int]bool, out []domain.Step) ([]domain.Step, error) {
	for _, n := range nodes {
		var err error
		switch node := n.(type) {
		case *stepxml.StepNode:
			out = append(out, r.stepFrom(node))
		case *stepxml.ComprefNode:
			if out, err = r.expandShared(ctx, node, path, out); err != nil {
				return nil, err
			}
			if out, err = r.flatten(ctx, node.Children, path, out); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (r *Resolver) stepFrom(node *stepxml.StepNode) domain.Step {
	action, ok := node.Action()
	if !ok {
		action = r.missingAction
	}
	expected, _ := node.ExpectedResult()
	return domain.Step{
		Action:         NormalizeText(action),
		ExpectedResult: NormalizeText(expected),
	}
}

// expandShared appends the title step and nested steps of the Shared Steps
// item referenced by node. References that are unparsable or point at other
// work item types contribute nothing.
func (r *Resolver) expandShared(ctx context.Context, node *stepxml.ComprefNode, path map[int]bool, out []domain.Step) ([]domain.Step, error) {
	id, ok := node.RefID()
	if !ok {
		r.log.Debugf("Ignoring shared steps reference with invalid ref %q", node.Ref)
		return out, nil
	}

	shared, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("shared steps %d: %w", id, err)
	}
	if shared.TypeName != domain.TypeSharedSteps {
		r.log.Debugf("Reference %d is a %q, not Shared Steps; skipping", id, shared.TypeName)
		return out, nil
	}
	if path[id] {
		return nil, domain.NewItemError("resolve", id, "shared steps reference their own ancestor", domain.ErrCycleDetected)
	}

	out = append(out, domain.Step{Action: NormalizeText(shared.Title)})

	nodes, err := parseSteps(shared)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return out, nil
	}

	path[id] = true
	defer delete(path, id)
	return r.flatten(ctx, nodes, path, out)
}

func parseSteps(item *domain.WorkItem) ([]stepxml.Node, error) {
	nodes, err := stepxml.Parse(item.StepsXML())
	if err != nil {
		var syntaxErr *stepxml.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, domain.NewItemError("parse", item.ID, syntaxErr.Error(), domain.ErrParse)
		}
		return nil, domain.NewItemError("parse", item.ID, "failed to parse steps", errors.Join(domain.ErrParse, err))
	}
	return nodes, nil
}

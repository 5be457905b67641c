package filtering

import (
	"context"
	"fmt"
	"time"

	"github.com/DmtiriyK/Job-finder-V2/internal/logger"
	"github.com/DmtiriyK/Job-finder-V2/internal/posting"

	"go.uber.org/zap"
)

// Filter represents a single filtering step applied to postings.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(c *Criteria) error
	Apply(ctx context.Context, deps Deps, postings []*posting.Posting) ([]*posting.Posting, Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger *zap.Logger
	Now    func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Criteria select which postings are worth scoring. Zero values disable the
// corresponding step.
type Criteria struct {
	Locations            []string `mapstructure:"locations"`
	MinDescriptionLength int      `mapstructure:"min-description-length"`
	MaxAgeDays           int      `mapstructure:"max-age-days"`
	RoleKeywords         []string `mapstructure:"role-keywords"`

	ExcludeKeywords  []string `mapstructure:"exclude-keywords"`
	ExcludeSeniority bool     `mapstructure:"exclude-seniority"`
	RemoteOnly       bool     `mapstructure:"remote-only"`
	ContractTypes    []string `mapstructure:"contract-types"`
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Default returns every step in evaluation order.
func Default() []Filter {
	return []Filter{
		NewLocations(),
		NewDescriptionLength(),
		NewMaxAge(),
		NewRoleKeywords(),
		NewExcludeKeywords(),
		NewSeniority(),
		NewRemoteOnly(),
		NewContractTypes(),
	}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially. The input slice is never
// modified and postings keep their relative order.
func Run(ctx context.Context, c *Criteria, deps Deps, steps []Filter, postings []*posting.Posting) ([]*posting.Posting, error) {
	deps.Logger = logger.WithFields(deps.Logger)

	for _, step := range steps {
		if err := step.Validate(c); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	current := append([]*posting.Posting(nil), postings...)
	for _, step := range steps {
		if !step.IsEnabled() {
			deps.Logger.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, deps, current)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		deps.Logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		current = next
	}

	return current, nil
}

// Apply runs the default steps with the given criteria.
func Apply(postings []*posting.Posting, c Criteria, log *zap.Logger) ([]*posting.Posting, error) {
	return Run(context.Background(), &c, Deps{Logger: log}, Default(), postings)
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// keep returns the postings accepted by pred, in order.
func keep(postings []*posting.Posting, pred func(*posting.Posting) bool) ([]*posting.Posting, Step) {
	out := make([]*posting.Posting, 0, len(postings))
	for _, p := range postings {
		if pred(p) {
			out = append(out, p)
		}
	}
	return out, Step{Initial: len(postings), Dropped: len(postings) - len(out), Left: len(out)}
}

package filtering

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DmtiriyK/Job-finder-V2/internal/posting"
)

const notConfiguredMsg = "not configured"

// base carries the enable/disable bookkeeping shared by every step. A step is
// active once Validate finds its criterion set.
type base struct {
	name     string
	disabled bool
	reason   string
	active   bool
}

func (b *base) Name() string { return b.name }

func (b *base) Disable(reason string) {
	b.disabled = true
	b.reason = reason
}

func (b *base) IsEnabled() bool { return !b.disabled && b.active }

func (b *base) status(details map[string]string) Status {
	reason := b.reason
	if !b.disabled && !b.active {
		reason = notConfiguredMsg
	}
	return Status{Name: b.name, Enabled: b.IsEnabled(), Reason: reason, Details: details}
}

func lowerAll(xs []string) []string {
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		x = strings.ToLower(strings.TrimSpace(x))
		if x != "" {
			out = append(out, x)
		}
	}
	return out
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

type locationsFilter struct {
	base
	locations []string
}

// NewLocations creates a filter that keeps postings in accepted locations.
// The special name "remote" also accepts fully remote postings anywhere.
func NewLocations() Filter {
	return &locationsFilter{base: base{name: "locations"}}
}

func (f *locationsFilter) Validate(c *Criteria) error {
	f.locations = nil
	if c != nil {
		f.locations = lowerAll(c.Locations)
	}
	f.active = len(f.locations) > 0
	return nil
}

func (f *locationsFilter) Apply(_ context.Context, _ Deps, postings []*posting.Posting) ([]*posting.Posting, Step, error) {
	out, step := keep(postings, func(p *posting.Posting) bool {
		location := strings.ToLower(p.Location)
		for _, l := range f.locations {
			if strings.Contains(location, l) {
				return true
			}
			if l == "remote" && p.Remote.IsRemote() {
				return true
			}
		}
		return false
	})
	return out, step, nil
}

func (f *locationsFilter) Status() Status {
	return f.status(map[string]string{"locations": strings.Join(f.locations, ",")})
}

type descriptionLengthFilter struct {
	base
	min int
}

// NewDescriptionLength creates a filter that drops postings with short descriptions.
func NewDescriptionLength() Filter {
	return &descriptionLengthFilter{base: base{name: "description_length"}}
}

func (f *descriptionLengthFilter) Validate(c *Criteria) error {
	f.min = 0
	if c != nil {
		f.min = c.MinDescriptionLength
	}
	if f.min < 0 {
		return fmt.Errorf("min description length must not be negative, got %d", f.min)
	}
	f.active = f.min > 0
	return nil
}

func (f *descriptionLengthFilter) Apply(_ context.Context, _ Deps, postings []*posting.Posting) ([]*posting.Posting, Step, error) {
	out, step := keep(postings, func(p *posting.Posting) bool {
		return len([]rune(strings.TrimSpace(p.Description))) >= f.min
	})
	return out, step, nil
}

func (f *descriptionLengthFilter) Status() Status {
	return f.status(map[string]string{"min_length": strconv.Itoa(f.min)})
}

type maxAgeFilter struct {
	base
	days int
}

// NewMaxAge creates a filter that drops postings older than the configured
// number of days. Postings without a date are kept.
func NewMaxAge() Filter {
	return &maxAgeFilter{base: base{name: "max_age"}}
}

func (f *maxAgeFilter) Validate(c *Criteria) error {
	f.days = 0
	if c != nil {
		f.days = c.MaxAgeDays
	}
	if f.days < 0 {
		return fmt.Errorf("max age days must not be negative, got %d", f.days)
	}
	f.active = f.days > 0
	return nil
}

func (f *maxAgeFilter) Apply(_ context.Context, deps Deps, postings []*posting.Posting) ([]*posting.Posting, Step, error) {
	now := deps.now()
	limit := time.Duration(f.days) * 24 * time.Hour

	var undated []string
	out, step := keep(postings, func(p *posting.Posting) bool {
		age, ok := p.Age(now)
		if !ok {
			undated = append(undated, p.ID)
			return true
		}
		return age <= limit
	})

	if len(undated) > 0 {
		deps.Logger.Warn("keeping postings without a posting date",
			zap.Strings("posting_ids", undated),
			zap.Int("max_age_days", f.days),
		)
	}
	return out, step, nil
}

func (f *maxAgeFilter) Status() Status {
	return f.status(map[string]string{"max_age_days": strconv.Itoa(f.days)})
}

type roleKeywordsFilter struct {
	base
	keywords []string
}

// NewRoleKeywords creates a filter that requires one of the role keywords in
// the title or description.
func NewRoleKeywords() Filter {
	return &roleKeywordsFilter{base: base{name: "role_keywords"}}
}

func (f *roleKeywordsFilter) Validate(c *Criteria) error {
	f.keywords = nil
	if c != nil {
		f.keywords = lowerAll(c.RoleKeywords)
	}
	f.active = len(f.keywords) > 0
	return nil
}

func (f *roleKeywordsFilter) Apply(_ context.Context, _ Deps, postings []*posting.Posting) ([]*posting.Posting, Step, error) {
	out, step := keep(postings, func(p *posting.Posting) bool {
		return containsAny(strings.ToLower(p.Title+" "+p.Description), f.keywords)
	})
	return out, step, nil
}

func (f *roleKeywordsFilter) Status() Status {
	return f.status(map[string]string{"keywords": strings.Join(f.keywords, ",")})
}

type excludeKeywordsFilter struct {
	base
	keywords []string
}

// NewExcludeKeywords creates a filter that drops postings mentioning any of
// the excluded keywords.
func NewExcludeKeywords() Filter {
	return &excludeKeywordsFilter{base: base{name: "exclude_keywords"}}
}

func (f *excludeKeywordsFilter) Validate(c *Criteria) error {
	f.keywords = nil
	if c != nil {
		f.keywords = lowerAll(c.ExcludeKeywords)
	}
	f.active = len(f.keywords) > 0
	return nil
}

func (f *excludeKeywordsFilter) Apply(_ context.Context, _ Deps, postings []*posting.Posting) ([]*posting.Posting, Step, error) {
	out, step := keep(postings, func(p *posting.Posting) bool {
		return !containsAny(strings.ToLower(p.Title+" "+p.Description), f.keywords)
	})
	return out, step, nil
}

func (f *excludeKeywordsFilter) Status() Status {
	return f.status(map[string]string{"keywords": strings.Join(f.keywords, ",")})
}

var seniorTitle = regexp.MustCompile(`(?i)\b(senior|sr\.?|lead|tech lead|team lead|principal|staff|architect|head of)\b`)

type seniorityFilter struct {
	base
}

// NewSeniority creates a filter that drops senior and lead titles.
func NewSeniority() Filter {
	return &seniorityFilter{base: base{name: "seniority"}}
}

func (f *seniorityFilter) Validate(c *Criteria) error {
	f.active = c != nil && c.ExcludeSeniority
	return nil
}

func (f *seniorityFilter) Apply(_ context.Context, _ Deps, postings []*posting.Posting) ([]*posting.Posting, Step, error) {
	out, step := keep(postings, func(p *posting.Posting) bool {
		return !seniorTitle.MatchString(p.Title)
	})
	return out, step, nil
}

func (f *seniorityFilter) Status() Status { return f.status(nil) }

var remoteLocationWords = []string{"remote", "work from home", "homeoffice", "home office"}

type remoteOnlyFilter struct {
	base
}

// NewRemoteOnly creates a filter that keeps fully remote postings only.
func NewRemoteOnly() Filter {
	return &remoteOnlyFilter{base: base{name: "remote_only"}}
}

func (f *remoteOnlyFilter) Validate(c *Criteria) error {
	f.active = c != nil && c.RemoteOnly
	return nil
}

func (f *remoteOnlyFilter) Apply(_ context.Context, _ Deps, postings []*posting.Posting) ([]*posting.Posting, Step, error) {
	out, step := keep(postings, func(p *posting.Posting) bool {
		if p.Remote.IsRemote() {
			return true
		}
		return !p.Remote.Known() && containsAny(strings.ToLower(p.Location), remoteLocationWords)
	})
	return out, step, nil
}

func (f *remoteOnlyFilter) Status() Status { return f.status(nil) }

type contractTypesFilter struct {
	base
	types []string
}

// NewContractTypes creates a filter that keeps accepted contract types.
// Postings without a contract type pass.
func NewContractTypes() Filter {
	return &contractTypesFilter{base: base{name: "contract_types"}}
}

func (f *contractTypesFilter) Validate(c *Criteria) error {
	f.types = nil
	if c != nil {
		f.types = lowerAll(c.ContractTypes)
	}
	f.active = len(f.types) > 0
	return nil
}

func (f *contractTypesFilter) Apply(_ context.Context, _ Deps, postings []*posting.Posting) ([]*posting.Posting, Step, error) {
	out, step := keep(postings, func(p *posting.Posting) bool {
		contract := strings.ToLower(strings.TrimSpace(p.ContractType))
		return contract == "" || containsAny(contract, f.types)
	})
	return out, step, nil
}

func (f *contractTypesFilter) Status() Status {
	return f.status(map[string]string{"contract_types": strings.Join(f.types, ",")})
}

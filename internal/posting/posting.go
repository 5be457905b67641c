package posting

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RemoteType is the remote-work classification of a posting.
type RemoteType string

const (
	RemoteUnknown     RemoteType = "unknown"
	RemoteFull        RemoteType = "fully-remote"
	RemoteHybridLight RemoteType = "hybrid-light"
	RemoteHybridHeavy RemoteType = "hybrid-heavy"
	RemoteOnsite      RemoteType = "onsite"
)

// RemoteTypes lists the known classifications, most remote first.
var RemoteTypes = []RemoteType{RemoteFull, RemoteHybridLight, RemoteHybridHeavy, RemoteOnsite}

// ParseRemoteType maps free-form connector text onto a classification.
// Unrecognized text yields RemoteUnknown so a detector can classify it later.
func ParseRemoteType(s string) RemoteType {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "":
		return RemoteUnknown
	case string(RemoteFull), string(RemoteHybridLight), string(RemoteHybridHeavy), string(RemoteOnsite), string(RemoteUnknown):
		return RemoteType(v)
	}

	switch {
	case strings.Contains(v, "hybrid"):
		if strings.Contains(v, "2") || strings.Contains(v, "3") || strings.Contains(v, "heavy") {
			return RemoteHybridHeavy
		}
		return RemoteHybridLight
	case strings.Contains(v, "no remote"), strings.Contains(v, "not remote"):
		return RemoteOnsite
	case strings.Contains(v, "home"), strings.Contains(v, "remote"), strings.Contains(v, "wfh"):
		return RemoteFull
	case strings.Contains(v, "on-site"), strings.Contains(v, "onsite"), strings.Contains(v, "on site"), strings.Contains(v, "office"):
		return RemoteOnsite
	case strings.Contains(v, "100%"):
		return RemoteFull
	default:
		return RemoteUnknown
	}
}

// IsRemote reports whether the classification allows working fully remote.
func (r RemoteType) IsRemote() bool { return r == RemoteFull }

func (r RemoteType) Known() bool { return r != "" && r != RemoteUnknown }

// Posting is a normalized job record flowing through the pipeline.
type Posting struct {
	ID           string       `json:"id"`
	SourceID     string       `json:"source_id,omitempty"`
	Title        string       `json:"title"`
	Company      string       `json:"company"`
	Location     string       `json:"location"`
	Remote       RemoteType   `json:"remote"`
	ContractType string       `json:"contract_type,omitempty"`
	Description  string       `json:"description"`
	PostedAt     time.Time    `json:"posted_at"`
	Source       string       `json:"source"`
	URL          string       `json:"url"`
	TechTerms    []string     `json:"tech_terms,omitempty"`
	Score        *ScoreResult `json:"score,omitempty"`
}

// Breakdown is the contribution of a single scoring component.
type Breakdown struct {
	Raw        float64 `json:"raw"`
	Normalized float64 `json:"normalized"`
	Max        float64 `json:"max"`
}

// ScoreResult is the immutable outcome of one scoring pass over a posting.
type ScoreResult struct {
	Score       float64              `json:"score"`
	Breakdown   map[string]Breakdown `json:"breakdown"`
	Components  []string             `json:"components"`
	Explanation string               `json:"explanation"`
}

// Sum returns the sum of the normalized component points.
func (r *ScoreResult) Sum() float64 {
	var total float64
	for _, name := range r.Components {
		total += r.Breakdown[name].Normalized
	}
	return total
}

// Scored reports whether the posting carries a score result.
func (p *Posting) Scored() bool { return p != nil && p.Score != nil }

// ScoreValue returns the total score, or 0 when the posting is not scored.
func (p *Posting) ScoreValue() float64 {
	if !p.Scored() {
		return 0
	}
	return p.Score.Score
}

// SetTechTerms replaces the tech-term set. Terms are stored sorted and unique.
func (p *Posting) SetTechTerms(terms map[string]struct{}) {
	out := make([]string, 0, len(terms))
	for t := range terms {
		out = append(out, t)
	}
	sort.Strings(out)
	p.TechTerms = out
}

// HasTechTerms reports whether extraction already ran and found something.
func (p *Posting) HasTechTerms() bool { return len(p.TechTerms) > 0 }

// Age returns how old the posting is relative to now. A zero timestamp
// reports ok=false.
func (p *Posting) Age(now time.Time) (time.Duration, bool) {
	if p.PostedAt.IsZero() {
		return 0, false
	}
	return now.Sub(p.PostedAt), true
}

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("jobfinder/posting"))

// DeriveID returns a stable identifier for the posting content. The same
// title, company and URL always produce the same ID regardless of casing or
// surrounding whitespace.
func DeriveID(title, company, rawURL string) string {
	key := normalizeKey(title) + "\x1f" + normalizeKey(company) + "\x1f" + normalizeURL(rawURL)
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

// ContentKey is the content hash over normalized title, company and URL.
// Connector IDs are not unique across sources, so exact deduplication keys
// on this instead of ID.
func (p *Posting) ContentKey() string {
	return DeriveID(p.Title, p.Company, p.URL)
}

// EnsureID derives the ID when it is missing.
func (p *Posting) EnsureID() {
	if strings.TrimSpace(p.ID) == "" {
		p.ID = DeriveID(p.Title, p.Company, p.URL)
	}
}

func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func normalizeURL(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimRight(s, "/")
}

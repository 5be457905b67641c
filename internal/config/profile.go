package config

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Remote preference tiers accepted in the profile.
const (
	RemoteRequired    = "required"
	RemotePreferred   = "preferred"
	RemoteHybrid      = "hybrid"
	RemoteIndifferent = "indifferent"
	RemoteOnsite      = "onsite"
)

var remotePreferences = []string{RemoteRequired, RemotePreferred, RemoteHybrid, RemoteIndifferent, RemoteOnsite}

var proficiencyTiers = []string{"beginner", "intermediate", "advanced", "expert"}

type Skill struct {
	Name        string  `mapstructure:"name"`
	Years       float64 `mapstructure:"years"`
	Proficiency string  `mapstructure:"proficiency"`
}

type Preferences struct {
	Remote        string   `mapstructure:"remote"`
	Locations     []string `mapstructure:"locations"`
	ContractTypes []string `mapstructure:"contract_types"`
	MinScore      float64  `mapstructure:"min_score"`
}

// Profile is the candidate the postings are ranked against. It is loaded once
// per run and shared read-only.
type Profile struct {
	Name        string             `mapstructure:"name"`
	Roles       []string           `mapstructure:"roles"`
	Skills      map[string][]Skill `mapstructure:"skills"`
	Preferences Preferences        `mapstructure:"preferences"`
	Narrative   string             `mapstructure:"narrative"`
}

// LoadProfile reads and validates a profile document.
func LoadProfile(path string) (*Profile, error) {
	var p Profile
	if err := decodeFile(path, &p); err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	p.normalize()

	if v := p.Validate(); !v.OK() {
		return nil, fmt.Errorf("invalid profile %s: %w", path, v.Err())
	}
	return &p, nil
}

// ParseProfile decodes a profile from raw YAML.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := decodeYAML(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	p.normalize()

	if v := p.Validate(); !v.OK() {
		return nil, fmt.Errorf("invalid profile: %w", v.Err())
	}
	return &p, nil
}

func (p *Profile) normalize() {
	p.Roles = trimList(p.Roles)
	p.Preferences.Locations = trimList(p.Preferences.Locations)
	p.Preferences.ContractTypes = trimList(p.Preferences.ContractTypes)
	p.Preferences.Remote = strings.ToLower(strings.TrimSpace(p.Preferences.Remote))
	p.Narrative = strings.TrimSpace(p.Narrative)
	for category, skills := range p.Skills {
		for i := range skills {
			skills[i].Name = strings.TrimSpace(skills[i].Name)
			skills[i].Proficiency = strings.ToLower(strings.TrimSpace(skills[i].Proficiency))
		}
		p.Skills[category] = skills
	}
}

func (p *Profile) Validate() Validation {
	var res Validation

	if p.Narrative == "" {
		res.addWarn("narrative is empty; similarity scores will be 0 for every posting")
	}
	if len(p.Roles) == 0 {
		res.addWarn("roles is empty; role keywords fall back to filter configuration only")
	}

	if p.Preferences.Remote != "" && !slices.Contains(remotePreferences, p.Preferences.Remote) {
		res.addErr("preferences.remote %q must be one of %s", p.Preferences.Remote, strings.Join(remotePreferences, ", "))
	}
	if p.Preferences.MinScore < 0 || p.Preferences.MinScore > 100 {
		res.addErr("preferences.min_score must be between 0 and 100, got %g", p.Preferences.MinScore)
	}

	for _, category := range p.SkillCategories() {
		for i, s := range p.Skills[category] {
			if s.Name == "" {
				res.addErr("skills.%s[%d]: name is required", category, i)
			}
			if s.Years < 0 {
				res.addErr("skills.%s[%d]: years must not be negative", category, i)
			}
			if s.Proficiency != "" && !slices.Contains(proficiencyTiers, s.Proficiency) {
				res.addErr("skills.%s[%d]: proficiency %q must be one of %s", category, i, s.Proficiency, strings.Join(proficiencyTiers, ", "))
			}
		}
	}

	return res
}

// IsRemotePreferred reports whether remote fit should count towards the score.
func (p *Profile) IsRemotePreferred() bool {
	switch p.Preferences.Remote {
	case RemoteRequired, RemotePreferred, RemoteHybrid:
		return true
	default:
		return false
	}
}

// SkillCategories returns the skill category keys in sorted order.
func (p *Profile) SkillCategories() []string {
	out := make([]string, 0, len(p.Skills))
	for k := range p.Skills {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SkillNames returns every skill name across all categories.
func (p *Profile) SkillNames() []string {
	var out []string
	for _, category := range p.SkillCategories() {
		for _, s := range p.Skills[category] {
			out = append(out, s.Name)
		}
	}
	return out
}

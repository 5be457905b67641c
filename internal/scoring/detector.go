package scoring

import (
	"strings"

	"github.com/DmtiriyK/Job-finder-V2/internal/config"
	"github.com/DmtiriyK/Job-finder-V2/internal/logger"
	"github.com/DmtiriyK/Job-finder-V2/internal/posting"

	"go.uber.org/zap"
)

// RemoteDetector classifies postings whose connector did not report a
// remote policy.
type RemoteDetector struct {
	rules  *config.ScoringRules
	logger *zap.Logger
}

func NewRemoteDetector(rules *config.ScoringRules, log *zap.Logger) *RemoteDetector {
	return &RemoteDetector{rules: rules, logger: logger.WithFields(log, zap.String("component", "remote_detector"))}
}

// Detect tries the remote table patterns over title, location and
// description, restrictive classes first, then falls back to keywords in the
// location. It returns the class and the pattern that matched.
func (d *RemoteDetector) Detect(p *posting.Posting) (posting.RemoteType, string) {
	text := strings.Join([]string{p.Title, p.Location, p.Description}, "\n")

	for _, class := range config.RemoteDetectionOrder {
		for _, re := range d.rules.RemotePatterns(class) {
			if re.MatchString(text) {
				return class, re.String()
			}
		}
	}

	if class := posting.ParseRemoteType(p.Location); class.Known() {
		return class, "location"
	}
	return posting.RemoteUnknown, ""
}

// Classify sets the remote class of every unclassified posting in place and
// returns how many were classified.
func (d *RemoteDetector) Classify(postings []*posting.Posting) int {
	var classified, unknown int
	for _, p := range postings {
		if p.Remote.Known() {
			continue
		}
		class, pattern := d.Detect(p)
		if !class.Known() {
			unknown++
			continue
		}
		p.Remote = class
		classified++
		d.logger.Debug("classified remote policy",
			logger.Posting(p.ID),
			zap.String("remote", string(class)),
			zap.String("pattern", pattern),
		)
	}

	d.logger.Info("remote detection", zap.Int("classified", classified), zap.Int("unknown", unknown))
	return classified
}

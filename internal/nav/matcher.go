package nav

import (
	"fmt"
	"image"

	"github.com/ConserveLee/mapwalk/internal/assets"
	"github.com/ConserveLee/mapwalk/internal/engine/screen"
	"github.com/ConserveLee/mapwalk/internal/logger"
)

// FrameSource provides the grayscale frame templates are matched against
type FrameSource interface {
	CaptureGray() (*image.Gray, error)
}

// MatchResult is the outcome of one matcher poll
type MatchResult struct {
	Node       string  // Winning node, empty when nothing beat the threshold
	Score      float64 // Score of the winner
	Candidates int     // Templates that passed the hierarchy filter
}

// Found reports whether a node won
func (r MatchResult) Found() bool {
	return r.Node != ""
}

// Matcher scores candidate templates against the current frame
type Matcher struct {
	source    FrameSource
	templates *assets.TemplateSet
	scorer    screen.Scorer
	log       *logger.AppLogger
}

// NewMatcher creates a matcher. A nil scorer uses screen.DefaultScorer.
func NewMatcher(source FrameSource, templates *assets.TemplateSet, scorer screen.Scorer, log *logger.AppLogger) *Matcher {
	if scorer == nil {
		scorer = screen.DefaultScorer()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Matcher{
		source:    source,
		templates: templates,
		scorer:    scorer,
		log:       log,
	}
}

// FindBestMatch captures one frame and returns the candidate of prev with
// the highest score strictly above minConfidence. Ties keep the earlier
// template. Zero candidates means the route is finished; no frame is
// captured in that case.
func (m *Matcher) FindBestMatch(prev string, minConfidence float64) (MatchResult, error) {
	var candidates []assets.Template
	for _, t := range m.templates.All() {
		if IsCandidate(prev, t.Name) {
			candidates = append(candidates, t)
		}
	}
	result := MatchResult{Candidates: len(candidates)}
	if len(candidates) == 0 {
		return result, nil
	}

	frame, err := m.source.CaptureGray()
	if err != nil {
		return result, fmt.Errorf("capture frame: %w", err)
	}

	best := minConfidence
	for _, t := range candidates {
		score := m.scorer.Score(frame, t.Image)
		m.log.Debug("[Match] %s conf=%.4f", t.Name, score)
		if score > best {
			best = score
			result.Node = t.Name
			result.Score = score
		}
	}

	if result.Found() {
		m.log.Info("Successfully matched: %s (conf=%.4f)", result.Node, result.Score)
	}
	return result, nil
}

package nav

import (
	"errors"
	"image"
	"testing"

	"github.com/ConserveLee/mapwalk/internal/assets"
	"github.com/ConserveLee/mapwalk/internal/engine/screen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	frame    *image.Gray
	err      error
	captures int
}

func (s *staticSource) CaptureGray() (*image.Gray, error) {
	s.captures++
	return s.frame, s.err
}

// tableScorer returns a fixed score per template image
type tableScorer struct {
	scores map[*image.Gray]float64
	scored []*image.Gray
}

func (s *tableScorer) Score(_, template *image.Gray) float64 {
	s.scored = append(s.scored, template)
	return s.scores[template]
}

type scoredSet struct {
	set    *assets.TemplateSet
	images map[string]*image.Gray
	scorer *tableScorer
}

func newScoredSet(scores map[string]float64) scoredSet {
	ss := scoredSet{images: map[string]*image.Gray{}, scorer: &tableScorer{scores: map[*image.Gray]float64{}}}
	var templates []assets.Template
	for name, score := range scores {
		img := image.NewGray(image.Rect(0, 0, 2, 2))
		ss.images[name] = img
		ss.scorer.scores[img] = score
		templates = append(templates, assets.Template{Name: name, Image: img})
	}
	ss.set = assets.NewTemplateSet(templates)
	return ss
}

func TestFindBestMatchCandidatesOfPrevious(t *testing.T) {
	ss := newScoredSet(map[string]float64{"A": 0.9, "A-1": 0.9, "A-1-2": 0.4})
	src := &staticSource{frame: image.NewGray(image.Rect(0, 0, 8, 8))}
	m := NewMatcher(src, ss.set, ss.scorer, nil)

	res, err := m.FindBestMatch("A-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Candidates)
	assert.Equal(t, "A-1-2", res.Node)
	assert.InDelta(t, 0.4, res.Score, 1e-9)
	assert.Equal(t, []*image.Gray{ss.images["A-1-2"]}, ss.scorer.scored)
}

func TestFindBestMatchThresholdIsStrict(t *testing.T) {
	ss := newScoredSet(map[string]float64{"1": 0.5, "2": 0.3})
	src := &staticSource{frame: image.NewGray(image.Rect(0, 0, 8, 8))}
	m := NewMatcher(src, ss.set, ss.scorer, nil)

	res, err := m.FindBestMatch(Start, 0.5)
	require.NoError(t, err)
	assert.False(t, res.Found())
	assert.Equal(t, 2, res.Candidates)

	res, err = m.FindBestMatch(Start, 0.49)
	require.NoError(t, err)
	assert.Equal(t, "1", res.Node)
}

func TestFindBestMatchTieKeepsEarlierTemplate(t *testing.T) {
	ss := newScoredSet(map[string]float64{"10": 0.7, "2": 0.7, "3": 0.1})
	src := &staticSource{frame: image.NewGray(image.Rect(0, 0, 8, 8))}
	m := NewMatcher(src, ss.set, ss.scorer, nil)

	res, err := m.FindBestMatch(Start, 0)
	require.NoError(t, err)
	assert.Equal(t, "2", res.Node, "shorter names come first")
}

func TestFindBestMatchNegativeScoresNeverWin(t *testing.T) {
	ss := newScoredSet(map[string]float64{"1": -0.2})
	src := &staticSource{frame: image.NewGray(image.Rect(0, 0, 8, 8))}
	m := NewMatcher(src, ss.set, ss.scorer, nil)

	res, err := m.FindBestMatch(Start, 0)
	require.NoError(t, err)
	assert.False(t, res.Found())
	assert.Equal(t, 1, res.Candidates)
}

func TestFindBestMatchNoCandidatesSkipsCapture(t *testing.T) {
	ss := newScoredSet(map[string]float64{"A": 1, "A-1": 1})
	src := &staticSource{}
	m := NewMatcher(src, ss.set, ss.scorer, nil)

	res, err := m.FindBestMatch("A-1", 0)
	require.NoError(t, err)
	assert.Zero(t, res.Candidates)
	assert.Zero(t, src.captures)
	assert.Empty(t, ss.scorer.scored)
}

func TestFindBestMatchCaptureError(t *testing.T) {
	ss := newScoredSet(map[string]float64{"1": 1})
	src := &staticSource{err: errors.New("display gone")}
	m := NewMatcher(src, ss.set, ss.scorer, nil)

	res, err := m.FindBestMatch(Start, 0)
	assert.ErrorContains(t, err, "display gone")
	assert.Equal(t, 1, res.Candidates)
}

func TestFindBestMatchWithCorrelation(t *testing.T) {
	frame := image.NewGray(image.Rect(0, 0, 48, 32))
	for i := range frame.Pix {
		frame.Pix[i] = uint8(i * 7 % 251)
	}
	// The template is a crop of the frame, the decoy is unrelated noise
	crop := image.NewGray(image.Rect(0, 0, 10, 10))
	decoy := image.NewGray(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			crop.SetGray(x, y, frame.GrayAt(20+x, 12+y))
			decoy.Pix[y*10+x] = uint8((x*x + 3*y) % 17 * 13)
		}
	}
	set := assets.NewTemplateSet([]assets.Template{
		{Name: "A-1", Image: decoy},
		{Name: "A-2", Image: crop},
		{Name: "A-3", Image: image.NewGray(image.Rect(0, 0, 64, 64))},
	})
	m := NewMatcher(&staticSource{frame: frame}, set, screen.NewNCCScorer(1), nil)

	res, err := m.FindBestMatch("A", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Candidates)
	assert.Equal(t, "A-2", res.Node)
	assert.InDelta(t, 1.0, res.Score, 1e-6)
}

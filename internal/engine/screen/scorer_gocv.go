//go:build gocv

package screen

import (
	"image"

	"gocv.io/x/gocv"
)

// CVScorer runs OpenCV's TM_CCOEFF_NORMED template matching.
type CVScorer struct{}

// DefaultScorer returns the OpenCV scorer.
func DefaultScorer() Scorer {
	return CVScorer{}
}

// Score implements Scorer
func (CVScorer) Score(frame, template *image.Gray) float64 {
	fb, tb := frame.Bounds(), template.Bounds()
	if tb.Dx() == 0 || tb.Dy() == 0 || tb.Dx() > fb.Dx() || tb.Dy() > fb.Dy() {
		return 0
	}

	img, err := gocv.ImageGrayToMatGray(frame)
	if err != nil {
		return 0
	}
	defer img.Close()

	tpl, err := gocv.ImageGrayToMatGray(template)
	if err != nil {
		return 0
	}
	defer tpl.Close()

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(img, tpl, &result, gocv.TmCcoeffNormed, mask)
	_, maxVal, _, _ := gocv.MinMaxLoc(result)
	return float64(maxVal)
}

//go:build !gocv

package screen

// DefaultScorer returns the exhaustive pure Go scorer. Build with -tags gocv
// to use OpenCV.
func DefaultScorer() Scorer {
	return NewNCCScorer(1)
}

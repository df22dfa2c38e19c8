package screen

import (
	"image"
	"math"
	"sync"
)

// Scorer returns how well a template matches anywhere inside a frame:
// the maximum normalized correlation coefficient over all positions,
// in [-1, 1]. A template that does not fit in the frame scores 0.
type Scorer interface {
	Score(frame, template *image.Gray) float64
}

// minVariance guards against flat images where the coefficient is undefined
const minVariance = 1e-6

// NCCScorer is a pure Go correlation-coefficient matcher. With Pyramid 1
// it scores every position. With Pyramid > 1 it first searches frame and
// template downscaled by that factor, refines around the coarse peak at
// full resolution, and falls back to the full search when the refined
// score is below the coarse one.
type NCCScorer struct {
	Pyramid int

	mu    sync.Mutex
	cache map[*image.Gray]*integral
}

// NewNCCScorer creates a scorer with the given pyramid factor
func NewNCCScorer(pyramid int) *NCCScorer {
	if pyramid < 1 {
		pyramid = 1
	}
	return &NCCScorer{Pyramid: pyramid}
}

// Score implements Scorer
func (s *NCCScorer) Score(frame, template *image.Gray) float64 {
	fb, tb := frame.Bounds(), template.Bounds()
	if tb.Dx() == 0 || tb.Dy() == 0 || tb.Dx() > fb.Dx() || tb.Dy() > fb.Dy() {
		return 0
	}

	f := s.pyramid()
	if f > 1 && tb.Dx()/f >= 8 && tb.Dy()/f >= 8 {
		smallFrame := ScaleGray(frame, fb.Dx()/f, fb.Dy()/f)
		smallTpl := ScaleGray(template, tb.Dx()/f, tb.Dy()/f)
		coarse, at := matchNCC(newIntegral(smallFrame), smallFrame, smallTpl, image.Rectangle{})

		// Refine in a window around the coarse peak
		center := image.Point{X: at.X * f, Y: at.Y * f}
		window := image.Rect(center.X-2*f, center.Y-2*f, center.X+2*f+1, center.Y+2*f+1)
		best, _ := matchNCC(s.integralOf(frame), frame, template, window)
		if best >= coarse {
			return best
		}
	}

	best, _ := matchNCC(s.integralOf(frame), frame, template, image.Rectangle{})
	return best
}

func (s *NCCScorer) pyramid() int {
	if s.Pyramid < 1 {
		return 1
	}
	return s.Pyramid
}

// integralOf keeps the integral images of the most recent frame, since
// one frame is scored against many templates.
func (s *NCCScorer) integralOf(frame *image.Gray) *integral {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in, ok := s.cache[frame]; ok {
		return in
	}
	in := newIntegral(frame)
	s.cache = map[*image.Gray]*integral{frame: in}
	return in
}

// integral holds summed-area tables of pixel values and squared values
type integral struct {
	w, h int
	sum  []uint64
	sq   []uint64
}

func newIntegral(img *image.Gray) *integral {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	in := &integral{
		w:   w,
		h:   h,
		sum: make([]uint64, (w+1)*(h+1)),
		sq:  make([]uint64, (w+1)*(h+1)),
	}
	stride := w + 1
	for y := 0; y < h; y++ {
		var rowSum, rowSq uint64
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for x := 0; x < w; x++ {
			v := uint64(row[x])
			rowSum += v
			rowSq += v * v
			in.sum[(y+1)*stride+x+1] = in.sum[y*stride+x+1] + rowSum
			in.sq[(y+1)*stride+x+1] = in.sq[y*stride+x+1] + rowSq
		}
	}
	return in
}

// window returns the sum and squared sum of the w*h block at (x, y)
func (in *integral) window(x, y, w, h int) (float64, float64) {
	stride := in.w + 1
	a := y*stride + x
	b := y*stride + x + w
	c := (y+h)*stride + x
	d := (y+h)*stride + x + w
	sum := in.sum[d] + in.sum[a] - in.sum[b] - in.sum[c]
	sq := in.sq[d] + in.sq[a] - in.sq[b] - in.sq[c]
	return float64(sum), float64(sq)
}

// MatchNCC returns the best correlation coefficient of template over
// every position in frame, and the top-left position where it occurs.
func MatchNCC(frame, template *image.Gray) (float64, image.Point) {
	return matchNCC(newIntegral(frame), frame, template, image.Rectangle{})
}

// matchNCC scores template at every top-left position inside search (all
// positions when search is empty). in must be the integral of frame.
func matchNCC(in *integral, frame, template *image.Gray, search image.Rectangle) (float64, image.Point) {
	fb, tb := frame.Bounds(), template.Bounds()
	tw, th := tb.Dx(), tb.Dy()
	if tw == 0 || th == 0 || tw > fb.Dx() || th > fb.Dy() {
		return 0, image.Point{}
	}

	// Centered template
	n := float64(tw * th)
	centered := make([]float64, tw*th)
	var tSum float64
	for y := 0; y < th; y++ {
		row := template.Pix[y*template.Stride : y*template.Stride+tw]
		for x := 0; x < tw; x++ {
			tSum += float64(row[x])
		}
	}
	tMean := tSum / n
	var tVar float64
	for y := 0; y < th; y++ {
		row := template.Pix[y*template.Stride : y*template.Stride+tw]
		for x := 0; x < tw; x++ {
			c := float64(row[x]) - tMean
			centered[y*tw+x] = c
			tVar += c * c
		}
	}
	if tVar < minVariance {
		return 0, image.Point{}
	}

	positions := image.Rect(0, 0, fb.Dx()-tw+1, fb.Dy()-th+1)
	if !search.Empty() {
		positions = positions.Intersect(search)
	}

	best := math.Inf(-1)
	var at image.Point
	for y := positions.Min.Y; y < positions.Max.Y; y++ {
		for x := positions.Min.X; x < positions.Max.X; x++ {
			wSum, wSq := in.window(x, y, tw, th)
			iVar := wSq - wSum*wSum/n
			var score float64
			if iVar >= minVariance {
				var cross float64
				for ty := 0; ty < th; ty++ {
					row := frame.Pix[(y+ty)*frame.Stride+x : (y+ty)*frame.Stride+x+tw]
					crow := centered[ty*tw : ty*tw+tw]
					for tx, v := range row {
						cross += crow[tx] * float64(v)
					}
				}
				score = cross / math.Sqrt(tVar*iVar)
			}
			if score > best {
				best = score
				at = image.Point{X: x, Y: y}
			}
		}
	}
	if math.IsInf(best, -1) {
		return 0, image.Point{}
	}
	return best, at
}

package screen

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/png" // Register PNG decoder for image.Decode
	"sync"

	"github.com/kbinani/screenshot"
	"github.com/nfnt/resize"
	"github.com/vcaesar/imgo"
)

// Searcher handles screen capturing and frame preparation for matching
type Searcher struct {
	DisplayIndex int

	// Reference resolution the templates were captured at. Frames of a
	// different size are rescaled to it. Zero disables scaling.
	RefWidth  int
	RefHeight int

	debugFunc func(string, ...interface{})

	mu        sync.Mutex
	lastFrame *image.Gray
}

// NewSearcher creates a new instance
func NewSearcher() *Searcher {
	return &Searcher{
		DisplayIndex: 0, // Default to main display
		debugFunc:    func(string, ...interface{}) {},
	}
}

// SetDisplayID sets the target display index for capturing
func (s *Searcher) SetDisplayID(index int) {
	s.DisplayIndex = index
}

// SetReference sets the resolution frames are scaled to before matching
func (s *Searcher) SetReference(width, height int) {
	s.RefWidth = width
	s.RefHeight = height
}

// SetDebugFunc sets the debug logging function
func (s *Searcher) SetDebugFunc(f func(string, ...interface{})) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	s.debugFunc = f
}

// LoadImage loads an image from the filesystem
func LoadImage(path string) (image.Image, error) {
	img, err := imgo.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", path, err)
	}
	return img, nil
}

// LoadGray loads an image and converts it to grayscale
func LoadGray(path string) (*image.Gray, error) {
	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	return ToGray(img), nil
}

// CaptureScreen returns the current screen image
func (s *Searcher) CaptureScreen() (image.Image, error) {
	// kbinani/screenshot handles multi-monitor bounds correctly
	bounds := screenshot.GetDisplayBounds(s.DisplayIndex)

	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to capture screen %d: %w", s.DisplayIndex, err)
	}
	return img, nil
}

// CaptureGray captures the display, converts it to grayscale once and
// scales it to the reference resolution.
func (s *Searcher) CaptureGray() (*image.Gray, error) {
	img, err := s.CaptureScreen()
	if err != nil {
		return nil, err
	}
	gray := ToGray(img)
	if s.RefWidth > 0 && s.RefHeight > 0 {
		b := gray.Bounds()
		if b.Dx() != s.RefWidth || b.Dy() != s.RefHeight {
			s.debugFunc("[Screen] scaling frame %dx%d -> %dx%d", b.Dx(), b.Dy(), s.RefWidth, s.RefHeight)
			gray = ScaleGray(gray, s.RefWidth, s.RefHeight)
		}
	}

	s.mu.Lock()
	s.lastFrame = gray
	s.mu.Unlock()
	return gray, nil
}

// SaveDebugScreenshot writes the most recent captured frame to path
func (s *Searcher) SaveDebugScreenshot(path string) error {
	s.mu.Lock()
	frame := s.lastFrame
	s.mu.Unlock()
	if frame == nil {
		return errors.New("no frame captured yet")
	}
	return imgo.Save(path, frame)
}

// ToGray converts any image to an 8-bit grayscale image
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// ScaleGray resizes a grayscale frame
func ScaleGray(img *image.Gray, width, height int) *image.Gray {
	return ToGray(resize.Resize(uint(width), uint(height), img, resize.Bilinear))
}

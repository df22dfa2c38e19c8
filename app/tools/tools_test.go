package tools

import (
	"image"
	"path/filepath"
	"testing"

	"fyne.io/fyne/v2"
	"github.com/ConserveLee/mapwalk/internal/assets"
	"github.com/ConserveLee/mapwalk/internal/engine/screen"
	"github.com/ConserveLee/mapwalk/internal/nav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitRect(t *testing.T) {
	img := image.Rect(0, 0, 200, 100)

	off, size := FitRect(fyne.NewSize(400, 400), img)
	assert.Equal(t, fyne.NewPos(0, 100), off)
	assert.Equal(t, fyne.NewSize(400, 200), size)

	off, size = FitRect(fyne.NewSize(400, 100), img)
	assert.Equal(t, fyne.NewPos(100, 0), off)
	assert.Equal(t, fyne.NewSize(200, 100), size)

	_, size = FitRect(fyne.NewSize(0, 0), img)
	assert.Equal(t, fyne.Size{}, size)
}

func TestSelectionToPixels(t *testing.T) {
	img := image.Rect(0, 0, 200, 100)
	view := fyne.NewSize(400, 400) // image drawn at y 100..300, scale 0.5

	rect := SelectionToPixels(view, img, fyne.NewPos(40, 120), fyne.NewPos(80, 160))
	assert.Equal(t, image.Rect(20, 10, 40, 30), rect)

	// Dragging backwards and past the letterbox clips to the image
	rect = SelectionToPixels(view, img, fyne.NewPos(500, 350), fyne.NewPos(300, 50))
	assert.Equal(t, image.Rect(150, 0, 200, 100), rect)

	assert.True(t, SelectionToPixels(view, img, fyne.NewPos(10, 10), fyne.NewPos(50, 90)).Empty())
}

func TestTemplatePath(t *testing.T) {
	path, err := TemplatePath("mod", "route", assets.MapDir, " A-1.png ")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("mod", "route", "map", "A-1.png"), path)

	path, err = TemplatePath("mod", "route", assets.EndDir, "victory screen")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("mod", "route", "end", "victory screen.png"), path)

	_, err = TemplatePath("mod", "", assets.MapDir, "1")
	assert.ErrorIs(t, err, ErrNoSelection)
	_, err = TemplatePath("mod", "route", assets.MapDir, "A-12345")
	assert.ErrorIs(t, err, nav.ErrBadNodeName)
	_, err = TemplatePath("mod", "route", "scripts", "1")
	assert.Error(t, err)
}

func TestSaveTemplateLoadsAsGray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "route", "map", "1.png")
	img := image.NewRGBA(image.Rect(0, 0, 12, 7))
	require.NoError(t, SaveTemplate(path, img))

	gray, err := screen.LoadGray(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 12, 7), gray.Bounds())

	assert.ErrorIs(t, SaveTemplate(path, image.NewRGBA(image.Rectangle{})), ErrNoSelection)
}

func TestSuggestName(t *testing.T) {
	existing := []string{"1", "2", "10", "1-1", "1-3", "1-3-1", "1-1a", "A"}
	assert.Equal(t, "11", SuggestName(existing, ""))
	assert.Equal(t, "1-4", SuggestName(existing, "1"))
	assert.Equal(t, "1-3-2", SuggestName(existing, "1-3"))
	assert.Equal(t, "2-1", SuggestName(existing, "2"))
	assert.Equal(t, "1", SuggestName(nil, ""))
}

package tools

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ConserveLee/mapwalk/internal/assets"
	"github.com/ConserveLee/mapwalk/internal/nav"
	"github.com/vcaesar/imgo"
)

// ErrNoSelection is returned when a capture has no route folder or area
var ErrNoSelection = errors.New("nothing selected")

// Kinds of template a capture can be saved as, named after their folder
var Kinds = []string{assets.MapDir, assets.EndDir, assets.InterruptDir}

// TemplatePath returns where a captured template is stored:
// modDir/folder/kind/name.png. Map templates must be valid node names.
func TemplatePath(modDir, folder, kind, name string) (string, error) {
	if folder == "" {
		return "", fmt.Errorf("%w: route folder", ErrNoSelection)
	}
	name = strings.TrimSuffix(strings.TrimSpace(name), ".png")
	switch kind {
	case assets.MapDir:
		if err := nav.ValidateNode(name); err != nil {
			return "", err
		}
	case assets.EndDir, assets.InterruptDir:
		if name == "" || strings.ContainsAny(name, `/\`) {
			return "", fmt.Errorf("invalid template name %q", name)
		}
	default:
		return "", fmt.Errorf("unknown template kind %q", kind)
	}
	return filepath.Join(modDir, folder, kind, name+".png"), nil
}

// SaveTemplate writes img as a PNG, creating the folder
func SaveTemplate(path string, img image.Image) error {
	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("%w: area", ErrNoSelection)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create template folder: %w", err)
	}
	if err := imgo.Save(path, img); err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}

// SuggestName proposes the next node name below parent: the first free
// number after the highest numbered sibling. An empty parent suggests a
// top-level node.
func SuggestName(existing []string, parent string) string {
	depth := nav.ParsePath(parent).Depth()
	highest := 0
	for _, name := range existing {
		p := nav.ParsePath(name)
		if p.Depth() != depth+1 {
			continue
		}
		if parent != nav.Start && !nav.IsDirectChild(parent, name) {
			continue
		}
		if n, err := strconv.Atoi(p[depth]); err == nil && n > highest {
			highest = n
		}
	}
	next := strconv.Itoa(highest + 1)
	if parent == nav.Start {
		return next
	}
	return parent + nav.Separator + next
}

// Package assets loads the map templates and node scripts of an
// external route folder.
package assets

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ConserveLee/mapwalk/internal/constants"
	"github.com/ConserveLee/mapwalk/internal/engine/screen"
	"github.com/ConserveLee/mapwalk/internal/logger"
	"github.com/ConserveLee/mapwalk/internal/macro"
	"golang.org/x/sync/errgroup"
)

// ErrNoTemplates is returned when a route folder has no map directory.
var ErrNoTemplates = errors.New("no map templates")

// Sub-directories of a route folder
const (
	ScriptsDir = "scripts"
	MapDir     = "map"

	// Optional probe folders: a round is over when an EndDir template is
	// on screen, and playback is interrupted by an InterruptDir template.
	EndDir       = "end"
	InterruptDir = "interrupt"

	// builtinFolder holds shipped resources and is never a selectable route
	builtinFolder = "builtin"
)

// Template is one grayscale map node image
type Template struct {
	Name  string
	Image *image.Gray
}

// TemplateSet is the immutable, ordered set of map templates
type TemplateSet struct {
	items []Template
	index map[string]int
}

// NewTemplateSet orders templates by (name length, name)
func NewTemplateSet(templates []Template) *TemplateSet {
	items := append([]Template(nil), templates...)
	sort.Slice(items, func(i, j int) bool {
		if len(items[i].Name) != len(items[j].Name) {
			return len(items[i].Name) < len(items[j].Name)
		}
		return items[i].Name < items[j].Name
	})
	index := make(map[string]int, len(items))
	for i, t := range items {
		index[t.Name] = i
	}
	return &TemplateSet{items: items, index: index}
}

// All returns the templates in match order
func (s *TemplateSet) All() []Template {
	if s == nil {
		return nil
	}
	return s.items
}

// Names returns the template names in match order
func (s *TemplateSet) Names() []string {
	names := make([]string, 0, s.Len())
	for _, t := range s.All() {
		names = append(names, t.Name)
	}
	return names
}

// Get looks a template up by name
func (s *TemplateSet) Get(name string) (*image.Gray, bool) {
	if s == nil {
		return nil, false
	}
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.items[i].Image, true
}

// Len is the number of templates
func (s *TemplateSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Bundle is everything one task run needs from a route folder
type Bundle struct {
	Dir       string
	Templates *TemplateSet
	Scripts   map[string]*macro.Script

	// Probe template sets, empty when the folder does not exist
	End       *TemplateSet
	Interrupt *TemplateSet
}

// Load reads dir/scripts/*.json and dir/map/*.png. Files that fail to
// decode are logged and skipped; missing directories are errors.
func Load(ctx context.Context, dir string, log *logger.AppLogger) (*Bundle, error) {
	if log == nil {
		log = logger.Nop()
	}

	scripts, err := loadScripts(ctx, filepath.Join(dir, ScriptsDir), log)
	if err != nil {
		return nil, err
	}
	templates, err := loadTemplates(ctx, filepath.Join(dir, MapDir), log)
	if err != nil {
		return nil, err
	}

	bundle := &Bundle{Dir: dir, Templates: templates, Scripts: scripts}
	if bundle.End, err = loadOptional(ctx, filepath.Join(dir, EndDir), log); err != nil {
		return nil, err
	}
	if bundle.Interrupt, err = loadOptional(ctx, filepath.Join(dir, InterruptDir), log); err != nil {
		return nil, err
	}

	log.Info("Loaded %d scripts and %d map templates from %s", len(scripts), templates.Len(), dir)
	return bundle, nil
}

// loadOptional loads a probe folder, which may be absent
func loadOptional(ctx context.Context, dir string, log *logger.AppLogger) (*TemplateSet, error) {
	set, err := loadTemplates(ctx, dir, log)
	if errors.Is(err, ErrNoTemplates) {
		return NewTemplateSet(nil), nil
	}
	return set, err
}

func loadScripts(ctx context.Context, dir string, log *logger.AppLogger) (map[string]*macro.Script, error) {
	files, err := listFiles(dir, ".json")
	if err != nil {
		return nil, fmt.Errorf("scripts folder: %w", err)
	}

	var mu sync.Mutex
	scripts := make(map[string]*macro.Script, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(constants.LoadWorkers)
	for _, name := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, name)
			data, err := os.ReadFile(path)
			if err != nil {
				log.Warn("Failed to load %s: %v", path, err)
				return nil
			}
			script, err := macro.ParseScript(stem(name), data)
			if err != nil {
				log.Warn("Failed to load %s: %v", path, err)
				return nil
			}
			log.Debug("Successfully loaded: %s", path)

			mu.Lock()
			scripts[script.Name] = script
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scripts, nil
}

func loadTemplates(ctx context.Context, dir string, log *logger.AppLogger) (*TemplateSet, error) {
	files, err := listFiles(dir, ".png")
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: folder not found: %s", ErrNoTemplates, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("map folder: %w", err)
	}

	loaded := make([]*Template, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(constants.LoadWorkers)
	for i, name := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := screen.LoadGray(filepath.Join(dir, name))
			if err != nil {
				log.Error("Failed to load %s: %v", name, err)
				return nil
			}
			log.Debug("Successfully loaded (grayscale): %s", name)
			loaded[i] = &Template{Name: stem(name), Image: img}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	templates := make([]Template, 0, len(loaded))
	for _, t := range loaded {
		if t != nil {
			templates = append(templates, *t)
		}
	}
	return NewTemplateSet(templates), nil
}

// listFiles returns the regular files in dir with the given extension,
// compared case-insensitively.
func listFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func stem(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// ListFolders returns the selectable route folders under modDir
func ListFolders(modDir string) ([]string, error) {
	entries, err := os.ReadDir(modDir)
	if err != nil {
		return nil, fmt.Errorf("list route folders: %w", err)
	}
	var folders []string
	for _, e := range entries {
		if e.IsDir() && e.Name() != builtinFolder {
			folders = append(folders, e.Name())
		}
	}
	return folders, nil
}

// Package config loads mapwalk settings from a YAML file, MAPWALK_*
// environment variables and defaults, and keeps them current while the
// task runs.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ConserveLee/mapwalk/internal/constants"
	"github.com/ConserveLee/mapwalk/internal/input"
	"github.com/ConserveLee/mapwalk/internal/logger"
	"github.com/ConserveLee/mapwalk/internal/macro"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// EnvPrefix prefixes environment overrides, e.g. MAPWALK_JITTER_MODE
const EnvPrefix = "MAPWALK"

// Skill modes for the periodic skill cast
const (
	SkillDisabled = "disabled"
	SkillCombat   = "combat"
	SkillUltimate = "ultimate"
	SkillSupport  = "support"
)

// Reference is the resolution templates were captured at
type Reference struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// Jitter configures the anti-idle mouse perturbation
type Jitter struct {
	Mode     string        `mapstructure:"mode"`
	MinDelay time.Duration `mapstructure:"min_delay"`
	MaxDelay time.Duration `mapstructure:"max_delay"`
	Amount   int           `mapstructure:"amount"`
}

// Sensitivity is the live in-game mouse sensitivity
type Sensitivity struct {
	X float64 `mapstructure:"x"`
	Y float64 `mapstructure:"y"`
}

// Playback tunes the macro interpreter
type Playback struct {
	FrameInterval time.Duration `mapstructure:"frame_interval"`
	SettleDelay   time.Duration `mapstructure:"settle_delay"`
}

// Settings is the resolved configuration
type Settings struct {
	ModDir             string        `mapstructure:"mod_dir"`
	ExternalFolder     string        `mapstructure:"external_folder"`
	Rounds             int           `mapstructure:"rounds"`
	RoundTimeout       time.Duration `mapstructure:"round_timeout"`
	MinConfidence      float64       `mapstructure:"min_confidence"`
	Display            int           `mapstructure:"display"`
	Reference          Reference     `mapstructure:"reference"`
	Jitter             Jitter        `mapstructure:"jitter"`
	UseSkill           string        `mapstructure:"use_skill"`
	SkillCastFrequency time.Duration `mapstructure:"skill_cast_frequency"`
	Sound              bool          `mapstructure:"sound"`
	Journal            string        `mapstructure:"journal"`
	Sensitivity        Sensitivity   `mapstructure:"sensitivity"`
	Playback           Playback      `mapstructure:"playback"`
	StopHotkey         string        `mapstructure:"stop_hotkey"`
	Keys               input.KeyMap  `mapstructure:"keys"`
	ResetSequence      []input.Step  `mapstructure:"reset_sequence"`
}

// Defaults returns the built-in settings
func Defaults() map[string]any {
	keys := input.DefaultKeyMap()
	return map[string]any{
		"mod_dir":                 "mod",
		"external_folder":         "",
		"rounds":                  constants.DefaultRounds,
		"round_timeout":           constants.DefaultRoundTimeout,
		"min_confidence":          constants.DefaultMinConfidence,
		"display":                 0,
		"reference.width":         constants.ReferenceWidth,
		"reference.height":        constants.ReferenceHeight,
		"jitter.mode":             string(macro.JitterDisabled),
		"jitter.min_delay":        constants.DefaultJitterMinDelay,
		"jitter.max_delay":        constants.DefaultJitterMaxDelay,
		"jitter.amount":           constants.DefaultJitterAmount,
		"use_skill":               SkillDisabled,
		"skill_cast_frequency":    constants.DefaultSkillFrequency,
		"sound":                   true,
		"journal":                 "mapwalk.db",
		"sensitivity.x":           1.0,
		"sensitivity.y":           1.0,
		"playback.frame_interval": constants.FrameInterval,
		"playback.settle_delay":   constants.SettleDelay,
		"stop_hotkey":             "f10",
		"keys.dodge":              keys.Dodge,
		"keys.interact":           keys.Interact,
		"keys.combat":             keys.Combat,
		"keys.ultimate":           keys.Ultimate,
		"keys.spiral_dive":        keys.SpiralDive,
		"keys.support":            keys.Support,
	}
}

// Validate checks enumerations and ranges
func (s Settings) Validate() error {
	switch macro.JitterMode(s.Jitter.Mode) {
	case macro.JitterDisabled, macro.JitterAlways, macro.JitterCombatOnly:
	default:
		return fmt.Errorf("%w: jitter.mode %q", ErrInvalidConfig, s.Jitter.Mode)
	}
	switch s.UseSkill {
	case SkillDisabled, SkillCombat, SkillUltimate, SkillSupport:
	default:
		return fmt.Errorf("%w: use_skill %q", ErrInvalidConfig, s.UseSkill)
	}
	if s.Rounds < 1 {
		return fmt.Errorf("%w: rounds must be at least 1", ErrInvalidConfig)
	}
	if s.Jitter.MinDelay > s.Jitter.MaxDelay {
		return fmt.Errorf("%w: jitter.min_delay above jitter.max_delay", ErrInvalidConfig)
	}
	if s.Reference.Width < 0 || s.Reference.Height < 0 {
		return fmt.Errorf("%w: negative reference resolution", ErrInvalidConfig)
	}
	return nil
}

// PlayerSettings is the per-node snapshot the macro player reads
func (s Settings) PlayerSettings() macro.Settings {
	return macro.Settings{
		JitterMode:      macro.JitterMode(s.Jitter.Mode),
		LiveSensitivity: macro.Sensitivity{X: s.Sensitivity.X, Y: s.Sensitivity.Y},
		FrameInterval:   s.Playback.FrameInterval,
		SettleDelay:     s.Playback.SettleDelay,
	}
}

// Store holds the current settings and reloads them when the file changes.
// viper is not safe for concurrent use, so every access to v goes through
// vmu.
type Store struct {
	vmu     sync.Mutex
	v       *viper.Viper
	watcher *fsnotify.Watcher

	bindings *input.LiveBindings
	log      *logger.AppLogger

	mu       sync.RWMutex
	settings Settings
	onChange []func(Settings)
}

// Load reads path, or mapwalk.yaml in the working directory when path is
// empty. A missing default file is not an error.
func Load(path string, log *logger.AppLogger) (*Store, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("mapwalk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return NewStore(v, log)
}

// NewStore resolves settings from an already configured viper instance
func NewStore(v *viper.Viper, log *logger.AppLogger) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	s := &Store{v: v, log: log}
	settings, err := s.resolve()
	if err != nil {
		return nil, err
	}
	s.settings = settings
	s.bindings = input.NewLiveBindings(settings.Keys)
	return s, nil
}

// resolve decodes v. Callers hold vmu once the store is shared.
func (s *Store) resolve() (Settings, error) {
	var settings Settings
	if err := s.v.Unmarshal(&settings); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Snapshot returns a copy of the current settings
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.settings
	out.ResetSequence = append([]input.Step(nil), s.settings.ResetSequence...)
	return out
}

// PlayerSettings returns the playback snapshot, for macro.PlayerConfig
func (s *Store) PlayerSettings() macro.Settings {
	return s.Snapshot().PlayerSettings()
}

// MinConfidence returns the current match threshold
func (s *Store) MinConfidence() float64 {
	return s.Snapshot().MinConfidence
}

// Bindings are the live key bindings. They follow every reload.
func (s *Store) Bindings() *input.LiveBindings {
	return s.bindings
}

// ConfigFile is the file settings were read from, if any
func (s *Store) ConfigFile() string {
	s.vmu.Lock()
	defer s.vmu.Unlock()
	return s.v.ConfigFileUsed()
}

// OnChange registers a callback run after every successful reload
func (s *Store) OnChange(fn func(Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Set overrides one key for the life of the process and reloads. A
// rejected value is rolled back.
func (s *Store) Set(key string, value any) error {
	s.vmu.Lock()
	prev := s.v.Get(key)
	s.v.Set(key, value)
	settings, err := s.resolve()
	if err != nil {
		s.v.Set(key, prev)
		s.vmu.Unlock()
		return err
	}
	callbacks := s.apply(settings)
	s.vmu.Unlock()

	s.notify(settings, callbacks)
	return nil
}

// Reload re-resolves the settings. On failure the previous settings stay.
func (s *Store) Reload() error {
	return s.update(false)
}

// update resolves and applies the settings, re-reading the file first when
// reread is set
func (s *Store) update(reread bool) error {
	s.vmu.Lock()
	if reread {
		if err := s.v.ReadInConfig(); err != nil {
			s.vmu.Unlock()
			return fmt.Errorf("read config: %w", err)
		}
	}
	settings, err := s.resolve()
	if err != nil {
		s.vmu.Unlock()
		return err
	}
	callbacks := s.apply(settings)
	s.vmu.Unlock()

	s.notify(settings, callbacks)
	return nil
}

// apply publishes settings. Callers hold vmu so concurrent updates are
// applied in the order viper saw them.
func (s *Store) apply(settings Settings) []func(Settings) {
	s.mu.Lock()
	s.settings = settings
	callbacks := append([]func(Settings){}, s.onChange...)
	s.mu.Unlock()

	s.bindings.Set(settings.Keys)
	return callbacks
}

func (s *Store) notify(settings Settings, callbacks []func(Settings)) {
	for _, fn := range callbacks {
		fn(settings)
	}
}

// Watch re-reads the config file whenever it is written, until Close. It
// does nothing when no file was loaded.
func (s *Store) Watch() error {
	file := s.ConfigFile()
	if file == "" {
		return nil
	}

	s.vmu.Lock()
	defer s.vmu.Unlock()
	if s.watcher != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	// Editors replace files on save, so watch the directory
	if err := w.Add(filepath.Dir(file)); err != nil {
		w.Close()
		return fmt.Errorf("watch config: %w", err)
	}
	s.watcher = w
	go s.watch(w, filepath.Clean(file))
	return nil
}

func (s *Store) watch(w *fsnotify.Watcher, file string) {
	for {
		select {
		case e, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != file || e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := s.update(true); err != nil {
				s.log.Warn("Config reload from %s rejected: %v", e.Name, err)
				continue
			}
			s.log.Info("Config reloaded from %s", e.Name)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.log.Warn("Config watch: %v", err)
		}
	}
}

// Close stops watching the config file
func (s *Store) Close() error {
	s.vmu.Lock()
	w := s.watcher
	s.watcher = nil
	s.vmu.Unlock()
	if w == nil {
		return nil
	}
	return w.Close()
}

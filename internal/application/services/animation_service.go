package services

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/avatarctic/tabrefresh/internal/core/domain/animation"
	"github.com/avatarctic/tabrefresh/internal/core/ports"
	"github.com/sirupsen/logrus"
)

const animationMarker = "{animation:"

var animationPattern = regexp.MustCompile(`\{animation:([\w-]+)(?::([\w-]+))?\}`)

// AnimationService owns the loaded frame sequences and resolves placeholders against them.
type AnimationService struct {
	mu          sync.RWMutex
	definitions map[string]*animation.Definition
	// problems found while loading; entries skipped here never reach definitions
	loadProblems []string

	intn    func(n int) int
	metrics ports.EngineMetrics
	logger  *logrus.Logger
}

// AnimationOption configures an AnimationService
type AnimationOption func(*AnimationService)

// WithRandomSource replaces the uniform generator used by random-mode definitions.
func WithRandomSource(intn func(n int) int) AnimationOption {
	return func(s *AnimationService) {
		if intn != nil {
			s.intn = intn
		}
	}
}

// WithAnimationMetrics wires a metrics recorder.
func WithAnimationMetrics(metrics ports.EngineMetrics) AnimationOption {
	return func(s *AnimationService) {
		s.metrics = metricsOrNop(metrics)
	}
}

// NewAnimationService creates a new animation service with no definitions loaded
func NewAnimationService(logger *logrus.Logger, opts ...AnimationOption) *AnimationService {
	s := &AnimationService{
		definitions: make(map[string]*animation.Definition),
		intn:        rand.IntN,
		metrics:     nopMetrics{},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces every definition with the valid entries of defs.
func (s *AnimationService) Load(defs map[string]animation.RawDefinition) animation.LoadReport {
	report := animation.LoadReport{
		Loaded:   []string{},
		Skipped:  []string{},
		Warnings: []string{},
	}
	var problems []string

	ids := make([]string, 0, len(defs))
	for id := range defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	loaded := make(map[string]*animation.Definition, len(defs))
	for _, id := range ids {
		raw := defs[id]

		if len(raw.Frames) == 0 {
			msg := fmt.Sprintf("Animation '%s' has no frames", id)
			report.Skipped = append(report.Skipped, id)
			report.Warnings = append(report.Warnings, msg)
			problems = append(problems, msg)
			continue
		}

		mode, ok := animation.ParseMode(raw.Type)
		if !ok && strings.TrimSpace(raw.Type) != "" {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("Animation '%s' has unknown type '%s', using %s", id, raw.Type, animation.ModeLoop))
		}

		speed := 1
		if raw.Speed != nil {
			speed = *raw.Speed
			if speed < 1 {
				msg := fmt.Sprintf("Animation '%s' has invalid speed: %d", id, speed)
				report.Warnings = append(report.Warnings, msg)
				problems = append(problems, msg)
			}
		}

		loaded[id] = animation.NewDefinition(id, raw.Frames, mode, speed)
		report.Loaded = append(report.Loaded, id)
	}

	s.mu.Lock()
	s.definitions = loaded
	s.loadProblems = problems
	s.mu.Unlock()

	if s.logger != nil {
		for _, w := range report.Warnings {
			s.logger.WithField("component", "animations").Warn(w)
		}
		s.logger.WithFields(logrus.Fields{
			"loaded":  len(report.Loaded),
			"skipped": len(report.Skipped),
		}).Info("Animations loaded")
	}

	return report
}

// Resolve replaces every animation placeholder in text. Text without the marker is
// returned as is.
func (s *AnimationService) Resolve(text string) string {
	if !strings.Contains(text, animationMarker) {
		return text
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return animationPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := animationPattern.FindStringSubmatch(match)
		id, suffix := groups[1], groups[2]

		if suffix != "" {
			index, err := strconv.Atoi(suffix)
			if err != nil {
				return match
			}
			def, ok := s.definitions[id]
			if !ok {
				return unknownAnimation(id)
			}
			frame, ok := def.FrameAt(index)
			if !ok {
				return fmt.Sprintf("[Invalid frame: %d]", index)
			}
			return frame
		}

		def, ok := s.definitions[id]
		if !ok {
			return unknownAnimation(id)
		}
		return def.CurrentFrame()
	})
}

func unknownAnimation(id string) string {
	return fmt.Sprintf("[Unknown animation: %s]", id)
}

// Advance steps every definition by one tick. It is called from the authoritative context only.
func (s *AnimationService) Advance() {
	s.mu.Lock()
	moved := 0
	for _, def := range s.definitions {
		if def.Advance(s.intn) {
			moved++
		}
	}
	s.mu.Unlock()

	if moved > 0 {
		s.metrics.AnimationsAdvanced(moved)
	}
}

func (s *AnimationService) Reset(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.definitions[id]
	if !ok {
		return false
	}
	def.Reset()
	return true
}

func (s *AnimationService) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, def := range s.definitions {
		def.Reset()
	}
}

// Validate lists the problems of the last load plus empty frames of loaded definitions.
func (s *AnimationService) Validate() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	problems := append([]string{}, s.loadProblems...)
	for _, id := range s.sortedIDsLocked() {
		def := s.definitions[id]
		if def.FrameCount() == 0 {
			problems = append(problems, fmt.Sprintf("Animation '%s' has no frames", id))
			continue
		}
		for i, frame := range def.Frames() {
			if frame == "" {
				problems = append(problems, fmt.Sprintf("Animation '%s' has empty frame at index %d", id, i))
			}
		}
	}
	return problems
}

func (s *AnimationService) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedIDsLocked()
}

func (s *AnimationService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.definitions)
}

func (s *AnimationService) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.definitions[id]
	return ok
}

func (s *AnimationService) Info(id string) (animation.Info, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.definitions[id]
	if !ok {
		return animation.Info{}, false
	}
	return def.Info(), true
}

func (s *AnimationService) sortedIDsLocked() []string {
	ids := make([]string, 0, len(s.definitions))
	for id := range s.definitions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var _ ports.AnimationEngine = (*AnimationService)(nil)

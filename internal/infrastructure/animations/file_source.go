package animations

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/avatarctic/tabrefresh/internal/core/domain/animation"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// FileSource reads animation definitions from a YAML file of the form
//
//	animations:
//	  <id>:
//	    frames: [...]
//	    type: LOOP
//	    speed: 1
type FileSource struct {
	path   string
	logger *logrus.Logger
}

// NewFileSource creates a source for the definitions file at path.
func NewFileSource(path string, logger *logrus.Logger) *FileSource {
	return &FileSource{path: path, logger: logger}
}

// Path returns the definitions file location.
func (s *FileSource) Path() string {
	return s.path
}

type definitionsFile struct {
	Animations yaml.Node `yaml:"animations"`
}

// Load parses the definitions file, writing the default set first when the file does not exist.
// An entry whose frames cannot be decoded is returned without frames so the engine skips and reports it.
func (s *FileSource) Load(ctx context.Context) (map[string]animation.RawDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.WriteDefaults(); err != nil {
			return nil, err
		}
		data, err = os.ReadFile(s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read animations file %s: %w", s.path, err)
	}

	var doc definitionsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse animations file %s: %w", s.path, err)
	}

	defs := make(map[string]animation.RawDefinition)
	node := &doc.Animations
	if node.Kind == 0 {
		return defs, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("animations file %s: 'animations' must be a mapping (line %d)", s.path, node.Line)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		id := node.Content[i].Value
		defs[id] = s.decodeEntry(id, node.Content[i+1])
	}
	return defs, nil
}

// decodeEntry reads frames, type and speed independently. A bad type or speed falls back
// to its default; only unusable frames leave the entry empty.
func (s *FileSource) decodeEntry(id string, node *yaml.Node) animation.RawDefinition {
	var raw animation.RawDefinition
	if node.Kind != yaml.MappingNode {
		s.warnEntry(id, "", node, fmt.Errorf("entry must be a mapping"))
		return raw
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]
		switch key {
		case "frames":
			var frames []string
			if err := value.Decode(&frames); err != nil {
				s.warnEntry(id, key, value, err)
				continue
			}
			raw.Frames = frames
		case "type":
			var mode string
			if err := value.Decode(&mode); err != nil {
				s.warnEntry(id, key, value, err)
				continue
			}
			raw.Type = mode
		case "speed":
			speed := 1
			if err := value.Decode(&speed); err != nil {
				s.warnEntry(id, key, value, err)
				speed = 1
			}
			raw.Speed = &speed
		}
	}
	return raw
}

func (s *FileSource) warnEntry(id, field string, node *yaml.Node, err error) {
	if s.logger == nil {
		return
	}
	s.logger.WithFields(logrus.Fields{
		"animation": id,
		"field":     field,
		"line":      node.Line,
	}).WithError(err).Warn("Malformed animation entry")
}

// WriteDefaults creates the definitions file with the built-in animation set.
func (s *FileSource) WriteDefaults() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create animations directory: %w", err)
		}
	}

	data, err := yaml.Marshal(struct {
		Animations map[string]animation.RawDefinition `yaml:"animations"`
	}{Animations: Defaults()})
	if err != nil {
		return fmt.Errorf("failed to encode default animations: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write default animations: %w", err)
	}

	if s.logger != nil {
		s.logger.WithField("path", s.path).Info("Created default animations file")
	}
	return nil
}

// Defaults returns the built-in animation set.
func Defaults() map[string]animation.RawDefinition {
	def := func(mode animation.Mode, speed int, frames ...string) animation.RawDefinition {
		return animation.RawDefinition{Frames: frames, Type: mode.String(), Speed: &speed}
	}
	return map[string]animation.RawDefinition{
		"hearts":  def(animation.ModeLoop, 1, "❤", "♥", "❥", "♡", "❣", "❦", "❧"),
		"loading": def(animation.ModeLoop, 1, "[■□□□]", "[□■□□]", "[□□■□]", "[□□□■]", "[□□■□]", "[□■□□]"),
		"time":    def(animation.ModeLoop, 5, "☀ Day", "⛅ Dusk", "🌙 Night", "🌅 Dawn"),
		"wave":    def(animation.ModeLoop, 2, "~≈~≈~", "≈~≈~≈", "~≈≈≈~", "≈~~~≈", "~≈~≈~"),
		"info":    def(animation.ModeLoop, 10, "Welcome to the server!", "Don't forget to vote!", "Join our Discord!", "Visit our website!"),
		"bounce":  def(animation.ModeBounce, 1, "█▓▒░", "▓█▓▒", "▒▓█▓", "░▒▓█"),
		"stars":   def(animation.ModeRandom, 1, "✦", "✧", "★", "☆", "✶"),
	}
}

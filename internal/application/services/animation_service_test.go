package services_test

import (
	"testing"

	impl "github.com/avatarctic/tabrefresh/internal/application/services"
	"github.com/avatarctic/tabrefresh/internal/core/domain/animation"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func loadedEngine(t *testing.T, defs map[string]animation.RawDefinition, opts ...impl.AnimationOption) *impl.AnimationService {
	t.Helper()
	s := impl.NewAnimationService(nil, opts...)
	s.Load(defs)
	return s
}

func TestResolve_PlainTextUnchanged(t *testing.T) {
	s := loadedEngine(t, map[string]animation.RawDefinition{"a": {Frames: []string{"x"}}})
	require.Equal(t, "hello {name} world", s.Resolve("hello {name} world"))
	require.Equal(t, "", s.Resolve(""))
}

func TestResolve_UnknownAnimation(t *testing.T) {
	s := loadedEngine(t, nil)
	require.Equal(t, "[Unknown animation: unknown]", s.Resolve("{animation:unknown}"))
	require.Equal(t, "a [Unknown animation: nope] b", s.Resolve("a {animation:nope:1} b"))
}

func TestResolve_StaticFrames(t *testing.T) {
	s := loadedEngine(t, map[string]animation.RawDefinition{
		"hearts": {Frames: []string{"0", "1", "2", "3", "4", "5", "6"}},
	})

	require.Equal(t, "2", s.Resolve("{animation:hearts:2}"))
	require.Equal(t, "[Invalid frame: 7]", s.Resolve("{animation:hearts:7}"))
	require.Equal(t, "[Invalid frame: -1]", s.Resolve("{animation:hearts:-1}"))
	require.Equal(t, "{animation:hearts:two}", s.Resolve("{animation:hearts:two}"))
}

func TestResolve_MultiplePlaceholders(t *testing.T) {
	s := loadedEngine(t, map[string]animation.RawDefinition{
		"a": {Frames: []string{"A1", "A2"}},
		"b": {Frames: []string{"B1", "B2"}},
	})
	require.Equal(t, "A1-B1-B2", s.Resolve("{animation:a}-{animation:b}-{animation:b:1}"))
}

func TestAdvance_LoopCycles(t *testing.T) {
	s := loadedEngine(t, map[string]animation.RawDefinition{
		"abc": {Frames: []string{"A", "B", "C"}, Type: "loop", Speed: intPtr(1)},
	})

	var seen []string
	for i := 0; i < 4; i++ {
		seen = append(seen, s.Resolve("{animation:abc}"))
		s.Advance()
	}
	require.Equal(t, []string{"A", "B", "C", "A"}, seen)
}

func TestAdvance_ReverseLoop(t *testing.T) {
	s := loadedEngine(t, map[string]animation.RawDefinition{
		"abc": {Frames: []string{"A", "B", "C"}, Type: "REVERSE_LOOP"},
	})

	var seen []string
	for i := 0; i < 4; i++ {
		seen = append(seen, s.Resolve("{animation:abc}"))
		s.Advance()
	}
	require.Equal(t, []string{"A", "C", "B", "A"}, seen)
}

func TestAdvance_BounceReversesAtEnds(t *testing.T) {
	s := loadedEngine(t, map[string]animation.RawDefinition{
		"abc": {Frames: []string{"A", "B", "C"}, Type: "bounce"},
		"one": {Frames: []string{"only"}, Type: "bounce"},
	})

	var seen []string
	for i := 0; i < 7; i++ {
		seen = append(seen, s.Resolve("{animation:abc}"))
		require.Equal(t, "only", s.Resolve("{animation:one}"))
		s.Advance()
	}
	require.Equal(t, []string{"A", "B", "C", "B", "A", "B", "C"}, seen)
}

func TestAdvance_RandomVisitsMoreThanOneFrame(t *testing.T) {
	s := loadedEngine(t, map[string]animation.RawDefinition{
		"stars": {Frames: []string{"1", "2", "3", "4", "5"}, Type: "RANDOM"},
	})

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		s.Advance()
		seen[s.Resolve("{animation:stars}")] = true
	}
	require.Greater(t, len(seen), 1)
}

func TestAdvance_RandomUsesInjectedSource(t *testing.T) {
	s := loadedEngine(t, map[string]animation.RawDefinition{
		"r": {Frames: []string{"a", "b", "c"}, Type: "random"},
	}, impl.WithRandomSource(func(n int) int { return n - 1 }))

	s.Advance()
	require.Equal(t, "c", s.Resolve("{animation:r}"))
}

func TestAdvance_SpeedDelaysSteps(t *testing.T) {
	s := loadedEngine(t, map[string]animation.RawDefinition{
		"slow": {Frames: []string{"A", "B"}, Speed: intPtr(3)},
	})

	s.Advance()
	s.Advance()
	require.Equal(t, "A", s.Resolve("{animation:slow}"))
	s.Advance()
	require.Equal(t, "B", s.Resolve("{animation:slow}"))

	info, ok := s.Info("slow")
	require.True(t, ok)
	require.Equal(t, 1, info.CurrentFrame)
	require.Equal(t, 0, info.TickCounter)
}

func TestLoad_SkipsEntryWithoutFramesAndReportsOnce(t *testing.T) {
	s := impl.NewAnimationService(nil)
	report := s.Load(map[string]animation.RawDefinition{
		"good":   {Frames: []string{"a"}},
		"broken": {Type: "LOOP"},
		"other":  {Frames: []string{"x", "y"}, Type: "wave"},
	})

	require.Equal(t, []string{"good", "other"}, report.Loaded)
	require.Equal(t, []string{"broken"}, report.Skipped)
	require.Equal(t, 2, s.Count())
	require.False(t, s.Has("broken"))

	problems := s.Validate()
	require.Len(t, problems, 1)
	require.Contains(t, problems[0], "broken")

	info, ok := s.Info("other")
	require.True(t, ok)
	require.Equal(t, animation.ModeLoop, info.Mode)
}

func TestLoad_ClampsInvalidSpeed(t *testing.T) {
	s := impl.NewAnimationService(nil)
	report := s.Load(map[string]animation.RawDefinition{
		"zero": {Frames: []string{"A", "B"}, Speed: intPtr(0)},
	})

	require.Equal(t, []string{"zero"}, report.Loaded)
	info, ok := s.Info("zero")
	require.True(t, ok)
	require.Equal(t, 1, info.Speed)

	s.Advance()
	require.Equal(t, "B", s.Resolve("{animation:zero}"))
	require.Contains(t, s.Validate(), "Animation 'zero' has invalid speed: 0")
}

func TestLoad_ReplacesDefinitionsWholesale(t *testing.T) {
	s := loadedEngine(t, map[string]animation.RawDefinition{"old": {Frames: []string{"o"}}})
	s.Load(map[string]animation.RawDefinition{"new": {Frames: []string{"n"}}})

	require.Equal(t, []string{"new"}, s.IDs())
	require.Equal(t, "[Unknown animation: old]", s.Resolve("{animation:old}"))
}

func TestValidate_ReportsEmptyFrames(t *testing.T) {
	s := loadedEngine(t, map[string]animation.RawDefinition{"gap": {Frames: []string{"a", "", "c"}}})
	require.Equal(t, []string{"Animation 'gap' has empty frame at index 1"}, s.Validate())
}

func TestReset_RewindsPlayHead(t *testing.T) {
	s := loadedEngine(t, map[string]animation.RawDefinition{
		"a": {Frames: []string{"1", "2", "3"}},
		"b": {Frames: []string{"x", "y"}},
	})
	s.Advance()

	require.True(t, s.Reset("a"))
	require.False(t, s.Reset("missing"))
	require.Equal(t, "1", s.Resolve("{animation:a}"))
	require.Equal(t, "y", s.Resolve("{animation:b}"))

	s.ResetAll()
	require.Equal(t, "x", s.Resolve("{animation:b}"))
}

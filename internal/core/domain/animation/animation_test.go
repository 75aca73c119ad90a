package animation_test

import (
	"testing"

	"github.com/avatarctic/tabrefresh/internal/core/domain/animation"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	cases := []struct {
		token string
		want  animation.Mode
		ok    bool
	}{
		{"loop", animation.ModeLoop, true},
		{" Reverse_Loop ", animation.ModeReverseLoop, true},
		{"BOUNCE", animation.ModeBounce, true},
		{"random", animation.ModeRandom, true},
		{"zigzag", animation.ModeLoop, false},
		{"", animation.ModeLoop, false},
	}
	for _, tc := range cases {
		got, ok := animation.ParseMode(tc.token)
		require.Equal(t, tc.want, got, tc.token)
		require.Equal(t, tc.ok, ok, tc.token)
	}
}

func TestNewDefinition_ClampsSpeedAndCopiesFrames(t *testing.T) {
	frames := []string{"a", "b"}
	d := animation.NewDefinition("x", frames, animation.Mode("nope"), -4)
	frames[0] = "mutated"

	require.Equal(t, 1, d.Speed())
	require.Equal(t, animation.ModeLoop, d.Mode())
	require.Equal(t, "a", d.CurrentFrame())

	got := d.Frames()
	got[1] = "mutated"
	f, ok := d.FrameAt(1)
	require.True(t, ok)
	require.Equal(t, "b", f)
}

func TestDefinition_EmptyNeverAdvances(t *testing.T) {
	d := animation.NewDefinition("empty", nil, animation.ModeLoop, 1)
	require.False(t, d.Advance(nil))
	require.Equal(t, "", d.CurrentFrame())
	_, ok := d.FrameAt(0)
	require.False(t, ok)
}

func TestDefinition_BounceTwoFrames(t *testing.T) {
	d := animation.NewDefinition("b", []string{"L", "R"}, animation.ModeBounce, 1)

	var seen []int
	for i := 0; i < 5; i++ {
		d.Advance(nil)
		seen = append(seen, d.FrameIndex())
	}
	require.Equal(t, []int{1, 0, 1, 0, 1}, seen)
}

func TestDefinition_ResetClearsDirection(t *testing.T) {
	d := animation.NewDefinition("b", []string{"1", "2", "3"}, animation.ModeBounce, 1)
	d.Advance(nil)
	d.Advance(nil)
	d.Advance(nil) // heading back
	require.Equal(t, 1, d.FrameIndex())

	d.Reset()
	d.Advance(nil)
	require.Equal(t, 1, d.FrameIndex())
	d.Advance(nil)
	require.Equal(t, 2, d.FrameIndex())
}

func TestInfo_String(t *testing.T) {
	d := animation.NewDefinition("hearts", []string{"a", "b"}, animation.ModeLoop, 2)
	require.Equal(t, "Animation 'hearts': 2 frames, type=LOOP, speed=2, current=0", d.Info().String())
}

package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUSLayout(t *testing.T) {
	t.Parallel()

	l := LayoutFor("us")
	require.Equal(t, "us", l.Name)

	k, ok := l.KeyForRune('\n')
	require.True(t, ok)
	assert.Equal(t, Key("Enter"), k)

	_, ok = l.KeyForRune('a')
	assert.False(t, ok)

	k, ok = l.KeyForRune(RuneArrowDown)
	require.True(t, ok)
	def, ok := l.KeyDefinition(k)
	require.True(t, ok)
	assert.Equal(t, int64(40), def.KeyCode)
}

func TestModifiedKeyDefinition(t *testing.T) {
	t.Parallel()

	l := Layout{Keys: map[Key]Definition{
		"KeyA": {Code: "KeyA", Key: "a", KeyCode: 65, ShiftKey: "A", Text: "a"},
	}}

	def, ok := l.ModifiedKeyDefinition("a", 0)
	require.True(t, ok)
	assert.Equal(t, "a", def.Text)

	def, ok = l.ModifiedKeyDefinition("KeyA", ModifierKeyShift)
	require.True(t, ok)
	assert.Equal(t, "A", def.Key)
	assert.Equal(t, "A", def.Text)

	def, ok = l.ModifiedKeyDefinition("KeyA", ModifierKeyControl)
	require.True(t, ok)
	assert.Empty(t, def.Text)

	_, ok = l.ModifiedKeyDefinition("KeyB", 0)
	assert.False(t, ok)
}

func TestRegisterTwicePanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { register("us", nil, nil) })
}

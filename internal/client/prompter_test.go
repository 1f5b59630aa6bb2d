package client

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompter_ReadInt(t *testing.T) {
	p := NewPrompter(strings.NewReader("12  -3\nabc 7"))

	v, err := p.ReadInt()
	require.NoError(t, err)
	assert.Equal(t, int64(12), v)

	v, err = p.ReadInt()
	require.NoError(t, err)
	assert.Equal(t, int64(-3), v)

	_, err = p.ReadInt()
	assert.ErrorIs(t, err, ErrNotANumber)

	v, err = p.ReadInt()
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	_, err = p.ReadInt()
	assert.ErrorIs(t, err, ErrInputClosed)
}

func TestPrompter_Choose(t *testing.T) {
	p := NewPrompter(strings.NewReader("0 x 9 3"))
	shown := 0

	v, err := p.Choose(1, 4, func() { shown++ })

	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
	assert.Equal(t, 4, shown)
}

func TestPrompter_ChooseInputClosed(t *testing.T) {
	p := NewPrompter(strings.NewReader("5"))

	_, err := p.Choose(1, 2, nil)

	assert.ErrorIs(t, err, ErrInputClosed)
}

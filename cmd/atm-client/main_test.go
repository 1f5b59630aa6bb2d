package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	host, port, err := parseArgs([]string{"127.0.0.1", "8086"})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, 8086, port)

	tests := [][]string{
		nil,
		{"localhost"},
		{"localhost", "0"},
		{"localhost", "70000"},
		{"localhost", "eighty"},
		{"", "8086"},
	}
	for _, args := range tests {
		_, _, err := parseArgs(args)
		assert.Error(t, err, "args %v", args)
	}
}

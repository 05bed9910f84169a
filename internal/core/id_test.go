package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy unavailable")
}

func TestDetectIDGeneratorUUID(t *testing.T) {
	gen, strategy, err := DetectIDGenerator(IDStrategyAuto)
	require.NoError(t, err)
	assert.Equal(t, IDStrategyUUID, strategy)

	_, err = uuid.Parse(gen.NewID())
	assert.NoError(t, err)
}

func TestDetectIDGeneratorFallsBackWithoutEntropy(t *testing.T) {
	uuid.SetRand(failingReader{})
	t.Cleanup(func() { uuid.SetRand(nil) })

	gen, strategy, err := DetectIDGenerator(IDStrategyAuto)
	require.NoError(t, err)
	assert.Equal(t, IDStrategyTimestamp, strategy)
	assert.True(t, strings.HasPrefix(gen.NewID(), "id_"))
}

func TestTimestampGeneratorUnique(t *testing.T) {
	gen, _, err := DetectIDGenerator(IDStrategyTimestamp)
	require.NoError(t, err)

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := gen.NewID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestDetectIDGeneratorUnknown(t *testing.T) {
	_, _, err := DetectIDGenerator("sequence")
	assert.Error(t, err)
}

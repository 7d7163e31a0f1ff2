package biz

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/medrag/pkg/errors"
)

func TestParseTopicMap(t *testing.T) {
	tm := mustTopics(t)

	assert.Equal(t, 3, tm.Len())
	id, ok := tm.ID("Pulmonary Embolism")
	require.True(t, ok)
	assert.Equal(t, 1, id)

	name, ok := tm.Name(2)
	require.True(t, ok)
	assert.Equal(t, "Asthma", name)

	_, ok = tm.Name(99)
	assert.False(t, ok)

	assert.Equal(t, []string{"Asthma", "Pulmonary Embolism", "Sepsis"}, tm.Names())
	assert.Equal(t, []Topic{{"Sepsis", 0}, {"Pulmonary Embolism", 1}, {"Asthma", 2}}, tm.Topics())
	assert.Contains(t, tm.JSON(), "\n  \"Sepsis\": 0")
}

func TestParseTopicMap_Invalid(t *testing.T) {
	cases := map[string]string{
		"not json":      `[1, 2`,
		"array":         `["Sepsis"]`,
		"empty":         `{}`,
		"duplicate id":  `{"A": 1, "B": 1}`,
		"negative id":   `{"A": -1}`,
		"blank name":    `{"  ": 1}`,
		"fractional id": `{"A": 1.5}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTopicMap([]byte(input))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrTopicMapInvalid.Code), "got %v", err)
		})
	}
}

func TestLoadTopicMap_Missing(t *testing.T) {
	_, err := LoadTopicMap(filepath.Join(t.TempDir(), "topics.json"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTopicMapMissing.Code))
}

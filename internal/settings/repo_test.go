package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBool(t *testing.T) {
	for _, v := range []string{"true", "1", "on", "yes", "True"} {
		assert.True(t, ParseBool(v), v)
	}
	for _, v := range []string{"false", "0", "off", "", "nope"} {
		assert.False(t, ParseBool(v), v)
	}
}

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	tok, err := Issue("s3cret", "u1", RoleAdmin, time.Minute)
	require.NoError(t, err)

	c, err := ParseValidate("s3cret", tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.Sub)
	assert.True(t, c.IsAdmin())
}

func TestParseRejects(t *testing.T) {
	tok, err := Issue("s3cret", "u1", "user", time.Minute)
	require.NoError(t, err)
	_, err = ParseValidate("other", tok)
	assert.Error(t, err)

	expired, err := Issue("s3cret", "u1", "user", -time.Minute)
	require.NoError(t, err)
	_, err = ParseValidate("s3cret", expired)
	assert.Error(t, err)

	noSub, err := Issue("s3cret", "", "user", time.Minute)
	require.NoError(t, err)
	_, err = ParseValidate("s3cret", noSub)
	assert.Error(t, err)

	_, err = ParseValidate("s3cret", "not-a-token")
	assert.Error(t, err)
}

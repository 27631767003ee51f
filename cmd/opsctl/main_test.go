package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(args ...string) error {
	root := rootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	return root.Execute()
}

// Each case fails validation before any backing service is contacted.
func TestArgumentValidation(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"auto-deliver bad switch", []string{"settings", "auto-deliver", "maybe"}},
		{"auto-deliver too many", []string{"settings", "auto-deliver", "on", "off"}},
		{"reconcile missing outcome", []string{"reconcile", "PAY_1_u1_p1"}},
		{"deliver missing id", []string{"deliver"}},
		{"audit missing subject", []string{"audit"}},
		{"notify both targets", []string{"notify", "--global", "--user", "u1", "--title", "t", "--message", "m"}},
		{"notify no target", []string{"notify", "--title", "t", "--message", "m"}},
		{"notify bad kind", []string{"notify", "--user", "u1", "--title", "t", "--message", "m", "--kind", "loud"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, execute(tc.args...))
		})
	}
}

func TestReconcileRejectsUnknownOutcome(t *testing.T) {
	err := execute("reconcile", "PAY_1_u1_p1", "refunded")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidOutcome))
}

func TestCommandTree(t *testing.T) {
	root := rootCmd()
	for _, path := range [][]string{
		{"settings", "auto-deliver"},
		{"notify"},
		{"deliver"},
		{"reconcile"},
		{"audit"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

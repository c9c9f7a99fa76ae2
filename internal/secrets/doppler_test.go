package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupPrefersEnvironment(t *testing.T) {
	t.Setenv("CONSOLE_TEST_SECRET", "from-env")

	called := false
	client := NewDopplerClientWithRunner("console", "dev", func(ctx context.Context, args ...string) ([]byte, error) {
		called = true
		return []byte("from-doppler"), nil
	})

	value, err := client.Lookup("CONSOLE_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)
	assert.False(t, called)
}

func TestLookupFallsBackToDoppler(t *testing.T) {
	var gotArgs []string
	client := NewDopplerClientWithRunner("console", "prd", func(ctx context.Context, args ...string) ([]byte, error) {
		gotArgs = args
		return []byte("  sealed-key\n"), nil
	})

	value, err := client.Lookup("CONSOLE_UNSET_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "sealed-key", value)
	assert.Equal(t, []string{"secrets", "get", "CONSOLE_UNSET_SECRET", "--project", "console", "--config", "prd", "--plain"}, gotArgs)
}

func TestGetSecretWithFallback(t *testing.T) {
	client := NewDopplerClientWithRunner("console", "dev", func(ctx context.Context, args ...string) ([]byte, error) {
		return nil, errors.New("doppler exploded")
	})

	assert.Equal(t, "default", client.GetSecretWithFallback("CONSOLE_UNSET_SECRET", "default"))
}

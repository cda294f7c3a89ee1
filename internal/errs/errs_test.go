package errs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCategory(t *testing.T) {
	require.Equal(t, "", Category(nil))
	require.Equal(t, "not_found", Category(fmt.Errorf("%w: %w", ErrNotFound, fmt.Errorf("open x"))))
	require.Equal(t, "already_exists", Category(fmt.Errorf("%w: bucket", ErrAlreadyExists)))
	require.Equal(t, "provider", Category(ErrProvider))
	require.Equal(t, "transport", Category(fmt.Errorf("wrapped: %w", ErrTransport)))
	require.Equal(t, "exhausted", Category(ErrExhausted))
	require.Equal(t, "unknown", Category(fmt.Errorf("something else")))
}

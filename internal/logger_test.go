package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFormatter_NoColorsOffTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "stderr.log"))
	require.NoError(t, err)
	defer f.Close()

	require.False(t, newFormatter("", f).ForceColors, "redirected stderr gets plain text")
	require.False(t, newFormatter("rfind.log", f).ForceColors)
	require.True(t, newFormatter("", f).FullTimestamp)
}

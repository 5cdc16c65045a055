package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = "v1.0.0"
	v, commit, _ := Info()
	assert.Equal(t, "v1.0.0", v)
	assert.Equal(t, GitCommit, commit)
	assert.Equal(t, "v1.0.0 (commit: unknown, built: unknown)", String())
}

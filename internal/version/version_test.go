package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmyersturnbull/tyranno-sandbox/internal/version"
)

func TestString(t *testing.T) {
	assert.Equal(t, "tyranno dev (commit unknown, built unknown)", version.String())
	assert.Equal(t, "tyranno/dev", version.UserAgent("tyranno"))
}

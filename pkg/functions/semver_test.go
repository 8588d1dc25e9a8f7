package functions_test

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/functions"
)

func semvers(t *testing.T, versions ...string) []*semver.Version {
	t.Helper()
	out := make([]*semver.Version, len(versions))
	for i, s := range versions {
		v, err := functions.ParseSemver(s)
		require.NoError(t, err, s)
		out[i] = v
	}
	return out
}

func semverText(versions []*semver.Version) []string {
	out := make([]string, len(versions))
	for i, v := range versions {
		out[i] = v.String()
	}
	return out
}

func TestParseSemver(t *testing.T) {
	v, err := functions.ParseSemver("v1.2.3-rc.1+build.5")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v.Major())
	assert.Equal(t, "rc.1", v.Prerelease())
	assert.Equal(t, "build.5", v.Metadata())

	for _, bad := range []string{"1.2", "1.2.3.4", "one"} {
		_, err := functions.ParseSemver(bad)
		assert.Error(t, err, bad)
	}
}

func TestSortSemver(t *testing.T) {
	versions := semvers(t, "1.10.0", "1.2.0", "1.2.0-alpha", "0.9.9")
	functions.SortSemver(versions, false)
	assert.Equal(t, []string{"0.9.9", "1.2.0-alpha", "1.2.0", "1.10.0"}, semverText(versions))

	functions.SortSemver(versions, true)
	assert.Equal(t, []string{"1.10.0", "1.2.0", "1.2.0-alpha", "0.9.9"}, semverText(versions))
}

func TestFilterSemver(t *testing.T) {
	versions := semvers(t, "1.0.0", "1.4.2", "2.0.0", "1.5.0-beta")
	kept, err := functions.FilterSemver(versions, "^1.2")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.4.2"}, semverText(kept))

	_, err = functions.FilterSemver(versions, "not a constraint")
	assert.Error(t, err)
}

func TestBestSemver(t *testing.T) {
	versions := semvers(t, "0.1.0", "0.1.4", "0.2.0", "1.0.0", "1.5.0", "2.1.0")
	assert.Equal(t, []string{"0.1.4", "0.2.0", "1.5.0", "2.1.0"}, semverText(functions.BestSemver(versions)))
}

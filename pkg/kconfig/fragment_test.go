package kconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFragments(t *testing.T, contents ...string) FragmentSet {
	t.Helper()

	dir := t.TempDir()
	set := make(FragmentSet, 0, len(contents))
	for i, content := range contents {
		path := filepath.Join(dir, fmt.Sprintf("frag%d.kfrag", i))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		set = append(set, path)
	}
	return set
}

func TestFingerprintDeterministic(t *testing.T) {
	set := writeFragments(t, "BR2_A=y\n", "BR2_B=y\n")

	fp1, ok, err := Fingerprint(set)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, fp1, 4)
	require.Equal(t, strings.ToLower(fp1), fp1)

	fp2, ok, err := Fingerprint(set)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, fp1, fp2)
}

func TestFingerprintDependsOnContentNotPath(t *testing.T) {
	setA := writeFragments(t, "BR2_A=y\n", "BR2_B=y\n")
	setB := writeFragments(t, "BR2_A=y\n", "BR2_B=y\n")

	fpA, _, err := Fingerprint(setA)
	require.NoError(t, err)
	fpB, _, err := Fingerprint(setB)
	require.NoError(t, err)
	require.Equal(t, fpA, fpB)
}

func TestFingerprintOrderSensitive(t *testing.T) {
	set := writeFragments(t, "BR2_A=y\n", "BR2_B=y\n")
	swapped := FragmentSet{set[1], set[0]}

	fp, _, err := Fingerprint(set)
	require.NoError(t, err)
	fpSwapped, _, err := Fingerprint(swapped)
	require.NoError(t, err)
	require.NotEqual(t, fp, fpSwapped)
}

func TestFingerprintAbsent(t *testing.T) {
	for _, set := range []FragmentSet{nil, {}} {
		fp, ok, err := Fingerprint(set)
		require.NoError(t, err)
		require.False(t, ok)
		require.Empty(t, fp)
	}
}

func TestFingerprintMissingFileFails(t *testing.T) {
	set := FragmentSet{filepath.Join(t.TempDir(), "missing.kfrag")}
	_, _, err := Fingerprint(set)
	require.Error(t, err)
}

func TestMergeConcatenates(t *testing.T) {
	base := FragmentSet{"a", "b"}
	next := FragmentSet{"b", "c"}

	require.Equal(t, FragmentSet{"a", "b", "b", "c"}, Merge(base, next))
}

func TestMergeChainsInOrder(t *testing.T) {
	a := FragmentSet{"a1", "a2"}
	b := FragmentSet{"b1"}
	c := FragmentSet{"c1", "c2"}

	require.Equal(t, FragmentSet{"a1", "a2", "b1", "c1", "c2"}, Merge(Merge(a, b), c))
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	base := FragmentSet{"a", "b"}
	next := FragmentSet{"c"}

	merged := Merge(base, next)
	merged[0] = "mutated"

	require.Equal(t, FragmentSet{"a", "b"}, base)
	require.Equal(t, FragmentSet{"c"}, next)
}

// Package kconfig manipulates ordered sets of kernel-style configuration
// fragments and derives build identities from their contents.
package kconfig

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"
)

// FragmentSet is an ordered list of absolute paths to configuration fragment
// files. Order matters: during the external merge step later fragments
// override earlier ones.
type FragmentSet []string

// Merge concatenates two fragment sets, base first. Repeated fragments are
// kept as is; the merge tool applies the later occurrence last.
func Merge(base, next FragmentSet) FragmentSet {
	merged := make(FragmentSet, 0, len(base)+len(next))
	merged = append(merged, base...)
	return append(merged, next...)
}

// Fingerprint derives the identity token of a fragment set: the first two
// bytes of a sha256 digest over the concatenated file contents, in set order,
// encoded as lowercase hex. An empty set has no fingerprint and ok is false,
// which selects the shared default builder identity.
//
// Two bytes give a 16-bit identity space. Distinct option sets may collide
// and then share a build name and output image.
func Fingerprint(set FragmentSet) (fp string, ok bool, err error) {
	if len(set) == 0 {
		return "", false, nil
	}

	h := sha256.New()
	for _, path := range set {
		f, err := os.Open(path)
		if err != nil {
			return "", false, errors.WithStack(err)
		}
		_, err = io.Copy(h, f)
		_ = f.Close()
		if err != nil {
			return "", false, errors.WithStack(err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)[:2]), true, nil
}

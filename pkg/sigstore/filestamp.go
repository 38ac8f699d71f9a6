package sigstore

import (
	"io"
	"os"
	"strconv"

	"github.com/cespare/xxhash"
	"github.com/pkg/errors"
)

// StampFiles returns a stamp over the contents of the given files, in order.
// The stamp is staleness evidence, not an identity, so the fast xxhash is
// enough. A missing file is a hard failure.
func StampFiles(paths []string) (string, error) {
	h := xxhash.New()
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return "", errors.WithStack(err)
		}
		_, err = io.Copy(h, f)
		_ = f.Close()
		if err != nil {
			return "", errors.WithStack(err)
		}
	}
	return strconv.FormatUint(h.Sum64(), 16), nil
}

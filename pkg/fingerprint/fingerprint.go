// Package fingerprint computes content hashes for drift detection.
// Hashes are deterministic across platforms: text content is normalized
// to LF line endings before hashing so the same file checked out with
// CRLF on one side never reads as drift.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/arthur-debert/configbridge/pkg/errors"
	"github.com/arthur-debert/configbridge/pkg/types"
)

// Result is the outcome of fingerprinting one path. A missing file is a
// valid result (Found is false), not an error.
type Result struct {
	Hash  string
	Found bool
}

// Compute fingerprints the content at path, following a symlink one
// level. Returns Found=false when the path (or its link target) does
// not exist.
func Compute(fs types.FS, path string) (Result, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, nil
		}
		if os.IsPermission(err) {
			return Result{}, errors.Wrapf(err, errors.ErrPermission, "cannot read %s", path).WithPath(path)
		}
		return Result{}, errors.Wrapf(err, errors.ErrIO, "cannot read %s", path).WithPath(path)
	}

	return Result{Hash: Sum(data), Found: true}, nil
}

// Sum hashes raw bytes with the same normalization Compute applies.
func Sum(data []byte) string {
	hash := sha256.Sum256(normalize(data))
	return fmt.Sprintf("sha256:%x", hash)
}

// normalize converts CRLF and lone CR to LF for text content. Binary
// content (anything containing a NUL byte) is hashed as-is.
func normalize(data []byte) []byte {
	if bytes.IndexByte(data, 0) >= 0 {
		return data
	}
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))
}

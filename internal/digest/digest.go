// Package digest computes the canonical fingerprint of a document dump.
//
// A dump records the wall-clock instant it was taken in its header line
// ("start_time"). Two dumps of the same logical document therefore differ
// byte-wise even though they describe identical state. The digest blanks that
// single field before hashing so repeated dumps fingerprint identically.
//
// The masking is a textual substitution on the leftmost match only. It relies
// on the dump writer emitting "start_time" directly before "db_info" on the
// first line; it is not a general JSON transform.
package digest

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"os"
	"regexp"
)

// Digest is the base64-encoded SHA-1 of a masked dump.
type Digest string

// String returns the digest text.
func (d Digest) String() string {
	return string(d)
}

var startTimePattern = regexp.MustCompile(`"start_time":".*","db_info"`)

const maskedStartTime = `"start_time":"","db_info"`

// Mask returns data with the value of the first start_time field blanked.
// data is returned unchanged when the pattern does not occur.
func Mask(data []byte) []byte {
	loc := startTimePattern.FindIndex(data)
	if loc == nil {
		return data
	}
	masked := make([]byte, 0, len(data)-(loc[1]-loc[0])+len(maskedStartTime))
	masked = append(masked, data[:loc[0]]...)
	masked = append(masked, maskedStartTime...)
	masked = append(masked, data[loc[1]:]...)
	return masked
}

// Bytes computes the digest of an in-memory dump.
func Bytes(data []byte) Digest {
	sum := sha1.Sum(Mask(data))
	return Digest(base64.StdEncoding.EncodeToString(sum[:]))
}

// File reads the dump at path and computes its digest.
// Safe for concurrent use.
func File(path string) (Digest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}
	return Bytes(data), nil
}

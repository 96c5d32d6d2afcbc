// SPDX-License-Identifier: Apache-2.0

package meta

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
)

// SHA256 returns the hex encoded sha256 digest of content. Cache keys
// (dependency set fingerprints, lock file content) are built from it.
func SHA256(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// FileSHA256 returns the hex encoded sha256 digest of the file at path
func FileSHA256(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return SHA256(data), nil
}

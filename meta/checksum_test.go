// SPDX-License-Identifier: Apache-2.0

package meta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSHA256(t *testing.T) {
	// echo -n "abc" | sha256sum
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", SHA256([]byte("abc")))
	// echo -n "" | sha256sum
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", SHA256(nil))
}

func TestFileSHA256(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Package.resolved")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))

	sum, err := FileSHA256(path)
	require.NoError(t, err)
	assert.Equal(t, SHA256([]byte("abc")), sum)

	_, err = FileSHA256(filepath.Join(dir, "missing"))
	require.Error(t, err)
}

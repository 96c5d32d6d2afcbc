// SPDX-License-Identifier: Apache-2.0

// Command spmkit builds Swift package dependencies for Kotlin Multiplatform.
package main

import (
	"os"

	"github.com/opensbom-generator/spmkit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

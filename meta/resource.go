// SPDX-License-Identifier: Apache-2.0

package meta

// FrameworkResource is one compiled .framework of a build output directory
type FrameworkResource struct {
	Directory  string
	BinaryFile string
	Name       string
}

// BundleResource is one .bundle of a build output directory
type BundleResource struct {
	Directory  string
	BinaryFile string
	Name       string
}

// ModuleConfig describes one compiled module exposed to the consumer project
type ModuleConfig struct {
	IsFramework    bool
	Name           string
	BuildDirectory string
	DefinitionFile string
}

// SPDX-License-Identifier: Apache-2.0

package swift

import "github.com/opensbom-generator/spmkit/meta"

// PackageDependency is one node of `swift package show-dependencies --format json`
type PackageDependency struct {
	Identity     string              `json:"identity"`
	Name         string              `json:"name"`
	URL          string              `json:"url"`
	Version      string              `json:"version"`
	Path         string              `json:"path"`
	Dependencies []PackageDependency `json:"dependencies"`
}

// Node converts the dump into the graph model
func (dep *PackageDependency) Node() meta.DependencyGraphNode {
	node := meta.DependencyGraphNode{
		Identity: dep.Identity,
		Name:     dep.Name,
		URL:      dep.URL,
		Version:  dep.Version,
		Path:     dep.Path,
	}
	if node.Identity == "" {
		node.Identity = identity(dep.URL, dep.Path, dep.Name)
	}
	for i := range dep.Dependencies {
		node.Dependencies = append(node.Dependencies, dep.Dependencies[i].Node())
	}
	return node
}

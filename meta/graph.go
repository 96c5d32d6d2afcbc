// SPDX-License-Identifier: Apache-2.0

package meta

// DependencyGraphNode is one package of the dependency graph dumped by
// the package manager
type DependencyGraphNode struct {
	Identity     string                `json:"identity" toml:"identity"`
	Name         string                `json:"name" toml:"name"`
	URL          string                `json:"url,omitempty" toml:"url,omitempty"`
	Version      string                `json:"version,omitempty" toml:"version,omitempty"`
	Path         string                `json:"path,omitempty" toml:"path,omitempty"`
	Dependencies []DependencyGraphNode `json:"dependencies" toml:"dependencies,omitempty"`
}

// Walk calls fn for n and every descendant, depth first. A node reachable
// through several parents is visited once per path.
func (n *DependencyGraphNode) Walk(fn func(node *DependencyGraphNode, depth int)) {
	var walk func(*DependencyGraphNode, int)
	walk = func(node *DependencyGraphNode, depth int) {
		fn(node, depth)
		for i := range node.Dependencies {
			walk(&node.Dependencies[i], depth+1)
		}
	}
	walk(n, 0)
}

// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/opensbom-generator/spmkit/meta"
)

const (
	// PublicFolder is the directory name packages keep their public headers in
	PublicFolder = "Public"

	// DefaultMaxDepth bounds the traversal of the dependency graph
	DefaultMaxDepth = 64
)

// GetPublicFolders returns every directory named Public below the checkouts
// of the packages reachable from root. The packages examined are the
// grandchildren of each visited node, starting at root. The result is
// sorted and free of duplicates.
func GetPublicFolders(root *meta.DependencyGraphNode) []string {
	return getPublicFolders(root, DefaultMaxDepth)
}

func getPublicFolders(root *meta.DependencyGraphNode, maxDepth int) []string {
	if root == nil {
		return nil
	}
	s := &search{
		maxDepth: maxDepth,
		visited:  map[string]struct{}{},
		found:    map[string]struct{}{},
	}
	s.node(root, 0)

	folders := make([]string, 0, len(s.found))
	for f := range s.found {
		folders = append(folders, f)
	}
	sort.Strings(folders)
	return folders
}

type search struct {
	maxDepth int
	visited  map[string]struct{}
	found    map[string]struct{}
}

func (s *search) node(n *meta.DependencyGraphNode, depth int) {
	if depth >= s.maxDepth {
		logrus.Warnf("dependency graph deeper than %d levels below %s, not searching further", s.maxDepth, n.Name)
		return
	}
	for i := range n.Dependencies {
		child := &n.Dependencies[i]
		for j := range child.Dependencies {
			grandchild := &child.Dependencies[j]
			key := grandchild.Identity + "\x00" + grandchild.Path
			if _, ok := s.visited[key]; ok {
				continue
			}
			s.visited[key] = struct{}{}

			if grandchild.Path != "" {
				for _, f := range findPublicFolders(grandchild.Path) {
					s.found[f] = struct{}{}
				}
			}
			s.node(grandchild, depth+1)
		}
	}
}

// findPublicFolders walks dir for directories named Public. A failing walk
// is logged and yields nothing.
func findPublicFolders(dir string) []string {
	var folders []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == PublicFolder {
			folders = append(folders, filepath.Clean(path))
		}
		return nil
	})
	if err != nil {
		logrus.Warnf("unable to search %s for public folders: %v", dir, err)
		return nil
	}
	return folders
}

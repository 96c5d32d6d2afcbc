// SPDX-License-Identifier: Apache-2.0

package swift

import (
	"path"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

var (
	xcodeVersionPattern = regexp.MustCompile(`Xcode (\d+(?:\.\d+)*)`)
	swiftVersionPattern = regexp.MustCompile(`Swift version (\d+(?:\.\d+)*)`)
)

// identity derives the package identity the package manager uses for a
// location: the last path component, without .git, lowercased
func identity(url, localPath, fallback string) string {
	location := url
	if location == "" {
		location = localPath
	}
	if location == "" {
		return strings.ToLower(fallback)
	}
	base := path.Base(strings.TrimRight(strings.ReplaceAll(location, "\\", "/"), "/"))
	return strings.ToLower(strings.TrimSuffix(base, ".git"))
}

// swiftString renders s as a Swift string literal
func swiftString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func swiftStrings(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = swiftString(v)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// extractVersion returns the first version captured by pattern in output
func extractVersion(pattern *regexp.Regexp, output string) string {
	m := pattern.FindStringSubmatch(output)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// canonical turns a dotted version into a semver string
func canonical(version string) string {
	// semver requires a "v" prefix
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	return semver.Canonical(version)
}

// SupportsToolsVersion reports whether a toolchain of swiftVersion can read
// a manifest declaring toolsVersion. Unparsable versions are accepted.
func SupportsToolsVersion(swiftVersion, toolsVersion string) bool {
	have, want := canonical(swiftVersion), canonical(toolsVersion)
	if have == "" || want == "" {
		return true
	}
	return semver.Compare(have, want) >= 0
}

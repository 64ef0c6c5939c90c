package html

import (
	"path"
	"strings"
)

// RelativeURL computes the href from the page at base to the page at
// target, both output-root-relative, appending the optional fragment.
// The common leading directories are dropped, one "../" is emitted per
// remaining directory of base, and the differing target suffix follows.
// A same-page target collapses to the bare fragment.
func RelativeURL(base, target, fragment string) string {
	if base == target {
		if fragment != "" {
			return "#" + fragment
		}
		return path.Base(target)
	}

	baseParts := strings.Split(base, "/")
	targetParts := strings.Split(target, "/")

	common := 0
	for common < len(baseParts)-1 && common < len(targetParts)-1 &&
		baseParts[common] == targetParts[common] {
		common++
	}

	var sb strings.Builder
	for range baseParts[common : len(baseParts)-1] {
		sb.WriteString("../")
	}
	sb.WriteString(strings.Join(targetParts[common:], "/"))
	if fragment != "" {
		sb.WriteByte('#')
		sb.WriteString(fragment)
	}
	return sb.String()
}

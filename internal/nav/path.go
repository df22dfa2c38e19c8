// Package nav walks a route of map nodes: it picks the next node by
// matching screen templates and hands it to the macro player.
package nav

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrBadNodeName is returned for node names no route can reach
var ErrBadNodeName = errors.New("bad node name")

// Start is the navigation cursor before any node has been played.
const Start = ""

// Separator splits the levels of a node name
const Separator = "-"

// maxChildSuffix bounds the "-segment" suffix of a direct child, in
// characters
const maxChildSuffix = 4

// Path is a node name split into its levels
type Path []string

// ParsePath splits a node name on Separator
func ParsePath(name string) Path {
	if name == "" {
		return nil
	}
	return strings.Split(name, Separator)
}

func (p Path) String() string {
	return strings.Join(p, Separator)
}

// Depth is the number of levels
func (p Path) Depth() int {
	return len(p)
}

// IsParentOf reports whether child sits exactly one level below p with
// a short final segment.
func (p Path) IsParentOf(child Path) bool {
	if len(p) == 0 || len(child) != len(p)+1 {
		return false
	}
	for i := range p {
		if p[i] != child[i] {
			return false
		}
	}
	last := child[len(child)-1]
	return utf8.RuneCountInString(Separator+last) <= maxChildSuffix
}

// IsDirectChild reports whether name is a direct child of parent:
// parent + "-" + segment, where the segment holds no further separator
// and "-"+segment is at most four characters.
func IsDirectChild(parent, name string) bool {
	if parent == "" {
		return false
	}
	return ParsePath(parent).IsParentOf(ParsePath(name))
}

// IsStartCandidate reports whether name may open a route. Names ending in
// a letter are intermediate sub-steps.
func IsStartCandidate(name string) bool {
	if name == "" {
		return false
	}
	c := name[len(name)-1]
	return !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z')
}

// IsCandidate applies the start rule when prev is Start, the direct child
// rule otherwise.
func IsCandidate(prev, name string) bool {
	if prev == Start {
		return IsStartCandidate(name)
	}
	return IsDirectChild(prev, name)
}

// Candidates filters names, keeping their order
func Candidates(prev string, names []string) []string {
	var out []string
	for _, name := range names {
		if IsCandidate(prev, name) {
			out = append(out, name)
		}
	}
	return out
}

// ValidateNode checks that name can be matched as a route node: no empty
// levels, no path characters, and every level after the first short
// enough to pass the direct child rule.
func ValidateNode(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrBadNodeName)
	}
	if strings.ContainsAny(name, `/\.`) {
		return fmt.Errorf("%w: %q contains a path character", ErrBadNodeName, name)
	}
	p := ParsePath(name)
	for i, seg := range p {
		if seg == "" {
			return fmt.Errorf("%w: %q has an empty level", ErrBadNodeName, name)
		}
		if i > 0 && !p[:i].IsParentOf(p[:i+1]) {
			return fmt.Errorf("%w: level %q of %q is longer than %d characters", ErrBadNodeName, seg, name, maxChildSuffix-len(Separator))
		}
	}
	return nil
}

package label

import (
	"fmt"
	"path"
	"strings"
)

// Sensitivity is the classification assigned to a filesystem object.
// Values are ordered: a higher value means more sensitive.
type Sensitivity int

const (
	Unclassified Sensitivity = iota
	Confidential
	Secret
	TopSecret
)

// levels in ascending order. Index equals the Sensitivity value.
var levels = []string{"UNCLASSIFIED", "CONFIDENTIAL", "SECRET", "TOP_SECRET"}

func (s Sensitivity) String() string {
	if s < Unclassified || s > TopSecret {
		return "UNCLASSIFIED"
	}
	return levels[s]
}

// Parse converts a level name into a Sensitivity. Matching is
// case-insensitive.
func Parse(name string) (Sensitivity, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, l := range levels {
		if l == upper {
			return Sensitivity(i), nil
		}
	}
	return Unclassified, fmt.Errorf("unknown sensitivity level: %s", name)
}

// Levels returns the level names in ascending order of sensitivity.
func Levels() []string {
	out := make([]string, len(levels))
	copy(out, levels)
	return out
}

// Infer derives the sensitivity of a filesystem object from its path.
// The path may be a backing path or a path relative to the mount root;
// only its segments matter.
//
// A segment contributes a label when it equals the level token
// (e.g. "secret") or starts with the token followed by an underscore
// (e.g. "secret_plans"). Segments are compared case-insensitively.
// Levels are scanned from TOP_SECRET downward and the first level with
// a matching segment wins, so a file under both a top_secret and a
// secret ancestor resolves to TOP_SECRET. A path with no labeled
// segment is UNCLASSIFIED.
func Infer(p string) Sensitivity {
	cleaned := strings.ToLower(path.Clean(strings.ReplaceAll(p, "\\", "/")))
	segments := strings.Split(cleaned, "/")

	for lvl := TopSecret; lvl > Unclassified; lvl-- {
		token := strings.ToLower(levels[lvl])
		for _, seg := range segments {
			if seg == token || strings.HasPrefix(seg, token+"_") {
				return lvl
			}
		}
	}

	return Unclassified
}

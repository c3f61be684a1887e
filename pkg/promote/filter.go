package promote

import (
	"github.com/ryanuber/go-glob"
)

// Filter decides which template names a run may act on, using glob
// patterns ("*" wildcard):
//   - a name matching any Exclude pattern is skipped;
//   - otherwise, with no Include patterns every name is kept;
//   - otherwise only names matching an Include pattern are kept.
type Filter struct {
	Include []string
	Exclude []string
}

// IsIncluded reports whether name passes the filter.
func (f Filter) IsIncluded(name string) bool {
	for _, ex := range f.Exclude {
		if glob.Glob(ex, name) {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, in := range f.Include {
		if glob.Glob(in, name) {
			return true
		}
	}
	return false
}

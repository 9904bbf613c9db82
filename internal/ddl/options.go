package ddl

import (
	"fmt"
	"sort"

	"github.com/spf13/cast"
)

// Option keys accepted in the options map.
const (
	OptComments  = "script.include.comments"
	OptFullNames = "script.format.fullNames"
	OptNested    = "script.include.nested"
	OptDrop      = "script.include.drop"
)

// Options controls what a Renderer emits.
type Options struct {
	Comments  bool // header lines and object comments
	FullNames bool // schema-qualified names
	Nested    bool // indexes, foreign keys and child objects
	Drop      bool // leading DROP statement
}

// DefaultOptions returns the options used for keys absent from the map.
func DefaultOptions() Options {
	return Options{Comments: true, FullNames: true, Nested: true}
}

// ParseOptions reads known keys from m and ignores the rest. A nil value
// keeps the default. Values are coerced with cast, so "true", 1 and true
// are equivalent.
func ParseOptions(m map[string]any) (Options, error) {
	opts := DefaultOptions()
	targets := map[string]*bool{
		OptComments:  &opts.Comments,
		OptFullNames: &opts.FullNames,
		OptNested:    &opts.Nested,
		OptDrop:      &opts.Drop,
	}

	// sorted so the first reported error is stable
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		dst, ok := targets[k]
		if !ok || m[k] == nil {
			continue
		}
		b, err := cast.ToBoolE(m[k])
		if err != nil {
			return Options{}, fmt.Errorf("option %s: %w", k, err)
		}
		*dst = b
	}
	return opts, nil
}

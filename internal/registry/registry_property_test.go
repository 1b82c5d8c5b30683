//go:build property

package registry

import (
	"strings"
	"testing"
	"unicode"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestRegistryProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("lookup ignores case", prop.ForAll(
		func(name string, mask []bool) bool {
			r := New[string]("module").Register(name, name).Freeze()

			var b strings.Builder
			for i, c := range name {
				if i < len(mask) && mask[i] {
					c = unicode.ToUpper(c)
				}
				b.WriteRune(c)
			}
			v, ok := r.Get(b.String())
			return ok && v == name
		},
		gen.Identifier(),
		gen.SliceOf(gen.Bool()),
	))

	properties.Property("distinct keys never collide", prop.ForAll(
		func(names []string) bool {
			seen := map[string]bool{}
			r := New[string]("module")
			for _, n := range names {
				if seen[Key(n)] {
					continue
				}
				seen[Key(n)] = true
				r.Register(n, n)
			}
			for _, n := range names {
				v, ok := r.Get(n)
				if !ok || Key(v) != Key(n) {
					return false
				}
			}
			return r.Count() == len(seen)
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}

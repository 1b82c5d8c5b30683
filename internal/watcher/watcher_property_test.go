//go:build property

package watcher

import (
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestDebouncerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(9876)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("flush emits each path once, sorted", prop.ForAll(
		func(names []string) bool {
			if len(names) == 0 {
				return true
			}
			d := newDebouncer(time.Hour)
			for _, name := range names {
				d.addEvent(ChangeEvent{Path: name + ".yml"})
			}
			d.flush()
			d.timer.Stop()

			batch := <-d.output
			unique := map[string]bool{}
			for _, name := range names {
				unique[name+".yml"] = true
			}
			if len(batch) != len(unique) {
				return false
			}
			paths := make([]string, len(batch))
			for i, e := range batch {
				if !unique[e.Path] {
					return false
				}
				paths[i] = e.Path
			}
			return sort.StringsAreSorted(paths)
		},
		gen.SliceOf(gen.OneConstOf("a", "b", "c", "items/1", "pages/2")),
	))

	properties.TestingRun(t)
}

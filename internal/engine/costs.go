package engine

import (
	"sort"
	"strings"
)

// Costs maps resource names to amounts. It is used for build/purchase
// prices and for per-second production and consumption rates.
type Costs map[string]float64

// Scale returns a new Costs with every amount multiplied by factor.
func (c Costs) Scale(factor float64) Costs {
	scaled := make(Costs, len(c))
	for name, amount := range c {
		scaled[name] = amount * factor
	}
	return scaled
}

// Clone returns a copy of the map.
func (c Costs) Clone() Costs {
	cloned := make(Costs, len(c))
	for name, amount := range c {
		cloned[name] = amount
	}
	return cloned
}

// mergeInto accumulates src*factor into dst by resource name.
func mergeInto(dst, src Costs, factor float64) {
	for name, amount := range src {
		dst[name] += amount * factor
	}
}

// SortedNames returns the cost map's keys in lexical order.
func (c Costs) SortedNames() []string {
	return sortedKeys(c)
}

// sortedNames is the iteration order for resource maps, so tick
// application is deterministic.
func sortedNames(c Costs) []string {
	return sortedKeys(c)
}

// sortedKeys returns map keys in lexical order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// titleCase turns an internal name like "solar_array" into a display
// name like "Solar Array".
func titleCase(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

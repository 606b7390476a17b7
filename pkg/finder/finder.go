// Package finder ranks registry machines by distance from a location.
package finder

import (
	"sort"

	"bottlecangowhere/pkg/geo"
	"bottlecangowhere/pkg/registry"
)

// Source supplies a read-only copy of the machine table.
type Source interface {
	Snapshot() []registry.Machine
}

// Result pairs a machine with its distance in meters from the query point.
type Result struct {
	Machine  registry.Machine
	Distance float64
}

// Finder answers nearest-machine queries against a Source.
type Finder struct {
	source Source
}

// New returns a Finder reading from source.
func New(source Source) *Finder {
	return &Finder{source: source}
}

// FindNearest returns up to k machines closest to (lat, lon), nearest first.
// Machines at equal distance keep their registry order.
func (f *Finder) FindNearest(lat, lon float64, k int) []Result {
	return Rank(f.source.Snapshot(), geo.Point{Lat: lat, Lon: lon}, k, "")
}

// FindAlternatives ranks like FindNearest after dropping the machine named
// excludeName.
func (f *Finder) FindAlternatives(excludeName string, lat, lon float64, k int) []Result {
	return Rank(f.source.Snapshot(), geo.Point{Lat: lat, Lon: lon}, k, excludeName)
}

// Rank orders machines by distance from origin and keeps the first k.
// A non-empty exclude removes the machine with that name before ranking.
func Rank(machines []registry.Machine, origin geo.Point, k int, exclude string) []Result {
	if k <= 0 {
		return []Result{}
	}
	results := make([]Result, 0, len(machines))
	for _, m := range machines {
		if exclude != "" && m.Name == exclude {
			continue
		}
		results = append(results, Result{
			Machine:  m,
			Distance: geo.Distance(origin, m.Point()),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Names returns the machine names of results in order.
func Names(results []Result) []string {
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Machine.Name
	}
	return names
}

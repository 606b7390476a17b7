package finder

import (
	"testing"

	"bottlecangowhere/pkg/geo"
	"bottlecangowhere/pkg/registry"

	"github.com/stretchr/testify/require"
)

type staticSource []registry.Machine

func (s staticSource) Snapshot() []registry.Machine {
	out := make([]registry.Machine, len(s))
	copy(out, s)
	return out
}

func fiveMachines() staticSource {
	return staticSource{
		{Name: "A", Latitude: 1.3000, Longitude: 103.8000, Status: registry.StatusWorking},
		{Name: "B", Latitude: 1.3050, Longitude: 103.8050, Status: registry.StatusWorking},
		{Name: "C", Latitude: 1.3500, Longitude: 103.8500, Status: registry.StatusFull},
		{Name: "D", Latitude: 1.3520, Longitude: 103.8520, Status: registry.StatusWorking},
		{Name: "E", Latitude: 1.4000, Longitude: 103.9000, Status: registry.StatusOutOfOrder},
	}
}

func TestFindNearestOrdersByDistance(t *testing.T) {
	f := New(fiveMachines())
	got := f.FindNearest(1.3499, 103.8499, 3)
	require.Equal(t, []string{"C", "D", "B"}, Names(got))
	for i := 1; i < len(got); i++ {
		require.LessOrEqual(t, got[i-1].Distance, got[i].Distance)
	}
}

func TestFindNearestReturnsMinKN(t *testing.T) {
	src := fiveMachines()
	f := New(src)
	origin := geo.Point{Lat: 1.33, Lon: 103.83}
	for k := 0; k <= 8; k++ {
		got := f.FindNearest(origin.Lat, origin.Lon, k)
		want := k
		if want > len(src) {
			want = len(src)
		}
		require.Len(t, got, want, "k=%d", k)
		for i := 1; i < len(got); i++ {
			require.LessOrEqual(t, got[i-1].Distance, got[i].Distance)
		}
	}
	require.Empty(t, f.FindNearest(origin.Lat, origin.Lon, -1))
}

func TestFindNearestEmptyRegistry(t *testing.T) {
	require.Empty(t, New(staticSource{}).FindNearest(1, 1, 3))
}

func TestRankTiesKeepRegistryOrder(t *testing.T) {
	same := staticSource{
		{Name: "first", Latitude: 1, Longitude: 1},
		{Name: "second", Latitude: 1, Longitude: 1},
		{Name: "third", Latitude: 1, Longitude: 1},
	}
	got := New(same).FindNearest(0, 0, 3)
	require.Equal(t, []string{"first", "second", "third"}, Names(got))
}

func TestFindAlternativesExcludesName(t *testing.T) {
	f := New(fiveMachines())
	// C is the closest machine to this point, and must still be left out.
	got := f.FindAlternatives("C", 1.3500, 103.8500, 2)
	require.Equal(t, []string{"D", "B"}, Names(got))
	for _, r := range got {
		require.NotEqual(t, "C", r.Machine.Name)
	}

	all := f.FindAlternatives("C", 1.35, 103.85, 10)
	require.Len(t, all, 4)
}

func TestFindNearestDoesNotMutateSource(t *testing.T) {
	src := fiveMachines()
	before := src.Snapshot()
	_ = New(src).FindNearest(1.4, 103.9, 5)
	require.Equal(t, before, []registry.Machine(src))
}

func TestFindNearestWithRegistry(t *testing.T) {
	reg, err := registry.New(fiveMachines(), nil)
	require.NoError(t, err)
	got := New(reg).FindNearest(1.3001, 103.8001, 1)
	require.Len(t, got, 1)
	require.Equal(t, "A", got[0].Machine.Name)
	require.Less(t, got[0].Distance, 20.0)
}

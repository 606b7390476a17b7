package app

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"bottlecangowhere/pkg/finder"
	"bottlecangowhere/pkg/geo"
	"bottlecangowhere/pkg/registry"
)

// PrintNearest loads the machines file and writes the k nearest machines to
// (lat, lon) as a table.
func PrintNearest(w io.Writer, machinesCSV string, lat, lon float64, k int) error {
	if !(geo.Point{Lat: lat, Lon: lon}).Valid() {
		return fmt.Errorf("coordinates out of range: %v,%v", lat, lon)
	}
	reg, err := registry.Load(registry.NewCSVStore(machinesCSV))
	if err != nil {
		return err
	}
	results := finder.New(reg).FindNearest(lat, lon, k)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMETERS\tSTATUS\tADDRESS")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.Machine.Name, int64(math.Round(r.Distance)), r.Machine.Status, r.Machine.Address)
	}
	return tw.Flush()
}

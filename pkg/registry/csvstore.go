package registry

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Columns is the header written to and expected from the CSV file.
var Columns = []string{"Name", "Latitude", "Longitude", "Address", "Description", "Hours", "Status", "Nearby"}

// CSVStore keeps the machine table in a single CSV file that is read once
// and overwritten wholesale.
type CSVStore struct {
	Path string
}

// NewCSVStore returns a store for the file at path.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{Path: path}
}

// Load parses every row of the file.
func (s *CSVStore) Load() ([]Machine, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open machines file '%s': %w", s.Path, err)
	}
	defer f.Close()

	machines, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read machines file '%s': %w", s.Path, err)
	}
	return machines, nil
}

// Save replaces the file with machines. The new content is written to a
// temporary file in the same directory and renamed over the old one.
func (s *CSVStore) Save(machines []Machine) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create machines dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp machines file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := WriteCSV(tmp, machines); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write machines: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp machines file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return fmt.Errorf("replace machines file '%s': %w", s.Path, err)
	}
	return nil
}

// ReadCSV decodes machines from r. Columns are located by header name, so
// extra or reordered columns are tolerated; Nearby may be missing.
func ReadCSV(r io.Reader) ([]Machine, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty file, header expected")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range Columns[:7] {
		if _, ok := cols[strings.ToLower(name)]; !ok {
			return nil, fmt.Errorf("missing column '%s'", name)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := cols[strings.ToLower(name)]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var machines []Machine
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		lat, err := strconv.ParseFloat(field(rec, "Latitude"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad latitude: %w", line, err)
		}
		lon, err := strconv.ParseFloat(field(rec, "Longitude"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad longitude: %w", line, err)
		}
		machines = append(machines, Machine{
			Name:        field(rec, "Name"),
			Latitude:    lat,
			Longitude:   lon,
			Address:     field(rec, "Address"),
			Description: field(rec, "Description"),
			Hours:       field(rec, "Hours"),
			Status:      Status(field(rec, "Status")),
			Nearby:      field(rec, "Nearby"),
		})
	}
	return machines, nil
}

// WriteCSV encodes machines with the standard header.
func WriteCSV(w io.Writer, machines []Machine) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Columns); err != nil {
		return err
	}
	for _, m := range machines {
		rec := []string{
			m.Name,
			strconv.FormatFloat(m.Latitude, 'f', -1, 64),
			strconv.FormatFloat(m.Longitude, 'f', -1, 64),
			m.Address,
			m.Description,
			m.Hours,
			string(m.Status),
			m.Nearby,
		}
		if err := writer.Write(rec); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

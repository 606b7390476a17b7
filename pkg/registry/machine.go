// Package registry keeps the in-memory table of reverse vending machines
// and its durable CSV copy.
package registry

import (
	"fmt"
	"strings"

	"bottlecangowhere/pkg/geo"
)

// Status is the last reported condition of a machine.
type Status string

const (
	StatusWorking     Status = "Working"
	StatusFull        Status = "Full"
	StatusOutOfOrder  Status = "Out of Order"
	StatusOtherIssues Status = "Other Issues"
)

// Statuses lists the accepted statuses in the order they are offered to users.
var Statuses = []Status{StatusWorking, StatusFull, StatusOutOfOrder, StatusOtherIssues}

// ParseStatus matches s case-insensitively against the known statuses.
func ParseStatus(s string) (Status, error) {
	trimmed := strings.TrimSpace(s)
	for _, st := range Statuses {
		if strings.EqualFold(trimmed, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// IsWorking reports whether the status means the machine accepts containers.
func (s Status) IsWorking() bool {
	return strings.EqualFold(string(s), string(StatusWorking))
}

// Machine is one row of the registry.
type Machine struct {
	Name        string
	Latitude    float64
	Longitude   float64
	Address     string
	Description string
	Hours       string
	Status      Status
	Nearby      string
}

// Point returns the machine location.
func (m Machine) Point() geo.Point {
	return geo.Point{Lat: m.Latitude, Lon: m.Longitude}
}

// HasNearby reports whether the nearby-bins annotation carries a value.
func (m Machine) HasNearby() bool {
	switch strings.ToLower(strings.TrimSpace(m.Nearby)) {
	case "", "none", "nan", "null":
		return false
	}
	return true
}

func (m Machine) validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("machine has no name")
	}
	if !m.Point().Valid() {
		return fmt.Errorf("machine '%s' has coordinates out of range (%f, %f)", m.Name, m.Latitude, m.Longitude)
	}
	if _, err := ParseStatus(string(m.Status)); err != nil {
		return fmt.Errorf("machine '%s': %w", m.Name, err)
	}
	return nil
}

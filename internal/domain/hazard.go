package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// RiskThreshold is the severity at or above which a hazard zone is a RISK zone.
// Every consumer classifies through Classify so the boundary cannot drift.
const RiskThreshold = 10

// HazardClass labels a hazard for alerting and rendering
type HazardClass string

const (
	ClassRisk  HazardClass = "RISK"
	ClassAlert HazardClass = "ALERT"
	ClassFixed HazardClass = "FIXED"
)

// HazardZone is an accident cluster with its accident count as severity.
type HazardZone struct {
	Location Coordinate `json:"location" yaml:"location"`
	Severity int        `json:"severity" yaml:"severity"`
}

// FixedHazard is a point of interest without severity, e.g. a speed camera.
type FixedHazard struct {
	Location Coordinate `json:"location" yaml:"location"`
}

// Classify returns RISK when severity >= RiskThreshold, ALERT otherwise.
func Classify(z HazardZone) HazardClass {
	if z.Severity >= RiskThreshold {
		return ClassRisk
	}
	return ClassAlert
}

// HazardKind distinguishes the two catalog collections
type HazardKind string

const (
	KindZone  HazardKind = "zone"
	KindFixed HazardKind = "fixed"
)

// Hazard is a flattened catalog entry used by the alerter.
type Hazard struct {
	Kind     HazardKind  `json:"kind"`
	Index    int         `json:"index"`
	Location Coordinate  `json:"location"`
	Severity int         `json:"severity"`
	Class    HazardClass `json:"class"`
}

// ID identifies the hazard by kind and location, so it survives reloads that
// reorder or extend the catalog. Index is only the position in one snapshot.
func (h Hazard) ID() string {
	return fmt.Sprintf("%s:%.6f,%.6f", h.Kind, h.Location.Lat, h.Location.Lng)
}

// Catalog is an immutable snapshot of the known hazards. A reload builds a new Catalog.
type Catalog struct {
	zones    []HazardZone
	fixed    []FixedHazard
	loadedAt time.Time
}

// NewCatalog copies the inputs so later mutation by the caller cannot leak in.
func NewCatalog(zones []HazardZone, fixed []FixedHazard, loadedAt time.Time) *Catalog {
	c := &Catalog{
		zones:    make([]HazardZone, len(zones)),
		fixed:    make([]FixedHazard, len(fixed)),
		loadedAt: loadedAt,
	}
	copy(c.zones, zones)
	copy(c.fixed, fixed)
	return c
}

// EmptyCatalog means "no known hazards".
func EmptyCatalog() *Catalog {
	return NewCatalog(nil, nil, time.Time{})
}

func (c *Catalog) Zones() []HazardZone {
	out := make([]HazardZone, len(c.zones))
	copy(out, c.zones)
	return out
}

func (c *Catalog) FixedHazards() []FixedHazard {
	out := make([]FixedHazard, len(c.fixed))
	copy(out, c.fixed)
	return out
}

func (c *Catalog) LoadedAt() time.Time { return c.loadedAt }

func (c *Catalog) ZoneCount() int  { return len(c.zones) }
func (c *Catalog) FixedCount() int { return len(c.fixed) }

func (c *Catalog) IsEmpty() bool {
	return len(c.zones) == 0 && len(c.fixed) == 0
}

// Hazards flattens zones then fixed hazards, preserving catalog order.
func (c *Catalog) Hazards() []Hazard {
	out := make([]Hazard, 0, len(c.zones)+len(c.fixed))
	for i, z := range c.zones {
		out = append(out, Hazard{
			Kind:     KindZone,
			Index:    i,
			Location: z.Location,
			Severity: z.Severity,
			Class:    Classify(z),
		})
	}
	for i, f := range c.fixed {
		out = append(out, Hazard{
			Kind:     KindFixed,
			Index:    i,
			Location: f.Location,
			Class:    ClassFixed,
		})
	}
	return out
}

// RiskAccidents sums the severity of every zone.
func (c *Catalog) RiskAccidents() int {
	total := 0
	for _, z := range c.zones {
		total += z.Severity
	}
	return total
}

func (c *Catalog) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Zones    []HazardZone  `json:"zones"`
		Fixed    []FixedHazard `json:"fixed"`
		LoadedAt time.Time     `json:"loaded_at"`
	}{c.zones, c.fixed, c.loadedAt})
}

// HazardStats carries the summary figures served next to the hazard data.
type HazardStats struct {
	FatalityPercent *float64 `json:"fatality_percent"`
	Deaths          *int     `json:"deaths"`
	Accidents       *int     `json:"accidents"`
	RiskAccidents   int      `json:"risk_accidents"`
}

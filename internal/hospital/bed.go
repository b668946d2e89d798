package hospital

import (
	"context"
	"errors"
	"time"
)

// Ward groups beds by care level.
type Ward string

const (
	WardICU         Ward = "ICU"
	WardGeneral     Ward = "General"
	WardEmergency   Ward = "Emergency"
	WardPrivate     Ward = "Private"
	WardSemiPrivate Ward = "Semi-Private"
	WardPediatric   Ward = "Pediatric"
)

// Valid reports whether w is a known ward.
func (w Ward) Valid() bool {
	switch w {
	case WardICU, WardGeneral, WardEmergency, WardPrivate, WardSemiPrivate, WardPediatric:
		return true
	}
	return false
}

// BedType is the equipment a bed carries.
type BedType string

const (
	BedTypeICU        BedType = "ICU"
	BedTypeVentilator BedType = "Ventilator"
	BedTypeOxygen     BedType = "Oxygen"
	BedTypeRegular    BedType = "Regular"
)

var (
	ErrNotFound    = errors.New("hospital: bed not found")
	ErrInvalidWard = errors.New("hospital: invalid ward")
)

// Bed is a single inpatient bed.
type Bed struct {
	ID            int64      `json:"id"`
	Number        string     `json:"bedNumber"`
	Ward          Ward       `json:"ward"`
	Type          BedType    `json:"bedType"`
	Available     bool       `json:"available"`
	PatientName   string     `json:"patientName,omitempty"`
	PatientID     string     `json:"patientId,omitempty"`
	AdmissionDate *time.Time `json:"admissionDate,omitempty"`
	Floor         int        `json:"floor"`
	PricePerDay   float64    `json:"pricePerDay"`
}

// Filter narrows List. A nil Available or empty Ward matches everything.
type Filter struct {
	Available *bool
	Ward      Ward
}

func (f Filter) matches(b Bed) bool {
	if f.Available != nil && b.Available != *f.Available {
		return false
	}
	if f.Ward != "" && b.Ward != f.Ward {
		return false
	}
	return true
}

// Stats counts available beds.
type Stats struct {
	ICU       int `json:"icu"`
	General   int `json:"general"`
	Emergency int `json:"emergency"`
	Total     int `json:"total"`
}

// Store persists beds.
type Store interface {
	List(ctx context.Context, filter Filter) ([]Bed, error)
	Get(ctx context.Context, id int64) (*Bed, error)
	Update(ctx context.Context, bed Bed) error
	// AvailableCount counts available beds, in one ward when ward is set.
	AvailableCount(ctx context.Context, ward Ward) (int, error)
	Stats(ctx context.Context) (Stats, error)
}

// Occupancy summarizes how full the hospital is.
type Occupancy struct {
	Total     int     `json:"total"`
	Available int     `json:"available"`
	Occupied  int     `json:"occupied"`
	Rate      float64 `json:"occupancyRate"`
}

// OccupancyOf computes occupancy from the store. Rate is a percentage
// rounded to two decimals.
func OccupancyOf(ctx context.Context, store Store) (Occupancy, error) {
	all, err := store.List(ctx, Filter{})
	if err != nil {
		return Occupancy{}, err
	}
	available, err := store.AvailableCount(ctx, "")
	if err != nil {
		return Occupancy{}, err
	}
	occ := Occupancy{Total: len(all), Available: available, Occupied: len(all) - available}
	if occ.Total > 0 {
		occ.Rate = float64(occ.Occupied*10000/occ.Total) / 100
	}
	return occ, nil
}

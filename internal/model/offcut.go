package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OffcutState is the lifecycle state of a reusable offcut.
type OffcutState string

const (
	OffcutAvailable OffcutState = "available"
	OffcutReserved  OffcutState = "reserved"
	OffcutUsed      OffcutState = "used"
	OffcutReleased  OffcutState = "released" // Back in stock after a reservation was dropped
	OffcutDiscarded OffcutState = "discarded"
)

// Allocatable reports whether an offcut in this state may be reserved.
func (s OffcutState) Allocatable() bool {
	return s == OffcutAvailable || s == OffcutReleased
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s OffcutState) CanTransition(next OffcutState) bool {
	switch s {
	case OffcutAvailable, OffcutReleased:
		return next == OffcutReserved || next == OffcutDiscarded
	case OffcutReserved:
		return next == OffcutUsed || next == OffcutReleased || next == OffcutDiscarded
	}
	return false
}

// ReusableOffcut is a leftover rectangle large enough to be cut again later.
type ReusableOffcut struct {
	ID               string      `json:"id"`
	ParentSheetID    string      `json:"parentSheetId"`
	ParentSheetIndex int         `json:"parentSheetIndex"`
	MaterialID       string      `json:"materialId,omitempty"`
	MaterialName     string      `json:"materialName,omitempty"`
	Thickness        float64     `json:"thickness"`
	HasGrain         bool        `json:"hasGrain"`
	GrainDirection   GrainAxis   `json:"grainDirection,omitempty"`
	Position         Position    `json:"position"` // Where it sat on the parent's usable area
	Dimensions       Dimensions  `json:"dimensions"`
	Price            float64     `json:"price"` // Share of the parent price by area
	State            OffcutState `json:"state"`
	ReservedBy       string      `json:"reservedBy,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
}

// NewOffcutID returns a short random offcut ID.
func NewOffcutID() string {
	return "oc-" + uuid.New().String()[:8]
}

// Area returns the area of the offcut in square mm.
func (o ReusableOffcut) Area() float64 {
	return o.Dimensions.Area()
}

// ToSourceSheet converts the offcut into a single, trim-free sheet for reuse.
func (o ReusableOffcut) ToSourceSheet() SourceSheet {
	return SourceSheet{
		ID:                o.ID,
		MaterialID:        o.MaterialID,
		MaterialName:      o.MaterialName,
		Dimensions:        o.Dimensions,
		Thickness:         o.Thickness,
		HasGrain:          o.HasGrain,
		GrainDirection:    o.GrainDirection,
		PricePerSheet:     o.Price,
		AvailableQuantity: 1,
		IsOffcut:          true,
		OffcutID:          o.ID,
	}
}

func (o ReusableOffcut) String() string {
	return fmt.Sprintf("%s %s [%s]", o.ID, o.Dimensions, o.State)
}

// ProportionalPrice returns the share of the sheet cost covered by area.
func ProportionalPrice(sheet SourceSheet, area float64) float64 {
	total := sheet.Dimensions.Area()
	cost := sheet.Cost()
	if total <= 0 || cost <= 0 {
		return 0
	}
	return area / total * cost
}

// TotalOffcutArea returns the total area of all offcuts in square mm.
func TotalOffcutArea(offcuts []ReusableOffcut) float64 {
	var total float64
	for _, o := range offcuts {
		total += o.Area()
	}
	return total
}

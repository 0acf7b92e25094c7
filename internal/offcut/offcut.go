// Package offcut turns plan leftovers into reusable stock and tracks their lifecycle.
package offcut

import (
	"math"
	"sort"
	"time"

	"k8s.io/klog/v2"

	"github.com/piwi3910/cutplan/internal/model"
)

const eps = 0.001

// Extract promotes every free space of the plan that clears the minimum offcut
// size to a ReusableOffcut. Free spaces of grain-free sheets are normalised so
// that Length >= Width; grained leftovers keep the parent's axes.
func Extract(plan model.CuttingPlan, params model.OptimizationParams) []model.ReusableOffcut {
	return ExtractAt(plan, params, time.Now().UTC())
}

// ExtractAt is Extract with a fixed creation time.
func ExtractAt(plan model.CuttingPlan, params model.OptimizationParams, now time.Time) []model.ReusableOffcut {
	var out []model.ReusableOffcut
	for _, us := range plan.Sheets {
		for _, fs := range us.FreeSpaces {
			d := fs.Dimensions
			if d.LongSide() < params.MinOffcutLength-eps || d.ShortSide() < params.MinOffcutWidth-eps {
				continue
			}
			if !us.Sheet.HasGrain && d.Width > d.Length {
				d = d.Rotated()
			}
			out = append(out, model.ReusableOffcut{
				ID:               model.NewOffcutID(),
				ParentSheetID:    us.Sheet.ID,
				ParentSheetIndex: us.Index,
				MaterialID:       us.Sheet.MaterialID,
				MaterialName:     us.Sheet.MaterialName,
				Thickness:        us.Sheet.Thickness,
				HasGrain:         us.Sheet.HasGrain,
				GrainDirection:   us.Sheet.GrainDirection,
				Position:         fs.Position,
				Dimensions:       d,
				Price:            model.ProportionalPrice(us.Sheet, d.Area()),
				State:            model.OffcutAvailable,
				CreatedAt:        now,
			})
		}
	}
	klog.V(2).InfoS("offcuts extracted", "sheets", len(plan.Sheets), "offcuts", len(out))
	return out
}

// Criteria selects offcuts. Zero fields match anything; empty States means allocatable only.
type Criteria struct {
	MaterialID    string
	Thickness     float64
	MinLength     float64
	MinWidth      float64
	AllowRotation bool // Let a grain-free offcut satisfy the size turned by 90 degrees
	States        []model.OffcutState
}

// Matches reports whether the offcut satisfies every set field of c.
func (c Criteria) Matches(o model.ReusableOffcut) bool {
	if c.MaterialID != "" && o.MaterialID != c.MaterialID {
		return false
	}
	if c.Thickness > 0 && math.Abs(o.Thickness-c.Thickness) > eps {
		return false
	}
	if !c.stateOK(o.State) {
		return false
	}
	fits := func(d model.Dimensions) bool {
		return d.Length >= c.MinLength-eps && d.Width >= c.MinWidth-eps
	}
	return fits(o.Dimensions) || (c.AllowRotation && !o.HasGrain && fits(o.Dimensions.Rotated()))
}

func (c Criteria) stateOK(s model.OffcutState) bool {
	if len(c.States) == 0 {
		return s.Allocatable()
	}
	for _, want := range c.States {
		if s == want {
			return true
		}
	}
	return false
}

// Filter returns the offcuts matching c, in input order.
func Filter(offcuts []model.ReusableOffcut, c Criteria) []model.ReusableOffcut {
	var out []model.ReusableOffcut
	for _, o := range offcuts {
		if c.Matches(o) {
			out = append(out, o)
		}
	}
	return out
}

// SortForConsumption orders offcuts smallest area first, then by ID, so small
// leftovers are used up before larger ones.
func SortForConsumption(offcuts []model.ReusableOffcut) {
	sort.SliceStable(offcuts, func(i, j int) bool {
		ai, aj := offcuts[i].Area(), offcuts[j].Area()
		if math.Abs(ai-aj) > eps {
			return ai < aj
		}
		return offcuts[i].ID < offcuts[j].ID
	})
}

// ToSourceSheets converts offcuts into single-quantity offcut sheets.
func ToSourceSheets(offcuts []model.ReusableOffcut) []model.SourceSheet {
	out := make([]model.SourceSheet, 0, len(offcuts))
	for _, o := range offcuts {
		out = append(out, o.ToSourceSheet())
	}
	return out
}

// Consumed returns the IDs of the offcut sheets the plan actually used.
func Consumed(plan model.CuttingPlan) []string {
	var ids []string
	seen := map[string]bool{}
	for _, us := range plan.Sheets {
		if us.Sheet.IsOffcut && us.Sheet.OffcutID != "" && !seen[us.Sheet.OffcutID] {
			seen[us.Sheet.OffcutID] = true
			ids = append(ids, us.Sheet.OffcutID)
		}
	}
	return ids
}

package model

import "github.com/google/uuid"

// SheetPreset is a reusable source-sheet definition.
type SheetPreset struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	MaterialID     string     `json:"materialId"`
	Dimensions     Dimensions `json:"dimensions"`
	Thickness      float64    `json:"thickness"`
	Trim           Trim       `json:"trim"`
	HasGrain       bool       `json:"hasGrain"`
	GrainDirection GrainAxis  `json:"grainDirection,omitempty"`
	PricePerSheet  float64    `json:"pricePerSheet,omitempty"`
}

// NewSheetPreset creates a new SheetPreset with a generated ID.
func NewSheetPreset(name, material string, length, width, thickness float64) SheetPreset {
	return SheetPreset{
		ID:         uuid.New().String()[:8],
		Name:       name,
		MaterialID: material,
		Dimensions: Dimensions{Length: length, Width: width},
		Thickness:  thickness,
	}
}

// ToSourceSheet converts the preset into a SourceSheet with the given quantity (0 = unlimited).
func (sp SheetPreset) ToSourceSheet(qty int) SourceSheet {
	return SourceSheet{
		ID:                sp.ID,
		MaterialID:        sp.MaterialID,
		MaterialName:      sp.Name,
		Dimensions:        sp.Dimensions,
		Thickness:         sp.Thickness,
		Trim:              sp.Trim,
		HasGrain:          sp.HasGrain,
		GrainDirection:    sp.GrainDirection,
		PricePerSheet:     sp.PricePerSheet,
		AvailableQuantity: qty,
	}
}

// Catalogue holds the saved sheet presets.
type Catalogue struct {
	Sheets []SheetPreset `json:"sheets"`
}

// DefaultCatalogue returns a catalogue populated with common board sizes.
func DefaultCatalogue() Catalogue {
	oak := NewSheetPreset("Oak veneer 2800x2070", "oak-veneer", 2800, 2070, 19)
	oak.HasGrain = true
	oak.GrainDirection = GrainAlongLength
	oak.Trim = Trim{Top: 10, Left: 10, Bottom: 10, Right: 10}
	return Catalogue{
		Sheets: []SheetPreset{
			NewSheetPreset("Plywood 2440x1220", "plywood", 2440, 1220, 18),
			NewSheetPreset("MDF 2440x1220", "mdf", 2440, 1220, 18),
			NewSheetPreset("MDF 1220x610", "mdf", 1220, 610, 12),
			NewSheetPreset("Melamine 2800x2070", "melamine", 2800, 2070, 18),
			oak,
		},
	}
}

// FindByID returns a pointer to the preset with the given ID, or nil.
func (c *Catalogue) FindByID(id string) *SheetPreset {
	for i := range c.Sheets {
		if c.Sheets[i].ID == id {
			return &c.Sheets[i]
		}
	}
	return nil
}

// FindByName returns a pointer to the first preset with the given name, or nil.
func (c *Catalogue) FindByName(name string) *SheetPreset {
	for i := range c.Sheets {
		if c.Sheets[i].Name == name {
			return &c.Sheets[i]
		}
	}
	return nil
}

// Merge appends the presets of other whose IDs are not present yet.
func (c *Catalogue) Merge(other Catalogue) int {
	ids := make(map[string]bool, len(c.Sheets))
	for _, s := range c.Sheets {
		ids[s.ID] = true
	}
	added := 0
	for _, s := range other.Sheets {
		if !ids[s.ID] {
			c.Sheets = append(c.Sheets, s)
			ids[s.ID] = true
			added++
		}
	}
	return added
}

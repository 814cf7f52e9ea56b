package risk

import (
	"math"
	"sort"

	"inspectra/internal/models"
)

// Catalog maps defect types to their weight and category. It is read-only after construction.
type Catalog struct {
	entries map[string]models.DefectCatalogEntry
}

// NewCatalog validates the entries and freezes them
func NewCatalog(entries []models.DefectCatalogEntry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, &ConfigurationError{Table: "defect catalog", Reason: "no entries"}
	}

	c := &Catalog{entries: make(map[string]models.DefectCatalogEntry, len(entries))}
	for _, entry := range entries {
		if entry.DefectType == "" {
			return nil, &ConfigurationError{Table: "defect catalog", Reason: "entry without defect type"}
		}
		if _, exists := c.entries[entry.DefectType]; exists {
			return nil, &ConfigurationError{Table: "defect catalog", Key: entry.DefectType, Reason: "duplicate defect type"}
		}
		if !(entry.BaseWeight > 0) || math.IsInf(entry.BaseWeight, 0) {
			return nil, &ConfigurationError{Table: "defect catalog", Key: entry.DefectType, Reason: "base weight must be positive"}
		}
		if !entry.Category.Valid() {
			return nil, &ConfigurationError{Table: "defect catalog", Key: entry.DefectType, Reason: "unknown category " + string(entry.Category)}
		}
		c.entries[entry.DefectType] = entry
	}
	return c, nil
}

// Lookup returns the entry for defectType or an *UnknownDefectError
func (c *Catalog) Lookup(defectType string) (models.DefectCatalogEntry, error) {
	entry, ok := c.entries[defectType]
	if !ok {
		return models.DefectCatalogEntry{}, &UnknownDefectError{DefectType: defectType}
	}
	return entry, nil
}

// Entries returns a copy of all entries sorted by defect type
func (c *Catalog) Entries() []models.DefectCatalogEntry {
	out := make([]models.DefectCatalogEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DefectType < out[j].DefectType })
	return out
}

// Len returns the number of registered defect types
func (c *Catalog) Len() int {
	return len(c.entries)
}

package geometry

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"inspectra/internal/models"
)

// Postal districts are identified by the first four characters of the postal code
const districtPrefixLength = 4

type district struct {
	code       string
	city       string
	points     []orb.Point
	scoreTotal float64
	worstTier  models.RiskTier
}

// BuildRiskMap places every property with coordinates on a map, coloured by its
// latest snapshot, and outlines postal districts that hold at least three
// assessed properties.
func BuildRiskMap(properties []models.Property, latest []models.PropertySnapshot) *geojson.FeatureCollection {
	snapshots := make(map[string]models.PropertySnapshot, len(latest))
	for _, snap := range latest {
		snapshots[snap.PropertyID] = snap
	}

	fc := geojson.NewFeatureCollection()
	var all orb.MultiPoint
	districts := make(map[string]*district)

	for _, property := range properties {
		if !property.HasCoordinates() {
			continue
		}
		point := orb.Point{*property.Longitude, *property.Latitude}
		all = append(all, point)

		feature := geojson.NewFeature(point)
		feature.ID = property.ID
		feature.Properties = geojson.Properties{
			"property_id":   property.ID,
			"property_type": property.PropertyType,
			"street":        property.Street,
			"city":          property.City,
			"postal_code":   property.PostalCode,
			"assessed":      false,
		}

		snap, ok := snapshots[property.ID]
		if ok {
			feature.Properties["assessed"] = true
			feature.Properties["snapshot_id"] = snap.ID
			feature.Properties["inspected_at"] = snap.Timestamp
			feature.Properties["property_score"] = snap.PropertyScore
			feature.Properties["risk_tier"] = snap.RiskTier
			feature.Properties["decision_signal"] = snap.DecisionSignal
			feature.Properties["under_inspected"] = snap.UnderInspected

			if code := districtCode(property.PostalCode); code != "" {
				d, exists := districts[code]
				if !exists {
					d = &district{code: code, city: property.City}
					districts[code] = d
				}
				d.points = append(d.points, point)
				d.scoreTotal += snap.PropertyScore
				if snap.RiskTier.Rank() > d.worstTier.Rank() {
					d.worstTier = snap.RiskTier
				}
			}
		}

		fc.Append(feature)
	}

	codes := make([]string, 0, len(districts))
	for code := range districts {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		d := districts[code]
		hull := convexHull(d.points)
		if hull == nil {
			continue
		}

		feature := geojson.NewFeature(orb.Polygon{hull})
		feature.ID = d.code
		feature.Properties = geojson.Properties{
			"district":       d.code,
			"city":           d.city,
			"property_count": len(d.points),
			"mean_score":     d.scoreTotal / float64(len(d.points)),
			"worst_tier":     d.worstTier,
			"geometry_type":  "hull",
			"hull_type":      "convex",
		}
		fc.Append(feature)
	}

	if len(all) > 0 {
		fc.BBox = geojson.NewBBox(all.Bound())
	}
	return fc
}

func districtCode(postalCode string) string {
	if len(postalCode) < districtPrefixLength {
		return ""
	}
	return postalCode[:districtPrefixLength]
}

// convexHull returns the closed hull ring of points, or nil when the points do
// not span an area.
func convexHull(points []orb.Point) orb.Ring {
	if len(points) < 3 {
		return nil
	}

	sorted := make([]orb.Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i][0] != sorted[j][0] {
			return sorted[i][0] < sorted[j][0]
		}
		return sorted[i][1] < sorted[j][1]
	})

	// Monotone chain: build the lower then the upper half
	hull := make([]orb.Point, 0, 2*len(sorted))
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// The last point repeats the first, which closes the ring
	if len(hull) < 4 {
		return nil
	}
	return orb.Ring(hull)
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

package config

import "inspectra/internal/models"

// DefectTypes is the built-in defect catalog
var DefectTypes = []models.DefectCatalogEntry{
	{DefectType: "foundation_crack", BaseWeight: 1.0, Category: models.CategoryStructural, Description: "Crack in foundation or load-bearing base"},
	{DefectType: "structural_crack", BaseWeight: 0.8, Category: models.CategoryStructural, Description: "Crack in a load-bearing wall or beam"},
	{DefectType: "ceiling_sag", BaseWeight: 0.7, Category: models.CategoryStructural, Description: "Visible deflection of a ceiling or floor"},
	{DefectType: "roof_leak", BaseWeight: 0.6, Category: models.CategoryStructural, Description: "Water entering through the roof"},
	{DefectType: "termite_damage", BaseWeight: 0.6, Category: models.CategoryStructural, Description: "Insect damage to structural timber"},
	{DefectType: "dampness", BaseWeight: 0.5, Category: models.CategoryStructural, Description: "Rising or penetrating damp"},
	{DefectType: "exposed_wiring", BaseWeight: 1.0, Category: models.CategoryElectrical, Description: "Live conductors without insulation or cover"},
	{DefectType: "overloaded_circuit", BaseWeight: 0.8, Category: models.CategoryElectrical, Description: "Signs of overheating on a circuit"},
	{DefectType: "missing_earthing", BaseWeight: 0.7, Category: models.CategoryElectrical, Description: "No protective earth on outlets or appliances"},
	{DefectType: "faulty_outlet", BaseWeight: 0.6, Category: models.CategoryElectrical, Description: "Damaged or loose socket"},
	{DefectType: "mold_stain", BaseWeight: 0.5, Category: models.CategoryFinishing, Description: "Mould growth on surfaces"},
	{DefectType: "tile_damage", BaseWeight: 0.4, Category: models.CategoryFinishing, Description: "Cracked or loose tiles"},
	{DefectType: "plaster_crack", BaseWeight: 0.35, Category: models.CategoryFinishing, Description: "Hairline crack in plaster"},
	{DefectType: "paint_peeling", BaseWeight: 0.3, Category: models.CategoryFinishing, Description: "Peeling or blistering paint"},
	{DefectType: "broken_fixture", BaseWeight: 0.3, Category: models.CategoryFinishing, Description: "Damaged door, window or fitting"},
}

// RoomImportance weighs rooms in the property average; rooms carrying structure count more
var RoomImportance = map[string]float64{
	"basement":    2.0,
	"roof":        2.0,
	"attic":       1.5,
	"kitchen":     1.5,
	"bathroom":    1.5,
	"living_room": 1.0,
	"bedroom":     1.0,
	"hallway":     0.75,
	"garage":      0.75,
	"balcony":     0.5,
	"closet":      0.25,
}

// PropertyLayouts lists the rooms an inspection is expected to cover per property type
var PropertyLayouts = map[string]map[string]int{
	"studio": {
		"kitchen":     1,
		"bathroom":    1,
		"living_room": 1,
	},
	"apartment": {
		"kitchen":     1,
		"bathroom":    1,
		"bedroom":     2,
		"living_room": 1,
	},
	"house": {
		"kitchen":     1,
		"bathroom":    2,
		"bedroom":     3,
		"living_room": 1,
		"basement":    1,
		"roof":        1,
	},
}

// persistence/seed.go
package persistence

import (
	"gorm.io/gorm"

	"github.com/Feral-Mailbox/PokeWars/models"
)

// seedCatalog installs the official maps and a starter unit roster on an empty
// database, mirroring the seed scripts the deployment runs. Existing rows are
// left alone.
func seedCatalog(db *gorm.DB) error {
	var n int64
	if err := db.Model(&models.Map{}).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		for i := range officialMaps {
			if err := db.Create(&officialMaps[i]).Error; err != nil {
				return err
			}
		}
	}

	if err := db.Model(&models.Unit{}).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		for i := range starterUnits {
			if err := db.Create(&starterUnits[i]).Error; err != nil {
				return err
			}
		}
		for i := range starterMoves {
			if err := db.Create(&starterMoves[i]).Error; err != nil {
				return err
			}
		}
		for i := range starterAbilities {
			if err := db.Create(&starterAbilities[i]).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func flatTiles(w, h int) [][]int {
	tiles := make([][]int, h)
	for y := range tiles {
		tiles[y] = make([]int, w)
	}
	return tiles
}

var officialMaps = []models.Map{
	{
		Name:                "Verdant Crossing",
		IsOfficial:          true,
		Width:               12,
		Height:              12,
		TilesetNames:        []string{"grass", "river"},
		TileData:            flatTiles(12, 12),
		AllowedModes:        []string{string(models.ModeConquest), string(models.ModeWar)},
		AllowedPlayerCounts: []int{2, 4},
	},
	{
		Name:                "Cinder Pass",
		IsOfficial:          true,
		Width:               16,
		Height:              10,
		TilesetNames:        []string{"rock", "lava"},
		TileData:            flatTiles(16, 10),
		AllowedModes:        []string{string(models.ModeConquest), string(models.ModeWar), string(models.ModeCaptureTheFlag)},
		AllowedPlayerCounts: []int{2},
	},
	{
		Name:                "Twin Banners",
		IsOfficial:          true,
		Width:               20,
		Height:              14,
		TilesetNames:        []string{"grass", "fort"},
		TileData:            flatTiles(20, 14),
		AllowedModes:        []string{string(models.ModeCaptureTheFlag)},
		AllowedPlayerCounts: []int{2, 4, 6},
	},
}

var starterUnits = []models.Unit{
	{SpeciesID: 25, Name: "Pikachu", Species: "Mouse", AssetFolder: "pikachu",
		Types: []string{"Electric"}, BaseStats: map[string]int{"hp": 35, "atk": 55, "def": 40, "spd": 90},
		Cost: 300},
	{SpeciesID: 4, Name: "Charmander", Species: "Lizard", AssetFolder: "charmander",
		Types: []string{"Fire"}, BaseStats: map[string]int{"hp": 39, "atk": 52, "def": 43, "spd": 65},
		Cost: 250},
	{SpeciesID: 7, Name: "Squirtle", Species: "Tiny Turtle", AssetFolder: "squirtle",
		Types: []string{"Water"}, BaseStats: map[string]int{"hp": 44, "atk": 48, "def": 65, "spd": 43},
		Cost: 250},
	{SpeciesID: 95, Name: "Onix", Species: "Rock Snake", AssetFolder: "onix",
		Types: []string{"Rock", "Ground"}, BaseStats: map[string]int{"hp": 35, "atk": 45, "def": 160, "spd": 70},
		Cost: 400},
	{SpeciesID: 150, Name: "Mewtwo", Species: "Genetic", AssetFolder: "mewtwo",
		Types: []string{"Psychic"}, BaseStats: map[string]int{"hp": 106, "atk": 110, "def": 90, "spd": 130},
		Cost: 1200, IsLegendary: true},
}

var starterMoves = []models.Move{
	{Name: "Thunderbolt", Type: "Electric", Category: "Special", Power: 90, Accuracy: 100, PP: 15},
	{Name: "Flamethrower", Type: "Fire", Category: "Special", Power: 90, Accuracy: 100, PP: 15},
	{Name: "Surf", Type: "Water", Category: "Special", Power: 90, Accuracy: 100, PP: 15},
	{Name: "Rock Slide", Type: "Rock", Category: "Physical", Power: 75, Accuracy: 90, PP: 10},
	{Name: "Psychic", Type: "Psychic", Category: "Special", Power: 90, Accuracy: 100, PP: 10},
}

var starterAbilities = []models.Ability{
	{Name: "Static", Description: "May paralyze attackers on contact"},
	{Name: "Blaze", Description: "Boosts Fire moves when HP is low"},
	{Name: "Torrent", Description: "Boosts Water moves when HP is low"},
	{Name: "Sturdy", Description: "Survives a one-hit KO with 1 HP"},
	{Name: "Pressure", Description: "Raises the PP cost of moves targeting this unit"},
}

// catalog/catalog.go
package catalog

import (
	"errors"

	"github.com/Feral-Mailbox/PokeWars/models"
)

// ErrNotFound is returned when a catalog entry does not exist.
var ErrNotFound = errors.New("catalog entry not found")

// Catalog 只读目录接口：地图、兵种、招式、特性
type Catalog interface {
	MapByName(name string) (*models.Map, error)
	UnitByID(id uint) (*models.Unit, error)
	OfficialMaps() ([]models.Map, error)
	Units() ([]models.Unit, error)
	Moves() ([]models.Move, error)
	Abilities() ([]models.Ability, error)
}

// DetailOf converts a map row into its view.
func DetailOf(m *models.Map) *models.MapDetail {
	if m == nil {
		return nil
	}
	return &models.MapDetail{
		ID:                  m.ID,
		Name:                m.Name,
		IsOfficial:          m.IsOfficial,
		Width:               m.Width,
		Height:              m.Height,
		TilesetNames:        m.TilesetNames,
		TileData:            m.TileData,
		AllowedModes:        m.AllowedModes,
		AllowedPlayerCounts: m.AllowedPlayerCounts,
	}
}

// SummaryOf converts a unit row into its view.
func SummaryOf(u *models.Unit) models.UnitSummary {
	return models.UnitSummary{
		ID:          u.ID,
		Name:        u.Name,
		Species:     u.Species,
		Types:       u.Types,
		Cost:        u.Cost,
		IsLegendary: u.IsLegendary,
	}
}

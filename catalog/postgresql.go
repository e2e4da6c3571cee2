// catalog/postgresql.go
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/Feral-Mailbox/PokeWars/models"
)

// PostgreSQL serves the catalog with raw SQL over the tables the session store
// migrates. Catalog reads are hot and never participate in session
// transactions, so they get their own pooled read connection.
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建目录库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgreSQL{db: db}, nil
}

func (c *PostgreSQL) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func scanMap(row interface{ Scan(...any) error }) (*models.Map, error) {
	var m models.Map
	var tilesets, tiles, modes, counts []byte
	err := row.Scan(&m.ID, &m.Name, &m.CreatorID, &m.IsOfficial, &m.Width, &m.Height,
		&tilesets, &tiles, &modes, &counts)
	if err != nil {
		return nil, err
	}
	for _, pair := range []struct {
		raw []byte
		dst any
	}{
		{tilesets, &m.TilesetNames},
		{tiles, &m.TileData},
		{modes, &m.AllowedModes},
		{counts, &m.AllowedPlayerCounts},
	} {
		if len(pair.raw) > 0 {
			if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
				return nil, err
			}
		}
	}
	return &m, nil
}

const mapColumns = `id, name, COALESCE(creator_id, 0), is_official, width, height,
	tileset_names, tile_data, allowed_modes, allowed_player_counts`

func (c *PostgreSQL) MapByName(name string) (*models.Map, error) {
	ctx, cancel := c.queryCtx()
	defer cancel()

	query := `SELECT ` + mapColumns + ` FROM maps WHERE name = $1 AND deleted_at IS NULL`
	m, err := scanMap(c.db.QueryRowContext(ctx, query, name))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return m, err
}

func (c *PostgreSQL) OfficialMaps() ([]models.Map, error) {
	ctx, cancel := c.queryCtx()
	defer cancel()

	query := `SELECT ` + mapColumns + ` FROM maps WHERE is_official = true AND deleted_at IS NULL ORDER BY id`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var maps []models.Map
	for rows.Next() {
		m, err := scanMap(rows)
		if err != nil {
			return nil, err
		}
		maps = append(maps, *m)
	}
	return maps, rows.Err()
}

const unitColumns = `id, species_id, name, species, COALESCE(asset_folder, ''),
	types, base_stats, move_ids, ability_ids, cost, is_legendary`

func scanUnit(row interface{ Scan(...any) error }) (*models.Unit, error) {
	var u models.Unit
	var types, stats, moveIDs, abilityIDs []byte
	err := row.Scan(&u.ID, &u.SpeciesID, &u.Name, &u.Species, &u.AssetFolder,
		&types, &stats, &moveIDs, &abilityIDs, &u.Cost, &u.IsLegendary)
	if err != nil {
		return nil, err
	}
	for _, pair := range []struct {
		raw []byte
		dst any
	}{
		{types, &u.Types},
		{stats, &u.BaseStats},
		{moveIDs, &u.MoveIDs},
		{abilityIDs, &u.AbilityIDs},
	} {
		if len(pair.raw) > 0 {
			if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
				return nil, err
			}
		}
	}
	return &u, nil
}

func (c *PostgreSQL) UnitByID(id uint) (*models.Unit, error) {
	ctx, cancel := c.queryCtx()
	defer cancel()

	query := `SELECT ` + unitColumns + ` FROM units WHERE id = $1 AND deleted_at IS NULL`
	u, err := scanUnit(c.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return u, err
}

func (c *PostgreSQL) Units() ([]models.Unit, error) {
	ctx, cancel := c.queryCtx()
	defer cancel()

	query := `SELECT ` + unitColumns + ` FROM units WHERE deleted_at IS NULL ORDER BY id`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []models.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, *u)
	}
	return units, rows.Err()
}

func (c *PostgreSQL) Moves() ([]models.Move, error) {
	ctx, cancel := c.queryCtx()
	defer cancel()

	query := `SELECT id, name, COALESCE(type, ''), COALESCE(category, ''), power, accuracy, pp
		FROM moves WHERE deleted_at IS NULL ORDER BY id`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var moves []models.Move
	for rows.Next() {
		var m models.Move
		if err := rows.Scan(&m.ID, &m.Name, &m.Type, &m.Category, &m.Power, &m.Accuracy, &m.PP); err != nil {
			return nil, err
		}
		moves = append(moves, m)
	}
	return moves, rows.Err()
}

func (c *PostgreSQL) Abilities() ([]models.Ability, error) {
	ctx, cancel := c.queryCtx()
	defer cancel()

	query := `SELECT id, name, COALESCE(description, '') FROM abilities WHERE deleted_at IS NULL ORDER BY id`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var abilities []models.Ability
	for rows.Next() {
		var a models.Ability
		if err := rows.Scan(&a.ID, &a.Name, &a.Description); err != nil {
			return nil, err
		}
		abilities = append(abilities, a)
	}
	return abilities, rows.Err()
}

// Close 关闭目录库连接
func (c *PostgreSQL) Close() error {
	return c.db.Close()
}

// catalog/memory.go
package catalog

import (
	"sync"

	"github.com/Feral-Mailbox/PokeWars/models"
)

// Memory is an in-process catalog for tests and local runs.
type Memory struct {
	mu        sync.RWMutex
	maps      map[string]models.Map
	units     map[uint]models.Unit
	moves     []models.Move
	abilities []models.Ability
}

func NewMemory() *Memory {
	return &Memory{
		maps:  make(map[string]models.Map),
		units: make(map[uint]models.Unit),
	}
}

func (c *Memory) AddMap(m models.Map) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maps[m.Name] = m
}

func (c *Memory) AddUnit(u models.Unit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.units[u.ID] = u
}

func (c *Memory) AddMove(m models.Move) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.moves = append(c.moves, m)
}

func (c *Memory) AddAbility(a models.Ability) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abilities = append(c.abilities, a)
}

func (c *Memory) MapByName(name string) (*models.Map, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.maps[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (c *Memory) UnitByID(id uint) (*models.Unit, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.units[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (c *Memory) OfficialMaps() ([]models.Map, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []models.Map
	for _, m := range c.maps {
		if m.IsOfficial {
			out = append(out, m)
		}
	}
	return out, nil
}

func (c *Memory) Units() ([]models.Unit, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Unit, 0, len(c.units))
	for _, u := range c.units {
		out = append(out, u)
	}
	return out, nil
}

func (c *Memory) Moves() ([]models.Move, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Move(nil), c.moves...), nil
}

func (c *Memory) Abilities() ([]models.Ability, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Ability(nil), c.abilities...), nil
}

// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// User 账号模型
type User struct {
	gorm.Model
	Username       string `gorm:"uniqueIndex;not null" json:"username"`
	Email          string `gorm:"uniqueIndex;not null" json:"email"`
	HashedPassword string `gorm:"not null" json:"-"`
	Avatar         string `gorm:"default:default.png" json:"avatar"`
	Elo            int    `gorm:"default:1000" json:"elo"`
	Currency       int64  `gorm:"default:0" json:"currency"`
}

// Map 地图模型（目录数据，只读）
type Map struct {
	gorm.Model
	Name                string   `gorm:"uniqueIndex;not null"`
	CreatorID           uint     `gorm:"index"`
	IsOfficial          bool     `gorm:"default:false"`
	Width               int      `gorm:"not null"`
	Height              int      `gorm:"not null"`
	TilesetNames        []string `gorm:"type:jsonb;serializer:json"`
	TileData            [][]int  `gorm:"type:jsonb;serializer:json"`
	AllowedModes        []string `gorm:"type:jsonb;serializer:json"`
	AllowedPlayerCounts []int    `gorm:"type:jsonb;serializer:json"`
}

// Unit 兵种模型（目录数据，只读）
type Unit struct {
	gorm.Model
	SpeciesID   int            `gorm:"index"`
	Name        string         `gorm:"uniqueIndex;not null"`
	Species     string         `gorm:"not null"`
	AssetFolder string
	Types       []string       `gorm:"type:jsonb;serializer:json"`
	BaseStats   map[string]int `gorm:"type:jsonb;serializer:json"`
	MoveIDs     []uint         `gorm:"type:jsonb;serializer:json"`
	AbilityIDs  []uint         `gorm:"type:jsonb;serializer:json"`
	Cost        int64          `gorm:"default:0"`
	IsLegendary bool           `gorm:"default:false"`
}

// Move 招式模型（目录数据，只读）
type Move struct {
	gorm.Model
	Name     string `gorm:"uniqueIndex;not null" json:"name"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Power    int    `json:"power"`
	Accuracy int    `json:"accuracy"`
	PP       int    `json:"pp"`
}

// Ability 特性模型（目录数据，只读）
type Ability struct {
	gorm.Model
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`
}

// Game 对局静态配置，创建后除 Link 外不再变更
type Game struct {
	gorm.Model
	GameName     string   `gorm:"not null"`
	MapID        uint     `gorm:"index"`
	MapName      string   `gorm:"not null"`
	Gamemode     GameMode `gorm:"not null"`
	MaxPlayers   int      `gorm:"default:2"`
	IsPrivate    bool     `gorm:"default:true"`
	StartingCash int64    `gorm:"default:0"`
	CashPerTurn  int64    `gorm:"default:0"`
	MaxTurns     int      `gorm:"default:0"`
	UnitLimit    int      `gorm:"default:0"`
	TurnDuration int      `gorm:"default:0"` // 回合时长(秒)
	Link         string   `gorm:"uniqueIndex"`
	HostID       uint     `gorm:"index;not null"`
}

// GameState 对局生命周期状态，与 Game 一一对应
type GameState struct {
	gorm.Model
	GameID      uint             `gorm:"uniqueIndex;not null;constraint:OnDelete:CASCADE"`
	CurrentTurn int              `gorm:"default:0"`
	Status      GameStatus       `gorm:"not null;default:open"`
	Players     []uint           `gorm:"type:jsonb;serializer:json"`
	WinnerID    *uint
	ReplayLog   []map[string]any `gorm:"type:jsonb;serializer:json"`
}

// GamePlayer 对局内单个玩家的经济与编制
type GamePlayer struct {
	gorm.Model
	GameID        uint   `gorm:"index:idx_game_player,unique;not null;constraint:OnDelete:CASCADE"`
	PlayerID      uint   `gorm:"index:idx_game_player,unique;not null"`
	CashRemaining int64  `gorm:"default:0"`
	GameUnits     []uint `gorm:"type:jsonb;serializer:json"`
	IsReady       bool   `gorm:"default:false"`
}

// GameUnit 对局内已放置的单位
type GameUnit struct {
	gorm.Model
	GameID        uint           `gorm:"index;not null;constraint:OnDelete:CASCADE"`
	UnitID        uint           `gorm:"not null"`
	UserID        uint           `gorm:"index;not null"`
	X             int
	Y             int
	CurrentHP     int
	StatBoosts    map[string]int `gorm:"type:jsonb;serializer:json"`
	StatusEffects []string       `gorm:"type:jsonb;serializer:json"`
	IsFainted     bool           `gorm:"default:false"`
}

package model

type Table struct {
	TableID   uint64 `gorm:"column:table_id;primaryKey;autoIncrement"`
	CasinoID  string `gorm:"column:casino_id;type:text;not null;index"`
	Label     string `gorm:"column:label;type:text;not null"`
	GameType  string `gorm:"column:game_type;type:text;not null"`
	Status    string `gorm:"column:status;type:text;not null"`
	SeatCount int    `gorm:"column:seat_count;not null"`
	MinBet    int64  `gorm:"column:min_bet;not null;default:0"`
	MaxBet    int64  `gorm:"column:max_bet;not null;default:0"`
	CreatedAt string `gorm:"column:created_at;type:text;not null"`
	UpdatedAt string `gorm:"column:updated_at;type:text;not null"`
}

func (Table) TableName() string {
	return "tables"
}

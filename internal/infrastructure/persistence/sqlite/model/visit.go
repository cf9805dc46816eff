package model

// Visit rows are unique per (player, casino, gaming day). The constraint
// makes the one-visit-per-day rule hold under concurrent starts: the insert
// itself decides, not a prior read.
type Visit struct {
	VisitID   uint64  `gorm:"column:visit_id;primaryKey;autoIncrement"`
	PlayerID  string  `gorm:"column:player_id;type:text;not null;uniqueIndex:uniq_visits_player_day,priority:1"`
	CasinoID  string  `gorm:"column:casino_id;type:text;not null;uniqueIndex:uniq_visits_player_day,priority:2"`
	GamingDay string  `gorm:"column:gaming_day;type:text;not null;uniqueIndex:uniq_visits_player_day,priority:3"`
	StartedAt string  `gorm:"column:started_at;type:text;not null"`
	EndedAt   *string `gorm:"column:ended_at;type:text"`
	Resumed   bool    `gorm:"column:resumed;not null;default:0"`
}

func (Visit) TableName() string {
	return "visits"
}

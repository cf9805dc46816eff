package model

type RatingSlip struct {
	SlipID            uint64  `gorm:"column:slip_id;primaryKey;autoIncrement"`
	TableID           uint64  `gorm:"column:table_id;not null;index"`
	SeatNumber        *int    `gorm:"column:seat_number"`
	VisitID           uint64  `gorm:"column:visit_id;not null;index"`
	PlayerID          *string `gorm:"column:player_id;type:text"`
	Status            string  `gorm:"column:status;type:text;not null;index"`
	StartTime         string  `gorm:"column:start_time;type:text;not null"`
	EndTime           *string `gorm:"column:end_time;type:text"`
	AverageBet        int64   `gorm:"column:average_bet;not null;default:0"`
	ChipsTaken        *int64  `gorm:"column:chips_taken"`
	CloseReason       *string `gorm:"column:close_reason;type:text"`
	PredecessorSlipID *uint64 `gorm:"column:predecessor_slip_id;index"`
	GamingDay         string  `gorm:"column:gaming_day;type:text;not null;index"`
	UpdatedAt         string  `gorm:"column:updated_at;type:text;not null"`
}

func (RatingSlip) TableName() string {
	return "rating_slips"
}

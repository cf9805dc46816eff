package model

// SeatHold is the seat-occupancy index. The composite primary key makes a
// reserve a single conditional insert: whoever inserts the row owns the seat
// until the owning slip closes and the row is deleted.
type SeatHold struct {
	TableID    uint64 `gorm:"column:table_id;not null;primaryKey"`
	SeatNumber int    `gorm:"column:seat_number;not null;primaryKey"`
	SlipID     uint64 `gorm:"column:slip_id;not null;uniqueIndex"`
	ClaimedAt  string `gorm:"column:claimed_at;type:text;not null"`
}

func (SeatHold) TableName() string {
	return "seat_holds"
}

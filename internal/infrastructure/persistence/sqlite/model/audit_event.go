package model

type AuditEvent struct {
	AuditEventID  uint64  `gorm:"column:audit_event_id;primaryKey;autoIncrement"`
	Operation     string  `gorm:"column:operation;type:text;not null;index"`
	ActorID       string  `gorm:"column:actor_id;type:text;not null"`
	SlipID        *uint64 `gorm:"column:slip_id;index"`
	TableID       *uint64 `gorm:"column:table_id;index"`
	CorrelationID string  `gorm:"column:correlation_id;type:text;not null;index"`
	Outcome       string  `gorm:"column:outcome;type:text;not null"`
	BeforeState   string  `gorm:"column:before_state;type:text;not null"`
	AfterState    string  `gorm:"column:after_state;type:text;not null"`
	Detail        string  `gorm:"column:detail;type:text;not null"`
	OccurredAt    string  `gorm:"column:occurred_at;type:text;not null;index"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}

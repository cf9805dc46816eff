package model

type IdempotencyRecord struct {
	Key         string `gorm:"column:key;type:text;primaryKey"`
	Fingerprint string `gorm:"column:fingerprint;type:text;not null"`
	Operation   string `gorm:"column:operation;type:text;not null"`
	ResultJSON  string `gorm:"column:result_json;type:text;not null"`
	CreatedAt   string `gorm:"column:created_at;type:text;not null"`
	ExpiresAt   string `gorm:"column:expires_at;type:text;not null;index"`
}

func (IdempotencyRecord) TableName() string {
	return "idempotency_records"
}

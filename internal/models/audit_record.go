package models

import "time"

// AuditRecord is one link in a per-stream hash chain. Hash is
// SHA-256(payload || prev_hash) hex-encoded; PrevHash is empty for the
// genesis record of a stream. Records are append-only: no updates, no soft
// delete.
type AuditRecord struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	StreamKey  string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_audit_stream_seq" json:"stream_key"`
	Sequence   uint      `gorm:"not null;uniqueIndex:idx_audit_stream_seq" json:"sequence"`
	RecordType string    `gorm:"type:varchar(50);not null" json:"record_type"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	PrevHash   string    `gorm:"type:varchar(64)" json:"prev_hash"`
	Hash       string    `gorm:"type:varchar(64);not null" json:"hash"`
	CreatedAt  time.Time `json:"created_at"`
}

func (AuditRecord) TableName() string {
	return "audit_records"
}

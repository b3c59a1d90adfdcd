package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"TractorMandi/internal/models"
)

// AuditService maintains one hash chain per stream key (e.g. "auction:42").
// Every record's hash is SHA-256(payload || prevHash), so altering any stored
// payload breaks verification for that record and everything after it. The
// other services call in here; this service calls nobody.
type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

func chainHash(payload []byte, prevHash string) string {
	sum := sha256.Sum256(append(payload, []byte(prevHash)...))
	return hex.EncodeToString(sum[:])
}

// Append links a new record onto the stream. The (stream_key, sequence)
// unique index rejects the loser of a concurrent append.
func (s *AuditService) Append(streamKey, recordType string, payload interface{}) (*models.AuditRecord, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit payload: %w", err)
	}

	var record models.AuditRecord
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var last models.AuditRecord
		prevHash := ""
		seq := uint(1)
		res := tx.Where("stream_key = ?", streamKey).Order("sequence DESC").Limit(1).Find(&last)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			prevHash = last.Hash
			seq = last.Sequence + 1
		}

		record = models.AuditRecord{
			StreamKey:  streamKey,
			Sequence:   seq,
			RecordType: recordType,
			Payload:    string(data),
			PrevHash:   prevHash,
			Hash:       chainHash(data, prevHash),
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append audit record: %w", err)
	}

	return &record, nil
}

// VerifyChain walks the stream from genesis, recomputing every hash. It
// returns whether the chain is intact and, when it is not, the sequence of
// the first bad record.
func (s *AuditService) VerifyChain(streamKey string) (bool, uint, error) {
	records, err := s.Records(streamKey)
	if err != nil {
		return false, 0, err
	}

	prevHash := ""
	for _, r := range records {
		if r.PrevHash != prevHash {
			return false, r.Sequence, nil
		}
		if chainHash([]byte(r.Payload), r.PrevHash) != r.Hash {
			return false, r.Sequence, nil
		}
		prevHash = r.Hash
	}
	return true, 0, nil
}

// Records returns a stream's records in chain order.
func (s *AuditService) Records(streamKey string) ([]models.AuditRecord, error) {
	var records []models.AuditRecord
	if err := s.db.Where("stream_key = ?", streamKey).Order("sequence ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load audit records: %w", err)
	}
	return records, nil
}

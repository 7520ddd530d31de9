package services

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/justsurfingit/talent-dashboard/internal/models"
)

// JournalService appends one row per committed snapshot or failed poll so a
// session's sync history can be inspected afterwards. A nil DB disables it.
type JournalService struct {
	DB *gorm.DB
}

func NewJournalService(db *gorm.DB) *JournalService {
	return &JournalService{DB: db}
}

func (s *JournalService) Enabled() bool { return s != nil && s.DB != nil }

func (s *JournalService) RecordCommit(collection string, records int) {
	s.record(models.SyncEvent{
		Collection: collection,
		EventType:  models.SyncCommitted,
		Records:    records,
		Details:    fmt.Sprintf("snapshot replaced with %d records", records),
	})
}

func (s *JournalService) RecordFailure(collection string, err error) {
	s.record(models.SyncEvent{
		Collection: collection,
		EventType:  models.SyncFailed,
		Details:    err.Error(),
	})
}

// Recent returns the latest events for collection, newest first.
func (s *JournalService) Recent(collection string, limit int) ([]models.SyncEvent, error) {
	if !s.Enabled() {
		return nil, nil
	}
	var events []models.SyncEvent
	err := s.DB.Where("collection = ?", collection).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (s *JournalService) record(event models.SyncEvent) {
	if !s.Enabled() {
		return
	}
	if err := s.DB.Create(&event).Error; err != nil {
		log.Printf("[journal] failed to record %s event for %s: %v", event.EventType, event.Collection, err)
	}
}

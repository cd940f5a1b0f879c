package model

import "time"

// Occurrence is one concrete scheduled instance of a task, derived from its
// definition by the materializer. Rows are recomputed, never hand-edited;
// for a given (TaskID, OccurrenceIndex) the due and fire instants are a pure
// function of the definition at generation time.
type Occurrence struct {
	ID              uint `gorm:"primaryKey"`
	TaskID          uint `gorm:"uniqueIndex:idx_task_occurrence"`
	OccurrenceIndex int  `gorm:"uniqueIndex:idx_task_occurrence"`

	DueAt          time.Time `gorm:"index"`
	ReminderFireAt time.Time `gorm:"index"`

	Completed   bool `gorm:"default:false"`
	CompletedAt *time.Time
	NotifiedAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

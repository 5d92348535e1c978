package model

import "time"

// RemarkCategory is one of the pre-defined remarks an officiant can attach
// to a booking.
type RemarkCategory string

const (
	RemarkScheduleConfirmed      RemarkCategory = "schedule_confirmed"
	RemarkRequirementsIncomplete RemarkCategory = "requirements_incomplete"
	RemarkSeminarRequired        RemarkCategory = "seminar_required"
	RemarkInterviewRequired      RemarkCategory = "interview_required"
	RemarkDocumentsVerified      RemarkCategory = "documents_verified"
	RemarkOther                  RemarkCategory = "other"
)

// RemarkCategories lists the accepted categories.
var RemarkCategories = []RemarkCategory{
	RemarkScheduleConfirmed,
	RemarkRequirementsIncomplete,
	RemarkSeminarRequired,
	RemarkInterviewRequired,
	RemarkDocumentsVerified,
	RemarkOther,
}

// Valid reports whether c is one of RemarkCategories.
func (c RemarkCategory) Valid() bool {
	for _, known := range RemarkCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ReviewComment is a staff annotation on a booking.  Comments are append-only:
// once stored they are never edited or removed.  ScheduledDate is a date the
// officiant proposes and is independent of the booking's event date.
type ReviewComment struct {
	Reviewer      string         `json:"reviewer"`
	ScheduledDate Date           `json:"scheduled_date"`
	Category      RemarkCategory `json:"category"`
	FreeText      string         `json:"free_text,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

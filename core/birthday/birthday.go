package birthday

import (
	"sort"
	"time"

	"github.com/kindredkids/compass/core/profile"
)

const dateLayout = "2006-01-02"

// Reminder is one upcoming birthday. Student rows come from the platform's
// aggregate function; teacher rows are computed locally and merged in.
type Reminder struct {
	StudentID         string `json:"student_id,omitempty"`
	TeacherID         string `json:"teacher_id,omitempty"`
	FullName          string `json:"full_name"`
	ClassName         string `json:"class_name,omitempty"`
	DateOfBirth       string `json:"date_of_birth"`
	DaysUntilBirthday int    `json:"days_until_birthday"`
}

// DaysUntil computes the days from today until the next occurrence of the
// birth date's month/day. The date wraps to next year only when this year's
// occurrence is strictly before today, so a birthday today yields 0.
func DaysUntil(dob, today time.Time) int {
	today = truncate(today)
	next := time.Date(today.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, today.Location())
	if next.Before(today) {
		next = time.Date(today.Year()+1, dob.Month(), dob.Day(), 0, 0, 0, 0, today.Location())
	}
	return int(next.Sub(today) / (24 * time.Hour))
}

// TeacherReminders derives reminders for teachers whose birthdays fall within
// windowDays of today. Teachers without a recorded date of birth are skipped.
func TeacherReminders(teachers []profile.Profile, today time.Time, windowDays int) []Reminder {
	reminders := make([]Reminder, 0, len(teachers))
	for _, t := range teachers {
		if t.DateOfBirth == "" {
			continue
		}
		dob, err := time.Parse(dateLayout, t.DateOfBirth)
		if err != nil {
			continue
		}
		days := DaysUntil(dob, today)
		if days > windowDays {
			continue
		}
		reminders = append(reminders, Reminder{
			TeacherID:         t.ID,
			FullName:          t.FullName,
			DateOfBirth:       t.DateOfBirth,
			DaysUntilBirthday: days,
		})
	}
	return reminders
}

// Merge combines student and teacher reminders sorted ascending by
// days-until-birthday.
func Merge(lists ...[]Reminder) []Reminder {
	var merged []Reminder
	for _, list := range lists {
		merged = append(merged, list...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].DaysUntilBirthday < merged[j].DaysUntilBirthday
	})
	if merged == nil {
		merged = []Reminder{}
	}
	return merged
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

package models

import "time"

// Attendance records whether a student attended on a calendar day
type Attendance struct {
	ID        int64     `json:"id"`
	StudentID int64     `json:"studentId"`
	Date      time.Time `json:"date"`
	Present   bool      `json:"present"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AttendanceEntry is a monthly report row
type AttendanceEntry struct {
	Attendance
	StudentName string `json:"studentName"`
}

// NormalizeDate returns UTC midnight of t's calendar day in t's own location
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthRange returns [first day of month, first day of next month) in UTC
func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

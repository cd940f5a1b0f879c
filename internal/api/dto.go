package api

import (
	"strings"
	"time"

	"taskplanner/internal/model"
	"taskplanner/internal/repository"
)

// taskRequest carries the client's task payload. Every field is optional at
// the JSON level so the same shape serves POST (with required-field checks)
// and PATCH (apply what is present).
type taskRequest struct {
	TaskName            *string  `json:"taskName"`
	Priority            *string  `json:"priority"`
	Date                *string  `json:"date"`
	Time                *string  `json:"time"`
	Reminder            *string  `json:"reminder"`
	ReminderTimeUnit    *string  `json:"reminderTimeUnit"`
	ReminderCustomDays  *int     `json:"reminderCustomDays"`
	ReminderCustomWeeks *int     `json:"reminderCustomWeeks"`
	ReminderCustomTime  *string  `json:"reminderCustomTime"`
	Repeat              *string  `json:"repeat"`
	RepeatType          *string  `json:"repeatType"`
	RepeatFrequency     *string  `json:"repeatFrequency"`
	RepeatCount         *int     `json:"repeatCount"`
	RepeatSpecificDates []string `json:"repeatSpecificDates"`
	SkipWeekends        *bool    `json:"skipWeekends"`
	Completed           *bool    `json:"completed"`
}

var (
	priorities = map[string]bool{
		model.PriorityHigh: true, model.PriorityMedium: true,
		model.PriorityLow: true, model.PriorityNone: true,
	}
	reminders = map[string]bool{
		model.ReminderOnTime: true, model.ReminderFiveMin: true,
		model.ReminderOneDay: true, model.ReminderOneWeek: true,
		model.ReminderCustom: true,
	}
	repeats = map[string]bool{
		model.RepeatNone: true, "daily": true, "weekly": true, "monthly": true,
		"yearly": true, "weekdays": true, "weekends": true, model.RepeatCustom: true,
	}
	repeatTypes = map[string]bool{
		"due-dates": true, "completion-dates": true, "specific-dates": true,
	}
	frequencies = map[string]bool{
		"day": true, "week": true, "month": true, "year": true,
	}
	reminderUnits = map[string]bool{"days": true, "weeks": true}
)

// validateCreate checks the fields POST requires before apply runs.
func (r *taskRequest) validateCreate() error {
	if r.TaskName == nil || strings.TrimSpace(*r.TaskName) == "" {
		return badField("taskName is required")
	}
	if r.Date == nil {
		return badField("date is required")
	}
	if r.Time == nil {
		return badField("time is required")
	}
	return nil
}

// apply validates the present fields and writes them onto the task.
func (r *taskRequest) apply(task *model.Task) error {
	if r.TaskName != nil {
		name := strings.TrimSpace(*r.TaskName)
		if name == "" {
			return badField("taskName must not be empty")
		}
		if len(name) > 100 {
			return badField("taskName cannot exceed 100 characters")
		}
		task.Name = name
	}
	if r.Priority != nil {
		if !priorities[*r.Priority] {
			return badField("unknown priority %q", *r.Priority)
		}
		task.Priority = *r.Priority
	}
	if r.Date != nil {
		d, err := time.ParseInLocation("2006-01-02", *r.Date, time.Local)
		if err != nil {
			return badField("date must be YYYY-MM-DD")
		}
		task.AnchorDate = d
	}
	if r.Time != nil {
		if _, err := time.Parse("15:04", *r.Time); err != nil {
			return badField("time must be HH:MM")
		}
		task.AnchorTime = *r.Time
	}

	if r.Reminder != nil {
		if !reminders[*r.Reminder] {
			return badField("unknown reminder %q", *r.Reminder)
		}
		task.Reminder = *r.Reminder
	}
	if r.ReminderTimeUnit != nil {
		if !reminderUnits[*r.ReminderTimeUnit] {
			return badField("unknown reminderTimeUnit %q", *r.ReminderTimeUnit)
		}
		task.ReminderTimeUnit = *r.ReminderTimeUnit
	}
	if r.ReminderCustomDays != nil {
		if *r.ReminderCustomDays < 0 || *r.ReminderCustomDays > 60 {
			return badField("reminderCustomDays must be within 0..60")
		}
		task.ReminderCustomDays = r.ReminderCustomDays
	}
	if r.ReminderCustomWeeks != nil {
		if *r.ReminderCustomWeeks < 0 || *r.ReminderCustomWeeks > 12 {
			return badField("reminderCustomWeeks must be within 0..12")
		}
		task.ReminderCustomWeeks = r.ReminderCustomWeeks
	}
	if r.ReminderCustomTime != nil {
		if *r.ReminderCustomTime != "" {
			if _, err := time.Parse("15:04", *r.ReminderCustomTime); err != nil {
				return badField("reminderCustomTime must be HH:MM")
			}
		}
		task.ReminderCustomTime = *r.ReminderCustomTime
	}

	if r.Repeat != nil {
		if !repeats[*r.Repeat] {
			return badField("unknown repeat %q", *r.Repeat)
		}
		task.Repeat = *r.Repeat
	}
	if r.RepeatType != nil {
		if !repeatTypes[*r.RepeatType] {
			return badField("unknown repeatType %q", *r.RepeatType)
		}
		task.RepeatType = *r.RepeatType
	}
	if r.RepeatFrequency != nil {
		if !frequencies[*r.RepeatFrequency] {
			return badField("unknown repeatFrequency %q", *r.RepeatFrequency)
		}
		task.RepeatFrequency = *r.RepeatFrequency
	}
	if r.RepeatCount != nil {
		if *r.RepeatCount < 1 || *r.RepeatCount > 365 {
			return badField("repeatCount must be within 1..365")
		}
		task.RepeatCount = r.RepeatCount
	}
	if r.RepeatSpecificDates != nil {
		for _, d := range r.RepeatSpecificDates {
			if _, err := time.Parse("2006-01-02", d); err != nil {
				return badField("repeatSpecificDates entries must be YYYY-MM-DD")
			}
		}
		task.RepeatDates = strings.Join(r.RepeatSpecificDates, ",")
	}
	if r.SkipWeekends != nil {
		task.SkipWeekends = *r.SkipWeekends
	}
	if r.Completed != nil {
		task.Completed = *r.Completed
	}
	return nil
}

type occurrenceResponse struct {
	OccurrenceIndex int       `json:"occurrenceIndex"`
	DueAt           time.Time `json:"dueAt"`
	ReminderFireAt  time.Time `json:"reminderFireAt"`
	Completed       bool      `json:"completed"`
}

type taskResponse struct {
	ID                  string               `json:"id"`
	TaskName            string               `json:"taskName"`
	Priority            string               `json:"priority"`
	Date                string               `json:"date"`
	Time                string               `json:"time"`
	Reminder            string               `json:"reminder"`
	ReminderTimeUnit    string               `json:"reminderTimeUnit,omitempty"`
	ReminderCustomDays  *int                 `json:"reminderCustomDays,omitempty"`
	ReminderCustomWeeks *int                 `json:"reminderCustomWeeks,omitempty"`
	ReminderCustomTime  string               `json:"reminderCustomTime,omitempty"`
	Repeat              string               `json:"repeat"`
	RepeatType          string               `json:"repeatType,omitempty"`
	RepeatFrequency     string               `json:"repeatFrequency,omitempty"`
	RepeatCount         *int                 `json:"repeatCount,omitempty"`
	RepeatSpecificDates []string             `json:"repeatSpecificDates,omitempty"`
	SkipWeekends        bool                 `json:"skipWeekends"`
	Completed           bool                 `json:"completed"`
	Occurrences         []occurrenceResponse `json:"occurrences,omitempty"`
}

func toTaskResponse(task *model.Task, occs []model.Occurrence) taskResponse {
	resp := taskResponse{
		ID:                  task.PublicID,
		TaskName:            task.Name,
		Priority:            task.Priority,
		Date:                task.AnchorDate.Format("2006-01-02"),
		Time:                task.AnchorTime,
		Reminder:            task.Reminder,
		ReminderTimeUnit:    task.ReminderTimeUnit,
		ReminderCustomDays:  task.ReminderCustomDays,
		ReminderCustomWeeks: task.ReminderCustomWeeks,
		ReminderCustomTime:  task.ReminderCustomTime,
		Repeat:              task.Repeat,
		RepeatType:          task.RepeatType,
		RepeatFrequency:     task.RepeatFrequency,
		RepeatCount:         task.RepeatCount,
		SkipWeekends:        task.SkipWeekends,
		Completed:           task.Completed,
	}
	if task.RepeatDates != "" {
		resp.RepeatSpecificDates = strings.Split(task.RepeatDates, ",")
	}
	for _, occ := range occs {
		resp.Occurrences = append(resp.Occurrences, occurrenceResponse{
			OccurrenceIndex: occ.OccurrenceIndex,
			DueAt:           occ.DueAt,
			ReminderFireAt:  occ.ReminderFireAt,
			Completed:       occ.Completed,
		})
	}
	return resp
}

func toDayResponse(rows []repository.DatedOccurrence) []repository.DatedOccurrence {
	if rows == nil {
		return []repository.DatedOccurrence{}
	}
	return rows
}

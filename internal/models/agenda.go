package models

// AgendaItem is one lesson placed inside a day column.
type AgendaItem struct {
	Occurrence Occurrence     `json:"occurrence"`
	Layout     LayoutPosition `json:"layout"`
}

// DayAgenda is the laid-out content of a single calendar day.
type DayAgenda struct {
	Date     string       `json:"date"`
	Timezone string       `json:"timezone"`
	Items    []AgendaItem `json:"items"`
}

// CalendarWindow lists lessons for a navigated range.
type CalendarWindow struct {
	From        string       `json:"from"`
	To          string       `json:"to"`
	Occurrences []Occurrence `json:"occurrences"`
	Generating  bool         `json:"generating"`
}

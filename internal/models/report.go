package models

// MonthlyReport groups the classes of one calendar month with their summed
// effective rates. Key is the zero-padded "YYYY-MM" grouping key; Label is
// the human form, e.g. "January 2024". Recomputed fully on each view.
type MonthlyReport struct {
	Key     string        `json:"key"`
	Label   string        `json:"label"`
	Classes []ClassDetail `json:"classes"`
	Total   int           `json:"total"`
}

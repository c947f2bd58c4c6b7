package model

// Status names seeded into status_patients.
const (
	StatusTreatment = "treatment"
	StatusDeath     = "death"
	StatusRecovered = "recovered"
)

// StatusNames lists every valid status in seed order.
var StatusNames = []string{StatusTreatment, StatusDeath, StatusRecovered}

// StatusPatient is a row of the status lookup table.
type StatusPatient struct {
	ID     int64  `db:"id" json:"id"`
	Status string `db:"status" json:"status"`
}

func IsValidStatus(name string) bool {
	for _, s := range StatusNames {
		if s == name {
			return true
		}
	}
	return false
}

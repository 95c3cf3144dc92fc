package borrow

import (
	"sort"

	"libraryclient/internal/models"
)

// State is the client-visible lifecycle state of a borrow record
type State int

const (
	// Borrowed is the initial state
	Borrowed State = iota
	// Returned is terminal; only the server moves a record here
	Returned
)

// Display labels, one per state
const (
	LabelBorrowed = "currently borrowed"
	LabelReturned = "returned"
)

// Classify returns the state of a record
func Classify(r models.BorrowRecord) State {
	if r.Returned {
		return Returned
	}
	return Borrowed
}

// Label maps a state onto its display label
func Label(s State) string {
	if s == Returned {
		return LabelReturned
	}
	return LabelBorrowed
}

// String implements fmt.Stringer
func (s State) String() string {
	return Label(s)
}

// Order returns a copy of records sorted for display.
//
// Ordering rules:
// 1. Records still borrowed come before returned ones
// 2. Within each group, the most recently created record comes first
// 3. Records created at the same instant keep their input order
func Order(records []models.BorrowRecord) []models.BorrowRecord {
	out := make([]models.BorrowRecord, len(records))
	copy(out, records)

	sort.SliceStable(out, func(i, j int) bool {
		si, sj := Classify(out[i]), Classify(out[j])
		if si != sj {
			return si == Borrowed
		}
		return out[i].CreatedDate.After(out[j].CreatedDate.Time)
	})
	return out
}

// Counts tallies records per state
func Counts(records []models.BorrowRecord) (borrowed, returned int) {
	for _, r := range records {
		if Classify(r) == Returned {
			returned++
		} else {
			borrowed++
		}
	}
	return borrowed, returned
}

// View is a record with its display label
type View struct {
	models.BorrowRecord
	Label string `json:"label"`
}

// Views labels records, keeping their order
func Views(records []models.BorrowRecord) []View {
	views := make([]View, 0, len(records))
	for _, r := range records {
		views = append(views, View{BorrowRecord: r, Label: Label(Classify(r))})
	}
	return views
}

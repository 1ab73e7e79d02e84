// Package fairness picks the next driver for a carpool group.
//
// The engine is a pure computation: it reads a snapshot of the group's ride
// history, weighs each past drive by how recent it is, and ranks the members
// present today so that whoever has carried the least recent load drives next.
// It performs no I/O, holds no state, and is safe for concurrent use.
package fairness

import (
	"math"
	"sort"
	"time"

	"github.com/Tominouu/covoit/internal/domain"
)

// Decay is the monthly retention factor: each month of age costs a past drive
// 8% of its weight. Recency fades smoothly rather than via a cutoff window.
const Decay = 0.92

// month is the fixed 30-day approximation used for decay computation.
// It is deliberately not a calendar month; callers relying on parity with
// other implementations must reproduce the same constant.
const month = 30 * 24 * time.Hour

// Entry is one historical ride as the engine sees it: the day it happened and
// who drove. Everything else about a ride is irrelevant to fairness.
type Entry struct {
	Date     time.Time
	DriverID domain.MemberID
}

// Standing is one present member's position in the fairness ranking.
type Standing struct {
	MemberID domain.MemberID

	// WeightedCount is the sum of decay weights of this member's past drives.
	WeightedCount float64

	// LastDrove is the date of the member's most recent drive; the zero time
	// means "never driven" and sorts as the most overdue.
	LastDrove time.Time
}

// Rank computes the fairness ranking of the present members against history,
// most overdue first.
//
// Duplicate IDs in present are treated as a set; the first occurrence keeps
// its input position. History entries whose driver is not present contribute
// nothing. Entries dated after referenceTime count with full weight, never
// more. Members tied on both keys retain present-set input order.
func Rank(present []domain.MemberID, history []Entry, referenceTime time.Time) []Standing {
	standings := make([]Standing, 0, len(present))
	index := make(map[domain.MemberID]int, len(present))
	for _, id := range present {
		if _, ok := index[id]; ok {
			continue
		}
		index[id] = len(standings)
		standings = append(standings, Standing{MemberID: id})
	}

	for _, e := range history {
		i, ok := index[e.DriverID]
		if !ok {
			continue
		}
		elapsed := referenceTime.Sub(e.Date)
		if elapsed < 0 {
			elapsed = 0
		}
		months := float64(elapsed) / float64(month)
		standings[i].WeightedCount += math.Pow(Decay, months)
		if e.Date.After(standings[i].LastDrove) {
			standings[i].LastDrove = e.Date
		}
	}

	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.WeightedCount != b.WeightedCount {
			return a.WeightedCount < b.WeightedCount
		}
		return a.LastDrove.Before(b.LastDrove)
	})
	return standings
}

// SelectDriver returns the member who should drive next, or ok=false when the
// present set is empty. An empty present set is the engine's only "cannot
// choose" condition; every other degenerate input is normalized silently.
func SelectDriver(present []domain.MemberID, history []Entry, referenceTime time.Time) (domain.MemberID, bool) {
	standings := Rank(present, history, referenceTime)
	if len(standings) == 0 {
		return "", false
	}
	return standings[0].MemberID, true
}

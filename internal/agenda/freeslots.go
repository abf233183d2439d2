// Package agenda computes the free intervals of a user's calendar day.
//
// The output feeds the recommendation agent, which proposes activities that
// fit the athlete's open blocks.
package agenda

import (
	"sort"
	"time"

	"github.com/MindAthlete/backend/internal/models"
)

// MinSlotDuration is the shortest free interval worth recommending into.
const MinSlotDuration = 15 * time.Minute

// FreeSlots returns the ordered free intervals of [dayStart, dayEnd) not
// covered by any event, dropping fragments shorter than MinSlotDuration.
//
// Events lacking a start are anchored at dayStart. Overlapping or unsorted
// events are tolerated: the cursor only ever moves forward, so no candidate
// can have negative duration.
func FreeSlots(events []models.Event, dayStart, dayEnd time.Time) []models.FreeSlot {
	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return eventStart(sorted[i], dayStart).Before(eventStart(sorted[j], dayStart))
	})

	cursor := dayStart
	var free []models.FreeSlot
	for _, ev := range sorted {
		start := eventStart(ev, dayStart)
		end := ev.End()
		if end.IsZero() {
			end = start
		}
		if start.After(cursor) {
			candidateEnd := start
			if candidateEnd.After(dayEnd) {
				candidateEnd = dayEnd
			}
			free = append(free, models.FreeSlot{Start: cursor, End: candidateEnd})
		}
		if end.After(cursor) {
			cursor = end
		}
	}
	if cursor.Before(dayEnd) {
		free = append(free, models.FreeSlot{Start: cursor, End: dayEnd})
	}

	kept := free[:0]
	for _, slot := range free {
		if slot.End.Sub(slot.Start) >= MinSlotDuration {
			kept = append(kept, slot)
		}
	}
	return kept
}

func eventStart(ev models.Event, dayStart time.Time) time.Time {
	if ev.StartsAt.IsZero() {
		return dayStart
	}
	return ev.StartsAt
}

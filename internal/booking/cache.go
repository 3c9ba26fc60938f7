package booking

import (
	"sort"
	"strings"
)

// AvailabilityCache maps provider-calendar dates (YYYY-MM-DD) to the ordered
// slots for that date. It is owned by a single session: the session's mutex
// covers all access, so the cache itself carries no locking.
//
// Writes are all-or-nothing: a range fetch replaces the whole map and a
// single-date fetch replaces one date's entry. Partial results are never
// stored, and the session applies its discard-on-mismatch guard before any
// write lands here.
type AvailabilityCache struct {
	byDate map[string][]TimeSlot
}

func NewAvailabilityCache() *AvailabilityCache {
	return &AvailabilityCache{byDate: make(map[string][]TimeSlot)}
}

// ReplaceAll swaps in a freshly fetched date → slots map.
func (c *AvailabilityCache) ReplaceAll(byDate map[string][]TimeSlot) {
	next := make(map[string][]TimeSlot, len(byDate))
	for date, slots := range byDate {
		next[date] = sortedByProviderTime(slots)
	}
	c.byDate = next
}

// SetDate stores the slots for one date, replacing any previous entry.
func (c *AvailabilityCache) SetDate(date string, slots []TimeSlot) {
	c.byDate[date] = sortedByProviderTime(slots)
}

// Get returns the cached slots for a date. It never triggers a fetch; absence
// tells the caller to perform a targeted single-date fetch.
func (c *AvailabilityCache) Get(date string) ([]TimeSlot, bool) {
	slots, ok := c.byDate[date]
	return slots, ok
}

// HasSlots reports whether a date has at least one available slot cached.
func (c *AvailabilityCache) HasSlots(date string) bool {
	for _, slot := range c.byDate[date] {
		if slot.Available {
			return true
		}
	}
	return false
}

// Invalidate drops every entry. Called on timezone change before refetching.
func (c *AvailabilityCache) Invalidate() {
	c.byDate = make(map[string][]TimeSlot)
}

// FirstAvailableDate returns the earliest cached date with available slots
// whose string form starts with prefix (a "YYYY-MM" month or "" for any).
func (c *AvailabilityCache) FirstAvailableDate(prefix string) (string, bool) {
	dates := make([]string, 0, len(c.byDate))
	for date := range c.byDate {
		if strings.HasPrefix(date, prefix) && c.HasSlots(date) {
			dates = append(dates, date)
		}
	}
	if len(dates) == 0 {
		return "", false
	}
	sort.Strings(dates)
	return dates[0], true
}

// Len returns the number of cached dates.
func (c *AvailabilityCache) Len() int {
	return len(c.byDate)
}

// sortedByProviderTime orders slots chronologically. Provider timestamps for
// one calendar share an offset, so lexicographic order matches time order.
func sortedByProviderTime(slots []TimeSlot) []TimeSlot {
	out := append([]TimeSlot(nil), slots...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].ProviderTimestamp < out[j].ProviderTimestamp
	})
	return out
}

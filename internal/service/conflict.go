package service

import "roombook/internal/models"

// HasConflict reports whether candidate collides with any of existing: same
// calendar date and an overlapping slot. The reservation with id excludeID
// is skipped so an update never conflicts with itself; 0 excludes nothing.
// Reservations without a resolved slot cannot be compared and are ignored.
func HasConflict(candidate models.Reservation, existing []*models.Reservation, excludeID int64) bool {
	if candidate.Slot == nil {
		return false
	}
	for _, other := range existing {
		if other == nil || other.Slot == nil {
			continue
		}
		if excludeID != 0 && other.ID == excludeID {
			continue
		}
		if !other.Date.Equal(candidate.Date) {
			continue
		}
		if candidate.Slot.Overlaps(*other.Slot) {
			return true
		}
	}
	return false
}

package inventory

import (
	"context"
	"fmt"
	"strings"
)

// UserInventoryDisplay returns a rendered, human-readable summary of one
// user's inventory. The rendering is cached under its own key and dropped
// whenever the underlying record is rewritten.
func (s *Service) UserInventoryDisplay(ctx context.Context, userID string) (string, error) {
	var cached string
	if s.cacheGet(ctx, displayKey(userID), &cached) {
		return cached, nil
	}

	rec, err := s.UserInventory(ctx, userID)
	if err != nil {
		return "", err
	}

	display := renderRecord(rec)
	s.cacheSet(ctx, displayKey(userID), display, s.ttl.Short)
	return display, nil
}

func renderRecord(r UserRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.Name)
	fmt.Fprintf(&b, "Health: %s\n", r.Health)
	fmt.Fprintf(&b, "Coins: %d\n", r.Coins)
	if len(r.PhysicalStatus) > 0 {
		fmt.Fprintf(&b, "Status: %s\n", joinList(r.PhysicalStatus))
	}
	fmt.Fprintf(&b, "Items: %s\n", listOrNone(r.Items))
	fmt.Fprintf(&b, "Outfits: %s\n", listOrNone(r.Outfits))
	fmt.Fprintf(&b, "Corruption: %d", r.Corruption)
	return b.String()
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return joinList(items)
}

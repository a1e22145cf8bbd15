package inventory

import (
	"strconv"
	"strings"
)

// Row column offsets within one inventory row, left to right.
const (
	colName = iota
	colHealth
	colCoins
	colPhysicalStatus
	colItems
	colOutfits
	colCorruption
	rowWidth
)

const defaultHealth = "100"

// Roles. A user is an admin when their id matches the administrator cell.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// noRow marks a metadata user whose display name matched no inventory row.
const noRow = -1

// UserRecord is one user's row joined with their metadata identity.
// Row is the zero-based offset from the layout's first data row.
//
// Items, Outfits, and PhysicalStatus are ordered lists without a
// uniqueness constraint; duplicates informally represent stacked counts.
type UserRecord struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Row            int      `json:"row"`
	Role           string   `json:"role"`
	Health         string   `json:"health"`
	Coins          int      `json:"coins"`
	PhysicalStatus []string `json:"physical_status"`
	Items          []string `json:"items"`
	Outfits        []string `json:"outfits"`
	Corruption     int      `json:"corruption"`
}

// HasStatus reports whether the record's physical status list carries the
// marker, compared case-insensitively.
func (r UserRecord) HasStatus(marker string) bool {
	for _, s := range r.PhysicalStatus {
		if strings.EqualFold(s, marker) {
			return true
		}
	}
	return false
}

// UserMeta is one row of the metadata table resolved against the
// inventory name column: a display name bound to an external id, the
// matched row offset (noRow when unmatched), a role, and grant flags.
type UserMeta struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Row       int    `json:"row"`
	Role      string `json:"role"`
	CanGive   bool   `json:"can_give"`
	CanRevoke bool   `json:"can_revoke"`
}

// Permissions is the resolved permission set for one user.
type Permissions struct {
	CanGive   bool `json:"can_give"`
	CanRevoke bool `json:"can_revoke"`
	IsAdmin   bool `json:"is_admin"`
}

// Update carries partial changes to a user row. Nil fields are left as-is.
// Coins and Corruption clamp at zero when applied.
type Update struct {
	Health         *string
	Coins          *int
	PhysicalStatus *[]string
	Items          *[]string
	Outfits        *[]string
	Corruption     *int
}

// IsZero reports whether the update changes nothing.
func (u Update) IsZero() bool {
	return u.Health == nil && u.Coins == nil && u.PhysicalStatus == nil &&
		u.Items == nil && u.Outfits == nil && u.Corruption == nil
}

// Apply merges the update into a copy of the record, clamping the numeric
// fields at zero.
func (r UserRecord) Apply(u Update) UserRecord {
	if u.Health != nil {
		r.Health = *u.Health
	}
	if u.Coins != nil {
		r.Coins = *u.Coins
	}
	if u.PhysicalStatus != nil {
		r.PhysicalStatus = append([]string(nil), (*u.PhysicalStatus)...)
	}
	if u.Items != nil {
		r.Items = append([]string(nil), (*u.Items)...)
	}
	if u.Outfits != nil {
		r.Outfits = append([]string(nil), (*u.Outfits)...)
	}
	if u.Corruption != nil {
		r.Corruption = *u.Corruption
	}

	if r.Coins < 0 {
		r.Coins = 0
	}
	if r.Corruption < 0 {
		r.Corruption = 0
	}
	return r
}

// parseRecord builds a record from one raw row. Short rows pad out with
// empty cells; a blank health cell defaults, and malformed or negative
// numeric cells clamp to zero.
func parseRecord(meta UserMeta, cells []string) UserRecord {
	padded := make([]string, rowWidth)
	copy(padded, cells)

	health := strings.TrimSpace(padded[colHealth])
	if health == "" {
		health = defaultHealth
	}

	return UserRecord{
		ID:             meta.ID,
		Name:           meta.Name,
		Row:            meta.Row,
		Role:           meta.Role,
		Health:         health,
		Coins:          parseCount(padded[colCoins]),
		PhysicalStatus: splitList(padded[colPhysicalStatus]),
		Items:          splitList(padded[colItems]),
		Outfits:        splitList(padded[colOutfits]),
		Corruption:     parseCount(padded[colCorruption]),
	}
}

// formatRow renders a record back into its row cells.
func formatRow(r UserRecord) []string {
	return []string{
		r.Name,
		r.Health,
		strconv.Itoa(r.Coins),
		joinList(r.PhysicalStatus),
		joinList(r.Items),
		joinList(r.Outfits),
		strconv.Itoa(r.Corruption),
	}
}

// parseCount parses a non-negative counter cell. Garbage and negatives
// read as zero.
func parseCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// splitList splits a comma-joined list cell, trimming and dropping empty
// elements.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func joinList(items []string) string {
	return strings.Join(items, ", ")
}

// parseMetadata builds the id-keyed metadata map from raw metadata rows
// and the inventory name column, reconciling them by exact trimmed name.
// The same index in both tables is preferred; otherwise the first row
// whose name matches wins. Metadata rows missing a name or id are
// skipped, and a user whose name matches no row gets Row = noRow.
func parseMetadata(metaRows, nameRows [][]string, adminID string) map[string]UserMeta {
	names := make([]string, len(nameRows))
	for i, row := range nameRows {
		if len(row) > 0 {
			names[i] = strings.TrimSpace(row[0])
		}
	}

	meta := make(map[string]UserMeta, len(metaRows))
	for i, row := range metaRows {
		padded := make([]string, 4)
		copy(padded, row)

		name := strings.TrimSpace(padded[0])
		id := strings.TrimSpace(padded[1])
		if name == "" || id == "" {
			continue
		}

		role := RoleUser
		if adminID != "" && id == adminID {
			role = RoleAdmin
		}

		meta[id] = UserMeta{
			ID:        id,
			Name:      name,
			Row:       resolveRow(names, i, name),
			Role:      role,
			CanGive:   parseFlag(padded[2]),
			CanRevoke: parseFlag(padded[3]),
		}
	}
	return meta
}

// resolveRow locates the inventory row for a metadata entry: the same
// positional index when its name matches exactly, else the first exact
// name match, else noRow.
func resolveRow(names []string, idx int, name string) int {
	if idx < len(names) && names[idx] == name {
		return idx
	}
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return noRow
}

// parseFlag reads a permission cell. Checkbox-style TRUE plus the common
// hand-entered spellings count as set.
func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y":
		return true
	default:
		return false
	}
}

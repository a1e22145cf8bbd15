package store

import (
	"fmt"
	"strings"
)

// Layout names the regions of the two logical tables inside the remote
// store: the inventory table holding one row per user, and the metadata
// table mapping display names to external ids and permission flags.
type Layout struct {
	// InventorySheet is the sheet holding user rows.
	InventorySheet string

	// MetadataSheet is the sheet holding the id mapping.
	MetadataSheet string

	// FirstDataRow and LastDataRow bound the inventory rows.
	FirstDataRow int
	LastDataRow  int

	// DataStartColumn..DataEndColumn span one user row: name, health,
	// coins, physical status, items, outfits, corruption.
	DataStartColumn string
	DataEndColumn   string

	// MetadataFirstRow..MetadataLastRow bound the metadata rows.
	MetadataFirstRow int
	MetadataLastRow  int

	// MetadataStartColumn..MetadataEndColumn span one metadata row:
	// name, id, give flag, revoke flag.
	MetadataStartColumn string
	MetadataEndColumn   string

	// AdminCell holds the administrator id on the metadata sheet.
	AdminCell string
}

// DefaultLayout mirrors the production sheet geometry.
func DefaultLayout() Layout {
	return Layout{
		InventorySheet:      "Inventory",
		MetadataSheet:       "Metadata",
		FirstDataRow:        14,
		LastDataRow:         48,
		DataStartColumn:     "B",
		DataEndColumn:       "H",
		MetadataFirstRow:    3,
		MetadataLastRow:     37,
		MetadataStartColumn: "A",
		MetadataEndColumn:   "D",
		AdminCell:           "B2",
	}
}

// Normalize fills zero-valued fields from DefaultLayout.
func (l Layout) Normalize() Layout {
	def := DefaultLayout()
	if l.InventorySheet == "" {
		l.InventorySheet = def.InventorySheet
	}
	if l.MetadataSheet == "" {
		l.MetadataSheet = def.MetadataSheet
	}
	if l.FirstDataRow <= 0 {
		l.FirstDataRow = def.FirstDataRow
	}
	if l.LastDataRow <= 0 {
		l.LastDataRow = def.LastDataRow
	}
	if l.DataStartColumn == "" {
		l.DataStartColumn = def.DataStartColumn
	}
	if l.DataEndColumn == "" {
		l.DataEndColumn = def.DataEndColumn
	}
	if l.MetadataFirstRow <= 0 {
		l.MetadataFirstRow = def.MetadataFirstRow
	}
	if l.MetadataLastRow <= 0 {
		l.MetadataLastRow = def.MetadataLastRow
	}
	if l.MetadataStartColumn == "" {
		l.MetadataStartColumn = def.MetadataStartColumn
	}
	if l.MetadataEndColumn == "" {
		l.MetadataEndColumn = def.MetadataEndColumn
	}
	if l.AdminCell == "" {
		l.AdminCell = def.AdminCell
	}
	return l
}

// DataRange spans every inventory row.
func (l Layout) DataRange() string {
	return fmt.Sprintf("%s!%s%d:%s%d",
		l.InventorySheet, l.DataStartColumn, l.FirstDataRow, l.DataEndColumn, l.LastDataRow)
}

// NameRange spans only the display-name column of the inventory rows.
func (l Layout) NameRange() string {
	return fmt.Sprintf("%s!%s%d:%s%d",
		l.InventorySheet, l.DataStartColumn, l.FirstDataRow, l.DataStartColumn, l.LastDataRow)
}

// MetadataRange spans every metadata row.
func (l Layout) MetadataRange() string {
	return fmt.Sprintf("%s!%s%d:%s%d",
		l.MetadataSheet, l.MetadataStartColumn, l.MetadataFirstRow, l.MetadataEndColumn, l.MetadataLastRow)
}

// RowRange spans the inventory row at the given zero-based offset from
// FirstDataRow.
func (l Layout) RowRange(idx int) string {
	row := l.FirstDataRow + idx
	return fmt.Sprintf("%s!%s%d:%s%d",
		l.InventorySheet, l.DataStartColumn, row, l.DataEndColumn, row)
}

// IsInventoryRange reports whether the range addresses the inventory sheet.
func (l Layout) IsInventoryRange(r string) bool {
	return strings.HasPrefix(r, l.InventorySheet+"!")
}

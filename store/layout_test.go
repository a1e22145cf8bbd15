package store

import "testing"

func TestLayout_Ranges(t *testing.T) {
	l := DefaultLayout()

	if got := l.DataRange(); got != "Inventory!B14:H48" {
		t.Errorf("DataRange() = %q, want Inventory!B14:H48", got)
	}
	if got := l.NameRange(); got != "Inventory!B14:B48" {
		t.Errorf("NameRange() = %q, want Inventory!B14:B48", got)
	}
	if got := l.MetadataRange(); got != "Metadata!A3:D37" {
		t.Errorf("MetadataRange() = %q, want Metadata!A3:D37", got)
	}
	if got := l.RowRange(0); got != "Inventory!B14:H14" {
		t.Errorf("RowRange(0) = %q, want Inventory!B14:H14", got)
	}
	if got := l.RowRange(34); got != "Inventory!B48:H48" {
		t.Errorf("RowRange(34) = %q, want Inventory!B48:H48", got)
	}
}

func TestLayout_Normalize(t *testing.T) {
	var l Layout
	l = l.Normalize()

	def := DefaultLayout()
	if l != def {
		t.Errorf("Normalize() of zero layout = %+v, want defaults %+v", l, def)
	}

	custom := Layout{InventorySheet: "Roster", FirstDataRow: 2, LastDataRow: 10}.Normalize()
	if custom.InventorySheet != "Roster" || custom.FirstDataRow != 2 {
		t.Errorf("Normalize() clobbered explicit fields: %+v", custom)
	}
	if custom.MetadataSheet != def.MetadataSheet {
		t.Errorf("Normalize() did not fill MetadataSheet, got %q", custom.MetadataSheet)
	}
	if custom.AdminCell != def.AdminCell {
		t.Errorf("Normalize() did not fill AdminCell, got %q", custom.AdminCell)
	}
}

func TestLayout_IsInventoryRange(t *testing.T) {
	l := DefaultLayout()

	tests := []struct {
		r    string
		want bool
	}{
		{r: "Inventory!B14:H48", want: true},
		{r: "Inventory!B14:B48", want: true},
		{r: "Metadata!A3:D37", want: false},
		{r: "Metadata!B2", want: false},
		{r: "InventoryArchive!A1", want: false},
	}
	for _, tt := range tests {
		if got := l.IsInventoryRange(tt.r); got != tt.want {
			t.Errorf("IsInventoryRange(%q) = %v, want %v", tt.r, got, tt.want)
		}
	}
}

package config

import "strconv"

// Column is the resolved configuration of one table column. Title and body
// styles are resolved independently: each reads its own font and cell blocks
// before falling back to the column, the table entry, the TableFields section
// and the global defaults.
type Column struct {
	ID         string
	Title      string
	Width      float64 // configured width, 0 when unset
	TitleStyle Style
	BodyStyle  Style
}

// Column returns the configuration of column id of the named table field.
func (s *Snapshot) Column(table, id string) Column {
	e, _ := s.entry(TableFields, table)
	c, _ := matchEntry(e.columns, func(c column) []string { return c.aliases }, id)
	lv := s.levels(TableFields, table)

	resolve := func(font, cell attrs) Style {
		return buildStyle(func(name string) string {
			var own attrs
			switch {
			case fontAttrs[name]:
				own = font
			case cellAttrs[name]:
				own = cell
			}
			v, _ := s.first(name, append([]attrs{own, c.attrs}, lv...)...)
			return v
		})
	}

	col := Column{
		ID:         id,
		Title:      c.attrs[ColTitle],
		TitleStyle: resolve(c.titleFont, c.titleCell),
		BodyStyle:  resolve(c.bodyFont, c.bodyCell),
	}
	col.Width, _ = strconv.ParseFloat(c.attrs[ColWidths], 64)
	return col
}

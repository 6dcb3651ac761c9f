package engine

import (
	"sort"

	"mercator-hq/prism/pkg/bundle"
)

// Map builds a canonical event from extracted fields and a provider's
// mapping table.
func Map(table bundle.MappingTable, fields Fields) (*CanonicalEvent, []Diagnostic) {
	d := newDiagnostics(Match{}, 0)
	return mapFields(table, fields, d), d.list
}

func mapFields(table bundle.MappingTable, fields Fields, d *diagnostics) *CanonicalEvent {
	ev := NewCanonicalEvent()
	for _, section := range bundle.Sections {
		rows := table[section]
		if len(rows) == 0 {
			continue
		}
		out := ev.Section(section)

		names := make([]string, 0, len(rows))
		for name := range rows {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			row := rows[name]
			if v, ok := fields[row.SourceName]; ok {
				out[name] = v
				continue
			}
			if v, ok := row.DefaultValue(); ok {
				out[name] = detach(v)
				continue
			}
			if row.Required {
				d.gap(section+"."+name, "required field has no value: source %q was not extracted", row.SourceName)
			}
		}
	}
	return ev
}

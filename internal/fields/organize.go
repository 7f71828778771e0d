package fields

import "github.com/ppiankov/recebe/internal/model"

// DisplayField is one row ready for a renderer
type DisplayField struct {
	FieldName     string `json:"fieldName"`
	Label         string `json:"label"`
	Value         string `json:"value"`
	ShouldDisplay bool   `json:"shouldDisplay"`
}

// SectionResult is a titled group of display rows
type SectionResult struct {
	Title  string         `json:"title"`
	Fields []DisplayField `json:"fields"`
}

// DisplayField builds the row for one field of the record. ShouldDisplay is
// set when the value is meaningful or the field is on the always-show list.
func (c *Catalog) DisplayField(rec model.Record, name string) DisplayField {
	v, _ := rec.Get(name)
	value := c.Normalize(v, name)
	return DisplayField{
		FieldName:     name,
		Label:         c.Label(name),
		Value:         value,
		ShouldDisplay: value != NotInformed || c.AlwaysShow(name),
	}
}

// Organize groups the record into catalog sections followed by the OTHER
// catch-all. Sections without rows are left out. Row order follows catalog
// declaration order, and OTHER follows record key order, so equal inputs
// always give equal output.
func (c *Catalog) Organize(rec model.Record) []SectionResult {
	var out []SectionResult

	for _, s := range c.sections {
		var rows []DisplayField
		for _, name := range s.Fields {
			if row := c.DisplayField(rec, name); row.ShouldDisplay {
				rows = append(rows, row)
			}
		}
		if len(rows) > 0 {
			out = append(out, SectionResult{Title: s.Title, Fields: rows})
		}
	}

	var other []DisplayField
	for _, name := range rec.Keys() {
		if _, claimed := c.claimed[name]; claimed || c.ignored[name] {
			continue
		}
		v, _ := rec.Get(name)
		value := c.Normalize(v, name)
		if value == NotInformed {
			continue
		}
		other = append(other, DisplayField{
			FieldName:     name,
			Label:         c.Label(name),
			Value:         value,
			ShouldDisplay: true,
		})
	}
	if len(other) > 0 {
		out = append(out, SectionResult{Title: OtherSectionTitle, Fields: other})
	}

	return out
}

// Build organizes the record and removes duplicate rows across sections
func (c *Catalog) Build(rec model.Record) []SectionResult {
	return DedupeSections(c.Organize(rec))
}

// Build uses the default catalog
func Build(rec model.Record) []SectionResult {
	return defaultCatalog.Build(rec)
}

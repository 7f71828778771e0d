package fields

// dedupeKey compares label and value ignoring case, diacritics and surrounding space
func dedupeKey(f DisplayField) string {
	return fold(f.Label) + "\x00" + fold(f.Value)
}

// Dedupe drops rows whose (label, value) pair already appeared earlier.
// The first occurrence wins and relative order is kept.
func Dedupe(rows []DisplayField) []DisplayField {
	seen := make(map[string]bool, len(rows))
	out := make([]DisplayField, 0, len(rows))
	for _, row := range rows {
		key := dedupeKey(row)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row)
	}
	return out
}

// DedupeSections applies Dedupe across all sections in output order and drops
// sections left without rows.
func DedupeSections(sections []SectionResult) []SectionResult {
	seen := make(map[string]bool)
	var out []SectionResult
	for _, s := range sections {
		var rows []DisplayField
		for _, row := range s.Fields {
			key := dedupeKey(row)
			if seen[key] {
				continue
			}
			seen[key] = true
			rows = append(rows, row)
		}
		if len(rows) > 0 {
			out = append(out, SectionResult{Title: s.Title, Fields: rows})
		}
	}
	return out
}

// Package fields turns the flat field record of a finished run into ordered
// display sections: catalog lookup, value normalization, section assembly and
// deduplication.
package fields

// OtherSectionTitle is the catch-all section for fields no section claims
const OtherSectionTitle = "OTHER"

// Field describes one known field identifier
type Field struct {
	Name       string
	Label      string
	AlwaysShow bool              // Rendered as NotInformed instead of disappearing
	Enum       map[string]string // Raw enum token -> human phrase; nil for free-form fields
}

// Section is a named, ordered group of field identifiers
type Section struct {
	Title  string
	Fields []string
}

// Catalog is the static description of how fields are labeled and grouped.
// It is immutable after construction and safe for concurrent use.
type Catalog struct {
	sections []Section
	fields   map[string]Field
	enums    map[string]map[string]string // field -> canonical token -> phrase
	claimed  map[string]string            // field -> owning section title
	ignored  map[string]bool
}

// NewCatalog builds a catalog. A field listed by more than one section belongs
// to the first one; later claims are dropped.
func NewCatalog(sections []Section, fields []Field, ignore []string) *Catalog {
	c := &Catalog{
		fields:  make(map[string]Field, len(fields)),
		enums:   make(map[string]map[string]string),
		claimed: make(map[string]string),
		ignored: make(map[string]bool, len(ignore)),
	}

	for _, f := range fields {
		c.fields[f.Name] = f
		if len(f.Enum) > 0 {
			table := make(map[string]string, len(f.Enum))
			for token, phrase := range f.Enum {
				table[enumKey(token)] = phrase
			}
			c.enums[f.Name] = table
		}
	}

	for _, s := range sections {
		kept := Section{Title: s.Title}
		for _, name := range s.Fields {
			if _, taken := c.claimed[name]; taken {
				continue
			}
			c.claimed[name] = s.Title
			kept.Fields = append(kept.Fields, name)
		}
		c.sections = append(c.sections, kept)
	}

	for _, name := range ignore {
		c.ignored[name] = true
	}

	return c
}

// Sections returns the sections in declaration order
func (c *Catalog) Sections() []Section {
	out := make([]Section, len(c.sections))
	for i, s := range c.sections {
		out[i] = Section{Title: s.Title, Fields: append([]string(nil), s.Fields...)}
	}
	return out
}

// Label returns the display label of a field, humanizing unknown identifiers
func (c *Catalog) Label(name string) string {
	if f, ok := c.fields[name]; ok && f.Label != "" {
		return f.Label
	}
	return Humanize(name)
}

// AlwaysShow reports whether the field renders even without a value
func (c *Catalog) AlwaysShow(name string) bool {
	return c.fields[name].AlwaysShow
}

// Ignored reports whether the field is internal metadata
func (c *Catalog) Ignored(name string) bool {
	return c.ignored[name]
}

// SectionOf returns the title of the section that claims the field
func (c *Catalog) SectionOf(name string) (string, bool) {
	title, ok := c.claimed[name]
	return title, ok
}

// DefaultCatalog returns the catalog used for receipt term fields
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

var defaultCatalog = NewCatalog(defaultSections, defaultFields, defaultIgnored)

var deadlineCondition = map[string]string{
	"NO_PRAZO":        "On time",
	"DENTRO_DO_PRAZO": "On time",
	"ATRASADO":        "Late",
	"ANTECIPADO":      "Early",
	"PRORROGADO":      "Extended deadline",
}

var quantityCondition = map[string]string{
	"CONFORME":   "As contracted",
	"TOTAL":      "Full quantity",
	"PARCIAL":    "Partial delivery",
	"EXCEDENTE":  "Above contracted quantity",
	"DIVERGENTE": "Quantity mismatch",
}

var receiptType = map[string]string{
	"PROVISORIO": "Provisional",
	"DEFINITIVO": "Definitive",
}

var defaultFields = []Field{
	// Identification
	{Name: "numero_contrato", Label: "Contract Number", AlwaysShow: true},
	{Name: "processo_administrativo", Label: "Administrative Process"},
	{Name: "objeto_contrato", Label: "Contract Object"},
	{Name: "contratada", Label: "Contractor", AlwaysShow: true},
	{Name: "cnpj_contratada", Label: "Contractor CNPJ"},
	{Name: "orgao", Label: "Agency"},
	{Name: "tipo_recebimento", Label: "Receipt Type", Enum: receiptType},

	// Fiscal document
	{Name: "numero_nf", Label: "Invoice Number", AlwaysShow: true},
	{Name: "serie_nf", Label: "Invoice Series"},
	{Name: "data_emissao_nf", Label: "Invoice Issue Date"},
	{Name: "valor_nf", Label: "Invoice Amount"},
	{Name: "numero_empenho", Label: "Commitment Note"},
	{Name: "competencia", Label: "Reference Period"},

	// Delivery
	{Name: "data_entrega", Label: "Delivery Date"},
	{Name: "prazo_entrega", Label: "Delivery Deadline"},
	{Name: "condicao_prazo", Label: "Deadline Condition", Enum: deadlineCondition},
	{Name: "condicao_prazo_entrega", Label: "Deadline Condition", Enum: deadlineCondition},
	{Name: "condicao_quantidade", Label: "Quantity Condition", Enum: quantityCondition},
	{Name: "local_entrega", Label: "Delivery Location"},
	{Name: "itens_entregues", Label: "Delivered Items"},

	// Receipt
	{Name: "data_recebimento", Label: "Receipt Date"},
	{Name: "fiscal_contrato", Label: "Contract Inspector"},
	{Name: "gestor_contrato", Label: "Contract Manager"},
	{Name: "responsavel_recebimento", Label: "Received By"},

	// Notes
	{Name: "observacoes", Label: "Notes"},
	{Name: "pendencias", Label: "Pending Issues"},
}

var defaultSections = []Section{
	{Title: "IDENTIFICATION", Fields: []string{
		"numero_contrato", "processo_administrativo", "objeto_contrato",
		"contratada", "cnpj_contratada", "orgao", "tipo_recebimento",
	}},
	{Title: "FISCAL DOCUMENT", Fields: []string{
		"numero_nf", "serie_nf", "data_emissao_nf", "valor_nf",
		"numero_empenho", "competencia",
	}},
	{Title: "DELIVERY", Fields: []string{
		"data_entrega", "prazo_entrega", "condicao_prazo", "condicao_prazo_entrega",
		"condicao_quantidade", "local_entrega", "itens_entregues",
	}},
	{Title: "RECEIPT", Fields: []string{
		"data_recebimento", "fiscal_contrato", "gestor_contrato",
		"responsavel_recebimento",
	}},
	{Title: "NOTES", Fields: []string{"observacoes", "pendencias"}},
}

var defaultIgnored = []string{
	"id", "run_id", "org_id", "organization_id", "status",
	"created_at", "updated_at", "versao_schema", "schema_version",
	"modelo", "model", "tokens", "_meta",
}

package llm

import "strings"

// FieldType is the JSON type of an extracted field. Every field is also nullable.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldInteger FieldType = "integer"
	FieldNumber  FieldType = "number"
)

// FieldDef describes one extracted field.
type FieldDef struct {
	Name        string
	Label       string // display label used in prompts and ground truth files
	Hint        string // extra prompt guidance appended after the label
	Type        FieldType
	Description string
}

// Schema is the fixed contract an oracle answer must satisfy.
type Schema struct {
	Name    string
	Version string
	Fields  []FieldDef
}

var documentSchema = &Schema{
	Name:    "document_extraction",
	Version: "v1",
	Fields: []FieldDef{
		{Name: "bill_of_lading_number", Label: "Bill of lading number", Hint: `may appear as "Bill of lading NO" in the document`, Type: FieldString, Description: "The bill of lading number from the document"},
		{Name: "container_number", Label: "Container Number", Type: FieldString, Description: "The container number from the document"},
		{Name: "consignee_name", Label: "Consignee Name", Type: FieldString, Description: "The name of the consignee"},
		{Name: "consignee_address", Label: "Consignee Address", Type: FieldString, Description: "The address of the consignee"},
		{Name: "date_of_export", Label: "Date of export", Hint: "format as YYYY-MM-DD", Type: FieldString, Description: "The date of export in YYYY-MM-DD format"},
		{Name: "date", Label: "Date", Hint: "format as YYYY-MM-DD", Type: FieldString, Description: "The general date from the document in YYYY-MM-DD format"},
		{Name: "line_items_count", Label: "Line Items Count", Hint: "as an integer", Type: FieldInteger, Description: "The total number of line items"},
		{Name: "average_gross_weight", Label: "Average Gross Weight", Hint: "as a number in kilograms, extract numeric value only", Type: FieldNumber, Description: "The average gross weight across all items in kilograms"},
		{Name: "average_price", Label: "Average Price", Hint: "as a number in USD, extract numeric value only", Type: FieldNumber, Description: "The average price across all items in USD"},
	},
}

// DocumentSchema returns the trade document extraction schema.
func DocumentSchema() *Schema { return documentSchema }

// FieldNames returns the field names in schema order.
func (s *Schema) FieldNames() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Field looks a field up by name.
func (s *Schema) Field(name string) (FieldDef, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// Resolve maps a field name or display label (case-insensitive) to the field name.
func (s *Schema) Resolve(key string) (string, bool) {
	k := strings.TrimSpace(key)
	for _, f := range s.Fields {
		if f.Name == k || strings.EqualFold(f.Label, k) || strings.EqualFold(f.Name, k) {
			return f.Name, true
		}
	}
	return "", false
}

// JSONSchema renders the strict JSON Schema: every field required, nullable,
// and no additional properties.
func (s *Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Fields))
	required := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		props[f.Name] = map[string]any{
			"type":        []string{string(f.Type), "null"},
			"description": f.Description,
		}
		required = append(required, f.Name)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

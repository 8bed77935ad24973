package llm

import "strings"

const (
	textSystemPrompt   = "You are a helpful assistant that extracts structured data from documents."
	visionSystemPrompt = "You are a helpful assistant that extracts structured data from document images."
)

// BuildSystemPrompt returns the system message for the given modality.
func BuildSystemPrompt(m Modality) string {
	if m == ModalityVision {
		return visionSystemPrompt
	}
	return textSystemPrompt
}

// fieldList renders one bullet per field: "- Label (hint)".
func fieldList(s *Schema) string {
	var b strings.Builder
	for _, f := range s.Fields {
		b.WriteString("- ")
		b.WriteString(f.Label)
		if f.Hint != "" {
			b.WriteString(" (")
			b.WriteString(f.Hint)
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// BuildTextPrompt asks for the schema fields from merged document text.
func BuildTextPrompt(s *Schema, documentText string) string {
	var b strings.Builder
	b.WriteString("Extract the following information from the documents below:\n")
	b.WriteString(fieldList(s))
	b.WriteString("\nIf a field cannot be found, set it to null.\n")
	b.WriteString("Return dates as YYYY-MM-DD and numbers without units or currency symbols.\n")
	b.WriteString("\nDocuments:\n")
	b.WriteString(documentText)
	return b.String()
}

// BuildVisionPrompt asks for the schema fields from attached page images.
func BuildVisionPrompt(s *Schema, pages int) string {
	var b strings.Builder
	b.WriteString("Extract the following information from the attached document pages")
	if pages > 1 {
		b.WriteString(" (read all pages together)")
	}
	b.WriteString(":\n")
	b.WriteString(fieldList(s))
	b.WriteString("\nIf a field cannot be found, set it to null.\n")
	b.WriteString("Return dates as YYYY-MM-DD and numbers without units or currency symbols.")
	return b.String()
}

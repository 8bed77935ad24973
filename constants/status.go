package constants

// Provenance records which acquisition path produced a document's text.
type Provenance string

const (
	ProvenanceDirect Provenance = "direct"
	ProvenanceOCR    Provenance = "ocr"
)

// RunStatus is the canonical status stored for extraction and evaluation runs.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusPartial   RunStatus = "PARTIAL"  // at least one path or document failed
	RunStatusFailed    RunStatus = "FAILED"   // terminal failure
	RunStatusCanceled  RunStatus = "CANCELED" // interrupted between documents
)

const (
	// MinDirectTextChars is the trimmed length under which native PDF text is
	// treated as absent and the document is re-read through OCR.
	MinDirectTextChars = 50

	// OCRDPI and VisionDPI are the default rasterization resolutions.
	OCRDPI    = 300
	VisionDPI = 150

	// MaxVisionPagesDefault caps the number of page images sent in one vision call.
	MaxVisionPagesDefault = 20
)

package domain

// Mime types understood by the connector.
const (
	MimeFolder = "application/vnd.google-apps.folder"
	MimeDocx   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimePDF    = "application/pdf"
	MimePptx   = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MimePpt    = "application/vnd.ms-powerpoint"
)

// Kind is the closed set of document kinds the extractor can dispatch on.
type Kind int

const (
	KindUnsupported Kind = iota
	KindFolder
	KindDocx
	KindPDF
	KindSlides
	KindText
)

// KindOf maps a mime type string onto a Kind. Anything unrecognized is
// KindUnsupported, which degrades to a placeholder message downstream
// instead of an error.
func KindOf(mimeType string) Kind {
	switch mimeType {
	case MimeFolder:
		return KindFolder
	case MimeDocx:
		return KindDocx
	case MimePDF:
		return KindPDF
	case MimePptx, MimePpt:
		return KindSlides
	}
	if len(mimeType) >= 4 && mimeType[:4] == "text" {
		return KindText
	}
	return KindUnsupported
}

// String returns a short human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindFolder:
		return "folder"
	case KindDocx:
		return "docx"
	case KindPDF:
		return "pdf"
	case KindSlides:
		return "slides"
	case KindText:
		return "text"
	default:
		return "unsupported"
	}
}

// Extractable reports whether the kind has a text decoder.
func (k Kind) Extractable() bool {
	switch k {
	case KindDocx, KindPDF, KindSlides, KindText:
		return true
	default:
		return false
	}
}

package pdfsign

// Structural constants for the detached PKCS#7 signature dictionary and its
// widget annotation. Reservation widths live in config.SignConfig; these are
// the fixed vocabulary spec.md's signature dictionary shape names.
const (
	// SubFilter is the only signature format pdfmut produces.
	SubFilter = "adbe.pkcs7.detached"

	// FilterName is the /Filter entry of a signature dictionary.
	FilterName = "Adobe.PPKLite"

	// WidgetFlags is the /F entry retained on signature widget annotations
	// (Open Question a: kept as-is rather than reinterpreted).
	WidgetFlags = 132

	// AnnotSubtype is the /Subtype of the signature field's widget annotation.
	AnnotSubtype = "Widget"

	// FieldType marks the widget as a signature form field.
	FieldType = "Sig"

	// AcroFormSigFlags is written to /AcroForm /SigFlags once a document
	// carries at least one signature field (bit 1: SignaturesExist, bit 2:
	// AppendOnly).
	AcroFormSigFlags = 3

	// BlankAppearanceStream is the content stream of the n0 layer in the
	// four-object appearance stack: an empty visible layer beneath the
	// image layer.
	BlankAppearanceStream = "% DSBlank\n"

	// widgetNamePrefix is prepended to the random suffix minted for each
	// signature field's /T entry so distinct signatures never collide.
	widgetNamePrefix = "Signature"
)

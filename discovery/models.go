package discovery

// genericModelName replaces an empty model code in emitted records.
const genericModelName = "Bambu Printer"

// modelNames maps vendor model codes to human-readable names.
// Reference: BambuStudio resources/printers. Unknown codes pass
// through unchanged.
var modelNames = map[string]string{
	// X1 series
	"BL-P001": "X1 Carbon",
	"BL-P002": "X1",
	"C13":     "X1E",
	// P1 series
	"C11": "P1P",
	"C12": "P1S",
	// A1 series
	"N1":  "A1 Mini",
	"N2S": "A1",
	// P2 series
	"N7": "P2S",
	// H2 series
	"O1C":  "H2C",
	"O1C2": "H2C",
	"O1D":  "H2D",
	"O1E":  "H2D Pro",
	"O1S":  "H2S",
}

// FriendlyModel translates a vendor model code to its human-readable
// name. Unknown codes are returned unchanged; the empty code maps to
// the generic placeholder.
func FriendlyModel(code string) string {
	if code == "" {
		return genericModelName
	}
	if name, ok := modelNames[code]; ok {
		return name
	}
	return code
}

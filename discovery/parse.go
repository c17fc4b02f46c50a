package discovery

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// PrinterRecord is one discovered printer. Every field is populated in
// an emitted record: missing names are synthesized and missing models
// fall back to a generic placeholder.
type PrinterRecord struct {
	Name   string
	Serial string
	IP     string
	Model  string
}

// Candidate keys for the JSON-ish key scan, in priority order: the
// first key whose value is non-empty wins.
var (
	serialKeys = []string{"dev_sn", "sn", "serial"}
	modelKeys  = []string{"product_name", "model", "dev_product_name", "machine_type"}
	nameKeys   = []string{"dev_name", "machine_name", "name"}
)

// ParseResponse parses one discovery datagram into a record. Responses
// are free-form ASCII: JSON-ish key/value bodies, SSDP-style header
// lines, or both; extraction is layered and each layer only fills
// fields still unset. Non-UTF8 payloads are discarded. The source IP
// (port stripped) is always populated regardless of parse outcome.
func ParseResponse(data []byte, sourceAddr string) (PrinterRecord, bool) {
	rec := PrinterRecord{IP: stripPort(sourceAddr)}

	if !utf8.Valid(data) {
		return rec, false
	}
	text := string(data)

	rec.Serial = scanJSONKeys(text, serialKeys)
	rec.Model = scanJSONKeys(text, modelKeys)
	rec.Name = scanJSONKeys(text, nameKeys)

	scanHeaderLines(text, &rec)

	// Translate the vendor model code before synthesizing a name, so a
	// synthesized name carries the human-readable model.
	if rec.Model != "" {
		rec.Model = FriendlyModel(rec.Model)
	}
	if rec.Name == "" {
		rec.Name = synthesizeName(&rec)
	}
	if rec.Model == "" {
		rec.Model = genericModelName
	}

	return rec, true
}

// stripPort removes the port suffix from a source address.
func stripPort(addr string) string {
	if host, _, ok := strings.Cut(addr, ":"); ok {
		return host
	}
	return addr
}

// scanJSONKeys tries each candidate key in order and returns the first
// non-empty quoted value.
func scanJSONKeys(text string, keys []string) string {
	for _, key := range keys {
		pos := strings.Index(text, `"`+key+`"`)
		if pos < 0 {
			continue
		}
		if value, ok := extractJSONString(text[pos:]); ok && value != "" {
			return value
		}
	}
	return ""
}

// extractJSONString pulls the quoted value following a key, handling
// escaped quotes. Input starts at the key: `"key": "value"...`.
func extractJSONString(text string) (string, bool) {
	colon := strings.IndexByte(text, ':')
	if colon < 0 {
		return "", false
	}
	rest := text[colon+1:]

	open := strings.IndexByte(rest, '"')
	if open < 0 {
		return "", false
	}
	rest = rest[open+1:]

	var b strings.Builder
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '\\':
			if i+1 < len(rest) {
				b.WriteByte(rest[i+1])
				i++
			}
		case '"':
			return b.String(), true
		default:
			b.WriteByte(rest[i])
		}
	}
	return "", false
}

// scanHeaderLines applies the SSDP-style header extraction to fields
// still unset.
func scanHeaderLines(text string, rec *PrinterRecord) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)

		// USN carries the serial directly; a uuid: prefix is stripped
		// and anything from the first "::" on is dropped.
		if rec.Serial == "" && strings.HasPrefix(upper, "USN:") {
			usn := strings.TrimSpace(line[4:])
			if uuidPart, ok := strings.CutPrefix(usn, "uuid:"); ok {
				if end := strings.Index(uuidPart, "::"); end >= 0 {
					uuidPart = uuidPart[:end]
				}
				rec.Serial = uuidPart
			} else {
				rec.Serial = usn
			}
		}

		if rec.Model == "" {
			if v, ok := strings.CutPrefix(line, "DevModel.bambu.com:"); ok {
				rec.Model = strings.TrimSpace(v)
			}
		}
		if rec.Name == "" {
			if v, ok := strings.CutPrefix(line, "DevName.bambu.com:"); ok {
				rec.Name = strings.TrimSpace(v)
			}
		}

		// Generic fallbacks.
		if rec.Model == "" && (strings.HasPrefix(upper, "MODEL:") || strings.HasPrefix(upper, "X-MODEL:")) {
			rec.Model = headerValue(line)
		}
		if rec.Name == "" && (strings.HasPrefix(upper, "FRIENDLY-NAME:") || strings.HasPrefix(upper, "X-FRIENDLY-NAME:")) {
			rec.Name = headerValue(line)
		}
	}
}

// headerValue returns the trimmed text after the first colon.
func headerValue(line string) string {
	if _, v, ok := strings.Cut(line, ":"); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// synthesizeName builds a display name from whatever fields are known.
func synthesizeName(rec *PrinterRecord) string {
	switch {
	case rec.Serial != "" && rec.Model != "":
		return fmt.Sprintf("%s (%s)", rec.Model, shortSerial(rec.Serial))
	case rec.Model != "":
		return fmt.Sprintf("%s at %s", rec.Model, rec.IP)
	case rec.Serial != "":
		return fmt.Sprintf("Printer %s", shortSerial(rec.Serial))
	default:
		return fmt.Sprintf("%s at %s", genericModelName, rec.IP)
	}
}

// shortSerial returns the last 6 characters of a serial.
func shortSerial(serial string) string {
	if len(serial) > 6 {
		return serial[len(serial)-6:]
	}
	return serial
}

package dossier

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const isoDate = "2006-01-02"

var (
	isoDatePattern     = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	displayDatePattern = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})$`)
	leadingDecimal     = regexp.MustCompile(`^(\d+(?:[.,]\d+)?|[.,]\d+)`)
	leadingInteger     = regexp.MustCompile(`^\d+`)
	groupedThousands   = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+\b`)
)

// ToISODate converts a DD/MM/YYYY date (also with "-" or "." separators) to
// YYYY-MM-DD. ISO input passes through normalized. Absent or invalid input
// yields the date of now, since the schema requires a valid date.
func ToISODate(value string, now time.Time) string {
	value = strings.TrimSpace(value)

	var year, month, day string
	if m := isoDatePattern.FindStringSubmatch(value); m != nil {
		year, month, day = m[1], m[2], m[3]
	} else if m := displayDatePattern.FindStringSubmatch(value); m != nil {
		day, month, year = m[1], m[2], m[3]
	} else {
		return now.Format(isoDate)
	}

	t, err := time.Parse(isoDate, year+"-"+pad2(month)+"-"+pad2(day))
	if err != nil {
		return now.Format(isoDate)
	}
	return t.Format(isoDate)
}

// ToDisplayDate converts YYYY-MM-DD to DD/MM/YYYY; other input is returned
// unchanged
func ToDisplayDate(iso string) string {
	t, err := time.Parse(isoDate, strings.TrimSpace(iso))
	if err != nil {
		return iso
	}
	return t.Format("02/01/2006")
}

// PadDecimal reads the leading number of value, formats it with two
// decimals and left-pads it with zeros to width. Unparseable input is 0.
// A comma is read as the decimal separator.
func PadDecimal(value string, width int) string {
	var n float64
	if m := leadingDecimal.FindString(strings.TrimSpace(value)); m != "" {
		if v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64); err == nil {
			n = v
		}
	}
	return padLeft(strconv.FormatFloat(n, 'f', 2, 64), width)
}

// PadCount reads the leading integer of value and left-pads it with zeros
// to width. Absent, unparseable or zero values use fallback. Dotted
// thousands ("1.350 kg") are read as one number.
func PadCount(value string, fallback, width int) string {
	value = strings.TrimSpace(value)
	if g := groupedThousands.FindString(value); g != "" {
		value = strings.ReplaceAll(g, ".", "")
	}

	n := 0
	if m := leadingInteger.FindString(value); m != "" {
		if v, err := strconv.Atoi(m); err == nil {
			n = v
		}
	}
	if n == 0 {
		n = fallback
	}
	return padLeft(strconv.Itoa(n), width)
}

// Fuel codes of the CTIT schema
const (
	FuelPetrol   = "GA"
	FuelDiesel   = "GO"
	FuelElectric = "EL"
	FuelHybrid   = "HI"
)

// FuelCode maps a free-text fuel description to its two-letter code.
// Matching is by substring, ignoring case and accents; unknown is petrol.
func FuelCode(fuel string) string {
	folded := fold(fuel)
	switch {
	case strings.Contains(folded, "gasolina"):
		return FuelPetrol
	case strings.Contains(folded, "diesel"), strings.Contains(folded, "gasoil"):
		return FuelDiesel
	case strings.Contains(folded, "electrico"):
		return FuelElectric
	case strings.Contains(folded, "hibrido"):
		return FuelHybrid
	default:
		return FuelPetrol
	}
}

// Filename is the dossier file name for a prefix such as "CTIT"
func Filename(prefix string, now time.Time) string {
	return prefix + "_" + CompactTimestamp(now) + ".xml"
}

// CompactTimestamp formats t in UTC as YYYYMMDDhhmmss
func CompactTimestamp(t time.Time) string {
	return t.UTC().Format("20060102150405")
}

// fold lower-cases s and strips combining marks
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

func pad2(s string) string {
	return padLeft(s, 2)
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

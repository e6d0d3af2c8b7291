package parse

import (
	"regexp"
	"strings"
)

const (
	// DefaultStreetType is used when the street line has no recognised prefix
	DefaultStreetType = "CALLE"
	// DefaultStreetNumber marks an address without a street number
	DefaultStreetNumber = "0"
	// DefaultPostalCode marks a locality line without a postal code
	DefaultPostalCode = "00000"
)

var (
	structuredStreet = regexp.MustCompile(
		`(?i)^(CALLE|C/|AVDA|AVENIDA|PLAZA|PL|PASEO|PSO)\s+(.+?)(?:\s+(\d+))?(?:\s*,?\s*(\d+)º?\s*([A-Z]?))?$`)
	nameAndNumber = regexp.MustCompile(`^(.+?)\s+(\d+)`)
	postalCode    = regexp.MustCompile(`\d{5}`)
)

// streetTypes maps abbreviations to the long form used by the traffic authority
var streetTypes = map[string]string{
	"C/":   "CALLE",
	"AVDA": "AVENIDA",
	"PL":   "PLAZA",
	"PSO":  "PASEO",
}

// Address is a postal address decomposed into the fields of the CTIT schema
type Address struct {
	StreetType   string
	StreetName   string
	StreetNumber string
	Floor        string
	Door         string
	PostalCode   string
	ProvinceCode string
}

// ParseAddress decomposes a street line plus a locality line. It never fails:
// unrecognised input degrades to the whole line as street name, number "0"
// and postal code "00000".
func ParseAddress(street, locality string) Address {
	street = strings.TrimSpace(street)
	locality = strings.TrimSpace(locality)

	addr := parseStreet(street)
	addr.PostalCode = DefaultPostalCode
	if cp := postalCode.FindString(locality); cp != "" {
		addr.PostalCode = cp
	}
	addr.ProvinceCode = addr.PostalCode[:2]
	return addr
}

// Municipality approximates the municipality code as postal code + "00".
// It is not a lookup against the official municipality table.
func (a Address) Municipality() string {
	return a.PostalCode + "00"
}

func parseStreet(street string) Address {
	if m := structuredStreet.FindStringSubmatch(street); m != nil {
		streetType := strings.ToUpper(m[1])
		if long, ok := streetTypes[streetType]; ok {
			streetType = long
		}
		number := m[3]
		if number == "" {
			number = DefaultStreetNumber
		}
		return Address{
			StreetType:   streetType,
			StreetName:   strings.ToUpper(m[2]),
			StreetNumber: number,
			Floor:        m[4],
			Door:         strings.ToUpper(m[5]),
		}
	}

	if m := nameAndNumber.FindStringSubmatch(street); m != nil {
		return Address{
			StreetType:   DefaultStreetType,
			StreetName:   strings.ToUpper(strings.TrimRight(m[1], " ,")),
			StreetNumber: m[2],
		}
	}

	return Address{
		StreetType:   DefaultStreetType,
		StreetName:   strings.ToUpper(street),
		StreetNumber: DefaultStreetNumber,
	}
}

package types

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Address mirrors the address_t composite Postgres type.
type Address struct {
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	GeoHash    *string `json:"geohash,omitempty"`
}

// Value marshals Address into a Postgres composite literal.
func (a Address) Value() (driver.Value, error) {
	if strings.TrimSpace(a.Line1) == "" {
		return nil, fmt.Errorf("address: missing line1")
	}
	if strings.TrimSpace(a.City) == "" {
		return nil, fmt.Errorf("address: missing city")
	}
	if strings.TrimSpace(a.State) == "" {
		return nil, fmt.Errorf("address: missing state")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		return nil, fmt.Errorf("address: missing postal_code")
	}

	country := strings.TrimSpace(a.Country)
	if country == "" {
		country = "IN"
	}

	parts := []string{
		quoteField(a.Line1),
		quoteOptional(a.Line2),
		quoteField(a.City),
		quoteField(a.State),
		quoteField(a.PostalCode),
		quoteField(country),
		strconv.FormatFloat(a.Lat, 'f', -1, 64),
		strconv.FormatFloat(a.Lng, 'f', -1, 64),
		quoteOptional(a.GeoHash),
	}

	return "(" + strings.Join(parts, ",") + ")", nil
}

// Scan decodes the Postgres composite literal.
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}

	raw, ok := toString(value)
	if !ok {
		return fmt.Errorf("address: unsupported scan type %T", value)
	}

	fields, err := splitComposite(raw, 9)
	if err != nil {
		return err
	}

	a.Line1 = fields[0]
	a.Line2 = optionalField(fields[1])
	a.City = fields[2]
	a.State = fields[3]
	a.PostalCode = fields[4]

	country := strings.TrimSpace(fields[5])
	if country == "" || isNullField(fields[5]) {
		country = "IN"
	}
	a.Country = country

	if fields[6] == "" || isNullField(fields[6]) {
		return fmt.Errorf("address: lat missing")
	}
	lat, err := strconv.ParseFloat(fields[6], 64)
	if err != nil {
		return fmt.Errorf("address: parse lat %w", err)
	}
	a.Lat = lat

	if fields[7] == "" || isNullField(fields[7]) {
		return fmt.Errorf("address: lng missing")
	}
	lng, err := strconv.ParseFloat(fields[7], 64)
	if err != nil {
		return fmt.Errorf("address: parse lng %w", err)
	}
	a.Lng = lng

	a.GeoHash = optionalField(fields[8])

	return nil
}

func toString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}

func quoteField(value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
	return `"` + escaped + `"`
}

func quoteOptional(value *string) string {
	if value == nil {
		return "NULL"
	}
	return quoteField(*value)
}

func isNullField(value string) bool {
	return strings.EqualFold(value, "NULL")
}

func optionalField(value string) *string {
	if isNullField(value) {
		return nil
	}
	v := value
	return &v
}

// splitComposite tears a Postgres row literal like ("a",NULL,"b") into its
// fields, honoring quoting and backslash escapes inside quoted fields.
func splitComposite(raw string, want int) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) < 2 || raw[0] != '(' || raw[len(raw)-1] != ')' {
		return nil, fmt.Errorf("composite: invalid format %q", raw)
	}

	fields := make([]string, 0, want)
	var field strings.Builder
	quoted := false
	escaped := false
	for _, ch := range []byte(raw[1 : len(raw)-1]) {
		switch {
		case escaped:
			field.WriteByte(ch)
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '"':
			quoted = !quoted
		case ch == ',' && !quoted:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteByte(ch)
		}
	}
	fields = append(fields, field.String())

	if want > 0 && len(fields) != want {
		return nil, fmt.Errorf("composite: got %d fields, want %d", len(fields), want)
	}
	return fields, nil
}

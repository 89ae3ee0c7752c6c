package types

import "strings"

// textTypes lists the character data types whose columns carry charset and
// collation metadata.
var textTypes = map[string]bool{
	"CHAR":              true,
	"VARCHAR":           true,
	"NCHAR":             true,
	"NVARCHAR":          true,
	"CHARACTER":         true,
	"CHARACTER VARYING": true,
	"TEXT":              true,
	"TINYTEXT":          true,
	"MEDIUMTEXT":        true,
	"LONGTEXT":          true,
	"ENUM":              true,
	"SET":               true,
	"CITEXT":            true,
}

// IsTextType reports whether dataType is a character type. Matching is
// case-insensitive and ignores a trailing length or value list, so
// "varchar(255)" and "ENUM('a','b')" are both text.
func IsTextType(dataType string) bool {
	t := strings.TrimSpace(dataType)
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return textTypes[strings.ToUpper(t)]
}

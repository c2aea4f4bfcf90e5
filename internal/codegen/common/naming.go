package common

import (
	"strconv"
	"strings"
	"unicode"
)

// GeneratedHeader opens every generated .proto, .cpp and .h file.
const GeneratedHeader = "/* THIS FILE WAS GENERATED. DO NOT EDIT. */"

// SnakeToCamelCase uppercases the first letter and every lowercase letter
// following an underscore, dropping that underscore.
// Examples: "unit" -> "Unit", "history_event" -> "HistoryEvent", "item_2" -> "Item_2"
func SnakeToCamelCase(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	runes := []rune(s)
	b.WriteRune(unicode.ToUpper(runes[0]))
	for i := 1; i < len(runes); i++ {
		r := runes[i]
		if r == '_' && i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z' {
			b.WriteRune(unicode.ToUpper(runes[i+1]))
			i++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// LuaToCpp turns an instance-vector path of the structure definitions into
// a C++ expression.
// Example: "$global.world.units.all" -> "df::global::world->units.all"
func LuaToCpp(s string) string {
	s = strings.ReplaceAll(s, "$global.", "df::global::")
	s = strings.Replace(s, ".", "->", 1)
	return strings.ReplaceAll(s, "world_data.", "world_data->")
}

// EnumValueName names a protobuf enum value. Enum values share the scope
// of their enclosing message or file, so they are prefixed with the enum
// name. Unnamed items are named after their value ("-" becomes "m").
func EnumValueName(enum, item string, value int64) string {
	if item == "" {
		return enum + "_anon_" + strings.ReplaceAll(strconv.FormatInt(value, 10), "-", "m")
	}
	return enum + "_" + item
}

// Accessor returns the name protoc gives the C++ accessors of a field.
func Accessor(field string) string {
	return strings.ToLower(field)
}

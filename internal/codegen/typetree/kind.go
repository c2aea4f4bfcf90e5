package typetree

// Kind classifies a node of the structure-definition tree.
type Kind int

const (
	KindInvalid Kind = iota
	KindPrimitive
	KindNumber
	KindEnumRef
	KindContainer
	KindPointer
	KindCompound
	KindGlobalRef
	KindStructType
	KindClassType
	KindEnumType
	KindBitfieldType
)

var kindNames = map[Kind]string{
	KindInvalid:      "invalid",
	KindPrimitive:    "primitive",
	KindNumber:       "number",
	KindEnumRef:      "enum-ref",
	KindContainer:    "container",
	KindPointer:      "pointer",
	KindCompound:     "compound",
	KindGlobalRef:    "global-ref",
	KindStructType:   "struct-type",
	KindClassType:    "class-type",
	KindEnumType:     "enum-type",
	KindBitfieldType: "bitfield-type",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// IsTopLevel reports whether k is one of the independently compiled type kinds.
func (k Kind) IsTopLevel() bool {
	switch k {
	case KindStructType, KindClassType, KindEnumType, KindBitfieldType:
		return true
	}
	return false
}

// MarshalText lets inspect output print kinds by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func topLevelKind(meta string) Kind {
	switch meta {
	case "struct-type":
		return KindStructType
	case "class-type":
		return KindClassType
	case "enum-type":
		return KindEnumType
	case "bitfield-type":
		return KindBitfieldType
	}
	return KindInvalid
}

// fieldKind maps an ld:meta/ld:subtype pair of a field or item element.
// The returned subtype is normalized for the primitive spellings that the
// lowering step emits as separate metas.
func fieldKind(meta, subtype string) (Kind, string) {
	switch meta {
	case "primitive":
		return KindPrimitive, subtype
	case "bytes":
		if subtype == "" {
			subtype = "buffer"
		}
		return KindPrimitive, subtype
	case "static-string", "padding":
		return KindPrimitive, meta
	case "number":
		return KindNumber, subtype
	case "global":
		if subtype == "enum" {
			return KindEnumRef, subtype
		}
		return KindGlobalRef, subtype
	case "container":
		return KindContainer, subtype
	case "static-array":
		return KindContainer, meta
	case "pointer":
		return KindPointer, subtype
	case "compound":
		return KindCompound, subtype
	}
	return KindInvalid, subtype
}

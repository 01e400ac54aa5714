package attr

// Well-known advertisement record keys (spec.md §3).
const (
	KeyLocalName          = "local-name"
	KeyServiceUUIDs       = "service-UUIDs"
	KeySolicitedServiceIDs = "solicited-service-UUIDs"
	KeyOverflowServiceIDs  = "overflow-service-UUIDs"
	KeyManufacturerData   = "manufacturer-data"
	KeyServiceData        = "service-data"
	KeyTxPowerLevel       = "tx-power-level"
	KeyIsConnectable      = "is-connectable"
)

// ValueKind tags the sum type carried by a Value. Keeping the tag explicit
// (rather than a bare `any`) lets the transport package serialize an
// advertisement record without reflection-based type switches at the wire
// boundary, and lets in-process code type-switch exhaustively.
type ValueKind int

const (
	KindString ValueKind = iota
	KindUUIDs
	KindBytes
	KindServiceData
	KindInt
	KindBool
)

// Value is a sum-typed advertisement field value: string | []UUID | []byte |
// map[UUID][]byte | int | bool. Only the field matching Kind is meaningful.
type Value struct {
	Kind        ValueKind
	Str         string
	UUIDs       []UUID
	Bytes       []byte
	ServiceData map[string][]byte // UUID string -> bytes, keyed by String() for comparability
	Int         int
	Bool        bool
}

func StringValue(s string) Value         { return Value{Kind: KindString, Str: s} }
func UUIDsValue(u []UUID) Value          { return Value{Kind: KindUUIDs, UUIDs: append([]UUID(nil), u...)} }
func BytesValue(b []byte) Value          { return Value{Kind: KindBytes, Bytes: append([]byte(nil), b...)} }
func IntValue(i int) Value               { return Value{Kind: KindInt, Int: i} }
func BoolValue(b bool) Value             { return Value{Kind: KindBool, Bool: b} }
func ServiceDataValue(m map[string][]byte) Value {
	cp := make(map[string][]byte, len(m))
	for k, v := range m {
		cp[k] = append([]byte(nil), v...)
	}
	return Value{Kind: KindServiceData, ServiceData: cp}
}

// Record is the mapping from well-known string keys to typed values that a
// peripheral broadcasts. The bus stores a Record verbatim and never mutates
// caller-supplied keys (spec.md §3).
type Record map[string]Value

// Clone copies the record's map, so adding, removing or replacing keys in
// one copy does not affect the other. The slices and maps inside each
// Value are shared with r, not copied.
func (r Record) Clone() Record {
	cp := make(Record, len(r))
	for k, v := range r {
		cp[k] = v // Value fields are copied by value; slices/maps inside were
		// already defensively copied by the constructors above.
	}
	return cp
}

// ServiceUUIDs returns the KeyServiceUUIDs field, or nil if absent or of
// the wrong kind.
func (r Record) ServiceUUIDs() []UUID {
	v, ok := r[KeyServiceUUIDs]
	if !ok || v.Kind != KindUUIDs {
		return nil
	}
	return v.UUIDs
}

// SolicitedServiceUUIDs returns the KeySolicitedServiceIDs field, or nil.
func (r Record) SolicitedServiceUUIDs() []UUID {
	v, ok := r[KeySolicitedServiceIDs]
	if !ok || v.Kind != KindUUIDs {
		return nil
	}
	return v.UUIDs
}

// LocalName returns the KeyLocalName field, or "" if absent.
func (r Record) LocalName() string {
	v, ok := r[KeyLocalName]
	if !ok || v.Kind != KindString {
		return ""
	}
	return v.Str
}

// Has reports whether key is present in the record.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// IntersectsUUIDs reports whether a and b share at least one UUID.
func IntersectsUUIDs(a, b []UUID) bool {
	for _, x := range a {
		for _, y := range b {
			if x.Equal(y) {
				return true
			}
		}
	}
	return false
}

package attr

// Property is the set of GATT characteristic properties a central can
// observe. It is a superset of the wire-level Bluetooth property octet:
// NotifyEncryptionRequired and IndicateEncryptionRequired are CoreBluetooth
// additions with no Bluetooth-spec bit of their own, so Property is defined
// independently of go-ble/ble's Property rather than reusing it directly.
type Property uint16

const (
	PropBroadcast Property = 1 << iota
	PropRead
	PropWriteWithoutResponse
	PropWrite
	PropNotify
	PropIndicate
	PropAuthenticatedSignedWrites
	PropExtendedProperties
	PropNotifyEncryptionRequired
	PropIndicateEncryptionRequired
)

// Has reports whether p includes every flag in want.
func (p Property) Has(want Property) bool {
	return p&want == want
}

// Any reports whether p includes at least one flag in want.
func (p Property) Any(want Property) bool {
	return p&want != 0
}

var propertyNames = []struct {
	flag Property
	name string
}{
	{PropBroadcast, "broadcast"},
	{PropRead, "read"},
	{PropWriteWithoutResponse, "writeWithoutResponse"},
	{PropWrite, "write"},
	{PropNotify, "notify"},
	{PropIndicate, "indicate"},
	{PropAuthenticatedSignedWrites, "authenticatedSignedWrites"},
	{PropExtendedProperties, "extendedProperties"},
	{PropNotifyEncryptionRequired, "notifyEncryptionRequired"},
	{PropIndicateEncryptionRequired, "indicateEncryptionRequired"},
}

// String renders the set flags, comma-separated, in declaration order.
func (p Property) String() string {
	s := ""
	for _, pn := range propertyNames {
		if p.Any(pn.flag) {
			if s != "" {
				s += ","
			}
			s += pn.name
		}
	}
	if s == "" {
		return "none"
	}
	return s
}

// Permission is the set of ATT-level access permissions on an attribute.
type Permission uint8

const (
	PermReadable Permission = 1 << iota
	PermWriteable
	PermReadEncryptionRequired
	PermWriteEncryptionRequired
)

// Has reports whether p includes every flag in want.
func (p Permission) Has(want Permission) bool {
	return p&want == want
}

// DefaultDescriptorPermission is the only permission set the emulator
// assigns descriptors: readable and writeable are not independently
// negotiable here, matching the source this spec was distilled from (see
// DESIGN.md, "Open Questions").
const DefaultDescriptorPermission = PermReadable | PermWriteable

package bus

import "fmt"

// ATTCode enumerates the attribute-protocol error codes a Bus attribute
// operation can fail with (spec.md §7).
type ATTCode int

const (
	ATTInvalidHandle ATTCode = iota
	ATTReadNotPermitted
	ATTWriteNotPermitted
	ATTInvalidPDU
	ATTInsufficientAuthentication
	ATTRequestNotSupported
	ATTInvalidOffset
	ATTInsufficientAuthorization
	ATTPrepareQueueFull
	ATTAttributeNotFound
	ATTAttributeNotLong
	ATTInsufficientEncryptionKeySize
	ATTInvalidAttributeValueLength
	ATTUnlikelyError
	ATTInsufficientEncryption
	ATTUnsupportedGroupType
	ATTInsufficientResources
)

var attCodeNames = map[ATTCode]string{
	ATTInvalidHandle:                 "invalidHandle",
	ATTReadNotPermitted:              "readNotPermitted",
	ATTWriteNotPermitted:             "writeNotPermitted",
	ATTInvalidPDU:                    "invalidPdu",
	ATTInsufficientAuthentication:    "insufficientAuthentication",
	ATTRequestNotSupported:           "requestNotSupported",
	ATTInvalidOffset:                 "invalidOffset",
	ATTInsufficientAuthorization:     "insufficientAuthorization",
	ATTPrepareQueueFull:              "prepareQueueFull",
	ATTAttributeNotFound:             "attributeNotFound",
	ATTAttributeNotLong:              "attributeNotLong",
	ATTInsufficientEncryptionKeySize: "insufficientEncryptionKeySize",
	ATTInvalidAttributeValueLength:   "invalidAttributeValueLength",
	ATTUnlikelyError:                 "unlikelyError",
	ATTInsufficientEncryption:        "insufficientEncryption",
	ATTUnsupportedGroupType:          "unsupportedGroupType",
	ATTInsufficientResources:         "insufficientResources",
}

// AttError is an attribute-protocol error. It implements Is so that
// errors.Is(err, bus.ErrReadNotPermitted) works regardless of wrapping,
// mirroring the teacher's device.ConnectionError pattern
// (internal/device/device.go).
type AttError struct {
	Code ATTCode
}

func (e *AttError) Error() string {
	if name, ok := attCodeNames[e.Code]; ok {
		return name
	}
	return fmt.Sprintf("att error %d", int(e.Code))
}

func (e *AttError) Is(target error) bool {
	t, ok := target.(*AttError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewAttError builds an *AttError with the given code.
func NewAttError(code ATTCode) *AttError { return &AttError{Code: code} }

// Sentinel AttError values for use with errors.Is.
var (
	ErrReadNotPermitted           = NewAttError(ATTReadNotPermitted)
	ErrWriteNotPermitted          = NewAttError(ATTWriteNotPermitted)
	ErrInsufficientAuthentication = NewAttError(ATTInsufficientAuthentication)
	ErrAttributeNotFound          = NewAttError(ATTAttributeNotFound)
	ErrInsufficientEncryption     = NewAttError(ATTInsufficientEncryption)
)

// ConnCode enumerates the connection-layer error codes (spec.md §7).
type ConnCode int

const (
	ConnFailed ConnCode = iota
	ConnTimeout
	ConnPeripheralDisconnected
	ConnNotConnected
	ConnLimitReached
	ConnUnknownDevice
	ConnOperationNotSupported
	ConnPeerRemovedPairingInformation
	ConnEncryptionTimedOut
	ConnTooManyLEPairedDevices
	ConnAlreadyAdvertising
	ConnUUIDNotAllowed
	ConnOutOfSpace
	ConnInvalidParameters
	ConnOperationCancelled
)

var connCodeNames = map[ConnCode]string{
	ConnFailed:                        "connectionFailed",
	ConnTimeout:                       "connectionTimeout",
	ConnPeripheralDisconnected:        "peripheralDisconnected",
	ConnNotConnected:                  "notConnected",
	ConnLimitReached:                  "connectionLimitReached",
	ConnUnknownDevice:                 "unknownDevice",
	ConnOperationNotSupported:         "operationNotSupported",
	ConnPeerRemovedPairingInformation: "peerRemovedPairingInformation",
	ConnEncryptionTimedOut:            "encryptionTimedOut",
	ConnTooManyLEPairedDevices:        "tooManyLEPairedDevices",
	ConnAlreadyAdvertising:            "alreadyAdvertising",
	ConnUUIDNotAllowed:                "uuidNotAllowed",
	ConnOutOfSpace:                    "outOfSpace",
	ConnInvalidParameters:             "invalidParameters",
	ConnOperationCancelled:            "operationCancelled",
}

// ConnError is a connection-layer error. Like AttError it implements Is for
// errors.Is-based matching.
type ConnError struct {
	Code ConnCode
}

func (e *ConnError) Error() string {
	if name, ok := connCodeNames[e.Code]; ok {
		return name
	}
	return fmt.Sprintf("connection error %d", int(e.Code))
}

func (e *ConnError) Is(target error) bool {
	t, ok := target.(*ConnError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewConnError builds a *ConnError with the given code.
func NewConnError(code ConnCode) *ConnError { return &ConnError{Code: code} }

// Sentinel ConnError values for use with errors.Is.
var (
	ErrConnectionFailed          = NewConnError(ConnFailed)
	ErrNotConnected              = NewConnError(ConnNotConnected)
	ErrUnknownDevice             = NewConnError(ConnUnknownDevice)
	ErrOperationNotSupported     = NewConnError(ConnOperationNotSupported)
	ErrOperationCancelled        = NewConnError(ConnOperationCancelled)
	ErrInvalidParameters         = NewConnError(ConnInvalidParameters)
	ErrAlreadyAdvertising        = NewConnError(ConnAlreadyAdvertising)
)

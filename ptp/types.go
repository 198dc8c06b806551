// Package ptp implements the Picture Transfer Protocol engine: the
// request/data/response transaction state machine, pluggable data
// handlers, and the object, property and event caches that sit on top
// of it. Concrete transports for USB and PTP/IP live in usb.go and
// ptpip.go; ops.go and friends show how to implement further
// operations.
package ptp

import (
	"io"
	"time"
)

// Container is the data type for sending/receiving PTP requests and
// responses.
type Container struct {
	Code          uint16
	SessionID     uint32
	TransactionID uint32
	Param         []uint32
}

// maxParams is the number of parameters a bulk container can carry.
const maxParams = 5

// Event is an asynchronous notification from the device.
type Event struct {
	Code          uint16
	SessionID     uint32
	TransactionID uint32
	Param         []uint32
}

// P returns parameter i, or 0 if the device did not send it.
func (e *Event) P(i int) uint32 {
	if i < len(e.Param) {
		return e.Param[i]
	}
	return 0
}

type DeviceInfo struct {
	StandardVersion           uint16
	VendorExtensionID         uint32
	VendorExtensionVersion    uint16
	VendorExtensionDesc       string
	FunctionalMode            uint16
	OperationsSupported       []uint16
	EventsSupported           []uint16
	DevicePropertiesSupported []uint16
	CaptureFormats            []uint16
	PlaybackFormats           []uint16
	Manufacturer              string
	Model                     string
	DeviceVersion             string
	SerialNumber              string
}

// DataTypeSelector is the special type to indicate the actual type of
// fields of DataDependentType.
type DataTypeSelector uint16
type DataDependentType interface{}

// The Decoder interface is for types that need special decoding
// support, eg. the ones using DataDependentType.
type Decoder interface {
	Decode(r io.Reader) error
}

type Encoder interface {
	Encode(w io.Writer) error
}

type PropDescRangeForm struct {
	MinimumValue DataDependentType
	MaximumValue DataDependentType
	StepSize     DataDependentType
}

type PropDescEnumForm struct {
	Values []DataDependentType
}

type DevicePropDescFixed struct {
	DevicePropertyCode  uint16
	DataType            DataTypeSelector
	GetSet              uint8
	FactoryDefaultValue DataDependentType
	CurrentValue        DataDependentType
	FormFlag            uint8
}

type DevicePropDesc struct {
	DevicePropDescFixed
	Form interface{}
}

// SonyDevicePropDescFixed is the Sony variant of the descriptor, with
// an enable flag after GetSet.
type SonyDevicePropDescFixed struct {
	DevicePropertyCode  uint16
	DataType            DataTypeSelector
	GetSet              uint8
	IsEnabled           uint8
	FactoryDefaultValue DataDependentType
	CurrentValue        DataDependentType
	FormFlag            uint8
}

type SonyDevicePropDesc struct {
	SonyDevicePropDescFixed
	Form interface{}
}

// Standard converts to the generic descriptor.
func (d *SonyDevicePropDesc) Standard() DevicePropDesc {
	return DevicePropDesc{
		DevicePropDescFixed: DevicePropDescFixed{
			DevicePropertyCode:  d.DevicePropertyCode,
			DataType:            d.DataType,
			GetSet:              d.GetSet,
			FactoryDefaultValue: d.FactoryDefaultValue,
			CurrentValue:        d.CurrentValue,
			FormFlag:            d.FormFlag,
		},
		Form: d.Form,
	}
}

type ObjectPropDescFixed struct {
	ObjectPropertyCode  uint16
	DataType            DataTypeSelector
	GetSet              uint8
	FactoryDefaultValue DataDependentType
	GroupCode           uint32
	FormFlag            uint8
}

type ObjectPropDesc struct {
	ObjectPropDescFixed
	Form interface{}
}

// ObjectProp is one element of an MTP object property list.
type ObjectProp struct {
	Handle   uint32
	Code     uint16
	DataType DataTypeSelector
	Value    DataDependentType
}

type ObjectPropList struct {
	Props []ObjectProp
}

type Uint32Array struct {
	Values []uint32
}

type Uint16Array struct {
	Values []uint16
}

type Uint64Value struct {
	Value uint64
}

type StringValue struct {
	Value string
}

type StorageInfo struct {
	StorageType        uint16
	FilesystemType     uint16
	AccessCapability   uint16
	MaxCapability      uint64
	FreeSpaceInBytes   uint64
	FreeSpaceInImages  uint32
	StorageDescription string
	VolumeLabel        string
}

func (d *StorageInfo) IsHierarchical() bool {
	return d.FilesystemType == FST_GenericHierarchical
}

func (d *StorageInfo) IsRemovable() bool {
	return (d.StorageType == ST_RemovableROM ||
		d.StorageType == ST_RemovableRAM)
}

type ObjectInfo struct {
	StorageID           uint32
	ObjectFormat        uint16
	ProtectionStatus    uint16
	CompressedSize      uint32
	ThumbFormat         uint16
	ThumbCompressedSize uint32
	ThumbPixWidth       uint32
	ThumbPixHeight      uint32
	ImagePixWidth       uint32
	ImagePixHeight      uint32
	ImageBitDepth       uint32
	ParentObject        uint32
	AssociationType     uint16
	AssociationDesc     uint32
	SequenceNumber      uint32
	Filename            string
	CaptureDate         time.Time
	ModificationDate    time.Time
	Keywords            string
}

// IsDir reports whether the object is a folder.
func (i *ObjectInfo) IsDir() bool {
	return i.ObjectFormat == OFC_Association
}

// CanonFolderEntry is one record of the Canon GetFolderEntries
// dataset. The wire layout is packed.
type CanonFolderEntry struct {
	ObjectHandle     uint32
	ObjectFormatCode uint16
	Flags            uint8
	ObjectSize       uint32
	Time             uint32
	Filename         [13]byte
}

const canonFolderEntryLen = 4 + 2 + 1 + 4 + 4 + 13

// USB stuff.

type usbBulkHeader struct {
	Length        uint32
	Type          uint16
	Code          uint16
	TransactionID uint32
}

type usbBulkContainer struct {
	usbBulkHeader
	Param [maxParams]uint32
}

const usbHdrLen = 2*2 + 2*4
const usbBulkLen = maxParams*4 + usbHdrLen

package ptp

// USB container types.
const (
	USB_CONTAINER_UNDEFINED = 0x0
	USB_CONTAINER_COMMAND   = 0x1
	USB_CONTAINER_DATA      = 0x2
	USB_CONTAINER_RESPONSE  = 0x3
	USB_CONTAINER_EVENT     = 0x4
)

var USB_names = map[int]string{
	0x0: "UNDEFINED",
	0x1: "COMMAND",
	0x2: "DATA",
	0x3: "RESPONSE",
	0x4: "EVENT",
}

// USB still image class requests.
const (
	USB_REQ_CANCEL            = 0x64
	USB_REQ_GET_EXTENDED_DATA = 0x65
	USB_REQ_DEVICE_RESET      = 0x66
	USB_REQ_GET_DEVICE_STATUS = 0x67
)

// Vendor extension IDs as reported in DeviceInfo.
const (
	VENDOR_EASTMAN_KODAK = 0x00000001
	VENDOR_MICROSOFT     = 0x00000006
	VENDOR_NIKON         = 0x0000000A
	VENDOR_CANON         = 0x0000000B
	VENDOR_FUJI          = 0x0000000E
	VENDOR_SONY          = 0x00000011
)

var VENDOR_names = map[int]string{
	0x01: "Kodak",
	0x06: "Microsoft/MTP",
	0x0A: "Nikon",
	0x0B: "Canon",
	0x0E: "Fuji",
	0x11: "Sony",
}

// Operation codes.
const (
	OC_Undefined              = 0x1000
	OC_GetDeviceInfo          = 0x1001
	OC_OpenSession            = 0x1002
	OC_CloseSession           = 0x1003
	OC_GetStorageIDs          = 0x1004
	OC_GetStorageInfo         = 0x1005
	OC_GetNumObjects          = 0x1006
	OC_GetObjectHandles       = 0x1007
	OC_GetObjectInfo          = 0x1008
	OC_GetObject              = 0x1009
	OC_GetThumb               = 0x100A
	OC_DeleteObject           = 0x100B
	OC_SendObjectInfo         = 0x100C
	OC_SendObject             = 0x100D
	OC_InitiateCapture        = 0x100E
	OC_FormatStore            = 0x100F
	OC_ResetDevice            = 0x1010
	OC_SelfTest               = 0x1011
	OC_SetObjectProtection    = 0x1012
	OC_PowerDown              = 0x1013
	OC_GetDevicePropDesc      = 0x1014
	OC_GetDevicePropValue     = 0x1015
	OC_SetDevicePropValue     = 0x1016
	OC_ResetDevicePropValue   = 0x1017
	OC_TerminateOpenCapture   = 0x1018
	OC_MoveObject             = 0x1019
	OC_CopyObject             = 0x101A
	OC_GetPartialObject       = 0x101B
	OC_InitiateOpenCapture    = 0x101C
	OC_StartEnumHandles       = 0x101D
	OC_EnumHandles            = 0x101E
	OC_StopEnumHandles        = 0x101F
	OC_GetVendorExtensionMaps = 0x1020
	OC_GetVendorDeviceInfo    = 0x1021
	OC_GetResizedImageObject  = 0x1022
	OC_GetFilesystemManifest  = 0x1023
	OC_GetStreamInfo          = 0x1024
	OC_GetStream              = 0x1025

	OC_MTP_GetObjectPropsSupported   = 0x9801
	OC_MTP_GetObjectPropDesc         = 0x9802
	OC_MTP_GetObjectPropValue        = 0x9803
	OC_MTP_SetObjectPropValue        = 0x9804
	OC_MTP_GetObjectPropList         = 0x9805
	OC_MTP_SetObjectPropList         = 0x9806
	OC_MTP_GetInterdependendPropdesc = 0x9807
	OC_MTP_SendObjectPropList        = 0x9808
	OC_MTP_GetObjectReferences       = 0x9810
	OC_MTP_SetObjectReferences       = 0x9811

	OC_CANON_GetObjectSize     = 0x9001
	OC_CANON_StartShootingMode = 0x9008
	OC_CANON_EndShootingMode   = 0x9009
	OC_CANON_ViewfinderOn      = 0x900B
	OC_CANON_ViewfinderOff     = 0x900C
	OC_CANON_ReflectChanges    = 0x900D
	OC_CANON_CheckEvent        = 0x9013
	OC_CANON_FocusLock         = 0x9014
	OC_CANON_FocusUnlock       = 0x9015
	OC_CANON_GetPartialObject  = 0x901B
	OC_CANON_GetChanges        = 0x9020
	OC_CANON_GetFolderEntries  = 0x9021

	OC_NIKON_AfDrive            = 0x90C1
	OC_NIKON_DeviceReady        = 0x90C8
	OC_NIKON_GetEvent           = 0x90C7
	OC_NIKON_StartLiveView      = 0x9201
	OC_NIKON_EndLiveView        = 0x9202
	OC_NIKON_GetLiveViewImg     = 0x9203
	OC_NIKON_GetEventEx         = 0x941C
	OC_NIKON_GetObjectSize      = 0x9421
	OC_NIKON_GetPartialObjectEx = 0x9431

	OC_SONY_SDIOConnect             = 0x9201
	OC_SONY_GetSDIOGetExtDeviceInfo = 0x9202
	OC_SONY_GetDevicePropdesc       = 0x9203
	OC_SONY_GetDevicePropertyValue  = 0x9204
	OC_SONY_SetControlDeviceA       = 0x9205
	OC_SONY_GetControlDeviceDesc    = 0x9206
	OC_SONY_SetControlDeviceB       = 0x9207
	OC_SONY_GetAllDevicePropData    = 0x9209

	OC_ANDROID_GetPartialObject64 = 0x95C1
	OC_ANDROID_SendPartialObject  = 0x95C2
	OC_ANDROID_TruncateObject     = 0x95C3
	OC_ANDROID_BeginEditObject    = 0x95C4
	OC_ANDROID_EndEditObject      = 0x95C5
)

// OC_names holds names for the generic and MTP operation codes.
// Vendor opcodes overlap between vendors, see OperationName.
var OC_names = map[int]string{
	0x1000: "Undefined",
	0x1001: "GetDeviceInfo",
	0x1002: "OpenSession",
	0x1003: "CloseSession",
	0x1004: "GetStorageIDs",
	0x1005: "GetStorageInfo",
	0x1006: "GetNumObjects",
	0x1007: "GetObjectHandles",
	0x1008: "GetObjectInfo",
	0x1009: "GetObject",
	0x100A: "GetThumb",
	0x100B: "DeleteObject",
	0x100C: "SendObjectInfo",
	0x100D: "SendObject",
	0x100E: "InitiateCapture",
	0x100F: "FormatStore",
	0x1010: "ResetDevice",
	0x1011: "SelfTest",
	0x1012: "SetObjectProtection",
	0x1013: "PowerDown",
	0x1014: "GetDevicePropDesc",
	0x1015: "GetDevicePropValue",
	0x1016: "SetDevicePropValue",
	0x1017: "ResetDevicePropValue",
	0x1018: "TerminateOpenCapture",
	0x1019: "MoveObject",
	0x101A: "CopyObject",
	0x101B: "GetPartialObject",
	0x101C: "InitiateOpenCapture",
	0x101D: "StartEnumHandles",
	0x101E: "EnumHandles",
	0x101F: "StopEnumHandles",
	0x1020: "GetVendorExtensionMaps",
	0x1021: "GetVendorDeviceInfo",
	0x1022: "GetResizedImageObject",
	0x1023: "GetFilesystemManifest",
	0x1024: "GetStreamInfo",
	0x1025: "GetStream",

	0x95C1: "ANDROID_GetPartialObject64",
	0x95C2: "ANDROID_SendPartialObject",
	0x95C3: "ANDROID_TruncateObject",
	0x95C4: "ANDROID_BeginEditObject",
	0x95C5: "ANDROID_EndEditObject",

	0x9801: "MTP_GetObjectPropsSupported",
	0x9802: "MTP_GetObjectPropDesc",
	0x9803: "MTP_GetObjectPropValue",
	0x9804: "MTP_SetObjectPropValue",
	0x9805: "MTP_GetObjectPropList",
	0x9806: "MTP_SetObjectPropList",
	0x9807: "MTP_GetInterdependendPropdesc",
	0x9808: "MTP_SendObjectPropList",
	0x9810: "MTP_GetObjectReferences",
	0x9811: "MTP_SetObjectReferences",
}

var vendorOC_names = map[uint32]map[int]string{
	VENDOR_CANON: {
		0x9001: "CANON_GetObjectSize",
		0x9008: "CANON_StartShootingMode",
		0x9009: "CANON_EndShootingMode",
		0x900B: "CANON_ViewfinderOn",
		0x900C: "CANON_ViewfinderOff",
		0x900D: "CANON_ReflectChanges",
		0x9013: "CANON_CheckEvent",
		0x9014: "CANON_FocusLock",
		0x9015: "CANON_FocusUnlock",
		0x901B: "CANON_GetPartialObject",
		0x9020: "CANON_GetChanges",
		0x9021: "CANON_GetFolderEntries",
	},
	VENDOR_NIKON: {
		0x90C1: "NIKON_AfDrive",
		0x90C7: "NIKON_GetEvent",
		0x90C8: "NIKON_DeviceReady",
		0x9201: "NIKON_StartLiveView",
		0x9202: "NIKON_EndLiveView",
		0x9203: "NIKON_GetLiveViewImg",
		0x941C: "NIKON_GetEventEx",
		0x9421: "NIKON_GetObjectSize",
		0x9431: "NIKON_GetPartialObjectEx",
	},
	VENDOR_SONY: {
		0x9201: "SONY_SDIOConnect",
		0x9202: "SONY_GetSDIOGetExtDeviceInfo",
		0x9203: "SONY_GetDevicePropdesc",
		0x9204: "SONY_GetDevicePropertyValue",
		0x9205: "SONY_SetControlDeviceA",
		0x9206: "SONY_GetControlDeviceDesc",
		0x9207: "SONY_SetControlDeviceB",
		0x9209: "SONY_GetAllDevicePropData",
	},
}

// Response codes.
const (
	RC_Undefined                             = 0x2000
	RC_OK                                    = 0x2001
	RC_GeneralError                          = 0x2002
	RC_SessionNotOpen                        = 0x2003
	RC_InvalidTransactionID                  = 0x2004
	RC_OperationNotSupported                 = 0x2005
	RC_ParameterNotSupported                 = 0x2006
	RC_IncompleteTransfer                    = 0x2007
	RC_InvalidStorageId                      = 0x2008
	RC_InvalidObjectHandle                   = 0x2009
	RC_DevicePropNotSupported                = 0x200A
	RC_InvalidObjectFormatCode               = 0x200B
	RC_StoreFull                             = 0x200C
	RC_ObjectWriteProtected                  = 0x200D
	RC_StoreReadOnly                         = 0x200E
	RC_AccessDenied                          = 0x200F
	RC_NoThumbnailPresent                    = 0x2010
	RC_SelfTestFailed                        = 0x2011
	RC_PartialDeletion                       = 0x2012
	RC_StoreNotAvailable                     = 0x2013
	RC_SpecificationByFormatUnsupported      = 0x2014
	RC_NoValidObjectInfo                     = 0x2015
	RC_InvalidCodeFormat                     = 0x2016
	RC_UnknownVendorCode                     = 0x2017
	RC_CaptureAlreadyTerminated              = 0x2018
	RC_DeviceBusy                            = 0x2019
	RC_InvalidParentObject                   = 0x201A
	RC_InvalidDevicePropFormat               = 0x201B
	RC_InvalidDevicePropValue                = 0x201C
	RC_InvalidParameter                      = 0x201D
	RC_SessionAlreadyOpened                  = 0x201E
	RC_TransactionCanceled                   = 0x201F
	RC_SpecificationOfDestinationUnsupported = 0x2020

	RC_MTP_Invalid_ObjectPropCode             = 0xA801
	RC_MTP_Invalid_ObjectProp_Format          = 0xA802
	RC_MTP_Invalid_ObjectProp_Value           = 0xA803
	RC_MTP_Invalid_ObjectReference            = 0xA804
	RC_MTP_Invalid_Dataset                    = 0xA806
	RC_MTP_Specification_By_Group_Unsupported = 0xA807
	RC_MTP_Specification_By_Depth_Unsupported = 0xA808
	RC_MTP_Object_Too_Large                   = 0xA809

	RC_NIKON_NotLiveView   = 0xA00B
	RC_NIKON_InvalidStatus = 0xA004
)

var RC_names = map[int]string{
	0x2000: "Undefined",
	0x2001: "OK",
	0x2002: "GeneralError",
	0x2003: "SessionNotOpen",
	0x2004: "InvalidTransactionID",
	0x2005: "OperationNotSupported",
	0x2006: "ParameterNotSupported",
	0x2007: "IncompleteTransfer",
	0x2008: "InvalidStorageId",
	0x2009: "InvalidObjectHandle",
	0x200A: "DevicePropNotSupported",
	0x200B: "InvalidObjectFormatCode",
	0x200C: "StoreFull",
	0x200D: "ObjectWriteProtected",
	0x200E: "StoreReadOnly",
	0x200F: "AccessDenied",
	0x2010: "NoThumbnailPresent",
	0x2011: "SelfTestFailed",
	0x2012: "PartialDeletion",
	0x2013: "StoreNotAvailable",
	0x2014: "SpecificationByFormatUnsupported",
	0x2015: "NoValidObjectInfo",
	0x2016: "InvalidCodeFormat",
	0x2017: "UnknownVendorCode",
	0x2018: "CaptureAlreadyTerminated",
	0x2019: "DeviceBusy",
	0x201A: "InvalidParentObject",
	0x201B: "InvalidDevicePropFormat",
	0x201C: "InvalidDevicePropValue",
	0x201D: "InvalidParameter",
	0x201E: "SessionAlreadyOpened",
	0x201F: "TransactionCanceled",
	0x2020: "SpecificationOfDestinationUnsupported",

	0xA801: "MTP_Invalid_ObjectPropCode",
	0xA802: "MTP_Invalid_ObjectProp_Format",
	0xA803: "MTP_Invalid_ObjectProp_Value",
	0xA804: "MTP_Invalid_ObjectReference",
	0xA806: "MTP_Invalid_Dataset",
	0xA807: "MTP_Specification_By_Group_Unsupported",
	0xA808: "MTP_Specification_By_Depth_Unsupported",
	0xA809: "MTP_Object_Too_Large",
}

// Event codes.
const (
	EC_Undefined             = 0x4000
	EC_CancelTransaction     = 0x4001
	EC_ObjectAdded           = 0x4002
	EC_ObjectRemoved         = 0x4003
	EC_StoreAdded            = 0x4004
	EC_StoreRemoved          = 0x4005
	EC_DevicePropChanged     = 0x4006
	EC_ObjectInfoChanged     = 0x4007
	EC_DeviceInfoChanged     = 0x4008
	EC_RequestObjectTransfer = 0x4009
	EC_StoreFull             = 0x400A
	EC_DeviceReset           = 0x400B
	EC_StorageInfoChanged    = 0x400C
	EC_CaptureComplete       = 0x400D
	EC_UnreportedStatus      = 0x400E

	EC_MTP_ObjectPropChanged       = 0xC801
	EC_MTP_ObjectPropDescChanged   = 0xC802
	EC_MTP_ObjectReferencesChanged = 0xC803

	EC_CANON_DeviceInfoChanged     = 0xC008
	EC_CANON_RequestObjectTransfer = 0xC009
	EC_CANON_CameraModeChanged     = 0xC00C

	EC_NIKON_ObjectAddedInSDRAM        = 0xC101
	EC_NIKON_CaptureCompleteRecInSdram = 0xC102
)

var EC_names = map[int]string{
	0x4000: "Undefined",
	0x4001: "CancelTransaction",
	0x4002: "ObjectAdded",
	0x4003: "ObjectRemoved",
	0x4004: "StoreAdded",
	0x4005: "StoreRemoved",
	0x4006: "DevicePropChanged",
	0x4007: "ObjectInfoChanged",
	0x4008: "DeviceInfoChanged",
	0x4009: "RequestObjectTransfer",
	0x400A: "StoreFull",
	0x400B: "DeviceReset",
	0x400C: "StorageInfoChanged",
	0x400D: "CaptureComplete",
	0x400E: "UnreportedStatus",
	0xC801: "MTP_ObjectPropChanged",
	0xC802: "MTP_ObjectPropDescChanged",
	0xC803: "MTP_ObjectReferencesChanged",
	0xC008: "CANON_DeviceInfoChanged",
	0xC009: "CANON_RequestObjectTransfer",
	0xC00C: "CANON_CameraModeChanged",
	0xC101: "NIKON_ObjectAddedInSDRAM",
	0xC102: "NIKON_CaptureCompleteRecInSdram",
}

// Device property codes.
const (
	DPC_Undefined                = 0x5000
	DPC_BatteryLevel             = 0x5001
	DPC_FunctionalMode           = 0x5002
	DPC_ImageSize                = 0x5003
	DPC_CompressionSetting       = 0x5004
	DPC_WhiteBalance             = 0x5005
	DPC_RGBGain                  = 0x5006
	DPC_FNumber                  = 0x5007
	DPC_FocalLength              = 0x5008
	DPC_FocusDistance            = 0x5009
	DPC_FocusMode                = 0x500A
	DPC_ExposureMeteringMode     = 0x500B
	DPC_FlashMode                = 0x500C
	DPC_ExposureTime             = 0x500D
	DPC_ExposureProgramMode      = 0x500E
	DPC_ExposureIndex            = 0x500F
	DPC_ExposureBiasCompensation = 0x5010
	DPC_DateTime                 = 0x5011
	DPC_CaptureDelay             = 0x5012
	DPC_StillCaptureMode         = 0x5013
	DPC_Contrast                 = 0x5014
	DPC_Sharpness                = 0x5015
	DPC_DigitalZoom              = 0x5016
	DPC_EffectMode               = 0x5017
	DPC_BurstNumber              = 0x5018
	DPC_BurstInterval            = 0x5019
	DPC_TimelapseNumber          = 0x501A
	DPC_TimelapseInterval        = 0x501B
	DPC_FocusMeteringMode        = 0x501C
	DPC_UploadURL                = 0x501D
	DPC_Artist                   = 0x501E
	DPC_CopyrightInfo            = 0x501F

	DPC_MTP_SynchronizationPartner = 0xD401
	DPC_MTP_DeviceFriendlyName     = 0xD402
	DPC_MTP_VolumeLevel            = 0xD403

	DPC_NIKON_LiveViewStatus = 0xD1A2
)

var DPC_names = map[int]string{
	0x5000: "Undefined",
	0x5001: "BatteryLevel",
	0x5002: "FunctionalMode",
	0x5003: "ImageSize",
	0x5004: "CompressionSetting",
	0x5005: "WhiteBalance",
	0x5006: "RGBGain",
	0x5007: "FNumber",
	0x5008: "FocalLength",
	0x5009: "FocusDistance",
	0x500A: "FocusMode",
	0x500B: "ExposureMeteringMode",
	0x500C: "FlashMode",
	0x500D: "ExposureTime",
	0x500E: "ExposureProgramMode",
	0x500F: "ExposureIndex",
	0x5010: "ExposureBiasCompensation",
	0x5011: "DateTime",
	0x5012: "CaptureDelay",
	0x5013: "StillCaptureMode",
	0x5014: "Contrast",
	0x5015: "Sharpness",
	0x5016: "DigitalZoom",
	0x5017: "EffectMode",
	0x5018: "BurstNumber",
	0x5019: "BurstInterval",
	0x501A: "TimelapseNumber",
	0x501B: "TimelapseInterval",
	0x501C: "FocusMeteringMode",
	0x501D: "UploadURL",
	0x501E: "Artist",
	0x501F: "CopyrightInfo",
	0xD401: "MTP_SynchronizationPartner",
	0xD402: "MTP_DeviceFriendlyName",
	0xD403: "MTP_VolumeLevel",
}

// Object format codes.
const (
	OFC_Undefined   = 0x3000
	OFC_Association = 0x3001
	OFC_Script      = 0x3002
	OFC_Executable  = 0x3003
	OFC_Text        = 0x3004
	OFC_HTML        = 0x3005
	OFC_DPOF        = 0x3006
	OFC_AIFF        = 0x3007
	OFC_WAV         = 0x3008
	OFC_MP3         = 0x3009
	OFC_AVI         = 0x300A
	OFC_MPEG        = 0x300B
	OFC_ASF         = 0x300C
	OFC_QT          = 0x300D
	OFC_EXIF_JPEG   = 0x3801
	OFC_TIFF_EP     = 0x3802
	OFC_FlashPix    = 0x3803
	OFC_BMP         = 0x3804
	OFC_CIFF        = 0x3805
	OFC_GIF         = 0x3807
	OFC_JFIF        = 0x3808
	OFC_PCD         = 0x3809
	OFC_PICT        = 0x380A
	OFC_PNG         = 0x380B
	OFC_TIFF        = 0x380D
	OFC_TIFF_IT     = 0x380E
	OFC_JP2         = 0x380F
	OFC_JPX         = 0x3810
	OFC_DNG         = 0x3811

	OFC_MTP_MP4                        = 0xB982
	OFC_MTP_AbstractAudioVideoPlaylist = 0xBA05
)

var OFC_names = map[int]string{
	0x3000: "Undefined",
	0x3001: "Association",
	0x3002: "Script",
	0x3003: "Executable",
	0x3004: "Text",
	0x3005: "HTML",
	0x3006: "DPOF",
	0x3007: "AIFF",
	0x3008: "WAV",
	0x3009: "MP3",
	0x300A: "AVI",
	0x300B: "MPEG",
	0x300C: "ASF",
	0x300D: "QT",
	0x3801: "EXIF_JPEG",
	0x3802: "TIFF_EP",
	0x3803: "FlashPix",
	0x3804: "BMP",
	0x3805: "CIFF",
	0x3807: "GIF",
	0x3808: "JFIF",
	0x3809: "PCD",
	0x380A: "PICT",
	0x380B: "PNG",
	0x380D: "TIFF",
	0x380E: "TIFF_IT",
	0x380F: "JP2",
	0x3810: "JPX",
	0x3811: "DNG",
	0xB982: "MTP_MP4",
	0xBA05: "MTP_AbstractAudioVideoPlaylist",
}

// MTP object property codes.
const (
	OPC_StorageID                        = 0xDC01
	OPC_ObjectFormat                     = 0xDC02
	OPC_ProtectionStatus                 = 0xDC03
	OPC_ObjectSize                       = 0xDC04
	OPC_AssociationType                  = 0xDC05
	OPC_AssociationDesc                  = 0xDC06
	OPC_ObjectFileName                   = 0xDC07
	OPC_DateCreated                      = 0xDC08
	OPC_DateModified                     = 0xDC09
	OPC_Keywords                         = 0xDC0A
	OPC_ParentObject                     = 0xDC0B
	OPC_AllowedFolderContents            = 0xDC0C
	OPC_Hidden                           = 0xDC0D
	OPC_SystemObject                     = 0xDC0E
	OPC_PersistantUniqueObjectIdentifier = 0xDC41
	OPC_Name                             = 0xDC44
	OPC_WirelessConfigurationFile        = 0xB104
)

var OPC_names = map[int]string{
	0xDC01: "StorageID",
	0xDC02: "ObjectFormat",
	0xDC03: "ProtectionStatus",
	0xDC04: "ObjectSize",
	0xDC05: "AssociationType",
	0xDC06: "AssociationDesc",
	0xDC07: "ObjectFileName",
	0xDC08: "DateCreated",
	0xDC09: "DateModified",
	0xDC0A: "Keywords",
	0xDC0B: "ParentObject",
	0xDC0C: "AllowedFolderContents",
	0xDC0D: "Hidden",
	0xDC0E: "SystemObject",
	0xDC41: "PersistantUniqueObjectIdentifier",
	0xDC44: "Name",
}

// Data type codes.
const (
	DTC_UNDEF      = 0x0000
	DTC_INT8       = 0x0001
	DTC_UINT8      = 0x0002
	DTC_INT16      = 0x0003
	DTC_UINT16     = 0x0004
	DTC_INT32      = 0x0005
	DTC_UINT32     = 0x0006
	DTC_INT64      = 0x0007
	DTC_UINT64     = 0x0008
	DTC_INT128     = 0x0009
	DTC_UINT128    = 0x000A
	DTC_ARRAY_MASK = 0x4000
	DTC_AINT8      = 0x4001
	DTC_AUINT8     = 0x4002
	DTC_AINT16     = 0x4003
	DTC_AUINT16    = 0x4004
	DTC_AINT32     = 0x4005
	DTC_AUINT32    = 0x4006
	DTC_AINT64     = 0x4007
	DTC_AUINT64    = 0x4008
	DTC_AINT128    = 0x4009
	DTC_AUINT128   = 0x400A
	DTC_STR        = 0xFFFF
)

// Property descriptor form flags.
const (
	DPFF_None        = 0x00
	DPFF_Range       = 0x01
	DPFF_Enumeration = 0x02
)

// Property get/set flags.
const (
	DPGS_Get    = 0x00
	DPGS_GetSet = 0x01
)

// Storage types.
const (
	ST_Undefined    = 0x0000
	ST_FixedROM     = 0x0001
	ST_RemovableROM = 0x0002
	ST_FixedRAM     = 0x0003
	ST_RemovableRAM = 0x0004
)

// Filesystem types.
const (
	FST_Undefined           = 0x0000
	FST_GenericFlat         = 0x0001
	FST_GenericHierarchical = 0x0002
	FST_DCF                 = 0x0003
)

// Association types.
const (
	AT_Undefined     = 0x0000
	AT_GenericFolder = 0x0001
)

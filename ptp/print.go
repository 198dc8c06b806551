package ptp

import (
	"fmt"
	"strings"
)

func getNames(m map[int]string, vals []uint16) string {
	r := []string{}
	for _, v := range vals {
		n, ok := m[int(v)]
		if !ok {
			n = fmt.Sprintf("0x%x", v)
		}
		r = append(r, n)
	}
	return strings.Join(r, ", ")
}

// OperationNames names the supported operations of a vendor.
func OperationNames(vendor uint32, ops []uint16) []string {
	out := make([]string, 0, len(ops))
	for _, op := range ops {
		out = append(out, operationName(vendor, op))
	}
	return out
}

// PropName names a device property code.
func PropName(code uint16) string {
	if n, ok := DPC_names[int(code)]; ok {
		return n
	}
	return fmt.Sprintf("0x%04x", code)
}

// FormatName names an object format code.
func FormatName(code uint16) string {
	if n, ok := OFC_names[int(code)]; ok {
		return n
	}
	return fmt.Sprintf("0x%04x", code)
}

func (i *DeviceInfo) String() string {
	return fmt.Sprintf("stdv: %x, ext: %x (%s), extv: %x, ext desc: %q fmod: %x ops: %s evs: %s "+
		"dprops: %s fmts: %s capfmts: %s manu: %q model: %q devv: %q serno: %q",
		i.StandardVersion,
		i.VendorExtensionID,
		VENDOR_names[int(i.VendorExtensionID)],
		i.VendorExtensionVersion,
		i.VendorExtensionDesc,
		i.FunctionalMode,
		strings.Join(OperationNames(detectVendor(i), i.OperationsSupported), ", "),
		getNames(EC_names, i.EventsSupported),
		getNames(DPC_names, i.DevicePropertiesSupported),
		getNames(OFC_names, i.PlaybackFormats),
		getNames(OFC_names, i.CaptureFormats),
		i.Manufacturer,
		i.Model,
		i.DeviceVersion,
		i.SerialNumber)
}

func (d *DevicePropDesc) String() string {
	access := "r"
	if d.GetSet == DPGS_GetSet {
		access = "rw"
	}
	s := fmt.Sprintf("%s (%s) type 0x%x current %v default %v", PropName(d.DevicePropertyCode),
		access, uint16(d.DataType), d.CurrentValue, d.FactoryDefaultValue)
	switch f := d.Form.(type) {
	case *PropDescRangeForm:
		s += fmt.Sprintf(" range [%v, %v] step %v", f.MinimumValue, f.MaximumValue, f.StepSize)
	case *PropDescEnumForm:
		s += fmt.Sprintf(" enum %v", f.Values)
	}
	return s
}

func (o *Object) String() string {
	kind := "file"
	if o.IsDir() {
		kind = "dir"
	}
	return fmt.Sprintf("0x%08x %s %q %d bytes (%s)", o.Handle, kind, o.Info.Filename, o.Size64,
		FormatName(o.Info.ObjectFormat))
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hanwen/go-ptp/output"
	"github.com/hanwen/go-ptp/ptp"
)

type deviceRecord struct {
	Manufacturer string   `json:"manufacturer" yaml:"manufacturer" plist:"manufacturer"`
	Model        string   `json:"model" yaml:"model" plist:"model"`
	Version      string   `json:"version" yaml:"version" plist:"version"`
	Serial       string   `json:"serial" yaml:"serial" plist:"serial"`
	Vendor       string   `json:"vendor" yaml:"vendor" plist:"vendor"`
	Extension    string   `json:"extension" yaml:"extension" plist:"extension"`
	Operations   []string `json:"operations" yaml:"operations" plist:"operations"`
	Events       []string `json:"events" yaml:"events" plist:"events"`
	Properties   []string `json:"properties" yaml:"properties" plist:"properties"`
	Formats      []string `json:"formats" yaml:"formats" plist:"formats"`
}

func newDeviceRecord(s *ptp.Session) deviceRecord {
	info := s.DeviceInfo()
	r := deviceRecord{
		Manufacturer: info.Manufacturer,
		Model:        info.Model,
		Version:      info.DeviceVersion,
		Serial:       info.SerialNumber,
		Vendor:       ptp.VENDOR_names[int(s.Vendor())],
		Extension:    info.VendorExtensionDesc,
		Operations:   ptp.OperationNames(s.Vendor(), info.OperationsSupported),
	}
	for _, ec := range info.EventsSupported {
		r.Events = append(r.Events, ptp.EventName(ec))
	}
	for _, dpc := range info.DevicePropertiesSupported {
		r.Properties = append(r.Properties, ptp.PropName(dpc))
	}
	for _, f := range info.PlaybackFormats {
		r.Formats = append(r.Formats, ptp.FormatName(f))
	}
	return r
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the device info dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := printer(cmd)
		if err != nil {
			return err
		}
		return withDevice(cmd, func(ctx context.Context, d *device) error {
			r := newDeviceRecord(d.Session)
			if p.Format() != output.FormatText {
				return p.Print(r)
			}
			return output.PrintPairs(cmd.OutOrStdout(), [][2]string{
				{"Manufacturer", r.Manufacturer},
				{"Model", r.Model},
				{"Version", r.Version},
				{"Serial", r.Serial},
				{"Vendor", r.Vendor},
				{"Operations", strings.Join(r.Operations, ", ")},
				{"Events", strings.Join(r.Events, ", ")},
				{"Properties", strings.Join(r.Properties, ", ")},
				{"Formats", strings.Join(r.Formats, ", ")},
			})
		})
	},
}

type storageRecord struct {
	ID          uint32 `json:"id" yaml:"id" plist:"id"`
	Description string `json:"description" yaml:"description" plist:"description"`
	Label       string `json:"label" yaml:"label" plist:"label"`
	Removable   bool   `json:"removable" yaml:"removable" plist:"removable"`
	Free        uint64 `json:"free" yaml:"free" plist:"free"`
	Capacity    uint64 `json:"capacity" yaml:"capacity" plist:"capacity"`
}

type storageList []storageRecord

func (l storageList) Headers() []string {
	return []string{"ID", "Description", "Label", "Free", "Capacity"}
}

func (l storageList) Rows() [][]string {
	var rows [][]string
	for _, s := range l {
		rows = append(rows, []string{
			fmt.Sprintf("0x%08x", s.ID),
			s.Description,
			s.Label,
			humanize.IBytes(s.Free),
			humanize.IBytes(s.Capacity),
		})
	}
	return rows
}

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "List the storages of the device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := printer(cmd)
		if err != nil {
			return err
		}
		return withDevice(cmd, func(ctx context.Context, d *device) error {
			sts, err := d.Storages(ctx)
			if err != nil {
				return err
			}
			var l storageList
			for _, st := range sts {
				l = append(l, storageRecord{
					ID:          st.ID,
					Description: st.Info.StorageDescription,
					Label:       st.Info.VolumeLabel,
					Removable:   st.Info.IsRemovable(),
					Free:        st.Info.FreeSpaceInBytes,
					Capacity:    st.Info.MaxCapability,
				})
			}
			return p.Print(l)
		})
	},
}

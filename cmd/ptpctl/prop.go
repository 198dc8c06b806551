package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hanwen/go-ptp/output"
	"github.com/hanwen/go-ptp/ptp"
)

type propRecord struct {
	Code     uint16      `json:"code" yaml:"code" plist:"code"`
	Name     string      `json:"name" yaml:"name" plist:"name"`
	DataType uint16      `json:"data_type" yaml:"data_type" plist:"data_type"`
	Writable bool        `json:"writable" yaml:"writable" plist:"writable"`
	Enabled  bool        `json:"enabled" yaml:"enabled" plist:"enabled"`
	Current  interface{} `json:"current" yaml:"current" plist:"current,omitempty"`
	Default  interface{} `json:"default" yaml:"default" plist:"default,omitempty"`
	Values   interface{} `json:"values,omitempty" yaml:"values,omitempty" plist:"values,omitempty"`
}

func newPropRecord(d *ptp.DevicePropDesc, enabled bool) propRecord {
	r := propRecord{
		Code:     d.DevicePropertyCode,
		Name:     ptp.PropName(d.DevicePropertyCode),
		DataType: uint16(d.DataType),
		Writable: d.GetSet == ptp.DPGS_GetSet,
		Enabled:  enabled,
		Current:  d.CurrentValue,
		Default:  d.FactoryDefaultValue,
	}
	switch f := d.Form.(type) {
	case *ptp.PropDescEnumForm:
		r.Values = f.Values
	case *ptp.PropDescRangeForm:
		r.Values = []interface{}{f.MinimumValue, f.MaximumValue, f.StepSize}
	}
	return r
}

var propCmd = &cobra.Command{
	Use:   "prop",
	Short: "Read and write device properties",
}

var propGetCmd = &cobra.Command{
	Use:   "get <code>...",
	Short: "Show property descriptors",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := printer(cmd)
		if err != nil {
			return err
		}
		var codes []uint16
		for _, a := range args {
			c, err := parseUint16(a)
			if err != nil {
				return err
			}
			codes = append(codes, c)
		}
		return withDevice(cmd, func(ctx context.Context, d *device) error {
			var recs []propRecord
			for _, c := range codes {
				desc, err := d.Props().Get(ctx, c)
				if err != nil {
					return err
				}
				if p.Format() == output.FormatText {
					p.Printf("%s\n", desc)
					continue
				}
				recs = append(recs, newPropRecord(desc, d.Props().Enabled(c)))
			}
			if p.Format() == output.FormatText {
				return nil
			}
			return p.Print(recs)
		})
	},
}

var propSetCmd = &cobra.Command{
	Use:   "set <code> <value>",
	Short: "Write a property value",
	Long: `Write a property value. The value is parsed according to the data
type the device reports for the property; integers may use a 0x prefix.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := parseUint16(args[0])
		if err != nil {
			return err
		}
		return withDevice(cmd, func(ctx context.Context, d *device) error {
			desc, err := d.Props().Get(ctx, code)
			if err != nil {
				return err
			}
			if desc.GetSet != ptp.DPGS_GetSet {
				return fmt.Errorf("%s is read-only", ptp.PropName(code))
			}
			v, err := ptp.ParseValue(desc.DataType, args[1])
			if err != nil {
				return err
			}
			return d.Props().Set(ctx, code, v)
		})
	},
}

func init() {
	propCmd.AddCommand(propGetCmd, propSetCmd)
}

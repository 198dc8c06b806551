package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanwen/go-ptp/config"
	"github.com/hanwen/go-ptp/output"
	"github.com/hanwen/go-ptp/ptp"
)

func TestConfigCommandAppliesFlags(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.yaml")

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"config", out, "--config", filepath.Join(dir, "none.yaml"), "--address", "10.0.0.5"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "wrote "+out)

	cfg, err := config.Load(out)
	require.NoError(t, err)
	assert.Equal(t, "ptpip", cfg.Transport)
	assert.Equal(t, "10.0.0.5", cfg.Address)
	assert.Equal(t, 3, cfg.ResponseRetries)
}

func TestObjectList(t *testing.T) {
	l := objectList{
		newObjectRecord(&ptp.Object{
			Handle: 1,
			Info:   ptp.ObjectInfo{ObjectFormat: ptp.OFC_Association, AssociationType: ptp.AT_GenericFolder, Filename: "DCIM"},
		}),
		newObjectRecord(&ptp.Object{
			Handle: 2,
			Info: ptp.ObjectInfo{ObjectFormat: ptp.OFC_EXIF_JPEG, Filename: "a.jpg",
				ModificationDate: time.Now().Add(-time.Hour)},
			Size64: 5 << 30,
		}),
	}
	rows := l.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"0x00000001", "DCIM/", "-", "-", "Association"}, rows[0])
	assert.Equal(t, "5.0 GiB", rows[1][2])
	assert.Equal(t, "1 hour ago", rows[1][3])

	var buf bytes.Buffer
	require.NoError(t, output.NewPrinter(&buf, output.FormatYAML).Print(l))
	assert.Contains(t, buf.String(), "name: a.jpg")
}

func TestPropRecord(t *testing.T) {
	d := &ptp.DevicePropDesc{
		DevicePropDescFixed: ptp.DevicePropDescFixed{
			DevicePropertyCode: ptp.DPC_FNumber,
			DataType:           ptp.DTC_UINT16,
			GetSet:             ptp.DPGS_GetSet,
			CurrentValue:       uint16(280),
			FormFlag:           ptp.DPFF_Enumeration,
		},
		Form: &ptp.PropDescEnumForm{Values: []ptp.DataDependentType{uint16(280), uint16(400)}},
	}
	r := newPropRecord(d, true)
	assert.Equal(t, "FNumber", r.Name)
	assert.True(t, r.Writable)
	assert.Len(t, r.Values, 2)

	var buf bytes.Buffer
	require.NoError(t, output.NewPrinter(&buf, output.FormatJSON).Print(r))
	assert.Contains(t, buf.String(), `"current": 280`)
}

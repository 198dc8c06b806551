package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/google/gousb"
	"github.com/spf13/cobra"

	"github.com/hanwen/go-ptp/config"
	"github.com/hanwen/go-ptp/log"
	"github.com/hanwen/go-ptp/output"
	"github.com/hanwen/go-ptp/ptp"
)

var flags struct {
	config    string
	transport string
	device    string
	address   string
	format    string
}

var rootCmd = &cobra.Command{
	Use:   "ptpctl",
	Short: "Inspect and control PTP devices",
	Long: `ptpctl lists and fetches objects, reads and writes device properties
and watches events of cameras and media players speaking PTP or MTP, over
USB or PTP/IP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.config, "config", "", "configuration file (default ./ptp.yaml or ~/.config/ptp/ptp.yaml)")
	pf.StringVar(&flags.transport, "transport", "", "transport: usb or ptpip")
	pf.StringVar(&flags.device, "device", "", "regular expression selecting the USB device by manufacturer and product")
	pf.StringVar(&flags.address, "address", "", "PTP/IP camera address, host or host:port")
	pf.StringVarP(&flags.format, "format", "o", "text", "output format: text, json, yaml or plist")

	rootCmd.AddCommand(infoCmd, storageCmd, lsCmd, getCmd, rmCmd, propCmd, eventsCmd, serveCmd, configCmd)
}

// loadConfig reads the configuration and applies command line
// overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flags.config)
	if err != nil {
		return nil, err
	}
	pf := cmd.Flags()
	if pf.Changed("transport") {
		cfg.Transport = flags.transport
	}
	if pf.Changed("device") {
		cfg.Device = flags.device
	}
	if pf.Changed("address") {
		cfg.Address = flags.address
		if !pf.Changed("transport") {
			cfg.Transport = "ptpip"
		}
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printer(cmd *cobra.Command) (*output.Printer, error) {
	f, err := output.ParseFormat(flags.format)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(cmd.OutOrStdout(), f), nil
}

// device is an open session plus what it takes to release it.
type device struct {
	*ptp.Session
	cfg   *config.Config
	logs  *log.Children
	close func()
}

func (d *device) Close(ctx context.Context) {
	if err := d.Session.Close(ctx); err != nil {
		d.logs.PTP.Warningf("close: %v", err)
	}
	if d.close != nil {
		d.close()
	}
}

// openDevice connects the configured transport and opens a session.
func openDevice(ctx context.Context, cmd *cobra.Command, m *ptp.Metrics) (*device, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logs := log.PrepareChildren(log.Root, cfg.Debug)

	d := &device{cfg: cfg, logs: logs}
	var t ptp.Transport
	switch cfg.Transport {
	case "ptpip":
		ipt, err := ptp.DialIP(ctx, cfg.Address, logs)
		if err != nil {
			return nil, err
		}
		ipt.Timeout = cfg.Timeout
		t = ipt
	default:
		uctx := gousb.NewContext()
		ut, err := ptp.SelectDevice(uctx, cfg.Device, logs)
		if err != nil {
			uctx.Close()
			return nil, err
		}
		ut.Timeout = cfg.Timeout
		t = ut
		d.close = func() { uctx.Close() }
	}

	d.Session = ptp.NewSession(t, cfg.SessionOptions(), logs, m)
	if err := d.Configure(ctx); err != nil {
		t.Close()
		if d.close != nil {
			d.close()
		}
		return nil, err
	}
	return d, nil
}

// withDevice runs fn against an open session and closes it after.
// Interrupts cancel the context.
func withDevice(cmd *cobra.Command, fn func(ctx context.Context, d *device) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	d, err := openDevice(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer d.Close(context.Background())
	return fn(ctx, d)
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return uint32(v), nil
}

func parseUint16(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid code %q", s)
	}
	return uint16(v), nil
}

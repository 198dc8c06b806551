package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hanwen/go-ptp/output"
	"github.com/hanwen/go-ptp/ptp"
)

type eventRecord struct {
	Time   time.Time `json:"time" yaml:"time" plist:"time"`
	Code   uint16    `json:"code" yaml:"code" plist:"code"`
	Name   string    `json:"name" yaml:"name" plist:"name"`
	Params []uint32  `json:"params" yaml:"params" plist:"params"`
}

var eventsCount int

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print device events as they arrive",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := printer(cmd)
		if err != nil {
			return err
		}
		return withDevice(cmd, func(ctx context.Context, d *device) error {
			tick := time.NewTicker(d.cfg.EventPollInterval)
			defer tick.Stop()

			seen := 0
			for eventsCount == 0 || seen < eventsCount {
				if _, err := d.Poll(ctx); err != nil {
					return err
				}
				for eventsCount == 0 || seen < eventsCount {
					ev, ok := d.GetOne(0)
					if !ok {
						break
					}
					seen++
					if err := printEvent(p, ev); err != nil {
						return err
					}
				}

				select {
				case <-ctx.Done():
					return nil
				case <-tick.C:
				}
			}
			return nil
		})
	},
}

func printEvent(p *output.Printer, ev ptp.Event) error {
	r := eventRecord{Time: time.Now(), Code: ev.Code, Name: ptp.EventName(ev.Code), Params: ev.Param}
	if p.Format() != output.FormatText {
		return p.Print(r)
	}
	params := ""
	for _, v := range r.Params {
		params += fmt.Sprintf(" 0x%x", v)
	}
	p.Printf("%s %s%s\n", r.Time.Format("15:04:05.000"), r.Name, params)
	return nil
}

func init() {
	eventsCmd.Flags().IntVarP(&eventsCount, "count", "n", 0, "stop after this many events (0: run until interrupted)")
}

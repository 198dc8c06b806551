package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hanwen/go-ptp/ptp"
)

type objectRecord struct {
	Handle   uint32    `json:"handle" yaml:"handle" plist:"handle"`
	Storage  uint32    `json:"storage" yaml:"storage" plist:"storage"`
	Parent   uint32    `json:"parent" yaml:"parent" plist:"parent"`
	Name     string    `json:"name" yaml:"name" plist:"name"`
	Dir      bool      `json:"dir" yaml:"dir" plist:"dir"`
	Format   string    `json:"format" yaml:"format" plist:"format"`
	Size     uint64    `json:"size" yaml:"size" plist:"size"`
	Modified time.Time `json:"modified" yaml:"modified" plist:"modified"`
}

func newObjectRecord(o *ptp.Object) objectRecord {
	return objectRecord{
		Handle:   o.Handle,
		Storage:  o.Info.StorageID,
		Parent:   o.Info.ParentObject,
		Name:     o.Name(),
		Dir:      o.IsDir(),
		Format:   ptp.FormatName(o.Info.ObjectFormat),
		Size:     o.Size64,
		Modified: o.Info.ModificationDate,
	}
}

type objectList []objectRecord

func (l objectList) Headers() []string {
	return []string{"Handle", "Name", "Size", "Modified", "Format"}
}

func (l objectList) Rows() [][]string {
	var rows [][]string
	for _, o := range l {
		size := humanize.IBytes(o.Size)
		name := o.Name
		if o.Dir {
			size = "-"
			name += "/"
		}
		mod := "-"
		if !o.Modified.IsZero() {
			mod = humanize.Time(o.Modified)
		}
		rows = append(rows, []string{fmt.Sprintf("0x%08x", o.Handle), name, size, mod, o.Format})
	}
	return rows
}

var lsCmd = &cobra.Command{
	Use:   "ls [storage [handle]]",
	Short: "List a folder",
	Long: `List the objects in a folder. Without arguments, list the root of
every storage. A handle of 0 is the storage root.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := printer(cmd)
		if err != nil {
			return err
		}
		var storages []uint32
		var handle uint32
		if len(args) > 0 {
			id, err := parseUint32(args[0])
			if err != nil {
				return err
			}
			storages = append(storages, id)
		}
		if len(args) > 1 {
			if handle, err = parseUint32(args[1]); err != nil {
				return err
			}
		}

		return withDevice(cmd, func(ctx context.Context, d *device) error {
			if len(storages) == 0 {
				sts, err := d.Storages(ctx)
				if err != nil {
					return err
				}
				for _, st := range sts {
					storages = append(storages, st.ID)
				}
			}

			var l objectList
			for _, id := range storages {
				objs, err := d.ListFolder(ctx, id, handle)
				if err != nil {
					return fmt.Errorf("storage 0x%08x: %w", id, err)
				}
				for _, o := range objs {
					l = append(l, newObjectRecord(o))
				}
			}
			return p.Print(l)
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <handle> <file>",
	Short: "Copy an object to a local file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		handle, err := parseUint32(args[0])
		if err != nil {
			return err
		}
		return withDevice(cmd, func(ctx context.Context, d *device) error {
			o, err := d.Objects().Want(ctx, handle, ptp.ObjectInfoLoaded)
			if err != nil {
				return err
			}
			if o.IsDir() {
				return fmt.Errorf("%s is a folder", o.Name())
			}

			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			sink := ptp.NewProgressSink(ptp.NewFileHandler(f))
			start := time.Now()
			err = d.GetObject(ctx, handle, sink)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(args[1])
				return err
			}

			secs := time.Since(start).Seconds()
			if secs <= 0 {
				secs = 1
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s in %s (%s/s)\n", o.Name(),
				humanize.IBytes(uint64(sink.Total())), time.Since(start).Round(time.Millisecond),
				humanize.IBytes(uint64(float64(sink.Total())/secs)))
			return nil
		})
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <handle>...",
	Short: "Delete objects",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var handles []uint32
		for _, a := range args {
			h, err := parseUint32(a)
			if err != nil {
				return err
			}
			handles = append(handles, h)
		}
		return withDevice(cmd, func(ctx context.Context, d *device) error {
			for _, h := range handles {
				if err := d.DeleteObject(ctx, h); err != nil {
					return fmt.Errorf("delete 0x%08x: %w", h, err)
				}
			}
			return nil
		})
	},
}

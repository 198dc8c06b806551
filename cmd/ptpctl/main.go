// ptpctl talks to cameras and media players over PTP.
package main

import (
	"os"

	"github.com/hanwen/go-ptp/log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Root.Error(err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/go-ble/ble"
	"github.com/spf13/cobra"

	"github.com/FeelRobotics/KiirooControlSDK/internal/goble"
	"github.com/FeelRobotics/KiirooControlSDK/pkg/control"
	"github.com/FeelRobotics/KiirooControlSDK/pkg/gatt"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for Control devices",
	Long: `Scan for Bluetooth Low Energy devices and display their address, name,
and RSSI. By default only devices advertising the Control service are shown;
use --all to list everything in range.`,
	RunE: runScan,
}

var (
	scanDuration time.Duration
	scanAll      bool
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 10*time.Second, "Scan duration")
	scanCmd.Flags().BoolVar(&scanAll, "all", false, "Show all devices, not only Control peripherals")
}

type scanResult struct {
	addr string
	name string
	rssi int
}

func runScan(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	dev, err := goble.DeviceFactory()
	if err != nil {
		return err
	}
	ble.SetDefaultDevice(dev)

	var mu sync.Mutex
	seen := make(map[string]scanResult)

	ctx, cancel := context.WithTimeout(cmd.Context(), scanDuration)
	defer cancel()

	logger.WithField("duration", scanDuration).Info("Scanning for devices")
	err = ble.Scan(ctx, false, func(adv ble.Advertisement) {
		if !scanAll && !advertisesControlService(adv) {
			return
		}
		mu.Lock()
		seen[adv.Addr().String()] = scanResult{
			addr: adv.Addr().String(),
			name: adv.LocalName(),
			rssi: adv.RSSI(),
		}
		mu.Unlock()
	}, nil)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("scan failed: %w", err)
	}

	results := make([]scanResult, 0, len(seen))
	for _, r := range seen {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].rssi > results[j].rssi })

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tNAME\tRSSI")
	for _, r := range results {
		name := r.name
		if name == "" {
			name = "(unknown)"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\n", r.addr, name, r.rssi)
	}
	return w.Flush()
}

func advertisesControlService(adv ble.Advertisement) bool {
	for _, svc := range adv.Services() {
		if gatt.NormalizeUUID(svc.String()) == control.ServiceUUID {
			return true
		}
	}
	return false
}

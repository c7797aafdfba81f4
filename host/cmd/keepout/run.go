package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"atcguard/core"
	"atcguard/host/serial"
	"atcguard/standalone/controller"
	"atcguard/standalone/journal"
	"atcguard/standalone/keepout"
	"atcguard/standalone/settings"
	"atcguard/standalone/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the controller console",
	Long: `Runs the controller console on a serial port, or on standard input and output
when no device is given. Sensor inputs are simulated and can be driven over
the HTTP API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		device, _ := cmd.Flags().GetString("device")
		baud, _ := cmd.Flags().GetInt("baud")
		addr, _ := cmd.Flags().GetString("http")
		journalPath, _ := cmd.Flags().GetString("journal")

		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if journalPath == "" {
			journalPath = cfg.JournalPath
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		driver := core.NewMemoryDriver()
		var metrics *telemetry.Metrics
		var counted keepout.Reporter

		opts := []controller.Option{
			controller.WithLogger(logger),
			controller.WithInputDriver(driver),
			controller.WithObserver(func(enabled bool, source keepout.Source) {
				logger.Info("keepout transition", "enabled", enabled, "source", source.String())
			}),
		}

		var jrnl *journal.Journal
		if journalPath != "" {
			jrnl, err = journal.Open(journalPath)
			if err != nil {
				return err
			}
			defer jrnl.Close()
			opts = append(opts, controller.WithObserver(jrnl.Observer(logger)))
		}

		if addr != "" {
			// the gauge reads the manager's state, so metrics are built after it
			opts = append(opts,
				controller.WithReporter(keepout.ReporterFunc(func(ev keepout.Event) {
					if counted != nil {
						counted.Report(ev)
					}
				})),
				controller.WithObserver(func(enabled bool, source keepout.Source) {
					if metrics != nil {
						metrics.Observe(enabled, source)
					}
				}),
			)
		}

		mgr, err := controller.NewManagerWithConfig(cfg, opts...)
		if err != nil {
			return err
		}
		if addr != "" {
			metrics = telemetry.NewMetrics(mgr.State())
			counted = metrics.Reporter(nil)
		}
		if err := mgr.Initialize(); err != nil {
			return err
		}

		start := time.Now()
		clock := func() uint32 {
			core.SetTime(uint32(time.Since(start).Milliseconds()))
			return core.GetTime()
		}
		if err := mgr.Start(clock()); err != nil {
			return err
		}
		defer mgr.Stop()

		// Pump returns on stdin EOF without a signal; cancel and join the
		// service goroutines before the manager and journal are torn down.
		var wg sync.WaitGroup
		defer func() {
			stop()
			wg.Wait()
		}()

		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := settings.Watch(ctx, cfg.SettingsPath, settings.DefaultDebounce, func() {
				if err := mgr.ReloadSettings(); err != nil {
					logger.Warn("settings reload failed", "err", err)
				}
			}); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("settings watcher stopped", "err", err)
			}
		}()

		go func() {
			defer wg.Done()
			ticker := time.NewTicker(time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					mgr.Service(clock())
				}
			}
		}()

		if addr != "" {
			deps := telemetry.Deps{
				State:    mgr.State(),
				Inputs:   mgr.Inputs,
				Position: mgr.Position,
				Metrics:  metrics,
				Driver:   driver,
				Logger:   logger,
			}
			if jrnl != nil {
				deps.Journal = jrnl
			}
			srv := &http.Server{Addr: addr, Handler: telemetry.NewHandler(deps)}
			go func() {
				logger.Info("telemetry listening", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("telemetry server failed", "err", err)
					stop()
				}
			}()
			defer shutdown(srv, logger)
		}

		port, err := openPort(device, baud)
		if err != nil {
			return err
		}
		defer port.Close()

		logger.Info("console ready", "device", deviceName(device))
		err = serial.Pump(ctx, port, mgr, logger)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("device", "d", "", "Serial device path, standard input when empty")
	runCmd.Flags().Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	runCmd.Flags().String("http", "", "Telemetry listen address, disabled when empty")
	runCmd.Flags().String("journal", "", "SQLite transition journal, overrides journal_path")
}

func openPort(device string, baud int) (serial.Port, error) {
	if device == "" {
		return serial.StdioPort{}, nil
	}
	cfg := serial.DefaultConfig(device)
	cfg.Baud = baud
	return serial.Open(cfg)
}

func deviceName(device string) string {
	if device == "" {
		return "stdio"
	}
	return device
}

func shutdown(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn(fmt.Sprintf("graceful shutdown did not complete in %v", 5*time.Second), "err", err)
		_ = srv.Close()
	}
}

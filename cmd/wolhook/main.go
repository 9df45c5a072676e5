// Command wolhook runs a command whenever a wake-on-LAN magic packet for a
// chosen MAC address arrives.
//
// Usage:
//
//	wolhook listen AA:BB:CC:DD:EE:FF systemctl start backup.service
//	wolhook listen                          # target and command from the config file
//	wolhook init AA:BB:CC:DD:EE:FF echo hi  # write a config file
//	wolhook check AA:BB:CC:DD:EE:FF         # validate a MAC address
//	wolhook check --packet capture.bin      # validate a captured magic packet
//	wolhook send AA:BB:CC:DD:EE:FF          # broadcast a magic packet
//	wolhook qr --host 192.168.1.255         # QR code for a phone sender app
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/merlos/wolhook/internal/client"
	"github.com/merlos/wolhook/internal/config"
	"github.com/merlos/wolhook/internal/hook"
	"github.com/merlos/wolhook/internal/metrics"
	"github.com/merlos/wolhook/internal/qr"
	"github.com/merlos/wolhook/internal/server"
	"github.com/merlos/wolhook/pkg/protocol"
)

var (
	configPath string
	logLevel   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wolhook",
		Short: "Run a command when a wake-on-LAN packet arrives",
		Long: `wolhook listens for wake-on-LAN magic packets on one or more UDP ports
and runs a command each time a packet for the configured MAC address arrives.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "config file path")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides log.level")

	root.AddCommand(
		newListenCmd(),
		newInitCmd(),
		newCheckCmd(),
		newSendCmd(),
		newQRCmd(),
	)
	return root
}

// newLogger creates a slog.Logger from the log section of the config. When
// cfg.File is set, output goes to a rotating file. The returned cleanup must
// be called on exit.
func newLogger(cfg config.Log, stderr io.Writer) (*slog.Logger, func() error) {
	name := cfg.Level
	if logLevel != "" {
		name = logLevel
	}

	var level slog.Level
	switch name {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	out := stderr
	cleanup := func() error { return nil }
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		out, cleanup = lj, lj.Close
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})), cleanup
}

// ────────────────────────────────────────────────────────────────────────────
// wolhook listen
// ────────────────────────────────────────────────────────────────────────────

func newListenCmd() *cobra.Command {
	var (
		address     string
		ports       []uint
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "listen [MAC COMMAND [ARGS...]]",
		Short: "Wait for magic packets and run the command on each match",
		Long: `Listen on every configured UDP port and run COMMAND each time a magic
packet for MAC arrives. Every port must bind or wolhook exits.

MAC and COMMAND may be given as arguments or in the config file; arguments
take precedence and make the config file optional. Everything after MAC is
passed to the command unchanged, including arguments that look like flags.

Example:
  wolhook listen AA:BB:CC:DD:EE:FF systemctl start backup.service
  wolhook listen --port 9 52:54:00:12:34:56 /usr/local/bin/on-wake --verbose`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return errors.New("a COMMAND is required after MAC")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := listenConfig(args)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("address") {
				cfg.Listen.Address = address
			}
			if flags.Changed("port") {
				cfg.Listen.Ports = cfg.Listen.Ports[:0]
				for _, p := range ports {
					if p > 65535 {
						return fmt.Errorf("invalid port %d", p)
					}
					cfg.Listen.Ports = append(cfg.Listen.Ports, uint16(p))
				}
			}
			if flags.Changed("metrics") {
				cfg.Metrics.Address = metricsAddr
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runListen(cfg)
		},
	}

	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&address, "address", "", "local address to bind (default from config: 0.0.0.0)")
	cmd.Flags().UintSliceVar(&ports, "port", nil, "UDP port to listen on; repeatable (default from config: 0,7,9)")
	cmd.Flags().StringVar(&metricsAddr, "metrics", "", "serve Prometheus metrics on this address, e.g. :9102")
	return cmd
}

// listenConfig loads the config file and applies the MAC and command from
// args. The file may be absent only when args supply the target.
func listenConfig(args []string) (*config.Config, error) {
	if len(args) == 0 {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	mac, err := protocol.ParseMAC(args[0])
	if err != nil {
		return nil, err
	}
	cfg.Target.MAC = mac
	cfg.Target.MACFromArgs = true
	cfg.Target.Command = args[1:]
	return cfg, nil
}

func runListen(cfg *config.Config) error {
	log, cleanup := newLogger(cfg.Log, os.Stderr)
	defer cleanup()

	m := metrics.New()
	srv, err := server.New(&server.Options{
		Address:    cfg.Listen.Address,
		Ports:      cfg.Listen.Ports,
		ReadBuffer: cfg.Listen.ReadBuffer,
		Target:     cfg.Target.MAC,
		Command:    cfg.Target.Command,
		Runner:     &hook.ExecRunner{Timeout: cfg.Target.Timeout.Duration},
		Debounce:   cfg.Target.Debounce.Duration,
		Metrics:    m,
		Log:        log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Address != "" {
		g.Go(func() error {
			if err := m.Serve(gctx, cfg.Metrics.Address, log); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error { return srv.Run(gctx) })

	if err := g.Wait(); err != nil {
		log.Error("listener stopped", "err", err)
		return err
	}
	log.Info("shutting down")
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// wolhook init
// ────────────────────────────────────────────────────────────────────────────

// newInitCmd creates the `wolhook init` command.
func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [MAC COMMAND [ARGS...]]",
		Short: "Write a default wolhook configuration",
		Long: `Write a config file with default listen settings and, if given, the target
MAC address and command.

By default the config is written to /etc/wolhook/config.yaml.
Use --config to override the path.

Example:
  sudo wolhook init AA:BB:CC:DD:EE:FF systemctl start backup.service`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return errors.New("a COMMAND is required after MAC")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.OutOrStdout(), force, args)
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config without prompting")
	return cmd
}

// runInit writes a new config. It refuses to overwrite an existing config
// unless force is set.
func runInit(out io.Writer, force bool, args []string) error {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		mac, err := protocol.ParseMAC(args[0])
		if err != nil {
			return err
		}
		cfg.Target.MAC = mac
		cfg.Target.Command = args[1:]
	}

	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("config already exists at %s\nUse --force to overwrite", configPath)
	}

	if err := config.Save(configPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(out, `wolhook configuration written to %s

  Ports:  %v
  Target: %s

Next steps:
  1. Set target.mac and target.command if you have not already.
  2. Start the listener:
       sudo wolhook listen
`, configPath, cfg.Listen.Ports, cfg.Target.MAC)
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// wolhook check
// ────────────────────────────────────────────────────────────────────────────

func newCheckCmd() *cobra.Command {
	var packetPath string

	cmd := &cobra.Command{
		Use:   "check [MAC]",
		Short: "Validate a MAC address or a captured magic packet",
		Long: `Parse a MAC address and print it in canonical form, or, with --packet,
parse a file holding one raw UDP payload and print the MAC it targets.
Invalid input is reported with the position of the problem.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if packetPath != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				mac protocol.MAC
				err error
			)
			if packetPath != "" {
				mac, err = checkPacket(packetPath)
			} else {
				mac, err = protocol.ParseMAC(args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), mac)
			return nil
		},
	}
	cmd.Flags().StringVar(&packetPath, "packet", "", "file containing a raw magic packet")
	return cmd
}

func checkPacket(path string) (protocol.MAC, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return protocol.MAC{}, fmt.Errorf("reading packet: %w", err)
	}
	return protocol.ParseMagicPacket(data)
}

// ────────────────────────────────────────────────────────────────────────────
// wolhook send
// ────────────────────────────────────────────────────────────────────────────

func newSendCmd() *cobra.Command {
	var (
		host  string
		port  uint16
		count int
	)

	cmd := &cobra.Command{
		Use:   "send MAC",
		Short: "Send a magic packet",
		Long: `Build a magic packet for MAC and send it over UDP. Broadcast is enabled,
so directed broadcast addresses such as 192.168.1.255 work.

Example:
  wolhook send AA:BB:CC:DD:EE:FF
  wolhook send AA:BB:CC:DD:EE:FF --host 192.168.1.255 --port 7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mac, err := protocol.ParseMAC(args[0])
			if err != nil {
				return err
			}
			err = client.Wake(cmd.Context(), &client.WakeOptions{
				MAC:   mac,
				Host:  host,
				Port:  port,
				Count: count,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "magic packet for %s sent to %s:%d\n", mac, host, port)
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", client.DefaultHost, "destination host or broadcast address")
	cmd.Flags().Uint16Var(&port, "port", client.DefaultPort, "destination UDP port")
	cmd.Flags().IntVar(&count, "count", 1, "number of packets to send")
	return cmd
}

// ────────────────────────────────────────────────────────────────────────────
// wolhook qr
// ────────────────────────────────────────────────────────────────────────────

func newQRCmd() *cobra.Command {
	var (
		macStr string
		name   string
		host   string
		port   uint16
		output string
	)

	cmd := &cobra.Command{
		Use:   "qr",
		Short: "Show a QR code for configuring a phone wake-on-LAN sender",
		Long: `Print a QR code describing the target MAC address and where to send the
magic packet. The MAC defaults to target.mac from the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var mac protocol.MAC
			if macStr != "" {
				var err error
				if mac, err = protocol.ParseMAC(macStr); err != nil {
					return err
				}
			} else {
				cfg, err := config.Load(configPath)
				if err != nil {
					return fmt.Errorf("loading config (or pass --mac): %w", err)
				}
				mac = cfg.Target.MAC
			}

			return qr.Generate(&qr.Payload{
				Name: name,
				MAC:  mac,
				Host: host,
				Port: port,
			}, &qr.GenerateOptions{
				OutputPath: output,
				Out:        cmd.OutOrStdout(),
			})
		},
	}
	cmd.Flags().StringVar(&macStr, "mac", "", "target MAC address (default: target.mac from config)")
	cmd.Flags().StringVar(&name, "name", "", "label for the target on the phone")
	cmd.Flags().StringVar(&host, "host", client.DefaultHost, "address the phone should send to")
	cmd.Flags().Uint16Var(&port, "port", client.DefaultPort, "UDP port the phone should send to")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write PNG to this path instead of printing")
	return cmd
}

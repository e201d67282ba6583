package main

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"time"

	"github.com/fentz26/leadboard/internal/board"
	"github.com/fentz26/leadboard/internal/client"
	"github.com/fentz26/leadboard/internal/config"
	"github.com/fentz26/leadboard/internal/logger"
	"github.com/fentz26/leadboard/internal/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var noAutostart bool

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Launch the interactive pipeline board",
	RunE:  runBoard,
}

func init() {
	boardCmd.Flags().BoolVar(&noAutostart, "no-autostart", false, "Do not start a local daemon when none is running")
	boardCmd.Flags().Bool("touch", false, "Treat mouse input as touch (hold to drag)")
}

func runBoard(cmd *cobra.Command, args []string) error {
	if touch, _ := cmd.Flags().GetBool("touch"); touch {
		cfg.Board.TouchPrimary = true
	}

	var err error
	log, err = logger.NewFile(cfg.Log.Level, cfg.Log.Format, "leadboard-board", cfg.Log.File)
	if err != nil {
		return fmt.Errorf("open board log: %w", err)
	}

	c := client.New(apiAddr, cfg.Client.Timeout, log.Named("client"))

	// 1. Check if Daemon is running
	if !isDaemonRunning(cmd.Context(), c) {
		if noAutostart {
			return fmt.Errorf("lead store daemon not reachable at %s", apiAddr)
		}
		fmt.Println("⚡ Leadboard daemon not running. Starting background service...")
		if err := startDaemon(cmd.Context(), c); err != nil {
			return fmt.Errorf("failed to start daemon: %w", err)
		}
	}

	// 2. Launch board
	app := tui.New(tui.Options{
		API:     c,
		Caps:    tui.NewTerminalCaps(cfg.Board.TouchPrimary, thresholds(cfg.Board)),
		Log:     log.Named("board"),
		Timeout: cfg.Client.Timeout,
	})
	if err := app.Run(); err != nil {
		return fmt.Errorf("board error: %w", err)
	}
	return nil
}

func thresholds(b config.BoardConfig) board.Thresholds {
	conv := func(s config.SensorConfig) board.SensorConfig {
		return board.SensorConfig{Distance: s.Distance, Delay: s.Delay, Tolerance: s.Tolerance}
	}
	return board.Thresholds{
		Pointer:  conv(b.Pointer),
		Touch:    conv(b.Touch),
		Keyboard: conv(b.Keyboard),
	}
}

// listenAddrFor turns the API base URL into the host:port a local daemon
// must bind for that URL to reach it.
func listenAddrFor(api string) (string, error) {
	u, err := url.Parse(api)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid API address %q", api)
	}
	if u.Port() != "" {
		return u.Host, nil
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

func isDaemonRunning(ctx context.Context, c *client.Client) bool {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	h, err := c.Health(ctx)
	return err == nil && h.OK
}

func startDaemon(ctx context.Context, c *client.Client) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	// Listen where the board is going to look for it.
	listen, err := listenAddrFor(apiAddr)
	if err != nil {
		return err
	}
	args := []string{"daemon", "--listen", listen}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	cmd := exec.Command(exe, args...)
	// Detach process so it survives board exit
	configureDaemonProc(cmd)

	// Keep the daemon off the terminal the board is about to take over.
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return err
	}
	log.Info("daemon started", zap.Int("pid", cmd.Process.Pid))

	// Wait for it to become ready
	fmt.Print("   Waiting for daemon...")
	for i := 0; i < 20; i++ { // Wait up to 5 seconds
		if isDaemonRunning(ctx, c) {
			fmt.Println(" Done.")
			return nil
		}
		time.Sleep(250 * time.Millisecond)
		fmt.Print(".")
	}
	fmt.Println(" Timeout!")
	return fmt.Errorf("daemon started but API not reachable at %s", apiAddr)
}

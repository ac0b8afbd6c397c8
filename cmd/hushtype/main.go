package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/hushtype/hushtype/internal/bus"
	"github.com/hushtype/hushtype/internal/config"
	"github.com/hushtype/hushtype/internal/daemon"
	"github.com/hushtype/hushtype/internal/deps"
	"github.com/hushtype/hushtype/internal/history"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	_ = rootCmd.Execute()
}

var rootCmd = &cobra.Command{
	Use:   "hushtype",
	Short: "Hotkey-driven voice dictation for Wayland",
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		toggleCmd(),
		cancelCmd(),
		statusCmd(),
		versionCmd(),
		stopCmd(),
		doctorCmd(),
		historyCmd(),
		pluginsCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := config.NewManager()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if err := manager.GetConfig().Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return daemon.New(version, manager).Run()
		},
	}
}

func toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Toggle recording on/off",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdToggle)
			if err != nil {
				return fmt.Errorf("failed to toggle recording: %w", err)
			}
			fmt.Println(resp)
			return nil
		},
	}
}

func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Abort the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdCancel)
			if err != nil {
				return fmt.Errorf("failed to cancel: %w", err)
			}
			fmt.Println(resp)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the pipeline state",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdStatus)
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}
			fmt.Println(resp)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show client and daemon versions",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hushtype %s\n", version)
			if resp, err := bus.SendCommand(bus.CmdVersion); err == nil {
				fmt.Printf("daemon: %s\n", resp)
			}
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdQuit)
			if err != nil {
				return fmt.Errorf("failed to stop daemon: %w", err)
			}
			fmt.Println(resp)
			return nil
		},
	}
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tool dependencies",
		Run: func(cmd *cobra.Command, args []string) {
			missing := 0
			for _, s := range deps.CheckAll() {
				mark := "ok "
				if !s.Installed {
					if s.Required {
						mark = "MISSING"
						missing++
					} else {
						mark = "absent"
					}
				}
				line := fmt.Sprintf("%-12s %-8s %s", s.Name, mark, s.Note)
				if s.Version != "" {
					line += " (" + s.Version + ")"
				}
				fmt.Println(line)
			}
			if missing > 0 {
				fmt.Printf("\n%d required tool(s) missing\n", missing)
			}
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent dictations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			path := cfg.History.Path
			if path == "" {
				path, err = history.DefaultPath()
				if err != nil {
					return err
				}
			}

			store, err := history.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open history (is the daemon running?): %w", err)
			}
			defer store.Close()

			records, err := store.Recent(limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("no dictations yet")
				return nil
			}
			for _, rec := range records {
				app := rec.AppClass
				if app == "" {
					app = "-"
				}
				fmt.Printf("%s  %-16s %s\n",
					rec.CreatedAt.Local().Format(time.DateTime),
					app,
					truncate(rec.Text, 60))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of records to show")
	return cmd
}

func pluginsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "Show the daemon's plugin status",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdPlugins)
			if err != nil {
				return fmt.Errorf("daemon not running: %w", err)
			}
			fmt.Println(resp)

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			dir, err := daemon.PluginDir(cfg)
			if err != nil {
				return err
			}
			fmt.Printf("plugin directory: %s\n", dir)
			return nil
		},
	}
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

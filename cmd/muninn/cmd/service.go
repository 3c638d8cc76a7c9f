/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ssargent/muninn/pkg/config"

	"github.com/spf13/cobra"
)

// serviceUnitPath is where the systemd unit file is installed.
const serviceUnitPath = "/etc/systemd/system/muninn.service"

// serviceCmd represents the service command
var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage muninn as a systemd service",
	Long: `Manage muninn as a systemd service. This command provides native
integration with systemd for production deployments.

The service is installed with restart on failure and a restrictive
umask, writable only where the configuration points it.`,
	// Service management works on the unit file and systemctl; it must
	// not fail because no configuration has been written yet.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
}

// installServiceCmd represents the service install command
var installServiceCmd = &cobra.Command{
	Use:   "install",
	Short: "Install muninn as a systemd service",
	Long: `Install muninn as a systemd service. Creates the configuration if
none exists, writes the unit file, and enables the service.

Examples:
  sudo muninn service install
  sudo muninn service install --data /var/lib/muninn --user muninn`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data")
		configPath, _ := cmd.Flags().GetString("config")
		user, _ := cmd.Flags().GetString("user")
		port, _ := cmd.Flags().GetInt("port")
		startNow, _ := cmd.Flags().GetBool("start")

		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}
		if os.Geteuid() != 0 {
			return fmt.Errorf("service install requires root privileges; run with sudo")
		}

		var cfg *config.Config
		var err error
		if config.ConfigExists(configPath) {
			cfg, err = config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cmd.Printf("Loaded existing configuration from %s\n", configPath)
		} else {
			cfg, err = config.BootstrapConfig(configPath, dataDir)
			if err != nil {
				return fmt.Errorf("failed to bootstrap config: %w", err)
			}
			cmd.Printf("Created new configuration at %s\n", configPath)
		}

		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = port
		}
		if err := config.SaveConfig(cfg, configPath); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		unit := systemdUnit(cfg, configPath, user)
		if err := os.WriteFile(serviceUnitPath, []byte(unit), 0600); err != nil {
			return fmt.Errorf("failed to write unit file: %w", err)
		}
		if err := runSystemctl("daemon-reload"); err != nil {
			return fmt.Errorf("failed to reload systemd: %w", err)
		}
		if err := runSystemctl("enable", "muninn.service"); err != nil {
			return fmt.Errorf("failed to enable service: %w", err)
		}
		cmd.Printf("✅ Service enabled\n")

		if startNow {
			if err := runSystemctl("start", "muninn.service"); err != nil {
				return fmt.Errorf("failed to start service: %w", err)
			}
			cmd.Printf("✅ Service started\n")
		}

		cmd.Printf("\nService: muninn.service\n")
		cmd.Printf("Config: %s\n", configPath)
		cmd.Printf("Data: %s\n", cfg.DataDir)
		cmd.Printf("Port: %d\n", cfg.Port)
		if !startNow {
			cmd.Printf("\nTo start the service: sudo systemctl start muninn.service\n")
		}
		cmd.Printf("To view logs: sudo journalctl -u muninn.service -f\n")
		return nil
	},
}

// startServiceCmd represents the service start command
var startServiceCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the muninn service",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runSystemctl("start", "muninn.service"); err != nil {
			return fmt.Errorf("failed to start service: %w", err)
		}
		cmd.Printf("✅ muninn service started\n")
		return nil
	},
}

// stopServiceCmd represents the service stop command
var stopServiceCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the muninn service",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runSystemctl("stop", "muninn.service"); err != nil {
			return fmt.Errorf("failed to stop service: %w", err)
		}
		cmd.Printf("✅ muninn service stopped\n")
		return nil
	},
}

// restartServiceCmd represents the service restart command
var restartServiceCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the muninn service",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runSystemctl("restart", "muninn.service"); err != nil {
			return fmt.Errorf("failed to restart service: %w", err)
		}
		cmd.Printf("✅ muninn service restarted\n")
		return nil
	},
}

// statusServiceCmd represents the service status command
var statusServiceCmd = &cobra.Command{
	Use:   "status",
	Short: "Show muninn service status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSystemctl("status", "muninn.service")
	},
}

// logsServiceCmd represents the service logs command
var logsServiceCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show muninn service logs",
	Long: `Show muninn service logs using journalctl.

Examples:
  muninn service logs
  muninn service logs -f`,
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		lines, _ := cmd.Flags().GetInt("lines")

		journalArgs := []string{"-u", "muninn.service"}
		if follow {
			journalArgs = append(journalArgs, "-f")
		}
		if lines > 0 {
			journalArgs = append(journalArgs, fmt.Sprintf("-n%d", lines))
		}
		return runCommand("journalctl", journalArgs...)
	},
}

// uninstallServiceCmd represents the service uninstall command
var uninstallServiceCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the muninn service",
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Geteuid() != 0 {
			return fmt.Errorf("service uninstall requires root privileges; run with sudo")
		}

		// Ignore the error, the service may already be stopped.
		_ = runSystemctl("stop", "muninn.service")

		if err := runSystemctl("disable", "muninn.service"); err != nil {
			cmd.Printf("Warning: could not disable service: %v\n", err)
		}
		if _, err := os.Stat(serviceUnitPath); err == nil {
			if err := os.Remove(serviceUnitPath); err != nil {
				return fmt.Errorf("failed to remove unit file: %w", err)
			}
		}
		if err := runSystemctl("daemon-reload"); err != nil {
			return fmt.Errorf("failed to reload systemd: %w", err)
		}

		cmd.Printf("✅ muninn service uninstalled\n")
		cmd.Printf("Configuration and data files were not removed\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serviceCmd)

	serviceCmd.AddCommand(installServiceCmd)
	serviceCmd.AddCommand(startServiceCmd)
	serviceCmd.AddCommand(stopServiceCmd)
	serviceCmd.AddCommand(restartServiceCmd)
	serviceCmd.AddCommand(statusServiceCmd)
	serviceCmd.AddCommand(logsServiceCmd)
	serviceCmd.AddCommand(uninstallServiceCmd)

	installServiceCmd.Flags().String("user", "muninn", "User to run the service as")
	installServiceCmd.Flags().Int("port", 8080, "Port for the service")
	installServiceCmd.Flags().Bool("start", true, "Start the service after installation")

	logsServiceCmd.Flags().BoolP("follow", "f", false, "Follow log output")
	logsServiceCmd.Flags().IntP("lines", "n", 0, "Number of lines to show")
}

// systemdUnit renders the unit file for the given configuration. The
// service only gets write access to the directories the config names.
func systemdUnit(cfg *config.Config, configPath, user string) string {
	return fmt.Sprintf(`[Unit]
Description=Muninn Server
After=network-online.target
Wants=network-online.target

[Service]
User=%s
Group=%s
ExecStart=/usr/local/bin/muninn serve --config %s
Restart=on-failure
NoNewPrivileges=true
UMask=0077
ReadWritePaths=%s
ReadWritePaths=%s
ReadWritePaths=%s
ReadWritePaths=%s

[Install]
WantedBy=multi-user.target
`, user, user, configPath, cfg.DataDir, cfg.ArchiveDir, cfg.SnapshotDir, filepath.Dir(configPath))
}

// runSystemctl runs a systemctl command.
func runSystemctl(args ...string) error {
	return runCommand("systemctl", args...)
}

// runCommand runs a system command, passing its output through.
func runCommand(command string, args ...string) error {
	cmd := exec.Command(command, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

package main

import (
	"time"

	"github.com/spf13/cobra"

	"updatenotifier/internal/daemonrun"
)

func newRootCommand() *cobra.Command {
	var socketFlag string
	var configFlag string

	ctx := newCommandContext(&socketFlag, &configFlag)

	var (
		logLevel     string
		force        bool
		forcePkexec  bool
		startupDelay int
		debugAll     bool
	)
	debug := make(map[string]*bool, len(daemonrun.Components))

	rootCmd := &cobra.Command{
		Use:           "update-notifier",
		Short:         "Desktop session daemon that reports available updates",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var components []string
			for _, name := range daemonrun.Components {
				if debugAll || *debug[name] {
					components = append(components, name)
				}
			}
			delay := time.Duration(-1)
			if startupDelay >= 0 {
				delay = time.Duration(startupDelay) * time.Second
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:     logLevel,
				Debug:        components,
				Force:        force,
				ForcePkexec:  forcePkexec,
				StartupDelay: delay,
				Stdout:       shouldColorize(cmd.OutOrStdout()),
			})
		},
	}

	rootCmd.PersistentFlags().StringVar(&socketFlag, "socket", "", "Path to the update-notifier daemon socket")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	flags := rootCmd.Flags()
	flags.StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	for _, name := range daemonrun.Components {
		debug[name] = flags.Bool("debug-"+name, false, "Debug output for "+name)
	}
	flags.BoolVar(&debugAll, "debug", false, "Debug output for every component")
	flags.BoolVar(&force, "force", false, "Start even for system accounts and non-admin users")
	flags.BoolVar(&forcePkexec, "force-use-pkexec", false, "Run the update manager through pkexec")
	flags.IntVar(&startupDelay, "startup-delay", -1, "Seconds to wait before creating the applets (default from config)")

	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newStopCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))

	return rootCmd
}

package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zulandar/cockpit/internal/config"
	"github.com/zulandar/cockpit/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBCheckCmd())
	cmd.AddCommand(newDBLinkUserCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the dashboard tables",
		Long:  "Creates the MySQL database when needed and migrates every table the dashboard reads.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Cockpit config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fmt.Fprintf(out, "Loaded config (%s database) from %s\n", cfg.Database.Driver, configPath)

	d := cfg.Database
	if d.Driver == db.DriverMySQL && d.DSN == "" {
		adminDB, err := db.ConnectAdmin(d.User, d.Password, d.Host, d.Port)
		if err != nil {
			return fmt.Errorf("connect to MySQL at %s:%d: %w", d.Host, d.Port, err)
		}
		if err := db.CreateDatabase(adminDB, d.Name); err != nil {
			return err
		}
		fmt.Fprintf(out, "Database %s ready\n", d.Name)
	}

	gormDB, err := db.Connect(d.Driver, dsnFor(d))
	if err != nil {
		return fmt.Errorf("connect to %s database: %w", d.Driver, err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))
	fmt.Fprintln(out, "\nCockpit database initialized successfully.")
	return nil
}

func newDBCheckCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report which critical tables exist",
		Long:  "Lists every table the dashboard depends on and whether it exists. Exits non-zero when any is missing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			return printTableCheck(cmd, db.CheckTables(gormDB))
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Cockpit config file")
	return cmd
}

func printTableCheck(cmd *cobra.Command, tables map[string]string) error {
	out := cmd.OutOrStdout()
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	missing := 0
	for _, name := range names {
		fmt.Fprintf(out, "%-24s %s\n", name, tables[name])
		if tables[name] == db.TableMissing {
			missing++
		}
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d critical tables missing", missing, len(names))
	}
	fmt.Fprintf(out, "\nAll %d critical tables present.\n", len(names))
	return nil
}

func newDBLinkUserCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "link-user <auth-uid> <user-id>",
		Short: "Map an identity provider user to a dashboard user id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || userID <= 0 {
				return fmt.Errorf("user id must be a positive integer, got %q", args[1])
			}
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := db.LinkUser(gormDB, cfg.Auth.LinksTable, args[0], userID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Linked %s to user %d\n", args[0], userID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Cockpit config file")
	return cmd
}

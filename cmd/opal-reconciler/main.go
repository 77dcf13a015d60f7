package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/opalmedapps/opal-reconciler/internal/config"
	"github.com/opalmedapps/opal-reconciler/internal/platform/db"
	"github.com/opalmedapps/opal-reconciler/internal/platform/hl7v2"
	"github.com/opalmedapps/opal-reconciler/internal/reconcile"
	"github.com/opalmedapps/opal-reconciler/internal/stats"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "opal-reconciler",
		Short:        "Legacy/reference data reconciliation for the Opal backend",
		SilenceUsage: true,
	}

	cmd.AddCommand(deviationsCmd())
	cmd.AddCommand(statsCmd())
	cmd.AddCommand(hl7Cmd())
	return cmd
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func deviationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deviations",
		Short: "Find data deviations between the reference and legacy databases",
	}

	patientsCmd := &cobra.Command{
		Use:   "patients",
		Short: "Check the Patient, Hospital Identifier, and Caregiver tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			allowedIDs, _ := cmd.Flags().GetInt64Slice("legacy-id")
			checks := []reconcile.Check{
				reconcile.NewPatientsCheck(allowedIDs),
				reconcile.NewHospitalPatientsCheck(),
				reconcile.NewCaregiversCheck(),
			}
			return runDeviations(cmd.Context(), checks, "Patient and Caregiver")
		},
	}
	patientsCmd.Flags().Int64Slice("legacy-id", nil, "Restrict the patients check to these legacy patient identifiers")
	cmd.AddCommand(patientsCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "respondents",
		Short: "Check questionnaire respondent names against caregiver records",
		RunE: func(cmd *cobra.Command, args []string) error {
			checks := []reconcile.Check{reconcile.NewRespondentsCheck()}
			return runDeviations(cmd.Context(), checks, "Questionnaire Respondent")
		},
	})

	return cmd
}

func runDeviations(ctx context.Context, checks []reconcile.Check, groupName string) error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	reference, err := db.NewPool(ctx, "reference", cfg.ReferenceDatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer reference.Close()

	legacy, err := db.NewPool(ctx, "legacy", cfg.LegacyDatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer legacy.Close()

	runner := &reconcile.Runner{
		Reference: reconcile.Source{Name: "reference", DB: reference},
		Legacy:    reconcile.Source{Name: "legacy", DB: legacy},
		Checks:    checks,
		GroupName: groupName,
		Out:       os.Stdout,
		Log:       logger,
	}
	return runner.Run(ctx)
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Usage statistics operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Migrate legacy usage statistics from the report database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateReportSource(); err != nil {
				return err
			}

			report, err := db.NewPool(ctx, "report", cfg.ReportDatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer report.Close()

			reference, err := db.NewPool(ctx, "reference", cfg.ReferenceDatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer reference.Close()

			m := &stats.Migrator{Report: report, Reference: reference, Log: logger}
			sum, err := m.Run(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Number of imported legacy activity logs: %d (out of %d)\n",
				sum.ActivityImported, sum.ActivityTotal)
			fmt.Printf("Number of imported legacy data received logs: %d (out of %d)\n",
				sum.DataReceivedImported, sum.DataReceivedTotal)
			return nil
		},
	})

	return cmd
}

func hl7Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hl7",
		Short: "HL7v2 message utilities",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "inspect <file>",
		Short: "Parse a pharmacy (RDE) message and print the extracted fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read message file: %w", err)
			}

			msg, err := hl7v2.Parse(raw)
			if err != nil {
				return err
			}
			order, err := msg.ExtractPharmacyOrder()
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(order, "", "  ")
			if err != nil {
				return fmt.Errorf("encode order: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	})

	return cmd
}

package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"anoa.com/venti/internal/entity"
	progression "anoa.com/venti/internal/modules/progression/service"
)

func newGrantAllCommand(open func() (progression.XPService, func(), error)) *cobra.Command {
	var (
		amount      int
		reason      string
		description string
		dryRun      bool
	)
	command := &cobra.Command{
		Use:   "grant-all",
		Short: "Grant XP to every profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if amount <= 0 || amount > progression.MaxGrantAmount {
				return fmt.Errorf("--amount must be between 1 and %d, got %d", progression.MaxGrantAmount, amount)
			}

			svc, closer, err := open()
			if err != nil {
				return err
			}
			defer closer()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			result, err := svc.GrantAll(ctx, amount, entity.XPReason(reason), description, dryRun)
			if err != nil {
				return fmt.Errorf("GrantAll() > %w", err)
			}

			out := cmd.OutOrStdout()
			if result.DryRun {
				_, _ = fmt.Fprintln(out, color.YellowString("dry run, nothing was written"))
			}
			_, _ = fmt.Fprintf(out, "profiles: %d\n", result.TotalProfiles)
			_, _ = fmt.Fprintln(out, color.GreenString("succeeded: %d", result.Succeeded))
			_, _ = fmt.Fprintln(out, color.YellowString("capped: %d", result.Capped))
			if result.Failed > 0 {
				_, _ = fmt.Fprintln(out, color.RedString("failed: %d", result.Failed))
			} else {
				_, _ = fmt.Fprintf(out, "failed: %d\n", result.Failed)
			}
			_, _ = fmt.Fprintf(out, "total xp granted: %d\n", result.TotalXPGranted)

			if result.Failed > 0 {
				return fmt.Errorf("%d of %d grants failed", result.Failed, result.TotalProfiles)
			}
			return nil
		},
	}
	command.Flags().IntVar(&amount, "amount", 0, "XP to grant each profile")
	command.Flags().StringVar(&reason, "reason", string(entity.ReasonFeatureUse), "reason recorded on each XP log")
	command.Flags().StringVar(&description, "description", "New feature reward", "description recorded on each XP log")
	command.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be granted without writing")
	return command
}

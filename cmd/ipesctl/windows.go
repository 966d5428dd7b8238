package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/ipes-academic-api/internal/models"
)

func newWindowsCmd(withSession sessionRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "windows",
		Short: "Inspect or change enrollment windows",
	}

	var (
		kind   string
		opens  string
		closes string
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Store the bounds of an enrollment window (RFC3339; empty clears the bound)",
		RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
			opensAt, err := parseBound(opens)
			if err != nil {
				return fmt.Errorf("--opens: %w", err)
			}
			closesAt, err := parseBound(closes)
			if err != nil {
				return fmt.Errorf("--closes: %w", err)
			}
			if err := s.engine.Windows.SetWindow(cmd.Context(), s.actor, models.WindowKind(kind), opensAt, closesAt); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ventana %s actualizada\n", kind)
			return nil
		}),
	}
	set.Flags().StringVar(&kind, "kind", string(models.WindowSubjectEnrollment), "subject_enrollment or exam_signup")
	set.Flags().StringVar(&opens, "opens", "", "opening instant")
	set.Flags().StringVar(&closes, "closes", "", "closing instant")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective bounds and whether the window is open now",
		RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
			for _, k := range []models.WindowKind{models.WindowSubjectEnrollment, models.WindowExamSignup} {
				window, err := s.engine.Windows.Resolve(cmd.Context(), k)
				if err != nil {
					return err
				}
				open, err := s.engine.Windows.IsOpen(cmd.Context(), k, time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\tabierta=%s\n", k, formatBound(window.OpensAt), formatBound(window.ClosesAt), yesNo(open))
			}
			return nil
		}),
	}

	cmd.AddCommand(set, show)
	return cmd
}

func parseBound(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatBound(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

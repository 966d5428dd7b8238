package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/ipes-academic-api/internal/dto"
)

func newDistributeCmd(withSession sessionRunner) *cobra.Command {
	var (
		origin      string
		destination string
		percentage  int
	)
	cmd := &cobra.Command{
		Use:   "distribute",
		Short: "Move a random share of a commission roster into another commission",
		RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
			moved, err := s.engine.Commissions.Distribute(cmd.Context(), s.actor, origin, dto.DistributeRequest{
				DestinationCommissionID: destination,
				Percentage:              percentage,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d inscripciones movidas de %s a %s\n", moved, origin, destination)
			return nil
		}),
	}
	cmd.Flags().StringVar(&origin, "from", "", "origin commission ID")
	cmd.Flags().StringVar(&destination, "to", "", "destination commission ID")
	cmd.Flags().IntVar(&percentage, "percentage", 0, "share of the roster to move (1-100)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("percentage")
	return cmd
}

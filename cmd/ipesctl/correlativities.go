package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/ipes-academic-api/internal/dto"
	"github.com/noah-isme/ipes-academic-api/internal/models"
	appErrors "github.com/noah-isme/ipes-academic-api/pkg/errors"
)

// planFile is the on-disk format of a plan's prerequisite graph.
//
//	plan: plan-2019
//	correlativities:
//	  - subject: practica-2
//	    requires: pedagogia
//	    kind: PASSED_TO_ENROLL
type planFile struct {
	Plan            string     `yaml:"plan"`
	Correlativities []planEdge `yaml:"correlativities"`
}

type planEdge struct {
	Subject  string                   `yaml:"subject"`
	Requires string                   `yaml:"requires"`
	Kind     models.CorrelativityKind `yaml:"kind"`
}

type edgeAdder interface {
	AddEdge(ctx context.Context, actor *models.Principal, req dto.CreateCorrelativityRequest) (*models.Correlativity, error)
}

type loadResult struct {
	Added   int
	Skipped int
}

func newCorrelativitiesCmd(withSession sessionRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correlativities",
		Short: "Manage the prerequisite graph",
	}

	var (
		file         string
		skipExisting bool
	)
	load := &cobra.Command{
		Use:   "load",
		Short: "Load prerequisite edges from a YAML plan file",
		RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open plan file: %w", err)
			}
			defer f.Close()

			result, err := loadCorrelativities(cmd.Context(), s.engine.Correlativities, s.actor, f, skipExisting)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d correlatividades cargadas, %d existentes omitidas\n", result.Added, result.Skipped)
			return nil
		}),
	}
	load.Flags().StringVarP(&file, "file", "f", "", "YAML plan file")
	load.Flags().BoolVar(&skipExisting, "skip-existing", true, "ignore edges that are already stored")
	_ = load.MarkFlagRequired("file")

	cmd.AddCommand(load)
	return cmd
}

func decodePlanFile(r io.Reader) (*planFile, error) {
	var plan planFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&plan); err != nil {
		return nil, fmt.Errorf("decode plan file: %w", err)
	}
	for i, edge := range plan.Correlativities {
		if edge.Subject == "" || edge.Requires == "" {
			return nil, fmt.Errorf("correlativity #%d: subject and requires are mandatory", i+1)
		}
		if !edge.Kind.Valid() {
			return nil, fmt.Errorf("correlativity #%d: unknown kind %q", i+1, edge.Kind)
		}
	}
	return &plan, nil
}

// loadCorrelativities adds every edge in file order. Each edge goes through the same checks as the API,
// so a cycle or cross-plan edge stops the load at that line.
func loadCorrelativities(ctx context.Context, adder edgeAdder, actor *models.Principal, r io.Reader, skipExisting bool) (loadResult, error) {
	var result loadResult
	plan, err := decodePlanFile(r)
	if err != nil {
		return result, err
	}
	for i, edge := range plan.Correlativities {
		_, err := adder.AddEdge(ctx, actor, dto.CreateCorrelativityRequest{
			SubjectID:         edge.Subject,
			RequiredSubjectID: edge.Requires,
			Kind:              edge.Kind,
		})
		if err != nil {
			if skipExisting && errors.Is(err, appErrors.ErrConflict) {
				result.Skipped++
				continue
			}
			return result, fmt.Errorf("correlativity #%d (%s -> %s): %w", i+1, edge.Subject, edge.Requires, err)
		}
		result.Added++
	}
	return result, nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noah-isme/ipes-academic-api/internal/dto"
	"github.com/noah-isme/ipes-academic-api/internal/models"
)

type sessionRunner func(run func(cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error

type overviewReader interface {
	Overview(ctx context.Context, actor *models.Principal, studentID, planID string) (*dto.EligibilityOverview, error)
	StudentByDNI(ctx context.Context, actor *models.Principal, dni string) (*models.Student, error)
}

const (
	formatTable = "table"
	formatJSON  = "json"
)

var eligibilityHeaders = []string{"AÑO", "MATERIA", "APROBADA", "REGULAR", "CURSAR", "RENDIR REGULAR", "PENDIENTES"}

func newEligibilityCmd(withSession sessionRunner) *cobra.Command {
	var (
		studentID string
		dni       string
		planID    string
		format    string
		outPath   string
	)
	cmd := &cobra.Command{
		Use:   "eligibility",
		Short: "Print what a student may enroll in or sit for across a plan",
		Long:  "Formats: table (default) and json. Use --out to write the result to a file.",
		RunE: withSession(func(cmd *cobra.Command, _ []string, s *session) error {
			id, err := resolveStudentID(cmd.Context(), s.engine.Eligibility, s.actor, studentID, dni)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create %s: %w", outPath, err)
				}
				defer f.Close()
				out = f
			}
			return printEligibility(cmd.Context(), out, s.engine.Eligibility, s.actor, id, planID, format)
		}),
	}
	cmd.Flags().StringVar(&studentID, "student", "", "student ID")
	cmd.Flags().StringVar(&dni, "dni", "", "student national ID, as an alternative to --student")
	cmd.Flags().StringVar(&planID, "plan", "", "plan ID")
	cmd.Flags().StringVar(&format, "format", formatTable, "output format: table or json")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write output to this file instead of stdout")
	cmd.MarkFlagsOneRequired("student", "dni")
	cmd.MarkFlagsMutuallyExclusive("student", "dni")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

// resolveStudentID returns studentID as given, or looks the student up by DNI.
func resolveStudentID(ctx context.Context, reader overviewReader, actor *models.Principal, studentID, dni string) (string, error) {
	if dni == "" {
		return studentID, nil
	}
	student, err := reader.StudentByDNI(ctx, actor, strings.TrimSpace(dni))
	if err != nil {
		return "", err
	}
	return student.ID, nil
}

func printEligibility(ctx context.Context, out io.Writer, reader overviewReader, actor *models.Principal, studentID, planID, format string) error {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "" && format != formatTable && format != formatJSON {
		return fmt.Errorf("unsupported output format %q", format)
	}

	overview, err := reader.Overview(ctx, actor, studentID, planID)
	if err != nil {
		return err
	}
	if format == formatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(overview)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(eligibilityHeaders, "\t"))
	for _, row := range eligibilityRows(overview) {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func eligibilityRows(overview *dto.EligibilityOverview) [][]string {
	rows := make([][]string, 0, len(overview.Subjects))
	for _, subject := range overview.Subjects {
		rows = append(rows, []string{
			strconv.Itoa(subject.Year),
			subject.SubjectName,
			yesNo(subject.Passed),
			yesNo(subject.ActiveRegularity != nil),
			yesNo(subject.CanEnroll),
			yesNo(subject.CanSitRegular),
			pending(subject),
		})
	}
	return rows
}

func yesNo(v bool) string {
	if v {
		return "sí"
	}
	return "no"
}

func pending(subject dto.SubjectEligibility) string {
	seen := map[string]struct{}{}
	var names []string
	for _, v := range append(append([]models.Violation{}, subject.EnrollViolations...), subject.ExamViolations...) {
		if _, ok := seen[v.RequiredSubjectName]; ok {
			continue
		}
		seen[v.RequiredSubjectName] = struct{}{}
		names = append(names, v.RequiredSubjectName)
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ipes-academic-api/internal/dto"
	"github.com/noah-isme/ipes-academic-api/internal/models"
	appErrors "github.com/noah-isme/ipes-academic-api/pkg/errors"
)

func TestCorrelativityServiceNoEdgesIsSatisfied(t *testing.T) {
	e := newEngine(t)
	ok, violations, err := e.correlativity.CheckSatisfied(context.Background(), studentID, subjPractica, models.PurposeEnroll)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, violations)
}

func TestCorrelativityServiceReportsViolations(t *testing.T) {
	e := newEngine(t)
	e.addEdge(subjPractica, subjDidactica, models.CorrelativityPassedToEnroll)
	e.addEdge(subjPractica, subjPedagogia, models.CorrelativityRegularToEnroll)
	e.addEdge(subjPractica, subjDidactica, models.CorrelativityPassedToExam)
	e.addRegularity(studentID, subjDidactica, models.SituationRegular, 20)
	e.addRegularity(studentID, subjPedagogia, models.SituationRegular, 800)

	ok, violations, err := e.correlativity.CheckSatisfied(context.Background(), studentID, subjPractica, models.PurposeEnroll)
	require.NoError(t, err)
	assert.False(t, ok)

	want := []models.Violation{
		{RequiredSubjectID: subjDidactica, RequiredSubjectName: "Didáctica General", Kind: models.CorrelativityPassedToEnroll, Expected: models.RequiredPassed, Actual: models.ActualRegular},
		{RequiredSubjectID: subjPedagogia, RequiredSubjectName: "Pedagogía", Kind: models.CorrelativityRegularToEnroll, Expected: models.RequiredRegular, Actual: models.ActualExpiredRegular},
	}
	if diff := cmp.Diff(want, violations); diff != "" {
		t.Fatalf("violations mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t,
		"Correlatividades no cumplidas: Didáctica General (requiere APROBADA, estado actual: REGULAR); Pedagogía (requiere REGULAR, estado actual: REGULARIDAD VENCIDA)",
		FormatViolations(violations))
}

func TestCorrelativityServiceRegularRequirementMetByPassed(t *testing.T) {
	e := newEngine(t)
	e.addEdge(subjPractica, subjDidactica, models.CorrelativityRegularToExam)
	e.addRegularity(studentID, subjDidactica, models.SituationRegular, 900)
	e.store.actas = append(e.store.actas, models.ActaRecord{ID: "acta-1", StudentDNI: studentDNI, SubjectID: subjDidactica, Grade: "9"})

	ok, violations, err := e.correlativity.CheckSatisfied(context.Background(), studentID, subjPractica, models.PurposeExam)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, violations)
}

func TestCorrelativityServiceCachesEdges(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	e.addEdge(subjPractica, subjDidactica, models.CorrelativityPassedToEnroll)

	first, err := e.correlativity.RequiredEdges(ctx, subjPractica, models.PurposeEnroll)
	require.NoError(t, err)
	second, err := e.correlativity.RequiredEdges(ctx, subjPractica, models.PurposeEnroll)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, e.corrRepo.listCalls)

	_, err = e.correlativity.AddEdge(ctx, adminPrincipal(), dto.CreateCorrelativityRequest{SubjectID: subjPractica, RequiredSubjectID: subjPedagogia, Kind: models.CorrelativityPassedToEnroll})
	require.NoError(t, err)

	third, err := e.correlativity.RequiredEdges(ctx, subjPractica, models.PurposeEnroll)
	require.NoError(t, err)
	assert.Len(t, third, 2)
	assert.Equal(t, 2, e.corrRepo.listCalls)
}

func TestCorrelativityServiceAddEdgeRules(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	admin := adminPrincipal()
	e.addEdge(subjPractica, subjDidactica, models.CorrelativityPassedToEnroll)

	cases := []struct {
		name string
		req  dto.CreateCorrelativityRequest
		want *appErrors.Error
	}{
		{"self edge", dto.CreateCorrelativityRequest{SubjectID: subjDidactica, RequiredSubjectID: subjDidactica, Kind: models.CorrelativityPassedToEnroll}, appErrors.ErrValidation},
		{"unknown kind", dto.CreateCorrelativityRequest{SubjectID: subjPractica, RequiredSubjectID: subjPedagogia, Kind: "ANY"}, appErrors.ErrValidation},
		{"duplicate", dto.CreateCorrelativityRequest{SubjectID: subjPractica, RequiredSubjectID: subjDidactica, Kind: models.CorrelativityPassedToEnroll}, appErrors.ErrConflict},
		{"cross plan", dto.CreateCorrelativityRequest{SubjectID: subjPractica, RequiredSubjectID: subjForeign, Kind: models.CorrelativityPassedToEnroll}, appErrors.ErrBusinessRule},
		{"cycle", dto.CreateCorrelativityRequest{SubjectID: subjDidactica, RequiredSubjectID: subjPractica, Kind: models.CorrelativityRegularToEnroll}, appErrors.ErrBusinessRule},
		{"missing subject", dto.CreateCorrelativityRequest{SubjectID: "nope", RequiredSubjectID: subjPractica, Kind: models.CorrelativityRegularToEnroll}, appErrors.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.correlativity.AddEdge(ctx, admin, tc.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), err.Error())
		})
	}

	// a different purpose does not close the enroll cycle
	edge, err := e.correlativity.AddEdge(ctx, admin, dto.CreateCorrelativityRequest{SubjectID: subjDidactica, RequiredSubjectID: subjPractica, Kind: models.CorrelativityRegularToExam})
	require.NoError(t, err)
	assert.Equal(t, "Práctica Docente II", edge.RequiredSubjectName)

	_, err = e.correlativity.AddEdge(ctx, studentPrincipal(studentID), dto.CreateCorrelativityRequest{SubjectID: subjPractica, RequiredSubjectID: subjPedagogia, Kind: models.CorrelativityPassedToEnroll})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

// racingCorrelativities misses an edge committed by a concurrent request.
type racingCorrelativities struct{ *fakeCorrelativities }

func (racingCorrelativities) Exists(ctx context.Context, subjectID, requiredID string, kind models.CorrelativityKind) (bool, error) {
	return false, nil
}

func TestCorrelativityServiceAddEdgeReportsLostRaceAsConflict(t *testing.T) {
	e := newEngine(t)
	e.addEdge(subjPractica, subjDidactica, models.CorrelativityPassedToEnroll)
	e.correlativity.repo = racingCorrelativities{e.corrRepo}

	_, err := e.correlativity.AddEdge(context.Background(), adminPrincipal(), dto.CreateCorrelativityRequest{
		SubjectID: subjPractica, RequiredSubjectID: subjDidactica, Kind: models.CorrelativityPassedToEnroll,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Len(t, e.store.correlativities, 1)
}

func TestCorrelativityServiceRemoveEdge(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	e.addEdge(subjPractica, subjDidactica, models.CorrelativityPassedToEnroll)
	id := e.store.correlativities[0].ID

	_, err := e.correlativity.RequiredEdges(ctx, subjPractica, models.PurposeEnroll)
	require.NoError(t, err)

	require.NoError(t, e.correlativity.RemoveEdge(ctx, adminPrincipal(), id))
	edges, err := e.correlativity.RequiredEdges(ctx, subjPractica, models.PurposeEnroll)
	require.NoError(t, err)
	assert.Empty(t, edges)

	err = e.correlativity.RemoveEdge(ctx, adminPrincipal(), id)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	all, err := e.correlativity.ListForSubject(ctx, studentPrincipal(studentID), subjPractica)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreatesCycle(t *testing.T) {
	edges := []models.Correlativity{
		{SubjectID: "c", RequiredSubjectID: "b", Kind: models.CorrelativityPassedToEnroll},
		{SubjectID: "b", RequiredSubjectID: "a", Kind: models.CorrelativityRegularToEnroll},
		{SubjectID: "a", RequiredSubjectID: "c", Kind: models.CorrelativityPassedToExam},
	}
	assert.True(t, createsCycle(edges, "a", "c", models.PurposeEnroll))
	assert.False(t, createsCycle(edges, "c", "a", models.PurposeEnroll))
	assert.False(t, createsCycle(edges, "b", "c", models.PurposeExam))
	assert.True(t, createsCycle(edges, "c", "a", models.PurposeExam))
}

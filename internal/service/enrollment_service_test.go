package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ipes-academic-api/internal/dto"
	"github.com/noah-isme/ipes-academic-api/internal/models"
	"github.com/noah-isme/ipes-academic-api/pkg/config"
	appErrors "github.com/noah-isme/ipes-academic-api/pkg/errors"
)

func enrollReq() dto.EnrollRequest {
	return dto.EnrollRequest{StudentID: studentID, SubjectID: subjPractica, CommissionID: commissionA}
}

func confirmedCount(e *engine, student, subject string) int {
	n := 0
	for _, en := range e.store.enrollments {
		if en.StudentID == student && en.SubjectID == subject && en.Status == models.EnrollmentStatusConfirmed {
			n++
		}
	}
	return n
}

func TestEnrollmentServiceEnrollSucceedsWhenEdgesSatisfied(t *testing.T) {
	e := newEngine(t)
	e.addEdge(subjPractica, subjDidactica, models.CorrelativityPassedToEnroll)
	e.addEdge(subjPractica, subjPedagogia, models.CorrelativityRegularToEnroll)
	e.addRegularity(studentID, subjDidactica, models.SituationApproved, 300)
	e.addRegularity(studentID, subjPedagogia, models.SituationRegular, 100)

	enrollment, err := e.enrollment.Enroll(context.Background(), studentPrincipal(studentID), enrollReq())
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusConfirmed, enrollment.Status)
	assert.Equal(t, 2026, enrollment.AcademicYear)
	assert.Equal(t, 1, confirmedCount(e, studentID, subjPractica))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.gateDecisions.WithLabelValues(GateEnrollment, OutcomeAccepted)))
}

func TestEnrollmentServiceEnrollRejectsUnsatisfiedPassedEdge(t *testing.T) {
	e := newEngine(t)
	e.addEdge(subjPractica, subjDidactica, models.CorrelativityPassedToEnroll)
	e.addRegularity(studentID, subjDidactica, models.SituationRegular, 30)

	_, err := e.enrollment.Enroll(context.Background(), studentPrincipal(studentID), enrollReq())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrBusinessRule))

	appErr := appErrors.FromError(err)
	assert.Contains(t, appErr.Message, "Correlatividades no cumplidas: Didáctica General")
	violations, ok := appErr.Details.([]models.Violation)
	require.True(t, ok)
	require.Len(t, violations, 1)
	assert.Equal(t, subjDidactica, violations[0].RequiredSubjectID)
	assert.Zero(t, confirmedCount(e, studentID, subjPractica))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.gateDecisions.WithLabelValues(GateEnrollment, OutcomeRejected)))
}

func TestEnrollmentServiceEnrollRejectsDuplicate(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	_, err := e.enrollment.Enroll(ctx, studentPrincipal(studentID), enrollReq())
	require.NoError(t, err)

	req := enrollReq()
	req.CommissionID = commissionB
	_, err = e.enrollment.Enroll(ctx, studentPrincipal(studentID), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, 1, confirmedCount(e, studentID, subjPractica))
}

// racingEnrollments misses an enrollment committed by a concurrent request.
type racingEnrollments struct{ fakeEnrollments }

func (racingEnrollments) ExistsActiveTx(ctx context.Context, tx *sqlx.Tx, studentID, subjectID string, year int) (bool, error) {
	return false, nil
}

func TestEnrollmentServiceEnrollReportsLostRaceAsConflict(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	_, err := e.enrollment.Enroll(ctx, studentPrincipal(studentID), enrollReq())
	require.NoError(t, err)

	e.enrollment.repo = racingEnrollments{fakeEnrollments{e.store}}
	_, err = e.enrollment.Enroll(ctx, studentPrincipal(studentID), enrollReq())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, "Ya se encuentra inscripto en la materia para el ciclo lectivo.", appErrors.FromError(err).Message)
	assert.Equal(t, 1, confirmedCount(e, studentID, subjPractica))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.gateDecisions.WithLabelValues(GateEnrollment, OutcomeRejected)))
}

func TestEnrollmentServiceEnrollChecksWindowFirst(t *testing.T) {
	e := newEngine(t)
	e.addEdge(subjPractica, subjDidactica, models.CorrelativityPassedToEnroll)
	e.enrollment.windows = NewWindowService(fakeConfigs{e.store}, config.WindowsConfig{}, nil)

	_, err := e.enrollment.Enroll(context.Background(), studentPrincipal(studentID), enrollReq())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrBusinessRule))
	assert.Equal(t, "El período de inscripción a materias no está abierto.", appErrors.FromError(err).Message)
}

func TestEnrollmentServiceEnrollGuards(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.enrollment.Enroll(ctx, studentPrincipal(otherStudent), enrollReq())
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = e.enrollment.Enroll(ctx, nil, enrollReq())
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	req := enrollReq()
	req.SubjectID = subjDidactica
	_, err = e.enrollment.Enroll(ctx, adminPrincipal(), req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	req = enrollReq()
	req.CommissionID = "missing"
	_, err = e.enrollment.Enroll(ctx, adminPrincipal(), req)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	old := e.store.commissions[commissionB]
	old.AcademicYear = 2025
	e.store.commissions[commissionB] = old
	req = enrollReq()
	req.CommissionID = commissionB
	_, err = e.enrollment.Enroll(ctx, adminPrincipal(), req)
	assert.True(t, errors.Is(err, appErrors.ErrBusinessRule))

	_, err = e.enrollment.Enroll(ctx, adminPrincipal(), dto.EnrollRequest{StudentID: studentID})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestEnrollmentServiceCancelIsIdempotent(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	id := e.addEnrollment(studentID, subjPractica, commissionA, models.EnrollmentStatusConfirmed)

	_, err := e.enrollment.Cancel(ctx, studentPrincipal(studentID), id)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	cancelled, err := e.enrollment.Cancel(ctx, bedelPrincipal(), id)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	again, err := e.enrollment.Cancel(ctx, bedelPrincipal(), id)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCancelled, again.Status)

	_, err = e.enrollment.Cancel(ctx, bedelPrincipal(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = e.enrollment.Enroll(ctx, studentPrincipal(studentID), enrollReq())
	require.NoError(t, err)
	assert.Equal(t, 1, confirmedCount(e, studentID, subjPractica))
}

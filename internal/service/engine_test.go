package service

import (
	"testing"
	"time"

	"github.com/noah-isme/ipes-academic-api/internal/models"
	"github.com/noah-isme/ipes-academic-api/pkg/config"
)

var fixedNow = time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)

const (
	studentID     = "st-1"
	otherStudent  = "st-2"
	studentDNI    = "30111222"
	careerID      = "career-1"
	planID        = "plan-1"
	otherPlanID   = "plan-2"
	subjDidactica = "subj-didactica"
	subjPedagogia = "subj-pedagogia"
	subjPractica  = "subj-practica"
	subjForeign   = "subj-foreign"
	commissionA   = "com-a"
	commissionB   = "com-b"
	mesaRegular   = "mesa-regular"
	mesaFree      = "mesa-free"
)

// engine wires every component over one in-memory store.
type engine struct {
	store     *fakeStore
	tx        *fakeTx
	corrRepo  *fakeCorrelativities
	equivRepo *fakeEquivalencies
	metrics   *MetricsService

	completion    *CompletionService
	regularity    *RegularityService
	correlativity *CorrelativityService
	windows       *WindowService
	enrollment    *EnrollmentService
	mesa          *MesaService
	equivalency   *EquivalencyService
	commission    *CommissionService
	eligibility   *EligibilityService
}

func openWindows() config.WindowsConfig {
	opens := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	closes := time.Date(2026, time.December, 31, 23, 59, 59, 0, time.UTC)
	return config.WindowsConfig{
		SubjectEnrollment: config.Window{OpensAt: &opens, ClosesAt: &closes},
		ExamSignup:        config.Window{OpensAt: &opens, ClosesAt: &closes},
	}
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	store := newFakeStore()
	seedStore(store)

	e := &engine{
		store:     store,
		tx:        &fakeTx{store: store},
		corrRepo:  &fakeCorrelativities{fakeStore: store},
		equivRepo: &fakeEquivalencies{fakeStore: store},
		metrics:   NewMetricsService(),
	}
	students := fakeStudents{store}
	subjects := fakeSubjects{store}
	commissions := fakeCommissions{store}
	enrollments := fakeEnrollments{store}
	regularities := fakeRegularities{store}
	mesas := fakeMesas{store}

	e.completion = NewCompletionService(students, DefaultEvidenceSources(CompletionSources{
		Regularities: regularities,
		Mesas:        mesas,
		Actas:        e.equivRepo,
		Equivalences: e.equivRepo,
		PassingGrade: 6,
	}), nil)
	e.regularity = NewRegularityService(regularities, students, subjects, commissions, e.tx, DefaultRegularityValidityDays, nil, nil)
	e.regularity.now = func() time.Time { return fixedNow }

	cache := NewCacheService(newMemoryCache(), e.metrics, time.Minute, nil, true)
	e.correlativity = NewCorrelativityService(e.corrRepo, subjects, e.completion, e.regularity, cache, time.Minute, nil, nil)
	e.windows = NewWindowService(fakeConfigs{store}, openWindows(), nil)

	e.enrollment = NewEnrollmentService(EnrollmentDeps{
		Repo:            enrollments,
		Students:        students,
		Subjects:        subjects,
		Commissions:     commissions,
		Windows:         e.windows,
		Correlativities: e.correlativity,
		Tx:              e.tx,
		Metrics:         e.metrics,
	}, nil, nil)
	e.enrollment.now = func() time.Time { return fixedNow }

	e.mesa = NewMesaService(MesaDeps{
		Repo:            mesas,
		Students:        students,
		Regularities:    e.regularity,
		Enrollments:     enrollments,
		Completion:      e.completion,
		Correlativities: e.correlativity,
		Windows:         e.windows,
		Metrics:         e.metrics,
		PassingGrade:    6,
	}, nil)
	e.mesa.now = func() time.Time { return fixedNow }

	e.equivalency = NewEquivalencyService(e.equivRepo, students, students, subjects, subjects, e.tx, e.metrics, nil, nil)
	e.commission = NewCommissionService(commissions, enrollments, subjects, e.tx, nil, nil)
	e.eligibility = NewEligibilityService(students, subjects, e.completion, e.regularity, e.correlativity, 2, nil)
	return e
}

func seedStore(s *fakeStore) {
	s.students[studentID] = models.Student{ID: studentID, DNI: studentDNI, FirstName: "Ana", LastName: "Pérez", Active: true}
	s.students[otherStudent] = models.Student{ID: otherStudent, DNI: "30999888", FirstName: "Luis", LastName: "Gómez", Active: true}
	s.plans[planID] = models.Plan{ID: planID, CareerID: careerID, Resolution: "RES-123/2015", Active: true}
	s.plans[otherPlanID] = models.Plan{ID: otherPlanID, CareerID: "career-2", Resolution: "RES-77/2019", Active: true}
	s.careerEnrollments = append(s.careerEnrollments, models.CareerEnrollment{ID: "ce-1", StudentID: studentID, CareerID: careerID, PlanID: planID, Status: models.CareerEnrollmentActive})

	s.subjects[subjDidactica] = models.Subject{ID: subjDidactica, PlanID: planID, Name: "Didáctica General", Year: 1}
	s.subjects[subjPedagogia] = models.Subject{ID: subjPedagogia, PlanID: planID, Name: "Pedagogía", Year: 1}
	s.subjects[subjPractica] = models.Subject{ID: subjPractica, PlanID: planID, Name: "Práctica Docente II", Year: 2}
	s.subjects[subjForeign] = models.Subject{ID: subjForeign, PlanID: otherPlanID, Name: "Química", Year: 1}

	s.commissions[commissionA] = models.Commission{ID: commissionA, SubjectID: subjPractica, AcademicYear: 2026, Code: "A", Shift: "MANANA", Capacity: 40}
	s.commissions[commissionB] = models.Commission{ID: commissionB, SubjectID: subjPractica, AcademicYear: 2026, Code: "B", Shift: "TARDE", Capacity: 40}

	s.mesas[mesaRegular] = models.Mesa{ID: mesaRegular, SubjectID: subjPractica, Type: models.MesaTypeFinal, Modality: models.ModalityRegular, Date: fixedNow.AddDate(0, 1, 0)}
	s.mesas[mesaFree] = models.Mesa{ID: mesaFree, SubjectID: subjPractica, Type: models.MesaTypeFinal, Modality: models.ModalityFree, Date: fixedNow.AddDate(0, 1, 0)}
}

func (e *engine) addRegularity(student, subject string, situation models.RegularitySituation, daysAgo int) {
	e.store.regularities = append(e.store.regularities, models.Regularity{
		ID:          e.store.nextID("regularity"),
		StudentID:   student,
		SubjectID:   subject,
		Situation:   situation,
		ClosingDate: civilDate(fixedNow).AddDate(0, 0, -daysAgo),
	})
}

func (e *engine) addEdge(subject, required string, kind models.CorrelativityKind) {
	e.store.correlativities = append(e.store.correlativities, models.Correlativity{
		ID:                e.store.nextID("edge"),
		SubjectID:         subject,
		RequiredSubjectID: required,
		Kind:              kind,
	})
}

func (e *engine) addEnrollment(student, subject, commission string, status models.EnrollmentStatus) string {
	id := e.store.nextID("enrollment")
	e.store.enrollments = append(e.store.enrollments, models.Enrollment{
		ID:           id,
		StudentID:    student,
		SubjectID:    subject,
		CommissionID: commission,
		AcademicYear: 2026,
		Status:       status,
	})
	return id
}

func adminPrincipal() *models.Principal {
	return models.PrincipalFromClaims(&models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
}

func bedelPrincipal() *models.Principal {
	return models.PrincipalFromClaims(&models.JWTClaims{UserID: "bedel-1", Role: models.RoleBedel})
}

func teacherPrincipal() *models.Principal {
	return models.PrincipalFromClaims(&models.JWTClaims{UserID: "docente-1", Role: models.RoleTeacher})
}

func studentPrincipal(id string) *models.Principal {
	return models.PrincipalFromClaims(&models.JWTClaims{UserID: "user-" + id, Role: models.RoleStudent, StudentID: id})
}

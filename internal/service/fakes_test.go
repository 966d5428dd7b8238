package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ipes-academic-api/internal/models"
	appErrors "github.com/noah-isme/ipes-academic-api/pkg/errors"
)

// fakeStore is an in-memory academic record shared by the repository fakes below.
type fakeStore struct {
	mu sync.RWMutex

	students          map[string]models.Student
	subjects          map[string]models.Subject
	plans             map[string]models.Plan
	careerEnrollments []models.CareerEnrollment
	commissions       map[string]models.Commission
	enrollments       []models.Enrollment
	regularities      []models.Regularity
	locks             []models.PlanillaLock
	mesas             map[string]models.Mesa
	signups           []models.MesaSignup
	correlativities   []models.Correlativity
	dispositions      []models.EquivalencyDisposition
	details           []models.EquivalencyDetail
	actas             []models.ActaRecord
	configs           map[string]models.Configuration

	seq int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		students:    map[string]models.Student{},
		subjects:    map[string]models.Subject{},
		plans:       map[string]models.Plan{},
		commissions: map[string]models.Commission{},
		mesas:       map[string]models.Mesa{},
		configs:     map[string]models.Configuration{},
	}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// snapshot copies every mutable collection so a failed unit of work can be undone.
func (s *fakeStore) snapshot() *fakeStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &fakeStore{
		careerEnrollments: append([]models.CareerEnrollment(nil), s.careerEnrollments...),
		enrollments:       append([]models.Enrollment(nil), s.enrollments...),
		regularities:      append([]models.Regularity(nil), s.regularities...),
		locks:             append([]models.PlanillaLock(nil), s.locks...),
		signups:           append([]models.MesaSignup(nil), s.signups...),
		correlativities:   append([]models.Correlativity(nil), s.correlativities...),
		dispositions:      append([]models.EquivalencyDisposition(nil), s.dispositions...),
		details:           append([]models.EquivalencyDetail(nil), s.details...),
		actas:             append([]models.ActaRecord(nil), s.actas...),
	}
}

func (s *fakeStore) restore(snap *fakeStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.careerEnrollments = snap.careerEnrollments
	s.enrollments = snap.enrollments
	s.regularities = snap.regularities
	s.locks = snap.locks
	s.signups = snap.signups
	s.correlativities = snap.correlativities
	s.dispositions = snap.dispositions
	s.details = snap.details
	s.actas = snap.actas
}

// fakeTx runs the unit of work against the store and rolls it back on error.
type fakeTx struct {
	store *fakeStore
	calls int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	f.calls++
	snap := f.store.snapshot()
	if err := fn(nil); err != nil {
		f.store.restore(snap)
		return err
	}
	return nil
}

type fakeStudents struct{ *fakeStore }

func (f fakeStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	st, ok := f.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &st, nil
}

func (f fakeStudents) FindByDNI(ctx context.Context, dni string) (*models.Student, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, st := range f.students {
		if st.DNI == dni {
			out := st
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeStudents) FindActiveCareerEnrollment(ctx context.Context, studentID, careerID string) (*models.CareerEnrollment, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ce := range f.careerEnrollments {
		if ce.StudentID == studentID && ce.CareerID == careerID && ce.Status == models.CareerEnrollmentActive {
			out := ce
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeSubjects struct{ *fakeStore }

func (f fakeSubjects) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	sub, ok := f.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &sub, nil
}

func (f fakeSubjects) FindPlan(ctx context.Context, id string) (*models.Plan, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	plan, ok := f.plans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &plan, nil
}

func (f fakeSubjects) ListByPlan(ctx context.Context, planID string) ([]models.Subject, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []models.Subject
	for _, sub := range f.subjects {
		if sub.PlanID == planID {
			out = append(out, sub)
		}
	}
	// deterministic order for assertions
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Name < out[j-1].Name; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

type fakeCommissions struct{ *fakeStore }

func (f fakeCommissions) FindByID(ctx context.Context, id string) (*models.Commission, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c, ok := f.commissions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (f fakeCommissions) List(ctx context.Context, filter models.CommissionFilter) ([]models.CommissionDetail, int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []models.CommissionDetail
	for _, c := range f.commissions {
		if filter.SubjectID != "" && c.SubjectID != filter.SubjectID {
			continue
		}
		out = append(out, models.CommissionDetail{Commission: c, SubjectName: f.subjects[c.SubjectID].Name, RosterSize: f.rosterSize(c.ID)})
	}
	return out, len(out), nil
}

func (f fakeCommissions) Create(ctx context.Context, c *models.Commission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		c.ID = f.nextID("commission")
	}
	f.commissions[c.ID] = *c
	return nil
}

func (s *fakeStore) rosterSize(commissionID string) int {
	n := 0
	for _, e := range s.enrollments {
		if e.CommissionID == commissionID && e.Status == models.EnrollmentStatusConfirmed {
			n++
		}
	}
	return n
}

type fakeEnrollments struct{ *fakeStore }

func (f fakeEnrollments) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, e := range f.enrollments {
		if e.ID == id {
			out := e
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeEnrollments) ExistsActiveTx(ctx context.Context, tx *sqlx.Tx, studentID, subjectID string, year int) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, e := range f.enrollments {
		if e.StudentID == studentID && e.SubjectID == subjectID && e.AcademicYear == year && e.Status != models.EnrollmentStatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeEnrollments) HasConfirmed(ctx context.Context, studentID, subjectID string, year int) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, e := range f.enrollments {
		if e.StudentID == studentID && e.SubjectID == subjectID && e.AcademicYear == year && e.Status == models.EnrollmentStatusConfirmed {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeEnrollments) CreateTx(ctx context.Context, tx *sqlx.Tx, e *models.Enrollment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.enrollments {
		if other.StudentID == e.StudentID && other.SubjectID == e.SubjectID && other.AcademicYear == e.AcademicYear && other.Status != models.EnrollmentStatusCancelled {
			return uniqueViolation("uq_enrollments_active")
		}
	}
	if e.ID == "" {
		e.ID = f.nextID("enrollment")
	}
	f.enrollments = append(f.enrollments, *e)
	return nil
}

func (f fakeEnrollments) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, cancelledAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.enrollments {
		if f.enrollments[i].ID == id {
			f.enrollments[i].Status = status
			f.enrollments[i].CancelledAt = cancelledAt
		}
	}
	return nil
}

func (f fakeEnrollments) ListConfirmedIDsByCommission(ctx context.Context, commissionID string) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var ids []string
	for _, e := range f.enrollments {
		if e.CommissionID == commissionID && e.Status == models.EnrollmentStatusConfirmed {
			ids = append(ids, e.ID)
		}
	}
	return ids, nil
}

func (f fakeEnrollments) ReassignTx(ctx context.Context, tx *sqlx.Tx, ids []string, commissionID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	moved := 0
	for i := range f.enrollments {
		if wanted[f.enrollments[i].ID] {
			f.enrollments[i].CommissionID = commissionID
			moved++
		}
	}
	return moved, nil
}

type fakeRegularities struct{ *fakeStore }

func (f fakeRegularities) FindCurrent(ctx context.Context, studentID, subjectID string) (*models.Regularity, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for i := len(f.regularities) - 1; i >= 0; i-- {
		r := f.regularities[i]
		if r.StudentID == studentID && r.SubjectID == subjectID && r.SupersededAt == nil {
			return &r, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeRegularities) History(ctx context.Context, studentID, subjectID string) ([]models.Regularity, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []models.Regularity
	for i := len(f.regularities) - 1; i >= 0; i-- {
		r := f.regularities[i]
		if r.StudentID == studentID && r.SubjectID == subjectID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f fakeRegularities) HasPassedSituation(ctx context.Context, studentID, subjectID string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, r := range f.regularities {
		if r.StudentID == studentID && r.SubjectID == subjectID && r.Situation.Passed() {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeRegularities) SupersedeTx(ctx context.Context, tx *sqlx.Tx, studentID, subjectID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.regularities {
		r := &f.regularities[i]
		if r.StudentID == studentID && r.SubjectID == subjectID && r.SupersededAt == nil {
			ts := at
			r.SupersededAt = &ts
		}
	}
	return nil
}

func (f fakeRegularities) CreateTx(ctx context.Context, tx *sqlx.Tx, r *models.Regularity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.regularities {
		if other.StudentID == r.StudentID && other.SubjectID == r.SubjectID && other.SupersededAt == nil {
			return uniqueViolation("uq_regularities_current")
		}
	}
	if r.ID == "" {
		r.ID = f.nextID("regularity")
	}
	f.regularities = append(f.regularities, *r)
	return nil
}

func (f fakeRegularities) FindLockForScopeTx(ctx context.Context, tx *sqlx.Tx, scope models.LockScope) (*models.PlanillaLock, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, l := range f.locks {
		switch {
		case scope.ByCommission():
			c := f.commissions[*scope.CommissionID]
			if l.ByCommission() && *l.CommissionID == c.ID {
				out := l
				return &out, nil
			}
			if l.BySubjectYear() && *l.SubjectID == c.SubjectID && *l.VirtualYear == c.AcademicYear {
				out := l
				return &out, nil
			}
		case scope.BySubjectYear():
			if l.BySubjectYear() && *l.SubjectID == *scope.SubjectID && *l.VirtualYear == *scope.VirtualYear {
				out := l
				return &out, nil
			}
		}
	}
	return nil, nil
}

func (f fakeRegularities) CreateLockTx(ctx context.Context, tx *sqlx.Tx, l *models.PlanillaLock) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !l.Valid() {
		return fmt.Errorf("check constraint planilla_locks_scope")
	}
	for _, other := range f.locks {
		if l.ByCommission() && other.ByCommission() && *other.CommissionID == *l.CommissionID {
			return uniqueViolation("uq_planilla_locks_commission")
		}
		if l.BySubjectYear() && other.BySubjectYear() && *other.SubjectID == *l.SubjectID && *other.VirtualYear == *l.VirtualYear {
			return uniqueViolation("uq_planilla_locks_subject_year")
		}
	}
	if l.ID == "" {
		l.ID = f.nextID("lock")
	}
	f.locks = append(f.locks, *l)
	return nil
}

func (f fakeRegularities) FindLock(ctx context.Context, id string) (*models.PlanillaLock, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, l := range f.locks {
		if l.ID == id {
			out := l
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeRegularities) DeleteLock(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.locks[:0]
	for _, l := range f.locks {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	f.locks = kept
	return nil
}

type fakeMesas struct{ *fakeStore }

func (f fakeMesas) FindByID(ctx context.Context, id string) (*models.Mesa, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	m, ok := f.mesas[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &m, nil
}

func (f fakeMesas) CloseGradingSheet(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.mesas[id]
	m.GradingClosedAt = &at
	f.mesas[id] = m
	return nil
}

func (f fakeMesas) FindSignup(ctx context.Context, id string) (*models.MesaSignup, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.signups {
		if s.ID == id {
			out := s
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeMesas) SignupExists(ctx context.Context, mesaID, studentID string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.signups {
		if s.MesaID == mesaID && s.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeMesas) HasApprovedSignup(ctx context.Context, studentID, subjectID string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.signups {
		if s.StudentID == studentID && s.Condition == models.ConditionApproved && f.mesas[s.MesaID].SubjectID == subjectID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeMesas) CreateSignup(ctx context.Context, s *models.MesaSignup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.signups {
		if other.MesaID == s.MesaID && other.StudentID == s.StudentID {
			return uniqueViolation("mesa_signups_mesa_id_student_id_key")
		}
	}
	if s.ID == "" {
		s.ID = f.nextID("signup")
	}
	f.signups = append(f.signups, *s)
	return nil
}

func (f fakeMesas) UpdateResult(ctx context.Context, s *models.MesaSignup) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.signups {
		if f.signups[i].ID == s.ID && f.signups[i].Condition == models.ConditionPending {
			f.signups[i] = *s
			return true, nil
		}
	}
	return false, nil
}

func (f fakeMesas) DeleteSignup(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.signups[:0]
	for _, s := range f.signups {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	f.signups = kept
	return nil
}

type fakeCorrelativities struct {
	*fakeStore
	listCalls int
}

func (f *fakeCorrelativities) ListBySubject(ctx context.Context, subjectID string, kinds []models.CorrelativityKind) ([]models.Correlativity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	allowed := make(map[models.CorrelativityKind]bool, len(kinds))
	for _, k := range kinds {
		allowed[k] = true
	}
	var out []models.Correlativity
	for _, e := range f.correlativities {
		if e.SubjectID == subjectID && (len(kinds) == 0 || allowed[e.Kind]) {
			e.RequiredSubjectName = f.subjects[e.RequiredSubjectID].Name
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeCorrelativities) ListByPlan(ctx context.Context, planID string) ([]models.Correlativity, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []models.Correlativity
	for _, e := range f.correlativities {
		if f.subjects[e.SubjectID].PlanID == planID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeCorrelativities) FindByID(ctx context.Context, id string) (*models.Correlativity, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, e := range f.correlativities {
		if e.ID == id {
			out := e
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCorrelativities) Exists(ctx context.Context, subjectID, requiredID string, kind models.CorrelativityKind) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, e := range f.correlativities {
		if e.SubjectID == subjectID && e.RequiredSubjectID == requiredID && e.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCorrelativities) Create(ctx context.Context, e *models.Correlativity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.correlativities {
		if other.SubjectID == e.SubjectID && other.RequiredSubjectID == e.RequiredSubjectID && other.Kind == e.Kind {
			return uniqueViolation("correlativities_subject_id_required_subject_id_kind_key")
		}
	}
	if e.ID == "" {
		e.ID = f.nextID("edge")
	}
	f.correlativities = append(f.correlativities, *e)
	return nil
}

func (f *fakeCorrelativities) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.correlativities[:0]
	for _, e := range f.correlativities {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	f.correlativities = kept
	return nil
}

type fakeEquivalencies struct {
	*fakeStore
	failActa bool
}

func (f *fakeEquivalencies) CreateDispositionTx(ctx context.Context, tx *sqlx.Tx, d *models.EquivalencyDisposition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d.ID == "" {
		d.ID = f.nextID("disposition")
	}
	f.dispositions = append(f.dispositions, *d)
	return nil
}

func (f *fakeEquivalencies) CreateDetailTx(ctx context.Context, tx *sqlx.Tx, d *models.EquivalencyDetail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d.ID == "" {
		d.ID = f.nextID("detail")
	}
	f.details = append(f.details, *d)
	return nil
}

func (f *fakeEquivalencies) CreateActaTx(ctx context.Context, tx *sqlx.Tx, a *models.ActaRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failActa {
		return fmt.Errorf("create acta record: connection reset")
	}
	if a.ID == "" {
		a.ID = f.nextID("acta")
	}
	f.actas = append(f.actas, *a)
	return nil
}

func (f *fakeEquivalencies) HasDetail(ctx context.Context, studentID, subjectID string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	owners := make(map[string]string, len(f.dispositions))
	for _, d := range f.dispositions {
		owners[d.ID] = d.StudentID
	}
	for _, d := range f.details {
		if d.SubjectID == subjectID && owners[d.DispositionID] == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEquivalencies) ListActaGrades(ctx context.Context, dni, subjectID string) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var grades []string
	for _, a := range f.actas {
		if a.StudentDNI == dni && a.SubjectID == subjectID {
			grades = append(grades, a.Grade)
		}
	}
	return grades, nil
}

// uniqueViolation mirrors the error repositories return when a unique index rejects a write.
func uniqueViolation(constraint string) error {
	return fmt.Errorf("insert: %w", appErrors.Clone(appErrors.ErrDuplicate, constraint))
}

type fakeConfigs struct{ *fakeStore }

func (f fakeConfigs) ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []models.Configuration
	for _, k := range keys {
		if c, ok := f.configs[k]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f fakeConfigs) UpsertAll(ctx context.Context, cfgs []models.Configuration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cfg := range cfgs {
		f.configs[cfg.Key] = cfg
	}
	return nil
}

// memoryCache is a CacheRepository backed by a map, storing values by reference.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]interface{}
}

func newMemoryCache() *memoryCache { return &memoryCache{entries: map[string]interface{}{}} }

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	edges, ok := v.([]models.Correlativity)
	target, okDest := dest.(*[]models.Correlativity)
	if !ok || !okDest {
		return appErrors.ErrCacheMiss
	}
	*target = append([]models.Correlativity(nil), edges...)
	return nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

package verification

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"sahel/internal/config"
	"sahel/internal/models"
	"sahel/internal/repositories"
	"sahel/internal/services/extract"
	"sahel/internal/services/notification"
	"sahel/internal/services/quality"
	"sahel/internal/services/signature"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// ---- storage fakes ----

type fakeStore struct {
	user         *models.User
	acct         *models.Account
	verified     map[models.DocumentType]bool
	maxSeq       int
	appointments []*models.Appointment
	assessments  []*models.RiskAssessment
	inTx         bool
}

func (s *fakeStore) Transaction(_ context.Context, fn func(repositories.VerificationStore) error) error {
	s.inTx = true
	defer func() { s.inTx = false }()
	return fn(s)
}

func (s *fakeStore) UserByID(_ context.Context, id uint) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, repositories.ErrUserNotFound
	}
	return s.user, nil
}

func (s *fakeStore) AccountByUser(_ context.Context, userID uint) (*models.Account, error) {
	if s.acct == nil || s.acct.UserID != userID {
		return nil, repositories.ErrAccountNotFound
	}
	return s.acct, nil
}

func (s *fakeStore) SaveAccount(_ context.Context, acct *models.Account) error {
	s.acct = acct
	return nil
}

func (s *fakeStore) SaveUser(_ context.Context, user *models.User) error {
	s.user = user
	return nil
}

func (s *fakeStore) VerifiedDocumentTypes(_ context.Context, _ uint) (map[models.DocumentType]bool, error) {
	return s.verified, nil
}

func (s *fakeStore) LatestVerifiedDocument(_ context.Context, _ uint, _ models.DocumentType) (*models.Document, error) {
	return nil, repositories.ErrDocumentNotFound
}

func (s *fakeStore) MaxClientSequence(_ context.Context, _ int) (int, error) {
	return s.maxSeq, nil
}

func (s *fakeStore) CreateAppointment(_ context.Context, appt *models.Appointment) error {
	s.appointments = append(s.appointments, appt)
	return nil
}

func (s *fakeStore) CreateAssessment(_ context.Context, a *models.RiskAssessment) error {
	s.assessments = append(s.assessments, a)
	return nil
}

type memDocRepo struct {
	nextID uint
	docs   map[uint]*models.Document
}

func newMemDocRepo() *memDocRepo {
	return &memDocRepo{nextID: 1, docs: map[uint]*models.Document{}}
}

func (r *memDocRepo) Create(_ context.Context, doc *models.Document) error {
	doc.ID = r.nextID
	r.nextID++
	cp := *doc
	r.docs[doc.ID] = &cp
	return nil
}

func (r *memDocRepo) GetByID(_ context.Context, id uint) (*models.Document, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, repositories.ErrDocumentNotFound
	}
	cp := *doc
	return &cp, nil
}

func (r *memDocRepo) ListByUser(_ context.Context, userID uint) ([]models.Document, error) {
	var out []models.Document
	for id := uint(1); id < r.nextID; id++ {
		if doc, ok := r.docs[id]; ok && doc.UserID == userID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (r *memDocRepo) ListPending(_ context.Context, _, _ int) ([]models.Document, int64, error) {
	var out []models.Document
	for id := uint(1); id < r.nextID; id++ {
		if doc, ok := r.docs[id]; ok && doc.Status == models.DocumentStatusPending {
			out = append(out, *doc)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memDocRepo) Update(_ context.Context, doc *models.Document) error {
	cp := *doc
	r.docs[doc.ID] = &cp
	return nil
}

type memProgressRepo struct {
	rows []models.ApplicationProgress
}

func (r *memProgressRepo) Track(_ context.Context, userID uint, step, status, notes string) error {
	for i := range r.rows {
		if r.rows[i].UserID == userID && r.rows[i].Step == step {
			r.rows[i].Status = status
			r.rows[i].Notes = notes
			return nil
		}
	}
	r.rows = append(r.rows, models.ApplicationProgress{UserID: userID, Step: step, Status: status, Notes: notes})
	return nil
}

func (r *memProgressRepo) ListByUser(_ context.Context, userID uint) ([]models.ApplicationProgress, error) {
	var out []models.ApplicationProgress
	for _, row := range r.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memProgressRepo) stepStatus(step string) string {
	for _, row := range r.rows {
		if row.Step == step {
			return row.Status
		}
	}
	return ""
}

// ---- notification and signature backing ----

type memNotifRepo struct {
	nextID uint
	items  map[uint]*models.ProcessNotification
}

func newMemNotifRepo() *memNotifRepo {
	return &memNotifRepo{nextID: 1, items: map[uint]*models.ProcessNotification{}}
}

func (r *memNotifRepo) Create(_ context.Context, n *models.ProcessNotification) error {
	n.ID = r.nextID
	r.nextID++
	cp := *n
	r.items[n.ID] = &cp
	return nil
}

func (r *memNotifRepo) GetByID(_ context.Context, id uint) (*models.ProcessNotification, error) {
	n, ok := r.items[id]
	if !ok {
		return nil, repositories.ErrNotificationNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *memNotifRepo) Due(_ context.Context, _ time.Time, _ time.Duration, _ int) ([]models.ProcessNotification, error) {
	return nil, nil
}

func (r *memNotifRepo) OpenByUserAndType(_ context.Context, userID uint, processType string) (*models.ProcessNotification, error) {
	for id := uint(1); id < r.nextID; id++ {
		n, ok := r.items[id]
		if !ok {
			continue
		}
		if n.UserID == userID && n.ProcessType == processType && n.Status != models.NotificationStatusCompleted {
			cp := *n
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotificationNotFound
}

func (r *memNotifRepo) Update(_ context.Context, n *models.ProcessNotification) error {
	cp := *n
	r.items[n.ID] = &cp
	return nil
}

func (r *memNotifRepo) openStep(userID uint, processType string) (string, bool) {
	n, err := r.OpenByUserAndType(context.Background(), userID, processType)
	if err != nil {
		return "", false
	}
	return n.LastStep, true
}

type storeUserRepo struct{ store *fakeStore }

func (r storeUserRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	if r.store.user == nil || r.store.user.ID != id {
		return nil, repositories.ErrUserNotFound
	}
	return r.store.user, nil
}

func (r storeUserRepo) Update(_ context.Context, u *models.User) error {
	r.store.user = u
	return nil
}

type nullMailer struct{}

func (nullMailer) Send(_, _, _ string) error { return nil }

type memSigRepo struct {
	nextID uint
	latest map[uint]*models.ESignature
}

func newMemSigRepo() *memSigRepo {
	return &memSigRepo{nextID: 1, latest: map[uint]*models.ESignature{}}
}

func (r *memSigRepo) Open(_ context.Context, userID uint) (*models.ESignature, error) {
	sig, ok := r.latest[userID]
	if !ok || sig.Signed() {
		return nil, repositories.ErrNoOpenSignature
	}
	return sig, nil
}

func (r *memSigRepo) Create(_ context.Context, sig *models.ESignature) error {
	sig.ID = r.nextID
	r.nextID++
	cp := *sig
	r.latest[sig.UserID] = &cp
	return nil
}

func (r *memSigRepo) Update(_ context.Context, sig *models.ESignature) error {
	cp := *sig
	r.latest[sig.UserID] = &cp
	return nil
}

func (r *memSigRepo) LatestByUser(_ context.Context, userID uint) (*models.ESignature, error) {
	sig, ok := r.latest[userID]
	if !ok {
		return nil, repositories.ErrNoOpenSignature
	}
	return sig, nil
}

// ---- assessor fake ----

type fixedAssessor struct {
	level models.RiskLevel
	score float64
	err   error
}

func (a fixedAssessor) Assess(_ context.Context, user *models.User) (*models.RiskAssessment, error) {
	if a.err != nil {
		return nil, a.err
	}
	return &models.RiskAssessment{UserID: user.ID, GlobalScore: a.score, RiskLevel: a.level}, nil
}

// ---- fixture ----

type fixture struct {
	svc    *Service
	store  *fakeStore
	docs   *memDocRepo
	prog   *memProgressRepo
	notifs *memNotifRepo
	sigs   *memSigRepo
}

func allVerified() map[models.DocumentType]bool {
	set := map[models.DocumentType]bool{}
	for _, t := range models.RequiredDocumentTypes {
		set[t] = true
	}
	return set
}

func newFixture(t *testing.T, assessor Assessor) *fixture {
	t.Helper()
	store := &fakeStore{
		user: &models.User{
			Model:    gorm.Model{ID: 1},
			Username: "karim",
			Email:    "karim@example.com",
			Phone:    "+213555000111",
		},
		acct:     &models.Account{Model: gorm.Model{ID: 1}, UserID: 1, Status: models.AccountStatusInactive},
		verified: allVerified(),
	}
	docs := newMemDocRepo()
	prog := &memProgressRepo{}
	notifs := newMemNotifRepo()
	sigs := newMemSigRepo()

	notifSvc := notification.NewService(notifs, storeUserRepo{store: store}, nullMailer{}, config.ReminderConfig{}, config.MailConfig{})
	sigSvc := signature.NewService(sigs, notifSvc, config.SignatureConfig{VolumeThreshold: decimal.NewFromInt(10000)})

	svc := NewService(
		store,
		docs,
		prog,
		quality.NewGate(config.QualityConfig{}),
		extract.NewExtractor(extract.NullTextExtractor{}),
		assessor,
		notifSvc,
		sigSvc,
		t.TempDir(),
	)
	svc.now = func() time.Time { return time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC) }
	return &fixture{svc: svc, store: store, docs: docs, prog: prog, notifs: notifs, sigs: sigs}
}

func adminClaims() *models.UserClaims {
	return &models.UserClaims{UserID: 50, Role: models.RoleAdmin}
}

func directorClaims() *models.UserClaims {
	return &models.UserClaims{UserID: 60, Role: models.RoleDirector}
}

func applicantClaims() *models.UserClaims {
	return &models.UserClaims{UserID: 1, Role: models.RoleUser}
}

func testImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(0)
			if (x+y)%2 == 1 {
				v = 255
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return buf.Bytes()
}

// ---- document submission ----

func TestSubmitDocument(t *testing.T) {
	f := newFixture(t, fixedAssessor{level: models.RiskLevelLow, score: 0.9})
	ctx := context.Background()

	doc, fields, err := f.svc.SubmitDocument(ctx, 1, models.DocumentTypeIdentity, "cni.png", testImage(t, 800, 600))
	assert.NoError(t, err)
	assert.Equal(t, models.DocumentStatusPending, doc.Status)
	assert.Equal(t, "png", doc.FileType)
	assert.NotEmpty(t, doc.FilePath)
	assert.NotNil(t, fields)

	assert.Equal(t, "in_progress", f.prog.stepStatus("document_upload"))
	step, open := f.notifs.openStep(1, models.ProcessDocumentUpload)
	assert.True(t, open)
	assert.Equal(t, "document_upload", step)
}

func TestSubmitDocumentQualityFailure(t *testing.T) {
	f := newFixture(t, fixedAssessor{level: models.RiskLevelLow, score: 0.9})

	_, _, err := f.svc.SubmitDocument(context.Background(), 1, models.DocumentTypeIdentity, "cni.png", testImage(t, 100, 100))
	assert.Error(t, err)
	assert.True(t, IsQualityError(err))

	var qe *QualityError
	assert.ErrorAs(t, err, &qe)
	assert.Equal(t, quality.ReasonTooSmall, qe.Reason)

	// Nothing persisted: the applicant just re-uploads.
	assert.Empty(t, f.docs.docs)
	assert.Empty(t, f.prog.rows)
}

func TestSubmitDocumentExtractionFailure(t *testing.T) {
	f := newFixture(t, fixedAssessor{level: models.RiskLevelLow, score: 0.9})

	_, _, err := f.svc.SubmitDocument(context.Background(), 1, models.DocumentTypeIdentity, "cni.bmp", testImage(t, 800, 600))
	assert.Error(t, err)
	assert.True(t, IsExtractionError(err))
	assert.ErrorIs(t, err, extract.ErrUnsupportedFormat)
	assert.Empty(t, f.docs.docs)
}

func TestSubmitDocumentRejectionThenReupload(t *testing.T) {
	f := newFixture(t, fixedAssessor{level: models.RiskLevelLow, score: 0.9})
	ctx := context.Background()

	first, _, err := f.svc.SubmitDocument(ctx, 1, models.DocumentTypeIdentity, "cni.png", testImage(t, 800, 600))
	assert.NoError(t, err)
	_, err = f.svc.ReviewDocument(ctx, adminClaims(), first.ID, models.DocumentStatusRejected, "illisible")
	assert.NoError(t, err)

	second, _, err := f.svc.SubmitDocument(ctx, 1, models.DocumentTypeIdentity, "cni2.png", testImage(t, 800, 600))
	assert.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	// The rejected row stays for audit.
	rejected, err := f.docs.GetByID(ctx, first.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.DocumentStatusRejected, rejected.Status)
}

// ---- document review ----

func TestReviewDocument(t *testing.T) {
	f := newFixture(t, fixedAssessor{level: models.RiskLevelLow, score: 0.9})
	ctx := context.Background()
	doc, _, err := f.svc.SubmitDocument(ctx, 1, models.DocumentTypeIdentity, "cni.png", testImage(t, 800, 600))
	assert.NoError(t, err)

	t.Run("applicant cannot review", func(t *testing.T) {
		_, err := f.svc.ReviewDocument(ctx, applicantClaims(), doc.ID, models.DocumentStatusVerified, "")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("decision must be verified or rejected", func(t *testing.T) {
		_, err := f.svc.ReviewDocument(ctx, adminClaims(), doc.ID, models.DocumentStatusPending, "")
		assert.ErrorIs(t, err, ErrInvalidDecision)
	})

	t.Run("verify records the reviewer", func(t *testing.T) {
		reviewed, err := f.svc.ReviewDocument(ctx, adminClaims(), doc.ID, models.DocumentStatusVerified, "conforme")
		assert.NoError(t, err)
		assert.Equal(t, models.DocumentStatusVerified, reviewed.Status)
		assert.NotNil(t, reviewed.VerifiedAt)
		assert.Equal(t, uint(50), *reviewed.VerifiedBy)
		assert.Equal(t, "conforme", reviewed.VerificationNotes)
	})

	t.Run("decisions are terminal", func(t *testing.T) {
		_, err := f.svc.ReviewDocument(ctx, adminClaims(), doc.ID, models.DocumentStatusRejected, "")
		assert.ErrorIs(t, err, ErrDocumentFinalized)
		_, err = f.svc.ReviewDocument(ctx, directorClaims(), doc.ID, models.DocumentStatusVerified, "")
		assert.ErrorIs(t, err, ErrDocumentFinalized)
	})

	t.Run("unknown document", func(t *testing.T) {
		_, err := f.svc.ReviewDocument(ctx, adminClaims(), 999, models.DocumentStatusVerified, "")
		assert.ErrorIs(t, err, repositories.ErrDocumentNotFound)
	})
}

func TestReviewDocumentCompletesUploadStep(t *testing.T) {
	f := newFixture(t, fixedAssessor{level: models.RiskLevelLow, score: 0.9})
	ctx := context.Background()

	// All required types verified in storage; verifying one more document
	// closes the upload step.
	doc, _, err := f.svc.SubmitDocument(ctx, 1, models.DocumentTypeIdentity, "cni.png", testImage(t, 800, 600))
	assert.NoError(t, err)

	_, err = f.svc.ReviewDocument(ctx, adminClaims(), doc.ID, models.DocumentStatusVerified, "")
	assert.NoError(t, err)

	assert.Equal(t, "completed", f.prog.stepStatus("document_upload"))
	_, open := f.notifs.openStep(1, models.ProcessDocumentUpload)
	assert.False(t, open, "upload process must be completed")
}

// ---- activation ----

func TestActivateLowRisk(t *testing.T) {
	f := newFixture(t, fixedAssessor{level: models.RiskLevelLow, score: 0.92})
	ctx := context.Background()

	res, err := f.svc.Activate(ctx, adminClaims(), 1, nil)
	assert.NoError(t, err)
	assert.Equal(t, OutcomeActive, res.Status)
	assert.Equal(t, "2026-00001", res.ClientCode)
	assert.Equal(t, models.RiskLevelLow, res.RiskLevel)

	assert.Equal(t, models.AccountStatusActive, f.store.acct.Status)
	assert.True(t, f.store.acct.IsActive)
	assert.NotNil(t, f.store.acct.ActivatedAt)
	assert.Equal(t, uint(50), *f.store.acct.ActivatedBy)
	assert.Equal(t, "2026-00001", *f.store.acct.ClientCode)

	// The assessment was recomputed and stamped onto the applicant.
	assert.Len(t, f.store.assessments, 1)
	assert.Equal(t, models.RiskLevelLow, f.store.user.RiskLevel)
	assert.InDelta(t, 0.92, f.store.user.VerificationScore, 1e-9)

	// Below the volume threshold: no signature gate, activation complete.
	assert.Empty(t, f.sigs.latest)
	_, open := f.notifs.openStep(1, models.ProcessAccountActivation)
	assert.False(t, open)
}

func TestActivateClientCodeMonotonic(t *testing.T) {
	f := newFixture(t, fixedAssessor{level: models.RiskLevelLow, score: 0.92})
	f.store.maxSeq = 41

	res, err := f.svc.Activate(context.Background(), adminClaims(), 1, nil)
	assert.NoError(t, err)
	assert.Equal(t, "2026-00042", res.ClientCode)
}

func TestActivateAlreadyActive(t *testing.T) {
	f := newFixture(t, fixedAssessor{level: models.RiskLevelLow, score: 0.92})
	f.store.acct.Status = models.AccountStatusActive

	_, err := f.svc.Activate(context.Background(), adminClaims(), 1, nil)
	assert.ErrorIs(t, err, ErrAlreadyActive)
	assert.Empty(t, f.store.assessments, "no assessment on a rejected transition")
}

func TestActivateMissingDocuments(t *testing.T) {
	f := newFixture(t, fixedAssessor{level: models.RiskLevelLow, score: 0.92})
	delete(f.store.verified, models.DocumentTypeIdentity)

	_, err := f.svc.Activate(context.Background(), adminClaims(), 1, nil)
	assert.ErrorIs(t, err, ErrMissingDocuments)
	assert.Equal(t, models.AccountStatusInactive, f.store.acct.Status)
}

func TestActivateNonReviewer(t *testing.T) {
	f := newFixture(t, fixedAssessor{level: models.RiskLevelLow, score: 0.92})

	_, err := f.svc.Activate(context.Background(), applicantClaims(), 1, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestActivateMediumRiskRequiresMeeting(t *testing.T) {
	f := newFixture(t, fixedAssessor{level: models.RiskLevelMedium, score: 0.6})
	ctx := context.Background()

	// Without a meeting date the transition is rejected outright.
	_, err := f.svc.Activate(ctx, adminClaims(), 1, nil)
	assert.ErrorIs(t, err, ErrMeetingRequired)

	meeting := time.Date(2026, 6, 20, 14, 0, 0, 0, time.UTC)
	res, err := f.svc.Activate(ctx, adminClaims(), 1, &meeting)
	assert.NoError(t, err)
	assert.Equal(t, OutcomeRequiresMeeting, res.Status)
	assert.Empty(t, res.ClientCode)

	assert.Equal(t, models.AccountStatusRequiresMeeting, f.store.acct.Status)
	assert.False(t, f.store.acct.IsActive)
	assert.Len(t, f.store.appointments, 1)
	assert.Equal(t, meeting, f.store.appointments[0].DateTime)

	step, open := f.notifs.openStep(1, models.ProcessAccountActivation)
	assert.True(t, open)
	assert.Equal(t, "meeting_required", step)
}

func TestActivateDirectorOverrideAfterMeeting(t *testing.T) {
	f := newFixture(t, fixedAssessor{level: models.RiskLevelMedium, score: 0.6})
	f.store.acct.Status = models.AccountStatusRequiresMeeting

	res, err := f.svc.Activate(context.Background(), directorClaims(), 1, nil)
	assert.NoError(t, err)
	assert.Equal(t, OutcomeActive, res.Status)
	assert.Equal(t, "2026-00001", res.ClientCode)
	assert.Equal(t, models.RiskLevelMedium, res.RiskLevel)
	assert.Equal(t, uint(60), *f.store.acct.ActivatedBy)
}

func TestActivateAdminCannotOverrideMeeting(t *testing.T) {
	f := newFixture(t, fixedAssessor{level: models.RiskLevelMedium, score: 0.6})
	f.store.acct.Status = models.AccountStatusRequiresMeeting

	meeting := time.Date(2026, 6, 20, 14, 0, 0, 0, time.UTC)
	res, err := f.svc.Activate(context.Background(), adminClaims(), 1, &meeting)
	assert.NoError(t, err)
	assert.Equal(t, OutcomeRequiresMeeting, res.Status)
	assert.Equal(t, models.AccountStatusRequiresMeeting, f.store.acct.Status)
}

func TestActivateHighVolumeOpensSignatureGate(t *testing.T) {
	f := newFixture(t, fixedAssessor{level: models.RiskLevelLow, score: 0.92})
	f.store.user.TotalVolume = decimal.NewFromInt(50000)
	ctx := context.Background()

	res, err := f.svc.Activate(ctx, adminClaims(), 1, nil)
	assert.NoError(t, err)
	assert.Equal(t, OutcomeActive, res.Status)

	// A signature request was opened and the activation process stays
	// open, waiting on the signature.
	sig, ok := f.sigs.latest[1]
	assert.True(t, ok)
	assert.False(t, sig.Signed())

	step, open := f.notifs.openStep(1, models.ProcessAccountActivation)
	assert.True(t, open)
	assert.Equal(t, "e_signature_required", step)
}

func TestActivateAssessmentFailureAborts(t *testing.T) {
	f := newFixture(t, fixedAssessor{err: assert.AnError})

	_, err := f.svc.Activate(context.Background(), adminClaims(), 1, nil)
	assert.Error(t, err)
	assert.NotEqual(t, models.AccountStatusActive, f.store.acct.Status)
	assert.Nil(t, f.store.acct.ClientCode)
}

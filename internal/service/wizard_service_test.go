package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/internal/dto"
	"github.com/Otsikow/unidoxia-sub010/internal/models"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
)

type mockWizardDraftRepo struct {
	drafts  map[string]*models.ApplicationDraft
	updates int
}

func (m *mockWizardDraftRepo) ListByStudent(ctx context.Context, studentID string) ([]models.ApplicationDraft, error) {
	var out []models.ApplicationDraft
	for _, draft := range m.drafts {
		if draft.StudentID == studentID && !draft.Submitted {
			out = append(out, *draft)
		}
	}
	return out, nil
}

func (m *mockWizardDraftRepo) FindByID(ctx context.Context, id string) (*models.ApplicationDraft, error) {
	draft, ok := m.drafts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *draft
	return &copied, nil
}

func (m *mockWizardDraftRepo) Create(ctx context.Context, draft *models.ApplicationDraft) error {
	if draft.ID == "" {
		draft.ID = fmt.Sprintf("draft-%d", len(m.drafts)+1)
	}
	copied := *draft
	m.drafts[draft.ID] = &copied
	return nil
}

func (m *mockWizardDraftRepo) Update(ctx context.Context, draft *models.ApplicationDraft) error {
	stored, ok := m.drafts[draft.ID]
	if !ok || stored.Submitted {
		return fmt.Errorf("draft %s is submitted or missing", draft.ID)
	}
	m.updates++
	copied := *draft
	m.drafts[draft.ID] = &copied
	return nil
}

func (m *mockWizardDraftRepo) MarkSubmitted(ctx context.Context, draftID, applicationID string, submittedAt time.Time) (bool, error) {
	draft, ok := m.drafts[draftID]
	if !ok || draft.Submitted {
		return false, nil
	}
	draft.Submitted = true
	draft.SubmittedAt = &submittedAt
	draft.ApplicationID = &applicationID
	return true, nil
}

type mockWizardStudentRepo struct {
	byUser map[string]*models.StudentDetail
	byID   map[string]*models.StudentDetail
}

func (m *mockWizardStudentRepo) FindDetailByUserID(ctx context.Context, userID string) (*models.StudentDetail, error) {
	student, ok := m.byUser[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *student
	return &copied, nil
}

func (m *mockWizardStudentRepo) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *student
	return &copied, nil
}

type mockWizardDocRepo struct {
	types    []models.DocumentType
	counts   map[string]map[string]int
	files    map[string][]models.Document
	attached map[string]string
}

func (m *mockWizardDocRepo) ListTypes(ctx context.Context) ([]models.DocumentType, error) {
	return m.types, nil
}

func (m *mockWizardDocRepo) ListByDraft(ctx context.Context, draftID string) ([]models.Document, error) {
	return m.files[draftID], nil
}

func (m *mockWizardDocRepo) CountByType(ctx context.Context, draftID string) (map[string]int, error) {
	return m.counts[draftID], nil
}

func (m *mockWizardDocRepo) AttachToApplication(ctx context.Context, draftID, applicationID string) error {
	if m.attached == nil {
		m.attached = make(map[string]string)
	}
	m.attached[draftID] = applicationID
	return nil
}

func (m *mockWizardDocRepo) FindTypeByCode(ctx context.Context, code string) (*models.DocumentType, error) {
	for _, t := range m.types {
		if t.Code == code {
			copied := t
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockWizardDocRepo) ListByApplication(ctx context.Context, applicationID string) ([]models.Document, error) {
	var out []models.Document
	for _, docs := range m.files {
		for _, doc := range docs {
			if doc.ApplicationID != nil && *doc.ApplicationID == applicationID {
				out = append(out, doc)
			}
		}
	}
	return out, nil
}

func (m *mockWizardDocRepo) FindByID(ctx context.Context, id string) (*models.Document, error) {
	for _, docs := range m.files {
		for _, doc := range docs {
			if doc.ID == id {
				copied := doc
				return &copied, nil
			}
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockWizardDocRepo) Create(ctx context.Context, document *models.Document) error {
	if m.files == nil {
		m.files = make(map[string][]models.Document)
	}
	m.files[document.DraftID] = append(m.files[document.DraftID], *document)
	return nil
}

func (m *mockWizardDocRepo) Delete(ctx context.Context, id string) error {
	for draftID, docs := range m.files {
		for i, doc := range docs {
			if doc.ID == id {
				m.files[draftID] = append(docs[:i], docs[i+1:]...)
				return nil
			}
		}
	}
	return sql.ErrNoRows
}

type mockWizardAppRepo struct {
	existing map[string]bool
	created  []models.Application
	events   []models.ApplicationStatusEvent
}

func (m *mockWizardAppRepo) ExistsForIntake(ctx context.Context, studentID, programID string, intakeYear, intakeMonth int) (bool, error) {
	return m.existing[fmt.Sprintf("%s|%s|%d|%d", studentID, programID, intakeYear, intakeMonth)], nil
}

func (m *mockWizardAppRepo) Create(ctx context.Context, application *models.Application, event *models.ApplicationStatusEvent) error {
	m.created = append(m.created, *application)
	if event != nil {
		event.ApplicationID = application.ID
		m.events = append(m.events, *event)
	}
	return nil
}

type mockWizardNotifier struct {
	sent []string
}

func (m *mockWizardNotifier) SendApplicationSubmitted(ctx context.Context, email, studentName, programName, universityName string) error {
	m.sent = append(m.sent, email)
	return nil
}

type wizardFixture struct {
	drafts   *mockWizardDraftRepo
	students *mockWizardStudentRepo
	programs *mockCatalogRepo
	docs     *mockWizardDocRepo
	apps     *mockWizardAppRepo
	audit    *mockAuditSink
	notifier *mockWizardNotifier
	svc      *WizardService
}

func newWizardFixture() *wizardFixture {
	f := &wizardFixture{
		drafts:   &mockWizardDraftRepo{drafts: map[string]*models.ApplicationDraft{}},
		students: &mockWizardStudentRepo{byUser: map[string]*models.StudentDetail{}},
		programs: &mockCatalogRepo{},
		docs:     &mockWizardDocRepo{},
		apps:     &mockWizardAppRepo{},
		audit:    &mockAuditSink{},
		notifier: &mockWizardNotifier{},
	}
	f.svc = NewWizardService(f.drafts, f.students, f.programs, f.docs, f.apps, f.audit, f.notifier, validator.New(), zap.NewNop())
	return f
}

func (f *wizardFixture) seedStudent() *models.JWTClaims {
	dob := time.Date(2001, 4, 17, 0, 0, 0, 0, time.UTC)
	f.students.byUser["user-1"] = &models.StudentDetail{
		StudentProfile: models.StudentProfile{
			ID:                 "stu-1",
			UserID:             "user-1",
			FirstName:          "Amara",
			LastName:           "Okafor",
			Phone:              "+2348012345678",
			DateOfBirth:        &dob,
			Nationality:        "Nigerian",
			CountryOfResidence: "Nigeria",
			Address:            "12 Adeola Odeku Street",
			City:               "Lagos",
		},
		Email:    "amara@example.com",
		FullName: "Amara Okafor",
	}
	return &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent, Email: "amara@example.com"}
}

func (f *wizardFixture) seedProgram() {
	if f.programs.programs == nil {
		f.programs.programs = make(map[string]models.ProgramDetail)
	}
	f.programs.programs["prog-1"] = models.ProgramDetail{
		Program: models.Program{
			ID:           "prog-1",
			UniversityID: "uni-1",
			Name:         "MSc Data Science",
			Level:        models.EducationLevelMaster,
			TuitionFee:   18000,
			Currency:     "EUR",
			Active:       true,
		},
		UniversityName: "Leiden University",
	}
}

func completeWizardDraft(studentID string) *models.ApplicationDraft {
	return &models.ApplicationDraft{
		ID:          "draft-1",
		StudentID:   studentID,
		CurrentStep: models.StepPersonalInfo,
		PersonalInfo: models.PersonalInfo{
			FirstName:          "Amara",
			LastName:           "Okafor",
			Email:              "amara@example.com",
			Phone:              "+2348012345678",
			DateOfBirth:        "2001-04-17",
			Nationality:        "Nigerian",
			CountryOfResidence: "Nigeria",
			Address:            "12 Adeola Odeku Street",
			City:               "Lagos",
		},
		Education: models.EducationHistory{{
			ID:              "edu-1",
			Level:           models.EducationLevelBachelor,
			InstitutionName: "University of Lagos",
			Country:         "Nigeria",
			StartDate:       "2019-09",
		}},
		Program: models.ProgramChoice{ProgramID: "prog-1", IntakeYear: 2027, IntakeMonth: 9},
	}
}

func TestWizardServiceCreateDraftPrefillsProfile(t *testing.T) {
	f := newWizardFixture()
	claims := f.seedStudent()

	resp, err := f.svc.CreateDraft(context.Background(), claims, dto.CreateDraftRequest{})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Draft.ID)
	assert.Equal(t, "stu-1", resp.Draft.StudentID)
	assert.Equal(t, models.StepPersonalInfo, resp.Draft.CurrentStep)
	assert.Equal(t, "Amara", resp.Draft.PersonalInfo.FirstName)
	assert.Equal(t, "amara@example.com", resp.Draft.PersonalInfo.Email)
	assert.Equal(t, "2001-04-17", resp.Draft.PersonalInfo.DateOfBirth)
	require.Len(t, resp.Steps, models.TotalSteps)
	assert.True(t, resp.Steps[0].Complete)

	drafts, err := f.svc.ListDrafts(context.Background(), claims)
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
}

func TestWizardServiceGetDraftOwnership(t *testing.T) {
	f := newWizardFixture()
	claims := f.seedStudent()
	other := completeWizardDraft("stu-2")
	f.drafts.drafts[other.ID] = other

	_, err := f.svc.GetDraft(context.Background(), claims, other.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestWizardServiceUpdatePersonalInfoBadDate(t *testing.T) {
	f := newWizardFixture()
	claims := f.seedStudent()
	draft := completeWizardDraft("stu-1")
	f.drafts.drafts[draft.ID] = draft

	_, err := f.svc.UpdatePersonalInfo(context.Background(), claims, draft.ID, dto.UpdatePersonalInfoRequest{
		FirstName:   "Amara",
		LastName:    "Okafor",
		Email:       "amara@example.com",
		Phone:       "+2348012345678",
		DateOfBirth: "17/04/2001",
		Nationality: "Nigerian",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Zero(t, f.drafts.updates)
}

func TestWizardServiceEducationAddAndPatch(t *testing.T) {
	f := newWizardFixture()
	claims := f.seedStudent()
	draft := completeWizardDraft("stu-1")
	draft.Education = models.EducationHistory{}
	f.drafts.drafts[draft.ID] = draft

	record, err := f.svc.AddEducationRecord(context.Background(), claims, draft.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Empty(t, record.Level)

	patched, err := f.svc.UpdateEducationRecord(context.Background(), claims, draft.ID, record.ID,
		dto.UpdateEducationRecordRequest{Field: "level", Value: "Bachelors"})
	require.NoError(t, err)
	assert.Equal(t, models.EducationLevelBachelor, patched.Level)

	patched, err = f.svc.UpdateEducationRecord(context.Background(), claims, draft.ID, record.ID,
		dto.UpdateEducationRecordRequest{Field: "institution_name", Value: "University of Lagos"})
	require.NoError(t, err)
	assert.Equal(t, "University of Lagos", patched.InstitutionName)

	stored := f.drafts.drafts[draft.ID]
	require.Len(t, stored.Education, 1)
	assert.Equal(t, models.EducationLevelBachelor, stored.Education[0].Level)
	assert.Equal(t, "University of Lagos", stored.Education[0].InstitutionName)
}

func TestWizardServiceEducationUnknownField(t *testing.T) {
	f := newWizardFixture()
	claims := f.seedStudent()
	draft := completeWizardDraft("stu-1")
	f.drafts.drafts[draft.ID] = draft

	_, err := f.svc.UpdateEducationRecord(context.Background(), claims, draft.ID, "edu-1",
		dto.UpdateEducationRecordRequest{Field: "nickname", Value: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestWizardServiceEducationDeleteMissing(t *testing.T) {
	f := newWizardFixture()
	claims := f.seedStudent()
	draft := completeWizardDraft("stu-1")
	f.drafts.drafts[draft.ID] = draft

	err := f.svc.DeleteEducationRecord(context.Background(), claims, draft.ID, "edu-unknown")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestWizardServiceSetProgramDerivesIntake(t *testing.T) {
	f := newWizardFixture()
	claims := f.seedStudent()
	f.seedProgram()
	f.programs.intakes = map[string][]models.Intake{
		"prog-1": {{
			ID:        "intake-1",
			ProgramID: "prog-1",
			StartDate: time.Date(2027, 9, 1, 0, 0, 0, 0, time.UTC),
		}},
	}
	draft := completeWizardDraft("stu-1")
	draft.Program = models.ProgramChoice{}
	f.drafts.drafts[draft.ID] = draft

	resp, err := f.svc.SetProgram(context.Background(), claims, draft.ID, dto.PutProgramRequest{
		ProgramID:   "prog-1",
		IntakeID:    "intake-1",
		IntakeYear:  1999,
		IntakeMonth: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "intake-1", resp.Draft.Program.IntakeID)
	assert.Equal(t, 2027, resp.Draft.Program.IntakeYear)
	assert.Equal(t, 9, resp.Draft.Program.IntakeMonth)
}

func TestWizardServiceSetProgramManualWindow(t *testing.T) {
	f := newWizardFixture()
	claims := f.seedStudent()
	f.seedProgram()
	draft := completeWizardDraft("stu-1")
	draft.Program = models.ProgramChoice{}
	f.drafts.drafts[draft.ID] = draft
	currentYear := time.Now().UTC().Year()

	_, err := f.svc.SetProgram(context.Background(), claims, draft.ID, dto.PutProgramRequest{
		ProgramID:   "prog-1",
		IntakeYear:  currentYear + 3,
		IntakeMonth: 9,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.SetProgram(context.Background(), claims, draft.ID, dto.PutProgramRequest{
		ProgramID:   "prog-1",
		IntakeYear:  currentYear + 1,
		IntakeMonth: 13,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	resp, err := f.svc.SetProgram(context.Background(), claims, draft.ID, dto.PutProgramRequest{
		ProgramID:   "prog-1",
		IntakeYear:  currentYear + 1,
		IntakeMonth: 9,
	})
	require.NoError(t, err)
	assert.Equal(t, currentYear+1, resp.Draft.Program.IntakeYear)
}

func TestWizardServiceSetProgramIntakeMismatch(t *testing.T) {
	f := newWizardFixture()
	claims := f.seedStudent()
	f.seedProgram()
	f.programs.programs["prog-2"] = models.ProgramDetail{
		Program: models.Program{ID: "prog-2", UniversityID: "uni-1", Name: "BSc Economics", Active: true},
	}
	f.programs.intakes = map[string][]models.Intake{
		"prog-2": {{ID: "intake-2", ProgramID: "prog-2", StartDate: time.Date(2027, 1, 10, 0, 0, 0, 0, time.UTC)}},
	}
	draft := completeWizardDraft("stu-1")
	f.drafts.drafts[draft.ID] = draft

	_, err := f.svc.SetProgram(context.Background(), claims, draft.ID, dto.PutProgramRequest{
		ProgramID: "prog-1",
		IntakeID:  "intake-2",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestWizardServiceAdvanceReportsProblems(t *testing.T) {
	f := newWizardFixture()
	claims := f.seedStudent()
	draft := completeWizardDraft("stu-1")
	draft.PersonalInfo = models.PersonalInfo{LastName: "Okafor"}
	f.drafts.drafts[draft.ID] = draft

	_, problems, err := f.svc.Advance(context.Background(), claims, draft.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStepIncomplete.Code, appErrors.FromError(err).Code)
	assert.Equal(t, "required", problems["first_name"])
	assert.NotContains(t, problems, "last_name")
	assert.Equal(t, models.StepPersonalInfo, f.drafts.drafts[draft.ID].CurrentStep)
}

func TestWizardServiceAdvanceMovesCursor(t *testing.T) {
	f := newWizardFixture()
	claims := f.seedStudent()
	draft := completeWizardDraft("stu-1")
	f.drafts.drafts[draft.ID] = draft

	resp, problems, err := f.svc.Advance(context.Background(), claims, draft.ID)
	require.NoError(t, err)
	assert.Nil(t, problems)
	assert.Equal(t, models.StepEducation, resp.Draft.CurrentStep)
	assert.Equal(t, models.StepEducation, f.drafts.drafts[draft.ID].CurrentStep)
}

func TestWizardServiceAdvanceDocumentsGate(t *testing.T) {
	f := newWizardFixture()
	claims := f.seedStudent()
	f.docs.types = []models.DocumentType{
		{Code: "passport", Label: "Passport", Required: true},
		{Code: "cv", Label: "CV", Required: false},
	}
	draft := completeWizardDraft("stu-1")
	draft.CurrentStep = models.StepDocuments
	f.drafts.drafts[draft.ID] = draft

	_, problems, err := f.svc.Advance(context.Background(), claims, draft.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStepIncomplete.Code, appErrors.FromError(err).Code)
	assert.Equal(t, "required", problems["passport"])
	assert.NotContains(t, problems, "cv")

	f.docs.counts = map[string]map[string]int{draft.ID: {"passport": 1}}
	resp, problems, err := f.svc.Advance(context.Background(), claims, draft.ID)
	require.NoError(t, err)
	assert.Nil(t, problems)
	assert.Equal(t, models.StepReview, resp.Draft.CurrentStep)
}

func TestWizardServiceRetreatFloorsAtFirstStep(t *testing.T) {
	f := newWizardFixture()
	claims := f.seedStudent()
	draft := completeWizardDraft("stu-1")
	f.drafts.drafts[draft.ID] = draft

	resp, err := f.svc.Retreat(context.Background(), claims, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepPersonalInfo, resp.Draft.CurrentStep)
	assert.Zero(t, f.drafts.updates)
}

func TestWizardServiceReviewAggregates(t *testing.T) {
	f := newWizardFixture()
	claims := f.seedStudent()
	f.seedProgram()
	f.docs.types = []models.DocumentType{{Code: "passport", Label: "Passport", Required: true}}
	draft := completeWizardDraft("stu-1")
	f.drafts.drafts[draft.ID] = draft
	f.docs.files = map[string][]models.Document{
		draft.ID: {{ID: "doc-1", DraftID: draft.ID, TypeCode: "transcript", FileName: "transcript.pdf"}},
	}

	review, err := f.svc.Review(context.Background(), claims, draft.ID)
	require.NoError(t, err)
	require.NotNil(t, review.Program)
	assert.Equal(t, "Leiden University", review.Program.UniversityName)
	assert.Len(t, review.Documents, 1)
	require.Len(t, review.Missing, 1)
	assert.Equal(t, "passport", review.Missing[0].Code)
	assert.Len(t, review.Steps, models.TotalSteps)
}

func TestWizardServiceSubmitHappyPath(t *testing.T) {
	f := newWizardFixture()
	claims := f.seedStudent()
	f.seedProgram()
	f.docs.types = []models.DocumentType{{Code: "passport", Required: true}}
	draft := completeWizardDraft("stu-1")
	draft.CurrentStep = models.StepReview
	f.drafts.drafts[draft.ID] = draft
	f.docs.counts = map[string]map[string]int{draft.ID: {"passport": 1}}

	resp, err := f.svc.Submit(context.Background(), claims, draft.ID, dto.SubmitRequest{
		AgreedToTerms: true,
		Notes:         "Scholarship documents to follow",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ApplicationID)
	assert.Equal(t, models.ApplicationStatusSubmitted, resp.Status)

	require.Len(t, f.apps.created, 1)
	app := f.apps.created[0]
	assert.Equal(t, resp.ApplicationID, app.ID)
	assert.Equal(t, "stu-1", app.StudentID)
	assert.Equal(t, "uni-1", app.UniversityID)
	assert.Equal(t, 2027, app.IntakeYear)
	assert.Equal(t, "Amara", app.PersonalInfo.FirstName)
	assert.Equal(t, "Scholarship documents to follow", app.Notes)

	require.Len(t, f.apps.events, 1)
	assert.Equal(t, models.ApplicationStatusSubmitted, f.apps.events[0].ToStatus)

	stored := f.drafts.drafts[draft.ID]
	assert.True(t, stored.Submitted)
	require.NotNil(t, stored.ApplicationID)
	assert.Equal(t, resp.ApplicationID, *stored.ApplicationID)

	assert.Equal(t, resp.ApplicationID, f.docs.attached[draft.ID])
	assert.Equal(t, []string{"amara@example.com"}, f.notifier.sent)

	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionApplicationSubmit, f.audit.logs[0].Action)
}

func TestWizardServiceSubmitRequiresTerms(t *testing.T) {
	f := newWizardFixture()
	claims := f.seedStudent()
	f.seedProgram()
	draft := completeWizardDraft("stu-1")
	f.drafts.drafts[draft.ID] = draft

	_, err := f.svc.Submit(context.Background(), claims, draft.ID, dto.SubmitRequest{AgreedToTerms: false})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTermsNotAccepted.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.apps.created)
	assert.False(t, f.drafts.drafts[draft.ID].Submitted)
}

func TestWizardServiceSubmitRejectsDuplicate(t *testing.T) {
	f := newWizardFixture()
	claims := f.seedStudent()
	f.seedProgram()
	draft := completeWizardDraft("stu-1")
	f.drafts.drafts[draft.ID] = draft
	f.apps.existing = map[string]bool{"stu-1|prog-1|2027|9": true}

	_, err := f.svc.Submit(context.Background(), claims, draft.ID, dto.SubmitRequest{AgreedToTerms: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateApply.Code, appErrors.FromError(err).Code)
	assert.False(t, f.drafts.drafts[draft.ID].Submitted)
}

func TestWizardServiceSubmitTwiceConflicts(t *testing.T) {
	f := newWizardFixture()
	claims := f.seedStudent()
	f.seedProgram()
	draft := completeWizardDraft("stu-1")
	draft.Submitted = true
	f.drafts.drafts[draft.ID] = draft

	_, err := f.svc.Submit(context.Background(), claims, draft.ID, dto.SubmitRequest{AgreedToTerms: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDraftSubmitted.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.apps.created)
}

func TestWizardServiceSubmitIncompleteEducation(t *testing.T) {
	f := newWizardFixture()
	claims := f.seedStudent()
	f.seedProgram()
	draft := completeWizardDraft("stu-1")
	draft.Education = models.EducationHistory{}
	f.drafts.drafts[draft.ID] = draft

	_, err := f.svc.Submit(context.Background(), claims, draft.ID, dto.SubmitRequest{AgreedToTerms: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStepIncomplete.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.apps.created)
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/internal/dto"
	"github.com/Otsikow/unidoxia-sub010/internal/models"
	appErrors "github.com/Otsikow/unidoxia-sub010/pkg/errors"
)

type wizardDraftRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.ApplicationDraft, error)
	FindByID(ctx context.Context, id string) (*models.ApplicationDraft, error)
	Create(ctx context.Context, draft *models.ApplicationDraft) error
	Update(ctx context.Context, draft *models.ApplicationDraft) error
	MarkSubmitted(ctx context.Context, draftID, applicationID string, submittedAt time.Time) (bool, error)
}

type wizardStudentRepository interface {
	FindDetailByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
}

type wizardProgramRepository interface {
	FindDetailByID(ctx context.Context, id string) (*models.ProgramDetail, error)
	FindIntakeByID(ctx context.Context, id string) (*models.Intake, error)
}

type wizardDocumentRepository interface {
	ListTypes(ctx context.Context) ([]models.DocumentType, error)
	ListByDraft(ctx context.Context, draftID string) ([]models.Document, error)
	CountByType(ctx context.Context, draftID string) (map[string]int, error)
	AttachToApplication(ctx context.Context, draftID, applicationID string) error
}

type wizardApplicationRepository interface {
	ExistsForIntake(ctx context.Context, studentID, programID string, intakeYear, intakeMonth int) (bool, error)
	Create(ctx context.Context, application *models.Application, event *models.ApplicationStatusEvent) error
}

type wizardAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type wizardNotifier interface {
	SendApplicationSubmitted(ctx context.Context, email, studentName, programName, universityName string) error
}

// WizardService drives the five-step application wizard. Drafts belong to the
// authenticated student; every operation resolves the caller's profile and
// refuses drafts owned by someone else.
type WizardService struct {
	drafts       wizardDraftRepository
	students     wizardStudentRepository
	programs     wizardProgramRepository
	documents    wizardDocumentRepository
	applications wizardApplicationRepository
	audit        wizardAuditRepository
	notifier     wizardNotifier
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewWizardService constructs the wizard service.
func NewWizardService(
	drafts wizardDraftRepository,
	students wizardStudentRepository,
	programs wizardProgramRepository,
	documents wizardDocumentRepository,
	applications wizardApplicationRepository,
	audit wizardAuditRepository,
	notifier wizardNotifier,
	validate *validator.Validate,
	logger *zap.Logger,
) *WizardService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WizardService{
		drafts:       drafts,
		students:     students,
		programs:     programs,
		documents:    documents,
		applications: applications,
		audit:        audit,
		notifier:     notifier,
		validator:    validate,
		logger:       logger,
	}
}

// CreateDraft starts a fresh draft for the authenticated student. Personal
// info is prefilled from the profile unless the request carries its own.
func (s *WizardService) CreateDraft(ctx context.Context, claims *models.JWTClaims, req dto.CreateDraftRequest) (*dto.DraftResponse, error) {
	student, err := s.studentFor(ctx, claims)
	if err != nil {
		return nil, err
	}

	info := s.prefillPersonalInfo(student, claims)
	if req.PersonalInfo != nil {
		info = *req.PersonalInfo
	}

	draft := &models.ApplicationDraft{
		StudentID:    student.ID,
		CurrentStep:  models.StepPersonalInfo,
		PersonalInfo: info,
		Education:    models.EducationHistory{},
	}
	if err := s.drafts.Create(ctx, draft); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create draft")
	}
	return s.draftResponse(ctx, draft)
}

// ListDrafts returns the student's open drafts, newest first.
func (s *WizardService) ListDrafts(ctx context.Context, claims *models.JWTClaims) ([]models.ApplicationDraft, error) {
	student, err := s.studentFor(ctx, claims)
	if err != nil {
		return nil, err
	}
	drafts, err := s.drafts.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list drafts")
	}
	return drafts, nil
}

// GetDraft returns one draft with derived step states.
func (s *WizardService) GetDraft(ctx context.Context, claims *models.JWTClaims, draftID string) (*dto.DraftResponse, error) {
	draft, err := s.ownedDraft(ctx, claims, draftID)
	if err != nil {
		return nil, err
	}
	return s.draftResponse(ctx, draft)
}

// UpdatePersonalInfo replaces the step 1 data wholesale.
func (s *WizardService) UpdatePersonalInfo(ctx context.Context, claims *models.JWTClaims, draftID string, req dto.UpdatePersonalInfoRequest) (*dto.DraftResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid personal info payload")
	}
	if _, err := time.Parse("2006-01-02", req.DateOfBirth); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "dateOfBirth must be YYYY-MM-DD")
	}

	draft, err := s.mutableDraft(ctx, claims, draftID)
	if err != nil {
		return nil, err
	}

	draft.PersonalInfo = models.PersonalInfo{
		FirstName:          strings.TrimSpace(req.FirstName),
		LastName:           strings.TrimSpace(req.LastName),
		Email:              strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:              strings.TrimSpace(req.Phone),
		DateOfBirth:        req.DateOfBirth,
		Nationality:        strings.TrimSpace(req.Nationality),
		CountryOfResidence: strings.TrimSpace(req.CountryOfResidence),
		PassportNumber:     strings.TrimSpace(req.PassportNumber),
		Address:            strings.TrimSpace(req.Address),
		City:               strings.TrimSpace(req.City),
	}
	if err := s.drafts.Update(ctx, draft); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update draft")
	}
	return s.draftResponse(ctx, draft)
}

// AddEducationRecord appends a blank record with a fresh ID and returns it.
// The client edits the record field by field afterwards.
func (s *WizardService) AddEducationRecord(ctx context.Context, claims *models.JWTClaims, draftID string) (*models.EducationRecord, error) {
	draft, err := s.mutableDraft(ctx, claims, draftID)
	if err != nil {
		return nil, err
	}

	record := models.EducationRecord{ID: uuid.NewString()}
	draft.Education = append(draft.Education, record)
	if err := s.drafts.Update(ctx, draft); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update draft")
	}
	return &record, nil
}

// UpdateEducationRecord patches a single field on one education record. Level
// values pass through synonym normalization; unmatched input is stored
// verbatim and logged.
func (s *WizardService) UpdateEducationRecord(ctx context.Context, claims *models.JWTClaims, draftID, recordID string, req dto.UpdateEducationRecordRequest) (*models.EducationRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown education field")
	}

	draft, err := s.mutableDraft(ctx, claims, draftID)
	if err != nil {
		return nil, err
	}

	index := -1
	for i := range draft.Education {
		if draft.Education[i].ID == recordID {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "education record not found")
	}

	record := &draft.Education[index]
	value := strings.TrimSpace(req.Value)
	switch req.Field {
	case "level":
		normalized, ok := models.NormalizeEducationLevel(value)
		if !ok && value != "" {
			s.logger.Warn("unrecognized education level kept verbatim",
				zap.String("draft_id", draftID),
				zap.String("level", value))
		}
		record.Level = normalized
	case "institution_name":
		record.InstitutionName = value
	case "country":
		record.Country = value
	case "start_date":
		record.StartDate = value
	case "end_date":
		record.EndDate = value
	case "gpa":
		record.GPA = value
	case "grade_scale":
		record.GradeScale = value
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown education field %q", req.Field))
	}

	if err := s.drafts.Update(ctx, draft); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update draft")
	}
	updated := draft.Education[index]
	return &updated, nil
}

// DeleteEducationRecord removes one record from the history.
func (s *WizardService) DeleteEducationRecord(ctx context.Context, claims *models.JWTClaims, draftID, recordID string) error {
	draft, err := s.mutableDraft(ctx, claims, draftID)
	if err != nil {
		return err
	}

	kept := make(models.EducationHistory, 0, len(draft.Education))
	found := false
	for _, record := range draft.Education {
		if record.ID == recordID {
			found = true
			continue
		}
		kept = append(kept, record)
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "education record not found")
	}

	draft.Education = kept
	if err := s.drafts.Update(ctx, draft); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update draft")
	}
	return nil
}

// SetProgram records the program selection. When an intake is chosen its start
// date dictates year and month; manual values must land within the next two
// admission years.
func (s *WizardService) SetProgram(ctx context.Context, claims *models.JWTClaims, draftID string, req dto.PutProgramRequest) (*dto.DraftResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program payload")
	}

	draft, err := s.mutableDraft(ctx, claims, draftID)
	if err != nil {
		return nil, err
	}

	program, err := s.programs.FindDetailByID(ctx, req.ProgramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	if !program.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "program is no longer accepting applications")
	}

	choice := models.ProgramChoice{ProgramID: program.ID}
	if req.IntakeID != "" {
		intake, err := s.programs.FindIntakeByID(ctx, req.IntakeID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "intake not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load intake")
		}
		if intake.ProgramID != program.ID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "intake does not belong to the selected program")
		}
		choice.IntakeID = intake.ID
		choice.IntakeYear = intake.Year()
		choice.IntakeMonth = intake.Month()
	} else {
		currentYear := time.Now().UTC().Year()
		if req.IntakeYear < currentYear || req.IntakeYear > currentYear+2 {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("intakeYear must be between %d and %d", currentYear, currentYear+2))
		}
		if req.IntakeMonth < 1 || req.IntakeMonth > 12 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "intakeMonth must be between 1 and 12")
		}
		choice.IntakeYear = req.IntakeYear
		choice.IntakeMonth = req.IntakeMonth
	}

	draft.Program = choice
	if err := s.drafts.Update(ctx, draft); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update draft")
	}
	return s.draftResponse(ctx, draft)
}

// Advance moves the cursor one step forward once the current step's data is
// complete. Incomplete steps return the per-field problems alongside the
// error so the client can highlight them.
func (s *WizardService) Advance(ctx context.Context, claims *models.JWTClaims, draftID string) (*dto.DraftResponse, map[string]string, error) {
	draft, err := s.mutableDraft(ctx, claims, draftID)
	if err != nil {
		return nil, nil, err
	}

	docsComplete, missing, err := s.documentState(ctx, draft.ID)
	if err != nil {
		return nil, nil, err
	}

	if draft.CurrentStep >= models.StepReview {
		return draftResponseWith(draft, docsComplete), nil, nil
	}

	if !draft.StepComplete(draft.CurrentStep, docsComplete) {
		problems := stepProblems(draft, draft.CurrentStep, missing)
		return nil, problems, appErrors.Clone(appErrors.ErrStepIncomplete,
			fmt.Sprintf("the %s step is incomplete", models.StepName(draft.CurrentStep)))
	}

	draft.CurrentStep++
	if err := s.drafts.Update(ctx, draft); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update draft")
	}
	return draftResponseWith(draft, docsComplete), nil, nil
}

// Retreat moves the cursor one step back, never below the first step.
func (s *WizardService) Retreat(ctx context.Context, claims *models.JWTClaims, draftID string) (*dto.DraftResponse, error) {
	draft, err := s.mutableDraft(ctx, claims, draftID)
	if err != nil {
		return nil, err
	}

	if draft.CurrentStep > models.StepPersonalInfo {
		draft.CurrentStep--
		if err := s.drafts.Update(ctx, draft); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update draft")
		}
	}
	return s.draftResponse(ctx, draft)
}

// Review aggregates everything the final step renders: the draft, the chosen
// program and intake hydrated from the catalog, the uploaded files and the
// required types still missing. Submitted drafts stay reviewable.
func (s *WizardService) Review(ctx context.Context, claims *models.JWTClaims, draftID string) (*dto.ReviewResponse, error) {
	draft, err := s.ownedDraft(ctx, claims, draftID)
	if err != nil {
		return nil, err
	}

	documents, err := s.documents.ListByDraft(ctx, draft.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	docsComplete, missing, err := s.documentState(ctx, draft.ID)
	if err != nil {
		return nil, err
	}

	review := &dto.ReviewResponse{
		Draft:     *draft,
		Documents: documents,
		Missing:   missing,
		Steps:     stepStates(draft, docsComplete),
	}

	if draft.Program.ProgramID != "" {
		program, err := s.programs.FindDetailByID(ctx, draft.Program.ProgramID)
		switch {
		case err == nil:
			review.Program = program
		case errors.Is(err, sql.ErrNoRows):
			s.logger.Warn("draft references a vanished program",
				zap.String("draft_id", draft.ID),
				zap.String("program_id", draft.Program.ProgramID))
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
		}
	}
	if draft.Program.IntakeID != "" {
		intake, err := s.programs.FindIntakeByID(ctx, draft.Program.IntakeID)
		if err == nil {
			review.Intake = intake
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load intake")
		}
	}
	return review, nil
}

// Submit turns a complete draft into an application. The draft is frozen
// exactly once; its documents are re-keyed to the application and a
// confirmation email goes out to the student.
func (s *WizardService) Submit(ctx context.Context, claims *models.JWTClaims, draftID string, req dto.SubmitRequest) (*dto.SubmitResponse, error) {
	student, err := s.studentFor(ctx, claims)
	if err != nil {
		return nil, err
	}
	draft, err := s.loadDraft(ctx, student, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Submitted {
		return nil, appErrors.Clone(appErrors.ErrDraftSubmitted, "draft has already been submitted")
	}
	if !req.AgreedToTerms {
		return nil, appErrors.Clone(appErrors.ErrTermsNotAccepted, "terms and conditions must be accepted before submitting")
	}

	docsComplete, _, err := s.documentState(ctx, draft.ID)
	if err != nil {
		return nil, err
	}
	for step := models.StepPersonalInfo; step < models.StepReview; step++ {
		if !draft.StepComplete(step, docsComplete) {
			return nil, appErrors.Clone(appErrors.ErrStepIncomplete,
				fmt.Sprintf("the %s step is incomplete", models.StepName(step)))
		}
	}

	program, err := s.programs.FindDetailByID(ctx, draft.Program.ProgramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "selected program is no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	if !program.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "selected program is no longer available")
	}

	exists, err := s.applications.ExistsForIntake(ctx, student.ID, draft.Program.ProgramID, draft.Program.IntakeYear, draft.Program.IntakeMonth)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing applications")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateApply,
			"an application for this program and intake already exists")
	}

	now := time.Now().UTC()
	applicationID := uuid.NewString()

	// The submitted flag is the serialization point: the second of two
	// concurrent submits loses here and no duplicate application is created.
	marked, err := s.drafts.MarkSubmitted(ctx, draft.ID, applicationID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit draft")
	}
	if !marked {
		return nil, appErrors.Clone(appErrors.ErrDraftSubmitted, "draft has already been submitted")
	}

	notes := draft.Notes
	if strings.TrimSpace(req.Notes) != "" {
		notes = strings.TrimSpace(req.Notes)
	}

	var intakeID *string
	if draft.Program.IntakeID != "" {
		id := draft.Program.IntakeID
		intakeID = &id
	}

	application := &models.Application{
		ID:           applicationID,
		StudentID:    student.ID,
		AgentID:      student.AgentID,
		ProgramID:    program.ID,
		UniversityID: program.UniversityID,
		IntakeID:     intakeID,
		IntakeYear:   draft.Program.IntakeYear,
		IntakeMonth:  draft.Program.IntakeMonth,
		PersonalInfo: draft.PersonalInfo,
		Education:    draft.Education,
		Notes:        notes,
		Status:       models.ApplicationStatusSubmitted,
		SubmittedAt:  now,
	}
	event := &models.ApplicationStatusEvent{
		ToStatus: models.ApplicationStatusSubmitted,
		Note:     "application submitted",
		ActorID:  claims.UserID,
	}
	if err := s.applications.Create(ctx, application, event); err != nil {
		s.logger.Error("draft marked submitted but application insert failed",
			zap.String("draft_id", draft.ID),
			zap.String("application_id", applicationID),
			zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}

	if err := s.documents.AttachToApplication(ctx, draft.ID, applicationID); err != nil {
		s.logger.Error("failed to re-key draft documents to application",
			zap.String("draft_id", draft.ID),
			zap.String("application_id", applicationID),
			zap.Error(err))
	}

	s.recordSubmitAudit(ctx, claims, applicationID)

	if s.notifier != nil {
		if err := s.notifier.SendApplicationSubmitted(ctx, student.Email, student.FullName, program.Name, program.UniversityName); err != nil {
			s.logger.Warn("failed to send submission confirmation",
				zap.String("application_id", applicationID),
				zap.Error(err))
		}
	}

	return &dto.SubmitResponse{
		ApplicationID: applicationID,
		Status:        models.ApplicationStatusSubmitted,
		SubmittedAt:   now,
	}, nil
}

func (s *WizardService) studentFor(ctx context.Context, claims *models.JWTClaims) (*models.StudentDetail, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	student, err := s.students.FindDetailByUserID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "a student profile is required")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	return student, nil
}

func (s *WizardService) loadDraft(ctx context.Context, student *models.StudentDetail, draftID string) (*models.ApplicationDraft, error) {
	draft, err := s.drafts.FindByID(ctx, draftID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "draft not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load draft")
	}
	if draft.StudentID != student.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "draft belongs to another student")
	}
	return draft, nil
}

func (s *WizardService) ownedDraft(ctx context.Context, claims *models.JWTClaims, draftID string) (*models.ApplicationDraft, error) {
	student, err := s.studentFor(ctx, claims)
	if err != nil {
		return nil, err
	}
	return s.loadDraft(ctx, student, draftID)
}

func (s *WizardService) mutableDraft(ctx context.Context, claims *models.JWTClaims, draftID string) (*models.ApplicationDraft, error) {
	draft, err := s.ownedDraft(ctx, claims, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Submitted {
		return nil, appErrors.Clone(appErrors.ErrDraftSubmitted, "submitted drafts cannot be edited")
	}
	return draft, nil
}

func (s *WizardService) prefillPersonalInfo(student *models.StudentDetail, claims *models.JWTClaims) models.PersonalInfo {
	info := models.PersonalInfo{
		FirstName:          student.FirstName,
		LastName:           student.LastName,
		Email:              student.Email,
		Phone:              student.Phone,
		Nationality:        student.Nationality,
		CountryOfResidence: student.CountryOfResidence,
		PassportNumber:     student.PassportNumber,
		Address:            student.Address,
		City:               student.City,
	}
	if student.DateOfBirth != nil {
		info.DateOfBirth = student.DateOfBirth.Format("2006-01-02")
	}
	if info.Email == "" && claims != nil {
		info.Email = claims.Email
	}
	return info
}

// documentState reports whether every required document type has at least one
// upload, plus the required types still missing.
func (s *WizardService) documentState(ctx context.Context, draftID string) (bool, []models.DocumentType, error) {
	types, err := s.documents.ListTypes(ctx)
	if err != nil {
		return false, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document types")
	}
	counts, err := s.documents.CountByType(ctx, draftID)
	if err != nil {
		return false, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count documents")
	}

	var missing []models.DocumentType
	for _, docType := range types {
		if !docType.Required {
			continue
		}
		if counts[docType.Code] == 0 {
			missing = append(missing, docType)
		}
	}
	return len(missing) == 0, missing, nil
}

func (s *WizardService) draftResponse(ctx context.Context, draft *models.ApplicationDraft) (*dto.DraftResponse, error) {
	docsComplete, _, err := s.documentState(ctx, draft.ID)
	if err != nil {
		return nil, err
	}
	return draftResponseWith(draft, docsComplete), nil
}

func draftResponseWith(draft *models.ApplicationDraft, docsComplete bool) *dto.DraftResponse {
	return &dto.DraftResponse{
		Draft: *draft,
		Steps: stepStates(draft, docsComplete),
	}
}

func (s *WizardService) recordSubmitAudit(ctx context.Context, claims *models.JWTClaims, applicationID string) {
	if s.audit == nil || claims == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     models.AuditActionApplicationSubmit,
		Resource:   "applications",
		ResourceID: &applicationID,
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record submit audit log", zap.Error(err))
	}
}

func stepStates(draft *models.ApplicationDraft, docsComplete bool) []dto.StepState {
	states := make([]dto.StepState, 0, models.TotalSteps)
	for step := models.StepPersonalInfo; step <= models.StepReview; step++ {
		states = append(states, dto.StepState{
			Step:     step,
			Name:     models.StepName(step),
			Complete: draft.StepComplete(step, docsComplete),
		})
	}
	return states
}

// stepProblems explains why a step refuses to advance, keyed by field for the
// personal info step and by document type code for the documents step.
func stepProblems(draft *models.ApplicationDraft, step int, missing []models.DocumentType) map[string]string {
	switch step {
	case models.StepPersonalInfo:
		return draft.PersonalInfo.Problems()
	case models.StepEducation:
		if len(draft.Education) == 0 {
			return map[string]string{"education": "add at least one education record"}
		}
		problems := make(map[string]string)
		for _, record := range draft.Education {
			if !record.Complete() {
				problems[record.ID] = "level, institution name, country and start date are required"
			}
		}
		return problems
	case models.StepProgram:
		return map[string]string{"program": "choose a program and intake"}
	case models.StepDocuments:
		problems := make(map[string]string, len(missing))
		for _, docType := range missing {
			problems[docType.Code] = "required"
		}
		return problems
	}
	return map[string]string{}
}

package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/internal/models"
	"github.com/Otsikow/unidoxia-sub010/pkg/export"
	"github.com/Otsikow/unidoxia-sub010/pkg/storage"
)

// exportPageSize is the repository page drained per round while a dataset is
// being collected.
const exportPageSize = 100

type exportApplicationRepository interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error)
}

type exportStudentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
}

type exportAgentRepository interface {
	List(ctx context.Context, filter models.AgentFilter) ([]models.AgentDetail, int, error)
}

type exportCommissionRepository interface {
	List(ctx context.Context, filter models.CommissionFilter) ([]models.CommissionDetail, int, error)
}

type exportPaymentRepository interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error)
}

type exportProgramRepository interface {
	List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramDetail, int, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService turns marketplace records into tabular datasets and renders
// them as CSV or PDF. Async jobs persist the rendered file and hand back a
// signed download token; the synchronous path renders in memory only.
type ExportService struct {
	applications exportApplicationRepository
	students     exportStudentRepository
	agents       exportAgentRepository
	commissions  exportCommissionRepository
	payments     exportPaymentRepository
	programs     exportProgramRepository
	storage      fileStorage
	csv          csvRenderer
	pdf          pdfRenderer
	signer       *storage.SignedURLSigner
	logger       *zap.Logger
	cfg          ExportConfig
	now          func() time.Time
}

// ExportServiceParams collects the dependencies for NewExportService.
type ExportServiceParams struct {
	Applications exportApplicationRepository
	Students     exportStudentRepository
	Agents       exportAgentRepository
	Commissions  exportCommissionRepository
	Payments     exportPaymentRepository
	Programs     exportProgramRepository
	Storage      fileStorage
	Signer       *storage.SignedURLSigner
	CSV          csvRenderer
	PDF          pdfRenderer
	Logger       *zap.Logger
	Config       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(params ExportServiceParams) *ExportService {
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.Config.ResultTTL <= 0 {
		params.Config.ResultTTL = 24 * time.Hour
	}
	if params.CSV == nil {
		params.CSV = export.NewCSVExporter()
	}
	if params.PDF == nil {
		params.PDF = export.NewPDFExporter()
	}
	return &ExportService{
		applications: params.Applications,
		students:     params.Students,
		agents:       params.Agents,
		commissions:  params.Commissions,
		payments:     params.Payments,
		programs:     params.Programs,
		storage:      params.Storage,
		csv:          params.CSV,
		pdf:          params.PDF,
		signer:       params.Signer,
		logger:       params.Logger,
		cfg:          params.Config,
		now:          time.Now,
	}
}

// Generate builds the dataset for the job's entity and stores the rendered
// file under a per-job directory so repeated runs never clash.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, err := s.buildDataset(ctx, job.Entity, job.Params)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, reportTitle(job.Entity, s.now().UTC()))
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.storedFilename(job), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          s.downloadURL(token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ExportCSV renders the entity dataset for a synchronous download. Nothing is
// written to storage.
func (s *ExportService) ExportCSV(ctx context.Context, entity models.ReportEntity, params models.ReportJobParams) ([]byte, string, error) {
	dataset, err := s.buildDataset(ctx, entity, params)
	if err != nil {
		return nil, "", err
	}
	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, "", err
	}
	return payload, export.Filename(string(entity), s.now().UTC()), nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) storedFilename(job *models.ReportJob) string {
	name := export.Filename(string(job.Entity), s.now().UTC())
	if job.Params.Format == models.ReportFormatPDF {
		name = strings.TrimSuffix(name, ".csv") + ".pdf"
	}
	return filepath.Join("reports", job.ID, name)
}

func (s *ExportService) downloadURL(token string) string {
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return fmt.Sprintf("%s/reports/download/%s", prefix, token)
}

func reportTitle(entity models.ReportEntity, now time.Time) string {
	names := map[models.ReportEntity]string{
		models.ReportEntityApplications: "Applications",
		models.ReportEntityStudents:     "Students",
		models.ReportEntityAgents:       "Agents",
		models.ReportEntityCommissions:  "Commissions",
		models.ReportEntityPayments:     "Payments",
		models.ReportEntityPrograms:     "Programs",
	}
	name := names[entity]
	if name == "" {
		name = string(entity)
	}
	return fmt.Sprintf("%s Report %s", name, now.Format("2006-01-02"))
}

func (s *ExportService) buildDataset(ctx context.Context, entity models.ReportEntity, params models.ReportJobParams) (export.Dataset, error) {
	switch entity {
	case models.ReportEntityApplications:
		return s.buildApplicationsDataset(ctx, params)
	case models.ReportEntityStudents:
		return s.buildStudentsDataset(ctx, params)
	case models.ReportEntityAgents:
		return s.buildAgentsDataset(ctx, params)
	case models.ReportEntityCommissions:
		return s.buildCommissionsDataset(ctx, params)
	case models.ReportEntityPayments:
		return s.buildPaymentsDataset(ctx, params)
	case models.ReportEntityPrograms:
		return s.buildProgramsDataset(ctx, params)
	default:
		return export.Dataset{}, fmt.Errorf("unsupported report entity %s", entity)
	}
}

func (s *ExportService) buildApplicationsDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	filter := models.ApplicationFilter{
		AgentID:      deref(params.AgentID),
		UniversityID: deref(params.UniversityID),
		IntakeYear:   params.IntakeYear,
		PageSize:     exportPageSize,
	}
	if params.Status != nil {
		status := models.ApplicationStatus(*params.Status)
		if !models.ValidApplicationStatus(status) {
			return export.Dataset{}, fmt.Errorf("unknown application status %q", *params.Status)
		}
		filter.Status = &status
	}

	rows := make([]map[string]string, 0)
	for page := 1; ; page++ {
		filter.Page = page
		batch, total, err := s.applications.List(ctx, filter)
		if err != nil {
			return export.Dataset{}, err
		}
		for _, app := range batch {
			rows = append(rows, map[string]string{
				"Application ID": app.ID,
				"Student":        app.StudentName,
				"Email":          app.StudentEmail,
				"Agent":          deref(app.AgentName),
				"Program":        app.ProgramName,
				"Level":          app.ProgramLevel,
				"University":     app.UniversityName,
				"Intake":         fmt.Sprintf("%d-%02d", app.IntakeYear, app.IntakeMonth),
				"Status":         string(app.Status),
				"Submitted At":   app.SubmittedAt.UTC().Format(time.RFC3339),
				"Decided At":     formatReportTime(app.DecidedAt),
			})
		}
		if len(batch) < exportPageSize || len(rows) >= total {
			break
		}
	}

	return export.Dataset{
		Headers: []string{"Application ID", "Student", "Email", "Agent", "Program", "Level", "University", "Intake", "Status", "Submitted At", "Decided At"},
		Rows:    rows,
	}, nil
}

func (s *ExportService) buildStudentsDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	filter := models.StudentFilter{
		AgentID:  deref(params.AgentID),
		PageSize: exportPageSize,
	}

	rows := make([]map[string]string, 0)
	for page := 1; ; page++ {
		filter.Page = page
		batch, total, err := s.students.List(ctx, filter)
		if err != nil {
			return export.Dataset{}, err
		}
		for _, student := range batch {
			rows = append(rows, map[string]string{
				"Student ID":           student.ID,
				"Full Name":            student.FullName,
				"Email":                student.Email,
				"Phone":                student.Phone,
				"Nationality":          student.Nationality,
				"Country of Residence": student.CountryOfResidence,
				"City":                 student.City,
				"Agent":                deref(student.AgentName),
				"Registered At":        student.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		if len(batch) < exportPageSize || len(rows) >= total {
			break
		}
	}

	return export.Dataset{
		Headers: []string{"Student ID", "Full Name", "Email", "Phone", "Nationality", "Country of Residence", "City", "Agent", "Registered At"},
		Rows:    rows,
	}, nil
}

func (s *ExportService) buildAgentsDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	filter := models.AgentFilter{PageSize: exportPageSize}

	rows := make([]map[string]string, 0)
	for page := 1; ; page++ {
		filter.Page = page
		batch, total, err := s.agents.List(ctx, filter)
		if err != nil {
			return export.Dataset{}, err
		}
		for _, agent := range batch {
			rows = append(rows, map[string]string{
				"Agent ID":        agent.ID,
				"Company":         agent.CompanyName,
				"Contact":         agent.FullName,
				"Email":           agent.Email,
				"Username":        agent.Username,
				"Country":         agent.Country,
				"Commission Rate": fmt.Sprintf("%.2f", agent.CommissionRate),
				"Verified":        fmt.Sprintf("%t", agent.Verified),
				"Students":        fmt.Sprintf("%d", agent.StudentCount),
				"Joined At":       agent.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		if len(batch) < exportPageSize || len(rows) >= total {
			break
		}
	}

	return export.Dataset{
		Headers: []string{"Agent ID", "Company", "Contact", "Email", "Username", "Country", "Commission Rate", "Verified", "Students", "Joined At"},
		Rows:    rows,
	}, nil
}

func (s *ExportService) buildCommissionsDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	filter := models.CommissionFilter{
		AgentID:  deref(params.AgentID),
		PageSize: exportPageSize,
	}
	if params.Status != nil {
		status := models.CommissionStatus(*params.Status)
		switch status {
		case models.CommissionStatusPending, models.CommissionStatusApproved, models.CommissionStatusPaid:
		default:
			return export.Dataset{}, fmt.Errorf("unknown commission status %q", *params.Status)
		}
		filter.Status = &status
	}

	rows := make([]map[string]string, 0)
	for page := 1; ; page++ {
		filter.Page = page
		batch, total, err := s.commissions.List(ctx, filter)
		if err != nil {
			return export.Dataset{}, err
		}
		for _, commission := range batch {
			rows = append(rows, map[string]string{
				"Commission ID": commission.ID,
				"Agent":         commission.AgentName,
				"Student":       commission.StudentName,
				"Program":       commission.ProgramName,
				"University":    commission.UniversityName,
				"Amount":        fmt.Sprintf("%.2f", commission.Amount),
				"Currency":      commission.Currency,
				"Rate":          fmt.Sprintf("%.2f", commission.Rate),
				"Status":        string(commission.Status),
				"Approved At":   formatReportTime(commission.ApprovedAt),
				"Paid At":       formatReportTime(commission.PaidAt),
			})
		}
		if len(batch) < exportPageSize || len(rows) >= total {
			break
		}
	}

	return export.Dataset{
		Headers: []string{"Commission ID", "Agent", "Student", "Program", "University", "Amount", "Currency", "Rate", "Status", "Approved At", "Paid At"},
		Rows:    rows,
	}, nil
}

func (s *ExportService) buildPaymentsDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	filter := models.PaymentFilter{
		UniversityID: deref(params.UniversityID),
		PageSize:     exportPageSize,
	}
	if params.Status != nil {
		status := models.PaymentStatus(*params.Status)
		switch status {
		case models.PaymentStatusPending, models.PaymentStatusConfirmed, models.PaymentStatusRefunded:
		default:
			return export.Dataset{}, fmt.Errorf("unknown payment status %q", *params.Status)
		}
		filter.Status = &status
	}

	rows := make([]map[string]string, 0)
	for page := 1; ; page++ {
		filter.Page = page
		batch, total, err := s.payments.List(ctx, filter)
		if err != nil {
			return export.Dataset{}, err
		}
		for _, payment := range batch {
			rows = append(rows, map[string]string{
				"Payment ID":     payment.ID,
				"Application ID": payment.ApplicationID,
				"Student":        payment.StudentName,
				"Program":        payment.ProgramName,
				"University":     payment.UniversityName,
				"Amount":         fmt.Sprintf("%.2f", payment.Amount),
				"Currency":       payment.Currency,
				"Reference":      payment.Reference,
				"Status":         string(payment.Status),
				"Recorded At":    payment.CreatedAt.UTC().Format(time.RFC3339),
				"Confirmed At":   formatReportTime(payment.ConfirmedAt),
			})
		}
		if len(batch) < exportPageSize || len(rows) >= total {
			break
		}
	}

	return export.Dataset{
		Headers: []string{"Payment ID", "Application ID", "Student", "Program", "University", "Amount", "Currency", "Reference", "Status", "Recorded At", "Confirmed At"},
		Rows:    rows,
	}, nil
}

func (s *ExportService) buildProgramsDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	filter := models.ProgramFilter{
		UniversityID: deref(params.UniversityID),
		PageSize:     exportPageSize,
	}

	rows := make([]map[string]string, 0)
	for page := 1; ; page++ {
		filter.Page = page
		batch, total, err := s.programs.List(ctx, filter)
		if err != nil {
			return export.Dataset{}, err
		}
		for _, program := range batch {
			rows = append(rows, map[string]string{
				"Program ID":        program.ID,
				"Name":              program.Name,
				"Level":             program.Level,
				"Discipline":        program.Discipline,
				"University":        program.UniversityName,
				"Country":           program.UniversityCountry,
				"Tuition Fee":       fmt.Sprintf("%.2f", program.TuitionFee),
				"Currency":          program.Currency,
				"Duration (months)": fmt.Sprintf("%d", program.DurationMonths),
				"Commission Rate":   fmt.Sprintf("%.2f", program.CommissionRate),
				"Active":            fmt.Sprintf("%t", program.Active),
			})
		}
		if len(batch) < exportPageSize || len(rows) >= total {
			break
		}
	}

	return export.Dataset{
		Headers: []string{"Program ID", "Name", "Level", "Discipline", "University", "Country", "Tuition Fee", "Currency", "Duration (months)", "Commission Rate", "Active"},
		Rows:    rows,
	}, nil
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func formatReportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/Otsikow/unidoxia-sub010/internal/models"
	"github.com/Otsikow/unidoxia-sub010/internal/repository"
	"github.com/Otsikow/unidoxia-sub010/pkg/config"
	"github.com/Otsikow/unidoxia-sub010/pkg/database"
)

var readPasswordFunc = term.ReadPassword

func main() {
	root := &cobra.Command{
		Use:   "unidoxia-admin",
		Short: "Operational tasks for the Unidoxia platform",
	}

	var (
		adminEmail    string
		adminName     string
		adminPassword string
	)
	createAdminCmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreateAdmin(cmd.Context(), adminEmail, adminName, adminPassword)
		},
	}
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Email address for the admin account")
	createAdminCmd.Flags().StringVar(&adminName, "name", "", "Full name for the admin account")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Password; prompted interactively when omitted")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("name")

	var withDemo bool
	seedCatalogCmd := &cobra.Command{
		Use:   "seed-catalog",
		Short: "Seed document types and optionally a demo university with programs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeedCatalog(cmd.Context(), withDemo)
		},
	}
	seedCatalogCmd.Flags().BoolVar(&withDemo, "demo", false, "Also create a demo university, program and intakes")

	root.AddCommand(createAdminCmd)
	root.AddCommand(seedCatalogCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDB() (*repository.UserRepository, *repository.DocumentRepository, *repository.UniversityRepository, *repository.ProgramRepository, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	closeFn := func() { _ = db.Close() }
	return repository.NewUserRepository(db),
		repository.NewDocumentRepository(db),
		repository.NewUniversityRepository(db),
		repository.NewProgramRepository(db),
		closeFn,
		nil
}

func runCreateAdmin(ctx context.Context, email, name, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || name == "" {
		return errors.New("email and name are required")
	}

	if password == "" {
		fmt.Print("Enter password: ")
		raw, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = string(raw)
	}
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	users, _, _, _, closeFn, err := openDB()
	if err != nil {
		return err
	}
	defer closeFn()

	taken, err := users.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if taken {
		return fmt.Errorf("email %s is already registered", email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     name,
		Role:         models.RoleAdmin,
		Active:       true,
	}
	if err := users.Create(ctx, user); err != nil {
		return err
	}

	log.Printf("admin account created: %s (%s)", user.Email, user.ID)
	return nil
}

func seedDocumentTypes() []models.DocumentType {
	return []models.DocumentType{
		{Code: "passport", Label: "Passport", Description: "Photo page of a valid international passport", Required: true, SortOrder: 1},
		{Code: "transcript", Label: "Academic Transcript", Description: "Official transcripts for each prior institution", Required: true, Multiple: true, SortOrder: 2},
		{Code: "english_test", Label: "English Test Result", Description: "IELTS, TOEFL or equivalent score report", SortOrder: 3},
		{Code: "recommendation_letter", Label: "Recommendation Letter", Description: "Academic or professional reference", Multiple: true, SortOrder: 4},
		{Code: "statement_of_purpose", Label: "Statement of Purpose", SortOrder: 5},
		{Code: "cv", Label: "CV / Resume", SortOrder: 6},
		{Code: "financial_statement", Label: "Financial Statement", Description: "Proof of funds for tuition and living costs", SortOrder: 7},
	}
}

func runSeedCatalog(ctx context.Context, withDemo bool) error {
	_, documents, universities, programs, closeFn, err := openDB()
	if err != nil {
		return err
	}
	defer closeFn()

	created := 0
	for _, docType := range seedDocumentTypes() {
		if _, err := documents.FindTypeByCode(ctx, docType.Code); err == nil {
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check document type %s: %w", docType.Code, err)
		}
		docType.Active = true
		if err := documents.CreateType(ctx, &docType); err != nil {
			return err
		}
		created++
	}
	log.Printf("document types seeded: %d created", created)

	if !withDemo {
		return nil
	}

	const demoName = "Demo University"
	existing, _, err := universities.List(ctx, models.UniversityFilter{Search: demoName, PageSize: 1})
	if err != nil {
		return fmt.Errorf("check demo university: %w", err)
	}
	if len(existing) > 0 {
		log.Printf("demo university already present, skipping")
		return nil
	}

	university := &models.University{
		ID:          uuid.NewString(),
		Name:        demoName,
		Country:     "Netherlands",
		City:        "Amsterdam",
		Website:     "https://demo-university.example.com",
		Description: "Seeded institution for local development",
		Active:      true,
	}
	if err := universities.Create(ctx, university); err != nil {
		return err
	}

	program := &models.Program{
		ID:             uuid.NewString(),
		UniversityID:   university.ID,
		Name:           "MSc Computer Science",
		Level:          models.EducationLevelMaster,
		Discipline:     "Computer Science",
		DurationMonths: 24,
		TuitionFee:     15000,
		Currency:       "EUR",
		CommissionRate: 0.15,
		Language:       "English",
		Description:    "Seeded program for local development",
		Active:         true,
	}
	if err := programs.Create(ctx, program); err != nil {
		return err
	}

	nextYear := time.Now().UTC().Year() + 1
	for _, intake := range []models.Intake{
		{
			ProgramID:           program.ID,
			Label:               fmt.Sprintf("September %d", nextYear),
			StartDate:           time.Date(nextYear, time.September, 1, 0, 0, 0, 0, time.UTC),
			ApplicationDeadline: time.Date(nextYear, time.June, 30, 0, 0, 0, 0, time.UTC),
			Active:              true,
		},
		{
			ProgramID:           program.ID,
			Label:               fmt.Sprintf("January %d", nextYear+1),
			StartDate:           time.Date(nextYear+1, time.January, 15, 0, 0, 0, 0, time.UTC),
			ApplicationDeadline: time.Date(nextYear, time.October, 31, 0, 0, 0, 0, time.UTC),
			Active:              true,
		},
	} {
		intake := intake
		if err := programs.CreateIntake(ctx, &intake); err != nil {
			return err
		}
	}

	log.Printf("demo catalog seeded: %s / %s", university.Name, program.Name)
	return nil
}

package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Otsikow/unidoxia-sub010/internal/middleware"
	"github.com/Otsikow/unidoxia-sub010/internal/models"
	"github.com/Otsikow/unidoxia-sub010/internal/repository"
	"github.com/Otsikow/unidoxia-sub010/internal/service"
)

// Deps bundles the handlers and cross-cutting services the route table needs.
type Deps struct {
	Auth         *AuthHandler
	Users        *UserHandler
	Students     *StudentHandler
	Agents       *AgentHandler
	Universities *UniversityHandler
	Catalog      *CatalogHandler
	Wizard       *WizardHandler
	Documents    *DocumentHandler
	Applications *ApplicationHandler
	Messages     *MessageHandler
	Commissions  *CommissionHandler
	Payments     *PaymentHandler
	Dashboard    *DashboardHandler
	Reports      *ReportHandler

	AuthService    *service.AuthService
	MetricsService *service.MetricsService
	UserRepo       *repository.UserRepository
	Logger         *zap.Logger
	APIPrefix      string
}

// RegisterRoutes mounts the API route table on the engine. Global middleware
// (recovery, request IDs, logging, CORS) is applied by the caller before this
// runs.
func RegisterRoutes(r *gin.Engine, deps Deps) {
	prefix := strings.TrimRight(deps.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	api := r.Group(prefix)
	api.Use(middleware.Metrics(deps.MetricsService))
	api.Use(middleware.WithResponseMeta())

	registerAuthRoutes(api, deps)
	registerPublicCatalogRoutes(api, deps)
	registerDownloadRoutes(api, deps)
	registerProtectedRoutes(api, deps)
}

func registerAuthRoutes(api *gin.RouterGroup, deps Deps) {
	auth := api.Group("/auth")
	auth.POST("/signup", deps.Auth.Signup)
	auth.POST("/login", deps.Auth.Login)
	auth.POST("/refresh", deps.Auth.Refresh)
	auth.POST("/forgot-password", deps.Auth.ForgotPassword)
	auth.POST("/reset-password", deps.Auth.ResetPassword)

	session := auth.Group("", middleware.JWT(deps.AuthService))
	session.POST("/logout", deps.Auth.Logout)
	session.POST("/change-password", deps.Auth.ChangePassword)
	session.GET("/me", deps.Auth.Me)
}

// registerPublicCatalogRoutes serves program discovery without a session so
// prospective students can browse before signing up.
func registerPublicCatalogRoutes(api *gin.RouterGroup, deps Deps) {
	public := api.Group("", middleware.OptionalJWT(deps.AuthService))
	public.GET("/programs/search", deps.Catalog.Search)
	public.GET("/programs/:id", deps.Catalog.GetProgram)
	public.GET("/programs/:id/intakes", deps.Catalog.ListIntakes)
	public.GET("/education-levels", deps.Catalog.EducationLevels)
	public.GET("/universities", deps.Universities.List)
	public.GET("/universities/:id", deps.Universities.Get)
}

// registerDownloadRoutes serves the token-guarded file streams. The token is
// the whole authorization; the audit middleware records who pulled what.
func registerDownloadRoutes(api *gin.RouterGroup, deps Deps) {
	downloads := api.Group("", middleware.OptionalJWT(deps.AuthService))
	downloads.GET("/files/:token",
		middleware.Audit(deps.UserRepo, deps.Logger, models.AuditActionDocumentDownload, "documents"),
		deps.Documents.Download)
	downloads.GET("/reports/download/:token",
		middleware.Audit(deps.UserRepo, deps.Logger, models.AuditActionReportDownload, "reports"),
		deps.Reports.Download)
}

func registerProtectedRoutes(api *gin.RouterGroup, deps Deps) {
	protected := api.Group("", middleware.JWT(deps.AuthService))

	admin := middleware.RequireRoles(models.RoleAdmin)
	adminOrAgent := middleware.RequireRoles(models.RoleAdmin, models.RoleAgent)
	adminOrUniversity := middleware.RequireRoles(models.RoleAdmin, models.RoleUniversity)
	student := middleware.RequireRoles(models.RoleStudent)

	users := protected.Group("/users")
	users.GET("", admin, deps.Users.List)
	users.POST("", admin, deps.Users.Create)
	users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.SelfAccess), deps.Users.Get)
	users.PUT("/:id", admin, deps.Users.Update)
	users.DELETE("/:id", admin, deps.Users.Deactivate)

	students := protected.Group("/students")
	students.GET("", adminOrAgent, deps.Students.List)
	students.GET("/me/profile", student, deps.Students.MyProfile)
	students.PUT("/me/profile", student, deps.Students.UpdateMyProfile)
	students.GET("/:id", adminOrAgent, deps.Students.Get)

	agents := protected.Group("/agents")
	agents.GET("", admin, deps.Agents.List)
	agents.GET("/me/profile", middleware.RequireRoles(models.RoleAgent), deps.Agents.MyProfile)
	agents.PUT("/me/profile", middleware.RequireRoles(models.RoleAgent), deps.Agents.UpdateMyProfile)
	agents.GET("/me/referral-link", middleware.RequireRoles(models.RoleAgent), deps.Agents.ReferralLink)
	agents.GET("/:id", admin, deps.Agents.Get)

	universities := protected.Group("/universities")
	universities.GET("/me", middleware.RequireRoles(models.RoleUniversity), deps.Universities.Me)
	universities.POST("", admin, deps.Universities.Create)
	universities.PUT("/:id", admin, deps.Universities.Update)
	universities.DELETE("/:id", admin, deps.Universities.Deactivate)

	catalog := protected.Group("/programs", adminOrUniversity, middleware.RequireUniversity())
	catalog.GET("", deps.Catalog.ListPrograms)
	catalog.POST("", deps.Catalog.CreateProgram)
	catalog.PUT("/:id", deps.Catalog.UpdateProgram)
	catalog.POST("/:id/intakes", deps.Catalog.CreateIntake)

	drafts := protected.Group("/applications/drafts", student)
	drafts.POST("", deps.Wizard.CreateDraft)
	drafts.GET("", deps.Wizard.ListDrafts)
	drafts.GET("/:id", deps.Wizard.GetDraft)
	drafts.PUT("/:id/personal-info", deps.Wizard.UpdatePersonalInfo)
	drafts.POST("/:id/education", deps.Wizard.AddEducationRecord)
	drafts.PUT("/:id/education/:recordId", deps.Wizard.UpdateEducationRecord)
	drafts.DELETE("/:id/education/:recordId", deps.Wizard.DeleteEducationRecord)
	drafts.PUT("/:id/program", deps.Wizard.SetProgram)
	drafts.POST("/:id/advance", deps.Wizard.Advance)
	drafts.POST("/:id/retreat", deps.Wizard.Retreat)
	drafts.GET("/:id/review", deps.Wizard.Review)
	drafts.POST("/:id/submit", deps.Wizard.Submit)
	drafts.POST("/:id/documents", deps.Documents.Upload)
	drafts.GET("/:id/documents", deps.Documents.ListForDraft)

	applications := protected.Group("/applications")
	applications.GET("", deps.Applications.List)
	applications.GET("/:id", deps.Applications.Get)
	applications.GET("/:id/history", deps.Applications.History)
	applications.GET("/:id/documents", deps.Documents.ListForApplication)
	applications.PUT("/:id/status", adminOrUniversity, middleware.RequireUniversity(), deps.Applications.UpdateStatus)
	applications.POST("/:id/withdraw", student, deps.Applications.Withdraw)
	applications.POST("/:id/accept-offer", student, deps.Applications.AcceptOffer)

	documents := protected.Group("/documents")
	documents.GET("/types", deps.Documents.Types)
	documents.GET("/:id/download-url", deps.Documents.DownloadURL)
	documents.DELETE("/:id", deps.Documents.Delete)

	messages := protected.Group("")
	messages.POST("/conversations", deps.Messages.StartConversation)
	messages.GET("/conversations", deps.Messages.ListConversations)
	messages.GET("/conversations/:id/messages", deps.Messages.GetMessages)
	messages.POST("/conversations/:id/messages", deps.Messages.SendMessage)
	messages.GET("/messages/unread-count", deps.Messages.UnreadCount)

	commissions := protected.Group("/commissions")
	commissions.GET("", adminOrAgent, deps.Commissions.List)
	commissions.GET("/totals", adminOrAgent, deps.Commissions.Totals)
	commissions.GET("/:id", adminOrAgent, deps.Commissions.Get)
	commissions.POST("/:id/approve", admin, deps.Commissions.Approve)
	commissions.POST("/:id/mark-paid", admin, deps.Commissions.MarkPaid)

	payments := protected.Group("/payments")
	payments.POST("", adminOrUniversity, middleware.RequireUniversity(), deps.Payments.Record)
	payments.GET("", deps.Payments.List)
	payments.GET("/:id", deps.Payments.Get)
	payments.PUT("/:id/status", adminOrUniversity, middleware.RequireUniversity(), deps.Payments.UpdateStatus)

	protected.GET("/dashboard", deps.Dashboard.Summary)

	reports := protected.Group("/reports")
	reports.POST("/jobs", deps.Reports.CreateJob)
	reports.GET("/jobs/:id", deps.Reports.JobStatus)
	reports.GET("/export", deps.Reports.Export)
}

// Package router assembles the gin engine: global middleware, public
// endpoints and the capability-guarded API groups.
package router

import (
	"context"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/formacademy/formacademy-api/internal/handler"
	"github.com/formacademy/formacademy-api/internal/middleware"
	"github.com/formacademy/formacademy-api/internal/models"
	"github.com/formacademy/formacademy-api/internal/policy"
	"github.com/formacademy/formacademy-api/internal/service"
	"github.com/formacademy/formacademy-api/pkg/config"
	"github.com/formacademy/formacademy-api/pkg/logger"
	corsmiddleware "github.com/formacademy/formacademy-api/pkg/middleware/cors"
	reqidmiddleware "github.com/formacademy/formacademy-api/pkg/middleware/requestid"
)

// AuditRecorder persists audit rows emitted by the audit middleware.
type AuditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Dependencies carries everything the router needs to wire routes.
type Dependencies struct {
	Config  *config.Config
	Logger  *zap.Logger
	Policy  *policy.Table
	Auth    *service.AuthService
	Metrics *service.MetricsService
	Audit   AuditRecorder

	AuthHandler        *handler.AuthHandler
	UserHandler        *handler.UserHandler
	DomainHandler      *handler.DomainHandler
	CourseHandler      *handler.CourseHandler
	ModuleHandler      *handler.ModuleHandler
	ChapterHandler     *handler.ChapterHandler
	EnrollmentHandler  *handler.EnrollmentHandler
	ProgressHandler    *handler.ProgressHandler
	QuizHandler        *handler.QuizHandler
	CertificateHandler *handler.CertificateHandler
	DashboardHandler   *handler.DashboardHandler
	MetricsHandler     *handler.MetricsHandler
}

// New builds the engine. Routes are grouped by capability so the policy
// table stays the single source of truth for role access.
func New(deps Dependencies) *gin.Engine {
	if deps.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(deps.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", deps.MetricsHandler.Health)
	r.GET("/ready", deps.MetricsHandler.Health)
	r.GET("/metrics", deps.MetricsHandler.Prometheus)

	if deps.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(deps.Config.APIPrefix)

	// Session-less endpoints. The certificate download authenticates with
	// a signed token carried in the query string.
	api.POST("/auth/login", deps.AuthHandler.Login)
	api.POST("/auth/refresh", deps.AuthHandler.Refresh)
	api.GET("/certificates/download", deps.CertificateHandler.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(deps.Auth))

	authed.POST("/auth/logout", deps.AuthHandler.Logout)
	authed.PUT("/auth/password", deps.AuthHandler.ChangePassword)
	authed.GET("/auth/me", deps.AuthHandler.Me)

	users := authed.Group("/users")
	users.Use(middleware.RequireCapability(deps.Policy, policy.CapManageUsers))
	{
		users.GET("", deps.UserHandler.List)
		users.POST("", deps.UserHandler.Create)
		users.GET("/:id", deps.UserHandler.Get)
		users.PUT("/:id", deps.UserHandler.Update)
		users.DELETE("/:id", deps.UserHandler.Deactivate)
	}

	viewContent := middleware.RequireCapability(deps.Policy, policy.CapViewContent)
	manageContent := middleware.RequireCapability(deps.Policy, policy.CapManageContent)

	domains := authed.Group("/domains")
	{
		domains.GET("", viewContent, deps.DomainHandler.List)
		domains.GET("/:id", viewContent, deps.DomainHandler.Get)

		manageDomains := middleware.RequireCapability(deps.Policy, policy.CapManageDomains)
		domains.POST("", manageDomains, middleware.Audit(deps.Audit, "DOMAIN_CREATE", "domains"), deps.DomainHandler.Create)
		domains.PUT("/:id", manageDomains, middleware.Audit(deps.Audit, "DOMAIN_UPDATE", "domains"), deps.DomainHandler.Update)
		domains.DELETE("/:id", manageDomains, middleware.Audit(deps.Audit, "DOMAIN_DELETE", "domains"), deps.DomainHandler.Delete)
	}

	courses := authed.Group("/courses")
	{
		courses.GET("", viewContent, deps.CourseHandler.List)
		courses.GET("/slug/:slug", viewContent, deps.CourseHandler.GetBySlug)
		courses.GET("/:id", viewContent, deps.CourseHandler.Get)
		courses.GET("/:id/outline", viewContent, deps.ModuleHandler.Outline)
		courses.GET("/:id/modules", viewContent, deps.ModuleHandler.ListByCourse)
		courses.GET("/:id/progress", viewContent, deps.ProgressHandler.CourseProgress)

		manageCourses := middleware.RequireCapability(deps.Policy, policy.CapManageCourses)
		courses.POST("", manageCourses, deps.CourseHandler.Create)
		courses.PUT("/:id", manageCourses, deps.CourseHandler.Update)
		courses.DELETE("/:id", manageCourses, deps.CourseHandler.Delete)

		courses.POST("/:id/modules", manageContent, deps.ModuleHandler.Create)
		courses.PUT("/:id/modules/reorder", manageContent, deps.ModuleHandler.Reorder)

		exportData := middleware.RequireCapability(deps.Policy, policy.CapExportData)
		courses.GET("/:id/roster.csv", exportData, deps.DashboardHandler.ExportRoster)
	}

	modules := authed.Group("/modules")
	{
		modules.GET("/:id", viewContent, deps.ModuleHandler.Get)
		modules.GET("/:id/chapters", viewContent, deps.ChapterHandler.ListByModule)

		modules.PUT("/:id", manageContent, deps.ModuleHandler.Update)
		modules.DELETE("/:id", manageContent, deps.ModuleHandler.Delete)
		modules.POST("/:id/chapters", manageContent, deps.ChapterHandler.Create)
		modules.PUT("/:id/chapters/reorder", manageContent, deps.ChapterHandler.Reorder)
	}

	trackProgress := middleware.RequireCapability(deps.Policy, policy.CapTrackProgress)

	chapters := authed.Group("/chapters")
	{
		chapters.GET("/:id", viewContent, deps.ChapterHandler.Get)
		chapters.GET("/:id/questions", viewContent, deps.QuizHandler.ListQuestions)

		chapters.PUT("/:id", manageContent, deps.ChapterHandler.Update)
		chapters.DELETE("/:id", manageContent, deps.ChapterHandler.Delete)
		chapters.POST("/:id/questions", manageContent, middleware.Audit(deps.Audit, "QUIZ_CREATE", "questions"), deps.QuizHandler.CreateQuestion)

		chapters.POST("/:id/complete", trackProgress, deps.ProgressHandler.CompleteChapter)
		chapters.POST("/:id/attempts", trackProgress, deps.QuizHandler.SubmitAttempt)
		chapters.GET("/:id/attempts", viewContent, deps.QuizHandler.ListAttempts)
	}

	questions := authed.Group("/questions")
	{
		questions.PUT("/:id", manageContent, middleware.Audit(deps.Audit, "QUIZ_UPDATE", "questions"), deps.QuizHandler.UpdateQuestion)
		questions.DELETE("/:id", manageContent, middleware.Audit(deps.Audit, "QUIZ_DELETE", "questions"), deps.QuizHandler.DeleteQuestion)
	}

	enrollments := authed.Group("/enrollments")
	{
		enrollments.GET("", viewContent, deps.EnrollmentHandler.List)

		enroll := middleware.RequireCapability(deps.Policy, policy.CapEnroll, policy.CapManageEnroll)
		enrollments.POST("", enroll, deps.EnrollmentHandler.Enroll)
		enrollments.DELETE("/:id", enroll, deps.EnrollmentHandler.Unenroll)
	}

	certificates := authed.Group("/certificates")
	{
		certificates.GET("", viewContent, deps.CertificateHandler.ListMine)
		certificates.GET("/:id", viewContent, deps.CertificateHandler.Get)
		certificates.GET("/:id/download-url", viewContent, deps.CertificateHandler.DownloadURL)
	}

	dashboards := authed.Group("/dashboards")
	dashboards.Use(middleware.RequireCapability(deps.Policy, policy.CapViewDashboards))
	{
		dashboards.GET("/admin", deps.DashboardHandler.Admin)
		dashboards.GET("/trainer", deps.DashboardHandler.Trainer)
		dashboards.GET("/student", deps.DashboardHandler.Student)
	}

	return r
}

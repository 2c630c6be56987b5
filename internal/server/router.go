package server

import (
	"net/http"

	"obra-manager/internal/access"
	"obra-manager/internal/config"
	"obra-manager/internal/handlers"
	"obra-manager/internal/logger"
	"obra-manager/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const sessionName = "obra_session"

func NewRouter(cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(logger.GinMiddleware(logger.L))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   12 * 60 * 60,
		HttpOnly: true,
		Secure:   cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	r.Use(middleware.InjectUser())

	r.GET("/", handlers.Index)
	r.GET("/health", handlers.Health)
	r.GET("/public/reports/:token", handlers.PublicReport)

	api := r.Group("/api")

	// AUTH
	api.POST("/auth/login", handlers.Login)
	api.POST("/auth/logout", handlers.Logout)

	authed := api.Group("")
	authed.Use(middleware.RequireAuth())

	authed.GET("/auth/me", handlers.Me)
	authed.GET("/dashboard", handlers.Dashboard)

	// USERS
	authed.GET("/users", middleware.RequirePermission(access.UsersManage), handlers.ListUsers)
	authed.POST("/users", middleware.RequirePermission(access.UsersManage), handlers.CreateUser)
	authed.PUT("/users/:id/permisos", middleware.RequirePermission(access.UsersManage), handlers.UpdateUserPermissions)
	authed.GET("/permisos", middleware.RequirePermission(access.UsersManage), handlers.ListPermissions)

	// PROJECTS
	viewProjects := middleware.RequirePermission(access.ProjectsView, access.ProjectsViewAll)
	editProjects := middleware.RequirePermission(access.ProjectsEdit)
	authed.GET("/projects", viewProjects, handlers.ListProjects)
	authed.POST("/projects", middleware.RequirePermission(access.ProjectsCreate), handlers.CreateProject)
	authed.GET("/projects/:id", viewProjects, handlers.GetProject)
	authed.PUT("/projects/:id", editProjects, handlers.UpdateProject)
	authed.DELETE("/projects/:id", middleware.RequirePermission(access.ProjectsDelete), handlers.DeleteProject)
	authed.PUT("/projects/:id/status", editProjects, handlers.ChangeProjectStatus)
	authed.GET("/projects/:id/history", viewProjects, handlers.ProjectHistory)
	authed.POST("/projects/:id/partidas", editProjects, handlers.CreatePartida)
	authed.PUT("/projects/:id/partidas/:partida_id", editProjects, handlers.UpdatePartida)

	// TASKS
	viewTasks := middleware.RequirePermission(access.TasksView, access.TasksViewAll)
	authed.GET("/tasks", viewTasks, handlers.ListTasks)
	authed.POST("/tasks", middleware.RequirePermission(access.TasksCreate), handlers.CreateTask)
	authed.GET("/tasks/:id", viewTasks, handlers.GetTask)
	authed.PUT("/tasks/:id", middleware.RequirePermission(access.TasksEdit), handlers.UpdateTask)
	authed.DELETE("/tasks/:id", middleware.RequirePermission(access.TasksDelete), handlers.DeleteTask)

	// MATERIALS / INVENTORY
	viewMaterials := middleware.RequirePermission(access.MaterialsView, access.MaterialsViewAll)
	moveMaterials := middleware.RequirePermission(access.MaterialsMove)
	authed.GET("/materials", viewMaterials, handlers.ListMaterials)
	authed.POST("/materials", middleware.RequirePermission(access.MaterialsEdit), handlers.CreateMaterial)
	authed.GET("/inventory", viewMaterials, handlers.ListInventory)
	authed.POST("/inventory", middleware.RequirePermission(access.MaterialsEdit), handlers.CreateInventory)
	authed.GET("/inventory/:id", viewMaterials, handlers.GetInventory)
	authed.POST("/inventory/:id/movements", moveMaterials, handlers.RegisterMovement)
	authed.GET("/inventory/:id/reconcile", moveMaterials, handlers.ReconcileInventory)
	authed.GET("/alerts", viewMaterials, handlers.ListAlerts)
	authed.PUT("/alerts/:id/resolve", moveMaterials, handlers.ResolveAlert)

	// TEAM
	viewTeam := middleware.RequirePermission(access.TeamView, access.TeamViewAll)
	manageTeam := middleware.RequirePermission(access.TeamManage)
	assignTeam := middleware.RequirePermission(access.TeamAssign)
	authed.GET("/team", viewTeam, handlers.ListTeam)
	authed.POST("/team", manageTeam, handlers.CreateTeamMember)
	authed.GET("/team/:id/workload", viewTeam, handlers.MemberWorkload)
	authed.GET("/subcontractors", viewTeam, handlers.ListSubcontractors)
	authed.POST("/subcontractors", manageTeam, handlers.CreateSubcontractor)
	authed.POST("/assignments", assignTeam, handlers.CreateAssignment)
	authed.DELETE("/assignments/:id", assignTeam, handlers.DeleteAssignment)

	// QUALITY
	viewQuality := middleware.RequirePermission(access.QualityView, access.QualityViewAll)
	inspect := middleware.RequirePermission(access.QualityInspect)
	authed.GET("/inspections", viewQuality, handlers.ListInspections)
	authed.POST("/inspections", inspect, handlers.CreateInspection)
	authed.GET("/inspections/:id", viewQuality, handlers.GetInspection)
	authed.PUT("/inspections/:id/items/:item_id", inspect, handlers.UpdateChecklistItem)
	authed.POST("/inspections/:id/close", middleware.RequirePermission(access.QualityClose), handlers.CloseInspection)
	authed.GET("/checklist-templates", viewQuality, handlers.ListChecklistTemplates)
	authed.POST("/checklist-templates", middleware.RequirePermission(access.QualityClose), handlers.CreateChecklistTemplate)

	// PHOTOS
	viewPhotos := middleware.RequirePermission(access.PhotosView, access.PhotosViewAll)
	authed.GET("/photos", viewPhotos, handlers.ListPhotos)
	authed.POST("/photos", middleware.RequirePermission(access.PhotosUpload), handlers.UploadPhoto)
	authed.GET("/photos/:id/file", viewPhotos, handlers.PhotoFile)
	authed.DELETE("/photos/:id", middleware.RequirePermission(access.PhotosDelete), handlers.DeletePhoto)

	// REPORTS
	viewReports := middleware.RequirePermission(access.ReportsView, access.ReportsViewAll)
	authed.GET("/reports", viewReports, handlers.ListReports)
	authed.POST("/reports", middleware.RequirePermission(access.ReportsGenerate), handlers.GenerateReport)
	authed.GET("/reports/:id", viewReports, handlers.GetReport)
	authed.POST("/reports/:id/share", middleware.RequirePermission(access.ReportsShare), handlers.ShareReport)

	// AUDIT
	authed.GET("/audit", middleware.RequirePermission(access.AuditView), handlers.ListAuditLogs)

	return r
}

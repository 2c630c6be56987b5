package handlers

import (
	"net/http"

	"obra-manager/internal/access"
	"obra-manager/internal/database"
	"obra-manager/internal/filter"
	"obra-manager/internal/middleware"
	"obra-manager/internal/models"
	"obra-manager/internal/stats"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// Dashboard loads the caller's projects, tasks, inspections and open
// inventory alerts concurrently and summarises each.
func Dashboard(c *gin.Context) {
	p := middleware.Principal(c)
	g, ctx := errgroup.WithContext(c.Request.Context())
	db := database.DB.WithContext(ctx)

	var (
		projects    []models.Project
		tasks       []models.Task
		inspections []models.InspeccionCalidad
		inventory   []models.MaterialInventory
		alerts      []models.InventoryAlert
	)

	g.Go(func() error {
		return db.Find(&projects).Error
	})
	g.Go(func() error {
		return db.Find(&tasks).Error
	})
	g.Go(func() error {
		return db.Preload("Items").Find(&inspections).Error
	})
	g.Go(func() error {
		if err := db.Preload("Material").Find(&inventory).Error; err != nil {
			return err
		}
		return db.Where("resolved = ?", false).Find(&alerts).Error
	})

	if err := g.Wait(); err != nil {
		internalError(c, "dashboard", err)
		return
	}

	projects = filter.Resolve(projects, filter.Criteria{}, filter.ScopeFor(p, access.ProjectsViewAll))
	tasks = filter.Resolve(tasks, filter.Criteria{}, filter.ScopeFor(p, access.TasksViewAll))
	inspections = filter.Resolve(inspections, filter.Criteria{}, filter.ScopeFor(p, access.QualityViewAll))
	inventory = filter.Resolve(inventory, filter.Criteria{}, filter.ScopeFor(p, access.MaterialsViewAll))

	visibleInv := make(map[uint]bool, len(inventory))
	for _, inv := range inventory {
		visibleInv[inv.ID] = true
	}
	openAlerts := 0
	for _, a := range alerts {
		if visibleInv[a.InventoryID] {
			openAlerts++
		}
	}

	now := Now()
	overdue, mine := 0, 0
	for _, t := range tasks {
		if t.Overdue(now) {
			overdue++
		}
		open := t.Status != models.TaskCompleted && t.Status != models.TaskCancelled
		if open && p != nil && t.AssigneeID != nil && *t.AssigneeID == p.UserID {
			mine++
		}
	}

	projectSummary := stats.Aggregate(projects, models.ProjectTerminalStatuses, "presupuesto", "gastado")

	c.JSON(http.StatusOK, gin.H{
		"proyectos":       projectSummary,
		"presupuesto":     stats.BudgetExecution(projectSummary.Sums["presupuesto"], projectSummary.Sums["gastado"]),
		"tareas":          stats.Aggregate(tasks, models.TaskTerminalStatuses, "horasEstimadas", "horasReales"),
		"tareasVencidas":  overdue,
		"misTareas":       mine,
		"inspecciones":    stats.Aggregate(inspections, models.InspectionTerminalStatuses, "noConformidades"),
		"inventario":      stats.Aggregate(inventory, nil, "valor"),
		"alertasAbiertas": openAlerts,
	})
}

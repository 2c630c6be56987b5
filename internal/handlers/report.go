package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"obra-manager/internal/access"
	"obra-manager/internal/database"
	"obra-manager/internal/filter"
	"obra-manager/internal/middleware"
	"obra-manager/internal/models"
	"obra-manager/internal/share"
	"obra-manager/internal/stats"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const msgReportNotFound = "Reporte no encontrado"

var reportQuery = filter.QuerySpec{
	Fields:    []string{"tipo", "proyecto", "autor"},
	DateField: "creado",
}

func ListReports(c *gin.Context) {
	var reports []models.Report
	if err := database.DB.WithContext(c.Request.Context()).Omit("Data").Order("created_at desc").Find(&reports).Error; err != nil {
		internalError(c, "list reports", err)
		return
	}

	crit := filter.ParseQuery(c.Request.URL.Query(), reportQuery)
	visible := filter.Resolve(reports, crit, filter.ScopeFor(middleware.Principal(c), access.ReportsViewAll))
	c.JSON(http.StatusOK, gin.H{"items": visible, "total": len(visible)})
}

type reportRequest struct {
	ProjectID uint   `json:"proyectoId" binding:"required"`
	Kind      string `json:"tipo" binding:"required,oneof=avance costos calidad inventario"`
	Title     string `json:"titulo" binding:"max=255"`
	From      string `json:"desde" binding:"omitempty,datetime=2006-01-02"`
	To        string `json:"hasta" binding:"omitempty,datetime=2006-01-02"`
}

// GenerateReport stores a snapshot of the project's statistics. Later changes
// to the project do not alter a generated report.
func GenerateReport(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	if !canSee(c, access.ReportsViewAll, req.ProjectID) {
		return
	}

	from, to := parseDate(req.From), parseDate(req.To)
	if from != nil && to != nil && to.Before(*from) {
		fieldError(c, "hasta", "gtefield", "debe ser posterior a desde")
		return
	}
	if to != nil {
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}

	var project models.Project
	db := database.DB.WithContext(c.Request.Context())
	if err := db.Preload("Partidas").First(&project, req.ProjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fieldError(c, "proyectoId", "exists", "el proyecto no existe")
			return
		}
		internalError(c, "load report project", err)
		return
	}

	kind := models.ReportKind(req.Kind)
	snapshot, err := buildSnapshot(db, project, kind, from, to)
	if err != nil {
		internalError(c, "build report", err)
		return
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		internalError(c, "encode report", err)
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Reporte de " + string(kind) + " - " + project.Name
	}

	report := models.Report{
		ProjectID: project.ID,
		Kind:      kind,
		Title:     title,
		From:      from,
		To:        to,
		Data:      datatypes.JSON(raw),
		AuthorID:  userID(c),
	}
	if err := database.DB.Create(&report).Error; err != nil {
		internalError(c, "create report", err)
		return
	}

	audit(c, "report", report.ID, "create", report.Title)
	c.JSON(http.StatusCreated, report)
}

func periodCriteria(field string, from, to *time.Time) filter.Criteria {
	if from == nil && to == nil {
		return filter.Criteria{}
	}
	return filter.Criteria{Date: &filter.DateRange{Field: field, From: from, To: to}}
}

var allProjects = filter.Scope{ViewAll: true}

func buildSnapshot(db *gorm.DB, project models.Project, kind models.ReportKind, from, to *time.Time) (any, error) {
	switch kind {
	case models.ReportProgress:
		var tasks []models.Task
		if err := db.Where("project_id = ?", project.ID).Find(&tasks).Error; err != nil {
			return nil, err
		}
		tasks = filter.Resolve(tasks, periodCriteria("fechaLimite", from, to), allProjects)

		overdue := 0
		now := Now()
		for _, t := range tasks {
			if t.Overdue(now) {
				overdue++
			}
		}
		partidas := make([]gin.H, 0, len(project.Partidas))
		for _, p := range project.Partidas {
			partidas = append(partidas, gin.H{"codigo": p.Code, "nombre": p.Name, "avanceFisico": p.AvanceFisico})
		}
		return gin.H{
			"avanceFisico":     project.AvanceFisico,
			"avanceFinanciero": project.AvanceFinanciero,
			"tareas":           stats.Aggregate(tasks, models.TaskTerminalStatuses, "horasEstimadas", "horasReales"),
			"tareasVencidas":   overdue,
			"partidas":         partidas,
		}, nil

	case models.ReportCosts:
		var inventory []models.MaterialInventory
		if err := db.Preload("Material").Where("project_id = ?", project.ID).Find(&inventory).Error; err != nil {
			return nil, err
		}
		partidas := make([]gin.H, 0, len(project.Partidas))
		total := decimal.Zero
		for _, p := range project.Partidas {
			importe := p.UnitPrice.Mul(decimal.NewFromFloat(p.Quantity))
			total = total.Add(importe)
			partidas = append(partidas, gin.H{"codigo": p.Code, "nombre": p.Name, "importe": importe, "avanceFisico": p.AvanceFisico})
		}
		return gin.H{
			"presupuesto":      stats.BudgetExecution(project.Presupuesto, project.Gastado),
			"importePartidas":  total,
			"partidas":         partidas,
			"valorInventario":  stats.Aggregate(inventory, nil, "valor").Sums["valor"],
			"avanceFinanciero": project.AvanceFinanciero,
		}, nil

	case models.ReportQuality:
		var inspections []models.InspeccionCalidad
		if err := db.Preload("Items").Where("project_id = ?", project.ID).Find(&inspections).Error; err != nil {
			return nil, err
		}
		inspections = filter.Resolve(inspections, periodCriteria("fechaProgramada", from, to), allProjects)

		approved, rejected := 0, 0
		var ncs []gin.H
		for _, i := range inspections {
			switch i.Status {
			case models.InspectionApproved:
				approved++
			case models.InspectionRejected:
				rejected++
			}
			for _, nc := range i.NoConformidades() {
				ncs = append(ncs, gin.H{"inspeccion": i.Title, "descripcion": nc.Descripcion, "critica": nc.Critica})
			}
		}
		return gin.H{
			"resumen":         stats.Aggregate(inspections, models.InspectionTerminalStatuses, "noConformidades"),
			"calidad":         stats.QualityRate(len(inspections), approved, rejected, len(ncs)),
			"noConformidades": ncs,
		}, nil

	case models.ReportInventory:
		var inventory []models.MaterialInventory
		if err := db.Preload("Material").Where("project_id = ?", project.ID).Find(&inventory).Error; err != nil {
			return nil, err
		}
		var openAlerts int64
		ids := db.Model(&models.MaterialInventory{}).Select("id").Where("project_id = ?", project.ID)
		if err := db.Model(&models.InventoryAlert{}).
			Where("resolved = ? AND inventory_id IN (?)", false, ids).
			Count(&openAlerts).Error; err != nil {
			return nil, err
		}
		lines := make([]gin.H, 0, len(inventory))
		for _, inv := range inventory {
			lines = append(lines, gin.H{
				"material":   inv.Material.Code,
				"ubicacion":  inv.Location,
				"fisica":     inv.Fisica,
				"disponible": inv.Disponible,
				"estado":     inv.StockStatus(),
				"valor":      inv.Value(),
			})
		}
		return gin.H{
			"resumen":         stats.Aggregate(inventory, nil, "valor"),
			"alertasAbiertas": openAlerts,
			"lineas":          lines,
		}, nil
	}
	return nil, errors.New("unknown report kind " + string(kind))
}

func GetReport(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var report models.Report
	if !load(c, &report, id, msgReportNotFound) {
		return
	}
	if !canSee(c, access.ReportsViewAll, report.ProjectID) {
		return
	}
	c.JSON(http.StatusOK, report)
}

func ShareReport(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var report models.Report
	if !load(c, &report, id, msgReportNotFound) {
		return
	}
	if !canSee(c, access.ReportsViewAll, report.ProjectID) {
		return
	}

	token, exp, err := Sharer.Sign(report.ID, userID(c))
	if err != nil {
		internalError(c, "sign report link", err)
		return
	}

	audit(c, "report", report.ID, "share", "Enlace válido hasta "+exp.Format(time.RFC3339))
	c.JSON(http.StatusOK, gin.H{
		"token":  token,
		"url":    "/public/reports/" + token,
		"expira": exp,
	})
}

// PublicReport serves a shared report without a session.
func PublicReport(c *gin.Context) {
	rid, err := Sharer.Verify(c.Param("token"))
	if err != nil {
		if errors.Is(err, share.ErrInvalidToken) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		internalError(c, "verify report link", err)
		return
	}

	var report models.Report
	if !load(c, &report, rid, msgReportNotFound) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"titulo": report.Title,
		"tipo":   report.Kind,
		"desde":  report.From,
		"hasta":  report.To,
		"creado": report.CreatedAt,
		"datos":  report.Data,
	})
}

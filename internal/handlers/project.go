package handlers

import (
	"errors"
	"net/http"
	"strings"

	"obra-manager/internal/access"
	"obra-manager/internal/database"
	"obra-manager/internal/filter"
	"obra-manager/internal/middleware"
	"obra-manager/internal/models"
	"obra-manager/internal/stats"
	"obra-manager/internal/view"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const msgProjectNotFound = "Proyecto no encontrado"

var projectList = listSpec{
	Query: filter.QuerySpec{
		Fields:      []string{"estado", "prioridad", "ubicacion", "cliente", "codigo", "gerente"},
		DateField:   "fechaInicio",
		NumberField: "avanceFisico",
	},
	ViewAll:  access.ProjectsViewAll,
	Terminal: models.ProjectTerminalStatuses,
	Sums:     []string{"presupuesto", "gastado"},
	View: view.Spec{
		BasePath: "/api/projects",
		Fields: map[view.Layout][]string{
			view.LayoutCards:  {"codigo", "ubicacion", "presupuesto", "fechaFin"},
			view.LayoutTable:  {"codigo", "ubicacion", "cliente", "presupuesto", "gastado", "avanceFinanciero", "fechaInicio", "fechaFin", "noConformidades"},
			view.LayoutKanban: {"codigo"},
		},
		Actions: []view.ActionRule{
			{Name: "ver", Label: "Ver", Method: http.MethodGet, Permission: access.ProjectsView},
			{Name: "editar", Label: "Editar", Method: http.MethodPut, Permission: access.ProjectsEdit},
			{Name: "estado", Label: "Cambiar estado", Method: http.MethodPut, Suffix: "/status", Permission: access.ProjectsEdit},
			{Name: "eliminar", Label: "Eliminar", Method: http.MethodDelete, Permission: access.ProjectsDelete},
		},
	},
	Columns: []string{
		string(models.ProjectPlanning), string(models.ProjectInProgress), string(models.ProjectPaused),
		string(models.ProjectCompleted), string(models.ProjectCancelled),
	},
}

func ListProjects(c *gin.Context) {
	var projects []models.Project
	if err := database.DB.WithContext(c.Request.Context()).Order("created_at desc").Find(&projects).Error; err != nil {
		internalError(c, "list projects", err)
		return
	}
	respondList(c, projects, projectList)
}

type projectRequest struct {
	Name        string          `json:"nombre" binding:"required,min=3,max=255"`
	Code        string          `json:"codigo" binding:"required,max=32"`
	Status      string          `json:"estado" binding:"omitempty,oneof=planificacion en_progreso pausado completado cancelado"`
	Priority    string          `json:"prioridad" binding:"omitempty,oneof=baja media alta critica"`
	Location    string          `json:"ubicacion" binding:"max=255"`
	Client      string          `json:"cliente" binding:"max=255"`
	Description string          `json:"descripcion"`
	Presupuesto decimal.Decimal `json:"presupuesto"`
	FechaInicio string          `json:"fechaInicio" binding:"omitempty,datetime=2006-01-02"`
	FechaFin    string          `json:"fechaFin" binding:"omitempty,datetime=2006-01-02"`
	ManagerID   uint            `json:"gerenteId"`
}

func CreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	if req.Presupuesto.IsNegative() {
		fieldError(c, "presupuesto", "gte", "debe ser al menos 0")
		return
	}

	project := models.Project{
		Name:        strings.TrimSpace(req.Name),
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Status:      models.ProjectPlanning,
		Priority:    models.PriorityMedium,
		Location:    strings.TrimSpace(req.Location),
		Client:      strings.TrimSpace(req.Client),
		Description: strings.TrimSpace(req.Description),
		Presupuesto: req.Presupuesto,
		FechaInicio: parseDate(req.FechaInicio),
		FechaFin:    parseDate(req.FechaFin),
		ManagerID:   req.ManagerID,
	}
	if req.Status != "" {
		project.Status = models.ProjectStatus(req.Status)
	}
	if req.Priority != "" {
		project.Priority = models.Priority(req.Priority)
	}
	if project.FechaInicio != nil && project.FechaFin != nil && project.FechaFin.Before(*project.FechaInicio) {
		fieldError(c, "fechaFin", "gtefield", "debe ser posterior a fechaInicio")
		return
	}

	var count int64
	if err := database.DB.Unscoped().Model(&models.Project{}).Where("code = ?", project.Code).Count(&count).Error; err != nil {
		internalError(c, "check project code", err)
		return
	}
	if count > 0 {
		badRequest(c, "Ya existe un proyecto con ese código")
		return
	}

	if err := database.DB.Create(&project).Error; err != nil {
		internalError(c, "create project", err)
		return
	}

	audit(c, "project", project.ID, "create", "Proyecto creado: "+project.Name)
	c.JSON(http.StatusCreated, project)
}

func GetProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok || !canSee(c, access.ProjectsViewAll, id) {
		return
	}

	var project models.Project
	if !load(c, &project, id, msgProjectNotFound, "Partidas") {
		return
	}

	var tasks []models.Task
	if err := database.DB.Where("project_id = ?", id).Find(&tasks).Error; err != nil {
		internalError(c, "project tasks", err)
		return
	}

	var rejected int64
	if err := database.DB.Model(&models.InspeccionCalidad{}).
		Where("project_id = ? AND status = ?", id, models.InspectionRejected).
		Count(&rejected).Error; err != nil {
		internalError(c, "project inspections", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"proyecto":    project,
		"presupuesto": stats.BudgetExecution(project.Presupuesto, project.Gastado),
		"calidad": stats.QualityRate(project.InspeccionesTotales, project.InspeccionesAprobadas,
			int(rejected), project.NoConformidadesAbiertas),
		"tareas": stats.Aggregate(tasks, models.TaskTerminalStatuses, "horasEstimadas", "horasReales"),
	})
}

type projectUpdateRequest struct {
	Name        *string          `json:"nombre" binding:"omitempty,min=3,max=255"`
	Priority    *string          `json:"prioridad" binding:"omitempty,oneof=baja media alta critica"`
	Location    *string          `json:"ubicacion" binding:"omitempty,max=255"`
	Client      *string          `json:"cliente" binding:"omitempty,max=255"`
	Description *string          `json:"descripcion"`
	Presupuesto *decimal.Decimal `json:"presupuesto"`
	Gastado     *decimal.Decimal `json:"gastado"`
	FechaInicio *string          `json:"fechaInicio" binding:"omitempty,datetime=2006-01-02"`
	FechaFin    *string          `json:"fechaFin" binding:"omitempty,datetime=2006-01-02"`
	ManagerID   *uint            `json:"gerenteId"`
}

// UpdateProject patches the supplied fields. Status moves go through
// ChangeProjectStatus.
func UpdateProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok || !canSee(c, access.ProjectsViewAll, id) {
		return
	}

	var req projectUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}

	var project models.Project
	if !load(c, &project, id, msgProjectNotFound) {
		return
	}

	if req.Name != nil {
		project.Name = strings.TrimSpace(*req.Name)
	}
	if req.Priority != nil {
		project.Priority = models.Priority(*req.Priority)
	}
	if req.Location != nil {
		project.Location = strings.TrimSpace(*req.Location)
	}
	if req.Client != nil {
		project.Client = strings.TrimSpace(*req.Client)
	}
	if req.Description != nil {
		project.Description = strings.TrimSpace(*req.Description)
	}
	if req.Presupuesto != nil {
		if req.Presupuesto.IsNegative() {
			fieldError(c, "presupuesto", "gte", "debe ser al menos 0")
			return
		}
		project.Presupuesto = *req.Presupuesto
	}
	if req.Gastado != nil {
		if req.Gastado.IsNegative() {
			fieldError(c, "gastado", "gte", "debe ser al menos 0")
			return
		}
		project.Gastado = *req.Gastado
	}
	if req.FechaInicio != nil {
		project.FechaInicio = parseDate(*req.FechaInicio)
	}
	if req.FechaFin != nil {
		project.FechaFin = parseDate(*req.FechaFin)
	}
	if req.ManagerID != nil {
		project.ManagerID = *req.ManagerID
	}
	if project.FechaInicio != nil && project.FechaFin != nil && project.FechaFin.Before(*project.FechaInicio) {
		fieldError(c, "fechaFin", "gtefield", "debe ser posterior a fechaInicio")
		return
	}

	project.AvanceFinanciero = stats.PercentDecimal(project.Gastado, project.Presupuesto)

	if err := database.DB.Save(&project).Error; err != nil {
		internalError(c, "update project", err)
		return
	}

	audit(c, "project", project.ID, "update", "Proyecto actualizado: "+project.Name)
	c.JSON(http.StatusOK, project)
}

// DeleteProject soft-deletes the project row only; tasks and inventory keep
// their project reference.
func DeleteProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok || !canSee(c, access.ProjectsViewAll, id) {
		return
	}

	var project models.Project
	if !load(c, &project, id, msgProjectNotFound) {
		return
	}

	if err := database.DB.Delete(&project).Error; err != nil {
		internalError(c, "delete project", err)
		return
	}

	audit(c, "project", project.ID, "delete", "Proyecto eliminado: "+project.Name)
	c.JSON(http.StatusOK, gin.H{"message": "Proyecto eliminado"})
}

type projectStatusRequest struct {
	Status string `json:"estado" binding:"required,oneof=planificacion en_progreso pausado completado cancelado"`
}

func ChangeProjectStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok || !canSee(c, access.ProjectsViewAll, id) {
		return
	}

	var req projectStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}

	var project models.Project
	if !load(c, &project, id, msgProjectNotFound) {
		return
	}

	next := models.ProjectStatus(req.Status)
	p := middleware.Principal(c)
	if !canChangeProjectStatus(p.Role, project.Status, next) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Transición de estado no permitida: " + string(project.Status) + " → " + string(next),
		})
		return
	}

	if next == models.ProjectCompleted {
		now := Now()
		project.FechaReal = &now
	} else {
		project.FechaReal = nil
	}
	prev := project.Status
	project.Status = next

	if err := database.DB.Save(&project).Error; err != nil {
		internalError(c, "change project status", err)
		return
	}

	audit(c, "project", project.ID, "status_change", string(prev)+" → "+string(next))
	c.JSON(http.StatusOK, project)
}

// canChangeProjectStatus is the lifecycle table. Admins may also reopen
// finished projects.
func canChangeProjectStatus(role string, current, next models.ProjectStatus) bool {
	if current == next {
		return false
	}
	if role == string(models.RoleAdmin) {
		return true
	}

	switch current {
	case models.ProjectPlanning:
		return next == models.ProjectInProgress || next == models.ProjectCancelled
	case models.ProjectInProgress:
		return next == models.ProjectPaused || next == models.ProjectCompleted || next == models.ProjectCancelled
	case models.ProjectPaused:
		return next == models.ProjectInProgress || next == models.ProjectCancelled
	default:
		return false
	}
}

func ProjectHistory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok || !canSee(c, access.ProjectsViewAll, id) {
		return
	}

	var logs []models.AuditLog
	err := database.DB.WithContext(c.Request.Context()).
		Preload("User").
		Where("entity = ? AND entity_id = ?", "project", id).
		Order("created_at desc").
		Find(&logs).Error
	if err != nil {
		internalError(c, "project history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": logs})
}

type partidaRequest struct {
	Code         string          `json:"codigo" binding:"required,max=32"`
	Name         string          `json:"nombre" binding:"required,max=255"`
	Unit         string          `json:"unidad" binding:"max=20"`
	Quantity     float64         `json:"cantidad" binding:"gte=0"`
	UnitPrice    decimal.Decimal `json:"precioUnitario"`
	AvanceFisico float64         `json:"avanceFisico" binding:"gte=0,lte=100"`
}

func CreatePartida(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok || !canSee(c, access.ProjectsViewAll, id) {
		return
	}

	var req partidaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}

	var project models.Project
	if !load(c, &project, id, msgProjectNotFound) {
		return
	}

	partida := models.Partida{
		ProjectID:    id,
		Code:         strings.TrimSpace(req.Code),
		Name:         strings.TrimSpace(req.Name),
		Unit:         req.Unit,
		Quantity:     req.Quantity,
		UnitPrice:    req.UnitPrice,
		AvanceFisico: req.AvanceFisico,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&partida).Error; err != nil {
			return err
		}
		return recomputeProgress(tx, &project)
	})
	if err != nil {
		internalError(c, "create partida", err)
		return
	}

	audit(c, "project", id, "partida_create", "Partida "+partida.Code+" creada")
	c.JSON(http.StatusCreated, gin.H{"partida": partida, "avanceFisico": project.AvanceFisico})
}

type partidaUpdateRequest struct {
	Name         *string          `json:"nombre" binding:"omitempty,max=255"`
	Quantity     *float64         `json:"cantidad" binding:"omitempty,gte=0"`
	UnitPrice    *decimal.Decimal `json:"precioUnitario"`
	AvanceFisico *float64         `json:"avanceFisico" binding:"omitempty,gte=0,lte=100"`
}

func UpdatePartida(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok || !canSee(c, access.ProjectsViewAll, id) {
		return
	}
	pid, ok := parseID(c, "partida_id")
	if !ok {
		return
	}

	var req partidaUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}

	var project models.Project
	if !load(c, &project, id, msgProjectNotFound) {
		return
	}

	var partida models.Partida
	if err := database.DB.Where("project_id = ?", id).First(&partida, pid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "Partida no encontrada")
			return
		}
		internalError(c, "load partida", err)
		return
	}

	if req.Name != nil {
		partida.Name = strings.TrimSpace(*req.Name)
	}
	if req.Quantity != nil {
		partida.Quantity = *req.Quantity
	}
	if req.UnitPrice != nil {
		partida.UnitPrice = *req.UnitPrice
	}
	if req.AvanceFisico != nil {
		partida.AvanceFisico = *req.AvanceFisico
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&partida).Error; err != nil {
			return err
		}
		return recomputeProgress(tx, &project)
	})
	if err != nil {
		internalError(c, "update partida", err)
		return
	}

	audit(c, "project", id, "partida_update", "Partida "+partida.Code+" actualizada")
	c.JSON(http.StatusOK, gin.H{"partida": partida, "avanceFisico": project.AvanceFisico})
}

// recomputeProgress sets the project's physical progress to the average of its
// partidas weighted by their amount (quantity × unit price).
func recomputeProgress(tx *gorm.DB, project *models.Project) error {
	var partidas []models.Partida
	if err := tx.Where("project_id = ?", project.ID).Find(&partidas).Error; err != nil {
		return err
	}

	values := make([]float64, 0, len(partidas))
	weights := make([]float64, 0, len(partidas))
	for _, p := range partidas {
		values = append(values, p.AvanceFisico)
		w, _ := p.UnitPrice.Mul(decimal.NewFromFloat(p.Quantity)).Float64()
		weights = append(weights, w)
	}

	project.AvanceFisico = stats.Round2(stats.WeightedMean(values, weights))
	return tx.Model(project).Update("avance_fisico", project.AvanceFisico).Error
}

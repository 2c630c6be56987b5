package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"

	"obra-manager/internal/access"
	"obra-manager/internal/database"
	"obra-manager/internal/filter"
	"obra-manager/internal/models"
	"obra-manager/internal/view"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const msgInspectionNotFound = "Inspección no encontrada"

var inspectionList = listSpec{
	Query: filter.QuerySpec{
		Fields:      []string{"estado", "proyecto", "partida", "inspector"},
		DateField:   "fechaProgramada",
		NumberField: "cumplimiento",
	},
	ViewAll:  access.QualityViewAll,
	Terminal: models.InspectionTerminalStatuses,
	Sums:     []string{"noConformidades"},
	View: view.Spec{
		BasePath: "/api/inspections",
		Fields: map[view.Layout][]string{
			view.LayoutCards:  {"fechaProgramada", "cumplimiento", "noConformidades"},
			view.LayoutTable:  {"fechaProgramada", "fechaCierre", "items", "cumplimiento", "noConformidades"},
			view.LayoutKanban: {"fechaProgramada", "noConformidades"},
		},
		Actions: []view.ActionRule{
			{Name: "ver", Label: "Ver", Method: http.MethodGet, Permission: access.QualityView},
			{Name: "cerrar", Label: "Cerrar inspección", Method: http.MethodPost, Suffix: "/close", Permission: access.QualityClose},
		},
	},
	Columns: []string{
		string(models.InspectionScheduled), string(models.InspectionInProgress),
		string(models.InspectionApproved), string(models.InspectionConditional), string(models.InspectionRejected),
	},
}

func ListInspections(c *gin.Context) {
	var items []models.InspeccionCalidad
	err := database.DB.WithContext(c.Request.Context()).
		Preload("Items").
		Order("scheduled_at desc").
		Find(&items).Error
	if err != nil {
		internalError(c, "list inspections", err)
		return
	}
	respondList(c, items, inspectionList)
}

type checklistItemInput struct {
	Description string `json:"descripcion" binding:"required,max=255"`
	Critical    bool   `json:"critico"`
}

type inspectionRequest struct {
	ProjectID   uint                 `json:"proyectoId" binding:"required"`
	PartidaID   *uint                `json:"partidaId"`
	Title       string               `json:"titulo" binding:"required,min=3,max=255"`
	ScheduledAt string               `json:"fechaProgramada" binding:"omitempty,datetime=2006-01-02"`
	Notes       string               `json:"observaciones"`
	Templates   []uint               `json:"plantillas"`
	Items       []checklistItemInput `json:"items" binding:"dive"`
}

// CreateInspection builds the checklist from catalog templates plus free-form
// items. An inspection needs at least one item.
func CreateInspection(c *gin.Context) {
	var req inspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	if !canSee(c, access.QualityViewAll, req.ProjectID) {
		return
	}

	var project models.Project
	if err := database.DB.First(&project, req.ProjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fieldError(c, "proyectoId", "exists", "el proyecto no existe")
			return
		}
		internalError(c, "load project", err)
		return
	}
	if !checkPartida(c, req.PartidaID, project.ID) {
		return
	}

	var templates []models.ChecklistTemplate
	if len(req.Templates) > 0 {
		if err := database.DB.Where("id IN ?", req.Templates).Order("id asc").Find(&templates).Error; err != nil {
			internalError(c, "load checklist templates", err)
			return
		}
		if len(templates) != len(slices.Compact(slices.Sorted(slices.Values(req.Templates)))) {
			fieldError(c, "plantillas", "exists", "alguna plantilla no existe")
			return
		}
	}

	insp := models.InspeccionCalidad{
		ProjectID:   project.ID,
		PartidaID:   req.PartidaID,
		Title:       strings.TrimSpace(req.Title),
		InspectorID: userID(c),
		Status:      models.InspectionScheduled,
		ScheduledAt: parseDate(req.ScheduledAt),
		Notes:       strings.TrimSpace(req.Notes),
	}
	for _, t := range templates {
		tid := t.ID
		insp.Items = append(insp.Items, models.ChecklistItem{
			TemplateID:  &tid,
			Description: t.Description,
			Critical:    t.Critical,
		})
	}
	for _, it := range req.Items {
		insp.Items = append(insp.Items, models.ChecklistItem{
			Description: strings.TrimSpace(it.Description),
			Critical:    it.Critical,
		})
	}
	if len(insp.Items) == 0 {
		fieldError(c, "items", "min", "la inspección necesita al menos un punto de checklist")
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&insp).Error; err != nil {
			return err
		}
		return recountQuality(tx, project.ID)
	})
	if err != nil {
		internalError(c, "create inspection", err)
		return
	}

	audit(c, "inspection", insp.ID, "create", "Inspección programada: "+insp.Title)
	c.JSON(http.StatusCreated, insp)
}

func GetInspection(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var insp models.InspeccionCalidad
	if !load(c, &insp, id, msgInspectionNotFound, "Items") {
		return
	}
	if !canSee(c, access.QualityViewAll, insp.ProjectID) {
		return
	}

	ncs := insp.NoConformidades()
	if ncs == nil {
		ncs = []models.NoConformidad{}
	}
	c.JSON(http.StatusOK, gin.H{
		"inspeccion":      insp,
		"noConformidades": ncs,
		"evaluados":       insp.Evaluated(),
		"cumplimiento":    insp.Compliance(),
	})
}

type itemUpdateRequest struct {
	Cumple        *bool    `json:"cumple"`
	Observaciones *string  `json:"observaciones"`
	Fotos         []string `json:"fotos" binding:"omitempty,dive,max=255"`
}

// UpdateChecklistItem records the verdict of one checklist point. The first
// evaluation moves a scheduled inspection to en_curso.
func UpdateChecklistItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseID(c, "item_id")
	if !ok {
		return
	}

	var req itemUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}

	var insp models.InspeccionCalidad
	if !load(c, &insp, id, msgInspectionNotFound) {
		return
	}
	if !canSee(c, access.QualityViewAll, insp.ProjectID) {
		return
	}
	if slices.Contains(models.InspectionTerminalStatuses, string(insp.Status)) {
		badRequest(c, "La inspección ya está cerrada")
		return
	}

	var item models.ChecklistItem
	if err := database.DB.Where("inspection_id = ?", id).First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "Punto de checklist no encontrado")
			return
		}
		internalError(c, "load checklist item", err)
		return
	}

	if req.Cumple != nil {
		v := *req.Cumple
		item.Cumple = &v
	}
	if req.Observaciones != nil {
		item.Observaciones = strings.TrimSpace(*req.Observaciones)
	}
	if req.Fotos != nil {
		raw, err := json.Marshal(req.Fotos)
		if err != nil {
			internalError(c, "encode item photos", err)
			return
		}
		item.Fotos = datatypes.JSON(raw)
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&item).Error; err != nil {
			return err
		}
		if insp.Status == models.InspectionScheduled && item.Cumple != nil {
			insp.Status = models.InspectionInProgress
			if err := tx.Model(&insp).Update("status", insp.Status).Error; err != nil {
				return err
			}
		}
		return recountQuality(tx, insp.ProjectID)
	})
	if err != nil {
		internalError(c, "update checklist item", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item, "estadoInspeccion": insp.Status})
}

// CloseInspection derives the final status from the checklist: a failed
// critical point rejects, any other failure makes it conditional.
func CloseInspection(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var insp models.InspeccionCalidad
	if !load(c, &insp, id, msgInspectionNotFound, "Items") {
		return
	}
	if !canSee(c, access.QualityViewAll, insp.ProjectID) {
		return
	}
	if slices.Contains(models.InspectionTerminalStatuses, string(insp.Status)) {
		badRequest(c, "La inspección ya está cerrada")
		return
	}

	status, ok := insp.Verdict()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Hay puntos del checklist sin evaluar",
			"evaluados": insp.Evaluated(),
			"total":     len(insp.Items),
		})
		return
	}

	now := Now()
	insp.Status = status
	insp.ClosedAt = &now

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&insp).Updates(map[string]any{"status": insp.Status, "closed_at": insp.ClosedAt}).Error; err != nil {
			return err
		}
		return recountQuality(tx, insp.ProjectID)
	})
	if err != nil {
		internalError(c, "close inspection", err)
		return
	}

	ncs := insp.NoConformidades()
	if status != models.InspectionApproved {
		notifyInspectionClosed(insp, ncs)
	}

	audit(c, "inspection", insp.ID, "close", "Inspección cerrada como "+string(status))
	c.JSON(http.StatusOK, gin.H{
		"inspeccion":      insp,
		"noConformidades": ncs,
	})
}

// recountQuality refreshes the quality counters stored on the project row.
// Open non-conformities are failed points of inspections not approved.
func recountQuality(tx *gorm.DB, projectID uint) error {
	var total, approved, open int64
	if err := tx.Model(&models.InspeccionCalidad{}).Where("project_id = ?", projectID).Count(&total).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.InspeccionCalidad{}).
		Where("project_id = ? AND status = ?", projectID, models.InspectionApproved).
		Count(&approved).Error; err != nil {
		return err
	}
	notApproved := tx.Model(&models.InspeccionCalidad{}).
		Select("id").
		Where("project_id = ? AND status <> ?", projectID, models.InspectionApproved)
	if err := tx.Model(&models.ChecklistItem{}).
		Where("cumple = ? AND inspection_id IN (?)", false, notApproved).
		Count(&open).Error; err != nil {
		return err
	}

	return tx.Model(&models.Project{}).Where("id = ?", projectID).Updates(map[string]any{
		"inspecciones_totales":      total,
		"inspecciones_aprobadas":    approved,
		"no_conformidades_abiertas": open,
	}).Error
}

func notifyInspectionClosed(insp models.InspeccionCalidad, ncs []models.NoConformidad) {
	var project models.Project
	if err := database.DB.First(&project, insp.ProjectID).Error; err != nil {
		return
	}

	ids := []uint{insp.InspectorID}
	if project.ManagerID != 0 && project.ManagerID != insp.InspectorID {
		ids = append(ids, project.ManagerID)
	}
	var users []models.User
	if err := database.DB.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return
	}
	var to []string
	for _, u := range users {
		if u.Email != "" {
			to = append(to, u.Email)
		}
	}

	lines := make([]string, 0, len(ncs))
	for _, nc := range ncs {
		line := nc.Descripcion
		if nc.Critica {
			line += " (crítico)"
		}
		if nc.Observaciones != "" {
			line += ": " + nc.Observaciones
		}
		lines = append(lines, line)
	}
	Notifier.InspectionClosed(to, insp.Title, project.Name, string(insp.Status), lines)
}

func ListChecklistTemplates(c *gin.Context) {
	q := database.DB.WithContext(c.Request.Context()).Order("code asc")
	if cat := strings.TrimSpace(c.Query("categoria")); cat != "" {
		q = q.Where("category = ?", cat)
	}
	var templates []models.ChecklistTemplate
	if err := q.Find(&templates).Error; err != nil {
		internalError(c, "list checklist templates", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": templates})
}

type templateRequest struct {
	Code        string `json:"codigo" binding:"required,max=32"`
	Description string `json:"descripcion" binding:"required,max=255"`
	Category    string `json:"categoria" binding:"omitempty,oneof=STRUCTURAL ELECTRICAL PLUMBING FINISHING SAFETY GENERAL"`
	Critical    bool   `json:"critico"`
}

func CreateChecklistTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}

	t := models.ChecklistTemplate{
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Description: strings.TrimSpace(req.Description),
		Category:    req.Category,
		Critical:    req.Critical,
	}

	var count int64
	if err := database.DB.Unscoped().Model(&models.ChecklistTemplate{}).Where("code = ?", t.Code).Count(&count).Error; err != nil {
		internalError(c, "check template code", err)
		return
	}
	if count > 0 {
		badRequest(c, "Ya existe una plantilla con ese código")
		return
	}

	if err := database.DB.Create(&t).Error; err != nil {
		internalError(c, "create checklist template", err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

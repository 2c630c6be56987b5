package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"obra-manager/internal/access"
	"obra-manager/internal/database"
	"obra-manager/internal/filter"
	"obra-manager/internal/logger"
	"obra-manager/internal/models"
	"obra-manager/internal/view"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const msgTaskNotFound = "Tarea no encontrada"

var taskList = listSpec{
	Query: filter.QuerySpec{
		Fields:      []string{"estado", "prioridad", "categoria", "proyecto", "asignado", "partida"},
		DateField:   "fechaLimite",
		NumberField: "horasEstimadas",
	},
	ViewAll:  access.TasksViewAll,
	Terminal: models.TaskTerminalStatuses,
	Sums:     []string{"horasEstimadas", "horasReales"},
	View: view.Spec{
		BasePath: "/api/tasks",
		Fields: map[view.Layout][]string{
			view.LayoutCards:  {"asignado", "fechaLimite", "vencida"},
			view.LayoutTable:  {"categoria", "proyecto", "asignado", "fechaLimite", "completadoEn", "horasEstimadas", "horasReales", "vencida"},
			view.LayoutKanban: {"asignado", "fechaLimite", "vencida"},
		},
		Actions: []view.ActionRule{
			{Name: "ver", Label: "Ver", Method: http.MethodGet, Permission: access.TasksView},
			{Name: "editar", Label: "Editar", Method: http.MethodPut, Permission: access.TasksEdit},
			{Name: "eliminar", Label: "Eliminar", Method: http.MethodDelete, Permission: access.TasksDelete},
		},
	},
	Columns: models.TaskStatusOrder,
}

func ListTasks(c *gin.Context) {
	var tasks []models.Task
	err := database.DB.WithContext(c.Request.Context()).
		Preload("Assignee").
		Order("due_date asc").
		Find(&tasks).Error
	if err != nil {
		internalError(c, "list tasks", err)
		return
	}
	respondList(c, tasks, taskList)
}

type taskRequest struct {
	Title          string     `json:"titulo" binding:"required,min=3,max=255"`
	Description    string     `json:"descripcion"`
	Status         string     `json:"estado" binding:"omitempty,oneof=PENDING IN_PROGRESS REVIEW COMPLETED CANCELLED"`
	Priority       string     `json:"prioridad" binding:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Category       string     `json:"categoria" binding:"omitempty,oneof=STRUCTURAL ELECTRICAL PLUMBING FINISHING SAFETY GENERAL"`
	ProjectID      uint       `json:"proyectoId" binding:"required"`
	PartidaID      *uint      `json:"partidaId"`
	AssigneeID     *uint      `json:"asignadoId"`
	StartDate      string     `json:"fechaInicio" binding:"omitempty,datetime=2006-01-02"`
	DueDate        string     `json:"fechaLimite" binding:"omitempty,datetime=2006-01-02"`
	CompletedAt    *time.Time `json:"completadoEn"`
	EstimatedHours float64    `json:"horasEstimadas" binding:"gte=0"`
	ActualHours    float64    `json:"horasReales" binding:"gte=0"`
	Avance         float64    `json:"avance" binding:"gte=0,lte=100"`
}

func CreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	if !canSee(c, access.TasksViewAll, req.ProjectID) {
		return
	}

	var project models.Project
	if err := database.DB.First(&project, req.ProjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fieldError(c, "proyectoId", "exists", "el proyecto no existe")
			return
		}
		internalError(c, "load task project", err)
		return
	}

	task := models.Task{
		Title:          strings.TrimSpace(req.Title),
		Description:    strings.TrimSpace(req.Description),
		Priority:       models.TaskMedium,
		Category:       models.CategoryGeneral,
		ProjectID:      req.ProjectID,
		PartidaID:      req.PartidaID,
		StartDate:      parseDate(req.StartDate),
		DueDate:        parseDate(req.DueDate),
		EstimatedHours: req.EstimatedHours,
		ActualHours:    req.ActualHours,
		Avance:         req.Avance,
	}
	if req.Priority != "" {
		task.Priority = models.TaskPriority(req.Priority)
	}
	if req.Category != "" {
		task.Category = models.TaskCategory(req.Category)
	}
	status := models.TaskPending
	if req.Status != "" {
		status = models.TaskStatus(req.Status)
	}
	task.SetStatus(status, req.CompletedAt, Now())

	if !checkTaskRefs(c, &task, req.AssigneeID) {
		return
	}

	if err := database.DB.Create(&task).Error; err != nil {
		internalError(c, "create task", err)
		return
	}

	if task.AssigneeID != nil {
		notifyAssignee(task, project)
	}
	audit(c, "task", task.ID, "create", "Tarea creada: "+task.Title)
	c.JSON(http.StatusCreated, task)
}

func GetTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var task models.Task
	if !load(c, &task, id, msgTaskNotFound, "Assignee", "Project") {
		return
	}
	if !canSee(c, access.TasksViewAll, task.ProjectID) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tarea":   task,
		"vencida": task.Overdue(Now()),
	})
}

// taskUpdateRequest only carries the fields present in the body. asignadoId 0
// clears the assignee.
type taskUpdateRequest struct {
	Title          *string    `json:"titulo" binding:"omitempty,min=3,max=255"`
	Description    *string    `json:"descripcion"`
	Status         *string    `json:"estado" binding:"omitempty,oneof=PENDING IN_PROGRESS REVIEW COMPLETED CANCELLED"`
	Priority       *string    `json:"prioridad" binding:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Category       *string    `json:"categoria" binding:"omitempty,oneof=STRUCTURAL ELECTRICAL PLUMBING FINISHING SAFETY GENERAL"`
	PartidaID      *uint      `json:"partidaId"`
	AssigneeID     *uint      `json:"asignadoId"`
	StartDate      *string    `json:"fechaInicio" binding:"omitempty,datetime=2006-01-02"`
	DueDate        *string    `json:"fechaLimite" binding:"omitempty,datetime=2006-01-02"`
	CompletedAt    *time.Time `json:"completadoEn"`
	EstimatedHours *float64   `json:"horasEstimadas" binding:"omitempty,gte=0"`
	ActualHours    *float64   `json:"horasReales" binding:"omitempty,gte=0"`
	Avance         *float64   `json:"avance" binding:"omitempty,gte=0,lte=100"`
}

func UpdateTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req taskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}

	var task models.Task
	if !load(c, &task, id, msgTaskNotFound) {
		return
	}
	if !canSee(c, access.TasksViewAll, task.ProjectID) {
		return
	}

	prevAssignee := task.AssigneeID
	prevStatus := task.Status

	if req.Title != nil {
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		task.Description = strings.TrimSpace(*req.Description)
	}
	if req.Priority != nil {
		task.Priority = models.TaskPriority(*req.Priority)
	}
	if req.Category != nil {
		task.Category = models.TaskCategory(*req.Category)
	}
	if req.PartidaID != nil {
		task.PartidaID = req.PartidaID
	}
	if req.StartDate != nil {
		task.StartDate = parseDate(*req.StartDate)
	}
	if req.DueDate != nil {
		task.DueDate = parseDate(*req.DueDate)
	}
	if req.EstimatedHours != nil {
		task.EstimatedHours = *req.EstimatedHours
	}
	if req.ActualHours != nil {
		task.ActualHours = *req.ActualHours
	}
	if req.Avance != nil {
		task.Avance = *req.Avance
	}

	switch {
	case req.Status != nil:
		task.SetStatus(models.TaskStatus(*req.Status), req.CompletedAt, Now())
	case req.CompletedAt != nil && task.Status == models.TaskCompleted:
		task.SetStatus(task.Status, req.CompletedAt, Now())
	}

	if !checkTaskRefs(c, &task, req.AssigneeID) {
		return
	}

	if err := database.DB.Save(&task).Error; err != nil {
		internalError(c, "update task", err)
		return
	}

	if task.AssigneeID != nil && !sameID(prevAssignee, task.AssigneeID) {
		var project models.Project
		if err := database.DB.First(&project, task.ProjectID).Error; err == nil {
			notifyAssignee(task, project)
		}
	}

	details := "Tarea actualizada: " + task.Title
	if prevStatus != task.Status {
		details += " (" + string(prevStatus) + " → " + string(task.Status) + ")"
	}
	audit(c, "task", task.ID, "update", details)
	c.JSON(http.StatusOK, task)
}

func DeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var task models.Task
	if !load(c, &task, id, msgTaskNotFound) {
		return
	}
	if !canSee(c, access.TasksViewAll, task.ProjectID) {
		return
	}

	if err := database.DB.Delete(&task).Error; err != nil {
		internalError(c, "delete task", err)
		return
	}

	audit(c, "task", task.ID, "delete", "Tarea eliminada: "+task.Title)
	c.JSON(http.StatusOK, gin.H{"message": "Tarea eliminada"})
}

// checkTaskRefs validates the partida and assignee references and applies the
// assignee change. It answers 400 itself.
// checkPartida answers 400 unless partidaID is nil or a budget line of projectID.
func checkPartida(c *gin.Context, partidaID *uint, projectID uint) bool {
	if partidaID == nil {
		return true
	}
	var n int64
	err := database.DB.Model(&models.Partida{}).
		Where("id = ? AND project_id = ?", *partidaID, projectID).
		Count(&n).Error
	if err != nil {
		internalError(c, "check partida", err)
		return false
	}
	if n == 0 {
		fieldError(c, "partidaId", "exists", "la partida no pertenece al proyecto")
		return false
	}
	return true
}

func checkTaskRefs(c *gin.Context, task *models.Task, assigneeID *uint) bool {
	if !checkPartida(c, task.PartidaID, task.ProjectID) {
		return false
	}

	if assigneeID == nil {
		return true
	}
	if *assigneeID == 0 {
		task.AssigneeID = nil
		return true
	}

	var n int64
	if err := database.DB.Model(&models.User{}).Where("id = ?", *assigneeID).Count(&n).Error; err != nil {
		internalError(c, "check assignee", err)
		return false
	}
	if n == 0 {
		fieldError(c, "asignadoId", "exists", "el usuario no existe")
		return false
	}
	uid := *assigneeID
	task.AssigneeID = &uid
	return true
}

func notifyAssignee(task models.Task, project models.Project) {
	var user models.User
	if err := database.DB.First(&user, *task.AssigneeID).Error; err != nil {
		logger.L.Warn("task assignee lookup", zap.Uint("task", task.ID), zap.Error(err))
		return
	}
	if user.Email == "" {
		return
	}

	name := user.FullName
	if name == "" {
		name = user.Username
	}
	due := "sin fecha límite"
	if task.DueDate != nil {
		due = task.DueDate.Format(dateLayout)
	}
	Notifier.TaskAssigned(user.Email, name, task.Title, project.Name, due)
}

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

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
	"gorm.io/gorm"
)

const msgMemberNotFound = "Integrante no encontrado"

var teamList = listSpec{
	Query: filter.QuerySpec{
		Fields:      []string{"rol", "especialidad", "estado", "habilidad", "subcontratista", "proyecto"},
		NumberField: "carga",
	},
	ViewAll:  access.TeamViewAll,
	Terminal: []string{string(models.MemberInactive)},
	Sums:     []string{"carga"},
	View: view.Spec{
		BasePath: "/api/team",
		Fields: map[view.Layout][]string{
			view.LayoutCards:  {"especialidad", "carga", "sobrecarga"},
			view.LayoutTable:  {"especialidad", "habilidades", "carga", "sobrecarga", "email", "telefono"},
			view.LayoutKanban: {"carga", "sobrecarga"},
		},
		Actions: []view.ActionRule{
			{Name: "carga", Label: "Ver carga", Method: http.MethodGet, Suffix: "/workload", Permission: access.TeamView},
		},
	},
	Columns: []string{string(models.MemberActive), string(models.MemberInactive)},
}

func ListTeam(c *gin.Context) {
	var members []models.TeamMember
	err := database.DB.WithContext(c.Request.Context()).
		Preload("Assignments").
		Preload("Subcontractor").
		Order("name asc").
		Find(&members).Error
	if err != nil {
		internalError(c, "list team", err)
		return
	}

	// contact data is only shown in full to people who manage staff
	if !access.HasPermission(middleware.Principal(c), access.TeamManage) {
		for i := range members {
			members[i].Email = view.MaskEmail(members[i].Email)
			members[i].Phone = view.MaskPhone(members[i].Phone)
		}
	}

	respondList(c, members, teamList)
}

type memberRequest struct {
	UserID          *uint    `json:"usuarioId"`
	Name            string   `json:"nombre" binding:"required,min=3,max=255"`
	Role            string   `json:"rol" binding:"required,max=100"`
	Specialty       string   `json:"especialidad" binding:"max=100"`
	Skills          []string `json:"habilidades" binding:"dive,max=50"`
	Rendimiento     float64  `json:"rendimiento" binding:"gte=0,lte=100"`
	Email           string   `json:"email" binding:"omitempty,email"`
	Phone           string   `json:"telefono" binding:"max=50"`
	SubcontractorID *uint    `json:"subcontratistaId"`
}

func CreateTeamMember(c *gin.Context) {
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}

	if req.SubcontractorID != nil {
		var n int64
		if err := database.DB.Model(&models.Subcontractor{}).Where("id = ?", *req.SubcontractorID).Count(&n).Error; err != nil {
			internalError(c, "check subcontractor", err)
			return
		}
		if n == 0 {
			fieldError(c, "subcontratistaId", "exists", "el subcontratista no existe")
			return
		}
	}

	member := models.TeamMember{
		UserID:          req.UserID,
		Name:            strings.TrimSpace(req.Name),
		Role:            strings.TrimSpace(req.Role),
		Specialty:       strings.TrimSpace(req.Specialty),
		Skills:          req.Skills,
		Status:          models.MemberActive,
		Rendimiento:     req.Rendimiento,
		Email:           strings.TrimSpace(req.Email),
		Phone:           strings.TrimSpace(req.Phone),
		SubcontractorID: req.SubcontractorID,
	}

	if err := database.DB.Create(&member).Error; err != nil {
		internalError(c, "create member", err)
		return
	}

	audit(c, "team", member.ID, "create", "Integrante creado: "+member.Name)
	c.JSON(http.StatusCreated, member)
}

type projectLoad struct {
	ProjectID  uint    `json:"proyectoId"`
	Dedicacion float64 `json:"dedicacion"`
}

func MemberWorkload(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var member models.TeamMember
	if !load(c, &member, id, msgMemberNotFound, "Assignments") {
		return
	}

	p := middleware.Principal(c)
	if !access.HasPermission(p, access.TeamViewAll) {
		visible := false
		for _, pid := range member.ProjectRefs() {
			if p.AssignedTo(pid) {
				visible = true
				break
			}
		}
		if !visible {
			forbidden(c)
			return
		}
	}

	now := Now()
	allocs := make([]stats.Allocation, 0, len(member.Assignments))
	perProject := map[uint]float64{}
	var order []uint
	for _, a := range member.Assignments {
		if !a.ActiveAt(now) {
			continue
		}
		allocs = append(allocs, stats.Allocation{MemberID: member.ID, Percentage: a.Dedicacion})
		if _, seen := perProject[a.ProjectID]; !seen {
			order = append(order, a.ProjectID)
		}
		perProject[a.ProjectID] += a.Dedicacion
	}

	breakdown := make([]projectLoad, 0, len(order))
	for _, pid := range order {
		breakdown = append(breakdown, projectLoad{ProjectID: pid, Dedicacion: perProject[pid]})
	}

	total := stats.Workload(allocs)[member.ID]
	c.JSON(http.StatusOK, gin.H{
		"integranteId": member.ID,
		"nombre":       member.Name,
		"carga":        total,
		"sobrecarga":   total > 100,
		"proyectos":    breakdown,
	})
}

func ListSubcontractors(c *gin.Context) {
	var subs []models.Subcontractor
	if err := database.DB.WithContext(c.Request.Context()).Order("name asc").Find(&subs).Error; err != nil {
		internalError(c, "list subcontractors", err)
		return
	}

	if !access.HasPermission(middleware.Principal(c), access.TeamManage) {
		for i := range subs {
			subs[i].ContactEmail = view.MaskEmail(subs[i].ContactEmail)
			subs[i].ContactPhone = view.MaskPhone(subs[i].ContactPhone)
		}
	}
	c.JSON(http.StatusOK, gin.H{"items": subs})
}

type subcontractorRequest struct {
	Name         string  `json:"razonSocial" binding:"required,min=3,max=255"`
	TaxID        string  `json:"rfc" binding:"omitempty,min=12,max=13,alphanum"`
	Specialty    string  `json:"especialidad" binding:"max=100"`
	ContactName  string  `json:"contacto" binding:"max=255"`
	ContactEmail string  `json:"email" binding:"omitempty,email"`
	ContactPhone string  `json:"telefono" binding:"max=50"`
	Rating       float64 `json:"calificacion" binding:"gte=0,lte=5"`
	Notes        string  `json:"notas"`
}

func CreateSubcontractor(c *gin.Context) {
	var req subcontractorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}

	sub := models.Subcontractor{
		Name:         strings.TrimSpace(req.Name),
		TaxID:        strings.ToUpper(strings.TrimSpace(req.TaxID)),
		Specialty:    strings.TrimSpace(req.Specialty),
		ContactName:  strings.TrimSpace(req.ContactName),
		ContactEmail: strings.ToLower(strings.TrimSpace(req.ContactEmail)),
		ContactPhone: strings.TrimSpace(req.ContactPhone),
		Rating:       req.Rating,
		Notes:        strings.TrimSpace(req.Notes),
	}

	// uniqueness of tax id, name and e-mail
	checks := []struct {
		column, value, msg string
	}{
		{"tax_id", sub.TaxID, "Ya existe un subcontratista con ese RFC"},
		{"LOWER(name)", strings.ToLower(sub.Name), "Ya existe un subcontratista con ese nombre"},
		{"contact_email", sub.ContactEmail, "Ya existe un subcontratista con ese correo"},
	}
	for _, chk := range checks {
		if chk.value == "" {
			continue
		}
		var count int64
		if err := database.DB.Model(&models.Subcontractor{}).Where(chk.column+" = ?", chk.value).Count(&count).Error; err != nil {
			internalError(c, "check subcontractor", err)
			return
		}
		if count > 0 {
			badRequest(c, chk.msg)
			return
		}
	}

	if err := database.DB.Create(&sub).Error; err != nil {
		internalError(c, "create subcontractor", err)
		return
	}

	audit(c, "subcontractor", sub.ID, "create", "Subcontratista creado: "+sub.Name)
	c.JSON(http.StatusCreated, sub)
}

type assignmentRequest struct {
	MemberID   uint    `json:"miembroId" binding:"required"`
	ProjectID  uint    `json:"proyectoId" binding:"required"`
	Role       string  `json:"rol" binding:"max=100"`
	Dedicacion float64 `json:"dedicacion" binding:"required,gt=0,lte=100"`
	StartDate  string  `json:"fechaInicio" binding:"omitempty,datetime=2006-01-02"`
	EndDate    string  `json:"fechaFin" binding:"omitempty,datetime=2006-01-02"`
}

// CreateAssignment links a member to a project. Going over 100% dedication is
// allowed and reported back as sobrecarga.
func CreateAssignment(c *gin.Context) {
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	if !canSee(c, access.TeamViewAll, req.ProjectID) {
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

	var member models.TeamMember
	if err := database.DB.Preload("Assignments").First(&member, req.MemberID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fieldError(c, "miembroId", "exists", "el integrante no existe")
			return
		}
		internalError(c, "load member", err)
		return
	}
	if member.Status != models.MemberActive {
		badRequest(c, "El integrante está inactivo")
		return
	}

	a := models.WorkAssignment{
		MemberID:   member.ID,
		ProjectID:  project.ID,
		Role:       strings.TrimSpace(req.Role),
		Dedicacion: req.Dedicacion,
		StartDate:  parseDate(req.StartDate),
		EndDate:    parseDate(req.EndDate),
	}
	if a.StartDate != nil && a.EndDate != nil && a.EndDate.Before(*a.StartDate) {
		fieldError(c, "fechaFin", "gtefield", "debe ser posterior a fechaInicio")
		return
	}

	if err := database.DB.Omit("Member").Create(&a).Error; err != nil {
		internalError(c, "create assignment", err)
		return
	}

	member.Assignments = append(member.Assignments, a)
	workload := member.Workload(Now())

	audit(c, "project", project.ID, "assignment", member.Name+" asignado a "+project.Name)
	c.JSON(http.StatusCreated, gin.H{
		"asignacion": a,
		"carga":      workload,
		"sobrecarga": workload > 100,
	})
}

func DeleteAssignment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var a models.WorkAssignment
	if !load(c, &a, id, "Asignación no encontrada") {
		return
	}
	if !canSee(c, access.TeamViewAll, a.ProjectID) {
		return
	}

	if err := database.DB.Delete(&a).Error; err != nil {
		internalError(c, "delete assignment", err)
		return
	}

	audit(c, "project", a.ProjectID, "unassignment", "Asignación eliminada")
	c.JSON(http.StatusOK, gin.H{"message": "Asignación eliminada"})
}

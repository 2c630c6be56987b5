package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Methods in this file let the filter, stats and view packages read entities
// by field name. Field names match the JSON names used in query strings.

func one(v string) []string { return []string{v} }

func idValue(id uint) []string { return one(strconv.FormatUint(uint64(id), 10)) }

func optID(id *uint) []string {
	if id == nil {
		return nil
	}
	return idValue(*id)
}

func timeOf(t *time.Time) (time.Time, bool) {
	if t == nil {
		return time.Time{}, false
	}
	return *t, true
}

func created(t time.Time) (time.Time, bool) { return t, !t.IsZero() }

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func pct(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) + "%" }

func amount(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

// ---- Project

func (p Project) Values(field string) []string {
	switch field {
	case "estado":
		return one(string(p.Status))
	case "prioridad":
		return one(string(p.Priority))
	case "ubicacion":
		return one(p.Location)
	case "cliente":
		return one(p.Client)
	case "codigo":
		return one(p.Code)
	case "gerente":
		return idValue(p.ManagerID)
	}
	return nil
}

func (p Project) Time(field string) (time.Time, bool) {
	switch field {
	case "fechaInicio":
		return timeOf(p.FechaInicio)
	case "fechaFin":
		return timeOf(p.FechaFin)
	case "creado":
		return created(p.CreatedAt)
	}
	return time.Time{}, false
}

func (p Project) Number(field string) (float64, bool) {
	switch field {
	case "presupuesto":
		return p.Presupuesto.InexactFloat64(), true
	case "gastado":
		return p.Gastado.InexactFloat64(), true
	case "avanceFisico":
		return p.AvanceFisico, true
	case "avanceFinanciero":
		return p.AvanceFinanciero, true
	}
	return 0, false
}

func (p Project) ProjectRefs() []uint { return []uint{p.ID} }

func (p Project) SearchText() string {
	return strings.Join([]string{p.Name, p.Code, p.Location, p.Client}, " ")
}

func (p Project) StatusKey() string   { return string(p.Status) }
func (p Project) PriorityKey() string { return string(p.Priority) }
func (p Project) Progress() float64   { return p.AvanceFisico }

func (p Project) Amount(field string) decimal.Decimal {
	switch field {
	case "presupuesto":
		return p.Presupuesto
	case "gastado":
		return p.Gastado
	}
	return decimal.Zero
}

func (p Project) DisplayID() uint      { return p.ID }
func (p Project) DisplayTitle() string { return p.Name }

func (p Project) DisplaySubtitle() string {
	if p.Location == "" {
		return p.Code
	}
	return p.Code + " · " + p.Location
}

func (p Project) DisplayFields() map[string]string {
	return map[string]string{
		"codigo":           p.Code,
		"ubicacion":        p.Location,
		"cliente":          p.Client,
		"presupuesto":      money(p.Presupuesto),
		"gastado":          money(p.Gastado),
		"avanceFinanciero": pct(p.AvanceFinanciero),
		"fechaInicio":      date(p.FechaInicio),
		"fechaFin":         date(p.FechaFin),
		"noConformidades":  strconv.Itoa(p.NoConformidadesAbiertas),
	}
}

// ---- Task

func (t Task) Values(field string) []string {
	switch field {
	case "estado":
		return one(string(t.Status))
	case "prioridad":
		return one(string(t.Priority))
	case "categoria":
		return one(string(t.Category))
	case "proyecto":
		return idValue(t.ProjectID)
	case "asignado":
		return optID(t.AssigneeID)
	case "partida":
		return optID(t.PartidaID)
	}
	return nil
}

func (t Task) Time(field string) (time.Time, bool) {
	switch field {
	case "fechaInicio":
		return timeOf(t.StartDate)
	case "fechaLimite":
		return timeOf(t.DueDate)
	case "completado":
		return timeOf(t.CompletedAt)
	case "creado":
		return created(t.CreatedAt)
	}
	return time.Time{}, false
}

func (t Task) Number(field string) (float64, bool) {
	switch field {
	case "horasEstimadas":
		return t.EstimatedHours, true
	case "horasReales":
		return t.ActualHours, true
	case "avance":
		return t.Avance, true
	}
	return 0, false
}

func (t Task) ProjectRefs() []uint { return []uint{t.ProjectID} }
func (t Task) SearchText() string  { return t.Title + " " + t.Description }
func (t Task) StatusKey() string   { return string(t.Status) }
func (t Task) PriorityKey() string { return string(t.Priority) }
func (t Task) Progress() float64   { return t.Avance }

func (t Task) Amount(field string) decimal.Decimal {
	switch field {
	case "horasEstimadas":
		return decimal.NewFromFloat(t.EstimatedHours)
	case "horasReales":
		return decimal.NewFromFloat(t.ActualHours)
	}
	return decimal.Zero
}

func (t Task) DisplayID() uint         { return t.ID }
func (t Task) DisplayTitle() string    { return t.Title }
func (t Task) DisplaySubtitle() string { return string(t.Category) }

func (t Task) DisplayFields() map[string]string {
	f := map[string]string{
		"categoria":      string(t.Category),
		"proyecto":       strconv.FormatUint(uint64(t.ProjectID), 10),
		"fechaLimite":    date(t.DueDate),
		"completadoEn":   date(t.CompletedAt),
		"horasEstimadas": amount(t.EstimatedHours),
		"horasReales":    amount(t.ActualHours),
	}
	if t.Assignee != nil {
		f["asignado"] = t.Assignee.Username
	}
	if t.Overdue(time.Now()) {
		f["vencida"] = "si"
	}
	return f
}

// ---- MaterialInventory

func (inv MaterialInventory) Values(field string) []string {
	switch field {
	case "material":
		return one(inv.Material.Code)
	case "categoria":
		return one(inv.Material.Category)
	case "ubicacion":
		return one(inv.Location)
	case "estado":
		return one(inv.StockStatus())
	case "proyecto":
		return idValue(inv.ProjectID)
	}
	return nil
}

func (inv MaterialInventory) Time(field string) (time.Time, bool) {
	switch field {
	case "creado":
		return created(inv.CreatedAt)
	case "actualizado":
		return created(inv.UpdatedAt)
	}
	return time.Time{}, false
}

func (inv MaterialInventory) Number(field string) (float64, bool) {
	switch field {
	case "fisica":
		return inv.Fisica, true
	case "disponible":
		return inv.Disponible, true
	case "reservada":
		return inv.Reservada, true
	case "danada":
		return inv.Danada, true
	case "enTransito":
		return inv.EnTransito, true
	case "enPedido":
		return inv.EnPedido, true
	case "valor":
		return inv.Value().InexactFloat64(), true
	}
	return 0, false
}

// Value is physical stock valued at the material's unit cost.
func (inv MaterialInventory) Value() decimal.Decimal {
	return inv.Material.UnitCost.Mul(decimal.NewFromFloat(inv.Fisica))
}

func (inv MaterialInventory) ProjectRefs() []uint { return []uint{inv.ProjectID} }

func (inv MaterialInventory) SearchText() string {
	return inv.Material.Name + " " + inv.Material.Code + " " + inv.Location
}

func (inv MaterialInventory) StatusKey() string   { return inv.StockStatus() }
func (inv MaterialInventory) PriorityKey() string { return "" }

// Progress is the share of physical stock that is available.
func (inv MaterialInventory) Progress() float64 {
	if inv.Fisica <= 0 {
		return 0
	}
	return inv.Disponible / inv.Fisica * 100
}

func (inv MaterialInventory) Amount(field string) decimal.Decimal {
	if field == "valor" {
		return inv.Value()
	}
	return decimal.Zero
}

func (inv MaterialInventory) DisplayID() uint         { return inv.ID }
func (inv MaterialInventory) DisplayTitle() string    { return inv.Material.Name }
func (inv MaterialInventory) DisplaySubtitle() string { return inv.Location }

func (inv MaterialInventory) DisplayFields() map[string]string {
	return map[string]string{
		"codigo":     inv.Material.Code,
		"unidad":     inv.Material.Unit,
		"fisica":     amount(inv.Fisica),
		"disponible": amount(inv.Disponible),
		"reservada":  amount(inv.Reservada),
		"danada":     amount(inv.Danada),
		"enTransito": amount(inv.EnTransito),
		"enPedido":   amount(inv.EnPedido),
		"valor":      money(inv.Value()),
	}
}

// ---- TeamMember

func (m TeamMember) Values(field string) []string {
	switch field {
	case "rol":
		return one(m.Role)
	case "especialidad":
		return one(m.Specialty)
	case "estado":
		return one(string(m.Status))
	case "habilidad":
		return m.Skills
	case "subcontratista":
		return optID(m.SubcontractorID)
	case "proyecto":
		var out []string
		for _, id := range m.ProjectRefs() {
			out = append(out, idValue(id)...)
		}
		return out
	}
	return nil
}

func (m TeamMember) Time(field string) (time.Time, bool) {
	if field == "creado" {
		return created(m.CreatedAt)
	}
	return time.Time{}, false
}

func (m TeamMember) Number(field string) (float64, bool) {
	switch field {
	case "rendimiento":
		return m.Rendimiento, true
	case "carga":
		return m.Workload(time.Now()), true
	}
	return 0, false
}

// Workload sums the dedication of assignments active at t. It is not capped.
func (m TeamMember) Workload(t time.Time) float64 {
	var sum float64
	for _, a := range m.Assignments {
		if a.ActiveAt(t) {
			sum += a.Dedicacion
		}
	}
	return sum
}

func (m TeamMember) ProjectRefs() []uint {
	seen := make(map[uint]bool, len(m.Assignments))
	var out []uint
	for _, a := range m.Assignments {
		if !seen[a.ProjectID] {
			seen[a.ProjectID] = true
			out = append(out, a.ProjectID)
		}
	}
	return out
}

func (m TeamMember) SearchText() string {
	return m.Name + " " + m.Role + " " + m.Specialty + " " + strings.Join(m.Skills, " ")
}

func (m TeamMember) StatusKey() string   { return string(m.Status) }
func (m TeamMember) PriorityKey() string { return "" }
func (m TeamMember) Progress() float64   { return m.Rendimiento }

func (m TeamMember) Amount(field string) decimal.Decimal {
	if field == "carga" {
		return decimal.NewFromFloat(m.Workload(time.Now()))
	}
	return decimal.Zero
}

func (m TeamMember) DisplayID() uint         { return m.ID }
func (m TeamMember) DisplayTitle() string    { return m.Name }
func (m TeamMember) DisplaySubtitle() string { return m.Role }

func (m TeamMember) DisplayFields() map[string]string {
	load := m.Workload(time.Now())
	f := map[string]string{
		"especialidad": m.Specialty,
		"habilidades":  strings.Join(m.Skills, ", "),
		"carga":        pct(load),
		"email":        m.Email,
		"telefono":     m.Phone,
	}
	if load > 100 {
		f["sobrecarga"] = "si"
	}
	return f
}

// ---- InspeccionCalidad

func (i InspeccionCalidad) Values(field string) []string {
	switch field {
	case "estado":
		return one(string(i.Status))
	case "proyecto":
		return idValue(i.ProjectID)
	case "partida":
		return optID(i.PartidaID)
	case "inspector":
		return idValue(i.InspectorID)
	}
	return nil
}

func (i InspeccionCalidad) Time(field string) (time.Time, bool) {
	switch field {
	case "fechaProgramada":
		return timeOf(i.ScheduledAt)
	case "fechaCierre":
		return timeOf(i.ClosedAt)
	case "creado":
		return created(i.CreatedAt)
	}
	return time.Time{}, false
}

func (i InspeccionCalidad) Number(field string) (float64, bool) {
	switch field {
	case "cumplimiento":
		return i.Compliance(), true
	case "noConformidades":
		return float64(len(i.NoConformidades())), true
	}
	return 0, false
}

// Compliance is the share of evaluated items that passed.
func (i InspeccionCalidad) Compliance() float64 {
	evaluated := i.Evaluated()
	if evaluated == 0 {
		return 0
	}
	passed := evaluated - len(i.NoConformidades())
	return float64(passed) / float64(evaluated) * 100
}

func (i InspeccionCalidad) ProjectRefs() []uint { return []uint{i.ProjectID} }
func (i InspeccionCalidad) SearchText() string  { return i.Title + " " + i.Notes }
func (i InspeccionCalidad) StatusKey() string   { return string(i.Status) }
func (i InspeccionCalidad) PriorityKey() string { return "" }

// Progress is the share of checklist items already evaluated.
func (i InspeccionCalidad) Progress() float64 {
	if len(i.Items) == 0 {
		return 0
	}
	return float64(i.Evaluated()) / float64(len(i.Items)) * 100
}

func (i InspeccionCalidad) Amount(field string) decimal.Decimal {
	if field == "noConformidades" {
		return decimal.NewFromInt(int64(len(i.NoConformidades())))
	}
	return decimal.Zero
}

func (i InspeccionCalidad) DisplayID() uint      { return i.ID }
func (i InspeccionCalidad) DisplayTitle() string { return i.Title }

func (i InspeccionCalidad) DisplaySubtitle() string {
	return fmt.Sprintf("Proyecto %d", i.ProjectID)
}

func (i InspeccionCalidad) DisplayFields() map[string]string {
	return map[string]string{
		"fechaProgramada": date(i.ScheduledAt),
		"fechaCierre":     date(i.ClosedAt),
		"items":           strconv.Itoa(len(i.Items)),
		"noConformidades": strconv.Itoa(len(i.NoConformidades())),
		"cumplimiento":    pct(i.Compliance()),
	}
}

// ---- Photo

func (ph Photo) Values(field string) []string {
	switch field {
	case "proyecto":
		return idValue(ph.ProjectID)
	case "tarea":
		return optID(ph.TaskID)
	case "inspeccion":
		return optID(ph.InspectionID)
	case "categoria":
		return one(ph.Category)
	}
	return nil
}

func (ph Photo) Time(field string) (time.Time, bool) {
	switch field {
	case "tomada":
		if ph.TakenAt != nil {
			return *ph.TakenAt, true
		}
		return created(ph.CreatedAt)
	case "creado":
		return created(ph.CreatedAt)
	}
	return time.Time{}, false
}

func (ph Photo) Number(field string) (float64, bool) {
	if field == "tamano" {
		return float64(ph.Size), true
	}
	return 0, false
}

func (ph Photo) ProjectRefs() []uint { return []uint{ph.ProjectID} }
func (ph Photo) SearchText() string  { return ph.Caption + " " + ph.OriginalName }

// ---- Report

func (r Report) Values(field string) []string {
	switch field {
	case "tipo":
		return one(string(r.Kind))
	case "proyecto":
		return idValue(r.ProjectID)
	case "autor":
		return idValue(r.AuthorID)
	}
	return nil
}

func (r Report) Time(field string) (time.Time, bool) {
	switch field {
	case "creado":
		return created(r.CreatedAt)
	case "desde":
		return timeOf(r.From)
	case "hasta":
		return timeOf(r.To)
	}
	return time.Time{}, false
}

func (r Report) Number(string) (float64, bool) { return 0, false }
func (r Report) ProjectRefs() []uint           { return []uint{r.ProjectID} }
func (r Report) SearchText() string            { return r.Title }

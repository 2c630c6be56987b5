package access

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Canonical permission strings. Anything outside this list is rejected when
// stored on a user or loaded from a roles file.
const (
	ProjectsViewAll = "proyectos.ver_todos"
	ProjectsView    = "proyectos.ver"
	ProjectsCreate  = "proyectos.crear"
	ProjectsEdit    = "proyectos.editar"
	ProjectsDelete  = "proyectos.eliminar"

	TasksViewAll = "tareas.ver_todas"
	TasksView    = "tareas.ver"
	TasksCreate  = "tareas.crear"
	TasksEdit    = "tareas.editar"
	TasksDelete  = "tareas.eliminar"

	MaterialsViewAll = "materiales.ver_todos"
	MaterialsView    = "materiales.ver"
	MaterialsEdit    = "materiales.editar"
	MaterialsMove    = "materiales.movimientos"

	TeamViewAll = "equipo.ver_todos"
	TeamView    = "equipo.ver"
	TeamManage  = "equipo.gestionar"
	TeamAssign  = "equipo.asignar"

	QualityViewAll = "calidad.ver_todas"
	QualityView    = "calidad.ver"
	QualityInspect = "calidad.inspeccionar"
	QualityClose   = "calidad.cerrar"

	PhotosViewAll = "fotos.ver_todas"
	PhotosView    = "fotos.ver"
	PhotosUpload  = "fotos.subir"
	PhotosDelete  = "fotos.eliminar"

	ReportsViewAll  = "reportes.ver_todos"
	ReportsView     = "reportes.ver"
	ReportsGenerate = "reportes.generar"
	ReportsShare    = "reportes.compartir"

	AuditView   = "auditoria.ver"
	UsersManage = "usuarios.gestionar"
)

var catalog = map[string]string{
	ProjectsViewAll:  "Ver todos los proyectos",
	ProjectsView:     "Ver proyectos asignados",
	ProjectsCreate:   "Crear proyectos",
	ProjectsEdit:     "Editar proyectos",
	ProjectsDelete:   "Eliminar proyectos",
	TasksViewAll:     "Ver todas las tareas",
	TasksView:        "Ver tareas de proyectos asignados",
	TasksCreate:      "Crear tareas",
	TasksEdit:        "Editar tareas",
	TasksDelete:      "Eliminar tareas",
	MaterialsViewAll: "Ver inventario de todas las obras",
	MaterialsView:    "Ver inventario de obras asignadas",
	MaterialsEdit:    "Editar catálogo de materiales",
	MaterialsMove:    "Registrar movimientos de inventario",
	TeamViewAll:      "Ver todo el personal",
	TeamView:         "Ver personal de obras asignadas",
	TeamManage:       "Gestionar personal y subcontratistas",
	TeamAssign:       "Asignar personal a proyectos",
	QualityViewAll:   "Ver todas las inspecciones",
	QualityView:      "Ver inspecciones de obras asignadas",
	QualityInspect:   "Registrar inspecciones",
	QualityClose:     "Cerrar inspecciones",
	PhotosViewAll:    "Ver todas las fotos",
	PhotosView:       "Ver fotos de obras asignadas",
	PhotosUpload:     "Subir fotos",
	PhotosDelete:     "Eliminar fotos",
	ReportsViewAll:   "Ver todos los reportes",
	ReportsView:      "Ver reportes de obras asignadas",
	ReportsGenerate:  "Generar reportes",
	ReportsShare:     "Compartir reportes",
	AuditView:        "Ver bitácora de auditoría",
	UsersManage:      "Gestionar usuarios",
}

var ErrUnknownPermission = errors.New("permiso desconocido")

// Known reports whether perm is part of the canonical catalog.
func Known(perm string) bool {
	_, ok := catalog[perm]
	return ok
}

// Describe returns the human label of a permission, or "" if unknown.
func Describe(perm string) string {
	return catalog[perm]
}

// All returns the catalog sorted by permission string.
func All() []string {
	out := make([]string, 0, len(catalog))
	for p := range catalog {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Validate returns ErrUnknownPermission listing every string not in the catalog.
func Validate(perms []string) error {
	var unknown []string
	for _, p := range perms {
		if !Known(p) {
			unknown = append(unknown, p)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownPermission, strings.Join(unknown, ", "))
}

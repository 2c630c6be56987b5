package access

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Roles maps a role name to the permissions a new user of that role gets.
type Roles map[string][]string

func DefaultRoles() Roles {
	return Roles{
		"admin": All(),
		"gerente": {
			ProjectsViewAll, ProjectsView, ProjectsCreate, ProjectsEdit,
			TasksViewAll, TasksView, TasksCreate, TasksEdit, TasksDelete,
			MaterialsViewAll, MaterialsView, MaterialsEdit,
			TeamViewAll, TeamView, TeamManage, TeamAssign,
			QualityViewAll, QualityView, QualityClose,
			PhotosViewAll, PhotosView, PhotosUpload, PhotosDelete,
			ReportsViewAll, ReportsView, ReportsGenerate, ReportsShare,
			AuditView,
		},
		"residente": {
			ProjectsView, ProjectsEdit,
			TasksView, TasksCreate, TasksEdit,
			MaterialsView, MaterialsMove,
			TeamView, TeamAssign,
			QualityView, QualityInspect,
			PhotosView, PhotosUpload,
			ReportsView, ReportsGenerate,
		},
		"supervisor": {
			ProjectsView, TasksView, TasksEdit,
			QualityView, QualityInspect, QualityClose,
			PhotosView, PhotosUpload,
			ReportsView,
		},
		"almacen": {
			ProjectsView, MaterialsView, MaterialsEdit, MaterialsMove,
		},
		"viewer": {
			ProjectsView, TasksView, MaterialsView, TeamView,
			QualityView, PhotosView, ReportsView,
		},
	}
}

// For returns a copy of the role's permission list; unknown roles get nothing.
func (r Roles) For(role string) []string {
	perms, ok := r[role]
	if !ok {
		return nil
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

type rolesFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// LoadRoles reads a YAML document of the form
//
//	roles:
//	  residente: [proyectos.ver, tareas.ver]
//
// on top of DefaultRoles. Every permission must be in the catalog.
func LoadRoles(path string) (Roles, error) {
	roles := DefaultRoles()
	if path == "" {
		return roles, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roles file: %w", err)
	}

	var doc rolesFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse roles file: %w", err)
	}

	for role, perms := range doc.Roles {
		if err := Validate(perms); err != nil {
			return nil, fmt.Errorf("role %q: %w", role, err)
		}
		roles[role] = perms
	}
	return roles, nil
}

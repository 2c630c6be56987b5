package view

// Badge colors. Keys are the stored enum values of every entity that shows a
// status or priority badge.
var StatusColors = map[string]string{
	// proyectos
	"planificacion": "blue",
	"en_progreso":   "yellow",
	"pausado":       "orange",
	"completado":    "green",
	"cancelado":     "red",

	// tareas
	"PENDING":     "gray",
	"IN_PROGRESS": "blue",
	"REVIEW":      "purple",
	"COMPLETED":   "green",
	"CANCELLED":   "red",

	// inspecciones
	"programada":  "gray",
	"en_curso":    "blue",
	"aprobada":    "green",
	"rechazada":   "red",
	"condicional": "yellow",

	// inventario
	"normal":  "green",
	"bajo":    "yellow",
	"agotado": "red",

	// personal
	"activo":   "green",
	"inactivo": "gray",
}

var PriorityColors = map[string]string{
	"baja":    "gray",
	"media":   "blue",
	"alta":    "orange",
	"critica": "red",

	"LOW":    "gray",
	"MEDIUM": "blue",
	"HIGH":   "orange",
	"URGENT": "red",
}

const defaultColor = "gray"

func StatusColor(status string) string {
	if c, ok := StatusColors[status]; ok {
		return c
	}
	return defaultColor
}

func PriorityColor(priority string) string {
	if c, ok := PriorityColors[priority]; ok {
		return c
	}
	return defaultColor
}

// Package view turns filtered entities into display records for a layout.
package view

import (
	"fmt"
	"strings"

	"obra-manager/internal/access"
)

type Layout string

const (
	LayoutCards  Layout = "cards"
	LayoutTable  Layout = "table"
	LayoutKanban Layout = "kanban"
)

// ParseLayout falls back to cards for empty or unknown input.
func ParseLayout(s string) Layout {
	switch Layout(strings.ToLower(strings.TrimSpace(s))) {
	case LayoutTable:
		return LayoutTable
	case LayoutKanban:
		return LayoutKanban
	default:
		return LayoutCards
	}
}

// Displayable is implemented by entities that can be listed.
type Displayable interface {
	DisplayID() uint
	DisplayTitle() string
	DisplaySubtitle() string
	StatusKey() string
	PriorityKey() string
	Progress() float64
	DisplayFields() map[string]string
}

type Action struct {
	Name   string `json:"nombre"`
	Label  string `json:"etiqueta"`
	Method string `json:"metodo"`
	Href   string `json:"href"`
}

// ActionRule is offered only to callers holding Permission.
type ActionRule struct {
	Name       string
	Label      string
	Method     string
	Suffix     string
	Permission string
}

// Spec describes how one entity kind is displayed.
type Spec struct {
	BasePath string
	Fields   map[Layout][]string
	Actions  []ActionRule
}

type Record struct {
	ID            uint              `json:"id"`
	Title         string            `json:"titulo"`
	Subtitle      string            `json:"subtitulo,omitempty"`
	Status        string            `json:"estado"`
	StatusColor   string            `json:"colorEstado"`
	Priority      string            `json:"prioridad,omitempty"`
	PriorityColor string            `json:"colorPrioridad,omitempty"`
	Progress      *float64          `json:"avance,omitempty"`
	Fields        map[string]string `json:"campos,omitempty"`
	Actions       []Action          `json:"acciones"`
}

// Select maps every item to a Record holding only the fields layout needs.
func Select[T Displayable](items []T, layout Layout, spec Spec, p *access.Principal) []Record {
	out := make([]Record, 0, len(items))
	wanted := spec.Fields[layout]
	for _, it := range items {
		out = append(out, selectOne(it, layout, wanted, spec, p))
	}
	return out
}

func selectOne(it Displayable, layout Layout, wanted []string, spec Spec, p *access.Principal) Record {
	rec := Record{
		ID:          it.DisplayID(),
		Title:       it.DisplayTitle(),
		Status:      it.StatusKey(),
		StatusColor: StatusColor(it.StatusKey()),
		Actions:     Actions(spec, it.DisplayID(), p),
	}

	if pr := it.PriorityKey(); pr != "" {
		rec.Priority = pr
		rec.PriorityColor = PriorityColor(pr)
	}

	// kanban cards stay compact: no subtitle, no progress bar
	if layout != LayoutKanban {
		rec.Subtitle = it.DisplaySubtitle()
		progress := it.Progress()
		rec.Progress = &progress
	}

	if len(wanted) > 0 {
		all := it.DisplayFields()
		rec.Fields = make(map[string]string, len(wanted))
		for _, f := range wanted {
			if v, ok := all[f]; ok {
				rec.Fields[f] = v
			}
		}
	}
	return rec
}

// Actions lists the actions p may perform on entity id.
func Actions(spec Spec, id uint, p *access.Principal) []Action {
	out := make([]Action, 0, len(spec.Actions))
	for _, a := range spec.Actions {
		if !access.HasPermission(p, a.Permission) {
			continue
		}
		out = append(out, Action{
			Name:   a.Name,
			Label:  a.Label,
			Method: a.Method,
			Href:   fmt.Sprintf("%s/%d%s", spec.BasePath, id, a.Suffix),
		})
	}
	return out
}

type Column struct {
	Status string   `json:"estado"`
	Color  string   `json:"color"`
	Items  []Record `json:"items"`
}

// Board groups records into kanban columns in the given status order. Records
// with a status outside order are appended as extra columns in first-seen order.
func Board(records []Record, order []string) []Column {
	idx := make(map[string]int, len(order))
	cols := make([]Column, 0, len(order))
	for _, s := range order {
		idx[s] = len(cols)
		cols = append(cols, Column{Status: s, Color: StatusColor(s), Items: []Record{}})
	}
	for _, r := range records {
		i, ok := idx[r.Status]
		if !ok {
			i = len(cols)
			idx[r.Status] = i
			cols = append(cols, Column{Status: r.Status, Color: StatusColor(r.Status), Items: []Record{}})
		}
		cols[i].Items = append(cols[i].Items, r)
	}
	return cols
}

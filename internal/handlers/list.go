package handlers

import (
	"net/http"

	"obra-manager/internal/filter"
	"obra-manager/internal/middleware"
	"obra-manager/internal/stats"
	"obra-manager/internal/view"

	"github.com/gin-gonic/gin"
)

// listable entities go through the whole filter → stats → view pipeline.
type listable interface {
	filter.Record
	stats.Measurable
	view.Displayable
}

type listSpec struct {
	Query    filter.QuerySpec
	ViewAll  string
	Terminal []string
	Sums     []string
	View     view.Spec
	Columns  []string
}

type listResult[T listable] struct {
	Visible []T
	Summary stats.Summary
	Layout  view.Layout
	Records []view.Record
}

func buildList[T listable](c *gin.Context, items []T, ls listSpec) listResult[T] {
	p := middleware.Principal(c)
	crit := filter.ParseQuery(c.Request.URL.Query(), ls.Query)
	visible := filter.Resolve(items, crit, filter.ScopeFor(p, ls.ViewAll))
	layout := view.ParseLayout(c.Query("vista"))

	return listResult[T]{
		Visible: visible,
		Summary: stats.Aggregate(visible, ls.Terminal, ls.Sums...),
		Layout:  layout,
		Records: view.Select(visible, layout, ls.View, p),
	}
}

func respondList[T listable](c *gin.Context, items []T, ls listSpec) {
	res := buildList(c, items, ls)
	resp := gin.H{
		"items":   res.Records,
		"resumen": res.Summary,
		"vista":   res.Layout,
	}
	if res.Layout == view.LayoutKanban {
		resp["columnas"] = view.Board(res.Records, ls.Columns)
	}
	c.JSON(http.StatusOK, resp)
}

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"obra-manager/internal/access"
	"obra-manager/internal/database"
	"obra-manager/internal/filter"
	"obra-manager/internal/middleware"
	"obra-manager/internal/models"
	"obra-manager/internal/view"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	msgInventoryNotFound = "Inventario no encontrado"
	// lots expiring within this window raise an alert
	expiryHorizon = 15 * 24 * time.Hour
)

var inventoryList = listSpec{
	Query: filter.QuerySpec{
		Fields:      []string{"material", "categoria", "ubicacion", "estado", "proyecto"},
		NumberField: "disponible",
	},
	ViewAll: access.MaterialsViewAll,
	Sums:    []string{"valor"},
	View: view.Spec{
		BasePath: "/api/inventory",
		Fields: map[view.Layout][]string{
			view.LayoutCards:  {"codigo", "unidad", "disponible", "valor"},
			view.LayoutTable:  {"codigo", "unidad", "fisica", "disponible", "reservada", "danada", "enTransito", "enPedido", "valor"},
			view.LayoutKanban: {"codigo", "disponible"},
		},
		Actions: []view.ActionRule{
			{Name: "ver", Label: "Ver", Method: http.MethodGet, Permission: access.MaterialsView},
			{Name: "movimiento", Label: "Registrar movimiento", Method: http.MethodPost, Suffix: "/movements", Permission: access.MaterialsMove},
			{Name: "conciliar", Label: "Conciliar", Method: http.MethodGet, Suffix: "/reconcile", Permission: access.MaterialsMove},
		},
	},
	Columns: []string{models.StockOut, models.StockLow, models.StockNormal},
}

func ListMaterials(c *gin.Context) {
	q := database.DB.WithContext(c.Request.Context()).Order("code asc")
	if cat := strings.TrimSpace(c.Query("categoria")); cat != "" {
		q = q.Where("category = ?", cat)
	}

	var materials []models.Material
	if err := q.Find(&materials).Error; err != nil {
		internalError(c, "list materials", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": materials})
}

type materialRequest struct {
	Code     string          `json:"codigo" binding:"required,max=32"`
	Name     string          `json:"nombre" binding:"required,max=255"`
	Unit     string          `json:"unidad" binding:"required,max=20"`
	Category string          `json:"categoria" binding:"max=64"`
	UnitCost decimal.Decimal `json:"costoUnitario"`
	MinStock float64         `json:"stockMinimo" binding:"gte=0"`
}

func CreateMaterial(c *gin.Context) {
	var req materialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	if req.UnitCost.IsNegative() {
		fieldError(c, "costoUnitario", "gte", "debe ser al menos 0")
		return
	}

	material := models.Material{
		Code:     strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:     strings.TrimSpace(req.Name),
		Unit:     strings.TrimSpace(req.Unit),
		Category: strings.TrimSpace(req.Category),
		UnitCost: req.UnitCost,
		MinStock: req.MinStock,
	}

	var count int64
	if err := database.DB.Unscoped().Model(&models.Material{}).Where("code = ?", material.Code).Count(&count).Error; err != nil {
		internalError(c, "check material code", err)
		return
	}
	if count > 0 {
		badRequest(c, "Ya existe un material con ese código")
		return
	}

	if err := database.DB.Create(&material).Error; err != nil {
		internalError(c, "create material", err)
		return
	}

	audit(c, "material", material.ID, "create", "Material creado: "+material.Code)
	c.JSON(http.StatusCreated, material)
}

func ListInventory(c *gin.Context) {
	var items []models.MaterialInventory
	if err := database.DB.WithContext(c.Request.Context()).Preload("Material").Order("id asc").Find(&items).Error; err != nil {
		internalError(c, "list inventory", err)
		return
	}
	respondList(c, items, inventoryList)
}

type inventoryRequest struct {
	MaterialID uint    `json:"materialId" binding:"required"`
	ProjectID  uint    `json:"proyectoId" binding:"required"`
	Location   string  `json:"ubicacion" binding:"required,max=100"`
	Initial    float64 `json:"cantidadInicial" binding:"gte=0"`
}

// CreateInventory opens a stock location. A non-zero initial quantity is
// recorded as an entrada so the movement history stays complete.
func CreateInventory(c *gin.Context) {
	var req inventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}
	if !canSee(c, access.MaterialsViewAll, req.ProjectID) {
		return
	}

	var material models.Material
	if err := database.DB.First(&material, req.MaterialID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fieldError(c, "materialId", "exists", "el material no existe")
			return
		}
		internalError(c, "load material", err)
		return
	}

	var dup int64
	err := database.DB.Unscoped().Model(&models.MaterialInventory{}).
		Where("material_id = ? AND project_id = ? AND location = ?", req.MaterialID, req.ProjectID, strings.TrimSpace(req.Location)).
		Count(&dup).Error
	if err != nil {
		internalError(c, "check inventory", err)
		return
	}
	if dup > 0 {
		badRequest(c, "El material ya tiene inventario en esa ubicación")
		return
	}

	inv := models.MaterialInventory{
		MaterialID: material.ID,
		Material:   material,
		ProjectID:  req.ProjectID,
		Location:   strings.TrimSpace(req.Location),
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Material").Create(&inv).Error; err != nil {
			return err
		}
		if req.Initial <= 0 {
			return nil
		}
		if err := inv.Apply(models.MovementIn, req.Initial); err != nil {
			return err
		}
		mv := models.Movement{
			InventoryID:  inv.ID,
			Type:         models.MovementIn,
			Quantity:     req.Initial,
			Reference:    "inventario inicial",
			UserID:       userID(c),
			BalanceAfter: inv.Fisica,
		}
		if err := tx.Create(&mv).Error; err != nil {
			return err
		}
		return tx.Omit("Material").Save(&inv).Error
	})
	if err != nil {
		internalError(c, "create inventory", err)
		return
	}

	audit(c, "inventory", inv.ID, "create", fmt.Sprintf("Inventario de %s en %s", material.Code, inv.Location))
	c.JSON(http.StatusCreated, inv)
}

func GetInventory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var inv models.MaterialInventory
	if !load(c, &inv, id, msgInventoryNotFound, "Material", "Batches") {
		return
	}
	if !canSee(c, access.MaterialsViewAll, inv.ProjectID) {
		return
	}

	var movements []models.Movement
	if err := database.DB.Where("inventory_id = ?", id).Order("id desc").Limit(50).Find(&movements).Error; err != nil {
		internalError(c, "inventory movements", err)
		return
	}
	var alerts []models.InventoryAlert
	if err := database.DB.Where("inventory_id = ? AND resolved = ?", id, false).Order("id desc").Find(&alerts).Error; err != nil {
		internalError(c, "inventory alerts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"inventario":  inv,
		"estado":      inv.StockStatus(),
		"valor":       inv.Value(),
		"movimientos": movements,
		"alertas":     alerts,
	})
}

type movementRequest struct {
	Type      string  `json:"tipo" binding:"required,oneof=entrada salida ajuste traslado reserva liberacion dano pedido"`
	Quantity  float64 `json:"cantidad" binding:"required"`
	Reference string  `json:"referencia" binding:"max=100"`
	Notes     string  `json:"notas"`
	// traslado only
	DestinationID uint `json:"destinoId"`
	// entrada only
	Lot       string `json:"lote" binding:"max=64"`
	ExpiresAt string `json:"vence" binding:"omitempty,datetime=2006-01-02"`
}

type movementOutcome struct {
	Inventory   models.MaterialInventory
	Movement    models.Movement
	Destination *models.MaterialInventory
	NewAlerts   []models.InventoryAlert
}

// RegisterMovement is the only way stock quantities change. The movement row,
// the quantity update and any alerts are written in one transaction.
func RegisterMovement(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req movementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalid(c, err)
		return
	}

	var head models.MaterialInventory
	if !load(c, &head, id, msgInventoryNotFound) {
		return
	}
	if !canSee(c, access.MaterialsViewAll, head.ProjectID) {
		return
	}

	kind := models.MovementType(req.Type)
	if req.Type == "traslado" {
		if req.DestinationID == 0 || req.DestinationID == id {
			fieldError(c, "destinoId", "required", "un traslado requiere un inventario destino distinto")
			return
		}
		kind = models.MovementTransferOut

		var dst models.MaterialInventory
		err := database.DB.WithContext(c.Request.Context()).Select("id", "project_id").First(&dst, req.DestinationID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fieldError(c, "destinoId", "exists", errBadDestination.Error())
			return
		}
		if err != nil {
			internalError(c, "load destination", err)
			return
		}
		if !canSee(c, access.MaterialsViewAll, dst.ProjectID) {
			return
		}
	}

	var out movementOutcome
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = applyMovement(tx, id, kind, req, userID(c))
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInsufficientStock), errors.Is(err, models.ErrInvalidQuantity):
			fieldError(c, "cantidad", "stock", err.Error())
		case errors.Is(err, errBadDestination):
			fieldError(c, "destinoId", "exists", err.Error())
		case errors.Is(err, gorm.ErrRecordNotFound):
			notFound(c, msgInventoryNotFound)
		default:
			internalError(c, "register movement", err)
		}
		return
	}

	notifyStockAlerts(out.Inventory, out.NewAlerts)
	audit(c, "inventory", id, "movement",
		fmt.Sprintf("%s %.2f %s (saldo %.2f)", kind, req.Quantity, out.Inventory.Material.Unit, out.Inventory.Fisica))

	resp := gin.H{
		"inventario": out.Inventory,
		"movimiento": out.Movement,
		"alertas":    out.NewAlerts,
	}
	if out.Destination != nil {
		resp["destino"] = out.Destination
	}
	c.JSON(http.StatusCreated, resp)
}

var errBadDestination = errors.New("inventario destino inválido")

func lockInventory(tx *gorm.DB, id uint) (models.MaterialInventory, error) {
	var inv models.MaterialInventory
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Material").
		Preload("Batches").
		First(&inv, id).Error
	return inv, err
}

func applyMovement(tx *gorm.DB, id uint, kind models.MovementType, req movementRequest, uid uint) (movementOutcome, error) {
	var out movementOutcome

	inv, err := lockInventory(tx, id)
	if err != nil {
		return out, err
	}
	if err := inv.Apply(kind, req.Quantity); err != nil {
		return out, err
	}

	mv := models.Movement{
		InventoryID:  inv.ID,
		Type:         kind,
		Quantity:     req.Quantity,
		Reference:    strings.TrimSpace(req.Reference),
		Notes:        strings.TrimSpace(req.Notes),
		UserID:       uid,
		BalanceAfter: inv.Fisica,
	}

	if kind == models.MovementTransferOut {
		dst, err := lockInventory(tx, req.DestinationID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return out, errBadDestination
		}
		if err != nil {
			return out, err
		}
		if dst.MaterialID != inv.MaterialID {
			return out, fmt.Errorf("%w: material distinto", errBadDestination)
		}
		if err := dst.Apply(models.MovementTransferIn, req.Quantity); err != nil {
			return out, err
		}
		dstID := dst.ID
		mv.CounterpartID = &dstID
		if err := tx.Create(&mv).Error; err != nil {
			return out, err
		}

		srcID := inv.ID
		in := models.Movement{
			InventoryID:   dst.ID,
			Type:          models.MovementTransferIn,
			Quantity:      req.Quantity,
			Reference:     mv.Reference,
			Notes:         mv.Notes,
			UserID:        uid,
			CounterpartID: &srcID,
			BalanceAfter:  dst.Fisica,
		}
		if err := tx.Create(&in).Error; err != nil {
			return out, err
		}
		if err := tx.Omit(clause.Associations).Save(&dst).Error; err != nil {
			return out, err
		}
		out.Destination = &dst
	} else if err := tx.Create(&mv).Error; err != nil {
		return out, err
	}

	switch kind {
	case models.MovementIn:
		if lot := strings.TrimSpace(req.Lot); lot != "" {
			b := models.Batch{InventoryID: inv.ID, Lot: lot, Quantity: req.Quantity, ExpiresAt: parseDate(req.ExpiresAt)}
			if err := tx.Create(&b).Error; err != nil {
				return out, err
			}
			inv.Batches = append(inv.Batches, b)
		}
	case models.MovementOut, models.MovementTransferOut, models.MovementDamage:
		for _, b := range models.ConsumeBatches(inv.Batches, req.Quantity) {
			if err := tx.Model(&models.Batch{}).Where("id = ?", b.ID).Update("quantity", b.Quantity).Error; err != nil {
				return out, err
			}
			for i := range inv.Batches {
				if inv.Batches[i].ID == b.ID {
					inv.Batches[i].Quantity = b.Quantity
				}
			}
		}
	}

	if err := tx.Omit(clause.Associations).Save(&inv).Error; err != nil {
		return out, err
	}

	alerts, err := raiseAlerts(tx, inv.PendingAlerts(Now(), expiryHorizon))
	if err != nil {
		return out, err
	}

	out.Inventory = inv
	out.Movement = mv
	out.NewAlerts = alerts
	return out, nil
}

// raiseAlerts stores the candidates that do not already have an open alert of
// the same type and returns the ones created.
func raiseAlerts(tx *gorm.DB, candidates []models.InventoryAlert) ([]models.InventoryAlert, error) {
	created := make([]models.InventoryAlert, 0, len(candidates))
	for _, a := range candidates {
		var open int64
		err := tx.Model(&models.InventoryAlert{}).
			Where("inventory_id = ? AND type = ? AND resolved = ?", a.InventoryID, a.Type, false).
			Count(&open).Error
		if err != nil {
			return nil, err
		}
		if open > 0 {
			continue
		}
		if err := tx.Create(&a).Error; err != nil {
			return nil, err
		}
		created = append(created, a)
	}
	return created, nil
}

func notifyStockAlerts(inv models.MaterialInventory, alerts []models.InventoryAlert) {
	if len(alerts) == 0 {
		return
	}

	var project models.Project
	if err := database.DB.First(&project, inv.ProjectID).Error; err != nil || project.ManagerID == 0 {
		return
	}
	var manager models.User
	if err := database.DB.First(&manager, project.ManagerID).Error; err != nil || manager.Email == "" {
		return
	}

	msgs := make([]string, 0, len(alerts))
	for _, a := range alerts {
		msgs = append(msgs, a.Message)
	}
	Notifier.StockAlerts([]string{manager.Email}, project.Name, msgs)
}

// ReconcileInventory checks stored quantities against the movement history and
// opens a discrepancia alert when they disagree.
func ReconcileInventory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var inv models.MaterialInventory
	if !load(c, &inv, id, msgInventoryNotFound, "Material") {
		return
	}
	if !canSee(c, access.MaterialsViewAll, inv.ProjectID) {
		return
	}

	var movements []models.Movement
	if err := database.DB.Where("inventory_id = ?", id).Order("id asc").Find(&movements).Error; err != nil {
		internalError(c, "reconcile movements", err)
		return
	}

	rec := models.Reconcile(inv, movements)

	var alerts []models.InventoryAlert
	if !rec.Consistente {
		var err error
		alerts, err = raiseAlerts(database.DB, []models.InventoryAlert{{
			InventoryID: inv.ID,
			Type:        models.AlertMismatch,
			Message:     "Discrepancia en " + inv.Material.Name + ": " + strings.Join(rec.Diferencias, "; "),
		}})
		if err != nil {
			internalError(c, "reconcile alert", err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"conciliacion": rec, "alertas": alerts})
}

// ListAlerts returns open alerts of the inventories the caller can see;
// ?resueltas=true includes resolved ones.
func ListAlerts(c *gin.Context) {
	q := database.DB.WithContext(c.Request.Context()).
		Table("inventory_alerts").
		Select("inventory_alerts.*").
		Joins("JOIN material_inventories ON material_inventories.id = inventory_alerts.inventory_id AND material_inventories.deleted_at IS NULL").
		Order("inventory_alerts.id desc")

	if c.Query("resueltas") != "true" {
		q = q.Where("inventory_alerts.resolved = ?", false)
	}
	if t := strings.TrimSpace(c.Query("tipo")); t != "" {
		q = q.Where("inventory_alerts.type IN ?", strings.Split(t, ","))
	}

	p := middleware.Principal(c)
	if !access.HasPermission(p, access.MaterialsViewAll) {
		if p == nil || len(p.Projects) == 0 {
			c.JSON(http.StatusOK, gin.H{"items": []models.InventoryAlert{}})
			return
		}
		q = q.Where("material_inventories.project_id IN ?", p.Projects)
	}

	alerts := []models.InventoryAlert{}
	if err := q.Find(&alerts).Error; err != nil {
		internalError(c, "list alerts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": alerts})
}

func ResolveAlert(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var alert models.InventoryAlert
	if !load(c, &alert, id, "Alerta no encontrada") {
		return
	}
	var inv models.MaterialInventory
	if !load(c, &inv, alert.InventoryID, msgInventoryNotFound) {
		return
	}
	if !canSee(c, access.MaterialsViewAll, inv.ProjectID) {
		return
	}

	if err := database.DB.Model(&alert).Update("resolved", true).Error; err != nil {
		internalError(c, "resolve alert", err)
		return
	}

	audit(c, "inventory", inv.ID, "alert_resolved", string(alert.Type)+": "+alert.Message)
	c.JSON(http.StatusOK, alert)
}

package database

import (
	"obra-manager/internal/logger"
	"obra-manager/internal/models"

	"go.uber.org/zap"
)

// CreateAuditLog records a mutation. Failures are logged and otherwise ignored.
func CreateAuditLog(userID uint, entity string, entityID uint, action, details string) {
	if DB == nil {
		return
	}
	record := models.AuditLog{
		UserID:   userID,
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Details:  details,
	}
	if err := DB.Create(&record).Error; err != nil {
		logger.L.Warn("failed to write audit log", zap.String("entity", entity), zap.Uint("entity_id", entityID), zap.Error(err))
	}
}

package middleware

import (
	"strconv"

	"github.com/eproba/eproba-api/internal/constants"
	"github.com/eproba/eproba-api/internal/database"
	apierrors "github.com/eproba/eproba-api/internal/errors"
	"github.com/eproba/eproba-api/internal/models"
	"github.com/eproba/eproba-api/internal/permissions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RequireWorksheetAccess loads the worksheet from the id URL parameter
// and checks the read rule. Unreadable worksheets answer 404, not 403,
// so their existence does not leak.
func RequireWorksheetAccess(engine *permissions.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		worksheetID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "invalid worksheet ID")
			c.Abort()
			return
		}

		user, ok := GetCurrentUser(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		var ws models.Worksheet
		err = database.GetDB().
			Scopes(database.Alive).
			Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("tasks.sort_order, tasks.id") }).
			Preload("User.Patrol.Team").
			Preload("Supervisor.Patrol").
			First(&ws, worksheetID).Error
		if err != nil {
			apierrors.NotFound(c, "worksheet not found")
			c.Abort()
			return
		}

		if !engine.CanReadWorksheet(user, &ws) {
			apierrors.NotFound(c, "worksheet not found")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyWorksheet, &ws)
		c.Next()
	}
}

// GetWorksheet retrieves the preloaded worksheet from context
func GetWorksheet(c *gin.Context) (*models.Worksheet, bool) {
	raw, exists := c.Get(constants.ContextKeyWorksheet)
	if !exists {
		return nil, false
	}
	ws, ok := raw.(*models.Worksheet)
	return ws, ok
}

package controller

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/storefront/commerce-backend/internal/errors"
	"github.com/storefront/commerce-backend/internal/export"
	"github.com/storefront/commerce-backend/internal/middleware"
	"github.com/xuri/excelize/v2"
)

// writeWorkbook streams f as an attachment.
func writeWorkbook(c *gin.Context, f *excelize.File, filename string) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to render workbook", err, map[string]interface{}{
			"filename": filename,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/supplydropp/provisioning/internal/app"
	"github.com/supplydropp/provisioning/internal/domain"
	"github.com/supplydropp/provisioning/internal/webserver"
)

func registerJobRoutes() {
	webserver.ApiGET("/admin/jobs", listJobs)
	webserver.ApiPOST("/admin/jobs/:name/run", runJob)
	webserver.ApiGET("/admin/audit", listAuditLog)
}

func listJobs(c echo.Context) error {
	return ok(c, GetAppContext(c).Jobs())
}

// runJob triggers a periodic job immediately
func runJob(c echo.Context) error {
	name := strings.TrimSpace(c.Param("name"))
	if err := GetAppContext(c).RunJobNow(name); err != nil {
		if errors.Is(err, app.ErrUnknownJob) {
			return fail(c, http.StatusNotFound, "NOT_FOUND", "Job not found", nil)
		}
		return fail(c, http.StatusInternalServerError, "RUN_FAILED", "Failed to run job", err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// listAuditLog pages through the operation log, newest first
func listAuditLog(c echo.Context) error {
	db := GetDB(c)
	page, pageSize := parsePagination(c)

	query := db.Model(&domain.SysOprLog{})
	if action := strings.TrimSpace(c.QueryParam("action")); action != "" {
		query = query.Where("opt_action = ?", action)
	}
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		if strings.EqualFold(db.Name(), "postgres") {
			query = query.Where("opt_desc ILIKE ?", "%"+q+"%")
		} else {
			query = query.Where("LOWER(opt_desc) LIKE ?", "%"+strings.ToLower(q)+"%")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return failErr(c, err, "Audit log")
	}
	var rows []domain.SysOprLog
	err := query.Order("opt_time DESC").Limit(pageSize).Offset((page - 1) * pageSize).Find(&rows).Error
	if err != nil {
		return failErr(c, err, "Audit log")
	}
	return paged(c, rows, total, page, pageSize)
}

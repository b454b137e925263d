package handler

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/roster-api/internal/dto"
	"github.com/campusworks/roster-api/internal/models"
	"github.com/campusworks/roster-api/internal/service"
	appErrors "github.com/campusworks/roster-api/pkg/errors"
	"github.com/campusworks/roster-api/pkg/export"
	"github.com/campusworks/roster-api/pkg/response"
	"github.com/campusworks/roster-api/pkg/storage"
)

// ScheduleHandler serves read-only schedule views and export artifacts.
type ScheduleHandler struct {
	view   *service.ScheduleViewService
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	store  *storage.ExportStore
	signer *storage.DownloadSigner
}

// NewScheduleHandler creates a new handler. Store and signer may be nil,
// in which case exports are streamed without a persisted copy.
func NewScheduleHandler(view *service.ScheduleViewService, store *storage.ExportStore, signer *storage.DownloadSigner) *ScheduleHandler {
	return &ScheduleHandler{
		view:   view,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		store:  store,
		signer: signer,
	}
}

func staffKindQuery(c *gin.Context) (models.StaffKind, error) {
	kind := models.StaffKind(c.DefaultQuery("kind", string(models.StaffHelpDesk)))
	if !kind.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, "kind must be helpdesk or lab")
	}
	return kind, nil
}

// Current godoc
// @Summary Current schedule grid
// @Tags Schedule
// @Produce json
// @Param kind query string false "helpdesk or lab"
// @Param include_available query bool false "Annotate empty slots with available staff"
// @Success 200 {object} response.Envelope
// @Router /schedule/current [get]
func (h *ScheduleHandler) Current(c *gin.Context) {
	kind, err := staffKindQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	includeAvailable := c.Query("include_available") == "true"
	grid, err := h.view.Grid(c.Request.Context(), kind, includeAvailable)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "", grid)
}

// Dashboard godoc
// @Summary Volunteer dashboard for the caller
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /volunteer/dashboard [get]
func (h *ScheduleHandler) Dashboard(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	dashboard, err := h.view.Dashboard(c.Request.Context(), claims.Username)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "", dashboard)
}

// Export godoc
// @Summary Export the current schedule as CSV or PDF
// @Tags Schedule
// @Produce octet-stream
// @Param kind query string false "helpdesk or lab"
// @Param format query string false "csv or pdf"
// @Param link query bool false "Return a signed download link instead of streaming"
// @Success 200 {file} binary
// @Router /schedule/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	kind, err := staffKindQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	if format != "csv" && format != "pdf" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}

	grid, err := h.view.Grid(c.Request.Context(), kind, false)
	if err != nil {
		response.Error(c, err)
		return
	}

	dataset := flattenGrid(grid)
	var (
		payload     []byte
		contentType string
	)
	switch format {
	case "pdf":
		payload, err = h.pdf.Render(dataset, exportTitle(grid))
		contentType = "application/pdf"
	default:
		payload, err = h.csv.Render(dataset)
		contentType = "text/csv"
	}
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to render export"))
		return
	}

	filename := fmt.Sprintf("schedule-%s-%s.%s", grid.Kind, time.Now().UTC().Format("20060102-150405"), format)
	if h.store != nil {
		if _, err := h.store.Save(filename, payload); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to persist export"))
			return
		}
	}

	if c.Query("link") == "true" {
		if h.store == nil || h.signer == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "signed download links are not configured"))
			return
		}
		token, expiresAt, err := h.signer.Sign(string(kind), filename)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to sign download link"))
			return
		}
		response.OK(c, "", gin.H{
			"token":      token,
			"filename":   filename,
			"expires_at": expiresAt.UTC().Format(time.RFC3339),
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}

// Download streams a previously exported artifact identified by a signed token.
func (h *ScheduleHandler) Download(c *gin.Context) {
	if h.store == nil || h.signer == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	_, artifact, err := h.signer.Verify(c.Query("token"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, http.StatusUnauthorized, "invalid or expired download token"))
		return
	}

	file, err := h.store.Open(artifact)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export artifact not found"))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read export artifact"))
		return
	}

	contentType := "text/csv"
	if strings.HasSuffix(artifact, ".pdf") {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact))
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}

func exportTitle(grid *dto.ScheduleGrid) string {
	label := "Help Desk"
	if grid.Kind == string(models.StaffLab) {
		label = "Lab"
	}
	return fmt.Sprintf("%s Schedule %s", label, grid.DateRange)
}

// flattenGrid reshapes the nested day/shift grid into a time-by-day table.
func flattenGrid(grid *dto.ScheduleGrid) export.Dataset {
	headers := make([]string, 0, len(grid.Days)+1)
	headers = append(headers, "Time")

	type slot struct {
		hour  int
		label string
	}
	seen := make(map[string]slot)
	for _, day := range grid.Days {
		headers = append(headers, fmt.Sprintf("%s %s", day.Day, day.Date))
		for _, shift := range day.Shifts {
			if _, ok := seen[shift.Time]; !ok {
				seen[shift.Time] = slot{hour: shift.Hour, label: shift.Time}
			}
		}
	}

	slots := make([]slot, 0, len(seen))
	for _, s := range seen {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].hour < slots[j].hour })

	rows := make([][]string, 0, len(slots))
	for _, s := range slots {
		row := make([]string, 0, len(headers))
		row = append(row, s.label)
		for _, day := range grid.Days {
			cell := "-"
			for _, shift := range day.Shifts {
				if shift.Time != s.label {
					continue
				}
				names := make([]string, 0, len(shift.Assistants))
				for _, staff := range shift.Assistants {
					names = append(names, staff.Name)
				}
				if len(names) > 0 {
					cell = strings.Join(names, ", ")
				}
				break
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}

	return export.Dataset{Headers: headers, Rows: rows}
}

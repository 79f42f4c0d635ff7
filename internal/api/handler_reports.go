package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"calibration-tracker/internal/report"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	pdfContentType  = "application/pdf"
)

// Report returns the filtered tracking report as JSON, XLSX or PDF, picked by ?format=.
func (h *Handler) Report(c *gin.Context) {
	h.renderReport(c, c.DefaultQuery("format", "json"))
}

// ExportReport renders the report in a fixed format.
func (h *Handler) ExportReport(format string) gin.HandlerFunc {
	return func(c *gin.Context) { h.renderReport(c, format) }
}

func (h *Handler) renderReport(c *gin.Context, format string) {
	f, err := report.ParseFilter(c.Request.URL.Query(), h.loc)
	if err != nil {
		respondError(c, err)
		return
	}
	rows, err := h.reports.Generate(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}

	now := h.now().In(h.loc)
	filename := "tracking-report-" + now.Format("20060102")

	var buf bytes.Buffer
	switch format {
	case "json":
		c.JSON(http.StatusOK, gin.H{"rows": rows, "count": len(rows)})
		return
	case "xlsx":
		if err := report.WriteXLSX(&buf, rows); err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, filename))
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
	case "pdf":
		if err := report.WritePDF(&buf, rows, now); err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, filename))
		c.Data(http.StatusOK, pdfContentType, buf.Bytes())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported format " + format})
	}
}

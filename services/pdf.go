package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

type PDFData struct {
	TravelerName string
	Destination  string
	Country      string
	StartDate    string
	EndDate      string
	Travelers    int
	DayPlans     []DayPlan
	TotalCost    float64
	AISummary    string
	Source       string // "ai" or "deterministic"
}

// GeneratePDFBytes renders the itinerary as a PDF and returns raw bytes (no
// filesystem needed).
func GeneratePDFBytes(data PDFData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	// ── Header Bar ───────────────────────────────────────────
	pdf.SetFillColor(13, 24, 37)
	pdf.Rect(0, 0, 210, 28, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetXY(20, 8)
	pdf.CellFormat(100, 10, "TripForge", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(212, 168, 67)
	pdf.SetXY(20, 18)
	pdf.CellFormat(170, 6, "Day-by-Day Travel Itinerary", "", 1, "L", false, 0, "")

	pdf.SetY(35)
	pdf.SetTextColor(0, 0, 0)

	// ── Disclaimer ───────────────────────────────────────────
	pdf.SetFillColor(255, 248, 225)
	pdf.SetDrawColor(212, 168, 67)
	pdf.SetTextColor(130, 90, 20)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetLineWidth(0.4)
	y := pdf.GetY()
	pdf.Rect(20, y, 170, 12, "FD")
	pdf.SetXY(23, y+2)
	disclaimer := "This is NOT a booking confirmation. Prices are estimates and subject to change. Please verify with providers before booking."
	if data.Source == "deterministic" {
		disclaimer = "SCHEDULE BUILT WITHOUT AI ASSISTANCE. This is NOT a booking confirmation. Verify all prices before booking."
	}
	pdf.MultiCell(164, 4, disclaimer, "", "C", false)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.2)
	pdf.Ln(6)

	// ── Section Helper ───────────────────────────────────────
	sectionHeader := func(title string) {
		pdf.SetFillColor(13, 24, 37)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(170, 8, "  "+title, "", 1, "L", true, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)
	}

	row := func(label, value string) {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(55, 7, label, "", 0, "L", false, 0, "")
		pdf.SetTextColor(20, 20, 20)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(115, 7, value, "", 1, "L", false, 0, "")
	}

	// ── Traveler Info ─────────────────────────────────────────
	sectionHeader("Traveler Information")
	name := data.TravelerName
	if name == "" {
		name = "Guest Traveler"
	}
	row("Name", name)
	row("Generated", time.Now().Format("02 Jan 2006, 15:04 UTC"))
	pdf.Ln(4)

	// ── Trip Overview ─────────────────────────────────────────
	sectionHeader("Trip Overview")
	destination := data.Destination
	if data.Country != "" {
		destination += ", " + data.Country
	}
	row("Destination", destination)
	row("Start", fmtDateReadable(data.StartDate))
	row("End", fmtDateReadable(data.EndDate))
	row("Days", fmt.Sprintf("%d", len(data.DayPlans)))
	if data.Travelers > 0 {
		row("Travelers", fmt.Sprintf("%d", data.Travelers))
	}
	pdf.Ln(4)

	// ── Day Plans ─────────────────────────────────────────────
	for _, plan := range data.DayPlans {
		if pdf.GetY() > 240 {
			pdf.AddPage()
		}
		sectionHeader(fmt.Sprintf("Day %d — %s", plan.Day, fmtDateReadable(plan.Date)))
		if len(plan.Activities) == 0 {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.SetTextColor(120, 120, 120)
			pdf.CellFormat(170, 7, "Free day", "", 1, "L", false, 0, "")
			pdf.SetTextColor(0, 0, 0)
		}
		for _, act := range plan.Activities {
			if pdf.GetY() > 260 {
				pdf.AddPage()
			}
			pdf.SetFont("Helvetica", "B", 9)
			pdf.SetTextColor(100, 100, 100)
			pdf.CellFormat(35, 6, act.Time, "", 0, "L", false, 0, "")
			pdf.SetTextColor(20, 20, 20)
			pdf.SetFont("Helvetica", "B", 10)
			pdf.CellFormat(95, 6, act.Title, "", 0, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
			cost := "—"
			if act.Cost > 0 {
				cost = fmt.Sprintf("$%.0f", act.Cost)
			}
			pdf.CellFormat(40, 6, cost, "", 1, "R", false, 0, "")
			if act.Location != "" {
				pdf.SetFont("Helvetica", "I", 8)
				pdf.SetTextColor(130, 130, 130)
				pdf.SetX(55)
				pdf.CellFormat(135, 4, truncate(act.Location, 80), "", 1, "L", false, 0, "")
				pdf.SetTextColor(0, 0, 0)
			}
		}
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetTextColor(130, 90, 20)
		pdf.CellFormat(170, 6, fmt.Sprintf("Day total: $%.0f", plan.TotalCost), "", 1, "R", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(3)
	}

	// ── Cost Summary ──────────────────────────────────────────
	if pdf.GetY() > 230 {
		pdf.AddPage()
	}
	sectionHeader("Cost Estimate")
	pdf.SetFillColor(212, 168, 67)
	pdf.SetTextColor(13, 24, 37)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(55, 9, "TOTAL ESTIMATE", "", 0, "L", true, 0, "")
	pdf.CellFormat(115, 9, fmt.Sprintf("$%.0f", data.TotalCost), "", 1, "L", true, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	// ── AI Summary ────────────────────────────────────────────
	if data.AISummary != "" {
		if pdf.GetY() > 230 {
			pdf.AddPage()
		}
		sectionHeader("Travel Notes")
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(40, 40, 40)
		pdf.MultiCell(170, 5, data.AISummary, "", "L", false)
		pdf.Ln(4)
	}

	// ── Footer ────────────────────────────────────────────────
	pdf.SetY(-22)
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.3)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(150, 150, 150)
	pdf.CellFormat(0, 8,
		"Generated by TripForge Travel Planner · Not a booking confirmation · Prices subject to change",
		"", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("PDF output failed: %w", err)
	}
	return buf.Bytes(), nil
}

func fmtDateReadable(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return t.Format("02 Jan 2006 (Mon)")
}

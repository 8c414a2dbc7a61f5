package pdf

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"

	"habitvault/internal/models"
)

// Generator renders printable task documents.
type Generator interface {
	GenerateAgenda(w io.Writer, data AgendaData) error
}

// AgendaGenerator lays out a user's active tasks on A4.
type AgendaGenerator struct {
	FontPath string // TTF with Cyrillic/extended glyphs; core Helvetica when empty
}

// agendaDoc is the state of a single render.
type agendaDoc struct {
	pdf  *gofpdf.Fpdf
	tr   func(string) string
	font string
}

type AgendaData struct {
	Owner       string
	Tasks       []models.Task
	GeneratedAt time.Time
	Location    *time.Location
}

func NewAgendaGenerator(fontPath string) *AgendaGenerator {
	return &AgendaGenerator{FontPath: fontPath}
}

func (g *AgendaGenerator) GenerateAgenda(w io.Writer, data AgendaData) error {
	loc := data.Location
	if loc == nil {
		loc = time.Local
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Task Agenda", true)
	pdf.SetAuthor("Habit Vault", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	doc := &agendaDoc{pdf: pdf}
	doc.setupFont(g.FontPath)
	pdf.AddPage()

	// ===== Header
	pdf.SetFont(doc.font, "B", 18)
	pdf.CellFormat(0, 10, doc.tr("Task Agenda"), "", 1, "C", false, 0, "")
	pdf.SetFont(doc.font, "", 11)
	sub := data.GeneratedAt.In(loc).Format("Monday, January 2, 2006 15:04")
	if data.Owner != "" {
		sub = data.Owner + "  ·  " + sub
	}
	pdf.CellFormat(0, 7, doc.tr(sub), "", 1, "C", false, 0, "")
	doc.hr()

	daily, deadlines := splitAgenda(data.Tasks)

	doc.section("Daily")
	if len(daily) == 0 {
		doc.empty()
	}
	for _, t := range daily {
		doc.row(t.TimeOfDayMinute(), t)
	}

	pdf.Ln(4)
	doc.section("Deadlines")
	if len(deadlines) == 0 {
		doc.empty()
	}
	for _, t := range deadlines {
		doc.row(t.Deadline.In(loc).Format("Jan 2 15:04"), t)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render agenda: %w", err)
	}
	return nil
}

// splitAgenda orders daily tasks by time of day and deadline tasks by deadline.
func splitAgenda(tasks []models.Task) (daily, deadlines []models.Task) {
	for _, t := range tasks {
		switch {
		case t.Kind == models.KindDaily && t.TimeOfDay != nil:
			daily = append(daily, t)
		case t.Kind == models.KindDeadline && t.Deadline != nil:
			deadlines = append(deadlines, t)
		}
	}
	sort.SliceStable(daily, func(i, j int) bool { return daily[i].TimeOfDayMinute() < daily[j].TimeOfDayMinute() })
	sort.SliceStable(deadlines, func(i, j int) bool { return deadlines[i].Deadline.Before(*deadlines[j].Deadline) })
	return daily, deadlines
}

// ===== helpers =====

func (d *agendaDoc) setupFont(fontPath string) {
	if fontPath != "" {
		if _, err := os.Stat(fontPath); err == nil {
			d.font = "DejaVu"
			d.pdf.AddUTF8Font(d.font, "", fontPath)
			d.pdf.AddUTF8Font(d.font, "B", fontPath)
			d.tr = func(s string) string { return s }
			return
		}
	}
	d.font = "Helvetica"
	d.tr = d.pdf.UnicodeTranslatorFromDescriptor("")
}

func (d *agendaDoc) section(title string) {
	d.pdf.SetFont(d.font, "B", 14)
	d.pdf.CellFormat(0, 9, d.tr(title), "", 1, "L", false, 0, "")
}

func (d *agendaDoc) empty() {
	d.pdf.SetFont(d.font, "", 11)
	d.pdf.SetTextColor(120, 120, 120)
	d.pdf.CellFormat(0, 7, d.tr("Nothing scheduled"), "", 1, "L", false, 0, "")
	d.pdf.SetTextColor(0, 0, 0)
}

func (d *agendaDoc) row(when string, t models.Task) {
	d.pdf.SetFont(d.font, "", 11)
	mark := "[ ]"
	if t.Completed {
		mark = "[x]"
	}
	if t.Priority == models.PriorityUrgent {
		d.pdf.SetTextColor(239, 68, 68)
	}
	d.pdf.CellFormat(12, 7, mark, "", 0, "L", false, 0, "")
	d.pdf.CellFormat(30, 7, d.tr(when), "", 0, "L", false, 0, "")
	d.pdf.CellFormat(100, 7, d.tr(t.Title), "", 0, "L", false, 0, "")
	d.pdf.CellFormat(0, 7, d.tr(string(t.Priority)), "", 1, "R", false, 0, "")
	d.pdf.SetTextColor(0, 0, 0)
}

func (d *agendaDoc) hr() {
	d.pdf.Ln(2)
	y := d.pdf.GetY()
	d.pdf.SetDrawColor(200, 200, 200)
	d.pdf.Line(20, y, 190, y)
	d.pdf.SetY(y + 4)
}

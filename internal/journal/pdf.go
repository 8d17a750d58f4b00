// Package journal renders a finished or ongoing game as a printable PDF.
package journal

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/jwebster45206/anima-narrator/pkg/chat"
	"github.com/jwebster45206/anima-narrator/pkg/state"
)

const (
	margin   = 48.0
	bodySize = 10.0
	lineH    = 13.0
)

// core fonts only cover cp1252
var glyphs = strings.NewReplacer("✓", "+", "✗", "x", "—", "-", "…", "...")

// Render writes the character sheet followed by the transcript. ASCII art is
// set in a monospace font; everything else wraps to the page width.
func Render(gs *state.GameState, title string) ([]byte, error) {
	if gs == nil {
		return nil, fmt.Errorf("no game state")
	}
	if title == "" {
		title = "Journal of " + gs.Player.Name
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(title, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(glyphs.Replace(s)) }

	pageW, _ := pdf.GetPageSize()
	width := pageW - 2*margin

	pdf.SetFooterFunc(func() {
		pdf.SetY(-margin + 12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 10, fmt.Sprintf("%d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(40, 25, 15)
	pdf.CellFormat(width, 24, text(title), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Courier", "", 9)
	pdf.SetFillColor(245, 235, 210)
	pdf.MultiCell(width, 11, text(gs.DescribeSheet()), "1", "L", true)
	pdf.Ln(10)

	for _, msg := range gs.Transcript {
		writeMessage(pdf, width, msg, text)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render journal: %w", err)
	}
	return buf.Bytes(), nil
}

func writeMessage(pdf *gofpdf.Fpdf, width float64, msg chat.ChatMessage, text func(string) string) {
	switch msg.Role {
	case chat.ChatRoleUser:
		pdf.SetFont("Helvetica", "B", bodySize)
		pdf.SetTextColor(30, 60, 120)
		pdf.MultiCell(width, lineH, text("> "+msg.Content), "", "L", false)
	case chat.ChatRoleArt:
		pdf.SetFont("Courier", "", 8)
		pdf.SetTextColor(60, 60, 60)
		pdf.MultiCell(width, 9, text(msg.Content), "", "L", false)
	case chat.ChatRoleRoll:
		pdf.SetFont("Courier", "", 8)
		pdf.SetTextColor(110, 40, 40)
		pdf.MultiCell(width, 10, text(msg.Content), "", "L", false)
	case chat.ChatRoleSystem:
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(110, 110, 110)
		pdf.MultiCell(width, lineH, text(msg.Content), "", "L", false)
	default:
		pdf.SetFont("Times", "", bodySize+1)
		pdf.SetTextColor(20, 20, 20)
		pdf.MultiCell(width, lineH+1, text(strings.TrimSpace(msg.Content)), "", "L", false)
	}
	pdf.Ln(6)
}

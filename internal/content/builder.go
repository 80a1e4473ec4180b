// Package content renders alert emails. Every function is a pure
// mapping from a view-model to strings: no clock reads, no store access,
// identical inputs produce byte-identical output.
package content

import (
	"fmt"
	"strings"

	"alert-dispatch-service/internal/models"
)

// AlertDetail pairs an alert with its looked-up context. Lot and
// Threshold may be nil when a lookup failed; rendering degrades to
// placeholders instead of dropping the alert.
type AlertDetail struct {
	Alert     models.Alert
	Lot       *models.LotInfo
	Threshold *models.ThresholdInfo
}

// Content is the rendered subject and bodies of one message.
type Content struct {
	Subject string
	HTML    string
	Text    string
}

const timeLayout = "2006-01-02 15:04"

// KindWord is the shared severity vocabulary for single and
// consolidated rendering.
func KindWord(k models.ThresholdKind) string {
	if k == models.ThresholdCriticalRed {
		return "Critical Alert"
	}
	return "Warning"
}

func lotName(d AlertDetail) string {
	if d.Lot == nil {
		return "N/A"
	}
	return d.Lot.LotName
}

func sectorName(d AlertDetail) string {
	if d.Lot == nil {
		return "N/A"
	}
	return d.Lot.SectorName
}

func countByKind(details []AlertDetail) (critical, advisory int) {
	for _, d := range details {
		if d.Alert.ThresholdKind == models.ThresholdCriticalRed {
			critical++
		} else {
			advisory++
		}
	}
	return critical, advisory
}

// BuildSingle renders the message for one alert.
func BuildSingle(d AlertDetail) Content {
	title := KindWord(d.Alert.ThresholdKind)
	description := string(d.Alert.ThresholdKind)
	if d.Threshold != nil {
		description = d.Threshold.Description
	}

	subject := fmt.Sprintf("%s - Lot %s (%.2f%% light)", title, lotName(d), d.Alert.LightPct)

	boxColor, borderColor := "#fef3c7", "#f59e0b"
	if d.Alert.ThresholdKind == models.ThresholdCriticalRed {
		boxColor, borderColor = "#fee2e2", "#dc2626"
	}

	var html strings.Builder
	html.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"UTF-8\">\n")
	html.WriteString("<style>\nbody { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }\n")
	html.WriteString(".container { max-width: 600px; margin: 0 auto; padding: 20px; }\n")
	fmt.Fprintf(&html, ".alert-box { background-color: %s; border-left: 4px solid %s; padding: 15px; margin: 20px 0; border-radius: 4px; }\n", boxColor, borderColor)
	html.WriteString(".info-row { margin: 10px 0; }\n.label { font-weight: bold; display: inline-block; width: 150px; }\n")
	html.WriteString(".footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #ddd; font-size: 12px; color: #666; }\n</style>\n</head>\n<body>\n<div class=\"container\">\n")
	fmt.Fprintf(&html, "<h2>%s - Light Evaluation</h2>\n", title)
	fmt.Fprintf(&html, "<div class=\"alert-box\"><p><strong>Description:</strong> %s</p></div>\n", description)

	row := func(label, value string) {
		fmt.Fprintf(&html, "<div class=\"info-row\"><span class=\"label\">%s:</span> <span>%s</span></div>\n", label, value)
	}
	row("Lot", lotName(d))
	row("Sector", sectorName(d))
	if d.Lot != nil {
		row("Farm", d.Lot.FarmName)
		if d.Lot.VarietyName != nil {
			row("Variety", *d.Lot.VarietyName)
		}
	}
	row("Light Percentage", fmt.Sprintf("<strong>%.2f%%</strong>", d.Alert.LightPct))
	row("Threshold Kind", string(d.Alert.ThresholdKind))
	row("Severity", d.Alert.Severity)
	row("Evaluated At", d.Alert.CreatedAt.Format(timeLayout))

	html.WriteString("<div class=\"footer\">\n<p>This is an automated message from the light evaluation alert system.</p>\n")
	html.WriteString("<p>Please review the lot and take the necessary actions.</p>\n</div>\n</div>\n</body>\n</html>")

	var text strings.Builder
	fmt.Fprintf(&text, "%s - Light Evaluation\n\n", title)
	fmt.Fprintf(&text, "Description: %s\n\n", description)
	fmt.Fprintf(&text, "Lot: %s\n", lotName(d))
	fmt.Fprintf(&text, "Sector: %s\n", sectorName(d))
	if d.Lot != nil {
		fmt.Fprintf(&text, "Farm: %s\n", d.Lot.FarmName)
		if d.Lot.VarietyName != nil {
			fmt.Fprintf(&text, "Variety: %s\n", *d.Lot.VarietyName)
		}
	}
	fmt.Fprintf(&text, "Light Percentage: %.2f%%\n", d.Alert.LightPct)
	fmt.Fprintf(&text, "Threshold Kind: %s\n", d.Alert.ThresholdKind)
	fmt.Fprintf(&text, "Severity: %s\n", d.Alert.Severity)
	fmt.Fprintf(&text, "Evaluated At: %s\n\n", d.Alert.CreatedAt.Format(timeLayout))
	text.WriteString("---\nThis is an automated message from the light evaluation alert system.\n")
	text.WriteString("Please review the lot and take the necessary actions.")

	return Content{Subject: subject, HTML: html.String(), Text: text.String()}
}

// BuildConsolidated renders a farm digest covering every alert in
// details. The subject leads with the critical count when any alert is
// CriticalRed, otherwise with the advisory count, and always states the
// total affected lots and the farm name.
func BuildConsolidated(farmName string, details []AlertDetail) Content {
	if farmName == "" {
		farmName = "Unknown"
	}
	total := len(details)
	critical, advisory := countByKind(details)

	var subject string
	if critical > 0 {
		subject = fmt.Sprintf("%d Critical Alert(s) at Farm %s - %d lot(s) affected", critical, farmName, total)
	} else {
		subject = fmt.Sprintf("%d Warning(s) at Farm %s - %d lot(s) affected", advisory, farmName, total)
	}

	var html strings.Builder
	html.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"UTF-8\">\n")
	html.WriteString("<style>\nbody { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }\n")
	html.WriteString(".container { max-width: 800px; margin: 0 auto; padding: 20px; }\n")
	html.WriteString(".header { background-color: #f3f4f6; padding: 20px; border-radius: 8px; margin-bottom: 20px; }\n")
	html.WriteString(".alert-table { width: 100%; border-collapse: collapse; margin: 20px 0; }\n")
	html.WriteString(".alert-table th, .alert-table td { padding: 12px; text-align: left; border-bottom: 1px solid #ddd; }\n")
	html.WriteString(".alert-table th { background-color: #f9fafb; font-weight: bold; }\n")
	html.WriteString(".critical { color: #dc2626; font-weight: bold; }\n.advisory { color: #f59e0b; font-weight: bold; }\n")
	html.WriteString(".footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #ddd; font-size: 12px; color: #666; }\n</style>\n</head>\n<body>\n<div class=\"container\">\n")
	html.WriteString("<div class=\"header\">\n")
	fmt.Fprintf(&html, "<h2>Alert Summary - Farm: %s</h2>\n", farmName)
	fmt.Fprintf(&html, "<p><strong>Total alerts:</strong> %d</p>\n", total)
	fmt.Fprintf(&html, "<p><strong>Critical:</strong> <span class=\"critical\">%d</span> | <strong>Warnings:</strong> <span class=\"advisory\">%d</span></p>\n", critical, advisory)
	html.WriteString("</div>\n<table class=\"alert-table\">\n<thead>\n<tr><th>Lot</th><th>Sector</th><th>Kind</th><th>Light %</th><th>Severity</th><th>Date</th></tr>\n</thead>\n<tbody>\n")

	for _, d := range details {
		class, word := "advisory", KindWord(d.Alert.ThresholdKind)
		if d.Alert.ThresholdKind == models.ThresholdCriticalRed {
			class = "critical"
		}
		fmt.Fprintf(&html,
			"<tr><td>%s</td><td>%s</td><td class=\"%s\">%s</td><td><strong>%.2f%%</strong></td><td>%s</td><td>%s</td></tr>\n",
			lotName(d), sectorName(d), class, word, d.Alert.LightPct,
			d.Alert.Severity, d.Alert.CreatedAt.Format(timeLayout))
	}

	html.WriteString("</tbody>\n</table>\n<div class=\"footer\">\n")
	html.WriteString("<p>This is an automated consolidated message from the light evaluation alert system.</p>\n")
	html.WriteString("<p>Please review the affected lots and take the necessary actions.</p>\n</div>\n</div>\n</body>\n</html>")

	var text strings.Builder
	fmt.Fprintf(&text, "Alert Summary - Farm: %s\n\n", farmName)
	fmt.Fprintf(&text, "Total alerts: %d\n", total)
	fmt.Fprintf(&text, "Critical: %d | Warnings: %d\n\n", critical, advisory)
	text.WriteString("Detail by lot:\n")
	text.WriteString(strings.Repeat("=", 80) + "\n\n")
	for _, d := range details {
		fmt.Fprintf(&text, "Lot: %s\n", lotName(d))
		fmt.Fprintf(&text, "Sector: %s\n", sectorName(d))
		fmt.Fprintf(&text, "Kind: %s\n", KindWord(d.Alert.ThresholdKind))
		fmt.Fprintf(&text, "Light %%: %.2f%%\n", d.Alert.LightPct)
		fmt.Fprintf(&text, "Severity: %s\n", d.Alert.Severity)
		fmt.Fprintf(&text, "Date: %s\n", d.Alert.CreatedAt.Format(timeLayout))
		text.WriteString(strings.Repeat("-", 80) + "\n\n")
	}
	text.WriteString("\nThis is an automated consolidated message from the light evaluation alert system.\n")
	text.WriteString("Please review the affected lots and take the necessary actions.")

	return Content{Subject: subject, HTML: html.String(), Text: text.String()}
}

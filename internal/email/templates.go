package email

import (
	"fmt"
	"html"
	"strings"

	"github.com/example/stock-alerts/internal/alert"
)

// BuildStockAlertBody builds the HTML body for a stock alert email.
func BuildStockAlertBody(record alert.Record) string {
	headline := "Stock level alert"
	accent := "#667eea"
	switch record.Classification {
	case alert.ClassificationLowStock:
		headline = "Low stock alert"
		accent = "#e74c3c"
	case alert.ClassificationOverstock:
		headline = "Overstock alert"
		accent = "#f39c12"
	}

	var thresholds strings.Builder
	if record.MinStock != nil {
		thresholds.WriteString(fmt.Sprintf(
			`<tr>
				<td style="padding: 8px 12px; color: #666;">Minimum stock</td>
				<td style="padding: 8px 12px; text-align: right;">%d</td>
			</tr>`,
			*record.MinStock,
		))
	}
	if record.MaxStock != nil {
		thresholds.WriteString(fmt.Sprintf(
			`<tr>
				<td style="padding: 8px 12px; color: #666;">Maximum stock</td>
				<td style="padding: 8px 12px; text-align: right;">%d</td>
			</tr>`,
			*record.MaxStock,
		))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: %s; padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">%s</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<p style="margin-top: 0;">%s</p>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0; background: #f8f9fa; border-radius: 5px;">
			<tr>
				<td style="padding: 8px 12px; color: #666;">Product</td>
				<td style="padding: 8px 12px; text-align: right;">%s</td>
			</tr>
			<tr>
				<td style="padding: 8px 12px; color: #666;">Warehouse</td>
				<td style="padding: 8px 12px; text-align: right;">%s</td>
			</tr>
			<tr>
				<td style="padding: 8px 12px; color: #666;">Current quantity</td>
				<td style="padding: 8px 12px; text-align: right; font-weight: bold;">%d</td>
			</tr>
			%s
		</table>

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This is an automated stock alert. Quantities reflect the moment the alert was generated.
		</p>
	</div>
</body>
</html>`,
		accent,
		headline,
		html.EscapeString(record.Message),
		html.EscapeString(record.ProductName),
		html.EscapeString(record.WarehouseName),
		record.CurrentQuantity,
		thresholds.String(),
	)
}

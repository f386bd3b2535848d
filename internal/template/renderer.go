// internal/template/renderer.go

// Package template renders message templates against booking data. Everything
// here is pure: same inputs always produce byte-identical output.
package template

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"stayflow-messaging/internal/models"
)

const (
	dateLayout = "2 Jan 2006"
	timeLayout = "15:04"
)

// ExtractVariables builds the fixed variable set for a booking. Unknown or
// missing values render as empty strings rather than failing.
func ExtractVariables(b *models.Booking, p *models.Property) map[string]string {
	propertyName := "Property"
	if p != nil && p.Name != "" {
		propertyName = p.Name
	}

	nights := int(math.Ceil(b.CheckOut.Sub(b.CheckIn).Hours() / 24))

	return map[string]string{
		"guest_name":        b.GuestName,
		"guest_email":       b.GuestEmail,
		"property_name":     propertyName,
		"check_in_date":     b.CheckIn.Format(dateLayout),
		"check_out_date":    b.CheckOut.Format(dateLayout),
		"check_in_time":     b.CheckIn.Format(timeLayout),
		"check_out_time":    b.CheckOut.Format(timeLayout),
		"booking_reference": BookingReference(b.ID),
		"total_price":       fmt.Sprintf("RM%.2f", b.Price),
		"num_guests":        strconv.Itoa(b.Guests),
		"num_nights":        strconv.Itoa(nights),
		"phone":             b.Phone,
		"status":            strings.ToUpper(strings.ReplaceAll(string(b.Status), "_", " ")),
	}
}

// BookingReference derives the guest-facing 8-character reference from a
// booking id.
func BookingReference(bookingID string) string {
	ref := bookingID
	if len(ref) > 8 {
		ref = ref[:8]
	}
	return strings.ToUpper(ref)
}

// renderOrder fixes the substitution sequence. A substituted value may itself
// contain a known placeholder, so iterating the map directly would make the
// output depend on map iteration order.
var renderOrder = []string{
	"guest_name", "guest_email", "property_name",
	"check_in_date", "check_out_date", "check_in_time", "check_out_time",
	"booking_reference", "total_price", "num_guests", "num_nights",
	"phone", "status",
}

func orderedKeys(vars map[string]string) []string {
	keys := make([]string, 0, len(vars))
	seen := make(map[string]bool, len(vars))
	for _, k := range renderOrder {
		if _, ok := vars[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var extra []string
	for k := range vars {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

// Render substitutes every known variable in the template body. Both
// {{variable}} and {variable} spellings are supported; the double-brace pass
// runs first so {{x}} is never partially consumed by the single-brace pass.
// Substitution follows a fixed key order, so identical inputs always produce
// byte-identical output. Unknown placeholders are left verbatim.
func Render(body string, vars map[string]string) string {
	keys := orderedKeys(vars)
	result := body
	for _, k := range keys {
		result = strings.ReplaceAll(result, "{{"+k+"}}", vars[k])
	}
	for _, k := range keys {
		result = strings.ReplaceAll(result, "{"+k+"}", vars[k])
	}
	return result
}

// subjectPatterns maps known template titles to canned subject phrasings.
var subjectPatterns = map[string]string{
	"Booking Confirmation":  "Booking Confirmed - %s",
	"Pre-arrival Info":      "Check-in Tomorrow - %s",
	"Cleaner Schedule":      "Cleaning Schedule - %s",
	"Check-in Instructions": "Check-in Instructions - %s",
	"Thank You":             "Thank You for Your Stay - %s",
}

// Subject generates the email subject line for a template title. Unknown
// titles fall back to "<title> - <propertyName>".
func Subject(templateTitle, propertyName string) string {
	if propertyName == "" {
		propertyName = "Property"
	}
	if pattern, ok := subjectPatterns[templateTitle]; ok {
		return fmt.Sprintf(pattern, propertyName)
	}
	return fmt.Sprintf("%s - %s", templateTitle, propertyName)
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// HTMLBody converts a rendered plain-text body to the HTML email envelope,
// preserving line breaks.
func HTMLBody(plain string) string {
	var content strings.Builder
	for _, line := range strings.Split(plain, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			content.WriteString("<br>")
			continue
		}
		content.WriteString(`<p style="margin: 0 0 10px 0; line-height: 1.5;">`)
		content.WriteString(htmlEscaper.Replace(trimmed))
		content.WriteString("</p>")
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n")
	b.WriteString(`<html lang="en">` + "\n<head>\n")
	b.WriteString(`  <meta charset="UTF-8">` + "\n")
	b.WriteString(`  <meta name="viewport" content="width=device-width, initial-scale=1.0">` + "\n")
	b.WriteString("  <title>StayFlow Notification</title>\n</head>\n")
	b.WriteString(`<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; font-size: 14px; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">` + "\n")
	b.WriteString(`  <div style="background-color: #f9f9f9; border-radius: 8px; padding: 24px; margin: 0 0 20px 0;">`)
	b.WriteString(content.String())
	b.WriteString("</div>\n")
	b.WriteString(`  <div style="text-align: center; color: #999; font-size: 12px; padding: 20px 0;">` + "\n")
	b.WriteString("    <p>This is an automated message from StayFlow</p>\n  </div>\n</body>\n</html>")
	return b.String()
}

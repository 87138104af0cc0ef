package alerting

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mr1hm/hazard-monitor/internal/models"
	"github.com/mr1hm/hazard-monitor/internal/rules"
)

const defaultMessage = "{condition} {value} crossed {threshold} at {location}"

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// renderMessage fills a rule's message template. Unknown placeholders are left as is.
func renderMessage(tmpl string, loc models.Location, o rules.Outcome, quake *models.Quake) string {
	if strings.TrimSpace(tmpl) == "" {
		tmpl = defaultMessage
	}

	pairs := []string{
		"{location}", loc.Name,
		"{disaster}", o.DisasterName,
		"{condition}", string(o.Condition),
		"{value}", formatNumber(o.Observed),
		"{threshold}", formatNumber(o.Threshold),
		"{severity}", string(o.Severity),
	}
	if quake != nil {
		pairs = append(pairs,
			"{place}", quake.Place,
			"{magnitude}", formatNumber(quake.Magnitude),
		)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func renderTitle(sev models.Severity, disaster string, loc models.Location) string {
	return fmt.Sprintf("%s %s alert: %s", sev, disaster, loc.Name)
}

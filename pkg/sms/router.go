// Package sms resolves the recipient set for an alarm from contact schedules,
// formats the message from the threshold's template and dispatches it,
// recording one delivery outcome per recipient.
package sms

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"liyu1981.xyz/water-alarm-service/pkg/common"
	"liyu1981.xyz/water-alarm-service/pkg/db"
	"liyu1981.xyz/water-alarm-service/pkg/models"
	"liyu1981.xyz/water-alarm-service/pkg/sysconfig"
	"liyu1981.xyz/water-alarm-service/pkg/tagmap"
)

// DefaultTemplate is used when a threshold has no message template configured.
const DefaultTemplate = "[{severity}] {tag_desc} is {value}{unit}"

var dowNames = [...]string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}

var placeholderPattern = regexp.MustCompile(`\{[a-z_]+\}`)

// AlertAction carries everything the router needs to notify about one alarm.
type AlertAction struct {
	Threshold  models.Threshold
	Value      float64
	PlcName    string
	TagInfo    tagmap.TagInfo
	Group      string
	AlarmLogID uint
}

type Router struct {
	Db        db.DB
	Catalog   tagmap.Catalog
	Settings  sysconfig.Settings
	Transport Transport
	Limiters  *SendLimiterStore

	loc *time.Location
}

func NewRouter(database db.DB, catalog tagmap.Catalog, settings sysconfig.Settings, transport Transport, limiters *SendLimiterStore) (*Router, error) {
	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		return nil, fmt.Errorf("router timezone: %w", err)
	}
	return &Router{
		Db:        database,
		Catalog:   catalog,
		Settings:  settings,
		Transport: transport,
		Limiters:  limiters,
		loc:       loc,
	}, nil
}

// RenderTemplate substitutes {key} placeholders. A placeholder left
// unresolved is a configuration error, reported so the caller can skip the
// threshold instead of texting garbage.
func RenderTemplate(template string, subs map[string]string) (string, error) {
	pairs := make([]string, 0, len(subs)*2)
	for key, value := range subs {
		pairs = append(pairs, "{"+key+"}", value)
	}
	rendered := strings.NewReplacer(pairs...).Replace(template)

	if leftover := placeholderPattern.FindString(rendered); leftover != "" {
		return rendered, fmt.Errorf("unresolved placeholder %s in message template", leftover)
	}
	return rendered, nil
}

// FormatMessage renders the alert text for an action.
func (r *Router) FormatMessage(action AlertAction) (string, error) {
	template := action.Threshold.MessageTemplate
	if strings.TrimSpace(template) == "" {
		template = DefaultTemplate
	}

	return RenderTemplate(template, map[string]string{
		"severity": strings.ToUpper(string(action.Threshold.Severity)),
		"plc_name": action.PlcName,
		"tag_name": action.Threshold.ThresholdRef,
		"tag_desc": action.TagInfo.Description,
		"group":    action.Group,
		"target":   string(action.Threshold.Target),
		"value":    formatValue(action.Value),
		"unit":     action.TagInfo.Unit,
		"limit":    formatValue(action.Threshold.LimitValue),
		"op":       action.Threshold.ComparisonOperator,
	})
}

func formatValue(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// FindRecipients returns the deduplicated numbers of enabled contacts in the
// group whose day-of-week set and time window match now.
func (r *Router) FindRecipients(group string, now time.Time) ([]string, error) {
	var contacts []models.Contact
	if err := r.Db.Conn.Where("enabled = ?", true).Find(&contacts).Error; err != nil {
		return nil, err
	}

	now = now.In(r.loc)
	today := dowNames[int(now.Weekday())]

	logger := common.GetLoggerWith(
		common.LoggerNameSmsRouter,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryDelivery),
	)

	seen := make(map[string]bool)
	var recipients []string
	for _, contact := range contacts {
		if contact.Group != group {
			continue
		}
		if !dowMatches(contact.Dow, today) {
			continue
		}

		inWindow, err := timeInWindow(now, contact.WindowStart, contact.WindowEnd)
		if err != nil {
			logger.Warn("Invalid time window for contact, skipping",
				zap.String("contact", contact.Name), zap.Error(err))
			continue
		}
		if !inWindow {
			continue
		}

		if !seen[contact.Msisdn] {
			seen[contact.Msisdn] = true
			recipients = append(recipients, contact.Msisdn)
		}
	}

	return recipients, nil
}

func dowMatches(dowSpec, today string) bool {
	for _, d := range strings.Split(strings.ToUpper(dowSpec), ",") {
		d = strings.TrimSpace(d)
		if d == "ALL" || d == today {
			return true
		}
	}
	return false
}

// timeInWindow checks a [start, end) time-of-day window; start > end means
// the window wraps midnight.
func timeInWindow(now time.Time, startStr, endStr string) (bool, error) {
	start, err := minutesOfDay(startStr)
	if err != nil {
		return false, err
	}
	end, err := minutesOfDay(endStr)
	if err != nil {
		return false, err
	}

	minutes := now.Hour()*60 + now.Minute()
	if start <= end {
		return minutes >= start && minutes < end, nil
	}
	// overnight window, e.g. 22:00-06:00
	return minutes >= start || minutes < end, nil
}

func minutesOfDay(hhmm string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return 0, fmt.Errorf("bad time-of-day %q: %w", hhmm, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// SendAlert resolves recipients for the action, dispatches the message to
// each and persists one DeliveryLog per attempt. A transport failure for one
// recipient never blocks the rest.
func (r *Router) SendAlert(ctx context.Context, action AlertAction) ([]models.DeliveryLog, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameSmsRouter,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryDelivery),
	)

	message, err := r.FormatMessage(action)
	if err != nil {
		return nil, err
	}

	var recipients []string
	if r.Settings.TestMode {
		recipients = dedupe(r.Settings.TestNumbers)
		logger.Info("Test mode: routing alert to test numbers",
			zap.String("threshold_ref", action.Threshold.ThresholdRef),
			zap.Strings("recipients", recipients))
	} else {
		if recipients, err = r.FindRecipients(action.Group, time.Now()); err != nil {
			return nil, err
		}
		logger.Info("Resolved recipients for group",
			zap.String("group", action.Group), zap.Int("count", len(recipients)))
	}

	if len(recipients) == 0 {
		logger.Warn("No recipients for alert",
			zap.String("threshold_ref", action.Threshold.ThresholdRef),
			zap.String("group", action.Group))
		return nil, nil
	}

	outcomes := make([]models.DeliveryLog, 0, len(recipients))
	for _, number := range recipients {
		status, messageID := r.deliver(ctx, number, message)

		outcome := models.DeliveryLog{
			AlarmLogID: action.AlarmLogID,
			Msisdn:     number,
			MessageID:  messageID,
			Status:     status,
			PlcName:    action.PlcName,
			TagName:    action.Threshold.ThresholdRef,
			Severity:   action.Threshold.Severity,
			SentAt:     time.Now(),
		}
		if err := r.Db.Conn.Create(&outcome).Error; err != nil {
			logger.Error("Failed to persist delivery outcome",
				zap.String("msisdn", number), zap.Error(err))
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

// SendDirect sends one ad-hoc message, used by the settings test endpoint.
func (r *Router) SendDirect(ctx context.Context, to, body string) (string, string) {
	return r.deliver(ctx, to, body)
}

func (r *Router) deliver(ctx context.Context, to, body string) (status, messageID string) {
	logger := common.GetLoggerWith(
		common.LoggerNameSmsRouter,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryDelivery),
	)

	// in test mode nothing leaves the building, except the designated
	// override number which is delivered for real
	if r.Settings.TestMode && (r.Settings.OverrideNumber == "" || to != r.Settings.OverrideNumber) {
		logger.Info("Test mode: would send SMS", zap.String("to", to), zap.String("body", body))
		return "test-mode", "test-mode-no-sid"
	}

	if r.Transport == nil {
		logger.Warn("SMS not sent: transport not configured", zap.String("to", to))
		return "failed: transport not configured", ""
	}

	if err := r.Limiters.Wait(ctx, to); err != nil {
		logger.Warn("Send limiter wait aborted", zap.String("to", to), zap.Error(err))
		return "failed: " + err.Error(), ""
	}

	status, messageID, err := r.Transport.Send(ctx, to, r.Settings.TwilioFrom, body)
	if err != nil {
		logger.Error("SMS send failed", zap.String("to", to), zap.Error(err))
		return "failed: " + err.Error(), ""
	}

	logger.Info("SMS sent", zap.String("to", to), zap.String("message_id", messageID))
	return status, messageID
}

func dedupe(numbers []string) []string {
	seen := make(map[string]bool, len(numbers))
	out := make([]string, 0, len(numbers))
	for _, n := range numbers {
		if n = strings.TrimSpace(n); n != "" && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

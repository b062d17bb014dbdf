// Package notify delivers crisis alerts to operators. The pipeline fires
// an alert as soon as a crisis route is decided and again after analysis
// confirms it; delivery failures are logged and never block the pipeline.
package notify

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/zen-systems/mindgate/pkg/schema"
)

const textSampleLimit = 120

// Alert carries the context an operator needs to act on a crisis signal.
type Alert struct {
	UserID           string                  `json:"user_id,omitempty"`
	SessionID        string                  `json:"session_id,omitempty"`
	SessionType      string                  `json:"session_type,omitempty"`
	ExplicitTaskHint string                  `json:"explicit_task_hint,omitempty"`
	Timestamp        time.Time               `json:"timestamp"`
	TextSample       string                  `json:"text_sample"`
	Decision         *schema.RoutingDecision `json:"decision,omitempty"`
	Analysis         *schema.AnalysisResult  `json:"analysis,omitempty"`
}

// Notifier is the delivery side of crisis alerting.
type Notifier interface {
	SendCrisisAlert(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the process log. It is the default sink
// when no external alerting channel is configured.
type LogNotifier struct{}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// SendCrisisAlert logs the alert. It never fails.
func (n *LogNotifier) SendCrisisAlert(_ context.Context, alert Alert) error {
	confidence := 0.0
	if alert.Decision != nil {
		confidence = alert.Decision.Confidence
	}
	log.Printf("[notify] CRISIS ALERT user=%s session=%s confidence=%.2f sample=%q",
		orDash(alert.UserID), orDash(alert.SessionID), confidence, alert.TextSample)
	return nil
}

// Sample truncates text for inclusion in an alert.
func Sample(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= textSampleLimit {
		return text
	}
	return text[:textSampleLimit] + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

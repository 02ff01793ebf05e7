// Package crisis detects crisis signals in notification traffic and runs the
// escalation protocol. Detection is best-effort by design: a detection or
// fan-out failure is logged and never blocks the notification that carried
// the signal.
package crisis

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/havenwell/notify-engine/internal/channel"
	"github.com/havenwell/notify-engine/internal/domain"
	"github.com/havenwell/notify-engine/internal/pkg/logger"
)

// crisisKeywords trigger an immediate level-4 escalation when found in any
// text signal. Matching is case-insensitive substring search.
var crisisKeywords = []string{"suicide", "harm", "hopeless", "crisis", "emergency"}

// Severity thresholds for structured signals.
const (
	severeMoodScore         = 2.0  // mood below this escalates to severe
	moderateAssessmentScore = 15.0 // assessment above this escalates to moderate
)

// EscalationStore persists escalation records and serves emergency contacts.
type EscalationStore interface {
	CreateEscalation(ctx context.Context, e *domain.CrisisEscalation) error
	SetNotifiedFlags(ctx context.Context, id uuid.UUID, professional, emergencyContacts bool) error
	ActiveEmergencyContacts(ctx context.Context, userID uuid.UUID) ([]domain.EmergencyContact, error)
}

// Sender dispatches the alert notifications the escalation protocol emits.
// It is the engine, injected after construction to break the cycle between
// the two packages.
type Sender interface {
	SendNotification(ctx context.Context, req *domain.NotificationRequest) (*domain.QueuedNotification, error)
}

// ContactMailer emails people who are not users: emergency contacts exist
// only as an address, so their alerts bypass the queue entirely.
type ContactMailer interface {
	Send(ctx context.Context, msg *channel.Message) (*channel.SendResult, error)
}

// Detector inspects notification traffic for crisis signals.
type Detector struct {
	store        EscalationStore
	mailer       ContactMailer // may be nil when email is not configured
	onCallUserID uuid.UUID

	sender Sender
}

func NewDetector(store EscalationStore, mailer ContactMailer, onCallUserID uuid.UUID) *Detector {
	return &Detector{store: store, mailer: mailer, onCallUserID: onCallUserID}
}

// SetSender wires the notification engine used for alert fan-out.
func (d *Detector) SetSender(s Sender) { d.sender = s }

// Inspect examines one notification request for crisis signals and runs the
// escalation protocol when the detected level warrants it. Crisis alerts
// themselves are skipped: the protocol's own output must not re-trigger it.
func (d *Detector) Inspect(ctx context.Context, req *domain.NotificationRequest) {
	if req.Type == domain.TypeCrisisAlert {
		return
	}

	signals := ParseSignals(req)
	level := Classify(signals)
	if level <= domain.LevelModerate {
		if level == domain.LevelModerate {
			// Moderate signals are recorded for clinical review but do not
			// trigger fan-out.
			d.record(ctx, req, level, signals)
		}
		return
	}

	escalation := d.record(ctx, req, level, signals)
	if escalation == nil {
		return
	}
	d.escalate(ctx, req.UserID, escalation)
}

// ParseSignals extracts typed crisis signals from a request: the title and
// message as text, plus recognized fields of the data bag.
func ParseSignals(req *domain.NotificationRequest) []domain.Signal {
	var signals []domain.Signal
	if req.Title != "" {
		signals = append(signals, domain.TextSignal{Body: req.Title})
	}
	if req.Message != "" {
		signals = append(signals, domain.TextSignal{Body: req.Message})
	}

	for key, value := range req.Data {
		switch key {
		case "mood_score":
			if score, ok := toFloat(value); ok {
				signals = append(signals, domain.MoodSignal{Score: score})
			}
		case "assessment_score":
			if score, ok := toFloat(value); ok {
				signals = append(signals, domain.AssessmentSignal{Score: score})
			}
		case "journal_text", "note", "text":
			if text, ok := value.(string); ok && text != "" {
				signals = append(signals, domain.TextSignal{Body: text})
			}
		default:
			signals = append(signals, domain.OpaqueSignal{Data: map[string]interface{}{key: value}})
		}
	}
	return signals
}

// Classify returns the highest escalation level any signal warrants. Keyword
// matches take precedence over score thresholds: explicit language always
// classifies as a full crisis.
func Classify(signals []domain.Signal) domain.EscalationLevel {
	level := domain.LevelMild
	for _, sig := range signals {
		switch s := sig.(type) {
		case domain.TextSignal:
			body := strings.ToLower(s.Body)
			for _, kw := range crisisKeywords {
				if strings.Contains(body, kw) {
					return domain.LevelCrisis
				}
			}
		case domain.MoodSignal:
			if s.Score < severeMoodScore && level < domain.LevelSevere {
				level = domain.LevelSevere
			}
		case domain.AssessmentSignal:
			if s.Score > moderateAssessmentScore && level < domain.LevelModerate {
				level = domain.LevelModerate
			}
		}
	}
	return level
}

// record persists the escalation. Returns nil (after logging) on failure.
func (d *Detector) record(ctx context.Context, req *domain.NotificationRequest, level domain.EscalationLevel, signals []domain.Signal) *domain.CrisisEscalation {
	escalation := &domain.CrisisEscalation{
		ID:              uuid.New(),
		UserID:          req.UserID,
		EscalationLevel: level,
		EscalationData: map[string]interface{}{
			"source_type":  string(req.Type),
			"signal_count": len(signals),
			"detected_at":  time.Now().UTC().Format(time.RFC3339),
		},
	}
	if err := d.store.CreateEscalation(ctx, escalation); err != nil {
		log.Printf("[Crisis] failed to persist %s escalation for user %s: %v",
			level, req.UserID, err)
		return nil
	}
	logger.Warn("crisis escalation recorded",
		"escalation_id", escalation.ID,
		"user_id", req.UserID,
		"level", level,
		"source_type", req.Type)
	return escalation
}

// escalate runs the fan-out protocol for a severe or crisis level record:
// the on-call professional is alerted for both; emergency contacts are
// notified only at the crisis level.
func (d *Detector) escalate(ctx context.Context, userID uuid.UUID, e *domain.CrisisEscalation) {
	if d.sender == nil {
		log.Printf("[Crisis] no sender wired; escalation %s recorded without fan-out", e.ID)
		return
	}

	professionalNotified := d.alertOnCall(ctx, userID, e)

	contactsNotified := false
	if e.EscalationLevel == domain.LevelCrisis {
		contactsNotified = d.alertEmergencyContacts(ctx, userID, e)
	}

	if err := d.store.SetNotifiedFlags(ctx, e.ID, professionalNotified, contactsNotified); err != nil {
		log.Printf("[Crisis] failed to flag escalation %s: %v", e.ID, err)
	}
}

func (d *Detector) alertOnCall(ctx context.Context, userID uuid.UUID, e *domain.CrisisEscalation) bool {
	if d.onCallUserID == uuid.Nil {
		log.Printf("[Crisis] no on-call user configured; escalation %s not routed", e.ID)
		return false
	}

	_, err := d.sender.SendNotification(ctx, &domain.NotificationRequest{
		UserID:   d.onCallUserID,
		Type:     domain.TypeCrisisAlert,
		Title:    fmt.Sprintf("Escalation requires review: %s", e.EscalationLevel),
		Message:  fmt.Sprintf("A %s-level signal was detected for user %s. Escalation id: %s.", e.EscalationLevel, userID, e.ID),
		Priority: domain.PriorityHigh,
		Data: map[string]interface{}{
			"escalation_id":    e.ID.String(),
			"escalation_level": int(e.EscalationLevel),
			"subject_user_id":  userID.String(),
		},
	})
	if err != nil {
		log.Printf("[Crisis] on-call alert for escalation %s failed: %v", e.ID, err)
		return false
	}
	return true
}

func (d *Detector) alertEmergencyContacts(ctx context.Context, userID uuid.UUID, e *domain.CrisisEscalation) bool {
	if d.mailer == nil {
		log.Printf("[Crisis] email not configured; emergency contacts for escalation %s not notified", e.ID)
		return false
	}

	contacts, err := d.store.ActiveEmergencyContacts(ctx, userID)
	if err != nil {
		log.Printf("[Crisis] load emergency contacts for user %s: %v", userID, err)
		return false
	}
	if len(contacts) == 0 {
		return false
	}

	notified := 0
	for _, contact := range contacts {
		result, err := d.mailer.Send(ctx, &channel.Message{
			UserID: userID,
			Email:  contact.Email,
			Title:  "Someone you support may need help",
			Body: fmt.Sprintf("Hi %s, you are listed as an emergency contact. "+
				"Please check in with them as soon as you can.", contact.Name),
		})
		if err != nil || !result.Success {
			log.Printf("[Crisis] emergency contact alert (%s) for escalation %s failed",
				contact.ID, e.ID)
			continue
		}
		notified++
	}
	logger.Info("emergency contact fan-out finished",
		"escalation_id", e.ID,
		"notified", notified,
		"contacts", len(contacts))
	return notified > 0
}

// toFloat coerces JSON-decoded numeric payload values.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

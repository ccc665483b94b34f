package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"microlearn/backend/models"

	"go.uber.org/zap"
)

// Mailer sends transactional email through the SendGrid HTTP API. Delivery is
// fire-and-forget: callers run Send* in a goroutine and failures only get
// logged, never surfaced to the request.
type Mailer struct {
	apiKey      string
	senderEmail string
	senderName  string
	frontend    string
	log         *zap.Logger
	client      *http.Client
}

func NewMailer(apiKey, senderEmail, frontend string, log *zap.Logger) *Mailer {
	return &Mailer{
		apiKey:      apiKey,
		senderEmail: senderEmail,
		senderName:  "Microlearn",
		frontend:    frontend,
		log:         log,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// SendGrid request format
type sgEmail struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}
type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}
type sgPersonalization struct {
	To []sgEmail `json:"to"`
}
type sgRequest struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgEmail             `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

func (m *Mailer) SendWelcome(toEmail, name string) {
	if name == "" {
		name = "there"
	}
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Welcome to Microlearn! Your first lesson is waiting for you.</p>
<p><a href="%s/lessons">Start learning</a></p>`, name, m.frontend)

	m.send(toEmail, "Welcome to Microlearn", body)
}

func (m *Mailer) SendAchievementUnlocked(toEmail, name string, achievements []models.Achievement) {
	var names []string
	for _, a := range achievements {
		names = append(names, a.Name)
	}
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>You just unlocked: <strong>%s</strong>. Keep it up!</p>
<p><a href="%s/achievements">See your achievements</a></p>`, name, strings.Join(names, ", "), m.frontend)

	m.send(toEmail, "Achievement unlocked!", body)
}

func (m *Mailer) SendStreakRisk(toEmail string, streak int) {
	body := fmt.Sprintf(`<p>Your %d-day streak ends at midnight.</p>
<p><a href="%s/lessons">Complete a lesson to keep it alive</a></p>`, streak, m.frontend)

	m.send(toEmail, "Your streak is at risk", body)
}

func (m *Mailer) send(toEmail, subject, html string) {
	if m.apiKey == "" {
		m.log.Debug("mailer disabled, skipping email", zap.String("subject", subject))
		return
	}

	payload := sgRequest{
		Personalizations: []sgPersonalization{{To: []sgEmail{{Email: toEmail}}}},
		From:             sgEmail{Email: m.senderEmail, Name: m.senderName},
		Subject:          subject,
		Content:          []sgContent{{Type: "text/html", Value: html}},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		m.log.Error("could not encode email", zap.Error(err))
		return
	}

	req, err := http.NewRequest(http.MethodPost, "https://api.sendgrid.com/v3/mail/send", bytes.NewReader(raw))
	if err != nil {
		m.log.Error("could not build email request", zap.Error(err))
		return
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		m.log.Error("email delivery failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		m.log.Warn("email rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("subject", subject),
		)
	}
}

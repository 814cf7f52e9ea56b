package telegram

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"inspectra/internal/models"
)

const defaultAPIURL = "https://api.telegram.org"

type Service struct {
	logger *logrus.Logger
	client *http.Client
	config *models.TelegramConfig
	apiURL string
}

func NewService(logger *logrus.Logger, apiURL string) *Service {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Service{
		logger: logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		config: &models.TelegramConfig{},
		apiURL: strings.TrimRight(apiURL, "/"),
	}
}

func (s *Service) UpdateConfig(config *models.TelegramConfig) {
	if config == nil {
		config = &models.TelegramConfig{}
	}
	s.config = config
}

func (s *Service) Enabled() bool {
	return s.config.IsEnabled
}

// SendMessage sends a message to the configured Telegram chat
func (s *Service) SendMessage(message string) error {
	if !s.config.IsEnabled {
		return nil
	}

	if s.config.BotToken == "" {
		return errors.New("Telegram bot token is not configured")
	}

	if s.config.ChatID == "" {
		return errors.New("Telegram chat ID is not configured")
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiURL, s.config.BotToken)
	payload := map[string]interface{}{
		"chat_id":    s.config.ChatID,
		"text":       message,
		"parse_mode": "HTML",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %v", err)
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send message to Telegram API: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return errors.New("invalid bot token - please check your token from @BotFather")
		case http.StatusBadRequest:
			return fmt.Errorf("invalid chat ID or message format: %s", string(body))
		case http.StatusForbidden:
			return errors.New("bot was blocked by the user or chat")
		case http.StatusNotFound:
			return errors.New("bot not found - please check your token from @BotFather")
		default:
			return fmt.Errorf("Telegram API error (status %d): %s", resp.StatusCode, string(body))
		}
	}

	return nil
}

// NotifyDecision alerts the chat about a snapshot that needs a human review
func (s *Service) NotifyDecision(snapshot *models.PropertySnapshot) error {
	if !s.config.IsEnabled {
		return nil
	}

	title := "<b>Property flagged for review</b>"
	if snapshot.UnderInspected {
		title = "<b>Property flagged for review (provisional)</b>"
	}

	message := fmt.Sprintf(
		"%s\n\n"+
			"🏠 %s\n"+
			"📊 Score %.1f/100 (%s risk)\n"+
			"🔍 Coverage %.0f%%\n"+
			"⚖️ Decision: %s\n"+
			"🗓️ Inspected %s\n\n"+
			"%s",
		title,
		html.EscapeString(snapshot.PropertyID),
		snapshot.PropertyScore,
		snapshot.RiskTier,
		snapshot.Coverage*100,
		snapshot.DecisionSignal,
		snapshot.Timestamp.Format("2006-01-02"),
		html.EscapeString(snapshot.Explanation),
	)

	return s.SendMessage(message)
}

// NotifyReinspectionDue reminds the chat that a property's latest inspection is stale
func (s *Service) NotifyReinspectionDue(snapshot *models.PropertySnapshot, age time.Duration) error {
	if !s.config.IsEnabled {
		return nil
	}

	message := fmt.Sprintf(
		"<b>Reinspection due</b>\n\n"+
			"🏠 %s\n"+
			"🗓️ Last inspected %s (%d days ago)\n"+
			"📊 Last score %.1f/100 (%s risk)",
		html.EscapeString(snapshot.PropertyID),
		snapshot.Timestamp.Format("2006-01-02"),
		int(age.Hours()/24),
		snapshot.PropertyScore,
		snapshot.RiskTier,
	)

	return s.SendMessage(message)
}

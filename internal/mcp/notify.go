package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"strings"

	"github.com/mohammad-safakhou/agentflow/config"
	"github.com/mohammad-safakhou/agentflow/utils"
)

// GmailAdapter serves the gmail server over plain SMTP.
type GmailAdapter struct {
	cfg config.GmailConfig
}

func NewGmailAdapter(cfg config.GmailConfig) *GmailAdapter { return &GmailAdapter{cfg: cfg} }

func (a *GmailAdapter) Invoke(_ context.Context, tool string, args map[string]any) (map[string]any, error) {
	if tool != "send_email" {
		return nil, fmt.Errorf("gmail: unsupported tool %s", tool)
	}
	to := utils.Str(args["to"])
	if to == "" {
		to = a.cfg.To
	}
	if strings.TrimSpace(to) == "" {
		return nil, fmt.Errorf("gmail: no recipient")
	}
	subject := utils.Str(args["subject"])
	body := utils.Str(args["body"])
	from := a.cfg.From
	if from == "" {
		from = a.cfg.Username
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s", from, to, subject, body)
	addr := a.cfg.SMTPHost + ":" + a.cfg.SMTPPort
	auth := smtp.PlainAuth("", a.cfg.Username, a.cfg.Password, a.cfg.SMTPHost)
	if err := smtp.SendMail(addr, auth, from, strings.Split(to, ","), []byte(msg)); err != nil {
		return nil, fmt.Errorf("gmail: send: %w", err)
	}
	return map[string]any{"message": "email sent to " + to}, nil
}

// SlackAdapter serves the slack server through an incoming webhook.
type SlackAdapter struct {
	cfg    config.SlackConfig
	client *http.Client
}

func NewSlackAdapter(cfg config.SlackConfig) *SlackAdapter {
	return &SlackAdapter{cfg: cfg, client: http.DefaultClient}
}

func (a *SlackAdapter) Invoke(ctx context.Context, tool string, args map[string]any) (map[string]any, error) {
	if tool != "send_message" {
		return nil, fmt.Errorf("slack: unsupported tool %s", tool)
	}
	message := utils.Str(args["message"])
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("slack: empty message")
	}
	channel := utils.Str(args["channel"])
	if channel == "" {
		channel = a.cfg.Channel
	}
	payload, _ := json.Marshal(map[string]any{"text": message, "channel": channel})
	req, _ := http.NewRequestWithContext(ctx, "POST", a.cfg.WebhookURL, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slack: post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("slack: webhook status %d: %s", resp.StatusCode, string(body))
	}
	return map[string]any{"message": "message sent to " + channel}, nil
}

// ChartAdapter serves the chart server via a QuickChart-compatible endpoint.
type ChartAdapter struct {
	endpoint string
	client   *http.Client
}

func NewChartAdapter(cfg config.ChartConfig) *ChartAdapter {
	return &ChartAdapter{endpoint: cfg.Endpoint, client: http.DefaultClient}
}

func (a *ChartAdapter) Invoke(ctx context.Context, tool string, args map[string]any) (map[string]any, error) {
	if tool != "create_chart" {
		return nil, fmt.Errorf("chart: unsupported tool %s", tool)
	}
	chartType := utils.Str(args["chart_type"])
	if chartType == "" {
		chartType = "bar"
	}
	spec := map[string]any{
		"chart": map[string]any{
			"type": chartType,
			"data": args["data"],
		},
	}
	payload, _ := json.Marshal(spec)
	req, _ := http.NewRequestWithContext(ctx, "POST", a.endpoint+"/chart/create", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chart: post: %w", err)
	}
	defer resp.Body.Close()
	var out struct {
		Success bool   `json:"success"`
		URL     string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("chart: decode: %w", err)
	}
	if !out.Success || out.URL == "" {
		return nil, fmt.Errorf("chart: render rejected")
	}
	return map[string]any{"chart_url": out.URL, "message": "chart created"}, nil
}

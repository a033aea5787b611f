package notify

import (
	"context"
	"encoding/json"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/billdesk/bill-audit/internal/config"
	"github.com/billdesk/bill-audit/internal/models"
)

// Notifier pushes the outcome of an audit run to a Lark chat. When the
// app credentials are not configured the notifier is a no-op, so batch
// runs work without any Lark setup.
type Notifier struct {
	client    *lark.Client
	receiveID string
	logger    *zap.Logger
}

// New creates a notifier from configuration. Empty credentials return a
// disabled notifier rather than an error.
func New(cfg config.LarkConfig, logger *zap.Logger) *Notifier {
	if cfg.AppID == "" || cfg.AppSecret == "" {
		logger.Info("Lark notification disabled, no credentials configured")
		return &Notifier{logger: logger}
	}

	client := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	)

	return &Notifier{
		client:    client,
		receiveID: cfg.ReceiveID,
		logger:    logger,
	}
}

// Enabled reports whether a Lark client is configured.
func (n *Notifier) Enabled() bool {
	return n.client != nil && n.receiveID != ""
}

// NotifyRunComplete sends a text summary of a finished audit run.
func (n *Notifier) NotifyRunComplete(ctx context.Context, runID int64, groups []models.DecisionGroup, decision string) error {
	if !n.Enabled() {
		return nil
	}

	valid, invalid := 0, 0
	for _, g := range groups {
		valid += len(g.ValidBills)
		invalid += len(g.InvalidBills)
	}

	text := fmt.Sprintf(
		"Bill audit run #%d finished\nGroups: %d\nValid bills: %d\nInvalid bills: %d\nDecision: %s",
		runID, len(groups), valid, invalid, decision)

	return n.sendText(ctx, text)
}

// NotifyRunFailed reports a failed audit run.
func (n *Notifier) NotifyRunFailed(ctx context.Context, runID int64, runErr error) error {
	if !n.Enabled() {
		return nil
	}
	return n.sendText(ctx, fmt.Sprintf("Bill audit run #%d failed: %v", runID, runErr))
}

func (n *Notifier) sendText(ctx context.Context, text string) error {
	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to marshal message content: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType("chat_id").
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(n.receiveID).
			MsgType("text").
			Content(string(content)).
			Build()).
		Build()

	resp, err := n.client.Im.Message.Create(ctx, req)
	if err != nil {
		n.logger.Error("Failed to send Lark message",
			zap.String("receive_id", n.receiveID),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		n.logger.Error("Lark API returned failure",
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	n.logger.Info("Lark notification sent", zap.String("message_id", messageID))

	return nil
}

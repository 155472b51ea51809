// Package telegram exposes the research agent through a Telegram bot.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/hunterwarburton/ferret/internal/agent"
	"github.com/hunterwarburton/ferret/internal/core"
	"github.com/hunterwarburton/ferret/internal/logger"
)

// Researcher is the part of the agent the bot drives.
type Researcher interface {
	HandleQuery(ctx context.Context, query string) (core.Response, error)
	Stats(ctx context.Context) (agent.Stats, error)
}

// Policy decides who may use the bot.
type Policy interface {
	IsAllowed(userID int64) bool
	IsAdmin(userID int64) bool
}

// queryTimeout bounds one research pass triggered from chat.
const queryTimeout = 2 * time.Minute

// Bot answers chat messages with researched summaries.
type Bot struct {
	bot    *bot.Bot
	agent  Researcher
	policy Policy
	memory *Memory
}

// NewBot creates the bot and registers its update handler.
func NewBot(token string, agent Researcher, policy Policy) (*Bot, error) {
	b := &Bot{agent: agent, policy: policy, memory: NewMemory()}

	botAPI, err := bot.New(token, bot.WithDefaultHandler(b.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	b.bot = botAPI
	return b, nil
}

// Start runs the bot until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	b.bot.Start(ctx)
}

func (b *Bot) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		return
	}
	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if !b.policy.IsAllowed(userID) {
		logger.Info("Chat[%d] User[%d]: rejected by allow-list", chatID, userID)
		b.sendText(ctx, chatID, "Sorry, you are not authorized to use this bot.")
		return
	}

	if strings.HasPrefix(msg.Text, "/") {
		b.handleCommand(ctx, chatID, userID, msg.Text)
		return
	}
	b.handleQuery(ctx, chatID, msg.Text)
}

func (b *Bot) handleCommand(ctx context.Context, chatID, userID int64, text string) {
	cmd := strings.Fields(text)[0]
	switch cmd {
	case "/start", "/help":
		b.sendText(ctx, chatID, helpText())
	case "/history":
		b.sendText(ctx, chatID, historyText(b.memory.Recent(chatID, historyDisplayLimit)))
	case "/forget":
		b.memory.Clear(chatID)
		b.sendText(ctx, chatID, "Forgot this chat's research history.")
	case "/stats":
		if !b.policy.IsAdmin(userID) {
			b.sendText(ctx, chatID, "Stats are available to admins only.")
			return
		}
		stats, err := b.agent.Stats(ctx)
		if err != nil {
			logger.Error("Reading stats for chat %d: %v", chatID, err)
			b.sendText(ctx, chatID, "Could not read stats right now.")
			return
		}
		b.sendText(ctx, chatID, fmt.Sprintf("Stored queries: %d", stats.CachedQueries))
	default:
		b.sendText(ctx, chatID, "Unknown command. Send /help for usage.")
	}
}

func (b *Bot) handleQuery(ctx context.Context, chatID int64, query string) {
	logger.Info("Chat[%d]: researching %q", chatID, query)
	b.sendTyping(ctx, chatID)

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	resp, err := b.agent.HandleQuery(queryCtx, query)
	if err != nil {
		logger.Error("Chat[%d]: research failed: %v", chatID, err)
		b.sendText(ctx, chatID, "Something went wrong while researching that. Please try again.")
		return
	}
	if resp.Valid && resp.CombinedSummary != "" {
		b.memory.Record(chatID, Exchange{
			Query:      query,
			Answer:     resp.CombinedSummary,
			Confidence: resp.Confidence,
			FromCache:  resp.FromCache,
			AskedAt:    time.Now(),
		})
	}
	b.sendText(ctx, chatID, renderResponse(resp))
}

func (b *Bot) sendText(ctx context.Context, chatID int64, text string) {
	_, err := b.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		logger.Error("Sending message to chat %d: %v", chatID, err)
	}
}

func (b *Bot) sendTyping(ctx context.Context, chatID int64) {
	_, err := b.bot.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	})
	if err != nil {
		logger.Debug("Sending typing action to chat %d: %v", chatID, err)
	}
}

func helpText() string {
	return "Send me any research question and I will search the web, read the best sources and reply with a sourced summary. Repeated questions are answered instantly from what I already learned.\n\nCommands:\n/history - recent questions in this chat\n/forget - clear this chat's history"
}

// historyDisplayLimit is how many past questions /history shows.
const historyDisplayLimit = 5

func historyText(history []Exchange) string {
	if len(history) == 0 {
		return "No research history in this chat yet."
	}
	var sb strings.Builder
	sb.WriteString("Recent research in this chat:\n")
	for _, ex := range history {
		marker := ""
		if ex.FromCache {
			marker = ", cached"
		}
		fmt.Fprintf(&sb, "- %s (%.0f%%%s)\n", ex.Query, ex.Confidence*100, marker)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderResponse formats an agent response for chat.
func renderResponse(resp core.Response) string {
	if !resp.Valid {
		reason := resp.Message
		if reason == "" {
			reason = "it looks like a personal task rather than a research question"
		}
		return "I can't research that: " + reason + "."
	}
	if resp.CombinedSummary == "" {
		if resp.Message != "" {
			return resp.Message
		}
		return "I could not find anything useful for that question."
	}

	var sb strings.Builder
	sb.WriteString(resp.CombinedSummary)
	sb.WriteString("\n")

	usable := usableSources(resp.Sources)
	if len(usable) > 0 {
		sb.WriteString("\nSources:\n")
		for _, src := range usable {
			if src.Title != "" {
				fmt.Fprintf(&sb, "- %s (%s)\n", src.Title, src.URL)
			} else {
				fmt.Fprintf(&sb, "- %s\n", src.URL)
			}
		}
	}

	fmt.Fprintf(&sb, "\nConfidence: %.0f%%", resp.Confidence*100)
	if resp.FromCache {
		sb.WriteString(" (answered from previous research)")
	}
	return sb.String()
}

func usableSources(sources []core.SourceSummary) []core.SourceSummary {
	out := make([]core.SourceSummary, 0, len(sources))
	for _, src := range sources {
		if src.FetchStatus == string(core.FetchSuccess) {
			out = append(out, src)
		}
	}
	return out
}

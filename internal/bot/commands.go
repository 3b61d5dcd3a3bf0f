package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/gradebook/internal/gradebook"
	"github.com/shrimpsizemoose/gradebook/internal/notify"
)

const (
	guestHelp = `This bot reports on gradebooks to registered teachers.
Ask an administrator to add your Telegram id.`

	teacherHelp = `Available commands:
/summary <district> <assignment> <class> - Submissions and average score
/items <assignment> <class> <item> - Answers to one item
/watch <assignment> <class> - Follow live gradebook changes
/unwatch <assignment> <class> - Stop following
/token <user> - Issue or show the API token of a gradebook user
/revoke <user> - Revoke the API token of a gradebook user
/help - Show this message

Examples:
/summary d1 65f0c2 5f9a11
/watch 65f0c2 5f9a11`
)

type commandHandler func(context.Context, *tgbotapi.Message) error

func (b *Bot) routeCommands(cmd string) (commandHandler, bool) {
	commands := map[string]commandHandler{
		"summary": b.handleSummary,
		"items":   b.handleItems,
		"watch":   b.handleWatch,
		"unwatch": b.handleUnwatch,
		"token":   b.handleToken,
		"revoke":  b.handleRevoke,
	}
	handler, found := commands[cmd]
	return handler, found
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		b.sendHelp(msg)
		return
	}

	cmd := msg.Command()
	if cmd == "start" || cmd == "help" {
		b.sendHelp(msg)
		return
	}

	if !b.admins[msg.From.ID] {
		b.sendHelp(msg)
		return
	}

	handler, ok := b.routeCommands(cmd)
	if !ok {
		b.sendHelp(msg)
		return
	}
	if err := handler(ctx, msg); err != nil {
		logger.Error.Printf("Command error: %v", err)
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("Error: %v", err))
	}
}

func (b *Bot) sendHelp(msg *tgbotapi.Message) error {
	text := guestHelp
	if msg.From != nil && b.admins[msg.From.ID] {
		text = teacherHelp
	}
	return b.sendMessage(msg.Chat.ID, text)
}

func (b *Bot) handleSummary(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 3 {
		return fmt.Errorf("usage: /summary <district> <assignment> <class>")
	}
	districtID, assignmentID, classID := args[0], args[1], args[2]

	summary, err := b.gradebook.GradebookSummary(ctx, districtID, assignmentID, classID)
	if err != nil {
		return fmt.Errorf("failed to get summary: %w", err)
	}
	if summary.Error {
		return b.sendMessage(msg.Chat.ID, summary.Status.Message)
	}

	var text strings.Builder
	text.WriteString(fmt.Sprintf("Assignment %s, class %s\n\n", assignmentID, classID))
	text.WriteString(fmt.Sprintf("Students: %d\n", summary.Total))
	text.WriteString(fmt.Sprintf("Submitted: %d\n", summary.SubmittedNumber))
	text.WriteString(fmt.Sprintf("Absent: %d\n", summary.AbsentNumber))
	text.WriteString(fmt.Sprintf("Average score: %.2f", summary.AverageScore))
	for _, item := range summary.ItemsSummary {
		text.WriteString(fmt.Sprintf("\n📝 %s: %d answers, %d correct, %d skipped",
			item.TestItemID, item.Attempts, item.Correct, item.Skipped))
	}

	return b.sendMessage(msg.Chat.ID, text.String())
}

func (b *Bot) handleItems(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 3 {
		return fmt.Errorf("usage: /items <assignment> <class> <item>")
	}

	activities, err := b.gradebook.QuestionActivitiesByItem(ctx, args[0], args[1], args[2])
	if err != nil {
		return fmt.Errorf("failed to get answers: %w", err)
	}
	if len(activities) == 0 {
		return b.sendMessage(msg.Chat.ID, fmt.Sprintf("No answers to item %s yet", args[2]))
	}

	students := make(map[string]bool)
	var correct, skipped int
	var total float64
	for _, qa := range activities {
		students[qa.UserID] = true
		if qa.Correct != nil && *qa.Correct {
			correct++
		}
		if qa.Skipped != nil && *qa.Skipped {
			skipped++
		}
		total += qa.ScoreValue()
	}

	return b.sendMessage(msg.Chat.ID, fmt.Sprintf(
		"Item %s\nStudents: %d\nAnswers: %d (%d correct, %d skipped)\nAverage score: %.2f",
		args[2],
		len(students),
		len(activities),
		correct,
		skipped,
		total/float64(len(activities)),
	))
}

func (b *Bot) handleWatch(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		return fmt.Errorf("usage: /watch <assignment> <class>")
	}

	b.watch(gradebook.Topic(args[1], args[0]), msg.Chat.ID)
	return b.sendMessage(msg.Chat.ID, fmt.Sprintf("👀 Watching assignment %s in class %s", args[0], args[1]))
}

func (b *Bot) handleUnwatch(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		return fmt.Errorf("usage: /unwatch <assignment> <class>")
	}

	if !b.unwatch(gradebook.Topic(args[1], args[0]), msg.Chat.ID) {
		return b.sendMessage(msg.Chat.ID, "You were not watching this gradebook")
	}
	return b.sendMessage(msg.Chat.ID, fmt.Sprintf("Stopped watching assignment %s in class %s", args[0], args[1]))
}

func (b *Bot) handleToken(ctx context.Context, msg *tgbotapi.Message) error {
	if b.tokens == nil {
		return b.sendMessage(msg.Chat.ID, "API tokens are disabled")
	}
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 1 {
		return fmt.Errorf("usage: /token <user>")
	}

	info, isNew, err := b.tokens.FetchOrCreateUserToken(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	action := "Existing"
	if isNew {
		action = "New"
	}
	return b.sendMessage(msg.Chat.ID, fmt.Sprintf("🔑 %s token for %s:\n%s\nRequested %d times since %s",
		action,
		info.UserID,
		info.Token,
		info.RequestCount,
		info.CreatedTime.Format("2006-01-02 15:04"),
	))
}

func (b *Bot) handleRevoke(ctx context.Context, msg *tgbotapi.Message) error {
	if b.tokens == nil {
		return b.sendMessage(msg.Chat.ID, "API tokens are disabled")
	}
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 1 {
		return fmt.Errorf("usage: /revoke <user>")
	}

	revoked, err := b.tokens.RevokeUserToken(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if !revoked {
		return b.sendMessage(msg.Chat.ID, fmt.Sprintf("%s has no token", args[0]))
	}
	return b.sendMessage(msg.Chat.ID, fmt.Sprintf("Token of %s revoked", args[0]))
}

// formatEvent turns a notify envelope into a chat message.
func formatEvent(topic, payload string) (string, error) {
	parts := strings.SplitN(topic, ":", 3)
	if len(parts) != 3 {
		return "", fmt.Errorf("unexpected topic %q", topic)
	}
	classID, assignmentID := parts[1], parts[2]

	var event notify.Envelope
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return "", fmt.Errorf("failed to decode event: %w", err)
	}

	var what string
	switch event.Type {
	case gradebook.EventAddItem:
		answers, _ := event.Payload.([]interface{})
		what = fmt.Sprintf("%d new answers", len(answers))
	case gradebook.EventRemoveQuestions:
		removed, _ := event.Payload.([]interface{})
		what = fmt.Sprintf("%d questions removed", len(removed))
	case gradebook.EventAddQuestionsMaxScore:
		scores, _ := event.Payload.(map[string]interface{})
		what = fmt.Sprintf("max score changed for %d questions", len(scores))
	default:
		return "", fmt.Errorf("unknown event type %q", event.Type)
	}

	return fmt.Sprintf("📣 Assignment %s, class %s: %s", assignmentID, classID, what), nil
}

func (b *Bot) sendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.sender.Send(msg)
	return err
}

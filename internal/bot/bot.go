package bot

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/gradebook/internal/gradebook"
	"github.com/shrimpsizemoose/gradebook/internal/models"
)

// GradebookReader is the read side of the gradebook the bot reports on.
type GradebookReader interface {
	GradebookSummary(ctx context.Context, districtID, assignmentID, classID string) (*gradebook.Summary, error)
	QuestionActivitiesByItem(ctx context.Context, assignmentID, groupID, testItemID string) ([]models.QuestionActivity, error)
}

// TokenIssuer hands out the API tokens the gradebook server checks.
type TokenIssuer interface {
	FetchOrCreateUserToken(ctx context.Context, userID string) (*models.TokenInfo, bool, error)
	RevokeUserToken(ctx context.Context, userID string) (bool, error)
}

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Subscriber is the part of a redis client needed to follow gradebook topics.
type Subscriber interface {
	PSubscribe(ctx context.Context, channels ...string) *redis.PubSub
}

type Bot struct {
	gradebook GradebookReader
	tokens    TokenIssuer
	api       *tgbotapi.BotAPI
	sender    Sender
	admins    map[int64]bool

	mu       sync.Mutex
	watchers map[string]map[int64]bool
}

// New connects to Telegram. tokens may be nil when API auth is disabled.
func New(token string, adminIDs []int64, gb GradebookReader, tokens TokenIssuer) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	b := newBot(api, adminIDs, gb)
	b.api = api
	b.tokens = tokens
	return b, nil
}

func newBot(sender Sender, adminIDs []int64, gb GradebookReader) *Bot {
	admins := make(map[int64]bool)
	for _, id := range adminIDs {
		admins[id] = true
	}

	return &Bot{
		gradebook: gb,
		sender:    sender,
		admins:    admins,
		watchers:  make(map[string]map[int64]bool),
	}
}

// Start serves commands until ctx is done. With a subscriber, gradebook
// events are relayed to the chats watching their topic.
func (b *Bot) Start(ctx context.Context, sub Subscriber) error {
	if sub != nil {
		go b.relayEvents(ctx, sub)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case update := <-updates:
			if update.Message == nil {
				continue
			}

			go b.handleMessage(ctx, update.Message)

		case <-ctx.Done():
			logger.Info.Println("Shutting down bot...")
			return nil
		}
	}
}

func (b *Bot) relayEvents(ctx context.Context, sub Subscriber) {
	pubsub := sub.PSubscribe(ctx, "gradebook:*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.relay(msg.Channel, msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (b *Bot) relay(topic, payload string) {
	chats := b.watching(topic)
	if len(chats) == 0 {
		return
	}

	text, err := formatEvent(topic, payload)
	if err != nil {
		logger.Error.Printf("Skipping event on %s: %v", topic, err)
		return
	}
	for _, chatID := range chats {
		if err := b.sendMessage(chatID, text); err != nil {
			logger.Error.Printf("Failed to relay event to chat %d: %v", chatID, err)
		}
	}
}

func (b *Bot) watch(topic string, chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.watchers[topic] == nil {
		b.watchers[topic] = make(map[int64]bool)
	}
	b.watchers[topic][chatID] = true
}

func (b *Bot) unwatch(topic string, chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.watchers[topic][chatID] {
		return false
	}
	delete(b.watchers[topic], chatID)
	if len(b.watchers[topic]) == 0 {
		delete(b.watchers, topic)
	}
	return true
}

func (b *Bot) watching(topic string) []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	chats := make([]int64, 0, len(b.watchers[topic]))
	for id := range b.watchers[topic] {
		chats = append(chats, id)
	}
	return chats
}

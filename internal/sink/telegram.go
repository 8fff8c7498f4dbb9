package sink

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramMaxMsgLen stays under Telegram's 4096-char message limit.
const telegramMaxMsgLen = 4000

// telegramSender is the slice of the bot API the sink uses; narrowed for
// tests.
type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram mirrors a transcript to a Telegram chat. Fragments are
// accumulated as they stream in and delivered as whole messages on Flush —
// Telegram has no incremental append, so streaming them one by one would
// spam the chat.
type Telegram struct {
	bot    telegramSender
	chatID int64
	logger *slog.Logger

	mu  sync.Mutex
	buf strings.Builder
}

type TelegramConfig struct {
	Token  string
	ChatID int64
	Logger *slog.Logger
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	cfg.Logger.Info("telegram mirror connected", "username", bot.Self.UserName)
	return &Telegram{bot: bot, chatID: cfg.ChatID, logger: cfg.Logger}, nil
}

func (t *Telegram) AppendText(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.WriteString(text)
}

func (t *Telegram) SetVisible(bool) {}

// Flush delivers the accumulated transcript in chunks and resets the
// buffer. Chunks prefer to break at a newline past the midpoint.
func (t *Telegram) Flush() error {
	t.mu.Lock()
	text := t.buf.String()
	t.buf.Reset()
	t.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return nil
	}

	for _, chunk := range splitChunks(text, telegramMaxMsgLen) {
		msg := tgbotapi.NewMessage(t.chatID, chunk)
		if _, err := t.bot.Send(msg); err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
	}
	return nil
}

func splitChunks(text string, maxLen int) []string {
	var chunks []string
	for len(text) > 0 {
		chunk := text
		if len(chunk) > maxLen {
			cutAt := strings.LastIndex(chunk[:maxLen], "\n")
			if cutAt < maxLen/2 {
				// Hard cut, backed up to a rune boundary so a multibyte
				// character is never split across messages.
				cutAt = maxLen
				for cutAt > 0 && !utf8.RuneStart(chunk[cutAt]) {
					cutAt--
				}
				if cutAt == 0 {
					cutAt = maxLen
				}
			}
			chunk = text[:cutAt]
			text = text[cutAt:]
		} else {
			text = ""
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

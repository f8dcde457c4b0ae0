// Package notify отправляет уведомления о смене статуса задач в чат Telegram.
package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dispatchtrack/internal/dispatch"
)

// Sender - часть *tgbotapi.BotAPI, которой пользуется уведомитель.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram - dispatch.Notifier, пишущий в один служебный чат.
type Telegram struct {
	sender Sender
	chatID int64
	logger logrus.FieldLogger
	newRef func() string
}

var _ dispatch.Notifier = (*Telegram)(nil)

// NewTelegram авторизует бота по токену.
func NewTelegram(token string, chatID int64, debug bool, logger logrus.FieldLogger) (*Telegram, error) {
	if token == "" {
		return nil, fmt.Errorf("токен Telegram API не предоставлен")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("NOTIFY_CHAT_ID не задан")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Telegram Bot API: %w", err)
	}
	api.Debug = debug
	logger.Infof("NewTelegram: авторизован как %s", api.Self.UserName)
	return NewTelegramWithSender(api, chatID, logger), nil
}

// NewTelegramWithSender собирает уведомитель поверх готового отправителя.
func NewTelegramWithSender(sender Sender, chatID int64, logger logrus.FieldLogger) *Telegram {
	return &Telegram{sender: sender, chatID: chatID, logger: logger, newRef: uuid.NewString}
}

// Notify отправляет сообщение о событии. Номер сообщения попадает и в текст,
// и в лог, чтобы сообщение в чате можно было найти в логах.
func (t *Telegram) Notify(ctx context.Context, ev dispatch.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ref := t.newRef()
	msg := tgbotapi.NewMessage(t.chatID, FormatEvent(ev, ref))
	if _, err := t.sender.Send(msg); err != nil {
		return fmt.Errorf("Notify: ошибка отправки в чат %d (ref %s): %w", t.chatID, ref, err)
	}
	t.logger.WithFields(logrus.Fields{
		"task_id": ev.Task.TaskID,
		"ref":     ref,
	}).Debug("Notify: уведомление отправлено")
	return nil
}

// FormatEvent - текст уведомления.
func FormatEvent(ev dispatch.Event, ref string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚚 派车任务 %s\n", ev.Task.TaskID)
	fmt.Fprintf(&b, "状态：%s\n", ev.Entry.StatusChange)
	fmt.Fprintf(&b, "轨道：%s\n", ev.Task.Track)
	fmt.Fprintf(&b, "路线：%s → %s\n", ev.Task.StartLocation, ev.Task.EndLocation)
	fmt.Fprintf(&b, "操作人：%s（%s）\n", ev.Actor.DisplayName(), ev.Actor.Role)
	if ev.Task.HasHandler() {
		fmt.Fprintf(&b, "下一处理人：%s\n", ev.Task.CurrentHandlerRole)
	} else {
		b.WriteString("任务已结束\n")
	}
	if ev.Entry.Note != "" {
		fmt.Fprintf(&b, "备注：%s\n", ev.Entry.Note)
	}
	fmt.Fprintf(&b, "编号：%s", ref)
	return b.String()
}

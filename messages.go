package webserial

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	msgConnected       = "msg.connected"
	msgConnectFailed   = "msg.connect_failed"
	msgConnecting      = "msg.connecting"
	msgDisconnecting   = "msg.disconnecting"
	msgDisconnected    = "msg.disconnected"
	msgDisconnectError = "msg.disconnect_error"
	msgStreamEnded     = "msg.stream_ended"
	msgReadFailed      = "msg.read_failed"
	msgNotConnected    = "msg.not_connected"
	msgEmptyInput      = "msg.empty_input"
	msgSent            = "msg.sent"
	msgSendFailed      = "msg.send_failed"
	msgCleared         = "msg.cleared"
	msgPaused          = "msg.paused"
	msgResumed         = "msg.resumed"
	msgNoData          = "msg.no_data"
	msgSaved           = "msg.saved"
	msgSaveFailed      = "msg.save_failed"
)

func init() {
	setStrings(language.AmericanEnglish, map[string]string{
		msgConnected:       "Connected to %s (%d baud)",
		msgConnectFailed:   "Connection failed: %v",
		msgConnecting:      "Connecting to %s",
		msgDisconnecting:   "Disconnecting from %s",
		msgDisconnected:    "Disconnected from %s",
		msgDisconnectError: "Error while disconnecting: %v",
		msgStreamEnded:     "Port %s closed the stream",
		msgReadFailed:      "Read error: %v",
		msgNotConnected:    "Connect to a port first",
		msgEmptyInput:      "Enter data to send",
		msgSent:            "Sent: %s",
		msgSendFailed:      "Send failed: %v",
		msgCleared:         "Data cleared",
		msgPaused:          "Reading paused",
		msgResumed:         "Reading resumed",
		msgNoData:          "No data to save",
		msgSaved:           "Data saved to %s",
		msgSaveFailed:      "Saving data failed: %v",
	})
	setStrings(language.Russian, map[string]string{
		msgConnected:       "Подключено к %s (%d бод)",
		msgConnectFailed:   "Ошибка подключения: %v",
		msgConnecting:      "Подключение к %s",
		msgDisconnecting:   "Отключение от %s",
		msgDisconnected:    "Отключено от %s",
		msgDisconnectError: "Ошибка при отключении: %v",
		msgStreamEnded:     "Порт %s закрыл поток",
		msgReadFailed:      "Ошибка чтения: %v",
		msgNotConnected:    "Сначала подключитесь к порту",
		msgEmptyInput:      "Введите данные для отправки",
		msgSent:            "Отправлено: %s",
		msgSendFailed:      "Ошибка отправки данных: %v",
		msgCleared:         "Данные очищены",
		msgPaused:          "Чтение приостановлено",
		msgResumed:         "Чтение возобновлено",
		msgNoData:          "Нет данных для сохранения",
		msgSaved:           "Данные сохранены в %s",
		msgSaveFailed:      "Ошибка сохранения данных: %v",
	})
}

func setStrings(tag language.Tag, strs map[string]string) {
	for key, msg := range strs {
		// SetString only fails on a malformed tag.
		_ = message.SetString(tag, key, msg)
	}
}

// SupportedLanguages lists the tags notification texts exist for.
var SupportedLanguages = []language.Tag{language.AmericanEnglish, language.Russian}

var languageMatcher = language.NewMatcher(SupportedLanguages)

// MatchLanguage picks the closest supported language for a BCP 47 string
// such as an Accept-Language header value or "ru".
func MatchLanguage(preferred string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(preferred)
	if err != nil || len(tags) == 0 {
		return language.AmericanEnglish
	}
	_, idx, _ := languageMatcher.Match(tags...)
	return SupportedLanguages[idx]
}

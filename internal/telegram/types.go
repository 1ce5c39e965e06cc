package telegram

// Update is one inbound webhook delivery. Exactly one of Message or
// CallbackQuery is set for the updates this bot handles.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Message is an inbound or sent chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

// User identifies a Telegram account.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Chat identifies where a message was sent.
type Chat struct {
	ID int64 `json:"id"`
}

// CallbackQuery is a button press on an inline keyboard. Data carries a
// verb_argument token such as "approve_<id>".
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    *User    `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// InlineKeyboardMarkup attaches buttons below a message.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// InlineKeyboardButton is one inline button. Exactly one of CallbackData or
// URL should be set.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

// ReplyKeyboardMarkup replaces the user's keyboard with custom buttons.
type ReplyKeyboardMarkup struct {
	Keyboard       [][]KeyboardButton `json:"keyboard"`
	ResizeKeyboard bool               `json:"resize_keyboard,omitempty"`
}

// KeyboardButton is one reply-keyboard button.
type KeyboardButton struct {
	Text string `json:"text"`
}

// SendOptions carries the optional parts of a sendMessage call. ReplyMarkup
// accepts either keyboard markup type.
type SendOptions struct {
	ParseMode   string
	ReplyMarkup any
}

package telegram

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dskvich/whisper-telegram-bot/pkg/domain"
)

type recorder struct {
	requests []domain.AudioRequest
	commands []string
}

func (r *recorder) Transcribe(_ context.Context, req domain.AudioRequest) {
	r.requests = append(r.requests, req)
}

func (r *recorder) SendGreeting(context.Context, int64, int)  { r.commands = append(r.commands, "start") }
func (r *recorder) SendHelp(context.Context, int64, int)      { r.commands = append(r.commands, "help") }
func (r *recorder) SendStatus(context.Context, int64, int)    { r.commands = append(r.commands, "status") }
func (r *recorder) SendModelInfo(context.Context, int64, int) { r.commands = append(r.commands, "model") }

func commandUpdate(text string) *tgbotapi.Update {
	return &tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: 111},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}}
}

func TestHandleCommands(t *testing.T) {
	tests := []struct {
		text     string
		expected []string
	}{
		{"/start", []string{"start"}},
		{"/help", []string{"help"}},
		{"/status", []string{"status"}},
		{"/model@whisper_bot", []string{"model"}},
		{"/help@Whisper_Bot", []string{"help"}},
		{"/START", []string{"start"}},
		{"/start@SomeOtherBot", nil},
		{"/unknown", nil},
	}

	for _, test := range tests {
		t.Run(test.text, func(t *testing.T) {
			rec := &recorder{}
			NewHandler("whisper_bot", rec, rec).HandleUpdate(context.Background(), commandUpdate(test.text))

			if len(rec.commands) != len(test.expected) || (len(test.expected) > 0 && rec.commands[0] != test.expected[0]) {
				t.Errorf("expected %v, got %v", test.expected, rec.commands)
			}
			if len(rec.requests) != 0 {
				t.Errorf("commands must not reach the pipeline")
			}
		})
	}
}

func TestHandleVoiceRoutesToPipeline(t *testing.T) {
	rec := &recorder{}
	update := &tgbotapi.Update{UpdateID: 9, Message: &tgbotapi.Message{
		MessageID: 5,
		From:      &tgbotapi.User{ID: 42},
		Chat:      &tgbotapi.Chat{ID: 111},
		Voice:     &tgbotapi.Voice{FileID: "voice-1", Duration: 3, MimeType: "audio/ogg", FileSize: 1200},
	}}

	NewHandler("whisper_bot", rec, rec).HandleUpdate(context.Background(), update)

	if len(rec.requests) != 1 {
		t.Fatalf("expected one pipeline call, got %d", len(rec.requests))
	}
	want := domain.AudioRequest{
		UpdateID: 9, ChatID: 111, UserID: 42, MessageID: 5,
		Kind: domain.AudioKindVoice, FileID: "voice-1", MimeType: "audio/ogg", FileSize: 1200, Duration: 3,
	}
	if rec.requests[0] != want {
		t.Errorf("unexpected request\n got %+v\nwant %+v", rec.requests[0], want)
	}
}

func TestAudioRequestFromUpdate(t *testing.T) {
	chat := &tgbotapi.Chat{ID: 1}
	tests := []struct {
		name     string
		msg      *tgbotapi.Message
		ok       bool
		kind     domain.AudioKind
		fileID   string
		language string
	}{
		{"nil message", nil, false, "", "", ""},
		{"plain text", &tgbotapi.Message{Chat: chat, Text: "hi"}, false, "", "", ""},
		{"audio file", &tgbotapi.Message{Chat: chat, Audio: &tgbotapi.Audio{FileID: "a", FileName: "talk.mp3"}}, true, domain.AudioKindAudio, "a", ""},
		{"video note", &tgbotapi.Message{Chat: chat, VideoNote: &tgbotapi.VideoNote{FileID: "v"}}, true, domain.AudioKindVideoNote, "v", ""},
		{"audio document", &tgbotapi.Message{Chat: chat, Document: &tgbotapi.Document{FileID: "d", MimeType: "audio/x-wav"}}, true, domain.AudioKindDocument, "d", ""},
		{"pdf document", &tgbotapi.Message{Chat: chat, Document: &tgbotapi.Document{FileID: "p", MimeType: "application/pdf"}}, false, "", "", ""},
		{"caption language", &tgbotapi.Message{Chat: chat, Caption: " DE ", Voice: &tgbotapi.Voice{FileID: "x"}}, true, domain.AudioKindVoice, "x", "de"},
		{"caption lang prefix", &tgbotapi.Message{Chat: chat, Caption: "lang: uk", Voice: &tgbotapi.Voice{FileID: "x"}}, true, domain.AudioKindVoice, "x", "uk"},
		{"caption not a language", &tgbotapi.Message{Chat: chat, Caption: "yes", Voice: &tgbotapi.Voice{FileID: "x"}}, true, domain.AudioKindVoice, "x", ""},
		{"caption sentence", &tgbotapi.Message{Chat: chat, Caption: "meeting notes", Voice: &tgbotapi.Voice{FileID: "x"}}, true, domain.AudioKindVoice, "x", ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			update := &tgbotapi.Update{Message: test.msg}
			req, ok := AudioRequestFromUpdate(update)
			if ok != test.ok {
				t.Fatalf("ok = %v, want %v", ok, test.ok)
			}
			if IsAudio(update) != test.ok {
				t.Errorf("IsAudio disagrees with AudioRequestFromUpdate")
			}
			if req.Kind != test.kind || req.FileID != test.fileID || req.Language != test.language {
				t.Errorf("unexpected request %+v", req)
			}
		})
	}
}

func TestHandlerAccepts(t *testing.T) {
	chat := &tgbotapi.Chat{ID: 222}
	tests := []struct {
		name     string
		update   *tgbotapi.Update
		expected bool
	}{
		{"voice", &tgbotapi.Update{Message: &tgbotapi.Message{Chat: chat, Voice: &tgbotapi.Voice{FileID: "v"}}}, true},
		{"own command", commandUpdate("/start"), true},
		{"command for this bot", commandUpdate("/status@whisper_bot"), true},
		{"command for another bot", commandUpdate("/start@SomeOtherBot"), false},
		{"unknown command", commandUpdate("/settings"), false},
		{"plain text", &tgbotapi.Update{Message: &tgbotapi.Message{Chat: chat, Text: "hi all"}}, false},
		{"member joined", &tgbotapi.Update{Message: &tgbotapi.Message{Chat: chat, NewChatMembers: []tgbotapi.User{{ID: 5}}}}, false},
		{"no message", &tgbotapi.Update{}, false},
	}

	h := NewHandler("whisper_bot", &recorder{}, &recorder{})
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := h.Accepts(test.update); got != test.expected {
				t.Errorf("Accepts = %v, want %v", got, test.expected)
			}
		})
	}
}

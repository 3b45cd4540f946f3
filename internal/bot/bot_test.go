package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"summarybot/internal/chunker"
	"summarybot/internal/domain"
	"summarybot/internal/metrics"
	"summarybot/internal/pipeline"
	"summarybot/internal/ratelimiter"
	"summarybot/internal/staging"
	"summarybot/internal/summarizer"
)

const testChatID int64 = 42

type sentMessage struct {
	text      string
	parseMode models.ParseMode
}

type fakeTelegram struct {
	mu          sync.Mutex
	sent        []sentMessage
	getFileHits atomic.Int32
	fileURL     string
}

func (f *fakeTelegram) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, sentMessage{text: params.Text, parseMode: params.ParseMode})

	return &models.Message{ID: len(f.sent), Text: params.Text}, nil
}

func (f *fakeTelegram) SendChatAction(context.Context, *bot.SendChatActionParams) (bool, error) {
	return true, nil
}

func (f *fakeTelegram) GetFile(_ context.Context, params *bot.GetFileParams) (*models.File, error) {
	f.getFileHits.Add(1)

	return &models.File{FileID: params.FileID, FilePath: "documents/file_1"}, nil
}

func (f *fakeTelegram) FileDownloadLink(file *models.File) string {
	return f.fileURL + "/" + file.FilePath
}

func (f *fakeTelegram) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]sentMessage(nil), f.sent...)
}

type fakeExtractor struct {
	calls atomic.Int32
	text  string
	err   error
}

func (f *fakeExtractor) Supports(mimeType string) bool {
	switch mimeType {
	case domain.MIMEPlainText, domain.MIMEPDF, domain.MIMEDOCX:
		return true
	default:
		return false
	}
}

func (f *fakeExtractor) MIMETypes() []string {
	return []string{domain.MIMEPDF, domain.MIMEDOCX, domain.MIMEPlainText}
}

func (f *fakeExtractor) Extract([]byte, string) (string, error) {
	f.calls.Add(1)

	return f.text, f.err
}

type fakeSummarizer struct {
	calls   atomic.Int32
	summary string
	err     error
	panics  bool
}

func (f *fakeSummarizer) Summarize(_ context.Context, input summarizer.Input) (string, error) {
	n := f.calls.Add(1)

	if f.panics {
		panic("summarizer exploded")
	}
	if f.err != nil {
		return "", f.err
	}
	if f.summary != "" {
		return f.summary, nil
	}

	return fmt.Sprintf("summary %d of %d chars", n, len([]rune(input.Text))), nil
}

type testEnv struct {
	bot        *Bot
	telegram   *fakeTelegram
	extractor  *fakeExtractor
	summarizer *fakeSummarizer
	stagingDir string
	downloads  *atomic.Int32
}

func newTestEnv(t *testing.T, ext *fakeExtractor, summ *fakeSummarizer) *testEnv {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	var downloads atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		downloads.Add(1)
		_, _ = w.Write([]byte("%PDF-1.4 fake document bytes"))
	}))
	t.Cleanup(server.Close)

	stagingDir := t.TempDir()
	area, err := staging.New(stagingDir, log)
	require.NoError(t, err)

	c, err := chunker.New(1024, 50, chunker.DefaultTerminators)
	require.NoError(t, err)

	p := pipeline.New(c, summ, pipeline.Config{
		MinInputLength: 20,
		MaxLength:      200,
		MinLength:      50,
	}, log)

	telegram := &fakeTelegram{fileURL: server.URL}

	b := &Bot{
		extractor:  ext,
		pipeline:   p,
		staging:    area,
		httpClient: server.Client(),
		opts: Options{
			MinInputLength: 20,
			MaxFileSize:    20 << 20,
			ReplyMaxLength: 4000,
		},
		log: log,
	}
	b.attach(telegram, telegram, ratelimiter.WithRates(0, 0))
	t.Cleanup(b.Stop)

	return &testEnv{
		bot:        b,
		telegram:   telegram,
		extractor:  ext,
		summarizer: summ,
		stagingDir: stagingDir,
		downloads:  &downloads,
	}
}

func (e *testEnv) send(message *models.Message) {
	message.Chat = models.Chat{ID: testChatID}
	message.From = &models.User{ID: 7}

	e.bot.handleUpdate(context.Background(), nil, &models.Update{ID: 1, Message: message})
}

func (e *testEnv) assertStagingEmpty(t *testing.T) {
	t.Helper()

	entries, err := os.ReadDir(e.stagingDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged files must not outlive a request")
}

func pdfMessage() *models.Message {
	return &models.Message{
		ID: 10,
		Document: &models.Document{
			FileID:       "file-1",
			FileUniqueID: "unique-1",
			FileName:     "report_q3.pdf",
			MimeType:     "application/pdf",
			FileSize:     1024,
		},
	}
}

func TestShortTextIsRejectedWithoutModelCall(t *testing.T) {
	env := newTestEnv(t, &fakeExtractor{}, &fakeSummarizer{})

	env.send(&models.Message{ID: 1, Text: "short"})

	messages := env.telegram.messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].text, "at least 20 characters")
	assert.Zero(t, env.summarizer.calls.Load())
	assert.Zero(t, env.extractor.calls.Load())
}

func TestTextIsSummarized(t *testing.T) {
	env := newTestEnv(t, &fakeExtractor{}, &fakeSummarizer{summary: "A concise summary."})

	env.send(&models.Message{ID: 1, Text: "  This message is long enough to be summarized.  "})

	messages := env.telegram.messages()
	require.Len(t, messages, 1)
	assert.Equal(t, SummaryHeader+"A concise summary.", messages[0].text)
	assert.Empty(t, messages[0].parseMode)
	assert.Equal(t, int32(1), env.summarizer.calls.Load())
}

func TestPDFDocumentIsSummarized(t *testing.T) {
	ext := &fakeExtractor{text: strings.Repeat("The quarter closed with record revenue. ", 10)}
	env := newTestEnv(t, ext, &fakeSummarizer{summary: "Revenue hit a record."})

	env.send(pdfMessage())

	assert.Equal(t, int32(1), ext.calls.Load())
	assert.GreaterOrEqual(t, env.summarizer.calls.Load(), int32(1))
	assert.Equal(t, int32(1), env.downloads.Load())

	messages := env.telegram.messages()
	require.Len(t, messages, 2)
	assert.Equal(t, models.ParseModeMarkdown, messages[0].parseMode)
	assert.Contains(t, messages[0].text, `*report\_q3\.pdf*`)
	assert.Equal(t, SummaryHeader+"Revenue hit a record.", messages[1].text)

	env.assertStagingEmpty(t)
}

func TestUnsupportedDocumentIsRejectedWithoutDownload(t *testing.T) {
	env := newTestEnv(t, &fakeExtractor{}, &fakeSummarizer{})

	message := pdfMessage()
	message.Document.MimeType = "image/png"
	message.Document.FileName = "photo.png"
	env.send(message)

	messages := env.telegram.messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "⚠️ Unsupported file format! Please upload a PDF, DOCX, or TXT file.", messages[0].text)
	assert.Zero(t, env.telegram.getFileHits.Load())
	assert.Zero(t, env.downloads.Load())
	assert.Zero(t, env.summarizer.calls.Load())
}

func TestMIMEParametersAreIgnored(t *testing.T) {
	ext := &fakeExtractor{text: "Plain text content that is long enough."}
	env := newTestEnv(t, ext, &fakeSummarizer{summary: "ok"})

	message := pdfMessage()
	message.Document.MimeType = "text/plain; charset=utf-8"
	env.send(message)

	assert.Equal(t, int32(1), ext.calls.Load())
}

func TestTooLargeDocumentIsRejectedWithoutDownload(t *testing.T) {
	env := newTestEnv(t, &fakeExtractor{}, &fakeSummarizer{})

	message := pdfMessage()
	message.Document.FileSize = 21 << 20
	env.send(message)

	messages := env.telegram.messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "⚠️ The file is too large. The limit is 20 MB.", messages[0].text)
	assert.Zero(t, env.telegram.getFileHits.Load())
}

func TestDocumentFailures(t *testing.T) {
	tests := []struct {
		name       string
		extractor  *fakeExtractor
		summarizer *fakeSummarizer
		want       string
	}{
		{
			"Extraction error",
			&fakeExtractor{err: fmt.Errorf("%w: broken xref table", domain.ErrExtraction)},
			&fakeSummarizer{},
			"❌ An error occurred while processing your document.",
		},
		{
			"No readable text",
			&fakeExtractor{text: " \n\n "},
			&fakeSummarizer{},
			"⚠️ No readable text found in the document. Please try another file.",
		},
		{
			"Too short after extraction",
			&fakeExtractor{text: "Tiny."},
			&fakeSummarizer{},
			"⚠️ Please provide a longer text (at least 20 characters) for summarization.",
		},
		{
			"Summarization error",
			&fakeExtractor{text: "Enough extracted text to summarize here."},
			&fakeSummarizer{err: fmt.Errorf("%w: model unavailable", domain.ErrSummarization)},
			genericFailureText,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			env := newTestEnv(t, test.extractor, test.summarizer)

			env.send(pdfMessage())

			messages := env.telegram.messages()
			require.Len(t, messages, 2)
			assert.Equal(t, test.want, messages[1].text)
			assert.NotContains(t, messages[1].text, "xref")
			assert.NotContains(t, messages[1].text, "unavailable")

			env.assertStagingEmpty(t)
		})
	}
}

func TestLongSummaryIsSplit(t *testing.T) {
	summary := strings.Repeat("ё", 9000)
	env := newTestEnv(t, &fakeExtractor{}, &fakeSummarizer{summary: summary})

	env.send(&models.Message{ID: 1, Text: "This message is long enough to be summarized."})

	messages := env.telegram.messages()
	require.Len(t, messages, 3)
	require.True(t, strings.HasPrefix(messages[0].text, SummaryHeader))

	var b strings.Builder
	for _, m := range messages {
		assert.LessOrEqual(t, len([]rune(m.text)), 4000)
		b.WriteString(m.text)
	}
	assert.Equal(t, SummaryHeader+summary, b.String())
}

func TestSummaryOfReplySizeStaysWithinLimit(t *testing.T) {
	summary := strings.Repeat("a", 4000)
	env := newTestEnv(t, &fakeExtractor{}, &fakeSummarizer{summary: summary})

	env.send(&models.Message{ID: 1, Text: "This message is long enough to be summarized."})

	messages := env.telegram.messages()
	require.Len(t, messages, 2)
	assert.Len(t, []rune(messages[0].text), 4000)
	assert.Equal(t, SummaryHeader+summary, messages[0].text+messages[1].text)
}

func commandMessage(id int, text string) *models.Message {
	name, _, _ := strings.Cut(text, " ")

	return &models.Message{
		ID:   id,
		Text: text,
		Entities: []models.MessageEntity{
			{Type: models.MessageEntityTypeBotCommand, Offset: 0, Length: len(name)},
		},
	}
}

func TestCommands(t *testing.T) {
	env := newTestEnv(t, &fakeExtractor{}, &fakeSummarizer{})

	env.send(commandMessage(1, "/start"))
	env.send(commandMessage(2, "/unknown"))

	messages := env.telegram.messages()
	require.Len(t, messages, 1)
	assert.Equal(t, models.ParseModeMarkdown, messages[0].parseMode)
	assert.Contains(t, messages[0].text, "PDF, DOCX, or TXT")
	assert.Zero(t, env.summarizer.calls.Load())
}

func TestSlashTextWithoutCommandEntityIsSummarized(t *testing.T) {
	env := newTestEnv(t, &fakeExtractor{}, &fakeSummarizer{summary: "Shared libraries live there."})

	env.send(&models.Message{ID: 1, Text: "/usr/lib contains the shared libraries of the system."})

	messages := env.telegram.messages()
	require.Len(t, messages, 1)
	assert.Equal(t, SummaryHeader+"Shared libraries live there.", messages[0].text)
	assert.Equal(t, int32(1), env.summarizer.calls.Load())
}

func TestEventKind(t *testing.T) {
	tests := []struct {
		name    string
		message *models.Message
		want    string
	}{
		{"Document", pdfMessage(), metrics.KindDocument},
		{"Command", commandMessage(1, "/help"), metrics.KindCommand},
		{"Path", &models.Message{Text: "/usr/lib"}, metrics.KindText},
		{
			"Command entity later in text",
			&models.Message{
				Text:     "see /help",
				Entities: []models.MessageEntity{{Type: models.MessageEntityTypeBotCommand, Offset: 4, Length: 5}},
			},
			metrics.KindText,
		},
		{"Empty", &models.Message{}, ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, eventKind(test.message))
		})
	}
}

func TestPanicInHandlerIsRecovered(t *testing.T) {
	env := newTestEnv(t, &fakeExtractor{}, &fakeSummarizer{panics: true})

	assert.NotPanics(t, func() {
		env.send(&models.Message{ID: 1, Text: "This message is long enough to be summarized."})
	})

	messages := env.telegram.messages()
	require.Len(t, messages, 1)
	assert.Equal(t, genericFailureText, messages[0].text)

	env.summarizer.panics = false
	env.send(&models.Message{ID: 2, Text: "This message is long enough to be summarized too."})

	messages = env.telegram.messages()
	require.Len(t, messages, 2)
	assert.True(t, strings.HasPrefix(messages[1].text, SummaryHeader))
}

func TestLookupReply(t *testing.T) {
	b := &Bot{extractor: &fakeExtractor{}, opts: Options{MinInputLength: 50}}

	tests := []struct {
		name          string
		err           error
		wantRejection bool
	}{
		{"Unsupported", domain.ErrUnsupportedFormat, true},
		{"Too short", fmt.Errorf("wrapped: %w", domain.ErrTooShort), true},
		{"Extraction", domain.ErrExtraction, false},
		{"Unknown", errors.New("network down"), false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			text, rejection := lookupReply(b, test.err)
			assert.NotEmpty(t, text)
			assert.Equal(t, test.wantRejection, rejection)
		})
	}
}

func TestSplitRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		size int
		want []string
	}{
		{"Fits", "abc", 4, []string{"abc"}},
		{"Exact", "abcd", 2, []string{"ab", "cd"}},
		{"Remainder", "abcde", 2, []string{"ab", "cd", "e"}},
		{"Multibyte", "жжжжж", 2, []string{"жж", "жж", "ж"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, splitRunes(test.in, test.size))
		})
	}
}

func TestFormatList(t *testing.T) {
	assert.Equal(t, "PDF", formatList([]string{domain.MIMEPDF}))
	assert.Equal(t, "PDF or TXT", formatList([]string{domain.MIMEPDF, domain.MIMEPlainText}))
	assert.Equal(t, "HTML, Markdown, or application/x-custom",
		formatList([]string{domain.MIMEHTML, domain.MIMEMarkdown, "application/x-custom"}))
}

func TestRepeatedDocumentIsProcessedAgain(t *testing.T) {
	ext := &fakeExtractor{text: strings.Repeat("The quarter closed with record revenue. ", 10)}
	env := newTestEnv(t, ext, &fakeSummarizer{summary: "Revenue hit a record."})

	env.send(pdfMessage())
	env.send(pdfMessage())

	assert.Equal(t, int32(2), env.downloads.Load())
	assert.Equal(t, int32(2), ext.calls.Load())
	assert.Equal(t, int32(2), env.summarizer.calls.Load())

	messages := env.telegram.messages()
	require.Len(t, messages, 4)
	assert.Equal(t, messages[1].text, messages[3].text)

	env.assertStagingEmpty(t)
}

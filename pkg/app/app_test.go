package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bottlecangowhere/pkg/bot/fakeadapter"
	"bottlecangowhere/pkg/config"
	"bottlecangowhere/pkg/registry"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
)

const machinesCSV = `Name,Latitude,Longitude,Address,Description,Hours,Status,Nearby
A,1.3000,103.8000,1 A Road,Lobby,24 hours,Working,None
B,1.3050,103.8050,2 B Road,Level 2,10am - 10pm,Working,None
C,1.3500,103.8500,3 C Road,Lift lobby,8am - 8pm,Working,Blue bin
D,1.3520,103.8520,4 D Road,Carpark,24 hours,Working,
E,1.4000,103.9000,5 E Road,Atrium,9am - 9pm,Out of Order,None
`

type fakeSource struct {
	ch      chan tgbotapi.Update
	stopped bool
}

func (f *fakeSource) GetUpdatesChan(int) tgbotapi.UpdatesChannel { return f.ch }
func (f *fakeSource) StopReceivingUpdates()                      { f.stopped = true }

func testConfig(t *testing.T) *config.BotConfig {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(machinesCSV), 0o644))

	cfg := config.Default()
	cfg.Storage.MachinesCSV = path
	cfg.Storage.JournalPath = filepath.Join(dir, "journal.db")
	return cfg
}

func message(id int, userID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: id,
		From:      &tgbotapi.User{ID: userID, FirstName: "Tester"},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Length: len(text)}}
	}
	return tgbotapi.Update{UpdateID: id, Message: msg}
}

func location(id int, userID int64, lat, lon float64) tgbotapi.Update {
	u := message(id, userID, "")
	u.Message.Location = &tgbotapi.Location{Latitude: lat, Longitude: lon}
	return u
}

func TestRunFlushesReportedStatusOnSignal(t *testing.T) {
	cfg := testConfig(t)
	bot := &fakeadapter.FakeAdapter{}
	a, err := New(cfg, bot)
	require.NoError(t, err)

	src := &fakeSource{ch: make(chan tgbotapi.Update, 8)}
	src.ch <- message(1, 42, "/report")
	src.ch <- location(2, 42, 1.3499, 103.8499)
	src.ch <- message(3, 42, "C")
	src.ch <- message(4, 42, "Out of Order")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx, src) }()

	require.Eventually(t, func() bool {
		return len(bot.Texts(42)) == 4
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	require.True(t, src.stopped)

	texts := bot.Texts(42)
	require.Contains(t, texts[3], "is currently <u><b>Out of Order</b></u>")
	require.Contains(t, texts[3], "alternative 2 nearest")

	reloaded, err := registry.Load(registry.NewCSVStore(cfg.Storage.MachinesCSV))
	require.NoError(t, err)
	m, ok := reloaded.Get("C")
	require.True(t, ok)
	require.Equal(t, registry.StatusOutOfOrder, m.Status)
	require.Equal(t, 5, reloaded.Len())
}

func TestRunFlushesWhenUpdatesClose(t *testing.T) {
	cfg := testConfig(t)
	bot := &fakeadapter.FakeAdapter{}
	a, err := New(cfg, bot)
	require.NoError(t, err)

	src := &fakeSource{ch: make(chan tgbotapi.Update, 8)}
	src.ch <- message(1, 7, "/report")
	src.ch <- location(2, 7, 1.3049, 103.8049)
	src.ch <- message(3, 7, "B")
	src.ch <- message(4, 7, "Full")
	close(src.ch)

	require.NoError(t, a.Run(context.Background(), src))

	m, ok := a.Registry().Get("B")
	require.True(t, ok)
	require.Equal(t, registry.StatusFull, m.Status)

	raw, err := os.ReadFile(cfg.Storage.MachinesCSV)
	require.NoError(t, err)
	require.Contains(t, string(raw), "B,1.305,103.805,2 B Road,Level 2,10am - 10pm,Full")
}

func TestNewFailsOnMissingMachinesFile(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.MachinesCSV = filepath.Join(t.TempDir(), "missing.csv")
	_, err := New(cfg, &fakeadapter.FakeAdapter{})
	require.Error(t, err)
}

func TestPrintNearest(t *testing.T) {
	cfg := testConfig(t)
	var buf bytes.Buffer
	require.NoError(t, PrintNearest(&buf, cfg.Storage.MachinesCSV, 1.3499, 103.8499, 2))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "NAME"))
	require.True(t, strings.HasPrefix(lines[1], "C "))
	require.True(t, strings.HasPrefix(lines[2], "D "))

	require.Error(t, PrintNearest(&buf, cfg.Storage.MachinesCSV, 91, 0, 1))
}

package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"boss_alert_bot/internal/domain/boss"
	"boss_alert_bot/internal/domain/chat"
	"boss_alert_bot/internal/domain/tracker"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var kst = time.FixedZone("KST", 9*60*60)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func testSchedule(t *testing.T) *boss.Schedule {
	t.Helper()
	s, err := boss.NewSchedule(boss.DefaultTable(), kst)
	require.NoError(t, err)
	return s
}

func clock(hour, minute, second int) func() time.Time {
	return func() time.Time {
		return time.Date(2025, time.March, 14, hour, minute, second, 0, kst)
	}
}

type sentMessage struct {
	ChannelID string
	ID        string
	Content   string
}

type fakeMessenger struct {
	mu sync.Mutex

	self      string
	nextID    int
	messages  map[string]*sentMessage
	sent      []sentMessage
	edits     []sentMessage
	deleted   []string
	reactions map[string][]string

	roles   map[string][]chat.Role
	members map[string][]string // guildID/userID -> role ids

	targets  []chat.Target
	channels []chat.Target

	sendErr       error
	deleteErr     error
	reactErr      error
	targetsErr    error
	createRoleErr error
	onCreateRole  func(f *fakeMessenger, guildID string)

	createRoleCalls int
	grantCalls      int
	revokeCalls     int
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		self:      "bot",
		messages:  make(map[string]*sentMessage),
		reactions: make(map[string][]string),
		roles:     make(map[string][]chat.Role),
		members:   make(map[string][]string),
	}
}

var _ chat.Messenger = (*fakeMessenger)(nil)

func (f *fakeMessenger) SendMessage(_ context.Context, channelID, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		f.sent = append(f.sent, sentMessage{ChannelID: channelID, Content: content})
		return "", f.sendErr
	}
	f.nextID++
	m := sentMessage{ChannelID: channelID, ID: fmt.Sprintf("m%d", f.nextID), Content: content}
	f.messages[m.ID] = &m
	f.sent = append(f.sent, m)
	return m.ID, nil
}

func (f *fakeMessenger) DeleteMessage(_ context.Context, _, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.messages[messageID]; !ok {
		return chat.ErrNotFound
	}
	delete(f.messages, messageID)
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeMessenger) EditMessage(_ context.Context, channelID, messageID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[messageID]
	if !ok || m.ChannelID != channelID {
		return chat.ErrNotFound
	}
	m.Content = content
	f.edits = append(f.edits, *m)
	return nil
}

func (f *fakeMessenger) FetchMessage(_ context.Context, channelID, messageID string) (*chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[messageID]
	if !ok || m.ChannelID != channelID {
		return nil, chat.ErrNotFound
	}
	return &chat.Message{ID: m.ID, ChannelID: m.ChannelID, Content: m.Content}, nil
}

func (f *fakeMessenger) AddReaction(_ context.Context, _, messageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reactErr != nil {
		return f.reactErr
	}
	if _, ok := f.messages[messageID]; !ok {
		return chat.ErrNotFound
	}
	f.reactions[messageID] = append(f.reactions[messageID], emoji)
	return nil
}

func (f *fakeMessenger) ListRoles(_ context.Context, guildID string) ([]chat.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chat.Role(nil), f.roles[guildID]...), nil
}

func (f *fakeMessenger) CreateRole(_ context.Context, guildID, name string) (string, error) {
	f.mu.Lock()
	f.createRoleCalls++
	hook := f.onCreateRole
	err := f.createRoleErr
	f.mu.Unlock()

	if hook != nil {
		hook(f, guildID)
	}
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("role-%s-%d", guildID, len(f.roles[guildID])+1)
	f.roles[guildID] = append(f.roles[guildID], chat.Role{ID: id, Name: name})
	return id, nil
}

func (f *fakeMessenger) MemberRoles(_ context.Context, guildID, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.members[guildID+"/"+userID]...), nil
}

func (f *fakeMessenger) GrantRole(_ context.Context, guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grantCalls++
	key := guildID + "/" + userID
	f.members[key] = append(f.members[key], roleID)
	return nil
}

func (f *fakeMessenger) RevokeRole(_ context.Context, guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokeCalls++
	key := guildID + "/" + userID
	kept := f.members[key][:0]
	for _, r := range f.members[key] {
		if r != roleID {
			kept = append(kept, r)
		}
	}
	f.members[key] = kept
	return nil
}

func (f *fakeMessenger) AlertTargets(context.Context, string, string) ([]chat.Target, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.targetsErr != nil {
		return nil, f.targetsErr
	}
	return append([]chat.Target(nil), f.targets...), nil
}

func (f *fakeMessenger) AlertChannels(context.Context, string) ([]chat.Target, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.targetsErr != nil {
		return nil, f.targetsErr
	}
	return append([]chat.Target(nil), f.channels...), nil
}

func (f *fakeMessenger) SelfID() string { return f.self }

func (f *fakeMessenger) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeMessenger) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// seed puts a message on the fake platform as if posted earlier.
func (f *fakeMessenger) seed(channelID, messageID, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[messageID] = &sentMessage{ChannelID: channelID, ID: messageID, Content: content}
}

type memStore struct {
	mu     sync.Mutex
	msgs   map[string]tracker.Message // guild id -> record
	getErr error
	setErr error
	gets   int
	sets   int
}

var _ tracker.Store = (*memStore)(nil)

func newMemStore(msgs ...tracker.Message) *memStore {
	s := &memStore{msgs: make(map[string]tracker.Message)}
	for _, m := range msgs {
		s.msgs[m.GuildID] = m
	}
	return s
}

func (s *memStore) Get(_ context.Context, guildID string) (*tracker.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	m, ok := s.msgs[guildID]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *memStore) Set(_ context.Context, msg tracker.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.setErr != nil {
		return s.setErr
	}
	s.msgs[msg.GuildID] = msg
	return nil
}

func (s *memStore) record(guildID string) *tracker.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[guildID]
	if !ok {
		return nil
	}
	return &m
}

// staticLookup serves fixed tracker messages keyed by guild.
type staticLookup struct {
	msgs map[string]*tracker.Message
	err  error
}

func (l staticLookup) Current(_ context.Context, guildID string) (*tracker.Message, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.msgs[guildID], nil
}

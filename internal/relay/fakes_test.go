package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/edgard/modmail/internal/database"
)

type createCall struct {
	GroupID int64
	Name    string
}

type copyCall struct {
	Src MessageRef
	Dst Destination
}

// fakePlatform records every call and hands out sequential thread ids.
type fakePlatform struct {
	mu sync.Mutex

	nextThreadID int
	createErr    error
	sendErr      error
	copyErr      error

	// onCreate runs before CreateThread returns, outside the lock.
	onCreate func()

	creates []createCall
	sends   []Outgoing
	copies  []copyCall

	// calls is every platform call in arrival order, e.g. "copy 1001/1 -> -100/55".
	calls []string
}

func newFakePlatform(firstThreadID int) *fakePlatform {
	return &fakePlatform{nextThreadID: firstThreadID}
}

func (f *fakePlatform) CreateThread(_ context.Context, groupID int64, name string) (int, error) {
	if f.onCreate != nil {
		f.onCreate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, createCall{GroupID: groupID, Name: name})
	f.calls = append(f.calls, fmt.Sprintf("create %d %q", groupID, name))
	if f.createErr != nil {
		return 0, f.createErr
	}
	id := f.nextThreadID
	f.nextThreadID++
	return id, nil
}

func (f *fakePlatform) SendMessage(_ context.Context, msg Outgoing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, msg)
	f.calls = append(f.calls, fmt.Sprintf("send -> %d/%d", msg.ChatID, msg.ThreadID))
	return f.sendErr
}

func (f *fakePlatform) CopyMessage(_ context.Context, src MessageRef, dst Destination) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copies = append(f.copies, copyCall{Src: src, Dst: dst})
	f.calls = append(f.calls, fmt.Sprintf("copy %d/%d -> %d/%d", src.ChatID, src.MessageID, dst.ChatID, dst.ThreadID))
	return f.copyErr
}

func (f *fakePlatform) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakePlatform) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates)
}

func (f *fakePlatform) copyCalls() []copyCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]copyCall(nil), f.copies...)
}

func (f *fakePlatform) sentMessages() []Outgoing {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Outgoing(nil), f.sends...)
}

// memStore is an in-memory BindingStore with call counters.
type memStore struct {
	mu sync.Mutex

	byUser map[int64]int
	err    error
	// saveErr fails SaveBinding only.
	saveErr error

	userLookups   int
	threadLookups int
	saves         int
}

func newMemStore() *memStore {
	return &memStore{byUser: make(map[int64]int)}
}

func (m *memStore) GetBindingByUser(_ context.Context, userID int64) (*database.Binding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userLookups++
	if m.err != nil {
		return nil, m.err
	}
	threadID, ok := m.byUser[userID]
	if !ok {
		return nil, nil
	}
	return &database.Binding{UserID: userID, ThreadID: threadID}, nil
}

func (m *memStore) GetBindingByThread(_ context.Context, threadID int) (*database.Binding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threadLookups++
	if m.err != nil {
		return nil, m.err
	}
	for userID, t := range m.byUser {
		if t == threadID {
			return &database.Binding{UserID: userID, ThreadID: t}, nil
		}
	}
	return nil, nil
}

func (m *memStore) SaveBinding(_ context.Context, binding *database.Binding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.err != nil {
		return m.err
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	if binding == nil {
		return errors.New("nil binding")
	}
	m.byUser[binding.UserID] = binding.ThreadID
	return nil
}

func (m *memStore) rows() map[int64]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]int, len(m.byUser))
	for k, v := range m.byUser {
		out[k] = v
	}
	return out
}

func bindingOf(userID int64, threadID int) *database.Binding {
	return &database.Binding{UserID: userID, ThreadID: threadID}
}

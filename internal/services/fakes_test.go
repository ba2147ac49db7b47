package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/edita-ar/apiserver/internal/storage"
	"github.com/edita-ar/apiserver/internal/store"
	"github.com/edita-ar/apiserver/internal/vision"
	"github.com/edita-ar/apiserver/types"
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	jpegBytes = append([]byte{0xff, 0xd8, 0xff, 0xe0}, make([]byte, 32)...)
)

type memoryUsers struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]types.User
	err    error
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: map[string]types.User{}}
}

func (m *memoryUsers) Create(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return types.User{}, m.err
	}
	if _, ok := m.users[user.Username]; ok {
		return types.User{}, store.ErrDuplicateUsername
	}
	m.nextID++
	user.ID = m.nextID
	m.users[user.Username] = user
	return user, nil
}

func (m *memoryUsers) GetByUsername(_ context.Context, username string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return types.User{}, m.err
	}
	user, ok := m.users[username]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memoryUsers) RecordProjectPublished(_ context.Context, username string, activity types.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	user, ok := m.users[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Projects++
	user.ActivityFeed = append(user.ActivityFeed, activity)
	m.users[username] = user
	return nil
}

type memoryProjects struct {
	mu       sync.Mutex
	nextID   int64
	projects []types.Project
	err      error
}

func (m *memoryProjects) Create(_ context.Context, project types.Project) (types.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return types.Project{}, m.err
	}
	m.nextID++
	project.ID = m.nextID
	project.Likes = 0
	project.Comments = 0
	m.projects = append(m.projects, project)
	return project, nil
}

func (m *memoryProjects) ListLatest(_ context.Context, limit int) ([]types.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := append([]types.Project(nil), m.projects...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type publishedEvent struct {
	channel string
	data    []byte
	attrs   map[string]string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, publishedEvent{channel: channel, data: data, attrs: attrs})
	return "msg-1", nil
}

type memoryObjects struct {
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryObjects) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memoryObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type stubCollaborator struct {
	items    []string
	feedback types.StepFeedback
	err      error
	block    bool

	gotImage  vision.Image
	gotTarget string
}

func (s *stubCollaborator) Name() string { return "stub" }

func (s *stubCollaborator) Detect(ctx context.Context, img vision.Image) ([]string, error) {
	s.gotImage = img
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.items, s.err
}

func (s *stubCollaborator) AnalyzeStep(ctx context.Context, img vision.Image, target string) (types.StepFeedback, error) {
	s.gotImage = img
	s.gotTarget = target
	if s.block {
		<-ctx.Done()
		return types.StepFeedback{}, ctx.Err()
	}
	return s.feedback, s.err
}

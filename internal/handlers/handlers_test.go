package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/edita-ar/apiserver/internal/logging"
	"github.com/edita-ar/apiserver/internal/storage"
	"github.com/edita-ar/apiserver/internal/store"
	"github.com/edita-ar/apiserver/internal/vision"
	"github.com/edita-ar/apiserver/types"
	"github.com/stretchr/testify/require"
)

var (
	testLogger = logging.Discard()
	pngBytes   = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]types.User
	err   error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]types.User{}}
}

func (f *fakeUsers) Create(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return types.User{}, f.err
	}
	if _, ok := f.users[user.Username]; ok {
		return types.User{}, store.ErrDuplicateUsername
	}
	user.ID = int64(len(f.users) + 1)
	f.users[user.Username] = user
	return user, nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return types.User{}, f.err
	}
	user, ok := f.users[username]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

type fakeProjects struct {
	mu       sync.Mutex
	projects []types.Project
	err      error
}

func (f *fakeProjects) Create(_ context.Context, project types.Project) (types.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return types.Project{}, f.err
	}
	project.ID = int64(len(f.projects) + 1)
	project.Likes, project.Comments = 0, 0
	f.projects = append(f.projects, project)
	return project, nil
}

func (f *fakeProjects) ListLatest(_ context.Context, limit int) ([]types.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := append([]types.Project{}, f.projects...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeObjects struct {
	objects map[string][]byte
}

func (f *fakeObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fakeCollaborator struct {
	items []string
	err   error
}

func (f *fakeCollaborator) Name() string { return "fake" }

func (f *fakeCollaborator) Detect(context.Context, vision.Image) ([]string, error) {
	return f.items, f.err
}

func (f *fakeCollaborator) AnalyzeStep(_ context.Context, _ vision.Image, target string) (types.StepFeedback, error) {
	if f.err != nil {
		return types.StepFeedback{}, f.err
	}
	return types.StepFeedback{Target: target, Complete: true, Feedback: "done"}, nil
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

var errBoom = errors.New("boom")

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		part, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Detail
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

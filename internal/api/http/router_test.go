package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/mind-engage/quizport/internal/auth/middleware"
	"github.com/mind-engage/quizport/internal/bank"
	"github.com/mind-engage/quizport/internal/ids"
	"github.com/mind-engage/quizport/internal/qti/export"
	"github.com/mind-engage/quizport/internal/qti/parser"
	"github.com/mind-engage/quizport/internal/quiz"
	"github.com/mind-engage/quizport/internal/rbac"
	"github.com/mind-engage/quizport/internal/storage"
)

type fixture struct {
	srv    *httptest.Server
	author string
	viewer string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	blobs, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)
	svc := quiz.NewService(quiz.Deps{
		Store:  bank.NewMemoryStore(),
		Blobs:  blobs,
		IDs:    func() ids.Source { return ids.NewSequence("g") },
		DocIDs: ids.NewSequence("quiz-"),
		Export: export.DefaultOptions(),
	})
	a := auth.NewAuthService(auth.Options{Secret: "test", DevLogin: true})
	srv := httptest.NewServer(NewRouter(RouterDeps{Service: svc, Auth: a, Blobs: blobs, LocalLogin: true}))
	t.Cleanup(srv.Close)

	author, err := a.IssueJWT("ann", rbac.RoleAuthor)
	require.NoError(t, err)
	viewer, err := a.IssueJWT("vic", rbac.RoleViewer)
	require.NoError(t, err)
	return fixture{srv: srv, author: author, viewer: viewer}
}

func (f fixture) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f fixture) postJSON(t *testing.T, path, token string, v any) *http.Response {
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return f.do(t, http.MethodPost, path, token, bytes.NewReader(b), "application/json")
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealthAndLogin(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "", nil, "").StatusCode)

	resp := f.postJSON(t, "/auth/login", "", map[string]string{"username": "ann", "password": "ann", "role": "author"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tok map[string]string
	decode(t, resp, &tok)
	assert.NotEmpty(t, tok["access_token"])

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/quizzes", "", nil, "").StatusCode)
}

func TestValidateRows(t *testing.T) {
	f := newFixture(t)
	resp := f.postJSON(t, "/rows/validate", f.author, map[string]any{
		"rows": [][]string{{"TF", "Sky is blue", "true"}, {"TF", "X", "maybe"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rep struct {
		Diagnostics []struct {
			Severity string `json:"severity"`
			Row      int    `json:"row"`
			Message  string `json:"message"`
		} `json:"diagnostics"`
		Records []map[string]any `json:"records"`
	}
	decode(t, resp, &rep)
	assert.Len(t, rep.Records, 1)
	require.Len(t, rep.Diagnostics, 2)
	assert.Equal(t, "error", rep.Diagnostics[0].Severity)
	assert.Equal(t, 1, rep.Diagnostics[0].Row)
	assert.Equal(t, "warning", rep.Diagnostics[1].Severity)
	assert.Contains(t, rep.Diagnostics[1].Message, "skipped: ")

	assert.Equal(t, http.StatusForbidden, f.postJSON(t, "/rows/validate", f.viewer, map[string]any{"rows": [][]string{{"x"}}}).StatusCode)
	assert.Equal(t, http.StatusBadRequest, f.postJSON(t, "/rows/validate", f.author, map[string]any{"rows": [][]string{}}).StatusCode)
}

func TestQuizLifecycle(t *testing.T) {
	f := newFixture(t)
	resp := f.postJSON(t, "/quizzes", f.author, map[string]any{
		"title": "Week 1",
		"rows": [][]string{
			{"MC", "2+2=?", "4", "correct", "5", "incorrect"},
			{"MA", "Pick two", "A", "correct", "B", "correct", "C", "incorrect"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created quiz.CreateResult
	decode(t, resp, &created)
	assert.Equal(t, "quiz-1", created.ID)

	resp = f.do(t, http.MethodGet, "/quizzes?q=week", f.viewer, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []bank.Summary
	decode(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].QuestionCount)

	resp = f.do(t, http.MethodGet, "/quizzes/quiz-1", f.viewer, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc struct {
		Title     string           `json:"title"`
		Questions []map[string]any `json:"questions"`
	}
	decode(t, resp, &doc)
	assert.Equal(t, "Week 1", doc.Title)
	assert.Len(t, doc.Questions, 2)

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/quizzes/quiz-1/export", f.viewer, nil, "").StatusCode)

	resp = f.do(t, http.MethodGet, "/quizzes/quiz-1/export", f.author, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	assert.Equal(t, "g1", resp.Header.Get("X-Package-Id"))
	zipped, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	decoded, err := parser.Open(zipped)
	require.NoError(t, err)
	assert.Len(t, decoded.Records, 2)

	resp = f.do(t, http.MethodGet, "/quizzes/quiz-1/exports", f.viewer, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var recs []bank.ExportRecord
	decode(t, resp, &recs)
	require.Len(t, recs, 1)
	assert.Equal(t, "ann", recs[0].Actor)

	resp = f.do(t, http.MethodGet, "/packages/"+recs[0].BlobKey, f.author, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stored, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, zipped, stored)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/packages/secrets.txt", f.author, nil, "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/quizzes/quiz-1/export?fib=cloze", f.author, nil, "").StatusCode)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/quizzes/quiz-1", f.author, nil, "").StatusCode)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/quizzes/quiz-1", f.viewer, nil, "").StatusCode)
}

func TestExportBlockedReturnsConflict(t *testing.T) {
	f := newFixture(t)
	resp := f.postJSON(t, "/quizzes", f.author, map[string]any{
		"title": "Bad",
		"rows":  [][]string{{"MC", "Pick", "a", "correct", "b", "correct"}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/quizzes/quiz-1/export", f.author, nil, "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	var body struct {
		Error       string           `json:"error"`
		Diagnostics []map[string]any `json:"diagnostics"`
	}
	decode(t, resp, &body)
	assert.Contains(t, body.Error, "export blocked")
	assert.NotEmpty(t, body.Diagnostics)

	resp = f.do(t, http.MethodGet, "/quizzes/quiz-1/diagnostics", f.author, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func multipartFile(t *testing.T, name string, data []byte) (io.Reader, string) {
	t.Helper()
	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestPreviewAndImport(t *testing.T) {
	f := newFixture(t)
	resp := f.postJSON(t, "/quizzes", f.author, map[string]any{
		"title": "Source",
		"rows":  [][]string{{"FIB", "Capital of France is ___", "Paris", "paris"}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = f.do(t, http.MethodGet, "/quizzes/quiz-1/export", f.author, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	zipped, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	body, ct := multipartFile(t, "source.zip", zipped)
	resp = f.do(t, http.MethodPost, "/qti/preview", f.viewer, body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var preview struct {
		Title   string `json:"title"`
		Records []struct {
			Type              string   `json:"type"`
			AcceptableAnswers []string `json:"acceptable_answers"`
		} `json:"records"`
	}
	decode(t, resp, &preview)
	assert.Equal(t, "Source", preview.Title)
	require.Len(t, preview.Records, 1)
	assert.Equal(t, "FIB", preview.Records[0].Type)
	assert.Equal(t, []string{"Paris", "paris"}, preview.Records[0].AcceptableAnswers)

	body, ct = multipartFile(t, "source.zip", zipped)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/qti/import", f.viewer, body, ct).StatusCode)

	body, ct = multipartFile(t, "source.zip", zipped)
	resp = f.do(t, http.MethodPost, "/qti/import", f.author, body, ct)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var imp quiz.ImportResult
	decode(t, resp, &imp)
	assert.True(t, strings.HasPrefix(imp.ID, "quiz-source-"))

	body, ct = multipartFile(t, "junk.xml", []byte("<manifest/>"))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/qti/preview", f.viewer, body, ct).StatusCode)
}

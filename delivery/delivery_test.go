package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/spektr-retail/artifact"
	"github.com/spektr-org/spektr-retail/engine"
)

func testArtifact() artifact.Artifact {
	return artifact.Artifact{
		ID: "a1", Session: "s1", Title: "Revenue by Branch", Summary: "Created a comparison chart.",
		Filename: "revenue_by_branch.html", ContentType: "text/html", Data: []byte("<html></html>"),
	}
}

// ============================================================================
// SLACK
// ============================================================================

func slackServer(t *testing.T, completeOK bool) (*httptest.Server, *[]string) {
	t.Helper()
	var calls []string
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		switch r.URL.Path {
		case "/files.getUploadURLExternal":
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "xoxb-test", slackToken(r))
			assert.Equal(t, "revenue_by_branch.html", r.PostForm.Get("filename"))
			assert.Equal(t, "13", r.PostForm.Get("length"))
			json.NewEncoder(w).Encode(map[string]any{"ok": true, "upload_url": srv.URL + "/upload", "file_id": "F1"})
		case "/upload":
			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), "<html></html>")
			w.Write([]byte("OK"))
		case "/files.completeUploadExternal":
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "C123", r.PostForm.Get("channel_id"))
			assert.Contains(t, r.PostForm.Get("files"), `"id":"F1"`)
			assert.Contains(t, r.PostForm.Get("initial_comment"), "Revenue by Branch")
			if completeOK {
				w.Write([]byte(`{"ok":true,"files":[{"id":"F1","title":"Revenue by Branch"}]}`))
			} else {
				w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

// slackToken reads the bot token from the bearer header or the form.
func slackToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.PostForm.Get("token")
}

func TestSlackDeliver_UploadFlow(t *testing.T) {
	srv, calls := slackServer(t, true)
	s := NewSlack("xoxb-test", WithSlackBaseURL(srv.URL))

	require.NoError(t, s.Deliver(context.Background(), testArtifact(), "C123"))
	assert.Equal(t, []string{"/files.getUploadURLExternal", "/upload", "/files.completeUploadExternal"}, *calls)
}

func TestSlackDeliver_APIErrorIsUpstream(t *testing.T) {
	srv, _ := slackServer(t, false)
	s := NewSlack("xoxb-test", WithSlackBaseURL(srv.URL))

	err := s.Deliver(context.Background(), testArtifact(), "C123")
	var up *engine.UpstreamServiceError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, "channel_not_found", up.Message)
}

func TestSlackDeliver_HTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewSlack("xoxb-test", WithSlackBaseURL(srv.URL)).Deliver(context.Background(), testArtifact(), "C123")
	var up *engine.UpstreamServiceError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, http.StatusInternalServerError, up.Status)
}

func TestSlackDeliver_EmptyArtifact(t *testing.T) {
	a := testArtifact()
	a.Data = nil
	err := NewSlack("xoxb-test").Deliver(context.Background(), a, "C123")
	var up *engine.UpstreamServiceError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, "empty artifact", up.Message)
}

func TestSlackDeliver_NoToken(t *testing.T) {
	err := NewSlack("").Deliver(context.Background(), testArtifact(), "C123")
	var up *engine.UpstreamServiceError
	assert.True(t, errors.As(err, &up))
}

// ============================================================================
// AMQP
// ============================================================================

type fakePublisher struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
}

func (f *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func TestAMQPDeliver_Publishes(t *testing.T) {
	pub := &fakePublisher{}
	d := NewAMQP(pub, "reports")

	require.NoError(t, d.Deliver(context.Background(), testArtifact(), "sales.daily"))
	assert.Equal(t, "reports", pub.exchange)
	assert.Equal(t, "sales.daily", pub.key)
	assert.Equal(t, "a1", pub.msg.MessageId)

	var ev reportEvent
	require.NoError(t, json.Unmarshal(pub.msg.Body, &ev))
	assert.Equal(t, "report.ready", ev.Event)
	assert.Equal(t, "Revenue by Branch", ev.Artifact.Title)
}

func TestAMQPDeliver_FailureIsUpstream(t *testing.T) {
	d := NewAMQP(&fakePublisher{err: amqp.ErrClosed}, "reports")
	err := d.Deliver(context.Background(), testArtifact(), "k")
	var up *engine.UpstreamServiceError
	require.True(t, errors.As(err, &up))
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

// ============================================================================
// REGISTRY
// ============================================================================

type recorder struct{ targets []string }

func (r *recorder) Deliver(_ context.Context, _ artifact.Artifact, target string) error {
	r.targets = append(r.targets, target)
	return nil
}

func TestRegistry(t *testing.T) {
	rec := &recorder{}
	reg := NewRegistry()
	reg.Register("test_channel_2", "Regional", "C2", rec)
	reg.Register("test_channel_1", "Sales Team", "C1", rec)

	chans := reg.Channels()
	require.Len(t, chans, 2)
	assert.Equal(t, "test_channel_1", chans[0].Key)
	assert.Equal(t, "Sales Team", chans[0].Name)

	c, err := reg.Send(context.Background(), "test_channel_2", testArtifact())
	require.NoError(t, err)
	assert.Equal(t, "Regional", c.Name)
	assert.Equal(t, []string{"C2"}, rec.targets)

	_, err = reg.Send(context.Background(), "nope", testArtifact())
	assert.ErrorIs(t, err, ErrUnknownChannel)
}

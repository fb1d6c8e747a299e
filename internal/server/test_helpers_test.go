package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dr-harper/spotify-quiz-sub000/internal/config"
)

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

// newGameServer wires a memory-backed Server and its HTTP listener for one
// test.
func newGameServer(t *testing.T, cfg config.Config) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(nil, cfg)
	t.Cleanup(srv.Close)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

// credentials identify one participant across requests.
type credentials struct {
	RoomID        uint
	ParticipantID uint
	Token         string
}

func (c credentials) authFields() map[string]any {
	return map[string]any{
		"participant_id": c.ParticipantID,
		"token":          c.Token,
	}
}

func roomPath(roomID uint, suffix string) string {
	return fmt.Sprintf("/api/rooms/%d%s", roomID, suffix)
}

func createRoom(t *testing.T, ts *httptest.Server, hostName string) credentials {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/rooms", map[string]any{
		"name":      "Test Room",
		"host_name": hostName,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return credentials{
		RoomID:        uint(body["room_id"].(float64)),
		ParticipantID: uint(body["participant_id"].(float64)),
		Token:         body["token"].(string),
	}
}

func joinRoom(t *testing.T, ts *httptest.Server, roomID uint, name string, spectator bool) credentials {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, roomPath(roomID, "/join"), map[string]any{
		"name":      name,
		"spectator": spectator,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return credentials{
		RoomID:        roomID,
		ParticipantID: uint(body["participant_id"].(float64)),
		Token:         body["token"].(string),
	}
}

func advancePhase(t *testing.T, ts *httptest.Server, host credentials) string {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, roomPath(host.RoomID, "/advance"), host.authFields())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("advance: expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["status"].(string)
}

func submitSong(t *testing.T, ts *httptest.Server, who credentials, trackID, title, artist string) {
	t.Helper()
	payload := who.authFields()
	payload["track_id"] = trackID
	payload["title"] = title
	payload["artist"] = artist
	resp := doRequest(t, ts, http.MethodPost, roomPath(who.RoomID, "/submissions"), payload)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit %q: expected status %d, got %d", title, http.StatusCreated, resp.StatusCode)
	}
}

// fetchRounds returns the shuffled round list the players see.
func fetchRounds(t *testing.T, ts *httptest.Server, roomID uint) []map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodGet, roomPath(roomID, "/rounds"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rounds: expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	raw, ok := body["rounds"].([]any)
	if !ok {
		t.Fatalf("expected rounds array, got %#v", body["rounds"])
	}
	rounds := make([]map[string]any, 0, len(raw))
	for _, entry := range raw {
		rounds = append(rounds, entry.(map[string]any))
	}
	return rounds
}

func castVote(t *testing.T, ts *httptest.Server, who credentials, roundID uint, kind string, guessedID uint) *http.Response {
	t.Helper()
	payload := who.authFields()
	payload["round_id"] = roundID
	payload["kind"] = kind
	if guessedID != 0 {
		payload["guessed_participant_id"] = guessedID
	}
	return doRequest(t, ts, http.MethodPost, roomPath(who.RoomID, "/votes"), payload)
}

func fetchSnapshot(t *testing.T, ts *httptest.Server, roomID uint) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodGet, roomPath(roomID, ""), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("snapshot: expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	return decodeBody(t, resp)
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

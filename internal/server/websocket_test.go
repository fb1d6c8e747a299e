package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dr-harper/spotify-quiz-sub000/internal/config"
	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, ts *httptest.Server, roomID uint, channel string, who *credentials) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + fmt.Sprintf("/ws/rooms/%d?channel=%s", roomID, channel)
	if who != nil {
		wsURL += fmt.Sprintf("&participant_id=%d&token=%s", who.ParticipantID, who.Token)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func readWSPayload(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("decode websocket message: %v", err)
	}
	return payload
}

func expectNoWSMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected no websocket message within %s", timeout)
	} else {
		netErr, ok := err.(net.Error)
		if !ok || !netErr.Timeout() {
			t.Fatalf("expected websocket timeout, got %v", err)
		}
	}
}

func TestWebsocketSendsSnapshotOnConnect(t *testing.T) {
	_, ts := newGameServer(t, config.Default())
	host := createRoom(t, ts, "Hana")

	conn := dialWS(t, ts, host.RoomID, "room", nil)
	snapshot := readWSPayload(t, conn, 5*time.Second)
	if snapshot["status"] != "lobby" {
		t.Fatalf("expected a lobby snapshot, got %v", snapshot)
	}
}

func TestWebsocketRejectsUnknownChannel(t *testing.T) {
	_, ts := newGameServer(t, config.Default())
	host := createRoom(t, ts, "Hana")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + fmt.Sprintf("/ws/rooms/%d?channel=bogus", host.RoomID)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		_ = conn.Close()
		t.Fatal("expected the dial to fail for an unknown channel")
	}
	if resp != nil && resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestWebsocketHostEventReachesSameChannelOnly(t *testing.T) {
	_, ts := newGameServer(t, config.Default())
	host := createRoom(t, ts, "Hana")

	hostConn := dialWS(t, ts, host.RoomID, channelQuizRound1, &host)
	round1Conn := dialWS(t, ts, host.RoomID, channelQuizRound1, nil)
	round2Conn := dialWS(t, ts, host.RoomID, channelQuizRound2, nil)

	// Drain the connect snapshots.
	readWSPayload(t, hostConn, 5*time.Second)
	readWSPayload(t, round1Conn, 5*time.Second)
	readWSPayload(t, round2Conn, 5*time.Second)

	frame, _ := json.Marshal(map[string]any{"event": eventNextRound, "roundIndex": 2})
	if err := hostConn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write: %v", err)
	}

	payload := readWSPayload(t, round1Conn, 5*time.Second)
	if payload["event"] != eventNextRound || payload["roundIndex"].(float64) != 2 {
		t.Fatalf("unexpected payload: %v", payload)
	}
	// The other half's channel stays quiet.
	expectNoWSMessage(t, round2Conn, 350*time.Millisecond)
}

func TestWebsocketDropsNonHostAndOffTaxonomyEvents(t *testing.T) {
	_, ts := newGameServer(t, config.Default())
	host := createRoom(t, ts, "Hana")
	ada := joinRoom(t, ts, host.RoomID, "Ada", false)

	adaConn := dialWS(t, ts, host.RoomID, channelQuizRound1, &ada)
	hostConn := dialWS(t, ts, host.RoomID, channelQuizRound1, &host)
	listener := dialWS(t, ts, host.RoomID, channelQuizRound1, nil)

	readWSPayload(t, adaConn, 5*time.Second)
	readWSPayload(t, hostConn, 5*time.Second)
	readWSPayload(t, listener, 5*time.Second)

	// A non-host publish is dropped.
	frame, _ := json.Marshal(map[string]any{"event": eventNextRound, "roundIndex": 1})
	if err := adaConn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write: %v", err)
	}
	// So is a host event outside the channel's taxonomy.
	frame, _ = json.Marshal(map[string]any{"event": eventNextQuestion, "questionIndex": 1})
	if err := hostConn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write: %v", err)
	}
	// And malformed JSON.
	if err := hostConn.WriteMessage(websocket.TextMessage, []byte("{nope")); err != nil {
		t.Fatalf("write: %v", err)
	}
	expectNoWSMessage(t, listener, 350*time.Millisecond)
}

func TestWebsocketVoteFeed(t *testing.T) {
	cfg := config.Default()
	cfg.SongsPerParticipant = 1
	srv, ts := newGameServer(t, cfg)
	host := createRoom(t, ts, "Hana")
	ada := joinRoom(t, ts, host.RoomID, "Ada", false)

	advancePhase(t, ts, host)
	submitSong(t, ts, host, "t1", "One", "Artist A")
	submitSong(t, ts, ada, "t2", "Two", "Artist B")
	advancePhase(t, ts, host)

	owners := roundOwners(t, srv, host.RoomID)
	var hostsRound uint
	for roundID, owner := range owners {
		if owner == host.ParticipantID {
			hostsRound = roundID
		}
	}

	conn := dialWS(t, ts, host.RoomID, fmt.Sprintf("%s%d", channelVotesPrefix, hostsRound), nil)
	readWSPayload(t, conn, 5*time.Second)

	if resp := castVote(t, ts, ada, hostsRound, "guess", host.ParticipantID); resp.StatusCode != http.StatusCreated {
		t.Fatalf("vote: got %d", resp.StatusCode)
	}

	payload := readWSPayload(t, conn, 5*time.Second)
	if payload["event"] != "vote_recorded" {
		t.Fatalf("unexpected event: %v", payload)
	}
	if payload["count"].(float64) != 1 || payload["round_id"].(float64) != float64(hostsRound) {
		t.Fatalf("unexpected vote feed payload: %v", payload)
	}
}

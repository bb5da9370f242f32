package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func newTestServer(t *testing.T) (*testGateway, *httptest.Server) {
	t.Helper()
	g := newTestGateway(t)
	srv := httptest.NewServer(g.service.Handler())
	t.Cleanup(srv.Close)
	return g, srv
}

func TestService_Health(t *testing.T) {
	_, srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestService_RoomEndpoints(t *testing.T) {
	g, srv := newTestServer(t)
	if _, err := g.registry.Session(context.Background(), "r1"); err != nil {
		t.Fatalf("Session: %v", err)
	}
	addConn(g.cm, "r1", "p1", "Ann", time.Now())

	resp, err := http.Get(srv.URL + "/api/rooms")
	if err != nil {
		t.Fatalf("GET /api/rooms: %v", err)
	}
	var rooms []RoomSummary
	err = json.NewDecoder(resp.Body).Decode(&rooms)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode rooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].RoomID != "r1" || rooms[0].Connections != 1 {
		t.Errorf("rooms = %+v, want r1 with one connection", rooms)
	}

	resp, err = http.Get(srv.URL + "/api/rooms/r1/state")
	if err != nil {
		t.Fatalf("GET state: %v", err)
	}
	var st map[string]any
	err = json.NewDecoder(resp.Body).Decode(&st)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st["phase"] != "IDLE" {
		t.Errorf("phase = %v, want IDLE", st["phase"])
	}

	resp, err = http.Get(srv.URL + "/api/rooms/missing/state")
	if err != nil {
		t.Fatalf("GET missing state: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing room status = %d, want 404", resp.StatusCode)
	}
}

func TestAdmin_ListRoomsAndGetState(t *testing.T) {
	g, srv := newTestServer(t)
	if _, err := g.registry.Session(context.Background(), "r1"); err != nil {
		t.Fatalf("Session: %v", err)
	}
	ctx := context.Background()

	list := connect.NewClient[emptypb.Empty, structpb.ListValue](srv.Client(), srv.URL+ListRoomsProcedure)
	resp, err := list.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	values := resp.Msg.GetValues()
	if len(values) != 1 {
		t.Fatalf("ListRooms returned %d rooms, want 1", len(values))
	}
	if id := values[0].GetStructValue().GetFields()["room_id"].GetStringValue(); id != "r1" {
		t.Errorf("room_id = %q, want r1", id)
	}

	get := connect.NewClient[wrapperspb.StringValue, structpb.Struct](srv.Client(), srv.URL+GetStateProcedure)
	st, err := get.CallUnary(ctx, connect.NewRequest(wrapperspb.String("r1")))
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if phase := st.Msg.GetFields()["phase"].GetStringValue(); phase != "IDLE" {
		t.Errorf("phase = %q, want IDLE", phase)
	}

	_, err = get.CallUnary(ctx, connect.NewRequest(wrapperspb.String("missing")))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("GetState(missing) code = %v, want not_found", connect.CodeOf(err))
	}
	_, err = get.CallUnary(ctx, connect.NewRequest(wrapperspb.String("")))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("GetState(\"\") code = %v, want invalid_argument", connect.CodeOf(err))
	}
}

func TestWebSocket_InitRoundTrip(t *testing.T) {
	_, srv := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?room=r1&participant_id=p1&name=Ann"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(Intent{Type: IntentInit}); err != nil {
		t.Fatalf("write init: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("read: %v", err)
		}
		if env.Type != TypeIdentity {
			continue
		}
		var id IdentityData
		if err := json.Unmarshal(env.Data, &id); err != nil {
			t.Fatalf("unmarshal identity: %v", err)
		}
		if id.ParticipantID != "p1" || id.Name != "Ann" {
			t.Errorf("identity = %+v, want p1/Ann", id)
		}
		return
	}
}

func TestWebSocket_RequiresRoom(t *testing.T) {
	_, srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/ws")
	if err != nil {
		t.Fatalf("GET /ws: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

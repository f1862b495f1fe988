// Parley - Realtime Messaging Backend
// Copyright 2026 Parley Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/parley-im/parley

package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/parley-im/parley/internal/auth"
	"github.com/parley-im/parley/internal/config"
	"github.com/parley-im/parley/internal/models"
	"github.com/parley-im/parley/internal/realtime"
	"github.com/parley-im/parley/internal/store"
)

const testJWTSecret = "test-secret-key-minimum-32-chars!!"

type testAPI struct {
	server *httptest.Server
	db     *store.DB
	hub    *realtime.Hub
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()

	cfg := &config.Config{
		Security: config.SecurityConfig{
			JWTSecret:         testJWTSecret,
			TokenTTL:          time.Hour,
			BcryptCost:        4,
			RateLimitDisabled: true,
		},
		Realtime: config.RealtimeConfig{
			SendBuffer:     64,
			MaxMessageSize: 64 * 1024,
			WriteWait:      time.Second,
			PongWait:       60 * time.Second,
			EventRate:      100,
			EventBurst:     100,
		},
	}

	db, err := store.Open(config.DatabaseConfig{InMemory: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}

	registry := realtime.NewRegistry()
	hub := realtime.NewHub(cfg.Realtime, db, registry)

	handler := NewHandler(cfg, db, jwtManager, hub)
	router := NewRouter(cfg, handler, auth.NewMiddleware(jwtManager))
	server := httptest.NewServer(router.Setup())

	t.Cleanup(func() {
		server.Close()
		registry.Close()
		if err := db.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})

	return &testAPI{server: server, db: db, hub: hub}
}

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

// doJSON issues a request with an optional bearer token and JSON body,
// returning the status code and decoded envelope.
func (a *testAPI) doJSON(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp.StatusCode, env
}

type authResult struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

func (a *testAPI) register(t *testing.T, name, email string) authResult {
	t.Helper()

	status, env := a.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": "hunter2hunter2",
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: status = %d, want 201", email, status)
	}

	var result authResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode auth result: %v", err)
	}
	if result.Token == "" || result.User.ID == "" {
		t.Fatalf("register %s: incomplete auth result %+v", email, result)
	}
	return result
}

func TestRegisterAndLogin(t *testing.T) {
	api := setupAPI(t)

	alice := api.register(t, "Alice", "alice@example.com")

	// Duplicate email is a conflict, case-insensitively.
	status, env := api.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     "Imposter",
		"email":    "Alice@Example.com",
		"password": "hunter2hunter2",
	})
	if status != http.StatusConflict {
		t.Errorf("duplicate register: status = %d, want 409", status)
	}
	if env.Error == nil || env.Error.Code != models.ErrCodeConflict {
		t.Errorf("duplicate register: error = %+v, want code CONFLICT", env.Error)
	}

	status, env = api.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "hunter2hunter2",
	})
	if status != http.StatusOK {
		t.Fatalf("login: status = %d, want 200", status)
	}
	var result authResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode login result: %v", err)
	}
	if result.User.ID != alice.User.ID {
		t.Errorf("login user id = %q, want %q", result.User.ID, alice.User.ID)
	}

	// Wrong password and unknown email produce the same answer.
	for _, body := range []map[string]string{
		{"email": "alice@example.com", "password": "wrong-password"},
		{"email": "nobody@example.com", "password": "hunter2hunter2"},
	} {
		status, env = api.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", body)
		if status != http.StatusUnauthorized {
			t.Errorf("bad login %v: status = %d, want 401", body, status)
		}
		if env.Error == nil || env.Error.Code != models.ErrCodeUnauthenticated {
			t.Errorf("bad login %v: error = %+v, want UNAUTHENTICATED", body, env.Error)
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	api := setupAPI(t)

	cases := []struct {
		name string
		body map[string]string
	}{
		{"missing name", map[string]string{"email": "a@b.com", "password": "hunter2hunter2"}},
		{"bad email", map[string]string{"name": "A", "email": "not-an-email", "password": "hunter2hunter2"}},
		{"short password", map[string]string{"name": "A", "email": "a@b.com", "password": "short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := api.doJSON(t, http.MethodPost, "/api/v1/auth/register", "", tc.body)
			if status != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422", status)
			}
			if env.Error == nil || env.Error.Code != models.ErrCodeValidation {
				t.Errorf("error = %+v, want VALIDATION_ERROR", env.Error)
			}
		})
	}
}

func TestUsersRequiresAuth(t *testing.T) {
	api := setupAPI(t)

	status, env := api.doJSON(t, http.MethodGet, "/api/v1/users", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	if env.Error == nil || env.Error.Code != models.ErrCodeUnauthenticated {
		t.Errorf("error = %+v, want UNAUTHENTICATED", env.Error)
	}
}

func TestUsersListingOmitsPasswordHash(t *testing.T) {
	api := setupAPI(t)

	alice := api.register(t, "Alice", "alice@example.com")
	api.register(t, "Bob", "bob@example.com")

	req, err := http.NewRequest(http.MethodGet, api.server.URL+"/api/v1/users", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+alice.Token)
	resp, err := api.server.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if strings.Contains(buf.String(), "password") {
		t.Errorf("users listing leaks password material: %s", buf.String())
	}

	var env envelope
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	var users []models.PublicUser
	if err := json.Unmarshal(env.Data, &users); err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Errorf("len(users) = %d, want 2", len(users))
	}
	if env.Metadata.Count != 2 {
		t.Errorf("metadata count = %d, want 2", env.Metadata.Count)
	}
}

func TestCreatePrivateChatDedupes(t *testing.T) {
	api := setupAPI(t)

	alice := api.register(t, "Alice", "alice@example.com")
	bob := api.register(t, "Bob", "bob@example.com")

	status, env := api.doJSON(t, http.MethodPost, "/api/v1/chats", alice.Token, map[string]string{
		"participant_id": bob.User.ID,
	})
	if status != http.StatusCreated {
		t.Fatalf("create chat: status = %d, want 201", status)
	}
	var conv models.Conversation
	if err := json.Unmarshal(env.Data, &conv); err != nil {
		t.Fatal(err)
	}
	if len(conv.Participants) != 2 || conv.IsGroup {
		t.Errorf("conversation = %+v, want 2 participants and not a group", conv)
	}

	// Bob creating the same pair gets the existing conversation back.
	status, env = api.doJSON(t, http.MethodPost, "/api/v1/chats", bob.Token, map[string]string{
		"participant_id": alice.User.ID,
	})
	if status != http.StatusOK {
		t.Fatalf("repeat create: status = %d, want 200", status)
	}
	var dup models.Conversation
	if err := json.Unmarshal(env.Data, &dup); err != nil {
		t.Fatal(err)
	}
	if dup.ID != conv.ID {
		t.Errorf("repeat create returned %q, want existing %q", dup.ID, conv.ID)
	}
}

func TestCreateChatRejectsSelfAndUnknown(t *testing.T) {
	api := setupAPI(t)
	alice := api.register(t, "Alice", "alice@example.com")

	status, env := api.doJSON(t, http.MethodPost, "/api/v1/chats", alice.Token, map[string]string{
		"participant_id": alice.User.ID,
	})
	if status != http.StatusUnprocessableEntity {
		t.Errorf("self chat: status = %d, want 422", status)
	}
	if env.Error == nil || env.Error.Code != models.ErrCodeValidation {
		t.Errorf("self chat: error = %+v, want VALIDATION_ERROR", env.Error)
	}

	status, env = api.doJSON(t, http.MethodPost, "/api/v1/chats", alice.Token, map[string]string{
		"participant_id": "no-such-user",
	})
	if status != http.StatusNotFound {
		t.Errorf("unknown participant: status = %d, want 404", status)
	}
	if env.Error == nil || env.Error.Code != models.ErrCodeNotFound {
		t.Errorf("unknown participant: error = %+v, want NOT_FOUND", env.Error)
	}
}

func TestCreateGroupChat(t *testing.T) {
	api := setupAPI(t)

	alice := api.register(t, "Alice", "alice@example.com")
	bob := api.register(t, "Bob", "bob@example.com")
	carol := api.register(t, "Carol", "carol@example.com")

	// Two distinct members total is too small for a group.
	status, _ := api.doJSON(t, http.MethodPost, "/api/v1/chats/group", alice.Token, map[string]interface{}{
		"name":            "Pair",
		"participant_ids": []string{bob.User.ID, alice.User.ID},
	})
	if status != http.StatusUnprocessableEntity {
		t.Errorf("small group: status = %d, want 422", status)
	}

	status, env := api.doJSON(t, http.MethodPost, "/api/v1/chats/group", alice.Token, map[string]interface{}{
		"name":            "Trio",
		"participant_ids": []string{bob.User.ID, carol.User.ID},
	})
	if status != http.StatusCreated {
		t.Fatalf("group chat: status = %d, want 201", status)
	}
	var conv models.Conversation
	if err := json.Unmarshal(env.Data, &conv); err != nil {
		t.Fatal(err)
	}
	if !conv.IsGroup || conv.GroupName != "Trio" || conv.GroupAdminID != alice.User.ID {
		t.Errorf("group = %+v, want group Trio with admin %s", conv, alice.User.ID)
	}
	if len(conv.Participants) != 3 || !conv.HasParticipant(alice.User.ID) {
		t.Errorf("participants = %v, want all three including the creator", conv.Participants)
	}
}

func TestChatsListing(t *testing.T) {
	api := setupAPI(t)

	alice := api.register(t, "Alice", "alice@example.com")
	bob := api.register(t, "Bob", "bob@example.com")
	carol := api.register(t, "Carol", "carol@example.com")

	api.doJSON(t, http.MethodPost, "/api/v1/chats", alice.Token, map[string]string{"participant_id": bob.User.ID})
	api.doJSON(t, http.MethodPost, "/api/v1/chats", alice.Token, map[string]string{"participant_id": carol.User.ID})

	status, env := api.doJSON(t, http.MethodGet, "/api/v1/chats", alice.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("list chats: status = %d, want 200", status)
	}
	var convs []models.Conversation
	if err := json.Unmarshal(env.Data, &convs); err != nil {
		t.Fatal(err)
	}
	if len(convs) != 2 {
		t.Errorf("alice has %d chats, want 2", len(convs))
	}

	status, env = api.doJSON(t, http.MethodGet, "/api/v1/chats", bob.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("list chats: status = %d, want 200", status)
	}
	if err := json.Unmarshal(env.Data, &convs); err != nil {
		t.Fatal(err)
	}
	if len(convs) != 1 {
		t.Errorf("bob has %d chats, want 1", len(convs))
	}
}

func TestMessageHistoryAuthorization(t *testing.T) {
	api := setupAPI(t)

	alice := api.register(t, "Alice", "alice@example.com")
	bob := api.register(t, "Bob", "bob@example.com")
	eve := api.register(t, "Eve", "eve@example.com")

	_, env := api.doJSON(t, http.MethodPost, "/api/v1/chats", alice.Token, map[string]string{"participant_id": bob.User.ID})
	var conv models.Conversation
	if err := json.Unmarshal(env.Data, &conv); err != nil {
		t.Fatal(err)
	}

	seedTestMessages(t, api.db, conv.ID, alice.User.ID, "hello", "world")

	status, env := api.doJSON(t, http.MethodGet, "/api/v1/chats/"+conv.ID+"/messages", bob.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("history: status = %d, want 200", status)
	}
	var msgs []models.Message
	if err := json.Unmarshal(env.Data, &msgs); err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Content != "hello" || msgs[1].Content != "world" {
		t.Errorf("history = %+v, want [hello world] in order", msgs)
	}

	status, env = api.doJSON(t, http.MethodGet, "/api/v1/chats/"+conv.ID+"/messages", eve.Token, nil)
	if status != http.StatusForbidden {
		t.Errorf("outsider history: status = %d, want 403", status)
	}
	if env.Error == nil || env.Error.Code != models.ErrCodeForbidden {
		t.Errorf("outsider history: error = %+v, want FORBIDDEN", env.Error)
	}

	status, _ = api.doJSON(t, http.MethodGet, "/api/v1/chats/no-such-chat/messages", alice.Token, nil)
	if status != http.StatusNotFound {
		t.Errorf("unknown chat history: status = %d, want 404", status)
	}
}

func TestMarkReadViaREST(t *testing.T) {
	api := setupAPI(t)

	alice := api.register(t, "Alice", "alice@example.com")
	bob := api.register(t, "Bob", "bob@example.com")

	_, env := api.doJSON(t, http.MethodPost, "/api/v1/chats", alice.Token, map[string]string{"participant_id": bob.User.ID})
	var conv models.Conversation
	if err := json.Unmarshal(env.Data, &conv); err != nil {
		t.Fatal(err)
	}

	seedTestMessages(t, api.db, conv.ID, alice.User.ID, "one", "two")

	status, env := api.doJSON(t, http.MethodPost, "/api/v1/chats/"+conv.ID+"/read", bob.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("mark read: status = %d, want 200", status)
	}
	var notice realtime.MessagesReadNotice
	if err := json.Unmarshal(env.Data, &notice); err != nil {
		t.Fatal(err)
	}
	if len(notice.MessageIDs) != 2 || notice.UserID != bob.User.ID {
		t.Errorf("notice = %+v, want 2 message ids for bob", notice)
	}

	// Receipts are idempotent; a second pass marks nothing.
	status, env = api.doJSON(t, http.MethodPost, "/api/v1/chats/"+conv.ID+"/read", bob.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("repeat mark read: status = %d, want 200", status)
	}
	if err := json.Unmarshal(env.Data, &notice); err != nil {
		t.Fatal(err)
	}
	if len(notice.MessageIDs) != 0 {
		t.Errorf("repeat mark read flipped %v, want none", notice.MessageIDs)
	}
}

func TestDeleteMessageSenderOnly(t *testing.T) {
	api := setupAPI(t)

	alice := api.register(t, "Alice", "alice@example.com")
	bob := api.register(t, "Bob", "bob@example.com")

	_, env := api.doJSON(t, http.MethodPost, "/api/v1/chats", alice.Token, map[string]string{"participant_id": bob.User.ID})
	var conv models.Conversation
	if err := json.Unmarshal(env.Data, &conv); err != nil {
		t.Fatal(err)
	}

	ids := seedTestMessages(t, api.db, conv.ID, alice.User.ID, "delete me")

	status, env := api.doJSON(t, http.MethodDelete, "/api/v1/messages/"+ids[0], bob.Token, nil)
	if status != http.StatusForbidden {
		t.Errorf("non-sender delete: status = %d, want 403", status)
	}
	if env.Error == nil || env.Error.Code != models.ErrCodeForbidden {
		t.Errorf("non-sender delete: error = %+v, want FORBIDDEN", env.Error)
	}

	status, _ = api.doJSON(t, http.MethodDelete, "/api/v1/messages/"+ids[0], alice.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("sender delete: status = %d, want 200", status)
	}

	status, _ = api.doJSON(t, http.MethodDelete, "/api/v1/messages/missing", alice.Token, nil)
	if status != http.StatusNotFound {
		t.Errorf("missing delete: status = %d, want 404", status)
	}
}

func TestWebSocketEndpoint(t *testing.T) {
	api := setupAPI(t)
	alice := api.register(t, "Alice", "alice@example.com")

	wsURL := "ws" + strings.TrimPrefix(api.server.URL, "http") + "/api/v1/ws"

	// No token: rejected before the upgrade.
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("unauthenticated dial succeeded, want rejection")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated dial: resp = %+v, want 401", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+alice.Token, nil)
	if err != nil {
		t.Fatalf("authenticated dial: %v", err)
	}
	defer conn.Close()

	// The connect flow delivers the initial statusSync snapshot.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read initial event: %v", err)
	}
	if frame.Event != realtime.EventStatusSync {
		t.Errorf("initial event = %q, want %q", frame.Event, realtime.EventStatusSync)
	}
}

func TestHealth(t *testing.T) {
	api := setupAPI(t)

	status, env := api.doJSON(t, http.MethodGet, "/api/v1/health", "", nil)
	if status != http.StatusOK {
		t.Fatalf("health: status = %d, want 200", status)
	}
	if env.Status != "success" {
		t.Errorf("health status = %q, want success", env.Status)
	}
}

// seedTestMessages persists messages directly through the store with
// strictly increasing timestamps and returns their ids.
func seedTestMessages(t *testing.T, db *store.DB, chatID, senderID string, contents ...string) []string {
	t.Helper()

	base := time.Now().UTC().Add(-time.Minute)
	ids := make([]string, 0, len(contents))
	for i, content := range contents {
		msg := &models.Message{
			ID:        chatID[:8] + "-msg-" + content,
			ChatID:    chatID,
			SenderID:  senderID,
			Content:   content,
			Type:      models.MessageTypeText,
			ReadBy:    []models.ReadReceipt{},
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := db.CreateMessage(t.Context(), msg); err != nil {
			t.Fatalf("seed message %q: %v", content, err)
		}
		ids = append(ids, msg.ID)
	}
	return ids
}

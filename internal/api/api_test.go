package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/erazemk/najdisce/internal/auth"
	"github.com/erazemk/najdisce/internal/db"
	"github.com/erazemk/najdisce/internal/live"
	"github.com/erazemk/najdisce/internal/model"
	"github.com/erazemk/najdisce/internal/report"
)

const testJWTSecret = "test-secret-that-is-long-enough-1234"

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	database := db.NewTestDB(t)

	st := report.SQLStore{DB: database}
	hub := live.NewHub(report.Loader(st), nil)
	t.Cleanup(hub.Close)

	reports := report.New(st, report.Options{Hub: hub, CopyInitialInterval: time.Millisecond})
	t.Cleanup(reports.Wait)

	mux := http.NewServeMux()
	mux.Handle("/api/", NewRouter(auth.NewService(database, testJWTSecret), reports, Options{}))
	mux.Handle("GET /healthz", HealthHandler(database))

	server := httptest.NewServer(LoggingMiddleware(mux))
	t.Cleanup(server.Close)
	return server
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func do(t *testing.T, method, url, token string, body any, out any) int {
	t.Helper()
	req, err := authRequest(method, url, token, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func guestToken(t *testing.T, server *httptest.Server) string {
	t.Helper()
	var session sessionResponse
	if code := do(t, "POST", server.URL+"/api/auth/guest", "", nil, &session); code != http.StatusCreated {
		t.Fatalf("guest sign-in: expected 201, got %d", code)
	}
	if session.Token == "" || !session.User.Anonymous {
		t.Fatalf("unexpected guest session %+v", session)
	}
	return session.Token
}

func backpack() map[string]string {
	return map[string]string{
		"name":        "Blue backpack",
		"description": "Navy blue with a keychain",
		"location":    "Library",
		"category":    "bags",
		"status":      "lost",
	}
}

func TestSignUpAndLogin(t *testing.T) {
	server := setupTestServer(t)

	var session sessionResponse
	code := do(t, "POST", server.URL+"/api/auth/signup", "", map[string]string{
		"email": "a@b.com", "password": "password1", "name": "Jane",
	}, &session)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if session.Token == "" || session.User.Name != "Jane" || session.User.Email != "a@b.com" {
		t.Errorf("unexpected session %+v", session)
	}

	tests := []struct {
		name string
		path string
		body map[string]string
		want int
	}{
		{"duplicate email", "/api/auth/signup", map[string]string{"email": "a@b.com", "password": "password1", "name": "X"}, http.StatusConflict},
		{"short password", "/api/auth/signup", map[string]string{"email": "c@d.com", "password": "short", "name": "X"}, http.StatusBadRequest},
		{"bad email", "/api/auth/signup", map[string]string{"email": "nope", "password": "password1", "name": "X"}, http.StatusBadRequest},
		{"wrong password", "/api/auth/login", map[string]string{"email": "a@b.com", "password": "wrong-password"}, http.StatusUnauthorized},
		{"missing password", "/api/auth/login", map[string]string{"email": "a@b.com"}, http.StatusBadRequest},
		{"login", "/api/auth/login", map[string]string{"email": "a@b.com", "password": "password1"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := do(t, "POST", server.URL+tt.path, "", tt.body, nil); code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, code)
			}
		})
	}
}

func TestCreateItemRequiresSession(t *testing.T) {
	server := setupTestServer(t)

	if code := do(t, "POST", server.URL+"/api/items", "", backpack(), nil); code != http.StatusUnauthorized {
		t.Errorf("expected 401 without session, got %d", code)
	}
	if code := do(t, "POST", server.URL+"/api/items", "garbage", backpack(), nil); code != http.StatusUnauthorized {
		t.Errorf("expected 401 with invalid token, got %d", code)
	}

	var items []model.Item
	do(t, "GET", server.URL+"/api/items", "", nil, &items)
	if len(items) != 0 {
		t.Errorf("expected no items written, got %d", len(items))
	}
}

func TestReportFlow(t *testing.T) {
	server := setupTestServer(t)
	token := guestToken(t, server)

	var item model.Item
	if code := do(t, "POST", server.URL+"/api/items", token, backpack(), &item); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if item.ID == "" {
		t.Fatal("expected generated id")
	}
	if item.ImageURL != model.PlaceholderImageURL {
		t.Errorf("expected placeholder image, got %q", item.ImageURL)
	}

	var got model.Item
	if code := do(t, "GET", server.URL+"/api/items/"+item.ID, "", nil, &got); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if got.Name != "Blue backpack" || got.UserID != item.UserID {
		t.Errorf("unexpected item %+v", got)
	}

	counts := map[string]int{"": 1, "?type=lost": 1, "?type=found": 0, "?type=stolen": 0}
	for query, want := range counts {
		var items []model.Item
		if code := do(t, "GET", server.URL+"/api/items"+query, "", nil, &items); code != http.StatusOK {
			t.Fatalf("list %q: expected 200, got %d", query, code)
		}
		if items == nil {
			t.Errorf("list %q: expected a JSON array, got null", query)
		}
		if len(items) != want {
			t.Errorf("list %q: expected %d items, got %d", query, want, len(items))
		}
	}

	var mine []model.Item
	do(t, "GET", server.URL+"/api/me/items", token, nil, &mine)
	if len(mine) != 1 || mine[0].ID != item.ID {
		t.Errorf("expected own copy of %q, got %+v", item.ID, mine)
	}

	var others []model.Item
	do(t, "GET", server.URL+"/api/me/items", guestToken(t, server), nil, &others)
	if len(others) != 0 {
		t.Errorf("expected other user to have no items, got %d", len(others))
	}

	if code := do(t, "GET", server.URL+"/api/items/missing", "", nil, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for missing item, got %d", code)
	}
}

func TestCreateItemValidation(t *testing.T) {
	server := setupTestServer(t)
	token := guestToken(t, server)

	body := backpack()
	body["category"] = "pets"
	body["name"] = ""

	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if code := do(t, "POST", server.URL+"/api/items", token, body, &resp); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if resp.Fields["category"] == "" || resp.Fields["name"] == "" {
		t.Errorf("expected category and name errors, got %v", resp.Fields)
	}
}

func TestCreateItemWithPhoto(t *testing.T) {
	server := setupTestServer(t)
	token := guestToken(t, server)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range backpack() {
		mw.WriteField(k, v)
	}
	fw, _ := mw.CreateFormFile("image", "backpack.png")
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		img.Set(x, 10, color.RGBA{B: 255, A: 255})
	}
	png.Encode(fw, img)
	mw.Close()

	req, _ := http.NewRequest("POST", server.URL+"/api/items", &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var item model.Item
	json.NewDecoder(resp.Body).Decode(&item)
	resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if want := "/items/" + item.ID + "/image"; item.ImageURL != want {
		t.Errorf("expected image url %q, got %q", want, item.ImageURL)
	}

	imgResp, err := http.Get(server.URL + "/api/items/" + item.ID + "/image")
	if err != nil {
		t.Fatal(err)
	}
	imgResp.Body.Close()
	if imgResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for image, got %d", imgResp.StatusCode)
	}
	if ct := imgResp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", ct)
	}
}

func TestCreateItemRejectsNonImage(t *testing.T) {
	server := setupTestServer(t)
	token := guestToken(t, server)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range backpack() {
		mw.WriteField(k, v)
	}
	fw, _ := mw.CreateFormFile("image", "notes.txt")
	fw.Write([]byte(strings.Repeat("not an image ", 20)))
	mw.Close()

	req, _ := http.NewRequest("POST", server.URL+"/api/items", &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d", resp.StatusCode)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	server := setupTestServer(t)
	token := guestToken(t, server)

	if code := do(t, "GET", server.URL+"/api/me/items", token, nil, nil); code != http.StatusOK {
		t.Fatalf("expected 200 before logout, got %d", code)
	}
	if code := do(t, "POST", server.URL+"/api/auth/logout", token, nil, nil); code != http.StatusOK {
		t.Fatalf("expected 200 for logout, got %d", code)
	}
	if code := do(t, "GET", server.URL+"/api/me/items", token, nil, nil); code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", code)
	}
	if code := do(t, "GET", server.URL+"/api/me/items", "", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", code)
	}
}

func TestLiveStream(t *testing.T) {
	server := setupTestServer(t)
	token := guestToken(t, server)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/items/live?type=lost"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg liveMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("reading initial snapshot: %v", err)
	}
	if msg.Filter != "lost" || len(msg.Items) != 0 {
		t.Fatalf("unexpected initial snapshot %+v", msg)
	}

	var item model.Item
	if code := do(t, "POST", server.URL+"/api/items", token, backpack(), &item); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}

	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("reading update: %v", err)
	}
	if len(msg.Items) != 1 || msg.Items[0].ID != item.ID {
		t.Errorf("expected snapshot with %q, got %+v", item.ID, msg.Items)
	}
}

func TestHealth(t *testing.T) {
	server := setupTestServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

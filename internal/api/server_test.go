package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nexus-share/nexus-ledger/config"
	"github.com/nexus-share/nexus-ledger/internal/auth"
	"github.com/nexus-share/nexus-ledger/internal/system"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	accounts, err := auth.NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	params := config.DefaultParams()
	params.Difficulty = 1
	return New("127.0.0.1:0", system.New(params), accounts)
}

// do runs one request against the server's handler and decodes the JSON body.
func do(t *testing.T, s *Server, method, path, token string, body, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if out != nil {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return rec.Code
}

// registerAndLogin registers a user over the API and returns their token.
func registerAndLogin(t *testing.T, s *Server, username string) string {
	t.Helper()
	code := do(t, s, http.MethodPost, "/api/register", "",
		registerRequest{Username: username, Password: "secret"}, nil)
	if code != http.StatusCreated {
		t.Fatalf("register %s: status %d", username, code)
	}

	var login loginResponse
	code = do(t, s, http.MethodPost, "/api/login", "",
		loginRequest{Username: username, Password: "secret"}, &login)
	if code != http.StatusOK {
		t.Fatalf("login %s: status %d", username, code)
	}
	return login.Token
}

func TestRegisterLoginBalanceMine(t *testing.T) {
	s := testServer(t)
	token := registerAndLogin(t, s, "alice")

	var bal balanceResponse
	if code := do(t, s, http.MethodGet, "/api/user/balance", token, nil, &bal); code != http.StatusOK {
		t.Fatalf("balance: status %d", code)
	}
	if bal.Balance != 0 {
		t.Fatalf("pre-mine balance = %v, want 0 (endowment pending)", bal.Balance)
	}

	var mined mineResponse
	if code := do(t, s, http.MethodPost, "/api/mine", token, nil, &mined); code != http.StatusOK {
		t.Fatalf("mine: status %d", code)
	}
	if mined.BlockHash == "" || mined.MiningReward != 50 {
		t.Fatalf("mine response: %+v", mined)
	}

	if code := do(t, s, http.MethodGet, "/api/user/balance", token, nil, &bal); code != http.StatusOK {
		t.Fatalf("balance: status %d", code)
	}
	if bal.Balance != 10050 {
		t.Fatalf("post-mine balance = %v, want 10050", bal.Balance)
	}
}

func TestRegisterValidation(t *testing.T) {
	s := testServer(t)

	if code := do(t, s, http.MethodPost, "/api/register", "",
		registerRequest{Username: "", Password: "x"}, nil); code != http.StatusBadRequest {
		t.Fatalf("empty username: status %d", code)
	}

	registerAndLogin(t, s, "alice")
	if code := do(t, s, http.MethodPost, "/api/register", "",
		registerRequest{Username: "alice", Password: "x"}, nil); code != http.StatusBadRequest {
		t.Fatalf("duplicate username: status %d", code)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	s := testServer(t)
	registerAndLogin(t, s, "alice")

	code := do(t, s, http.MethodPost, "/api/login", "",
		loginRequest{Username: "alice", Password: "wrong"}, nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("bad password: status %d", code)
	}
}

func TestAuthRequired(t *testing.T) {
	s := testServer(t)
	for _, c := range []struct{ method, path string }{
		{http.MethodGet, "/api/user/balance"},
		{http.MethodGet, "/api/user/my-files"},
		{http.MethodPost, "/api/resources/declare"},
		{http.MethodPost, "/api/resources/download"},
		{http.MethodPost, "/api/mine"},
	} {
		if code := do(t, s, c.method, c.path, "", nil, nil); code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: status %d, want 401", c.method, c.path, code)
		}
	}
}

func TestDeclareAndMyFiles(t *testing.T) {
	s := testServer(t)
	token := registerAndLogin(t, s, "alice")

	var declared declareResponse
	code := do(t, s, http.MethodPost, "/api/resources/declare", token, declareRequest{
		FileData: &fileData{Name: "dataset", SizeGB: 0.025, FileHash: "abcd1234", Category: "data"},
	}, &declared)
	if code != http.StatusCreated {
		t.Fatalf("declare: status %d", code)
	}
	if declared.CreditWhenApproved != 25 {
		t.Fatalf("credit_when_approved = %v, want 25", declared.CreditWhenApproved)
	}

	var files myFilesResponse
	if code := do(t, s, http.MethodGet, "/api/user/my-files", token, nil, &files); code != http.StatusOK {
		t.Fatalf("my-files: status %d", code)
	}
	if files.Total != 1 || files.Files[0].Name != "dataset" {
		t.Fatalf("my-files: %+v", files)
	}

	// Missing required fields.
	code = do(t, s, http.MethodPost, "/api/resources/declare", token, declareRequest{
		FileData: &fileData{Name: "incomplete"},
	}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("incomplete declare: status %d", code)
	}
}

func TestDownloadFlow(t *testing.T) {
	s := testServer(t)
	aliceToken := registerAndLogin(t, s, "alice")
	bobToken := registerAndLogin(t, s, "bob")

	do(t, s, http.MethodPost, "/api/resources/declare", aliceToken, declareRequest{
		FileData: &fileData{Name: "dataset", SizeGB: 0.025, FileHash: "abcd1234"},
	}, nil)
	if code := do(t, s, http.MethodPost, "/api/mine", bobToken, nil, nil); code != http.StatusOK {
		t.Fatalf("mine: status %d", code)
	}

	var files myFilesResponse
	do(t, s, http.MethodGet, "/api/user/my-files", aliceToken, nil, &files)
	id := files.Files[0].ID

	var dl downloadResponse
	code := do(t, s, http.MethodPost, "/api/resources/download", bobToken,
		downloadRequest{FileID: id, FileOwner: "alice"}, &dl)
	if code != http.StatusOK {
		t.Fatalf("download: status %d", code)
	}

	// Downloading an own resource is refused.
	code = do(t, s, http.MethodPost, "/api/resources/download", aliceToken,
		downloadRequest{FileID: id, FileOwner: "alice"}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("own download: status %d", code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	s := testServer(t)
	token := registerAndLogin(t, s, "alice")
	do(t, s, http.MethodPost, "/api/resources/declare", token, declareRequest{
		FileData: &fileData{Name: "climate dataset", SizeGB: 2, FileHash: "abcd1234", Category: "data"},
	}, nil)

	var res searchResponse
	code := do(t, s, http.MethodGet, "/api/resources/search?keyword=climate&min_size=2&max_size=2", "", nil, &res)
	if code != http.StatusOK {
		t.Fatalf("search: status %d", code)
	}
	if res.Count != 1 || res.Results[0].Name != "climate dataset" {
		t.Fatalf("search results: %+v", res)
	}

	code = do(t, s, http.MethodGet, "/api/resources/search?keyword=climate&min_size=3", "", nil, &res)
	if code != http.StatusOK || res.Count != 0 {
		t.Fatalf("bounded search: status %d, count %d", code, res.Count)
	}
}

func TestListResourcesIncludesCommunitySeeds(t *testing.T) {
	s := testServer(t)

	var res resourcesResponse
	if code := do(t, s, http.MethodGet, "/api/resources", "", nil, &res); code != http.StatusOK {
		t.Fatalf("list: status %d", code)
	}
	if res.Total == 0 {
		t.Fatal("community seed resources missing from the listing")
	}
}

func TestStatsEndpoint(t *testing.T) {
	s := testServer(t)
	registerAndLogin(t, s, "alice")

	var stats statsResponse
	if code := do(t, s, http.MethodGet, "/api/system/stats", "", nil, &stats); code != http.StatusOK {
		t.Fatalf("stats: status %d", code)
	}
	// The stock admin account plus alice.
	if stats.TotalUsers != 2 {
		t.Errorf("total_users = %d, want 2", stats.TotalUsers)
	}
	if stats.BlockchainHeight != 1 {
		t.Errorf("blockchain_height = %d, want 1", stats.BlockchainHeight)
	}
	if stats.PendingTransactions != 1 {
		t.Errorf("pending_transactions = %d, want 1 (alice's endowment)", stats.PendingTransactions)
	}
	if !stats.IsValid {
		t.Error("fresh chain must report valid")
	}
}

func TestReportEndpoint(t *testing.T) {
	s := testServer(t)
	aliceToken := registerAndLogin(t, s, "alice")
	bobToken := registerAndLogin(t, s, "bob")

	do(t, s, http.MethodPost, "/api/resources/declare", aliceToken, declareRequest{
		FileData: &fileData{Name: "dodgy", SizeGB: 1, FileHash: "abcd1234"},
	}, nil)
	var files myFilesResponse
	do(t, s, http.MethodGet, "/api/user/my-files", aliceToken, nil, &files)

	code := do(t, s, http.MethodPost, "/api/resources/report", bobToken,
		reportRequest{FileID: files.Files[0].ID, FileOwner: "alice", Reason: "copyright"}, nil)
	if code != http.StatusOK {
		t.Fatalf("report: status %d", code)
	}

	do(t, s, http.MethodGet, "/api/user/my-files", aliceToken, nil, &files)
	if files.Files[0].Active {
		t.Fatal("reported resource still active")
	}
}

//go:build integration || !unit

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	httpserver "roomledger/internal/adapters/http_server"
	redisadapter "roomledger/internal/adapters/redis"
	"roomledger/internal/adapters/simledger"
	"roomledger/internal/app"
	"roomledger/internal/domain"
	mysqlrepo "roomledger/internal/storage/mysql"
)

func migrationsDir(t *testing.T) string {
	t.Helper()
	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		return dir
	}
	return filepath.Join("..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir(t)

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("migrations dir %s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=roomledger",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "roomledger")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

// TestHTTP_EndToEnd_MintBookRead wires the whole stack — chi server, MySQL
// repo, redis cache and sessions, simulated ledger — and walks the happy path
// an owner and a visitor would: connect, mint, book, read back.
func TestHTTP_EndToEnd_MintBookRead(t *testing.T) {
	db := startMySQL(t)
	mr := miniredis.RunT(t)

	repo := mysqlrepo.New(db)
	cache := redisadapter.New(mr.Addr(), "", 0)
	chain := simledger.New("booking")

	h := &httpserver.Handlers{
		Q:        app.NewQueryService(repo, cache, time.Minute),
		Tx:       app.NewTransactionService(chain, repo, cache).WithToday(func() int64 { return 20250101 }),
		Sessions: app.NewSessionService(cache, time.Hour),
		Suggest:  app.NewSuggestionService(nil),
	}
	srv := httpserver.New()
	srv.MountHandlers(h)
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	client := ts.Client()
	connect := func(wallet string, role domain.Role) string {
		body, _ := json.Marshal(map[string]any{"wallet": wallet, "role": role})
		res, err := client.Post(ts.URL+"/v1/sessions", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
		defer res.Body.Close()
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("connect: status %d", res.StatusCode)
		}
		var sess domain.Session
		if err := json.NewDecoder(res.Body).Decode(&sess); err != nil {
			t.Fatalf("connect decode: %v", err)
		}
		return sess.Token
	}

	// Owner mints a listing.
	ownerToken := connect("0xowner", domain.RoleOwner)
	mintBody := `{"hotel_name":"The Grand Iotan","date":20260815,"room_type":"Suite","price":300000000,"capacity":4,"image_url":"https://x/suite.png"}`
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/rooms", bytes.NewReader([]byte(mintBody)))
	req.Header.Set("X-Session-Token", ownerToken)
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	var rcpt domain.TxReceipt
	if err := json.NewDecoder(res.Body).Decode(&rcpt); err != nil {
		t.Fatalf("mint decode: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusAccepted || rcpt.Status != domain.TxConfirmed || rcpt.ObjectID == "" {
		t.Fatalf("mint: status %d receipt %+v", res.StatusCode, rcpt)
	}

	// The confirmed mint landed in MySQL.
	stored, err := repo.GetRoom(context.Background(), rcpt.ObjectID)
	if err != nil {
		t.Fatalf("stored room: %v", err)
	}
	if stored.Owner != "0xowner" {
		t.Fatalf("stored owner = %q", stored.Owner)
	}

	// A visitor books it.
	visitorToken := connect("0xvisitor", domain.RoleVisitor)
	req, _ = http.NewRequest(http.MethodPost, ts.URL+"/v1/rooms/"+rcpt.ObjectID+"/book", nil)
	req.Header.Set("X-Session-Token", visitorToken)
	res, err = client.Do(req)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	var bookRcpt domain.TxReceipt
	if err := json.NewDecoder(res.Body).Decode(&bookRcpt); err != nil {
		t.Fatalf("book decode: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusAccepted || bookRcpt.Status != domain.TxConfirmed {
		t.Fatalf("book: status %d receipt %+v", res.StatusCode, bookRcpt)
	}

	// Read back through the API; ownership changed hands.
	res, err = client.Get(ts.URL + "/v1/rooms/" + rcpt.ObjectID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var room domain.Room
	if err := json.NewDecoder(res.Body).Decode(&room); err != nil {
		t.Fatalf("get decode: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK || room.Owner != "0xvisitor" || room.HotelName != "The Grand Iotan" {
		t.Fatalf("get: status %d room %+v", res.StatusCode, room)
	}

	// Receipt lookup by digest keeps working after the fact.
	res, err = client.Get(ts.URL + "/v1/transactions/" + bookRcpt.Digest)
	if err != nil {
		t.Fatalf("tx status: %v", err)
	}
	var status domain.TxReceipt
	if err := json.NewDecoder(res.Body).Decode(&status); err != nil {
		t.Fatalf("tx status decode: %v", err)
	}
	res.Body.Close()
	if status.Status != domain.TxConfirmed {
		t.Fatalf("tx status: %+v", status)
	}
}

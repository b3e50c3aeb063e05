package repositorycache

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/goliatone/go-query-cache/cache"
	repository "github.com/goliatone/go-repository-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type sqlKeyUser struct {
	bun.BaseModel `bun:"table:users"`

	ID   int64  `bun:"id,pk"`
	Name string `bun:"name"`
}

func newSQLiteDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func whereName(name string) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("name = ?", name)
	}
}

// recordingSerializer captures the arguments it receives.
type recordingSerializer struct {
	args []any
}

func (r *recordingSerializer) SerializeKey(method string, args ...any) string {
	r.args = args
	return cache.NewDefaultKeySerializer().SerializeKey(method, args...)
}

func TestSQLKeySerializer_ClosuresWithDifferentValues(t *testing.T) {
	s := NewSQLKeySerializer(newSQLiteDB(t), (*sqlKeyUser)(nil), nil)

	alice := s.SerializeKey("List", []repository.SelectCriteria{whereName("alice")})
	bob := s.SerializeKey("List", []repository.SelectCriteria{whereName("bob")})
	aliceAgain := s.SerializeKey("List", []repository.SelectCriteria{whereName("alice")})

	if alice == bob {
		t.Error("criteria binding different values must produce different keys")
	}
	if alice != aliceAgain {
		t.Errorf("equal criteria must produce equal keys: %q vs %q", alice, aliceAgain)
	}
	if !strings.HasPrefix(alice, "repository"+cache.KeySeparator) {
		t.Errorf("expected repository namespace, got %q", alice)
	}
}

func TestSQLKeySerializer_RendersSQL(t *testing.T) {
	inner := &recordingSerializer{}
	s := NewSQLKeySerializer(newSQLiteDB(t), (*sqlKeyUser)(nil), inner)

	s.SerializeKey("GetByID", "42", []repository.SelectCriteria{whereName("alice"), nil})

	if len(inner.args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(inner.args))
	}
	if inner.args[0] != "42" {
		t.Errorf("plain args must pass through, got %v", inner.args[0])
	}
	rendered, ok := inner.args[1].(string)
	if !ok {
		t.Fatalf("criteria should render to a string, got %T", inner.args[1])
	}
	for _, fragment := range []string{"sql:", `FROM "users"`, "name = 'alice'"} {
		if !strings.Contains(rendered, fragment) {
			t.Errorf("rendered SQL %q missing %q", rendered, fragment)
		}
	}
}

func TestSQLKeySerializer_SingleCriteria(t *testing.T) {
	inner := &recordingSerializer{}
	s := NewSQLKeySerializer(newSQLiteDB(t), (*sqlKeyUser)(nil), inner)

	s.SerializeKey("Get", whereName("bob"))

	rendered, ok := inner.args[0].(string)
	if !ok || !strings.Contains(rendered, "name = 'bob'") {
		t.Errorf("single criteria not rendered: %v", inner.args[0])
	}
}

package querycache

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type userProfile struct {
	ID int64
}

type account struct{}

func (account) TableName() string { return "accounts" }

func TestToSnake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"User", "user"},
		{"UserProfile", "user_profile"},
		{"HTTPRequest", "http_request"},
		{"OAuth2Token", "o_auth_2_token"},
		{"already_snake", "already_snake"},
		{"UserProfile[int]", "user_profile_int"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := toSnake(tt.in); got != tt.want {
				t.Errorf("toSnake(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSnakeResolver(t *testing.T) {
	tests := []struct {
		name    string
		model   any
		want    string
		wantErr bool
	}{
		{name: "struct value", model: userProfile{}, want: "user_profile"},
		{name: "nil pointer", model: (*userProfile)(nil), want: "user_profile"},
		{name: "slice", model: []userProfile{}, want: "user_profile"},
		{name: "pointer to slice", model: &[]*userProfile{}, want: "user_profile"},
		{name: "table name method", model: account{}, want: "accounts"},
		{name: "anonymous struct", model: struct{ ID int }{}, wantErr: true},
		{name: "not a struct", model: "user", wantErr: true},
		{name: "nil", model: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SnakeResolver{}.ResolveTable(tt.model)
			if tt.wantErr {
				if !errors.Is(err, ErrUnresolvedTable) {
					t.Fatalf("expected ErrUnresolvedTable, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveTable: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveTables(t *testing.T) {
	refs := []TableRef{
		Table("user"),
		Table(`"order"`),
		Table(" "),
		ModelTable((*userProfile)(nil)),
		Table("user"),
		Table("`audit`"),
	}

	got, err := ResolveTables(SnakeResolver{}, refs...)
	if err != nil {
		t.Fatalf("ResolveTables: %v", err)
	}
	want := []string{"audit", "order", "user", "user_profile"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tables mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveTables_NoResolver(t *testing.T) {
	if _, err := ResolveTables(nil, ModelTable(userProfile{})); !errors.Is(err, ErrUnresolvedTable) {
		t.Fatalf("expected ErrUnresolvedTable, got %v", err)
	}
	names, err := ResolveTables(nil, Table("user"))
	if err != nil || !cmp.Equal(names, []string{"user"}) {
		t.Fatalf("named refs need no resolver, got %v, %v", names, err)
	}
}

func TestTableRef_String(t *testing.T) {
	if got := Table("user").String(); got != "user" {
		t.Errorf("got %q", got)
	}
	if got := ModelTable((*userProfile)(nil)).String(); got != "model(*querycache.userProfile)" {
		t.Errorf("got %q", got)
	}
	if Table("user").IsModel() || !ModelTable(userProfile{}).IsModel() {
		t.Error("IsModel mismatch")
	}
}

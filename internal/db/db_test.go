package db

import (
	"strings"
	"testing"

	"github.com/shinyyama/marketplace-backend/internal/config"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			name: "plain host",
			cfg:  config.Config{DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "3306", DBName: "market"},
			want: "u:p@tcp(db:3306)/market?",
		},
		{
			name: "already tcp",
			cfg:  config.Config{DBUser: "u", DBPassword: "p", DBHost: "tcp(10.0.0.1:3307)", DBName: "market"},
			want: "u:p@tcp(10.0.0.1:3307)/market?",
		},
		{
			name: "socket path",
			cfg:  config.Config{DBUser: "u", DBPassword: "p", DBHost: "/var/run/mysqld.sock", DBName: "market"},
			want: "u:p@unix(/var/run/mysqld.sock)/market?",
		},
		{
			name: "cloud sql",
			cfg:  config.Config{DBUser: "u", DBPassword: "p", DBHost: "ignored", InstanceConnectionName: "proj:region:inst", DBName: "market"},
			want: "u:p@unix(/cloudsql/proj:region:inst)/market?",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildDSN(&tt.cfg)
			if !strings.HasPrefix(got, tt.want) {
				t.Fatalf("got=%q want prefix %q", got, tt.want)
			}
		})
	}
}

func TestBuildPostgresDSNDefaultsPort(t *testing.T) {
	got := BuildPostgresDSN(&config.Config{DBUser: "u", DBPassword: "p", DBHost: "pg", DBPort: "3306", DBName: "market", DBSSLMode: "disable"})
	if !strings.Contains(got, "port=5432") {
		t.Fatalf("expected postgres default port, got %q", got)
	}
}

func TestConnectSQLiteAndMigrate(t *testing.T) {
	cfg := &config.Config{DBDriver: "sqlite", DBPath: "file::memory:?cache=shared"}
	conn, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if !conn.Migrator().HasTable("chat_messages") {
		t.Fatalf("chat_messages table missing after migrate")
	}
}

func TestConnectUnsupportedDriver(t *testing.T) {
	if _, err := Connect(&config.Config{DBDriver: "oracle"}); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

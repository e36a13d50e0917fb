package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("AUTH_MODE", "jwt")
	t.Setenv("JWT_SECRET", "0123456789abcdef")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port=%q", cfg.Port)
	}
	if cfg.EventsDriver != "none" {
		t.Fatalf("events driver=%q", cfg.EventsDriver)
	}
	if cfg.ProfileCacheTTL != 10*time.Minute {
		t.Fatalf("profile ttl=%v", cfg.ProfileCacheTTL)
	}
	if len(cfg.CORSAllowedSuffixes) != 1 || cfg.CORSAllowedSuffixes[0] != "vercel.app" {
		t.Fatalf("cors suffixes=%v", cfg.CORSAllowedSuffixes)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "mysql complete",
			cfg:  Config{DBDriver: "mysql", DBUser: "u", DBPassword: "p", DBName: "n", DBHost: "h", AuthMode: "firebase", FirebaseProjectID: "proj", EventsDriver: "none"},
		},
		{
			name:    "mysql missing user",
			cfg:     Config{DBDriver: "mysql", DBPassword: "p", DBName: "n", DBHost: "h", AuthMode: "firebase", FirebaseProjectID: "proj"},
			wantErr: "DB_USER",
		},
		{
			name:    "cloud sql socket instead of host",
			cfg:     Config{DBDriver: "mysql", DBUser: "u", DBPassword: "p", DBName: "n", InstanceConnectionName: "p:r:i", AuthMode: "jwt", JWTSecret: "0123456789abcdef"},
			wantErr: "",
		},
		{
			name:    "unknown driver",
			cfg:     Config{DBDriver: "oracle", AuthMode: "jwt", JWTSecret: "0123456789abcdef"},
			wantErr: "unsupported DB_DRIVER",
		},
		{
			name:    "short jwt secret",
			cfg:     Config{DBDriver: "sqlite", DBPath: "x.db", AuthMode: "jwt", JWTSecret: "short"},
			wantErr: "JWT_SECRET",
		},
		{
			name:    "redis events without address",
			cfg:     Config{DBDriver: "sqlite", DBPath: "x.db", AuthMode: "jwt", JWTSecret: "0123456789abcdef", EventsDriver: "redis"},
			wantErr: "REDIS_ADDR",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected err: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err=%v want substring %q", err, tt.wantErr)
			}
		})
	}
}

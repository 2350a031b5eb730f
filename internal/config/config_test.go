package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Logging.Level != LogLevelInfo {
		t.Errorf("Logging.Level = %s, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != LogFormatJSON {
		t.Errorf("Logging.Format = %s, want json", cfg.Logging.Format)
	}
	if cfg.Checkpoint.Dir != "save" {
		t.Errorf("Checkpoint.Dir = %s, want save", cfg.Checkpoint.Dir)
	}
	if cfg.Bus.ResultPoll != 5*time.Second {
		t.Errorf("Bus.ResultPoll = %v, want 5s", cfg.Bus.ResultPoll)
	}
	if cfg.Master.Penalty != 3 {
		t.Errorf("Master.Penalty = %v, want 3", cfg.Master.Penalty)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	content := `
[logging]
level = "debug"
format = "text"
dir = "custom-log"

[checkpoint]
dir = "custom-save"
compress = true

[bus]
socket_dir = "custom-bus"
dial_timeout = "2s"
result_poll = "1s"

[master]
penalty = 5
`

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Logging.Level != LogLevelDebug {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
	if cfg.Checkpoint.Dir != "custom-save" {
		t.Errorf("Checkpoint.Dir = %s, want custom-save", cfg.Checkpoint.Dir)
	}
	if !cfg.Checkpoint.Compress {
		t.Errorf("Checkpoint.Compress = false, want true")
	}
	if cfg.Bus.ResultPoll != time.Second {
		t.Errorf("Bus.ResultPoll = %v, want 1s", cfg.Bus.ResultPoll)
	}
	if cfg.Master.Penalty != 5 {
		t.Errorf("Master.Penalty = %v, want 5", cfg.Master.Penalty)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/config.toml")
	if err != nil {
		t.Fatalf("Load should not fail for non-existent file: %v", err)
	}
	if cfg.Checkpoint.Dir != "save" {
		t.Errorf("Should return defaults, got checkpoint dir = %s", cfg.Checkpoint.Dir)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	content := `invalid = [toml content`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load should fail for invalid TOML")
	}
}

func TestLoad_ReadError(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	if err == nil {
		t.Error("Load should fail when trying to read a directory")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{name: "valid default config", cfg: Default(), wantErr: false},
		{
			name: "missing checkpoint dir",
			cfg: &Config{
				Bus:    BusConfig{SocketDir: "bus", ResultPoll: time.Second},
				Master: MasterConfig{Penalty: 1},
			},
			wantErr: true,
		},
		{
			name: "missing socket dir",
			cfg: &Config{
				Checkpoint: CheckpointConfig{Dir: "save"},
				Bus:        BusConfig{ResultPoll: time.Second},
				Master:     MasterConfig{Penalty: 1},
			},
			wantErr: true,
		},
		{
			name: "zero result poll",
			cfg: &Config{
				Checkpoint: CheckpointConfig{Dir: "save"},
				Bus:        BusConfig{SocketDir: "bus"},
				Master:     MasterConfig{Penalty: 1},
			},
			wantErr: true,
		},
		{
			name: "zero penalty",
			cfg: &Config{
				Checkpoint: CheckpointConfig{Dir: "save"},
				Bus:        BusConfig{SocketDir: "bus", ResultPoll: time.Second},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_PathHelpers(t *testing.T) {
	cfg := Default()
	baseDir := "/project"

	if got := cfg.CheckpointDir(baseDir); got != "/project/save" {
		t.Errorf("CheckpointDir = %s, want /project/save", got)
	}
	if got := cfg.LogDir(baseDir); got != "/project/log" {
		t.Errorf("LogDir = %s, want /project/log", got)
	}
	if got := cfg.SocketDir(baseDir, "run-1"); got != "/project/bus/run-1" {
		t.Errorf("SocketDir = %s, want /project/bus/run-1", got)
	}

	cfg.Checkpoint.Dir = "/absolute/save"
	if got := cfg.CheckpointDir(baseDir); got != "/absolute/save" {
		t.Errorf("CheckpointDir (abs) = %s, want /absolute/save", got)
	}

	cfg.Logging.Dir = "/absolute/log"
	if got := cfg.LogDir(baseDir); got != "/absolute/log" {
		t.Errorf("LogDir (abs) = %s, want /absolute/log", got)
	}
}

package config

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/parques/game/engine"
)

func createValidConfig() *engine.GameConfig {
	config := engine.DefaultGameConfig()
	config.Name = "Test Config"
	config.Description = "Test configuration"
	return config
}

func writeConfigFile(t *testing.T, dir, name string, config *engine.GameConfig) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := t.TempDir()
		classic := createValidConfig()
		classic.Name = "Classic"
		writeConfigFile(t, dir, "classic", classic)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "Classic" {
			t.Errorf("Expected classic to be the default, got %q", manager.GetDefault().Name)
		}
		if manager.Dir() != dir {
			t.Errorf("Expected dir %q, got %q", dir, manager.Dir())
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/path")
		if err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("empty directory falls back to built-in ruleset", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager should succeed without config files, got: %v", err)
		}
		def := manager.GetDefault()
		if def == nil {
			t.Fatal("Expected default config to be available")
		}
		if err := engine.ValidateGameConfig(def); err != nil {
			t.Errorf("Built-in default should be valid: %v", err)
		}
	})

	t.Run("first valid file when classic is missing", func(t *testing.T) {
		dir := t.TempDir()
		alt := createValidConfig()
		alt.Name = "Alternate"
		writeConfigFile(t, dir, "alternate", alt)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "Alternate" {
			t.Errorf("Expected Alternate default, got %q", manager.GetDefault().Name)
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig())

	fast := createValidConfig()
	fast.Name = "Fast"
	fast.RequireBonusBeforeRoll = true
	writeConfigFile(t, dir, "fast", fast)

	yamlRuleset := []byte(`name: Original
description: Spanish messages
require_bonus_before_roll: true
messages:
  needs_five: "necesitas un 5 para sacar %s de la carcel."
`)
	if err := os.WriteFile(filepath.Join(dir, "original.yaml"), yamlRuleset, 0644); err != nil {
		t.Fatalf("Failed to write yaml config: %v", err)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load existing config", func(t *testing.T) {
		config, err := manager.LoadConfig("fast")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if config.Name != "Fast" || !config.RequireBonusBeforeRoll {
			t.Errorf("Unexpected config %+v", config)
		}
	})

	t.Run("load with .json extension", func(t *testing.T) {
		config, err := manager.LoadConfig("fast.json")
		if err != nil {
			t.Fatalf("Failed to load config with extension: %v", err)
		}
		if config.Name != "Fast" {
			t.Errorf("Expected config name 'Fast', got '%s'", config.Name)
		}
	})

	t.Run("load yaml with defaults filled in", func(t *testing.T) {
		config, err := manager.LoadConfig("original")
		if err != nil {
			t.Fatalf("Failed to load yaml config: %v", err)
		}
		if config.Messages.NeedsFive != "necesitas un 5 para sacar %s de la carcel." {
			t.Errorf("Unexpected needs_five message %q", config.Messages.NeedsFive)
		}
		if config.Messages.Captured == "" {
			t.Error("Expected missing messages to be filled from defaults")
		}
		if len(config.Players) != engine.PlayerCount {
			t.Errorf("Expected default players, got %d", len(config.Players))
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		config1, _ := manager.LoadConfig("fast")
		config2, err := manager.LoadConfig("fast")
		if err != nil {
			t.Fatalf("Failed to load config from cache: %v", err)
		}
		if config1 != config2 {
			t.Error("Expected config to be loaded from cache")
		}
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := manager.LoadConfig("non-existent")
		if err != ErrConfigNotFound {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("load invalid config", func(t *testing.T) {
		invalidData := []byte(`{"name": ""}`)
		if err := os.WriteFile(filepath.Join(dir, "invalid.json"), invalidData, 0644); err != nil {
			t.Fatalf("Failed to write invalid config: %v", err)
		}

		_, err := manager.LoadConfig("invalid")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("load malformed JSON", func(t *testing.T) {
		malformedData := []byte(`{"name": "Malformed", invalid json}`)
		if err := os.WriteFile(filepath.Join(dir, "malformed.json"), malformedData, 0644); err != nil {
			t.Fatalf("Failed to write malformed config: %v", err)
		}

		_, err := manager.LoadConfig("malformed")
		if err == nil {
			t.Error("Expected error for malformed JSON")
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()

	configs := []struct {
		filename string
		name     string
	}{
		{"classic", "Classic"},
		{"fast", "Fast"},
		{"slow", "Slow"},
	}
	for _, cfg := range configs {
		config := createValidConfig()
		config.Name = cfg.name
		writeConfigFile(t, dir, cfg.filename, config)
	}

	// Ignored: not a ruleset, and an invalid one
	os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("readme"), 0644)
	os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: ["), 0644)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	configList, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}
	if len(configList) != 3 {
		t.Errorf("Expected 3 configs, got %d", len(configList))
	}

	found := make(map[string]bool)
	for _, info := range configList {
		found[info.Name] = true
		if len(info.Players) != engine.PlayerCount {
			t.Errorf("Expected %d player names for %s, got %v", engine.PlayerCount, info.Name, info.Players)
		}
		if info.ConfigID == "" || filepath.Ext(info.ConfigID) != "" {
			t.Errorf("Expected bare config id, got %q", info.ConfigID)
		}
	}
	for _, cfg := range configs {
		if !found[cfg.name] {
			t.Errorf("Config '%s' not found in list", cfg.name)
		}
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("json", func(t *testing.T) {
		config := createValidConfig()
		config.Name = "Saved"
		if err := manager.SaveConfig("saved", config); err != nil {
			t.Fatalf("SaveConfig failed: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "saved.json")); err != nil {
			t.Errorf("Expected saved.json on disk: %v", err)
		}
		loaded, err := manager.LoadConfig("saved")
		if err != nil || loaded.Name != "Saved" {
			t.Errorf("Expected cached Saved config, got %v, %v", loaded, err)
		}
	})

	t.Run("yaml round trip through a fresh manager", func(t *testing.T) {
		config := &engine.GameConfig{Name: "Sparse", Description: "defaults fill the rest"}
		if err := manager.SaveConfig("sparse.yaml", config); err != nil {
			t.Fatalf("SaveConfig failed: %v", err)
		}

		fresh, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		loaded, err := fresh.LoadConfig("sparse")
		if err != nil {
			t.Fatalf("Failed to load saved yaml: %v", err)
		}
		if loaded.Name != "Sparse" || len(loaded.Players) != engine.PlayerCount {
			t.Errorf("Unexpected loaded config %+v", loaded)
		}
	})

	t.Run("invalid config is refused", func(t *testing.T) {
		config := createValidConfig()
		config.Players[0].StartSquare = 3
		err := manager.SaveConfig("bad", config)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "bad.json")); !os.IsNotExist(err) {
			t.Error("Invalid config should not be written")
		}
	})
}

func TestManager_ReloadConfig(t *testing.T) {
	dir := t.TempDir()
	config := createValidConfig()
	config.Name = "Changeable"
	writeConfigFile(t, dir, "changeable", config)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	loaded, _ := manager.LoadConfig("changeable")
	if loaded.RequireBonusBeforeRoll {
		t.Fatal("Expected bonus rule off initially")
	}

	config.RequireBonusBeforeRoll = true
	writeConfigFile(t, dir, "changeable", config)

	if err := manager.ReloadConfig("changeable"); err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	reloaded, _ := manager.LoadConfig("changeable")
	if !reloaded.RequireBonusBeforeRoll {
		t.Error("Expected reloaded config to require bonus before roll")
	}
}

func TestManager_Watch(t *testing.T) {
	dir := t.TempDir()
	config := createValidConfig()
	config.Name = "Before"
	writeConfigFile(t, dir, "classic", config)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- manager.Watch(ctx) }()

	// Give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	config.Name = "After"
	writeConfigFile(t, dir, "classic", config)

	deadline := time.Now().Add(5 * time.Second)
	for manager.GetDefault().Name != "After" {
		if time.Now().After(deadline) {
			t.Fatalf("Default config not refreshed, still %q", manager.GetDefault().Name)
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Watch did not stop after cancel")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	for i := 1; i <= 5; i++ {
		config := createValidConfig()
		config.Name = "Config" + string(rune('0'+i))
		writeConfigFile(t, dir, "config"+string(rune('0'+i)), config)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			configName := "config" + string(rune('0'+((id%5)+1)))
			if _, err := manager.LoadConfig(configName); err != nil {
				errs <- err
			}
			if id%10 == 0 {
				if err := manager.RefreshCache(); err != nil {
					errs <- err
				}
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
}

// ReloadConfig drops one cached ruleset and reads it again
func (m *Manager) ReloadConfig(name string) error {
	m.mu.Lock()
	delete(m.configs, configID(name))
	m.mu.Unlock()

	_, err := m.LoadConfig(name)
	return err
}

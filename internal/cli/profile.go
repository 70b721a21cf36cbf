package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const profileFileName = ".mindpalace.yaml"

// Profile はCLIの接続先とログイン状態を保存するYAMLファイル。
type Profile struct {
	Server    string `yaml:"server,omitempty"`
	Username  string `yaml:"username,omitempty"`
	SessionID string `yaml:"session_id,omitempty"`
	CSRFToken string `yaml:"csrf_token,omitempty"`
}

// defaultProfilePath はホームディレクトリ直下のプロファイルパスを返す。
func defaultProfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return profileFileName
	}
	return filepath.Join(home, profileFileName)
}

// LoadProfile はプロファイルを読み込む。ファイルが存在しない場合は空のプロファイルを返す。
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Profile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return &p, nil
}

// Save はプロファイルを書き込む。セッションIDを含むため所有者のみ読み書きできる権限にする。
func (p *Profile) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create profile directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

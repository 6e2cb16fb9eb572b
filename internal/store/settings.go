package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"projinfo/internal/model"
)

const keyLastRequest = "last_request"

// ErrSettingNotFound 设置项不存在
var ErrSettingNotFound = errors.New("setting not found")

// GetSetting 获取设置项
func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", ErrSettingNotFound, key)
		}
		return "", err
	}
	return value, nil
}

// SetSetting 设置设置项
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// SaveLastRequest 记住上次提交的表单，用于下次预填
func (s *Store) SaveLastRequest(req model.UpdateRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return s.SetSetting(keyLastRequest, string(data))
}

// LastRequest 读取上次提交的表单；从未提交时返回 false
func (s *Store) LastRequest() (model.UpdateRequest, bool, error) {
	raw, err := s.GetSetting(keyLastRequest)
	if err != nil {
		if errors.Is(err, ErrSettingNotFound) {
			return model.UpdateRequest{}, false, nil
		}
		return model.UpdateRequest{}, false, err
	}
	var req model.UpdateRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return model.UpdateRequest{}, false, fmt.Errorf("decode last request: %w", err)
	}
	return req, true, nil
}

// Package library はユーザーごとのカリキュラム保存領域(ライブラリ)を提供する。
package library

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hitoshi/edumap/internal/model"
	"github.com/hitoshi/edumap/internal/repository"
)

// keyPrefix はユーザーごとのパーティションキーの接頭辞。
const keyPrefix = "edumap_library_"

// SchemaVersion は現在の保存形式のバージョン。
// バージョン0はエンベロープを持たない素のJSON配列。
const SchemaVersion = 1

var (
	// ErrNotFound は指定IDのカリキュラムがライブラリに存在しない場合のエラー。
	ErrNotFound = errors.New("curriculum not found")
	// ErrInvalidRating は評価値が1〜5の範囲外の場合のエラー。
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	// ErrMissingUser はユーザーIDが空の場合のエラー。
	ErrMissingUser = errors.New("user ID is required")
	// ErrMissingID はカリキュラムのIDが空の場合のエラー。
	ErrMissingID = errors.New("curriculum ID is required")
)

// envelope はパーティションに保存されるドキュメント。
type envelope struct {
	SchemaVersion int                `json:"schemaVersion"`
	Curricula     []model.Curriculum `json:"curricula"`
}

// OpRecorder はストア操作の記録先。metrics.Collectorが実装する。
type OpRecorder interface {
	RecordStoreOp(op, outcome string)
}

// Store はKeyValueStore上のユーザー別カリキュラムストア。
// 各パーティションは新しいものから順に並んだカリキュラムの列を保持する。
type Store struct {
	kv       repository.KeyValueStore
	mu       sync.Mutex
	recorder OpRecorder
}

// NewStore はStoreを生成する。
func NewStore(kv repository.KeyValueStore) *Store {
	return &Store{kv: kv}
}

// SetRecorder は操作の記録先を設定する。
func (s *Store) SetRecorder(r OpRecorder) {
	s.recorder = r
}

// PartitionKey はユーザーのパーティションキーを返す。
func PartitionKey(userID string) string {
	return keyPrefix + userID
}

// decode は保存済みドキュメントを解釈する。
// 素の配列(バージョン0)はそのまま読み込み、次回の書き込みでエンベロープ形式に移行される。
func decode(raw []byte) ([]model.Curriculum, error) {
	if trimmed := bytes.TrimLeft(raw, " \t\r\n"); len(trimmed) > 0 && trimmed[0] == '[' {
		var legacy []model.Curriculum
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, err
		}
		return legacy, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.SchemaVersion > SchemaVersion {
		slog.Warn("library partition written by a newer schema version",
			slog.Int("schema_version", env.SchemaVersion),
		)
	}
	return env.Curricula, nil
}

// load はパーティションを読み込む。存在しない・壊れている場合は空の列を返す。
func (s *Store) load(ctx context.Context, userID string) ([]model.Curriculum, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	raw, err := s.kv.Get(ctx, PartitionKey(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to read library: %w", err)
	}
	if len(raw) == 0 {
		return []model.Curriculum{}, nil
	}

	list, err := decode(raw)
	if err != nil {
		slog.Warn("library partition is corrupt, treating as empty",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return []model.Curriculum{}, nil
	}
	if list == nil {
		list = []model.Curriculum{}
	}
	return list, nil
}

func (s *Store) persist(ctx context.Context, userID string, list []model.Curriculum) error {
	raw, err := json.Marshal(envelope{SchemaVersion: SchemaVersion, Curricula: list})
	if err != nil {
		return fmt.Errorf("failed to encode library: %w", err)
	}
	if err := s.kv.Set(ctx, PartitionKey(userID), raw); err != nil {
		return fmt.Errorf("failed to write library: %w", err)
	}
	return nil
}

// List はユーザーのカリキュラムを新しいものから順に返す。
func (s *Store) List(ctx context.Context, userID string) ([]model.Curriculum, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx, userID)
	s.record("list", err)
	return list, err
}

// Get は指定IDのカリキュラムを返す。
func (s *Store) Get(ctx context.Context, userID, id string) (*model.Curriculum, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx, userID)
	if err != nil {
		s.record("get", err)
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			s.record("get", nil)
			return &list[i], nil
		}
	}
	s.record("get", ErrNotFound)
	return nil, ErrNotFound
}

// Save はカリキュラムを先頭に追加して保存する。
// 同じIDが既に存在する場合は何もせずfalseを返す。
func (s *Store) Save(ctx context.Context, userID string, c *model.Curriculum) (bool, error) {
	if c == nil || c.ID == "" {
		return false, ErrMissingID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx, userID)
	if err != nil {
		s.record("save", err)
		return false, err
	}
	for _, existing := range list {
		if existing.ID == c.ID {
			s.record("save", nil)
			return false, nil
		}
	}

	list = append([]model.Curriculum{*c}, list...)
	err = s.persist(ctx, userID, list)
	s.record("save", err)
	if err != nil {
		return false, err
	}
	return true, nil
}

// Update はIDが一致するカリキュラムを置き換える。順序と件数は変わらない。
func (s *Store) Update(ctx context.Context, userID string, c *model.Curriculum) error {
	if c == nil || c.ID == "" {
		return ErrMissingID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.update(ctx, userID, c.ID, func(existing *model.Curriculum) {
		*existing = *c
	})
	s.record("update", err)
	return err
}

func (s *Store) update(ctx context.Context, userID, id string, mutate func(*model.Curriculum)) error {
	list, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].ID == id {
			mutate(&list[i])
			return s.persist(ctx, userID, list)
		}
	}
	return ErrNotFound
}

// Rate はカリキュラムに評価(1〜5)とフィードバックを記録する。
func (s *Store) Rate(ctx context.Context, userID, id string, rating int, feedback string) (*model.Curriculum, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var rated model.Curriculum
	err := s.update(ctx, userID, id, func(existing *model.Curriculum) {
		r := rating
		existing.Rating = &r
		existing.Feedback = feedback
		rated = *existing
	})
	s.record("rate", err)
	if err != nil {
		return nil, err
	}
	return &rated, nil
}

// Delete は指定IDのカリキュラムを削除する。
func (s *Store) Delete(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx, userID)
	if err != nil {
		s.record("delete", err)
		return err
	}
	for i := range list {
		if list[i].ID == id {
			list = append(list[:i], list[i+1:]...)
			err = s.persist(ctx, userID, list)
			s.record("delete", err)
			return err
		}
	}
	s.record("delete", ErrNotFound)
	return ErrNotFound
}

// Clear はユーザーのパーティションを丸ごと削除する。
func (s *Store) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrMissingUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, PartitionKey(userID)); err != nil {
		s.record("clear", err)
		return fmt.Errorf("failed to clear library: %w", err)
	}
	s.record("clear", nil)
	return nil
}

// Search は条件に一致するカリキュラムを保存順のまま返す。
func (s *Store) Search(ctx context.Context, userID string, f Filter) ([]model.Curriculum, error) {
	list, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return f.Apply(list), nil
}

// Subjects はライブラリから導出した科目フィルタの選択肢を返す。
func (s *Store) Subjects(ctx context.Context, userID string) ([]string, error) {
	list, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Subjects(list), nil
}

func (s *Store) record(op string, err error) {
	if s.recorder == nil {
		return
	}
	outcome := "success"
	switch {
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	s.recorder.RecordStoreOp(op, outcome)
}
